// pkg/btree/node.go
package btree

import (
	"fmt"
	"math"

	"formicary/pkg/fixedvec"
)

type int32Vec = fixedvec.Vector[int32]
type nodeIDVec = fixedvec.Vector[NodeID]

// Node is a leaf or interior node over int32 keys. The tag is immutable
// once constructed; this models the C++ original's single conflated class
// as an exhaustive tagged variant instead — leaves never carry a children
// buffer, interior nodes never carry a values buffer.
type Node struct {
	id     NodeID
	isLeaf bool

	keys *int32Vec

	values   *int32Vec  // leaf only
	children *nodeIDVec // interior only

	parent NodeID
	height int // distance to the nearest leaf; 0 for leaves
}

func newNode(id NodeID, isLeaf bool, maxKeys int) *Node {
	n := &Node{id: id, isLeaf: isLeaf, keys: fixedvec.New[int32](maxKeys)}
	if isLeaf {
		n.values = fixedvec.New[int32](maxKeys)
	} else {
		n.children = fixedvec.New[NodeID](maxKeys + 1)
	}
	return n
}

// ID returns this node's stable arena handle.
func (n *Node) ID() NodeID { return n.id }

// IsLeaf reports whether this is a leaf node.
func (n *Node) IsLeaf() bool { return n.isLeaf }

// NumKeys returns the number of keys currently stored.
func (n *Node) NumKeys() int { return n.keys.Size() }

// KeyAt returns the key at index i.
func (n *Node) KeyAt(i int) int32 { return n.keys.Get(i) }

// ValueAt returns the value at index i. Precondition: IsLeaf().
func (n *Node) ValueAt(i int) int32 {
	if !n.isLeaf {
		panic(fmt.Errorf("%w: ValueAt on interior node", ErrPreconditionViolated))
	}
	return n.values.Get(i)
}

// ChildAt returns the child handle at index i. Precondition: !IsLeaf().
func (n *Node) ChildAt(i int) NodeID {
	if n.isLeaf {
		panic(fmt.Errorf("%w: ChildAt on leaf node", ErrPreconditionViolated))
	}
	return n.children.Get(i)
}

// Height returns the distance from this node to the nearest leaf.
func (n *Node) Height() int { return n.height }

func (t *Tree) insertKeyValue(id NodeID, idx int, key, value int32) {
	n := t.node(id)
	if !n.isLeaf {
		panic(fmt.Errorf("%w: insertKeyValue on interior node", ErrPreconditionViolated))
	}
	n.keys.InsertAt(idx, key)
	n.values.InsertAt(idx, value)
}

// insertKeyPointer inserts key at idx and child at idx+1, always — there is
// no "insert before" variant, matching the canonical split behavior in the
// reference source.
func (t *Tree) insertKeyPointer(id NodeID, idx int, key int32, child NodeID) {
	n := t.node(id)
	if n.isLeaf {
		panic(fmt.Errorf("%w: insertKeyPointer on leaf node", ErrPreconditionViolated))
	}
	n.keys.InsertAt(idx, key)
	n.children.InsertAt(idx+1, child)
	t.node(child).parent = id
}

// split partitions a node once it reaches max_keys, inserting the pivot
// into the parent and recursing. Returns the number of new nodes created
// by this invocation (including a possibly new root).
func (t *Tree) split(id NodeID) int {
	n := t.node(id)
	if n.keys.Size() < t.maxKeys {
		return 0
	}

	rightID, pivot := t.makeSplitNode(id)
	right := t.node(rightID)

	if n.parent == nilNode {
		root := t.allocNode(false)
		t.height++
		root.keys.Push(pivot)
		root.children.Push(id)
		root.children.Push(rightID)
		right.parent = root.id
		n.parent = root.id
		t.root = root.id
		right.height = n.height
		root.height = n.height + 1
		return 2
	}

	parent := t.node(n.parent)
	idx := findKeyIndex(parent.keys, pivot)
	t.insertKeyPointer(parent.id, idx, pivot, rightID)
	right.height = n.height
	return 1 + t.split(parent.id)
}

// makeSplitNode partitions n into itself (left) and a newly allocated
// right sibling around a pivot key: pivot index p = (|keys|-1)/2 (integer
// floor). Leaves keep the pivot key
// in the left half (a B+-tree property); interior nodes push it up to the
// parent entirely. All children moved to the right sibling have their
// parent pointer reassigned.
func (t *Tree) makeSplitNode(id NodeID) (NodeID, int32) {
	n := t.node(id)
	right := t.allocNode(n.isLeaf)
	right.parent = n.parent

	pivotIdx := (n.keys.Size() - 1) / 2
	pivotKey := n.keys.Get(pivotIdx)

	right.keys.BulkCopyRange(0, n.keys, pivotIdx+1, n.keys.Size())

	if n.isLeaf {
		right.values.BulkCopyRange(0, n.values, pivotIdx+1, n.values.Size())
		n.keys.Truncate(pivotIdx + 1)
		n.values.Truncate(n.keys.Size())
	} else {
		right.children.BulkCopyRange(0, n.children, pivotIdx+1, n.children.Size())
		for i := 0; i < right.children.Size(); i++ {
			t.node(right.children.Get(i)).parent = right.id
		}
		n.keys.Truncate(pivotIdx)
		n.children.Truncate(pivotIdx + 1)
	}

	return right.id, pivotKey
}

// CheckSelf walks every allocated node reachable from the root and
// verifies the tree's structural invariants: leaf key/value parity,
// interior child/key parity, strictly ascending keys, each child's keys
// bounded by its separating keys, and non-root size bounds. It is the Go
// analogue of the C++ source's #ifdef SANITY_CHECK self-check — intended
// for tests and debugging, never called from the insert/find hot path.
func (t *Tree) CheckSelf() error {
	rootID, ok := t.Root()
	if !ok {
		return nil
	}

	stack := []NodeID{rootID}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		n := t.node(id)

		if err := t.checkNodeSelf(n); err != nil {
			return err
		}
		if !n.isLeaf {
			for i := 0; i < n.children.Size(); i++ {
				stack = append(stack, n.children.Get(i))
			}
		}
	}
	return nil
}

func (t *Tree) checkNodeSelf(n *Node) error {
	isRoot := n.parent == nilNode && n.id == t.root

	if !isRoot {
		if n.keys.Size() < t.maxKeys/2-1 {
			return fmt.Errorf("node %d: too few keys: %d", n.id, n.keys.Size())
		}
		if n.keys.Size() >= t.maxKeys {
			return fmt.Errorf("node %d: too many keys: %d", n.id, n.keys.Size())
		}
	}

	if !n.isLeaf {
		if n.children.Size() != n.keys.Size()+1 {
			return fmt.Errorf("node %d: children/keys mismatch: %d children, %d keys",
				n.id, n.children.Size(), n.keys.Size())
		}

		for i := 0; i < n.children.Size(); i++ {
			child := t.node(n.children.Get(i))
			var key int32 = math.MaxInt32
			if i < n.keys.Size() {
				key = n.keys.Get(i)
			}
			var prev int32 = math.MinInt32
			if i > 0 {
				prev = n.keys.Get(i - 1)
			}
			for j := 0; j < child.keys.Size(); j++ {
				ck := child.keys.Get(j)
				if ck > key || ck <= prev {
					return fmt.Errorf("node %d child %d: key %d out of range (%d, %d]",
						n.id, child.id, ck, prev, key)
				}
			}
		}
	} else {
		if n.keys.Size() != n.values.Size() {
			return fmt.Errorf("node %d: leaf keys/values mismatch: %d keys, %d values",
				n.id, n.keys.Size(), n.values.Size())
		}
	}

	for i := 1; i < n.keys.Size(); i++ {
		if n.keys.Get(i) <= n.keys.Get(i-1) {
			return fmt.Errorf("node %d: keys not strictly ascending at %d", n.id, i)
		}
	}
	return nil
}
