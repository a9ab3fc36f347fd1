// Package btree implements an in-memory B+-Tree over int32 keys and int32
// payloads, tuned for insertion and point-lookup throughput on large random
// workloads. Nodes are fixed-capacity buffers (see pkg/fixedvec) owned by
// an arena inside Tree; nodes reference each other — parent and children —
// through stable NodeID handles rather than pointers, so a split is pure
// index arithmetic and there is no ownership cycle for the garbage
// collector to worry about.
package btree

import (
	"errors"
	"fmt"
	"unsafe"
)

// ErrPreconditionViolated marks a programmer error: a wrong-variant node
// operation, or a malformed fan-out. It is fatal — the caller gave the
// tree data it promised never to give it.
var ErrPreconditionViolated = errors.New("btree: precondition violated")

// NodeID is a stable handle into a Tree's node arena. The zero value means
// "no node" — an empty root, or a node with no parent.
type NodeID int32

const nilNode NodeID = 0

// Config configures a Tree.
type Config struct {
	// MaxKeys is the fan-out parameter: the maximum number of keys a node
	// may hold before it splits. Must be >= 4.
	MaxKeys int
}

// Tree is the root holder: fan-out parameter, height counter, and the
// node arena. A Tree starts empty (no root) and grows monotonically under
// insertion; this package implements no delete.
type Tree struct {
	maxKeys    int
	nodes      []*Node // index 0 is an unused placeholder; NodeID 0 means nil
	root       NodeID
	height     int
	arenaBytes int64 // running total of allocated node buffer capacity
}

// Stats is a point-in-time snapshot of tree shape, in the spirit of the
// MemoryBudget stats snapshots used elsewhere in this module (see
// pkg/cache) rather than a grab-bag of individual getters.
type Stats struct {
	NumNodes int
	Height   int
}

// New creates an empty tree with the given fan-out. maxKeys must be >= 4;
// violating that is a precondition error and panics, matching the fatal
// PreconditionViolated contract used throughout this package.
func New(cfg Config) *Tree {
	if cfg.MaxKeys < 4 {
		panic(fmt.Errorf("%w: max_keys must be >= 4, got %d", ErrPreconditionViolated, cfg.MaxKeys))
	}
	return &Tree{
		maxKeys: cfg.MaxKeys,
		nodes:   make([]*Node, 1), // nodes[0] unused; NodeID 0 == nil
	}
}

// MaxKeys returns the configured fan-out.
func (t *Tree) MaxKeys() int { return t.maxKeys }

// Height returns the tree's current height (0 for an empty or single-leaf
// tree).
func (t *Tree) Height() int { return t.height }

// NumNodes returns the number of nodes currently allocated in the arena.
func (t *Tree) NumNodes() int { return len(t.nodes) - 1 }

// Stats returns a snapshot of the tree's current shape.
func (t *Tree) Stats() Stats {
	return Stats{NumNodes: t.NumNodes(), Height: t.height}
}

// Root returns the root node's handle, or (0, false) if the tree is empty.
func (t *Tree) Root() (NodeID, bool) {
	if t.root == nilNode {
		return 0, false
	}
	return t.root, true
}

func (t *Tree) node(id NodeID) *Node {
	return t.nodes[id]
}

func (t *Tree) allocNode(isLeaf bool) *Node {
	n := newNode(NodeID(len(t.nodes)), isLeaf, t.maxKeys)
	t.nodes = append(t.nodes, n)
	t.arenaBytes += t.nodeFootprint(isLeaf)
	return n
}

// nodeFootprint is the byte size of one node's fixed-capacity key buffer
// plus its values buffer (leaf) or children buffer (interior), the two
// allocations newNode makes via pkg/fixedvec.
func (t *Tree) nodeFootprint(isLeaf bool) int64 {
	keyBytes := int64(t.maxKeys) * int64(unsafe.Sizeof(int32(0)))
	if isLeaf {
		return keyBytes + int64(t.maxKeys)*int64(unsafe.Sizeof(int32(0)))
	}
	return keyBytes + int64(t.maxKeys+1)*int64(unsafe.Sizeof(NodeID(0)))
}

// ArenaBytes returns the total capacity, in bytes, of every node buffer
// allocated so far — the real figure a memory budget should track, as
// opposed to a guessed per-node constant.
func (t *Tree) ArenaBytes() int64 { return t.arenaBytes }

// Find descends from the root choosing a child at findKeyIndex at each
// interior node, and at the leaf returns values[i] iff keys[i] == key.
// Find never fails: absence is reported via the bool.
func (t *Tree) Find(key int32) (int32, bool) {
	if t.root == nilNode {
		return 0, false
	}
	leaf := t.findLeaf(key)
	i := findKeyIndex(leaf.keys, key)
	if i < leaf.keys.Size() && leaf.keys.Get(i) == key {
		return leaf.values.Get(i), true
	}
	return 0, false
}

func (t *Tree) findLeaf(key int32) *Node {
	cur := t.node(t.root)
	for !cur.isLeaf {
		idx := findKeyIndex(cur.keys, key)
		cur = t.node(cur.children.Get(idx))
	}
	return cur
}

// Insert inserts key/value, lazily allocating a leaf root on the first
// call, descending to the target leaf using the same rule as Find, then
// splitting any node along the path that overflowed. Insert is infallible
// given valid integer inputs; duplicate keys are not exercised by this
// spec and their behavior is undefined.
func (t *Tree) Insert(key, value int32) {
	if t.root == nilNode {
		t.root = t.allocNode(true).id
	}

	leaf := t.findLeaf(key)
	idx := findKeyIndex(leaf.keys, key)
	t.insertKeyValue(leaf.id, idx, key, value)
	t.split(leaf.id)
}

// findKeyIndex returns the smallest i with keys[i] >= key, or keys.Size()
// if no such i exists. Used identically to pick an insertion point in a
// leaf or a child index in an interior node.
func findKeyIndex(keys *int32Vec, key int32) int {
	n := keys.Size()
	for i := 0; i < n; i++ {
		if keys.Get(i) >= key {
			return i
		}
	}
	return n
}
