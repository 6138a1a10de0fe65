package object

import mbits "math/bits"

// HashMap is a persistent hash-array-mapped-trie (HAMT) map, the same
// structural-sharing scheme as Vector's trie but keyed by hash bits with a
// bitmap indicating occupied slots (so nodes stay small for sparse
// branches), matching spec §4.1's "32-way tries" for map/vector.
type HashMap struct {
	cnt  int
	root *hnode // nil for the empty map
}

type mapEntry struct {
	key Object
	val Object
}

// hnode is a bitmap-indexed node. Occupied slots are stored densely in
// children, ordered by bit position; bitmap tracks which of the 32 possible
// hash-segment values are present. A node holding entries directly (no
// sub-nodes) is a leaf-level bucket; collisions past the trie depth are
// resolved with a small linear list.
type hnode struct {
	bitmap   uint32
	children []any // each is either *hnode or *mapEntry
}

// EmptyHashMap is the interned empty map.
var EmptyHashMap = &HashMap{}

func NewHashMap(pairs ...Object) *HashMap {
	m := EmptyHashMap
	for i := 0; i+1 < len(pairs); i += 2 {
		m = m.Assoc(pairs[i], pairs[i+1])
	}
	return m
}

func (m *HashMap) Kind() Kind { return KindHashMap }
func (m *HashMap) Count() int { return m.cnt }

func (m *HashMap) Equal(other Object) bool {
	o, ok := other.(*HashMap)
	if !ok || m.cnt != o.cnt {
		return false
	}
	eq := true
	m.Range(func(k, v Object) bool {
		ov, found := o.Get(k)
		if !found || !ov.Equal(v) {
			eq = false
			return false
		}
		return true
	})
	return eq
}

func (m *HashMap) Hash() uint64 {
	var h uint64
	m.Range(func(k, v Object) bool {
		h += (k.Hash() * 31) ^ v.Hash()
		return true
	})
	return h
}

func (m *HashMap) String() string {
	out := "{"
	first := true
	m.Range(func(k, v Object) bool {
		if !first {
			out += ", "
		}
		first = false
		out += k.String() + " " + v.String()
		return true
	})
	return out + "}"
}

func bitpos(hash uint64, shift uint) uint32 {
	return 1 << ((hash >> shift) & nodeMask)
}

func popcount(bitmap uint32, pos uint32) int {
	return mbits.OnesCount32(bitmap & (pos - 1))
}

// Get looks up key, returning (value, true) if present.
func (m *HashMap) Get(key Object) (Object, bool) {
	if m.root == nil {
		return nil, false
	}
	return getNode(m.root, key.Hash(), 0, key)
}

func getNode(n *hnode, hash uint64, shift uint, key Object) (Object, bool) {
	pos := bitpos(hash, shift)
	if n.bitmap&pos == 0 {
		return nil, false
	}
	idx := popcount(n.bitmap, pos)
	switch child := n.children[idx].(type) {
	case *hnode:
		return getNode(child, hash, shift+bits, key)
	case *mapEntry:
		if child.key.Equal(key) {
			return child.val, true
		}
		return nil, false
	}
	return nil, false
}

// Assoc returns a new HashMap with key bound to val.
func (m *HashMap) Assoc(key, val Object) *HashMap {
	root := m.root
	if root == nil {
		root = &hnode{}
	}
	newRoot, grew := assocNodeMap(root, key.Hash(), 0, key, val)
	cnt := m.cnt
	if grew {
		cnt++
	}
	return &HashMap{cnt: cnt, root: newRoot}
}

func assocNodeMap(n *hnode, hash uint64, shift uint, key, val Object) (*hnode, bool) {
	pos := bitpos(hash, shift)
	idx := popcount(n.bitmap, pos)

	if n.bitmap&pos == 0 {
		// Empty slot: insert a new leaf entry.
		children := make([]any, len(n.children)+1)
		copy(children, n.children[:idx])
		children[idx] = &mapEntry{key: key, val: val}
		copy(children[idx+1:], n.children[idx:])
		return &hnode{bitmap: n.bitmap | pos, children: children}, true
	}

	children := make([]any, len(n.children))
	copy(children, n.children)
	switch existing := n.children[idx].(type) {
	case *hnode:
		child, grew := assocNodeMap(existing, hash, shift+bits, key, val)
		children[idx] = child
		return &hnode{bitmap: n.bitmap, children: children}, grew
	case *mapEntry:
		if existing.key.Equal(key) {
			children[idx] = &mapEntry{key: key, val: val}
			return &hnode{bitmap: n.bitmap, children: children}, false
		}
		// Collision: push both entries one level deeper.
		sub := &hnode{}
		sub, _ = assocNodeMap(sub, existing.key.Hash(), shift+bits, existing.key, existing.val)
		sub, _ = assocNodeMap(sub, hash, shift+bits, key, val)
		children[idx] = sub
		return &hnode{bitmap: n.bitmap, children: children}, true
	}
	return n, false
}

// Dissoc returns a new HashMap with key removed (a no-op, structure-sharing
// the receiver, if key is absent).
func (m *HashMap) Dissoc(key Object) *HashMap {
	if m.root == nil {
		return m
	}
	newRoot, removed := dissocNode(m.root, key.Hash(), 0, key)
	if !removed {
		return m
	}
	return &HashMap{cnt: m.cnt - 1, root: newRoot}
}

func dissocNode(n *hnode, hash uint64, shift uint, key Object) (*hnode, bool) {
	pos := bitpos(hash, shift)
	if n.bitmap&pos == 0 {
		return n, false
	}
	idx := popcount(n.bitmap, pos)
	switch existing := n.children[idx].(type) {
	case *mapEntry:
		if !existing.key.Equal(key) {
			return n, false
		}
		children := make([]any, len(n.children)-1)
		copy(children, n.children[:idx])
		copy(children[idx:], n.children[idx+1:])
		return &hnode{bitmap: n.bitmap &^ pos, children: children}, true
	case *hnode:
		child, removed := dissocNode(existing, hash, shift+bits, key)
		if !removed {
			return n, false
		}
		children := make([]any, len(n.children))
		copy(children, n.children)
		children[idx] = child
		return &hnode{bitmap: n.bitmap, children: children}, true
	}
	return n, false
}

// Range calls f for every (key, value) pair, stopping early if f returns
// false. Order is unspecified (trie traversal order).
func (m *HashMap) Range(f func(k, v Object) bool) {
	if m.root == nil {
		return
	}
	rangeNode(m.root, f)
}

func rangeNode(n *hnode, f func(k, v Object) bool) bool {
	for _, child := range n.children {
		switch c := child.(type) {
		case *mapEntry:
			if !f(c.key, c.val) {
				return false
			}
		case *hnode:
			if !rangeNode(c, f) {
				return false
			}
		}
	}
	return true
}

// Seq returns the lazy (key, value) pair sequence, each pair boxed as a
// 2-element Vector, matching the parent dialect's map-entry representation.
func (m *HashMap) Seq() Seq {
	var items []Object
	m.Range(func(k, v Object) bool {
		items = append(items, NewVector(k, v))
		return true
	})
	return NewSeq(items)
}
