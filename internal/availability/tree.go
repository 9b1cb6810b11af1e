package availability

import (
	"time"

	"amenityhub/internal/models"
)

// Tree is an AVL interval tree keyed by (start, id). Every node carries the
// largest end in its subtree, which lets overlap queries skip whole branches.
type Tree struct {
	root *node
	byID map[string]models.Interval
}

type node struct {
	id     string
	iv     models.Interval
	maxEnd time.Time
	height int
	left   *node
	right  *node
}

func NewTree() *Tree {
	return &Tree{byID: make(map[string]models.Interval)}
}

func (t *Tree) Len() int {
	return len(t.byID)
}

// Get returns the interval stored for id.
func (t *Tree) Get(id string) (models.Interval, bool) {
	iv, ok := t.byID[id]
	return iv, ok
}

// Insert stores iv under id, replacing any previous interval for the same id.
func (t *Tree) Insert(id string, iv models.Interval) {
	if old, ok := t.byID[id]; ok {
		t.root = remove(t.root, old.Start, id)
	}
	t.root = insert(t.root, &node{id: id, iv: iv, maxEnd: iv.End, height: 1})
	t.byID[id] = iv
}

// Remove deletes id and reports whether it was present.
func (t *Tree) Remove(id string) bool {
	iv, ok := t.byID[id]
	if !ok {
		return false
	}
	t.root = remove(t.root, iv.Start, id)
	delete(t.byID, id)
	return true
}

// Overlapping returns the ids of all intervals overlapping iv ordered by start.
func (t *Tree) Overlapping(iv models.Interval) []string {
	var out []string
	collect(t.root, iv, &out)
	return out
}

// EndedBy returns ids whose interval ended at or before cutoff.
func (t *Tree) EndedBy(cutoff time.Time) []string {
	var out []string
	var walk func(n *node)
	walk = func(n *node) {
		if n == nil {
			return
		}
		walk(n.left)
		if n.iv.Start.After(cutoff) {
			return
		}
		if !n.iv.End.After(cutoff) {
			out = append(out, n.id)
		}
		walk(n.right)
	}
	walk(t.root)
	return out
}

func collect(n *node, iv models.Interval, out *[]string) {
	if n == nil || !n.maxEnd.After(iv.Start) {
		return
	}
	collect(n.left, iv, out)
	if !n.iv.Start.Before(iv.End) {
		// this node and its right subtree start at or after iv.End
		return
	}
	if n.iv.End.After(iv.Start) {
		*out = append(*out, n.id)
	}
	collect(n.right, iv, out)
}

func less(aStart time.Time, aID string, bStart time.Time, bID string) bool {
	if aStart.Equal(bStart) {
		return aID < bID
	}
	return aStart.Before(bStart)
}

func insert(n, x *node) *node {
	if n == nil {
		return x
	}
	if less(x.iv.Start, x.id, n.iv.Start, n.id) {
		n.left = insert(n.left, x)
	} else {
		n.right = insert(n.right, x)
	}
	return rebalance(n)
}

func remove(n *node, start time.Time, id string) *node {
	if n == nil {
		return nil
	}
	switch {
	case n.id == id:
		if n.left == nil {
			return n.right
		}
		if n.right == nil {
			return n.left
		}
		succ := n.right
		for succ.left != nil {
			succ = succ.left
		}
		n.right = remove(n.right, succ.iv.Start, succ.id)
		succ.left, succ.right = n.left, n.right
		return rebalance(succ)
	case less(start, id, n.iv.Start, n.id):
		n.left = remove(n.left, start, id)
	default:
		n.right = remove(n.right, start, id)
	}
	return rebalance(n)
}

func height(n *node) int {
	if n == nil {
		return 0
	}
	return n.height
}

func update(n *node) {
	n.height = 1 + max(height(n.left), height(n.right))
	n.maxEnd = n.iv.End
	if n.left != nil && n.left.maxEnd.After(n.maxEnd) {
		n.maxEnd = n.left.maxEnd
	}
	if n.right != nil && n.right.maxEnd.After(n.maxEnd) {
		n.maxEnd = n.right.maxEnd
	}
}

func rotateRight(n *node) *node {
	l := n.left
	n.left = l.right
	l.right = n
	update(n)
	update(l)
	return l
}

func rotateLeft(n *node) *node {
	r := n.right
	n.right = r.left
	r.left = n
	update(n)
	update(r)
	return r
}

func rebalance(n *node) *node {
	update(n)
	switch balance := height(n.left) - height(n.right); {
	case balance > 1:
		if height(n.left.left) < height(n.left.right) {
			n.left = rotateLeft(n.left)
		}
		return rotateRight(n)
	case balance < -1:
		if height(n.right.right) < height(n.right.left) {
			n.right = rotateRight(n.right)
		}
		return rotateLeft(n)
	}
	return n
}
