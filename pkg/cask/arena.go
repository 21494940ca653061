package cask

import "sync/atomic"

// ID identifies an Object or Property for the lifetime of the process.
type ID uint64

var lastID atomic.Uint64

func newID() ID { return ID(lastID.Add(1)) }

// Node is implemented by *Object and *Property.
type Node interface {
	ID() ID
	Name() string
	Path() string
	nodeArena() *arena
	setArena(*arena)
	// owned lists the already materialized nodes directly below this one.
	owned() []Node
	// release drops the node's native handles.
	release()
}

// arena resolves parent links by ID for every node of one tree. Nodes hold
// the ID of their parent instead of a pointer back up the tree; a detached
// node has an arena of its own until it is attached somewhere.
type arena struct {
	nodes   map[ID]Node
	parents map[ID]ID
	archive *Archive
	closed  bool
}

func newArena(n Node) *arena {
	a := &arena{nodes: make(map[ID]Node), parents: make(map[ID]ID)}
	if n != nil {
		a.nodes[n.ID()] = n
	}
	return a
}

func (a *arena) parentOf(id ID) (Node, bool) {
	pid, ok := a.parents[id]
	if !ok {
		return nil, false
	}
	p, ok := a.nodes[pid]
	return p, ok
}

// isAncestor reports whether anc is id or one of its ancestors.
func (a *arena) isAncestor(anc, id ID) bool {
	for {
		if id == anc {
			return true
		}
		pid, ok := a.parents[id]
		if !ok {
			return false
		}
		id = pid
	}
}

// link records child under parent, pulling child's subtree into a.
func (a *arena) link(parent, child Node) {
	if from := child.nodeArena(); from != a {
		a.absorb(child, from)
	}
	a.parents[child.ID()] = parent.ID()
}

// absorb moves n and its materialized subtree from another arena into a.
func (a *arena) absorb(n Node, from *arena) {
	a.nodes[n.ID()] = n
	if from != nil && from != a {
		delete(from.nodes, n.ID())
		delete(from.parents, n.ID())
	}
	n.setArena(a)
	for _, c := range n.owned() {
		a.absorb(c, from)
		a.parents[c.ID()] = n.ID()
	}
}

// unlink detaches n from its parent and gives its subtree a fresh arena.
func (a *arena) unlink(n Node) {
	delete(a.parents, n.ID())
	fresh := newArena(nil)
	fresh.absorb(n, a)
}

func (a *arena) clear() {
	clear(a.nodes)
	clear(a.parents)
	a.archive = nil
	a.closed = true
}
