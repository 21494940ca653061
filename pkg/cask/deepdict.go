package cask

import (
	"fmt"
	"slices"
	"strings"
)

// member is the contract DeepDict needs from the nodes it holds.
type member[T any] interface {
	Node
	setName(string)
	// nested returns the dictionary of the same kind one level below the
	// node: children for objects, sub-properties for properties. It is a
	// *DeepDict[T].
	nested() (any, error)
	// attachable reports whether the node may be given a new parent.
	attachable() error
	// removeFromParent drops the node from its current parent's dictionary.
	removeFromParent()
}

// owner is the node a DeepDict belongs to.
type owner interface {
	Node
	accept(child Node) error
}

// DeepDict maps names to the children or properties of one node. Keys may be
// slash-delimited paths that descend through existing entries.
type DeepDict[T member[T]] struct {
	owner owner
	items map[string]T
	order []string
}

func newDeepDict[T member[T]](o owner) *DeepDict[T] {
	return &DeepDict[T]{owner: o, items: make(map[string]T)}
}

// Len returns the number of entries at this level.
func (d *DeepDict[T]) Len() int { return len(d.items) }

// Has reports whether name is present at this level.
func (d *DeepDict[T]) Has(name string) bool {
	_, ok := d.items[name]
	return ok
}

// Names returns the entry names in insertion order.
func (d *DeepDict[T]) Names() []string { return slices.Clone(d.order) }

// Values returns the entries in insertion order.
func (d *DeepDict[T]) Values() []T {
	out := make([]T, 0, len(d.order))
	for _, name := range d.order {
		out = append(out, d.items[name])
	}
	return out
}

// Get returns the entry at path. Every segment must already exist.
func (d *DeepDict[T]) Get(path string) (T, error) {
	var zero T
	parent, name, err := d.resolve(path)
	if err != nil {
		return zero, err
	}
	v, ok := parent.items[name]
	if !ok {
		return zero, fmt.Errorf("%w: %q under %s", ErrNotFound, path, d.owner.Path())
	}
	return v, nil
}

// Set attaches v at path. Every segment but the last must already exist; v
// takes the last segment as its name and the node holding that level as its
// parent. An entry already bound to the name is detached, not modified.
func (d *DeepDict[T]) Set(path string, v T) error {
	parent, name, err := d.resolve(path)
	if err != nil {
		return err
	}
	return parent.put(name, v)
}

// Remove detaches the entry called name. Absent names are ignored.
func (d *DeepDict[T]) Remove(name string) {
	if v, ok := d.items[name]; ok {
		d.detach(name, v)
	}
}

// resolve walks every segment of path but the last and returns the
// dictionary holding the final segment.
func (d *DeepDict[T]) resolve(path string) (*DeepDict[T], string, error) {
	segs := strings.Split(path, "/")
	cur := d
	for i, seg := range segs[:len(segs)-1] {
		n, ok := cur.items[seg]
		if !ok {
			return nil, "", fmt.Errorf("%w: %q under %s", ErrNotFound, strings.Join(segs[:i+1], "/"), d.owner.Path())
		}
		nested, err := n.nested()
		if err != nil {
			return nil, "", err
		}
		next, ok := nested.(*DeepDict[T])
		if !ok {
			return nil, "", fmt.Errorf("%w: %s holds no entries of this kind", ErrStructure, n.Path())
		}
		cur = next
	}
	return cur, segs[len(segs)-1], nil
}

func (d *DeepDict[T]) put(name string, v T) error {
	if err := validName(name); err != nil {
		return err
	}
	if err := v.attachable(); err != nil {
		return err
	}
	if old, ok := d.items[name]; ok && old.ID() == v.ID() {
		return nil
	}
	a := d.owner.nodeArena()
	if v.nodeArena() == a && a.isAncestor(v.ID(), d.owner.ID()) {
		return fmt.Errorf("%w: %s cannot be placed below itself", ErrStructure, v.Path())
	}
	if err := d.owner.accept(v); err != nil {
		return err
	}

	if old, ok := d.items[name]; ok {
		d.detach(name, old)
	}
	v.removeFromParent()
	v.setName(name)
	d.items[name] = v
	d.order = append(d.order, name)
	a.link(d.owner, v)
	return nil
}

// insert adds a node loaded from a native handle, skipping validation.
func (d *DeepDict[T]) insert(v T) {
	name := v.Name()
	if _, ok := d.items[name]; !ok {
		d.order = append(d.order, name)
	}
	d.items[name] = v
	d.owner.nodeArena().link(d.owner, v)
}

// drop removes name without touching the node's arena.
func (d *DeepDict[T]) drop(name string) {
	if _, ok := d.items[name]; !ok {
		return
	}
	delete(d.items, name)
	if i := slices.Index(d.order, name); i >= 0 {
		d.order = slices.Delete(d.order, i, i+1)
	}
}

func (d *DeepDict[T]) detach(name string, v T) {
	d.drop(name)
	v.nodeArena().unlink(v)
}

// rename moves the entry under oldName to newName in place, detaching any
// entry already bound to newName.
func (d *DeepDict[T]) rename(oldName, newName string) error {
	if err := validName(newName); err != nil {
		return err
	}
	v, ok := d.items[oldName]
	if !ok {
		return fmt.Errorf("%w: %q under %s", ErrNotFound, oldName, d.owner.Path())
	}
	if oldName == newName {
		return nil
	}
	if existing, ok := d.items[newName]; ok {
		d.detach(newName, existing)
	}
	delete(d.items, oldName)
	d.order[slices.Index(d.order, oldName)] = newName
	d.items[newName] = v
	v.setName(newName)
	return nil
}

// nodes returns the entries as Nodes for arena bookkeeping.
func (d *DeepDict[T]) nodes() []Node {
	if d == nil {
		return nil
	}
	out := make([]Node, 0, len(d.order))
	for _, name := range d.order {
		out = append(out, d.items[name])
	}
	return out
}

func validName(name string) error {
	if name == "" || strings.Contains(name, "/") {
		return fmt.Errorf("%w: invalid name %q", ErrStructure, name)
	}
	return nil
}
