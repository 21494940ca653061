package cask

import (
	"fmt"

	"github.com/odvcencio/cask/pkg/native"
)

// TopName is the fixed name of the archive root.
const TopName = "ABC"

// Object is one node of the archive hierarchy. Objects read from disk wrap a
// native read handle and populate their children and properties on first
// access; objects built in memory start empty.
type Object struct {
	id    ID
	arena *arena
	kind  Kind
	name  string
	meta  native.MetaData

	reader native.ObjectReader
	writer native.ObjectWriter

	children       *DeepDict[*Object]
	childrenLoaded bool
	props          *DeepDict[*Property]
	propsLoaded    bool

	// view caches the typed schema view of the object.
	view any
}

func newObject(kind Kind, name string, md native.MetaData) *Object {
	o := &Object{id: newID(), kind: kind, name: name, meta: md}
	o.arena = newArena(o)
	return o
}

// NewKind returns a detached object of the given kind carrying the kind's
// schema metadata. Kinds outside the registry cannot be written.
func NewKind(kind Kind, name string) *Object {
	md := make(native.MetaData)
	if kind.valid() {
		md = schemaMetaData(kind)
	}
	return newObject(kind, name, md)
}

// NewObject returns a detached generic object.
func NewObject(name string) *Object { return NewKind(KindObject, name) }

func NewXform(name string) *Object { return NewKind(KindXform, name) }
func NewPolyMesh(name string) *Object { return NewKind(KindPolyMesh, name) }
func NewSubD(name string) *Object { return NewKind(KindSubD, name) }
func NewFaceSet(name string) *Object { return NewKind(KindFaceSet, name) }
func NewCurve(name string) *Object { return NewKind(KindCurve, name) }
func NewCamera(name string) *Object { return NewKind(KindCamera, name) }
func NewNuPatch(name string) *Object { return NewKind(KindNuPatch, name) }
func NewMaterial(name string) *Object { return NewKind(KindMaterial, name) }
func NewLight(name string) *Object { return NewKind(KindLight, name) }
func NewPoints(name string) *Object { return NewKind(KindPoints, name) }

// Wrap binds an object to a native read handle. The hierarchy root becomes
// Top; other nodes take the first kind whose schema their metadata declares,
// or stay generic.
func Wrap(r native.ObjectReader) *Object {
	md := native.ParseMetaData(r.MetaData())
	kind := KindTop
	if r.Parent() != nil {
		kind = kindOf(md)
	}
	o := newObject(kind, r.Name(), md)
	o.reader = r
	return o
}

func newTop() *Object {
	return newObject(KindTop, TopName, make(native.MetaData))
}

func (o *Object) ID() ID { return o.id }
func (o *Object) nodeArena() *arena { return o.arena }
func (o *Object) setArena(a *arena) { o.arena = a }
func (o *Object) setName(name string) { o.name = name }
func (o *Object) accept(Node) error { return nil }

func (o *Object) owned() []Node {
	return append(o.children.nodes(), o.props.nodes()...)
}

func (o *Object) nested() (any, error) { return o.Children() }

func (o *Object) attachable() error {
	if o.kind == KindTop {
		return ErrImmutableTop
	}
	return nil
}

func (o *Object) removeFromParent() {
	parent, ok := o.arena.parentOf(o.id)
	if !ok {
		return
	}
	if p, ok := parent.(*Object); ok && p.children != nil {
		if cur, ok := p.children.items[o.name]; ok && cur == o {
			p.children.drop(o.name)
		}
	}
}

func (o *Object) release() {
	o.reader = nil
	o.writer = nil
}

// Kind returns the schema kind of o.
func (o *Object) Kind() Kind { return o.kind }

// Type returns the name of the schema kind of o.
func (o *Object) Type() string { return o.kind.String() }

// Name returns the name of o within its parent.
func (o *Object) Name() string { return o.name }

// MetaData returns the metadata written with o. Changes are kept.
func (o *Object) MetaData() native.MetaData { return o.meta }

// Archive returns the archive o belongs to, or nil when detached.
func (o *Object) Archive() *Archive { return o.arena.archive }

// Path returns the absolute path of o, "/" for Top.
func (o *Object) Path() string {
	if o.kind == KindTop {
		return "/"
	}
	if parent, ok := o.arena.parentOf(o.id); ok {
		if pp := parent.Path(); pp != "/" {
			return pp + "/" + o.name
		}
		return "/" + o.name
	}
	if o.reader != nil {
		return o.reader.FullName()
	}
	return o.name
}

// SetName renames o in place inside its parent's children.
func (o *Object) SetName(name string) error {
	if o.kind == KindTop {
		return ErrImmutableTop
	}
	if err := validName(name); err != nil {
		return err
	}
	if parent, ok := o.arena.parentOf(o.id); ok {
		if p, ok := parent.(*Object); ok && p.children != nil {
			return p.children.rename(o.name, name)
		}
	}
	o.name = name
	return nil
}

// Parent returns the object holding o. An object wrapped on its own resolves
// its parent from the native handle the first time it is asked. Top has no
// parent object; its owner is Archive.
func (o *Object) Parent() *Object {
	if o.kind == KindTop {
		return nil
	}
	if parent, ok := o.arena.parentOf(o.id); ok {
		p, _ := parent.(*Object)
		return p
	}
	if o.reader == nil || o.reader.Parent() == nil {
		return nil
	}
	p := Wrap(o.reader.Parent())
	kids, err := p.Children()
	if err != nil {
		kids = p.children
	}
	if stale, ok := kids.items[o.name]; ok && stale != o {
		stale.arena.unlink(stale)
	}
	kids.insert(o)
	return p
}

// Children returns the child objects of o, reading them from the native
// handle on first access.
func (o *Object) Children() (*DeepDict[*Object], error) {
	if o.arena.closed {
		return nil, ErrClosed
	}
	if o.children == nil {
		o.children = newDeepDict[*Object](o)
	}
	if o.childrenLoaded || o.reader == nil {
		return o.children, nil
	}
	for i := 0; i < o.reader.NumChildren(); i++ {
		r, err := o.reader.Child(i)
		if err != nil {
			return nil, fmt.Errorf("children of %s: %w", o.Path(), err)
		}
		if o.children.Has(r.Name()) {
			continue
		}
		o.children.insert(Wrap(r))
	}
	o.childrenLoaded = true
	return o.children, nil
}

// Properties returns the top-level properties of o, reading them from the
// native handle on first access.
func (o *Object) Properties() (*DeepDict[*Property], error) {
	if o.arena.closed {
		return nil, ErrClosed
	}
	if o.props == nil {
		o.props = newDeepDict[*Property](o)
	}
	if o.propsLoaded || o.reader == nil {
		return o.props, nil
	}
	if top := o.reader.Properties(); top != nil {
		for i := 0; i < top.NumProperties(); i++ {
			r, err := top.Property(i)
			if err != nil {
				return nil, fmt.Errorf("properties of %s: %w", o.Path(), err)
			}
			if o.props.Has(r.Header().Name) {
				continue
			}
			o.props.insert(wrapProperty(r))
		}
	}
	o.propsLoaded = true
	return o.props, nil
}

// Child returns the descendant at a path relative to o.
func (o *Object) Child(path string) (*Object, error) {
	kids, err := o.Children()
	if err != nil {
		return nil, err
	}
	return kids.Get(path)
}

// Property returns the property at a path relative to o's properties.
func (o *Object) Property(path string) (*Property, error) {
	props, err := o.Properties()
	if err != nil {
		return nil, err
	}
	return props.Get(path)
}

// AddChild attaches child under its own name.
func (o *Object) AddChild(child *Object) error {
	kids, err := o.Children()
	if err != nil {
		return err
	}
	return kids.put(child.name, child)
}

// AddProperty attaches p under its own name.
func (o *Object) AddProperty(p *Property) error {
	props, err := o.Properties()
	if err != nil {
		return err
	}
	return props.put(p.name, p)
}

// IsAnimated reports whether any property of o, searched through compound
// properties, changes across samples.
func (o *Object) IsAnimated() (bool, error) {
	props, err := o.Properties()
	if err != nil {
		return false, err
	}
	for _, p := range props.Values() {
		animated, err := p.isAnimated()
		if err != nil || animated {
			return animated, err
		}
	}
	return false, nil
}

// writable reports whether o can be written with its kind.
func (o *Object) writable() error {
	if !o.kind.valid() || o.kind == KindTop {
		return fmt.Errorf("%w: %s has kind %s", ErrUnresolvedWriteClass, o.Path(), o.kind)
	}
	if schema := o.meta[native.KeySchema]; o.kind == KindObject && o.reader == nil && schema != "" {
		return fmt.Errorf("%w: %s declares schema %q", ErrUnresolvedWriteClass, o.Path(), schema)
	}
	return nil
}

// save creates the write handle of o under its parent's and saves its
// properties. Children are saved by the caller once o has a handle.
func (o *Object) save(s *saver) error {
	if o.kind == KindTop {
		o.writer = s.w.Top()
	} else {
		if err := o.writable(); err != nil {
			return s.fail(o.Path(), err)
		}
		parent := o.Parent()
		if parent == nil || parent.writer == nil {
			return s.fail(o.Path(), ErrParentNotSaved)
		}
		w, err := parent.writer.CreateChild(o.name, o.meta.String())
		if err != nil {
			return s.fail(o.Path(), err)
		}
		o.writer = w
		if o.reader == nil && !o.hasSchemaSamples() {
			if err := applyDefaultSample(o); err != nil {
				if err := s.fail(o.Path(), err); err != nil {
					return err
				}
			}
		}
	}

	props, err := o.Properties()
	if err != nil {
		return s.fail(o.Path(), err)
	}
	for _, p := range props.Values() {
		if err := p.save(s, o.writer.Properties()); err != nil {
			return err
		}
	}
	return nil
}

// hasSchemaSamples reports whether the schema compound of o holds any sample.
func (o *Object) hasSchemaSamples() bool {
	name := o.kind.compound()
	if name == "" || o.props == nil {
		return false
	}
	c, ok := o.props.items[name]
	return ok && c.hasValues()
}
