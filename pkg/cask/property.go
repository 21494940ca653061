package cask

import (
	"fmt"
	"reflect"
	"slices"

	"github.com/odvcencio/cask/pkg/native"
)

type propTag uint8

const (
	// propUntyped is a fresh property that holds neither values nor
	// sub-properties yet.
	propUntyped propTag = iota
	propSimple
	propCompound
)

// Property is one data slot of an object. A compound property holds named
// sub-properties and no values; a simple property holds one value per
// sample and no sub-properties.
type Property struct {
	id    ID
	arena *arena
	name  string
	meta  native.MetaData
	tag   propTag
	class *Class

	// tsIndex is the archive time sampling of the samples, -1 for the
	// archive default.
	tsIndex int

	reader   native.PropertyReader
	compound native.CompoundWriter
	simple   native.SimpleWriter

	props        *DeepDict[*Property]
	propsLoaded  bool
	values       []any
	valuesLoaded bool
}

func newProperty(name string, tag propTag) *Property {
	p := &Property{id: newID(), name: name, meta: make(native.MetaData), tag: tag, tsIndex: -1}
	p.arena = newArena(p)
	return p
}

// NewProperty returns a detached property that becomes simple on its first
// value or compound on its first sub-property.
func NewProperty(name string) *Property {
	return newProperty(name, propUntyped)
}

// NewCompoundProperty returns a detached compound property.
func NewCompoundProperty(name string) *Property {
	return newProperty(name, propCompound)
}

// NewPropertyOf returns a detached simple property whose values must belong
// to class.
func NewPropertyOf(name string, class *Class) *Property {
	p := newProperty(name, propSimple)
	p.class = class
	return p
}

// wrapProperty binds a property to a native read handle.
func wrapProperty(r native.PropertyReader) *Property {
	h := r.Header()
	tag := propSimple
	if h.Type == native.Compound {
		tag = propCompound
	}
	p := newProperty(h.Name, tag)
	p.meta = native.ParseMetaData(h.MetaData)
	p.tsIndex = int(h.TimeSamplingIndex)
	p.reader = r
	return p
}

func (p *Property) ID() ID { return p.id }
func (p *Property) Name() string { return p.name }
func (p *Property) nodeArena() *arena { return p.arena }
func (p *Property) setArena(a *arena) { p.arena = a }
func (p *Property) setName(name string) { p.name = name }
func (p *Property) attachable() error { return nil }
func (p *Property) MetaData() native.MetaData { return p.meta }

func (p *Property) owned() []Node { return p.props.nodes() }

func (p *Property) nested() (any, error) { return p.Properties() }

func (p *Property) accept(Node) error {
	switch p.tag {
	case propSimple:
		return fmt.Errorf("%w: %s holds values and cannot take sub-properties", ErrStructure, p.Path())
	case propUntyped:
		p.tag = propCompound
	}
	return nil
}

func (p *Property) removeFromParent() {
	parent, ok := p.arena.parentOf(p.id)
	if !ok {
		return
	}
	var d *DeepDict[*Property]
	switch n := parent.(type) {
	case *Object:
		d = n.props
	case *Property:
		d = n.props
	}
	if d == nil {
		return
	}
	if cur, ok := d.items[p.name]; ok && cur == p {
		d.drop(p.name)
	}
}

func (p *Property) release() {
	p.reader = nil
	p.compound = nil
	p.simple = nil
}

// Parent returns the object or compound property holding p, or nil.
func (p *Property) Parent() Node {
	parent, _ := p.arena.parentOf(p.id)
	return parent
}

// Object returns the object p ultimately belongs to, or nil.
func (p *Property) Object() *Object {
	for n := p.Parent(); n != nil; {
		switch v := n.(type) {
		case *Object:
			return v
		case *Property:
			n = v.Parent()
		default:
			return nil
		}
	}
	return nil
}

// Path returns the object path and the property path joined by ':'.
func (p *Property) Path() string {
	switch parent := p.Parent().(type) {
	case *Object:
		return parent.Path() + ":" + p.name
	case *Property:
		return parent.Path() + "/" + p.name
	}
	return p.name
}

// SetName renames p in place inside its parent.
func (p *Property) SetName(name string) error {
	if err := validName(name); err != nil {
		return err
	}
	switch parent := p.Parent().(type) {
	case *Object:
		return parent.props.rename(p.name, name)
	case *Property:
		return parent.props.rename(p.name, name)
	}
	p.name = name
	return nil
}

// IsCompound reports whether p holds sub-properties rather than values.
func (p *Property) IsCompound() bool { return p.tag == propCompound }

// TimeSamplingIndex returns the archive time sampling of p, -1 when it uses
// the archive default.
func (p *Property) TimeSamplingIndex() int { return p.tsIndex }

// SetTimeSamplingIndex selects the archive time sampling of p.
func (p *Property) SetTimeSamplingIndex(i int) { p.tsIndex = i }

// Class returns the value class of a simple property.
func (p *Property) Class() (*Class, error) {
	if p.class != nil {
		return p.class, nil
	}
	if p.tag == propCompound {
		return nil, fmt.Errorf("%w: %s is compound", ErrStructure, p.Path())
	}
	if p.reader == nil {
		return nil, fmt.Errorf("%w: %s has no values", ErrUnknownPropertyType, p.Path())
	}
	c, err := classForHeader(p.reader.Header())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", p.Path(), err)
	}
	p.class = c
	return c, nil
}

// Properties returns the sub-properties of p, reading them from the native
// handle on first access.
func (p *Property) Properties() (*DeepDict[*Property], error) {
	if p.arena.closed {
		return nil, ErrClosed
	}
	if p.props == nil {
		p.props = newDeepDict[*Property](p)
	}
	if p.propsLoaded || p.reader == nil || p.tag != propCompound {
		return p.props, nil
	}
	for i := 0; i < p.reader.NumProperties(); i++ {
		r, err := p.reader.Property(i)
		if err != nil {
			return nil, fmt.Errorf("properties of %s: %w", p.Path(), err)
		}
		if p.props.Has(r.Header().Name) {
			continue
		}
		p.props.insert(wrapProperty(r))
	}
	p.propsLoaded = true
	return p.props, nil
}

// AddProperty attaches child under its own name.
func (p *Property) AddProperty(child *Property) error {
	props, err := p.Properties()
	if err != nil {
		return err
	}
	return props.put(child.name, child)
}

func (p *Property) load() error {
	if p.arena.closed {
		return ErrClosed
	}
	if p.valuesLoaded || p.reader == nil || p.tag == propCompound {
		return nil
	}
	class, err := p.Class()
	if err != nil {
		return err
	}
	n := p.reader.NumSamples()
	values := make([]any, 0, n)
	for i := 0; i < n; i++ {
		v, err := p.readSample(class, i)
		if err != nil {
			values = append(values, &SampleError{Path: p.Path(), Index: i, Err: err})
			continue
		}
		values = append(values, v)
	}
	p.values = values
	p.valuesLoaded = true
	return nil
}

func (p *Property) readSample(class *Class, i int) (any, error) {
	flat, err := p.reader.Sample(i)
	if err != nil {
		return nil, err
	}
	return class.Decode(flat)
}

// Values returns every sample value in order. Samples that failed to read
// hold a *SampleError.
func (p *Property) Values() ([]any, error) {
	if err := p.load(); err != nil {
		return nil, err
	}
	return slices.Clone(p.values), nil
}

// NumSamples returns the number of samples without decoding them.
func (p *Property) NumSamples() int {
	if !p.valuesLoaded && p.reader != nil && p.tag != propCompound {
		return p.reader.NumSamples()
	}
	return len(p.values)
}

// GetValue returns the value at the located sample.
func (p *Property) GetValue(at Sample) (any, error) {
	if p.tag == propCompound {
		return nil, fmt.Errorf("%w: %s is compound", ErrStructure, p.Path())
	}
	if err := p.load(); err != nil {
		return nil, err
	}
	i := at.sampleIndex(p, len(p.values))
	if i < 0 || i >= len(p.values) {
		return nil, fmt.Errorf("%w: %v of %s with %d samples", ErrSampleIndex, at, p.Path(), len(p.values))
	}
	if se, ok := p.values[i].(*SampleError); ok {
		return nil, se
	}
	return p.values[i], nil
}

// SetValue stores v at the located sample. Locating the sample one past the
// last appends.
func (p *Property) SetValue(v any, at Sample) error {
	if p.tag == propCompound {
		return fmt.Errorf("%w: %s is compound and cannot hold values", ErrStructure, p.Path())
	}
	if err := p.load(); err != nil {
		return err
	}
	class := p.class
	if class == nil {
		c, err := classForValue(v)
		if err != nil {
			return fmt.Errorf("%s: %w", p.Path(), err)
		}
		class = c
	}
	if !class.match(v) {
		return fmt.Errorf("%w: %s holds %s, got %T", ErrValueType, p.Path(), class.Name, v)
	}
	i := at.sampleIndex(p, len(p.values)+1)
	if i < 0 || i > len(p.values) {
		return fmt.Errorf("%w: %v of %s with %d samples", ErrSampleIndex, at, p.Path(), len(p.values))
	}
	if i == len(p.values) {
		p.values = append(p.values, v)
	} else {
		p.values[i] = v
	}
	p.class = class
	p.tag = propSimple
	return nil
}

// AppendValue adds v as the last sample.
func (p *Property) AppendValue(v any) error {
	if err := p.load(); err != nil {
		return err
	}
	return p.SetValue(v, Index(len(p.values)))
}

// IsConstant reports whether every sample holds the same value.
func (p *Property) IsConstant() bool {
	if p.tag == propCompound {
		return true
	}
	if !p.valuesLoaded && p.reader != nil {
		return p.reader.IsConstant()
	}
	for _, v := range p.values[min(1, len(p.values)):] {
		if !reflect.DeepEqual(v, p.values[0]) {
			return false
		}
	}
	return true
}

func (p *Property) isAnimated() (bool, error) {
	if p.tag != propCompound {
		return !p.IsConstant(), nil
	}
	props, err := p.Properties()
	if err != nil {
		return false, err
	}
	for _, c := range props.Values() {
		animated, err := c.isAnimated()
		if err != nil || animated {
			return animated, err
		}
	}
	return false, nil
}

// hasValues reports whether p or any sub-property holds a sample.
func (p *Property) hasValues() bool {
	if p.tag != propCompound {
		return p.NumSamples() > 0
	}
	props, err := p.Properties()
	if err != nil {
		return false
	}
	return slices.ContainsFunc(props.Values(), (*Property).hasValues)
}

func (p *Property) fps() float64 {
	if a := p.arena.archive; a != nil {
		return a.fps
	}
	return DefaultFPS
}

// sampling returns the time sampling locators resolve against.
func (p *Property) sampling() native.TimeSampling {
	a := p.arena.archive
	if a == nil {
		ts, _ := defaultSampling(nil, DefaultFPS)
		return ts
	}
	if p.tsIndex >= 0 && p.tsIndex < len(a.timeSamplings) {
		return a.timeSamplings[p.tsIndex]
	}
	ts, _ := defaultSampling(a.timeSamplings, a.fps)
	return ts
}

// save creates the write handle of p under parent and pushes its samples.
// Failures go through s; only a strict policy stops the walk.
func (p *Property) save(s *saver, parent native.CompoundWriter) error {
	if p.tag == propCompound || (p.tag == propUntyped && p.reader == nil) {
		cw, err := parent.CreateCompound(p.name, p.meta.String())
		if err != nil {
			return s.fail(p.Path(), err)
		}
		p.compound = cw
		props, err := p.Properties()
		if err != nil {
			return s.fail(p.Path(), err)
		}
		for _, c := range props.Values() {
			if err := c.save(s, cw); err != nil {
				return err
			}
		}
		return nil
	}

	if err := p.load(); err != nil {
		return s.fail(p.Path(), err)
	}
	class, err := p.Class()
	if err != nil {
		return s.fail(p.Path(), err)
	}
	md := p.meta.Clone()
	if class.Interpretation != "" {
		md[native.KeyInterpretation] = class.Interpretation
	}
	sw, err := parent.CreateSimple(native.PropertyHeader{
		Name:              p.name,
		Type:              class.Type,
		DataType:          class.DataType,
		MetaData:          md.String(),
		TimeSamplingIndex: s.samplingIndex(p.tsIndex),
	})
	if err != nil {
		return s.fail(p.Path(), err)
	}
	p.simple = sw
	for i, v := range p.values {
		if se, ok := v.(*SampleError); ok {
			err = se
		} else {
			var flat any
			if flat, err = class.Encode(v); err == nil {
				err = sw.SetSample(flat)
			}
		}
		if err != nil {
			if err := s.fail(fmt.Sprintf("%s[%d]", p.Path(), i), err); err != nil {
				return err
			}
		}
	}
	return nil
}
