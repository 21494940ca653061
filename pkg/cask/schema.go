package cask

import (
	"errors"
	"fmt"
	"math"
)

// schemaView reads and writes the properties under one schema compound.
type schemaView struct {
	o *Object
	// path is the compound path relative to the object's properties.
	path []string
}

// compound returns the schema compound. With create set, missing levels
// are added; otherwise a missing level is ErrNotFound.
func (v schemaView) compound(create bool) (*Property, error) {
	props, err := v.o.Properties()
	if err != nil {
		return nil, err
	}
	var c *Property
	for _, name := range v.path {
		if create && !props.Has(name) {
			if err := props.put(name, NewCompoundProperty(name)); err != nil {
				return nil, err
			}
		}
		if c, err = props.Get(name); err != nil {
			return nil, err
		}
		if props, err = c.Properties(); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Schema returns the compound property holding the schema samples.
func (v schemaView) Schema() (*Property, error) { return v.compound(true) }

// Object returns the viewed object.
func (v schemaView) Object() *Object { return v.o }

// lookup returns the named schema property without creating anything.
func (v schemaView) lookup(name string) (*Property, error) {
	c, err := v.compound(false)
	if err != nil {
		return nil, err
	}
	props, err := c.Properties()
	if err != nil {
		return nil, err
	}
	return props.Get(name)
}

// prop returns the named schema property, adding an empty one if needed.
func (v schemaView) prop(name string) (*Property, error) {
	c, err := v.compound(true)
	if err != nil {
		return nil, err
	}
	props, err := c.Properties()
	if err != nil {
		return nil, err
	}
	if !props.Has(name) {
		if err := props.put(name, NewProperty(name)); err != nil {
			return nil, err
		}
	}
	return props.Get(name)
}

func (v schemaView) setSimple(name string, val any, at Sample) error {
	p, err := v.prop(name)
	if err != nil {
		return err
	}
	return p.SetValue(val, at)
}

func getAs[T any](v schemaView, name string, at Sample) (T, error) {
	var zero T
	p, err := v.lookup(name)
	if err != nil {
		return zero, err
	}
	val, err := p.GetValue(at)
	if err != nil {
		return zero, err
	}
	out, ok := val.(T)
	if !ok {
		return zero, fmt.Errorf("%w: %s holds %T, want %T", ErrValueType, p.Path(), val, zero)
	}
	return out, nil
}

// XformView accesses the local transform of an Xform.
type XformView struct{ schemaView }

// Matrix returns the local matrix at the located sample.
func (x *XformView) Matrix(at Sample) (M44d, error) {
	return getAs[M44d](x.schemaView, ".vals", at)
}

// SetMatrix stores the local matrix at the located sample.
func (x *XformView) SetMatrix(m M44d, at Sample) error {
	return x.setSimple(".vals", m, at)
}

// Inherits reports whether the transform composes with its parent's.
// Transforms without the flag inherit.
func (x *XformView) Inherits() (bool, error) {
	p, err := x.lookup(".inherits")
	if errors.Is(err, ErrNotFound) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	if p.NumSamples() == 0 {
		return true, nil
	}
	return getAs[bool](x.schemaView, ".inherits", Index(0))
}

// SetInherits stores the inherit flag.
func (x *XformView) SetInherits(inherits bool) error {
	return x.setSimple(".inherits", inherits, Index(0))
}

// GlobalMatrix returns the local matrix composed with the matrix of every
// Xform ancestor up to Top. A non-inheriting transform ends the chain. It is
// the identity when no transform is found.
func (x *XformView) GlobalMatrix(at Sample) (M44d, error) {
	return globalMatrix(x.o, at)
}

func globalMatrix(o *Object, at Sample) (M44d, error) {
	m := Identity44d()
	for cur := o; cur != nil && cur.kind != KindTop; cur = cur.Parent() {
		if cur.kind != KindXform {
			continue
		}
		x, err := cur.Xform()
		if err != nil {
			return m, err
		}
		local, err := x.localAt(at)
		if err != nil {
			return m, err
		}
		m = m.Mul(local)
		inherits, err := x.Inherits()
		if err != nil {
			return m, err
		}
		if !inherits {
			break
		}
	}
	return m, nil
}

// localAt returns the local matrix, or the identity when none was stored.
func (x *XformView) localAt(at Sample) (M44d, error) {
	p, err := x.lookup(".vals")
	if errors.Is(err, ErrNotFound) {
		return Identity44d(), nil
	}
	if err != nil {
		return M44d{}, err
	}
	if p.NumSamples() == 0 {
		return Identity44d(), nil
	}
	return x.Matrix(at)
}

// GeomView accesses the positions shared by geometric kinds.
type GeomView struct{ schemaView }

// Positions returns the points at the located sample.
func (g *GeomView) Positions(at Sample) ([]P3f, error) {
	return getAs[[]P3f](g.schemaView, "P", at)
}

// SetPositions stores the points at the located sample.
func (g *GeomView) SetPositions(pts []P3f, at Sample) error {
	if pts == nil {
		pts = []P3f{}
	}
	return g.setSimple("P", pts, at)
}

// SelfBounds returns the bounding box of the positions at the located
// sample. An empty point set yields a zero box.
func (g *GeomView) SelfBounds(at Sample) (Box3d, error) {
	pts, err := g.Positions(at)
	if err != nil || len(pts) == 0 {
		return Box3d{}, err
	}
	b := Box3d{Min: V3d{math.Inf(1), math.Inf(1), math.Inf(1)}, Max: V3d{math.Inf(-1), math.Inf(-1), math.Inf(-1)}}
	for _, p := range pts {
		for i := range 3 {
			b.Min[i] = math.Min(b.Min[i], float64(p[i]))
			b.Max[i] = math.Max(b.Max[i], float64(p[i]))
		}
	}
	return b, nil
}

// MeshView adds the face topology of PolyMesh and SubD.
type MeshView struct{ GeomView }

// FaceIndices returns the vertex indices of every face.
func (m *MeshView) FaceIndices(at Sample) ([]int32, error) {
	return getAs[[]int32](m.schemaView, ".faceIndices", at)
}

// SetFaceIndices stores the vertex indices of every face.
func (m *MeshView) SetFaceIndices(idx []int32, at Sample) error {
	if idx == nil {
		idx = []int32{}
	}
	return m.setSimple(".faceIndices", idx, at)
}

// FaceCounts returns the vertex count of every face.
func (m *MeshView) FaceCounts(at Sample) ([]int32, error) {
	return getAs[[]int32](m.schemaView, ".faceCounts", at)
}

// SetFaceCounts stores the vertex count of every face.
func (m *MeshView) SetFaceCounts(counts []int32, at Sample) error {
	if counts == nil {
		counts = []int32{}
	}
	return m.setSimple(".faceCounts", counts, at)
}

// FaceSetView accesses the face list of a FaceSet.
type FaceSetView struct{ schemaView }

// Faces returns the indices of the member faces.
func (f *FaceSetView) Faces(at Sample) ([]int32, error) {
	return getAs[[]int32](f.schemaView, ".faces", at)
}

// SetFaces stores the indices of the member faces.
func (f *FaceSetView) SetFaces(faces []int32, at Sample) error {
	if faces == nil {
		faces = []int32{}
	}
	return f.setSimple(".faces", faces, at)
}

// CameraSample is the packed lens and film description of a camera.
type CameraSample struct {
	FocalLength          float64
	HorizontalAperture   float64
	HorizontalFilmOffset float64
	VerticalAperture     float64
	VerticalFilmOffset   float64
	LensSqueezeRatio     float64
	OverscanLeft         float64
	OverscanRight        float64
	OverscanTop          float64
	OverscanBottom       float64
	FStop                float64
	FocusDistance        float64
	ShutterOpen          float64
	ShutterClose         float64
	NearClippingPlane    float64
	FarClippingPlane     float64
}

const cameraCoreSize = 16

func (c CameraSample) pack() []float64 {
	return []float64{
		c.FocalLength, c.HorizontalAperture, c.HorizontalFilmOffset, c.VerticalAperture,
		c.VerticalFilmOffset, c.LensSqueezeRatio, c.OverscanLeft, c.OverscanRight,
		c.OverscanTop, c.OverscanBottom, c.FStop, c.FocusDistance,
		c.ShutterOpen, c.ShutterClose, c.NearClippingPlane, c.FarClippingPlane,
	}
}

func unpackCameraSample(v []float64) CameraSample {
	return CameraSample{
		FocalLength: v[0], HorizontalAperture: v[1], HorizontalFilmOffset: v[2], VerticalAperture: v[3],
		VerticalFilmOffset: v[4], LensSqueezeRatio: v[5], OverscanLeft: v[6], OverscanRight: v[7],
		OverscanTop: v[8], OverscanBottom: v[9], FStop: v[10], FocusDistance: v[11],
		ShutterOpen: v[12], ShutterClose: v[13], NearClippingPlane: v[14], FarClippingPlane: v[15],
	}
}

// FieldOfView returns the horizontal field of view in degrees. Apertures are
// in centimeters and the focal length in millimeters.
func (c CameraSample) FieldOfView() float64 {
	return 2 * math.Atan(c.HorizontalAperture*10/(2*c.FocalLength)) * 180 / math.Pi
}

// CameraView accesses the core sample of a Camera, or of the camera
// embedded in a Light.
type CameraView struct{ schemaView }

// Core returns the camera sample at the located sample.
func (c *CameraView) Core(at Sample) (CameraSample, error) {
	v, err := getAs[[]float64](c.schemaView, ".core", at)
	if err != nil {
		return CameraSample{}, err
	}
	if len(v) != cameraCoreSize {
		return CameraSample{}, fmt.Errorf("%w: camera core has %d values, want %d", ErrValueType, len(v), cameraCoreSize)
	}
	return unpackCameraSample(v), nil
}

// SetCore stores the camera sample at the located sample.
func (c *CameraView) SetCore(s CameraSample, at Sample) error {
	return c.setSimple(".core", s.pack(), at)
}

// MaterialView accesses the shader parameters of a Material.
type MaterialView struct{ schemaView }

// Param returns a shader parameter at the located sample.
func (m *MaterialView) Param(name string, at Sample) (any, error) {
	c, err := m.lookup(".params")
	if err != nil {
		return nil, err
	}
	props, err := c.Properties()
	if err != nil {
		return nil, err
	}
	p, err := props.Get(name)
	if err != nil {
		return nil, err
	}
	return p.GetValue(at)
}

// SetParam stores a shader parameter at the located sample.
func (m *MaterialView) SetParam(name string, v any, at Sample) error {
	p, err := m.param(name)
	if err != nil {
		return err
	}
	return p.SetValue(v, at)
}

// Params lists the shader parameter names.
func (m *MaterialView) Params() ([]string, error) {
	c, err := m.lookup(".params")
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if !c.IsCompound() {
		return nil, nil
	}
	props, err := c.Properties()
	if err != nil {
		return nil, err
	}
	return props.Names(), nil
}

func (m *MaterialView) param(name string) (*Property, error) {
	c, err := m.prop(".params")
	if err != nil {
		return nil, err
	}
	props, err := c.Properties()
	if err != nil {
		return nil, err
	}
	if !props.Has(name) {
		if err := c.AddProperty(NewProperty(name)); err != nil {
			return nil, err
		}
	}
	return props.Get(name)
}

func (o *Object) mismatch(want string) error {
	return fmt.Errorf("%w: %s is %s, not %s", ErrKindMismatch, o.Path(), o.kind, want)
}

func (o *Object) schemaCompound() (*Property, error) {
	name := o.kind.compound()
	if name == "" {
		return nil, o.mismatch("a schema kind")
	}
	return schemaView{o: o, path: []string{name}}.compound(true)
}

// Schema returns the compound property holding the samples of o's kind.
func (o *Object) Schema() (*Property, error) { return o.schemaCompound() }

// Xform returns the transform view of an Xform.
func (o *Object) Xform() (*XformView, error) {
	if o.kind != KindXform {
		return nil, o.mismatch("Xform")
	}
	if v, ok := o.view.(*XformView); ok {
		return v, nil
	}
	v := &XformView{schemaView{o: o, path: []string{".xform"}}}
	o.view = v
	return v, nil
}

// Mesh returns the mesh view of a PolyMesh or SubD.
func (o *Object) Mesh() (*MeshView, error) {
	if o.kind != KindPolyMesh && o.kind != KindSubD {
		return nil, o.mismatch("PolyMesh or SubD")
	}
	if v, ok := o.view.(*MeshView); ok {
		return v, nil
	}
	v := &MeshView{GeomView{schemaView{o: o, path: []string{".geom"}}}}
	o.view = v
	return v, nil
}

// Geom returns the positions view of any geometric kind.
func (o *Object) Geom() (*GeomView, error) {
	if !o.kind.geometric() {
		return nil, o.mismatch("geometric")
	}
	if o.kind == KindPolyMesh || o.kind == KindSubD {
		m, err := o.Mesh()
		if err != nil {
			return nil, err
		}
		return &m.GeomView, nil
	}
	if v, ok := o.view.(*GeomView); ok {
		return v, nil
	}
	v := &GeomView{schemaView{o: o, path: []string{".geom"}}}
	o.view = v
	return v, nil
}

// FaceSet returns the face list view of a FaceSet.
func (o *Object) FaceSet() (*FaceSetView, error) {
	if o.kind != KindFaceSet {
		return nil, o.mismatch("FaceSet")
	}
	if v, ok := o.view.(*FaceSetView); ok {
		return v, nil
	}
	v := &FaceSetView{schemaView{o: o, path: []string{".faceset"}}}
	o.view = v
	return v, nil
}

// Camera returns the camera view of a Camera.
func (o *Object) Camera() (*CameraView, error) {
	if o.kind != KindCamera {
		return nil, o.mismatch("Camera")
	}
	if v, ok := o.view.(*CameraView); ok {
		return v, nil
	}
	v := &CameraView{schemaView{o: o, path: []string{".camera"}}}
	o.view = v
	return v, nil
}

// Light returns the view of the camera embedded in a Light.
func (o *Object) Light() (*CameraView, error) {
	if o.kind != KindLight {
		return nil, o.mismatch("Light")
	}
	if v, ok := o.view.(*CameraView); ok {
		return v, nil
	}
	v := &CameraView{schemaView{o: o, path: []string{".light", ".camera"}}}
	o.view = v
	return v, nil
}

// Material returns the shader parameter view of a Material.
func (o *Object) Material() (*MaterialView, error) {
	if o.kind != KindMaterial {
		return nil, o.mismatch("Material")
	}
	if v, ok := o.view.(*MaterialView); ok {
		return v, nil
	}
	v := &MaterialView{schemaView{o: o, path: []string{".material"}}}
	o.view = v
	return v, nil
}

// GlobalMatrix returns the world matrix of o: the local matrices of o and
// its Xform ancestors composed up to Top.
func (o *Object) GlobalMatrix(at Sample) (M44d, error) { return globalMatrix(o, at) }
