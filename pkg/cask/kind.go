package cask

import (
	"fmt"

	"github.com/odvcencio/cask/pkg/native"
)

// Kind is the closed set of object schema kinds.
type Kind uint8

const (
	KindObject Kind = iota
	KindTop
	KindXform
	KindPolyMesh
	KindSubD
	KindFaceSet
	KindCurve
	KindCamera
	KindNuPatch
	KindMaterial
	KindLight
	KindPoints
)

// kindInfo describes how a kind is recognized and written.
type kindInfo struct {
	name string
	// schema is the identifier stored under the "schema" metadata key.
	schema string
	// compound is the property holding the schema's samples.
	compound string
	// baseType is the schemaBaseType metadata of geometric kinds.
	baseType string
}

const geomBaseType = "AbcGeom_GeomBase_v1"

var kindRegistry = [...]kindInfo{
	KindObject:   {name: "Object"},
	KindTop:      {name: "Top"},
	KindXform:    {name: "Xform", schema: "AbcGeom_Xform_v3", compound: ".xform"},
	KindPolyMesh: {name: "PolyMesh", schema: "AbcGeom_PolyMesh_v1", compound: ".geom", baseType: geomBaseType},
	KindSubD:     {name: "SubD", schema: "AbcGeom_SubD_v1", compound: ".geom", baseType: geomBaseType},
	KindFaceSet:  {name: "FaceSet", schema: "AbcGeom_FaceSet_v1", compound: ".faceset", baseType: geomBaseType},
	KindCurve:    {name: "Curve", schema: "AbcGeom_Curve_v2", compound: ".geom", baseType: geomBaseType},
	KindCamera:   {name: "Camera", schema: "AbcGeom_Camera_v1", compound: ".camera"},
	KindNuPatch:  {name: "NuPatch", schema: "AbcGeom_NuPatch_v2", compound: ".geom", baseType: geomBaseType},
	KindMaterial: {name: "Material", schema: "AbcMaterial_Material_v1", compound: ".material"},
	KindLight:    {name: "Light", schema: "AbcGeom_Light_v1", compound: ".light"},
	KindPoints:   {name: "Points", schema: "AbcGeom_Points_v1", compound: ".geom", baseType: geomBaseType},
}

func (k Kind) String() string {
	if int(k) < len(kindRegistry) {
		return kindRegistry[k].name
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// Schema returns the schema identifier of k, empty for Object and Top.
func (k Kind) Schema() string {
	if int(k) < len(kindRegistry) {
		return kindRegistry[k].schema
	}
	return ""
}

func (k Kind) valid() bool { return int(k) < len(kindRegistry) }

func (k Kind) compound() string { return kindRegistry[k].compound }

// geometric reports whether k carries positions under .geom.
func (k Kind) geometric() bool {
	switch k {
	case KindPolyMesh, KindSubD, KindCurve, KindNuPatch, KindPoints:
		return true
	}
	return false
}

// ParseKind returns the kind named name.
func ParseKind(name string) (Kind, error) {
	for k, info := range kindRegistry {
		if info.name == name {
			return Kind(k), nil
		}
	}
	return 0, fmt.Errorf("%w: no kind named %q", ErrNotFound, name)
}

// kindOf returns the first registered kind whose schema md declares, or
// KindObject.
func kindOf(md native.MetaData) Kind {
	for k, info := range kindRegistry {
		if md.Matches(info.schema) {
			return Kind(k)
		}
	}
	return KindObject
}

// schemaMetaData is the metadata of a freshly constructed object of kind k.
func schemaMetaData(k Kind) native.MetaData {
	md := make(native.MetaData)
	info := kindRegistry[k]
	if info.schema == "" {
		return md
	}
	md[native.KeySchema] = info.schema
	md[native.KeySchemaObjTitle] = info.schema + ":" + info.compound
	if info.baseType != "" {
		md[native.KeySchemaBaseType] = info.baseType
	}
	return md
}

// defaultCameraCore is the camera sample written when none was set.
var defaultCameraCore = CameraSample{
	FocalLength:        35,
	HorizontalAperture: 3.6,
	VerticalAperture:   2.4,
	LensSqueezeRatio:   1,
	FStop:              5.6,
	FocusDistance:      5,
	ShutterClose:       1.0 / 24,
	NearClippingPlane:  0.1,
	FarClippingPlane:   100000,
}

// applyDefaultSample queues the empty sample a kind needs to be well formed.
func applyDefaultSample(o *Object) error {
	switch o.kind {
	case KindXform:
		x, err := o.Xform()
		if err != nil {
			return err
		}
		if err := x.SetMatrix(Identity44d(), Index(0)); err != nil {
			return err
		}
		return x.SetInherits(true)
	case KindPolyMesh, KindSubD:
		m, err := o.Mesh()
		if err != nil {
			return err
		}
		if err := m.SetPositions(nil, Index(0)); err != nil {
			return err
		}
		if err := m.SetFaceIndices(nil, Index(0)); err != nil {
			return err
		}
		if err := m.SetFaceCounts(nil, Index(0)); err != nil {
			return err
		}
		if o.kind == KindSubD {
			return m.setSimple(".scheme", "catmull-clark", Index(0))
		}
		return nil
	case KindPoints:
		g, err := o.Geom()
		if err != nil {
			return err
		}
		if err := g.SetPositions(nil, Index(0)); err != nil {
			return err
		}
		return g.setSimple(".pointIds", []uint64{}, Index(0))
	case KindCurve:
		g, err := o.Geom()
		if err != nil {
			return err
		}
		if err := g.SetPositions(nil, Index(0)); err != nil {
			return err
		}
		return g.setSimple("nVertices", []int32{}, Index(0))
	case KindNuPatch:
		g, err := o.Geom()
		if err != nil {
			return err
		}
		if err := g.SetPositions(nil, Index(0)); err != nil {
			return err
		}
		for _, knot := range []string{"uKnot", "vKnot"} {
			if err := g.setSimple(knot, []float32{}, Index(0)); err != nil {
				return err
			}
		}
		for _, n := range []string{"nu", "nv", "uOrder", "vOrder"} {
			if err := g.setSimple(n, int32(0), Index(0)); err != nil {
				return err
			}
		}
		return nil
	case KindFaceSet:
		f, err := o.FaceSet()
		if err != nil {
			return err
		}
		return f.SetFaces(nil, Index(0))
	case KindCamera:
		c, err := o.Camera()
		if err != nil {
			return err
		}
		return c.SetCore(defaultCameraCore, Index(0))
	case KindMaterial, KindLight:
		_, err := o.schemaCompound()
		return err
	}
	return nil
}
