package native

import (
	"maps"
	"slices"
	"strings"
)

// Well-known metadata keys.
const (
	KeySchema         = "schema"
	KeySchemaObjTitle = "schemaObjTitle"
	KeySchemaBaseType = "schemaBaseType"
	KeyInterpretation = "interpretation"
)

// MetaData is the key/value annotation attached to objects and properties.
// Its serialized form is "k1=v1;k2=v2" with keys in sorted order. A
// backslash escapes the next byte, so keys and values may hold ';', '=' and
// backslashes.
type MetaData map[string]string

// ParseMetaData decodes a serialized metadata string. Malformed pairs are
// skipped.
func ParseMetaData(s string) MetaData {
	md := make(MetaData)
	var key, cur strings.Builder
	inValue := false
	flush := func() {
		if inValue && key.Len() > 0 {
			md[key.String()] = cur.String()
		}
		key.Reset()
		cur.Reset()
		inValue = false
	}
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c == '\\' && i+1 < len(s):
			i++
			cur.WriteByte(s[i])
		case c == ';':
			flush()
		case c == '=' && !inValue:
			key.WriteString(cur.String())
			cur.Reset()
			inValue = true
		default:
			cur.WriteByte(c)
		}
	}
	flush()
	return md
}

var metaEscaper = strings.NewReplacer(`\`, `\\`, ";", `\;`, "=", `\=`)

// String serializes md deterministically.
func (md MetaData) String() string {
	if len(md) == 0 {
		return ""
	}
	keys := slices.Sorted(maps.Keys(md))
	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(';')
		}
		metaEscaper.WriteString(&b, k)
		b.WriteByte('=')
		metaEscaper.WriteString(&b, md[k])
	}
	return b.String()
}

// Matches reports whether md declares the given schema identifier.
func (md MetaData) Matches(schema string) bool {
	return schema != "" && md[KeySchema] == schema
}

// Clone returns an independent copy of md.
func (md MetaData) Clone() MetaData {
	out := make(MetaData, len(md))
	maps.Copy(out, md)
	return out
}
