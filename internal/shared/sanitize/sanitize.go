// Package sanitize makes analysis results safe for JSON encoding.
// encoding/json rejects NaN and infinite floats, which numerical code
// produces routinely, so results pass through ToSerializable first.
package sanitize

import (
	"fmt"
	"math"
	"reflect"
	"strings"
	"sync"
	"time"
)

// Float returns f, or nil when f is NaN or infinite
func Float(f float64) *float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

// Number converts any numeric value to a finite float, or nil
func Number(v any) *float64 {
	if v == nil {
		return nil
	}
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Float32, reflect.Float64:
		return Float(rv.Float())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return Float(float64(rv.Int()))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return Float(float64(rv.Uint()))
	}
	return nil
}

// Matrix replaces the non-finite cells of m with nil
func Matrix(m [][]float64) [][]*float64 {
	out := make([][]*float64, len(m))
	for i, row := range m {
		out[i] = make([]*float64, len(row))
		for j, v := range row {
			out[i][j] = Float(v)
		}
	}
	return out
}

var (
	timeType      = reflect.TypeOf(time.Time{})
	marshalerType = reflect.TypeOf((*interface{ MarshalJSON() ([]byte, error) })(nil)).Elem()
)

// ToSerializable walks v and returns an equivalent tree of maps, slices and
// scalars. Structs become maps keyed by their json tags, non-finite floats
// become nil and times become RFC 3339 strings. Values with their own
// MarshalJSON are kept as they are.
func ToSerializable(v any) any {
	if v == nil {
		return nil
	}
	return walk(reflect.ValueOf(v))
}

func walk(rv reflect.Value) any {
	if !rv.IsValid() {
		return nil
	}
	if rv.Type() == timeType {
		return rv.Interface().(time.Time).Format(time.RFC3339)
	}

	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return nil
		}
		return walk(rv.Elem())
	case reflect.Float32, reflect.Float64:
		if f := Float(rv.Float()); f != nil {
			return *f
		}
		return nil
	case reflect.Map:
		if rv.IsNil() {
			return nil
		}
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out[mapKey(iter.Key())] = walk(iter.Value())
		}
		return out
	case reflect.Slice:
		if rv.IsNil() {
			return nil
		}
		fallthrough
	case reflect.Array:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return rv.Interface()
		}
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = walk(rv.Index(i))
		}
		return out
	case reflect.Struct:
		if rv.Type().Implements(marshalerType) {
			return rv.Interface()
		}
		out := make(map[string]any)
		walkStruct(rv, out)
		return out
	}
	return rv.Interface()
}

func walkStruct(rv reflect.Value, out map[string]any) {
	for _, f := range structFields(rv.Type()) {
		fv, ok := fieldByIndex(rv, f.index)
		if !ok {
			continue
		}
		if f.omitEmpty && isEmptyValue(fv) {
			continue
		}
		out[f.name] = walk(fv)
	}
}

// structField is one encoded field of a struct, possibly promoted from an
// embedded struct
type structField struct {
	name      string
	index     []int
	tagged    bool
	omitEmpty bool
}

var fieldCache sync.Map // reflect.Type -> []structField

// structFields lists the fields encoding/json would encode for t. Embedded
// structs are expanded breadth first; when several fields share a name the
// shallowest wins, a tagged field beats untagged ones at the same depth and
// any remaining tie drops the name.
func structFields(t reflect.Type) []structField {
	if cached, ok := fieldCache.Load(t); ok {
		return cached.([]structField)
	}

	type pending struct {
		typ   reflect.Type
		index []int
	}
	var (
		candidates []structField
		next       = []pending{{typ: t}}
		visited    = map[reflect.Type]bool{}
	)
	for len(next) > 0 {
		current := next
		next = nil
		for _, p := range current {
			if visited[p.typ] {
				continue
			}
			visited[p.typ] = true
			for i := 0; i < p.typ.NumField(); i++ {
				sf := p.typ.Field(i)
				if !sf.IsExported() {
					continue
				}
				name, omitEmpty, skip := jsonName(sf)
				if skip {
					continue
				}
				index := append(append([]int(nil), p.index...), i)
				ft := sf.Type
				if ft.Name() == "" && ft.Kind() == reflect.Pointer {
					ft = ft.Elem()
				}
				if sf.Anonymous && name == "" && ft.Kind() == reflect.Struct {
					next = append(next, pending{typ: ft, index: index})
					continue
				}
				f := structField{name: name, index: index, tagged: name != "", omitEmpty: omitEmpty}
				if f.name == "" {
					f.name = sf.Name
				}
				candidates = append(candidates, f)
			}
		}
	}

	byName := make(map[string][]structField)
	var order []string
	for _, f := range candidates {
		if _, seen := byName[f.name]; !seen {
			order = append(order, f.name)
		}
		byName[f.name] = append(byName[f.name], f)
	}
	fields := make([]structField, 0, len(order))
	for _, name := range order {
		if f, ok := dominantField(byName[name]); ok {
			fields = append(fields, f)
		}
	}

	fieldCache.Store(t, fields)
	return fields
}

// dominantField picks the field that wins among same-named candidates,
// which arrive ordered by depth
func dominantField(fields []structField) (structField, bool) {
	depth := len(fields[0].index)
	var shallow []structField
	for _, f := range fields {
		if len(f.index) == depth {
			shallow = append(shallow, f)
		}
	}
	if len(shallow) == 1 {
		return shallow[0], true
	}
	var winner structField
	tagged := 0
	for _, f := range shallow {
		if f.tagged {
			winner = f
			tagged++
		}
	}
	return winner, tagged == 1
}

// fieldByIndex follows index through embedded pointers. A nil embedded
// pointer hides its promoted fields.
func fieldByIndex(rv reflect.Value, index []int) (reflect.Value, bool) {
	for k, i := range index {
		if k > 0 {
			for rv.Kind() == reflect.Pointer {
				if rv.IsNil() {
					return reflect.Value{}, false
				}
				rv = rv.Elem()
			}
		}
		rv = rv.Field(i)
	}
	return rv, true
}

// isEmptyValue reports whether omitempty drops v. Structs are never empty.
func isEmptyValue(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Array, reflect.Map, reflect.Slice, reflect.String:
		return v.Len() == 0
	case reflect.Bool:
		return !v.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int() == 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return v.Uint() == 0
	case reflect.Float32, reflect.Float64:
		return v.Float() == 0
	case reflect.Interface, reflect.Pointer:
		return v.IsNil()
	}
	return false
}

func jsonName(f reflect.StructField) (name string, omitEmpty, skip bool) {
	tag := f.Tag.Get("json")
	if tag == "-" {
		return "", false, true
	}
	parts := strings.Split(tag, ",")
	for _, opt := range parts[1:] {
		if opt == "omitempty" {
			omitEmpty = true
		}
	}
	return parts[0], omitEmpty, false
}

func mapKey(k reflect.Value) string {
	if k.Kind() == reflect.String {
		return k.String()
	}
	return fmt.Sprint(k.Interface())
}
