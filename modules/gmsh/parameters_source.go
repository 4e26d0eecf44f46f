// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package gmsh

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/zclconf/go-cty/cty"
	"gopkg.in/yaml.v3"
)

// asInt accepts every Go integer kind plus integral floats, since JSON, YAML
// and cty numbers all arrive as one of those. bool is never an integer.
func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int8:
		return int(n), true
	case int16:
		return int(n), true
	case int32:
		return int(n), true
	case int64:
		if n < math.MinInt || n > math.MaxInt {
			return 0, false
		}
		return int(n), true
	case uint:
		if n > math.MaxInt {
			return 0, false
		}
		return int(n), true
	case uint8:
		return int(n), true
	case uint16:
		return int(n), true
	case uint32:
		return int(n), true
	case uint64:
		if n > math.MaxInt {
			return 0, false
		}
		return int(n), true
	case float32:
		return asInt(float64(n))
	case float64:
		// float64(math.MaxInt) rounds up to 2^63, so compare exclusively
		// against the exact power of two.
		if n != math.Trunc(n) || math.IsInf(n, 0) || n < math.MinInt || n >= -float64(math.MinInt) {
			return 0, false
		}
		return int(n), true
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, false
		}
		return asInt(i)
	}
	return 0, false
}

func typeName(v any) string {
	switch t := v.(type) {
	case bool:
		return "bool"
	case string:
		return "string"
	case float32, float64:
		return "number"
	case cty.Value:
		return t.Type().FriendlyName()
	case map[string]any:
		return "map"
	case []any:
		return "list"
	}
	if _, ok := asInt(v); ok {
		return "integer"
	}
	return fmt.Sprintf("%T", v)
}

// ParametersFromCty validates an HCL object or map value, such as the
// `parameters` argument of a gmsh step.
func ParametersFromCty(val cty.Value) (*Parameters, error) {
	if val.IsNull() {
		return NewParameters(nil)
	}
	if !val.IsWhollyKnown() {
		return nil, fmt.Errorf("%w: value is not known yet", ErrValidation)
	}
	ty := val.Type()
	if !ty.IsObjectType() && !ty.IsMapType() {
		return nil, fmt.Errorf("%w: expected an object, got %s", ErrValidation, ty.FriendlyName())
	}

	raw := make(map[string]any, val.LengthInt())
	for it := val.ElementIterator(); it.Next(); {
		k, v := it.Element()
		raw[k.AsString()] = ctyToNative(v)
	}
	return NewParameters(raw)
}

func ctyToNative(v cty.Value) any {
	if v.IsNull() {
		return nil
	}
	switch v.Type() {
	case cty.Bool:
		return v.True()
	case cty.String:
		return v.AsString()
	case cty.Number:
		bf := v.AsBigFloat()
		if bf.IsInt() {
			if i, acc := bf.Int64(); acc == 0 {
				return i
			}
		}
		f, _ := bf.Float64()
		return f
	}
	return v
}

// LoadParametersFile reads an option set from a YAML or JSON document whose
// top level is a mapping of option keys to values.
func LoadParametersFile(path string) (*Parameters, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read parameters file '%s': %w", path, err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", ".json", "":
	default:
		return nil, fmt.Errorf("unsupported parameters file extension '%s'", filepath.Ext(path))
	}
	raw, err := decodeParametersDocument(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode parameters file '%s': %w", path, err)
	}
	return NewParameters(raw)
}

// decodeParametersDocument walks the YAML node tree so that keys like `2`
// stay strings instead of being resolved as integers.
func decodeParametersDocument(data []byte) (map[string]any, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if doc.Kind == 0 || len(doc.Content) == 0 {
		return map[string]any{}, nil
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("top level must be a mapping of option names to values")
	}

	raw := make(map[string]any, len(root.Content)/2)
	for i := 0; i+1 < len(root.Content); i += 2 {
		keyNode, valNode := root.Content[i], root.Content[i+1]
		var v any
		if err := valNode.Decode(&v); err != nil {
			return nil, fmt.Errorf("line %d: %w", valNode.Line, err)
		}
		raw[keyNode.Value] = v
	}
	return raw, nil
}
