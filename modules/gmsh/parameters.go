// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// This file defines Parameters, the validated set of gmsh command-line options
// a calculation passes to the executable, and its translation into argv.
//
// Why a fixed struct instead of a free-form map?
//
// gmsh accepts hundreds of options, but a step only needs the handful that
// decide what gets meshed and where it is written. Declaring them as named
// fields gives every option a single type and default, rejects typos at the
// moment the step is configured, and keeps the argv translation a plain walk
// over known fields.
package gmsh

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ErrValidation is the sentinel wrapped by every *ValidationError.
var ErrValidation = errors.New("invalid gmsh parameters")

// OptionKind is the value type an option accepts.
type OptionKind int

const (
	KindFlag OptionKind = iota
	KindString
	KindInt
)

func (k OptionKind) String() string {
	switch k {
	case KindFlag:
		return "bool"
	case KindString:
		return "string"
	case KindInt:
		return "integer"
	default:
		return "unknown"
	}
}

// OptionSpec describes one supported gmsh option.
type OptionSpec struct {
	Key         string
	Kind        OptionKind
	Default     string
	Description string
}

// Option keys, in the order they are emitted on the command line.
const (
	Key1D     = "1"
	Key2D     = "2"
	Key3D     = "3"
	KeyPID    = "pid"
	KeyFormat = "format"
	KeyOrder  = "order"
	KeyOutput = "o"
)

const (
	DefaultFormat = "auto"
	DefaultOrder  = 1
)

var optionSchema = []OptionSpec{
	{Key: Key1D, Kind: KindFlag, Description: "Perform 1D mesh generation, then exit"},
	{Key: Key2D, Kind: KindFlag, Description: "Perform 2D mesh generation, then exit"},
	{Key: Key3D, Kind: KindFlag, Description: "Perform 3D mesh generation, then exit"},
	{Key: KeyPID, Kind: KindFlag, Description: "Print process id on stdout"},
	{Key: KeyFormat, Kind: KindString, Default: DefaultFormat, Description: "Select output mesh format"},
	{Key: KeyOrder, Kind: KindInt, Default: strconv.Itoa(DefaultOrder), Description: "Set mesh order"},
	{Key: KeyOutput, Kind: KindString, Description: "Specify output file name"},
}

// Schema returns the supported options in emission order.
func Schema() []OptionSpec {
	out := make([]OptionSpec, len(optionSchema))
	copy(out, optionSchema)
	return out
}

func lookupOption(key string) (OptionSpec, bool) {
	for _, o := range optionSchema {
		if o.Key == key {
			return o, true
		}
	}
	return OptionSpec{}, false
}

// optional holds a value together with whether it was given explicitly.
type optional[T any] struct {
	value T
	set   bool
}

func some[T any](v T) optional[T] { return optional[T]{value: v, set: true} }

// Parameters is an immutable, validated set of gmsh options. Build it with
// NewParameters, ParametersFromCty or LoadParametersFile.
type Parameters struct {
	mesh1D optional[bool]
	mesh2D optional[bool]
	mesh3D optional[bool]
	pid    optional[bool]
	format optional[string]
	order  optional[int]
	output optional[string]
}

// Problem is a single reason a value was rejected.
type Problem struct {
	Key    string
	Reason string
}

// ValidationError lists every rejected key of an option set.
type ValidationError struct {
	Problems []Problem
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Problems))
	for _, p := range e.Problems {
		parts = append(parts, fmt.Sprintf("option %q: %s", p.Key, p.Reason))
	}
	return fmt.Sprintf("%s: %s", ErrValidation, strings.Join(parts, "; "))
}

// Unwrap lets callers match with errors.Is(err, ErrValidation).
func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// NewParameters validates raw option values against the schema. A nil or
// empty map is valid and yields an option set with nothing set.
func NewParameters(raw map[string]any) (*Parameters, error) {
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	p := &Parameters{}
	var problems []Problem
	for _, key := range keys {
		if reason := p.apply(key, raw[key]); reason != "" {
			problems = append(problems, Problem{Key: key, Reason: reason})
		}
	}
	if len(problems) > 0 {
		return nil, &ValidationError{Problems: problems}
	}
	return p, nil
}

// MustParameters is NewParameters for literals known to be valid.
func MustParameters(raw map[string]any) *Parameters {
	p, err := NewParameters(raw)
	if err != nil {
		panic(err)
	}
	return p
}

// apply stores a single value and returns a rejection reason, or "".
func (p *Parameters) apply(key string, value any) string {
	opt, ok := lookupOption(key)
	if !ok {
		return "unknown option"
	}
	if value == nil {
		return fmt.Sprintf("must be %s, got null", articled(opt.Kind))
	}

	switch opt.Kind {
	case KindFlag:
		b, ok := value.(bool)
		if !ok {
			return mismatch(opt.Kind, value)
		}
		switch key {
		case Key1D:
			p.mesh1D = some(b)
		case Key2D:
			p.mesh2D = some(b)
		case Key3D:
			p.mesh3D = some(b)
		case KeyPID:
			p.pid = some(b)
		}
	case KindString:
		s, ok := value.(string)
		if !ok {
			return mismatch(opt.Kind, value)
		}
		switch key {
		case KeyFormat:
			p.format = some(s)
		case KeyOutput:
			p.output = some(s)
		}
	case KindInt:
		n, ok := asInt(value)
		if !ok {
			return mismatch(opt.Kind, value)
		}
		p.order = some(n)
	}
	return ""
}

func articled(k OptionKind) string {
	if k == KindInt {
		return "an integer"
	}
	return "a " + k.String()
}

func mismatch(want OptionKind, got any) string {
	return fmt.Sprintf("must be %s, got %s", articled(want), typeName(got))
}

// Get returns the value for key and whether it was set explicitly. Unset
// keys with a schema default report that default.
func (p *Parameters) Get(key string) (any, bool) {
	switch key {
	case Key1D:
		return p.mesh1D.value, p.mesh1D.set
	case Key2D:
		return p.mesh2D.value, p.mesh2D.set
	case Key3D:
		return p.mesh3D.value, p.mesh3D.set
	case KeyPID:
		return p.pid.value, p.pid.set
	case KeyFormat:
		return p.Format(), p.format.set
	case KeyOrder:
		return p.Order(), p.order.set
	case KeyOutput:
		return p.output.value, p.output.set
	}
	return nil, false
}

// IsSet reports whether key was given explicitly.
func (p *Parameters) IsSet(key string) bool {
	_, set := p.Get(key)
	return set
}

// Keys returns the explicitly set keys in emission order.
func (p *Parameters) Keys() []string {
	var keys []string
	for _, o := range optionSchema {
		if p.IsSet(o.Key) {
			keys = append(keys, o.Key)
		}
	}
	return keys
}

// Map returns the explicitly set options as a fresh map.
func (p *Parameters) Map() map[string]any {
	m := make(map[string]any)
	for _, k := range p.Keys() {
		v, _ := p.Get(k)
		m[k] = v
	}
	return m
}

// Format is the requested output format, "auto" unless set.
func (p *Parameters) Format() string {
	if p.format.set {
		return p.format.value
	}
	return DefaultFormat
}

// Order is the requested element order, 1 unless set.
func (p *Parameters) Order() int {
	if p.order.set {
		return p.order.value
	}
	return DefaultOrder
}

// Output is the explicit output file name, if any.
func (p *Parameters) Output() (string, bool) {
	return p.output.value, p.output.set
}

// WithOutput returns a copy of p whose output option is name.
func (p *Parameters) WithOutput(name string) *Parameters {
	cp := *p
	cp.output = some(name)
	return &cp
}

// CmdlineParams translates the option set into gmsh arguments. The geometry
// file comes first; options follow in schema order. A false flag is omitted
// and options that were never set are not emitted, defaults included.
func (p *Parameters) CmdlineParams(geofile string) []string {
	params := []string{geofile}
	for _, key := range p.Keys() {
		value, _ := p.Get(key)
		switch v := value.(type) {
		case bool:
			if v {
				params = append(params, "-"+key)
			}
		case string:
			params = append(params, "-"+key, v)
		case int:
			params = append(params, "-"+key, strconv.Itoa(v))
		}
	}
	return params
}

func (p *Parameters) String() string {
	keys := p.Keys()
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		v, _ := p.Get(k)
		parts = append(parts, fmt.Sprintf("%q: %v", k, v))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
