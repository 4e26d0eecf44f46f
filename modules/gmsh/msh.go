// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package gmsh

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
)

// PhysicalName is one entry of the $PhysicalNames section.
type PhysicalName struct {
	Dim  int
	Tag  int
	Name string
}

// Mesh is a summary of a gmsh .msh file: its format header, physical
// groups and entity counts. Node coordinates are not kept.
type Mesh struct {
	Version  string
	Binary   bool
	DataSize int

	PhysicalNames []PhysicalName
	NumNodes      int
	NumElements   int
	// ElementsByType counts elements per gmsh element type number.
	ElementsByType map[int]int

	dims int
}

// elementDims maps the common gmsh element types to their dimension.
var elementDims = map[int]int{
	1: 1, 8: 1, 26: 1, 27: 1, 28: 1,
	2: 2, 3: 2, 9: 2, 10: 2, 16: 2, 20: 2, 21: 2, 22: 2, 23: 2, 24: 2, 25: 2,
	4: 3, 5: 3, 6: 3, 7: 3, 11: 3, 12: 3, 13: 3, 14: 3, 17: 3, 18: 3, 19: 3, 29: 3, 30: 3, 31: 3,
	15: 0,
}

// Dims is the highest dimension found among elements and physical groups.
func (m *Mesh) Dims() int {
	return m.dims
}

// Summary renders the mesh for humans.
func (m *Mesh) Summary() string {
	var sb strings.Builder
	mode := "ascii"
	if m.Binary {
		mode = "binary"
	}
	fmt.Fprintf(&sb, "format:   %s (%s, data size %d)\n", m.Version, mode, m.DataSize)
	fmt.Fprintf(&sb, "dims:     %d\n", m.dims)
	fmt.Fprintf(&sb, "nodes:    %d\n", m.NumNodes)
	fmt.Fprintf(&sb, "elements: %d\n", m.NumElements)
	types := make([]int, 0, len(m.ElementsByType))
	for t := range m.ElementsByType {
		types = append(types, t)
	}
	sort.Ints(types)
	for _, t := range types {
		fmt.Fprintf(&sb, "  type %-3d %d\n", t, m.ElementsByType[t])
	}
	for _, pn := range m.PhysicalNames {
		fmt.Fprintf(&sb, "physical: %d %d %q\n", pn.Dim, pn.Tag, pn.Name)
	}
	return sb.String()
}

func (m *Mesh) noteDim(d int) {
	if d > m.dims {
		m.dims = d
	}
}

// ReadMSHFile reads a .msh file from disk.
func ReadMSHFile(path string) (*Mesh, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadMSH(f)
}

type mshScanner struct {
	sc   *bufio.Scanner
	line int
}

func (s *mshScanner) next() (string, bool) {
	for s.sc.Scan() {
		s.line++
		text := strings.TrimSpace(s.sc.Text())
		if text != "" {
			return text, true
		}
	}
	return "", false
}

func (s *mshScanner) errorf(section, format string, args ...any) error {
	return fmt.Errorf("msh: line %d: invalid %s section: %s", s.line, section, fmt.Sprintf(format, args...))
}

// skipTo consumes lines up to and including the marker.
func (s *mshScanner) skipTo(section, marker string) error {
	for {
		text, ok := s.next()
		if !ok {
			return s.errorf(section, "missing %s", marker)
		}
		if text == marker {
			return nil
		}
	}
}

// ReadMSH reads an ASCII gmsh mesh in format 2.2 or 4.1. For binary files
// only the $MeshFormat header is read.
func ReadMSH(r io.Reader) (*Mesh, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	s := &mshScanner{sc: sc}
	m := &Mesh{ElementsByType: map[int]int{}}

	sawFormat := false
	for {
		text, ok := s.next()
		if !ok {
			break
		}
		if !strings.HasPrefix(text, "$") {
			return nil, fmt.Errorf("msh: line %d: expected a section marker, got %q", s.line, truncate(text, 40))
		}
		section := strings.TrimPrefix(text, "$")
		if !sawFormat && section != "MeshFormat" {
			return nil, fmt.Errorf("msh: line %d: file does not start with $MeshFormat", s.line)
		}

		var err error
		switch section {
		case "MeshFormat":
			err = readMeshFormat(s, m)
			sawFormat = true
			if err == nil && m.Binary {
				return m, nil
			}
		case "PhysicalNames":
			err = readPhysicalNames(s, m)
		case "Nodes":
			err = readNodes(s, m)
		case "Elements":
			err = readElements(s, m)
		default:
			err = s.skipTo(section, "$End"+section)
		}
		if err != nil {
			return nil, err
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("msh: %w", err)
	}
	if !sawFormat {
		return nil, fmt.Errorf("msh: missing $MeshFormat section")
	}
	return m, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

func atoiFields(fields []string) ([]int, error) {
	out := make([]int, len(fields))
	for i, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil {
			return nil, err
		}
		out[i] = n
	}
	return out, nil
}

func readMeshFormat(s *mshScanner, m *Mesh) error {
	text, ok := s.next()
	if !ok {
		return s.errorf("MeshFormat", "unexpected end of file")
	}
	fields := strings.Fields(text)
	if len(fields) != 3 {
		return s.errorf("MeshFormat", "want 'version file-type data-size', got %q", text)
	}
	if _, err := strconv.ParseFloat(fields[0], 64); err != nil {
		return s.errorf("MeshFormat", "bad version %q", fields[0])
	}
	fileType, err := strconv.Atoi(fields[1])
	if err != nil || (fileType != 0 && fileType != 1) {
		return s.errorf("MeshFormat", "bad file type %q", fields[1])
	}
	dataSize, err := strconv.Atoi(fields[2])
	if err != nil {
		return s.errorf("MeshFormat", "bad data size %q", fields[2])
	}
	m.Version, m.Binary, m.DataSize = fields[0], fileType == 1, dataSize
	if m.Binary {
		return nil
	}
	if !strings.HasPrefix(m.Version, "2") && !strings.HasPrefix(m.Version, "4") {
		return s.errorf("MeshFormat", "unsupported version %s", m.Version)
	}
	return s.skipTo("MeshFormat", "$EndMeshFormat")
}

func readPhysicalNames(s *mshScanner, m *Mesh) error {
	text, ok := s.next()
	if !ok {
		return s.errorf("PhysicalNames", "unexpected end of file")
	}
	n, err := strconv.Atoi(text)
	if err != nil || n < 0 {
		return s.errorf("PhysicalNames", "bad count %q", text)
	}
	for i := 0; i < n; i++ {
		line, ok := s.next()
		if !ok {
			return s.errorf("PhysicalNames", "want %d names, got %d", n, i)
		}
		dim, rest := cutField(line)
		tag, rest := cutField(rest)
		name := strings.TrimSpace(rest)
		if dim == "" || tag == "" || name == "" {
			return s.errorf("PhysicalNames", "want 'dim tag \"name\"', got %q", line)
		}
		nums, err := atoiFields([]string{dim, tag})
		if err != nil {
			return s.errorf("PhysicalNames", "bad dim or tag in %q", line)
		}
		if unq, err := strconv.Unquote(name); err == nil {
			name = unq
		}
		m.PhysicalNames = append(m.PhysicalNames, PhysicalName{Dim: nums[0], Tag: nums[1], Name: name})
		m.noteDim(nums[0])
	}
	return s.skipTo("PhysicalNames", "$EndPhysicalNames")
}

// cutField splits off the first whitespace-separated field of s.
func cutField(s string) (field, rest string) {
	s = strings.TrimLeft(s, " \t")
	if i := strings.IndexAny(s, " \t"); i >= 0 {
		return s[:i], s[i:]
	}
	return s, ""
}

func (m *Mesh) isV4() bool {
	return strings.HasPrefix(m.Version, "4")
}

func readNodes(s *mshScanner, m *Mesh) error {
	text, ok := s.next()
	if !ok {
		return s.errorf("Nodes", "unexpected end of file")
	}
	nums, err := atoiFields(strings.Fields(text))
	if err != nil || len(nums) == 0 {
		return s.errorf("Nodes", "bad header %q", text)
	}
	if m.isV4() {
		if len(nums) != 4 {
			return s.errorf("Nodes", "want 4 header fields, got %d", len(nums))
		}
		m.NumNodes = nums[1]
	} else {
		m.NumNodes = nums[0]
	}
	return s.skipTo("Nodes", "$EndNodes")
}

func readElements(s *mshScanner, m *Mesh) error {
	text, ok := s.next()
	if !ok {
		return s.errorf("Elements", "unexpected end of file")
	}
	header, err := atoiFields(strings.Fields(text))
	if err != nil || len(header) == 0 {
		return s.errorf("Elements", "bad header %q", text)
	}

	if !m.isV4() {
		m.NumElements = header[0]
		for i := 0; i < header[0]; i++ {
			line, ok := s.next()
			if !ok {
				return s.errorf("Elements", "want %d elements, got %d", header[0], i)
			}
			fields := strings.Fields(line)
			if len(fields) < 2 {
				return s.errorf("Elements", "short element line %q", line)
			}
			typ, err := strconv.Atoi(fields[1])
			if err != nil {
				return s.errorf("Elements", "bad element type in %q", line)
			}
			m.ElementsByType[typ]++
			if d, ok := elementDims[typ]; ok {
				m.noteDim(d)
			}
		}
		return s.skipTo("Elements", "$EndElements")
	}

	if len(header) != 4 {
		return s.errorf("Elements", "want 4 header fields, got %d", len(header))
	}
	m.NumElements = header[1]
	for b := 0; b < header[0]; b++ {
		line, ok := s.next()
		if !ok {
			return s.errorf("Elements", "want %d entity blocks, got %d", header[0], b)
		}
		block, err := atoiFields(strings.Fields(line))
		if err != nil || len(block) != 4 {
			return s.errorf("Elements", "bad entity block header %q", line)
		}
		dim, typ, count := block[0], block[2], block[3]
		m.ElementsByType[typ] += count
		m.noteDim(dim)
		for i := 0; i < count; i++ {
			if _, ok := s.next(); !ok {
				return s.errorf("Elements", "entity block %d truncated", b)
			}
		}
	}
	return s.skipTo("Elements", "$EndElements")
}
