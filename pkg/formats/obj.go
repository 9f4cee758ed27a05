// OBJ (Wavefront text mesh) codec for imported models and archived meshes.
package formats

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// OBJ format errors.
var (
	ErrIndexOutOfRange = errors.New("face index out of range")
	ErrMalformedRecord = errors.New("malformed record")
)

// FormatError reports malformed mesh text or manifest data.
type FormatError struct {
	Line   int    // 1-based line number (0 when not line oriented)
	Record string // Offending record or file name
	Err    error  // Underlying cause
}

func (e *FormatError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("format error at line %d (%q): %v", e.Line, e.Record, e.Err)
	}
	return fmt.Sprintf("format error in %s: %v", e.Record, e.Err)
}

// Unwrap returns the underlying cause.
func (e *FormatError) Unwrap() error {
	return e.Err
}

// Submesh is a named triangle group within a mesh.
type Submesh struct {
	Name     string   // Group or object name (may be empty)
	Material string   // Material name from usemtl (may be empty)
	Indices  []uint32 // 0-based vertex indices, three per triangle
}

// TriangleCount returns the number of triangles in the group.
func (s *Submesh) TriangleCount() int {
	return len(s.Indices) / 3
}

// Mesh is a decoded polygon mesh.
type Mesh struct {
	Vertices  [][3]float32 // Vertex positions
	Normals   [][3]float32 // Vertex normals
	TexCoords [][2]float32 // Texture coordinates
	Submeshes []Submesh    // Triangle groups
}

// Triangles returns every submesh's indices concatenated in order.
func (m *Mesh) Triangles() []uint32 {
	var n int
	for i := range m.Submeshes {
		n += len(m.Submeshes[i].Indices)
	}
	out := make([]uint32, 0, n)
	for i := range m.Submeshes {
		out = append(out, m.Submeshes[i].Indices...)
	}
	return out
}

// Validate checks that every triangle index references a vertex slot.
func (m *Mesh) Validate() error {
	for si := range m.Submeshes {
		for _, idx := range m.Submeshes[si].Indices {
			if int(idx) >= len(m.Vertices) {
				return fmt.Errorf("%w: submesh %d index %d, %d vertices", ErrIndexOutOfRange, si, idx, len(m.Vertices))
			}
		}
	}
	return nil
}

// objParser holds decoding state for ParseOBJ.
type objParser struct {
	mesh    *Mesh
	current *Submesh
	line    int
	text    string

	// Highest face index seen and where, checked once all vertices are read
	maxIndex int
	maxLine  int
	maxText  string
}

// ParseOBJ decodes OBJ mesh text.
// Face indices are 1-based in the text and 0-based in the result. Positive
// indices may refer to vertices declared later in the file; negative ones are
// relative to the vertices read so far.
func ParseOBJ(data []byte) (*Mesh, error) {
	p := &objParser{mesh: &Mesh{}, maxIndex: -1}

	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)

	for scanner.Scan() {
		p.line++
		p.text = strings.TrimSpace(scanner.Text())
		if p.text == "" || p.text[0] == '#' {
			continue
		}
		if err := p.parseLine(strings.Fields(p.text)); err != nil {
			return nil, &FormatError{Line: p.line, Record: p.text, Err: err}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, &FormatError{Line: p.line, Record: "scanner", Err: err}
	}

	if count := len(p.mesh.Vertices); p.maxIndex >= count {
		err := fmt.Errorf("%w: %d with %d vertices", ErrIndexOutOfRange, p.maxIndex+1, count)
		return nil, &FormatError{Line: p.maxLine, Record: p.maxText, Err: err}
	}

	p.dropEmptyGroups()
	return p.mesh, nil
}

func (p *objParser) parseLine(fields []string) error {
	switch fields[0] {
	case "v":
		v, err := parseFloats(fields[1:], 3, 3)
		if err != nil {
			return err
		}
		p.mesh.Vertices = append(p.mesh.Vertices, [3]float32{v[0], v[1], v[2]})
	case "vn":
		v, err := parseFloats(fields[1:], 3, 3)
		if err != nil {
			return err
		}
		p.mesh.Normals = append(p.mesh.Normals, [3]float32{v[0], v[1], v[2]})
	case "vt":
		v, err := parseFloats(fields[1:], 1, 2)
		if err != nil {
			return err
		}
		p.mesh.TexCoords = append(p.mesh.TexCoords, [2]float32{v[0], v[1]})
	case "f":
		return p.parseFace(fields[1:])
	case "o", "g":
		p.startGroup(strings.Join(fields[1:], " "), "")
	case "usemtl":
		name := strings.Join(fields[1:], " ")
		if p.current != nil && len(p.current.Indices) == 0 {
			p.current.Material = name
		} else {
			groupName := ""
			if p.current != nil {
				groupName = p.current.Name
			}
			p.startGroup(groupName, name)
		}
	}
	// Anything else (mtllib, s, l, vp, ...) is ignored.
	return nil
}

func (p *objParser) startGroup(name, material string) {
	if p.current != nil && len(p.current.Indices) == 0 {
		p.current.Name = name
		if material != "" {
			p.current.Material = material
		}
		return
	}
	p.mesh.Submeshes = append(p.mesh.Submeshes, Submesh{Name: name, Material: material})
	p.current = &p.mesh.Submeshes[len(p.mesh.Submeshes)-1]
}

func (p *objParser) parseFace(tokens []string) error {
	if len(tokens) < 3 {
		return fmt.Errorf("%w: face needs at least 3 vertices, got %d", ErrMalformedRecord, len(tokens))
	}

	corners := make([]uint32, len(tokens))
	for i, tok := range tokens {
		idx, err := p.resolveIndex(tok)
		if err != nil {
			return err
		}
		corners[i] = idx
	}

	if p.current == nil {
		p.startGroup("", "")
	}

	// Fan triangulation for quads and larger polygons
	for i := 1; i < len(corners)-1; i++ {
		p.current.Indices = append(p.current.Indices, corners[0], corners[i], corners[i+1])
	}
	return nil
}

// resolveIndex converts a face token (v, v/t, v//n, v/t/n) to a 0-based vertex index.
func (p *objParser) resolveIndex(tok string) (uint32, error) {
	vertexPart := tok
	if slash := strings.IndexByte(tok, '/'); slash >= 0 {
		vertexPart = tok[:slash]
	}

	raw, err := strconv.Atoi(vertexPart)
	if err != nil {
		return 0, fmt.Errorf("%w: face token %q", ErrMalformedRecord, tok)
	}

	count := len(p.mesh.Vertices)
	switch {
	case raw > 0:
		idx := raw - 1
		if idx > p.maxIndex {
			p.maxIndex, p.maxLine, p.maxText = idx, p.line, p.text
		}
		return uint32(idx), nil
	case raw < 0:
		if count+raw < 0 {
			return 0, fmt.Errorf("%w: %d with %d vertices", ErrIndexOutOfRange, raw, count)
		}
		return uint32(count + raw), nil
	default:
		return 0, fmt.Errorf("%w: index 0 in token %q", ErrIndexOutOfRange, tok)
	}
}

// dropEmptyGroups removes trailing group headers that never received faces.
func (p *objParser) dropEmptyGroups() {
	kept := p.mesh.Submeshes[:0]
	for _, s := range p.mesh.Submeshes {
		if len(s.Indices) > 0 {
			kept = append(kept, s)
		}
	}
	p.mesh.Submeshes = kept
	p.current = nil
}

func parseFloats(fields []string, minCount, maxCount int) ([]float32, error) {
	if len(fields) < minCount {
		return nil, fmt.Errorf("%w: expected %d values, got %d", ErrMalformedRecord, minCount, len(fields))
	}
	if len(fields) > maxCount {
		fields = fields[:maxCount]
	}
	out := make([]float32, maxCount)
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 32)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not a number", ErrMalformedRecord, f)
		}
		out[i] = float32(v)
	}
	return out, nil
}

// Part is a named mesh written as one OBJ object block.
type Part struct {
	Name string
	Mesh *Mesh
}

// WriteOBJ encodes parts as OBJ text. Each part becomes an "o" block and
// face indices are offset by the vertices written for earlier parts.
func WriteOBJ(w io.Writer, parts []Part) error {
	bw := bufio.NewWriter(w)

	var vertexBase, texBase, normalBase int
	for pi, part := range parts {
		m := part.Mesh
		if m == nil {
			continue
		}
		if err := m.Validate(); err != nil {
			return fmt.Errorf("part %d (%s): %w", pi, part.Name, err)
		}

		name := part.Name
		if name == "" {
			name = fmt.Sprintf("part%d", pi)
		}
		fmt.Fprintf(bw, "o %s\n", name)

		for _, v := range m.Vertices {
			fmt.Fprintf(bw, "v %s %s %s\n", formatFloat(v[0]), formatFloat(v[1]), formatFloat(v[2]))
		}
		for _, t := range m.TexCoords {
			fmt.Fprintf(bw, "vt %s %s\n", formatFloat(t[0]), formatFloat(t[1]))
		}
		for _, n := range m.Normals {
			fmt.Fprintf(bw, "vn %s %s %s\n", formatFloat(n[0]), formatFloat(n[1]), formatFloat(n[2]))
		}

		// Per-corner attribute references only when the arrays line up with vertices
		withTex := len(m.TexCoords) == len(m.Vertices) && len(m.TexCoords) > 0
		withNormal := len(m.Normals) == len(m.Vertices) && len(m.Normals) > 0

		for _, sub := range m.Submeshes {
			if sub.Name != "" {
				fmt.Fprintf(bw, "g %s\n", sub.Name)
			}
			if sub.Material != "" {
				fmt.Fprintf(bw, "usemtl %s\n", sub.Material)
			}
			for i := 0; i+2 < len(sub.Indices); i += 3 {
				bw.WriteString("f")
				for _, idx := range sub.Indices[i : i+3] {
					bw.WriteByte(' ')
					bw.WriteString(faceToken(int(idx), vertexBase, texBase, normalBase, withTex, withNormal))
				}
				bw.WriteByte('\n')
			}
		}

		vertexBase += len(m.Vertices)
		texBase += len(m.TexCoords)
		normalBase += len(m.Normals)
	}

	return bw.Flush()
}

func faceToken(idx, vertexBase, texBase, normalBase int, withTex, withNormal bool) string {
	v := strconv.Itoa(vertexBase + idx + 1)
	switch {
	case withTex && withNormal:
		return v + "/" + strconv.Itoa(texBase+idx+1) + "/" + strconv.Itoa(normalBase+idx+1)
	case withTex:
		return v + "/" + strconv.Itoa(texBase+idx+1)
	case withNormal:
		return v + "//" + strconv.Itoa(normalBase+idx+1)
	default:
		return v
	}
}

func formatFloat(f float32) string {
	return strconv.FormatFloat(float64(f), 'f', -1, 32)
}
