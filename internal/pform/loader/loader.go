// Package loader reads a design description from YAML. Expressions,
// statements, ranges and data types inside the YAML are written in
// Verilog surface syntax and parsed here.
package loader

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"martianoff/velab/internal/pform"
)

// LoadFile reads and converts a YAML design file.
func LoadFile(path string) (*pform.Design, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read design: %w", err)
	}
	return Load(path, data)
}

// Load converts YAML design text. file names the source in line info.
func Load(file string, data []byte) (*pform.Design, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", file, err)
	}
	des := pform.NewDesign()
	if len(doc.Content) == 0 {
		return des, nil
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%s:%d: design must be a mapping", file, root.Line)
	}
	b := &builder{file: file}
	for i := 0; i+1 < len(root.Content); i += 2 {
		key, val := root.Content[i].Value, root.Content[i+1]
		var err error
		switch key {
		case "unit":
			err = b.scopeDecls(val, &des.Unit.LexicalScope, new(int))
		case "packages":
			err = b.eachItem(val, func(n *yaml.Node) error {
				pkg, err := b.pkg(n)
				if err == nil {
					des.Packages = append(des.Packages, pkg)
				}
				return err
			})
		case "udps":
			err = b.eachItem(val, func(n *yaml.Node) error {
				u, err := b.udp(n)
				if err == nil {
					des.UDPs[u.Name] = u
				}
				return err
			})
		case "modules":
			err = b.eachItem(val, func(n *yaml.Node) error {
				m, err := b.module(n)
				if err == nil {
					des.AddModule(m)
				}
				return err
			})
		default:
			err = fmt.Errorf("%s:%d: unknown key %q", file, root.Content[i].Line, key)
		}
		if err != nil {
			return nil, err
		}
	}
	return des, nil
}

// ParseExpr parses a single expression. Tests and the CLI use it.
func ParseExpr(src string) (pform.Expr, error) {
	p, err := newParser("<expr>", src, 1, nil)
	if err != nil {
		return nil, err
	}
	e, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	return e, p.expectEOF()
}

// ParseStatement parses a single statement.
func ParseStatement(src string) (pform.Statement, error) {
	p, err := newParser("<stmt>", src, 1, nil)
	if err != nil {
		return nil, err
	}
	s, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	return s, p.expectEOF()
}

// ParseType parses a data type.
func ParseType(src string) (pform.DataType, error) {
	p, err := newParser("<type>", src, 1, nil)
	if err != nil {
		return nil, err
	}
	t, err := p.parseType()
	if err != nil {
		return nil, err
	}
	return t, p.expectEOF()
}

type builder struct {
	file string
}

func (b *builder) li(n *yaml.Node) pform.LineInfo {
	return pform.LineInfo{File: b.file, Line: n.Line}
}

func (b *builder) errorf(n *yaml.Node, format string, args ...any) error {
	return fmt.Errorf("%s:%d: %s", b.file, n.Line, fmt.Sprintf(format, args...))
}

// firstLine returns the line where the text of a scalar starts.
func firstLine(n *yaml.Node) int {
	if n.Style == yaml.LiteralStyle || n.Style == yaml.FoldedStyle {
		return n.Line + 1
	}
	return n.Line
}

func (b *builder) parser(n *yaml.Node, lexPos *int) (*parser, error) {
	if n.Kind != yaml.ScalarNode {
		return nil, b.errorf(n, "expected a string")
	}
	return newParser(b.file, n.Value, firstLine(n), lexPos)
}

func (b *builder) expr(n *yaml.Node) (pform.Expr, error) {
	p, err := b.parser(n, nil)
	if err != nil {
		return nil, err
	}
	e, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	return e, p.expectEOF()
}

func (b *builder) optExpr(n *yaml.Node) (pform.Expr, error) {
	if n == nil {
		return nil, nil
	}
	return b.expr(n)
}

func (b *builder) dataType(n *yaml.Node) (pform.DataType, error) {
	p, err := b.parser(n, nil)
	if err != nil {
		return nil, err
	}
	t, err := p.parseType()
	if err != nil {
		return nil, err
	}
	return t, p.expectEOF()
}

func (b *builder) ranges(n *yaml.Node) ([]*pform.Range, error) {
	if n == nil {
		return nil, nil
	}
	p, err := b.parser(n, nil)
	if err != nil {
		return nil, err
	}
	dims, err := p.parseRanges()
	if err != nil {
		return nil, err
	}
	return dims, p.expectEOF()
}

func (b *builder) statement(n *yaml.Node, lexPos *int) (pform.Statement, error) {
	p, err := b.parser(n, lexPos)
	if err != nil {
		return nil, err
	}
	s, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	return s, p.expectEOF()
}

func (b *builder) delays(n *yaml.Node) ([]pform.Expr, error) {
	if n == nil {
		return nil, nil
	}
	p, err := b.parser(n, nil)
	if err != nil {
		return nil, err
	}
	if !p.isOp("#") {
		d, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		return []pform.Expr{d}, p.expectEOF()
	}
	ds, err := p.parseDelayList()
	if err != nil {
		return nil, err
	}
	return ds, p.expectEOF()
}

// strength parses "(strong0, weak1)".
func (b *builder) strength(n *yaml.Node) (pform.Drive, error) {
	drv := pform.DefaultDrive
	if n == nil {
		return drv, nil
	}
	s := strings.Trim(strings.TrimSpace(n.Value), "()")
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if len(part) < 2 {
			return drv, b.errorf(n, "malformed strength %q", n.Value)
		}
		str, ok := pform.ParseStrength(part[:len(part)-1])
		if !ok {
			return drv, b.errorf(n, "unknown strength %q", part)
		}
		switch part[len(part)-1] {
		case '0':
			drv.Str0 = str
		case '1':
			drv.Str1 = str
		default:
			return drv, b.errorf(n, "malformed strength %q", part)
		}
	}
	return drv, nil
}

// fields returns the value nodes of a mapping by key.
func (b *builder) fields(n *yaml.Node, allowed ...string) (map[string]*yaml.Node, error) {
	if n.Kind != yaml.MappingNode {
		return nil, b.errorf(n, "expected a mapping")
	}
	out := make(map[string]*yaml.Node, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		key := n.Content[i].Value
		ok := len(allowed) == 0
		for _, a := range allowed {
			if a == key {
				ok = true
				break
			}
		}
		if !ok {
			return nil, b.errorf(n.Content[i], "unknown key %q", key)
		}
		out[key] = n.Content[i+1]
	}
	return out, nil
}

func (b *builder) eachItem(n *yaml.Node, fn func(*yaml.Node) error) error {
	if n == nil {
		return nil
	}
	if n.Kind != yaml.SequenceNode {
		return b.errorf(n, "expected a list")
	}
	for _, item := range n.Content {
		if err := fn(item); err != nil {
			return err
		}
	}
	return nil
}

func str(n *yaml.Node) string {
	if n == nil {
		return ""
	}
	return n.Value
}

func boolean(n *yaml.Node, def bool) (bool, error) {
	if n == nil {
		return def, nil
	}
	var v bool
	if err := n.Decode(&v); err != nil {
		return false, err
	}
	return v, nil
}
