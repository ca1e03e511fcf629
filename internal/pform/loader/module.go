package loader

import (
	"strings"

	"gopkg.in/yaml.v3"

	"martianoff/velab/internal/pform"
)

var itemKeys = append([]string{"defparams", "gates", "behaviors", "generate"}, scopeKeys...)

func (b *builder) module(n *yaml.Node) (*pform.Module, error) {
	allowed := append([]string{"name", "file", "ports", "unconnected_drive", "cell", "specify"}, itemKeys...)
	f, err := b.fields(n, allowed...)
	if err != nil {
		return nil, err
	}
	saved := b.file
	if file := str(f["file"]); file != "" {
		b.file = file
		defer func() { b.file = saved }()
	}
	m := &pform.Module{LineInfo: b.li(n), Name: str(f["name"])}
	if m.Name == "" {
		return nil, b.errorf(n, "module without a name")
	}
	switch str(f["unconnected_drive"]) {
	case "":
	case "pull0":
		m.UnconnectedDrive = pform.DrivePull0
	case "pull1":
		m.UnconnectedDrive = pform.DrivePull1
	default:
		return nil, b.errorf(f["unconnected_drive"], "unconnected_drive must be pull0 or pull1")
	}
	if m.IsCell, err = boolean(f["cell"], false); err != nil {
		return nil, err
	}
	lexPos := new(int)
	ordinal := new(int)
	err = b.inOrder(n, func(key string, val *yaml.Node) error {
		if key == "specify" {
			return b.eachItem(val, func(sn *yaml.Node) error {
				sp, err := b.specifyPath(sn)
				if err == nil {
					m.Specify = append(m.Specify, sp)
				}
				return err
			})
		}
		return b.item(key, val, &m.LexicalScope, &m.ModuleItems, lexPos, ordinal)
	})
	if err != nil {
		return nil, err
	}
	if f["ports"] != nil {
		err = b.eachItem(f["ports"], func(pn *yaml.Node) error {
			port, err := b.port(pn)
			if err == nil {
				m.Ports = append(m.Ports, port)
			}
			return err
		})
		if err != nil {
			return nil, err
		}
	} else {
		// ANSI style: ports are the port declarations in order.
		for _, w := range m.Wires {
			if w.PortDeclared {
				m.Ports = append(m.Ports, &pform.Port{LineInfo: w.LineInfo, Name: w.Name,
					Exprs: []*pform.EIdent{pform.Ident(w.LineInfo, w.Name)}})
			}
		}
	}
	return m, nil
}

// port parses a, {a, b}, .p(a[3:0]) or an empty string for an empty port.
func (b *builder) port(n *yaml.Node) (*pform.Port, error) {
	if n.Value == "" {
		return nil, nil
	}
	p, err := b.parser(n, nil)
	if err != nil {
		return nil, err
	}
	port := &pform.Port{LineInfo: b.li(n)}
	explicit := p.acceptOp(".")
	if explicit {
		if port.Name, err = p.expectIdent(); err != nil {
			return nil, err
		}
		if err := p.expectOp("("); err != nil {
			return nil, err
		}
		if p.acceptOp(")") {
			return port, p.expectEOF()
		}
	}
	e, err := p.parseLvalue()
	if err != nil {
		return nil, err
	}
	switch e := e.(type) {
	case *pform.EIdent:
		port.Exprs = []*pform.EIdent{e}
		if !explicit && !e.Path.HasIndices() {
			port.Name = e.Path.String()
		}
	case *pform.EConcat:
		for _, part := range e.Parms {
			id, ok := part.(*pform.EIdent)
			if !ok {
				return nil, b.errorf(n, "port expression %s is not a net reference", part)
			}
			port.Exprs = append(port.Exprs, id)
		}
	}
	if explicit {
		if err := p.expectOp(")"); err != nil {
			return nil, err
		}
	}
	return port, p.expectEOF()
}

func (b *builder) specifyPath(n *yaml.Node) (*pform.SpecifyPath, error) {
	f, err := b.fields(n, "from", "to", "delay")
	if err != nil {
		return nil, err
	}
	sp := &pform.SpecifyPath{LineInfo: b.li(n), From: names(f["from"]), To: names(f["to"])}
	if len(sp.From) == 0 || len(sp.To) == 0 {
		return nil, b.errorf(n, "specify path needs from and to")
	}
	sp.Delays, err = b.delays(f["delay"])
	return sp, err
}

// names accepts "a, b" or a list of names.
func names(n *yaml.Node) []string {
	if n == nil {
		return nil
	}
	var out []string
	if n.Kind == yaml.SequenceNode {
		for _, c := range n.Content {
			out = append(out, c.Value)
		}
		return out
	}
	for _, part := range strings.Split(n.Value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// item handles one module or generate block key.
func (b *builder) item(key string, val *yaml.Node, scope *pform.LexicalScope, items *pform.ModuleItems, lexPos, ordinal *int) error {
	if ok, err := b.scopeDecl(key, val, scope, lexPos); ok || err != nil {
		return err
	}
	switch key {
	case "defparams":
		return b.eachItem(val, func(n *yaml.Node) error {
			f, err := b.fields(n, "path", "value")
			if err != nil {
				return err
			}
			p, err := b.parser(f["path"], nil)
			if err != nil {
				return err
			}
			_, path, err := p.parseName()
			if err != nil {
				return err
			}
			value, err := b.expr(f["value"])
			if err != nil {
				return err
			}
			items.Defparams = append(items.Defparams, &pform.Defparam{LineInfo: b.li(n), Path: path, Value: value})
			return nil
		})
	case "gates":
		return b.eachItem(val, func(n *yaml.Node) error {
			*lexPos++
			g, err := b.gate(n, *lexPos)
			if err == nil {
				items.Gates = append(items.Gates, g)
			}
			return err
		})
	case "behaviors":
		return b.eachItem(val, func(n *yaml.Node) error {
			*lexPos++
			proc, err := b.behavior(n, *lexPos)
			if err == nil {
				items.Behaviors = append(items.Behaviors, proc)
			}
			return err
		})
	case "generate":
		return b.eachItem(val, func(n *yaml.Node) error {
			*ordinal++
			*lexPos++
			g, err := b.generate(n, *ordinal, *lexPos)
			if err == nil {
				items.Generates = append(items.Generates, g)
			}
			return err
		})
	}
	return nil
}

var processKinds = map[string]pform.ProcessKind{
	"initial": pform.ProcInitial, "always": pform.ProcAlways, "always_comb": pform.ProcAlwaysComb,
	"always_ff": pform.ProcAlwaysFF, "always_latch": pform.ProcAlwaysLatch, "final": pform.ProcFinal,
}

func (b *builder) behavior(n *yaml.Node, pos int) (*pform.Process, error) {
	f, err := b.fields(n, "kind", "body")
	if err != nil {
		return nil, err
	}
	kind, ok := processKinds[str(f["kind"])]
	if !ok {
		return nil, b.errorf(n, "unknown process kind %q", str(f["kind"]))
	}
	if f["body"] == nil {
		return nil, b.errorf(n, "process without a body")
	}
	body, err := b.statement(f["body"], new(int))
	if err != nil {
		return nil, err
	}
	return &pform.Process{LineInfo: b.li(n), Kind: kind, Body: body, LexicalPos: pos}, nil
}

// single returns the key and value of a one-entry mapping.
func (b *builder) single(n *yaml.Node) (string, *yaml.Node, error) {
	if n.Kind != yaml.MappingNode || len(n.Content) != 2 {
		return "", nil, b.errorf(n, "expected a mapping with a single key")
	}
	return n.Content[0].Value, n.Content[1], nil
}

func (b *builder) gate(n *yaml.Node, pos int) (pform.Gate, error) {
	key, val, err := b.single(n)
	if err != nil {
		return nil, err
	}
	switch key {
	case "assign":
		return b.gassign(val, pos)
	case "builtin":
		return b.gbuiltin(val, pos)
	case "instance":
		return b.ginstance(val, pos)
	}
	return nil, b.errorf(n, "unknown gate kind %q", key)
}

func (b *builder) gassign(n *yaml.Node, pos int) (*pform.GAssign, error) {
	f, err := b.fields(n, "lval", "rval", "delay", "strength")
	if err != nil {
		return nil, err
	}
	g := &pform.GAssign{LineInfo: b.li(n), LexicalPos: pos}
	p, err := b.parser(f["lval"], nil)
	if err != nil {
		return nil, err
	}
	if g.Lval, err = p.parseLvalue(); err != nil {
		return nil, err
	}
	if err := p.expectEOF(); err != nil {
		return nil, err
	}
	if g.Rval, err = b.expr(f["rval"]); err != nil {
		return nil, err
	}
	if g.Delays, err = b.delays(f["delay"]); err != nil {
		return nil, err
	}
	g.Drive, err = b.strength(f["strength"])
	return g, err
}

func (b *builder) gbuiltin(n *yaml.Node, pos int) (*pform.GBuiltin, error) {
	f, err := b.fields(n, "type", "name", "range", "pins", "delay", "strength")
	if err != nil {
		return nil, err
	}
	typ, ok := pform.ParseGateType(str(f["type"]))
	if !ok {
		return nil, b.errorf(n, "unknown primitive %q", str(f["type"]))
	}
	g := &pform.GBuiltin{LineInfo: b.li(n), Type: typ, Name: str(f["name"]), LexicalPos: pos}
	dims, err := b.ranges(f["range"])
	if err != nil {
		return nil, err
	}
	if len(dims) > 1 {
		return nil, b.errorf(n, "gate arrays take a single range")
	}
	if len(dims) == 1 {
		g.Range = dims[0]
	}
	err = b.eachItem(f["pins"], func(pn *yaml.Node) error {
		e, err := b.expr(pn)
		if err == nil {
			g.Pins = append(g.Pins, e)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	if g.Delays, err = b.delays(f["delay"]); err != nil {
		return nil, err
	}
	g.Drive, err = b.strength(f["strength"])
	return g, err
}

func (b *builder) paramValue(n *yaml.Node, name string) (*pform.ParamValue, error) {
	pv := &pform.ParamValue{LineInfo: b.li(n), Name: name}
	if n.Kind == yaml.MappingNode {
		f, err := b.fields(n, "type")
		if err != nil {
			return nil, err
		}
		pv.Type, err = b.dataType(f["type"])
		return pv, err
	}
	var err error
	pv.Expr, err = b.expr(n)
	return pv, err
}

func (b *builder) ginstance(n *yaml.Node, pos int) (*pform.GModule, error) {
	f, err := b.fields(n, "module", "name", "range", "params", "ports", "wildcard", "delay", "strength")
	if err != nil {
		return nil, err
	}
	g := &pform.GModule{LineInfo: b.li(n), Type: str(f["module"]), Name: str(f["name"]), LexicalPos: pos}
	if g.Type == "" {
		return nil, b.errorf(n, "instance without a module type")
	}
	if g.Ranges, err = b.ranges(f["range"]); err != nil {
		return nil, err
	}
	if pn := f["params"]; pn != nil {
		switch pn.Kind {
		case yaml.MappingNode:
			for i := 0; i+1 < len(pn.Content); i += 2 {
				pv, err := b.paramValue(pn.Content[i+1], pn.Content[i].Value)
				if err != nil {
					return nil, err
				}
				g.ParamsNamed = append(g.ParamsNamed, pv)
			}
		case yaml.SequenceNode:
			for _, item := range pn.Content {
				pv, err := b.paramValue(item, "")
				if err != nil {
					return nil, err
				}
				g.ParamsPos = append(g.ParamsPos, pv)
			}
		default:
			return nil, b.errorf(pn, "params must be a mapping or a list")
		}
	}
	if pn := f["ports"]; pn != nil {
		switch pn.Kind {
		case yaml.MappingNode:
			for i := 0; i+1 < len(pn.Content); i += 2 {
				pin := &pform.NamedPin{LineInfo: b.li(pn.Content[i]), Name: pn.Content[i].Value}
				if v := pn.Content[i+1]; v.Value != "" {
					if pin.Expr, err = b.expr(v); err != nil {
						return nil, err
					}
				}
				g.PinsNamed = append(g.PinsNamed, pin)
			}
		case yaml.SequenceNode:
			for _, item := range pn.Content {
				var e pform.Expr
				if item.Value != "" {
					if e, err = b.expr(item); err != nil {
						return nil, err
					}
				}
				g.PinsPos = append(g.PinsPos, e)
			}
		default:
			return nil, b.errorf(pn, "ports must be a mapping or a list")
		}
	}
	if g.Wildcard, err = boolean(f["wildcard"], false); err != nil {
		return nil, err
	}
	if g.Delays, err = b.delays(f["delay"]); err != nil {
		return nil, err
	}
	g.Drive, err = b.strength(f["strength"])
	return g, err
}

// ---- generate ----

func (b *builder) generate(n *yaml.Node, ordinal, pos int) (pform.Generate, error) {
	key, val, err := b.single(n)
	if err != nil {
		return nil, err
	}
	switch key {
	case "for":
		f, err := b.fields(val, "var", "init", "cond", "step", "block")
		if err != nil {
			return nil, err
		}
		g := &pform.GenerateFor{LineInfo: b.li(val), Var: str(f["var"]), Ordinal: ordinal, LexicalPos: pos}
		if g.Init, err = b.expr(f["init"]); err != nil {
			return nil, err
		}
		if g.Cond, err = b.expr(f["cond"]); err != nil {
			return nil, err
		}
		if g.Step, err = b.expr(f["step"]); err != nil {
			return nil, err
		}
		if f["block"] == nil {
			return nil, b.errorf(val, "generate for without a block")
		}
		g.Block, err = b.genBlock(f["block"], ordinal)
		return g, err
	case "if":
		f, err := b.fields(val, "cond", "then", "else")
		if err != nil {
			return nil, err
		}
		g := &pform.GenerateIf{LineInfo: b.li(val), Ordinal: ordinal, LexicalPos: pos}
		if g.Cond, err = b.expr(f["cond"]); err != nil {
			return nil, err
		}
		if f["then"] != nil {
			if g.Then, err = b.genBlock(f["then"], ordinal); err != nil {
				return nil, err
			}
		}
		if f["else"] != nil {
			if g.Else, err = b.genBlock(f["else"], ordinal); err != nil {
				return nil, err
			}
		}
		return g, nil
	case "case":
		f, err := b.fields(val, "expr", "items")
		if err != nil {
			return nil, err
		}
		g := &pform.GenerateCase{LineInfo: b.li(val), Ordinal: ordinal, LexicalPos: pos}
		if g.Expr, err = b.expr(f["expr"]); err != nil {
			return nil, err
		}
		err = b.eachItem(f["items"], func(in *yaml.Node) error {
			itf, err := b.fields(in, "exprs", "default", "block")
			if err != nil {
				return err
			}
			item := &pform.GenerateCaseItem{LineInfo: b.li(in)}
			isDefault, err := boolean(itf["default"], false)
			if err != nil {
				return err
			}
			if !isDefault {
				err = b.eachItem(itf["exprs"], func(en *yaml.Node) error {
					e, err := b.expr(en)
					if err == nil {
						item.Exprs = append(item.Exprs, e)
					}
					return err
				})
				if err != nil {
					return err
				}
				if len(item.Exprs) == 0 {
					return b.errorf(in, "case item without expressions")
				}
			}
			if itf["block"] != nil {
				if item.Block, err = b.genBlock(itf["block"], ordinal); err != nil {
					return err
				}
			}
			g.Items = append(g.Items, item)
			return nil
		})
		return g, err
	case "block":
		blk, err := b.genBlock(val, ordinal)
		if err != nil {
			return nil, err
		}
		blk.LexicalPos = pos
		return blk, nil
	}
	return nil, b.errorf(n, "unknown generate construct %q", key)
}

// genBlock builds the body of a generate scheme. A body that is only a
// nested if or case becomes a direct nested construct.
func (b *builder) genBlock(n *yaml.Node, ordinal int) (*pform.GenerateBlock, error) {
	blk := &pform.GenerateBlock{LineInfo: b.li(n), Ordinal: ordinal}
	if n.Kind == yaml.MappingNode && len(n.Content) == 2 {
		if key := n.Content[0].Value; key == "if" || key == "case" {
			nested, err := b.generate(n, ordinal, 0)
			if err != nil {
				return nil, err
			}
			blk.Nested = nested
			return blk, nil
		}
	}
	f, err := b.fields(n, append([]string{"name"}, itemKeys...)...)
	if err != nil {
		return nil, err
	}
	blk.Name = str(f["name"])
	lexPos := new(int)
	inner := new(int)
	err = b.inOrder(n, func(key string, val *yaml.Node) error {
		return b.item(key, val, &blk.LexicalScope, &blk.ModuleItems, lexPos, inner)
	})
	return blk, err
}
