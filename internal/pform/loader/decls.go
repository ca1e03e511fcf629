package loader

import (
	"strings"

	"gopkg.in/yaml.v3"

	"martianoff/velab/internal/pform"
)

var scopeKeys = []string{
	"parameters", "localparams", "wires", "typedefs", "events", "genvars",
	"tasks", "functions", "classes", "imports",
}

// scopeDecl handles one declaration key shared by all scope kinds.
func (b *builder) scopeDecl(key string, val *yaml.Node, scope *pform.LexicalScope, lexPos *int) (bool, error) {
	switch key {
	case "parameters", "localparams":
		return true, b.eachItem(val, func(n *yaml.Node) error {
			prm, err := b.parameter(n, key == "localparams", lexPos)
			if err == nil {
				scope.Parameters = append(scope.Parameters, prm)
			}
			return err
		})
	case "wires":
		return true, b.eachItem(val, func(n *yaml.Node) error {
			w, err := b.wire(n, pform.NetNone, lexPos)
			if err == nil {
				scope.Wires = append(scope.Wires, w)
			}
			return err
		})
	case "typedefs":
		return true, b.eachItem(val, func(n *yaml.Node) error {
			f, err := b.fields(n, "name", "type")
			if err != nil {
				return err
			}
			t, err := b.dataType(f["type"])
			if err != nil {
				return err
			}
			*lexPos++
			scope.Typedefs = append(scope.Typedefs, &pform.Typedef{LineInfo: b.li(n), Name: str(f["name"]), Type: t})
			return nil
		})
	case "events":
		return true, b.eachItem(val, func(n *yaml.Node) error {
			*lexPos++
			scope.Events = append(scope.Events, &pform.NamedEvent{LineInfo: b.li(n), Name: n.Value, LexicalPos: *lexPos})
			return nil
		})
	case "genvars":
		return true, b.eachItem(val, func(n *yaml.Node) error {
			scope.Genvars = append(scope.Genvars, n.Value)
			return nil
		})
	case "tasks":
		return true, b.eachItem(val, func(n *yaml.Node) error {
			t, err := b.task(n)
			if err == nil {
				scope.Tasks = append(scope.Tasks, t)
			}
			return err
		})
	case "functions":
		return true, b.eachItem(val, func(n *yaml.Node) error {
			f, err := b.function(n)
			if err == nil {
				scope.Functions = append(scope.Functions, f)
			}
			return err
		})
	case "classes":
		return true, b.eachItem(val, func(n *yaml.Node) error {
			c, err := b.class(n)
			if err == nil {
				scope.Classes = append(scope.Classes, c)
			}
			return err
		})
	case "imports":
		return true, b.eachItem(val, func(n *yaml.Node) error {
			pkg, name, ok := strings.Cut(n.Value, "::")
			if !ok {
				return b.errorf(n, "import %q must be pkg::name or pkg::*", n.Value)
			}
			scope.Imports = append(scope.Imports, &pform.Import{LineInfo: b.li(n), Package: pkg, Name: name})
			return nil
		})
	}
	return false, nil
}

func (b *builder) scopeDecls(n *yaml.Node, scope *pform.LexicalScope, lexPos *int) error {
	if _, err := b.fields(n, scopeKeys...); err != nil {
		return err
	}
	return b.inOrder(n, func(key string, val *yaml.Node) error {
		_, err := b.scopeDecl(key, val, scope, lexPos)
		return err
	})
}

// inOrder walks mapping entries in document order.
func (b *builder) inOrder(n *yaml.Node, fn func(string, *yaml.Node) error) error {
	for i := 0; i+1 < len(n.Content); i += 2 {
		if err := fn(n.Content[i].Value, n.Content[i+1]); err != nil {
			return err
		}
	}
	return nil
}

func (b *builder) parameter(n *yaml.Node, local bool, lexPos *int) (*pform.Parameter, error) {
	f, err := b.fields(n, "name", "value", "type", "local", "overridable", "is_type")
	if err != nil {
		return nil, err
	}
	*lexPos++
	prm := &pform.Parameter{LineInfo: b.li(n), Name: str(f["name"]), LexicalPos: *lexPos}
	if prm.Local, err = boolean(f["local"], local); err != nil {
		return nil, err
	}
	if prm.Overridable, err = boolean(f["overridable"], true); err != nil {
		return nil, err
	}
	if prm.IsType, err = boolean(f["is_type"], false); err != nil {
		return nil, err
	}
	if prm.IsType {
		if f["type"] != nil {
			prm.TypeValue, err = b.dataType(f["type"])
		}
		return prm, err
	}
	if f["type"] != nil {
		if prm.Type, err = b.dataType(f["type"]); err != nil {
			return nil, err
		}
	}
	if f["value"] == nil {
		return nil, b.errorf(n, "parameter %s has no value", prm.Name)
	}
	prm.Expr, err = b.expr(f["value"])
	return prm, err
}

var portTypes = map[string]pform.PortType{
	"input": pform.PortInput, "output": pform.PortOutput, "inout": pform.PortInout, "ref": pform.PortRef,
}

// wire builds a declaration. defKind is used when neither kind nor type
// is given and the declaration is a port.
func (b *builder) wire(n *yaml.Node, defKind pform.NetType, lexPos *int) (*pform.Wire, error) {
	f, err := b.fields(n, "name", "port", "kind", "range", "port_range", "net_range",
		"signed", "type", "unpacked", "init", "const", "discipline")
	if err != nil {
		return nil, err
	}
	*lexPos++
	w := &pform.Wire{LineInfo: b.li(n), Name: str(f["name"]), LexicalPos: *lexPos, Discipline: str(f["discipline"])}
	if w.Name == "" {
		return nil, b.errorf(n, "declaration without a name")
	}
	if p := str(f["port"]); p != "" {
		pt, ok := portTypes[p]
		if !ok {
			return nil, b.errorf(n, "unknown port direction %q", p)
		}
		w.Port = pt
		w.PortDeclared = true
	}
	if k := str(f["kind"]); k != "" {
		if k == "logic" {
			w.Kind = pform.NetReg
			w.Type = &pform.VectorType{LineInfo: w.LineInfo, Base: pform.VarLogic}
		} else {
			kind, ok := pform.ParseNetType(k)
			if !ok {
				return nil, b.errorf(n, "unknown net kind %q", k)
			}
			w.Kind = kind
		}
		w.NetDeclared = true
	}
	if f["type"] != nil {
		if w.Type, err = b.dataType(f["type"]); err != nil {
			return nil, err
		}
		w.NetDeclared = true
		if w.Kind == pform.NetNone {
			w.Kind = pform.NetReg
		}
	}
	if w.Kind == pform.NetNone {
		switch {
		case w.PortDeclared && defKind != pform.NetNone:
			w.Kind = defKind
		case w.PortDeclared:
			w.Kind = pform.NetImplicit
		default:
			w.Kind = pform.NetWire
			w.NetDeclared = true
		}
	}
	if w.Signed, err = boolean(f["signed"], false); err != nil {
		return nil, err
	}
	if w.Const, err = boolean(f["const"], false); err != nil {
		return nil, err
	}
	dims, err := b.ranges(f["range"])
	if err != nil {
		return nil, err
	}
	if w.PortDeclared {
		w.PortRange = dims
	}
	if w.NetDeclared {
		w.NetRange = dims
	}
	if f["port_range"] != nil {
		if w.PortRange, err = b.ranges(f["port_range"]); err != nil {
			return nil, err
		}
	}
	if f["net_range"] != nil {
		if w.NetRange, err = b.ranges(f["net_range"]); err != nil {
			return nil, err
		}
		w.NetDeclared = true
	}
	if w.Unpacked, err = b.ranges(f["unpacked"]); err != nil {
		return nil, err
	}
	if w.Init, err = b.optExpr(f["init"]); err != nil {
		return nil, err
	}
	return w, nil
}

func (b *builder) taskInto(n *yaml.Node, t *pform.Task, extra ...string) (map[string]*yaml.Node, error) {
	allowed := append([]string{"name", "automatic", "ports", "body"}, scopeKeys...)
	f, err := b.fields(n, append(allowed, extra...)...)
	if err != nil {
		return nil, err
	}
	t.LineInfo = b.li(n)
	t.Name = str(f["name"])
	if t.Automatic, err = boolean(f["automatic"], false); err != nil {
		return nil, err
	}
	lexPos := new(int)
	err = b.eachItem(f["ports"], func(pn *yaml.Node) error {
		w, err := b.wire(pn, pform.NetImplicitReg, lexPos)
		if err != nil {
			return err
		}
		if !w.PortDeclared {
			w.Port, w.PortDeclared = pform.PortInput, true
		}
		t.Ports = append(t.Ports, w)
		return nil
	})
	if err != nil {
		return nil, err
	}
	err = b.inOrder(n, func(key string, val *yaml.Node) error {
		_, err := b.scopeDecl(key, val, &t.LexicalScope, lexPos)
		return err
	})
	if err != nil {
		return nil, err
	}
	if f["body"] != nil {
		if t.Body, err = b.statement(f["body"], lexPos); err != nil {
			return nil, err
		}
	}
	return f, nil
}

func (b *builder) task(n *yaml.Node) (*pform.Task, error) {
	t := &pform.Task{}
	_, err := b.taskInto(n, t)
	return t, err
}

func (b *builder) function(n *yaml.Node) (*pform.Function, error) {
	fn := &pform.Function{}
	f, err := b.taskInto(n, &fn.Task, "returns")
	if err != nil {
		return nil, err
	}
	if f["returns"] != nil {
		if fn.Return, err = b.dataType(f["returns"]); err != nil {
			return nil, err
		}
	} else {
		fn.Return = &pform.VectorType{LineInfo: fn.LineInfo, Base: pform.VarLogic, Implicit: true}
	}
	return fn, nil
}

func (b *builder) class(n *yaml.Node) (*pform.Class, error) {
	f, err := b.fields(n, append([]string{"name", "extends", "virtual", "properties"}, scopeKeys...)...)
	if err != nil {
		return nil, err
	}
	c := &pform.Class{LineInfo: b.li(n), Name: str(f["name"]), Extends: str(f["extends"])}
	if c.Virtual, err = boolean(f["virtual"], false); err != nil {
		return nil, err
	}
	err = b.eachItem(f["properties"], func(pn *yaml.Node) error {
		pf, err := b.fields(pn, "name", "type", "static", "const", "local", "init")
		if err != nil {
			return err
		}
		prop := &pform.ClassProperty{LineInfo: b.li(pn), Name: str(pf["name"])}
		if prop.Type, err = b.dataType(pf["type"]); err != nil {
			return err
		}
		if prop.Static, err = boolean(pf["static"], false); err != nil {
			return err
		}
		if prop.Const, err = boolean(pf["const"], false); err != nil {
			return err
		}
		if prop.Local, err = boolean(pf["local"], false); err != nil {
			return err
		}
		if prop.Init, err = b.optExpr(pf["init"]); err != nil {
			return err
		}
		c.Properties = append(c.Properties, prop)
		return nil
	})
	if err != nil {
		return nil, err
	}
	lexPos := new(int)
	err = b.inOrder(n, func(key string, val *yaml.Node) error {
		_, err := b.scopeDecl(key, val, &c.LexicalScope, lexPos)
		return err
	})
	return c, err
}

func (b *builder) pkg(n *yaml.Node) (*pform.Package, error) {
	f, err := b.fields(n, append([]string{"name"}, scopeKeys...)...)
	if err != nil {
		return nil, err
	}
	pkg := &pform.Package{LineInfo: b.li(n), Name: str(f["name"])}
	lexPos := new(int)
	err = b.inOrder(n, func(key string, val *yaml.Node) error {
		_, err := b.scopeDecl(key, val, &pkg.LexicalScope, lexPos)
		return err
	})
	return pkg, err
}

func (b *builder) udp(n *yaml.Node) (*pform.UDP, error) {
	f, err := b.fields(n, "name", "ports", "sequential", "table", "initial")
	if err != nil {
		return nil, err
	}
	u := &pform.UDP{LineInfo: b.li(n), Name: str(f["name"])}
	if f["ports"] != nil {
		if err := f["ports"].Decode(&u.Ports); err != nil {
			return nil, err
		}
	}
	if len(u.Ports) < 2 {
		return nil, b.errorf(n, "primitive %s needs an output and at least one input", u.Name)
	}
	if u.Sequential, err = boolean(f["sequential"], false); err != nil {
		return nil, err
	}
	if f["table"] != nil {
		if err := f["table"].Decode(&u.Table); err != nil {
			return nil, err
		}
	}
	u.Initial, err = b.optExpr(f["initial"])
	return u, err
}
