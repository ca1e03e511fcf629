package elab

import (
	"fmt"

	"martianoff/velab/internal/netlist"
	"martianoff/velab/internal/pform"
	"martianoff/velab/internal/verinum"
)

// elabGenerate expands one generate scheme inside s. Only the blocks that
// are taken get scopes.
func (c *elabContext) elabGenerate(s *netlist.Scope, gen pform.Generate) {
	if s == nil {
		return
	}
	c.traceScope(s, fmt.Sprintf("generate #%d", gen.Number()))
	switch g := gen.(type) {
	case *pform.GenerateFor:
		c.genFor(s, g)
	case *pform.GenerateIf:
		c.genIf(s, g)
	case *pform.GenerateCase:
		c.genCase(s, g)
	case *pform.GenerateBlock:
		c.genBlock(s, g, gen)
	}
}

func (c *elabContext) genvarDeclared(s *netlist.Scope, name string) bool {
	for cur := s; cur != nil; cur = c.scope(cur.Parent()) {
		if cur.Genvars[name] {
			return true
		}
		if isBoundary(cur.Kind()) {
			break
		}
	}
	return false
}

func (c *elabContext) genFor(s *netlist.Scope, g *pform.GenerateFor) {
	if !c.genvarDeclared(s, g.Var) {
		c.diag.Errorf(g, "genvar %s is not declared.", g.Var)
		return
	}
	if _, busy := c.genvars[g.Var]; busy {
		c.diag.Errorf(g, "genvar %s is already used by an enclosing loop.", g.Var)
		return
	}
	name := g.Block.Name
	if name == "" {
		if !c.cfg.Generate2005() {
			c.diag.Errorf(g, "a loop generate block must be named.")
			return
		}
		name = c.genblkName(s, g)
	}
	init, ok := c.constInt(g.Init, s)
	if !ok {
		return
	}
	defer delete(c.genvars, g.Var)

	seen := make(map[int64]bool)
	limit := c.cfg.Limits.MaxLoopIterations
	for v, n := init, 0; ; n++ {
		c.genvars[g.Var] = verinum.FromInt64(v, 32, true)
		cond, ok := c.constValue(g.Cond, s)
		if !ok || verinum.Truth(cond) != verinum.V1 {
			return
		}
		if seen[v] {
			c.diag.Errorf(g, "genvar %s takes the value %d twice.", g.Var, v)
			return
		}
		seen[v] = true
		if limit > 0 && n >= limit {
			c.diag.Errorf(g, "generate loop over %s exceeds %d iterations.", g.Var, limit)
			return
		}

		child := c.des.NewScope(s.ID(), netlist.Indexed(name, v), netlist.ScopeGenerate)
		child.LineInfo = loc(g.Block)
		child.Genvars[g.Var] = true
		child.AddParam(&netlist.Param{
			LineInfo:  loc(g),
			Name:      g.Var,
			EvalScope: child.ID(),
			Type:      netlist.IntegerType,
			Value:     netlist.NewConstExpr(verinum.FromInt64(v, 32, true)),
			Local:     true,
			Locked:    true,
			State:     netlist.ParamDone,
		})
		c.sources[child.ID()] = &scopeSource{lex: &g.Block.LexicalScope, items: &g.Block.ModuleItems, gen: g.Block}
		c.queue(scopeWork{scope: child.ID()})

		next, ok := c.constInt(g.Step, s)
		if !ok {
			return
		}
		v = next
	}
}

func (c *elabContext) genIf(s *netlist.Scope, g *pform.GenerateIf) {
	cond, ok := c.constValue(g.Cond, s)
	if !ok {
		return
	}
	// An undefined condition selects the else branch.
	if verinum.Truth(cond) == verinum.V1 {
		if g.Then != nil {
			c.genBlock(s, g.Then, g)
		}
	} else if g.Else != nil {
		c.genBlock(s, g.Else, g)
	}
}

func (c *elabContext) genCase(s *netlist.Scope, g *pform.GenerateCase) {
	sel, ok := c.constValue(g.Expr, s)
	if !ok {
		return
	}
	var dflt *pform.GenerateCaseItem
	for _, it := range g.Items {
		if it.Exprs == nil {
			if dflt != nil {
				c.diag.Errorf(it, "generate case has more than one default item.")
			}
			dflt = it
			continue
		}
		for _, e := range it.Exprs {
			v, ok := c.constValue(e, s)
			if !ok {
				continue
			}
			if verinum.CaseEq(sel, v).IsNonZero() {
				if it.Block != nil {
					c.genBlock(s, it.Block, g)
				}
				return
			}
		}
	}
	if dflt != nil && dflt.Block != nil {
		c.genBlock(s, dflt.Block, g)
	}
}

// genBlock elaborates a taken generate block. Before 2005 an unnamed block
// adds its items to the enclosing scope.
func (c *elabContext) genBlock(s *netlist.Scope, b *pform.GenerateBlock, owner pform.Generate) {
	if b.Nested != nil {
		c.elabGenerate(s, b.Nested)
		return
	}
	if b.Name == "" && !c.cfg.Generate2005() {
		src := c.sources[s.ID()]
		src.merged = append(src.merged, b)
		c.collectLexical(s, &b.LexicalScope, true)
		c.collectItems(s, &b.ModuleItems)
		return
	}
	name := b.Name
	if name == "" {
		name = c.genblkName(s, owner)
	} else if s.HasChildNamed(name) {
		c.diag.Errorf(b, "generate block name %s is already used in %s.", name, c.path(s))
		return
	}
	child := c.des.NewScope(s.ID(), netlist.Named(name), netlist.ScopeGenerate)
	child.LineInfo = loc(b)
	c.sources[child.ID()] = &scopeSource{lex: &b.LexicalScope, items: &b.ModuleItems, gen: b}
	c.queue(scopeWork{scope: child.ID()})
}

// genblkName picks genblk<N> for the construct numbered N, prefixing the
// number with zeros until it clashes with nothing in s.
func (c *elabContext) genblkName(s *netlist.Scope, g pform.Generate) string {
	num := fmt.Sprint(g.Number())
	src := c.sources[s.ID()]
	for {
		name := "genblk" + num
		if !s.HasChildNamed(name) && src.wire(name) == nil && s.Signal(name) == nil && s.Param(name) == nil {
			return name
		}
		num = "0" + num
	}
}
