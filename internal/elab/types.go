package elab

import (
	"martianoff/velab/internal/netlist"
	"martianoff/velab/internal/pform"
	"martianoff/velab/internal/verinum"
)

// elabType elaborates a declared type as seen from scope s. Results are
// cached per (type node, scope), so asking twice returns the same type.
// Failures report an error and return a usable placeholder.
func (c *elabContext) elabType(dt pform.DataType, s *netlist.Scope) netlist.Type {
	if dt == nil {
		return netlist.LogicScalar
	}
	key := typeKey{typ: dt, scope: s.ID()}
	entry, ok := c.types[key]
	if ok {
		switch entry.state {
		case stateDone:
			return entry.typ
		case stateInProgress:
			if !entry.reported {
				entry.reported = true
				c.diag.Errorf(dt, "circular type definition involving %s.", dt)
			}
			return netlist.IntegerType
		}
	} else {
		entry = &typeEntry{}
		c.types[key] = entry
	}
	entry.state = stateInProgress
	typ := c.elabTypeUncached(dt, s)
	entry.typ = typ
	entry.state = stateDone
	return typ
}

func (c *elabContext) elabTypeUncached(dt pform.DataType, s *netlist.Scope) netlist.Type {
	switch t := dt.(type) {
	case *pform.VectorType:
		return c.elabVector(t, s)
	case *pform.Atom2Type:
		if t.Width == 32 && t.Signed {
			return netlist.IntType
		}
		return &netlist.VectorType{Kind: netlist.BaseBool, Dims: []netlist.Range{{Msb: int64(t.Width - 1)}},
			IsSigned: t.Signed, Integer: true}
	case *pform.RealType:
		if t.Short {
			return &netlist.RealType{Short: true}
		}
		return netlist.RealValue
	case *pform.StringType:
		return netlist.StringValue
	case *pform.EventType:
		return netlist.EventValue
	case *pform.VoidType:
		return netlist.VoidValue
	case *pform.StructType:
		return c.elabStruct(t, s)
	case *pform.EnumType:
		return c.elabEnum(t, s)
	case *pform.ArrayType:
		elem := c.elabType(t.Elem, s)
		if t.Packed {
			return c.packedWith(elem, c.evalDims(t.Dims, s), t)
		}
		typ, words := c.elabUnpacked(elem, t.Dims, s, t)
		if len(words) > 0 {
			return &netlist.UnpackedArrayType{Elem: typ, Dims: words}
		}
		return typ
	case *pform.TypeRef:
		base, ok := c.lookupType(s, t.Package, t.Name)
		if !ok {
			c.diag.Errorf(t, "Unable to find type %s in %s.", t, c.path(s))
			return netlist.IntegerType
		}
		if len(t.Dims) == 0 {
			return base
		}
		return c.packedWith(base, c.evalDims(t.Dims, s), t)
	}
	c.diag.Sorryf(dt, "type %s is not supported.", dt)
	return netlist.IntegerType
}

func (c *elabContext) elabVector(t *pform.VectorType, s *netlist.Scope) netlist.Type {
	if t.Integer && len(t.Dims) == 0 {
		return netlist.IntegerType
	}
	kind := netlist.BaseLogic
	if t.Base == pform.VarBit {
		kind = netlist.BaseBool
	}
	dims := c.evalDims(t.Dims, s)
	if len(dims) == 0 && !t.Signed {
		if kind == netlist.BaseBool {
			return netlist.BoolScalar
		}
		if !t.Implicit {
			return netlist.LogicScalar
		}
	}
	return &netlist.VectorType{Kind: kind, Dims: dims, IsSigned: t.Signed, Integer: t.Integer, Implicit: t.Implicit}
}

// packedWith adds packed dimensions in front of a packed element type.
func (c *elabContext) packedWith(elem netlist.Type, dims []netlist.Range, n pform.Node) netlist.Type {
	if len(dims) == 0 {
		return elem
	}
	if !netlist.IsPacked(elem) {
		c.diag.Errorf(n, "packed dimensions need a packed element type, not %s.", elem)
		return elem
	}
	if v, ok := elem.(*netlist.VectorType); ok && !v.Integer {
		out := append(append([]netlist.Range(nil), dims...), v.Dims...)
		return &netlist.VectorType{Kind: v.Kind, Dims: out, IsSigned: v.IsSigned}
	}
	return &netlist.PackedArrayType{Elem: elem, Dims: dims}
}

// evalRange evaluates one fixed or size dimension.
func (c *elabContext) evalRange(r *pform.Range, s *netlist.Scope) (netlist.Range, bool) {
	switch r.Kind {
	case pform.RangeSize:
		n, ok := c.constInt(r.Msb, s)
		if !ok {
			return netlist.Range{}, false
		}
		if n <= 0 {
			c.diag.Errorf(r, "array size %d must be positive.", n)
			return netlist.Range{}, false
		}
		return netlist.Range{Msb: 0, Lsb: n - 1}, true
	case pform.RangeFixed:
		msb, ok1 := c.constInt(r.Msb, s)
		lsb, ok2 := c.constInt(r.Lsb, s)
		if !ok1 || !ok2 {
			return netlist.Range{}, false
		}
		return netlist.Range{Msb: msb, Lsb: lsb}, true
	}
	c.diag.Errorf(r, "dimension %s is not allowed here.", r)
	return netlist.Range{}, false
}

// evalDims evaluates packed dimensions. A dimension that fails to
// evaluate becomes a single bit so elaboration can go on.
func (c *elabContext) evalDims(dims []*pform.Range, s *netlist.Scope) []netlist.Range {
	if len(dims) == 0 {
		return nil
	}
	out := make([]netlist.Range, 0, len(dims))
	for _, d := range dims {
		r, ok := c.evalRange(d, s)
		if !ok {
			r = netlist.Range{}
		}
		out = append(out, r)
	}
	return out
}

// elabUnpacked applies unpacked dimensions to elem. When every dimension
// is fixed the element type is returned with the dimensions as words.
// Otherwise the dimensions are folded right to left into dynamic array
// and queue types and no words are returned.
func (c *elabContext) elabUnpacked(elem netlist.Type, dims []*pform.Range, s *netlist.Scope, n pform.Node) (netlist.Type, []netlist.Range) {
	allFixed := true
	for _, d := range dims {
		if d.Kind == pform.RangeDynamic || d.Kind == pform.RangeQueue {
			allFixed = false
		}
	}
	if allFixed {
		return elem, c.evalDims(dims, s)
	}
	cur := elem
	var fixed []netlist.Range
	for i := len(dims) - 1; i >= 0; i-- {
		d := dims[i]
		switch d.Kind {
		case pform.RangeDynamic:
			if len(fixed) > 0 {
				cur = &netlist.UnpackedArrayType{Elem: cur, Dims: fixed}
				fixed = nil
			}
			cur = &netlist.DArrayType{Elem: cur}
		case pform.RangeQueue:
			if len(fixed) > 0 {
				c.diag.Sorryf(d, "queues of unpacked arrays are not supported.")
				fixed = nil
			}
			cur = &netlist.QueueType{Elem: cur, MaxIndex: c.queueBound(d, s)}
		default:
			r, ok := c.evalRange(d, s)
			if !ok {
				r = netlist.Range{}
			}
			fixed = append([]netlist.Range{r}, fixed...)
		}
	}
	if len(fixed) > 0 {
		switch t := cur.(type) {
		case *netlist.DArrayType:
			t.Prefix = fixed
		case *netlist.QueueType:
			c.diag.Sorryf(n, "arrays of queues are not supported.")
		default:
			cur = &netlist.UnpackedArrayType{Elem: cur, Dims: fixed}
		}
	}
	return cur, nil
}

func (c *elabContext) queueBound(d *pform.Range, s *netlist.Scope) int64 {
	if d.Lsb == nil {
		return -1
	}
	v, ok := c.constValue(d.Lsb, s)
	if !ok {
		return -1
	}
	n, ok := v.AsInt64()
	if !ok || n < 0 {
		c.diag.Sorryf(d, "queue bound %s must be a non-negative constant.", d.Lsb)
		return -1
	}
	return n
}

func (c *elabContext) elabStruct(t *pform.StructType, s *netlist.Scope) netlist.Type {
	st := &netlist.StructType{Packed: t.Packed, Union: t.Union, IsSigned: t.Signed}
	seen := make(map[string]bool)
	for _, m := range t.Members {
		mt := c.elabType(m.Type, s)
		if t.Packed && !netlist.IsPacked(mt) {
			c.diag.Errorf(m, "member type %s of a packed struct or union must be packed.", mt)
			mt = netlist.LogicScalar
		}
		var init *verinum.Verinum
		if m.Init != nil {
			if t.Packed {
				c.diag.Errorf(m, "packed struct members cannot have default values.")
			} else if v, ok := c.constValue(m.Init, s); ok {
				init = v
			}
		}
		for _, name := range m.Names {
			if seen[name] {
				c.diag.Errorf(m, "duplicate struct member %s.", name)
				continue
			}
			seen[name] = true
			st.Members = append(st.Members, &netlist.StructMember{Name: name, Type: mt, Init: init})
		}
	}
	if !t.Packed {
		return st
	}
	if t.Union {
		w := int64(-1)
		for _, m := range st.Members {
			mw := m.Type.PackedWidth()
			if w >= 0 && mw != w {
				c.diag.Errorf(t, "members of a packed union must have the same width; %s is %d bits, expected %d.", m.Name, mw, w)
			}
			if w < 0 {
				w = mw
			}
		}
		return st
	}
	// The first member is the most significant.
	off := st.PackedWidth()
	for _, m := range st.Members {
		off -= m.Type.PackedWidth()
		m.Offset = off
	}
	return st
}

func (c *elabContext) elabEnum(t *pform.EnumType, s *netlist.Scope) netlist.Type {
	var base netlist.Type = netlist.IntType
	if t.Base != nil {
		base = c.elabType(t.Base, s)
	}
	switch base.(type) {
	case *netlist.VectorType, *netlist.PackedArrayType:
		if len(netlist.PackedDims(base)) > 1 {
			c.diag.Errorf(t, "enum base type %s must have at most one packed dimension.", base)
			base = netlist.IntType
		}
	default:
		c.diag.Errorf(t, "enum base type %s is not an integral type.", base)
		base = netlist.IntType
	}
	et := &netlist.EnumType{BaseType: base, Scope: s.ID()}
	width := int(base.PackedWidth())
	if width < 1 {
		width = 1
	}
	signed := base.Signed()
	twoState := !netlist.IsFourState(base)
	next := verinum.FromInt64(0, width, signed)
	for _, n := range t.Names {
		val := next
		if n.Value != nil {
			v, ok := c.constValue(n.Value, s)
			if !ok {
				v = verinum.New(width, verinum.Vx)
			}
			if v.Sized() && v.Width() > width {
				c.diag.Errorf(n, "enum literal %s value %s does not fit in %d bits.", n.Name, v, width)
			}
			val = v.Resize(width).WithSigned(signed)
		}
		if !val.IsDefined() && twoState {
			c.diag.Errorf(n, "enum literal %s has an x or z value in a 2-state enum.", n.Name)
			val = verinum.FromInt64(0, width, signed)
		}
		if et.Lookup(n.Name) != nil {
			c.diag.Errorf(n, "duplicate enum literal %s.", n.Name)
			continue
		}
		for _, prev := range et.Names {
			if prev.Value.Equal(val) {
				c.diag.Errorf(n, "enum literal %s has the same value as %s.", n.Name, prev.Name)
				break
			}
		}
		et.Names = append(et.Names, &netlist.EnumName{Name: n.Name, Value: val})
		next = verinum.Add(val, verinum.FromInt64(1, width, signed))
	}
	for _, n := range et.Names {
		if prev, ok := s.EnumNames[n.Name]; ok && prev != et {
			c.diag.Errorf(t, "enum literal %s is already declared in %s.", n.Name, c.path(s))
			continue
		}
		s.EnumNames[n.Name] = et
	}
	s.Enums = append(s.Enums, et)
	return et
}

// lookupType resolves a type name: typedefs, type parameters and classes
// in the enclosing scopes up to the module, then imports, then the
// compilation unit.
func (c *elabContext) lookupType(s *netlist.Scope, pkg, name string) (netlist.Type, bool) {
	if pkg != "" {
		ps := c.des.Package(pkg)
		if ps == nil {
			return nil, false
		}
		return c.lookupTypeLocal(ps, name)
	}
	for cur := s; cur != nil; cur = c.scope(cur.Parent()) {
		if t, ok := c.lookupTypeLocal(cur, name); ok {
			return t, true
		}
		if isBoundary(cur.Kind()) {
			break
		}
	}
	if unit := c.des.Unit(); unit != nil {
		return c.lookupTypeLocal(unit, name)
	}
	return nil, false
}

func (c *elabContext) lookupTypeLocal(s *netlist.Scope, name string) (netlist.Type, bool) {
	if dt, ok := s.Typedefs[name]; ok {
		return c.elabType(dt, s), true
	}
	if p := s.Param(name); p != nil && p.IsType {
		return c.paramType(s, p), true
	}
	if ct, ok := s.Classes[name]; ok {
		return ct, true
	}
	if id, ok := s.ImportNames[name]; ok {
		return c.lookupTypeLocal(c.scope(id), name)
	}
	if ps := c.wildcardSource(s, name); ps != nil {
		return c.lookupTypeLocal(ps, name)
	}
	return nil, false
}

// wildcardSource finds the package a wildcard import of s supplies name
// from, or nil.
func (c *elabContext) wildcardSource(s *netlist.Scope, name string) *netlist.Scope {
	if len(s.Imports) == 0 {
		return nil
	}
	pkgs := make([]string, 0, len(s.Imports))
	for _, id := range s.Imports {
		pkgs = append(pkgs, c.scope(id).BaseName())
	}
	info, err := c.reg.Visible(name, pkgs)
	if err != nil {
		c.diag.Errorf(s, "%v.", err)
		return nil
	}
	if info == nil {
		return nil
	}
	ps := c.scope(info.Scope)
	s.ImportNames[name] = info.Scope
	return ps
}
