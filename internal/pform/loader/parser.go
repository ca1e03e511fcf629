package loader

import (
	"fmt"
	"strconv"

	"martianoff/velab/internal/pform"
	"martianoff/velab/internal/verinum"
)

// parser is a recursive descent parser over one YAML scalar written in
// Verilog surface syntax.
type parser struct {
	file string
	toks []token
	pos  int
	// lexical position counter shared with the owning scope
	lexPos *int
}

func newParser(file string, src string, line int, lexPos *int) (*parser, error) {
	toks, err := tokenize(src, line)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", file, err)
	}
	if lexPos == nil {
		lexPos = new(int)
	}
	return &parser{file: file, toks: toks, lexPos: lexPos}, nil
}

func (p *parser) peek() token { return p.toks[p.pos] }

func (p *parser) peekN(n int) token {
	if p.pos+n < len(p.toks) {
		return p.toks[p.pos+n]
	}
	return p.toks[len(p.toks)-1]
}

func (p *parser) advance() token {
	t := p.toks[p.pos]
	if t.kind != tkEOF {
		p.pos++
	}
	return t
}

func (p *parser) li() pform.LineInfo {
	return pform.LineInfo{File: p.file, Line: p.peek().line}
}

func (p *parser) errorf(format string, args ...any) error {
	return fmt.Errorf("%s:%d: %s", p.file, p.peek().line, fmt.Sprintf(format, args...))
}

func (p *parser) isOp(text string) bool {
	t := p.peek()
	return t.kind == tkOp && t.text == text
}

func (p *parser) isKeyword(text string) bool {
	t := p.peek()
	return t.kind == tkIdent && t.text == text
}

func (p *parser) acceptOp(text string) bool {
	if p.isOp(text) {
		p.advance()
		return true
	}
	return false
}

func (p *parser) acceptKeyword(text string) bool {
	if p.isKeyword(text) {
		p.advance()
		return true
	}
	return false
}

func (p *parser) expectOp(text string) error {
	if !p.acceptOp(text) {
		return p.errorf("expected %q, found %s", text, p.peek())
	}
	return nil
}

func (p *parser) expectKeyword(text string) error {
	if !p.acceptKeyword(text) {
		return p.errorf("expected %q, found %s", text, p.peek())
	}
	return nil
}

func (p *parser) expectIdent() (string, error) {
	t := p.peek()
	if t.kind != tkIdent || reserved[t.text] {
		return "", p.errorf("expected identifier, found %s", t)
	}
	p.advance()
	return t.text, nil
}

func (p *parser) atEOF() bool { return p.peek().kind == tkEOF }

func (p *parser) expectEOF() error {
	if !p.atEOF() {
		return p.errorf("unexpected %s", p.peek())
	}
	return nil
}

var reserved = map[string]bool{
	"begin": true, "end": true, "fork": true, "join": true, "join_any": true, "join_none": true,
	"if": true, "else": true, "case": true, "casex": true, "casez": true, "endcase": true,
	"default": true, "for": true, "while": true, "do": true, "repeat": true, "forever": true,
	"foreach": true, "wait": true, "disable": true, "return": true, "break": true,
	"continue": true, "posedge": true, "negedge": true, "edge": true, "or": true,
	"logic": true, "reg": true, "bit": true, "integer": true, "int": true, "shortint": true,
	"longint": true, "byte": true, "real": true, "shortreal": true, "realtime": true,
	"string": true, "time": true, "signed": true, "unsigned": true, "struct": true,
	"union": true, "enum": true, "packed": true, "null": true, "event": true, "void": true,
}

var typeKeywords = map[string]bool{
	"logic": true, "reg": true, "bit": true, "integer": true, "int": true, "shortint": true,
	"longint": true, "byte": true, "real": true, "shortreal": true, "realtime": true,
	"string": true, "time": true, "signed": true, "unsigned": true, "struct": true,
	"union": true, "enum": true, "event": true, "void": true,
}

// ---- expressions ----

var binaryPrec = map[string]int{
	"||": 1,
	"&&": 2,
	"|":  3,
	"^":  4, "~^": 4, "^~": 4,
	"&":  5,
	"==": 6, "!=": 6, "===": 6, "!==": 6, "==?": 6, "!=?": 6,
	"<": 7, "<=": 7, ">": 7, ">=": 7,
	"<<": 8, ">>": 8, "<<<": 8, ">>>": 8,
	"+": 9, "-": 9,
	"*": 10, "/": 10, "%": 10,
	"**": 11,
}

func (p *parser) parseExpr() (pform.Expr, error) {
	cond, err := p.parseBinary(1)
	if err != nil {
		return nil, err
	}
	if !p.isOp("?") {
		return cond, nil
	}
	li := p.li()
	p.advance()
	t, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if err := p.expectOp(":"); err != nil {
		return nil, err
	}
	f, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	return &pform.ETernary{LineInfo: li, Cond: cond, True: t, False: f}, nil
}

func (p *parser) parseBinary(minPrec int) (pform.Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		t := p.peek()
		prec, ok := binaryPrec[t.text]
		if t.kind != tkOp || !ok || prec < minPrec {
			return left, nil
		}
		li := p.li()
		p.advance()
		right, err := p.parseBinary(prec + 1)
		if err != nil {
			return nil, err
		}
		left = &pform.EBinary{LineInfo: li, Op: t.text, Left: left, Right: right}
	}
}

var unaryOps = map[string]bool{
	"-": true, "+": true, "~": true, "!": true, "&": true, "|": true, "^": true,
	"~&": true, "~|": true, "~^": true, "^~": true,
}

func (p *parser) parseUnary() (pform.Expr, error) {
	t := p.peek()
	if t.kind == tkOp && unaryOps[t.text] {
		li := p.li()
		p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		op := t.text
		if op == "^~" {
			op = "~^"
		}
		return &pform.EUnary{LineInfo: li, Op: op, Operand: operand}, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (pform.Expr, error) {
	li := p.li()
	t := p.peek()
	switch t.kind {
	case tkNumber:
		p.advance()
		v, err := verinum.Parse(t.text)
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %w", p.file, t.line, err)
		}
		num := &pform.ENumber{LineInfo: li, Value: v}
		if p.isOp("'") && p.peekN(1).text == "(" {
			return p.parseCastTail(li, &pform.ECast{Width: num})
		}
		return num, nil
	case tkReal:
		p.advance()
		f, err := strconv.ParseFloat(t.text, 64)
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %w", p.file, t.line, err)
		}
		return &pform.EReal{LineInfo: li, Value: f}, nil
	case tkString:
		p.advance()
		return &pform.EString{LineInfo: li, Value: t.text}, nil
	case tkSysIdent:
		return p.parseSysCall()
	case tkOp:
		switch t.text {
		case "(":
			p.advance()
			e, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			return e, p.expectOp(")")
		case "{":
			return p.parseConcat()
		}
	case tkIdent:
		switch t.text {
		case "null":
			p.advance()
			return &pform.ENull{LineInfo: li}, nil
		case "signed", "unsigned":
			if p.peekN(1).text == "'" {
				p.advance()
				s := t.text == "signed"
				return p.parseCastTail(li, &pform.ECast{Signed: &s})
			}
		}
		if typeKeywords[t.text] {
			typ, err := p.parseType()
			if err != nil {
				return nil, err
			}
			if p.isOp("'") {
				return p.parseCastTail(li, &pform.ECast{Type: typ})
			}
			return &pform.ETypeRef{LineInfo: li, Type: typ}, nil
		}
		return p.parseIdentExpr()
	}
	return nil, p.errorf("unexpected %s in expression", t)
}

func (p *parser) parseCastTail(li pform.LineInfo, cast *pform.ECast) (pform.Expr, error) {
	if err := p.expectOp("'"); err != nil {
		return nil, err
	}
	if err := p.expectOp("("); err != nil {
		return nil, err
	}
	e, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	cast.LineInfo = li
	cast.Expr = e
	return cast, p.expectOp(")")
}

func (p *parser) parseSysCall() (pform.Expr, error) {
	li := p.li()
	name := p.advance().text
	call := &pform.ESysCall{LineInfo: li, Name: name}
	if !p.acceptOp("(") {
		return call, nil
	}
	if p.acceptOp(")") {
		return call, nil
	}
	for {
		var arg pform.Expr
		var err error
		if p.isOp(",") || p.isOp(")") {
			arg = nil
		} else {
			arg, err = p.parseExpr()
			if err != nil {
				return nil, err
			}
		}
		call.Args = append(call.Args, arg)
		if p.acceptOp(")") {
			return call, nil
		}
		if err := p.expectOp(","); err != nil {
			return nil, err
		}
	}
}

func (p *parser) parseConcat() (pform.Expr, error) {
	li := p.li()
	if err := p.expectOp("{"); err != nil {
		return nil, err
	}
	first, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if p.isOp("{") {
		inner, err := p.parseConcat()
		if err != nil {
			return nil, err
		}
		if err := p.expectOp("}"); err != nil {
			return nil, err
		}
		ic := inner.(*pform.EConcat)
		if ic.Repeat != nil {
			return &pform.EConcat{LineInfo: li, Repeat: first, Parms: []pform.Expr{ic}}, nil
		}
		return &pform.EConcat{LineInfo: li, Repeat: first, Parms: ic.Parms}, nil
	}
	parms := []pform.Expr{first}
	for p.acceptOp(",") {
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		parms = append(parms, e)
	}
	if err := p.expectOp("}"); err != nil {
		return nil, err
	}
	return &pform.EConcat{LineInfo: li, Parms: parms}, nil
}

// parseName parses a.b[3].c[7:0].
func (p *parser) parseName() (string, pform.Name, error) {
	var pkg string
	first, err := p.expectIdent()
	if err != nil {
		return "", nil, err
	}
	if p.acceptOp("::") {
		pkg = first
		first, err = p.expectIdent()
		if err != nil {
			return "", nil, err
		}
	}
	name := pform.Name{{Name: first}}
	for {
		switch {
		case p.isOp("["):
			ix, err := p.parseIndex()
			if err != nil {
				return "", nil, err
			}
			last := &name[len(name)-1]
			last.Index = append(last.Index, ix)
		case p.isOp(".") && p.peekN(1).kind == tkIdent:
			p.advance()
			id, err := p.expectIdent()
			if err != nil {
				return "", nil, err
			}
			name = append(name, pform.NameComponent{Name: id})
		default:
			return pkg, name, nil
		}
	}
}

func (p *parser) parseIndex() (*pform.Index, error) {
	if err := p.expectOp("["); err != nil {
		return nil, err
	}
	msb, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	ix := &pform.Index{Sel: pform.SelBit, Msb: msb}
	switch {
	case p.acceptOp(":"):
		ix.Sel = pform.SelPart
	case p.acceptOp("+:"):
		ix.Sel = pform.SelIdxUp
	case p.acceptOp("-:"):
		ix.Sel = pform.SelIdxDown
	}
	if ix.Sel != pform.SelBit {
		ix.Lsb, err = p.parseExpr()
		if err != nil {
			return nil, err
		}
	}
	return ix, p.expectOp("]")
}

func (p *parser) parseIdentExpr() (pform.Expr, error) {
	li := p.li()
	pkg, name, err := p.parseName()
	if err != nil {
		return nil, err
	}
	if p.isOp("(") {
		args, err := p.parseArgs()
		if err != nil {
			return nil, err
		}
		return &pform.ECall{LineInfo: li, Package: pkg, Path: name, Args: args}, nil
	}
	id := &pform.EIdent{LineInfo: li, Package: pkg, Path: name}
	if p.isOp("'") && p.peekN(1).text == "(" {
		return p.parseCastTail(li, &pform.ECast{Width: id})
	}
	return id, nil
}

func (p *parser) parseArgs() ([]pform.Expr, error) {
	if err := p.expectOp("("); err != nil {
		return nil, err
	}
	var args []pform.Expr
	if p.acceptOp(")") {
		return args, nil
	}
	for {
		if p.isOp(",") || p.isOp(")") {
			args = append(args, nil)
		} else {
			e, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			args = append(args, e)
		}
		if p.acceptOp(")") {
			return args, nil
		}
		if err := p.expectOp(","); err != nil {
			return nil, err
		}
	}
}

// ---- ranges and types ----

func (p *parser) parseRanges() ([]*pform.Range, error) {
	var dims []*pform.Range
	for p.isOp("[") {
		r, err := p.parseRange()
		if err != nil {
			return nil, err
		}
		dims = append(dims, r)
	}
	return dims, nil
}

func (p *parser) parseRange() (*pform.Range, error) {
	li := p.li()
	if err := p.expectOp("["); err != nil {
		return nil, err
	}
	if p.acceptOp("]") {
		return &pform.Range{LineInfo: li, Kind: pform.RangeDynamic}, nil
	}
	if p.acceptOp("$") {
		r := &pform.Range{LineInfo: li, Kind: pform.RangeQueue}
		if p.acceptOp(":") {
			bound, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			r.Lsb = bound
		}
		return r, p.expectOp("]")
	}
	msb, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if p.acceptOp("]") {
		return &pform.Range{LineInfo: li, Kind: pform.RangeSize, Msb: msb}, nil
	}
	if err := p.expectOp(":"); err != nil {
		return nil, err
	}
	lsb, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	return &pform.Range{LineInfo: li, Kind: pform.RangeFixed, Msb: msb, Lsb: lsb}, p.expectOp("]")
}

func constRange(li pform.LineInfo, msb, lsb int64) *pform.Range {
	return &pform.Range{LineInfo: li, Kind: pform.RangeFixed, Msb: pform.Number(li, msb), Lsb: pform.Number(li, lsb)}
}

func (p *parser) parseSigning(def bool) bool {
	switch {
	case p.acceptKeyword("signed"):
		return true
	case p.acceptKeyword("unsigned"):
		return false
	}
	return def
}

// startsType reports whether the next tokens begin a data type.
func (p *parser) startsType() bool {
	t := p.peek()
	if t.kind == tkIdent && typeKeywords[t.text] {
		return true
	}
	return t.kind == tkOp && t.text == "["
}

func (p *parser) parseType() (pform.DataType, error) {
	li := p.li()
	t := p.peek()
	if t.kind == tkOp && t.text == "[" {
		dims, err := p.parseRanges()
		if err != nil {
			return nil, err
		}
		return &pform.VectorType{LineInfo: li, Implicit: true, Dims: dims}, nil
	}
	if t.kind != tkIdent {
		return nil, p.errorf("expected data type, found %s", t)
	}
	var typ pform.DataType
	switch t.text {
	case "logic", "reg", "bit":
		p.advance()
		base := map[string]pform.VarKind{"logic": pform.VarLogic, "reg": pform.VarReg, "bit": pform.VarBit}[t.text]
		signed := p.parseSigning(false)
		dims, err := p.parseRanges()
		if err != nil {
			return nil, err
		}
		return &pform.VectorType{LineInfo: li, Base: base, Signed: signed, Dims: dims}, nil
	case "signed", "unsigned":
		p.advance()
		dims, err := p.parseRanges()
		if err != nil {
			return nil, err
		}
		return &pform.VectorType{LineInfo: li, Implicit: true, Signed: t.text == "signed", Dims: dims}, nil
	case "integer":
		p.advance()
		signed := p.parseSigning(true)
		typ = &pform.VectorType{LineInfo: li, Base: pform.VarLogic, Signed: signed, Integer: true,
			Dims: []*pform.Range{constRange(li, 31, 0)}}
	case "time":
		p.advance()
		signed := p.parseSigning(false)
		typ = &pform.VectorType{LineInfo: li, Base: pform.VarLogic, Signed: signed,
			Dims: []*pform.Range{constRange(li, 63, 0)}}
	case "byte", "shortint", "int", "longint":
		p.advance()
		width := map[string]int{"byte": 8, "shortint": 16, "int": 32, "longint": 64}[t.text]
		typ = &pform.Atom2Type{LineInfo: li, Width: width, Signed: p.parseSigning(true)}
	case "real", "realtime":
		p.advance()
		return &pform.RealType{LineInfo: li}, nil
	case "shortreal":
		p.advance()
		return &pform.RealType{LineInfo: li, Short: true}, nil
	case "string":
		p.advance()
		return &pform.StringType{LineInfo: li}, nil
	case "event":
		p.advance()
		return &pform.EventType{LineInfo: li}, nil
	case "void":
		p.advance()
		return &pform.VoidType{LineInfo: li}, nil
	case "struct", "union":
		st, err := p.parseStruct()
		if err != nil {
			return nil, err
		}
		typ = st
	case "enum":
		et, err := p.parseEnum()
		if err != nil {
			return nil, err
		}
		typ = et
	default:
		if reserved[t.text] {
			return nil, p.errorf("expected data type, found %s", t)
		}
		p.advance()
		ref := &pform.TypeRef{LineInfo: li, Name: t.text}
		if p.acceptOp("::") {
			name, err := p.expectIdent()
			if err != nil {
				return nil, err
			}
			ref.Package, ref.Name = t.text, name
		}
		dims, err := p.parseRanges()
		if err != nil {
			return nil, err
		}
		ref.Dims = dims
		return ref, nil
	}
	dims, err := p.parseRanges()
	if err != nil {
		return nil, err
	}
	if len(dims) > 0 {
		return &pform.ArrayType{LineInfo: li, Elem: typ, Dims: dims, Packed: true}, nil
	}
	return typ, nil
}

func (p *parser) parseStruct() (*pform.StructType, error) {
	li := p.li()
	st := &pform.StructType{LineInfo: li, Union: p.advance().text == "union"}
	if p.acceptKeyword("packed") {
		st.Packed = true
		st.Signed = p.parseSigning(false)
	}
	if err := p.expectOp("{"); err != nil {
		return nil, err
	}
	for !p.acceptOp("}") {
		mli := p.li()
		mt, err := p.parseType()
		if err != nil {
			return nil, err
		}
		m := &pform.StructMember{LineInfo: mli, Type: mt}
		for {
			name, err := p.expectIdent()
			if err != nil {
				return nil, err
			}
			m.Names = append(m.Names, name)
			if p.acceptOp("=") {
				m.Init, err = p.parseExpr()
				if err != nil {
					return nil, err
				}
			}
			if !p.acceptOp(",") {
				break
			}
		}
		if err := p.expectOp(";"); err != nil {
			return nil, err
		}
		st.Members = append(st.Members, m)
	}
	return st, nil
}

func (p *parser) parseEnum() (*pform.EnumType, error) {
	li := p.li()
	p.advance()
	et := &pform.EnumType{LineInfo: li}
	if !p.isOp("{") {
		base, err := p.parseType()
		if err != nil {
			return nil, err
		}
		et.Base = base
	}
	if err := p.expectOp("{"); err != nil {
		return nil, err
	}
	for {
		nli := p.li()
		name, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		n := &pform.EnumName{LineInfo: nli, Name: name}
		if p.acceptOp("=") {
			n.Value, err = p.parseExpr()
			if err != nil {
				return nil, err
			}
		}
		et.Names = append(et.Names, n)
		if p.acceptOp("}") {
			return et, nil
		}
		if err := p.expectOp(","); err != nil {
			return nil, err
		}
	}
}
