package loader

import (
	"martianoff/velab/internal/pform"
)

// parseStatement parses one procedural statement.
func (p *parser) parseStatement() (pform.Statement, error) {
	li := p.li()
	t := p.peek()
	if t.kind == tkOp {
		switch t.text {
		case ";":
			p.advance()
			return &pform.Null{LineInfo: li}, nil
		case "#":
			delay, err := p.parseDelayValue()
			if err != nil {
				return nil, err
			}
			body, err := p.parseStatementOrNull()
			if err != nil {
				return nil, err
			}
			return &pform.DelayStmt{LineInfo: li, Delay: delay, Stmt: body}, nil
		case "@":
			ctl, err := p.parseEventControl()
			if err != nil {
				return nil, err
			}
			body, err := p.parseStatementOrNull()
			if err != nil {
				return nil, err
			}
			return &pform.EventStmt{LineInfo: li, Control: ctl, Stmt: body}, nil
		case "->":
			p.advance()
			_, name, err := p.parseName()
			if err != nil {
				return nil, err
			}
			return &pform.Trigger{LineInfo: li, Event: name}, p.expectOp(";")
		case "{":
			return p.parseAssignment()
		}
	}
	if t.kind == tkSysIdent {
		return p.parseTaskCall()
	}
	if t.kind != tkIdent {
		return nil, p.errorf("unexpected %s at start of statement", t)
	}
	switch t.text {
	case "begin":
		return p.parseBlock()
	case "fork":
		return p.parseBlock()
	case "if":
		return p.parseIf()
	case "case", "casex", "casez":
		return p.parseCase()
	case "for":
		return p.parseFor()
	case "while":
		p.advance()
		cond, err := p.parseParenExpr()
		if err != nil {
			return nil, err
		}
		body, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		return &pform.While{LineInfo: li, Cond: cond, Body: body}, nil
	case "do":
		p.advance()
		body, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		if err := p.expectKeyword("while"); err != nil {
			return nil, err
		}
		cond, err := p.parseParenExpr()
		if err != nil {
			return nil, err
		}
		return &pform.DoWhile{LineInfo: li, Body: body, Cond: cond}, p.expectOp(";")
	case "repeat":
		p.advance()
		count, err := p.parseParenExpr()
		if err != nil {
			return nil, err
		}
		body, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		return &pform.Repeat{LineInfo: li, Count: count, Body: body}, nil
	case "forever":
		p.advance()
		body, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		return &pform.Forever{LineInfo: li, Body: body}, nil
	case "foreach":
		return p.parseForeach()
	case "wait":
		p.advance()
		if p.acceptKeyword("fork") {
			return &pform.WaitFork{LineInfo: li}, p.expectOp(";")
		}
		cond, err := p.parseParenExpr()
		if err != nil {
			return nil, err
		}
		body, err := p.parseStatementOrNull()
		if err != nil {
			return nil, err
		}
		return &pform.Wait{LineInfo: li, Cond: cond, Stmt: body}, nil
	case "disable":
		p.advance()
		_, name, err := p.parseName()
		if err != nil {
			return nil, err
		}
		return &pform.Disable{LineInfo: li, Target: name}, p.expectOp(";")
	case "return":
		p.advance()
		ret := &pform.Return{LineInfo: li}
		if !p.isOp(";") {
			v, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			ret.Value = v
		}
		return ret, p.expectOp(";")
	case "break":
		p.advance()
		return &pform.Break{LineInfo: li}, p.expectOp(";")
	case "continue":
		p.advance()
		return &pform.Continue{LineInfo: li}, p.expectOp(";")
	}
	// name; name(args); or an assignment.
	save := p.pos
	_, _, err := p.parseName()
	if err != nil {
		return nil, err
	}
	next := p.peek()
	p.pos = save
	if next.kind == tkOp && (next.text == "(" || next.text == ";") {
		return p.parseTaskCall()
	}
	return p.parseAssignment()
}

// parseStatementOrNull treats a bare ";" as no statement.
func (p *parser) parseStatementOrNull() (pform.Statement, error) {
	if p.acceptOp(";") {
		return nil, nil
	}
	return p.parseStatement()
}

func (p *parser) parseParenExpr() (pform.Expr, error) {
	if err := p.expectOp("("); err != nil {
		return nil, err
	}
	e, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	return e, p.expectOp(")")
}

// parseDelayValue parses #d, #(d) or #1.5 and returns the delay.
func (p *parser) parseDelayValue() (pform.Expr, error) {
	if err := p.expectOp("#"); err != nil {
		return nil, err
	}
	if p.isOp("(") {
		return p.parseParenExpr()
	}
	return p.parsePrimary()
}

// parseDelayList parses a gate delay: #d or #(rise, fall, decay).
func (p *parser) parseDelayList() ([]pform.Expr, error) {
	if err := p.expectOp("#"); err != nil {
		return nil, err
	}
	if !p.acceptOp("(") {
		d, err := p.parsePrimary()
		if err != nil {
			return nil, err
		}
		return []pform.Expr{d}, nil
	}
	var delays []pform.Expr
	for {
		d, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		delays = append(delays, d)
		if p.acceptOp(")") {
			return delays, nil
		}
		if err := p.expectOp(","); err != nil {
			return nil, err
		}
	}
}

func (p *parser) parseEventControl() (*pform.EventControl, error) {
	li := p.li()
	if err := p.expectOp("@"); err != nil {
		return nil, err
	}
	ctl := &pform.EventControl{LineInfo: li}
	if p.acceptOp("*") {
		ctl.Star = true
		return ctl, nil
	}
	if !p.isOp("(") {
		eli := p.li()
		_, name, err := p.parseName()
		if err != nil {
			return nil, err
		}
		ctl.Events = append(ctl.Events, &pform.EEvent{LineInfo: eli,
			Expr: &pform.EIdent{LineInfo: eli, Path: name}})
		return ctl, nil
	}
	p.advance()
	if p.isOp("*") && p.peekN(1).text == ")" {
		p.advance()
		p.advance()
		ctl.Star = true
		return ctl, nil
	}
	for {
		eli := p.li()
		edge := pform.EdgeAny
		switch {
		case p.acceptKeyword("posedge"):
			edge = pform.EdgePos
		case p.acceptKeyword("negedge"):
			edge = pform.EdgeNeg
		case p.acceptKeyword("edge"):
			edge = pform.EdgeBoth
		}
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		ctl.Events = append(ctl.Events, &pform.EEvent{LineInfo: eli, Edge: edge, Expr: e})
		if p.acceptOp(")") {
			return ctl, nil
		}
		if !p.acceptKeyword("or") && !p.acceptOp(",") {
			return nil, p.errorf("expected \"or\" or \",\" in event control, found %s", p.peek())
		}
	}
}

func (p *parser) parseLvalue() (pform.Expr, error) {
	if p.isOp("{") {
		return p.parseConcat()
	}
	li := p.li()
	pkg, name, err := p.parseName()
	if err != nil {
		return nil, err
	}
	return &pform.EIdent{LineInfo: li, Package: pkg, Path: name}, nil
}

var compoundOps = map[string]string{
	"+=": "+", "-=": "-", "*=": "*", "/=": "/", "%=": "%",
	"&=": "&", "|=": "|", "^=": "^", "<<=": "<<", ">>=": ">>", "<<<=": "<<<", ">>>=": ">>>",
}

// parseAssignBody parses an assignment without the trailing semicolon.
func (p *parser) parseAssignBody() (*pform.Assign, error) {
	li := p.li()
	lval, err := p.parseLvalue()
	if err != nil {
		return nil, err
	}
	asn := &pform.Assign{LineInfo: li, Lval: lval}
	t := p.peek()
	switch {
	case t.kind == tkOp && (t.text == "++" || t.text == "--"):
		p.advance()
		asn.Op = t.text[:1]
		asn.Rval = pform.Number(li, 1)
		return asn, nil
	case t.kind == tkOp && t.text == "=":
		p.advance()
	case t.kind == tkOp && t.text == "<=":
		p.advance()
		asn.NonBlocking = true
	case t.kind == tkOp && compoundOps[t.text] != "":
		p.advance()
		asn.Op = compoundOps[t.text]
	default:
		return nil, p.errorf("expected assignment operator, found %s", t)
	}
	switch {
	case p.isOp("#"):
		asn.Delay, err = p.parseDelayValue()
	case p.isOp("@"):
		asn.Event, err = p.parseEventControl()
	case p.isKeyword("repeat"):
		p.advance()
		asn.Repeat, err = p.parseParenExpr()
		if err == nil {
			asn.Event, err = p.parseEventControl()
		}
	}
	if err != nil {
		return nil, err
	}
	asn.Rval, err = p.parseExpr()
	if err != nil {
		return nil, err
	}
	return asn, nil
}

func (p *parser) parseAssignment() (pform.Statement, error) {
	asn, err := p.parseAssignBody()
	if err != nil {
		return nil, err
	}
	return asn, p.expectOp(";")
}

func (p *parser) parseTaskCall() (pform.Statement, error) {
	li := p.li()
	call := &pform.CallTask{LineInfo: li}
	if p.peek().kind == tkSysIdent {
		call.Path = pform.Simple(p.advance().text)
	} else {
		pkg, name, err := p.parseName()
		if err != nil {
			return nil, err
		}
		call.Package, call.Path = pkg, name
	}
	if p.isOp("(") {
		args, err := p.parseArgs()
		if err != nil {
			return nil, err
		}
		call.Args = args
	}
	return call, p.expectOp(";")
}

func (p *parser) parseBlock() (pform.Statement, error) {
	li := p.li()
	blk := &pform.Block{LineInfo: li}
	par := p.advance().text == "fork"
	if par {
		blk.Kind = pform.BlockPar
	}
	if p.acceptOp(":") {
		name, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		blk.Name = name
	}
	for {
		switch {
		case !par && p.acceptKeyword("end"):
			return blk, p.endLabel()
		case par && p.acceptKeyword("join"):
			return blk, p.endLabel()
		case par && p.acceptKeyword("join_any"):
			blk.Kind = pform.BlockJoinAny
			return blk, p.endLabel()
		case par && p.acceptKeyword("join_none"):
			blk.Kind = pform.BlockJoinNone
			return blk, p.endLabel()
		case p.atEOF():
			return nil, p.errorf("unterminated block")
		}
		if p.startsDecl() {
			if err := p.parseBlockDecl(&blk.LexicalScope); err != nil {
				return nil, err
			}
			continue
		}
		s, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		blk.Stmts = append(blk.Stmts, s)
	}
}

func (p *parser) endLabel() error {
	if p.acceptOp(":") {
		_, err := p.expectIdent()
		return err
	}
	return nil
}

// startsDecl reports a variable declaration inside a block.
func (p *parser) startsDecl() bool {
	t := p.peek()
	if t.kind != tkIdent {
		return false
	}
	if typeKeywords[t.text] && t.text != "signed" && t.text != "unsigned" {
		return true
	}
	// user type: T name;
	n := p.peekN(1)
	return !reserved[t.text] && n.kind == tkIdent && !reserved[n.text]
}

func (p *parser) parseBlockDecl(scope *pform.LexicalScope) error {
	li := p.li()
	typ, err := p.parseType()
	if err != nil {
		return err
	}
	if _, ok := typ.(*pform.EventType); ok {
		for {
			name, err := p.expectIdent()
			if err != nil {
				return err
			}
			*p.lexPos++
			scope.Events = append(scope.Events, &pform.NamedEvent{LineInfo: li, Name: name, LexicalPos: *p.lexPos})
			if !p.acceptOp(",") {
				return p.expectOp(";")
			}
		}
	}
	for {
		name, err := p.expectIdent()
		if err != nil {
			return err
		}
		unpacked, err := p.parseRanges()
		if err != nil {
			return err
		}
		*p.lexPos++
		w := &pform.Wire{LineInfo: li, Name: name, Kind: pform.NetReg, NetDeclared: true,
			Type: typ, Unpacked: unpacked, LexicalPos: *p.lexPos}
		if p.acceptOp("=") {
			w.Init, err = p.parseExpr()
			if err != nil {
				return err
			}
		}
		scope.Wires = append(scope.Wires, w)
		if !p.acceptOp(",") {
			return p.expectOp(";")
		}
	}
}

func (p *parser) parseIf() (pform.Statement, error) {
	li := p.li()
	p.advance()
	cond, err := p.parseParenExpr()
	if err != nil {
		return nil, err
	}
	then, err := p.parseStatementOrNull()
	if err != nil {
		return nil, err
	}
	st := &pform.Condit{LineInfo: li, Cond: cond, Then: then}
	if p.acceptKeyword("else") {
		st.Else, err = p.parseStatementOrNull()
		if err != nil {
			return nil, err
		}
	}
	return st, nil
}

func (p *parser) parseCase() (pform.Statement, error) {
	li := p.li()
	kind := map[string]pform.CaseKind{"case": pform.CaseEq, "casex": pform.CaseX, "casez": pform.CaseZ}[p.advance().text]
	sel, err := p.parseParenExpr()
	if err != nil {
		return nil, err
	}
	cs := &pform.Case{LineInfo: li, Kind: kind, Expr: sel}
	for !p.acceptKeyword("endcase") {
		if p.atEOF() {
			return nil, p.errorf("missing endcase")
		}
		ili := p.li()
		item := &pform.CaseItem{LineInfo: ili}
		if p.acceptKeyword("default") {
			p.acceptOp(":")
		} else {
			for {
				e, err := p.parseExpr()
				if err != nil {
					return nil, err
				}
				item.Exprs = append(item.Exprs, e)
				if p.acceptOp(":") {
					break
				}
				if err := p.expectOp(","); err != nil {
					return nil, err
				}
			}
		}
		item.Stmt, err = p.parseStatementOrNull()
		if err != nil {
			return nil, err
		}
		cs.Items = append(cs.Items, item)
	}
	return cs, nil
}

func (p *parser) parseFor() (pform.Statement, error) {
	li := p.li()
	p.advance()
	if err := p.expectOp("("); err != nil {
		return nil, err
	}
	st := &pform.For{LineInfo: li}
	if p.startsType() {
		dli := p.li()
		typ, err := p.parseType()
		if err != nil {
			return nil, err
		}
		name := p.peek().text
		*p.lexPos++
		st.Decl = &pform.Wire{LineInfo: dli, Name: name, Kind: pform.NetReg, NetDeclared: true,
			Type: typ, LexicalPos: *p.lexPos}
	}
	init, err := p.parseAssignBody()
	if err != nil {
		return nil, err
	}
	st.Init = init
	if err := p.expectOp(";"); err != nil {
		return nil, err
	}
	if st.Cond, err = p.parseExpr(); err != nil {
		return nil, err
	}
	if err := p.expectOp(";"); err != nil {
		return nil, err
	}
	step, err := p.parseAssignBody()
	if err != nil {
		return nil, err
	}
	st.Step = step
	if err := p.expectOp(")"); err != nil {
		return nil, err
	}
	st.Body, err = p.parseStatement()
	if err != nil {
		return nil, err
	}
	return st, nil
}

func (p *parser) parseForeach() (pform.Statement, error) {
	li := p.li()
	p.advance()
	if err := p.expectOp("("); err != nil {
		return nil, err
	}
	first, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	name := pform.Simple(first)
	for p.acceptOp(".") {
		id, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		name = append(name, pform.NameComponent{Name: id})
	}
	if err := p.expectOp("["); err != nil {
		return nil, err
	}
	st := &pform.Foreach{LineInfo: li, Array: name}
	for {
		v := ""
		if p.peek().kind == tkIdent {
			v = p.advance().text
		}
		st.Vars = append(st.Vars, v)
		if p.acceptOp("]") {
			break
		}
		if err := p.expectOp(","); err != nil {
			return nil, err
		}
	}
	if err := p.expectOp(")"); err != nil {
		return nil, err
	}
	st.Body, err = p.parseStatement()
	if err != nil {
		return nil, err
	}
	return st, nil
}
