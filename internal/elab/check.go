package elab

import (
	"martianoff/velab/internal/netlist"
)

// delayType classifies how surely a statement advances time.
type delayType int

const (
	noDelay delayType = iota
	zeroDelay
	possibleDelay
	definiteDelay
)

// seqDelay combines statements run one after another.
func seqDelay(a, b delayType) delayType { return max(a, b) }

// altDelay combines branches of which exactly one runs.
func altDelay(a, b delayType) delayType {
	if a == b {
		return a
	}
	if max(a, b) >= possibleDelay || (a == zeroDelay) != (b == zeroDelay) {
		return possibleDelay
	}
	return max(a, b)
}

// loopDelay is the delay of a loop whose body may not run.
func loopDelay(body delayType) delayType {
	if body > noDelay {
		return possibleDelay
	}
	return noDelay
}

func (c *elabContext) delayOf(p netlist.Proc) delayType {
	switch p := p.(type) {
	case *netlist.Block:
		d := noDelay
		for _, st := range p.Stmts {
			d = seqDelay(d, c.delayOf(st))
		}
		if p.Kind == netlist.BlockJoinNone {
			return min(d, zeroDelay)
		}
		return d
	case *netlist.PDelay:
		d := definiteDelay
		if v, ok := c.tryConst(p.Delay); ok && v.IsZero() {
			d = zeroDelay
		}
		return seqDelay(d, c.delayOf(p.Stmt))
	case *netlist.EvWait:
		return definiteDelay
	case *netlist.Condit:
		return altDelay(c.delayOf(p.Then), c.delayOf(p.Else))
	case *netlist.Case:
		if len(p.Items) == 0 {
			return noDelay
		}
		d := c.delayOf(p.Items[0].Stmt)
		hasDefault := false
		for _, it := range p.Items {
			d = altDelay(d, c.delayOf(it.Stmt))
			hasDefault = hasDefault || it.Guard == nil
		}
		if !hasDefault {
			d = altDelay(d, noDelay)
		}
		return d
	case *netlist.While, *netlist.Repeat:
		var body netlist.Proc
		if w, ok := p.(*netlist.While); ok {
			body = w.Body
		} else {
			body = p.(*netlist.Repeat).Body
		}
		return loopDelay(c.delayOf(body))
	case *netlist.For:
		return seqDelay(c.delayOf(p.Init), loopDelay(c.delayOf(p.Body)))
	case *netlist.DoWhile:
		return c.delayOf(p.Body)
	case *netlist.Forever:
		return c.delayOf(p.Body)
	case *netlist.UTask:
		if t := c.scope(p.Task); t != nil && t.Task != nil {
			return c.delayOf(t.Task.Proc)
		}
	case *netlist.WaitFork:
		return possibleDelay
	}
	return noDelay
}

// checkProcesses runs the checks that need the whole design: an always
// process must wait somewhere, and always_comb, always_ff and
// always_latch must be synthesizable.
func (c *elabContext) checkProcesses() {
	for _, p := range c.des.Processes() {
		switch p.Kind {
		case netlist.ProcAlways:
			switch c.delayOf(p.Stmt) {
			case noDelay:
				c.diag.Errorf(p, "always process does not have any delay.")
				c.diag.Errorf(p, "always process will execute in an infinite loop.")
			case zeroDelay:
				c.diag.Errorf(p, "always process has only zero delays and will execute in an infinite loop.")
			}
		case netlist.ProcAlwaysComb, netlist.ProcAlwaysLatch:
			body := p.Stmt
			if b, ok := body.(*netlist.Block); ok && len(b.Stmts) == 2 {
				// Skip the trailing wait on the inputs.
				body = b.Stmts[0]
			}
			c.checkSynth(body, p)
		case netlist.ProcAlwaysFF:
			w, ok := p.Stmt.(*netlist.EvWait)
			if !ok || !w.Events[0].EdgeOnly() {
				c.diag.Errorf(p, "always_ff process must begin with an edge event control.")
				continue
			}
			c.checkSynth(w.Stmt, p)
		}
	}
}

// checkSynth reports timing controls inside the body of a synthesizable
// process.
func (c *elabContext) checkSynth(st netlist.Proc, top *netlist.ProcTop) {
	bad := func(what string, at netlist.Proc) {
		c.diag.Errorf(at.Loc(), "%s is not allowed in an %s process.", what, top.Kind)
	}
	var walk func(p netlist.Proc)
	walk = func(p netlist.Proc) {
		switch p := p.(type) {
		case nil:
		case *netlist.PDelay:
			bad("delay", p)
		case *netlist.EvWait:
			bad("event control", p)
		case *netlist.WaitFork:
			bad("wait fork", p)
		case *netlist.Block:
			if p.Kind != netlist.BlockSeq {
				bad("fork", p)
			}
			for _, sub := range p.Stmts {
				walk(sub)
			}
		case *netlist.Assign:
			if p.Delay != nil || p.Event != nil {
				bad("intra-assignment timing control", p)
			}
		case *netlist.Condit:
			walk(p.Then)
			walk(p.Else)
		case *netlist.Case:
			for _, it := range p.Items {
				walk(it.Stmt)
			}
		case *netlist.While:
			walk(p.Body)
		case *netlist.DoWhile:
			walk(p.Body)
		case *netlist.Repeat:
			walk(p.Body)
		case *netlist.For:
			walk(p.Init)
			walk(p.Step)
			walk(p.Body)
		case *netlist.Forever:
			bad("forever", p)
		}
	}
	walk(st)
}
