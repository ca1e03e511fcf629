package netlist

// Event is a named or synthesized event. Probes attach it to the nets
// whose changes trigger it.
type Event struct {
	LineInfo
	name     string
	scope    ScopeID
	probes   []*Probe
	waits    int
	triggers int
	local    bool
}

// NewEvent builds an event owned by scope.
func NewEvent(scope ScopeID, name string) *Event {
	return &Event{name: name, scope: scope}
}

func (e *Event) Name() string      { return e.name }
func (e *Event) Scope() ScopeID    { return e.scope }
func (e *Event) Probes() []*Probe  { return e.probes }
func (e *Event) Waits() int        { return e.waits }
func (e *Event) Triggers() int     { return e.triggers }
func (e *Event) IsLocal() bool     { return e.local }
func (e *Event) SetLocal(l bool)   { e.local = l }
func (e *Event) AddProbe(p *Probe) { e.probes = append(e.probes, p) }
func (e *Event) AddWait()          { e.waits++ }
func (e *Event) AddTrigger()       { e.triggers++ }

// NeverTriggered reports an event no probe or trigger can fire.
func (e *Event) NeverTriggered() bool { return len(e.probes) == 0 && e.triggers == 0 }

// EdgeOnly reports whether every probe is an edge probe.
func (e *Event) EdgeOnly() bool {
	if len(e.probes) == 0 {
		return false
	}
	for _, p := range e.probes {
		if p.Edge == EdgeAny {
			return false
		}
	}
	return true
}
