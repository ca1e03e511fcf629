// Package netlist holds the elaborated design: a scope tree kept in an
// arena, signals, structural nodes joined through nexuses, events and
// processes with their statement trees. Backends read it through the
// exported accessors only.
package netlist
