// Package registry keeps track of the packages of a design and what
// they export, so that imports and pkg::name references can be resolved
// without walking the package syntax again.
//
// The compilation unit is registered as the prelude: its declarations
// are visible in every module without an import.
package registry

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"martianoff/velab/internal/netlist"
	"martianoff/velab/internal/pform"
)

// Kind classifies an exported name.
type Kind int

const (
	KindParameter Kind = iota
	KindType
	KindFunction
	KindTask
	KindClass
	KindEnumLiteral
	KindSignal
	KindEvent
)

var kindNames = []string{"parameter", "type", "function", "task", "class", "enum literal", "signal", "event"}

func (k Kind) String() string { return kindNames[k] }

// PackageInfo describes a registered package and its exports.
type PackageInfo struct {
	Name      string          // package name, "$unit" for the compilation unit
	Scope     netlist.ScopeID // elaborated package scope
	Exports   map[string]Kind // every name declared at package level
	IsPrelude bool            // visible everywhere without an import
}

// Has reports whether the package declares name.
func (p *PackageInfo) Has(name string) bool {
	_, ok := p.Exports[name]
	return ok
}

// PackageRegistry manages the packages of one design.
//
// Thread-safe: all methods can be called concurrently.
type PackageRegistry struct {
	mu sync.RWMutex

	// packages maps package name to info
	packages map[string]*PackageInfo

	// order keeps registration order for deterministic iteration
	order []string

	// prelude is the compilation unit, if registered
	prelude *PackageInfo
}

// NewRegistry creates an empty package registry.
func NewRegistry() *PackageRegistry {
	return &PackageRegistry{
		packages: make(map[string]*PackageInfo),
	}
}

// RegisterPrelude registers the compilation unit. Its names are visible
// in every scope after local declarations and imports.
func (r *PackageRegistry) RegisterPrelude(info PackageInfo) {
	r.mu.Lock()
	defer r.mu.Unlock()

	info.IsPrelude = true
	infoCopy := info
	r.prelude = &infoCopy
}

// Register adds a package. Registering the same name twice is an error.
func (r *PackageRegistry) Register(info PackageInfo) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.packages[info.Name]; ok {
		return &DuplicateError{Name: info.Name}
	}
	infoCopy := info
	r.packages[info.Name] = &infoCopy
	r.order = append(r.order, info.Name)
	return nil
}

// Lookup returns the package registered under name.
func (r *PackageRegistry) Lookup(name string) (*PackageInfo, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	info, ok := r.packages[name]
	return info, ok
}

// IsPreludePackage reports whether name is the compilation unit.
func (r *PackageRegistry) IsPreludePackage(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.prelude != nil && r.prelude.Name == name
}

// Prelude returns the compilation unit, or nil.
func (r *PackageRegistry) Prelude() *PackageInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.prelude
}

// Packages returns the registered packages in registration order.
func (r *PackageRegistry) Packages() []*PackageInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*PackageInfo, 0, len(r.order))
	for _, name := range r.order {
		result = append(result, r.packages[name])
	}
	return result
}

// Resolve looks up pkg::name.
func (r *PackageRegistry) Resolve(pkg, name string) (*PackageInfo, Kind, error) {
	info, ok := r.Lookup(pkg)
	if !ok {
		return nil, 0, fmt.Errorf("package %s is not declared", pkg)
	}
	kind, ok := info.Exports[name]
	if !ok {
		return nil, 0, fmt.Errorf("%s is not declared in package %s", name, pkg)
	}
	return info, kind, nil
}

// Visible finds the package that supplies name through one of the
// wildcard imports. No match returns nil and no error; more than one
// match is an AmbiguousError.
func (r *PackageRegistry) Visible(name string, wildcards []string) (*PackageInfo, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var found []*PackageInfo
	seen := make(map[string]bool)
	for _, pkg := range wildcards {
		if seen[pkg] {
			continue
		}
		seen[pkg] = true
		if info, ok := r.packages[pkg]; ok && info.Has(name) {
			found = append(found, info)
		}
	}
	switch len(found) {
	case 0:
		return nil, nil
	case 1:
		return found[0], nil
	}
	pkgs := make([]string, len(found))
	for i, f := range found {
		pkgs[i] = f.Name
	}
	return nil, &AmbiguousError{Name: name, Packages: pkgs}
}

// CheckConflict returns an error if an explicit import of pkg::name
// collides with a name the importing scope declares itself.
func (r *PackageRegistry) CheckConflict(name, pkg string, local map[string]bool) error {
	if !local[name] {
		return nil
	}
	return &ConflictError{Name: name, PackageName: pkg}
}

// DuplicateError is returned when a package name is registered twice.
type DuplicateError struct {
	Name string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("package %s is already declared", e.Name)
}

// AmbiguousError is returned when several wildcard imports supply a name.
type AmbiguousError struct {
	Name     string
	Packages []string
}

func (e *AmbiguousError) Error() string {
	pkgs := append([]string(nil), e.Packages...)
	sort.Strings(pkgs)
	return fmt.Sprintf("%s is imported from more than one package (%s)", e.Name, strings.Join(pkgs, ", "))
}

// ConflictError is returned when an explicit import names something the
// importing scope already declares.
type ConflictError struct {
	Name        string // The conflicting name
	PackageName string // The package it is imported from
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("import of %s::%s conflicts with a local declaration of %s",
		e.PackageName, e.Name, e.Name)
}

// BuildInfo collects the exports of a parsed package. Enum literals of
// typedef'd enums are exported alongside the typedef.
func BuildInfo(p *pform.Package, scope netlist.ScopeID) PackageInfo {
	info := PackageInfo{Name: p.Name, Scope: scope, Exports: make(map[string]Kind)}
	if info.Name == "" {
		info.Name = "$unit"
	}
	for _, prm := range p.Parameters {
		if prm.IsType {
			info.Exports[prm.Name] = KindType
		} else {
			info.Exports[prm.Name] = KindParameter
		}
	}
	for _, td := range p.Typedefs {
		info.Exports[td.Name] = KindType
		if et, ok := td.Type.(*pform.EnumType); ok {
			for _, n := range et.Names {
				info.Exports[n.Name] = KindEnumLiteral
			}
		}
	}
	for _, w := range p.Wires {
		info.Exports[w.Name] = KindSignal
	}
	for _, ev := range p.Events {
		info.Exports[ev.Name] = KindEvent
	}
	for _, f := range p.Functions {
		info.Exports[f.Name] = KindFunction
	}
	for _, t := range p.Tasks {
		info.Exports[t.Name] = KindTask
	}
	for _, c := range p.Classes {
		info.Exports[c.Name] = KindClass
	}
	return info
}
