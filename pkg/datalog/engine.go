package datalog

import (
	"sort"
	"strings"

	"github.com/beyondcivic/goflowdl/pkg/errs"
)

// Binding is a total assignment from a rule's logical variables to ground
// identifiers.
type Binding map[string]string

// varSet is the set of variable names a binding set is keyed on.
type varSet map[string]bool

func (s varSet) union(other varSet) varSet {
	out := make(varSet, len(s)+len(other))
	for k := range s {
		out[k] = true
	}
	for k := range other {
		out[k] = true
	}
	return out
}

// Database maps a relation name to its table of facts, per spec §3.
type Database map[string][]Fact

// NewDatabase builds a Database from a flat fact list.
func NewDatabase(facts []Fact) Database {
	db := Database{}
	for _, f := range facts {
		db[f.Name] = append(db[f.Name], f)
	}
	return db
}

// All flattens the database back into a fact list.
func (db Database) All() []Fact {
	var out []Fact
	for _, table := range db {
		out = append(out, table...)
	}
	return out
}

// Run computes the least fixed point of program's rules over the initial
// facts I, per spec §4.3. It validates I against the program's
// declarations first (spec §4.3 "Input validation").
func Run(program *Program, facts []Fact) ([]Fact, error) {
	if err := validateFacts(program, facts); err != nil {
		return nil, err
	}

	known := make(map[string]Fact, len(facts))
	for _, f := range facts {
		known[f.key()] = f
	}
	frontier := NewDatabase(facts)

	for {
		var newFacts []Fact
		newSeen := make(map[string]bool)

		for _, rule := range program.Rules {
			bindings := evaluateBody(rule.Body, frontier)
			for _, b := range bindings {
				head, err := instantiate(rule.Head, b)
				if err != nil {
					return nil, err
				}
				k := head.key()
				if _, ok := known[k]; ok {
					continue
				}
				if newSeen[k] {
					continue
				}
				newSeen[k] = true
				newFacts = append(newFacts, head)
			}
		}

		if len(newFacts) == 0 {
			break
		}
		for _, f := range newFacts {
			known[f.key()] = f
			frontier[f.Name] = append(frontier[f.Name], f)
		}
	}

	out := make([]Fact, 0, len(known))
	for _, f := range known {
		out = append(out, f)
	}
	return SortFacts(out), nil
}

// validateFacts enforces spec §4.3's input-fact contract: every fact must
// reference a declared, Input-kind relation at the declared arity.
func validateFacts(program *Program, facts []Fact) error {
	for _, f := range facts {
		d, ok := program.decl(f.Name)
		if !ok {
			return &errs.FactError{Kind: "undeclared", Name: f.Name}
		}
		if d.Kind == Output {
			return &errs.FactError{Kind: "output-only", Name: f.Name}
		}
		if len(f.Args) != d.Arity() {
			return &errs.FactError{Kind: "arity-mismatch", Name: f.Name}
		}
	}
	return nil
}

// instantiate grounds head's variables using binding b. Range restriction
// (checked at parse time) guarantees every head variable is bound.
func instantiate(head Atom, b Binding) (Fact, error) {
	args := make([]string, len(head.Args))
	for i, v := range head.Args {
		val, ok := b[v]
		if !ok {
			return Fact{}, &errs.SchemaError{
				Kind:   "range-restriction",
				Name:   head.Name,
				Detail: "head variable " + v + " unbound at instantiation",
			}
		}
		args[i] = val
	}
	return Fact{Name: head.Name, Args: args, Span: head.Span}, nil
}

// evaluateBody is a left fold of hash-joins over the body atoms, per
// spec §4.3.
func evaluateBody(body []Atom, frontier Database) []Binding {
	acc := []Binding{{}}
	accKeys := varSet{}

	for _, atom := range body {
		ab, ak := atomBindings(atom, frontier)
		acc, accKeys = joinBindings(acc, accKeys, ab, ak)
		if len(acc) == 0 {
			return nil
		}
	}
	return acc
}

// atomBindings projects relation atom.Name's table into the set of
// bindings that satisfy atom, per spec §4.3 step 1. A variable appearing
// twice in the atom enforces equality; bindings where the repeated
// variable disagrees are dropped.
func atomBindings(atom Atom, frontier Database) ([]Binding, varSet) {
	keys := varSet{}
	for _, v := range atom.Args {
		keys[v] = true
	}

	var out []Binding
	for _, f := range frontier[atom.Name] {
		if len(f.Args) != len(atom.Args) {
			continue
		}
		b := Binding{}
		ok := true
		for i, v := range atom.Args {
			val := f.Args[i]
			if existing, present := b[v]; present {
				if existing != val {
					ok = false
					break
				}
			} else {
				b[v] = val
			}
		}
		if ok {
			out = append(out, b)
		}
	}
	return out, keys
}

// joinBindings implements the hash-join contract of spec §4.3: bindings
// with no keys are the fold's identity; when the two sides share no
// variable, the result is empty rather than a cross product (a known,
// explicitly pinned limitation — see spec §9 and DESIGN.md).
func joinBindings(a []Binding, keysA varSet, b []Binding, keysB varSet) ([]Binding, varSet) {
	if len(keysA) == 0 {
		return b, keysB
	}
	if len(keysB) == 0 {
		return a, keysA
	}

	var shared []string
	for k := range keysA {
		if keysB[k] {
			shared = append(shared, k)
		}
	}
	sort.Strings(shared)

	if len(shared) == 0 {
		return nil, keysA.union(keysB)
	}

	bucket := make(map[string][]Binding, len(b))
	for _, bb := range b {
		bucket[projectKey(bb, shared)] = append(bucket[projectKey(bb, shared)], bb)
	}

	var out []Binding
	for _, aa := range a {
		for _, bb := range bucket[projectKey(aa, shared)] {
			merged := make(Binding, len(aa)+len(bb))
			for k, v := range aa {
				merged[k] = v
			}
			for k, v := range bb {
				merged[k] = v
			}
			out = append(out, merged)
		}
	}
	return out, keysA.union(keysB)
}

func projectKey(b Binding, keys []string) string {
	var sb strings.Builder
	for _, k := range keys {
		sb.WriteString(b[k])
		sb.WriteByte(0)
	}
	return sb.String()
}
