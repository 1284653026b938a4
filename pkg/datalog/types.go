package datalog

import (
	"fmt"
	"sort"
	"strings"

	"github.com/beyondcivic/goflowdl/pkg/errs"
)

// DeclKind is the kind of a relation declaration: Input facts seed the
// database; Output relations may only be produced by rule heads.
type DeclKind int

const (
	Input DeclKind = iota
	Output
)

func (k DeclKind) String() string {
	if k == Input {
		return "input"
	}
	return "output"
}

// Decl is a relation declaration: D = (name, params, kind). len(Params) is
// the arity of the relation.
type Decl struct {
	Name   string
	Params []string
	Kind   DeclKind
}

func (d Decl) Arity() int { return len(d.Params) }

// Span is a source line/column, attached to an Atom or Fact purely for
// error messages. It plays no role in evaluation or fact identity — key()
// and every equality check below ignore it.
type Span struct {
	Line int
	Col  int
}

func (s Span) String() string {
	if s.Line == 0 {
		return ""
	}
	return fmt.Sprintf("%d:%d", s.Line, s.Col)
}

// Atom is a relation name applied to an ordered sequence of positions. In a
// rule's head or body, Args holds logical variable names; the same shape is
// reused by Fact for ground arguments.
type Atom struct {
	Name string
	Args []string
	Span Span
}

func (a Atom) String() string {
	return fmt.Sprintf("%s(%s)", a.Name, strings.Join(a.Args, ", "))
}

// Fact is a ground atom: F = (name, args). Facts are value-compared by
// (name, args) — that pair is a Fact's identity in every set; Span is
// carried along only so parse-time facts can report where they came from.
type Fact struct {
	Name string
	Args []string
	Span Span
}

func (f Fact) String() string {
	return fmt.Sprintf("%s(%s)", f.Name, strings.Join(f.Args, ", "))
}

// key returns the string used to deduplicate and hash a fact.
func (f Fact) key() string {
	return f.Name + "(" + strings.Join(f.Args, ",") + ")"
}

// Rule is R = (head, body). Body length must equal the explicit arity
// marker parsed from the source (§6); head and body positions bind rule-
// local variables, not ground data.
type Rule struct {
	Head Atom
	Body []Atom
}

// Program is P = (decls, rules), immutable after parsing.
type Program struct {
	Decls []Decl
	Rules []Rule

	byName map[string]Decl
}

// Index builds (or rebuilds) the program's name→declaration lookup. The
// parser's Program method calls it once parsing completes; Validate rebuilds
// the lookup itself, and Run builds it lazily if it hasn't been built yet.
func (p *Program) Index() {
	p.byName = make(map[string]Decl, len(p.Decls))
	for _, d := range p.Decls {
		p.byName[d.Name] = d
	}
}

func (p *Program) decl(name string) (Decl, bool) {
	if p.byName == nil {
		p.Index()
	}
	d, ok := p.byName[name]
	return d, ok
}

// Validate checks the program-level invariants from spec §3:
//   - every name referenced in a head or body appears in decls
//   - arities agree between references and declarations
//   - range restriction: every head variable appears in some body position
//   - no duplicate declarations
func (p *Program) Validate() error {
	seen := make(map[string]bool, len(p.Decls))
	declByName := make(map[string]Decl, len(p.Decls))
	for _, d := range p.Decls {
		if seen[d.Name] {
			return &errs.SchemaError{Kind: "duplicate-decl", Name: d.Name}
		}
		seen[d.Name] = true
		declByName[d.Name] = d
	}

	checkAtom := func(a Atom) error {
		d, ok := declByName[a.Name]
		if !ok {
			return &errs.SchemaError{Kind: "undeclared-relation", Name: a.Name}
		}
		if len(a.Args) != d.Arity() {
			return &errs.SchemaError{
				Kind:   "arity-mismatch",
				Name:   a.Name,
				Detail: fmt.Sprintf("declared arity %d, referenced with %d", d.Arity(), len(a.Args)),
			}
		}
		return nil
	}

	for _, r := range p.Rules {
		if err := checkAtom(r.Head); err != nil {
			return err
		}
		for _, b := range r.Body {
			if err := checkAtom(b); err != nil {
				return err
			}
		}

		bodyVars := make(map[string]bool)
		for _, b := range r.Body {
			for _, v := range b.Args {
				bodyVars[v] = true
			}
		}
		for _, v := range r.Head.Args {
			if !bodyVars[v] {
				return &errs.SchemaError{
					Kind:   "range-restriction",
					Name:   r.Head.Name,
					Detail: fmt.Sprintf("head variable %q does not appear in the body", v),
				}
			}
		}
	}

	p.byName = declByName
	return nil
}

// SortFacts returns facts sorted by (name, args), the reproducible
// ordering spec §5 requires of downstream list-valued APIs.
func SortFacts(facts []Fact) []Fact {
	out := make([]Fact, len(facts))
	copy(out, facts)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		for k := 0; k < len(out[i].Args) && k < len(out[j].Args); k++ {
			if out[i].Args[k] != out[j].Args[k] {
				return out[i].Args[k] < out[j].Args[k]
			}
		}
		return len(out[i].Args) < len(out[j].Args)
	})
	return out
}
