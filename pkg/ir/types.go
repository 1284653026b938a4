// Package ir implements the basic-block IR model consumed by the Datalog
// fact extractor and the liveness-based dead-code eliminator: spec §3 (IR
// model), §4.4 (Fact Extractor), and §4.5 (Liveness DCE).
package ir

import (
	"fmt"

	"github.com/beyondcivic/goflowdl/pkg/errs"
)

// InstrKind tags the three-way Instruction variant of spec §3.
type InstrKind int

const (
	// Constant instructions define Dest from a literal value.
	Constant InstrKind = iota
	// Value instructions define Dest from Args/Funcs/Labels under Op.
	Value
	// Effect instructions define nothing; used for control flow and
	// side effects (jmp, br, ret, print, ...).
	Effect
)

func (k InstrKind) String() string {
	switch k {
	case Constant:
		return "const"
	case Value:
		return "value"
	case Effect:
		return "effect"
	default:
		return "?"
	}
}

// Instruction is the tagged variant from spec §3:
//
//	Constant(dest)
//	Value(dest, args, labels, funcs, op)
//	Effect(args, labels, funcs, op)
type Instruction struct {
	Kind   InstrKind
	Dest   string
	Op     string
	Args   []string
	Labels []string
	Funcs  []string
	Value  any // literal payload of a Constant instruction
	Type   string
}

// DefinedVar returns the variable this instruction defines, and whether it
// defines one at all. Only Constant and Value instructions define a
// variable (spec §3).
func (i Instruction) DefinedVar() (string, bool) {
	if i.Kind == Constant || i.Kind == Value {
		return i.Dest, true
	}
	return "", false
}

// BasicBlock is (label, instrs, exit) from spec §3. Exit holds indices
// into the owning Function's Blocks slice and is computed by Build, not
// supplied by callers.
type BasicBlock struct {
	Label  string // "" means no label (spec's "optional Identifier")
	Instrs []Instruction
	Exit   []int
}

// Name returns the block's identity for instruction naming: its label, or
// "default_block" when unlabeled, per spec §3/§6.
func (b BasicBlock) Name() string {
	if b.Label == "" {
		return "default_block"
	}
	return b.Label
}

// InstrName returns the stable, load-bearing instruction identity
// "<block_label>_instr_<i>" from spec §3/§6.
func (b BasicBlock) InstrName(i int) string {
	return fmt.Sprintf("%s_instr_%d", b.Name(), i)
}

// Function is (name, args, return_type, blocks) from spec §3.
type Function struct {
	Name       string
	Args       []string
	ReturnType string
	Blocks     []BasicBlock
}

// Program is an ordered sequence of Function — Program_IR in spec §3.
type Program struct {
	Functions []Function
}

// Build validates a freshly-decoded Program against spec §3/§7's IR
// invariants (duplicate function name, duplicate label within a function,
// jump/branch to an unknown label, missing destination on a Value
// instruction) and computes each block's Exit. It must be called once
// before the program is handed to the Fact Extractor or the DCE pass.
func Build(prog *Program) error {
	seenFn := make(map[string]bool, len(prog.Functions))
	for fi := range prog.Functions {
		fn := &prog.Functions[fi]
		if seenFn[fn.Name] {
			return &errs.IRError{Kind: "duplicate-function", Detail: fn.Name}
		}
		seenFn[fn.Name] = true

		labelIndex := make(map[string]bool, len(fn.Blocks))
		for _, b := range fn.Blocks {
			if b.Label == "" {
				continue
			}
			if labelIndex[b.Label] {
				return &errs.IRError{Kind: "duplicate-label", Detail: fmt.Sprintf("%s in function %s", b.Label, fn.Name)}
			}
			labelIndex[b.Label] = true
		}

		for _, instr := range allInstrs(fn) {
			if instr.Kind == Value && instr.Dest == "" {
				return &errs.IRError{Kind: "missing-dest", Detail: fmt.Sprintf("value instruction %q in function %s", instr.Op, fn.Name)}
			}
		}

		blockIndexByLabel := make(map[string]int, len(fn.Blocks))
		for bi, b := range fn.Blocks {
			if b.Label != "" {
				blockIndexByLabel[b.Label] = bi
			}
		}

		for bi := range fn.Blocks {
			b := &fn.Blocks[bi]
			b.Exit = nil
			if len(b.Instrs) == 0 {
				if bi+1 < len(fn.Blocks) {
					b.Exit = []int{bi + 1}
				}
				continue
			}
			last := b.Instrs[len(b.Instrs)-1]
			switch {
			case last.Kind == Effect && (last.Op == "jmp" || last.Op == "br"):
				for _, label := range last.Labels {
					idx, ok := blockIndexByLabel[label]
					if !ok {
						return &errs.IRError{Kind: "unknown-label", Detail: fmt.Sprintf("%s in function %s", label, fn.Name)}
					}
					b.Exit = append(b.Exit, idx)
				}
			case last.Kind == Effect && last.Op == "ret":
				// no exit
			default:
				if bi+1 < len(fn.Blocks) {
					b.Exit = []int{bi + 1}
				}
			}
		}
	}
	return nil
}

func allInstrs(fn *Function) []Instruction {
	var out []Instruction
	for _, b := range fn.Blocks {
		out = append(out, b.Instrs...)
	}
	return out
}
