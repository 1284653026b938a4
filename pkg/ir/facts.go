package ir

import "github.com/beyondcivic/goflowdl/pkg/datalog"

// ExtractFacts lowers a single Function into the successor, undefined, and
// var_used relations of spec §4.4, grounded in the same three-pass shape as
// the original extractor: successors, then var_used, then undefined.
// fn must already have been processed by Build (its blocks' Exit fields
// populated).
func ExtractFacts(fn Function) []datalog.Fact {
	defined := definedVars(fn)

	var facts []datalog.Fact
	facts = append(facts, successorFacts(fn)...)
	facts = append(facts, varUsedFacts(fn, defined)...)
	facts = append(facts, undefinedFacts(fn, defined)...)
	return facts
}

func definedVars(fn Function) map[string]bool {
	defined := make(map[string]bool)
	for _, b := range fn.Blocks {
		for _, instr := range b.Instrs {
			if v, ok := instr.DefinedVar(); ok {
				defined[v] = true
			}
		}
	}
	return defined
}

func successorFacts(fn Function) []datalog.Fact {
	var facts []datalog.Fact
	for _, b := range fn.Blocks {
		for i := range b.Instrs {
			from := b.InstrName(i)
			if i < len(b.Instrs)-1 {
				facts = append(facts, datalog.Fact{
					Name: "successor",
					Args: []string{from, b.InstrName(i + 1)},
				})
				continue
			}
			// last instruction of the block: follow Exit, which Build
			// already resolved from jmp/br labels or block fallthrough,
			// and left empty for ret.
			for _, target := range b.Exit {
				to := fn.Blocks[target].InstrName(0)
				facts = append(facts, datalog.Fact{Name: "successor", Args: []string{from, to}})
			}
		}
	}
	return facts
}

func varUsedFacts(fn Function, defined map[string]bool) []datalog.Fact {
	var facts []datalog.Fact
	for _, b := range fn.Blocks {
		for i, instr := range b.Instrs {
			if instr.Kind != Value && instr.Kind != Effect {
				continue
			}
			name := b.InstrName(i)
			for _, arg := range instr.Args {
				if defined[arg] {
					facts = append(facts, datalog.Fact{Name: "var_used", Args: []string{name, arg}})
				}
			}
		}
	}
	return facts
}

func undefinedFacts(fn Function, defined map[string]bool) []datalog.Fact {
	var facts []datalog.Fact
	for _, b := range fn.Blocks {
		for i, instr := range b.Instrs {
			name := b.InstrName(i)
			definesHere, _ := instr.DefinedVar()
			for v := range defined {
				if v == definesHere {
					continue
				}
				facts = append(facts, datalog.Fact{Name: "undefined", Args: []string{name, v}})
			}
		}
	}
	return facts
}
