package ir

// LivenessDCE runs the bundled liveness Datalog program over every
// function in prog and removes Constant/Value instructions whose
// destination is not live afterward, per spec §4.5. It performs exactly
// one pass — a caller requiring a full fixed point must re-run this
// driver until it stops changing the program (spec §4.5's "Fixed-point
// caveat", §9).
//
// prog is mutated in place and also returned, matching the IR's ownership
// model from spec §3 ("mutated in place by O").
func LivenessDCE(prog *Program) (*Program, error) {
	for fi := range prog.Functions {
		fn := &prog.Functions[fi]
		live, err := liveAfter(*fn)
		if err != nil {
			return nil, err
		}
		dceFunction(fn, live)
	}
	return prog, nil
}

func dceFunction(fn *Function, live map[string]map[string]bool) {
	for bi := range fn.Blocks {
		b := &fn.Blocks[bi]
		var kept []Instruction
		for i, instr := range b.Instrs {
			if dest, ok := instr.DefinedVar(); ok {
				if !live[b.InstrName(i)][dest] {
					continue // dead: not live after this instruction
				}
			}
			kept = append(kept, instr)
		}
		b.Instrs = kept
	}
}
