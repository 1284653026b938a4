package ir

// FunctionReport summarises one function's liveness analysis: how many
// instructions it had and how many a subsequent rewrite would drop.
type FunctionReport struct {
	Name     string
	Total    int
	Dropped  int
	LiveVars map[string]map[string]bool // live-after set per instruction name
}

// Analyze drives the multi-function path from SPEC_FULL.md's Fact Extractor
// supplement: it runs the bundled liveness analysis once per function (the
// way original_source's perform_liveness_analysis calls
// get_facts_from_bril_fn once per BBFunction), merges every function's
// live-after set into one slice of reports, and only then rewrites the
// whole program via LivenessDCE.
func Analyze(prog *Program) ([]FunctionReport, *Program, error) {
	reports := make([]FunctionReport, 0, len(prog.Functions))
	for _, fn := range prog.Functions {
		live, err := liveAfter(fn)
		if err != nil {
			return nil, nil, err
		}
		reports = append(reports, FunctionReport{
			Name:     fn.Name,
			Total:    countInstrs(fn),
			LiveVars: live,
		})
	}

	rewritten, err := LivenessDCE(prog)
	if err != nil {
		return nil, nil, err
	}
	for i := range reports {
		after := countInstrs(rewritten.Functions[i])
		reports[i].Dropped = reports[i].Total - after
	}
	return reports, rewritten, nil
}

func countInstrs(fn Function) int {
	n := 0
	for _, b := range fn.Blocks {
		n += len(b.Instrs)
	}
	return n
}
