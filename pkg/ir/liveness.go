package ir

import (
	_ "embed"
	"sync"

	"github.com/beyondcivic/goflowdl/pkg/datalog"
)

// livenessSrc is the bundled liveness Datalog program from spec §4.5,
// embedded at build time — no file I/O at runtime, per spec §9.
//
//go:embed liveness.dl
var livenessSrc string

var (
	livenessOnce sync.Once
	livenessProg *datalog.Program
	livenessErr  error
)

func parsedLivenessProgram() (*datalog.Program, error) {
	livenessOnce.Do(func() {
		livenessProg, livenessErr = datalog.ParseProgram(livenessSrc)
	})
	return livenessProg, livenessErr
}

// liveAfter runs the bundled liveness analysis over fn and returns
// live_after: inst → set<variable>, per spec §4.5.
func liveAfter(fn Function) (map[string]map[string]bool, error) {
	prog, err := parsedLivenessProgram()
	if err != nil {
		return nil, err
	}

	facts := ExtractFacts(fn)
	derived, err := datalog.Run(prog, facts)
	if err != nil {
		return nil, err
	}

	out := make(map[string]map[string]bool)
	for _, f := range derived {
		if f.Name != "var_live" {
			continue
		}
		inst, v := f.Args[0], f.Args[1]
		if out[inst] == nil {
			out[inst] = make(map[string]bool)
		}
		out[inst][v] = true
	}
	return out, nil
}
