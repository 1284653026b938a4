// Goflowdl is a command-line Datalog engine paired with a basic-block IR
// dataflow toolkit.
//
// It evaluates declarative Datalog programs (declarations and rules) against
// a fact vector to a semi-naive fixed point, and it runs a liveness-based
// dead-code elimination pass over an external basic-block IR by lowering
// that IR to Datalog facts and evaluating a bundled liveness program against
// them.
//
// # Usage
//
// Evaluate a Datalog program against a fact vector:
//
//	goflowdl run program.dl facts.txt
//
// Run liveness dead-code elimination over an IR program:
//
//	goflowdl dce program.json -o program.out.json
//
// For detailed usage information, run:
//
//	goflowdl --help
package main

import (
	cmd "github.com/beyondcivic/goflowdl/cmd/goflowdl"
)

func main() {
	cmd.Init()
	cmd.Execute()
}
