package ir

import (
	"encoding/json"
	"fmt"
)

// wireProgram, wireFunction, and wireInstr mirror the upstream JSON IR
// format this package treats as an external collaborator (spec §1): a
// list of functions, each a flat instruction/label stream that Decode
// partitions into basic blocks the way original_source's
// BBProgram::new does (split before every label and after every
// terminator).
type wireProgram struct {
	Functions []wireFunction `json:"functions"`
}

type wireFunction struct {
	Name       string          `json:"name"`
	Args       []wireArg       `json:"args,omitempty"`
	ReturnType string          `json:"type,omitempty"`
	Instrs     []wireCode      `json:"instrs"`
}

type wireArg struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// wireCode is either a label ({"label": "..."}) or an instruction; both
// shapes are decoded into one struct and disambiguated on Label being set.
type wireCode struct {
	Label  string   `json:"label,omitempty"`
	Op     string   `json:"op,omitempty"`
	Dest   string   `json:"dest,omitempty"`
	Type   string   `json:"type,omitempty"`
	Args   []string `json:"args,omitempty"`
	Funcs  []string `json:"funcs,omitempty"`
	Labels []string `json:"labels,omitempty"`
	Value  any      `json:"value,omitempty"`
}

func (c wireCode) isLabel() bool { return c.Label != "" && c.Op == "" }

func (c wireCode) toInstruction() Instruction {
	kind := Effect
	switch {
	case c.Op == "const":
		kind = Constant
	case c.Dest != "":
		kind = Value
	}
	return Instruction{
		Kind:   kind,
		Dest:   c.Dest,
		Op:     c.Op,
		Args:   c.Args,
		Labels: c.Labels,
		Funcs:  c.Funcs,
		Value:  normalizeValue(c.Value, c.Type),
		Type:   c.Type,
	}
}

// normalizeValue coerces a JSON-decoded literal back to the Go type its
// declared type implies. encoding/json always decodes a bare number into
// an any as float64; an "int"-typed constant should round-trip as int64,
// mirroring original_source's typed Literal::Int/Bool/Float enum.
func normalizeValue(v any, typ string) any {
	f, ok := v.(float64)
	if !ok || typ != "int" {
		return v
	}
	return int64(f)
}

// Decode parses an upstream IR program from its JSON wire format and
// partitions each function's flat instruction stream into basic blocks,
// then calls Build to validate it and compute control-flow exits.
func Decode(data []byte) (*Program, error) {
	var wp wireProgram
	if err := json.Unmarshal(data, &wp); err != nil {
		return nil, fmt.Errorf("decode ir program: %w", err)
	}

	prog := &Program{Functions: make([]Function, 0, len(wp.Functions))}
	for _, wf := range wp.Functions {
		args := make([]string, len(wf.Args))
		for i, a := range wf.Args {
			args[i] = a.Name
		}
		prog.Functions = append(prog.Functions, Function{
			Name:       wf.Name,
			Args:       args,
			ReturnType: wf.ReturnType,
			Blocks:     toBlocks(wf.Instrs),
		})
	}

	if err := Build(prog); err != nil {
		return nil, err
	}
	return prog, nil
}

// toBlocks splits a flat instruction stream into basic blocks: a new block
// starts at every label and immediately after every terminator
// (jmp/br/ret), mirroring the teacher corpus's block-builder idiom.
func toBlocks(codes []wireCode) []BasicBlock {
	var blocks []BasicBlock
	var cur BasicBlock
	started := false

	flush := func() {
		if started {
			blocks = append(blocks, cur)
		}
		cur = BasicBlock{}
		started = false
	}

	for _, c := range codes {
		if c.isLabel() {
			flush()
			cur.Label = c.Label
			started = true
			continue
		}
		if !started {
			started = true
		}
		instr := c.toInstruction()
		cur.Instrs = append(cur.Instrs, instr)
		if instr.Kind == Effect && (instr.Op == "jmp" || instr.Op == "br" || instr.Op == "ret") {
			flush()
		}
	}
	flush()
	return blocks
}

// Encode serialises a Program back to the upstream JSON wire format, the
// way original_source's bril_to_string reassembles labels and
// instructions into one flat stream per function.
func Encode(prog *Program) ([]byte, error) {
	wp := wireProgram{Functions: make([]wireFunction, 0, len(prog.Functions))}
	for _, fn := range prog.Functions {
		args := make([]wireArg, len(fn.Args))
		for i, a := range fn.Args {
			args[i] = wireArg{Name: a}
		}

		var codes []wireCode
		for _, b := range fn.Blocks {
			if b.Label != "" {
				codes = append(codes, wireCode{Label: b.Label})
			}
			for _, instr := range b.Instrs {
				codes = append(codes, fromInstruction(instr))
			}
		}

		wp.Functions = append(wp.Functions, wireFunction{
			Name:       fn.Name,
			Args:       args,
			ReturnType: fn.ReturnType,
			Instrs:     codes,
		})
	}
	return json.MarshalIndent(wp, "", "  ")
}

func fromInstruction(instr Instruction) wireCode {
	return wireCode{
		Op:     instr.Op,
		Dest:   instr.Dest,
		Type:   instr.Type,
		Args:   instr.Args,
		Funcs:  instr.Funcs,
		Labels: instr.Labels,
		Value:  instr.Value,
	}
}
