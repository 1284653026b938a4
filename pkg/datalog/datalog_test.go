package datalog_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beyondcivic/goflowdl/pkg/datalog"
	"github.com/beyondcivic/goflowdl/pkg/errs"
)

func mustProgram(t *testing.T, src string) *datalog.Program {
	t.Helper()
	prog, err := datalog.ParseProgram(src)
	require.NoError(t, err)
	return prog
}

func factSet(facts []datalog.Fact) map[string]bool {
	out := make(map[string]bool, len(facts))
	for _, f := range facts {
		out[f.String()] = true
	}
	return out
}

// scenario (a): transitive closure.
func TestRun_TransitiveClosure(t *testing.T) {
	prog := mustProgram(t, `
.decl edge(x, y) .input;
.decl reachable(x, y) .output;
.rule reachable(x, y) :- 1 edge(x, y);
.rule reachable(x, z) :- 2 reachable(x, y), edge(y, z);
`)

	facts := []datalog.Fact{
		{Name: "edge", Args: []string{"a", "b"}},
		{Name: "edge", Args: []string{"b", "c"}},
		{Name: "edge", Args: []string{"c", "d"}},
	}

	result, err := datalog.Run(prog, facts)
	require.NoError(t, err)

	got := factSet(result)
	want := []string{
		"edge(a, b)", "edge(b, c)", "edge(c, d)",
		"reachable(a, b)", "reachable(b, c)", "reachable(c, d)",
		"reachable(a, c)", "reachable(b, d)", "reachable(a, d)",
	}
	for _, w := range want {
		assert.True(t, got[w], "missing derived fact %s", w)
	}
	assert.Len(t, got, len(want))
}

// scenario (b): self-loop termination.
func TestRun_SelfLoopTerminates(t *testing.T) {
	prog := mustProgram(t, `
.decl edge(x, y) .input;
.decl reachable(x, y) .output;
.rule reachable(x, y) :- 1 edge(x, y);
.rule reachable(x, z) :- 2 reachable(x, y), edge(y, z);
`)

	facts := []datalog.Fact{{Name: "edge", Args: []string{"a", "a"}}}

	result, err := datalog.Run(prog, facts)
	require.NoError(t, err)
	got := factSet(result)
	assert.True(t, got["reachable(a, a)"])
	assert.Len(t, got, 2) // edge(a,a) + reachable(a,a)
}

// scenario (c): degenerate join with an explicit body arity of 2; the two
// atoms share the single variable x, so only values present in both q and r
// survive.
func TestRun_DegenerateJoin(t *testing.T) {
	prog := mustProgram(t, `
.decl q(x) .input;
.decl r(x) .input;
.decl p(x) .output;
.rule p(x) :- 2 q(x), r(x);
`)

	facts := []datalog.Fact{
		{Name: "q", Args: []string{"1"}},
		{Name: "q", Args: []string{"2"}},
		{Name: "r", Args: []string{"2"}},
		{Name: "r", Args: []string{"3"}},
	}

	result, err := datalog.Run(prog, facts)
	require.NoError(t, err)

	got := factSet(result)
	assert.True(t, got["p(2)"])
	assert.False(t, got["p(1)"])
	assert.False(t, got["p(3)"])
}

// Cross-join case: two body atoms sharing no variables at all yield the
// empty result, per spec §9's pinned reference behaviour.
func TestRun_CrossJoinYieldsEmpty(t *testing.T) {
	prog := mustProgram(t, `
.decl a(x) .input;
.decl b(y) .input;
.decl ab(x, y) .output;
.rule ab(x, y) :- 2 a(x), b(y);
`)
	facts := []datalog.Fact{
		{Name: "a", Args: []string{"1"}},
		{Name: "b", Args: []string{"2"}},
	}
	result, err := datalog.Run(prog, facts)
	require.NoError(t, err)
	got := factSet(result)
	assert.False(t, got["ab(1, 2)"], "cross join must not produce a cartesian product")
}

// scenario (f): a fact referencing an Output relation must fail.
func TestRun_FactErrorOnOutputRelation(t *testing.T) {
	prog := mustProgram(t, `
.decl edge(x, y) .input;
.decl reachable(x, y) .output;
.rule reachable(x, y) :- 1 edge(x, y);
`)
	_, err := datalog.Run(prog, []datalog.Fact{{Name: "reachable", Args: []string{"a", "b"}}})
	require.Error(t, err)
	var factErr *errs.FactError
	require.ErrorAs(t, err, &factErr)
	assert.Equal(t, "output-only", factErr.Kind)
}

func TestRun_FactErrorOnUndeclared(t *testing.T) {
	prog := mustProgram(t, `
.decl edge(x, y) .input;
.decl reachable(x, y) .output;
.rule reachable(x, y) :- 1 edge(x, y);
`)
	_, err := datalog.Run(prog, []datalog.Fact{{Name: "ghost", Args: []string{"a"}}})
	require.Error(t, err)
	var factErr *errs.FactError
	require.ErrorAs(t, err, &factErr)
	assert.Equal(t, "undeclared", factErr.Kind)
}

func TestRun_FactErrorOnArity(t *testing.T) {
	prog := mustProgram(t, `
.decl edge(x, y) .input;
.decl reachable(x, y) .output;
.rule reachable(x, y) :- 1 edge(x, y);
`)
	_, err := datalog.Run(prog, []datalog.Fact{{Name: "edge", Args: []string{"a"}}})
	require.Error(t, err)
	var factErr *errs.FactError
	require.ErrorAs(t, err, &factErr)
	assert.Equal(t, "arity-mismatch", factErr.Kind)
}

// Determinism (spec §8, invariant 3).
func TestRun_Deterministic(t *testing.T) {
	prog := mustProgram(t, `
.decl edge(x, y) .input;
.decl reachable(x, y) .output;
.rule reachable(x, y) :- 1 edge(x, y);
.rule reachable(x, z) :- 2 reachable(x, y), edge(y, z);
`)
	facts := []datalog.Fact{
		{Name: "edge", Args: []string{"a", "b"}},
		{Name: "edge", Args: []string{"b", "c"}},
	}

	r1, err := datalog.Run(prog, facts)
	require.NoError(t, err)
	r2, err := datalog.Run(prog, facts)
	require.NoError(t, err)
	// SortFacts makes the output order deterministic, so r1 and r2 must be
	// identical slices, not just equal as sets.
	if diff := cmp.Diff(r1, r2); diff != "" {
		t.Errorf("two runs of the same (program, facts) diverged (-r1 +r2):\n%s", diff)
	}

	// Idempotence is not checked here: feeding the derived facts back into
	// Run is rejected, because reachable is Output-only.
}

func TestValidate_RangeRestriction(t *testing.T) {
	_, err := datalog.ParseProgram(`
.decl edge(x, y) .input;
.decl bad(z) .output;
.rule bad(z) :- 1 edge(x, y);
`)
	require.Error(t, err)
	var schemaErr *errs.SchemaError
	require.ErrorAs(t, err, &schemaErr)
	assert.Equal(t, "range-restriction", schemaErr.Kind)
}

func TestValidate_UndeclaredRelation(t *testing.T) {
	_, err := datalog.ParseProgram(`
.decl edge(x, y) .output;
.rule edge(x, y) :- 1 ghost(x, y);
`)
	require.Error(t, err)
	var schemaErr *errs.SchemaError
	require.ErrorAs(t, err, &schemaErr)
	assert.Equal(t, "undeclared-relation", schemaErr.Kind)
}

func TestParseFactVector(t *testing.T) {
	facts, err := datalog.ParseFactVector(`
3
edge(a, b);
edge(b, c),
edge(c, d);
`)
	require.NoError(t, err)
	require.Len(t, facts, 3)
	assert.Equal(t, "edge", facts[0].Name)
	assert.Equal(t, []string{"a", "b"}, facts[0].Args)
}

func TestLex_ErrorOnUnrecognisedChar(t *testing.T) {
	_, err := datalog.Lex(".decl edge(x, y) .input; $")
	require.Error(t, err)
	var lexErr *errs.LexError
	require.ErrorAs(t, err, &lexErr)
}
