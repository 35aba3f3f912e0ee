package corpus

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/tliron/commonlog"

	"github.com/chazu/tally/compiler"
	"github.com/chazu/tally/vm"
)

var log = commonlog.GetLogger("tally.corpus")

// DefaultInput answers every variable prompt during a corpus run.
const DefaultInput int64 = 42

// Result captures the outcome of a single example.
type Result struct {
	Example  Example
	Passed   bool
	Output   []string // lines printed before the run ended
	Expected []string
	Err      error  // compile or runtime error, if any
	Mismatch string // why the output did not match
	Elapsed  time.Duration
}

// Failure describes why the example failed, or "" if it passed. Lex and
// parse errors are rendered with a caret excerpt of the source.
func (r Result) Failure() string {
	switch {
	case r.Passed:
		return ""
	case r.Err != nil:
		return compiler.Snippet(r.Err, r.Example.Source)
	}
	return r.Mismatch
}

// Runner compiles and evaluates examples, each on a fresh VM.
type Runner struct {
	Grammar *compiler.Grammar
	Input   int64 // used when an example does not set its own
	Trace   bool
}

// NewRunner creates a runner with the default grammar and input value.
func NewRunner() *Runner {
	return &Runner{
		Grammar: compiler.DefaultGrammar(),
		Input:   DefaultInput,
	}
}

// Run evaluates one example and compares its output with the
// expectations: same lines, same order, nothing extra.
func (r *Runner) Run(ex Example) (res Result) {
	start := time.Now()
	res = Result{Example: ex, Expected: ex.Expectations()}
	defer func() { res.Elapsed = time.Since(start) }()

	prog, err := compiler.Compile(r.Grammar, ex.Source)
	if err != nil {
		res.Err = err
		return res
	}

	input := r.Input
	if ex.Input != nil {
		input = *ex.Input
	}

	var out bytes.Buffer
	machine := vm.New(
		vm.WithInput(vm.ConstInput(input)),
		vm.WithOutput(&out),
		vm.WithTrace(r.Trace),
		vm.WithLogger(log),
	)
	err = machine.Eval(prog)
	res.Output = splitLines(out.String())
	if err != nil {
		res.Err = err
		return res
	}

	res.Mismatch = compare(res.Output, res.Expected)
	res.Passed = res.Mismatch == ""
	return res
}

// RunAll runs every example; a failing example never stops the rest.
func (r *Runner) RunAll(examples []Example) []Result {
	results := make([]Result, 0, len(examples))
	for _, ex := range examples {
		res := r.Run(ex)
		if res.Passed {
			log.Debugf("pass: %s", ex.Name())
		} else {
			log.Infof("fail: %s: %s", ex.Name(), res.Failure())
		}
		results = append(results, res)
	}
	return results
}

func splitLines(s string) []string {
	s = strings.TrimSuffix(s, "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}

// compare returns "" when got equals want line for line.
func compare(got, want []string) string {
	for i := 0; i < len(got) && i < len(want); i++ {
		if got[i] != want[i] {
			return fmt.Sprintf("output line %d: got %s, want %s", i+1, got[i], want[i])
		}
	}
	switch {
	case len(got) > len(want):
		return fmt.Sprintf("unexpected output line %d: %s", len(want)+1, got[len(want)])
	case len(got) < len(want):
		return fmt.Sprintf("missing output line %d: want %s", len(got)+1, want[len(got)])
	}
	return ""
}
