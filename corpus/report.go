package corpus

import (
	"fmt"
	"io"
	"strings"
	"time"
)

// Summary counts results.
type Summary struct {
	Passed  int
	Failed  int
	Elapsed time.Duration
}

// Total returns the number of examples run.
func (s Summary) Total() int {
	return s.Passed + s.Failed
}

// OK reports whether every example passed.
func (s Summary) OK() bool {
	return s.Failed == 0
}

// Summarize counts passes and failures.
func Summarize(results []Result) Summary {
	var s Summary
	for _, r := range results {
		if r.Passed {
			s.Passed++
		} else {
			s.Failed++
		}
		s.Elapsed += r.Elapsed
	}
	return s
}

// Reporter prints results. Color enables ANSI escapes.
type Reporter struct {
	W       io.Writer
	Color   bool
	Verbose bool // also print passing examples' output
}

func (rp Reporter) paint(code, s string) string {
	if !rp.Color {
		return s
	}
	return "\033[" + code + "m" + s + "\033[0m"
}

// Report prints one block per example followed by a summary line, and
// returns the summary.
func (rp Reporter) Report(results []Result) Summary {
	for i, r := range results {
		fmt.Fprintln(rp.W, rp.paint("90", strings.Repeat("-", 40)))
		if r.Passed {
			fmt.Fprintf(rp.W, "Example %d %s: %s\n", i+1, rp.paint("32", "passed"), r.Example.Name())
			if rp.Verbose {
				for _, line := range r.Output {
					fmt.Fprintf(rp.W, "    %s\n", line)
				}
			}
			continue
		}

		fmt.Fprintf(rp.W, "Example %d %s: %s\n", i+1, rp.paint("31", "failed"), r.Example.Name())
		for _, line := range strings.Split(r.Failure(), "\n") {
			fmt.Fprintf(rp.W, "    %s\n", line)
		}
		if r.Err == nil || len(r.Output) > 0 {
			fmt.Fprintf(rp.W, "    got:  [%s]\n", strings.Join(r.Output, ", "))
			fmt.Fprintf(rp.W, "    want: [%s]\n", strings.Join(r.Expected, ", "))
		}
	}

	s := Summarize(results)
	fmt.Fprintln(rp.W, rp.paint("90", strings.Repeat("-", 40)))
	switch {
	case s.Total() == 0:
		fmt.Fprintln(rp.W, "No examples found.")
	case s.Failed > 0:
		fmt.Fprintf(rp.W, "Results: %s, %s, %d total (%s)\n",
			rp.paint("32", fmt.Sprintf("%d passed", s.Passed)),
			rp.paint("31", fmt.Sprintf("%d failed", s.Failed)),
			s.Total(), s.Elapsed.Round(time.Millisecond))
	default:
		fmt.Fprintf(rp.W, "Results: %s, %d total (%s)\n",
			rp.paint("32", fmt.Sprintf("%d passed", s.Passed)),
			s.Total(), s.Elapsed.Round(time.Millisecond))
	}
	return s
}
