// Package corpus loads labeled tally examples and checks what they print.
//
// The text format separates examples with lines holding only "---". An
// example starts with a "# Title" comment; any statement line may end with
// a "# -> value" comment declaring one expected output line:
//
//	# Two expressions
//	2 + 2;  # -> 4
//	3 * 4   # -> 12
//	---
//	# Assignment
//	x = 2; x * 3  # -> 6
//
// The YAML format is a list of {title, source, input, expect}; an explicit
// expect list replaces the inline annotations.
package corpus

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// annotation marks an expected output line inside a comment.
const annotation = "# -> "

//go:embed examples.txt
var builtin string

// Example is one labeled program.
type Example struct {
	Title  string   `yaml:"title"`
	Source string   `yaml:"source"`
	Input  *int64   `yaml:"input,omitempty"`  // overrides the runner's input value
	Expect []string `yaml:"expect,omitempty"` // overrides inline annotations

	File string `yaml:"-"`
	Line int    `yaml:"-"` // first line of the example in File
}

// Name returns "file:line title" when the origin is known.
func (e Example) Name() string {
	if e.File == "" {
		return e.Title
	}
	return fmt.Sprintf("%s:%d %s", filepath.Base(e.File), e.Line, e.Title)
}

// Expectations returns the expected output lines in order.
func (e Example) Expectations() []string {
	if e.Expect != nil {
		return e.Expect
	}
	var out []string
	for _, line := range strings.Split(e.Source, "\n") {
		_, expect, ok := strings.Cut(line, annotation)
		if !ok {
			continue
		}
		out = append(out, strings.TrimSpace(expect))
	}
	return out
}

// Builtin returns the examples that ship with tally.
func Builtin() []Example {
	examples, err := ParseText(builtin, "builtin")
	if err != nil {
		panic(fmt.Sprintf("corpus: builtin examples: %v", err))
	}
	return examples
}

// ParseText parses the "---" separated text format. name labels the
// examples' File field.
func ParseText(text, name string) ([]Example, error) {
	var (
		examples []Example
		block    []string
		start    = 1
	)

	flush := func(endLine int) error {
		ex, ok, err := parseBlock(block, start, name, len(examples)+1)
		if err != nil {
			return err
		}
		if ok {
			examples = append(examples, ex)
		}
		block = block[:0]
		start = endLine + 1
		return nil
	}

	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	for i, line := range lines {
		if strings.TrimSpace(line) == "---" {
			if err := flush(i + 1); err != nil {
				return nil, err
			}
			continue
		}
		block = append(block, line)
	}
	if err := flush(len(lines)); err != nil {
		return nil, err
	}

	return examples, nil
}

// parseBlock turns the lines between separators into an Example. Blocks
// holding only blank lines are skipped.
func parseBlock(lines []string, firstLine int, file string, index int) (Example, bool, error) {
	i := 0
	for i < len(lines) && strings.TrimSpace(lines[i]) == "" {
		i++
	}
	if i == len(lines) {
		return Example{}, false, nil
	}

	ex := Example{
		Title: fmt.Sprintf("Example %d", index),
		File:  file,
		Line:  firstLine + i,
	}

	head := strings.TrimSpace(lines[i])
	if strings.HasPrefix(head, "#") && !strings.HasPrefix(head, strings.TrimSpace(annotation)) {
		ex.Title = strings.TrimSpace(strings.TrimPrefix(head, "#"))
		i++
	}

	ex.Source = strings.TrimRight(strings.Join(lines[i:], "\n"), "\n ")
	if strings.TrimSpace(ex.Source) == "" {
		return Example{}, false, fmt.Errorf("%s:%d: example %q has no source", file, ex.Line, ex.Title)
	}
	return ex, true, nil
}

// ParseYAML parses the YAML format.
func ParseYAML(data []byte, name string) ([]Example, error) {
	var examples []Example
	if err := yaml.Unmarshal(data, &examples); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", name, err)
	}
	for i := range examples {
		ex := &examples[i]
		ex.File = name
		ex.Line = i + 1
		if ex.Title == "" {
			ex.Title = fmt.Sprintf("Example %d", i+1)
		}
		if strings.TrimSpace(ex.Source) == "" {
			return nil, fmt.Errorf("%s: example %q has no source", name, ex.Title)
		}
	}
	return examples, nil
}

// LoadFile reads a corpus file, choosing the format by extension:
// .yaml and .yml are YAML, everything else is text.
func LoadFile(path string) ([]Example, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading corpus %s: %w", path, err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ParseYAML(data, path)
	}
	return ParseText(string(data), path)
}

// LoadFiles loads several corpus files in order.
func LoadFiles(paths ...string) ([]Example, error) {
	var all []Example
	for _, p := range paths {
		examples, err := LoadFile(p)
		if err != nil {
			return nil, err
		}
		all = append(all, examples...)
	}
	return all, nil
}
