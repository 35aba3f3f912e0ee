package bytecode

import (
	"fmt"
	"strings"
)

// Listing returns one "OFFSET  INSTR" line per instruction.
func (p Program) Listing() string {
	var sb strings.Builder
	for i, line := range p.Lines() {
		fmt.Fprintf(&sb, "%04d  %s\n", i, line)
	}
	return sb.String()
}

// Lines returns the textual form of each instruction.
func (p Program) Lines() []string {
	out := make([]string, len(p.code))
	for i, in := range p.code {
		out[i] = in.String()
	}
	return out
}

// DisassembleWithName returns a human-readable listing with a name header.
func (p Program) DisassembleWithName(name string) string {
	var sb strings.Builder

	if name != "" {
		sb.WriteString(fmt.Sprintf("; === %s ===\n", name))
	}
	sb.WriteString(fmt.Sprintf("; %d instructions, max stack depth %d\n", len(p.code), p.MaxStackDepth()))

	vars := p.Variables()
	if len(vars) > 0 {
		sb.WriteString("; Variables: " + strings.Join(vars, ", ") + "\n")
	}
	sb.WriteString("\n")
	sb.WriteString(p.Listing())

	return sb.String()
}

// Variables returns the distinct variable names referenced, in first-use order.
func (p Program) Variables() []string {
	seen := make(map[string]bool)
	var names []string
	for _, in := range p.code {
		if GetOpcodeInfo(in.Op).Arg != ArgName || seen[in.Name] {
			continue
		}
		seen[in.Name] = true
		names = append(names, in.Name)
	}
	return names
}

// MaxStackDepth simulates stack effects and returns the deepest point.
// Underflow is not reported here; the VM catches it at run time.
func (p Program) MaxStackDepth() int {
	depth, deepest := 0, 0
	for _, in := range p.code {
		info := GetOpcodeInfo(in.Op)
		depth -= info.StackPop
		if depth < 0 {
			depth = 0
		}
		depth += info.StackPush
		if depth > deepest {
			deepest = depth
		}
	}
	return deepest
}
