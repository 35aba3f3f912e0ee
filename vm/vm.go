package vm

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/tliron/commonlog"

	"github.com/chazu/tally/pkg/bytecode"
)

// State is the execution state of the last Eval call.
type State int

const (
	StateIdle State = iota // no Eval yet
	StateRunning
	StateHalted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateHalted:
		return "halted"
	case StateFailed:
		return "failed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// ---------------------------------------------------------------------------
// VM: operand stack + variable store
// ---------------------------------------------------------------------------

// VM executes Programs against an operand stack and a variable store. Both
// persist across Eval calls. A VM is owned by one caller at a time; it is
// not safe for concurrent use.
type VM struct {
	stack []int64
	vars  map[string]int64

	input InputProvider
	out   io.Writer
	trace bool
	log   commonlog.Logger

	state State
}

// Option configures a VM.
type Option func(*VM)

// WithInput sets the provider consulted for unbound variables.
func WithInput(p InputProvider) Option {
	return func(vm *VM) { vm.input = p }
}

// WithOutput sets where PRINT writes.
func WithOutput(w io.Writer) Option {
	return func(vm *VM) { vm.out = w }
}

// WithTrace logs every dispatched instruction at debug level.
func WithTrace(on bool) Option {
	return func(vm *VM) { vm.trace = on }
}

// WithLogger replaces the "tally.vm" logger.
func WithLogger(log commonlog.Logger) Option {
	return func(vm *VM) { vm.log = log }
}

// New creates a VM with an empty stack and store. Without WithInput every
// unbound LOAD fails; without WithOutput PRINT goes to stdout.
func New(opts ...Option) *VM {
	vm := &VM{
		stack: make([]int64, 0, 16),
		vars:  make(map[string]int64),
		input: noInput,
		out:   os.Stdout,
		log:   commonlog.GetLogger("tally.vm"),
	}
	for _, opt := range opts {
		opt(vm)
	}
	return vm
}

// ---------------------------------------------------------------------------
// Stack operations
// ---------------------------------------------------------------------------

func (vm *VM) push(v int64) {
	vm.stack = append(vm.stack, v)
}

func (vm *VM) pop() (int64, error) {
	n := len(vm.stack)
	if n == 0 {
		return 0, ErrStackUnderflow
	}
	v := vm.stack[n-1]
	vm.stack = vm.stack[:n-1]
	return v, nil
}

// pop2 pops b then a, for an instruction computing a op b.
func (vm *VM) pop2() (a, b int64, err error) {
	if len(vm.stack) < 2 {
		return 0, 0, ErrStackUnderflow
	}
	b, _ = vm.pop()
	a, _ = vm.pop()
	return a, b, nil
}

// ---------------------------------------------------------------------------
// Execution
// ---------------------------------------------------------------------------

// Eval runs prog to completion. On failure it returns a *RuntimeError and
// leaves the stack as it was at the failing instruction; variables bound
// before the failure stay bound.
func (vm *VM) Eval(prog bytecode.Program) error {
	vm.state = StateRunning

	for ip := 0; ip < prog.Len(); ip++ {
		in := prog.At(ip)
		if vm.trace {
			vm.traceInstruction(ip, in)
		}
		if err := vm.step(in); err != nil {
			vm.state = StateFailed
			return &RuntimeError{Index: ip, Instr: in, Err: err}
		}
	}

	if len(vm.stack) != 0 {
		vm.state = StateFailed
		return &RuntimeError{
			Index: -1,
			Err:   fmt.Errorf("%w: %v", ErrUnbalancedStack, vm.stack),
		}
	}

	vm.state = StateHalted
	return nil
}

// step dispatches one instruction.
func (vm *VM) step(in bytecode.Instruction) error {
	if err := in.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInstruction, err)
	}

	if in.Op.IsArithmetic() {
		a, b, err := vm.pop2()
		if err != nil {
			return err
		}
		r, err := arith(in.Op, a, b)
		if err != nil {
			return err
		}
		vm.push(r)
		return nil
	}

	switch in.Op {
	case bytecode.OpNop:
		return nil

	case bytecode.OpPopTop:
		_, err := vm.pop()
		return err

	case bytecode.OpConst:
		vm.push(in.Value)
		return nil

	case bytecode.OpLoad:
		v, err := vm.load(in.Name)
		if err != nil {
			return err
		}
		vm.push(v)
		return nil

	case bytecode.OpStore:
		v, err := vm.pop()
		if err != nil {
			return err
		}
		vm.vars[in.Name] = v
		return nil

	case bytecode.OpPrint:
		v, err := vm.pop()
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(vm.out, v)
		return err
	}

	return fmt.Errorf("%w: no handler for %s", ErrInvalidInstruction, in.Op)
}

// load reads a variable, asking the input provider the first time a name
// is seen and binding the answer.
func (vm *VM) load(name string) (int64, error) {
	if v, ok := vm.vars[name]; ok {
		return v, nil
	}
	v, err := vm.input.Request(name)
	if err != nil {
		return 0, err
	}
	vm.log.Debugf("input %s = %d", name, v)
	vm.vars[name] = v
	return v, nil
}

// arith applies a binary arithmetic opcode. Results wrap at 64 bits.
func arith(op bytecode.Opcode, a, b int64) (int64, error) {
	switch op {
	case bytecode.OpAdd:
		return a + b, nil
	case bytecode.OpMul:
		return a * b, nil
	case bytecode.OpPow:
		if b < 0 {
			return 0, fmt.Errorf("%w: %d ^ %d", ErrNegativeExponent, a, b)
		}
		return ipow(a, b), nil
	}
	return 0, fmt.Errorf("%w: %s is not arithmetic", ErrInvalidInstruction, op)
}

// ipow computes base^exp by repeated squaring.
func ipow(base, exp int64) int64 {
	result := int64(1)
	for exp > 0 {
		if exp&1 == 1 {
			result *= base
		}
		base *= base
		exp >>= 1
	}
	return result
}

func (vm *VM) traceInstruction(ip int, in bytecode.Instruction) {
	vm.log.Debugf("%04d %-10s @ %v", ip, in, vm.stack)
	vm.log.Debugf("     vars {%s}", vm.formatVars())
}

func (vm *VM) formatVars() string {
	names := vm.Names()
	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = fmt.Sprintf("%s: %d", name, vm.vars[name])
	}
	return strings.Join(parts, ", ")
}

// ---------------------------------------------------------------------------
// Inspection
// ---------------------------------------------------------------------------

// State reports the state of the most recent Eval.
func (vm *VM) State() State {
	return vm.state
}

// Stack returns a copy of the operand stack, bottom first.
func (vm *VM) Stack() []int64 {
	out := make([]int64, len(vm.stack))
	copy(out, vm.stack)
	return out
}

// Lookup returns the value bound to name.
func (vm *VM) Lookup(name string) (int64, bool) {
	v, ok := vm.vars[name]
	return v, ok
}

// Variables returns a copy of the variable store.
func (vm *VM) Variables() map[string]int64 {
	out := make(map[string]int64, len(vm.vars))
	for k, v := range vm.vars {
		out[k] = v
	}
	return out
}

// Names returns the bound variable names in sorted order.
func (vm *VM) Names() []string {
	names := make([]string, 0, len(vm.vars))
	for name := range vm.vars {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Unbound scans prog without running it and returns, in first-use order,
// the names it would have to ask the input provider for: names loaded
// before any STORE in prog and not already in the store.
func (vm *VM) Unbound(prog bytecode.Program) []string {
	var names []string
	seen := make(map[string]bool)
	for _, in := range prog.Instructions() {
		switch in.Op {
		case bytecode.OpStore:
			seen[in.Name] = true
		case bytecode.OpLoad:
			if seen[in.Name] {
				continue
			}
			seen[in.Name] = true
			if _, ok := vm.vars[in.Name]; !ok {
				names = append(names, in.Name)
			}
		}
	}
	return names
}

// Bind preloads a variable so LOAD never asks the provider for it.
func (vm *VM) Bind(name string, v int64) error {
	if !bytecode.IsVariableName(name) {
		return fmt.Errorf("vm: invalid variable name %q", name)
	}
	vm.vars[name] = v
	return nil
}

// DiscardStack empties the operand stack after a failed Eval. Variables
// are kept.
func (vm *VM) DiscardStack() {
	vm.stack = vm.stack[:0]
}

// SetInput replaces the input provider.
func (vm *VM) SetInput(p InputProvider) {
	if p == nil {
		p = noInput
	}
	vm.input = p
}

// SetOutput replaces the PRINT destination.
func (vm *VM) SetOutput(w io.Writer) {
	vm.out = w
}
