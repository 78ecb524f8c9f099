package interpreter

import (
	"errors"
	"fmt"
	"io"
	"os"
	"slices"

	"regvm/pkg/bytecode"
	"regvm/pkg/stack"

	"github.com/charmbracelet/log"
)

const (
	DefaultMemoryCapacity   = 4096
	DefaultRegisterCapacity = 1000
)

const rootFrameName = "main"

// Interpreter executes a register machine program loaded into a flat memory
type Interpreter struct {
	memory      []int32 // root memory, fixed capacity
	registerCap int     // size of every frame's register file

	root   *Frame               // top-level frame, owns memory
	frames *stack.Stack[*Frame] // call stack, root at the bottom

	out    io.Writer   // output writer for print
	logger *log.Logger // trace and diagnostics

	diagnostics []Diagnostic

	maxSteps     int  // maximum steps (0 = unlimited)
	maxCallDepth int  // maximum live callee frames (0 = unlimited)
	strict       bool // treat recoverable block and operand overruns as faults
	steps        int  // steps executed
}

type Option func(*Interpreter)

// WithWriter sets the output writer for print instructions and dumps
func WithWriter(w io.Writer) Option {
	return func(i *Interpreter) { i.out = w }
}

// WithLogger sets the logger used for tracing and diagnostics
func WithLogger(l *log.Logger) Option {
	return func(i *Interpreter) { i.logger = l }
}

// WithMaxSteps sets a maximum number of interpreter steps before returning ErrMaxStepsExceeded
func WithMaxSteps(n int) Option {
	return func(i *Interpreter) { i.maxSteps = n }
}

// WithCapacity sets the memory and register file sizes.
// Non-positive values keep the defaults.
func WithCapacity(memory, registers int) Option {
	return func(i *Interpreter) {
		if memory > 0 {
			i.memory = make([]int32, memory)
		}
		if registers > 0 {
			i.registerCap = registers
		}
	}
}

// WithMaxCallDepth limits the number of nested function calls
func WithMaxCallDepth(n int) Option {
	return func(i *Interpreter) { i.maxCallDepth = n }
}

// WithStrict turns unterminated blocks and operand reads past the end of memory into faults
func WithStrict(strict bool) Option {
	return func(i *Interpreter) { i.strict = strict }
}

// NewInterpreter creates a new Interpreter instance with zeroed memory and registers
func NewInterpreter(opts ...Option) *Interpreter {
	it := &Interpreter{
		memory:      make([]int32, DefaultMemoryCapacity),
		registerCap: DefaultRegisterCapacity,
		frames:      stack.New[*Frame](),
	}

	for _, o := range opts {
		o(it)
	}

	if it.out == nil {
		it.out = os.Stdout
	}

	if it.logger == nil {
		it.logger = log.Default()
	}

	it.Reset()
	it.root.Index = bytecode.BuildIndex(it.memory)

	return it
}

// Load copies words into memory starting at offset 0 and resets runtime state.
// Words beyond the memory capacity are dropped; the number of loaded words is returned.
func (i *Interpreter) Load(words []int32) int {
	i.Reset()

	clear(i.memory)
	n := copy(i.memory, words)
	if n < len(words) {
		i.report(i.root, DiagImageTruncated,
			fmt.Sprintf("image truncated to %d words, %d dropped", n, len(words)-n))
	}

	i.root.Index = bytecode.BuildIndex(i.memory)
	return n
}

// Reset clears runtime state (registers, constants, functions, call stack, counters).
// Memory is kept.
func (i *Interpreter) Reset() {
	var index bytecode.Index
	if i.root != nil {
		index = i.root.Index
	}

	i.root = &Frame{
		FuncName:  rootFrameName,
		Memory:    i.memory,
		Registers: make([]int32, i.registerCap),
		Functions: newFunctionTable(nil),
		Index:     index,
	}

	i.frames.Clear()
	i.frames.Push(i.root)
	i.diagnostics = nil
	i.steps = 0
}

// Step executes a single instruction, returning (halted, error)
func (i *Interpreter) Step() (bool, error) {
	f, ok := i.unwind()
	if !ok {
		return true, nil
	}

	if i.maxSteps > 0 && i.steps >= i.maxSteps {
		return false, ErrMaxStepsExceeded
	}

	err := i.execute(f)
	i.steps++

	return false, err
}

// Run executes until halt or error
func (i *Interpreter) Run() error {
	for {
		halted, err := i.Step()
		if err != nil {
			return err
		}

		if halted {
			return nil
		}
	}
}

// unwind pops every frame whose program counter left its memory and
// returns the frame to execute next, or false once the root frame is done
func (i *Interpreter) unwind() (*Frame, bool) {
	for {
		f, ok := i.frames.Peek()
		if !ok {
			return nil, false
		}

		if f.PC < len(f.Memory) {
			return f, true
		}

		i.frames.Pop()
		if f != i.root {
			i.logger.Debug("return", "func", f.FuncName, "depth", i.Depth())
		}
	}
}

// currentFrame returns the executing frame, or the root frame once halted
func (i *Interpreter) currentFrame() *Frame {
	if f, ok := i.frames.Peek(); ok {
		return f
	}

	return i.root
}

// PC returns the program counter of the executing frame
func (i *Interpreter) PC() int {
	return i.currentFrame().PC
}

// Depth returns the number of live callee frames
func (i *Interpreter) Depth() int {
	if i.frames.Size() == 0 {
		return 0
	}

	return i.frames.Size() - 1
}

// Steps returns the number of executed instructions
func (i *Interpreter) Steps() int {
	return i.steps
}

// Register returns the value of a top-level register
func (i *Interpreter) Register(idx int) (int32, error) {
	if idx < 0 || idx >= len(i.root.Registers) {
		return 0, fmt.Errorf("register %d: %w", idx, ErrRegisterOutOfRange)
	}

	return i.root.Registers[idx], nil
}

// Word returns the memory word at addr
func (i *Interpreter) Word(addr int) (int32, error) {
	if addr < 0 || addr >= len(i.memory) {
		return 0, fmt.Errorf("address %d: %w", addr, ErrMemoryOverrun)
	}

	return i.memory[addr], nil
}

// Constants returns a copy of the top-level constant pool
func (i *Interpreter) Constants() []string {
	return slices.Clone(i.root.Constants)
}

// Functions returns the sorted names of the top-level functions
func (i *Interpreter) Functions() []string {
	return i.root.Functions.Names()
}

// Diagnostics returns the non-fatal conditions met since the last load
func (i *Interpreter) Diagnostics() []Diagnostic {
	return slices.Clone(i.diagnostics)
}

var (
	ErrMaxStepsExceeded = errors.New("maximum steps exceeded")
)
