package interpreter_test

import (
	"bytes"
	"errors"
	"io"
	"slices"
	"testing"

	"regvm/pkg/interpreter"

	"github.com/charmbracelet/log"
)

func newTestInterpreter(out io.Writer, opts ...interpreter.Option) *interpreter.Interpreter {
	base := []interpreter.Option{
		interpreter.WithWriter(out),
		interpreter.WithLogger(log.New(io.Discard)),
	}

	return interpreter.NewInterpreter(append(base, opts...)...)
}

func run(t *testing.T, program []int32, opts ...interpreter.Option) (*interpreter.Interpreter, string, error) {
	t.Helper()

	var out bytes.Buffer
	it := newTestInterpreter(&out, opts...)
	it.Load(program)
	err := it.Run()

	return it, out.String(), err
}

func register(t *testing.T, it *interpreter.Interpreter, idx int) int32 {
	t.Helper()

	v, err := it.Register(idx)
	if err != nil {
		t.Fatalf("reading register %d: %v", idx, err)
	}

	return v
}

func TestAddAndPrint(t *testing.T) {
	program := []int32{
		0x2, 7, 0, // push 7, r0
		0x2, 3, 1, // push 3, r1
		0x5, 0, 1, // add r0, r1
		0x10, 0, 0, // print reg r0
	}

	it, out, err := run(t, program)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if out != "10\n" {
		t.Errorf("expected output %q, got %q", "10\n", out)
	}
	if v := register(t, it, 0); v != 10 {
		t.Errorf("expected r0 = 10, got %d", v)
	}
	if v := register(t, it, 1); v != 0 {
		t.Errorf("expected r1 = 0, got %d", v)
	}
}

func TestProgramCounterAdvancesPastOperands(t *testing.T) {
	program := []int32{
		0x2, 7, 0,
		0x2, 3, 1,
		0x5, 0, 1,
		0x10, 0, 0,
		0x1,
	}

	var out bytes.Buffer
	it := newTestInterpreter(&out)
	it.Load(program)

	for _, expected := range []int{3, 6, 9, 12, 13} {
		halted, err := it.Step()
		if err != nil || halted {
			t.Fatalf("unexpected step result halted=%v err=%v", halted, err)
		}
		if it.PC() != expected {
			t.Errorf("expected pc %d, got %d", expected, it.PC())
		}
	}
}

func TestPushThenRead(t *testing.T) {
	it, _, err := run(t, []int32{0x2, 123, 42})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if v := register(t, it, 42); v != 123 {
		t.Errorf("expected r42 = 123, got %d", v)
	}
}

func TestArithmeticConsumesSecondOperand(t *testing.T) {
	tests := []struct {
		name     string
		op       int32
		a, b     int32
		expected int32
	}{
		{"add", 0x5, 7, 3, 10},
		{"sub", 0x6, 7, 3, 4},
		{"mul", 0x7, 7, 3, 21},
		{"div", 0x8, 7, 3, 2},
		{"div truncates toward zero", 0x8, -7, 2, -3},
		{"sub below zero", 0x6, 3, 7, -4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			program := []int32{
				0x2, tt.a, 0,
				0x2, tt.b, 1,
				tt.op, 0, 1,
			}

			it, _, err := run(t, program)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if v := register(t, it, 0); v != tt.expected {
				t.Errorf("expected r0 = %d, got %d", tt.expected, v)
			}
			if v := register(t, it, 1); v != 0 {
				t.Errorf("expected r1 = 0, got %d", v)
			}
		})
	}
}

func TestArithmeticSameRegisterEndsAtZero(t *testing.T) {
	it, _, err := run(t, []int32{0x2, 4, 0, 0x5, 0, 0})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if v := register(t, it, 0); v != 0 {
		t.Errorf("expected r0 = 0, got %d", v)
	}
}

func TestDivisionByZero(t *testing.T) {
	program := []int32{
		0x2, 7, 0,
		0x8, 0, 1, // div r0, r1 with r1 = 0
	}

	it, _, err := run(t, program)
	if !errors.Is(err, interpreter.ErrDivisionByZero) {
		t.Fatalf("expected division by zero, got %v", err)
	}

	var fault *interpreter.Fault
	if !errors.As(err, &fault) {
		t.Fatalf("expected a *Fault, got %T", err)
	}
	if fault.PC != 3 || fault.Frame != "main" {
		t.Errorf("unexpected fault location %s at %d", fault.Frame, fault.PC)
	}

	if v := register(t, it, 0); v != 7 {
		t.Errorf("faulting instruction must not write, r0 = %d", v)
	}
}

func TestJumpIfEqual(t *testing.T) {
	t.Run("condition false advances past operands", func(t *testing.T) {
		program := []int32{
			0x4, 10, 0, 5, // jmpeq 10 if r0 == 5
			0x2, 1, 1, // push 1, r1
		}

		it, _, err := run(t, program)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if v := register(t, it, 1); v != 1 {
			t.Errorf("expected fall-through push to run, r1 = %d", v)
		}
	})

	t.Run("condition true jumps", func(t *testing.T) {
		program := []int32{
			0x2, 5, 0, // push 5, r0
			0x4, 10, 0, 5, // jmpeq 10 if r0 == 5
			0x2, 9, 1, // push 9, r1 (skipped)
			0x2, 2, 2, // push 2, r2
		}

		it, _, err := run(t, program)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if v := register(t, it, 1); v != 0 {
			t.Errorf("expected r1 to be skipped, got %d", v)
		}
		if v := register(t, it, 2); v != 2 {
			t.Errorf("expected r2 = 2, got %d", v)
		}
	})
}

func TestJump(t *testing.T) {
	it, _, err := run(t, []int32{0x3, 5, 0x2, 9, 0, 0x2, 1, 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if v := register(t, it, 0); v != 0 {
		t.Errorf("expected jumped-over push to be skipped, r0 = %d", v)
	}
	if v := register(t, it, 1); v != 1 {
		t.Errorf("expected r1 = 1, got %d", v)
	}
}

func TestJumpPastMemoryHalts(t *testing.T) {
	it, _, err := run(t, []int32{0x3, 100, 0x2, 1, 0}, interpreter.WithCapacity(16, 4))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if v := register(t, it, 0); v != 0 {
		t.Errorf("expected no further execution, r0 = %d", v)
	}
}

func TestNegativeJumpFaults(t *testing.T) {
	_, _, err := run(t, []int32{0x3, -1})
	if !errors.Is(err, interpreter.ErrMemoryOverrun) {
		t.Errorf("expected memory overrun, got %v", err)
	}
}

func TestConstantLiteral(t *testing.T) {
	program := []int32{
		0x15, 'h', 'i', 0x15, // const "hi"
		0x2, 0, 0, // push 0, r0
		0x10, 1, 0, // print const r0
	}

	it, out, err := run(t, program)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !slices.Equal(it.Constants(), []string{"hi"}) {
		t.Errorf("expected constants [hi], got %v", it.Constants())
	}
	if out != "hi\n" {
		t.Errorf("expected output %q, got %q", "hi\n", out)
	}
}

func TestJumpIntoStreamScansLive(t *testing.T) {
	program := []int32{
		0x3, 5, // jmp 5
		0x15, 'n', 'o', 0x15, 'y', 'e', 's', 0x15, // the 0x15 at 5 opens "yes"
		0x2, 0, 0,
		0x10, 1, 0,
	}

	it, out, err := run(t, program)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if out != "yes\n" {
		t.Errorf("expected output %q, got %q", "yes\n", out)
	}
	if !slices.Equal(it.Constants(), []string{"yes"}) {
		t.Errorf("expected constants [yes], got %v", it.Constants())
	}
}

func TestFunctionCall(t *testing.T) {
	program := []int32{
		0x15, 'f', 0x15, // const "f"
		0x9, 0, 0x10, 0, 0, 0x9, // func c0 { print reg r0 }
		0x2, 42, 0, // push 42, r0
		0x11, 0, // call c0
		0x11, 0, // call c0
	}

	it, out, err := run(t, program)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if out != "42\n42\n" {
		t.Errorf("expected body to run once per call, got %q", out)
	}
	if !slices.Equal(it.Functions(), []string{"f"}) {
		t.Errorf("expected functions [f], got %v", it.Functions())
	}
	if it.Depth() != 0 {
		t.Errorf("expected all callee frames to be gone, depth %d", it.Depth())
	}
}

func TestCallIsolation(t *testing.T) {
	program := []int32{
		0x15, 'f', 0x15, // const "f"
		0x9, 0, // func c0 {
		0x10, 0, 0, //   print reg r0
		0x2, 99, 0, //   push 99, r0
		0x15, 'x', 0x15, //   const "x"
		0x10, 0, 0, //   print reg r0
		0x9,       // }
		0x2, 5, 0, // push 5, r0
		0x11, 0, // call c0
		0x10, 0, 0, // print reg r0
	}

	it, out, err := run(t, program)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if out != "5\n99\n5\n" {
		t.Errorf("expected callee to see a copy of the caller registers, got %q", out)
	}
	if v := register(t, it, 0); v != 5 {
		t.Errorf("expected caller r0 = 5, got %d", v)
	}
	if !slices.Equal(it.Constants(), []string{"f"}) {
		t.Errorf("callee constants leaked into caller: %v", it.Constants())
	}
}

func TestRedeclarationOverwrites(t *testing.T) {
	program := []int32{
		0x15, 'f', 0x15,
		0x9, 0, 0x2, 1, 0, 0x10, 0, 0, 0x9, // func f { push 1, r0; print r0 }
		0x9, 0, 0x2, 2, 0, 0x10, 0, 0, 0x9, // func f { push 2, r0; print r0 }
		0x11, 0,
	}

	_, out, err := run(t, program)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if out != "2\n" {
		t.Errorf("expected the second declaration to win, got %q", out)
	}
}

func TestFaults(t *testing.T) {
	tests := []struct {
		name     string
		program  []int32
		opts     []interpreter.Option
		expected error
		pc       int
	}{
		{
			name:     "register out of range",
			program:  []int32{0x2, 1, 4},
			opts:     []interpreter.Option{interpreter.WithCapacity(64, 4)},
			expected: interpreter.ErrRegisterOutOfRange,
		},
		{
			name:     "negative register",
			program:  []int32{0x10, 0, -1},
			expected: interpreter.ErrRegisterOutOfRange,
		},
		{
			name:     "unbound function",
			program:  []int32{0x15, 'g', 0x15, 0x11, 0},
			expected: interpreter.ErrUnboundFunction,
			pc:       3,
		},
		{
			name:     "call without constant",
			program:  []int32{0x11, 0},
			expected: interpreter.ErrConstantOutOfRange,
		},
		{
			name:     "print missing constant",
			program:  []int32{0x2, 3, 0, 0x10, 1, 0},
			expected: interpreter.ErrConstantOutOfRange,
			pc:       3,
		},
		{
			name:     "declare without constant",
			program:  []int32{0x9, 0, 0x9},
			expected: interpreter.ErrConstantOutOfRange,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := run(t, tt.program, tt.opts...)
			if !errors.Is(err, tt.expected) {
				t.Fatalf("expected %v, got %v", tt.expected, err)
			}

			var fault *interpreter.Fault
			if !errors.As(err, &fault) {
				t.Fatalf("expected a *Fault, got %T", err)
			}
			if fault.PC != tt.pc {
				t.Errorf("expected fault at pc %d, got %d", tt.pc, fault.PC)
			}
		})
	}
}

func TestCallDepthLimit(t *testing.T) {
	program := []int32{
		0x15, 'f', 0x15,
		0x9, 0, 0x11, 0, 0x9, // func f { call f }
		0x11, 0,
	}

	it, _, err := run(t, program, interpreter.WithMaxCallDepth(3))
	if !errors.Is(err, interpreter.ErrCallDepthExceeded) {
		t.Fatalf("expected call depth exceeded, got %v", err)
	}

	if it.Depth() != 3 {
		t.Errorf("expected depth 3 at fault, got %d", it.Depth())
	}
}

func TestMaxSteps(t *testing.T) {
	it, _, err := run(t, []int32{0x3, 0}, interpreter.WithMaxSteps(10))
	if !errors.Is(err, interpreter.ErrMaxStepsExceeded) {
		t.Fatalf("expected max steps exceeded, got %v", err)
	}

	if it.Steps() != 10 {
		t.Errorf("expected 10 steps, got %d", it.Steps())
	}
}

func TestUnrecognizedOpcodeContinues(t *testing.T) {
	it, _, err := run(t, []int32{0x42, 0x2, 3, 0})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if v := register(t, it, 0); v != 3 {
		t.Errorf("expected execution to continue, r0 = %d", v)
	}

	diags := it.Diagnostics()
	if len(diags) != 1 || diags[0].Kind != interpreter.DiagUnrecognizedOpcode || diags[0].PC != 0 {
		t.Errorf("unexpected diagnostics %v", diags)
	}
}

func TestUnknownPrintMode(t *testing.T) {
	it, out, err := run(t, []int32{0x10, 7, 0, 0x2, 1, 0})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if out != "" {
		t.Errorf("expected no output, got %q", out)
	}
	if v := register(t, it, 0); v != 1 {
		t.Errorf("expected execution to continue, r0 = %d", v)
	}

	diags := it.Diagnostics()
	if len(diags) != 1 || diags[0].Kind != interpreter.DiagUnknownPrintMode {
		t.Errorf("unexpected diagnostics %v", diags)
	}
}

func TestUnterminatedConstant(t *testing.T) {
	program := []int32{0x15, 'a', 'b', 'c'}

	t.Run("reported", func(t *testing.T) {
		it, _, err := run(t, program, interpreter.WithCapacity(4, 2))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if !slices.Equal(it.Constants(), []string{"abc"}) {
			t.Errorf("expected partial constant to be committed, got %v", it.Constants())
		}

		diags := it.Diagnostics()
		if len(diags) != 1 || diags[0].Kind != interpreter.DiagUnterminatedBlock {
			t.Errorf("unexpected diagnostics %v", diags)
		}
	})

	t.Run("strict", func(t *testing.T) {
		it, _, err := run(t, program, interpreter.WithCapacity(4, 2), interpreter.WithStrict(true))
		if !errors.Is(err, interpreter.ErrUnterminatedBlock) {
			t.Fatalf("expected unterminated block fault, got %v", err)
		}

		if len(it.Constants()) != 0 {
			t.Errorf("strict mode must not commit, got %v", it.Constants())
		}
	})
}

func TestUnterminatedFunction(t *testing.T) {
	program := []int32{
		0x15, 'f', 0x15, // const "f"
		0x9, 0, // func c0 {
		0x10, 0, 0, //   print reg r0
	}

	t.Run("reported", func(t *testing.T) {
		it, out, err := run(t, program, interpreter.WithCapacity(8, 2))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if out != "" {
			t.Errorf("declaring must not run the body, got %q", out)
		}
		if !slices.Equal(it.Functions(), []string{"f"}) {
			t.Errorf("expected partial function to be declared, got %v", it.Functions())
		}
		if it.PC() != 8 {
			t.Errorf("expected pc at the end of memory, got %d", it.PC())
		}

		diags := it.Diagnostics()
		if len(diags) != 1 || diags[0].Kind != interpreter.DiagUnterminatedBlock || diags[0].PC != 3 {
			t.Errorf("unexpected diagnostics %v", diags)
		}
	})

	t.Run("strict", func(t *testing.T) {
		it, _, err := run(t, program, interpreter.WithCapacity(8, 2), interpreter.WithStrict(true))
		if !errors.Is(err, interpreter.ErrUnterminatedBlock) {
			t.Fatalf("expected unterminated block fault, got %v", err)
		}

		if len(it.Functions()) != 0 {
			t.Errorf("strict mode must not declare, got %v", it.Functions())
		}
		if it.PC() != 3 {
			t.Errorf("expected pc on the declaration, got %d", it.PC())
		}
	})
}

func TestUnterminatedBlockInCalleeEndsWithBody(t *testing.T) {
	program := []int32{
		0x15, 'f', 0x15, // const "f"
		0x9, 0, // func c0 {
		0x15, 'a', //   const "a" without its closing word
		0x9,      // }
		0x11, 0, // call c0
	}

	it, out, err := run(t, program, interpreter.WithCapacity(10, 2))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if out != "" {
		t.Errorf("expected no output, got %q", out)
	}
	// const, func, call, then the callee's block consumes the rest of its body
	if it.Steps() != 4 {
		t.Errorf("expected 4 steps, got %d", it.Steps())
	}
	if !slices.Equal(it.Constants(), []string{"f"}) {
		t.Errorf("callee constant leaked into caller, got %v", it.Constants())
	}

	diags := it.Diagnostics()
	if len(diags) != 1 || diags[0].Kind != interpreter.DiagUnterminatedBlock || diags[0].Frame != "f" || diags[0].PC != 0 {
		t.Errorf("unexpected diagnostics %v", diags)
	}
}

func TestOperandOverrun(t *testing.T) {
	program := []int32{0x2, 7}

	t.Run("sentinel", func(t *testing.T) {
		it, _, err := run(t, program, interpreter.WithCapacity(2, 2))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if v := register(t, it, 0); v != 7 {
			t.Errorf("expected missing register operand to read as 0, r0 = %d", v)
		}
		if it.PC() != 2 {
			t.Errorf("expected pc clamped to 2, got %d", it.PC())
		}

		diags := it.Diagnostics()
		if len(diags) != 1 || diags[0].Kind != interpreter.DiagOperandOverrun {
			t.Errorf("unexpected diagnostics %v", diags)
		}
	})

	t.Run("strict", func(t *testing.T) {
		it, _, err := run(t, program, interpreter.WithCapacity(2, 2), interpreter.WithStrict(true))
		if !errors.Is(err, interpreter.ErrMemoryOverrun) {
			t.Fatalf("expected memory overrun, got %v", err)
		}

		if v := register(t, it, 0); v != 0 {
			t.Errorf("faulting instruction must not write, r0 = %d", v)
		}
	})
}

func TestLoadTruncates(t *testing.T) {
	var out bytes.Buffer
	it := newTestInterpreter(&out, interpreter.WithCapacity(4, 2))

	if n := it.Load([]int32{1, 1, 1, 1, 0x2, 5}); n != 4 {
		t.Errorf("expected 4 words loaded, got %d", n)
	}

	if _, err := it.Word(4); !errors.Is(err, interpreter.ErrMemoryOverrun) {
		t.Errorf("expected out of range word read to fail, got %v", err)
	}

	diags := it.Diagnostics()
	if len(diags) != 1 || diags[0].Kind != interpreter.DiagImageTruncated {
		t.Errorf("unexpected diagnostics %v", diags)
	}
}

func TestLoadResetsState(t *testing.T) {
	var out bytes.Buffer
	it := newTestInterpreter(&out)

	it.Load([]int32{0x15, 'a', 0x15, 0x2, 1, 0})
	if err := it.Run(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	it.Load([]int32{0x2, 2, 1})
	if err := it.Run(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(it.Constants()) != 0 {
		t.Errorf("expected constants to be cleared, got %v", it.Constants())
	}
	if v := register(t, it, 0); v != 0 {
		t.Errorf("expected r0 to be cleared, got %d", v)
	}
	if w, _ := it.Word(3); w != 0 {
		t.Errorf("expected memory of the previous image to be cleared, got %d", w)
	}
}

func TestRegisterAccessorBounds(t *testing.T) {
	it := newTestInterpreter(io.Discard, interpreter.WithCapacity(8, 3))

	if _, err := it.Register(3); !errors.Is(err, interpreter.ErrRegisterOutOfRange) {
		t.Errorf("expected register out of range, got %v", err)
	}
	if _, err := it.Register(-1); !errors.Is(err, interpreter.ErrRegisterOutOfRange) {
		t.Errorf("expected register out of range, got %v", err)
	}
}
