package interpreter

import (
	"errors"
	"fmt"

	"regvm/pkg/bytecode"
)

// Fault kinds. A Fault unwraps to one of these.
var (
	ErrRegisterOutOfRange = errors.New("register out of range")
	ErrUnboundFunction    = errors.New("unbound function")
	ErrDivisionByZero     = errors.New("division by zero")
	ErrMemoryOverrun      = errors.New("memory overrun")
	ErrConstantOutOfRange = errors.New("constant out of range")
	ErrCallDepthExceeded  = errors.New("call depth exceeded")
	ErrUnterminatedBlock  = errors.New("unterminated block")
)

// Fault is a fatal execution error. Run stops at the faulting instruction
// without applying any of its writes.
type Fault struct {
	Kind   error           // one of the Err* fault kinds
	Frame  string          // function executing when the fault happened
	PC     int             // address of the faulting instruction in its frame
	Opcode bytecode.Opcode // faulting instruction
	Detail string
}

func (f *Fault) Error() string {
	msg := fmt.Sprintf("%s in %s at pc %d (%s)", f.Kind, f.Frame, f.PC, f.Opcode)
	if f.Detail != "" {
		msg += ": " + f.Detail
	}

	return msg
}

func (f *Fault) Unwrap() error {
	return f.Kind
}

func (i *Interpreter) fault(f *Frame, op bytecode.Opcode, kind error, detail string) *Fault {
	return &Fault{Kind: kind, Frame: f.FuncName, PC: f.PC, Opcode: op, Detail: detail}
}

type DiagnosticKind int

const (
	DiagUnrecognizedOpcode DiagnosticKind = iota
	DiagUnterminatedBlock
	DiagUnknownPrintMode
	DiagOperandOverrun
	DiagImageTruncated
)

func (k DiagnosticKind) String() string {
	switch k {
	case DiagUnrecognizedOpcode:
		return "unrecognized opcode"
	case DiagUnterminatedBlock:
		return "unterminated block"
	case DiagUnknownPrintMode:
		return "unknown print mode"
	case DiagOperandOverrun:
		return "operand overrun"
	case DiagImageTruncated:
		return "image truncated"
	default:
		return "unknown"
	}
}

// Diagnostic is a recoverable condition; execution continues after it
type Diagnostic struct {
	Kind    DiagnosticKind
	Frame   string
	PC      int
	Message string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s in %s at pc %d: %s", d.Kind, d.Frame, d.PC, d.Message)
}

// report records a diagnostic and logs it as a warning
func (i *Interpreter) report(f *Frame, kind DiagnosticKind, msg string) {
	d := Diagnostic{Kind: kind, Frame: f.FuncName, PC: f.PC, Message: msg}
	i.diagnostics = append(i.diagnostics, d)
	i.logger.Warn(msg, "kind", kind, "func", f.FuncName, "pc", f.PC)
}
