package interpreter

import (
	"fmt"

	"regvm/pkg/bytecode"
)

// execute runs the instruction at the program counter of f
func (i *Interpreter) execute(f *Frame) error {
	op := bytecode.Opcode(f.Memory[f.PC])
	if op.IsBlock() {
		return i.execBlock(f, op)
	}

	args, err := i.operands(f, op)
	if err != nil {
		return err
	}

	i.logger.Debug(op.String(), "func", f.FuncName, "pc", f.PC, "args", args[:op.Operands()])

	switch op {
	case bytecode.OpNop, bytecode.OpNopAlt:
		i.advance(f, 1)

	case bytecode.OpPush:
		// value, register
		r, err := i.register(f, op, args[1])
		if err != nil {
			return err
		}
		*r = args[0]
		i.advance(f, 3)

	case bytecode.OpJmp:
		return i.jump(f, op, args[0])

	case bytecode.OpJmpEq:
		// target, register, value
		r, err := i.register(f, op, args[1])
		if err != nil {
			return err
		}
		if *r == args[2] {
			return i.jump(f, op, args[0])
		}
		i.advance(f, 4)

	case bytecode.OpAdd, bytecode.OpSub, bytecode.OpMul, bytecode.OpDiv:
		a, err := i.register(f, op, args[0])
		if err != nil {
			return err
		}
		b, err := i.register(f, op, args[1])
		if err != nil {
			return err
		}
		res, err := i.evalArithmetic(f, op, *a, *b)
		if err != nil {
			return err
		}
		// the second operand is consumed
		*a = res
		*b = 0
		i.advance(f, 3)

	case bytecode.OpPrint:
		// mode, register
		r, err := i.register(f, op, args[1])
		if err != nil {
			return err
		}
		switch args[0] {
		case bytecode.PrintRegister:
			fmt.Fprintf(i.out, "%d\n", *r)
		case bytecode.PrintConstant:
			c, err := i.constant(f, op, *r)
			if err != nil {
				return err
			}
			fmt.Fprintln(i.out, c)
		default:
			i.report(f, DiagUnknownPrintMode, fmt.Sprintf("unknown print mode %d", args[0]))
		}
		i.advance(f, 3)

	case bytecode.OpCall:
		return i.call(f, op, args[0])

	default:
		i.report(f, DiagUnrecognizedOpcode, fmt.Sprintf("Unknown opcode: 0x%x", int32(op)))
		i.advance(f, 1)
	}

	return nil
}

// operands reads the fixed operands of op. Reads past the end of memory
// yield 0; in strict mode they are a fault.
func (i *Interpreter) operands(f *Frame, op bytecode.Opcode) ([3]int32, error) {
	var args [3]int32

	n := op.Operands()
	overrun := false
	for k := 0; k < n; k++ {
		addr := f.PC + 1 + k
		if addr >= len(f.Memory) {
			overrun = true
			break
		}
		args[k] = f.Memory[addr]
	}

	if overrun {
		detail := fmt.Sprintf("%s needs %d operands past the end of memory", op, n)
		if i.strict {
			return args, i.fault(f, op, ErrMemoryOverrun, detail)
		}
		i.report(f, DiagOperandOverrun, detail)
	}

	return args, nil
}

// advance moves the program counter past an instruction of the given width,
// never beyond the end of memory
func (i *Interpreter) advance(f *Frame, width int) {
	f.PC = min(f.PC+width, len(f.Memory))
}

func (i *Interpreter) jump(f *Frame, op bytecode.Opcode, target int32) error {
	if target < 0 {
		return i.fault(f, op, ErrMemoryOverrun, fmt.Sprintf("jump to %d", target))
	}

	f.PC = int(target)
	return nil
}

// register validates idx and returns the register slot of f
func (i *Interpreter) register(f *Frame, op bytecode.Opcode, idx int32) (*int32, error) {
	if idx < 0 || int(idx) >= len(f.Registers) {
		return nil, i.fault(f, op, ErrRegisterOutOfRange,
			fmt.Sprintf("register %d, capacity %d", idx, len(f.Registers)))
	}

	return &f.Registers[idx], nil
}

// constant returns the constant-pool entry at idx
func (i *Interpreter) constant(f *Frame, op bytecode.Opcode, idx int32) (string, error) {
	if idx < 0 || int(idx) >= len(f.Constants) {
		return "", i.fault(f, op, ErrConstantOutOfRange,
			fmt.Sprintf("constant %d, pool size %d", idx, len(f.Constants)))
	}

	return f.Constants[idx], nil
}

// evalArithmetic computes a op b with wrapping 32-bit semantics
func (i *Interpreter) evalArithmetic(f *Frame, op bytecode.Opcode, a, b int32) (int32, error) {
	if !op.IsArithmetic() {
		return 0, fmt.Errorf("unsupported arithmetic op: %s", op)
	}

	switch op {
	case bytecode.OpAdd:
		return a + b, nil
	case bytecode.OpSub:
		return a - b, nil
	case bytecode.OpMul:
		return a * b, nil
	}

	if b == 0 {
		return 0, i.fault(f, op, ErrDivisionByZero, "")
	}
	return a / b, nil
}

func (i *Interpreter) call(f *Frame, op bytecode.Opcode, idx int32) error {
	name, err := i.constant(f, op, idx)
	if err != nil {
		return err
	}

	fn, ok := f.Functions.Lookup(name)
	if !ok {
		return i.fault(f, op, ErrUnboundFunction, fmt.Sprintf("%q", name))
	}

	if i.maxCallDepth > 0 && i.Depth() >= i.maxCallDepth {
		return i.fault(f, op, ErrCallDepthExceeded, fmt.Sprintf("limit %d", i.maxCallDepth))
	}

	if !fn.Closed {
		i.logger.Warn("Calling unterminated function", "func", name, "words", len(fn.Body))
	}

	i.advance(f, 2)
	i.frames.Push(f.child(fn))
	i.logger.Debug("call", "func", name, "depth", i.Depth())

	return nil
}

// execBlock commits the constant or function block starting at the program
// counter and moves past its closing delimiter
func (i *Interpreter) execBlock(f *Frame, op bytecode.Opcode) error {
	r, ok := f.Index.At(f.PC)
	if !ok {
		// reached by a jump into the middle of the stream
		r, _ = bytecode.Scan(f.Memory, f.PC)
	}

	var name string
	if r.Kind == bytecode.RegionFunction {
		var err error
		if name, err = i.constant(f, op, r.Name); err != nil {
			return err
		}
	}

	if !r.Closed {
		detail := fmt.Sprintf("%s block has no closing 0x%x", r.Kind, int32(op))
		if i.strict {
			return i.fault(f, op, ErrUnterminatedBlock, detail)
		}
		i.report(f, DiagUnterminatedBlock, detail)
	}

	switch r.Kind {
	case bytecode.RegionConstant:
		s := bytecode.DecodeText(r.Payload)
		f.Constants = append(f.Constants, s)
		i.logger.Debug("New constant", "func", f.FuncName, "index", len(f.Constants)-1, "value", s)

	case bytecode.RegionFunction:
		f.Functions.Declare(&Function{
			Name:   name,
			Body:   r.Payload,
			Index:  bytecode.BuildIndex(r.Payload),
			Closed: r.Closed,
		})
		i.logger.Debug("New function", "func", f.FuncName, "name", name, "words", len(r.Payload))
	}

	f.PC = r.End
	return nil
}
