package bytecode

import "slices"

type RegionKind int

const (
	RegionConstant RegionKind = iota
	RegionFunction
)

func (k RegionKind) String() string {
	switch k {
	case RegionConstant:
		return "constant"
	case RegionFunction:
		return "function"
	default:
		return "unknown"
	}
}

// Region is a delimited constant or function block found in an image.
type Region struct {
	Kind    RegionKind
	Start   int     // address of the introducing opcode
	End     int     // first address after the closing delimiter, or len(image) if unterminated
	Name    int32   // constant index naming the function (functions only)
	Payload []int32 // characters of a constant, body of a function
	Closed  bool    // false if the delimiter was never found
}

// Index maps instruction addresses to the blocks starting there
type Index map[int]Region

// At returns the region starting at pc, if any
func (ix Index) At(pc int) (Region, bool) {
	r, ok := ix[pc]
	return r, ok
}

// Scan reads the block introduced by the opcode at start.
// It returns false if start is out of range or does not hold a block opcode.
func Scan(image []int32, start int) (Region, bool) {
	if start < 0 || start >= len(image) {
		return Region{}, false
	}

	op := Opcode(image[start])
	if !op.IsBlock() {
		return Region{}, false
	}

	r := Region{Start: start, End: len(image)}
	body := start + 1
	if op == OpFunc {
		r.Kind = RegionFunction
		if body < len(image) {
			r.Name = image[body]
		}
		body++
	} else {
		r.Kind = RegionConstant
	}

	delim := int32(op)
	end := len(image)
	for addr := body; addr < len(image); addr++ {
		if image[addr] == delim {
			end = addr
			r.End = addr + 1
			r.Closed = true
			break
		}
	}

	if body < end {
		r.Payload = slices.Clone(image[body:end])
	}

	return r, true
}

// BuildIndex walks the image one instruction at a time, following operand
// widths, and records every block that starts on an instruction boundary.
func BuildIndex(image []int32) Index {
	ix := make(Index)

	pc := 0
	for pc < len(image) {
		op := Opcode(image[pc])
		if op.IsBlock() {
			r, _ := Scan(image, pc)
			ix[pc] = r
			pc = r.End
			continue
		}

		pc += 1 + op.Operands()
	}

	return ix
}
