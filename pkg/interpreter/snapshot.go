package interpreter

import (
	"fmt"
	"io"
	"slices"

	"github.com/fxamacker/cbor/v2"
)

// Snapshot is the observable top-level state after (or during) a run
type Snapshot struct {
	PC        int      `cbor:"1,keyasint"`
	Steps     int      `cbor:"2,keyasint"`
	Registers []int32  `cbor:"3,keyasint,omitempty"` // trimmed after the last non-zero register
	Constants []string `cbor:"4,keyasint,omitempty"`
	Functions []string `cbor:"5,keyasint,omitempty"` // sorted names
}

// canonical mode keeps encodings byte-identical across runs
var snapshotEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("interpreter: failed to create CBOR enc mode: %v", err))
	}
	snapshotEncMode = em
}

// Snapshot captures the state of the top-level frame
func (i *Interpreter) Snapshot() Snapshot {
	regs := i.root.Registers
	last := len(regs) - 1
	for last >= 0 && regs[last] == 0 {
		last--
	}

	return Snapshot{
		PC:        i.root.PC,
		Steps:     i.steps,
		Registers: slices.Clone(regs[:last+1]),
		Constants: i.Constants(),
		Functions: i.Functions(),
	}
}

// EncodeSnapshot writes s to w as canonical CBOR
func EncodeSnapshot(w io.Writer, s Snapshot) error {
	data, err := snapshotEncMode.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}

	return nil
}

// DecodeSnapshot parses a snapshot written by EncodeSnapshot
func DecodeSnapshot(data []byte) (Snapshot, error) {
	var s Snapshot
	if err := cbor.Unmarshal(data, &s); err != nil {
		return Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}

	return s, nil
}
