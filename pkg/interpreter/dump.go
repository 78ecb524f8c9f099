package interpreter

import (
	"fmt"

	"regvm/pkg/color"
)

const dumpRule = "-----------------------------------------------------------"

// Dump writes the first registerLimit registers and memoryLimit memory words
// of the top-level frame to the output writer. Limits are clamped to the capacities.
func (i *Interpreter) Dump(memoryLimit, registerLimit int) {
	w := i.out
	registers := i.root.Registers[:clampLimit(registerLimit, len(i.root.Registers))]
	memory := i.memory[:clampLimit(memoryLimit, len(i.memory))]

	fmt.Fprintln(w, color.Header("--Debug"+dumpRule[len("--Debug"):]))
	fmt.Fprintln(w, color.Header("--Registers--"))
	for idx, v := range registers {
		fmt.Fprintf(w, "Register %d = %d ", idx, v)
	}
	fmt.Fprintln(w, ";")

	fmt.Fprintln(w, color.Header("--Memory--"))
	for _, v := range memory {
		fmt.Fprintf(w, "%d ", v)
	}
	fmt.Fprintln(w, ";")

	fmt.Fprintln(w, color.Header(dumpRule))
}

func clampLimit(limit, capacity int) int {
	return max(0, min(limit, capacity))
}
