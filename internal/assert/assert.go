// Package assert holds programmer-error checks. They panic; never feed
// them user input.
package assert

import (
	"fmt"
)

func Length(value string, expected int) {
	if len(value) != expected {
		msg := fmt.Sprintf("assert.Length expected %d actual %d", expected, len(value))
		panic(msg)
	}
}

func True(cond bool, format string, args ...any) {
	if !cond {
		panic("assert.True: " + fmt.Sprintf(format, args...))
	}
}
