// Package xlog provides the sparse, package-scoped debug tracing used across
// audiocore: a bare stderr Printf/Println gated on a package-level flag,
// the same shape mewkiz/flac's own packages reach for rather than a
// structured logging dependency.
package xlog

import (
	"fmt"
	"os"
)

// Debug enables trace output across the module. It is false by default;
// embedders flip it on for diagnosing a misbehaving stream.
var Debug = false

// Println writes a trace line to stderr when Debug is enabled.
func Println(v ...interface{}) {
	if !Debug {
		return
	}
	fmt.Fprintln(os.Stderr, v...)
}

// Printf writes a formatted trace line to stderr when Debug is enabled.
func Printf(format string, v ...interface{}) {
	if !Debug {
		return
	}
	fmt.Fprintf(os.Stderr, format, v...)
}
