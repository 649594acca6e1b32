// File: isr/isr.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

// Package isr tracks interrupt-context nesting so lock-free fast paths
// can tell whether they are allowed to suspend. Interrupt handlers (or
// any caller standing in for one) bracket their work with Enter/Exit;
// code that would otherwise block checks Active and falls back to its
// non-suspending form.
package isr

import "sync/atomic"

var depth atomic.Int32

// Enter marks the beginning of an interrupt-context section. Nests.
func Enter() {
	depth.Add(1)
}

// Exit marks the end of the innermost interrupt-context section.
// Panics on unbalanced use.
func Exit() {
	if depth.Add(-1) < 0 {
		panic("isr: exit without matching enter")
	}
}

// Active reports whether any interrupt-context section is open.
func Active() bool {
	return depth.Load() > 0
}

// Depth returns the current nesting level.
func Depth() int {
	return int(depth.Load())
}

// Section runs fn inside an interrupt-context bracket.
func Section(fn func()) {
	Enter()
	defer Exit()
	fn()
}
