// File: api/waker.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Wake-handle contract shared by the wait primitives and the scheduler.

package api

// Waker is a handle that resumes one suspended computation.
//
// Wake must be safe to call from any goroutine, and from interrupt-style
// callers that may never block: implementations only flip state and push
// onto lock-free queues. Calling Wake more than once is allowed; wakes
// past the first may be no-ops.
type Waker interface {
	Wake()
}

// WakerFunc adapts a plain function to the Waker contract.
type WakerFunc func()

// Wake implements Waker.
func (f WakerFunc) Wake() { f() }
