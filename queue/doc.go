// File: queue/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Package queue implements the bounded lock-free MPMC queue (the Vyukov
// sequence-number algorithm) and Channel, the typed request/response
// conduit built on top of it: synchronous try-operations plus suspending
// forms that park on the wait primitives until the peer side acts.
package queue
