// File: registry/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Package registry maps 128-bit service identifiers to typed request
// queue producers, composing the bounded queue, the reusable oneshot and
// the byte ring into the kernel's request/response service model.
//
// Same-privilege callers get back a fully typed KernelHandle with no
// serialization step. Cross-privilege input enters through Dispatch as
// raw bytes: the entry's type-erased codec decodes the request, enqueues
// it with a nonce-correlated reply address, and the service's eventual
// answer is serialized back out through the caller's reply byte ring.
// Dispatch never panics on untrusted input; every failure is a typed
// error, reported both to the kernel caller and, as an error frame, to
// the cross-privilege peer.
//
// Registration is append-only for the kernel's lifetime.
package registry
