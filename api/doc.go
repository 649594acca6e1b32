// File: api/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Package api defines the shared contracts of the microkern substrate:
// typed error values, the Waker wake-handle contract, and the generic
// Ring interface implemented by the lock-free queue structures.
//
// All other packages depend on api; api depends on nothing.
package api
