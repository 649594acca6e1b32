// File: bytering/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Package bytering implements the single-producer/single-consumer byte
// stream channel used for bulk and DMA-style transfer. Instead of moving
// items through slots, the ring grants exclusive contiguous regions of its
// backing array: the producer requests a write grant, fills it, and
// commits a length; the consumer requests a read grant and releases a
// length. When the free space at the tail of the buffer is too small, the
// ring wraps and grants the leading region instead, marking the tail
// unused via a watermark (the BipBuffer technique).
//
// At most one write grant and one read grant may be outstanding at a time.
// Synchronous grant requests fail fast; suspending forms park until the
// peer commits or releases. Two rings are paired into a BidiHandle for
// request/response drivers that need both directions.
package bytering
