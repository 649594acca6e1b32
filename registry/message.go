// File: registry/message.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// The request envelope and the reply addresses it can carry.

package registry

import (
	"context"

	"github.com/momentics/microkern/bytering"
	"github.com/momentics/microkern/oneshot"
	"github.com/momentics/microkern/queue"
)

// Message is the envelope a service dequeues: a request body plus the
// address its response must be sent to.
type Message[T, U any] struct {
	Body  T
	Reply ReplyTo[U]
}

// ReplyTo is a reply address. Implementations either hand the response to
// another kernel entity without serialization, or serialize it back
// across the privilege boundary.
type ReplyTo[U any] interface {
	Reply(ctx context.Context, rsp U) error
}

// QueueReply replies into a same-privilege bounded queue.
type QueueReply[U any] struct {
	Prod *queue.Producer[U]
}

// Reply implements ReplyTo.
func (q QueueReply[U]) Reply(ctx context.Context, rsp U) error {
	return q.Prod.Enqueue(ctx, rsp)
}

// OneshotReply replies through a reusable oneshot sender, the usual
// address for clients that suspend on a single in-flight request.
type OneshotReply[U any] struct {
	Tx *oneshot.Sender[U]
}

// Reply implements ReplyTo.
func (o OneshotReply[U]) Reply(ctx context.Context, rsp U) error {
	return o.Tx.Send(rsp)
}

// userspaceReply serializes the response, correlated by nonce, out the
// cross-privilege reply ring.
type userspaceReply[U any] struct {
	nonce uint32
	out   *bytering.Producer
}

// Reply implements ReplyTo.
func (u userspaceReply[U]) Reply(ctx context.Context, rsp U) error {
	return writeResultFrame(ctx, u.out, u.nonce, rsp)
}
