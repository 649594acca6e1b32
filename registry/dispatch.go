// File: registry/dispatch.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// The cross-privilege boundary. Inbound frames carry
// {service uuid, nonce, body bytes}; outbound reply frames carry
// {nonce, result-or-error}. The registry only requires a decode function
// per registered request type and a byte-producing encode path for
// replies; framing on the reply ring is a 4-byte little-endian length
// prefix.
//
// This is the seam between privilege levels: malformed identifiers,
// bodies that do not decode, and full service queues are all typed
// errors, never panics, and each one is also reported to the peer as an
// error frame so the caller's nonce is not left dangling.

package registry

import (
	"context"
	"encoding/binary"
	"fmt"

	"github.com/google/uuid"
	"github.com/sugawarayuuta/sonnet"

	"github.com/momentics/microkern/api"
	"github.com/momentics/microkern/bytering"
	"github.com/momentics/microkern/queue"
)

// Request is the inbound cross-privilege frame.
type Request struct {
	Service uuid.UUID `json:"service"`
	Nonce   uint32    `json:"nonce"`
	Body    []byte    `json:"body"`
}

// Response is the outbound cross-privilege frame. Exactly one of Result
// and Error is meaningful.
type Response struct {
	Nonce  uint32 `json:"nonce"`
	Result []byte `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

// DecodeRequest parses one inbound frame.
func DecodeRequest(data []byte) (Request, error) {
	var req Request
	if err := sonnet.Unmarshal(data, &req); err != nil {
		return Request{}, fmt.Errorf("%w: %v", api.ErrDeserialize, err)
	}
	return req, nil
}

// Dispatch routes one cross-privilege request: it looks up id, decodes
// body into the registered request type, and enqueues an envelope whose
// reply address serializes the response (tagged with nonce) back out
// through reply.
//
// Failures return a typed error and additionally emit an error frame on
// reply: api.ErrUnknownService for unregistered or kernel-only
// identifiers, api.ErrDeserialize for bodies that do not decode, and
// api.ErrQueueFull when the service cannot accept the request. In every
// failure case the service's queue is left untouched.
func (r *Registry) Dispatch(ctx context.Context, id uuid.UUID, nonce uint32, body []byte, reply *bytering.Producer) error {
	it, ok := r.lookup(id)
	if !ok || it.dispatch == nil {
		_ = writeErrorFrame(ctx, reply, nonce, api.ErrUnknownService)
		return api.ErrUnknownService
	}
	return it.dispatch(ctx, nonce, body, reply)
}

// DispatchFrame is Dispatch for a fully encoded inbound frame.
func (r *Registry) DispatchFrame(ctx context.Context, frame []byte, reply *bytering.Producer) error {
	req, err := DecodeRequest(frame)
	if err != nil {
		return err
	}
	return r.Dispatch(ctx, req.Service, req.Nonce, req.Body, reply)
}

// makeDispatch builds the type-erased decode-and-enqueue function stored
// in a registration.
func makeDispatch[T, U any](prod *queue.Producer[Message[T, U]]) dispatchFunc {
	return func(ctx context.Context, nonce uint32, body []byte, reply *bytering.Producer) error {
		var req T
		if err := sonnet.Unmarshal(body, &req); err != nil {
			derr := fmt.Errorf("%w: %v", api.ErrDeserialize, err)
			_ = writeErrorFrame(ctx, reply, nonce, derr)
			return derr
		}

		msg := Message[T, U]{
			Body:  req,
			Reply: userspaceReply[U]{nonce: nonce, out: reply},
		}
		// The untrusted side must not be able to park kernel progress on a
		// full queue, so this path never suspends.
		if err := prod.TryEnqueue(msg); err != nil {
			_ = writeErrorFrame(ctx, reply, nonce, err)
			return err
		}
		return nil
	}
}

func writeResultFrame[U any](ctx context.Context, out *bytering.Producer, nonce uint32, rsp U) error {
	result, err := sonnet.Marshal(rsp)
	if err != nil {
		return writeErrorFrame(ctx, out, nonce, err)
	}
	return writeFrame(ctx, out, Response{Nonce: nonce, Result: result})
}

func writeErrorFrame(ctx context.Context, out *bytering.Producer, nonce uint32, cause error) error {
	if out == nil {
		return nil
	}
	return writeFrame(ctx, out, Response{Nonce: nonce, Error: cause.Error()})
}

func writeFrame(ctx context.Context, out *bytering.Producer, rsp Response) error {
	if out == nil {
		return api.ErrInvalidArgument
	}
	payload, err := sonnet.Marshal(rsp)
	if err != nil {
		return err
	}
	frame := make([]byte, 4+len(payload))
	binary.LittleEndian.PutUint32(frame, uint32(len(payload)))
	copy(frame[4:], payload)
	return writeAll(ctx, out, frame)
}

func writeAll(ctx context.Context, out *bytering.Producer, data []byte) error {
	for len(data) > 0 {
		g, err := out.Grant(ctx, len(data))
		if err != nil {
			return err
		}
		n := copy(g.Bytes(), data)
		g.Commit(n)
		data = data[n:]
	}
	return nil
}

// ReadFrame consumes one length-prefixed reply frame from the consumer
// half of a reply ring and decodes it. Intended for the transport glue on
// the far side of the boundary (and for tests).
func ReadFrame(ctx context.Context, in *bytering.Consumer) (Response, error) {
	header, err := readExact(ctx, in, 4)
	if err != nil {
		return Response{}, err
	}
	size := int(binary.LittleEndian.Uint32(header))
	payload, err := readExact(ctx, in, size)
	if err != nil {
		return Response{}, err
	}
	var rsp Response
	if err := sonnet.Unmarshal(payload, &rsp); err != nil {
		return Response{}, fmt.Errorf("%w: %v", api.ErrDeserialize, err)
	}
	return rsp, nil
}

func readExact(ctx context.Context, in *bytering.Consumer, n int) ([]byte, error) {
	buf := make([]byte, 0, n)
	for len(buf) < n {
		g, err := in.Read(ctx)
		if err != nil {
			return nil, err
		}
		take := n - len(buf)
		data := g.Bytes()
		if take > len(data) {
			take = len(data)
		}
		buf = append(buf, data[:take]...)
		g.Release(take)
	}
	return buf, nil
}
