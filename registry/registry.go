// File: registry/registry.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// The service table: append-only, identifier-unique, with a type identity
// check so a handle can only be derived at the registered request and
// response types.

package registry

import (
	"context"
	"reflect"
	"sync"

	"github.com/google/uuid"

	"github.com/momentics/microkern/api"
	"github.com/momentics/microkern/bytering"
	"github.com/momentics/microkern/oneshot"
	"github.com/momentics/microkern/queue"
)

type dispatchFunc func(ctx context.Context, nonce uint32, body []byte, reply *bytering.Producer) error

type item struct {
	key      uuid.UUID
	pairType reflect.Type // Message[T,U] identity of the registration
	producer any          // *queue.Producer[Message[T,U]]
	dispatch dispatchFunc // nil for kernel-only services
}

// Registry is the driver/service table.
type Registry struct {
	mu    sync.RWMutex
	items []item
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

func (r *Registry) insert(it item) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.items {
		if r.items[i].key == it.key {
			return api.ErrAlreadyExists
		}
	}
	r.items = append(r.items, it)
	return nil
}

func (r *Registry) lookup(id uuid.UUID) (item, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for i := range r.items {
		if r.items[i].key == id {
			return r.items[i], true
		}
	}
	return item{}, false
}

// Len reports the number of registered services.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items)
}

// Register adds a kernel-only service: reachable through Get, invisible
// to cross-privilege Dispatch. Fails with api.ErrAlreadyExists on a
// duplicate identifier.
func Register[T, U any](r *Registry, id uuid.UUID, prod *queue.Producer[Message[T, U]]) error {
	return r.insert(item{
		key:      id,
		pairType: reflect.TypeOf(Message[T, U]{}),
		producer: prod,
	})
}

// RegisterWithCodec adds a service that also accepts cross-privilege
// requests: Dispatch decodes request bytes into T and serializes the U
// response back out.
func RegisterWithCodec[T, U any](r *Registry, id uuid.UUID, prod *queue.Producer[Message[T, U]]) error {
	return r.insert(item{
		key:      id,
		pairType: reflect.TypeOf(Message[T, U]{}),
		producer: prod,
		dispatch: makeDispatch[T, U](prod),
	})
}

// NewService builds a request channel of the given capacity and registers
// its producer under id. The returned consumer is the driver's end; on a
// duplicate identifier nothing is created.
func NewService[T, U any](r *Registry, id uuid.UUID, capacity int) (*queue.Consumer[Message[T, U]], error) {
	prod, cons := queue.NewChannel[Message[T, U]](capacity).Split()
	if err := Register(r, id, prod); err != nil {
		return nil, err
	}
	return cons, nil
}

// NewServiceWithCodec is NewService for drivers that also accept
// cross-privilege requests.
func NewServiceWithCodec[T, U any](r *Registry, id uuid.UUID, capacity int) (*queue.Consumer[Message[T, U]], error) {
	prod, cons := queue.NewChannel[Message[T, U]](capacity).Split()
	if err := RegisterWithCodec(r, id, prod); err != nil {
		return nil, err
	}
	return cons, nil
}

// Get returns a typed handle to the service registered under id, or false
// when id is unknown or was registered at different request/response
// types.
func Get[T, U any](r *Registry, id uuid.UUID) (*KernelHandle[T, U], bool) {
	it, ok := r.lookup(id)
	if !ok {
		return nil, false
	}
	if it.pairType != reflect.TypeOf(Message[T, U]{}) {
		return nil, false
	}
	return &KernelHandle[T, U]{prod: it.producer.(*queue.Producer[Message[T, U]])}, true
}

// KernelHandle is a same-privilege client handle: a typed producer into
// the service's request queue.
type KernelHandle[T, U any] struct {
	prod *queue.Producer[Message[T, U]]
}

// Send enqueues a request with an explicit reply address, suspending
// while the service's queue is full.
func (h *KernelHandle[T, U]) Send(ctx context.Context, body T, reply ReplyTo[U]) error {
	return h.prod.Enqueue(ctx, Message[T, U]{Body: body, Reply: reply})
}

// TrySend enqueues without suspending; the caller keeps the request on
// api.ErrQueueFull.
func (h *KernelHandle[T, U]) TrySend(body T, reply ReplyTo[U]) error {
	return h.prod.TryEnqueue(Message[T, U]{Body: body, Reply: reply})
}

// Request performs one request/response cycle through the reusable
// oneshot rsp: enqueue with a oneshot reply address, then suspend until
// the service answers.
func (h *KernelHandle[T, U]) Request(ctx context.Context, body T, rsp *oneshot.Reusable[U]) (U, error) {
	var zero U
	tx, err := rsp.Sender()
	if err != nil {
		return zero, err
	}
	if err := h.Send(ctx, body, OneshotReply[U]{Tx: tx}); err != nil {
		tx.Drop()
		return zero, err
	}
	return rsp.Receive(ctx)
}
