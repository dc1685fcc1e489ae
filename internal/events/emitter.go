// Package events provides a small synchronous publish/subscribe utility that
// entities compose to expose their own closed set of event tags.
package events

// Handler receives the event tag, the entity that raised it and an optional payload.
type Handler[E comparable, S any] func(event E, source S, payload any)

// Subscription identifies one registered handler so it can be removed with Off.
type Subscription[E comparable] struct {
	Event E
	id    uint64
}

type registration[E comparable, S any] struct {
	id uint64
	fn Handler[E, S]
}

// Emitter dispatches events to handlers in registration order. The zero value
// is ready to use. An Emitter is not safe for concurrent use.
type Emitter[E comparable, S any] struct {
	nextID   uint64
	handlers map[E][]registration[E, S]
}

// On registers fn for event and returns a Subscription for Off.
func (em *Emitter[E, S]) On(event E, fn Handler[E, S]) Subscription[E] {
	if em.handlers == nil {
		em.handlers = make(map[E][]registration[E, S])
	}
	em.nextID++
	em.handlers[event] = append(em.handlers[event], registration[E, S]{id: em.nextID, fn: fn})
	return Subscription[E]{Event: event, id: em.nextID}
}

// Off removes a handler. Returns false if the subscription was not registered.
func (em *Emitter[E, S]) Off(sub Subscription[E]) bool {
	regs := em.handlers[sub.Event]
	for i, r := range regs {
		if r.id != sub.id {
			continue
		}
		kept := make([]registration[E, S], 0, len(regs)-1)
		kept = append(kept, regs[:i]...)
		kept = append(kept, regs[i+1:]...)
		if len(kept) == 0 {
			delete(em.handlers, sub.Event)
		} else {
			em.handlers[sub.Event] = kept
		}
		return true
	}
	return false
}

// Emit calls every handler registered for event. Handlers added or removed
// during dispatch take effect from the next Emit.
func (em *Emitter[E, S]) Emit(event E, source S, payload any) {
	regs := em.handlers[event]
	for _, r := range regs {
		r.fn(event, source, payload)
	}
}

// Count returns the number of handlers registered for event.
func (em *Emitter[E, S]) Count(event E) int {
	return len(em.handlers[event])
}
