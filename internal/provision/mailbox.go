package provision

import (
	"sync"

	"github.com/muurk/wifiprov/internal/credstore"
)

// mailbox holds at most one pending credential event. A put before the
// previous value is taken replaces it.
type mailbox struct {
	mu      sync.Mutex
	pending *credstore.Credentials
	wake    chan struct{}
}

func newMailbox() *mailbox {
	return &mailbox{wake: make(chan struct{}, 1)}
}

// put stores c and reports whether it replaced an unconsumed event.
func (b *mailbox) put(c credstore.Credentials) bool {
	b.mu.Lock()
	replaced := b.pending != nil
	b.pending = &c
	b.mu.Unlock()

	select {
	case b.wake <- struct{}{}:
	default:
	}
	return replaced
}

func (b *mailbox) take() (credstore.Credentials, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.pending == nil {
		return credstore.Credentials{}, false
	}
	c := *b.pending
	b.pending = nil
	return c, true
}
