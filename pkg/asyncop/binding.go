package asyncop

import "sync"

// Binding ties one component to one operation id: it caches the latest state
// for synchronous reads and exposes a channel of updates for streaming
// consumers. Close it when the component goes away or the listener leaks.
type Binding struct {
	mu      sync.RWMutex
	state   LoadingState
	closed  bool
	updates chan LoadingState

	unsubscribe func()
	closeOnce   sync.Once
}

// Bind subscribes to id on m and returns a Binding primed with the current
// state. Updates that arrive while the consumer is not draining the channel
// are dropped; State always reflects the most recent one regardless.
func Bind(m *Manager, id string) *Binding {
	b := &Binding{
		state:   m.GetState(id),
		updates: make(chan LoadingState, 16),
	}
	b.unsubscribe = m.Subscribe(id, b.receive)
	return b
}

func (b *Binding) receive(state LoadingState) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.state = state
	select {
	case b.updates <- state:
	default:
	}
}

// State returns the most recently observed state.
func (b *Binding) State() LoadingState {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.state
}

// Updates yields state changes as they arrive. The channel is closed by Close.
func (b *Binding) Updates() <-chan LoadingState {
	return b.updates
}

func (b *Binding) Close() {
	b.closeOnce.Do(func() {
		b.unsubscribe()
		b.mu.Lock()
		b.closed = true
		b.mu.Unlock()
		close(b.updates)
	})
}
