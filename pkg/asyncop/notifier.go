package asyncop

import "sync"

// Listener receives state updates for one operation id.
type Listener func(LoadingState)

type subscription struct {
	fn Listener
}

// notifier keeps an ordered set of listeners per operation id and delivers
// state changes synchronously, in registration order. A panicking listener
// must not prevent delivery to the remaining listeners.
type notifier struct {
	mu   sync.Mutex
	subs map[string][]*subscription
}

func newNotifier() *notifier {
	return &notifier{subs: make(map[string][]*subscription)}
}

// subscribe registers fn for id and returns an idempotent unsubscribe func.
// When the last listener for an id unsubscribes, the id's slot is discarded.
func (n *notifier) subscribe(id string, fn Listener) func() {
	sub := &subscription{fn: fn}

	n.mu.Lock()
	n.subs[id] = append(n.subs[id], sub)
	n.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			n.mu.Lock()
			defer n.mu.Unlock()
			subs := n.subs[id]
			for i, s := range subs {
				if s == sub {
					n.subs[id] = append(subs[:i:i], subs[i+1:]...)
					break
				}
			}
			if len(n.subs[id]) == 0 {
				delete(n.subs, id)
			}
		})
	}
}

func (n *notifier) notify(id string, state LoadingState) {
	n.mu.Lock()
	subs := make([]*subscription, len(n.subs[id]))
	copy(subs, n.subs[id])
	n.mu.Unlock()

	// Listeners run outside the lock so they may re-enter the manager.
	for _, sub := range subs {
		invoke(sub.fn, state)
	}
}

func invoke(fn Listener, state LoadingState) {
	defer func() { _ = recover() }()
	fn(state)
}

func (n *notifier) reset() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.subs = make(map[string][]*subscription)
}
