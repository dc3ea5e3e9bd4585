package asyncop

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNotifier_DeliversInRegistrationOrder(t *testing.T) {
	n := newNotifier()

	var order []int
	n.subscribe("x", func(LoadingState) { order = append(order, 1) })
	n.subscribe("x", func(LoadingState) { order = append(order, 2) })
	n.subscribe("x", func(LoadingState) { order = append(order, 3) })

	n.notify("x", LoadingState{IsLoading: true})

	require.Equal(t, []int{1, 2, 3}, order)
}

func TestNotifier_PanickingListenerDoesNotBlockOthers(t *testing.T) {
	n := newNotifier()

	var delivered []int
	n.subscribe("x", func(LoadingState) { delivered = append(delivered, 1) })
	n.subscribe("x", func(LoadingState) { panic("listener bug") })
	n.subscribe("x", func(LoadingState) { delivered = append(delivered, 3) })

	require.NotPanics(t, func() {
		n.notify("x", LoadingState{})
	})
	require.Equal(t, []int{1, 3}, delivered)
}

func TestNotifier_UnsubscribeIsIdempotentAndScoped(t *testing.T) {
	n := newNotifier()

	var a, b int
	unsubA := n.subscribe("x", func(LoadingState) { a++ })
	n.subscribe("x", func(LoadingState) { b++ })

	n.notify("x", LoadingState{})
	require.Equal(t, 1, a)
	require.Equal(t, 1, b)

	unsubA()
	unsubA() // second call is a no-op

	n.notify("x", LoadingState{})
	require.Equal(t, 1, a)
	require.Equal(t, 2, b)
}

func TestNotifier_LastUnsubscribeDiscardsIDSlot(t *testing.T) {
	n := newNotifier()

	unsub1 := n.subscribe("x", func(LoadingState) {})
	unsub2 := n.subscribe("x", func(LoadingState) {})

	unsub1()
	n.mu.Lock()
	require.Len(t, n.subs["x"], 1)
	n.mu.Unlock()

	unsub2()
	n.mu.Lock()
	_, exists := n.subs["x"]
	n.mu.Unlock()
	require.False(t, exists)
}

func TestNotifier_IDsAreIsolated(t *testing.T) {
	n := newNotifier()

	var xCalls, yCalls int
	n.subscribe("x", func(LoadingState) { xCalls++ })
	n.subscribe("y", func(LoadingState) { yCalls++ })

	n.notify("x", LoadingState{})
	n.notify("x", LoadingState{})
	n.notify("y", LoadingState{})

	require.Equal(t, 2, xCalls)
	require.Equal(t, 1, yCalls)
}
