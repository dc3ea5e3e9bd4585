package asyncop

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBinding_PrimedWithCurrentState(t *testing.T) {
	m := New()

	_, err := m.Execute(context.Background(), NewOperation("p", func(ctx context.Context) (any, error) {
		return nil, errors.New("failed earlier")
	}, WithMaxRetries(0)))
	require.Error(t, err)

	b := Bind(m, "p")
	defer b.Close()

	require.Equal(t, "failed earlier", b.State().Error)
	require.Equal(t, 1, b.State().RetryCount)
}

func TestBinding_ReceivesUpdates(t *testing.T) {
	m := New()

	b := Bind(m, "q")
	defer b.Close()

	_, err := m.Execute(context.Background(), NewOperation("q", func(ctx context.Context) (any, error) {
		return "done", nil
	}))
	require.NoError(t, err)

	first := <-b.Updates()
	require.True(t, first.IsLoading)

	second := <-b.Updates()
	require.False(t, second.IsLoading)
	require.Empty(t, second.Error)

	require.False(t, b.State().IsLoading)
}

func TestBinding_CloseUnsubscribesAndClosesChannel(t *testing.T) {
	m := New()

	b := Bind(m, "r")
	before := b.State()
	b.Close()
	b.Close() // idempotent

	_, err := m.Execute(context.Background(), NewOperation("r", func(ctx context.Context) (any, error) {
		return nil, nil
	}))
	require.NoError(t, err)

	// The cached state no longer follows the manager.
	require.Equal(t, before, b.State())

	select {
	case _, ok := <-b.Updates():
		require.False(t, ok)
	case <-time.After(100 * time.Millisecond):
		t.Fatal("updates channel was not closed")
	}
}

func TestBinding_SlowConsumerDropsUpdatesButKeepsLatest(t *testing.T) {
	m := New()

	b := Bind(m, "s")
	defer b.Close()

	// Overflow the buffer; nothing drains the channel while executing.
	for i := 0; i < 50; i++ {
		_, err := m.Execute(context.Background(), NewOperation("s", func(ctx context.Context) (any, error) {
			return i, nil
		}))
		require.NoError(t, err)
	}

	require.False(t, b.State().IsLoading)
	require.Zero(t, b.State().RetryCount)
}
