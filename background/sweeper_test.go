package background

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type countingSweeper struct {
	calls atomic.Int32
	err   error
}

func (c *countingSweeper) Sweep(context.Context) (int, error) {
	c.calls.Add(1)
	return 1, c.err
}

func TestSessionSweeper_SweepsUntilStopped(t *testing.T) {
	store := &countingSweeper{}
	s := StartSessionSweeper(store, 5*time.Millisecond)

	assert.Eventually(t, func() bool { return store.calls.Load() >= 3 }, time.Second, time.Millisecond)
	s.Stop()
	s.Stop()

	after := store.calls.Load()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, after, store.calls.Load())
}

func TestSessionSweeper_KeepsGoingAfterErrors(t *testing.T) {
	store := &countingSweeper{err: errors.New("disk full")}
	s := StartSessionSweeper(store, 5*time.Millisecond)
	defer s.Stop()

	assert.Eventually(t, func() bool { return store.calls.Load() >= 2 }, time.Second, time.Millisecond)
}
