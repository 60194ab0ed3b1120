package future

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestResolve_Get(t *testing.T) {
	t.Parallel()

	p := New[int]()
	f := p.Future()
	require.False(t, f.IsComplete())

	p.Resolve(42)

	require.True(t, f.IsComplete())
	v, err := f.Get()
	require.NoError(t, err)
	require.Equal(t, 42, v)
}

func TestReject_Get(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	p := New[string]()
	p.Reject(boom)

	v, err := p.Future().Get()
	require.ErrorIs(t, err, boom)
	require.Empty(t, v)
}

func TestReject_NilErrorPanics(t *testing.T) {
	t.Parallel()

	p := New[int]()
	require.Panics(t, func() { p.Reject(nil) })
}

func TestDoubleSettlePanics(t *testing.T) {
	t.Parallel()

	p := New[int]()
	p.Resolve(1)
	require.Panics(t, func() { p.Resolve(2) })
	require.Panics(t, func() { p.Reject(errors.New("late")) })
}

func TestOnComplete_BeforeSettlement(t *testing.T) {
	t.Parallel()

	p := New[int]()
	got := make(chan int, 1)
	p.Future().OnComplete(func(f *Future[int]) {
		v, err := f.Get()
		require.NoError(t, err)
		got <- v
	})

	p.Resolve(7)

	select {
	case v := <-got:
		require.Equal(t, 7, v)
	case <-time.After(time.Second):
		t.Fatal("continuation did not run")
	}
}

func TestOnComplete_AfterSettlement_RunsInline(t *testing.T) {
	t.Parallel()

	f := Resolved("hello")
	var ran bool
	f.OnComplete(func(f *Future[string]) {
		v, err := f.Get()
		require.NoError(t, err)
		require.Equal(t, "hello", v)
		ran = true
	})
	require.True(t, ran, "continuation on a settled future must run immediately")
}

func TestOnComplete_SecondAttachPanics(t *testing.T) {
	t.Parallel()

	f := New[int]().Future()
	f.OnComplete(func(*Future[int]) {})
	require.Panics(t, func() { f.OnComplete(func(*Future[int]) {}) })
}

func TestOnComplete_NilPanics(t *testing.T) {
	t.Parallel()

	require.Panics(t, func() { New[int]().Future().OnComplete(nil) })
}

func TestWait_ContextCancellation(t *testing.T) {
	t.Parallel()

	p := New[int]()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Future().Wait(ctx)
	require.ErrorIs(t, err, context.Canceled)

	// The future itself is unaffected.
	require.False(t, p.Future().IsComplete())
	p.Resolve(1)
	v, err := p.Future().Wait(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, v)
}

func TestWait_CrossGoroutine(t *testing.T) {
	t.Parallel()

	p := New[int]()
	go func() {
		time.Sleep(10 * time.Millisecond)
		p.Resolve(99)
	}()

	v, err := p.Future().Wait(context.Background())
	require.NoError(t, err)
	require.Equal(t, 99, v)
}

func TestRejectedConstructor(t *testing.T) {
	t.Parallel()

	boom := errors.New("pre-failed")
	f := Rejected[int](boom)
	require.True(t, f.IsComplete())
	_, err := f.Get()
	require.ErrorIs(t, err, boom)
}

func TestAbandonPendingIsLegal(t *testing.T) {
	t.Parallel()

	// Dropping a pending pair must not panic or leak observable state.
	_ = New[int]().Future()
}

func TestConcurrentWaiters(t *testing.T) {
	t.Parallel()

	p := New[int]()
	f := p.Future()

	const waiters = 32
	var wg sync.WaitGroup
	results := make([]int, waiters)
	errs := make([]error, waiters)
	for i := range waiters {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = f.Get()
		}()
	}

	p.Resolve(5)
	wg.Wait()
	for i := range waiters {
		require.NoError(t, errs[i])
		require.Equal(t, 5, results[i])
	}
}
