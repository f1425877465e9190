package repo

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleSettlesOnce(t *testing.T) {
	h := newHandle()
	assert.NoError(t, h.Err(), "unsettled handle reports no error")

	first := errors.New("first")
	h.resolve(first)
	h.resolve(errors.New("second"))

	require.ErrorIs(t, h.Wait(context.Background()), first)
	assert.ErrorIs(t, h.Err(), first)
}

func TestHandleWaitHonorsContext(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, newHandle().Wait(ctx), context.DeadlineExceeded)
}

func TestDeferredStartsOnFirstWait(t *testing.T) {
	var starts atomic.Int32
	h := Deferred(func() *Handle {
		starts.Add(1)
		return Completed()
	})

	time.Sleep(5 * time.Millisecond)
	assert.Equal(t, int32(0), starts.Load(), "nothing runs before the handle is awaited")

	require.NoError(t, h.Wait(context.Background()))
	<-h.Done()
	assert.Equal(t, int32(1), starts.Load())
}

func TestDeferredMirrorsFailure(t *testing.T) {
	boom := errors.New("boom")
	h := Deferred(func() *Handle { return Failed(boom) })
	assert.ErrorIs(t, h.Wait(context.Background()), boom)
}

func TestWaitAllJoinsFailures(t *testing.T) {
	a, b := errors.New("a"), errors.New("b")
	err := WaitAll(context.Background(), Completed(), Failed(a), Failed(b))
	assert.ErrorIs(t, err, a)
	assert.ErrorIs(t, err, b)

	assert.NoError(t, WaitAll(context.Background(), Completed(), Completed()))
}
