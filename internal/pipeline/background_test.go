package pipeline

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestPoolRunsTasks(t *testing.T) {
	pool := NewPool(2, logrus.New())
	defer pool.Shutdown()

	var ran atomic.Int32
	handles := make([]*Handle, 0, 5)
	for i := 0; i < 5; i++ {
		handles = append(handles, pool.Submit(func(ctx context.Context) {
			ran.Add(1)
		}))
	}
	for _, h := range handles {
		h.Wait()
	}
	assert.Equal(t, int32(5), ran.Load())
}

func TestPoolContainsPanics(t *testing.T) {
	pool := NewPool(1, logrus.New())
	defer pool.Shutdown()

	pool.Submit(func(ctx context.Context) {
		panic("boom")
	}).Wait()

	// The pool still accepts and runs tasks afterwards.
	var ran atomic.Bool
	pool.Submit(func(ctx context.Context) {
		ran.Store(true)
	}).Wait()
	assert.True(t, ran.Load())
}

func TestPoolShutdownCancelsContext(t *testing.T) {
	pool := NewPool(1, logrus.New())

	started := make(chan struct{})
	var sawCancel atomic.Bool
	h := pool.Submit(func(ctx context.Context) {
		close(started)
		select {
		case <-ctx.Done():
			sawCancel.Store(true)
		case <-time.After(5 * time.Second):
		}
	})

	<-started
	pool.Shutdown()
	h.Wait()
	assert.True(t, sawCancel.Load())
}
