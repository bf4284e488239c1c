package promise

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPromise_Resolve(t *testing.T) {
	p := New()
	go func() {
		time.Sleep(10 * time.Millisecond)
		p.Resolve("ok")
	}()

	v, err := p.Await(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ok", v)
}

func TestPromise_Reject(t *testing.T) {
	wantErr := errors.New("boom")
	p := New()
	p.Reject(wantErr)

	v, err := p.Await(context.Background())
	assert.ErrorIs(t, err, wantErr)
	assert.Nil(t, v)
}

func TestPromise_RejectNil(t *testing.T) {
	p := New()
	p.Reject(nil)

	_, err := p.Await(context.Background())
	assert.ErrorIs(t, err, ErrNilRejection)
}

func TestPromise_FirstSettleWins(t *testing.T) {
	p := New()
	assert.True(t, p.Resolve(1))
	assert.False(t, p.Resolve(2))
	assert.False(t, p.Reject(errors.New("late")))

	v, err := p.Await(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, v)
}

func TestPromise_AwaitContextDone(t *testing.T) {
	p := New()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := p.Await(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	// the promise is still pending and can settle later
	assert.True(t, p.Resolve("late"))
	v, err := p.Await(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "late", v)
}

func TestResolved(t *testing.T) {
	p := Resolved(42)
	select {
	case <-p.Done():
	default:
		t.Fatal("expected settled promise")
	}
}
