package stream

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantfold/zerodte/internal/domain"
)

func TestAppendStampsMetadata(t *testing.T) {
	s := NewMemory(10)
	s.SetClock(func() time.Time {
		return time.Date(2025, 3, 14, 9, 30, 15, 0, time.UTC)
	})

	ctx := context.Background()
	require.NoError(t, s.Append(ctx, domain.EventRecord{
		Type:    domain.EventQuestion,
		Content: "scan",
	}))

	recs, err := s.History(ctx, 0)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "09:30:15", recs[0].Timestamp)
	assert.Equal(t, int64(1), recs[0].Seq)
	assert.NotZero(t, recs[0].UnixMilli)
}

func TestHistoryOldestFirstWithLimit(t *testing.T) {
	s := NewMemory(10)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		require.NoError(t, s.Append(ctx, domain.EventRecord{
			Type:    domain.EventResponse,
			Content: fmt.Sprintf("cycle %d", i),
		}))
	}

	recs, err := s.History(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "cycle 3", recs[0].Content)
	assert.Equal(t, "cycle 4", recs[1].Content)
}

func TestCapacityTrimsOldest(t *testing.T) {
	s := NewMemory(3)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		require.NoError(t, s.Append(ctx, domain.EventRecord{
			Type:    domain.EventResponse,
			Content: fmt.Sprintf("cycle %d", i),
		}))
	}

	recs, err := s.History(ctx, 0)
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, "cycle 2", recs[0].Content)
	assert.Equal(t, "cycle 4", recs[2].Content)
	// Sequence numbers keep counting past the trim.
	assert.Equal(t, int64(5), recs[2].Seq)
}

func TestSubscribeDeliversAndClosesOnCancel(t *testing.T) {
	s := NewMemory(10)
	ctx, cancel := context.WithCancel(context.Background())

	ch, err := s.Subscribe(ctx)
	require.NoError(t, err)

	require.NoError(t, s.Append(context.Background(), domain.EventRecord{
		Type:    domain.EventQuestion,
		Content: "thinking",
	}))

	select {
	case rec := <-ch:
		assert.Equal(t, domain.EventQuestion, rec.Type)
		assert.Equal(t, "thinking", rec.Content)
	case <-time.After(time.Second):
		t.Fatal("no record delivered")
	}

	cancel()
	select {
	case _, ok := <-ch:
		assert.False(t, ok, "channel should be closed after cancel")
	case <-time.After(time.Second):
		t.Fatal("channel not closed after cancel")
	}
}

func TestAppendDuringSubscribeCancel(t *testing.T) {
	s := NewMemory(50)

	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
				_ = s.Append(context.Background(), domain.EventRecord{
					Type:    domain.EventResponse,
					Content: "tick",
				})
			}
		}
	}()

	// Churn subscriptions while the appender runs; a cancellation landing
	// mid-broadcast must not panic the appender.
	for i := 0; i < 200; i++ {
		ctx, cancel := context.WithCancel(context.Background())
		ch, err := s.Subscribe(ctx)
		require.NoError(t, err)
		cancel()
		for range ch {
		}
	}

	close(stop)
	wg.Wait()
}

func TestResetSessionClearsHistory(t *testing.T) {
	s := NewMemory(10)
	ctx := context.Background()

	require.NoError(t, s.Append(ctx, domain.EventRecord{Type: domain.EventResponse, Content: "old"}))

	id, err := s.ResetSession(ctx)
	require.NoError(t, err)
	assert.Len(t, id, 8)

	got, err := s.SessionID(ctx)
	require.NoError(t, err)
	assert.Equal(t, id, got)

	recs, err := s.History(ctx, 0)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, domain.EventSessionReset, recs[0].Type)
	assert.Equal(t, id, recs[0].SessionID)
}
