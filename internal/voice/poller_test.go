package voice

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leadcapture/internal/common/logger"
	"leadcapture/internal/models"
)

// scriptedFetcher replays statuses in order, repeating the last one.
type scriptedFetcher struct {
	mu     sync.Mutex
	script []fetchResult
	calls  int
}

type fetchResult struct {
	status models.CallStatus
	err    error
}

func (f *scriptedFetcher) GetCall(_ context.Context, id string) (*CallStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.calls
	if i >= len(f.script) {
		i = len(f.script) - 1
	}
	f.calls++
	r := f.script[i]
	if r.err != nil {
		return nil, r.err
	}
	return &CallStatus{ID: id, Status: r.status}, nil
}

func (f *scriptedFetcher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestPoll_StopsOnTerminalStatus(t *testing.T) {
	fetcher := &scriptedFetcher{script: []fetchResult{
		{status: models.CallStatusQueued},
		{err: fmt.Errorf("connection reset")},
		{status: models.CallStatusInProgress},
		{status: models.CallStatusEnded},
		{status: models.CallStatusInProgress},
	}}
	p := NewPoller(fetcher, 5*time.Millisecond, time.Second, logger.NewTestLogger(t))

	var seen []models.CallStatus
	last, err := p.Poll(context.Background(), "call-1", func(st *CallStatus) {
		seen = append(seen, st.Status)
	})
	require.NoError(t, err)
	assert.Equal(t, models.CallStatusEnded, last.Status)
	assert.Equal(t, []models.CallStatus{models.CallStatusQueued, models.CallStatusInProgress, models.CallStatusEnded}, seen)

	calls := fetcher.count()
	assert.Equal(t, 4, calls)
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, calls, fetcher.count(), "no requests after terminal status")
}

func TestPoll_ErrorStatusIsTerminal(t *testing.T) {
	fetcher := &scriptedFetcher{script: []fetchResult{{status: models.CallStatusError}}}
	p := NewPoller(fetcher, time.Millisecond, time.Second, nil)

	last, err := p.Poll(context.Background(), "call-1", nil)
	require.NoError(t, err)
	assert.Equal(t, models.CallStatusError, last.Status)
	assert.Equal(t, 1, fetcher.count())
}

func TestPoll_Timeout(t *testing.T) {
	fetcher := &scriptedFetcher{script: []fetchResult{{status: models.CallStatusRinging}}}
	p := NewPoller(fetcher, 5*time.Millisecond, 40*time.Millisecond, nil)

	start := time.Now()
	last, err := p.Poll(context.Background(), "call-1", nil)
	assert.ErrorIs(t, err, ErrPollTimeout)
	require.NotNil(t, last)
	assert.Equal(t, models.CallStatusRinging, last.Status)
	assert.Less(t, time.Since(start), time.Second)

	calls := fetcher.count()
	assert.Greater(t, calls, 0)
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, calls, fetcher.count(), "no requests after timeout")
}

func TestPoll_ContextCancelled(t *testing.T) {
	fetcher := &scriptedFetcher{script: []fetchResult{{status: models.CallStatusInProgress}}}
	p := NewPoller(fetcher, 5*time.Millisecond, time.Minute, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err := p.Poll(ctx, "call-1", nil)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
