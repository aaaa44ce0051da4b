package shortlink_test

import (
	"context"
	"testing"
	"time"

	"github.com/minpic/core/internal/modules/shortlink"
	"github.com/minpic/core/internal/modules/shortlink/shortlinktest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateWithRetryStopsAtAttemptBound(t *testing.T) {
	fake := shortlinktest.New()
	fake.FailCreate = true

	_, err := shortlink.CreateWithRetry(context.Background(), fake, "https://x", "", 0,
		shortlink.RetryPolicy{Attempts: 3}, nil)

	require.ErrorIs(t, err, shortlinktest.ErrUnavailable)
	assert.Equal(t, 3, fake.CreateCalls())
}

func TestCreateWithRetrySucceedsFirstTry(t *testing.T) {
	fake := shortlinktest.New()

	link, err := shortlink.CreateWithRetry(context.Background(), fake, "https://x", "", 0,
		shortlink.RetryPolicy{Attempts: 3, Backoff: time.Hour}, nil)

	require.NoError(t, err)
	assert.Equal(t, "c1", link.ShortCode)
	assert.Equal(t, 1, fake.CreateCalls())
}

func TestCreateWithRetryHonoursCancellation(t *testing.T) {
	fake := shortlinktest.New()
	fake.FailCreate = true
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := shortlink.CreateWithRetry(ctx, fake, "https://x", "", 0,
		shortlink.RetryPolicy{Attempts: 3, Backoff: time.Hour}, nil)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, fake.CreateCalls())
}

func TestCreateWithRetryPausesBetweenAttempts(t *testing.T) {
	fake := shortlinktest.New()
	fake.FailCreate = true

	start := time.Now()
	_, err := shortlink.CreateWithRetry(context.Background(), fake, "https://x", "", 0,
		shortlink.RetryPolicy{Attempts: 3, Backoff: 20 * time.Millisecond}, nil)

	require.ErrorIs(t, err, shortlinktest.ErrUnavailable)
	assert.Equal(t, 3, fake.CreateCalls())
	assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
}

func TestCreateWithRetryOnceMakesSingleCall(t *testing.T) {
	fake := shortlinktest.New()
	fake.FailCreate = true

	_, err := shortlink.CreateWithRetry(context.Background(), fake, "https://x", "", 0, shortlink.Once, nil)

	require.Error(t, err)
	assert.Equal(t, 1, fake.CreateCalls())
}
