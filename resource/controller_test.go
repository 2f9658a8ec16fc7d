package resource

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestController_ScanWorkers(t *testing.T) {
	c := NewController(Config{MaxScanWorkers: 2})
	assert.Equal(t, 2, c.ScanWorkers())

	assert.True(t, c.TryAcquireScanWorker())
	require.NoError(t, c.AcquireScanWorker(context.Background()))
	assert.False(t, c.TryAcquireScanWorker())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, c.AcquireScanWorker(ctx), context.DeadlineExceeded)

	c.ReleaseScanWorker()
	assert.True(t, c.TryAcquireScanWorker())
}

func TestController_Nil(t *testing.T) {
	var c *Controller
	assert.Positive(t, c.ScanWorkers())
	assert.True(t, c.TryAcquireScanWorker())
	c.ReleaseScanWorker()
	require.NoError(t, c.WaitTransaction(context.Background()))
	require.NoError(t, c.AcquireIO(context.Background(), 1<<20))
}

func TestController_TransactionRate(t *testing.T) {
	c := NewController(Config{TransactionsPerSecond: 1, TransactionBurst: 1})

	// The burst token is available immediately.
	require.NoError(t, c.WaitTransaction(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.Error(t, c.WaitTransaction(ctx))
}

func TestRateLimitedIO(t *testing.T) {
	c := NewController(Config{IOLimitBytesPerSec: 1 << 20})
	var buf bytes.Buffer

	w := NewRateLimitedWriter(context.Background(), &buf, c)
	n, err := w.Write([]byte("fallen8"))
	require.NoError(t, err)
	assert.Equal(t, 7, n)

	r := NewRateLimitedReader(context.Background(), &buf, c)
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "fallen8", string(data))
}
