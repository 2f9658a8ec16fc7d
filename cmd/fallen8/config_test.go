package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cosh/fallen-8-core-sub000/blobstore"
	"github.com/cosh/fallen-8-core-sub000/persistence"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fallen8.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadConfig(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		tc, err := loadConfig("")
		require.NoError(t, err)
		assert.Equal(t, "local", tc.Storage.Backend)
		assert.Equal(t, "go-json", tc.Storage.Codec)
		assert.Equal(t, "zstd", tc.Storage.Compression)
		assert.Equal(t, "info", tc.Logging.Level)
	})

	t.Run("File", func(t *testing.T) {
		path := writeConfig(t, `
[engine]
max_scan_workers = 2
transactions_per_second = 500.0
transaction_burst = 8
io_limit_bytes_per_sec = 1048576

[logging]
level = "debug"
format = "json"
max_log_size = 10
max_log_age = 3

[storage]
backend = "memory"
codec = "json"
compression = "lz4"
cache_bytes = 1048576
keep = 3
`)
		tc, err := loadConfig(path)
		require.NoError(t, err)
		assert.Equal(t, int64(2), tc.Engine.MaxScanWorkers)
		assert.InDelta(t, 500.0, tc.Engine.TransactionsPerSecond, 1e-9)
		assert.Equal(t, 8, tc.Engine.TransactionBurst)
		assert.Equal(t, int64(1<<20), tc.Engine.IOLimitBytesPerSec)
		assert.Equal(t, "debug", tc.Logging.Level)
		assert.Equal(t, "json", tc.Logging.Format)
		assert.Equal(t, 10, tc.Logging.MaxSize)
		assert.Equal(t, 3, tc.Logging.MaxAge)
		assert.Equal(t, "memory", tc.Storage.Backend)
		assert.Equal(t, 1<<20, tc.Storage.CacheBytes)
		assert.Equal(t, 3, tc.Storage.Keep)
		// Unset keys keep their defaults.
		assert.Equal(t, "./fallen8-data", tc.Storage.Dir)

		bs, err := tc.Storage.blobStore(context.Background())
		require.NoError(t, err)
		assert.IsType(t, &blobstore.CachingStore{}, bs)

		opts, err := tc.Storage.encoding()
		require.NoError(t, err)
		assert.Len(t, opts, 2)
	})

	t.Run("Malformed", func(t *testing.T) {
		_, err := loadConfig(writeConfig(t, "[engine\n"))
		assert.ErrorContains(t, err, "could not decode TOML config")
	})
}

func TestApp_ConfigFlagsOverride(t *testing.T) {
	path := writeConfig(t, `
[logging]
level = "warn"

[storage]
backend = "memory"
dir = "/from/file"
`)
	a := &app{configFile: path, dir: "/from/flag", logLevel: "debug"}
	tc, err := a.config()
	require.NoError(t, err)
	assert.Equal(t, "/from/flag", tc.Storage.Dir)
	assert.Equal(t, "memory", tc.Storage.Backend)
	assert.Equal(t, "debug", tc.Logging.Level)

	a = &app{configFile: filepath.Join(t.TempDir(), "missing.toml")}
	_, err = a.config()
	assert.ErrorContains(t, err, "not found")
}

func TestLogConfig(t *testing.T) {
	file := filepath.Join(t.TempDir(), "fallen8.log")
	lc := logConfig{Level: "info", Format: "json", File: file, MaxSize: 1, MaxAge: 1}
	logger, closer, err := lc.logger(os.Stderr)
	require.NoError(t, err)
	require.NotNil(t, closer)
	logger.Info("hello")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"hello"`)

	_, _, err = logConfig{Level: "loud"}.logger(os.Stderr)
	assert.ErrorContains(t, err, "invalid log level")

	_, _, err = logConfig{Level: "info", Format: "xml"}.logger(os.Stderr)
	assert.ErrorContains(t, err, "invalid log format")
}

func TestStorageConfig_Errors(t *testing.T) {
	ctx := context.Background()

	_, err := storageConfig{Backend: "floppy"}.blobStore(ctx)
	assert.ErrorContains(t, err, "unknown storage backend")

	_, err = storageConfig{Backend: "minio"}.blobStore(ctx)
	assert.ErrorContains(t, err, "endpoint and bucket")

	_, err = storageConfig{Backend: "s3"}.blobStore(ctx)
	assert.ErrorContains(t, err, "needs a bucket")

	bs, err := storageConfig{Backend: "minio", Endpoint: "localhost:9000", Bucket: "graphs"}.blobStore(ctx)
	require.NoError(t, err)
	assert.NotNil(t, bs)

	_, err = storageConfig{Codec: "gob"}.encoding()
	assert.ErrorContains(t, err, "unknown codec")

	_, err = storageConfig{Compression: "brotli"}.encoding()
	assert.ErrorIs(t, err, persistence.ErrUnknownCompression)
}
