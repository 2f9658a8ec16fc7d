package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/natefinch/lumberjack"

	fallen8 "github.com/cosh/fallen-8-core-sub000"
	"github.com/cosh/fallen-8-core-sub000/blobstore"
	miniostore "github.com/cosh/fallen-8-core-sub000/blobstore/minio"
	s3store "github.com/cosh/fallen-8-core-sub000/blobstore/s3"
	"github.com/cosh/fallen-8-core-sub000/codec"
	"github.com/cosh/fallen-8-core-sub000/persistence"
	"github.com/cosh/fallen-8-core-sub000/resource"
)

type tomlConfig struct {
	Engine  engineConfig
	Logging logConfig
	Storage storageConfig
}

type engineConfig struct {
	MaxScanWorkers        int64   `toml:"max_scan_workers"`
	TransactionsPerSecond float64 `toml:"transactions_per_second"`
	TransactionBurst      int     `toml:"transaction_burst"`
	IOLimitBytesPerSec    int64   `toml:"io_limit_bytes_per_sec"`
}

type logConfig struct {
	Level   string
	Format  string
	File    string
	MaxSize int `toml:"max_log_size"`
	MaxAge  int `toml:"max_log_age"`
}

type storageConfig struct {
	// Backend is one of "local", "memory", "minio" or "s3".
	Backend     string
	Dir         string
	Bucket      string
	Prefix      string
	Endpoint    string
	Region      string
	AccessKey   string `toml:"access_key"`
	SecretKey   string `toml:"secret_key"`
	Secure      bool
	CommitTable string `toml:"commit_table"`
	CacheBytes  int    `toml:"cache_bytes"`
	Codec       string
	Compression string
	Keep        int
}

func defaultConfig() tomlConfig {
	return tomlConfig{
		Logging: logConfig{
			Level:   "info",
			Format:  "text",
			MaxSize: 100,
			MaxAge:  7,
		},
		Storage: storageConfig{
			Backend:     "local",
			Dir:         "./fallen8-data",
			Codec:       codec.Default.Name(),
			Compression: persistence.CompressionZstd.String(),
		},
	}
}

// loadConfig reads filename over the defaults. An empty filename yields
// the defaults.
func loadConfig(filename string) (tomlConfig, error) {
	tc := defaultConfig()
	if filename == "" {
		return tc, nil
	}
	if _, err := toml.DecodeFile(filename, &tc); err != nil {
		return tc, fmt.Errorf("could not decode TOML config: %w", err)
	}
	return tc, nil
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("invalid log level %q", s)
	}
	return level, nil
}

// logger builds the engine logger. Log records go to a rotating file when
// one is configured, to stderr otherwise. The returned closer releases the
// file.
func (c logConfig) logger(stderr io.Writer) (*fallen8.Logger, io.Closer, error) {
	level, err := parseLevel(c.Level)
	if err != nil {
		return nil, nil, err
	}

	var (
		w      = stderr
		closer io.Closer
	)
	if c.File != "" {
		l := &lumberjack.Logger{
			Filename: c.File,
			MaxSize:  c.MaxSize, // megabytes
			MaxAge:   c.MaxAge,  // days
		}
		w, closer = l, l
	}

	opts := &slog.HandlerOptions{Level: level}
	switch strings.ToLower(c.Format) {
	case "", "text":
		return fallen8.NewLogger(slog.NewTextHandler(w, opts)), closer, nil
	case "json":
		return fallen8.NewLogger(slog.NewJSONHandler(w, opts)), closer, nil
	default:
		return nil, nil, fmt.Errorf("invalid log format %q", c.Format)
	}
}

func (c engineConfig) controller() *resource.Controller {
	return resource.NewController(resource.Config{
		MaxScanWorkers:        c.MaxScanWorkers,
		TransactionsPerSecond: c.TransactionsPerSecond,
		TransactionBurst:      c.TransactionBurst,
		IOLimitBytesPerSec:    c.IOLimitBytesPerSec,
	})
}

// blobStore opens the configured backend.
func (c storageConfig) blobStore(ctx context.Context) (blobstore.BlobStore, error) {
	var (
		bs  blobstore.BlobStore
		err error
	)
	switch strings.ToLower(c.Backend) {
	case "", "local":
		bs = blobstore.NewLocalStore(c.Dir)
	case "memory":
		bs = blobstore.NewMemoryStore()
	case "minio":
		bs, err = c.minioStore()
	case "s3":
		bs, err = c.s3Store(ctx)
	default:
		err = fmt.Errorf("unknown storage backend %q", c.Backend)
	}
	if err != nil {
		return nil, err
	}
	if c.CacheBytes > 0 {
		bs = blobstore.NewCachingStore(bs, c.CacheBytes)
	}
	return bs, nil
}

func (c storageConfig) minioStore() (blobstore.BlobStore, error) {
	if c.Endpoint == "" || c.Bucket == "" {
		return nil, fmt.Errorf("minio storage needs endpoint and bucket")
	}
	client, err := minio.New(c.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(c.AccessKey, c.SecretKey, ""),
		Secure: c.Secure,
		Region: c.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}
	return miniostore.NewStore(client, c.Bucket, c.Prefix), nil
}

func (c storageConfig) s3Store(ctx context.Context) (blobstore.BlobStore, error) {
	if c.Bucket == "" {
		return nil, fmt.Errorf("s3 storage needs a bucket")
	}
	opts := []s3store.Option{s3store.WithPrefix(c.Prefix)}
	if c.Region != "" {
		opts = append(opts, s3store.WithRegion(c.Region))
	}
	if c.Endpoint != "" {
		opts = append(opts, s3store.WithEndpoint(c.Endpoint))
	}
	st, err := s3store.New(ctx, c.Bucket, opts...)
	if err != nil {
		return nil, err
	}
	if c.CommitTable == "" {
		return st, nil
	}
	baseURI := "s3://" + c.Bucket + "/" + c.Prefix
	return s3store.NewCommitStoreFromConfig(st.AWSConfig(), st, c.CommitTable, baseURI), nil
}

// encoding returns the savegame options for new savegames.
func (c storageConfig) encoding() ([]persistence.Option, error) {
	var opts []persistence.Option
	if c.Codec != "" {
		cd, ok := codec.ByName(c.Codec)
		if !ok {
			return nil, fmt.Errorf("unknown codec %q (have %s)", c.Codec, strings.Join(codec.Names(), ", "))
		}
		opts = append(opts, persistence.WithCodec(cd))
	}
	if c.Compression != "" {
		comp, err := persistence.ParseCompression(c.Compression)
		if err != nil {
			return nil, err
		}
		opts = append(opts, persistence.WithCompression(comp))
	}
	return opts, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
