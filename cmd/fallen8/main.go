// Package main provides the fallen8 CLI for building, inspecting and
// querying graph savegames.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	fallen8 "github.com/cosh/fallen-8-core-sub000"
	"github.com/cosh/fallen-8-core-sub000/persistence"
)

// app carries the global flags and the output streams of one invocation.
type app struct {
	configFile string
	dir        string
	backend    string
	logLevel   string

	stdout io.Writer
	stderr io.Writer
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	a := &app{stdout: stdout, stderr: stderr}

	rootCmd := &cobra.Command{
		Use:           "fallen8",
		Short:         "fallen8 - in-memory property graph engine",
		Long:          `fallen8 builds graphs, saves them as savegames on a blob store, and runs scans and shortest path queries against them.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&a.configFile, "config", "", "Path to a TOML config file")
	pf.StringVar(&a.dir, "dir", "", "Savegame directory for the local backend (overrides config)")
	pf.StringVar(&a.backend, "backend", "", "Storage backend: local, memory, minio or s3 (overrides config)")
	pf.StringVar(&a.logLevel, "log-level", "", "Log level: debug, info, warn or error (overrides config)")

	rootCmd.AddCommand(
		a.generateCmd(),
		a.statsCmd(),
		a.scanCmd(),
		a.pathCmd(),
		a.trimCmd(),
	)
	return rootCmd
}

func main() {
	if err := newRootCmd(os.Stdout, os.Stderr).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// config loads the config file and applies the global flags over it.
func (a *app) config() (tomlConfig, error) {
	if a.configFile != "" && !fileExists(a.configFile) {
		return tomlConfig{}, fmt.Errorf("config file %q not found", a.configFile)
	}
	tc, err := loadConfig(a.configFile)
	if err != nil {
		return tc, err
	}
	if a.dir != "" {
		tc.Storage.Dir = a.dir
	}
	if a.backend != "" {
		tc.Storage.Backend = a.backend
	}
	if a.logLevel != "" {
		tc.Logging.Level = a.logLevel
	}
	return tc, nil
}

// session is an engine bound to a savegame manager.
type session struct {
	f8     *fallen8.Fallen8
	mgr    *persistence.Manager
	logger *fallen8.Logger
	keep   int

	closers []io.Closer
}

func (s *session) Close() error {
	var errs []error
	if s.f8 != nil {
		errs = append(errs, s.f8.Close())
	}
	for _, c := range s.closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

func (a *app) open(ctx context.Context) (*session, error) {
	tc, err := a.config()
	if err != nil {
		return nil, err
	}

	logger, logCloser, err := tc.Logging.logger(a.stderr)
	if err != nil {
		return nil, err
	}
	s := &session{logger: logger, keep: tc.Storage.Keep}
	if logCloser != nil {
		s.closers = append(s.closers, logCloser)
	}

	bs, err := tc.Storage.blobStore(ctx)
	if err != nil {
		_ = s.Close()
		return nil, err
	}
	enc, err := tc.Storage.encoding()
	if err != nil {
		_ = s.Close()
		return nil, err
	}
	s.mgr = persistence.NewManager(bs, persistence.WithPrefix(tc.Storage.Prefix), persistence.WithEncoding(enc...))

	s.f8 = fallen8.New(
		fallen8.WithLogger(logger),
		fallen8.WithResourceController(tc.Engine.controller()),
	)
	return s, nil
}

// openCurrent opens a session and loads the named savegame, or the current
// one when name is empty.
func (a *app) openCurrent(ctx context.Context, name string) (*session, persistence.Info, error) {
	s, err := a.open(ctx)
	if err != nil {
		return nil, persistence.Info{}, err
	}
	info, err := s.f8.Open(ctx, s.mgr, name)
	if err != nil {
		_ = s.Close()
		return nil, info, err
	}
	return s, info, nil
}
