package persistence

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cosh/fallen-8-core-sub000/blobstore"
)

// CurrentName is the blob naming the newest savegame.
const CurrentName = "CURRENT"

const (
	savegamePrefix = "savegame-"
	savegameSuffix = ".f8sg"
)

// ErrNoSavegame is returned by Load before the first Save.
var ErrNoSavegame = errors.New("no savegame")

// Manager writes savegames to a blob store and tracks the newest one.
//
// Every Save writes a new, uniquely named blob and then points CURRENT at
// it, so a crash between the two leaves the previous savegame current.
// The Manager is safe for concurrent use.
type Manager struct {
	store  blobstore.BlobStore
	prefix string
	opts   []Option
	now    func() time.Time

	mu   sync.Mutex
	last int64
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithPrefix places savegames below prefix. CURRENT stays at the root so
// that stores treating it specially find it.
func WithPrefix(prefix string) ManagerOption {
	return func(m *Manager) { m.prefix = prefix }
}

// WithEncoding sets the options savegames are encoded and decoded with.
func WithEncoding(opts ...Option) ManagerOption {
	return func(m *Manager) { m.opts = append(m.opts, opts...) }
}

// WithManagerClock sets the clock savegame names are derived from.
func WithManagerClock(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// NewManager creates a manager over store.
func NewManager(store blobstore.BlobStore, opts ...ManagerOption) *Manager {
	m := &Manager{store: store, now: time.Now}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Store returns the underlying blob store.
func (m *Manager) Store() blobstore.BlobStore { return m.store }

// nextName returns a savegame name that sorts after every earlier one.
func (m *Manager) nextName() string {
	ts := m.now().UnixNano()
	if ts <= m.last {
		ts = m.last + 1
	}
	m.last = ts
	return fmt.Sprintf("%s%s%020d%s", m.prefix, savegamePrefix, ts, savegameSuffix)
}

// Save writes doc as a new savegame, makes it current and returns its name.
func (m *Manager) Save(ctx context.Context, doc *Document) (string, error) {
	data, err := Marshal(ctx, doc, m.opts...)
	if err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	name := m.nextName()
	if err := m.store.Put(ctx, name, data); err != nil {
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	if err := m.store.Put(ctx, CurrentName, []byte(name)); err != nil {
		return "", fmt.Errorf("update %s: %w", CurrentName, err)
	}
	return name, nil
}

// Current returns the name of the newest savegame.
func (m *Manager) Current(ctx context.Context) (string, error) {
	data, err := m.store.Get(ctx, CurrentName)
	if err != nil {
		if errors.Is(err, blobstore.ErrNotFound) {
			return "", ErrNoSavegame
		}
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// Load reads the current savegame.
func (m *Manager) Load(ctx context.Context) (*Document, Info, error) {
	name, err := m.Current(ctx)
	if err != nil {
		return nil, Info{}, err
	}
	return m.LoadNamed(ctx, name)
}

// LoadNamed reads the savegame stored under name.
func (m *Manager) LoadNamed(ctx context.Context, name string) (*Document, Info, error) {
	data, err := m.store.Get(ctx, name)
	if err != nil {
		return nil, Info{}, fmt.Errorf("read %s: %w", name, err)
	}
	doc, info, err := Unmarshal(ctx, data, m.opts...)
	if err != nil {
		return nil, info, fmt.Errorf("read %s: %w", name, err)
	}
	return doc, info, nil
}

// Inspect reads the header of the savegame stored under name.
func (m *Manager) Inspect(ctx context.Context, name string) (Info, error) {
	data, err := m.store.Get(ctx, name)
	if err != nil {
		return Info{}, err
	}
	return Inspect(bytes.NewReader(data))
}

// List returns the savegame names, oldest first.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	names, err := m.store.List(ctx, m.prefix+savegamePrefix)
	if err != nil {
		return nil, err
	}
	out := names[:0]
	for _, n := range names {
		if strings.HasSuffix(n, savegameSuffix) {
			out = append(out, n)
		}
	}
	return out, nil
}

// Prune deletes all but the newest keep savegames and returns how many it
// deleted. The current savegame is never deleted.
func (m *Manager) Prune(ctx context.Context, keep int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	names, err := m.List(ctx)
	if err != nil {
		return 0, err
	}
	current, err := m.Current(ctx)
	if err != nil && !errors.Is(err, ErrNoSavegame) {
		return 0, err
	}

	keep = max(keep, 0)
	deleted := 0
	for _, n := range names[:max(len(names)-keep, 0)] {
		if n == current {
			continue
		}
		if err := m.store.Delete(ctx, n); err != nil {
			return deleted, fmt.Errorf("delete %s: %w", n, err)
		}
		deleted++
	}
	return deleted, nil
}
