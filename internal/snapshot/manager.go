package snapshot

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"QuantumLink/internal/bridge"
	"QuantumLink/internal/logger"
)

const (
	// defaultInterval is the default interval between snapshots.
	defaultInterval = 10 * time.Second

	// latestFile is the snapshot file name written to the snapshot directory.
	latestFile = "latest.snap"
)

// Source provides the state to snapshot.
type Source interface {
	// Image returns a full copy of the bridge state.
	Image() bridge.Image
}

// Clock provides the tick a snapshot is taken at.
type Clock interface {
	CurrentTick() uint64
}

// Manager creates periodic compressed snapshots of the bridge state.
type Manager struct {
	source   Source
	clock    Clock
	interval time.Duration
	dir      string // dir receives latest.snap when set

	mu       sync.RWMutex
	current  []byte      // compressed snapshot data
	tick     uint64      // tick of current snapshot
	lastMeta bridge.Meta // lastMeta detects an unchanged state

	stop chan struct{}
	wg   sync.WaitGroup
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithInterval sets the period between snapshots.
func WithInterval(d time.Duration) ManagerOption {
	return func(m *Manager) {
		m.interval = d
	}
}

// WithDir writes every new snapshot to dir.
func WithDir(dir string) ManagerOption {
	return func(m *Manager) {
		m.dir = dir
	}
}

// NewManager creates a snapshot manager.
func NewManager(source Source, clock Clock, opts ...ManagerOption) *Manager {
	m := &Manager{
		source:   source,
		clock:    clock,
		interval: defaultInterval,
		stop:     make(chan struct{}),
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// Start begins the periodic snapshot loop.
func (m *Manager) Start() {
	m.wg.Add(1)
	go m.loop()
}

// Stop stops the loop, waits for it and takes a final snapshot.
func (m *Manager) Stop() {
	close(m.stop)
	m.wg.Wait()

	m.Take()
}

// Latest returns the most recent compressed snapshot and its tick.
// Returns nil if no snapshot has been created yet.
func (m *Manager) Latest() (data []byte, tick uint64) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.current, m.tick
}

// loop runs the periodic snapshot creation.
func (m *Manager) loop() {
	defer m.wg.Done()

	m.Take()

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			m.Take()
		}
	}
}

// Take creates a snapshot now unless the state is unchanged since the last one.
func (m *Manager) Take() {
	start := time.Now()
	img := m.source.Image()

	m.mu.RLock()
	unchanged := m.current != nil && img.Meta == m.lastMeta
	m.mu.RUnlock()

	if unchanged {
		return
	}

	tick := m.clock.CurrentTick()
	data := Create(img, tick)

	compressed, err := Compress(data)
	if err != nil {
		logger.Error("compress snapshot", "error", err)
		return
	}

	if m.dir != "" {
		if err := writeAtomic(filepath.Join(m.dir, latestFile), compressed); err != nil {
			logger.Error("write snapshot", "error", err)
		}
	}

	m.mu.Lock()
	m.current = compressed
	m.tick = tick
	m.lastMeta = img.Meta
	m.mu.Unlock()

	logger.Debug("snapshot created",
		"tick", tick,
		"nextID", img.Meta.NextID,
		"records", len(img.Transactions),
		"assets", len(img.Locked),
		"size", len(data),
		"compressed", len(compressed),
		logger.Timed(start),
	)
}

// LoadFile reads the latest snapshot written by a Manager in dir.
// Returns nil without error when none exists.
func LoadFile(dir string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(dir, latestFile))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshot:\n%w", err)
	}

	return data, nil
}

// writeAtomic writes data to a temp file and renames it over path.
func writeAtomic(path string, data []byte) error {
	tmp := path + ".tmp"

	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}

	return os.Rename(tmp, path)
}
