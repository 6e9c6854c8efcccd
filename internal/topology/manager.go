package topology

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/orehall/ironpin-core/internal/hal"
	"github.com/orehall/ironpin-core/internal/vpin"
)

// Logger defines the logging interface used by the Manager.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// ModuleRecord describes one detected expansion module.
type ModuleRecord struct {
	Type       vpin.ModuleType `json:"type"`
	Index      int             `json:"index"`
	Channels   int             `json:"channels"`
	DetectedAt time.Time       `json:"detected_at"`
	LastSeen   time.Time       `json:"last_seen"`
}

type moduleKey struct {
	typ   vpin.ModuleType
	index int
}

// Manager holds the discovered module table.
//
// Thread Safety: all methods are safe for concurrent use. The table is
// written only during Discover; reads afterwards take the read lock.
type Manager struct {
	mu      sync.RWMutex
	bus     hal.ModuleBus
	modules map[moduleKey]*ModuleRecord
	logger  Logger
}

// NewManager creates a topology manager over the given module bus.
func NewManager(bus hal.ModuleBus) *Manager {
	return &Manager{
		bus:     bus,
		modules: make(map[moduleKey]*ModuleRecord),
		logger:  noopLogger{},
	}
}

// SetLogger sets the logger for the manager.
func (m *Manager) SetLogger(logger Logger) {
	m.logger = logger
}

// Discover probes the bus for every module type and records what
// answers. Modules of one type enumerate contiguously from index 1, so
// probing stops at the first silent index per type.
//
// Discover may block on the bus and must run before the supervisor
// starts. Calling it again replaces the table.
func (m *Manager) Discover(ctx context.Context) error {
	found := make(map[moduleKey]*ModuleRecord)
	now := time.Now().UTC()

	for _, typ := range vpin.AllModuleTypes() {
		for index := 1; index <= vpin.MaxModuleIndex; index++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			if !m.bus.Probe(typ, index) {
				break
			}
			found[moduleKey{typ, index}] = &ModuleRecord{
				Type:       typ,
				Index:      index,
				Channels:   typ.ChannelCount(),
				DetectedAt: now,
				LastSeen:   now,
			}
			m.logger.Info("expansion module detected",
				"type", typ.String(), "index", index, "channels", typ.ChannelCount())
		}
	}

	m.mu.Lock()
	m.modules = found
	m.mu.Unlock()

	m.logger.Info("module discovery complete", "count", len(found))
	return nil
}

// IsPresent reports whether a module answered at boot. Implements the
// engine's ModulePresence interface.
func (m *Manager) IsPresent(modType vpin.ModuleType, index int) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.modules[moduleKey{modType, index}]
	return ok
}

// MarkSeen updates a module's liveness timestamp. Unknown modules are
// ignored.
func (m *Manager) MarkSeen(modType vpin.ModuleType, index int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec, ok := m.modules[moduleKey{modType, index}]; ok {
		rec.LastSeen = time.Now().UTC()
	}
}

// IsAlive reports whether a module has been seen within the timeout.
func (m *Manager) IsAlive(modType vpin.ModuleType, index int, timeout time.Duration) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.modules[moduleKey{modType, index}]
	if !ok {
		return false
	}
	return time.Since(rec.LastSeen) <= timeout
}

// Table returns a copy of the module table, ordered by type then index.
func (m *Manager) Table() []ModuleRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]ModuleRecord, 0, len(m.modules))
	for _, rec := range m.modules {
		out = append(out, *rec)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Type != out[j].Type {
			return out[i].Type < out[j].Type
		}
		return out[i].Index < out[j].Index
	})
	return out
}

// Restore installs a previously persisted table without probing. Used
// when the bus is absent (simulation) but a snapshot exists.
func (m *Manager) Restore(records []ModuleRecord) {
	found := make(map[moduleKey]*ModuleRecord, len(records))
	for i := range records {
		rec := records[i]
		found[moduleKey{rec.Type, rec.Index}] = &rec
	}
	m.mu.Lock()
	m.modules = found
	m.mu.Unlock()
}
