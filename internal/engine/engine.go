package engine

import (
	"context"
	"sync"
	"time"

	"github.com/orehall/ironpin-core/internal/hal"
	"github.com/orehall/ironpin-core/internal/vpin"
)

// Logger defines the logging interface used by the Engine.
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

// ModulePresence answers whether an expansion module was detected at
// boot. Implemented by the topology manager.
type ModulePresence interface {
	IsPresent(modType vpin.ModuleType, index int) bool
}

// StateEvent is one pin state observation, emitted whenever a pin's
// published value changes.
type StateEvent struct {
	ID    vpin.PinID
	Mode  vpin.PinMode
	Value int
}

// StatePublisher receives pin state changes as they happen. Called from
// the supervisor goroutine outside the engine lock; implementations must
// not block.
type StatePublisher interface {
	PublishPinState(ev StateEvent)
}

// SampleRecorder receives periodic samples for time-series storage.
type SampleRecorder interface {
	RecordPinSample(ev StateEvent)
	RecordRails(inputMV, outputMV int)
}

// ConfigRepository persists pin configurations across restarts.
type ConfigRepository interface {
	Save(ctx context.Context, id vpin.PinID, cfg PinConfig) error
	Delete(ctx context.Context, id vpin.PinID) error
	LoadAll(ctx context.Context) (map[vpin.PinID]PinConfig, error)
}

// RemoteWrite is a value write addressed to a pin on a sibling unit,
// queued for the chain transport to deliver.
type RemoteWrite struct {
	ID    vpin.PinID
	Value int
}

// Supervisor tick bounds.
const (
	DefaultTickPeriod = 20 * time.Millisecond
	MinTickPeriod     = 5 * time.Millisecond
	MaxTickPeriod     = 500 * time.Millisecond

	// defaultRecordEvery decimates time-series recording to one sample
	// per pin per 50 ticks (one second at the default period).
	defaultRecordEvery = 50

	// maxOutbound caps the queue of writes awaiting chain delivery.
	// The queue drops its oldest entry on overflow so the freshest
	// command always survives.
	maxOutbound = 256
)

// Options configures a new Engine.
type Options struct {
	// Hardware is the adapter bundle. Required.
	Hardware *hal.Context

	// Role is this unit's position in the daisy chain. Handles whose
	// role field matches are local; everything else is mirrored.
	Role vpin.UnitRole

	// TickPeriod is the supervisor period, clamped to
	// [MinTickPeriod, MaxTickPeriod]. Zero selects the default.
	TickPeriod time.Duration

	// Modules reports boot-time discovery results. Optional; when nil
	// every expansion handle is rejected.
	Modules ModulePresence

	// Repository persists pin configs. Optional.
	Repository ConfigRepository

	// Publisher receives state change events. Optional.
	Publisher StatePublisher

	// Recorder receives decimated samples. Optional.
	Recorder SampleRecorder

	// Logger receives operational logs. Optional.
	Logger Logger
}

// Engine owns every local pin: configuration, per-mode state machines
// and the cached readings callers see. All hardware access happens on
// the supervisor tick; the public API only touches in-memory state under
// a short-lived mutex, so callers never block on hardware.
//
// Thread Safety: all exported methods are safe for concurrent use.
type Engine struct {
	mu sync.Mutex

	hw   *hal.Context
	role vpin.UnitRole
	mods ModulePresence

	tickPeriod time.Duration
	tickMs     int

	// poutFreq is the shared PWM frequency for all POUT and RELAY pins.
	poutFreq  int
	freqDirty bool

	slots map[vpin.PinID]*pinSlot

	railInMV  int
	railOutMV int

	// mirror caches the last reported value of every remote pin this
	// unit has heard about; outbound queues writes for the chain.
	mirror   map[vpin.PinID]int
	outbound []RemoteWrite

	// dirty holds config changes awaiting persistence. Flushed by the
	// supervisor so mode setters never wait on the database.
	dirty map[vpin.PinID]*PinConfig

	events []StateEvent

	running   bool
	tickCount uint64

	repo      ConfigRepository
	publisher StatePublisher
	recorder  SampleRecorder
	logger    Logger
}

// New builds an Engine. It performs one rail read to seed the voltage
// cache but configures no pins; call RestoreConfigs to reload persisted
// modes, then Run to start the supervisor.
func New(opts Options) (*Engine, error) {
	if opts.Hardware == nil {
		return nil, ErrNilHardware
	}

	period := opts.TickPeriod
	if period == 0 {
		period = DefaultTickPeriod
	}
	if period < MinTickPeriod {
		period = MinTickPeriod
	}
	if period > MaxTickPeriod {
		period = MaxTickPeriod
	}

	logger := opts.Logger
	if logger == nil {
		logger = noopLogger{}
	}

	e := &Engine{
		hw:         opts.Hardware,
		role:       opts.Role,
		mods:       opts.Modules,
		tickPeriod: period,
		tickMs:     int(period / time.Millisecond),
		poutFreq:   DefaultPOUTFreq,
		slots:      make(map[vpin.PinID]*pinSlot),
		mirror:     make(map[vpin.PinID]int),
		dirty:      make(map[vpin.PinID]*PinConfig),
		repo:       opts.Repository,
		publisher:  opts.Publisher,
		recorder:   opts.Recorder,
		logger:     logger,
	}

	if rails := e.hw.Rails; rails != nil {
		if mV, ok := rails.InputVoltage(); ok {
			e.railInMV = mV
		}
		if mV, ok := rails.OutputVoltage(); ok {
			e.railOutMV = mV
		}
	}

	return e, nil
}

// PinMode sets a pin's operating mode with default parameters. It
// reports false when the pin cannot serve the mode: out-of-range pin,
// analog mode on a non-analog pin, probe mode off its module type, or a
// handle to a module that was not detected at boot.
//
// Setting NoMode deconfigures the pin and removes its persisted config.
func (e *Engine) PinMode(id vpin.PinID, mode vpin.PinMode) bool {
	cfg := defaultConfig(mode)
	return e.applyConfig(id, cfg, true)
}

// Mode returns a pin's configured mode, or NoMode for handles this unit
// does not own.
func (e *Engine) Mode(id vpin.PinID) vpin.PinMode {
	e.mu.Lock()
	defer e.mu.Unlock()
	if slot, ok := e.slots[id]; ok {
		return slot.cfg.Mode
	}
	return vpin.NoMode
}

// RuntimeMode returns the mode a pin reports right now, including the
// transient Initializing sentinel between a mode change and the first
// settled reading.
func (e *Engine) RuntimeMode(id vpin.PinID) vpin.PinMode {
	e.mu.Lock()
	defer e.mu.Unlock()
	if slot, ok := e.slots[id]; ok {
		return slot.runtimeMode()
	}
	return vpin.NoMode
}

// ConfigSWT configures a pin as a debounced switch input with the given
// stability window in milliseconds.
func (e *Engine) ConfigSWT(id vpin.PinID, debounceMs int) bool {
	if debounceMs < 0 {
		return false
	}
	cfg := defaultConfig(vpin.SWT)
	cfg.DebounceMs = debounceMs
	return e.applyConfig(id, cfg, true)
}

// ConfigTIN configures a pin as a thermistor input with the given beta
// coefficient and reference resistance in ohms.
func (e *Engine) ConfigTIN(id vpin.PinID, beta, refOhms int) bool {
	if beta <= 0 || refOhms <= 0 {
		return false
	}
	cfg := defaultConfig(vpin.TIN)
	cfg.Beta = beta
	cfg.RefOhms = refOhms
	return e.applyConfig(id, cfg, true)
}

// ConfigRELAY configures a pin as a derated relay output: full power for
// derateMs after engagement, holdValue permille afterwards.
func (e *Engine) ConfigRELAY(id vpin.PinID, holdValue, derateMs int) bool {
	if holdValue < 0 || holdValue > MaxDuty || derateMs < 0 {
		return false
	}
	cfg := defaultConfig(vpin.RELAY)
	cfg.HoldValue = holdValue
	cfg.DerateMs = derateMs
	return e.applyConfig(id, cfg, true)
}

// ConfigPCC configures a pin as a pulse counter, rising-edge only or
// both edges.
func (e *Engine) ConfigPCC(id vpin.PinID, bothEdges bool) bool {
	cfg := defaultConfig(vpin.PCC)
	cfg.BothEdges = bothEdges
	return e.applyConfig(id, cfg, true)
}

// ConfigAOUTFreq configures a pin as a pseudo-analog output at the given
// per-pin PWM frequency in Hz.
func (e *Engine) ConfigAOUTFreq(id vpin.PinID, freqHz int) bool {
	if freqHz < MinAOUTFreq || freqHz > MaxAOUTFreq {
		return false
	}
	cfg := defaultConfig(vpin.AOUT)
	cfg.PWMFreq = freqHz
	return e.applyConfig(id, cfg, true)
}

// ConfigPOUTFreq sets the PWM frequency shared by every POUT and RELAY
// pin. The new frequency is re-driven on the next tick.
func (e *Engine) ConfigPOUTFreq(freqHz int) bool {
	if freqHz < MinPOUTFreq || freqHz > MaxPOUTFreq {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if freqHz != e.poutFreq {
		e.poutFreq = freqHz
		e.freqDirty = true
	}
	return true
}

// POUTFreq returns the shared POUT-family PWM frequency in Hz.
func (e *Engine) POUTFreq() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.poutFreq
}

// applyConfig validates and installs a pin configuration. persist marks
// the change for repository flush; restore paths pass false.
func (e *Engine) applyConfig(id vpin.PinID, cfg PinConfig, persist bool) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !id.IsLocal(e.role) {
		// Sibling pins are configured on their own unit.
		return false
	}
	if id.IsExpansion() && !e.moduleDetected(id) {
		return false
	}

	applied, ok := resolveMode(id, cfg.Mode, e.hw.Revision)
	if !ok {
		return false
	}
	if applied != cfg.Mode {
		e.logger.Warn("pin mode degraded for hardware revision",
			"pin", id.String(), "requested", cfg.Mode.String(), "applied", applied.String())
		cfg.Mode = applied
	}

	if cfg.Mode == vpin.NoMode {
		delete(e.slots, id)
		if persist {
			e.dirty[id] = nil
		}
		e.logger.Info("pin deconfigured", "pin", id.String())
		return true
	}

	slot, ok := e.slots[id]
	if !ok {
		slot = &pinSlot{id: id}
		e.slots[id] = slot
	}
	slot.cfg = cfg
	slot.resetRuntime()

	if persist {
		c := cfg
		e.dirty[id] = &c
	}
	e.logger.Info("pin configured", "pin", id.String(), "mode", cfg.Mode.String())
	return true
}

func (e *Engine) moduleDetected(id vpin.PinID) bool {
	if e.mods == nil {
		return false
	}
	return e.mods.IsPresent(id.ModuleType(), id.ModuleIndex())
}

// PinValue writes a value to an output pin. The write is queued and
// driven on the next supervisor tick; PinValue itself never touches
// hardware. Writes to sibling pins are queued for the chain transport.
//
// DOUT treats any non-zero value as high. AOUT and POUT clamp to
// 0-1000 permille. RELAY treats non-zero as engage and zero as release.
func (e *Engine) PinValue(id vpin.PinID, value int) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !id.IsLocal(e.role) {
		if len(e.outbound) >= maxOutbound {
			e.outbound = e.outbound[1:]
			e.logger.Warn("outbound write queue full, dropped oldest")
		}
		e.outbound = append(e.outbound, RemoteWrite{ID: id, Value: value})
		return true
	}

	slot, ok := e.slots[id]
	if !ok || !slot.cfg.Mode.IsOutput() {
		return false
	}

	switch slot.cfg.Mode {
	case vpin.AOUT, vpin.POUT:
		if value < 0 {
			value = 0
		}
		if value > MaxDuty {
			value = MaxDuty
		}
	}

	v := value
	slot.pending = &v
	return true
}

// ReadPin returns a pin's current cached reading. The trigger mode
// applies to digital modes only: State reads the stable level, the edge
// modes report a transition once against a memory shared by all edge
// modes. PCC ignores the trigger mode and returns the accumulated
// count, clearing it.
//
// Unknown or misaddressed handles return -1. Remote handles return the
// last mirrored value, 0 before any report arrives.
func (e *Engine) ReadPin(id vpin.PinID, trig vpin.TrigMode) int {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !id.IsLocal(e.role) {
		return e.mirror[id]
	}

	slot, ok := e.slots[id]
	if !ok || slot.cfg.Mode.IsSentinel() {
		return -1
	}

	switch slot.cfg.Mode {
	case vpin.PCC:
		if st, ok := slot.mach.(*pccState); ok {
			return st.drain()
		}
		return 0
	default:
		if slot.cfg.Mode.IsDigital() {
			return slot.trig.read(trig, slot.stable)
		}
		return slot.value
	}
}

// ReadInputVoltage returns the sensed input rail in millivolts, cached
// from the most recent tick.
func (e *Engine) ReadInputVoltage() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.railInMV
}

// ReadOutputVoltage returns the sensed output rail in millivolts.
func (e *Engine) ReadOutputVoltage() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.railOutMV
}

// NativePin maps a local main-unit pin to its host line number for
// Custom-mode use, or -1 when the handle has no host mapping.
func (e *Engine) NativePin(id vpin.PinID) int {
	if !id.IsLocal(e.role) || id.IsExpansion() {
		return -1
	}
	pin := id.Pin()
	if pin < MinPin || pin > MaxPin {
		return -1
	}
	return e.hw.Ports.NativePin(pin)
}

// DACValue drives a true analog output channel in millivolts, clamped to
// 0-5000. Reports false on base-revision hardware, which has no DAC.
func (e *Engine) DACValue(channel, mV int) bool {
	if channel < 1 || channel > 2 {
		return false
	}
	if !e.hw.Revision.HasDAC() || e.hw.DAC == nil {
		return false
	}
	if mV < 0 {
		mV = 0
	}
	if mV > MaxDACMillivolts {
		mV = MaxDACMillivolts
	}
	return e.hw.DAC.Write(channel, mV)
}

// BuzzerOn starts the on-board buzzer at the given frequency, clamped to
// the 50 Hz - 20 kHz range.
func (e *Engine) BuzzerOn(freqHz int) bool {
	if e.hw.Buzzer == nil {
		return false
	}
	if freqHz < MinBuzzerFreq {
		freqHz = MinBuzzerFreq
	}
	if freqHz > MaxBuzzerFreq {
		freqHz = MaxBuzzerFreq
	}
	return e.hw.Buzzer.On(freqHz)
}

// BuzzerOff silences the buzzer.
func (e *Engine) BuzzerOff() {
	if e.hw.Buzzer != nil {
		e.hw.Buzzer.Off()
	}
}

// IngestRemote records a state report for a pin on another unit. Called
// by the chain transport when a sibling publishes state.
func (e *Engine) IngestRemote(id vpin.PinID, value int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if id.IsLocal(e.role) {
		return
	}
	e.mirror[id] = value
}

// DrainOutbound removes and returns every queued write addressed to
// sibling units.
func (e *Engine) DrainOutbound() []RemoteWrite {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := e.outbound
	e.outbound = nil
	return out
}

// RestoreConfigs reloads persisted pin configurations and applies each
// through the normal validation path. Configs that no longer validate
// (module removed, revision changed) are skipped with a warning.
func (e *Engine) RestoreConfigs(ctx context.Context) error {
	if e.repo == nil {
		return nil
	}
	configs, err := e.repo.LoadAll(ctx)
	if err != nil {
		return err
	}
	restored := 0
	for id, cfg := range configs {
		if !e.applyConfig(id, cfg, false) {
			e.logger.Warn("persisted pin config no longer valid, skipped",
				"pin", id.String(), "mode", cfg.Mode.String())
			continue
		}
		restored++
	}
	e.logger.Info("pin configs restored", "count", restored)
	return nil
}

// Snapshot returns the current state of every configured local pin.
func (e *Engine) Snapshot() []StateEvent {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]StateEvent, 0, len(e.slots))
	for _, slot := range e.slots {
		out = append(out, StateEvent{ID: slot.id, Mode: slot.runtimeMode(), Value: slot.value})
	}
	return out
}
