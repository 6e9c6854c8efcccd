package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/orehall/ironpin-core/internal/hal"
	"github.com/orehall/ironpin-core/internal/vpin"
)

// mockPresence is a ModulePresence backed by a map.
type mockPresence map[vpin.ModuleType]int

func (m mockPresence) IsPresent(modType vpin.ModuleType, index int) bool {
	return m[modType] >= index && index >= 1
}

// mockRepository records repository calls for verification.
type mockRepository struct {
	mu      sync.Mutex
	saved   map[vpin.PinID]PinConfig
	deleted []vpin.PinID
	preset  map[vpin.PinID]PinConfig
}

func newMockRepository() *mockRepository {
	return &mockRepository{saved: make(map[vpin.PinID]PinConfig)}
}

func (m *mockRepository) Save(_ context.Context, id vpin.PinID, cfg PinConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved[id] = cfg
	return nil
}

func (m *mockRepository) Delete(_ context.Context, id vpin.PinID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, id)
	return nil
}

func (m *mockRepository) LoadAll(context.Context) (map[vpin.PinID]PinConfig, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[vpin.PinID]PinConfig, len(m.preset))
	for id, cfg := range m.preset {
		out[id] = cfg
	}
	return out, nil
}

// mockPublisher collects published state events.
type mockPublisher struct {
	mu     sync.Mutex
	events []StateEvent
}

func (m *mockPublisher) PublishPinState(ev StateEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, ev)
}

func (m *mockPublisher) all() []StateEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]StateEvent(nil), m.events...)
}

func newTestEngine(t *testing.T, revision hal.Revision, mutate func(*Options)) (*Engine, *hal.Simulator) {
	t.Helper()
	hw, sim := hal.NewSimContext(revision)
	opts := Options{
		Hardware: hw,
		Modules:  mockPresence{vpin.ModuleRelay: 1, vpin.ModuleAIO: 1, vpin.ModuleTC: 1, vpin.ModulePT: 1},
	}
	if mutate != nil {
		mutate(&opts)
	}
	e, err := New(opts)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return e, sim
}

// tickFor advances the engine by the given simulated duration at the
// default 20 ms period.
func tickFor(e *Engine, d time.Duration) {
	for i := 0; i < int(d/DefaultTickPeriod); i++ {
		e.Tick()
	}
}

func TestEngine_PinModeRoundtrip(t *testing.T) {
	e, _ := newTestEngine(t, hal.RevisionBase, nil)

	tests := []struct {
		name   string
		id     vpin.PinID
		mode   vpin.PinMode
		wantOK bool
	}{
		{"din", vpin.Local(1), vpin.DIN, true},
		{"swt", vpin.Local(2), vpin.SWT, true},
		{"ain on analog pin", vpin.Local(8), vpin.AIN, true},
		{"ain beyond analog bank", vpin.Local(9), vpin.AIN, false},
		{"aout", vpin.Local(9), vpin.AOUT, true},
		{"tc on main unit", vpin.Local(1), vpin.TC, false},
		{"pin out of range", vpin.Local(17), vpin.DIN, false},
		{"detected module", vpin.Compose(vpin.RoleMaster, vpin.ModuleRelay, 1, 3), vpin.RELAY, true},
		{"undetected module index", vpin.Compose(vpin.RoleMaster, vpin.ModuleRelay, 2, 3), vpin.RELAY, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if ok := e.PinMode(tt.id, tt.mode); ok != tt.wantOK {
				t.Fatalf("PinMode(%s, %s) = %v, want %v", tt.id, tt.mode, ok, tt.wantOK)
			}
			if tt.wantOK {
				if got := e.Mode(tt.id); got != tt.mode {
					t.Errorf("Mode(%s) = %s, want %s", tt.id, got, tt.mode)
				}
			}
		})
	}
}

func TestEngine_NoModeDeconfigures(t *testing.T) {
	e, _ := newTestEngine(t, hal.RevisionBase, nil)
	pin := vpin.Local(4)

	e.PinMode(pin, vpin.DIN)
	if !e.PinMode(pin, vpin.NoMode) {
		t.Fatal("PinMode(NoMode) should succeed")
	}
	if got := e.Mode(pin); got != vpin.NoMode {
		t.Errorf("Mode = %s after deconfigure, want NO_MODE", got)
	}
	if got := e.ReadPin(pin, vpin.State); got != -1 {
		t.Errorf("ReadPin on deconfigured pin = %d, want -1", got)
	}
}

func TestEngine_RevisionFallback(t *testing.T) {
	base, _ := newTestEngine(t, hal.RevisionBase, nil)
	if !base.PinMode(vpin.Local(3), vpin.CIN) {
		t.Fatal("CIN on base revision should degrade, not fail")
	}
	if got := base.Mode(vpin.Local(3)); got != vpin.AIN {
		t.Errorf("base revision CIN degraded to %s, want AIN", got)
	}

	analog, _ := newTestEngine(t, hal.RevisionAnalog, nil)
	analog.PinMode(vpin.Local(3), vpin.CIN)
	if got := analog.Mode(vpin.Local(3)); got != vpin.CIN {
		t.Errorf("analog revision mode = %s, want CIN", got)
	}
}

func TestEngine_InitializingUntilFirstSample(t *testing.T) {
	e, _ := newTestEngine(t, hal.RevisionBase, nil)
	pin := vpin.Local(1)
	e.PinMode(pin, vpin.DIN)

	if got := e.RuntimeMode(pin); got != vpin.Initializing {
		t.Errorf("RuntimeMode before first tick = %s, want INIT", got)
	}
	e.Tick()
	if got := e.RuntimeMode(pin); got != vpin.DIN {
		t.Errorf("RuntimeMode after first tick = %s, want DIN", got)
	}
}

func TestEngine_DINReadAndEdges(t *testing.T) {
	e, sim := newTestEngine(t, hal.RevisionBase, nil)
	pin := vpin.Local(1)
	e.PinMode(pin, vpin.DIN)

	sim.SetDigital(1, false)
	e.Tick()
	if got := e.ReadPin(pin, vpin.State); got != 0 {
		t.Errorf("ReadPin(State) = %d, want 0", got)
	}

	sim.SetDigital(1, true)
	e.Tick()
	if got := e.ReadPin(pin, vpin.State); got != 1 {
		t.Errorf("ReadPin(State) = %d, want 1", got)
	}
	if got := e.ReadPin(pin, vpin.OnRising); got != 1 {
		t.Errorf("ReadPin(OnRising) = %d, want 1", got)
	}
	if got := e.ReadPin(pin, vpin.OnRising); got != 0 {
		t.Errorf("second ReadPin(OnRising) = %d, want one-shot 0", got)
	}
}

func TestEngine_MissedPolarityNotReported(t *testing.T) {
	e, sim := newTestEngine(t, hal.RevisionBase, nil)
	pin := vpin.Local(1)
	e.PinMode(pin, vpin.DIN)

	sim.SetDigital(1, true)
	e.Tick() // seed high
	sim.SetDigital(1, false)
	e.Tick()

	// A rising read across the falling edge records the low level; the
	// falling read that follows must not report the edge it missed.
	if got := e.ReadPin(pin, vpin.OnRising); got != 0 {
		t.Errorf("ReadPin(OnRising) on falling edge = %d, want 0", got)
	}
	if got := e.ReadPin(pin, vpin.OnFalling); got != 0 {
		t.Errorf("ReadPin(OnFalling) after rising read = %d, want 0", got)
	}
}

func TestEngine_SWTDebounceWindow(t *testing.T) {
	e, sim := newTestEngine(t, hal.RevisionBase, nil)
	pin := vpin.Local(2)
	if !e.ConfigSWT(pin, 150) {
		t.Fatal("ConfigSWT failed")
	}

	sim.SetDigital(2, false)
	e.Tick() // seed

	sim.SetDigital(2, true)
	tickFor(e, 140*time.Millisecond)
	if got := e.ReadPin(pin, vpin.State); got != 0 {
		t.Errorf("ReadPin = %d at 140 ms, want 0 before the window elapses", got)
	}

	tickFor(e, 40*time.Millisecond)
	if got := e.ReadPin(pin, vpin.State); got != 1 {
		t.Errorf("ReadPin = %d after the window, want 1", got)
	}
	if got := e.ReadPin(pin, vpin.OnRising); got != 1 {
		t.Errorf("debounced edge should report once, got %d", got)
	}
}

func TestEngine_RelayDerateCycle(t *testing.T) {
	e, sim := newTestEngine(t, hal.RevisionBase, nil)
	pin := vpin.Local(5)
	if !e.ConfigRELAY(pin, 300, 1500) {
		t.Fatal("ConfigRELAY failed")
	}

	if !e.PinValue(pin, 1000) {
		t.Fatal("PinValue failed")
	}

	tickFor(e, 1000*time.Millisecond)
	if got := e.ReadPin(pin, vpin.State); got != 1000 {
		t.Errorf("relay power = %d at 1000 ms, want 1000 during derate", got)
	}

	tickFor(e, 1000*time.Millisecond)
	if got := e.ReadPin(pin, vpin.State); got != 300 {
		t.Errorf("relay power = %d at 2000 ms, want hold value 300", got)
	}
	if duty, _ := sim.DrivenDuty(5); duty != 300 {
		t.Errorf("driven duty = %d, want 300", duty)
	}

	e.PinValue(pin, 0)
	e.Tick()
	if got := e.ReadPin(pin, vpin.State); got != 0 {
		t.Errorf("relay power = %d after release, want 0", got)
	}
}

func TestEngine_RelayStartPowerFollowsWrite(t *testing.T) {
	e, sim := newTestEngine(t, hal.RevisionBase, nil)
	pin := vpin.Local(5)
	if !e.ConfigRELAY(pin, 300, 1500) {
		t.Fatal("ConfigRELAY failed")
	}

	e.PinValue(pin, 700)
	e.Tick()
	if got := e.ReadPin(pin, vpin.State); got != 700 {
		t.Errorf("relay power = %d during derate, want commanded 700", got)
	}
	if duty, _ := sim.DrivenDuty(5); duty != 700 {
		t.Errorf("driven duty = %d, want commanded 700", duty)
	}

	tickFor(e, 2000*time.Millisecond)
	if got := e.ReadPin(pin, vpin.State); got != 300 {
		t.Errorf("relay power = %d after derate, want hold value 300", got)
	}
}

func TestEngine_PCCCountAndClear(t *testing.T) {
	e, sim := newTestEngine(t, hal.RevisionBase, nil)
	pin := vpin.Local(7)
	if !e.ConfigPCC(pin, false) {
		t.Fatal("ConfigPCC failed")
	}

	sim.SetDigital(7, false)
	e.Tick() // seed
	for i := 0; i < 37; i++ {
		sim.SetDigital(7, true)
		e.Tick()
		sim.SetDigital(7, false)
		e.Tick()
	}

	if got := e.ReadPin(pin, vpin.State); got != 37 {
		t.Errorf("ReadPin = %d, want 37 pulses", got)
	}
	if got := e.ReadPin(pin, vpin.State); got != 0 {
		t.Errorf("second ReadPin = %d, want cleared count", got)
	}
}

func TestEngine_DOUTQueuedWrite(t *testing.T) {
	e, sim := newTestEngine(t, hal.RevisionBase, nil)
	pin := vpin.Local(10)
	e.PinMode(pin, vpin.DOUT)

	if !e.PinValue(pin, 5) {
		t.Fatal("PinValue failed")
	}
	if sim.DrivenLevel(10) {
		t.Error("write should not reach hardware before the tick")
	}
	e.Tick()
	if !sim.DrivenLevel(10) {
		t.Error("queued write should drive the pin on the next tick")
	}
	if got := e.ReadPin(pin, vpin.State); got != 1 {
		t.Errorf("ReadPin = %d, want commanded level 1", got)
	}
}

func TestEngine_WriteToInputRejected(t *testing.T) {
	e, _ := newTestEngine(t, hal.RevisionBase, nil)
	pin := vpin.Local(1)
	e.PinMode(pin, vpin.DIN)
	if e.PinValue(pin, 1) {
		t.Error("PinValue on an input mode should fail")
	}
}

func TestEngine_AOUTClampAndFrequency(t *testing.T) {
	e, sim := newTestEngine(t, hal.RevisionBase, nil)
	pin := vpin.Local(9)
	if !e.ConfigAOUTFreq(pin, 2000) {
		t.Fatal("ConfigAOUTFreq failed")
	}

	e.PinValue(pin, 1500)
	e.Tick()
	duty, freq := sim.DrivenDuty(9)
	if duty != 1000 {
		t.Errorf("duty = %d, want clamped 1000", duty)
	}
	if freq != 2000 {
		t.Errorf("freq = %d, want per-pin 2000", freq)
	}
}

func TestEngine_POUTSharedFrequency(t *testing.T) {
	e, sim := newTestEngine(t, hal.RevisionBase, nil)
	pin := vpin.Local(11)
	e.PinMode(pin, vpin.POUT)

	if e.ConfigPOUTFreq(2000) {
		t.Error("ConfigPOUTFreq above the range should fail")
	}
	if e.ConfigPOUTFreq(10) {
		t.Error("ConfigPOUTFreq below the range should fail")
	}
	if !e.ConfigPOUTFreq(800) {
		t.Fatal("ConfigPOUTFreq(800) failed")
	}

	e.PinValue(pin, 600)
	e.Tick()
	duty, freq := sim.DrivenDuty(11)
	if duty != 600 || freq != 800 {
		t.Errorf("driven = %d at %d Hz, want 600 at 800 Hz", duty, freq)
	}

	// Changing the shared frequency re-drives active POUT pins.
	e.ConfigPOUTFreq(1200)
	e.Tick()
	if _, freq := sim.DrivenDuty(11); freq != 1200 {
		t.Errorf("freq = %d after change, want 1200", freq)
	}
}

func TestEngine_TINConversion(t *testing.T) {
	e, sim := newTestEngine(t, hal.RevisionBase, nil)
	pin := vpin.Local(2)
	if !e.ConfigTIN(pin, 3988, 10000) {
		t.Fatal("ConfigTIN failed")
	}

	sim.SetAnalog(2, 2500)
	e.Tick()
	if got := e.ReadPin(pin, vpin.State); got != 250 {
		t.Errorf("ReadPin = %d deci-C at the calibration point, want 250", got)
	}

	sim.SetAnalog(2, 5000)
	e.Tick()
	if got := e.ReadPin(pin, vpin.State); got != vpin.TINOpenCircuit {
		t.Errorf("ReadPin = %d with probe open, want open-circuit sentinel", got)
	}

	sim.SetAnalog(2, 0)
	e.Tick()
	if got := e.ReadPin(pin, vpin.State); got != vpin.TINShortCircuit {
		t.Errorf("ReadPin = %d with probe shorted, want short-circuit sentinel", got)
	}
}

func TestEngine_StaleReadKeepsLastValue(t *testing.T) {
	e, sim := newTestEngine(t, hal.RevisionBase, nil)
	pin := vpin.Local(3)
	e.PinMode(pin, vpin.AIN)

	sim.SetAnalog(3, 1234)
	e.Tick()
	sim.SetStale(true)
	sim.SetAnalog(3, 0)
	e.Tick()
	if got := e.ReadPin(pin, vpin.State); got != 1234 {
		t.Errorf("ReadPin = %d during stale reads, want cached 1234", got)
	}
}

func TestEngine_ExpansionChannels(t *testing.T) {
	e, sim := newTestEngine(t, hal.RevisionBase, nil)

	tcPin := vpin.Compose(vpin.RoleMaster, vpin.ModuleTC, 1, 2)
	if !e.PinMode(tcPin, vpin.TC) {
		t.Fatal("PinMode(TC) on tc module failed")
	}
	sim.SetChannelSample(vpin.ModuleTC, 1, 2, hal.Sample{Raw: 815})
	e.Tick()
	if got := e.ReadPin(tcPin, vpin.State); got != 815 {
		t.Errorf("TC ReadPin = %d, want 815", got)
	}

	sim.SetChannelSample(vpin.ModuleTC, 1, 2, hal.Sample{Faults: vpin.FaultOpenCircuit})
	e.Tick()
	if got := e.ReadPin(tcPin, vpin.State); vpin.IsTCValid(got) {
		t.Errorf("TC ReadPin = %d with open probe, want invalid reading", got)
	}

	relayPin := vpin.Compose(vpin.RoleMaster, vpin.ModuleRelay, 1, 4)
	if !e.PinMode(relayPin, vpin.DOUT) {
		t.Fatal("PinMode(DOUT) on relay module failed")
	}
	e.PinValue(relayPin, 1)
	e.Tick()
	if got := sim.ChannelWrite(vpin.ModuleRelay, 1, 4); got != MaxDuty {
		t.Errorf("relay channel write = %d, want %d", got, MaxDuty)
	}
}

func TestEngine_RemoteMirrorAndOutbound(t *testing.T) {
	e, _ := newTestEngine(t, hal.RevisionBase, nil)
	remote := vpin.Compose(2, vpin.ModuleNone, 0, 5)

	if !e.PinValue(remote, 700) {
		t.Fatal("remote PinValue should queue")
	}
	out := e.DrainOutbound()
	if len(out) != 1 || out[0].ID != remote || out[0].Value != 700 {
		t.Fatalf("DrainOutbound = %+v, want one write of 700", out)
	}
	if len(e.DrainOutbound()) != 0 {
		t.Error("second drain should be empty")
	}

	if got := e.ReadPin(remote, vpin.State); got != 0 {
		t.Errorf("remote ReadPin before any report = %d, want 0", got)
	}
	e.IngestRemote(remote, 420)
	if got := e.ReadPin(remote, vpin.State); got != 420 {
		t.Errorf("remote ReadPin = %d, want mirrored 420", got)
	}

	if e.PinMode(remote, vpin.DIN) {
		t.Error("PinMode on a sibling handle should fail")
	}
}

func TestEngine_ConfigPersistence(t *testing.T) {
	repo := newMockRepository()
	e, _ := newTestEngine(t, hal.RevisionBase, func(o *Options) {
		o.Repository = repo
	})
	pin := vpin.Local(6)

	e.ConfigSWT(pin, 250)
	e.Tick() // flush

	repo.mu.Lock()
	saved, ok := repo.saved[pin]
	repo.mu.Unlock()
	if !ok {
		t.Fatal("config not flushed to repository")
	}
	if saved.Mode != vpin.SWT || saved.DebounceMs != 250 {
		t.Errorf("saved = %+v, want SWT with 250 ms debounce", saved)
	}

	e.PinMode(pin, vpin.NoMode)
	e.Tick()
	repo.mu.Lock()
	deleted := len(repo.deleted)
	repo.mu.Unlock()
	if deleted != 1 {
		t.Errorf("deleted %d configs, want 1", deleted)
	}
}

func TestEngine_RestoreConfigs(t *testing.T) {
	repo := newMockRepository()
	swtCfg := defaultConfig(vpin.SWT)
	swtCfg.DebounceMs = 200
	repo.preset = map[vpin.PinID]PinConfig{
		vpin.Local(1): swtCfg,
		// An AOUT persisted on an analog-only pin no longer validates.
		vpin.Local(2): defaultConfig(vpin.AOUT),
	}

	e, _ := newTestEngine(t, hal.RevisionBase, func(o *Options) {
		o.Repository = repo
	})
	if err := e.RestoreConfigs(context.Background()); err != nil {
		t.Fatalf("RestoreConfigs error: %v", err)
	}

	if got := e.Mode(vpin.Local(1)); got != vpin.SWT {
		t.Errorf("restored mode = %s, want SWT", got)
	}
	if got := e.Mode(vpin.Local(2)); got != vpin.NoMode {
		t.Errorf("invalid persisted config applied as %s, want skipped", got)
	}
}

func TestEngine_PublishesChanges(t *testing.T) {
	pub := &mockPublisher{}
	e, sim := newTestEngine(t, hal.RevisionBase, func(o *Options) {
		o.Publisher = pub
	})
	pin := vpin.Local(1)
	e.PinMode(pin, vpin.DIN)

	sim.SetDigital(1, false)
	e.Tick()
	sim.SetDigital(1, true)
	e.Tick()
	e.Tick() // no change, no event

	events := pub.all()
	if len(events) != 2 {
		t.Fatalf("published %d events, want 2 (settle + change)", len(events))
	}
	last := events[len(events)-1]
	if last.ID != pin || last.Value != 1 {
		t.Errorf("last event = %+v, want pin high", last)
	}
}

func TestEngine_RunStopsOnCancel(t *testing.T) {
	e, _ := newTestEngine(t, hal.RevisionBase, func(o *Options) {
		o.TickPeriod = MinTickPeriod
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- e.Run(ctx) }()

	time.Sleep(30 * time.Millisecond)
	if err := e.Run(ctx); err != ErrAlreadyRunning {
		t.Errorf("second Run = %v, want ErrAlreadyRunning", err)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run returned %v, want nil on cancel", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not stop on cancel")
	}
}

func TestEngine_DACAndBuzzer(t *testing.T) {
	base, _ := newTestEngine(t, hal.RevisionBase, nil)
	if base.DACValue(1, 2000) {
		t.Error("DACValue on base revision should fail")
	}

	analog, sim := newTestEngine(t, hal.RevisionAnalog, nil)
	if !analog.DACValue(1, 6000) {
		t.Fatal("DACValue failed")
	}
	if got := sim.DACMillivolts(1); got != MaxDACMillivolts {
		t.Errorf("DAC output = %d, want clamped %d", got, MaxDACMillivolts)
	}
	if analog.DACValue(3, 1000) {
		t.Error("DACValue on channel 3 should fail")
	}

	if !analog.BuzzerOn(30) {
		t.Fatal("BuzzerOn failed")
	}
	if got := sim.BuzzerFreq(); got != MinBuzzerFreq {
		t.Errorf("buzzer freq = %d, want clamped %d", got, MinBuzzerFreq)
	}
	analog.BuzzerOff()
	if got := sim.BuzzerFreq(); got != 0 {
		t.Errorf("buzzer freq = %d after off, want 0", got)
	}
}

func TestEngine_NativePinMapping(t *testing.T) {
	e, _ := newTestEngine(t, hal.RevisionBase, nil)
	if got := e.NativePin(vpin.Local(3)); got != 103 {
		t.Errorf("NativePin = %d, want simulator mapping 103", got)
	}
	if got := e.NativePin(vpin.Compose(vpin.RoleMaster, vpin.ModuleAIO, 1, 3)); got != -1 {
		t.Errorf("NativePin on expansion = %d, want -1", got)
	}
	if got := e.NativePin(vpin.Compose(2, vpin.ModuleNone, 0, 3)); got != -1 {
		t.Errorf("NativePin on sibling = %d, want -1", got)
	}
}

func TestEngine_RailVoltages(t *testing.T) {
	e, sim := newTestEngine(t, hal.RevisionBase, nil)
	if got := e.ReadInputVoltage(); got != 24000 {
		t.Errorf("input rail = %d, want seeded 24000", got)
	}
	sim.SetRails(23500, 4900)
	e.Tick()
	if got := e.ReadInputVoltage(); got != 23500 {
		t.Errorf("input rail = %d after tick, want 23500", got)
	}
	if got := e.ReadOutputVoltage(); got != 4900 {
		t.Errorf("output rail = %d after tick, want 4900", got)
	}
}
