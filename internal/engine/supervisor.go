package engine

import (
	"context"
	"time"

	"github.com/orehall/ironpin-core/internal/vpin"
)

// persistTimeout bounds each background config flush.
const persistTimeout = 5 * time.Second

// Run drives the supervisor loop until the context is cancelled. Every
// tick samples the rails, advances each configured pin's state machine,
// applies queued writes, then publishes changes and flushes dirty
// configs outside the engine lock.
//
// Run blocks; start it on its own goroutine. It returns nil on clean
// shutdown.
func (e *Engine) Run(ctx context.Context) error {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return ErrAlreadyRunning
	}
	e.running = true
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.running = false
		e.mu.Unlock()
	}()

	e.logger.Info("supervisor started", "period", e.tickPeriod.String())

	ticker := time.NewTicker(e.tickPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			e.logger.Info("supervisor stopped")
			return nil
		case <-ticker.C:
			e.Tick()
		}
	}
}

// Tick runs one supervisor pass. Exported so tests and single-step
// harnesses can advance the engine deterministically without a ticker.
func (e *Engine) Tick() {
	e.mu.Lock()

	e.sampleRails()
	for _, slot := range e.slots {
		prev := slot.value
		settled := slot.settled
		e.advance(slot)
		if slot.value != prev || (slot.settled && !settled) {
			e.events = append(e.events, StateEvent{
				ID:    slot.id,
				Mode:  slot.runtimeMode(),
				Value: slot.value,
			})
		}
	}
	e.freqDirty = false
	e.tickCount++

	events := e.events
	e.events = nil
	record := e.recorder != nil && e.tickCount%defaultRecordEvery == 0
	var samples []StateEvent
	var railIn, railOut int
	if record {
		for _, slot := range e.slots {
			samples = append(samples, StateEvent{ID: slot.id, Mode: slot.cfg.Mode, Value: slot.value})
		}
		railIn, railOut = e.railInMV, e.railOutMV
	}
	var flush map[vpin.PinID]*PinConfig
	if e.repo != nil && len(e.dirty) > 0 {
		flush = e.dirty
		e.dirty = make(map[vpin.PinID]*PinConfig)
	}

	e.mu.Unlock()

	if e.publisher != nil {
		for _, ev := range events {
			e.publisher.PublishPinState(ev)
		}
	}
	if record {
		for _, s := range samples {
			e.recorder.RecordPinSample(s)
		}
		e.recorder.RecordRails(railIn, railOut)
	}
	if flush != nil {
		e.flushConfigs(flush)
	}
}

func (e *Engine) sampleRails() {
	rails := e.hw.Rails
	if rails == nil {
		return
	}
	if mV, ok := rails.InputVoltage(); ok {
		e.railInMV = mV
	}
	if mV, ok := rails.OutputVoltage(); ok {
		e.railOutMV = mV
	}
}

// advance runs one tick of a single pin. Called under the engine lock.
func (e *Engine) advance(slot *pinSlot) {
	if slot.cfg.Mode.IsSentinel() {
		return
	}
	if slot.id.IsExpansion() {
		e.advanceExpansion(slot)
		return
	}
	e.advanceMain(slot)
}

func (e *Engine) advanceMain(slot *pinSlot) {
	ports := e.hw.Ports
	pin := slot.id.Pin()
	cfg := &slot.cfg

	switch cfg.Mode {
	case vpin.DIN:
		raw, ok := ports.ReadDigital(pin)
		if !ok {
			return
		}
		slot.stable = raw
		slot.trig.observe(raw)
		slot.value = boolInt(raw)
		slot.settled = true

	case vpin.SWT:
		raw, ok := ports.ReadDigital(pin)
		if !ok {
			return
		}
		st := slot.mach.(*swtState)
		stable, _ := st.tick(raw, e.tickMs, cfg.DebounceMs)
		slot.stable = stable
		slot.trig.observe(stable)
		slot.value = boolInt(stable)
		slot.settled = true

	case vpin.PCC:
		raw, ok := ports.ReadDigital(pin)
		if !ok {
			return
		}
		st := slot.mach.(*pccState)
		st.observe(raw, cfg.BothEdges)
		slot.stable = raw
		slot.value = st.count
		slot.settled = true

	case vpin.AIN:
		mV, ok := ports.ReadAnalog(pin)
		if !ok {
			return
		}
		slot.value = mV
		slot.settled = true

	case vpin.TIN:
		mV, ok := ports.ReadAnalog(pin)
		if !ok {
			return
		}
		slot.value = thermistorDeciCelsius(mV, e.railOutMV, cfg.Beta, cfg.RefOhms)
		slot.settled = true

	case vpin.RAIN:
		mV, ok := ports.ReadAnalog(pin)
		if !ok {
			return
		}
		slot.value = ratioPermille(mV, e.railOutMV)
		slot.settled = true

	case vpin.CIN:
		mV, ok := ports.ReadAnalog(pin)
		if !ok {
			return
		}
		slot.value = currentCentiMilliamps(mV)
		slot.settled = true

	case vpin.PH:
		mV, ok := ports.ReadAnalog(pin)
		if !ok {
			return
		}
		slot.value = phCentiUnits(mV)
		slot.settled = true

	case vpin.DOUT:
		if slot.pending != nil {
			level := *slot.pending != 0
			slot.pending = nil
			if ports.WriteDigital(pin, level) {
				slot.stable = level
				slot.trig.observe(level)
				slot.value = boolInt(level)
			}
		}
		slot.settled = true

	case vpin.AOUT:
		if slot.pending != nil {
			duty := *slot.pending
			slot.pending = nil
			if ports.WritePWM(pin, duty, cfg.PWMFreq) {
				slot.value = duty
			}
		}
		slot.settled = true

	case vpin.POUT:
		if slot.pending != nil {
			duty := *slot.pending
			slot.pending = nil
			if ports.WritePWM(pin, duty, e.poutFreq) {
				slot.value = duty
			}
		} else if e.freqDirty && slot.value > 0 {
			ports.WritePWM(pin, slot.value, e.poutFreq)
		}
		slot.settled = true

	case vpin.RELAY:
		st := slot.mach.(*relayState)
		if slot.pending != nil {
			st.command(*slot.pending)
			slot.pending = nil
		}
		power := st.tick(e.tickMs, cfg.HoldValue, cfg.DerateMs)
		if power != slot.value || e.freqDirty {
			ports.WritePWM(pin, power, e.poutFreq)
		}
		slot.value = power
		slot.settled = true
	}
}

func (e *Engine) advanceExpansion(slot *pinSlot) {
	bus := e.hw.Bus
	if bus == nil {
		return
	}
	modType := slot.id.ModuleType()
	index := slot.id.ModuleIndex()
	channel := slot.id.Pin()
	cfg := &slot.cfg

	switch cfg.Mode {
	case vpin.DIN, vpin.SWT, vpin.PCC:
		sample, ok := bus.ReadChannel(modType, index, channel)
		if !ok {
			return
		}
		raw := sample.Level
		switch cfg.Mode {
		case vpin.SWT:
			st := slot.mach.(*swtState)
			stable, _ := st.tick(raw, e.tickMs, cfg.DebounceMs)
			slot.stable = stable
			slot.trig.observe(stable)
			slot.value = boolInt(stable)
		case vpin.PCC:
			st := slot.mach.(*pccState)
			st.observe(raw, cfg.BothEdges)
			slot.stable = raw
			slot.value = st.count
		default:
			slot.stable = raw
			slot.trig.observe(raw)
			slot.value = boolInt(raw)
		}
		slot.settled = true

	case vpin.AIN, vpin.TIN, vpin.RAIN:
		sample, ok := bus.ReadChannel(modType, index, channel)
		if !ok {
			return
		}
		switch cfg.Mode {
		case vpin.TIN:
			slot.value = thermistorDeciCelsius(sample.Raw, e.railOutMV, cfg.Beta, cfg.RefOhms)
		case vpin.RAIN:
			slot.value = ratioPermille(sample.Raw, e.railOutMV)
		default:
			slot.value = sample.Raw
		}
		slot.settled = true

	case vpin.TC, vpin.PT3W, vpin.PT24W:
		sample, ok := bus.ReadChannel(modType, index, channel)
		if !ok {
			return
		}
		slot.value = foldProbeSample(sample)
		slot.settled = true

	case vpin.DOUT:
		if slot.pending != nil {
			level := *slot.pending != 0
			slot.pending = nil
			drive := 0
			if level {
				drive = MaxDuty
			}
			if bus.WriteChannel(modType, index, channel, drive) {
				slot.stable = level
				slot.trig.observe(level)
				slot.value = boolInt(level)
			}
		}
		slot.settled = true

	case vpin.AOUT, vpin.POUT:
		if slot.pending != nil {
			duty := *slot.pending
			slot.pending = nil
			if bus.WriteChannel(modType, index, channel, duty) {
				slot.value = duty
			}
		}
		slot.settled = true

	case vpin.RELAY:
		st := slot.mach.(*relayState)
		if slot.pending != nil {
			st.command(*slot.pending)
			slot.pending = nil
		}
		power := st.tick(e.tickMs, cfg.HoldValue, cfg.DerateMs)
		if power != slot.value {
			bus.WriteChannel(modType, index, channel, power)
		}
		slot.value = power
		slot.settled = true
	}
}

// flushConfigs persists queued config changes. Runs on the supervisor
// goroutine after the lock is released; failures are logged and the
// in-memory config stays authoritative.
func (e *Engine) flushConfigs(flush map[vpin.PinID]*PinConfig) {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	for id, cfg := range flush {
		var err error
		if cfg == nil {
			err = e.repo.Delete(ctx, id)
		} else {
			err = e.repo.Save(ctx, id, *cfg)
		}
		if err != nil {
			e.logger.Error("failed to persist pin config", "pin", id.String(), "error", err)
		}
	}
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
