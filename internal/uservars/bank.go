package uservars

import (
	"context"
	"errors"
	"sync"

	"github.com/orehall/ironpin-core/internal/vpin"
)

// Bank sizes. Indexes are 1-based, matching the wire surface.
const (
	BoolCount = 32
	IntCount  = 32
)

// ErrIndexOutOfRange is returned for variable indexes outside the bank.
var ErrIndexOutOfRange = errors.New("uservars: variable index out of range")

// Publisher receives variable changes as they are written. Called
// synchronously from Write; implementations must not block.
type Publisher interface {
	PublishBoolVar(index int, value bool)
	PublishIntVar(index, value int)
}

// Repository persists user variables across restarts.
type Repository interface {
	SaveBool(ctx context.Context, index int, value bool) error
	SaveInt(ctx context.Context, index, value int) error
	LoadAll(ctx context.Context) (bools map[int]bool, ints map[int]int, err error)
}

// Logger defines the logging interface used by the Bank.
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

// boolVar is one boolean variable with edge memory shared by every
// trigger mode: whichever edge reader polls first records the level, so
// a missed polarity is never retroactively reported.
type boolVar struct {
	value    bool
	lastRead bool
}

// intVar is one integer variable with a one-shot changed flag.
type intVar struct {
	value   int
	changed bool
}

// Bank holds the user variable banks.
//
// Thread Safety: all methods are safe for concurrent use.
type Bank struct {
	mu     sync.Mutex
	bools  [BoolCount]boolVar
	ints   [IntCount]intVar
	pub    Publisher
	repo   Repository
	logger Logger
}

// NewBank creates an empty variable bank. Publisher and repository are
// optional; pass nil to disable publishing or persistence.
func NewBank(pub Publisher, repo Repository) *Bank {
	return &Bank{pub: pub, repo: repo, logger: noopLogger{}}
}

// SetLogger sets the logger for the bank.
func (b *Bank) SetLogger(logger Logger) {
	b.logger = logger
}

// WriteBool sets a boolean variable and publishes the new value on
// change; rewriting the same value is silent.
func (b *Bank) WriteBool(index int, value bool) error {
	if index < 1 || index > BoolCount {
		return ErrIndexOutOfRange
	}

	b.mu.Lock()
	v := &b.bools[index-1]
	changed := v.value != value
	v.value = value
	b.mu.Unlock()

	if !changed {
		return nil
	}
	if b.pub != nil {
		b.pub.PublishBoolVar(index, value)
	}
	b.persistBool(index, value)
	return nil
}

// ReadBool reads a boolean variable. State reads return the value
// without touching the edge memory; edge reads compare the value against
// the shared memory, report a qualifying transition, and record the
// value for every edge mode at once. A rising read across a falling
// transition records the low value, so a later falling read reports
// nothing.
func (b *Bank) ReadBool(index int, trig vpin.TrigMode) (bool, error) {
	if index < 1 || index > BoolCount {
		return false, ErrIndexOutOfRange
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	v := &b.bools[index-1]
	switch trig {
	case vpin.OnRising, vpin.OnFalling, vpin.OnToggle:
		prev := v.lastRead
		v.lastRead = v.value
		switch trig {
		case vpin.OnRising:
			return !prev && v.value, nil
		case vpin.OnFalling:
			return prev && !v.value, nil
		default:
			return prev != v.value, nil
		}
	default:
		return v.value, nil
	}
}

// WriteInt sets an integer variable, latching the changed flag and
// publishing when the value differs.
func (b *Bank) WriteInt(index, value int) error {
	if index < 1 || index > IntCount {
		return ErrIndexOutOfRange
	}

	b.mu.Lock()
	v := &b.ints[index-1]
	changed := v.value != value
	if changed {
		v.value = value
		v.changed = true
	}
	b.mu.Unlock()

	if !changed {
		return nil
	}
	if b.pub != nil {
		b.pub.PublishIntVar(index, value)
	}
	b.persistInt(index, value)
	return nil
}

// ReadInt returns an integer variable's value.
func (b *Bank) ReadInt(index int) (int, error) {
	if index < 1 || index > IntCount {
		return 0, ErrIndexOutOfRange
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ints[index-1].value, nil
}

// IntChanged reports and clears the one-shot changed flag of an integer
// variable.
func (b *Bank) IntChanged(index int) (bool, error) {
	if index < 1 || index > IntCount {
		return false, ErrIndexOutOfRange
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	v := &b.ints[index-1]
	hit := v.changed
	v.changed = false
	return hit, nil
}

// Restore reloads persisted variables. Restored values neither publish
// nor report edges; they are the baseline the edges are measured
// against.
func (b *Bank) Restore(ctx context.Context) error {
	if b.repo == nil {
		return nil
	}
	bools, ints, err := b.repo.LoadAll(ctx)
	if err != nil {
		return err
	}

	b.mu.Lock()
	for index, value := range bools {
		if index >= 1 && index <= BoolCount {
			b.bools[index-1].value = value
			b.bools[index-1].lastRead = value
		}
	}
	for index, value := range ints {
		if index >= 1 && index <= IntCount {
			b.ints[index-1].value = value
		}
	}
	b.mu.Unlock()

	b.logger.Info("user variables restored", "bools", len(bools), "ints", len(ints))
	return nil
}

func (b *Bank) persistBool(index int, value bool) {
	if b.repo == nil {
		return
	}
	if err := b.repo.SaveBool(context.Background(), index, value); err != nil {
		b.logger.Error("failed to persist bool variable", "index", index, "error", err)
	}
}

func (b *Bank) persistInt(index, value int) {
	if b.repo == nil {
		return
	}
	if err := b.repo.SaveInt(context.Background(), index, value); err != nil {
		b.logger.Error("failed to persist int variable", "index", index, "error", err)
	}
}
