package backend

import (
	"context"
	"fmt"
	"io"
	"time"
)

// Backend is the uniform operation trait every platform watch driver and
// the portable fallback implement — a sum type with a single dispatch at
// the API entry point rather than inheritance, per the design notes.
type Backend interface {
	// Name identifies the backend, matching the dirwatch.Options.Backend
	// values ("inotify", "fs-events", "windows", "brute-force").
	Name() string

	// Subscribe starts delivering events for s. It may block briefly to
	// walk the initial tree, and returns an error if Root is missing or
	// not a directory.
	Subscribe(ctx context.Context, s *Subscription) error

	// Unsubscribe stops delivery and releases kernel resources held for
	// s. Safe to call even if Subscribe failed.
	Unsubscribe(s *Subscription) error

	// Scan populates s.Events with a create event per existing entry
	// under Root (excluding Root itself).
	Scan(ctx context.Context, s *Subscription) error

	// WriteSnapshot materializes the current tree for s.Root to w.
	WriteSnapshot(ctx context.Context, s *Subscription, w io.Writer) error

	// GetEventsSince loads a previously written snapshot, reads the
	// current tree, and diffs them into s.Events.
	GetEventsSince(ctx context.Context, s *Subscription, snapshot io.Reader) error
}

var registry = map[string]func() Backend{}

// Register adds a backend factory under name. Platform build-tagged
// files call this from an init func.
func Register(name string, factory func() Backend) {
	registry[name] = factory
}

// New constructs the backend registered under name.
func New(name string) (Backend, error) {
	factory, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("backend: unknown backend %q", name)
	}
	return factory(), nil
}

// DefaultName is the best native backend for the running platform,
// supplied by a platform build-tagged file.
var DefaultName string

// Tuning holds operator-facing knobs sourced from internal/config. Zero
// fields mean "leave the backend's own default in place".
type Tuning struct {
	InotifyReadBufferEvents int
	InotifyPendingMoveAge   time.Duration
	BruteForcePollInterval  time.Duration
}

var tuningHooks []func(Tuning)

// registerTuning adds a hook invoked by Configure. Platform build-tagged
// files call this from init alongside Register, so re-registering a
// backend's factory with tuned parameters lives next to the factory
// itself instead of in a central switch.
func registerTuning(fn func(Tuning)) {
	tuningHooks = append(tuningHooks, fn)
}

// Configure applies operator tuning to every backend that registered a
// hook. Callers (cmd/dirwatch) invoke this once at startup, before the
// first Subscribe/Scan/WriteSnapshot/GetEventsSince call.
func Configure(t Tuning) {
	for _, fn := range tuningHooks {
		fn(t)
	}
}
