package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nerrad567/poolbridge/internal/device"
	"github.com/nerrad567/poolbridge/internal/poolapi"
)

// BootstrapOptions configures Bootstrap.
type BootstrapOptions struct {
	Source   StatusSource
	Registry *device.Registry

	// Store is optional. Without it every device gets its derived
	// accessory ID and nothing is persisted.
	Store AccessoryStore

	Sink Sink

	// Scale is the unit the status source reports temperatures in. It is
	// stamped on every discovered device.
	Scale poolapi.TemperatureScale

	// Poller is started once devices are registered. Optional.
	Poller *Poller

	Logger Logger
	Now    func() time.Time
}

// BootstrapReport summarizes one startup run.
type BootstrapReport struct {
	Discovered int
	Registered int
	Restored   int
	Created    int
	Duplicates int

	// StatusLoaded is false when the initial status fetch failed and
	// devices started from defaults.
	StatusLoaded bool

	// Stale lists stored accessories the controller no longer reports.
	Stale []device.Accessory
}

// Bootstrap discovers devices from the controller config, reconciles them
// with accessories stored by earlier runs, registers them, pushes their
// initial state and starts polling.
//
// Only a config fetch failure (or an unreadable store) aborts startup.
// A status failure leaves the devices at their defaults until the first
// successful poll.
func Bootstrap(ctx context.Context, opts BootstrapOptions) (*BootstrapReport, error) {
	if opts.Source == nil {
		return nil, fmt.Errorf("%w: status source", ErrMissingDependency)
	}
	if opts.Registry == nil {
		return nil, fmt.Errorf("%w: registry", ErrMissingDependency)
	}
	logger := opts.Logger
	if logger == nil {
		logger = noopLogger{}
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	cfg, err := opts.Source.FetchConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching pool config: %w", err)
	}

	discovered := device.Discover(cfg)
	report := &BootstrapReport{Discovered: len(discovered)}
	logger.Info("pool config loaded", "devices", len(discovered))

	status, err := opts.Source.FetchStatus(ctx)
	if err != nil {
		logger.Warn("initial status unavailable, starting from defaults", "error", err)
		status = nil
	} else {
		report.StatusLoaded = true
	}

	stored, all, err := loadStored(ctx, opts.Store)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(discovered))
	for _, dev := range discovered {
		dev.Scale = opts.Scale

		acc, restored := stored[displayKey{kind: dev.Kind, name: dev.Name}]
		if restored {
			dev.AccessoryID = acc.AccessoryID
		}

		vm := device.Merge(dev, status)
		if status != nil {
			vm.UpdatedAt = now()
		}

		// Duplicates are rejected before anything is written, so the store
		// holds at most one row per display identity.
		if !opts.Registry.Register(dev, vm) {
			report.Duplicates++
			logger.Warn("duplicate device skipped", "device_id", dev.ID, "name", dev.Name)
			continue
		}
		report.Registered++
		seen[dev.AccessoryID] = true

		if restored {
			if opts.Store != nil {
				if err := opts.Store.RestoreExisting(ctx, dev); err != nil {
					logger.Error("restoring accessory failed", "device_id", dev.ID, "error", err)
				}
			}
			report.Restored++
			logger.Debug("restored accessory", "device_id", dev.ID, "name", dev.Name, "accessory_id", dev.AccessoryID)
			continue
		}
		if opts.Store != nil {
			registerNew(ctx, opts.Store, dev, logger)
		}
		report.Created++
		logger.Info("new accessory", "device_id", dev.ID, "name", dev.Name, "accessory_id", dev.AccessoryID)
	}

	for _, acc := range all {
		if !seen[acc.AccessoryID] {
			report.Stale = append(report.Stale, acc)
			stale := acc.Device()
			logger.Warn("stored accessory not reported by controller",
				"accessory_id", acc.AccessoryID, "device_id", stale.ID, "name", stale.Name)
		}
	}

	if opts.Sink != nil {
		for _, e := range opts.Registry.Entries() {
			if err := opts.Sink.Notify(ctx, e.Device, e.ViewModel); err != nil {
				logger.Warn("initial notify failed", "device_id", e.Device.ID, "error", err)
			}
		}
	}

	if opts.Poller != nil {
		opts.Poller.Start(ctx)
	}

	logger.Info("bootstrap complete",
		"registered", report.Registered,
		"restored", report.Restored,
		"created", report.Created,
		"stale", len(report.Stale),
		"status_loaded", report.StatusLoaded,
	)
	return report, nil
}

type displayKey struct {
	kind device.Kind
	name string
}

// loadStored returns the stored accessories indexed by display identity,
// plus every row for stale reporting. When rows share a display identity
// the first one wins the index.
func loadStored(ctx context.Context, store AccessoryStore) (map[displayKey]device.Accessory, []device.Accessory, error) {
	byKey := make(map[displayKey]device.Accessory)
	if store == nil {
		return byKey, nil, nil
	}
	accs, err := store.List(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("loading stored accessories: %w", err)
	}
	for _, acc := range accs {
		key := displayKey{kind: acc.Kind, name: acc.Name}
		if _, ok := byKey[key]; !ok {
			byKey[key] = acc
		}
	}
	return byKey, accs, nil
}

// registerNew stores a new accessory. A renamed device keeps its derived
// ID, so the insert collides with the old row; that row is refreshed
// instead, taking the new name.
func registerNew(ctx context.Context, store AccessoryStore, dev device.Device, logger Logger) {
	err := store.RegisterNew(ctx, dev)
	if errors.Is(err, device.ErrAccessoryExists) {
		err = store.RestoreExisting(ctx, dev)
	}
	if err != nil {
		logger.Error("registering accessory failed", "device_id", dev.ID, "error", err)
	}
}

// compile-time checks that the HTTP client and SQLite store satisfy the
// engine's interfaces.
var (
	_ StatusSource   = (*poolapi.Client)(nil)
	_ AccessoryStore = (*device.SQLiteRepository)(nil)
)
