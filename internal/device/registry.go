package device

import (
	"fmt"
	"sync"
)

// Logger defines the logging interface used by the Registry.
// This allows different logging implementations to be used.
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

// Entry pairs a device with its current view-model.
type Entry struct {
	Device    Device
	ViewModel ViewModel
}

type displayKey struct {
	kind Kind
	name string
}

// Registry holds the known devices and exactly one view-model per device.
//
// Devices are kept in registration order so poll fan-out iterates them
// stably. View-models are replaced whole under the write lock, so readers
// never observe a partially updated record.
//
// All public methods are thread-safe.
type Registry struct {
	mu        sync.RWMutex
	order     []string
	devices   map[string]Device
	vms       map[string]ViewModel
	byDisplay map[displayKey]string
	logger    Logger
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		devices:   make(map[string]Device),
		vms:       make(map[string]ViewModel),
		byDisplay: make(map[displayKey]string),
		logger:    noopLogger{},
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logger = logger
}

// Register adds a device with its initial view-model.
//
// It returns false, leaving the registry unchanged, when a device with the
// same (kind, name) or the same ID is already registered. A false result is
// not an error.
func (r *Registry) Register(dev Device, vm ViewModel) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := displayKey{kind: dev.Kind, name: dev.Name}
	if existing, ok := r.byDisplay[key]; ok {
		r.logger.Debug("duplicate device ignored", "device_id", dev.ID, "existing_id", existing, "name", dev.Name)
		return false
	}
	if _, ok := r.devices[dev.ID]; ok {
		r.logger.Debug("duplicate device id ignored", "device_id", dev.ID)
		return false
	}

	r.devices[dev.ID] = dev.DeepCopy()
	r.vms[dev.ID] = vm.DeepCopy()
	r.byDisplay[key] = dev.ID
	r.order = append(r.order, dev.ID)

	r.logger.Debug("device registered", "device_id", dev.ID, "name", dev.Name)
	return true
}

// Find looks a device up by display identity.
func (r *Registry) Find(kind Kind, name string) (Device, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byDisplay[displayKey{kind: kind, name: name}]
	if !ok {
		return Device{}, false
	}
	return r.devices[id].DeepCopy(), true
}

// Get returns a device by ID.
func (r *Registry) Get(id string) (Device, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	dev, ok := r.devices[id]
	if !ok {
		return Device{}, fmt.Errorf("%w: %s", ErrDeviceNotFound, id)
	}
	return dev.DeepCopy(), nil
}

// All returns every device in registration order.
// The returned devices are deep copies; callers can safely modify them.
func (r *Registry) All() []Device {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Device, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.devices[id].DeepCopy())
	}
	return out
}

// Entries returns a consistent snapshot of every device and its view-model
// in registration order.
func (r *Registry) Entries() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Entry, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, Entry{
			Device:    r.devices[id].DeepCopy(),
			ViewModel: r.vms[id].DeepCopy(),
		})
	}
	return out
}

// Len returns the number of registered devices.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// ViewModel returns a copy of the device's current view-model.
func (r *Registry) ViewModel(id string) (ViewModel, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	vm, ok := r.vms[id]
	if !ok {
		return ViewModel{}, fmt.Errorf("%w: %s", ErrDeviceNotFound, id)
	}
	return vm.DeepCopy(), nil
}

// UpdateViewModel replaces the device's view-model atomically.
func (r *Registry) UpdateViewModel(id string, vm ViewModel) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.devices[id]; !ok {
		return fmt.Errorf("%w: %s", ErrDeviceNotFound, id)
	}
	r.vms[id] = vm.DeepCopy()
	return nil
}

// Apply runs fn against a copy of the device's view-model and stores the
// result, all under the write lock. If fn returns false nothing is stored.
// The returned view-model is the stored (or unchanged) value.
func (r *Registry) Apply(id string, fn func(vm *ViewModel) bool) (ViewModel, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.vms[id]
	if !ok {
		return ViewModel{}, false, fmt.Errorf("%w: %s", ErrDeviceNotFound, id)
	}

	next := current.DeepCopy()
	if !fn(&next) {
		return current.DeepCopy(), false, nil
	}
	r.vms[id] = next
	return next.DeepCopy(), true, nil
}
