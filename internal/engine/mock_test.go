package engine

import (
	"context"
	"errors"
	"sync"

	"github.com/nerrad567/poolbridge/internal/device"
	"github.com/nerrad567/poolbridge/internal/poolapi"
)

// mockSource is a StatusSource with injectable results.
type mockSource struct {
	mu sync.Mutex

	config    *poolapi.PoolConfig
	configErr error
	status    *poolapi.PoolStatus
	statusErr error
	sendErr   error

	fetches  int
	commands []poolapi.Command

	// inFlight tracks concurrent FetchStatus calls.
	inFlight    int
	maxInFlight int
	block       chan struct{}
}

func (m *mockSource) FetchConfig(context.Context) (*poolapi.PoolConfig, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.config, m.configErr
}

func (m *mockSource) FetchStatus(ctx context.Context) (*poolapi.PoolStatus, error) {
	m.mu.Lock()
	m.fetches++
	m.inFlight++
	if m.inFlight > m.maxInFlight {
		m.maxInFlight = m.inFlight
	}
	block := m.block
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.inFlight--
		m.mu.Unlock()
	}()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status, m.statusErr
}

func (m *mockSource) SendCommand(_ context.Context, cmd poolapi.Command) (*poolapi.ExecutionResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.commands = append(m.commands, cmd)
	if m.sendErr != nil {
		return &poolapi.ExecutionResult{FailureCode: 7}, m.sendErr
	}
	return &poolapi.ExecutionResult{ExecutionStatus: 1}, nil
}

func (m *mockSource) setStatus(s *poolapi.PoolStatus, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.status = s
	m.statusErr = err
}

func (m *mockSource) fetchCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fetches
}

func (m *mockSource) sent() []poolapi.Command {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]poolapi.Command, len(m.commands))
	copy(out, m.commands)
	return out
}

// mockSink records notifications and can fail or panic per device.
type mockSink struct {
	mu      sync.Mutex
	calls   []device.ViewModel
	failFor map[string]error
	panicOn string
}

func (s *mockSink) Notify(_ context.Context, dev device.Device, vm device.ViewModel) error {
	if dev.ID == s.panicOn {
		panic("sink exploded")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, vm)
	if err := s.failFor[dev.ID]; err != nil {
		return err
	}
	return nil
}

func (s *mockSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

// mockStore is an in-memory AccessoryStore.
type mockStore struct {
	mu       sync.Mutex
	byID     map[string]device.Accessory
	listErr  error
	created  []string
	restored []string
}

func newMockStore(accs ...device.Accessory) *mockStore {
	s := &mockStore{byID: make(map[string]device.Accessory)}
	for _, a := range accs {
		s.byID[a.AccessoryID] = a
	}
	return s
}

func (s *mockStore) List(context.Context) ([]device.Accessory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	out := make([]device.Accessory, 0, len(s.byID))
	for _, a := range s.byID {
		out = append(out, a)
	}
	return out, nil
}

func (s *mockStore) RegisterNew(_ context.Context, dev device.Device) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[dev.AccessoryID]; ok {
		return device.ErrAccessoryExists
	}
	s.byID[dev.AccessoryID] = device.Accessory{AccessoryID: dev.AccessoryID, Kind: dev.Kind, Unit: dev.Unit, Name: dev.Name}
	s.created = append(s.created, dev.ID)
	return nil
}

func (s *mockStore) RestoreExisting(_ context.Context, dev device.Device) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.byID[dev.AccessoryID]
	if !ok {
		return device.ErrAccessoryNotFound
	}
	acc.Unit = dev.Unit
	acc.Name = dev.Name
	s.byID[dev.AccessoryID] = acc
	s.restored = append(s.restored, dev.ID)
	return nil
}

// mockMetrics records every metric.
type mockMetrics struct {
	mu       sync.Mutex
	polls    []PollMetric
	commands []CommandMetric
}

func (m *mockMetrics) RecordPoll(p PollMetric) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.polls = append(m.polls, p)
}

func (m *mockMetrics) RecordCommand(c CommandMetric) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.commands = append(m.commands, c)
}

var errRemote = errors.New("remote down")

// testConfig describes one heater with pool/spa, one solar system, two
// channels, a lighting zone with colours and one favourite.
func testConfig() *poolapi.PoolConfig {
	return &poolapi.PoolConfig{
		PoolSpaSelectionEnabled:  true,
		HeatCoolSelectionEnabled: true,
		HasHeaters:               true,
		HasSolarSystems:          true,
		HasChannels:              true,
		HasValves:                true,
		HasLightingZones:         true,
		HasFavourites:            true,
		Heaters:                  []poolapi.HeaterConfig{{HeaterNumber: 1}},
		SolarSystems:             []poolapi.SolarSystemConfig{{SolarNumber: 1}},
		Channels: []poolapi.ChannelConfig{
			{ChannelNumber: 1, Function: poolapi.FunctionFilterPump, Name: "Filter"},
			{ChannelNumber: 2, Function: poolapi.FunctionBlower},
		},
		Valves: []poolapi.ValveConfig{{ValveNumber: 1, Function: poolapi.ValveFunctionPoolSpa, Name: "Spa"}},
		LightingZones: []poolapi.LightingZoneConfig{{
			LightingZoneNumber: 1,
			Name:               "Pool",
			ColorEnabled:       true,
			ColorsAvailable: []poolapi.LightingColor{
				{ColorNumber: 1, ColorName: "Red"},
				{ColorNumber: 2, ColorName: "Blue"},
			},
		}},
		Favourites: []poolapi.FavouriteConfig{{FavouriteNumber: 2, Name: "Party"}},
	}
}

func testStatus() *poolapi.PoolStatus {
	return &poolapi.PoolStatus{
		PoolSpaSelection:  device.PoolSpaPool,
		HeatCoolSelection: device.HeatCoolHeat,
		Temperature:       24,
		ActiveFavourite:   0,
		Heaters:           []poolapi.HeaterStatus{{HeaterNumber: 1, Mode: device.HeaterModeOff, SetTemperature: 28, SpaSetTemperature: 36}},
		SolarSystems:      []poolapi.SolarSystemStatus{{SolarNumber: 1, Mode: device.SolarModeAuto, SetTemperature: 30}},
		Channels: []poolapi.ChannelStatus{
			{ChannelNumber: 1, Mode: device.ChannelModeAuto},
			{ChannelNumber: 2, Mode: device.ChannelModeOff},
		},
		Valves:        []poolapi.ValveStatus{{ValveNumber: 1, Mode: 1}},
		LightingZones: []poolapi.LightingZoneStatus{{LightingZoneNumber: 1, Mode: device.LightingModeOff, Color: 1}},
	}
}

// registryFor registers every device in cfg merged with status.
func registryFor(cfg *poolapi.PoolConfig, status *poolapi.PoolStatus) *device.Registry {
	reg := device.NewRegistry()
	for _, dev := range device.Discover(cfg) {
		reg.Register(dev, device.Merge(dev, status))
	}
	return reg
}
