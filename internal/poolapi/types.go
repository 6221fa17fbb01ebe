package poolapi

// TemperatureScale selects the unit the status endpoint reports in.
type TemperatureScale int

// Temperature scales accepted by poolstatus.
const (
	Celsius    TemperatureScale = 0
	Fahrenheit TemperatureScale = 1
)

// ChannelFunction is the configured purpose of an output channel.
type ChannelFunction int

// Channel functions as reported by poolconfig.
const (
	FunctionFilterPump ChannelFunction = iota + 1
	FunctionCleaningPump
	FunctionHeaterPump
	FunctionBoosterPump
	FunctionWaterfallPump
	FunctionFountainPump
	FunctionSpaPump
	FunctionSolarPump
	FunctionBlower
	FunctionSwimjet
	FunctionJets
	FunctionSpaJets
	FunctionOverflow
	FunctionSpillway
	FunctionAudio
	FunctionHotSeat
	FunctionHeaterPower
	FunctionCustomName
)

var channelFunctionNames = map[ChannelFunction]string{
	FunctionFilterPump:    "Filter Pump",
	FunctionCleaningPump:  "Cleaning Pump",
	FunctionHeaterPump:    "Heater Pump",
	FunctionBoosterPump:   "Booster Pump",
	FunctionWaterfallPump: "Waterfall Pump",
	FunctionFountainPump:  "Fountain Pump",
	FunctionSpaPump:       "Spa Pump",
	FunctionSolarPump:     "Solar Pump",
	FunctionBlower:        "Blower",
	FunctionSwimjet:       "Swimjet",
	FunctionJets:          "Jets",
	FunctionSpaJets:       "Spa Jets",
	FunctionOverflow:      "Overflow",
	FunctionSpillway:      "Spillway",
	FunctionAudio:         "Audio",
	FunctionHotSeat:       "Hot Seat",
	FunctionHeaterPower:   "Heater Power",
	FunctionCustomName:    "Custom",
}

// String returns the human-readable function name.
func (f ChannelFunction) String() string {
	if name, ok := channelFunctionNames[f]; ok {
		return name
	}
	return "Channel"
}

// ValveFunction is the configured purpose of a valve.
type ValveFunction int

// Valve functions as reported by poolconfig.
const (
	ValveFunctionPoolSpa ValveFunction = 1
	ValveFunctionSolar   ValveFunction = 2
)

// PoolConfig is the equipment inventory returned by poolconfig.
// It is fetched once per process lifetime.
type PoolConfig struct {
	PoolSpaSelectionEnabled  bool `json:"pool_spa_selection_enabled"`
	HeatCoolSelectionEnabled bool `json:"heat_cool_selection_enabled"`
	HasHeaters               bool `json:"has_heaters"`
	HasSolarSystems          bool `json:"has_solar_systems"`
	HasChannels              bool `json:"has_channels"`
	HasValves                bool `json:"has_valves"`
	HasLightingZones         bool `json:"has_lighting_zones"`
	HasFavourites            bool `json:"has_favourites"`

	Heaters       []HeaterConfig       `json:"heaters"`
	SolarSystems  []SolarSystemConfig  `json:"solar_systems"`
	Channels      []ChannelConfig      `json:"channels"`
	Valves        []ValveConfig        `json:"valves"`
	LightingZones []LightingZoneConfig `json:"lighting_zones"`
	Favourites    []FavouriteConfig    `json:"favourites"`
}

// HeaterConfig describes one configured heater.
type HeaterConfig struct {
	HeaterNumber int `json:"heater_number"`
}

// SolarSystemConfig describes one configured solar system.
type SolarSystemConfig struct {
	SolarNumber int `json:"solar_number"`
}

// ChannelConfig describes one configured output channel (pump, blower, jets...).
type ChannelConfig struct {
	ChannelNumber int             `json:"channel_number"`
	Function      ChannelFunction `json:"function"`
	Name          string          `json:"name"`
}

// ValveConfig describes one configured valve.
type ValveConfig struct {
	ValveNumber int           `json:"valve_number"`
	Function    ValveFunction `json:"function"`
	Name        string        `json:"name"`
}

// LightingZoneConfig describes one configured lighting zone.
type LightingZoneConfig struct {
	LightingZoneNumber int             `json:"lighting_zone_number"`
	Name               string          `json:"name"`
	ColorEnabled       bool            `json:"color_enabled"`
	ColorsAvailable    []LightingColor `json:"colors_available"`
}

// LightingColor is one selectable colour of a lighting zone.
type LightingColor struct {
	ColorNumber int    `json:"color_number"`
	ColorName   string `json:"color_name"`
}

// FavouriteConfig describes one stored favourite (scene).
type FavouriteConfig struct {
	FavouriteNumber int    `json:"favourite_number"`
	Name            string `json:"name"`
}

// PoolStatus is the live state of the whole site at one point in time.
type PoolStatus struct {
	PoolSpaSelection  int     `json:"pool_spa_selection"`
	HeatCoolSelection int     `json:"heat_cool_selection"`
	Temperature       float64 `json:"temperature"`
	ActiveFavourite   int     `json:"active_favourite"`

	Heaters       []HeaterStatus       `json:"heaters"`
	SolarSystems  []SolarSystemStatus  `json:"solar_systems"`
	Channels      []ChannelStatus      `json:"channels"`
	Valves        []ValveStatus        `json:"valves"`
	LightingZones []LightingZoneStatus `json:"lighting_zones"`
}

// HeaterStatus is the live state of one heater.
type HeaterStatus struct {
	HeaterNumber      int     `json:"heater_number"`
	Mode              int     `json:"mode"`
	SetTemperature    float64 `json:"set_temperature"`
	SpaSetTemperature float64 `json:"spa_set_temperature"`
}

// SolarSystemStatus is the live state of one solar system.
type SolarSystemStatus struct {
	SolarNumber    int     `json:"solar_number"`
	Mode           int     `json:"mode"`
	SetTemperature float64 `json:"set_temperature"`
}

// ChannelStatus is the live state of one channel.
type ChannelStatus struct {
	ChannelNumber int `json:"channel_number"`
	Mode          int `json:"mode"`
}

// ValveStatus is the live state of one valve.
type ValveStatus struct {
	ValveNumber int `json:"valve_number"`
	Mode        int `json:"mode"`
}

// LightingZoneStatus is the live state of one lighting zone.
type LightingZoneStatus struct {
	LightingZoneNumber int `json:"lighting_zone_number"`
	Mode               int `json:"mode"`
	Color              int `json:"color"`
}
