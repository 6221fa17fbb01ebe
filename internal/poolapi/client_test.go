package poolapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// fakeController records requests and replies with a canned body per endpoint.
type fakeController struct {
	mu        sync.Mutex
	responses map[string]string
	status    int
	requests  map[string][]map[string]any
}

func newFakeController() *fakeController {
	return &fakeController{
		responses: make(map[string]string),
		status:    http.StatusOK,
		requests:  make(map[string][]map[string]any),
	}
}

func (f *fakeController) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	endpoint := r.URL.Path[len("/api/"):]
	body, _ := io.ReadAll(r.Body)
	var payload map[string]any
	_ = json.Unmarshal(body, &payload)
	f.requests[endpoint] = append(f.requests[endpoint], payload)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(f.status)
	_, _ = w.Write([]byte(f.responses[endpoint]))
}

func (f *fakeController) lastRequest(endpoint string) map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	reqs := f.requests[endpoint]
	if len(reqs) == 0 {
		return nil
	}
	return reqs[len(reqs)-1]
}

func newTestClient(t *testing.T, fc *fakeController, scale TemperatureScale) *Client {
	t.Helper()
	srv := httptest.NewServer(fc)
	t.Cleanup(srv.Close)

	c, err := NewClient(Options{BaseURL: srv.URL + "/api", APIKey: "ABC-123", Scale: scale})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	return c
}

func TestNewClient_RequiresAPIKey(t *testing.T) {
	if _, err := NewClient(Options{}); err == nil {
		t.Fatal("NewClient() without api key should fail")
	}
}

func TestNewClient_DefaultBaseURL(t *testing.T) {
	c, err := NewClient(Options{APIKey: "k"})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	if c.baseURL != DefaultBaseURL {
		t.Errorf("baseURL = %q, want %q", c.baseURL, DefaultBaseURL)
	}
	if c.httpClient.Timeout != DefaultTimeout {
		t.Errorf("Timeout = %v, want %v", c.httpClient.Timeout, DefaultTimeout)
	}
}

func TestFetchConfig(t *testing.T) {
	fc := newFakeController()
	fc.responses[endpointConfig] = `{
		"pool_spa_selection_enabled": true,
		"has_heaters": true,
		"has_channels": true,
		"heaters": [{"heater_number": 1}],
		"channels": [{"channel_number": 2, "function": 1, "name": ""}],
		"lighting_zones": [{"lighting_zone_number": 1, "name": "Pool", "color_enabled": true,
			"colors_available": [{"color_number": 3, "color_name": "Blue"}]}]
	}`
	c := newTestClient(t, fc, Celsius)

	cfg, err := c.FetchConfig(context.Background())
	if err != nil {
		t.Fatalf("FetchConfig() error = %v", err)
	}

	if !cfg.PoolSpaSelectionEnabled || !cfg.HasHeaters || !cfg.HasChannels {
		t.Errorf("flags not decoded: %+v", cfg)
	}
	if len(cfg.Channels) != 1 || cfg.Channels[0].Function != FunctionFilterPump {
		t.Errorf("Channels = %+v", cfg.Channels)
	}
	if got := cfg.LightingZones[0].ColorsAvailable[0].ColorName; got != "Blue" {
		t.Errorf("color name = %q, want Blue", got)
	}

	req := fc.lastRequest(endpointConfig)
	if req["pool_api_code"] != "ABC-123" {
		t.Errorf("pool_api_code = %v, want ABC-123", req["pool_api_code"])
	}
}

func TestFetchConfig_RemoteFailure(t *testing.T) {
	fc := newFakeController()
	fc.responses[endpointConfig] = `{"failure_code": 6, "failure_description": "Invalid API code"}`
	c := newTestClient(t, fc, Celsius)

	_, err := c.FetchConfig(context.Background())
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("FetchConfig() error = %v, want ErrUnavailable", err)
	}

	var remote *RemoteError
	if !errors.As(err, &remote) || remote.FailureCode != 6 {
		t.Errorf("expected RemoteError with code 6, got %v", err)
	}
}

func TestFetchStatus(t *testing.T) {
	fc := newFakeController()
	fc.responses[endpointStatus] = `{
		"pool_spa_selection": 1,
		"temperature": 24.5,
		"active_favourite": 2,
		"heaters": [{"heater_number": 1, "mode": 1, "set_temperature": 28, "spa_set_temperature": 36}],
		"valves": [{"valve_number": 1, "mode": 2}]
	}`
	c := newTestClient(t, fc, Fahrenheit)

	status, err := c.FetchStatus(context.Background())
	if err != nil {
		t.Fatalf("FetchStatus() error = %v", err)
	}
	if status.Temperature != 24.5 {
		t.Errorf("Temperature = %v, want 24.5", status.Temperature)
	}
	if status.Heaters[0].SpaSetTemperature != 36 {
		t.Errorf("SpaSetTemperature = %v, want 36", status.Heaters[0].SpaSetTemperature)
	}
	if status.Valves[0].Mode != 2 {
		t.Errorf("valve mode = %d, want 2", status.Valves[0].Mode)
	}

	req := fc.lastRequest(endpointStatus)
	if req["temperature_scale"] != float64(1) {
		t.Errorf("temperature_scale = %v, want 1", req["temperature_scale"])
	}
}

func TestFetchStatus_Unavailable(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		status int
	}{
		{name: "failure code", body: `{"failure_code": 3}`, status: http.StatusOK},
		{name: "failure code as string", body: `{"failure_code": "7"}`, status: http.StatusOK},
		{name: "http error", body: `oops`, status: http.StatusInternalServerError},
		{name: "malformed json", body: `{"temperature": `, status: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fc := newFakeController()
			fc.responses[endpointStatus] = tt.body
			fc.status = tt.status
			c := newTestClient(t, fc, Celsius)

			status, err := c.FetchStatus(context.Background())
			if !errors.Is(err, ErrUnavailable) {
				t.Fatalf("FetchStatus() error = %v, want ErrUnavailable", err)
			}
			if status != nil {
				t.Errorf("expected nil status on failure, got %+v", status)
			}
		})
	}
}

func TestFetchStatus_ZeroFailureCodeIsSuccess(t *testing.T) {
	fc := newFakeController()
	fc.responses[endpointStatus] = `{"failure_code": 0, "temperature": 20}`
	c := newTestClient(t, fc, Celsius)

	if _, err := c.FetchStatus(context.Background()); err != nil {
		t.Fatalf("FetchStatus() error = %v", err)
	}
}

func TestSendCommand(t *testing.T) {
	fc := newFakeController()
	fc.responses[endpointAction] = `{"execution_status": 1}`
	c := newTestClient(t, fc, Celsius)

	res, err := c.SendCommand(context.Background(), Command{
		Action:           SetHeaterSetTemperature,
		DeviceNumber:     1,
		Value:            "30",
		WaitForExecution: true,
	})
	if err != nil {
		t.Fatalf("SendCommand() error = %v", err)
	}
	if !res.Succeeded() {
		t.Errorf("expected success, got %+v", res)
	}

	req := fc.lastRequest(endpointAction)
	if req["action_code"] != float64(5) {
		t.Errorf("action_code = %v, want 5", req["action_code"])
	}
	if req["value"] != "30" {
		t.Errorf("value = %v, want \"30\"", req["value"])
	}
	if req["wait_for_execution"] != true {
		t.Errorf("wait_for_execution = %v, want true", req["wait_for_execution"])
	}
	if req["device_number"] != float64(1) {
		t.Errorf("device_number = %v, want 1", req["device_number"])
	}
}

func TestSendCommand_Failures(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		status     int
		wait       bool
		wantResult bool
	}{
		{name: "execution status not 1", body: `{"execution_status": 2}`, status: http.StatusOK, wait: true, wantResult: true},
		{name: "failure code", body: `{"failure_code": 9}`, status: http.StatusOK, wait: true, wantResult: true},
		{name: "failure code without waiting", body: `{"failure_code": 9}`, status: http.StatusOK, wantResult: true},
		{name: "http error", body: ``, status: http.StatusBadGateway, wantResult: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fc := newFakeController()
			fc.responses[endpointAction] = tt.body
			fc.status = tt.status
			c := newTestClient(t, fc, Celsius)

			res, err := c.SendCommand(context.Background(), Command{Action: CycleChannelMode, DeviceNumber: 3, WaitForExecution: tt.wait})
			if !errors.Is(err, ErrCommandFailed) {
				t.Fatalf("SendCommand() error = %v, want ErrCommandFailed", err)
			}
			if (res != nil) != tt.wantResult {
				t.Errorf("result present = %v, want %v", res != nil, tt.wantResult)
			}
		})
	}
}

func TestSendCommand_QueuedWithoutWaiting(t *testing.T) {
	for _, body := range []string{`{}`, `{"execution_status": 0}`, `{"execution_status": 2}`} {
		fc := newFakeController()
		fc.responses[endpointAction] = body
		c := newTestClient(t, fc, Celsius)

		res, err := c.SendCommand(context.Background(), Command{Action: SetHeaterMode, DeviceNumber: 1, Value: "1"})
		if err != nil {
			t.Fatalf("SendCommand() with %s error = %v", body, err)
		}
		if !res.Accepted(false) {
			t.Errorf("Accepted(false) = false for %s", body)
		}
		if req := fc.lastRequest(endpointAction); req["wait_for_execution"] != false {
			t.Errorf("wait_for_execution = %v, want false", req["wait_for_execution"])
		}
	}
}

func TestExecutionResult_Accepted(t *testing.T) {
	tests := []struct {
		res    ExecutionResult
		waited bool
		want   bool
	}{
		{ExecutionResult{ExecutionStatus: 1}, true, true},
		{ExecutionResult{ExecutionStatus: 0}, true, false},
		{ExecutionResult{ExecutionStatus: 0}, false, true},
		{ExecutionResult{ExecutionStatus: 1, FailureCode: 4}, false, false},
		{ExecutionResult{ExecutionStatus: 1, FailureCode: 4}, true, false},
	}
	for _, tt := range tests {
		if got := tt.res.Accepted(tt.waited); got != tt.want {
			t.Errorf("%+v.Accepted(%v) = %v, want %v", tt.res, tt.waited, got, tt.want)
		}
	}
}

func TestSendCommand_InvalidAction(t *testing.T) {
	fc := newFakeController()
	c := newTestClient(t, fc, Celsius)

	_, err := c.SendCommand(context.Background(), Command{Action: Action(99)})
	if !errors.Is(err, ErrInvalidAction) {
		t.Fatalf("SendCommand() error = %v, want ErrInvalidAction", err)
	}
	if fc.lastRequest(endpointAction) != nil {
		t.Error("invalid action should not reach the controller")
	}
}

func TestActionString(t *testing.T) {
	if got := SetSolarMode.String(); got != "set_solar_mode" {
		t.Errorf("String() = %q", got)
	}
	if got := Action(42).String(); got != "action_42" {
		t.Errorf("String() = %q", got)
	}
}

func TestChannelFunctionString(t *testing.T) {
	tests := []struct {
		fn   ChannelFunction
		want string
	}{
		{FunctionFilterPump, "Filter Pump"},
		{FunctionSpaJets, "Spa Jets"},
		{FunctionHeaterPower, "Heater Power"},
		{ChannelFunction(0), "Channel"},
	}
	for _, tt := range tests {
		if got := tt.fn.String(); got != tt.want {
			t.Errorf("ChannelFunction(%d).String() = %q, want %q", tt.fn, got, tt.want)
		}
	}
}
