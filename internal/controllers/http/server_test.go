package httpctrl

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Agrid-Dev/housemocktat/internal/device"
	"github.com/Agrid-Dev/housemocktat/internal/testutil"
)

func TestGET_v1_ReturnsReading(t *testing.T) {
	srv, d, _ := newTestServer()

	rr := doJSONRequest(t, srv.srv.Handler, http.MethodGet, "/v1", nil)
	assertStatus(t, rr, http.StatusOK)

	got := decodeJSON[readingDTO](t, rr)
	if got.DeviceID != "default" {
		t.Fatalf("expected device_id=default, got %v", got.DeviceID)
	}
	if got.RunID != d.RunID.String() {
		t.Fatalf("expected run_id=%s, got %v", d.RunID, got.RunID)
	}
	if got.Devices != 0b01 {
		t.Fatalf("expected devices=1, got %v", got.Devices)
	}
	if got.Temperature != 20.25 || got.Time != 1705305600 || !got.Running {
		t.Fatalf("unexpected reading %+v", got)
	}
}

func TestGET_appliances(t *testing.T) {
	srv, _, _ := newTestServer()

	rr := doJSONRequest(t, srv.srv.Handler, http.MethodGet, "/v1/appliances", nil)
	assertStatus(t, rr, http.StatusOK)

	got := decodeJSON[[]applianceDTO](t, rr)
	if len(got) != 2 {
		t.Fatalf("expected 2 appliances, got %d", len(got))
	}
	if got[0].Kind != "heatpump" || !got[0].Controllable {
		t.Fatalf("unexpected appliance 0: %+v", got[0])
	}
	if got[1].Kind != "oven" || got[1].Controllable {
		t.Fatalf("unexpected appliance 1: %+v", got[1])
	}
}

func TestPOST_lock(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		body   any
		status int
	}{
		{"controllable", "/v1/appliances/0/lock", map[string]any{"value": true}, http.StatusOK},
		{"not controllable", "/v1/appliances/1/lock", map[string]any{"value": true}, http.StatusConflict},
		{"unknown index", "/v1/appliances/7/lock", map[string]any{"value": true}, http.StatusNotFound},
		{"bad index", "/v1/appliances/x/lock", map[string]any{"value": true}, http.StatusBadRequest},
		{"missing value", "/v1/appliances/0/lock", map[string]any{"locked": true}, http.StatusBadRequest},
		{"wrong type", "/v1/appliances/0/lock", map[string]any{"value": "yes"}, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _, _ := newTestServer()
			rr := doJSONRequest(t, srv.srv.Handler, http.MethodPost, tt.path, tt.body)
			assertStatus(t, rr, tt.status)
			if tt.status != http.StatusOK {
				_ = assertErrorResponse(t, rr)
			}
		})
	}
}

func TestPOST_lock_UpdatesState(t *testing.T) {
	srv, _, f := newTestServer()

	rr := postValueEndpoint(t, srv, "/v1/appliances/0/lock", true)
	assertStatus(t, rr, http.StatusOK)

	if !f.SetPowerLockCalled || f.SetPowerLockIndex != 0 || !f.SetPowerLockArg {
		t.Fatalf("expected SetPowerLock(0, true), got called=%v index=%v arg=%v",
			f.SetPowerLockCalled, f.SetPowerLockIndex, f.SetPowerLockArg)
	}
	got := decodeJSON[[]applianceDTO](t, rr)
	if !got[0].PowerLocked || got[0].PowerState {
		t.Fatalf("expected heatpump locked and off, got %+v", got[0])
	}
}

func TestPOST_target_temperature(t *testing.T) {
	srv, _, f := newTestServer()

	rr := postValueEndpoint(t, srv, "/v1/appliances/0/target_temperature", 21.5)
	assertStatus(t, rr, http.StatusOK)
	if !f.SetTargetCalled || f.SetTargetArg != 21.5 {
		t.Fatalf("expected SetTargetTemperature(0, 21.5), got called=%v arg=%v", f.SetTargetCalled, f.SetTargetArg)
	}

	f.SetTargetErr = errors.New("appliance is not a heatpump")
	rr = postValueEndpoint(t, srv, "/v1/appliances/1/target_temperature", 21.5)
	assertStatus(t, rr, http.StatusBadRequest)
	_ = assertErrorResponse(t, rr)
}

func TestPOST_time(t *testing.T) {
	srv, _, f := newTestServer()

	rr := postValueEndpoint(t, srv, "/v1/time", int64(1705309200))
	assertStatus(t, rr, http.StatusOK)
	got := decodeJSON[readingDTO](t, rr)
	if got.Clock != 1705309200 {
		t.Fatalf("expected clock to be adopted, got %d", got.Clock)
	}
	if got.Time != 1705305600 {
		t.Fatalf("time is the last reading's until the next tick, got %d", got.Time)
	}

	rr = postValueEndpoint(t, srv, "/v1/time", int64(1705305600))
	assertStatus(t, rr, http.StatusConflict)
	_ = assertErrorResponse(t, rr)
	if got := f.Time(); got != 1705309200 {
		t.Fatalf("stale time must be ignored, got %d", got)
	}
}

func TestPOST_running(t *testing.T) {
	srv, _, f := newTestServer()

	rr := postValueEndpoint(t, srv, "/v1/running", false)
	assertStatus(t, rr, http.StatusOK)
	if f.Running() {
		t.Fatal("expected simulation to be paused")
	}
	if got := decodeJSON[readingDTO](t, rr); got.Running {
		t.Fatal("expected running=false in response")
	}
}

func TestGET_healthz(t *testing.T) {
	srv, _, _ := newTestServer()

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	srv.srv.Handler.ServeHTTP(rr, req)

	assertStatus(t, rr, http.StatusOK)
	if rr.Body.String() != "ok" {
		t.Fatalf("expected body 'ok', got %s", rr.Body.String())
	}
}

func TestGET_metrics(t *testing.T) {
	f := testutil.NewFakeHouseService()
	metrics := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("# metrics"))
	})
	srv := New(device.New("default", f), ":0", metrics)

	rr := doJSONRequest(t, srv.srv.Handler, http.MethodGet, "/metrics", nil)
	assertStatus(t, rr, http.StatusOK)
	if rr.Body.String() != "# metrics" {
		t.Fatalf("expected metrics body, got %s", rr.Body.String())
	}

	srv, _, _ = newTestServer()
	rr = doJSONRequest(t, srv.srv.Handler, http.MethodGet, "/metrics", nil)
	assertStatus(t, rr, http.StatusNotFound)
}

// ---- test helpers ----

func newTestServer() (*Server, *device.Device, *testutil.FakeHouseService) {
	f := testutil.NewFakeHouseService()
	d := device.New("default", f)
	return New(d, ":0", nil), d, f
}

func doJSONRequest(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var r *http.Request
	if body == nil {
		r = httptest.NewRequest(method, path, nil)
	} else {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("json.Marshal: %v", err)
		}
		r = httptest.NewRequest(method, path, bytes.NewReader(b))
		r.Header.Set("Content-Type", "application/json")
	}

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, r)
	return rr
}

func assertStatus(t *testing.T, rr *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rr.Code != want {
		t.Fatalf("expected %d, got %d body=%s", want, rr.Code, rr.Body.String())
	}
}

func decodeJSON[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rr.Body.Bytes(), &v); err != nil {
		t.Fatalf("json.Unmarshal: %v body=%s", err, rr.Body.String())
	}
	return v
}

func assertErrorResponse(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	resp := decodeJSON[struct {
		Error string `json:"error"`
	}](t, rr)
	if resp.Error == "" {
		t.Fatalf("expected non-empty error field, got body=%s", rr.Body.String())
	}
	return resp.Error
}

func postValueEndpoint[T any](t *testing.T, srv *Server, path string, value T) *httptest.ResponseRecorder {
	t.Helper()
	return doJSONRequest(t, srv.srv.Handler, http.MethodPost, path, struct {
		Value T `json:"value"`
	}{Value: value})
}
