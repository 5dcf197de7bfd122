package httpctrl

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/Agrid-Dev/housemocktat/internal/device"
	"github.com/Agrid-Dev/housemocktat/internal/household"
	"github.com/Agrid-Dev/housemocktat/internal/ports"
)

var errClockNotAdvanced = errors.New("time must be newer than the house clock")

type Server struct {
	svc      ports.HouseService
	srv      *http.Server
	deviceID string
	runID    string
}

// New returns a runnable server. metrics may be nil.
func New(d *device.Device, addr string, metrics http.Handler) *Server {
	mux := http.NewServeMux()
	s := &Server{svc: d.Svc, deviceID: d.ID, runID: d.RunID.String()}

	// Read
	mux.HandleFunc("GET /v1", s.handleGet)
	mux.HandleFunc("GET /v1/appliances", s.handleGetAppliances)

	// Write
	mux.HandleFunc("POST /v1/appliances/{index}/lock", s.handlePostLock)
	mux.HandleFunc("POST /v1/appliances/{index}/target_temperature", s.handlePostTarget)
	mux.HandleFunc("POST /v1/time", s.handlePostTime)
	mux.HandleFunc("POST /v1/running", s.handlePostRunning)

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if metrics != nil {
		mux.Handle("GET /metrics", metrics)
	}

	s.srv = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.srv.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// ---- DTOs ----

type readingDTO struct {
	DeviceID    string  `json:"device_id"`
	RunID       string  `json:"run_id"`
	Running     bool    `json:"running"`
	PowerStates []bool  `json:"power_states"`
	Devices     uint8   `json:"devices"`
	TotalDraw   float64 `json:"total_draw_kw"`
	Temperature float64 `json:"temperature"`
	Time        int64   `json:"time"`
	Clock       int64   `json:"clock"`
}

type applianceDTO struct {
	Index        int    `json:"index"`
	Kind         string `json:"kind"`
	Controllable bool   `json:"controllable"`
	PowerState   bool   `json:"power_state"`
	PowerLocked  bool   `json:"power_locked"`
	CycleEnd     int64  `json:"cycle_end,omitempty"`
	CycleCount   int    `json:"cycle_count"`
}

func toReadingDTO(r household.Reading) readingDTO {
	states := r.PowerStates
	if states == nil {
		states = []bool{}
	}
	return readingDTO{
		PowerStates: states,
		Devices:     r.Bitmask(),
		TotalDraw:   r.TotalDraw,
		Temperature: r.Temperature,
		Time:        r.Time,
	}
}

func toApplianceDTO(a ports.ApplianceInfo) applianceDTO {
	dto := applianceDTO{
		Index:        a.Index,
		Kind:         a.Kind.String(),
		Controllable: a.Controllable,
		PowerState:   a.State.PowerState,
		PowerLocked:  a.State.PowerLocked,
		CycleCount:   a.State.CycleCount,
	}
	if !a.State.CycleEnd.IsZero() {
		dto.CycleEnd = a.State.CycleEnd.Unix()
	}
	return dto
}

// ---- Handlers ----

func (s *Server) handleGet(w http.ResponseWriter, _ *http.Request) {
	s.respondReading(w)
}

func (s *Server) handleGetAppliances(w http.ResponseWriter, _ *http.Request) {
	s.respondAppliances(w)
}

func (s *Server) handlePostLock(w http.ResponseWriter, r *http.Request) {
	idx, ok := s.pathIndex(w, r)
	if !ok {
		return
	}
	postValue(w, r, s.respondAppliances, func(v bool) error {
		return s.svc.SetPowerLock(idx, v)
	})
}

func (s *Server) handlePostTarget(w http.ResponseWriter, r *http.Request) {
	idx, ok := s.pathIndex(w, r)
	if !ok {
		return
	}
	postValue(w, r, s.respondAppliances, func(v float64) error {
		return s.svc.SetTargetTemperature(idx, v)
	})
}

func (s *Server) handlePostTime(w http.ResponseWriter, r *http.Request) {
	postValue(w, r, s.respondReading, func(v int64) error {
		if !s.svc.SetTime(v) {
			return errClockNotAdvanced
		}
		return nil
	})
}

func (s *Server) handlePostRunning(w http.ResponseWriter, r *http.Request) {
	postValue(w, r, s.respondReading, func(v bool) error {
		s.svc.SetRunning(v)
		return nil
	})
}

// ---- generic helpers ----

func (s *Server) respondReading(w http.ResponseWriter) {
	dto := toReadingDTO(s.svc.Latest())
	dto.DeviceID = s.deviceID
	dto.RunID = s.runID
	dto.Running = s.svc.Running()
	dto.Clock = s.svc.Time()
	writeJSON(w, http.StatusOK, dto)
}

func (s *Server) respondAppliances(w http.ResponseWriter) {
	apps := s.svc.Appliances()
	out := make([]applianceDTO, len(apps))
	for i, a := range apps {
		out[i] = toApplianceDTO(a)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) pathIndex(w http.ResponseWriter, r *http.Request) (int, bool) {
	idx, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		writeErr(w, http.StatusBadRequest, "invalid appliance index")
		return 0, false
	}
	return idx, true
}

func postValue[T any](w http.ResponseWriter, r *http.Request, respond func(http.ResponseWriter), apply func(T) error) {
	dec := json.NewDecoder(r.Body)
	var req struct {
		Value *T `json:"value"`
	}
	if err := dec.Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.Value == nil {
		writeErr(w, http.StatusBadRequest, "missing field 'value'")
		return
	}

	if err := apply(*req.Value); err != nil {
		writeErr(w, statusFor(err), err.Error())
		return
	}

	respond(w)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, household.ErrUnknownAppliance):
		return http.StatusNotFound
	case errors.Is(err, household.ErrNotControllable), errors.Is(err, errClockNotAdvanced):
		return http.StatusConflict
	default:
		return http.StatusBadRequest
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
