package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rv32ima/emulator/debugger"
	"github.com/rv32ima/emulator/vm"
)

// Server is an HTTP + WebSocket status/control server for a single
// embedded hart. Unlike a multi-session debugger front-end there is
// exactly one vm.Hart/vm.Bus pair for the process lifetime; every
// request reads or mutates that shared state under mu.
type Server struct {
	mu          sync.Mutex
	hart        *vm.Hart
	bus         *vm.Bus
	breakpoints *debugger.BreakpointManager
	broadcaster *Broadcaster
	mux         *http.ServeMux
	server      *http.Server
	port        int
}

// NewServer wires an API server around an already-constructed hart/bus
// pair. The caller (main) owns loading the kernel image before the
// server starts accepting requests.
func NewServer(port int, h *vm.Hart, bus *vm.Bus) *Server {
	s := &Server{
		hart:        h,
		bus:         bus,
		breakpoints: debugger.NewBreakpointManager(),
		broadcaster: NewBroadcaster(),
		mux:         http.NewServeMux(),
		port:        port,
	}
	s.registerRoutes()
	return s
}

// Handler returns the HTTP handler with CORS middleware applied.
func (s *Server) Handler() http.Handler {
	return s.corsMiddleware(s.mux)
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/api/v1/ws", s.handleWebSocket)
	s.mux.HandleFunc("/api/v1/status", s.handleStatus)
	s.mux.HandleFunc("/api/v1/registers", s.handleRegisters)
	s.mux.HandleFunc("/api/v1/csr", s.handleCSR)
	s.mux.HandleFunc("/api/v1/memory", s.handleMemory)
	s.mux.HandleFunc("/api/v1/step", s.handleStep)
	s.mux.HandleFunc("/api/v1/run", s.handleRun)
	s.mux.HandleFunc("/api/v1/reset", s.handleReset)
	s.mux.HandleFunc("/api/v1/breakpoints", s.handleBreakpoints)
	s.mux.HandleFunc("/api/v1/breakpoints/", s.handleBreakpointByID)
}

// Start blocks serving HTTP on 127.0.0.1:port until Shutdown is called.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         fmt.Sprintf("127.0.0.1:%d", s.port),
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	log.Printf("API server starting on http://127.0.0.1:%d", s.port)
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server and disconnects WebSocket clients.
func (s *Server) Shutdown(ctx context.Context) error {
	s.broadcaster.Close()
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// GetBroadcaster exposes the broadcaster for a caller (e.g. main's run
// loop) that wants to push state/output events as execution proceeds.
func (s *Server) GetBroadcaster() *Broadcaster {
	return s.broadcaster
}

// corsMiddleware restricts cross-origin requests to localhost, matching
// a local control-plane server that should never be reachable remotely.
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if isAllowedOrigin(origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func isAllowedOrigin(origin string) bool {
	if origin == "" {
		return true
	}
	if strings.HasPrefix(origin, "file://") {
		return true
	}
	return strings.HasPrefix(origin, "http://localhost") ||
		strings.HasPrefix(origin, "https://localhost") ||
		strings.HasPrefix(origin, "http://127.0.0.1") ||
		strings.HasPrefix(origin, "https://127.0.0.1")
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"time":   time.Now().Format(time.RFC3339),
	})
}

func (s *Server) statusLocked() StatusResponse {
	errMsg := ""
	if s.hart.LastError != nil {
		errMsg = s.hart.LastError.Error()
	}
	return StatusResponse{
		PC:           s.hart.PC,
		Priv:         s.hart.Priv,
		Cycles:       s.hart.Cycles,
		LastError:    errMsg,
		PendingPower: powerActionString(s.bus.PendingPower()),
	}
}

func powerActionString(a vm.PowerAction) string {
	switch a {
	case vm.PowerOff:
		return "poweroff"
	case vm.PowerReboot:
		return "reboot"
	default:
		return "none"
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, s.statusLocked())
}

func (s *Server) handleRegisters(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var resp RegistersResponse
	for i := 0; i < 32; i++ {
		resp.X[i] = s.hart.GetRegister(uint32(i))
	}
	resp.PC = s.hart.PC
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCSR(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	named := s.hart.CSR.Named()
	resp := CSRResponse{CSRs: make([]NamedCSRValue, 0, len(named))}
	for _, c := range named {
		resp.CSRs = append(resp.CSRs, NamedCSRValue{Num: c.Num, Name: c.Name, Value: s.hart.CSR.Read(c.Num)})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleMemory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	addr, err := parseUint32Query(r, "addr")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid addr: "+err.Error())
		return
	}
	length := 64
	if v := r.URL.Query().Get("length"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 4096 {
			writeError(w, http.StatusBadRequest, "length must be between 1 and 4096")
			return
		}
		length = n
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	bytes := make([]byte, length)
	for i := 0; i < length; i++ {
		v, err := s.bus.Load(addr+uint32(i), 1)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("read at 0x%08X: %v", addr+uint32(i), err))
			return
		}
		bytes[i] = byte(v)
	}
	writeJSON(w, http.StatusOK, MemoryResponse{Addr: addr, Bytes: bytes})
}

func (s *Server) handleStep(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.hart.Step(); err != nil {
		writeJSON(w, http.StatusOK, RunResult{Status: s.statusLocked(), Reason: err.Error(), StepsTaken: 0})
		return
	}
	s.broadcaster.BroadcastState(map[string]interface{}{"pc": s.hart.PC, "cycles": s.hart.Cycles})
	writeJSON(w, http.StatusOK, RunResult{Status: s.statusLocked(), Reason: "stepped", StepsTaken: 1})
}

// handleRun advances the hart until a breakpoint, a fatal error, a
// pending power action, or maxSteps is reached, then returns the stop
// reason. maxSteps defaults to 1,000,000 and is capped at 10,000,000 so
// a single request cannot block the server indefinitely.
func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req StepRequest
	if r.ContentLength != 0 {
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid body: "+err.Error())
			return
		}
	}
	maxSteps := req.MaxSteps
	if maxSteps <= 0 {
		maxSteps = 1_000_000
	}
	if maxSteps > 10_000_000 {
		maxSteps = 10_000_000
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	result := RunResult{Reason: "max steps reached"}
	for result.StepsTaken = 0; result.StepsTaken < maxSteps; result.StepsTaken++ {
		if bp := s.breakpoints.GetBreakpoint(s.hart.PC); bp != nil && bp.Enabled {
			s.breakpoints.ProcessHit(s.hart.PC)
			result.Reason = "breakpoint"
			result.BreakpointID = bp.ID
			break
		}
		if err := s.hart.Step(); err != nil {
			result.Reason = err.Error()
			break
		}
		if action := s.bus.PendingPower(); action != vm.PowerNone {
			result.Reason = powerActionString(action)
			break
		}
	}
	result.Status = s.statusLocked()
	s.broadcaster.BroadcastExecutionEvent(result.Reason, map[string]interface{}{"pc": s.hart.PC})
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hart.Reset()
	writeJSON(w, http.StatusOK, s.statusLocked())
}

func (s *Server) handleBreakpoints(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		bps := s.breakpoints.GetAllBreakpoints()
		out := make([]BreakpointView, 0, len(bps))
		for _, bp := range bps {
			out = append(out, BreakpointView{ID: bp.ID, Address: bp.Address, Enabled: bp.Enabled, HitCount: bp.HitCount})
		}
		writeJSON(w, http.StatusOK, out)

	case http.MethodPost:
		var req BreakpointRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid body: "+err.Error())
			return
		}
		bp := s.breakpoints.AddBreakpoint(req.Address, false)
		writeJSON(w, http.StatusCreated, BreakpointView{ID: bp.ID, Address: bp.Address, Enabled: bp.Enabled, HitCount: bp.HitCount})

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) handleBreakpointByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	idStr := strings.TrimPrefix(r.URL.Path, "/api/v1/breakpoints/")
	id, err := strconv.Atoi(idStr)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid breakpoint id")
		return
	}
	if err := s.breakpoints.DeleteBreakpoint(id); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func parseUint32Query(r *http.Request, key string) (uint32, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return 0, fmt.Errorf("%s is required", key)
	}
	n, err := strconv.ParseUint(strings.TrimPrefix(v, "0x"), hexOrDecBase(v), 32)
	if err != nil {
		return 0, err
	}
	return uint32(n), nil
}

func hexOrDecBase(v string) int {
	if strings.HasPrefix(v, "0x") || strings.HasPrefix(v, "0X") {
		return 16
	}
	return 10
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("writeJSON: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: http.StatusText(status), Message: message, Code: status})
}

func readJSON(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}
