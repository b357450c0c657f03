package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/rv32ima/emulator/vm"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	var out bytes.Buffer
	bus := vm.NewBus(4096, 0, &out, nil)
	h := vm.NewHart(bus)
	bus.AttachHart(h)
	return NewServer(0, h, bus)
}

func TestHandleHealth(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
}

func TestHandleStatus(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/status", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	var resp StatusResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.PendingPower != "none" {
		t.Fatalf("PendingPower = %q, want none", resp.PendingPower)
	}
}

func TestHandleRegisters(t *testing.T) {
	s := newTestServer(t)
	s.hart.SetRegister(5, 0x1234)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/registers", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	var resp RegistersResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.X[5] != 0x1234 {
		t.Fatalf("X[5] = 0x%X, want 0x1234", resp.X[5])
	}
}

func TestHandleStep(t *testing.T) {
	s := newTestServer(t)
	const base = 0x100
	s.hart.PC = base
	if err := s.bus.Store(base, 4, 0x00100093); err != nil { // addi x1, x0, 1
		t.Fatalf("seed: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/step", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	var resp RunResult
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status.PC != base+4 {
		t.Fatalf("PC = 0x%X, want 0x%X", resp.Status.PC, base+4)
	}
}

func TestHandleBreakpointsCreateListDelete(t *testing.T) {
	s := newTestServer(t)

	body, _ := json.Marshal(BreakpointRequest{Address: 0x200})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/breakpoints", bytes.NewReader(body))
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, want 201", w.Code)
	}
	var created BreakpointView
	if err := json.NewDecoder(w.Body).Decode(&created); err != nil {
		t.Fatalf("decode: %v", err)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/breakpoints", nil)
	w = httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	var list []BreakpointView
	if err := json.NewDecoder(w.Body).Decode(&list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(list) != 1 || list[0].Address != 0x200 {
		t.Fatalf("list = %+v, want one breakpoint at 0x200", list)
	}

	req = httptest.NewRequest(http.MethodDelete, "/api/v1/breakpoints/"+strconv.Itoa(created.ID), nil)
	w = httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d, want 204", w.Code)
	}
}

func TestCORSRejectsRemoteOrigin(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	if w.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Fatal("expected no CORS header for a non-localhost origin")
	}
}
