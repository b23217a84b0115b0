package app

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	imu_raw "github.com/relabs-tech/imu_stream/internal/imu"
	"github.com/relabs-tech/imu_stream/internal/regbus"
	"github.com/relabs-tech/imu_stream/internal/sensors"
)

func newDebugServer(t *testing.T, allowWrite bool) (*RegisterDebugServer, *regbus.Loopback) {
	t.Helper()
	lb := regbus.NewLoopback(map[byte]byte{
		sensors.RegWhoAmI:     0x71,
		sensors.RegPwrMgmt1:   0x01,
		sensors.RegAccelXoutH: 0x12,
		0x3C:                  0x34,
	})
	s := NewRegisterDebugServer(regbus.NewDevice(lb, regbus.DefaultAddr), allowWrite, nil)
	s.now = func() time.Time { return time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC) }
	return s, lb
}

func TestRegisterDebugRead(t *testing.T) {
	s, _ := newDebugServer(t, false)

	resp := s.Handle(RegisterCmd{Action: "read", Addr: "0x75"})
	if resp.Type != "register_data" || resp.Value != "0x71" || resp.Address != "0x75" {
		t.Errorf("unexpected response %+v", resp)
	}
	if resp.Device != "mpu@0x68" {
		t.Errorf("expected device mpu@0x68, got %q", resp.Device)
	}

	// Decimal addresses work too.
	resp = s.Handle(RegisterCmd{Action: "read", Addr: "107"})
	if resp.Value != "0x01" {
		t.Errorf("expected PWR_MGMT_1 0x01, got %+v", resp)
	}
}

func TestRegisterDebugReadErrors(t *testing.T) {
	s, lb := newDebugServer(t, false)

	tests := []struct {
		cmd  RegisterCmd
		want string
	}{
		{RegisterCmd{Action: "read"}, "missing addr"},
		{RegisterCmd{Action: "read", Addr: "zz"}, "invalid address"},
		{RegisterCmd{Action: "read", Addr: "0x100"}, "invalid address"},
		{RegisterCmd{Action: "read", Addr: "0x80"}, "out of range"},
		{RegisterCmd{Action: "nope"}, "unknown action"},
		{RegisterCmd{}, "missing or invalid action"},
	}
	for _, tt := range tests {
		resp := s.Handle(tt.cmd)
		if resp.Type != "error" || !strings.Contains(resp.Message, tt.want) {
			t.Errorf("%+v: expected error containing %q, got %+v", tt.cmd, tt.want, resp)
		}
	}
	if lb.Reads() != 0 {
		t.Errorf("rejected requests must not touch the bus, got %d reads", lb.Reads())
	}
}

func TestRegisterDebugReadBlock(t *testing.T) {
	s, _ := newDebugServer(t, false)

	resp := s.Handle(RegisterCmd{Action: "read_block", Addr: "0x3B", Len: 2})
	if resp.Type != "register_data" {
		t.Fatalf("unexpected response %+v", resp)
	}
	if len(resp.Values) != 2 || resp.Values[0] != "0x12" || resp.Values[1] != "0x34" {
		t.Errorf("expected [0x12 0x34], got %v", resp.Values)
	}
}

func TestRegisterDebugReadBlockLength(t *testing.T) {
	s, lb := newDebugServer(t, false)

	tests := []struct {
		addr string
		n    int
		ok   bool
	}{
		{"0x3B", 0, false},
		{"0x3B", -1, false},
		{"0x3B", 1, true},
		{"0x00", 0x76, true},
		{"0x00", 0x77, false},
		{"0x75", 1, true},
		{"0x75", 2, false},
		{"0x70", 1 << 24, false},
		{"0x70", 1 << 50, false},
		{"0x76", 1, false},
	}
	for _, tt := range tests {
		reads := lb.Reads()
		resp := s.Handle(RegisterCmd{Action: "read_block", Addr: tt.addr, Len: tt.n})
		if tt.ok {
			if resp.Type != "register_data" || len(resp.Values) != tt.n {
				t.Errorf("%s len %d: expected %d values, got %+v", tt.addr, tt.n, tt.n, resp.Type)
			}
			continue
		}
		if resp.Type != "error" {
			t.Errorf("%s len %d: expected error, got %s", tt.addr, tt.n, resp.Type)
		}
		if lb.Reads() != reads {
			t.Errorf("%s len %d: rejected block reached the bus", tt.addr, tt.n)
		}
	}
}

func TestRegisterDebugReadAll(t *testing.T) {
	s, lb := newDebugServer(t, false)
	lb.Queue(sensors.RegFIFORW, 0xEE)

	resp := s.Handle(RegisterCmd{Action: "read_all"})
	if resp.Registers["0x75"] != "0x71" {
		t.Errorf("expected WHO_AM_I in dump, got %v", resp.Registers)
	}
	if _, ok := resp.Registers["0x74"]; ok {
		t.Error("FIFO_R_W must not be read by read_all")
	}
}

func TestRegisterDebugWrite(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		s, lb := newDebugServer(t, false)
		resp := s.Handle(RegisterCmd{Action: "write", Addr: "0x6B", Value: "0x00"})
		if resp.Type != "error" || !strings.Contains(resp.Message, "disabled") {
			t.Errorf("expected writes disabled, got %+v", resp)
		}
		if lb.Reg(sensors.RegPwrMgmt1) != 0x01 {
			t.Error("register changed while writes are disabled")
		}
	})

	t.Run("enabled", func(t *testing.T) {
		s, lb := newDebugServer(t, true)
		resp := s.Handle(RegisterCmd{Action: "write", Addr: "0x6B", Value: "0x40"})
		if resp.Type != "register_data" || resp.Message != "write successful" {
			t.Fatalf("unexpected response %+v", resp)
		}
		if lb.Reg(sensors.RegPwrMgmt1) != 0x40 {
			t.Errorf("expected 0x40, got 0x%02X", lb.Reg(sensors.RegPwrMgmt1))
		}
	})

	t.Run("read-only register", func(t *testing.T) {
		s, lb := newDebugServer(t, true)
		resp := s.Handle(RegisterCmd{Action: "write", Addr: "0x75", Value: "0x00"})
		if resp.Type != "error" || !strings.Contains(resp.Message, "not writable") {
			t.Errorf("expected not writable, got %+v", resp)
		}
		if lb.Writes() != 0 {
			t.Error("rejected write reached the bus")
		}
	})

	t.Run("bad value", func(t *testing.T) {
		s, _ := newDebugServer(t, true)
		resp := s.Handle(RegisterCmd{Action: "write", Addr: "0x6B", Value: "0x1FF"})
		if resp.Type != "error" || !strings.Contains(resp.Message, "invalid value") {
			t.Errorf("expected invalid value, got %+v", resp)
		}
	})
}

func TestRegisterDebugExportConfig(t *testing.T) {
	s, _ := newDebugServer(t, false)

	resp := s.Handle(RegisterCmd{Action: "export_config"})
	if resp.Type != "export_config" {
		t.Fatalf("unexpected response %+v", resp)
	}
	if resp.Filename != "mpu_68_20260304_050607_registers.json" {
		t.Errorf("unexpected filename %q", resp.Filename)
	}

	var cfg RegisterConfigFile
	if err := json.Unmarshal([]byte(resp.Config), &cfg); err != nil {
		t.Fatalf("bad config JSON: %v", err)
	}
	if cfg.Version != 1 || cfg.Registers["0x75"] != "0x71" || cfg.Timestamp != "2026-03-04T05:06:07Z" {
		t.Errorf("unexpected config %+v", cfg)
	}
}

func TestRegisterDebugWebsocket(t *testing.T) {
	s, _ := newDebugServer(t, false)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()

	var first RegisterResponse
	if err := conn.ReadJSON(&first); err != nil {
		t.Fatalf("read register map: %v", err)
	}
	if first.Type != "register_map" || len(first.RegisterMap) != len(sensors.RegisterMap()) {
		t.Errorf("expected full register map on connect, got type %q with %d entries", first.Type, len(first.RegisterMap))
	}

	if err := conn.WriteJSON(RegisterCmd{Action: "read", Addr: "0x75"}); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	var resp RegisterResponse
	if err := conn.ReadJSON(&resp); err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if resp.Value != "0x71" {
		t.Errorf("expected 0x71, got %+v", resp)
	}
}

func TestHandleIMUData(t *testing.T) {
	s, _ := newDebugServer(t, false)

	rec := httptest.NewRecorder()
	s.HandleIMUData(rec, httptest.NewRequest(http.MethodGet, "/api/imu", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 without reader, got %d", rec.Code)
	}

	s.raw = fixedRaw{raw: imu_raw.IMURaw{Source: "mpu@0x68", Gx: -5}}
	rec = httptest.NewRecorder()
	s.HandleIMUData(rec, httptest.NewRequest(http.MethodGet, "/api/imu", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var raw imu_raw.IMURaw
	if err := json.NewDecoder(rec.Body).Decode(&raw); err != nil || raw.Gx != -5 {
		t.Errorf("unexpected body %q (%v)", rec.Body.String(), err)
	}

	s.raw = fixedRaw{err: errors.New("bus gone")}
	rec = httptest.NewRecorder()
	s.HandleIMUData(rec, httptest.NewRequest(http.MethodGet, "/api/imu", nil))
	if rec.Code != http.StatusInternalServerError || !strings.Contains(rec.Body.String(), "bus gone") {
		t.Errorf("expected 500 with error, got %d %q", rec.Code, rec.Body.String())
	}
}

func TestWritableRegisters(t *testing.T) {
	regs := WritableRegisters()
	has := func(addr string) bool {
		for _, r := range regs {
			if r == addr {
				return true
			}
		}
		return false
	}
	if !has("0x6B") || !has("0x19") {
		t.Errorf("expected PWR_MGMT_1 and SMPLRT_DIV writable, got %v", regs)
	}
	if has("0x75") || has("0x3B") {
		t.Errorf("read-only registers listed as writable: %v", regs)
	}
}
