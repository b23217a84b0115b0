// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	imu_raw "github.com/relabs-tech/imu_stream/internal/imu"
	"github.com/relabs-tech/imu_stream/internal/regbus"
	"github.com/relabs-tech/imu_stream/internal/sensors"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for local development
	},
}

// RegisterCmd is a client request. Addr and Value are hex ("0x6B") or
// decimal strings.
type RegisterCmd struct {
	Action string `json:"action"` // get_map, read, read_block, read_all, write, export_config
	Addr   string `json:"addr,omitempty"`
	Value  string `json:"value,omitempty"`
	Len    int    `json:"len,omitempty"` // read_block
}

// RegisterResponse is sent for every request, and once with the register
// map when a client connects.
type RegisterResponse struct {
	Type        string                 `json:"type"` // "register_map", "register_data", "export_config", "error"
	Device      string                 `json:"device,omitempty"`
	Address     string                 `json:"addr,omitempty"`
	Value       string                 `json:"value,omitempty"`
	Values      []string               `json:"values,omitempty"`    // read_block
	Registers   map[string]string      `json:"registers,omitempty"` // read_all
	Timestamp   string                 `json:"timestamp,omitempty"`
	Message     string                 `json:"message,omitempty"`
	RegisterMap []sensors.RegisterInfo `json:"register_map,omitempty"`
	Config      string                 `json:"config,omitempty"`
	Filename    string                 `json:"filename,omitempty"`
}

// RegisterConfigFile is the JSON written by export_config.
type RegisterConfigFile struct {
	Version   int               `json:"version"`
	Device    string            `json:"device"`
	Timestamp string            `json:"timestamp"`
	Registers map[string]string `json:"registers"` // hex address -> hex value
}

// RegisterDebugServer exposes the device registers over a websocket.
type RegisterDebugServer struct {
	dev        *regbus.Device
	name       string
	allowWrite bool
	raw        imu_raw.IMURawSource
	now        func() time.Time
}

// NewRegisterDebugServer serves dev. Writes are refused unless allowWrite
// is set. raw, if not nil, backs the /api/imu endpoint.
func NewRegisterDebugServer(dev *regbus.Device, allowWrite bool, raw imu_raw.IMURawSource) *RegisterDebugServer {
	return &RegisterDebugServer{
		dev:        dev,
		name:       fmt.Sprintf("mpu@0x%02X", dev.Addr()),
		allowWrite: allowWrite,
		raw:        raw,
		now:        time.Now,
	}
}

// Handler routes /ws and /api/imu.
func (s *RegisterDebugServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.HandleWS)
	mux.HandleFunc("/api/imu", s.HandleIMUData)
	return mux
}

// HandleWS handles one debugger connection.
func (s *RegisterDebugServer) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("register_debug: websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	if err := conn.WriteJSON(s.registerMap()); err != nil {
		log.Printf("register_debug: error sending register map: %v", err)
		return
	}

	for {
		var cmd RegisterCmd
		if err := conn.ReadJSON(&cmd); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				log.Printf("register_debug: websocket error: %v", err)
			}
			return
		}
		if err := conn.WriteJSON(s.Handle(cmd)); err != nil {
			log.Printf("register_debug: write error: %v", err)
			return
		}
	}
}

// Handle executes one command against the device.
func (s *RegisterDebugServer) Handle(cmd RegisterCmd) RegisterResponse {
	switch cmd.Action {
	case "get_map":
		return s.registerMap()
	case "read":
		return s.handleRead(cmd)
	case "read_block":
		return s.handleReadBlock(cmd)
	case "read_all":
		return s.handleReadAll()
	case "write":
		return s.handleWrite(cmd)
	case "export_config":
		return s.handleExportConfig()
	case "":
		return errorResponse("missing or invalid action field")
	default:
		return errorResponse(fmt.Sprintf("unknown action: %s", cmd.Action))
	}
}

func errorResponse(msg string) RegisterResponse {
	return RegisterResponse{Type: "error", Message: msg}
}

func parseByte(s string) (byte, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(s), 0, 8)
	if err != nil {
		return 0, err
	}
	return byte(v), nil
}

func hexByte(b byte) string { return fmt.Sprintf("0x%02X", b) }

func (s *RegisterDebugServer) timestamp() string {
	return s.now().Format(time.RFC3339)
}

func (s *RegisterDebugServer) registerMap() RegisterResponse {
	return RegisterResponse{
		Type:        "register_map",
		Device:      s.name,
		RegisterMap: sensors.RegisterMap(),
	}
}

func (s *RegisterDebugServer) handleRead(cmd RegisterCmd) RegisterResponse {
	if cmd.Addr == "" {
		return errorResponse("missing addr field")
	}
	reg, err := parseByte(cmd.Addr)
	if err != nil {
		return errorResponse(fmt.Sprintf("invalid address format: %s", cmd.Addr))
	}

	value, err := s.dev.ReadRegister(s.dev.Addr(), reg)
	if err != nil {
		return errorResponse(fmt.Sprintf("read error: %v", err))
	}

	return RegisterResponse{
		Type:      "register_data",
		Device:    s.name,
		Address:   hexByte(reg),
		Value:     hexByte(value),
		Timestamp: s.timestamp(),
	}
}

func (s *RegisterDebugServer) handleReadBlock(cmd RegisterCmd) RegisterResponse {
	if cmd.Addr == "" {
		return errorResponse("missing addr field")
	}
	reg, err := parseByte(cmd.Addr)
	if err != nil {
		return errorResponse(fmt.Sprintf("invalid address format: %s", cmd.Addr))
	}
	if reg > regbus.MaxRegister {
		return errorResponse(fmt.Sprintf("read error: address 0x%02X out of range", reg))
	}
	// Blocks stop at the last register.
	if limit := int(regbus.MaxRegister) + 1 - int(reg); cmd.Len < 1 || cmd.Len > limit {
		return errorResponse(fmt.Sprintf("invalid len %d: must be 1..%d from %s", cmd.Len, limit, hexByte(reg)))
	}

	data, err := s.dev.ReadBlock(s.dev.Addr(), reg, cmd.Len)
	if err != nil {
		return errorResponse(fmt.Sprintf("read error: %v", err))
	}

	values := make([]string, len(data))
	for i, b := range data {
		values[i] = hexByte(b)
	}
	return RegisterResponse{
		Type:      "register_data",
		Device:    s.name,
		Address:   hexByte(reg),
		Values:    values,
		Timestamp: s.timestamp(),
	}
}

func (s *RegisterDebugServer) dumpHex() (map[string]string, error) {
	registers, err := sensors.DumpRegisters(s.dev)
	if err != nil {
		return nil, err
	}
	regMap := make(map[string]string, len(registers))
	for addr, value := range registers {
		regMap[hexByte(addr)] = hexByte(value)
	}
	return regMap, nil
}

func (s *RegisterDebugServer) handleReadAll() RegisterResponse {
	regMap, err := s.dumpHex()
	if err != nil {
		return errorResponse(fmt.Sprintf("read all error: %v", err))
	}
	return RegisterResponse{
		Type:      "register_data",
		Device:    s.name,
		Registers: regMap,
		Timestamp: s.timestamp(),
	}
}

func (s *RegisterDebugServer) handleWrite(cmd RegisterCmd) RegisterResponse {
	if cmd.Addr == "" || cmd.Value == "" {
		return errorResponse("missing addr or value field")
	}
	if !s.allowWrite {
		return errorResponse("register writes are disabled (REGDEBUG_ALLOW_WRITE)")
	}

	reg, err := parseByte(cmd.Addr)
	if err != nil {
		return errorResponse(fmt.Sprintf("invalid address format: %s", cmd.Addr))
	}
	value, err := parseByte(cmd.Value)
	if err != nil {
		return errorResponse(fmt.Sprintf("invalid value format: %s", cmd.Value))
	}
	if !isRegisterWritable(reg) {
		return errorResponse(fmt.Sprintf("register %s is not writable", hexByte(reg)))
	}

	if _, err := s.dev.WriteRegister(s.dev.Addr(), reg, value); err != nil {
		return errorResponse(fmt.Sprintf("write error: %v", err))
	}
	log.Printf("register_debug: %s wrote %s to %s", s.name, hexByte(value), hexByte(reg))

	return RegisterResponse{
		Type:      "register_data",
		Device:    s.name,
		Address:   hexByte(reg),
		Value:     hexByte(value),
		Timestamp: s.timestamp(),
		Message:   "write successful",
	}
}

func (s *RegisterDebugServer) handleExportConfig() RegisterResponse {
	regMap, err := s.dumpHex()
	if err != nil {
		return errorResponse(fmt.Sprintf("export error: %v", err))
	}

	now := s.now()
	configFile := RegisterConfigFile{
		Version:   1,
		Device:    s.name,
		Timestamp: now.Format(time.RFC3339),
		Registers: regMap,
	}
	configJSON, err := json.Marshal(configFile)
	if err != nil {
		return errorResponse(fmt.Sprintf("export error: %v", err))
	}

	return RegisterResponse{
		Type:     "export_config",
		Device:   s.name,
		Message:  "config exported",
		Config:   string(configJSON),
		Filename: fmt.Sprintf("mpu_%02x_%s_registers.json", s.dev.Addr(), now.Format("20060102_150405")),
	}
}

// HandleIMUData serves one motion burst as JSON.
func (s *RegisterDebugServer) HandleIMUData(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	if s.raw == nil {
		http.Error(w, `{"error": "no IMU reader"}`, http.StatusNotFound)
		return
	}
	raw, err := s.raw.ReadRaw()
	if err != nil {
		http.Error(w, fmt.Sprintf(`{"error": %q}`, err.Error()), http.StatusInternalServerError)
		return
	}
	if err := json.NewEncoder(w).Encode(raw); err != nil {
		log.Printf("register_debug: json encode error: %v", err)
	}
}

// isRegisterWritable reports whether reg is a mapped register with write
// access.
func isRegisterWritable(reg byte) bool {
	info, ok := sensors.LookupRegister(reg)
	return ok && strings.Contains(info.Access, "W")
}

// WritableRegisters lists the registers the debugger accepts writes for.
func WritableRegisters() []string {
	var out []string
	for _, r := range sensors.RegisterMap() {
		if isRegisterWritable(r.Reg) {
			out = append(out, r.Address)
		}
	}
	sort.Strings(out)
	return out
}
