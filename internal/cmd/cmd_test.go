package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/relabs-tech/imu_stream/internal/app"
)

func run(t *testing.T, args ...string) string {
	t.Helper()
	root := getRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		t.Fatalf("%v: %v", args, err)
	}
	return out.String()
}

func TestDumpMock(t *testing.T) {
	out := run(t, "dump", "--mock")

	for _, want := range []string{
		"0x75  WHO_AM_I       0x71",
		"0x19  SMPLRT_DIV     0x09",
		"0x3F  ACCEL_ZOUT_H   0x40",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in dump:\n%s", want, out)
		}
	}
	if strings.Contains(out, "FIFO_R_W") {
		t.Error("FIFO_R_W must not be dumped")
	}
}

func TestCalibrateMock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bias.json")
	run(t, "calibrate", "--mock", "-n", "5", "-o", path)

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("calibration file missing: %v", err)
	}
	var res app.CalibrationResult
	if err := json.Unmarshal(b, &res); err != nil {
		t.Fatalf("bad JSON: %v", err)
	}
	if res.TotalSamples != 5 || res.AccelBiasZ != 0 || res.Device != "mpu@0x68" {
		t.Errorf("unexpected result %+v", res)
	}
}

func TestPrintDumpUnknownRegister(t *testing.T) {
	var out bytes.Buffer
	if err := printDump(&out, map[byte]byte{0x01: 0xAA, 0x75: 0x71}); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 2 || !strings.HasPrefix(lines[0], "0x01  ?") {
		t.Errorf("expected sorted output with unknown marker, got %q", out.String())
	}
}
