package orientation

import (
	"encoding/binary"
	"math"
	"math/rand"
	"testing"
	"time"
)

const tol = 1e-9

func near(a, b, eps float64) bool {
	return math.Abs(a-b) <= eps
}

func randomUnit(r *rand.Rand) Quaternion {
	q := Quaternion{W: r.NormFloat64(), X: r.NormFloat64(), Y: r.NormFloat64(), Z: r.NormFloat64()}
	return q.Normalize()
}

func TestGravityIdentity(t *testing.T) {
	g := Gravity(Identity)
	if g != (Vector{X: 0, Y: 0, Z: 1}) {
		t.Errorf("expected {0,0,1}, got %+v", g)
	}
}

func TestGravityUnitLength(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	for i := 0; i < 1000; i++ {
		q := randomUnit(r)
		if n := Gravity(q).Norm(); !near(n, 1, tol) {
			t.Fatalf("|gravity(%+v)| = %v, expected 1", q, n)
		}
	}
}

func TestGravityScalesWithNormSquared(t *testing.T) {
	q := Quaternion{W: 2}
	g := Gravity(q)
	if g.Z != 4 {
		t.Errorf("expected gz=4 for |q|=2, got %v", g.Z)
	}
}

func TestGravityHalfTurnAboutY(t *testing.T) {
	// Straight substitution into the gravity formula.
	q := Quaternion{W: 0.7071, X: 0, Y: 0.7071, Z: 0}
	g := Gravity(q)
	if !near(g.X, -1, 1e-3) || !near(g.Y, 0, 1e-12) || !near(g.Z, 0, 1e-12) {
		t.Errorf("expected ≈{-1,0,0}, got %+v", g)
	}
}

func TestEulerIdentity(t *testing.T) {
	e := EulerFromQuaternion(Identity)
	if e.Psi != 0 || e.Theta != 0 || e.Phi != 0 {
		t.Errorf("expected zero angles, got %+v", e)
	}
}

func TestEulerClampsAsinArgument(t *testing.T) {
	tests := []struct {
		name  string
		q     Quaternion
		theta float64
	}{
		{"positive overflow", Quaternion{W: 1, Y: 1}, -math.Pi / 2},
		{"negative overflow", Quaternion{W: 1, Y: -1}, math.Pi / 2},
		{"x·z overflow", Quaternion{X: 0.8, Z: 0.8}, -math.Pi / 2},
		{"exact half turn", Quaternion{W: math.Sqrt(0.5), Y: math.Sqrt(0.5)}, -math.Pi / 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := EulerFromQuaternion(tt.q)
			if math.IsNaN(e.Psi) || math.IsNaN(e.Theta) || math.IsNaN(e.Phi) {
				t.Fatalf("NaN in %+v", e)
			}
			if e.Theta != tt.theta {
				t.Errorf("expected theta %v, got %v", tt.theta, e.Theta)
			}
		})
	}
}

func TestEulerNearSingularity(t *testing.T) {
	e := EulerFromQuaternion(Quaternion{W: 0.7071, Y: 0.7071})
	if math.IsNaN(e.Theta) {
		t.Fatal("theta is NaN")
	}
	if !near(e.Theta, -math.Pi/2, 0.01) {
		t.Errorf("expected theta near -π/2, got %v", e.Theta)
	}
}

func TestEulerNeverNaNForRandomNoise(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	for i := 0; i < 1000; i++ {
		q := randomUnit(r)
		// Up to 5% per-component noise, the kind an unfiltered DMP produces.
		q.W *= 1 + 0.05*r.Float64()
		q.Y *= 1 + 0.05*r.Float64()
		e := EulerFromQuaternion(q)
		if math.IsNaN(e.Theta) {
			t.Fatalf("NaN theta for %+v", q)
		}
		if e.Theta < -math.Pi/2 || e.Theta > math.Pi/2 {
			t.Fatalf("theta %v outside [-π/2, π/2]", e.Theta)
		}
	}
}

func TestYawPitchRollIdentity(t *testing.T) {
	ypr := ComputeYawPitchRoll(Identity, Gravity(Identity))
	if ypr.Yaw != 0 || ypr.Pitch != 0 || ypr.Roll != 0 {
		t.Errorf("expected zero angles, got %+v", ypr)
	}
}

func TestYawPitchRollFolding(t *testing.T) {
	s := math.Sqrt(0.75)
	tests := []struct {
		name  string
		g     Vector
		pitch float64
		roll  float64
	}{
		{"upright, +x tilt", Vector{X: 0.5, Z: s}, 2*math.Pi - math.Pi/6, 0},
		{"upright, -x tilt", Vector{X: -0.5, Z: s}, math.Pi / 6, 0},
		{"inverted, +x tilt", Vector{X: 0.5, Z: -s}, 7 * math.Pi / 6, math.Pi},
		{"inverted, -x tilt", Vector{X: -0.5, Z: -s}, 5 * math.Pi / 6, math.Pi},
		{"upright, +y tilt", Vector{Y: 0.5, Z: s}, 0, 2*math.Pi - math.Pi/6},
		{"upright, -y tilt", Vector{Y: -0.5, Z: s}, 0, math.Pi / 6},
		{"on edge", Vector{X: 1}, 3 * math.Pi / 2, math.Pi},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ypr := ComputeYawPitchRoll(Identity, tt.g)
			if !near(ypr.Pitch, tt.pitch, 1e-12) {
				t.Errorf("pitch: expected %v, got %v", tt.pitch, ypr.Pitch)
			}
			if !near(ypr.Roll, tt.roll, 1e-12) {
				t.Errorf("roll: expected %v, got %v", tt.roll, ypr.Roll)
			}
			if ypr.Pitch < 0 || ypr.Roll < 0 {
				t.Errorf("folded angles must be non-negative: %+v", ypr)
			}
		})
	}
}

func TestYawIsDoubled(t *testing.T) {
	a := math.Pi / 6
	q := Quaternion{W: math.Cos(a / 2), Z: math.Sin(a / 2)}
	ypr := ComputeYawPitchRoll(q, Gravity(q))
	if !near(ypr.Yaw, -2*a, tol) {
		t.Errorf("expected yaw %v, got %v", -2*a, ypr.Yaw)
	}
}

func TestAxisAnglesGimbalLock(t *testing.T) {
	h := math.Sqrt(0.5)

	north := ToAxisAngles(Quaternion{W: h, Y: -h})
	if north.Y != math.Pi/2 || north.Z != 0 {
		t.Errorf("north pole: expected y=π/2 z=0, got %+v", north)
	}
	if !near(north.X, -math.Pi/2, tol) {
		t.Errorf("north pole: expected x=-π/2, got %v", north.X)
	}

	south := ToAxisAngles(Quaternion{W: h, Y: h})
	if south.Y != -math.Pi/2 || south.Z != 0 {
		t.Errorf("south pole: expected y=-π/2 z=0, got %+v", south)
	}
	if !near(south.X, -math.Pi/2, tol) {
		t.Errorf("south pole: expected x=-π/2, got %v", south.X)
	}
}

func TestAxisAnglesEpsilonBand(t *testing.T) {
	// x·z − w·y = sin(2a)/2 = 0.49995, inside the default band.
	a := math.Asin(0.9999) / 2
	q := Quaternion{W: math.Cos(a), Y: -math.Sin(a)}

	got := ToAxisAngles(q)
	if got.Y != math.Pi/2 || got.Z != 0 {
		t.Errorf("default epsilon: expected pole solution, got %+v", got)
	}

	got = ToAxisAnglesEps(q, GimbalLockEpsilon/10)
	if got.Y == math.Pi/2 {
		t.Errorf("narrow epsilon: expected regular solution, got %+v", got)
	}
	if !near(got.Y, math.Asin(0.9999), tol) {
		t.Errorf("narrow epsilon: expected y=asin(0.9999), got %v", got.Y)
	}
}

func TestAxisAnglesRegular(t *testing.T) {
	id := ToAxisAngles(Identity)
	if !near(id.X, math.Pi, tol) || id.Y != 0 || id.Z != 0 {
		t.Errorf("identity: expected {π,0,0}, got %+v", id)
	}

	r := rand.New(rand.NewSource(3))
	for i := 0; i < 500; i++ {
		q := randomUnit(r)
		test := q.X*q.Z - q.W*q.Y
		if math.Abs(test) > 0.5-GimbalLockEpsilon {
			continue
		}
		a := ToAxisAngles(q)
		if math.IsNaN(a.X) || math.IsNaN(a.Y) || math.IsNaN(a.Z) {
			t.Fatalf("NaN for %+v", q)
		}
		if !near(a.Y, math.Asin(2*test), tol) {
			t.Fatalf("y mismatch for %+v", q)
		}
	}
}

func TestRawQuaternionScaling(t *testing.T) {
	q := RawQuaternion{Q0: DMPQuatScale, Q1: -DMPQuatScale / 2, Q2: DMPQuatScale / 4, Q3: 0}.Quaternion()
	want := Quaternion{W: 1, X: -0.5, Y: 0.25, Z: 0}
	if q != want {
		t.Errorf("expected %+v, got %+v", want, q)
	}
}

func TestDecodeFloatQuaternion(t *testing.T) {
	b := make([]byte, 16)
	for i, v := range []float32{0.5, -0.5, 0.25, 1} {
		binary.LittleEndian.PutUint32(b[i*4:], math.Float32bits(v))
	}
	q, err := DecodeFloatQuaternion(b)
	if err != nil {
		t.Fatalf("DecodeFloatQuaternion failed: %v", err)
	}
	if q != (Quaternion{W: 0.5, X: -0.5, Y: 0.25, Z: 1}) {
		t.Errorf("unexpected quaternion %+v", q)
	}

	if _, err := DecodeFloatQuaternion(b[:15]); err == nil {
		t.Error("expected error for short packet")
	}
}

func TestNormalize(t *testing.T) {
	if q := (Quaternion{W: 2}).Normalize(); q != Identity {
		t.Errorf("expected identity, got %+v", q)
	}
	if q := (Quaternion{}).Normalize(); q != (Quaternion{}) {
		t.Errorf("expected zero quaternion unchanged, got %+v", q)
	}
	if n := (Quaternion{W: 1, X: 1, Y: 1, Z: 1}).Norm(); !near(n, 2, tol) {
		t.Errorf("expected norm 2, got %v", n)
	}
}

func TestFromAxisRotations(t *testing.T) {
	if q := FromAxisRotations(0, 0, 0); !near(q.W, 1, tol) || !near(q.Norm(), 1, tol) {
		t.Errorf("expected identity, got %+v", q)
	}

	r := 0.3
	g := Gravity(FromAxisRotations(r, 0, 0))
	if !near(g.X, 0, tol) || !near(g.Y, math.Sin(r), tol) || !near(g.Z, math.Cos(r), tol) {
		t.Errorf("roll %v: unexpected gravity %+v", r, g)
	}
}

func TestMockSourceUnitQuaternions(t *testing.T) {
	t0 := time.Now()
	now := t0
	src := &mockSource{start: t0, now: func() time.Time { return now }}

	for i := 0; i < 50; i++ {
		now = t0.Add(time.Duration(i) * 100 * time.Millisecond)
		q, err := src.Next()
		if err != nil {
			t.Fatalf("Next failed: %v", err)
		}
		if !near(q.Norm(), 1, tol) {
			t.Fatalf("sample %d not normalized: %v", i, q.Norm())
		}
	}
}

func TestComputeAttitude(t *testing.T) {
	ts := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	a := ComputeAttitude(ts, Identity, GimbalLockEpsilon)
	if !a.Time.Equal(ts) {
		t.Errorf("time not carried through")
	}
	if a.Gravity != (Vector{Z: 1}) {
		t.Errorf("unexpected gravity %+v", a.Gravity)
	}
	if a.Pose != (Pose{}) {
		t.Errorf("expected zero pose, got %+v", a.Pose)
	}
}

func TestComputePoseFromAccel(t *testing.T) {
	tests := []struct {
		ax, ay, az  float64
		roll, pitch float64
	}{
		{0, 0, 16384, 0, 0},
		{0, 16384, 0, 90, 0},
		{-16384, 0, 0, 0, 90},
	}
	for _, tt := range tests {
		p := ComputePoseFromAccel(tt.ax, tt.ay, tt.az)
		if !near(p.Roll, tt.roll, tol) || !near(p.Pitch, tt.pitch, tol) || p.Yaw != 0 {
			t.Errorf("accel (%v,%v,%v): got %+v", tt.ax, tt.ay, tt.az, p)
		}
	}
}

func TestAccelQuaternionGravityMatchesAccel(t *testing.T) {
	tests := [][3]float64{
		{0, 0, 1},
		{0.3, 0.2, 0.9},
		{-0.5, 0.1, 0.4},
		{0.1, -0.7, -0.3},
		{1200, -300, 16000},
	}
	for _, a := range tests {
		q := AccelQuaternion(a[0], a[1], a[2])
		if !near(q.Norm(), 1, 1e-12) {
			t.Errorf("%v: expected unit quaternion, got |q|=%v", a, q.Norm())
		}
		n := math.Sqrt(a[0]*a[0] + a[1]*a[1] + a[2]*a[2])
		g := Gravity(q)
		if !near(g.X, a[0]/n, 1e-9) || !near(g.Y, a[1]/n, 1e-9) || !near(g.Z, a[2]/n, 1e-9) {
			t.Errorf("%v: expected gravity along accel, got %+v", a, g)
		}
	}
}
