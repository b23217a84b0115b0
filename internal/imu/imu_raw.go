package imu

// IMURaw is one burst read of the motion registers, in raw counts.
type IMURaw struct {
	Source string `json:"source"` // device label, e.g. "mpu@0x68"

	Ax int16 `json:"ax"` // accel
	Ay int16 `json:"ay"`
	Az int16 `json:"az"`

	Temp int16 `json:"temp"`

	Gx int16 `json:"gx"` // gyro
	Gy int16 `json:"gy"`
	Gz int16 `json:"gz"`
}

// TempC converts the die temperature counts to °C (MPU-9250 datasheet:
// 333.87 LSB/°C, 21 °C offset).
func (r IMURaw) TempC() float64 {
	return float64(r.Temp)/333.87 + 21.0
}

type IMURawSource interface {
	ReadRaw() (IMURaw, error)
}
