// Package obd polls diagnostic parameters over the request/response
// service and turns the replies into telemetry channel values.
package obd

import (
	"time"

	"dash-service/canbus"
)

const (
	// RequestID is the functional broadcast address every ECU listens on.
	RequestID = 0x7DF
	// ResponseECU and ResponseTCM are the physical reply addresses of
	// the engine and transmission controllers.
	ResponseECU = 0x7E8
	ResponseTCM = 0x7E9

	serviceCurrentData = 0x01
	responseService    = 0x41

	// PIDEngineRPM and PIDCoolantTemp are the mode 01 parameter ids.
	PIDEngineRPM   = 0x0C
	PIDCoolantTemp = 0x05
)

// Parameter describes one polled value: its wire id, how many data
// bytes the reply carries, and how to decode them.
type Parameter struct {
	Name        string
	Channel     string
	PID         byte
	Bytes       int
	Decode      func(data []byte) float64
	MinInterval time.Duration
}

// StandardParameters returns the fixed poll set.
func StandardParameters() []Parameter {
	return []Parameter{
		{
			Name:    "engine-rpm",
			Channel: "rpm",
			PID:     PIDEngineRPM,
			Bytes:   2,
			Decode:  decodeRPM,
		},
		{
			Name:    "coolant-temperature",
			Channel: "coolant-temp",
			PID:     PIDCoolantTemp,
			Bytes:   1,
			Decode:  decodeCoolant,
		},
	}
}

func decodeRPM(data []byte) float64 {
	return float64(uint16(data[0])<<8|uint16(data[1])) / 4
}

func decodeCoolant(data []byte) float64 {
	return float64(data[0]) - 40
}

// CoolantPercent maps 40..120 degC onto a 0..100 gauge scale,
// clamped at both ends.
func CoolantPercent(celsius float64) float64 {
	pct := (celsius - 40) / 80 * 100
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}

// RequestFrame builds a mode 01 request for the given pid.
func RequestFrame(pid byte) canbus.Frame {
	var data [8]byte
	data[0] = 0x02
	data[1] = serviceCurrentData
	data[2] = pid
	return canbus.Frame{ID: RequestID, Length: 8, Data: data}
}

// ParseResponse validates a single-frame mode 01 reply and returns
// the answered pid and its data bytes. ok is false for anything that
// is not a well formed positive response.
func ParseResponse(f canbus.Frame) (pid byte, data []byte, ok bool) {
	if f.ID != ResponseECU && f.ID != ResponseTCM {
		return 0, nil, false
	}
	if f.Length < 3 {
		return 0, nil, false
	}
	n := int(f.Data[0])
	if n < 2 || n > int(f.Length)-1 {
		return 0, nil, false
	}
	if f.Data[1] != responseService {
		return 0, nil, false
	}
	return f.Data[2], f.Data[3 : 1+n], true
}
