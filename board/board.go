// Package board models the raw I/O of the arcade interface: the sampled input
// frame, the most recent sample shared between goroutines, and the digital and
// PWM outputs driven by the protocol.
package board

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/Alia5/jammaio/config"
)

// FrameSize is the wire size of a RawState frame.
const FrameSize = 4 + 2*config.AnalogInputs

// AnalogMax is the largest analog sample value.
const AnalogMax = 1023

// RawState is one sample of every input of the board.
//
// Wire layout (little-endian):
//
//	digital uint32  bit i = level of digital input i (1 = pressed)
//	analog  [4]uint16
type RawState struct {
	Digital uint32
	Analog  [config.AnalogInputs]uint16
}

// Pressed reports the level of digital input i.
func (s RawState) Pressed(i int) bool {
	if i < 0 || i >= config.DigitalInputs {
		return false
	}
	return s.Digital&(1<<i) != 0
}

// MarshalBinary encodes the frame.
func (s RawState) MarshalBinary() ([]byte, error) {
	b := make([]byte, FrameSize)
	binary.LittleEndian.PutUint32(b[0:4], s.Digital)
	for i, v := range s.Analog {
		binary.LittleEndian.PutUint16(b[4+2*i:], v)
	}
	return b, nil
}

// UnmarshalBinary decodes a frame. Analog samples above AnalogMax are clamped.
func (s *RawState) UnmarshalBinary(b []byte) error {
	if len(b) < FrameSize {
		return fmt.Errorf("raw state: need %d bytes, got %d", FrameSize, len(b))
	}
	s.Digital = binary.LittleEndian.Uint32(b[0:4])
	for i := range s.Analog {
		s.Analog[i] = min(binary.LittleEndian.Uint16(b[4+2*i:]), AnalogMax)
	}
	return nil
}

// Latest holds the most recent RawState. Producers (input streams) call Set,
// the scan loop calls Get once per tick.
type Latest struct {
	mu    sync.RWMutex
	state RawState
}

// Idle is the state of a board nobody touches: every switch open and
// every analog input centered.
func Idle() RawState {
	var s RawState
	for i := range s.Analog {
		s.Analog[i] = AnalogMax / 2
	}
	return s
}

// NewLatest returns a holder starting at Idle.
func NewLatest() *Latest {
	return &Latest{state: Idle()}
}

func (l *Latest) Set(s RawState) {
	l.mu.Lock()
	l.state = s
	l.mu.Unlock()
}

func (l *Latest) Get() RawState {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}
