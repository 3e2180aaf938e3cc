package board

import (
	"fmt"
	"sync"
)

const (
	DigitalOutputs = 4
	AnalogOutputs  = 4

	// OutputFrameSize is the wire size of an OutputState frame.
	OutputFrameSize = 1 + AnalogOutputs
)

// OutputState is the value of every output of the board.
//
// Wire layout: digital mask byte (bit i = output i) followed by one PWM byte
// per analog output.
type OutputState struct {
	Digital uint8
	Analog  [AnalogOutputs]uint8
}

func (o OutputState) MarshalBinary() ([]byte, error) {
	b := make([]byte, OutputFrameSize)
	b[0] = o.Digital
	copy(b[1:], o.Analog[:])
	return b, nil
}

func (o *OutputState) UnmarshalBinary(b []byte) error {
	if len(b) < OutputFrameSize {
		return fmt.Errorf("output state: need %d bytes, got %d", OutputFrameSize, len(b))
	}
	o.Digital = b[0]
	copy(o.Analog[:], b[1:OutputFrameSize])
	return nil
}

// Outputs stores the output values set through the protocol and notifies
// subscribers (the hardware side of input streams) of every change.
type Outputs struct {
	mu    sync.Mutex
	state OutputState
	subs  map[int]chan OutputState
	next  int
}

// NewOutputs returns outputs that are all off.
func NewOutputs() *Outputs {
	return &Outputs{subs: map[int]chan OutputState{}}
}

// SetDigitalOutputs sets the digital outputs from a bit mask.
func (o *Outputs) SetDigitalOutputs(mask uint8) {
	o.mu.Lock()
	defer o.mu.Unlock()
	mask &= 1<<DigitalOutputs - 1
	if o.state.Digital == mask {
		return
	}
	o.state.Digital = mask
	o.publish()
}

// SetAnalogOutput sets the PWM value of one channel. Unknown channels are ignored.
func (o *Outputs) SetAnalogOutput(channel int, value uint8) {
	if channel < 0 || channel >= AnalogOutputs {
		return
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state.Analog[channel] == value {
		return
	}
	o.state.Analog[channel] = value
	o.publish()
}

// State returns the current output values.
func (o *Outputs) State() OutputState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Subscribe returns a channel receiving the state after each change, starting
// with the current one. Slow readers only see the newest state. Call cancel to
// unsubscribe.
func (o *Outputs) Subscribe() (<-chan OutputState, func()) {
	o.mu.Lock()
	defer o.mu.Unlock()
	id := o.next
	o.next++
	ch := make(chan OutputState, 1)
	ch <- o.state
	o.subs[id] = ch
	return ch, func() {
		o.mu.Lock()
		defer o.mu.Unlock()
		if c, ok := o.subs[id]; ok {
			delete(o.subs, id)
			close(c)
		}
	}
}

func (o *Outputs) publish() {
	for _, ch := range o.subs {
		select {
		case <-ch:
		default:
		}
		ch <- o.state
	}
}
