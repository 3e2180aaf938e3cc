// Package client talks to a running board over its line protocol and its
// raw input stream.
package client

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/Alia5/jammaio/config"
	"github.com/Alia5/jammaio/protocol"
)

// Client provides a high-level interface to the command protocol, handling
// request formatting, reply matching, and S frame decoding.
type Client struct{ transport *Transport }

// New constructs a client for the line protocol listening on addr (host:port).
func New(addr string) *Client { return &Client{transport: NewTransport(addr)} }

// NewWithConfig constructs a client with custom transport timeouts.
func NewWithConfig(addr string, cfg *Config) *Client {
	return &Client{transport: NewTransportWithConfig(addr, cfg)}
}

// WithTransport constructs a Client using a custom Transport implementation.
// This is primarily useful for testing.
func WithTransport(t *Transport) *Client { return &Client{transport: t} }

// Raw sends line verbatim and returns every frame received until the
// connection goes quiet.
func (c *Client) Raw(ctx context.Context, line string) ([]string, error) {
	return c.transport.DoCtx(ctx, line, nil)
}

// Handshake returns the protocol version announced by the board.
func (c *Client) Handshake(ctx context.Context) (major, minor uint16, err error) {
	frame, err := c.expect(ctx, "?", func(f string) bool { return strings.HasPrefix(f, "?") })
	if err != nil {
		return 0, 0, err
	}
	if len(frame) != 9 {
		return 0, 0, fmt.Errorf("malformed handshake %q", frame)
	}
	ma, err := strconv.ParseUint(frame[1:5], 16, 16)
	if err != nil {
		return 0, 0, fmt.Errorf("malformed handshake %q", frame)
	}
	mi, err := strconv.ParseUint(frame[5:9], 16, 16)
	if err != nil {
		return 0, 0, fmt.Errorf("malformed handshake %q", frame)
	}
	return uint16(ma), uint16(mi), nil
}

// Version returns the firmware identification string.
func (c *Client) Version(ctx context.Context) (string, error) {
	return c.expect(ctx, "V", func(f string) bool {
		return f != "" && f[0] != 'M' && f[0] != '?'
	})
}

// Get reads one configuration field.
func (c *Client) Get(ctx context.Context, key string) (uint32, error) {
	return c.field(ctx, "$get "+key, key)
}

// Set writes one configuration field in RAM and returns the stored value.
func (c *Client) Set(ctx context.Context, key string, value uint32) (uint32, error) {
	text := strconv.FormatUint(uint64(value), 16)
	if f, err := config.LookupField(key); err == nil {
		text = config.FormatValue(f, value)
	}
	return c.field(ctx, "$set "+key+"="+text, key)
}

func (c *Client) field(ctx context.Context, line, key string) (uint32, error) {
	prefix := "M" + key + "="
	frame, err := c.expect(ctx, line, func(f string) bool { return strings.HasPrefix(f, prefix) })
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseUint(strings.TrimPrefix(frame, prefix), 16, 32)
	if err != nil {
		return 0, fmt.Errorf("malformed reply %q", frame)
	}
	return uint32(v), nil
}

// SetDigitalInput replaces the mapping of digital input idx.
func (c *Client) SetDigitalInput(ctx context.Context, idx int, d config.DigitalInput) error {
	line := fmt.Sprintf("$setdin %02X %02X %02X %02X", idx, uint8(d.Kind), uint8(d.Target), uint8(d.Shifted))
	if d.Name != "" {
		line += " " + d.Name
	}
	prefix := fmt.Sprintf("Mdi %d ", idx)
	_, err := c.expect(ctx, line, func(f string) bool { return strings.HasPrefix(f, prefix) })
	return err
}

// SetAnalogInput replaces the mapping of analog input idx.
func (c *Client) SetAnalogInput(ctx context.Context, idx int, a config.AnalogInput) error {
	line := fmt.Sprintf("$setain %02X %02X %02X %02X %02X %02X", idx, uint8(a.Kind),
		uint8(a.Positive), uint8(a.Negative), a.DeadzoneMin, a.DeadzoneMax)
	if a.Name != "" {
		line += " " + a.Name
	}
	prefix := fmt.Sprintf("Mai %d ", idx)
	_, err := c.expect(ctx, line, func(f string) bool { return strings.HasPrefix(f, prefix) })
	return err
}

// Save persists the RAM configuration.
func (c *Client) Save(ctx context.Context) error { return c.eeprom(ctx, "savecfg", "save") }

// Load replaces the RAM configuration with the persisted one.
func (c *Client) Load(ctx context.Context) error { return c.eeprom(ctx, "loadcfg", "load") }

// Reset restores the factory defaults and persists them.
func (c *Client) Reset(ctx context.Context) error { return c.eeprom(ctx, "resetcfg", "reset") }

func (c *Client) eeprom(ctx context.Context, keyword, verb string) error {
	want := "MEEPROM " + verb
	_, err := c.expect(ctx, "$"+keyword, func(f string) bool { return f == want })
	return err
}

// SetDigitalOutputs drives the four digital outputs.
func (c *Client) SetDigitalOutputs(ctx context.Context, mask uint8) error {
	_, err := c.transport.DoCtx(ctx, fmt.Sprintf("O%02X", mask&0x0F), NoReply)
	return err
}

// SetAnalogOutputs drives the PWM channels selected by the low bits of
// channels to duty.
func (c *Client) SetAnalogOutputs(ctx context.Context, channels, duty uint8) error {
	_, err := c.transport.DoCtx(ctx, fmt.Sprintf("P%X%02X", channels&0x0F, duty), NoReply)
	return err
}

// SetEmulation enables or disables HID emulation.
func (c *Client) SetEmulation(ctx context.Context, enabled bool) error {
	line := "e"
	if enabled {
		line = "E"
	}
	_, err := c.transport.DoCtx(ctx, line, NoReply)
	return err
}

// Status requests one status frame.
func (c *Client) Status(ctx context.Context) (*protocol.Status, error) {
	frame, err := c.expect(ctx, "U", func(f string) bool { return strings.HasPrefix(f, "Mmcp1=") })
	if err != nil {
		return nil, err
	}
	return ParseStatus(frame)
}

// Dump reads the whole RAM configuration with the L command.
func (c *Client) Dump(ctx context.Context) (*config.DeviceConfig, error) {
	last := fmt.Sprintf("Mai %d ", config.AnalogInputs-1)
	frames, err := c.transport.DoCtx(ctx, "L", func(fs []string) bool {
		return len(fs) > 0 && strings.HasPrefix(fs[len(fs)-1], last)
	})
	if err != nil {
		return nil, err
	}
	return ParseDump(frames)
}

// expect sends line and returns the first frame accepted by match. An S
// frame received first is returned as a protocol.StatusError.
func (c *Client) expect(ctx context.Context, line string, match func(string) bool) (string, error) {
	var hit string
	var status *protocol.StatusError
	_, err := c.transport.DoCtx(ctx, line, func(frames []string) bool {
		if len(frames) == 0 {
			return false
		}
		f := frames[len(frames)-1]
		if se, ok := protocol.ParseStatusFrame(f); ok {
			status = &se
			return true
		}
		if match(f) {
			hit = f
			return true
		}
		return false
	})
	if status != nil {
		return "", *status
	}
	if err != nil {
		return "", err
	}
	return hit, nil
}
