package client

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Alia5/jammaio/config"
	"github.com/Alia5/jammaio/protocol"
)

// pairs splits "k=v k=v" fields. Values may be empty.
func pairs(fields []string) map[string]string {
	m := make(map[string]string, len(fields))
	for _, f := range fields {
		k, v, ok := strings.Cut(f, "=")
		if ok {
			m[k] = v
		}
	}
	return m
}

func hexField(m map[string]string, key string, bits int) (uint64, error) {
	s, ok := m[key]
	if !ok {
		return 0, fmt.Errorf("missing %s", key)
	}
	v, err := strconv.ParseUint(s, 16, bits)
	if err != nil {
		return 0, fmt.Errorf("bad %s=%q", key, s)
	}
	return v, nil
}

// ParseStatus decodes a status frame.
func ParseStatus(frame string) (*protocol.Status, error) {
	body, ok := strings.CutPrefix(frame, "M")
	if !ok {
		return nil, fmt.Errorf("not a status frame: %q", frame)
	}
	m := pairs(strings.Fields(body))
	var st protocol.Status
	banks := []struct {
		key  string
		base int
	}{{"mcp1", config.Player1Base}, {"mcp2", config.Player2Base}, {"mcu", config.CabinetBase}}
	for _, b := range banks {
		v, err := hexField(m, b.key, 32)
		if err != nil {
			return nil, fmt.Errorf("status: %w", err)
		}
		st.Digital |= uint32(v) << b.base
	}
	for i := range st.Analog {
		v, err := hexField(m, fmt.Sprintf("an%d", i), 16)
		if err != nil {
			return nil, fmt.Errorf("status: %w", err)
		}
		st.Analog[i] = uint16(v)
	}
	do, err := hexField(m, "do", 8)
	if err != nil {
		return nil, fmt.Errorf("status: %w", err)
	}
	st.DigitalOut = uint8(do)
	for i := range st.AnalogOut {
		v, err := hexField(m, fmt.Sprintf("ao%d", i), 8)
		if err != nil {
			return nil, fmt.Errorf("status: %w", err)
		}
		st.AnalogOut[i] = uint8(v)
	}
	rr, err := strconv.ParseInt(m["rr"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("status: bad rr=%q", m["rr"])
	}
	st.ScanPeriod = time.Duration(rr) * time.Microsecond
	return &st, nil
}

// ParseDump rebuilds a configuration from the frames of an L command.
// Frames that are not part of the dump are skipped.
func ParseDump(frames []string) (*config.DeviceConfig, error) {
	c := &config.DeviceConfig{}
	var header bool
	digital := make([]bool, config.DigitalInputs)
	analog := make([]bool, config.AnalogInputs)
	for _, frame := range frames {
		fields := strings.Fields(frame)
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "Mcfg":
			if err := parseHeader(c, pairs(fields[1:])); err != nil {
				return nil, err
			}
			header = true
		case "Mdi":
			idx, err := parseIndex(fields, config.DigitalInputs)
			if err != nil {
				return nil, err
			}
			d, err := parseDigital(pairs(fields[2:]))
			if err != nil {
				return nil, fmt.Errorf("di %d: %w", idx, err)
			}
			c.Digital[idx] = d
			digital[idx] = true
		case "Mai":
			idx, err := parseIndex(fields, config.AnalogInputs)
			if err != nil {
				return nil, err
			}
			a, err := parseAnalog(pairs(fields[2:]))
			if err != nil {
				return nil, fmt.Errorf("ai %d: %w", idx, err)
			}
			c.Analog[idx] = a
			analog[idx] = true
		}
	}
	if !header {
		return nil, fmt.Errorf("dump: missing cfg line")
	}
	for i, ok := range digital {
		if !ok {
			return nil, fmt.Errorf("dump: missing di %d", i)
		}
	}
	for i, ok := range analog {
		if !ok {
			return nil, fmt.Errorf("dump: missing ai %d", i)
		}
	}
	return c, nil
}

func parseIndex(fields []string, limit int) (int, error) {
	if len(fields) < 2 {
		return 0, fmt.Errorf("dump: short line %q", strings.Join(fields, " "))
	}
	idx, err := strconv.Atoi(fields[1])
	if err != nil || idx < 0 || idx >= limit {
		return 0, fmt.Errorf("dump: bad index %q", fields[1])
	}
	return idx, nil
}

func parseHeader(c *config.DeviceConfig, m map[string]string) error {
	crc, err := hexField(m, "crc", 8)
	if err != nil {
		return fmt.Errorf("cfg: %w", err)
	}
	c.CRC8 = uint8(crc)
	for _, f := range config.Fields() {
		s, ok := m[f.Key()]
		if !ok {
			return fmt.Errorf("cfg: missing %s", f.Key())
		}
		v, err := config.ParseValue(f, s)
		if err != nil {
			return fmt.Errorf("cfg: %w", err)
		}
		if err := c.Set(f, v); err != nil {
			return fmt.Errorf("cfg: %w", err)
		}
	}
	return nil
}

func parseDigital(m map[string]string) (config.DigitalInput, error) {
	var d config.DigitalInput
	var vals [3]uint64
	for i, k := range []string{"tp", "mp", "sh"} {
		v, err := hexField(m, k, 8)
		if err != nil {
			return d, err
		}
		vals[i] = v
	}
	d.Kind = config.MappingKind(vals[0])
	d.Target = config.Target(vals[1])
	d.Shifted = config.Target(vals[2])
	d.Name = m["nm"]
	return d, nil
}

func parseAnalog(m map[string]string) (config.AnalogInput, error) {
	var a config.AnalogInput
	var vals [5]uint64
	for i, k := range []string{"tp", "po", "ne", "dmi", "dma"} {
		v, err := hexField(m, k, 8)
		if err != nil {
			return a, err
		}
		vals[i] = v
	}
	a.Kind = config.MappingKind(vals[0])
	a.Positive = config.Target(vals[1])
	a.Negative = config.Target(vals[2])
	a.DeadzoneMin = uint8(vals[3])
	a.DeadzoneMax = uint8(vals[4])
	a.Name = m["nm"]
	return a, nil
}
