package config

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Document is the human editable form of a DeviceConfig used by the eeprom
// export and import commands. Enums are spelled by name, inputs that are not
// listed are left unmapped.
type Document struct {
	Mode    EmulationMode  `yaml:"mode" toml:"mode" json:"mode"`
	Layout  KeyboardLayout `yaml:"layout" toml:"layout" json:"layout"`
	Delay   uint16         `yaml:"delay" toml:"delay" json:"delay"`
	Buttons uint8          `yaml:"buttons" toml:"buttons" json:"buttons"`
	Axes    uint8          `yaml:"axes" toml:"axes" json:"axes"`
	Hats    uint8          `yaml:"hats" toml:"hats" json:"hats"`
	Shift   uint8          `yaml:"shift" toml:"shift" json:"shift"`
	Digital []DigitalEntry `yaml:"digital" toml:"digital" json:"digital"`
	Analog  []AnalogEntry  `yaml:"analog" toml:"analog" json:"analog"`
}

type DigitalEntry struct {
	Index   int         `yaml:"index" toml:"index" json:"index"`
	Kind    MappingKind `yaml:"kind" toml:"kind" json:"kind"`
	Target  uint8       `yaml:"target" toml:"target" json:"target"`
	Shifted uint8       `yaml:"shifted,omitempty" toml:"shifted,omitempty" json:"shifted,omitempty"`
	Name    string      `yaml:"name,omitempty" toml:"name,omitempty" json:"name,omitempty"`
}

type AnalogEntry struct {
	Index       int         `yaml:"index" toml:"index" json:"index"`
	Kind        MappingKind `yaml:"kind" toml:"kind" json:"kind"`
	Positive    uint8       `yaml:"positive" toml:"positive" json:"positive"`
	Negative    uint8       `yaml:"negative,omitempty" toml:"negative,omitempty" json:"negative,omitempty"`
	DeadzoneMin uint8       `yaml:"deadzoneMin" toml:"deadzoneMin" json:"deadzoneMin"`
	DeadzoneMax uint8       `yaml:"deadzoneMax" toml:"deadzoneMax" json:"deadzoneMax"`
	Name        string      `yaml:"name,omitempty" toml:"name,omitempty" json:"name,omitempty"`
}

// NewDocument converts c. Unmapped digital inputs are omitted.
func NewDocument(c DeviceConfig) Document {
	d := Document{
		Mode:    c.Mode,
		Layout:  c.Layout,
		Delay:   c.DelayMicros,
		Buttons: c.JoyButtons,
		Axes:    c.JoyAxes,
		Hats:    c.JoyHats,
		Shift:   c.ShiftInput,
	}
	for i, in := range c.Digital {
		if in.Kind == KindNone && in.Target == 0 && in.Shifted == 0 && in.Name == "" {
			continue
		}
		d.Digital = append(d.Digital, DigitalEntry{
			Index:   i,
			Kind:    in.Kind,
			Target:  uint8(in.Target),
			Shifted: uint8(in.Shifted),
			Name:    in.Name,
		})
	}
	for i, in := range c.Analog {
		d.Analog = append(d.Analog, AnalogEntry{
			Index:       i,
			Kind:        in.Kind,
			Positive:    uint8(in.Positive),
			Negative:    uint8(in.Negative),
			DeadzoneMin: in.DeadzoneMin,
			DeadzoneMax: in.DeadzoneMax,
			Name:        in.Name,
		})
	}
	return d
}

// Config builds and validates the record described by d. The CRC is left
// to the store.
func (d Document) Config() (DeviceConfig, error) {
	c := DeviceConfig{
		Mode:        d.Mode,
		Layout:      d.Layout,
		DelayMicros: d.Delay,
		JoyButtons:  d.Buttons,
		JoyAxes:     d.Axes,
		JoyHats:     d.Hats,
		ShiftInput:  d.Shift,
	}
	seen := make(map[int]bool, len(d.Digital))
	for _, e := range d.Digital {
		if e.Index < 0 || e.Index >= DigitalInputs {
			return DeviceConfig{}, fmt.Errorf("%w: digital input %d", ErrIndexOutOfRange, e.Index)
		}
		if seen[e.Index] {
			return DeviceConfig{}, fmt.Errorf("%w: digital input %d listed twice", ErrInvalidValue, e.Index)
		}
		seen[e.Index] = true
		c.Digital[e.Index] = DigitalInput{Kind: e.Kind, Target: Target(e.Target), Shifted: Target(e.Shifted), Name: e.Name}
	}
	clear(seen)
	for _, e := range d.Analog {
		if e.Index < 0 || e.Index >= AnalogInputs {
			return DeviceConfig{}, fmt.Errorf("%w: analog input %d", ErrIndexOutOfRange, e.Index)
		}
		if seen[e.Index] {
			return DeviceConfig{}, fmt.Errorf("%w: analog input %d listed twice", ErrInvalidValue, e.Index)
		}
		seen[e.Index] = true
		c.Analog[e.Index] = AnalogInput{
			Kind:        e.Kind,
			Positive:    Target(e.Positive),
			Negative:    Target(e.Negative),
			DeadzoneMin: e.DeadzoneMin,
			DeadzoneMax: e.DeadzoneMax,
			Name:        e.Name,
		}
	}
	if err := c.Validate(); err != nil {
		return DeviceConfig{}, err
	}
	return c, nil
}

// Formats lists the document encodings understood by EncodeDocument and
// DecodeDocument.
var Formats = []string{"yaml", "toml", "json"}

// NormalizeFormat maps a format name or file extension to one of Formats,
// or "" when unknown.
func NormalizeFormat(f string) string {
	switch strings.ToLower(strings.TrimPrefix(f, ".")) {
	case "yaml", "yml":
		return "yaml"
	case "toml":
		return "toml"
	case "json":
		return "json"
	}
	return ""
}

// EncodeDocument writes d to w in format.
func EncodeDocument(w io.Writer, format string, d Document) error {
	switch NormalizeFormat(format) {
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(d); err != nil {
			return err
		}
		return enc.Close()
	case "toml":
		return toml.NewEncoder(w).Encode(d)
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(d)
	}
	return fmt.Errorf("unsupported format: %s", format)
}

// DecodeDocument reads a document in format from r. Unknown keys are
// rejected so typos do not silently unmap an input.
func DecodeDocument(r io.Reader, format string) (Document, error) {
	var d Document
	switch NormalizeFormat(format) {
	case "yaml":
		dec := yaml.NewDecoder(r)
		dec.KnownFields(true)
		if err := dec.Decode(&d); err != nil {
			return Document{}, fmt.Errorf("decode yaml: %w", err)
		}
	case "toml":
		md, err := toml.NewDecoder(r).Decode(&d)
		if err != nil {
			return Document{}, fmt.Errorf("decode toml: %w", err)
		}
		if keys := md.Undecoded(); len(keys) > 0 {
			return Document{}, fmt.Errorf("decode toml: unknown key %s", keys[0])
		}
	case "json":
		dec := json.NewDecoder(r)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&d); err != nil {
			return Document{}, fmt.Errorf("decode json: %w", err)
		}
	default:
		return Document{}, fmt.Errorf("unsupported format: %s", format)
	}
	return d, nil
}
