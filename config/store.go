package config

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/Alia5/jammaio/storage"
)

// StoreConfig represents the record placement and reset policy.
type StoreConfig struct {
	Offset      int64         `help:"Byte offset of the configuration record in the EEPROM image" default:"128" env:"JAMMAIO_EEPROM_OFFSET"`
	DefaultMode EmulationMode `help:"Emulation mode used when the record is reset" default:"joystick+keyboard" env:"JAMMAIO_DEFAULT_MODE"`
}

// Store owns the live configuration record. All access goes through one
// RWMutex so a half-updated record is never observed by readers or by Save.
type Store struct {
	mu     sync.RWMutex
	cfg    DeviceConfig
	dirty  bool
	eeprom storage.EEPROM
	config StoreConfig
	logger *slog.Logger
}

// NewStore returns a store over eeprom holding the defaults for
// config.DefaultMode. Call Load or LoadOrReset to pick up the stored record.
func NewStore(eeprom storage.EEPROM, config StoreConfig, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Store{
		cfg:    Defaults(config.DefaultMode),
		dirty:  true,
		eeprom: eeprom,
		config: config,
		logger: logger,
	}
}

func (s *Store) fits() error {
	if s.eeprom == nil || int64(s.eeprom.Capacity()) < s.config.Offset+RecordSize {
		capacity := 0
		if s.eeprom != nil {
			capacity = s.eeprom.Capacity()
		}
		return fmt.Errorf("%w: need %d bytes at offset %d, have %d", ErrStorageTooSmall, RecordSize, s.config.Offset, capacity)
	}
	return nil
}

// Load replaces the live record with the stored one. On any failure the live
// record is left untouched.
func (s *Store) Load() error {
	if err := s.fits(); err != nil {
		return err
	}
	raw := make([]byte, RecordSize)
	if _, err := s.eeprom.ReadAt(raw, s.config.Offset); err != nil {
		return fmt.Errorf("read record: %w", err)
	}
	if sum := Checksum(raw); sum != raw[0] {
		return fmt.Errorf("%w: stored %#02x, computed %#02x", ErrCrcMismatch, raw[0], sum)
	}
	var next DeviceConfig
	if err := next.UnmarshalBinary(raw); err != nil {
		return fmt.Errorf("%w: %w", ErrCrcMismatch, err)
	}

	s.mu.Lock()
	s.cfg = next
	s.dirty = false
	s.mu.Unlock()
	s.logger.Debug("configuration loaded", "mode", next.Mode, "crc", fmt.Sprintf("%02X", next.CRC8))
	return nil
}

// Save stamps the live record with its CRC and writes it out.
func (s *Store) Save() error {
	if err := s.fits(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := s.cfg.MarshalBinary()
	if err != nil {
		return err
	}
	raw[0] = Checksum(raw)
	if _, err := s.eeprom.WriteAt(raw, s.config.Offset); err != nil {
		return fmt.Errorf("write record: %w", err)
	}
	s.cfg.CRC8 = raw[0]
	s.dirty = false
	s.logger.Debug("configuration saved", "crc", fmt.Sprintf("%02X", raw[0]))
	return nil
}

// Reset replaces the live record with the defaults of the configured mode.
// Nothing is written until Save.
func (s *Store) Reset() {
	s.ResetTo(s.config.DefaultMode)
}

// ResetTo replaces the live record with the defaults of mode.
func (s *Store) ResetTo(mode EmulationMode) {
	d := Defaults(mode)
	s.mu.Lock()
	s.cfg = d
	s.dirty = true
	s.mu.Unlock()
}

// LoadOrReset loads the stored record and falls back to defaults when that
// fails. The returned error is the load failure, for logging only.
func (s *Store) LoadOrReset() error {
	err := s.Load()
	if err != nil {
		s.logger.Warn("stored configuration unusable, using defaults", "error", err, "mode", s.config.DefaultMode)
		s.Reset()
	}
	return err
}

// View calls fn with the live record under the read lock. fn must not keep
// the pointer or mutate through it.
func (s *Store) View(fn func(c *DeviceConfig)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(&s.cfg)
}

// Snapshot returns a copy of the live record.
func (s *Store) Snapshot() DeviceConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// Update applies fn to a copy of the live record and swaps it in only when fn
// returns nil and the result validates.
func (s *Store) Update(fn func(c *DeviceConfig) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.cfg
	if err := fn(&next); err != nil {
		return err
	}
	if err := next.Validate(); err != nil {
		return err
	}
	if next != s.cfg {
		s.cfg = next
		s.dirty = true
	}
	return nil
}

// Replace validates c and makes it the live record.
func (s *Store) Replace(c DeviceConfig) error {
	return s.Update(func(cur *DeviceConfig) error {
		*cur = c
		return nil
	})
}

// Dirty reports whether the live record differs from what was last loaded or
// saved. The stored CRC is only meaningful while Dirty is false.
func (s *Store) Dirty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dirty
}

// GetField returns the value of the field named key.
func (s *Store) GetField(key string) (Field, uint32, error) {
	f, err := LookupField(key)
	if err != nil {
		return 0, 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, err := s.cfg.Get(f)
	return f, v, err
}

// SetField parses hex text and stores it in the field named key.
func (s *Store) SetField(key, text string) (Field, uint32, error) {
	f, err := LookupField(key)
	if err != nil {
		return 0, 0, err
	}
	v, err := ParseValue(f, text)
	if err != nil {
		return f, 0, err
	}
	err = s.Update(func(c *DeviceConfig) error { return c.Set(f, v) })
	return f, v, err
}

// SetDigital replaces digital input index.
func (s *Store) SetDigital(index int, d DigitalInput) error {
	if index < 0 || index >= DigitalInputs {
		return fmt.Errorf("%w: digital input %d", ErrIndexOutOfRange, index)
	}
	return s.Update(func(c *DeviceConfig) error {
		c.Digital[index] = d
		return nil
	})
}

// SetAnalog replaces analog input index.
func (s *Store) SetAnalog(index int, a AnalogInput) error {
	if index < 0 || index >= AnalogInputs {
		return fmt.Errorf("%w: analog input %d", ErrIndexOutOfRange, index)
	}
	return s.Update(func(c *DeviceConfig) error {
		c.Analog[index] = a
		return nil
	})
}
