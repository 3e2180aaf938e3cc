package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/Alia5/jammaio/config"
	"github.com/Alia5/jammaio/internal/log"
	"github.com/Alia5/jammaio/mapping"
	"github.com/Alia5/jammaio/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	yaml "gopkg.in/yaml.v3"
)

var testStore = config.StoreConfig{Offset: 0x80, DefaultMode: config.ModeJoystickAndKeyboard}

func TestEepromImportThenDump(t *testing.T) {
	dir := t.TempDir()
	want := config.Defaults(config.ModeMouseAndKeyboard)
	want.DelayMicros = 750
	want.Digital[3].Name = "P1U"

	doc := filepath.Join(dir, "board.toml")
	var src bytes.Buffer
	require.NoError(t, config.EncodeDocument(&src, "toml", config.NewDocument(want)))
	require.NoError(t, os.WriteFile(doc, src.Bytes(), 0o644))

	var out bytes.Buffer
	im := &eepromImage{path: filepath.Join(dir, "img", "eeprom.bin"), size: 1024, store: testStore, out: &out}
	require.NoError(t, (&EepromImport{File: doc}).Run(im, log.Discard()))
	require.NoError(t, (&EepromDump{Format: "json"}).Run(im, log.Discard()))

	got, err := config.DecodeDocument(&out, "json")
	require.NoError(t, err)
	cfg, err := got.Config()
	require.NoError(t, err)
	assert.Equal(t, want, cfg)

	// The stored record carries a valid CRC and loads like any other.
	f, err := storage.OpenFile(im.path, 0)
	require.NoError(t, err)
	defer f.Close()
	store := config.NewStore(f, testStore, nil)
	require.NoError(t, store.Load())
	assert.Equal(t, config.ModeMouseAndKeyboard, store.Snapshot().Mode)
	assert.NotZero(t, store.Snapshot().CRC8)
}

func TestEepromDumpToFileGuessesFormat(t *testing.T) {
	dir := t.TempDir()
	im := &eepromImage{path: filepath.Join(dir, "eeprom.bin"), size: 1024, store: testStore, out: &bytes.Buffer{}}
	require.NoError(t, (&EepromReset{Mode: config.ModeKeyboard}).reset(im, config.ModeKeyboard, log.Discard()))

	dest := filepath.Join(dir, "out", "board.yml")
	require.NoError(t, (&EepromDump{Output: dest}).Run(im, log.Discard()))

	raw, err := os.ReadFile(dest)
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, yaml.Unmarshal(raw, &m))
	assert.Equal(t, "keyboard", m["mode"])
}

func TestEepromDumpRefusesBlankImage(t *testing.T) {
	im := &eepromImage{path: filepath.Join(t.TempDir(), "eeprom.bin"), size: 1024, store: testStore, out: &bytes.Buffer{}}
	assert.Error(t, (&EepromDump{}).Run(im, log.Discard()))
}

func TestEepromImportRejectsInvalidDocument(t *testing.T) {
	dir := t.TempDir()
	doc := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(doc, []byte("mode: joystick\ndigital:\n  - index: 40\n    kind: key\n    target: 97\n"), 0o644))

	im := &eepromImage{path: filepath.Join(dir, "eeprom.bin"), size: 1024, store: testStore, out: &bytes.Buffer{}}
	err := (&EepromImport{File: doc}).Run(im, log.Discard())
	assert.ErrorIs(t, err, config.ErrIndexOutOfRange)
}

func TestFormatFor(t *testing.T) {
	tests := []struct {
		explicit, path, want string
		wantErr              bool
	}{
		{"", "", "yaml", false},
		{"", "a.json", "json", false},
		{"", "a.TOML", "toml", false},
		{"", "a.bin", "yaml", false},
		{"yml", "a.json", "yaml", false},
		{"ini", "", "", true},
	}
	for _, tt := range tests {
		got, err := formatFor(tt.explicit, tt.path)
		if tt.wantErr {
			assert.Error(t, err)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "explicit=%q path=%q", tt.explicit, tt.path)
	}
}

func TestFeedState(t *testing.T) {
	st, err := (&Feed{Press: []int{0, 5, 31}, Analog: []uint16{0, 1023}}).state()
	require.NoError(t, err)
	assert.Equal(t, uint32(1|1<<5|1<<31), st.Digital)
	assert.Equal(t, [4]uint16{0, 1023, 511, 511}, st.Analog)

	_, err = (&Feed{Press: []int{32}}).state()
	assert.Error(t, err)
	_, err = (&Feed{Analog: []uint16{1024}}).state()
	assert.Error(t, err)
	_, err = (&Feed{Analog: []uint16{1, 2, 3, 4, 5}}).state()
	assert.Error(t, err)
}

func TestWriteDescriptors(t *testing.T) {
	c := config.Defaults(config.ModeJoystickAndKeyboard)
	var buf bytes.Buffer
	require.NoError(t, writeDescriptors(&buf, c.Mode, capsOf(c)))
	out := buf.String()
	assert.Contains(t, out, "keyboard: ")
	assert.Contains(t, out, "joystick (10 buttons, 2 axes, 1 hats")
	assert.NotContains(t, out, "mouse")
	assert.Contains(t, out, "  05 01 09 06 A1 01")

	buf.Reset()
	require.NoError(t, writeDescriptors(&buf, config.ModeNone, capsOf(c)))
	assert.Equal(t, "mode none exposes no HID device\n", buf.String())
}

func TestConfigInitUsesFlagNames(t *testing.T) {
	dir := t.TempDir()
	dest := filepath.Join(dir, "serve.yaml")
	require.NoError(t, (&ConfigInit{Command: "serve", Format: "yaml", Output: dest}).Run())

	raw, err := os.ReadFile(dest)
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, yaml.Unmarshal(raw, &m))

	assert.Equal(t, 1024, m["image_size"])
	store := m["store"].(map[string]any)
	assert.Equal(t, "joystick+keyboard", store["default_mode"])
	assert.Equal(t, 128, store["offset"])
	line := m["line"].(map[string]any)
	assert.Equal(t, ":3243", line["addr"])
	assert.Equal(t, "1s", line["write_timeout"])
	assert.NotContains(t, line, "guard")
	authCfg := m["auth"].(map[string]any)
	assert.Contains(t, authCfg, "key_file")
	assert.Equal(t, false, authCfg["loopback"])
	hid := m["hid"].(map[string]any)
	assert.Contains(t, hid, "joystick_1")

	err = (&ConfigInit{Command: "serve", Format: "yaml", Output: dest}).Run()
	assert.Error(t, err, "existing files need --force")
	require.NoError(t, (&ConfigInit{Command: "serve", Format: "yaml", Output: dest, Force: true}).Run())
}

func TestConfigInitSkipsSubcommands(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "ctl.json")
	require.NoError(t, (&ConfigInit{Command: "ctl", Format: "json", Output: dest}).Run())
	raw, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"addr": "localhost:3243"`)
	assert.NotContains(t, string(raw), "handshake")
	assert.NotContains(t, string(raw), "setdin")
	assert.Contains(t, string(raw), `"key_file"`)
}

func TestHostKeyResolve(t *testing.T) {
	key, err := HostKey{}.resolve()
	require.NoError(t, err)
	assert.Empty(t, key)

	path := filepath.Join(t.TempDir(), "jammaio.key")
	require.NoError(t, os.WriteFile(path, []byte("cabinet\n"), 0o600))
	key, err = HostKey{KeyFile: path}.resolve()
	require.NoError(t, err)
	assert.Equal(t, "cabinet", key)

	key, err = HostKey{Key: "flag", KeyFile: path}.resolve()
	require.NoError(t, err)
	assert.Equal(t, "flag", key)

	_, err = HostKey{KeyFile: filepath.Join(t.TempDir(), "missing")}.resolve()
	assert.Error(t, err)
}

func TestSystemdUnitContent(t *testing.T) {
	unit := systemdUnitContent("/usr/local/bin/jammaio", []string{"--watch", "--hid.keyboard=/dev/hidg0"})
	assert.Contains(t, unit, `ExecStart="/usr/local/bin/jammaio" serve "--watch" "--hid.keyboard=/dev/hidg0"`+"\n")
	assert.Contains(t, unit, "WorkingDirectory=/usr/local/bin\n")
}

func TestImageWatcherNotices(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("rename over an open file is not allowed on windows")
	}
	dir := t.TempDir()
	path := filepath.Join(dir, "eeprom.bin")
	require.NoError(t, os.WriteFile(path, []byte{1}, 0o644))

	changed := make(chan struct{}, 4)
	w, err := watchImage(path, log.Discard(), func() { changed <- struct{}{} })
	require.NoError(t, err)
	defer w.Close()

	wait := func(what string) {
		select {
		case <-changed:
		case <-time.After(3 * time.Second):
			t.Fatalf("no change reported after %s", what)
		}
	}

	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.bin"), []byte{1}, 0o644))
	require.NoError(t, os.WriteFile(path, []byte{2}, 0o644))
	wait("write")

	tmp := filepath.Join(dir, "eeprom.new")
	require.NoError(t, os.WriteFile(tmp, []byte{3}, 0o644))
	require.NoError(t, os.Rename(tmp, path))
	wait("rename")

	select {
	case <-changed:
		t.Fatal("unrelated file reported")
	case <-time.After(2 * watchDebounce):
	}
}

func TestMachineReloadAppliesRecord(t *testing.T) {
	mem := storage.NewMemory(1024)
	store := config.NewStore(mem, testStore, nil)
	require.NoError(t, store.Save())

	devs, closers, err := openDevices(HIDConfig{}, log.NewRaw(nil))
	require.NoError(t, err)
	assert.Empty(t, closers)
	engine := mapping.New(store, mapping.Backends{}, log.Discard())
	m := &machine{store: store, devs: devs, engine: engine, logger: log.Discard()}
	m.apply()
	assert.Equal(t, uint8(10), devs.joy.Capabilities().Buttons)

	// Another writer replaces the record.
	other := config.NewStore(mem, testStore, nil)
	other.ResetTo(config.ModeJoystick)
	require.NoError(t, other.Save())

	m.reload()
	assert.Equal(t, config.ModeJoystick, store.Snapshot().Mode)
	assert.Equal(t, uint8(12), devs.joy.Capabilities().Buttons)
	assert.False(t, store.Dirty())

	// A broken image leaves the live record alone.
	crc := mem.Bytes()[testStore.Offset]
	_, err = mem.WriteAt([]byte{^crc}, testStore.Offset)
	require.NoError(t, err)
	m.reload()
	assert.Equal(t, config.ModeJoystick, store.Snapshot().Mode)
}

func TestMachineRebootDropsUnsavedChanges(t *testing.T) {
	mem := storage.NewMemory(1024)
	store := config.NewStore(mem, testStore, nil)
	require.NoError(t, store.Save())

	devs, _, err := openDevices(HIDConfig{}, log.NewRaw(nil))
	require.NoError(t, err)
	m := &machine{store: store, devs: devs, engine: mapping.New(store, mapping.Backends{}, log.Discard()), logger: log.Discard()}
	m.apply()

	_, _, err = store.SetField("btns", "04")
	require.NoError(t, err)
	assert.Equal(t, uint8(4), store.Snapshot().JoyButtons)

	m.Reboot()
	assert.Equal(t, uint8(10), store.Snapshot().JoyButtons)
	assert.Equal(t, uint8(10), devs.joy.Capabilities().Buttons)
}
