package keyboard

// Stroke is the HID usage plus the modifiers a layout needs to type one character.
type Stroke struct {
	Usage     uint8
	Modifiers uint8
}

// Layout translates printable ASCII to strokes for one host keyboard layout.
type Layout struct {
	Name    string
	strokes [128]Stroke
}

// Lookup returns the stroke for ch, or ok=false when the layout cannot type it.
func (l *Layout) Lookup(ch byte) (Stroke, bool) {
	if ch >= 128 {
		return Stroke{}, false
	}
	s := l.strokes[ch]
	return s, s.Usage != 0
}

// Layout indices as stored in the configuration record.
const (
	LayoutIndexUS = iota
	LayoutIndexFR
	LayoutIndexDE
	LayoutIndexIT
	LayoutIndexES
)

var (
	LayoutUS = newLayout("en-US", nil)
	LayoutFR = newLayout("fr-FR", frOverrides)
	LayoutDE = newLayout("de-DE", deOverrides)
	LayoutIT = newLayout("it-IT", itOverrides)
	LayoutES = newLayout("es-ES", esOverrides)
)

// LayoutByIndex returns the layout for a record index, falling back to en-US.
func LayoutByIndex(i uint8) *Layout {
	switch i {
	case LayoutIndexFR:
		return LayoutFR
	case LayoutIndexDE:
		return LayoutDE
	case LayoutIndexIT:
		return LayoutIT
	case LayoutIndexES:
		return LayoutES
	default:
		return LayoutUS
	}
}

func newLayout(name string, overrides map[byte]Stroke) *Layout {
	l := &Layout{Name: name}
	for ch, usage := range usChars {
		var mods uint8
		if usShifted[ch] {
			mods = ModLeftShift
		}
		l.strokes[ch] = Stroke{Usage: usage, Modifiers: mods}
	}
	for ch, s := range overrides {
		l.strokes[ch] = s
	}
	return l
}

func plain(u uint8) Stroke   { return Stroke{Usage: u} }
func shifted(u uint8) Stroke { return Stroke{Usage: u, Modifiers: ModLeftShift} }
func altgr(u uint8) Stroke   { return Stroke{Usage: u, Modifiers: ModRightAlt} }

// usChars maps ASCII characters to their en-US HID usage codes.
var usChars = map[byte]uint8{
	'a': KeyA, 'b': KeyB, 'c': KeyC, 'd': KeyD, 'e': KeyE, 'f': KeyF, 'g': KeyG,
	'h': KeyH, 'i': KeyI, 'j': KeyJ, 'k': KeyK, 'l': KeyL, 'm': KeyM, 'n': KeyN,
	'o': KeyO, 'p': KeyP, 'q': KeyQ, 'r': KeyR, 's': KeyS, 't': KeyT, 'u': KeyU,
	'v': KeyV, 'w': KeyW, 'x': KeyX, 'y': KeyY, 'z': KeyZ,

	'A': KeyA, 'B': KeyB, 'C': KeyC, 'D': KeyD, 'E': KeyE, 'F': KeyF, 'G': KeyG,
	'H': KeyH, 'I': KeyI, 'J': KeyJ, 'K': KeyK, 'L': KeyL, 'M': KeyM, 'N': KeyN,
	'O': KeyO, 'P': KeyP, 'Q': KeyQ, 'R': KeyR, 'S': KeyS, 'T': KeyT, 'U': KeyU,
	'V': KeyV, 'W': KeyW, 'X': KeyX, 'Y': KeyY, 'Z': KeyZ,

	'1': Key1, '2': Key2, '3': Key3, '4': Key4, '5': Key5,
	'6': Key6, '7': Key7, '8': Key8, '9': Key9, '0': Key0,

	'!': Key1, '@': Key2, '#': Key3, '$': Key4, '%': Key5,
	'^': Key6, '&': Key7, '*': Key8, '(': Key9, ')': Key0,

	'-': KeyMinus, '=': KeyEqual, '[': KeyLeftBrace, ']': KeyRightBrace,
	'\\': KeyBackslash, ';': KeySemicolon, '\'': KeyApostrophe, '`': KeyGrave,
	',': KeyComma, '.': KeyPeriod, '/': KeySlash,

	'_': KeyMinus, '+': KeyEqual, '{': KeyLeftBrace, '}': KeyRightBrace,
	'|': KeyBackslash, ':': KeySemicolon, '"': KeyApostrophe, '~': KeyGrave,
	'<': KeyComma, '>': KeyPeriod, '?': KeySlash,

	' ':  KeySpace,
	'\n': KeyEnter,
	'\r': KeyEnter,
	'\t': KeyTab,
	0x08: KeyBackspace,
	0x1B: KeyEscape,
}

// usShifted lists the characters that need Shift on en-US.
var usShifted = map[byte]bool{
	'A': true, 'B': true, 'C': true, 'D': true, 'E': true, 'F': true, 'G': true,
	'H': true, 'I': true, 'J': true, 'K': true, 'L': true, 'M': true, 'N': true,
	'O': true, 'P': true, 'Q': true, 'R': true, 'S': true, 'T': true, 'U': true,
	'V': true, 'W': true, 'X': true, 'Y': true, 'Z': true,

	'!': true, '@': true, '#': true, '$': true, '%': true,
	'^': true, '&': true, '*': true, '(': true, ')': true,

	'_': true, '+': true, '{': true, '}': true, '|': true,
	':': true, '"': true, '~': true, '<': true, '>': true, '?': true,
}

// AZERTY. Dead keys (^, ¨) are left on their en-US position.
var frOverrides = map[byte]Stroke{
	'a': plain(KeyQ), 'A': shifted(KeyQ),
	'q': plain(KeyA), 'Q': shifted(KeyA),
	'z': plain(KeyW), 'Z': shifted(KeyW),
	'w': plain(KeyZ), 'W': shifted(KeyZ),
	'm': plain(KeySemicolon), 'M': shifted(KeySemicolon),

	'1': shifted(Key1), '2': shifted(Key2), '3': shifted(Key3), '4': shifted(Key4),
	'5': shifted(Key5), '6': shifted(Key6), '7': shifted(Key7), '8': shifted(Key8),
	'9': shifted(Key9), '0': shifted(Key0),

	'&': plain(Key1), '"': plain(Key3), '\'': plain(Key4), '(': plain(Key5),
	'-': plain(Key6), '_': plain(Key8), ')': plain(KeyMinus), '=': plain(KeyEqual),
	'+': shifted(KeyEqual),
	',': plain(KeyM), '?': shifted(KeyM),
	';': plain(KeyComma), '.': shifted(KeyComma),
	':': plain(KeyPeriod), '/': shifted(KeyPeriod),
	'!': plain(KeySlash),
	'$': plain(KeyRightBrace),
	'*': plain(KeyNonUSHash),
	'%': shifted(KeyApostrophe),
	'<': plain(KeyNonUSBackslash), '>': shifted(KeyNonUSBackslash),

	'~': altgr(Key2), '#': altgr(Key3), '{': altgr(Key4), '[': altgr(Key5),
	'|': altgr(Key6), '`': altgr(Key7), '\\': altgr(Key8), '@': altgr(Key0),
	']': altgr(KeyMinus), '}': altgr(KeyEqual),
}

// QWERTZ.
var deOverrides = map[byte]Stroke{
	'y': plain(KeyZ), 'Y': shifted(KeyZ),
	'z': plain(KeyY), 'Z': shifted(KeyY),

	'"': shifted(Key2), '&': shifted(Key6), '/': shifted(Key7), '(': shifted(Key8),
	')': shifted(Key9), '=': shifted(Key0), '?': shifted(KeyMinus),
	'-': plain(KeySlash), '_': shifted(KeySlash),
	'+': plain(KeyRightBrace), '*': shifted(KeyRightBrace),
	'#': plain(KeyNonUSHash), '\'': shifted(KeyNonUSHash),
	';': shifted(KeyComma), ':': shifted(KeyPeriod),
	'<': plain(KeyNonUSBackslash), '>': shifted(KeyNonUSBackslash),
	'^': plain(KeyGrave),

	'@': altgr(KeyQ), '{': altgr(Key7), '[': altgr(Key8), ']': altgr(Key9),
	'}': altgr(Key0), '\\': altgr(KeyMinus), '~': altgr(KeyRightBrace),
	'|': altgr(KeyNonUSBackslash),
}

var itOverrides = map[byte]Stroke{
	'"': shifted(Key2), '&': shifted(Key6), '/': shifted(Key7), '(': shifted(Key8),
	')': shifted(Key9), '=': shifted(Key0),
	'\'': plain(KeyMinus), '?': shifted(KeyMinus), '^': shifted(KeyEqual),
	'-': plain(KeySlash), '_': shifted(KeySlash),
	'+': plain(KeyRightBrace), '*': shifted(KeyRightBrace),
	';': shifted(KeyComma), ':': shifted(KeyPeriod),
	'<': plain(KeyNonUSBackslash), '>': shifted(KeyNonUSBackslash),
	'\\': plain(KeyGrave), '|': shifted(KeyGrave),

	'@': altgr(KeySemicolon), '#': altgr(KeyApostrophe),
	'[': altgr(KeyLeftBrace), ']': altgr(KeyRightBrace),
}

var esOverrides = map[byte]Stroke{
	'"': shifted(Key2), '&': shifted(Key6), '/': shifted(Key7), '(': shifted(Key8),
	')': shifted(Key9), '=': shifted(Key0),
	'\'': plain(KeyMinus), '?': shifted(KeyMinus),
	'-': plain(KeySlash), '_': shifted(KeySlash),
	'+': plain(KeyRightBrace), '*': shifted(KeyRightBrace),
	';': shifted(KeyComma), ':': shifted(KeyPeriod),
	'<': plain(KeyNonUSBackslash), '>': shifted(KeyNonUSBackslash),

	'|': altgr(Key1), '@': altgr(Key2), '#': altgr(Key3), '\\': altgr(KeyGrave),
	'[': altgr(KeyLeftBrace), ']': altgr(KeyRightBrace),
	'{': altgr(KeyApostrophe), '}': altgr(KeyBackslash),
}
