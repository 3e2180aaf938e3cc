package keyboard

// Modifier key bitmasks
const (
	ModLeftCtrl   = 0x01
	ModLeftShift  = 0x02
	ModLeftAlt    = 0x04
	ModLeftGUI    = 0x08 // Windows/Command key
	ModRightCtrl  = 0x10
	ModRightShift = 0x20
	ModRightAlt   = 0x40 // AltGr on european layouts
	ModRightGUI   = 0x80
)

// HID Usage codes for keyboard keys (USB HID Keyboard/Keypad usage page)
const (
	// Letters A-Z
	KeyA = 0x04
	KeyB = 0x05
	KeyC = 0x06
	KeyD = 0x07
	KeyE = 0x08
	KeyF = 0x09
	KeyG = 0x0A
	KeyH = 0x0B
	KeyI = 0x0C
	KeyJ = 0x0D
	KeyK = 0x0E
	KeyL = 0x0F
	KeyM = 0x10
	KeyN = 0x11
	KeyO = 0x12
	KeyP = 0x13
	KeyQ = 0x14
	KeyR = 0x15
	KeyS = 0x16
	KeyT = 0x17
	KeyU = 0x18
	KeyV = 0x19
	KeyW = 0x1A
	KeyX = 0x1B
	KeyY = 0x1C
	KeyZ = 0x1D

	// Numbers 1-0 (top row)
	Key1 = 0x1E
	Key2 = 0x1F
	Key3 = 0x20
	Key4 = 0x21
	Key5 = 0x22
	Key6 = 0x23
	Key7 = 0x24
	Key8 = 0x25
	Key9 = 0x26
	Key0 = 0x27

	// Special keys
	KeyEnter      = 0x28
	KeyEscape     = 0x29
	KeyBackspace  = 0x2A
	KeyTab        = 0x2B
	KeySpace      = 0x2C
	KeyMinus      = 0x2D // - and _
	KeyEqual      = 0x2E // = and +
	KeyLeftBrace  = 0x2F // [ and {
	KeyRightBrace = 0x30 // ] and }
	KeyBackslash  = 0x31 // \ and |
	KeyNonUSHash  = 0x32 // Non-US # and ~
	KeySemicolon  = 0x33 // ; and :
	KeyApostrophe = 0x34 // ' and "
	KeyGrave      = 0x35 // ` and ~
	KeyComma      = 0x36 // , and <
	KeyPeriod     = 0x37 // . and >
	KeySlash      = 0x38 // / and ?
	KeyCapsLock   = 0x39

	// Function keys
	KeyF1  = 0x3A
	KeyF2  = 0x3B
	KeyF3  = 0x3C
	KeyF4  = 0x3D
	KeyF5  = 0x3E
	KeyF6  = 0x3F
	KeyF7  = 0x40
	KeyF8  = 0x41
	KeyF9  = 0x42
	KeyF10 = 0x43
	KeyF11 = 0x44
	KeyF12 = 0x45

	// Control keys
	KeyPrintScreen = 0x46
	KeyScrollLock  = 0x47
	KeyPause       = 0x48
	KeyInsert      = 0x49
	KeyHome        = 0x4A
	KeyPageUp      = 0x4B
	KeyDelete      = 0x4C
	KeyEnd         = 0x4D
	KeyPageDown    = 0x4E

	// Arrow keys
	KeyRight = 0x4F
	KeyLeft  = 0x50
	KeyDown  = 0x51
	KeyUp    = 0x52

	// Numpad
	KeyNumLock    = 0x53
	KeyKpSlash    = 0x54
	KeyKpAsterisk = 0x55
	KeyKpMinus    = 0x56
	KeyKpPlus     = 0x57
	KeyKpEnter    = 0x58
	KeyKp1        = 0x59
	KeyKp2        = 0x5A
	KeyKp3        = 0x5B
	KeyKp4        = 0x5C
	KeyKp5        = 0x5D
	KeyKp6        = 0x5E
	KeyKp7        = 0x5F
	KeyKp8        = 0x60
	KeyKp9        = 0x61
	KeyKp0        = 0x62
	KeyKpDot      = 0x63

	KeyNonUSBackslash = 0x64 // Non-US \ and |, the "<>" key on ISO boards
	KeyApplication    = 0x65

	// Extended function keys
	KeyF13 = 0x68
	KeyF14 = 0x69
	KeyF15 = 0x6A
	KeyF16 = 0x6B
	KeyF17 = 0x6C
	KeyF18 = 0x6D
	KeyF19 = 0x6E
	KeyF20 = 0x6F
	KeyF21 = 0x70
	KeyF22 = 0x71
	KeyF23 = 0x72
	KeyF24 = 0x73
)

// Key codes as stored in the mapping record. Codes below 0x80 are printable
// ASCII characters translated through the active Layout, 0x80-0x87 are the
// eight modifiers and codes from CodeUsageBase upward carry a raw HID usage
// (usage = code - CodeUsageBase). Code 0 means "no key".
const (
	CodeNone = 0x00

	CodeLeftCtrl   = 0x80
	CodeLeftShift  = 0x81
	CodeLeftAlt    = 0x82
	CodeLeftGUI    = 0x83
	CodeRightCtrl  = 0x84
	CodeRightShift = 0x85
	CodeRightAlt   = 0x86
	CodeRightGUI   = 0x87

	CodeUsageBase = 0x88

	CodeReturn     = CodeUsageBase + KeyEnter
	CodeEsc        = CodeUsageBase + KeyEscape
	CodeBackspace  = CodeUsageBase + KeyBackspace
	CodeTab        = CodeUsageBase + KeyTab
	CodeCapsLock   = CodeUsageBase + KeyCapsLock
	CodeInsert     = CodeUsageBase + KeyInsert
	CodeHome       = CodeUsageBase + KeyHome
	CodePageUp     = CodeUsageBase + KeyPageUp
	CodeDelete     = CodeUsageBase + KeyDelete
	CodeEnd        = CodeUsageBase + KeyEnd
	CodePageDown   = CodeUsageBase + KeyPageDown
	CodeRightArrow = CodeUsageBase + KeyRight
	CodeLeftArrow  = CodeUsageBase + KeyLeft
	CodeDownArrow  = CodeUsageBase + KeyDown
	CodeUpArrow    = CodeUsageBase + KeyUp

	CodeF1  = CodeUsageBase + KeyF1
	CodeF2  = CodeUsageBase + KeyF2
	CodeF3  = CodeUsageBase + KeyF3
	CodeF4  = CodeUsageBase + KeyF4
	CodeF5  = CodeUsageBase + KeyF5
	CodeF6  = CodeUsageBase + KeyF6
	CodeF7  = CodeUsageBase + KeyF7
	CodeF8  = CodeUsageBase + KeyF8
	CodeF9  = CodeUsageBase + KeyF9
	CodeF10 = CodeUsageBase + KeyF10
	CodeF11 = CodeUsageBase + KeyF11
	CodeF12 = CodeUsageBase + KeyF12

	CodeKpSlash    = CodeUsageBase + KeyKpSlash
	CodeKpAsterisk = CodeUsageBase + KeyKpAsterisk
	CodeKpMinus    = CodeUsageBase + KeyKpMinus
	CodeKpPlus     = CodeUsageBase + KeyKpPlus
	CodeKpEnter    = CodeUsageBase + KeyKpEnter
	CodeKp1        = CodeUsageBase + KeyKp1
	CodeKp2        = CodeUsageBase + KeyKp2
	CodeKp3        = CodeUsageBase + KeyKp3
	CodeKp4        = CodeUsageBase + KeyKp4
	CodeKp5        = CodeUsageBase + KeyKp5
	CodeKp6        = CodeUsageBase + KeyKp6
	CodeKp7        = CodeUsageBase + KeyKp7
	CodeKp8        = CodeUsageBase + KeyKp8
	CodeKp9        = CodeUsageBase + KeyKp9
	CodeKp0        = CodeUsageBase + KeyKp0
	CodeKpDot      = CodeUsageBase + KeyKpDot
)
