// Package protocol implements the line-oriented serial command protocol of the
// board: a parser producing tagged commands and an interpreter that executes
// them against the configuration store and the board collaborators.
package protocol

import (
	"strconv"
	"strings"

	"github.com/Alia5/jammaio/config"
)

// Op identifies a protocol command.
type Op uint8

const (
	OpReboot         Op = iota + 1 // ~
	OpDebugOn                      // D
	OpDebugOff                     // d
	OpHandshake                    // ?
	OpVersion                      // V
	OpStatus                       // U
	OpStreamStart                  // S
	OpStreamStop                   // H
	OpEmulationOn                  // E
	OpEmulationOff                 // e
	OpDigitalOutputs               // OXX
	OpAnalogOutput                 // PXYY
	OpDump                         // L
	OpKeyword                      // $keyword args
)

var opLetters = map[byte]Op{
	'~': OpReboot,
	'D': OpDebugOn,
	'd': OpDebugOff,
	'?': OpHandshake,
	'V': OpVersion,
	'U': OpStatus,
	'S': OpStreamStart,
	'H': OpStreamStop,
	'E': OpEmulationOn,
	'e': OpEmulationOff,
	'O': OpDigitalOutputs,
	'P': OpAnalogOutput,
	'L': OpDump,
	'$': OpKeyword,
}

// Letter returns the wire letter of the op.
func (o Op) Letter() byte {
	for c, op := range opLetters {
		if op == o {
			return c
		}
	}
	return 0
}

// endsLine reports whether the rest of the line is ignored after the op.
func (o Op) endsLine() bool {
	switch o {
	case OpHandshake, OpVersion, OpStreamStart, OpStreamStop,
		OpEmulationOn, OpEmulationOff, OpDump, OpKeyword:
		return true
	}
	return false
}

// operandDigits is the number of inline hex digits consumed by the op.
func (o Op) operandDigits() int {
	switch o {
	case OpDigitalOutputs:
		return 2
	case OpAnalogOutput:
		return 3
	}
	return 0
}

// Keyword selects the handler of a $ command.
type Keyword uint8

const (
	KeywordResetCfg Keyword = iota + 1
	KeywordLoadCfg
	KeywordSaveCfg
	KeywordGet
	KeywordSet
	KeywordHelp
	KeywordSetDigital
	KeywordSetAnalog
)

var keywordNames = [...]string{
	KeywordResetCfg:   "resetcfg",
	KeywordLoadCfg:    "loadcfg",
	KeywordSaveCfg:    "savecfg",
	KeywordGet:        "get",
	KeywordSet:        "set",
	KeywordHelp:       "help",
	KeywordSetDigital: "setdin",
	KeywordSetAnalog:  "setain",
}

// Keywords lists every keyword in help order.
func Keywords() []Keyword {
	out := make([]Keyword, 0, len(keywordNames)-1)
	for k := KeywordResetCfg; int(k) < len(keywordNames); k++ {
		out = append(out, k)
	}
	return out
}

func (k Keyword) String() string {
	if k > 0 && int(k) < len(keywordNames) {
		return keywordNames[k]
	}
	return "keyword(" + strconv.Itoa(int(k)) + ")"
}

// LookupKeyword resolves a keyword by its wire name.
func LookupKeyword(name string) (Keyword, bool) {
	for _, k := range Keywords() {
		if keywordNames[k] == name {
			return k, true
		}
	}
	return 0, false
}

// Command is one parsed protocol command.
type Command struct {
	Op Op
	// Value is the hex operand of O and P.
	Value uint16
	// Keyword and Args are set for OpKeyword. Args is trimmed.
	Keyword Keyword
	Args    string
}

// Parse splits one inbound line into commands. Commands that end a frame stop
// the scan, the others may be chained ("DU", "O03P1FF"). On a bad byte Parse
// returns the commands read so far together with the error, so a caller
// can still run what preceded it the way the board does.
func Parse(line string) ([]Command, error) {
	line = strings.TrimRight(line, "\r\n")
	var cmds []Command
	for i := 0; i < len(line); {
		op, ok := opLetters[line[i]]
		if !ok {
			return cmds, ErrUnknownCommand(line)
		}
		i++

		if op == OpKeyword {
			cmd, err := parseKeyword(line[i:])
			if err != nil {
				return cmds, err
			}
			return append(cmds, cmd), nil
		}

		cmd := Command{Op: op}
		if n := op.operandDigits(); n > 0 {
			if i+n > len(line) {
				return cmds, ErrInvalidArgument(line[i-1:])
			}
			v, err := strconv.ParseUint(line[i:i+n], 16, 16)
			if err != nil {
				return cmds, ErrInvalidArgument(line[i-1 : i+n])
			}
			cmd.Value = uint16(v)
			i += n
		}
		cmds = append(cmds, cmd)
		if op.endsLine() {
			break
		}
	}
	return cmds, nil
}

func parseKeyword(rest string) (Command, error) {
	name, args, _ := strings.Cut(rest, " ")
	kw, ok := LookupKeyword(name)
	if !ok {
		return Command{}, ErrUnknownCommand("$" + name)
	}
	return Command{Op: OpKeyword, Keyword: kw, Args: strings.TrimSpace(args)}, nil
}

// ParseSetArgs splits "key=value".
func ParseSetArgs(args string) (key, value string, err error) {
	key, value, ok := strings.Cut(args, "=")
	key, value = strings.TrimSpace(key), strings.TrimSpace(value)
	if !ok || key == "" {
		return "", "", ErrInvalidArgument(args)
	}
	return key, value, nil
}

// ParseDigitalArgs decodes "idx type map shifted [name]", every number
// given as hex. Nothing is written anywhere; the caller applies the result.
func ParseDigitalArgs(args string) (int, config.DigitalInput, error) {
	f := strings.Fields(args)
	if len(f) < 4 || len(f) > 5 {
		return 0, config.DigitalInput{}, ErrInvalidArgument(args)
	}
	nums, err := hexBytes(f[:4])
	if err != nil {
		return 0, config.DigitalInput{}, err
	}
	idx := int(nums[0])
	if idx >= config.DigitalInputs {
		return 0, config.DigitalInput{}, ErrIndexOutOfRange(f[0])
	}
	d := config.DigitalInput{
		Kind:    config.MappingKind(nums[1]),
		Target:  config.Target(nums[2]),
		Shifted: config.Target(nums[3]),
	}
	if len(f) == 5 {
		d.Name = truncateName(f[4])
	}
	if err := d.Validate(); err != nil {
		return 0, config.DigitalInput{}, ErrInvalidArgument(args)
	}
	return idx, d, nil
}

// ParseAnalogArgs decodes "idx type pos neg dmin dmax [name]".
func ParseAnalogArgs(args string) (int, config.AnalogInput, error) {
	f := strings.Fields(args)
	if len(f) < 6 || len(f) > 7 {
		return 0, config.AnalogInput{}, ErrInvalidArgument(args)
	}
	nums, err := hexBytes(f[:6])
	if err != nil {
		return 0, config.AnalogInput{}, err
	}
	idx := int(nums[0])
	if idx >= config.AnalogInputs {
		return 0, config.AnalogInput{}, ErrIndexOutOfRange(f[0])
	}
	a := config.AnalogInput{
		Kind:        config.MappingKind(nums[1]),
		Positive:    config.Target(nums[2]),
		Negative:    config.Target(nums[3]),
		DeadzoneMin: nums[4],
		DeadzoneMax: nums[5],
	}
	if len(f) == 7 {
		a.Name = truncateName(f[6])
	}
	if err := a.Validate(); err != nil {
		return 0, config.AnalogInput{}, ErrInvalidArgument(args)
	}
	return idx, a, nil
}

func hexBytes(fields []string) ([]uint8, error) {
	out := make([]uint8, len(fields))
	for i, s := range fields {
		v, err := strconv.ParseUint(s, 16, 8)
		if err != nil {
			return nil, ErrInvalidArgument(s)
		}
		out[i] = uint8(v)
	}
	return out, nil
}

// truncateName keeps the first bytes that fit the record, like strncpy on the board.
func truncateName(s string) string {
	if len(s) > config.NameLength {
		return s[:config.NameLength]
	}
	return s
}
