package protocol

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/Alia5/jammaio/config"
)

// Code is the two-digit number carried by an S frame.
type Code int

const (
	CodeUnknownCommand  Code = 1
	CodeStorageTooSmall Code = 2
	CodeKeyNotFound     Code = 3
	CodeUnsupportedType Code = 4
	CodeCrcMismatch     Code = 5
	CodeIndexOutOfRange Code = 6
	CodeInvalidArgument Code = 7
	CodeInternal        Code = 99
)

// StatusError is an error reported to the host as an S frame.
type StatusError struct {
	// Code is the numeric status (S01, S02, ...)
	Code Code
	// Title is a short summary of the problem type
	Title string
	// Detail names the offending key, keyword or value
	Detail string
}

func (e StatusError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("S%02d %s", e.Code, e.Title)
	}
	return fmt.Sprintf("S%02d %s %s", e.Code, e.Title, e.Detail)
}

// Frame renders the error as an outbound line without terminator.
func (e StatusError) Frame() string { return e.Error() }

func ErrUnknownCommand(detail string) StatusError {
	return StatusError{Code: CodeUnknownCommand, Title: "UNKNOWN CMD", Detail: detail}
}
func ErrStorageTooSmall(detail string) StatusError {
	return StatusError{Code: CodeStorageTooSmall, Title: "Storage too small", Detail: detail}
}
func ErrKeyNotFound(detail string) StatusError {
	return StatusError{Code: CodeKeyNotFound, Title: "Key not found", Detail: detail}
}
func ErrUnsupportedType(detail string) StatusError {
	return StatusError{Code: CodeUnsupportedType, Title: "Unknown type for", Detail: detail}
}
func ErrCrcMismatch(detail string) StatusError {
	return StatusError{Code: CodeCrcMismatch, Title: "CRC mismatch", Detail: detail}
}
func ErrIndexOutOfRange(detail string) StatusError {
	return StatusError{Code: CodeIndexOutOfRange, Title: "Index out of range", Detail: detail}
}
func ErrInvalidArgument(detail string) StatusError {
	return StatusError{Code: CodeInvalidArgument, Title: "Invalid argument", Detail: detail}
}
func ErrInternal(detail string) StatusError {
	return StatusError{Code: CodeInternal, Title: "Internal error", Detail: detail}
}

// WrapError normalizes any error into a StatusError. Store errors map to
// their dedicated codes, detail is the subject the caller was working on.
func WrapError(err error, detail string) StatusError {
	var se StatusError
	if errors.As(err, &se) {
		return se
	}
	var pse *StatusError
	if errors.As(err, &pse) && pse != nil {
		return *pse
	}
	switch {
	case errors.Is(err, config.ErrStorageTooSmall):
		return ErrStorageTooSmall(detail)
	case errors.Is(err, config.ErrKeyNotFound):
		return ErrKeyNotFound(detail)
	case errors.Is(err, config.ErrUnsupportedType):
		return ErrUnsupportedType(detail)
	case errors.Is(err, config.ErrCrcMismatch):
		return ErrCrcMismatch(detail)
	case errors.Is(err, config.ErrIndexOutOfRange):
		return ErrIndexOutOfRange(detail)
	case errors.Is(err, config.ErrInvalidValue):
		return ErrInvalidArgument(detail)
	}
	return ErrInternal(err.Error())
}

var titles = map[Code]string{
	CodeUnknownCommand:  ErrUnknownCommand("").Title,
	CodeStorageTooSmall: ErrStorageTooSmall("").Title,
	CodeKeyNotFound:     ErrKeyNotFound("").Title,
	CodeUnsupportedType: ErrUnsupportedType("").Title,
	CodeCrcMismatch:     ErrCrcMismatch("").Title,
	CodeIndexOutOfRange: ErrIndexOutOfRange("").Title,
	CodeInvalidArgument: ErrInvalidArgument("").Title,
	CodeInternal:        ErrInternal("").Title,
}

// ParseStatusFrame decodes an "Snn title detail" frame as read by a host.
func ParseStatusFrame(frame string) (StatusError, bool) {
	frame = strings.TrimRight(frame, "\r\n")
	if len(frame) < 3 || frame[0] != 'S' {
		return StatusError{}, false
	}
	n, err := strconv.Atoi(frame[1:3])
	if err != nil {
		return StatusError{}, false
	}
	se := StatusError{Code: Code(n)}
	rest := strings.TrimSpace(frame[3:])
	if t, ok := titles[se.Code]; ok && strings.HasPrefix(rest, t) {
		se.Title = t
		se.Detail = strings.TrimSpace(rest[len(t):])
	} else {
		se.Title = rest
	}
	return se, true
}
