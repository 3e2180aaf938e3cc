package device

import (
	"fmt"
	"os"
	"sync"

	"github.com/Alia5/jammaio/internal/log"
)

// FileSink writes reports to a character device such as a Linux USB gadget
// HID function (/dev/hidgN). Each report is written with a single write call.
type FileSink struct {
	mu   sync.Mutex
	f    *os.File
	path string
}

// OpenFileSink opens path for writing.
func OpenFileSink(path string) (*FileSink, error) {
	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("open hid device %s: %w", path, err)
	}
	return &FileSink{f: f, path: path}, nil
}

// WriteReport implements Sink.
func (s *FileSink) WriteReport(report []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.f == nil {
		return fmt.Errorf("hid device %s closed", s.path)
	}
	if _, err := s.f.Write(report); err != nil {
		return fmt.Errorf("write report to %s: %w", s.path, err)
	}
	return nil
}

// Close releases the device file.
func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.f == nil {
		return nil
	}
	err := s.f.Close()
	s.f = nil
	return err
}

// LogSink dumps every report through a RawLogger under a fixed tag.
type LogSink struct {
	Tag string
	Raw log.RawLogger
}

// WriteReport implements Sink.
func (s LogSink) WriteReport(report []byte) error {
	if s.Raw != nil {
		s.Raw.Log(s.Tag, report)
	}
	return nil
}

// Discard drops every report.
var Discard Sink = discard{}

type discard struct{}

func (discard) WriteReport([]byte) error { return nil }

// Recorder keeps a copy of every report written to it.
type Recorder struct {
	mu      sync.Mutex
	Reports [][]byte
}

// WriteReport implements Sink.
func (r *Recorder) WriteReport(report []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Reports = append(r.Reports, append([]byte(nil), report...))
	return nil
}

// Last returns the most recent report, or nil.
func (r *Recorder) Last() []byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.Reports) == 0 {
		return nil
	}
	return r.Reports[len(r.Reports)-1]
}
