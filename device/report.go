// Package device provides the HID backends the mapping engine drives and the
// sinks that carry their reports to the host.
package device

// ReportBuilder is an interface for device input states that can build HID reports.
type ReportBuilder interface {
	// BuildReport encodes the input state into a byte slice for USB transfer.
	BuildReport() []byte
}

// Sink delivers one encoded HID input report to the host side.
type Sink interface {
	WriteReport(report []byte) error
}

// Flusher is implemented by every backend: it sends the pending report(s) when
// the state changed since the previous flush.
type Flusher interface {
	Flush() error
}
