// Package capture records the raw frames exchanged with the device in a CBOR file.
//
// A capture file is a sequence of CBOR encoded records. It is written by the daemon
// and decoded offline by the replay command.
package capture

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// Direction is the direction of a captured frame.
type Direction uint8

const (
	// Inbound frames are received from the device.
	Inbound Direction = 0
	// Outbound frames are commands sent to the device.
	Outbound Direction = 1
)

// String returns "in" or "out".
func (d Direction) String() string {
	if d == Outbound {
		return "out"
	}
	return "in"
}

// Record is a captured frame.
type Record struct {
	Time      time.Time `cbor:"1,keyasint"`
	Direction Direction `cbor:"2,keyasint"`
	Topic     string    `cbor:"3,keyasint"`
	Payload   []byte    `cbor:"4,keyasint"`
}

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error

	encOpts := cbor.EncOptions{
		Sort:          cbor.SortCanonical,
		IndefLength:   cbor.IndefLengthForbidden,
		NilContainers: cbor.NilContainerAsNull,
		Time:          cbor.TimeRFC3339Nano,
	}
	if encMode, err = encOpts.EncMode(); err != nil {
		panic(fmt.Sprintf("capture: cbor encoder mode: %v", err))
	}

	decOpts := cbor.DecOptions{
		DupMapKey:   cbor.DupMapKeyQuiet,
		IndefLength: cbor.IndefLengthAllowed,
	}
	if decMode, err = decOpts.DecMode(); err != nil {
		panic(fmt.Sprintf("capture: cbor decoder mode: %v", err))
	}
}

// Recorder writes records to a capture file. It's safe for concurrent use.
type Recorder struct {
	mu      sync.Mutex
	w       io.WriteCloser
	encoder *cbor.Encoder
	closed  bool
}

// Create opens path for appending records. The file is created if it doesn't exist.
func Create(path string) (*Recorder, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}
	return NewRecorder(f), nil
}

// NewRecorder returns a recorder writing to w. Close closes w.
func NewRecorder(w io.WriteCloser) *Recorder {
	return &Recorder{w: w, encoder: encMode.NewEncoder(w)}
}

// Write appends r. Records written after Close are dropped.
func (r *Recorder) Write(rec Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	return r.encoder.Encode(rec)
}

// Close closes the capture file. It is safe to call Close multiple times.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true
	return r.w.Close()
}

// Reader reads the records of a capture file.
type Reader struct {
	r       io.Reader
	decoder *cbor.Decoder
}

// Open opens the capture file path.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return NewReader(f), nil
}

// NewReader returns a reader decoding records from r.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: r, decoder: decMode.NewDecoder(r)}
}

// Next returns the next record. It returns io.EOF at the end of the file.
func (r *Reader) Next() (Record, error) {
	var rec Record
	if err := r.decoder.Decode(&rec); err != nil {
		if errors.Is(err, io.EOF) {
			return Record{}, io.EOF
		}
		return Record{}, fmt.Errorf("decode record: %w", err)
	}
	return rec, nil
}

// Close closes the underlying file, if any.
func (r *Reader) Close() error {
	if c, ok := r.r.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
