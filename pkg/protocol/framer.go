package protocol

import "fmt"

// SubPacket is a view of a reply sub-packet inside a payload. It never copies bytes.
type SubPacket struct {
	// Type is the marker type.
	Type MarkerType
	// Offset is the position of the marker (0xFE) in the payload.
	Offset int
	// Data is the payload from the marker to the end of the payload.
	Data []byte
	// Len is the length of the sub-packet: Data up to the next known marker or the end of the payload.
	Len int
}

// String returns a short description used in trace logs.
func (p SubPacket) String() string {
	return fmt.Sprintf("%v@%d[%d]", p.Type, p.Offset, len(p.body()))
}

// body returns the bytes of the sub-packet, the following sub-packets excluded.
func (p SubPacket) body() []byte {
	if p.Len <= 0 || p.Len > len(p.Data) {
		return p.Data
	}
	return p.Data[:p.Len]
}

// Scanner finds sub-packets in a payload.
// Sub-packets are returned in ascending offset order; a Scanner cannot be restarted.
//
//	s := protocol.NewScanner(payload, protocol.DefaultLayout)
//	for s.Next() {
//		p := s.SubPacket()
//	}
type Scanner struct {
	payload []byte
	layout  Layout
	// pos is the next payload position to check for a marker.
	pos int
	// current is the sub-packet found by the last call of Next.
	current SubPacket
}

// NewScanner returns a scanner for payload.
// Payloads shorter than MinPayloadSize or not starting with StartByte are silently ignored,
// the scanner returns no sub-packets.
func NewScanner(payload []byte, layout Layout) *Scanner {
	s := &Scanner{payload: payload, layout: layout}

	if len(payload) < MinPayloadSize || payload[0] != StartByte {
		s.pos = len(payload)
	}

	return s
}

// Next advances to the next sub-packet. It returns false when the payload is exhausted.
// Markers of unknown types and sub-packets shorter than the minimum length of their decoder are skipped.
// A sub-packet ends at the next known marker, its decoder never reads the bytes of a following sub-packet.
func (s *Scanner) Next() bool {
	for s.pos+1 < len(s.payload) {
		i := s.pos
		s.pos++

		if s.payload[i] != MarkerByte {
			continue
		}

		t := MarkerType(s.payload[i+1])
		n := s.layout.minLength(t)
		if n == 0 {
			continue
		}

		size := s.end(i+2) - i
		if size < n {
			continue
		}

		s.current = SubPacket{Type: t, Offset: i, Data: s.payload[i:len(s.payload):len(s.payload)], Len: size}
		return true
	}

	return false
}

// end returns the position of the next known marker at or after from, or the payload length.
func (s *Scanner) end(from int) int {
	for j := from; j+1 < len(s.payload); j++ {
		if s.payload[j] == MarkerByte && s.layout.minLength(MarkerType(s.payload[j+1])) != 0 {
			return j
		}
	}
	return len(s.payload)
}

// SubPacket returns the sub-packet found by the last call of Next.
func (s *Scanner) SubPacket() SubPacket {
	return s.current
}

// Split returns all sub-packets of payload.
func Split(payload []byte, layout Layout) []SubPacket {
	var p []SubPacket

	s := NewScanner(payload, layout)
	for s.Next() {
		p = append(p, s.SubPacket())
	}

	return p
}
