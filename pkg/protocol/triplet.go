package protocol

// The device transfers temperatures as three separate bytes holding one decimal digit each
// (hundreds, tens, units). Out-of-range digit bytes are the de facto null value of the protocol.

// DecodeTriplet returns h*100 + t*10 + u.
// ok is false if any byte is not a decimal digit (> 9).
func DecodeTriplet(h, t, u byte) (value int, ok bool) {
	if h > 9 || t > 9 || u > 9 {
		return 0, false
	}
	return int(h)*100 + int(t)*10 + int(u), true
}

// DecodeProbe decodes a probe triplet.
// A hundreds digit > 5 is the "probe unplugged" sentinel (e.g. 960) and reported as absent.
func DecodeProbe(h, t, u byte) (value int, ok bool) {
	if h > MaxProbeF/100 {
		return 0, false
	}
	return DecodeTriplet(h, t, u)
}

// EncodeTriplet splits value into range (hundreds), offset (tens) and units digits.
// The range digit is clamped to 1..5, so callers must clamp value to the device range before.
func EncodeTriplet(value int) (h, t, u byte) {
	if value < 0 {
		value = 0
	}

	r := value / 100
	if r > 5 {
		r = 5
	}
	if r < 1 {
		r = 1
	}

	return byte(r), byte((value % 100) / 10), byte(value % 10)
}

// tripletAt decodes the triplet at offset o of b using decode.
func tripletAt(b []byte, o int, decode func(h, t, u byte) (int, bool)) (int, bool) {
	if o < 0 || o+3 > len(b) {
		return 0, false
	}
	return decode(b[o], b[o+1], b[o+2])
}
