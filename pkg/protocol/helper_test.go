package protocol

// statusPacket returns a status sub-packet: FE 0B 01 <state> [alarm flags].
func statusPacket(state byte, alarms ...byte) []byte {
	return append([]byte{MarkerByte, TypeStatus, 0x01, state}, alarms...)
}

// tempPacket returns a 23 byte temperature sub-packet with the given probe triplets (index 0 = internal).
func tempPacket(probes [ProbeCount][3]byte) []byte {
	b := make([]byte, 23)
	b[0], b[1], b[2] = MarkerByte, TypeTemperature, 0x01

	for i, o := range DefaultLayout.Probes {
		copy(b[o:], probes[i][:])
	}

	return b
}

// targetPacket returns a 23 byte target sub-packet with the set-point triplet at offset 20.
func targetPacket(h, t, u byte) []byte {
	b := make([]byte, 23)
	b[0], b[1], b[2] = MarkerByte, TypeTarget, 0x01
	b[20], b[21], b[22] = h, t, u

	return b
}

// frame concatenates sub-packets to a payload: FA <len> <parts...> FF.
func frame(parts ...[]byte) []byte {
	b := []byte{StartByte, 0}
	for _, p := range parts {
		b = append(b, p...)
	}
	b = append(b, EndByte)
	b[1] = byte(len(b))

	return b
}

// unplugged is the triplet of a probe without sensor.
var unplugged = [3]byte{9, 6, 0}
