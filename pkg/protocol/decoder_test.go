package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode_StatusAndInternalProbe(t *testing.T) {
	payload := frame(
		statusPacket(StateRunning),
		tempPacket([ProbeCount][3]byte{{2, 1, 5}, unplugged, unplugged, unplugged}),
	)

	u := Decode(payload, DefaultLayout)

	require.True(t, u.HasStatus)
	m, ok := u.Status.Mode()
	require.True(t, ok)
	assert.Equal(t, ModeHeating, m)

	require.True(t, u.HasProbes)
	assert.Equal(t, Reading{Value: 215, OK: true}, u.Probes[0])
	for i := 1; i < ProbeCount; i++ {
		assert.False(t, u.Probes[i].OK, "probe %d", i)
	}
	assert.False(t, u.HasTarget)
}

func TestDecode_UnpluggedInternalProbe(t *testing.T) {
	payload := frame(tempPacket([ProbeCount][3]byte{unplugged, {1, 5, 5}, {0, 9, 8}, {0xFF, 0xFF, 0xFF}}))

	u := Decode(payload, DefaultLayout)

	require.True(t, u.HasProbes)
	assert.False(t, u.Probes[0].OK)
	assert.Equal(t, Reading{Value: 155, OK: true}, u.Probes[1])
	assert.Equal(t, Reading{Value: 98, OK: true}, u.Probes[2])
	assert.False(t, u.Probes[3].OK)
}

func TestStatus_Mode(t *testing.T) {
	tests := []struct {
		state  byte
		want   Mode
		wantOK bool
	}{
		{StateRunning, ModeHeating, true},
		{StateIgniting, ModeHeating, true},
		{StateShutdown, ModeOff, true},
		{0x00, ModeOff, false},
		{0x03, ModeOff, false},
		{0xFF, ModeOff, false},
	}

	for _, tt := range tests {
		t.Run(Phase(tt.state), func(t *testing.T) {
			m, ok := Status{State: tt.state}.Mode()
			assert.Equal(t, tt.wantOK, ok)
			if ok {
				assert.Equal(t, tt.want, m)
			}
		})
	}
}

func TestDecodeStatus_Alarms(t *testing.T) {
	payload := frame(statusPacket(StateRunning, 0, 0, 1, 0, 1, 0, 0, 1))

	p := Split(payload, DefaultLayout)
	require.Len(t, p, 1)

	s, ok := DecodeStatus(p[0], DefaultLayout)
	require.True(t, ok)
	require.NotNil(t, s.Alarms)
	assert.Equal(t, Alarms{Error3: true, Fan: true, NoPellets: true}, *s.Alarms)
	assert.True(t, s.Alarms.Any())
}

func TestDecodeStatus_ShortPacketHasNoAlarms(t *testing.T) {
	p := Split(frame(statusPacket(StateShutdown, 1, 1)), DefaultLayout)
	require.Len(t, p, 1)

	s, ok := DecodeStatus(p[0], DefaultLayout)
	require.True(t, ok)
	assert.Nil(t, s.Alarms)
	assert.Equal(t, byte(StateShutdown), s.State)
}

func TestDecodeTarget(t *testing.T) {
	tests := []struct {
		name    string
		h, t, u byte
		want    int
		wantOK  bool
	}{
		{"225", 2, 2, 5, 225, true},
		{"500", 5, 0, 0, 500, true},
		{"hundreds 9 accepted", 9, 0, 0, 900, true},
		{"zero is absent", 0, 0, 0, 0, false},
		{"hundreds > 9", 0x0A, 0, 0, 0, false},
		{"garbage", 0xFF, 0xFF, 0xFF, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := Decode(frame(targetPacket(tt.h, tt.t, tt.u)), DefaultLayout)
			assert.Equal(t, tt.wantOK, u.HasTarget)
			if tt.wantOK {
				assert.Equal(t, tt.want, u.Target)
			}
		})
	}
}

func TestDecode_LaterSubPacketWins(t *testing.T) {
	payload := frame(
		statusPacket(StateIgniting, 0, 0, 0, 0, 0, 1, 0, 0),
		targetPacket(2, 0, 0),
		statusPacket(StateShutdown),
		targetPacket(3, 0, 0),
	)

	u := Decode(payload, DefaultLayout)

	assert.Equal(t, byte(StateShutdown), u.Status.State)
	// the second status sub-packet is too short for alarms, the earlier flags are kept
	require.NotNil(t, u.Status.Alarms)
	assert.True(t, u.Status.Alarms.Ignition)
	assert.Equal(t, 300, u.Target)
}

func TestDecode_MalformedIsEmpty(t *testing.T) {
	assert.True(t, Decode([]byte{0x00, 0x01, 0x02}, DefaultLayout).Empty())
	assert.True(t, Decode(frame(), DefaultLayout).Empty())
	assert.True(t, Decode([]byte{StartByte, 6, MarkerByte, TypeHandshake, 1, EndByte}, DefaultLayout).Empty())
}

func TestDecode_CustomLayout(t *testing.T) {
	l := DefaultLayout
	l.Probes = [ProbeCount]int{20, 2, 5, 8}

	b := tempPacket([ProbeCount][3]byte{{2, 0, 0}})
	copy(b[2:], []byte{1, 2, 3})

	u := Decode(frame(b), l)
	require.True(t, u.HasProbes)
	assert.Equal(t, 200, u.Probes[0].Value)
	assert.Equal(t, 123, u.Probes[1].Value)
}

func TestDecodeStatus_NoAlarmsFromFollowingSubPacket(t *testing.T) {
	// the 0x01 byte of the target sub-packet would be read as error 3
	u := Decode(frame(statusPacket(StateShutdown), targetPacket(3, 0, 0)), DefaultLayout)

	require.True(t, u.HasStatus)
	assert.Nil(t, u.Status.Alarms)
	assert.Equal(t, 300, u.Target)
}

func TestDecodeTemperatures_BoundedSubPacket(t *testing.T) {
	p := SubPacket{Type: MarkerTemperature, Data: tempPacket([ProbeCount][3]byte{{2, 1, 5}}), Len: 20}

	_, ok := DecodeTemperatures(p, DefaultLayout)
	assert.False(t, ok, "internal probe triplet lies beyond the sub-packet")
}
