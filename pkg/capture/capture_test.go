package capture

import (
	"bytes"
	"errors"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopCloser struct {
	*bytes.Buffer
}

func (nopCloser) Close() error { return nil }

func TestRecorderReader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "capture.cbor")
	ts := time.Date(2024, 6, 1, 12, 0, 0, 123456789, time.UTC)

	rec, err := Create(path)
	require.NoError(t, err)

	records := []Record{
		{Time: ts, Direction: Outbound, Topic: "smoker/app2dev", Payload: []byte{0xFA, 0x06, 0xFE, 0x5F, 0x01, 0xFF}},
		{Time: ts.Add(time.Second), Direction: Inbound, Topic: "smoker/dev2app", Payload: []byte{0xFA, 0x07, 0xFE, 0x0B, 0x01, 0x01, 0xFF}},
	}
	for _, r := range records {
		require.NoError(t, rec.Write(r))
	}
	require.NoError(t, rec.Close())
	require.NoError(t, rec.Close())
	assert.NoError(t, rec.Write(records[0]), "writes after close are dropped")

	r, err := Open(path)
	require.NoError(t, err)
	defer r.Close()

	for _, want := range records {
		got, err := r.Next()
		require.NoError(t, err)
		assert.True(t, want.Time.Equal(got.Time))
		assert.Equal(t, want.Direction, got.Direction)
		assert.Equal(t, want.Topic, got.Topic)
		assert.Equal(t, want.Payload, got.Payload)
	}

	_, err = r.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestReader_Corrupt(t *testing.T) {
	r := NewReader(bytes.NewReader([]byte{0xFF, 0xFF}))
	_, err := r.Next()
	require.Error(t, err)
	assert.NotErrorIs(t, err, io.EOF)
}

func TestOpen_Missing(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing.cbor"))
	assert.Error(t, err)
}

type fakeBus struct {
	published  [][]byte
	handler    func([]byte)
	publishErr error
}

func (b *fakeBus) Publish(_ string, payload []byte) error {
	if b.publishErr != nil {
		return b.publishErr
	}
	b.published = append(b.published, payload)
	return nil
}

func (b *fakeBus) Subscribe(_ string, handler func([]byte)) error {
	b.handler = handler
	return nil
}

func (b *fakeBus) Unsubscribe(string) error {
	b.handler = nil
	return nil
}

func TestTransport(t *testing.T) {
	buf := &bytes.Buffer{}
	bus := &fakeBus{}
	tr := NewTransport(bus, NewRecorder(nopCloser{buf}))

	var got []byte
	require.NoError(t, tr.Subscribe("smoker/dev2app", func(p []byte) { got = p }))
	require.NoError(t, tr.Publish("smoker/app2dev", []byte{0xFA, 0x06}))
	bus.handler([]byte{0xFA, 0x07})
	assert.Equal(t, []byte{0xFA, 0x07}, got)

	bus.publishErr = errors.New("queue full")
	assert.Error(t, tr.Publish("smoker/app2dev", []byte{0xFA, 0x06}))

	require.NoError(t, tr.Unsubscribe("smoker/dev2app"))
	assert.Nil(t, bus.handler)

	r := NewReader(buf)
	first, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, Outbound, first.Direction)
	assert.Equal(t, "smoker/app2dev", first.Topic)

	second, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, Inbound, second.Direction)
	assert.Equal(t, []byte{0xFA, 0x07}, second.Payload)

	_, err = r.Next()
	assert.ErrorIs(t, err, io.EOF, "failed publishes aren't recorded")
}
