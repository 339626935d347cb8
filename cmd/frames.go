package main

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"tgrill/pkg/capture"
	"tgrill/pkg/protocol"
)

// layout returns the default layout with the probe offsets replaced by probes, if given.
func layout(probes []int) (protocol.Layout, error) {
	l := protocol.DefaultLayout
	if len(probes) == 0 {
		return l, nil
	}
	if len(probes) != protocol.ProbeCount {
		return l, fmt.Errorf("expected %v probe offsets, got %v", protocol.ProbeCount, len(probes))
	}
	copy(l.Probes[:], probes)
	return l, nil
}

// parseHex accepts frames like "FA07FE0B0101FF", "fa 07 fe" or "FA:07:FE".
func parseHex(s string) ([]byte, error) {
	s = strings.NewReplacer(" ", "", ":", "", "-", "").Replace(s)
	return hex.DecodeString(strings.TrimPrefix(strings.ToLower(s), "0x"))
}

// isCommand returns true for frames sent to the device: polls (6 bytes), power, handshake and set target.
func isCommand(b []byte) bool {
	if len(b) < protocol.MinPayloadSize || b[0] != protocol.StartByte || b[2] != protocol.MarkerByte {
		return false
	}
	switch b[3] {
	case protocol.TypeHandshake, protocol.TypePower, protocol.TypeSetTarget:
		return true
	}
	return len(b) == protocol.MinPayloadSize
}

// describeReply formats the decoded content of a device frame.
func describeReply(b []byte, l protocol.Layout) string {
	u := protocol.Decode(b, l)
	if u.Empty() {
		return "no valid sub-packet"
	}

	var parts []string

	if u.HasStatus {
		parts = append(parts, "status "+protocol.Phase(u.Status.State))
		if a := u.Status.Alarms; a != nil && a.Any() {
			parts = append(parts, fmt.Sprintf("alarms %+v", *a))
		}
	}

	if u.HasProbes {
		for i, r := range u.Probes {
			v := "unplugged"
			if r.OK {
				v = fmt.Sprintf("%d°F", r.Value)
			}
			if i == 0 {
				parts = append(parts, "internal "+v)
				continue
			}
			parts = append(parts, fmt.Sprintf("probe %d %v", i, v))
		}
	}

	if u.HasTarget {
		parts = append(parts, fmt.Sprintf("target %d°F", u.Target))
	}

	return strings.Join(parts, ", ")
}

func describe(b []byte, l protocol.Layout) string {
	if isCommand(b) {
		return protocol.Describe(b)
	}
	return describeReply(b, l)
}

// decodeFrames writes one line per hex encoded frame.
func decodeFrames(w io.Writer, frames []string, probes []int) error {
	if len(frames) == 0 {
		return errors.New("no frames to decode")
	}

	l, err := layout(probes)
	if err != nil {
		return err
	}

	for _, f := range frames {
		b, err := parseHex(f)
		if err != nil {
			return fmt.Errorf("frame %q: %w", f, err)
		}
		fmt.Fprintf(w, "%s: %s\n", hex.EncodeToString(b), describe(b, l))
	}

	return nil
}

// replay writes one line per record of a capture file.
func replay(w io.Writer, path string, probes []int) error {
	l, err := layout(probes)
	if err != nil {
		return err
	}

	r, err := capture.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = r.Close() }()

	for {
		rec, err := r.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		d := describeReply(rec.Payload, l)
		if rec.Direction == capture.Outbound {
			d = protocol.Describe(rec.Payload)
		}

		fmt.Fprintf(w, "%s %-3s %s %s: %s\n", rec.Time.Format(time.RFC3339Nano), rec.Direction, rec.Topic, hex.EncodeToString(rec.Payload), d)
	}
}
