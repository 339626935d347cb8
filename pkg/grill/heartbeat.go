package grill

import (
	"context"
	"time"

	"tgrill/pkg/protocol"
)

// heartbeat runs the poll cycle every Interval until ctx is cancelled, then it tears down the session.
func (s *Synchronizer) heartbeat(ctx context.Context, done chan struct{}) {
	defer close(done)
	defer s.teardown()

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.cycle(ctx)
		}
	}
}

// cycle sends handshake, status, temperature and target poll, separated by Spacing.
// The remaining commands are abandoned if ctx is cancelled.
func (s *Synchronizer) cycle(ctx context.Context) {
	s.mu.Lock()
	s.state.LastHeartbeat = s.now()
	s.mu.Unlock()

	for i, intent := range pollCycle {
		if i > 0 && !sleep(ctx, s.config.Spacing) {
			return
		}
		if ctx.Err() != nil {
			return
		}

		_ = s.publish(protocol.Command{Intent: intent})
	}
}

// sleep waits for d and returns false if ctx is cancelled before.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
