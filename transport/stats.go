package transport

import "sync/atomic"

// Stats counts transport activity across sessions
type Stats struct {
	sessions    atomic.Uint64
	refused     atomic.Uint64
	tokens      atomic.Uint64
	bytesIn     atomic.Uint64
	replies     atomic.Uint64
	replyErrors atomic.Uint64
	idleFlushes atomic.Uint64
}

// StatsSnapshot is a point-in-time copy of Stats
type StatsSnapshot struct {
	Sessions    uint64 `json:"sessions"`
	Refused     uint64 `json:"refused"`
	Tokens      uint64 `json:"tokens"`
	BytesIn     uint64 `json:"bytes_in"`
	Replies     uint64 `json:"replies"`
	ReplyErrors uint64 `json:"reply_errors"`
	IdleFlushes uint64 `json:"idle_flushes"`
}

// Snapshot returns the current counter values
func (s *Stats) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		Sessions:    s.sessions.Load(),
		Refused:     s.refused.Load(),
		Tokens:      s.tokens.Load(),
		BytesIn:     s.bytesIn.Load(),
		Replies:     s.replies.Load(),
		ReplyErrors: s.replyErrors.Load(),
		IdleFlushes: s.idleFlushes.Load(),
	}
}
