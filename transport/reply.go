package transport

import (
	"io"
	"sync"

	"go.uber.org/zap"
)

// ReplyWriter sends reply payloads back over a session's connection.
// It satisfies dispatch.ReplySink: write failures are logged and dropped.
type ReplyWriter struct {
	mu     sync.Mutex
	w      io.Writer
	logger *zap.Logger
	stats  *Stats
}

// NewReplyWriter creates a reply writer over w
func NewReplyWriter(w io.Writer, logger *zap.Logger, stats *Stats) *ReplyWriter {
	if logger == nil {
		logger = zap.NewNop()
	}
	if stats == nil {
		stats = &Stats{}
	}
	return &ReplyWriter{
		w:      w,
		logger: logger,
		stats:  stats,
	}
}

// WriteReply writes the payload as-is, with no framing added
func (r *ReplyWriter) WriteReply(reply []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n, err := r.w.Write(reply)
	if err == nil && n != len(reply) {
		err = io.ErrShortWrite
	}
	if err != nil {
		r.stats.replyErrors.Add(1)
		r.logger.Warn("reply write failed",
			zap.ByteString("reply", reply),
			zap.Int("written", n),
			zap.Error(err))
		return
	}

	r.stats.replies.Add(1)
}
