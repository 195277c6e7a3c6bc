package protocol

// DefaultMaxTokenLength bounds a token that never sees a terminator
const DefaultMaxTokenLength = 64

// markerOverlap is how many trailing bytes an overflow keeps buffered:
// one less than the longest marker, so a marker cut by the length limit
// still arrives whole in the next token.
const markerOverlap = len(MarkerGetRA) - 1

// Framer cuts a byte stream into command tokens.
//
// A '#' closes the current token and stays part of it, so two LX200
// commands arriving in one read become two tokens. CR and LF close the
// current token and are dropped. Bytes that pile up to the maximum token
// length without a terminator are released as a token of their own, minus
// a short tail that carries over into the next token.
type Framer struct {
	fifo   *FifoBuffer
	maxLen int
	carry  int
}

// NewFramer creates a framer. maxLen <= 0 selects DefaultMaxTokenLength.
func NewFramer(maxLen int) *Framer {
	if maxLen <= 0 {
		maxLen = DefaultMaxTokenLength
	}
	carry := markerOverlap
	if carry >= maxLen {
		carry = maxLen - 1
	}
	return &Framer{
		fifo:   NewFifoBuffer(maxLen + 1),
		maxLen: maxLen,
		carry:  carry,
	}
}

// Feed consumes data and returns every token it completed, in order.
// Incomplete trailing bytes stay buffered for the next call.
func (f *Framer) Feed(data []byte) [][]byte {
	var tokens [][]byte

	for _, b := range data {
		if b == '\r' || b == '\n' {
			tokens = f.appendPending(tokens)
			continue
		}

		// Cannot fail: the buffer is drained whenever it fills up
		_ = f.fifo.WriteByte(b)

		switch {
		case b == Terminator:
			tokens = f.appendPending(tokens)
		case f.fifo.Free() == 0:
			tokens = append(tokens, f.takeHead(f.maxLen-f.carry))
		}
	}

	return tokens
}

// Flush releases the buffered bytes as a token, or nil when nothing is pending.
// Transports call it when the line goes quiet so unterminated commands
// such as a bare "F+" are still delivered.
func (f *Framer) Flush() []byte {
	if f.fifo.IsEmpty() {
		return nil
	}
	return f.take()
}

// Pending returns the number of buffered bytes not yet released
func (f *Framer) Pending() int {
	return f.fifo.Available()
}

// Reset drops any buffered bytes
func (f *Framer) Reset() {
	f.fifo.Reset()
}

func (f *Framer) appendPending(tokens [][]byte) [][]byte {
	if f.fifo.IsEmpty() {
		return tokens
	}
	return append(tokens, f.take())
}

// takeHead removes the first n buffered bytes and returns them
func (f *Framer) takeHead(n int) []byte {
	token := make([]byte, n)
	return token[:f.fifo.Read(token)]
}

// take copies the buffered bytes out and clears the buffer
func (f *Framer) take() []byte {
	data := f.fifo.Data()
	token := make([]byte, len(data))
	copy(token, data)
	f.fifo.Pop(len(data))
	return token
}
