package mqtt

// queuedMsg is a serialized MQTT message waiting for the broker to come back.
type queuedMsg struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// backlog is a fixed-capacity FIFO of messages published while disconnected.
// When full, the oldest message is dropped. Not safe for concurrent use;
// the caller must synchronize.
type backlog struct {
	buf     []queuedMsg
	next    int // next write position
	count   int
	dropped int // messages discarded since the last takeAll
}

func newBacklog(capacity int) *backlog {
	return &backlog{buf: make([]queuedMsg, capacity)}
}

func (b *backlog) add(msg queuedMsg) {
	b.buf[b.next] = msg
	b.next = (b.next + 1) % len(b.buf)
	if b.count == len(b.buf) {
		b.dropped++
		return
	}
	b.count++
}

// takeAll returns queued messages oldest first, with the number dropped, and
// empties the backlog.
func (b *backlog) takeAll() ([]queuedMsg, int) {
	dropped := b.dropped
	b.dropped = 0
	if b.count == 0 {
		return nil, dropped
	}

	out := make([]queuedMsg, b.count)
	start := (b.next - b.count + len(b.buf)) % len(b.buf)
	for i := range out {
		out[i] = b.buf[(start+i)%len(b.buf)]
	}
	b.count = 0
	b.next = 0
	return out, dropped
}

func (b *backlog) len() int {
	return b.count
}
