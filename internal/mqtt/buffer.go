package mqtt

import log "github.com/sirupsen/logrus"

// bufferedMsg is a serialized publish held for replay after reconnection.
type bufferedMsg struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// ringBuffer holds the most recent messages published while offline.
// When full, the oldest message is overwritten.
// Not safe for concurrent use; RealClient guards it with its mutex.
type ringBuffer struct {
	msgs    []bufferedMsg
	next    int // slot for the next push
	count   int
	dropped int // overwritten since the last drain
}

func newRingBuffer(capacity int) *ringBuffer {
	if capacity < 1 {
		capacity = 1
	}
	return &ringBuffer{msgs: make([]bufferedMsg, capacity)}
}

func (r *ringBuffer) push(msg bufferedMsg) {
	size := len(r.msgs)
	if r.count == size {
		if r.dropped == 0 {
			log.Warnf("mqtt: offline buffer full (%d messages), dropping oldest", size)
		}
		r.dropped++
	} else {
		r.count++
	}
	r.msgs[r.next] = msg
	r.next = (r.next + 1) % size
}

// drainAll returns the buffered messages oldest first and empties the buffer.
func (r *ringBuffer) drainAll() []bufferedMsg {
	if r.count == 0 {
		return nil
	}
	size := len(r.msgs)
	out := make([]bufferedMsg, 0, r.count)
	for i := r.next - r.count; i < r.next; i++ {
		out = append(out, r.msgs[(i+size)%size])
	}
	if r.dropped > 0 {
		log.Warnf("mqtt: %d buffered messages were lost while offline", r.dropped)
	}
	r.count, r.next, r.dropped = 0, 0, 0
	return out
}

func (r *ringBuffer) len() int {
	return r.count
}
