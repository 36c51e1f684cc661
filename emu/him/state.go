/*
 * periph - HIM connection state machine
 *
 * Copyright 2024, Richard Cornwell
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in
 * all copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 */

package him

// State is the per-subchannel connection state.
type State int

const (
	StateShutdown State = iota
	StateInitialized
	StateConnected
	StateClosing
)

func (s State) String() string {
	switch s {
	case StateShutdown:
		return "SHUTDOWN"
	case StateInitialized:
		return "INITIALIZED"
	case StateConnected:
		return "CONNECTED"
	case StateClosing:
		return "CLOSING"
	default:
		return "UNKNOWN"
	}
}

// EventKind is one entry in a control block's read-event queue.
type EventKind int

const (
	EventConfig EventKind = iota
	EventMSS
	EventACK
	EventFIN
	EventFinished
)

// maxQueueDepth bounds the event queue; the connection engine never
// enqueues past it (a configuration reaching this depth indicates a
// runaway peer, not a design scenario to recover from gracefully).
const maxQueueDepth = 16

// EventQueue is the bounded, strictly-FIFO read-event queue the
// connection engine consults from READ CCWs.
type EventQueue struct {
	entries []EventKind
	maxSeen int
}

// Push enqueues kind, reporting false and leaving the queue unchanged if
// it is already at maxQueueDepth.
func (q *EventQueue) Push(kind EventKind) bool {
	if len(q.entries) >= maxQueueDepth {
		return false
	}
	q.entries = append(q.entries, kind)
	if len(q.entries) > q.maxSeen {
		q.maxSeen = len(q.entries)
	}
	return true
}

// Peek returns the head of the queue without removing it.
func (q *EventQueue) Peek() (EventKind, bool) {
	if len(q.entries) == 0 {
		return 0, false
	}
	return q.entries[0], true
}

// Shift removes the head of the queue.
func (q *EventQueue) Shift() {
	if len(q.entries) == 0 {
		return
	}
	q.entries = q.entries[1:]
}

// Len reports the current queue depth.
func (q *EventQueue) Len() int { return len(q.entries) }

// MaxSeen reports the high-water mark the queue has reached.
func (q *EventQueue) MaxSeen() int { return q.maxSeen }
