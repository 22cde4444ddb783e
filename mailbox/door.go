// (c) Bernhard Tittelbach, 2024

package mailbox

import (
	"sync"
	"time"
)

const DefaultDoorDebounce = 200 * time.Millisecond

type DoorState int

const (
	DoorStateClosed DoorState = iota
	DoorStateOpen
)

func (s DoorState) String() string {
	if s == DoorStateOpen {
		return "open"
	}
	return "closed"
}

type DoorEventKind int

const (
	DoorOpened DoorEventKind = iota + 1
	DoorClosed
)

func (k DoorEventKind) String() string {
	switch k {
	case DoorOpened:
		return "DoorOpened"
	case DoorClosed:
		return "DoorClosed"
	}
	return "DoorEventKind(?)"
}

type DoorEvent struct {
	Kind DoorEventKind
	At   time.Time
}

// DoorMonitor debounces the door contact. It starts in DoorStateClosed and
// accepts the very first edge unconditionally. Afterwards an edge is only
// accepted if strictly more than the debounce interval has passed since the
// last accepted edge, everything sooner is dropped.
//
// Accepted edges that change the state are handed synchronously to the
// listener. The listener runs with the monitor locked and must not block.
type DoorMonitor struct {
	mu       sync.Mutex
	debounce time.Duration
	state    DoorState
	lastEdge time.Time
	seen     bool
	listener func(DoorEvent)
}

func NewDoorMonitor(debounce time.Duration, listener func(DoorEvent)) *DoorMonitor {
	return &DoorMonitor{debounce: debounce, state: DoorStateClosed, listener: listener}
}

// Edge feeds one raw contact level. It reports whether the edge was accepted.
func (d *DoorMonitor) Edge(open bool, at time.Time) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.seen && at.Sub(d.lastEdge) <= d.debounce {
		return false
	}
	d.seen = true
	d.lastEdge = at

	newstate := DoorStateClosed
	if open {
		newstate = DoorStateOpen
	}
	if newstate == d.state {
		return true
	}
	d.state = newstate
	if d.listener != nil {
		kind := DoorClosed
		if newstate == DoorStateOpen {
			kind = DoorOpened
		}
		d.listener(DoorEvent{Kind: kind, At: at})
	}
	return true
}

func (d *DoorMonitor) State() DoorState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

func (d *DoorMonitor) IsOpen() bool {
	return d.State() == DoorStateOpen
}
