// (c) Bernhard Tittelbach, 2024

// Package sigfox talks to an SFM10R1 style Sigfox module over its AT
// command dialect.
package sigfox

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

const (
	DefaultInfoSettle = 2 * time.Second
	DefaultSendSettle = 6 * time.Second
	DefaultReadGrace  = 500 * time.Millisecond

	// uplink frames carry at most 12 bytes
	MaxFrameBytes = 12

	statusReplyLen = 2
	idReplyLen     = 10
	pacReplyLen    = 18
	maxSendReply   = 64
)

var (
	ErrNoReply        = errors.New("no reply from sigfox module")
	ErrInvalidPayload = errors.New("invalid sigfox payload")
	ErrClosed         = errors.New("sigfox modem closed")
)

type Info struct {
	Status string
	ID     string
	PAC    string
}

// Modem serialises commands to the module. A reader goroutine forwards
// everything the module sends, so a silent module never blocks a command
// longer than settle plus grace.
type Modem struct {
	InfoSettle time.Duration
	SendSettle time.Duration
	ReadGrace  time.Duration

	port  io.ReadWriteCloser
	rx    chan []byte
	sleep func(time.Duration)

	cmdlock sync.Mutex
	closed  chan struct{}
	once    sync.Once
}

func NewModem(port io.ReadWriteCloser) *Modem {
	m := &Modem{
		InfoSettle: DefaultInfoSettle,
		SendSettle: DefaultSendSettle,
		ReadGrace:  DefaultReadGrace,
		port:       port,
		rx:         make(chan []byte, 20),
		sleep:      time.Sleep,
		closed:     make(chan struct{}),
	}
	go m.reader()
	return m
}

func (m *Modem) reader() {
	defer close(m.rx)
	for {
		buf := make([]byte, 64)
		n, err := m.port.Read(buf)
		if n > 0 {
			select {
			case m.rx <- buf[:n]:
			case <-m.closed:
				return
			}
		}
		if err != nil {
			return
		}
	}
}

func (m *Modem) Close() error {
	var err error
	m.once.Do(func() {
		close(m.closed)
		err = m.port.Close()
	})
	return err
}

func (m *Modem) drain() {
	for {
		select {
		case _, ok := <-m.rx:
			if !ok {
				return
			}
		default:
			return
		}
	}
}

// collect gathers up to max bytes, waiting no longer than ReadGrace.
func (m *Modem) collect(max int) []byte {
	var reply []byte
	grace := time.NewTimer(m.ReadGrace)
	defer grace.Stop()
	for len(reply) < max {
		select {
		case chunk, ok := <-m.rx:
			if !ok {
				return reply
			}
			reply = append(reply, chunk...)
		case <-grace.C:
			return reply
		}
	}
	return truncate(reply, max)
}

func truncate(b []byte, max int) []byte {
	if len(b) > max {
		return b[:max]
	}
	return b
}

func (m *Modem) command(cmd string, settle time.Duration, max int) ([]byte, error) {
	m.cmdlock.Lock()
	defer m.cmdlock.Unlock()
	select {
	case <-m.closed:
		return nil, ErrClosed
	default:
	}
	m.drain()
	if _, err := io.WriteString(m.port, cmd+"\r\n"); err != nil {
		return nil, fmt.Errorf("writing %q: %w", cmd, err)
	}
	m.sleep(settle)
	return m.collect(max), nil
}

func (m *Modem) infoCommand(cmd string, max int) (string, error) {
	reply, err := m.command(cmd, m.InfoSettle, max)
	if err != nil {
		return "", err
	}
	if len(reply) == 0 {
		return "", fmt.Errorf("%s: %w", cmd, ErrNoReply)
	}
	return strings.TrimSpace(string(reply)), nil
}

// Probe sends AT, the module answers OK.
func (m *Modem) Probe() (string, error) {
	return m.infoCommand("AT", statusReplyLen)
}

func (m *Modem) DeviceID() (string, error) {
	return m.infoCommand("AT$I=10", idReplyLen)
}

func (m *Modem) PAC() (string, error) {
	return m.infoCommand("AT$I=11", pacReplyLen)
}

// Info runs Probe, DeviceID and PAC. It returns what it got so far together
// with the first error.
func (m *Modem) Info() (info Info, err error) {
	if info.Status, err = m.Probe(); err != nil {
		return
	}
	if info.ID, err = m.DeviceID(); err != nil {
		return
	}
	info.PAC, err = m.PAC()
	return
}

// SendFrame transmits a hex encoded payload. An empty reply is not an
// error, the module often stays silent.
func (m *Modem) SendFrame(payload string) (string, error) {
	if err := checkPayload(payload); err != nil {
		return "", err
	}
	reply, err := m.command("AT$SF="+payload, m.SendSettle, maxSendReply)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(reply)), nil
}

func checkPayload(payload string) error {
	if len(payload) == 0 || len(payload)%2 != 0 {
		return fmt.Errorf("%w: odd or empty length %d", ErrInvalidPayload, len(payload))
	}
	if len(payload)/2 > MaxFrameBytes {
		return fmt.Errorf("%w: %d bytes exceed %d", ErrInvalidPayload, len(payload)/2, MaxFrameBytes)
	}
	if _, err := hex.DecodeString(payload); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidPayload, err)
	}
	return nil
}
