// (c) Bernhard Tittelbach, 2013

package main

import (
	"bufio"
	"errors"
	"io"
	"strings"
	"syscall"

	"github.com/schleibinger/sio"
)

// ---------- Serial TTY Code -------------

func openTTY(name string, speed uint) (*sio.Port, error) {
	var rate uint32
	switch speed {
	case 1200:
		rate = syscall.B1200
	case 2400:
		rate = syscall.B2400
	case 4800:
		rate = syscall.B4800
	case 9600:
		rate = syscall.B9600
	case 19200:
		rate = syscall.B19200
	case 38400:
		rate = syscall.B38400
	case 57600:
		rate = syscall.B57600
	case 115200:
		rate = syscall.B115200
	case 230400:
		rate = syscall.B230400
	default:
		return nil, errors.New("Unsupported Baudrate")
	}
	return sio.Open(name, rate)
}

func serialWriter(in <-chan string, serial io.WriteCloser) {
	for totty := range in {
		io.WriteString(serial, totty)
	}
	serial.Close()
}

func serialReader(out chan<- SerialLine, serial io.Reader) {
	defer close(out)
	linescanner := bufio.NewScanner(serial)
	linescanner.Split(bufio.ScanLines)
	for linescanner.Scan() {
		text := strings.Fields(linescanner.Text())
		if len(text) == 0 {
			continue
		}
		out <- text
	}
	if err := linescanner.Err(); err != nil {
		Syslog_.Print("serial read error: ", err)
	}
}

// OpenAndHandleSerial returns a write chan, closing it closes the tty, and
// a chan of whitespace split lines which is closed when the tty goes away.
func OpenAndHandleSerial(filename string, serspeed uint) (chan string, chan SerialLine, error) {
	serial, err := openTTY(filename, serspeed)
	if err != nil {
		return nil, nil, err
	}
	wr := make(chan string, 1)
	rd := make(chan SerialLine, 20)
	go serialWriter(wr, serial)
	go serialReader(rd, serial)
	return wr, rd, nil
}
