// (c) Bernhard Tittelbach, 2013

package main

import (
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/realraum/mailbox_sensor/mailbox"
)

type SerialLine []string

const exponential_backof_activation_threshold int64 = 4

// SensorTTY keeps the latest values printed by the sensor firmware:
//
//	Proximity: 5
//	Lux: 120
//	VSys: 41234
//	VRef: 20000
//	Charging: 1
//	Door: open|shut
type SensorTTY struct {
	mu              sync.Mutex
	proximity       int
	proximity_fresh bool
	lux             int
	have_lux        bool
	vsys            uint16
	have_vsys       bool
	vref            uint16
	have_vref       bool
	charging        bool
	have_charging   bool
	last_seen       time.Time
}

func NewSensorTTY() *SensorTTY {
	return &SensorTTY{}
}

// HandleLine parses one firmware line. Door lines are handed to door_edge
// stamped with now.
func (s *SensorTTY) HandleLine(line SerialLine, now time.Time, door_edge func(open bool, at time.Time) bool) error {
	if len(line) < 2 {
		return fmt.Errorf("short line: %s", line)
	}
	s.mu.Lock()
	s.last_seen = now
	s.mu.Unlock()

	switch line[0] {
	case "Proximity:":
		v, err := strconv.Atoi(line[1])
		if err != nil {
			return err
		}
		s.mu.Lock()
		s.proximity = v
		s.proximity_fresh = true
		s.mu.Unlock()
	case "Lux:":
		v, err := strconv.Atoi(line[1])
		if err != nil {
			return err
		}
		s.mu.Lock()
		s.lux = v
		s.have_lux = true
		s.mu.Unlock()
	case "VSys:":
		v, err := strconv.ParseUint(line[1], 10, 16)
		if err != nil {
			return err
		}
		s.mu.Lock()
		s.vsys = uint16(v)
		s.have_vsys = true
		s.mu.Unlock()
	case "VRef:":
		v, err := strconv.ParseUint(line[1], 10, 16)
		if err != nil {
			return err
		}
		s.mu.Lock()
		s.vref = uint16(v)
		s.have_vref = true
		s.mu.Unlock()
	case "Charging:":
		v, err := strconv.ParseBool(line[1])
		if err != nil {
			return err
		}
		s.mu.Lock()
		s.charging = v
		s.have_charging = true
		s.mu.Unlock()
	case "Door:":
		switch line[1] {
		case "open":
			door_edge(true, now)
		case "shut":
			door_edge(false, now)
		default:
			return fmt.Errorf("unknown door state %q", line[1])
		}
	default:
		return fmt.Errorf("unknown line: %s", line)
	}
	return nil
}

// Proximity hands out every sample only once.
func (s *SensorTTY) Proximity() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.proximity_fresh {
		return 0, &mailbox.SensorError{Sensor: "proximity", Err: mailbox.ErrNoReading}
	}
	s.proximity_fresh = false
	return s.proximity, nil
}

func (s *SensorTTY) Lux() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.have_lux {
		return 0, &mailbox.SensorError{Sensor: "lux", Err: mailbox.ErrNoReading}
	}
	return s.lux, nil
}

func (s *SensorTTY) BatteryRaw() (uint16, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.have_vsys {
		return 0, &mailbox.SensorError{Sensor: "vsys", Err: mailbox.ErrNoReading}
	}
	return s.vsys, nil
}

func (s *SensorTTY) ReferenceRaw() (uint16, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.have_vref {
		return 0, &mailbox.SensorError{Sensor: "vref", Err: mailbox.ErrNoReading}
	}
	return s.vref, nil
}

func (s *SensorTTY) Charging() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.have_charging {
		return false, &mailbox.SensorError{Sensor: "charging", Err: mailbox.ErrNoReading}
	}
	return s.charging, nil
}

func (s *SensorTTY) LastSeen() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last_seen
}

// ConnectSensorTTY feeds firmware lines into sensors until the tty goes away.
func ConnectSensorTTY(sensors *SensorTTY, ctrl *mailbox.Controller, ttypath string, speed uint, timeout time.Duration) {
	serial_wr, serial_rd, err := OpenAndHandleSerial(ttypath, speed)
	if err != nil {
		Syslog_.Printf("Error opening sensor tty %s: %s", ttypath, err)
		return
	}
	defer close(serial_wr)
	HandleSensorLines(serial_rd, sensors, ctrl.DoorEdge, timeout)
}

func HandleSensorLines(serial_rd <-chan SerialLine, sensors *SensorTTY, door_edge func(bool, time.Time) bool, timeout time.Duration) {
	t := time.NewTimer(timeout)
	defer t.Stop()
	for {
		select {
		case incoming_ser_line, seropen := <-serial_rd:
			if !seropen {
				return
			}
			t.Reset(timeout)
			Debug_.Printf("%s", incoming_ser_line)
			if err := sensors.HandleLine(incoming_ser_line, time.Now(), door_edge); err != nil {
				Syslog_.Printf("Received unusable line: %s", err)
			}
		case <-t.C:
			Syslog_.Printf("Timeout, no message from sensor firmware for %s", timeout)
			t.Reset(timeout)
		}
	}
}

// KeepSensorTTYConnected reopens the tty with exponential backoff.
func KeepSensorTTYConnected(sensors *SensorTTY, ctrl *mailbox.Controller, ttypath string, speed uint) {
	var backoff_exp uint32 = 0
	for {
		start_time := time.Now().Unix()
		ConnectSensorTTY(sensors, ctrl, ttypath, speed, time.Second*120)
		run_time := time.Now().Unix() - start_time
		if run_time > exponential_backof_activation_threshold {
			backoff_exp = 0
		}
		time.Sleep(150 * (1 << backoff_exp) * time.Millisecond)
		if backoff_exp < 12 {
			backoff_exp++
		}
	}
}
