package main

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/realraum/mailbox_sensor/mailbox"
)

type edge struct {
	open bool
	at   time.Time
}

func TestSensorTTYParsesLines(t *testing.T) {
	s := NewSensorTTY()
	now := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	var edges []edge
	door := func(open bool, at time.Time) bool {
		edges = append(edges, edge{open, at})
		return true
	}

	for _, line := range []string{"Proximity: 5", "Lux: 120", "VSys: 41234", "VRef: 20000", "Charging: 1", "Door: open", "Door: shut"} {
		if err := s.HandleLine(strings.Fields(line), now, door); err != nil {
			t.Fatalf("HandleLine(%q): %s", line, err)
		}
	}

	if v, err := s.Proximity(); err != nil || v != 5 {
		t.Fatalf("Proximity() = %d, %v", v, err)
	}
	if v, err := s.Lux(); err != nil || v != 120 {
		t.Fatalf("Lux() = %d, %v", v, err)
	}
	if v, err := s.BatteryRaw(); err != nil || v != 41234 {
		t.Fatalf("BatteryRaw() = %d, %v", v, err)
	}
	if v, err := s.ReferenceRaw(); err != nil || v != 20000 {
		t.Fatalf("ReferenceRaw() = %d, %v", v, err)
	}
	if v, err := s.Charging(); err != nil || !v {
		t.Fatalf("Charging() = %t, %v", v, err)
	}
	if len(edges) != 2 || !edges[0].open || edges[1].open || !edges[0].at.Equal(now) {
		t.Fatalf("Unexpected door edges: %+v", edges)
	}
	if !s.LastSeen().Equal(now) {
		t.Fatalf("LastSeen() = %s", s.LastSeen())
	}
}

func TestSensorTTYProximityOnlyOnce(t *testing.T) {
	s := NewSensorTTY()
	s.HandleLine(SerialLine{"Proximity:", "3"}, time.Now(), nil)
	if _, err := s.Proximity(); err != nil {
		t.Fatal(err)
	}
	_, err := s.Proximity()
	var serr *mailbox.SensorError
	if !errors.As(err, &serr) || serr.Sensor != "proximity" || !errors.Is(err, mailbox.ErrNoReading) {
		t.Fatalf("second Proximity() error = %v, want stale proximity SensorError", err)
	}
}

func TestSensorTTYNothingSeen(t *testing.T) {
	s := NewSensorTTY()
	if _, err := s.BatteryRaw(); !errors.Is(err, mailbox.ErrNoReading) {
		t.Errorf("BatteryRaw() error = %v", err)
	}
	if _, err := s.Charging(); !errors.Is(err, mailbox.ErrNoReading) {
		t.Errorf("Charging() error = %v", err)
	}
	if _, err := s.ReferenceRaw(); !errors.Is(err, mailbox.ErrNoReading) {
		t.Errorf("ReferenceRaw() error = %v", err)
	}
	if _, err := s.Lux(); !errors.Is(err, mailbox.ErrNoReading) {
		t.Errorf("Lux() error = %v", err)
	}
}

func TestSensorTTYRejectsGarbage(t *testing.T) {
	s := NewSensorTTY()
	door := func(bool, time.Time) bool { t.Fatal("door edge from garbage"); return false }
	for _, line := range []SerialLine{
		{"Proximity:"},
		{"Proximity:", "far"},
		{"VSys:", "70000"},
		{"VRef:", "-1"},
		{"Charging:", "maybe"},
		{"Door:", "ajar"},
		{"Hello", "world"},
	} {
		if err := s.HandleLine(line, time.Now(), door); err == nil {
			t.Errorf("HandleLine(%s) accepted garbage", line)
		}
	}
}

func TestHandleSensorLinesFeedsController(t *testing.T) {
	s := NewSensorTTY()
	ctrl := mailbox.NewController(mailbox.DefaultConfig(), s, nil, nil)
	lines := make(chan SerialLine, 4)
	lines <- SerialLine{"Door:", "open"}
	lines <- SerialLine{"VSys:", "1000"}
	close(lines)

	HandleSensorLines(lines, s, ctrl.DoorEdge, time.Minute)
	ctrl.Tick()

	if !ctrl.State().DoorOpen {
		t.Fatal("door open line did not reach the controller")
	}
	if v, _ := s.BatteryRaw(); v != 1000 {
		t.Fatalf("BatteryRaw() = %d", v)
	}
}
