package mailbox

import (
	"bytes"
	"context"
	"errors"
	"log"
	"sync"
	"testing"
	"time"

	"github.com/realraum/mailbox_sensor/mailboxevents"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSensors struct {
	proximity  []int
	batteryRaw uint16
	batteryErr error
	refRaw     uint16
	refErr     error
	charging   bool
	// when set, Proximity fails while doorOpen reports true
	doorOpen func() bool
}

func (f *fakeSensors) Proximity() (int, error) {
	if len(f.proximity) == 0 || (f.doorOpen != nil && f.doorOpen()) {
		return 0, &SensorError{Sensor: "proximity", Err: ErrNoReading}
	}
	v := f.proximity[0]
	f.proximity = f.proximity[1:]
	return v, nil
}

func (f *fakeSensors) Lux() (int, error)             { return 7, nil }
func (f *fakeSensors) Charging() (bool, error)       { return f.charging, nil }
func (f *fakeSensors) BatteryRaw() (uint16, error)   { return f.batteryRaw, f.batteryErr }
func (f *fakeSensors) ReferenceRaw() (uint16, error) { return f.refRaw, f.refErr }

type recordingUplink struct {
	mu       sync.Mutex
	payloads []StatusPayload
	states   []MailboxState
	ctrl     *Controller
	err      error
}

func (u *recordingUplink) SendStatus(p StatusPayload) (string, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.payloads = append(u.payloads, p)
	if u.ctrl != nil {
		u.states = append(u.states, u.ctrl.State())
	}
	if u.err != nil {
		return "", u.err
	}
	return "OK", nil
}

type eventLog struct {
	mu     sync.Mutex
	events []interface{}
}

func (l *eventLog) publish(ev interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, ev)
}

func (l *eventLog) names() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	var names []string
	for _, ev := range l.events {
		names = append(names, mailboxevents.NameOfStruct(ev))
	}
	return names
}

var t0 = time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)

func newTestController(sensors *fakeSensors) (*Controller, *recordingUplink, *eventLog) {
	cfg := DefaultConfig()
	cfg.Battery = BatteryGauge{EmptyVoltage: 3.0, FullVoltage: 4.0, ConversionFactor: 0.25}
	uplink := &recordingUplink{}
	events := &eventLog{}
	c := NewController(cfg, sensors, uplink, events.publish)
	uplink.ctrl = c
	c.now = func() time.Time { return t0 }
	return c, uplink, events
}

func ticks(c *Controller, n int) {
	for i := 0; i < n; i++ {
		c.Tick()
	}
}

func TestControllerReportsDetectionOnce(t *testing.T) {
	sensors := &fakeSensors{proximity: []int{10, 10, 10, 10, 10, 10, 10}, batteryRaw: 15, charging: true}
	c, uplink, events := newTestController(sensors)

	ticks(c, 2)
	assert.Empty(t, uplink.payloads)
	ticks(c, 5)

	require.Len(t, uplink.payloads, 1)
	st := uplink.payloads[0].Status()
	assert.Equal(t, Status{MailDetected: true, Charging: true, BatteryPercent: 75, Proximity: 10}, st)
	assert.True(t, c.State().MailDetected)
	assert.False(t, c.State().MailCollected)

	report, ok := c.LastReport()
	require.True(t, ok)
	assert.True(t, report.Sent)
	assert.Equal(t, "OK", report.Reply)
	assert.Equal(t, uplink.payloads[0].String(), report.Payload)
	assert.Equal(t, []string{"MailDropDetected", "BatteryUpdate", "StatusReport"}, events.names())
}

func TestControllerCollection(t *testing.T) {
	sensors := &fakeSensors{proximity: []int{10, 10, 10}, batteryRaw: 14}
	c, uplink, events := newTestController(sensors)
	ticks(c, 3)
	require.Len(t, uplink.payloads, 1)

	assert.True(t, c.DoorEdge(true, t0.Add(time.Second)))
	c.Tick()

	require.Len(t, uplink.payloads, 2)
	assert.Equal(t, Status{MailDetected: true, MailCollected: true, BatteryPercent: 50}, uplink.payloads[1].Status())
	// the uplink saw the collected state, collection only ever follows detection
	assert.True(t, uplink.states[1].MailCollected)
	assert.True(t, uplink.states[1].MailDetected)

	state := c.State()
	assert.False(t, state.MailDetected)
	assert.False(t, state.MailCollected)
	assert.True(t, state.DoorOpen)
	assert.Contains(t, events.names(), "MailCollected")

	// close, new drop: detector was re-armed by the collection
	assert.True(t, c.DoorEdge(false, t0.Add(2*time.Second)))
	sensors.proximity = []int{10, 10, 10}
	ticks(c, 3)
	require.Len(t, uplink.payloads, 3)
	assert.Equal(t, Status{MailDetected: true, BatteryPercent: 50, Proximity: 10}, uplink.payloads[2].Status())
}

func TestControllerDoorOpenWithoutMail(t *testing.T) {
	sensors := &fakeSensors{batteryRaw: 14}
	c, uplink, events := newTestController(sensors)

	c.DoorEdge(true, t0)
	c.Tick()
	assert.Empty(t, uplink.payloads)
	assert.True(t, c.State().DoorOpen)
	assert.False(t, c.State().MailCollected)
	assert.Equal(t, []interface{}{mailboxevents.MailboxDoorUpdate{Shut: false, Ts: t0.Unix()}}, events.events)
}

func TestControllerNoDetectionWhileDoorOpen(t *testing.T) {
	sensors := &fakeSensors{batteryRaw: 14}
	for i := 0; i < 50; i++ {
		sensors.proximity = append(sensors.proximity, 99)
	}
	c, uplink, _ := newTestController(sensors)
	c.DoorEdge(true, t0)
	ticks(c, 50)
	assert.Empty(t, uplink.payloads)
	assert.Zero(t, c.detector.Hits())
	assert.False(t, c.State().MailDetected)
}

func TestControllerDebouncesDoor(t *testing.T) {
	c, _, _ := newTestController(&fakeSensors{})
	assert.True(t, c.DoorEdge(true, t0))
	assert.False(t, c.DoorEdge(false, t0.Add(100*time.Millisecond)))
	c.Tick()
	assert.True(t, c.State().DoorOpen)
}

func TestControllerSendFailureKeepsState(t *testing.T) {
	sensors := &fakeSensors{proximity: []int{10, 10, 10}, batteryRaw: 14}
	c, uplink, _ := newTestController(sensors)
	uplink.err = errors.New("no reply")
	ticks(c, 3)

	require.Len(t, uplink.payloads, 1)
	assert.True(t, c.State().MailDetected)
	report, ok := c.LastReport()
	require.True(t, ok)
	assert.False(t, report.Sent)
	assert.Equal(t, "no reply", report.Error)

	err := c.Report(0)
	assert.ErrorIs(t, err, uplink.err)
	assert.True(t, c.State().MailDetected)
}

func TestControllerSurvivesSensorFaults(t *testing.T) {
	sensors := &fakeSensors{proximity: []int{10, 10}, batteryErr: errors.New("adc fault")}
	c, uplink, _ := newTestController(sensors)
	ticks(c, 2)
	// no reading: the run is neither advanced nor broken
	ticks(c, 5)
	assert.Equal(t, 2, c.detector.Hits())

	sensors.proximity = []int{10}
	c.Tick()
	require.Len(t, uplink.payloads, 1)
	assert.Equal(t, 0, uplink.payloads[0].Status().BatteryPercent)
}

func TestControllerSelfCheck(t *testing.T) {
	c, _, events := newTestController(&fakeSensors{batteryRaw: 15, refRaw: 13})
	var logged bytes.Buffer
	c.Log = log.New(&logged, "", 0)
	c.SelfCheck()
	assert.Equal(t, 75, c.State().BatteryPercent)
	assert.Equal(t, []interface{}{mailboxevents.BatteryUpdate{Voltage: 3.75, Percent: 75, Ts: t0.Unix()}}, events.events)
	assert.Contains(t, logged.String(), "Known Voltage Source - Raw ADC: 13, Measured Voltage: 3.25V")
	assert.Contains(t, logged.String(), "Battery Voltage Source - Raw ADC: 15, Measured Voltage: 3.75V, Percentage: 75%")
}

func TestControllerSelfCheckWithoutReference(t *testing.T) {
	c, _, _ := newTestController(&fakeSensors{batteryRaw: 15, refErr: &SensorError{Sensor: "vref", Err: ErrNoReading}})
	var logged bytes.Buffer
	c.Log = log.New(&logged, "", 0)
	c.SelfCheck()
	assert.Contains(t, logged.String(), "reference self check failed")
	assert.Equal(t, 75, c.State().BatteryPercent)
}

func TestControllerDoorCycleBetweenTicksRestartsRun(t *testing.T) {
	sensors := &fakeSensors{proximity: []int{10, 10}, batteryRaw: 14}
	c, uplink, _ := newTestController(sensors)
	ticks(c, 2)
	require.Equal(t, 2, c.detector.Hits())

	assert.True(t, c.DoorEdge(true, t0))
	assert.True(t, c.DoorEdge(false, t0.Add(300*time.Millisecond)))
	sensors.proximity = []int{10}
	c.Tick()
	assert.Empty(t, uplink.payloads, "one reading after the door opened must not complete a run")
	assert.Equal(t, 1, c.detector.Hits())

	sensors.proximity = []int{10, 10}
	ticks(c, 2)
	assert.Len(t, uplink.payloads, 1)
}

func TestControllerDoorOpenWithoutReadingsRestartsRun(t *testing.T) {
	sensors := &fakeSensors{proximity: []int{10, 10}, batteryRaw: 14}
	c, uplink, _ := newTestController(sensors)
	ticks(c, 2)
	require.Equal(t, 2, c.detector.Hits())

	c.DoorEdge(true, t0)
	sensors.doorOpen = c.door.IsOpen
	ticks(c, 3)
	assert.Zero(t, c.detector.Hits())

	c.DoorEdge(false, t0.Add(300*time.Millisecond))
	sensors.proximity = []int{10}
	c.Tick()
	assert.Empty(t, uplink.payloads)
	assert.Equal(t, 1, c.detector.Hits())
}

func TestControllerRunStops(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PollInterval = time.Millisecond
	c := NewController(cfg, &fakeSensors{}, &recordingUplink{}, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, c.Run(ctx), context.DeadlineExceeded)
}
