// (c) Bernhard Tittelbach, 2024

package mailbox

import (
	"context"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"github.com/hishboy/gocommons/lang"
	"github.com/realraum/mailbox_sensor/mailboxevents"
)

const DefaultPollInterval = 100 * time.Millisecond

// Sensors is the read side of the sensor hardware. Failed reads return an
// error, preferably a *SensorError.
type Sensors interface {
	Proximity() (int, error)
	Lux() (int, error)
	BatteryRaw() (uint16, error)
	// ReferenceRaw reads the ADC channel wired to a known voltage.
	ReferenceRaw() (uint16, error)
	Charging() (bool, error)
}

// Uplink transmits a status payload. It may block for several seconds.
type Uplink interface {
	SendStatus(payload StatusPayload) (reply string, err error)
}

type Config struct {
	ProximityThreshold int
	RequiredHits       int
	DoorDebounce       time.Duration
	PollInterval       time.Duration
	Battery            BatteryGauge
}

func DefaultConfig() Config {
	return Config{
		ProximityThreshold: DefaultProximityThreshold,
		RequiredHits:       DefaultDebounceHitsRequired,
		DoorDebounce:       DefaultDoorDebounce,
		PollInterval:       DefaultPollInterval,
		Battery:            DefaultBatteryGauge(),
	}
}

// Controller owns the MailboxState and runs the detection loop.
//
// DoorEdge may be called from any goroutine. Tick, Run and SelfCheck must
// be called from a single goroutine.
type Controller struct {
	Log   *log.Logger
	Debug *log.Logger

	cfg      Config
	sensors  Sensors
	uplink   Uplink
	publish  func(interface{})
	now      func() time.Time
	door     *DoorMonitor
	detector *MailDetector
	// accepted door events, pushed by the edge handler, drained by Tick
	doorevents *lang.Queue

	mu         sync.RWMutex
	state      MailboxState
	lastReport *mailboxevents.StatusReport
}

// NewController wires the components. publish receives every
// mailboxevents value the controller produces and may be nil.
func NewController(cfg Config, sensors Sensors, uplink Uplink, publish func(interface{})) *Controller {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if publish == nil {
		publish = func(interface{}) {}
	}
	c := &Controller{
		Log:        log.New(io.Discard, "", 0),
		Debug:      log.New(io.Discard, "", 0),
		cfg:        cfg,
		sensors:    sensors,
		uplink:     uplink,
		publish:    publish,
		now:        time.Now,
		detector:   NewMailDetector(cfg.ProximityThreshold, cfg.RequiredHits),
		doorevents: lang.NewQueue(),
	}
	c.door = NewDoorMonitor(cfg.DoorDebounce, func(ev DoorEvent) { c.doorevents.Push(ev) })
	return c
}

// DoorEdge is the door contact edge handler. It never blocks on I/O.
func (c *Controller) DoorEdge(open bool, at time.Time) bool {
	return c.door.Edge(open, at)
}

func (c *Controller) State() MailboxState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

func (c *Controller) LastReport() (mailboxevents.StatusReport, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.lastReport == nil {
		return mailboxevents.StatusReport{}, false
	}
	return *c.lastReport, true
}

func (c *Controller) Run(ctx context.Context) error {
	ticker := time.NewTicker(c.cfg.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			c.Tick()
		}
	}
}

// Tick is one iteration of the loop: handle queued door events, read the
// charging pin, poll the detector and report a fresh drop.
func (c *Controller) Tick() {
	for c.doorevents.Len() > 0 {
		if ev, ok := c.doorevents.Poll().(DoorEvent); ok {
			c.handleDoorEvent(ev)
		}
	}

	if charging, err := c.sensors.Charging(); err != nil {
		c.Debug.Printf("charging: %s", err)
	} else {
		c.mu.Lock()
		c.state.Charging = charging
		c.mu.Unlock()
	}

	doorOpen := c.door.IsOpen()
	if doorOpen {
		c.detector.Abort()
	}
	proximity, err := c.sensors.Proximity()
	if err != nil {
		c.Debug.Printf("no proximity reading this tick: %s", err)
		return
	}
	if c.detector.Poll(doorOpen, proximity) == Detected {
		c.mailDetected(proximity)
	}
}

// SelfCheck logs the reference and battery rails and publishes the
// battery state once. Comparing the reference voltage with its known value
// shows a wrong conversion factor.
func (c *Controller) SelfCheck() {
	if raw, err := c.sensors.ReferenceRaw(); err != nil {
		c.Log.Printf("reference self check failed: %s", err)
	} else {
		c.Log.Printf("Known Voltage Source - Raw ADC: %d, Measured Voltage: %.2fV",
			raw, c.cfg.Battery.Voltage(raw))
	}
	raw, err := c.sensors.BatteryRaw()
	if err != nil {
		c.Log.Printf("battery self check failed: %s", err)
		return
	}
	c.Log.Printf("Battery Voltage Source - Raw ADC: %d, Measured Voltage: %.2fV, Percentage: %d%%",
		raw, c.cfg.Battery.Voltage(raw), c.cfg.Battery.Percentage(raw))
	c.applyBattery(raw)
}

func (c *Controller) handleDoorEvent(ev DoorEvent) {
	open := ev.Kind == DoorOpened
	c.mu.Lock()
	c.state.DoorOpen = open
	detected := c.state.MailDetected
	c.mu.Unlock()
	c.publish(mailboxevents.MailboxDoorUpdate{Shut: !open, Ts: ev.At.Unix()})

	if !open {
		c.Log.Print("Door closed")
		return
	}
	c.Log.Print("Door opened")
	// a run started before the door opened must not carry over
	c.detector.Abort()
	if detected {
		c.collect(ev.At)
	}
}

func (c *Controller) collect(at time.Time) {
	c.mu.Lock()
	c.state.MailCollected = true
	c.mu.Unlock()
	c.Log.Print("Mail collected")
	c.publish(mailboxevents.MailCollected{Ts: at.Unix()})
	c.refreshBattery()

	if err := c.Report(0); err != nil {
		c.Log.Printf("collection report: %s", err)
	}

	// fire and forget: the collection is done whether the report went out or not
	c.mu.Lock()
	c.state.MailDetected = false
	c.state.MailCollected = false
	c.mu.Unlock()
	c.detector.Reset()
}

func (c *Controller) mailDetected(proximity int) {
	c.mu.Lock()
	if c.state.MailCollected {
		c.mu.Unlock()
		return
	}
	c.state.MailDetected = true
	c.mu.Unlock()

	lux, err := c.sensors.Lux()
	if err != nil {
		lux = -1
	}
	c.Log.Printf("Mail has been detected! Proximity: %d, Lux: %d", proximity, lux)
	c.publish(mailboxevents.MailDropDetected{Proximity: proximity, Lux: lux, Ts: c.now().Unix()})
	c.refreshBattery()

	if err := c.Report(proximity); err != nil {
		c.Log.Printf("detection report: %s", err)
	}
}

func (c *Controller) refreshBattery() {
	raw, err := c.sensors.BatteryRaw()
	if err != nil {
		c.Debug.Printf("battery: %s", err)
		return
	}
	c.applyBattery(raw)
}

func (c *Controller) applyBattery(raw uint16) {
	percent := c.cfg.Battery.Percentage(raw)
	c.mu.Lock()
	c.state.BatteryPercent = percent
	charging := c.state.Charging
	c.mu.Unlock()
	c.publish(mailboxevents.BatteryUpdate{
		Voltage:  c.cfg.Battery.Voltage(raw),
		Percent:  percent,
		Charging: charging,
		Ts:       c.now().Unix(),
	})
}

// Report encodes the current state with the given proximity and hands it
// to the uplink. A failed send leaves the state untouched.
func (c *Controller) Report(proximity int) error {
	state := c.State()
	payload := EncodeStatus(state, proximity)
	st := payload.Status()
	c.Debug.Printf("Payload: %s", payload)
	c.Debug.Printf("  - Mail Detected: %t", st.MailDetected)
	c.Debug.Printf("  - Mail Collected: %t", st.MailCollected)
	c.Debug.Printf("  - Battery Percentage: %d%%", st.BatteryPercent)
	c.Debug.Printf("  - Proximity: %d", st.Proximity)
	c.Debug.Printf("  - Charging: %t", st.Charging)

	reply, err := c.uplink.SendStatus(payload)
	report := mailboxevents.StatusReport{
		Payload:        payload.String(),
		MailDetected:   st.MailDetected,
		MailCollected:  st.MailCollected,
		BatteryPercent: st.BatteryPercent,
		Proximity:      st.Proximity,
		Charging:       st.Charging,
		Sent:           err == nil,
		Reply:          reply,
		Ts:             c.now().Unix(),
	}
	if err != nil {
		report.Error = err.Error()
	}
	c.mu.Lock()
	c.lastReport = &report
	c.mu.Unlock()
	c.publish(report)

	if err != nil {
		return fmt.Errorf("sending status %s: %w", payload, err)
	}
	if reply == "" {
		c.Log.Printf("Status %s sent, no response from uplink", payload)
	} else {
		c.Log.Printf("Status %s sent, response: %s", payload, reply)
	}
	return nil
}
