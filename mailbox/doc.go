// (c) Bernhard Tittelbach, 2024

// Package mailbox implements the event detection and state encoding of the
// mailbox sensor node.
//
// A proximity sensor looking into the mailbox detects mail drops, a reed
// contact on the inner door detects collection. The Controller combines
// both into a MailboxState and reports it as a 24 bit StatusPayload over a
// low bandwidth uplink.
//
// # Components
//
//   - BatteryGauge: raw ADC value to battery percentage (0..99)
//   - DoorMonitor: debounced door contact, emits DoorOpened/DoorClosed
//   - MailDetector: N consecutive proximity hits, gated by the door
//   - EncodeStatus/DecodeStatus: fixed width bit packing of the report
//   - Controller: the polling loop deciding when to report
//
// # Concurrency
//
// Door edges may arrive from any goroutine (the sensor TTY reader). The edge
// handler only debounces and queues the event. All reporting, and therefore
// all blocking uplink I/O, happens on the goroutine calling Tick or Run.
package mailbox
