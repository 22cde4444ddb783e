// (c) Bernhard Tittelbach, 2024

package mailbox

import (
	"fmt"
	"strconv"
)

// Bit layout of the 24 bit status payload, bit 0 is the least significant.
//
//	bit  0     charging
//	bits 1-7   proximity (0..99)
//	bits 8-14  battery percent (0..99)
//	bit  15    mail collected
//	bit  16    mail detected
//	bits 17-23 unused, always 0
const (
	chargingShift      = 0
	proximityShift     = 1
	batteryShift       = 8
	mailCollectedShift = 15
	mailDetectedShift  = 16

	fieldMask7  = 0x7f
	usedBitMask = 1<<17 - 1

	MaxFieldValue   = 99
	StatusHexDigits = 6
)

// MailboxState is the controller's knowledge of the mailbox.
type MailboxState struct {
	MailDetected   bool
	MailCollected  bool
	DoorOpen       bool
	Charging       bool
	BatteryPercent int
}

// Status holds the fields carried in a StatusPayload.
type Status struct {
	MailDetected   bool
	MailCollected  bool
	Charging       bool
	BatteryPercent int
	Proximity      int
}

// StatusPayload is the packed 24 bit status record.
type StatusPayload uint32

func clampField(v int) uint32 {
	if v < 0 {
		return 0
	}
	if v > MaxFieldValue {
		return MaxFieldValue
	}
	return uint32(v)
}

func boolBit(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}

// EncodeStatus packs state and a proximity value. Proximity and battery
// percent are clamped into 0..99, never rejected.
func EncodeStatus(state MailboxState, proximity int) StatusPayload {
	return Status{
		MailDetected:   state.MailDetected,
		MailCollected:  state.MailCollected,
		Charging:       state.Charging,
		BatteryPercent: state.BatteryPercent,
		Proximity:      proximity,
	}.Encode()
}

func (s Status) Encode() StatusPayload {
	v := boolBit(s.Charging)<<chargingShift |
		clampField(s.Proximity)<<proximityShift |
		clampField(s.BatteryPercent)<<batteryShift |
		boolBit(s.MailCollected)<<mailCollectedShift |
		boolBit(s.MailDetected)<<mailDetectedShift
	return StatusPayload(v)
}

// String renders the wire form: six lowercase hex digits.
func (p StatusPayload) String() string {
	return fmt.Sprintf("%06x", uint32(p)&0xffffff)
}

func (p StatusPayload) Status() Status {
	v := uint32(p)
	return Status{
		Charging:       v>>chargingShift&1 == 1,
		Proximity:      int(v >> proximityShift & fieldMask7),
		BatteryPercent: int(v >> batteryShift & fieldMask7),
		MailCollected:  v>>mailCollectedShift&1 == 1,
		MailDetected:   v>>mailDetectedShift&1 == 1,
	}
}

// DecodeStatus parses the wire form. Anything that EncodeStatus could not
// have produced fails with ErrMalformedPayload.
func DecodeStatus(payload string) (Status, error) {
	if len(payload) != StatusHexDigits {
		return Status{}, fmt.Errorf("%w: want %d hex digits, got %d", ErrMalformedPayload, StatusHexDigits, len(payload))
	}
	v, err := strconv.ParseUint(payload, 16, 32)
	if err != nil {
		return Status{}, fmt.Errorf("%w: %q is not hex", ErrMalformedPayload, payload)
	}
	if v&^usedBitMask != 0 {
		return Status{}, fmt.Errorf("%w: unused bits set in %q", ErrMalformedPayload, payload)
	}
	st := StatusPayload(v).Status()
	if st.Proximity > MaxFieldValue || st.BatteryPercent > MaxFieldValue {
		return Status{}, fmt.Errorf("%w: field out of range in %q", ErrMalformedPayload, payload)
	}
	return st, nil
}
