// (c) Bernhard Tittelbach, 2024

package mailbox

import (
	"errors"
	"fmt"
)

var (
	ErrNoReading        = errors.New("no reading available")
	ErrMalformedPayload = errors.New("malformed status payload")
)

// SensorError is returned by Sensors implementations when a read fails.
type SensorError struct {
	Sensor string
	Err    error
}

func (e *SensorError) Error() string {
	return fmt.Sprintf("sensor %s: %v", e.Sensor, e.Err)
}

func (e *SensorError) Unwrap() error { return e.Err }
