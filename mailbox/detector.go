// (c) Bernhard Tittelbach, 2024

package mailbox

const (
	DefaultProximityThreshold   = 2
	DefaultDebounceHitsRequired = 3
)

type DetectionResult int

const (
	NotYetDetected DetectionResult = iota
	Detected
	Aborted
)

func (r DetectionResult) String() string {
	switch r {
	case NotYetDetected:
		return "NotYetDetected"
	case Detected:
		return "Detected"
	case Aborted:
		return "Aborted"
	}
	return "DetectionResult(?)"
}

// MailDetector counts consecutive proximity readings strictly above the
// threshold. Any reading at or below the threshold restarts the run.
//
// Once a drop was detected the detector stays latched and only reports
// NotYetDetected until Reset is called. It is not safe for concurrent use,
// the controller loop owns it.
type MailDetector struct {
	threshold    int
	requiredHits int
	hits         int
	latched      bool
}

func NewMailDetector(threshold, requiredHits int) *MailDetector {
	if requiredHits < 1 {
		requiredHits = 1
	}
	return &MailDetector{threshold: threshold, requiredHits: requiredHits}
}

func (m *MailDetector) Poll(doorOpen bool, proximity int) DetectionResult {
	if doorOpen {
		m.Abort()
		return Aborted
	}
	if m.latched {
		return NotYetDetected
	}
	if proximity > m.threshold {
		m.hits++
	} else {
		m.hits = 0
	}
	if m.hits >= m.requiredHits {
		m.hits = 0
		m.latched = true
		return Detected
	}
	return NotYetDetected
}

// Abort drops a run in progress without touching the latch.
func (m *MailDetector) Abort() {
	m.hits = 0
}

// Reset re-arms the detector after the mail was collected.
func (m *MailDetector) Reset() {
	m.hits = 0
	m.latched = false
}

func (m *MailDetector) Hits() int      { return m.hits }
func (m *MailDetector) Latched() bool  { return m.latched }
func (m *MailDetector) Threshold() int { return m.threshold }
