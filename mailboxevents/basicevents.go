// (c) Bernhard Tittelbach, 2013

package mailboxevents

type MailboxDoorUpdate struct {
	Shut bool
	Ts   int64
}

type MailDropDetected struct {
	Proximity int
	Lux       int
	Ts        int64
}

type MailCollected struct {
	Ts int64
}

type BatteryUpdate struct {
	Voltage  float64
	Percent  int
	Charging bool
	Ts       int64
}

// StatusReport mirrors one status payload handed to the radio uplink.
type StatusReport struct {
	Payload        string
	MailDetected   bool
	MailCollected  bool
	BatteryPercent int
	Proximity      int
	Charging       bool
	Sent           bool
	Reply          string `json:",omitempty"`
	Error          string `json:",omitempty"`
	Ts             int64
}

type SigfoxModemInfo struct {
	Status string
	ID     string
	PAC    string
	Ts     int64
}

type Online struct{}
