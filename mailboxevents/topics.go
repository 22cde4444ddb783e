// (c) Bernhard Tittelbach, 2013

package mailboxevents

const CLIENTID_MAILBOX = "mailbox_sensor_node"

const (
	TOPIC_MAILBOX_PREFIX    string = "realraum/mailbox/"
	TYPE_DOOR               string = "ajar"
	TYPE_MAILDROP           string = "maildrop"
	TYPE_COLLECTED          string = "collected"
	TYPE_BATTERY            string = "battery"
	TYPE_STATUSREPORT       string = "statusreport"
	TYPE_SIGFOXINFO         string = "sigfoxinfo"
	TYPE_ONLINE             string = "online"
	TOPIC_MAILBOX_DOOR      string = TOPIC_MAILBOX_PREFIX + TYPE_DOOR
	TOPIC_MAILBOX_MAILDROP  string = TOPIC_MAILBOX_PREFIX + TYPE_MAILDROP
	TOPIC_MAILBOX_COLLECTED string = TOPIC_MAILBOX_PREFIX + TYPE_COLLECTED
	TOPIC_MAILBOX_BATTERY   string = TOPIC_MAILBOX_PREFIX + TYPE_BATTERY
	TOPIC_MAILBOX_STATUS    string = TOPIC_MAILBOX_PREFIX + TYPE_STATUSREPORT
	TOPIC_MAILBOX_SIGFOX    string = TOPIC_MAILBOX_PREFIX + TYPE_SIGFOXINFO
	TOPIC_MAILBOX_ONLINE    string = TOPIC_MAILBOX_PREFIX + TYPE_ONLINE

	PS_MAILBOXEVENTS string = "mailboxevents"
)

// TopicForEvent returns the mqtt topic an event is published on and
// whether the broker should retain it.
func TopicForEvent(evi interface{}) (topic string, retain bool, ok bool) {
	switch evi.(type) {
	case MailboxDoorUpdate:
		return TOPIC_MAILBOX_DOOR, true, true
	case MailDropDetected:
		return TOPIC_MAILBOX_MAILDROP, false, true
	case MailCollected:
		return TOPIC_MAILBOX_COLLECTED, false, true
	case BatteryUpdate:
		return TOPIC_MAILBOX_BATTERY, true, true
	case StatusReport:
		return TOPIC_MAILBOX_STATUS, true, true
	case SigfoxModemInfo:
		return TOPIC_MAILBOX_SIGFOX, true, true
	case Online:
		return TOPIC_MAILBOX_ONLINE, true, true
	}
	return "", false, false
}
