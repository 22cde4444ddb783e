// (c) Bernhard Tittelbach, 2013

package mailboxevents

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

func NameOfStruct(evi interface{}) (name string) {
	etype := fmt.Sprintf("%T", evi)
	etype_lastsep := strings.LastIndex(etype, ".")
	return etype[etype_lastsep+1:] //works in all cases for etype_lastsep in range -1 to len(etype)-1
}

func MarshalEvent2Byte(event_interface interface{}) (data []byte, err error) {
	if _, isonline := event_interface.(Online); isonline {
		return []byte("ONLINE"), nil
	}
	return json.Marshal(event_interface)
}

func MarshalEvent2ByteOrPanic(event_interface interface{}) (data []byte) {
	var err error
	data, err = MarshalEvent2Byte(event_interface)
	if err != nil {
		panic(err)
	}
	return
}

// UnmarshalTopicByte2Event decodes a payload by the last element of its
// topic. Events without timestamp get the current time.
func UnmarshalTopicByte2Event(topic string, data []byte) (event interface{}, err error) {
	topictype := topic[strings.LastIndex(topic, "/")+1:]
	ts := time.Now().Unix()
	switch topictype {
	case TYPE_DOOR:
		newevent := new(MailboxDoorUpdate)
		err = json.Unmarshal(data, newevent)
		if newevent.Ts == 0 {
			newevent.Ts = ts
		}
		event = *newevent
	case TYPE_MAILDROP:
		newevent := new(MailDropDetected)
		err = json.Unmarshal(data, newevent)
		if newevent.Ts == 0 {
			newevent.Ts = ts
		}
		event = *newevent
	case TYPE_COLLECTED:
		newevent := new(MailCollected)
		err = json.Unmarshal(data, newevent)
		if newevent.Ts == 0 {
			newevent.Ts = ts
		}
		event = *newevent
	case TYPE_BATTERY:
		newevent := new(BatteryUpdate)
		err = json.Unmarshal(data, newevent)
		if newevent.Ts == 0 {
			newevent.Ts = ts
		}
		event = *newevent
	case TYPE_STATUSREPORT:
		newevent := new(StatusReport)
		err = json.Unmarshal(data, newevent)
		if newevent.Ts == 0 {
			newevent.Ts = ts
		}
		event = *newevent
	case TYPE_SIGFOXINFO:
		newevent := new(SigfoxModemInfo)
		err = json.Unmarshal(data, newevent)
		if newevent.Ts == 0 {
			newevent.Ts = ts
		}
		event = *newevent
	case TYPE_ONLINE:
		event = Online{}
	default:
		event = nil
		err = errors.New("cannot unmarshal unknown type")
	}
	return
}
