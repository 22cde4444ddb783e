// (c) Bernhard Tittelbach, 2016
package main

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/btittelbach/pubsub"
	"github.com/codegangsta/negroni"
	"github.com/realraum/mailbox_sensor/mailbox"
	"github.com/realraum/mailbox_sensor/mailboxevents"
)

type StatusDocument struct {
	MailDetected   bool
	DoorOpen       bool
	Charging       bool
	BatteryPercent int
	LastReport     *mailboxevents.StatusReport    `json:",omitempty"`
	Battery        *mailboxevents.BatteryUpdate   `json:",omitempty"`
	Sigfox         *mailboxevents.SigfoxModemInfo `json:",omitempty"`
	Ts             int64
}

var (
	statusjsonbytes   []byte = []byte("{}")
	statusjsonRWMutex sync.RWMutex
	statusdoc         StatusDocument
)

func updateStatusDocument(state mailbox.MailboxState, event_interface interface{}) []byte {
	statusdoc.MailDetected = state.MailDetected
	statusdoc.DoorOpen = state.DoorOpen
	statusdoc.Charging = state.Charging
	statusdoc.BatteryPercent = state.BatteryPercent
	statusdoc.Ts = time.Now().Unix()
	switch evnt := event_interface.(type) {
	case mailboxevents.StatusReport:
		statusdoc.LastReport = &evnt
	case mailboxevents.BatteryUpdate:
		statusdoc.Battery = &evnt
	case mailboxevents.SigfoxModemInfo:
		statusdoc.Sigfox = &evnt
	}
	data, err := json.Marshal(statusdoc)
	if err != nil {
		Syslog_.Print("status json:", err)
		return nil
	}
	return data
}

// goKeepStatusJSONUpdated rebuilds the served json on every mailbox event.
func goKeepStatusJSONUpdated(ps *pubsub.PubSub, ctrl *mailbox.Controller) {
	events_chan := ps.Sub(mailboxevents.PS_MAILBOXEVENTS)
	defer ps.Unsub(events_chan, mailboxevents.PS_MAILBOXEVENTS)
	for event_interface := range events_chan {
		data := updateStatusDocument(ctrl.State(), event_interface)
		if data == nil {
			continue
		}
		statusjsonRWMutex.Lock()
		statusjsonbytes = data
		statusjsonRWMutex.Unlock()
	}
}

func webServeStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Add("Cache-Control", "no-cache")
	w.Header().Add("Pragma", "no-cache")
	w.Header().Add("Content-Type", "application/json")
	statusjsonRWMutex.RLock()
	w.Write(statusjsonbytes)
	statusjsonRWMutex.RUnlock()
}

func newStatusHandler() http.Handler {
	n := negroni.Classic()
	mux := http.NewServeMux()
	mux.HandleFunc("/", webServeStatus)
	mux.HandleFunc("/status.json", webServeStatus)
	n.UseHandler(mux)
	return n
}

func goRunWebserver(listen_addr string) {
	if err := http.ListenAndServe(listen_addr, newStatusHandler()); err != nil {
		Syslog_.Print("webserver:", err)
	}
}
