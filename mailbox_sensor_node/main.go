// (c) Bernhard Tittelbach, 2013

package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/btittelbach/pubsub"
	"github.com/realraum/mailbox_sensor/mailbox"
	"github.com/realraum/mailbox_sensor/mailboxevents"
	"github.com/realraum/mailbox_sensor/sigfox"
)

// ---------- Main Code -------------

var (
	use_syslog_   bool
	enable_debug_ bool
)

func init() {
	flag.BoolVar(&use_syslog_, "syslog", false, "log to syslog local1 facility")
	flag.BoolVar(&enable_debug_, "debug", false, "debugging messages on")
}

type sigfoxUplink struct {
	modem *sigfox.Modem
}

func (u sigfoxUplink) SendStatus(payload mailbox.StatusPayload) (string, error) {
	Syslog_.Printf("Sending to Sigfox: AT$SF=%s", payload)
	return u.modem.SendFrame(payload.String())
}

func main() {
	flag.Parse()
	if enable_debug_ {
		LogEnableDebuglog()
	} else if use_syslog_ {
		LogEnableSyslog()
	}
	Syslog_.Print("started")
	defer Syslog_.Print("exiting")

	sigfox_tty, err := openTTY(EnvironOrDefault("MAILBOX_SIGFOX_TTY_PATH", DEFAULT_MAILBOX_SIGFOX_TTY_PATH), SIGFOX_TTY_SPEED)
	if err != nil {
		Syslog_.Fatal("Error opening sigfox tty: ", err)
	}
	modem := sigfox.NewModem(sigfox_tty)
	defer modem.Close()

	ps := pubsub.NewNonBlocking(50)
	defer ps.Shutdown()
	publish := func(event_interface interface{}) { ps.Pub(event_interface, mailboxevents.PS_MAILBOXEVENTS) }

	sensors := NewSensorTTY()
	ctrl := mailbox.NewController(ControllerConfigFromEnv(), sensors, sigfoxUplink{modem}, publish)
	ctrl.Log = Syslog_
	ctrl.Debug = Debug_

	if broker := EnvironOrDefault("R3_MQTT_BROKER", DEFAULT_R3_MQTT_BROKER); broker != "-" {
		mqttclient := ConnectMQTTBroker(broker, mailboxevents.CLIENTID_MAILBOX)
		defer mqttclient.Disconnect(250)
		go ForwardEventsToMQTT(ps, mqttclient)
	}
	if listen_addr := EnvironOrDefault("MAILBOX_HTTP_INTERFACE", DEFAULT_MAILBOX_HTTP_INTERFACE); listen_addr != "-" {
		go goKeepStatusJSONUpdated(ps, ctrl)
		go goRunWebserver(listen_addr)
	}

	tty_speed, err := strconv.ParseUint(EnvironOrDefault("MAILBOX_SENSOR_TTY_SPEED", DEFAULT_MAILBOX_SENSOR_TTY_SPEED), 10, 32)
	if err != nil {
		Syslog_.Fatal("MAILBOX_SENSOR_TTY_SPEED: ", err)
	}
	go KeepSensorTTYConnected(sensors, ctrl, EnvironOrDefault("MAILBOX_SENSOR_TTY_PATH", DEFAULT_MAILBOX_SENSOR_TTY_PATH), uint(tty_speed))

	info, err := modem.Info()
	if err != nil {
		Syslog_.Print("Sigfox module info incomplete: ", err)
	}
	Syslog_.Printf("Sigfox module: Status %s, ID %s, PAC %s", info.Status, info.ID, info.PAC)
	publish(mailboxevents.SigfoxModemInfo{Status: info.Status, ID: info.ID, PAC: info.PAC, Ts: time.Now().Unix()})

	// give the firmware a moment to print its first readings
	time.Sleep(time.Second)
	ctrl.SelfCheck()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctrl.Run(ctx)
}
