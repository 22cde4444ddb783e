// (c) Bernhard Tittelbach, 2013

package main

import (
	"os"
	"strconv"
	"time"

	"github.com/realraum/mailbox_sensor/mailbox"
)

const (
	DEFAULT_R3_MQTT_BROKER                string = "tcp://mqtt.realraum.at:1883"
	DEFAULT_MAILBOX_SENSOR_TTY_PATH       string = "/dev/mailbox"
	DEFAULT_MAILBOX_SENSOR_TTY_SPEED      string = "115200"
	DEFAULT_MAILBOX_SIGFOX_TTY_PATH       string = "/dev/ttyAMA0"
	DEFAULT_MAILBOX_HTTP_INTERFACE        string = ":8088"
	DEFAULT_MAILBOX_PROXIMITY_THRESHOLD   string = "2"
	DEFAULT_MAILBOX_DEBOUNCE_HITS         string = "3"
	DEFAULT_MAILBOX_DOOR_DEBOUNCE         string = "200ms"
	DEFAULT_MAILBOX_POLL_INTERVAL         string = "100ms"
	DEFAULT_MAILBOX_BATTERY_EMPTY_VOLTAGE string = "3.0"
	DEFAULT_MAILBOX_BATTERY_FULL_VOLTAGE  string = "4.2"

	SIGFOX_TTY_SPEED uint = 9600
)

func EnvironOrDefault(envvarname, defvalue string) string {
	if len(os.Getenv(envvarname)) > 0 {
		return os.Getenv(envvarname)
	} else {
		return defvalue
	}
}

func envInt(envvarname, defvalue string) int {
	v, err := strconv.Atoi(EnvironOrDefault(envvarname, defvalue))
	if err != nil {
		Syslog_.Printf("%s: %s, using %s", envvarname, err, defvalue)
		v, _ = strconv.Atoi(defvalue)
	}
	return v
}

func envFloat(envvarname, defvalue string) float64 {
	v, err := strconv.ParseFloat(EnvironOrDefault(envvarname, defvalue), 64)
	if err != nil {
		Syslog_.Printf("%s: %s, using %s", envvarname, err, defvalue)
		v, _ = strconv.ParseFloat(defvalue, 64)
	}
	return v
}

func envDuration(envvarname, defvalue string) time.Duration {
	v, err := time.ParseDuration(EnvironOrDefault(envvarname, defvalue))
	if err != nil {
		Syslog_.Printf("%s: %s, using %s", envvarname, err, defvalue)
		v, _ = time.ParseDuration(defvalue)
	}
	return v
}

func ControllerConfigFromEnv() mailbox.Config {
	cfg := mailbox.DefaultConfig()
	cfg.ProximityThreshold = envInt("MAILBOX_PROXIMITY_THRESHOLD", DEFAULT_MAILBOX_PROXIMITY_THRESHOLD)
	cfg.RequiredHits = envInt("MAILBOX_DEBOUNCE_HITS", DEFAULT_MAILBOX_DEBOUNCE_HITS)
	cfg.DoorDebounce = envDuration("MAILBOX_DOOR_DEBOUNCE", DEFAULT_MAILBOX_DOOR_DEBOUNCE)
	cfg.PollInterval = envDuration("MAILBOX_POLL_INTERVAL", DEFAULT_MAILBOX_POLL_INTERVAL)
	cfg.Battery.EmptyVoltage = envFloat("MAILBOX_BATTERY_EMPTY_VOLTAGE", DEFAULT_MAILBOX_BATTERY_EMPTY_VOLTAGE)
	cfg.Battery.FullVoltage = envFloat("MAILBOX_BATTERY_FULL_VOLTAGE", DEFAULT_MAILBOX_BATTERY_FULL_VOLTAGE)
	cfg.Battery.ConversionFactor = envFloat("MAILBOX_ADC_CONVERSION_FACTOR", strconv.FormatFloat(mailbox.DefaultConversionFactor, 'g', -1, 64))
	return cfg
}
