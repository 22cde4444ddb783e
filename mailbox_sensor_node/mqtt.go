// (c) Bernhard Tittelbach, 2015
package main

import (
	"time"

	"github.com/btittelbach/pubsub"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/realraum/mailbox_sensor/mailboxevents"
)

const MQTT_QOS_NOCONFIRMATION byte = 0
const MQTT_QOS_REQCONFIRMATION byte = 1
const MQTT_QOS_4STPHANDSHAKE byte = 2

const mqtt_publish_timeout = 10 * time.Second

func ConnectMQTTBroker(brocker_addr, clientid string) mqtt.Client {
	options := mqtt.NewClientOptions().AddBroker(brocker_addr).SetAutoReconnect(true).SetConnectRetry(true).SetKeepAlive(30 * time.Second).SetMaxReconnectInterval(2 * time.Minute)
	options = options.SetClientID(clientid).SetConnectionLostHandler(func(c mqtt.Client, err error) { Syslog_.Print("ERROR MQTT connection lost:", err) })
	options = options.SetOnConnectHandler(func(c mqtt.Client) {
		Syslog_.Print("MQTT connection to broker established")
		c.Publish(mailboxevents.TOPIC_MAILBOX_ONLINE, MQTT_QOS_REQCONFIRMATION, true, mailboxevents.MarshalEvent2ByteOrPanic(mailboxevents.Online{}))
	})
	c := mqtt.NewClient(options)
	// with ConnectRetry the token only completes once connected, don't wait for it
	c.Connect()
	return c
}

// ForwardEventsToMQTT publishes every mailbox event on its topic.
// Collections and drops need confirmation, state updates are retained.
func ForwardEventsToMQTT(ps *pubsub.PubSub, mqttc mqtt.Client) {
	events_chan := ps.Sub(mailboxevents.PS_MAILBOXEVENTS)
	defer ps.Unsub(events_chan, mailboxevents.PS_MAILBOXEVENTS)
	for event_interface := range events_chan {
		topic, retain, ok := mailboxevents.TopicForEvent(event_interface)
		if !ok {
			Debug_.Printf("ForwardEventsToMQTT: no topic for %s", mailboxevents.NameOfStruct(event_interface))
			continue
		}
		payload, err := mailboxevents.MarshalEvent2Byte(event_interface)
		if err != nil {
			Syslog_.Print(err)
			continue
		}
		Debug_.Printf("publishing %s %s", topic, payload)
		tk := mqttc.Publish(topic, MQTT_QOS_REQCONFIRMATION, retain, payload)
		if !tk.WaitTimeout(mqtt_publish_timeout) {
			Syslog_.Printf("mqtt publish to %s timed out", topic)
		} else if tk.Error() != nil {
			Syslog_.Print("mqtt publish error", tk.Error())
		}
	}
}
