package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/robotalks/rtloop/pkg/observe/mqtt"
	"github.com/robotalks/rtloop/pkg/observe/msgs"
)

var (
	mqttURL = "mqtt://localhost:1883/rtloop/"
	filter  = "+/obs/#"
)

func init() {
	if val := os.Getenv("RTLOOP_MQTT_URL"); val != "" {
		mqttURL = val
	}
	flag.StringVar(&mqttURL, "mqtt", mqttURL, "MQTT broker URL.")
	flag.StringVar(&filter, "filter", filter, "Topic filter, relative to the URL prefix.")
}

// formatObservation prints the device timestamp, or the receive time
// when the device sent none.
func formatObservation(topic string, m *msgs.Observation, received time.Time) string {
	ts := received
	if m.TimeUnixNano != 0 {
		ts = time.Unix(0, m.TimeUnixNano)
	}
	return fmt.Sprintf("%s: [%s] %s", topic, ts.Format("15:04:05.000"), m.Record().String())
}

func main() {
	flag.Parse()
	log.SetFlags(log.Lmicroseconds)

	q, err := mqtt.NewQueueFromURL(mqttURL)
	if err != nil {
		log.Fatalln(err)
	}
	if token := q.Connect(); token.Wait() && token.Error() != nil {
		log.Fatalln(token.Error())
	}

	mqtt.Subscribe(q, filter, func(topic string, m *msgs.Observation) {
		log.Println(formatObservation(topic, m, time.Now()))
	})
	<-(chan struct{})(nil)
}
