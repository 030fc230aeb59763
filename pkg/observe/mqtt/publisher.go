package mqtt

import (
	"context"

	"github.com/golang/glog"

	"github.com/robotalks/rtloop/pkg/observe"
	"github.com/robotalks/rtloop/pkg/observe/msgs"
)

// Publisher is an Observer which publishes each record to
// <prefix><device>/obs/<kind>.
type Publisher struct {
	Queue  *Queue
	Device string
}

// NewPublisher creates a Publisher from a broker URL.
func NewPublisher(brokerURL, device string) (*Publisher, error) {
	q, err := NewQueueFromURL(brokerURL)
	if err != nil {
		return nil, err
	}
	return &Publisher{Queue: q, Device: device}, nil
}

// Topic returns the topic of records of kind.
func (p *Publisher) Topic(kind observe.Kind) string {
	return p.Device + "/obs/" + string(kind)
}

// Observe implements Observer. Publishing is asynchronous.
func (p *Publisher) Observe(r observe.Record) {
	payload, err := msgs.FromRecord(p.Device, r).Encode()
	if err != nil {
		glog.Errorf("encode observation: %v", err)
		return
	}
	p.Queue.Pub(p.Topic(r.Kind), payload)
}

// Run connects to the broker and disconnects when ctx is done.
func (p *Publisher) Run(ctx context.Context) error {
	token := p.Queue.Connect()
	token.Wait()
	if err := token.Error(); err != nil {
		return err
	}
	<-ctx.Done()
	p.Queue.Close()
	return ctx.Err()
}

// Subscribe decodes observations published under filter,
// e.g. "+/obs/#".
func Subscribe(q *Queue, filter string, fn func(topic string, m *msgs.Observation)) {
	q.Sub(filter, func(topic string, payload []byte) {
		m, err := msgs.Decode(payload)
		if err != nil {
			glog.Warningf("%s: bad observation: %v", topic, err)
			return
		}
		fn(topic, m)
	})
}
