// Package msgs defines the wire format of observations.
package msgs

import (
	"time"

	"github.com/golang/protobuf/proto"

	"github.com/robotalks/rtloop/pkg/observe"
)

// Observation is the protobuf encoding of observe.Record.
type Observation struct {
	TimeUnixNano int64  `protobuf:"varint,1,opt,name=time_unix_nano,json=timeUnixNano,proto3" json:"time_unix_nano,omitempty"`
	Device       string `protobuf:"bytes,2,opt,name=device,proto3" json:"device,omitempty"`
	Source       string `protobuf:"bytes,3,opt,name=source,proto3" json:"source,omitempty"`
	Kind         string `protobuf:"bytes,4,opt,name=kind,proto3" json:"kind,omitempty"`
	Value        int64  `protobuf:"zigzag64,5,opt,name=value,proto3" json:"value,omitempty"`
	Data         []byte `protobuf:"bytes,6,opt,name=data,proto3" json:"data,omitempty"`
	Text         string `protobuf:"bytes,7,opt,name=text,proto3" json:"text,omitempty"`
}

// Reset implements proto.Message.
func (m *Observation) Reset() { *m = Observation{} }

// String implements proto.Message.
func (m *Observation) String() string { return proto.CompactTextString(m) }

// ProtoMessage implements proto.Message.
func (*Observation) ProtoMessage() {}

// FromRecord converts a record observed on device.
func FromRecord(device string, r observe.Record) *Observation {
	m := &Observation{
		Device: device,
		Source: r.Source,
		Kind:   string(r.Kind),
		Value:  r.Value,
		Data:   r.Data,
		Text:   r.Text,
	}
	if !r.Time.IsZero() {
		m.TimeUnixNano = r.Time.UnixNano()
	}
	return m
}

// Record converts back to observe.Record.
func (m *Observation) Record() observe.Record {
	r := observe.Record{
		Source: m.Source,
		Kind:   observe.Kind(m.Kind),
		Value:  m.Value,
		Data:   m.Data,
		Text:   m.Text,
	}
	if m.TimeUnixNano != 0 {
		r.Time = time.Unix(0, m.TimeUnixNano)
	}
	return r
}

// Encode marshals the observation.
func (m *Observation) Encode() ([]byte, error) {
	return proto.Marshal(m)
}

// Decode unmarshals an observation.
func Decode(data []byte) (*Observation, error) {
	var m Observation
	if err := proto.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return &m, nil
}
