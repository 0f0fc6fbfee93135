package kafka

import (
	"strconv"
	"time"
)

// Header represents a single Kafka record header
// kafka needs to support multiple headers with duplicate keys
type Header struct {
	Key   string
	Value []byte
}

// HeaderValue returns the value of the first header matching the given key
// Returns (nil, false) if no header with that key exists
func HeaderValue(headers []Header, key string) ([]byte, bool) {
	for _, h := range headers {
		if h.Key == key {
			return h.Value, true
		}
	}
	return nil, false
}

// Record is an outgoing record as handed to the dispatcher by the caller.
type Record struct {
	Topic string

	// Partition is an explicit override. Nil lets the selector decide.
	Partition *int32

	Key     []byte
	Value   []byte
	Headers []Header

	// Sequence is the caller assigned counter used for partition selection.
	Sequence uint64
}

func NewRecord(topic string, key, value []byte, sequence uint64) Record {
	return Record{
		Topic:    topic,
		Key:      key,
		Value:    value,
		Sequence: sequence,
	}
}

// WithPartition returns a copy of r with an explicit partition override.
func (r Record) WithPartition(p int32) Record {
	r.Partition = &p
	return r
}

func (r Record) WithHeader(key string, value []byte) Record {
	headers := make([]Header, len(r.Headers), len(r.Headers)+1)
	copy(headers, r.Headers)
	r.Headers = append(headers, Header{Key: key, Value: value})
	return r
}

func (r Record) Copy() Record {
	headersCopy := make([]Header, len(r.Headers))
	for i, h := range r.Headers {
		vCopy := make([]byte, len(h.Value))
		copy(vCopy, h.Value)
		headersCopy[i] = Header{Key: h.Key, Value: vCopy}
	}

	var keyCopy []byte
	if r.Key != nil {
		keyCopy = make([]byte, len(r.Key))
		copy(keyCopy, r.Key)
	}

	var valueCopy []byte
	if r.Value != nil {
		valueCopy = make([]byte, len(r.Value))
		copy(valueCopy, r.Value)
	}

	var partition *int32
	if r.Partition != nil {
		p := *r.Partition
		partition = &p
	}

	return Record{
		Topic:     r.Topic,
		Partition: partition,
		Key:       keyCopy,
		Value:     valueCopy,
		Headers:   headersCopy,
		Sequence:  r.Sequence,
	}
}

// Message is what a Transport puts on the wire: a record bound to its
// correlation id and the partition chosen for it.
type Message struct {
	ID        string
	Topic     string
	Partition int32
	Key       []byte
	Value     []byte
	Headers   []Header
}

// Ack is the outcome of a single dispatch. A nil Err means the broker
// accepted the message at Partition/Offset.
type Ack struct {
	Partition  int32
	Offset     int64
	Err        error
	ReceivedAt time.Time
}

func Success(partition int32, offset int64) Ack {
	return Ack{Partition: partition, Offset: offset, ReceivedAt: time.Now()}
}

func Failure(err error) Ack {
	return Ack{Partition: -1, Offset: -1, Err: err, ReceivedAt: time.Now()}
}

func (a Ack) Succeeded() bool {
	return a.Err == nil
}

type TopicPartition struct {
	Topic     string
	Partition int32
}

func (tp TopicPartition) String() string {
	return tp.Topic + "-" + strconv.FormatInt(int64(tp.Partition), 10)
}
