package serde

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
)

type protobufSerde[T proto.Message] struct {
	json bool
}

// Protobuf encodes messages in the binary wire format.
func Protobuf[T proto.Message]() Serde[T] {
	return protobufSerde[T]{}
}

// ProtoJSON encodes messages with the canonical protobuf JSON mapping.
func ProtoJSON[T proto.Message]() Serde[T] {
	return protobufSerde[T]{json: true}
}

func (s protobufSerde[T]) Serialise(topic string, value T) ([]byte, error) {
	var (
		data []byte
		err  error
	)
	if s.json {
		data, err = protojson.Marshal(value)
	} else {
		data, err = proto.Marshal(value)
	}
	if err != nil {
		return nil, fmt.Errorf("serde: encode %T for %s: %w", value, topic, err)
	}
	return data, nil
}

func (s protobufSerde[T]) Deserialise(topic string, data []byte) (T, error) {
	// generated messages answer ProtoReflect on a nil pointer
	var zero T
	result, ok := zero.ProtoReflect().Type().New().Interface().(T)
	if !ok {
		return zero, fmt.Errorf("serde: cannot allocate message of type %T", zero)
	}

	var err error
	if s.json {
		err = protojson.Unmarshal(data, result)
	} else {
		err = proto.Unmarshal(data, result)
	}
	if err != nil {
		return zero, fmt.Errorf("serde: decode %T from %s: %w", zero, topic, err)
	}
	return result, nil
}
