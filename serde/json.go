package serde

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

type jsonSerde[T any] struct {
	strict bool
}

// JSON returns a Serde that uses JSON for serialisation and deserialisation.
func JSON[T any]() Serde[T] {
	return jsonSerde[T]{}
}

// StrictJSON is JSON that rejects unknown fields and trailing data on
// deserialisation.
func StrictJSON[T any]() Serde[T] {
	return jsonSerde[T]{strict: true}
}

func (s jsonSerde[T]) Serialise(topic string, value T) ([]byte, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("serde: encode json for %s: %w", topic, err)
	}
	return data, nil
}

func (s jsonSerde[T]) Deserialise(topic string, data []byte) (T, error) {
	var result T

	if !s.strict {
		if err := json.Unmarshal(data, &result); err != nil {
			return result, fmt.Errorf("serde: decode json from %s: %w", topic, err)
		}
		return result, nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&result); err != nil {
		var zero T
		return zero, fmt.Errorf("serde: decode json from %s: %w", topic, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		var zero T
		return zero, fmt.Errorf("serde: decode json from %s: trailing data", topic)
	}

	return result, nil
}
