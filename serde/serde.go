package serde

// Serde converts between typed keys or values and record bytes. The topic
// is passed for serdes that vary by destination.
type Serde[T any] interface {
	Serialiser[T]
	Deserialiser[T]
}

type Serialiser[T any] interface {
	Serialise(topic string, value T) ([]byte, error)
}

type Deserialiser[T any] interface {
	Deserialise(topic string, data []byte) (T, error)
}

// SerialiserFunc adapts a plain function to Serialiser.
type SerialiserFunc[T any] func(topic string, value T) ([]byte, error)

func (f SerialiserFunc[T]) Serialise(topic string, value T) ([]byte, error) {
	return f(topic, value)
}

// DeserialiserFunc adapts a plain function to Deserialiser.
type DeserialiserFunc[T any] func(topic string, data []byte) (T, error)

func (f DeserialiserFunc[T]) Deserialise(topic string, data []byte) (T, error) {
	return f(topic, data)
}

// Keyless serialises every value to nil, leaving records without a key.
func Keyless[T any]() Serialiser[T] {
	return SerialiserFunc[T](
		func(string, T) ([]byte, error) {
			return nil, nil
		},
	)
}
