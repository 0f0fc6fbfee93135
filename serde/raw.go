package serde

var (
	_ Serde[[]byte] = rawSerde[[]byte]{}
	_ Serde[string] = rawSerde[string]{}
)

// rawSerde passes bytes through unchanged. A nil []byte stays nil so an
// absent key is not turned into an empty one.
type rawSerde[T ~string | ~[]byte] struct{}

func Bytes() Serde[[]byte] {
	return rawSerde[[]byte]{}
}

func String() Serde[string] {
	return rawSerde[string]{}
}

func (rawSerde[T]) Serialise(_ string, value T) ([]byte, error) {
	return []byte(value), nil
}

func (rawSerde[T]) Deserialise(_ string, data []byte) (T, error) {
	return T(data), nil
}
