package partition

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyTopicName     = errors.New("topic name must not be empty")
	ErrNoPartitions       = errors.New("topic must have at least one partition")
	ErrNegativePartition  = errors.New("partition index must not be negative")
	ErrDuplicatePartition = errors.New("partition index listed twice")
)

// Topic is a named topic together with the partitions records may target.
// Partitions keep the order they were given in; positional selection and the
// last-partition fallback both depend on it.
type Topic struct {
	name       string
	partitions []int32
	members    map[int32]struct{}
}

func NewTopic(name string, partitions ...int32) (Topic, error) {
	if name == "" {
		return Topic{}, ErrEmptyTopicName
	}

	if len(partitions) == 0 {
		return Topic{}, fmt.Errorf("%s: %w", name, ErrNoPartitions)
	}

	members := make(map[int32]struct{}, len(partitions))
	for _, p := range partitions {
		if p < 0 {
			return Topic{}, fmt.Errorf("%s: %w: %d", name, ErrNegativePartition, p)
		}
		if _, ok := members[p]; ok {
			return Topic{}, fmt.Errorf("%s: %w: %d", name, ErrDuplicatePartition, p)
		}
		members[p] = struct{}{}
	}

	owned := make([]int32, len(partitions))
	copy(owned, partitions)

	return Topic{name: name, partitions: owned, members: members}, nil
}

// MustTopic is NewTopic for static configuration; it panics on error.
func MustTopic(name string, partitions ...int32) Topic {
	t, err := NewTopic(name, partitions...)
	if err != nil {
		panic(err)
	}
	return t
}

// Range builds a topic whose partitions are the contiguous range [0, n).
func Range(name string, n int) (Topic, error) {
	partitions := make([]int32, n)
	for i := range partitions {
		partitions[i] = int32(i)
	}
	return NewTopic(name, partitions...)
}

func (t Topic) Name() string {
	return t.name
}

// Partitions returns a copy of the valid partitions in their defined order.
func (t Topic) Partitions() []int32 {
	out := make([]int32, len(t.partitions))
	copy(out, t.partitions)
	return out
}

func (t Topic) Len() int {
	return len(t.partitions)
}

func (t Topic) Contains(p int32) bool {
	_, ok := t.members[p]
	return ok
}

func (t Topic) String() string {
	return fmt.Sprintf("%s%v", t.name, t.partitions)
}
