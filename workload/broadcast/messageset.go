package broadcast

import (
	"slices"
)

// MessageSet is the set of values broadcast to the node.
//
// MessageSet is not thread safe. It is owned by the runtime consumer.
type MessageSet struct {
	values map[int64]struct{}
}

func NewMessageSet(values ...int64) *MessageSet {
	s := &MessageSet{
		values: make(map[int64]struct{}, len(values)),
	}
	for _, v := range values {
		s.values[v] = struct{}{}
	}
	return s
}

// Add adds the value to the set. Returns false if the value was already
// present.
func (s *MessageSet) Add(v int64) bool {
	if _, ok := s.values[v]; ok {
		return false
	}
	s.values[v] = struct{}{}
	return true
}

// Merge adds each value to the set and returns the number of values that
// were not already present.
func (s *MessageSet) Merge(values []int64) int {
	added := 0
	for _, v := range values {
		if s.Add(v) {
			added++
		}
	}
	return added
}

func (s *MessageSet) Contains(v int64) bool {
	_, ok := s.values[v]
	return ok
}

func (s *MessageSet) Len() int {
	return len(s.values)
}

// Values returns the values in the set in ascending order. The returned
// slice is never nil so always encodes as a JSON array.
func (s *MessageSet) Values() []int64 {
	values := make([]int64, 0, len(s.values))
	for v := range s.values {
		values = append(values, v)
	}
	slices.Sort(values)
	return values
}
