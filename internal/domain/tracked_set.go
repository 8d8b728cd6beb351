package domain

import (
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// TrackedSet holds the identifiers whose last known status is active.
// Iteration follows insertion order so outbound pk_list payloads are stable.
type TrackedSet struct {
	ids *orderedmap.OrderedMap[TaskID, struct{}]
}

func NewTrackedSet(ids ...TaskID) *TrackedSet {
	s := &TrackedSet{ids: orderedmap.New[TaskID, struct{}]()}
	for _, id := range ids {
		s.Add(id)
	}
	return s
}

// Add inserts id and reports whether it was absent.
func (s *TrackedSet) Add(id TaskID) bool {
	_, present := s.ids.Set(id, struct{}{})
	return !present
}

// Remove deletes id and reports whether it was present.
func (s *TrackedSet) Remove(id TaskID) bool {
	_, present := s.ids.Delete(id)
	return present
}

func (s *TrackedSet) Contains(id TaskID) bool {
	_, ok := s.ids.Get(id)
	return ok
}

func (s *TrackedSet) Len() int {
	return s.ids.Len()
}

// IDs returns a snapshot; it is never nil so it encodes as [].
func (s *TrackedSet) IDs() []TaskID {
	out := make([]TaskID, 0, s.ids.Len())
	for pair := s.ids.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Key)
	}
	return out
}

// Payload builds the pk_list message for the current contents.
func (s *TrackedSet) Payload() PKListPayload {
	return PKListPayload{PKList: s.IDs()}
}
