// Package dedup suppresses repeated attachments within a single harvest run.
// The same invoice is routinely attached to several messages in one day, and
// a message may carry duplicate parts; only the first occurrence is kept.
package dedup

// Seen tracks attachment identities already admitted. One instance per run,
// never shared across runs.
type Seen struct {
	ids map[string]struct{}
}

func New() *Seen {
	return &Seen{ids: make(map[string]struct{})}
}

// Admit returns true if the identity is new and records it as seen.
func (s *Seen) Admit(id string) bool {
	if _, ok := s.ids[id]; ok {
		return false
	}
	s.ids[id] = struct{}{}
	return true
}

func (s *Seen) Len() int {
	return len(s.ids)
}
