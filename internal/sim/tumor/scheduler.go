package tumor

// handle identifies one occupant incarnation captured at sweep start.
type handle struct {
	idx int
	gen uint32
}

// SweepStats summarises the most recent sweep.
type SweepStats struct {
	Visited     int          `json:"visited"`
	Skipped     int          `json:"skipped"`
	Transitions []Transition `json:"transitions,omitempty"`
}

// sweep visits a snapshot of the current occupants in a fresh uniformly random order. Occupants
// created during the sweep are not part of the snapshot; a snapshotted occupant that was replaced
// before its turn is skipped without diffusing or transitioning.
func (s *Simulation) sweep() error {
	s.sweepStats = SweepStats{Transitions: s.sweepStats.Transitions[:0]}

	s.order = s.order[:0]
	for i := range s.cells {
		s.order = append(s.order, handle{idx: i, gen: s.cells[i].gen})
	}
	s.rng.Shuffle(len(s.order), func(a, b int) {
		s.order[a], s.order[b] = s.order[b], s.order[a]
	})

	for _, h := range s.order {
		if s.cells[h.idx].gen != h.gen {
			s.sweepStats.Skipped++
			continue
		}
		s.sweepStats.Visited++
		s.diffuse(h.idx)
		if err := s.evaluate(h.idx); err != nil {
			return err
		}
	}
	return nil
}
