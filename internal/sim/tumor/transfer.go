package tumor

// Transition records one replacement performed during a sweep.
type Transition struct {
	ID   int       `json:"id"`
	From Phenotype `json:"from"`
	To   Phenotype `json:"to"`
	// Generation is the slot generation of the replaced occupant.
	Generation uint32 `json:"generation"`
	// By is the identity of the invoking occupant; it differs from ID for territorial growth.
	By int `json:"by"`
}

// transfer swaps the occupant at target for a new occupant of phenotype to. Identity,
// position and concentration carry over from the replaced occupant; only the target cell changes.
// The generation bump is what lets the scheduler notice the replacement.
func (s *Simulation) transfer(target int, to Phenotype, by int) {
	sl := &s.cells[target]
	s.sweepStats.Transitions = append(s.sweepStats.Transitions, Transition{
		ID:         sl.id,
		From:       sl.phenotype,
		To:         to,
		Generation: sl.gen,
		By:         by,
	})
	sl.phenotype = to
	sl.gen++
}
