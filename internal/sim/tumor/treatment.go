package tumor

// DoseDue reports whether a treatment dose fires at the start of tick step.
func DoseDue(step, firstCycleOffset, interval, remaining int) bool {
	if step < firstCycleOffset || remaining <= 0 || interval < 1 {
		return false
	}
	return (step-firstCycleOffset)%interval == 0
}

// applyTreatment forces maximum concentration on every boundary cell when a dose is due.
func (s *Simulation) applyTreatment() bool {
	if !DoseDue(s.state.Step, s.params.FirstCycleOffset, s.params.TreatmentCycleInterval, s.state.RemainingDoses) {
		return false
	}
	s.state.RemainingDoses--
	for _, i := range s.boundary {
		s.cells[i].c = 1.0
	}
	return true
}
