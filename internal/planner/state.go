package planner

import "mealmapp/internal/recipe"

// schedulerState is the mutable bookkeeping of a single generation run.
// It is created fresh per run and never shared.
type schedulerState struct {
	usage           map[string]int
	participantUsed map[string]map[string]bool
	usedToday       map[string]bool
	dailyCalories   float64
	weeklySpend     float64
}

func newSchedulerState() *schedulerState {
	return &schedulerState{
		usage:           make(map[string]int),
		participantUsed: make(map[string]map[string]bool),
		usedToday:       make(map[string]bool),
	}
}

func (s *schedulerState) startDay() {
	s.usedToday = make(map[string]bool)
	s.dailyCalories = 0
}

func (s *schedulerState) timesUsed(r *recipe.Recipe) int {
	return s.usage[r.BaseID()]
}

func (s *schedulerState) isUsedToday(r *recipe.Recipe) bool {
	return s.usedToday[r.BaseID()]
}

func (s *schedulerState) usedByOwner(r *recipe.Recipe) bool {
	return s.participantUsed[r.SourceUserID][r.BaseID()]
}

func (s *schedulerState) distinctUsedBy(owner string) int {
	return len(s.participantUsed[owner])
}

func (s *schedulerState) record(r *recipe.Recipe, calories, cost float64, priced bool) int {
	base := r.BaseID()
	s.usage[base]++
	s.usedToday[base] = true

	used, ok := s.participantUsed[r.SourceUserID]
	if !ok {
		used = make(map[string]bool)
		s.participantUsed[r.SourceUserID] = used
	}
	used[base] = true

	s.dailyCalories += calories
	if priced {
		s.weeklySpend += cost
	}
	return s.usage[base]
}
