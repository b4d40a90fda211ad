package engine

func NewEmptyState() State {
	return State{
		Phase:   PhaseLobby,
		Order:   []string{},
		Players: map[string]*PlayerState{},
	}
}

func ContainsEvent(events []Event, eventType EventType) bool {
	for _, event := range events {
		if event.Type == eventType {
			return true
		}
	}
	return false
}

func FindEvent(events []Event, eventType EventType) (Event, bool) {
	for _, event := range events {
		if event.Type == eventType {
			return event, true
		}
	}
	return Event{}, false
}

// IsPlaying reports whether a game is running (a level is active or between levels).
func (s State) IsPlaying() bool {
	return s.Phase == PhaseActive || s.Phase == PhaseLevelComplete
}

func countOf(items []string, item string) int {
	n := 0
	for _, it := range items {
		if it == item {
			n++
		}
	}
	return n
}

func removeOne(items *[]string, item string) bool {
	if item == "" {
		return false
	}
	for i, it := range *items {
		if it == item {
			*items = append((*items)[:i], (*items)[i+1:]...)
			return true
		}
	}
	return false
}

func sameMultiset(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	counts := make(map[string]int, len(a))
	for _, it := range a {
		counts[it]++
	}
	for _, it := range b {
		counts[it]--
		if counts[it] < 0 {
			return false
		}
	}
	return true
}
