package engine

// Neighbors returns the players seated left (previous) and right (next) of
// sid in the circular order. A lone player is their own neighbour on both
// sides. ok is false when sid is not seated.
func Neighbors(order []string, sid string) (left, right string, ok bool) {
	n := len(order)
	for i, id := range order {
		if id != sid {
			continue
		}
		return order[(i-1+n)%n], order[(i+1)%n], true
	}
	return "", "", false
}
