package collab

// Roster is the current participant snapshot. It is wholly derived from the
// latest relay message carrying a clients field; no incremental diffing is
// performed, each snapshot replaces the previous one.
type Roster []Participant

// SaveAllowed reports whether the save affordance should be offered: only a
// sole participant may save, being alone makes it the implicit owner.
func (r Roster) SaveAllowed() bool {
	return len(r) == 1
}

// ReadyOffered reports whether the declare-ready affordance should be
// offered. It is withdrawn while the local participant's readiness is
// declared, and never offered when alone.
func (r Roster) ReadyOffered(localReady bool) bool {
	return len(r) > 1 && !localReady
}

// ReadyCount returns how many participants have declared readiness.
func (r Roster) ReadyCount() int {
	n := 0
	for i := range r {
		if r[i].Ready {
			n++
		}
	}
	return n
}

// RosterHandler receives every roster snapshot together with the local
// readiness intent at that instant, including the empty snapshot published
// when the session closes. Handlers run on the session loop and must not
// call back into the Client.
type RosterHandler func(roster Roster, localReady bool)
