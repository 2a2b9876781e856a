// internal/room/leader.go
package room

import (
	"bytes"
	"sort"
)

// Standings returns the players ordered by points desc, then earliest join,
// then user id. The input is not modified.
func Standings(players []Player) []Player {
	out := make([]Player, len(players))
	copy(out, players)
	sort.SliceStable(out, func(i, j int) bool {
		return ranksBefore(out[i], out[j])
	})
	return out
}

// Leader is the single winner among players, if any.
func Leader(players []Player) (Player, bool) {
	if len(players) == 0 {
		return Player{}, false
	}
	best := players[0]
	for _, p := range players[1:] {
		if ranksBefore(p, best) {
			best = p
		}
	}
	return best, true
}

func ranksBefore(a, b Player) bool {
	if a.Points != b.Points {
		return a.Points > b.Points
	}
	if a.JoinedAt != b.JoinedAt {
		return a.JoinedAt < b.JoinedAt
	}
	return bytes.Compare(a.UserID[:], b.UserID[:]) < 0
}
