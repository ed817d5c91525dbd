package match

const (
	pointsPerPair   = 100
	pointsPerSecond = 2
	pointsPerMove   = 5
	floorPerPair    = 50
)

// PartScore applies the part scoring formula.
//
// Time and move bonuses are only paid for a completed part. The result is
// never below matchedPairs*50.
func PartScore(matchedPairs, secondsRemaining, movesRemaining int, complete bool) int {
	base := matchedPairs * pointsPerPair
	bonus := 0
	if complete {
		bonus = secondsRemaining*pointsPerSecond + movesRemaining*pointsPerMove
	}
	return max(base+bonus, matchedPairs*floorPerPair)
}

func scoreSession(s *Session) int {
	return PartScore(s.MatchedPairs, s.SecondsRemaining, s.MovesRemaining, s.Status == StatusPartComplete)
}
