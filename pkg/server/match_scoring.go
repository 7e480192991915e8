package server

import (
	"fmt"
	"sort"
	"strings"
)

// MatchPoint is one side's result for a single scrimmage map (§4.F
// scoring): either an individual player (free-for-all) or a team total.
// Key identifies the side for Match.AddMatchPoint: a user id for FFA,
// blueWinnerKey/redWinnerKey for teams.
type MatchPoint struct {
	Key   int32
	Label string // "#<user id>" for FFA, "Blue" or "Red" for teams
	Value float64
	Won   bool
}

// formatValue renders a bare score value under win condition wc, without
// a label, following the original implementation's suffix convention:
// accuracy as a percentage, combo with an "x" suffix, scoreV2 as "pp",
// and raw score as a plain integer.
func formatValue(wc uint8, v float64) string {
	switch wc {
	case WinConditionAccuracy:
		return fmt.Sprintf("%.2f%%", v)
	case WinConditionCombo:
		return fmt.Sprintf("%dx", int(v))
	case WinConditionScoreV2:
		return fmt.Sprintf("%.2fpp", v)
	default:
		return fmt.Sprintf("%d", int64(v))
	}
}

// ScoreMessage formats the per-side announcement line the match chat
// channel receives after each scrimmage map.
func ScoreMessage(wc uint8, p MatchPoint) string {
	return fmt.Sprintf("%s: %s", p.Label, formatValue(wc, p.Value))
}

// value extracts the win-condition-relevant number from a score frame.
func value(wc uint8, f ScoreFrame) float64 {
	switch wc {
	case WinConditionAccuracy:
		return f.Accuracy
	case WinConditionCombo:
		return float64(f.MaxCombo)
	default:
		return float64(f.Score)
	}
}

// ComputeMatchPoints reduces a completed map's score frames into the
// per-side results for the match's team type and win condition (§4.F
// scoring): head-to-head/tag-coop scores every player individually; the
// two team modes average each team's frames (a team with no passing
// players scores zero rather than being excluded, since an empty average
// would otherwise divide by zero).
func ComputeMatchPoints(m *Match, teamOf func(userID int32) uint8) []MatchPoint {
	m.mu.Lock()
	frames := make(map[int32]ScoreFrame, len(m.scoreFrames))
	for k, v := range m.scoreFrames {
		frames[k] = v
	}
	wc := m.WinCondition
	teamType := m.TeamType
	m.mu.Unlock()

	if teamType != TeamTypeTeamVS && teamType != TeamTypeTagTeamVS {
		out := make([]MatchPoint, 0, len(frames))
		var best float64
		first := true
		for uid, f := range frames {
			if !f.Passed {
				continue
			}
			v := value(wc, f)
			if first || v > best {
				best = v
				first = false
			}
			out = append(out, MatchPoint{Key: uid, Label: fmt.Sprintf("#%d", uid), Value: v})
		}
		for i := range out {
			out[i].Won = out[i].Value == best
		}
		return out
	}

	var blueTotal, redTotal float64
	var blueN, redN int
	for uid, f := range frames {
		if !f.Passed {
			continue
		}
		v := value(wc, f)
		switch teamOf(uid) {
		case TeamBlue:
			blueTotal += v
			blueN++
		case TeamRed:
			redTotal += v
			redN++
		}
	}
	var blueAvg, redAvg float64
	if blueN > 0 {
		blueAvg = blueTotal / float64(blueN)
	}
	if redN > 0 {
		redAvg = redTotal / float64(redN)
	}
	return []MatchPoint{
		{Key: blueWinnerKey, Label: "Blue", Value: blueAvg, Won: blueAvg > redAvg},
		{Key: redWinnerKey, Label: "Red", Value: redAvg, Won: redAvg > blueAvg},
	}
}

// ResolveScrimmageRound computes the winner of a just-finished scrimmage
// map from the match's recorded score frames, increments its point tally,
// and formats the chat announcement lines (§4.F "Match-point
// computation", §8 scenario 4). The caller is responsible for checking
// m.IsScrimming() first; calling this on a non-scrimming match still
// computes and announces a round but never threatens match-point state
// the caller isn't tracking.
func ResolveScrimmageRound(m *Match, teamOf func(int32) uint8) []string {
	wc, teamType, title := m.scoringContext()
	points := ComputeMatchPoints(m, teamOf)
	if len(points) == 0 {
		return nil
	}
	if teamType == TeamTypeTeamVS || teamType == TeamTypeTagTeamVS {
		return resolveTeamRound(m, wc, title, points)
	}
	return resolveFFARound(m, wc, points)
}

// scoringContext snapshots the three match fields a round resolution
// needs, under the match's lock.
func (m *Match) scoringContext() (wc uint8, teamType uint8, name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.WinCondition, m.TeamType, m.Name
}

func resolveTeamRound(m *Match, wc uint8, title string, points []MatchPoint) []string {
	var blue, red MatchPoint
	for _, p := range points {
		switch p.Key {
		case blueWinnerKey:
			blue = p
		case redWinnerKey:
			red = p
		}
	}
	blueName, redName := "Blue", "Red"
	if a, b, ok := ExtractTeamNames(title); ok {
		blueName, redName = a, b
	}

	if blue.Value == red.Value {
		m.AddMatchPoint(0)
		return []string{fmt.Sprintf("The round ended in a tie! (%s vs. %s)", formatValue(wc, blue.Value), formatValue(wc, red.Value))}
	}

	winnerKey, winnerName, winnerValue := blueWinnerKey, blueName, blue.Value
	loserValue := red.Value
	if red.Value > blue.Value {
		winnerKey, winnerName, winnerValue = redWinnerKey, redName, red.Value
		loserValue = blue.Value
	}

	_, reached := m.AddMatchPoint(winnerKey)
	lines := []string{fmt.Sprintf("%s takes the point! (%s vs. %s)", winnerName, formatValue(wc, winnerValue), formatValue(wc, loserValue))}
	if reached {
		m.StopScrimming()
		lines = append(lines, fmt.Sprintf("%s takes the match! Congratulations!", winnerName))
	}
	return lines
}

func resolveFFARound(m *Match, wc uint8, points []MatchPoint) []string {
	sort.Slice(points, func(i, j int) bool { return points[i].Value > points[j].Value })

	allTied := true
	for _, p := range points[1:] {
		if p.Value != points[0].Value {
			allTied = false
			break
		}
	}
	if allTied {
		m.AddMatchPoint(0)
		return []string{"The round ended in a tie!"}
	}

	winner := points[0]
	_, reached := m.AddMatchPoint(winner.Key)
	lines := []string{fmt.Sprintf("%s takes the point! (%s)", winner.Label, formatValue(wc, winner.Value))}

	top := points
	if len(top) > 3 {
		top = top[:3]
	}
	var parts []string
	var total float64
	for i, p := range top {
		parts = append(parts, fmt.Sprintf("#%d %s: %s", i+1, p.Label, formatValue(wc, p.Value)))
	}
	for _, p := range points {
		total += p.Value
	}
	avg := total / float64(len(points))
	lines = append(lines, fmt.Sprintf("Top scores: %s (average %s)", strings.Join(parts, ", "), formatValue(wc, avg)))

	if reached {
		m.StopScrimming()
		lines = append(lines, fmt.Sprintf("%s takes the match! Congratulations!", winner.Label))
	}
	return lines
}
