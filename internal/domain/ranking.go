package domain

import "sort"

// Rank orders participants who finished their attempt: score descending, then
// time taken ascending, then participant id ascending so equal results keep a
// stable order. Participants that have not attempted are dropped. The input
// slice is not modified.
func Rank(participants []Participant) []RankedParticipant {
	attempted := make([]Participant, 0, len(participants))
	for _, p := range participants {
		if p.HasAttempted {
			attempted = append(attempted, p)
		}
	}

	sort.SliceStable(attempted, func(i, j int) bool {
		a, b := attempted[i], attempted[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.TimeTaken != b.TimeTaken {
			return a.TimeTaken < b.TimeTaken
		}
		return a.ID < b.ID
	})

	ranked := make([]RankedParticipant, len(attempted))
	for i, p := range attempted {
		ranked[i] = RankedParticipant{
			Rank:      i + 1,
			UserID:    p.UserID,
			Score:     p.Score,
			TimeTaken: p.TimeTaken,
			Prize:     p.Prize,
		}
	}
	return ranked
}
