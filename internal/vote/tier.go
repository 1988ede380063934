package vote

// Tier is the interest bucket a renderer colors a band by.
type Tier string

const (
	TierWinning      Tier = "winning"
	TierStrong       Tier = "strong"
	TierSomeInterest Tier = "some_interest"
	TierNoInterest   Tier = "no_interest"
)

// Classify picks the first matching tier in priority order: the best
// candidate with at least one ok, an ok share above StrongRatio, any ok,
// nothing.
func Classify(okCount, totalGuests int, isBest bool) Tier {
	switch {
	case isBest && okCount > 0:
		return TierWinning
	case totalGuests > 0 && float64(okCount)/float64(totalGuests) > StrongRatio:
		return TierStrong
	case okCount > 0:
		return TierSomeInterest
	default:
		return TierNoInterest
	}
}

// Tier classifies the summary against the total number of guests.
func (s CandidateVoteSummary) Tier(totalGuests int) Tier {
	return Classify(s.OKCount, totalGuests, s.IsBest)
}
