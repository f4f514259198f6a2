package domain

// Tier is a discrete achievement label derived from the final percentage.
type Tier string

const (
	TierCodeMaster     Tier = "Code Master"
	TierCodeExpert     Tier = "Code Expert"
	TierCodeApprentice Tier = "Code Apprentice"
	TierCodeNovice     Tier = "Code Novice"
	TierKeepPracticing Tier = "Keep Practicing"
)

// TierFor maps a percentage score onto its achievement tier. Boundaries are
// inclusive on the upper tier: 90 is Code Master, 89 is Code Expert.
func TierFor(percentage int) Tier {
	switch {
	case percentage >= 90:
		return TierCodeMaster
	case percentage >= 75:
		return TierCodeExpert
	case percentage >= 60:
		return TierCodeApprentice
	case percentage >= 40:
		return TierCodeNovice
	default:
		return TierKeepPracticing
	}
}
