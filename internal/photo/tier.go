package photo

// Tier is a derived quality band. It is never stored.
type Tier string

const (
	TierS Tier = "S"
	TierA Tier = "A"
	TierB Tier = "B"
	TierC Tier = "C"
	TierD Tier = "D"
)

// Tiers lists the bands from best to worst.
var Tiers = []Tier{TierS, TierA, TierB, TierC, TierD}

// tierDescriptions are shown next to each band.
var tierDescriptions = map[Tier]string{
	TierS: "Perfect - The absolute best photos",
	TierA: "Excellent - Outstanding quality and composition",
	TierB: "Good - Solid photos with minor flaws",
	TierC: "Average - Decent but unremarkable",
	TierD: "Below Average - Significant issues",
}

const (
	winsWeight   = 0.7
	ratingWeight = 0.3
)

// Score combines crowd wins with the AI rating.
func Score(p Photo) float64 {
	return float64(p.Wins)*winsWeight + p.AIRating*ratingWeight
}

// Classify buckets a photo by its combined score.
func Classify(p Photo) Tier {
	score := Score(p)
	switch {
	case score >= 9:
		return TierS
	case score >= 7:
		return TierA
	case score >= 5:
		return TierB
	case score >= 3:
		return TierC
	default:
		return TierD
	}
}

// TierGroup is one band of the tier list.
type TierGroup struct {
	Tier        Tier    `json:"tier"`
	Description string  `json:"description"`
	Photos      []Photo `json:"photos"`
}

// TierList groups photos by tier, S first. Every band is present even when empty.
// Photos keep their input order within a band.
func TierList(photos []Photo) []TierGroup {
	byTier := make(map[Tier][]Photo, len(Tiers))
	for _, p := range photos {
		t := Classify(p)
		byTier[t] = append(byTier[t], p)
	}

	groups := make([]TierGroup, 0, len(Tiers))
	for _, t := range Tiers {
		members := byTier[t]
		if members == nil {
			members = []Photo{}
		}
		groups = append(groups, TierGroup{
			Tier:        t,
			Description: tierDescriptions[t],
			Photos:      members,
		})
	}
	return groups
}
