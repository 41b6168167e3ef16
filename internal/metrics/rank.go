package metrics

// Rank grades cyclomatic complexity on the usual A..F scale.
type Rank string

const (
	RankA Rank = "A" // 1-5
	RankB Rank = "B" // 6-10
	RankC Rank = "C" // 11-20
	RankD Rank = "D" // 21-30
	RankE Rank = "E" // 31-40
	RankF Rank = "F" // 41+
)

func RankOf(cc int) Rank {
	switch {
	case cc <= 5:
		return RankA
	case cc <= 10:
		return RankB
	case cc <= 20:
		return RankC
	case cc <= 30:
		return RankD
	case cc <= 40:
		return RankE
	default:
		return RankF
	}
}
