package reward

// Reward is a milestone badge derived from the amount an intern has raised.
type Reward struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Threshold   float64 `json:"threshold"`
	Unlocked    bool    `json:"unlocked"`
}

// Tier thresholds
const (
	BronzeThreshold = 1000
	SilverThreshold = 3000
	GoldThreshold   = 5000
)

type tier struct {
	title       string
	description string
	threshold   float64
}

var tiers = [...]tier{
	{title: "Bronze Badge", description: "First fundraising milestone", threshold: BronzeThreshold},
	{title: "Silver Badge", description: "Intermediate achievement", threshold: SilverThreshold},
	{title: "Gold Badge", description: "Top fundraiser status", threshold: GoldThreshold},
}

// Evaluate returns the Bronze, Silver and Gold badges in that order, each
// unlocked when amountRaised has reached its threshold.
func Evaluate(amountRaised float64) []Reward {
	rewards := make([]Reward, len(tiers))
	for i, t := range tiers {
		rewards[i] = Reward{
			Title:       t.title,
			Description: t.description,
			Threshold:   t.threshold,
			Unlocked:    amountRaised >= t.threshold,
		}
	}
	return rewards
}

// UnlockedCount reports how many rewards in the list are unlocked.
func UnlockedCount(rewards []Reward) int {
	n := 0
	for _, r := range rewards {
		if r.Unlocked {
			n++
		}
	}
	return n
}
