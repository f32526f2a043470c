package leaderboard

import (
	"bytes"
	"sort"
	"time"

	"github.com/google/uuid"
)

// Entry is one intern's standing on the leaderboard.
type Entry struct {
	Rank           int       `json:"rank"`
	ID             uuid.UUID `json:"id"`
	Name           string    `json:"name"`
	AmountRaised   float64   `json:"amountRaised"`
	ReferralCode   string    `json:"referralCode"`
	ReferralsCount int       `json:"referralsCount"`
	CreatedAt      time.Time `json:"-"`
}

// Rank orders entries by amount raised, highest first, and keeps the first
// limit of them. Equal amounts go to whoever signed up first, then by id.
// A limit <= 0 keeps every entry. The input slice is left untouched.
func Rank(entries []Entry, limit int) []Entry {
	ranked := make([]Entry, len(entries))
	copy(ranked, entries)

	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.AmountRaised != b.AmountRaised {
			return a.AmountRaised > b.AmountRaised
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return bytes.Compare(a.ID[:], b.ID[:]) < 0
	})

	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}

	for i := range ranked {
		ranked[i].Rank = i + 1
	}

	return ranked
}
