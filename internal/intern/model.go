package intern

import (
	"context"
	"time"

	"intern-service/internal/leaderboard"
	"intern-service/internal/reward"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// DefaultGoal is the fundraising target every intern starts with.
const DefaultGoal = 5000

type Intern struct {
	bun.BaseModel `bun:"table:interns,alias:i"`

	ID             uuid.UUID       `bun:"id,pk,type:uuid" json:"id"`
	Name           string          `bun:"name,notnull" json:"name"`
	Email          string          `bun:"email,unique,notnull" json:"email"`
	PasswordHash   string          `bun:"password_hash,notnull" json:"-"`
	ReferralCode   string          `bun:"referral_code,unique,notnull" json:"referralCode"`
	ReferredBy     string          `bun:"referred_by,nullzero" json:"referredBy,omitempty"`
	AmountRaised   float64         `bun:"amount_raised,notnull,default:0" json:"amountRaised"`
	Goal           float64         `bun:"goal,notnull,default:5000" json:"goal"`
	ReferralsCount int             `bun:"referrals_count,notnull,default:0" json:"referralsCount"`
	Rewards        []reward.Reward `bun:"rewards,type:jsonb,notnull" json:"rewards"`
	CreatedAt      time.Time       `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"createdAt"`
	UpdatedAt      time.Time       `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updatedAt"`
}

var _ bun.BeforeAppendModelHook = (*Intern)(nil)

// BeforeAppendModel keeps rewards in step with amount_raised on every write.
func (i *Intern) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	switch query.(type) {
	case *bun.InsertQuery:
		now := time.Now()
		if i.ID == uuid.Nil {
			i.ID = uuid.New()
		}
		if i.CreatedAt.IsZero() {
			i.CreatedAt = now
		}
		i.UpdatedAt = now
		if i.Goal == 0 {
			i.Goal = DefaultGoal
		}
		i.Rewards = reward.Evaluate(i.AmountRaised)
	case *bun.UpdateQuery:
		i.UpdatedAt = time.Now()
		i.Rewards = reward.Evaluate(i.AmountRaised)
	}
	return nil
}

// Progress is the share of the goal raised so far, capped at 100.
func (i *Intern) Progress() float64 {
	if i.Goal <= 0 {
		return 0
	}
	p := i.AmountRaised / i.Goal * 100
	if p > 100 {
		return 100
	}
	return p
}

func (i *Intern) ToEntry() leaderboard.Entry {
	return leaderboard.Entry{
		ID:             i.ID,
		Name:           i.Name,
		AmountRaised:   i.AmountRaised,
		ReferralCode:   i.ReferralCode,
		ReferralsCount: i.ReferralsCount,
		CreatedAt:      i.CreatedAt,
	}
}

// SignupInput carries an already hashed password.
type SignupInput struct {
	Name         string
	Email        string
	PasswordHash string
	ReferralCode string
}

// Dashboard is what an intern sees about themselves.
type Dashboard struct {
	*Intern
	Progress       float64 `json:"progress"`
	UnlockedBadges int     `json:"unlockedBadges"`
}

func NewDashboard(i *Intern) Dashboard {
	return Dashboard{
		Intern:         i,
		Progress:       i.Progress(),
		UnlockedBadges: reward.UnlockedCount(i.Rewards),
	}
}

type SimulateReferralRequest struct {
	UserID string `json:"userId" validate:"required,uuid"`
}
