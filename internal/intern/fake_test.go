package intern_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"intern-service/internal/events"
	"intern-service/internal/intern"
	"intern-service/internal/leaderboard"
	"intern-service/internal/reward"

	"github.com/google/uuid"
)

// memRepository mirrors the store's constraints and locking in memory.
type memRepository struct {
	mu      sync.Mutex
	interns map[uuid.UUID]*intern.Intern
	failOn  error
	credits int
}

func newMemRepository() *memRepository {
	return &memRepository{interns: map[uuid.UUID]*intern.Intern{}}
}

func (m *memRepository) Create(ctx context.Context, in *intern.Intern) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failOn != nil {
		return m.failOn
	}
	for _, existing := range m.interns {
		if existing.Email == in.Email {
			return intern.ErrEmailExists
		}
		if existing.ReferralCode == in.ReferralCode {
			return intern.ErrReferralCodeTaken
		}
	}
	if in.ID == uuid.Nil {
		in.ID = uuid.New()
	}
	in.CreatedAt = time.Now()
	in.UpdatedAt = in.CreatedAt
	in.Rewards = reward.Evaluate(in.AmountRaised)
	stored := *in
	m.interns[in.ID] = &stored
	return nil
}

func (m *memRepository) GetByID(ctx context.Context, id uuid.UUID) (*intern.Intern, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	in, ok := m.interns[id]
	if !ok {
		return nil, intern.ErrInternNotFound
	}
	cp := *in
	return &cp, nil
}

func (m *memRepository) GetByEmail(ctx context.Context, email string) (*intern.Intern, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, in := range m.interns {
		if in.Email == email {
			cp := *in
			return &cp, nil
		}
	}
	return nil, intern.ErrInternNotFound
}

func (m *memRepository) List(ctx context.Context) ([]intern.Intern, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]intern.Intern, 0, len(m.interns))
	for _, in := range m.interns {
		out = append(out, *in)
	}
	return out, nil
}

func (m *memRepository) Standings(ctx context.Context) ([]leaderboard.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]leaderboard.Entry, 0, len(m.interns))
	for _, in := range m.interns {
		out = append(out, in.ToEntry())
	}
	return out, nil
}

func (m *memRepository) CreditReferral(ctx context.Context, code string, excludeID uuid.UUID, bonus float64) (*intern.Intern, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.credits++
	for _, in := range m.interns {
		if in.ReferralCode == code && in.ID != excludeID {
			in.AmountRaised += bonus
			in.ReferralsCount++
			in.Rewards = reward.Evaluate(in.AmountRaised)
			cp := *in
			return &cp, nil
		}
	}
	return nil, intern.ErrInternNotFound
}

func (m *memRepository) AddAmount(ctx context.Context, id uuid.UUID, delta float64) (*intern.Intern, error) {
	return m.mutate(id, func(in *intern.Intern) { in.AmountRaised += delta })
}

func (m *memRepository) SetAmount(ctx context.Context, id uuid.UUID, amount float64) (*intern.Intern, error) {
	return m.mutate(id, func(in *intern.Intern) { in.AmountRaised = amount })
}

func (m *memRepository) mutate(id uuid.UUID, fn func(*intern.Intern)) (*intern.Intern, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	in, ok := m.interns[id]
	if !ok {
		return nil, intern.ErrInternNotFound
	}
	fn(in)
	in.Rewards = reward.Evaluate(in.AmountRaised)
	cp := *in
	return &cp, nil
}

func (m *memRepository) Delete(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.interns[id]; !ok {
		return intern.ErrInternNotFound
	}
	delete(m.interns, id)
	return nil
}

// sequenceGenerator hands out codes in order, then repeats the last one.
type sequenceGenerator struct {
	mu    sync.Mutex
	codes []string
	next  int
}

func (g *sequenceGenerator) Generate() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if len(g.codes) == 0 {
		return "", errors.New("no codes")
	}
	i := g.next
	if i >= len(g.codes) {
		i = len(g.codes) - 1
	}
	g.next++
	return g.codes[i], nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(ctx context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) types() []events.Type {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]events.Type, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

type countingInvalidator struct {
	mu    sync.Mutex
	count int
}

func (c *countingInvalidator) Invalidate(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.count++
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
