package contact

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type Contact struct {
	bun.BaseModel `bun:"table:contacts,alias:c"`

	ID      uuid.UUID  `bun:"id,pk,type:uuid" json:"id"`
	Name    string     `bun:"name,notnull" json:"name"`
	Email   string     `bun:"email,notnull" json:"email"`
	Message string     `bun:"message,type:text,notnull" json:"message"`
	UserID  *uuid.UUID `bun:"user_id,type:uuid" json:"userId,omitempty"`
	Date    time.Time  `bun:"date,nullzero,notnull,default:current_timestamp" json:"date"`
}

var _ bun.BeforeAppendModelHook = (*Contact)(nil)

func (c *Contact) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	if _, ok := query.(*bun.InsertQuery); ok {
		if c.ID == uuid.Nil {
			c.ID = uuid.New()
		}
		if c.Date.IsZero() {
			c.Date = time.Now()
		}
	}
	return nil
}

// User is the intern a message was sent by, if they still exist.
type User struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
}

// WithUser is a contact joined with its sender's account.
type WithUser struct {
	Contact
	User *User `json:"user"`
}

type SubmitRequest struct {
	Name    string `json:"name" validate:"required,max=100"`
	Email   string `json:"email" validate:"required,email"`
	Message string `json:"message" validate:"required,max=5000"`
	UserID  string `json:"userId" validate:"omitempty,uuid"`
}

type SubmitResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}
