package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleGuide     Role = "guide"
	RoleLeadGuide Role = "lead-guide"
	RoleAdmin     Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleGuide, RoleLeadGuide, RoleAdmin:
		return true
	}
	return false
}

// User is the credential record. Password holds the bcrypt hash only and is
// never serialized to clients; the reset-token fields store a sha256 of the
// token actually mailed out.
type User struct {
	ID                   primitive.ObjectID `bson:"_id,omitempty"                    json:"id"`
	Name                 string             `bson:"name"                             json:"name"`
	Email                string             `bson:"email"                            json:"email"`
	Photo                string             `bson:"photo,omitempty"                  json:"photo,omitempty"`
	Role                 Role               `bson:"role"                             json:"role"`
	Password             string             `bson:"password,omitempty"               json:"-"`
	PasswordChangedAt    time.Time          `bson:"password_changed_at,omitempty"    json:"-"`
	PasswordResetToken   string             `bson:"password_reset_token,omitempty"   json:"-"`
	PasswordResetExpires time.Time          `bson:"password_reset_expires,omitempty" json:"-"`
	CreatedAt            time.Time          `bson:"created_at"                       json:"created_at"`
}

// ChangedPasswordAfter reports whether the password was modified after t.
// Tokens issued before the last change must be treated as stale.
func (u *User) ChangedPasswordAfter(t time.Time) bool {
	return !u.PasswordChangedAt.IsZero() && u.PasswordChangedAt.After(t)
}
