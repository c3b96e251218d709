package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
)

// Role is ordered: a higher role satisfies every lower requirement.
type Role int

const (
	RoleNone Role = iota
	RoleUser
	RoleAdmin
)

func ParseRole(s string) Role {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "USER":
		return RoleUser
	case "ADMIN":
		return RoleAdmin
	}
	return RoleNone
}

func (r Role) String() string {
	switch r {
	case RoleUser:
		return "USER"
	case RoleAdmin:
		return "ADMIN"
	}
	return "NONE"
}

// Allows reports whether r meets the required level.
func (r Role) Allows(required Role) bool { return r >= required && r > RoleNone }

func (r Role) Value() (driver.Value, error) { return r.String(), nil }

func (r *Role) Scan(src any) error {
	switch v := src.(type) {
	case string:
		*r = ParseRole(v)
	case []byte:
		*r = ParseRole(string(v))
	case nil:
		*r = RoleNone
	default:
		return fmt.Errorf("role: unsupported type %T", src)
	}
	return nil
}

func (r Role) MarshalJSON() ([]byte, error) { return json.Marshal(r.String()) }

func (r *Role) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	*r = ParseRole(s)
	return nil
}

type User struct {
	ID        string `db:"id" json:"id"`
	Email     string `db:"email" json:"email"`
	Name      string `db:"name" json:"name"`
	Image     string `db:"image" json:"image,omitempty"`
	Hash      string `db:"password_hash" json:"-"`
	Role      Role   `db:"role" json:"role"`
	CreatedAt string `db:"created_at" json:"createdAt"`
}

// HasPassword is false for accounts created through an OAuth provider.
func (u User) HasPassword() bool { return u.Hash != "" }

// Principal is the authenticated caller attached to a request.
type Principal struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	Role   Role   `json:"role"`
}
