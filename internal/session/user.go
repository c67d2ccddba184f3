package session

import (
	"encoding/json"
	"fmt"
)

// User is the cached account profile returned by the backend.
//
// Only the identity fields are modelled. The complete payload is kept verbatim
// so backend claims the client does not know about (default store, roles, ...)
// survive a storage round-trip unchanged.
type User struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Username string `json:"username"`
	Name     string `json:"name,omitempty"`

	raw json.RawMessage
}

// UnmarshalJSON decodes the identity fields and remembers the raw payload.
func (u *User) UnmarshalJSON(data []byte) error {
	type plain User
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*u = User(p)
	u.raw = append(json.RawMessage(nil), data...)
	return nil
}

// MarshalJSON returns the payload the user was decoded from, or the identity
// fields for users built in code.
func (u User) MarshalJSON() ([]byte, error) {
	if len(u.raw) > 0 {
		return u.raw, nil
	}
	type plain User
	return json.Marshal(plain(u))
}

// Claim returns a top-level field of the backend payload.
func (u *User) Claim(name string) (any, bool) {
	if u == nil || len(u.raw) == 0 {
		return nil, false
	}
	var fields map[string]any
	if err := json.Unmarshal(u.raw, &fields); err != nil {
		return nil, false
	}
	v, ok := fields[name]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

// DefaultStoreID returns the defaultStoreId claim, or "" when the backend has
// not associated a store with the account.
func (u *User) DefaultStoreID() string {
	v, ok := u.Claim("defaultStoreId")
	if !ok {
		return ""
	}
	switch id := v.(type) {
	case string:
		return id
	case float64:
		return fmt.Sprintf("%.0f", id)
	default:
		return fmt.Sprint(id)
	}
}

// DisplayName prefers the full name, then the username, then the email.
func (u *User) DisplayName() string {
	switch {
	case u == nil:
		return ""
	case u.Name != "":
		return u.Name
	case u.Username != "":
		return u.Username
	default:
		return u.Email
	}
}

func decodeUser(data string) (*User, error) {
	var u User
	if err := json.Unmarshal([]byte(data), &u); err != nil {
		return nil, fmt.Errorf("failed to decode stored user: %w", err)
	}
	return &u, nil
}

func encodeUser(u *User) (string, error) {
	data, err := json.Marshal(u)
	if err != nil {
		return "", fmt.Errorf("failed to encode user: %w", err)
	}
	return string(data), nil
}
