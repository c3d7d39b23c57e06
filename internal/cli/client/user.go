package client

import (
	"encoding/json"
	"strconv"
	"strings"
)

// User is the profile record the API returns for the signed-in user
type User struct {
	UserID     string `json:"userId" yaml:"userId"`
	Email      string `json:"email" yaml:"email"`
	Username   string `json:"username,omitempty" yaml:"username,omitempty"`
	FirstName  string `json:"firstName,omitempty" yaml:"firstName,omitempty"`
	MiddleName string `json:"middleName,omitempty" yaml:"middleName,omitempty"`
	LastName   string `json:"lastName,omitempty" yaml:"lastName,omitempty"`
	NickName   string `json:"nickName,omitempty" yaml:"nickName,omitempty"`
	AvatarURL  string `json:"avatarUrl,omitempty" yaml:"avatarUrl,omitempty"`
	IsAdmin    bool   `json:"isAdmin" yaml:"isAdmin"`
}

// UnmarshalJSON accepts the backend's database identifiers (ID, id, _id)
// as a fallback for userId, as strings or numbers.
func (u *User) UnmarshalJSON(data []byte) error {
	type plain User
	var aux struct {
		plain
		ID        json.RawMessage `json:"ID"`
		LowerID   json.RawMessage `json:"id"`
		UnderID   json.RawMessage `json:"_id"`
		RawUserID json.RawMessage `json:"userId"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*u = User(aux.plain)

	for _, raw := range []json.RawMessage{aux.RawUserID, aux.ID, aux.LowerID, aux.UnderID} {
		if id := rawID(raw); id != "" {
			u.UserID = id
			break
		}
	}
	return nil
}

// rawID renders a JSON string or number identifier as a string
func rawID(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		if i, err := strconv.ParseInt(n.String(), 10, 64); err == nil {
			return strconv.FormatInt(i, 10)
		}
		return n.String()
	}
	return ""
}

// FullName joins the non-empty name parts, falling back to the username
func (u *User) FullName() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{u.FirstName, u.MiddleName, u.LastName} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		return u.Username
	}
	return strings.Join(parts, " ")
}

// Clone returns a copy that shares nothing with u
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}
