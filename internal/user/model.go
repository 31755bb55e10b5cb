package user

import "time"

// User is a party to friendships. Debt state lives on the friendship rows;
// a user row only carries identity.
type User struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	AvatarURL *string   `json:"avatar_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// DisplayName returns the username, falling back to the email for accounts
// created before usernames were required.
func (u *User) DisplayName() string {
	if u.Username != "" {
		return u.Username
	}
	return u.Email
}
