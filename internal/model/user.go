package model

// User is an upstream admin console account.
type User struct {
	ID         int64    `json:"id,omitempty"`
	CreatedOn  string   `json:"created_on,omitempty"`
	ModifiedOn string   `json:"modified_on,omitempty"`
	Name       string   `json:"name"`
	Nickname   string   `json:"nickname"`
	Email      string   `json:"email"`
	Roles      []string `json:"roles"`
	IsDisabled bool     `json:"is_disabled"`
}

// UserAuth is the payload for setting a user's login secret.
type UserAuth struct {
	Type    string `json:"type"`
	Current string `json:"current,omitempty"`
	Secret  string `json:"secret"`
}
