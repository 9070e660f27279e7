package model

// AccessList restricts access to proxy hosts via basic auth entries and/or
// client address rules.
type AccessList struct {
	ID         int64              `json:"id,omitempty"`
	CreatedOn  string             `json:"created_on,omitempty"`
	ModifiedOn string             `json:"modified_on,omitempty"`
	Name       string             `json:"name"`
	SatisfyAny bool               `json:"satisfy_any"`
	PassAuth   bool               `json:"pass_auth"`
	Items      []AccessListAuth   `json:"items"`
	Clients    []AccessListClient `json:"clients"`
}

// AccessListAuth is one basic-auth credential entry.
type AccessListAuth struct {
	Username string `json:"username"`
	// Password is write-only on the upstream API; reads return it empty.
	Password string `json:"password,omitempty"`
}

// AccessListClient is one allow/deny rule keyed by IP address or CIDR range.
type AccessListClient struct {
	Address   string `json:"address"`
	Directive string `json:"directive"`
}
