package model

// Credential is a registered license user. PasswordHash never leaves the server.
type Credential struct {
	Username     string `json:"username"`
	PasswordHash string `json:"passwordHash"`
}

// UserView is the public projection of a Credential.
type UserView struct {
	Username string `json:"username"`
}
