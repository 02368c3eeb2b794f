package domain

// Credentials are presented by a caller. Never log Password.
type Credentials struct {
	Username string
	Password string
}

// Credential is a stored operator account.
type Credential struct {
	UserId       UserId
	Username     string
	PasswordHash string
}
