package domain

// Session is the client's belief about who is logged in.
// User and Token are set and cleared together.
type Session struct {
	User  *User
	Token string
}

// Authenticated reports whether both identity and token are present.
func (s Session) Authenticated() bool {
	return s.User != nil && s.Token != ""
}

// PersistedSession is the only session subset written to durable storage.
type PersistedSession struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}

// Valid reports whether the record carries a usable identity and token.
func (p *PersistedSession) Valid() bool {
	return p != nil && p.Token != "" && p.User != nil
}
