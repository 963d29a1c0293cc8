package state

import (
	"strings"

	"github.com/ergochat/irc-go/ircmsg"
)

// Identity is the decomposed form of an origin token.
type Identity struct {
	Nick  string
	Ident string
	Host  string
}

// ParseIdentity splits nick!user@host. A string without '!' or '@' is a
// bare nick, unless it contains a dot, in which case it is a server host.
func ParseIdentity(s string) Identity {
	s = strings.TrimPrefix(s, ":")
	if !strings.ContainsAny(s, "!@") {
		if strings.Contains(s, ".") {
			return Identity{Host: s}
		}
		return Identity{Nick: s}
	}

	nuh, err := ircmsg.ParseNUH(s)
	if err != nil {
		return Identity{Host: s}
	}
	return Identity{Nick: nuh.Name, Ident: nuh.User, Host: nuh.Host}
}

// User is a tracked (or not yet tracked) participant. The store owns the
// membership relation; a User only carries identity fields.
type User struct {
	id uint64

	Nick     string
	Ident    string
	Host     string
	RealName string
	Account  string
}

// NewUser builds an unregistered user from an identity string.
func NewUser(identity string) *User {
	id := ParseIdentity(identity)
	return &User{Nick: id.Nick, Ident: id.Ident, Host: id.Host}
}

// Registered reports whether the user is held by a store.
func (u *User) Registered() bool {
	return u != nil && u.id != 0
}

// Fill copies ident and host from an identity when they are still unknown.
func (u *User) Fill(id Identity) {
	if u.Ident == "" {
		u.Ident = id.Ident
	}
	if u.Host == "" {
		u.Host = id.Host
	}
}

// Mask renders nick!ident@host, falling back to whatever parts are known.
func (u *User) Mask() string {
	if u.Nick == "" {
		return u.Host
	}
	if u.Ident == "" && u.Host == "" {
		return u.Nick
	}
	return u.Nick + "!" + u.Ident + "@" + u.Host
}

func (u *User) String() string {
	if u.Nick == "" {
		return u.Host
	}
	return u.Nick + "@" + u.Host
}

// Channel is a named room. Its members are kept by the store.
type Channel struct {
	id uint64

	Name string
}

// NewChannel builds an unregistered channel, dropping a leading ':'.
func NewChannel(name string) *Channel {
	return &Channel{Name: strings.TrimPrefix(name, ":")}
}

// Registered reports whether the channel is held by a store.
func (c *Channel) Registered() bool {
	return c != nil && c.id != 0
}

func (c *Channel) String() string {
	return c.Name
}

// IsChannel reports whether a target names a channel rather than a nick.
func IsChannel(target string) bool {
	return strings.HasPrefix(strings.TrimPrefix(target, ":"), "#")
}
