package state

import (
	"sort"
)

type set map[uint64]struct{}

// Store is the live model of users, channels and their memberships.
//
// Records are addressed by numeric ids; membership is held in two index sets
// (user -> channels, channel -> users) which every mutation updates together,
// so a user is in a channel's member set iff the channel is in the user's.
//
// The store is not safe for concurrent use. It is owned by the dispatch loop.
type Store struct {
	nextID uint64

	users    map[uint64]*User
	nicks    map[string]uint64
	channels map[uint64]*Channel
	names    map[string]uint64

	joined  map[uint64]set
	members map[uint64]set

	me uint64
}

func NewStore() *Store {
	return &Store{
		users:    make(map[uint64]*User),
		nicks:    make(map[string]uint64),
		channels: make(map[uint64]*Channel),
		names:    make(map[string]uint64),
		joined:   make(map[uint64]set),
		members:  make(map[uint64]set),
	}
}

// ResolveUser returns the registered user whose nick matches the identity,
// or a new unregistered user. Nothing is mutated and unregistered results
// are never cached; register them with AddUser or Join.
func (s *Store) ResolveUser(identity string) *User {
	id := ParseIdentity(identity)
	if id.Nick != "" {
		if u, ok := s.User(id.Nick); ok {
			return u
		}
	}
	return &User{Nick: id.Nick, Ident: id.Ident, Host: id.Host}
}

// ResolveChannel is ResolveUser for channels, matched by exact name.
func (s *Store) ResolveChannel(name string) *Channel {
	c := NewChannel(name)
	if existing, ok := s.Channel(c.Name); ok {
		return existing
	}
	return c
}

func (s *Store) User(nick string) (*User, bool) {
	id, ok := s.nicks[nick]
	if !ok {
		return nil, false
	}
	return s.users[id], true
}

func (s *Store) Channel(name string) (*Channel, bool) {
	id, ok := s.names[name]
	if !ok {
		return nil, false
	}
	return s.channels[id], true
}

// AddUser registers u and returns the stored record. If the nick is already
// held, the existing record wins and u is discarded.
func (s *Store) AddUser(u *User) *User {
	if u.Registered() {
		if stored, ok := s.users[u.id]; ok && stored == u {
			return u
		}
	}
	if existing, ok := s.User(u.Nick); ok {
		return existing
	}

	s.nextID++
	u.id = s.nextID
	s.users[u.id] = u
	if u.Nick != "" {
		s.nicks[u.Nick] = u.id
	}
	return u
}

// AddChannel registers c and returns the stored record.
func (s *Store) AddChannel(c *Channel) *Channel {
	if c.Registered() {
		if stored, ok := s.channels[c.id]; ok && stored == c {
			return c
		}
	}
	if existing, ok := s.Channel(c.Name); ok {
		return existing
	}

	s.nextID++
	c.id = s.nextID
	s.channels[c.id] = c
	s.names[c.Name] = c.id
	return c
}

// SetMe registers u as the bot's own identity.
func (s *Store) SetMe(u *User) *User {
	u = s.AddUser(u)
	s.me = u.id
	return u
}

// Me returns the bot's own user, or nil before SetMe.
func (s *Store) Me() *User {
	return s.users[s.me]
}

// IsMe reports whether u is the bot itself.
func (s *Store) IsMe(u *User) bool {
	return u.Registered() && s.me != 0 && u.id == s.me
}

// Join records u as a member of c, registering either if needed. The
// registered records are returned.
func (s *Store) Join(u *User, c *Channel) (*User, *Channel) {
	u = s.AddUser(u)
	c = s.AddChannel(c)
	s.link(u.id, c.id)
	return u, c
}

// Part removes the membership edge between u and c.
func (s *Store) Part(u *User, c *Channel) {
	if !s.holds(u, c) {
		return
	}
	s.unlink(u.id, c.id)
}

// Kick is Part initiated by somebody else.
func (s *Store) Kick(c *Channel, u *User) {
	s.Part(u, c)
}

// Quit removes u from every channel and forgets it. The bot's own record is
// kept.
func (s *Store) Quit(u *User) {
	if !u.Registered() || s.users[u.id] != u {
		return
	}
	for cid := range s.joined[u.id] {
		s.unlink(u.id, cid)
	}
	if u.id == s.me {
		return
	}
	delete(s.joined, u.id)
	delete(s.users, u.id)
	if s.nicks[u.Nick] == u.id {
		delete(s.nicks, u.Nick)
	}
	u.id = 0
}

// Rename changes the nick of u in place, keeping its identity and
// memberships. A stale record still holding the new nick is dropped.
func (s *Store) Rename(u *User, nick string) {
	if !u.Registered() || s.users[u.id] != u {
		u.Nick = nick
		return
	}
	if other, ok := s.User(nick); ok && other != u {
		s.Quit(other)
	}
	if s.nicks[u.Nick] == u.id {
		delete(s.nicks, u.Nick)
	}
	u.Nick = nick
	s.nicks[nick] = u.id
}

// Names adds every nick to the channel, creating unknown users and the
// channel itself. Calling it again with the same list changes nothing.
func (s *Store) Names(channel string, nicks []string) *Channel {
	c := s.AddChannel(s.ResolveChannel(channel))
	for _, nick := range nicks {
		if nick == "" {
			continue
		}
		u := s.AddUser(s.ResolveUser(nick))
		s.link(u.id, c.id)
	}
	return c
}

// Forget retires a channel and every membership edge pointing at it.
func (s *Store) Forget(c *Channel) {
	if !c.Registered() || s.channels[c.id] != c {
		return
	}
	for uid := range s.members[c.id] {
		s.unlink(uid, c.id)
	}
	delete(s.members, c.id)
	delete(s.channels, c.id)
	delete(s.names, c.Name)
	c.id = 0
}

// InChannel reports whether u is a member of c.
func (s *Store) InChannel(u *User, c *Channel) bool {
	if !s.holds(u, c) {
		return false
	}
	_, ok := s.members[c.id][u.id]
	return ok
}

// ChannelsOf lists the channels u is in, sorted by name.
func (s *Store) ChannelsOf(u *User) []*Channel {
	if !u.Registered() {
		return nil
	}
	out := make([]*Channel, 0, len(s.joined[u.id]))
	for cid := range s.joined[u.id] {
		out = append(out, s.channels[cid])
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Members lists the users in c, sorted by nick.
func (s *Store) Members(c *Channel) []*User {
	if !c.Registered() {
		return nil
	}
	out := make([]*User, 0, len(s.members[c.id]))
	for uid := range s.members[c.id] {
		out = append(out, s.users[uid])
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Nick < out[j].Nick })
	return out
}

// Len returns the number of registered users and channels.
func (s *Store) Len() (users, channels int) {
	return len(s.users), len(s.channels)
}

func (s *Store) holds(u *User, c *Channel) bool {
	return u.Registered() && c.Registered() &&
		s.users[u.id] == u && s.channels[c.id] == c
}

func (s *Store) link(uid, cid uint64) {
	if s.joined[uid] == nil {
		s.joined[uid] = make(set)
	}
	if s.members[cid] == nil {
		s.members[cid] = make(set)
	}
	s.joined[uid][cid] = struct{}{}
	s.members[cid][uid] = struct{}{}
}

func (s *Store) unlink(uid, cid uint64) {
	delete(s.joined[uid], cid)
	delete(s.members[cid], uid)
}
