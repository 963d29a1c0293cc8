package state

import "sort"

// Snapshot is an immutable copy of the store, safe to hand to other
// goroutines.
type Snapshot struct {
	Me       string            `json:"me"`
	Users    int               `json:"users"`
	Channels []ChannelSnapshot `json:"channels"`
}

type ChannelSnapshot struct {
	Name  string   `json:"name"`
	Users []string `json:"users,omitempty"`
}

func (s *Store) Snapshot() *Snapshot {
	snap := &Snapshot{Users: len(s.users)}
	if me := s.Me(); me != nil {
		snap.Me = me.Nick
	}

	for _, c := range s.channels {
		cs := ChannelSnapshot{Name: c.Name}
		for _, u := range s.Members(c) {
			cs.Users = append(cs.Users, u.Nick)
		}
		snap.Channels = append(snap.Channels, cs)
	}
	sort.Slice(snap.Channels, func(i, j int) bool {
		return snap.Channels[i].Name < snap.Channels[j].Name
	})

	return snap
}

// Channel looks a channel up by name.
func (s *Snapshot) Channel(name string) (ChannelSnapshot, bool) {
	for _, c := range s.Channels {
		if c.Name == name {
			return c, true
		}
	}
	return ChannelSnapshot{}, false
}
