package routing

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Link is a single server link from a 364 reply
type Link struct {
	Server      string
	Hub         string // upstream server
	Hops        int
	Description string
}

// ParseLink reads the parameters of a 364 reply:
//
//	:irc.example.net 364 <me> <server> <hub> :<hops> <description>
//
// tokens are the whitespace separated tokens of the line.
func ParseLink(tokens []string) (Link, bool) {
	if len(tokens) < 6 {
		return Link{}, false
	}

	hops, err := strconv.Atoi(strings.TrimPrefix(tokens[5], ":"))
	if err != nil {
		return Link{}, false
	}

	return Link{
		Server:      tokens[3],
		Hub:         tokens[4],
		Hops:        hops,
		Description: strings.Join(tokens[6:], " "),
	}, true
}

// Tree collects the links of one LINKS query
type Tree struct {
	entries map[string]*Link
}

func NewTree() *Tree {
	return &Tree{entries: make(map[string]*Link)}
}

// Add records a link. A server seen twice keeps its last entry.
func (t *Tree) Add(l Link) {
	t.entries[l.Server] = &l
}

// Len is the number of servers collected
func (t *Tree) Len() int {
	return len(t.entries)
}

// ShortNames returns the sorted linked server names, cut at the first dot
func (t *Tree) ShortNames() []string {
	servers := make([]string, 0, len(t.entries))
	for server := range t.entries {
		servers = append(servers, shortName(server))
	}
	sort.Strings(servers)
	return servers
}

// Build returns the tree as display lines, depth first, children sorted
// alphabetically
func (t *Tree) Build() []string {
	if len(t.entries) == 0 {
		return nil
	}

	root := t.root()
	if root == "" {
		return []string{"Error: no root server found"}
	}

	ordered := t.sortHierarchically(root)

	lines := make([]string, 0, len(ordered))
	for i, server := range ordered {
		lines = append(lines, t.formatLine(t.entries[server], ordered[i+1:]))
	}
	return lines
}

// Summary counts the servers of the tree.
type Summary struct {
	Servers int
	Hubs    int
	Leaves  int
	Depth   int
}

func (s Summary) String() string {
	return fmt.Sprintf("%d servers (%d hubs, %d leaves), %d hops deep", s.Servers, s.Hubs, s.Leaves, s.Depth)
}

func (t *Tree) Summary() Summary {
	hubs := make(map[string]bool)
	var depth int
	for _, l := range t.entries {
		if l.Hub != l.Server {
			hubs[l.Hub] = true
		}
		depth = max(depth, l.Hops)
	}

	s := Summary{Servers: len(t.entries), Depth: depth}
	for server := range t.entries {
		if hubs[server] {
			s.Hubs++
		} else {
			s.Leaves++
		}
	}
	return s
}

func (t *Tree) root() string {
	for server, l := range t.entries {
		if l.Hops == 0 {
			return server
		}
	}
	return ""
}

func (t *Tree) sortHierarchically(root string) []string {
	result := []string{root}
	t.sortChildren(root, &result)
	return result
}

func (t *Tree) sortChildren(parent string, result *[]string) {
	var children []*Link
	for _, l := range t.entries {
		if l.Hub == parent && l.Server != parent {
			children = append(children, l)
		}
	}

	sort.Slice(children, func(i, j int) bool {
		return children[i].Server < children[j].Server
	})

	for _, child := range children {
		*result = append(*result, child.Server)
		t.sortChildren(child.Server, result)
	}
}

func (t *Tree) formatLine(l *Link, remaining []string) string {
	if l.Hops == 0 {
		return fmt.Sprintf("%s (%d) %s", l.Server, l.Hops, l.Description)
	}

	var prefix strings.Builder
	for level := 1; level < l.Hops; level++ {
		if t.hasMoreAtLevel(level+1, remaining) {
			prefix.WriteString("   |")
		} else {
			prefix.WriteString("    ")
		}
	}
	prefix.WriteString("|_ ")

	return fmt.Sprintf("%s%s (%d) %s", prefix.String(), l.Server, l.Hops, l.Description)
}

func (t *Tree) hasMoreAtLevel(level int, remaining []string) bool {
	for _, server := range remaining {
		if l, ok := t.entries[server]; ok && l.Hops == level {
			return true
		}
	}
	return false
}

// Missing compares the tree against the expected servers.
// Returns (expected count, linked count, missing short names)
func Missing(t *Tree, expected *Map) (int, int, []string) {
	linked := make(map[string]bool)
	for _, s := range t.ShortNames() {
		linked[strings.ToLower(s)] = true
	}

	var missing []string
	for _, server := range expected.ServerList {
		short := shortName(server)
		if !linked[strings.ToLower(short)] {
			missing = append(missing, short)
		}
	}

	return len(expected.ServerList), t.Len(), missing
}

func shortName(server string) string {
	if idx := strings.Index(server, "."); idx > 0 {
		return server[:idx]
	}
	return server
}
