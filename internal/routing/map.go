package routing

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
)

// MapFile is the name of the expected servers file in the data directory.
const MapFile = "servers.txt"

// Map is the list of servers expected on the network and their uplinks,
// read from lines of the form
//
//	server: hub1 hub2
//
// Blank lines and lines starting with '#' are ignored.
type Map struct {
	// Servers maps server name to its hubs, preferred first
	Servers map[string][]string
	// ServerList is the server names in file order
	ServerList []string
}

// LoadMap reads the expected servers file. A missing file is an empty map.
func LoadMap(dataDir string) (*Map, error) {
	m := &Map{Servers: make(map[string][]string)}

	file, err := os.Open(filepath.Join(dataDir, MapFile))
	if err != nil {
		if os.IsNotExist(err) {
			return m, nil
		}
		return nil, err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(strings.ReplaceAll(scanner.Text(), "\r", ""))
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		server, hubPart, _ := strings.Cut(line, ":")
		server = strings.TrimSpace(server)
		if server == "" {
			continue
		}
		if _, seen := m.Servers[server]; seen {
			continue
		}

		m.Servers[server] = strings.Fields(hubPart)
		m.ServerList = append(m.ServerList, server)
	}

	return m, scanner.Err()
}

// Uplinks returns the hubs of a server, matched exactly or by prefix
func (m *Map) Uplinks(server string) (string, []string, bool) {
	if hubs, ok := m.Servers[server]; ok {
		return server, hubs, true
	}
	server = strings.ToLower(server)
	for _, name := range m.ServerList {
		if strings.HasPrefix(strings.ToLower(name), server) {
			return name, m.Servers[name], true
		}
	}
	return "", nil, false
}
