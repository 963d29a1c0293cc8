package routing

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMap(t *testing.T) {
	dir := t.TempDir()

	content := `# expected servers
hub:

server1: hub1 hub2 hub3
server2: hub1
server3: hub2 hub3
server2: hub9
`
	if err := os.WriteFile(filepath.Join(dir, MapFile), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	m, err := LoadMap(dir)
	if err != nil {
		t.Fatalf("LoadMap failed: %v", err)
	}

	if len(m.ServerList) != 4 {
		t.Errorf("Expected 4 servers, got %d: %v", len(m.ServerList), m.ServerList)
	}
	if hubs := m.Servers["server1"]; len(hubs) != 3 || hubs[0] != "hub1" {
		t.Errorf("Unexpected hubs for server1: %v", hubs)
	}
	if hubs := m.Servers["server2"]; len(hubs) != 1 || hubs[0] != "hub1" {
		t.Errorf("First entry for server2 should win, got %v", hubs)
	}
	if hubs := m.Servers["hub"]; len(hubs) != 0 {
		t.Errorf("hub should have no uplinks, got %v", hubs)
	}
}

func TestLoadMapMissing(t *testing.T) {
	m, err := LoadMap(t.TempDir())
	if err != nil {
		t.Fatalf("LoadMap should not fail for missing file: %v", err)
	}
	if len(m.ServerList) != 0 {
		t.Errorf("Expected empty map, got %v", m.ServerList)
	}
}

func TestUplinks(t *testing.T) {
	m := &Map{
		ServerList: []string{"server1", "server2"},
		Servers: map[string][]string{
			"server1": {"hub1", "hub2"},
			"server2": {"hub3"},
		},
	}

	name, hubs, ok := m.Uplinks("server1")
	if !ok || name != "server1" || len(hubs) != 2 {
		t.Errorf("Exact lookup failed: %s %v %v", name, hubs, ok)
	}

	name, hubs, ok = m.Uplinks("SERVER2")
	if !ok || name != "server2" || hubs[0] != "hub3" {
		t.Errorf("Prefix lookup failed: %s %v %v", name, hubs, ok)
	}

	if _, _, ok := m.Uplinks("nope"); ok {
		t.Error("Unknown server should not be found")
	}
}
