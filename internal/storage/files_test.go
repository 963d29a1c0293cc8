package storage

import (
	"os"
	"path/filepath"
	"testing"
)

func open(t *testing.T) *Files {
	t.Helper()
	f, err := Open(filepath.Join(t.TempDir(), "data"))
	if err != nil {
		t.Fatal(err)
	}
	return f
}

func TestLogsRoundTrip(t *testing.T) {
	f := open(t)

	// newest first in memory
	logs := []string{
		"[Thu Feb 20, 2025 12:00:00 GMT] [server1]: Connected",
		"[Thu Feb 20, 2025 11:00:00 GMT] [server2]: Disconnected",
	}

	if err := f.SaveLogs(logs); err != nil {
		t.Fatalf("SaveLogs failed: %v", err)
	}

	data, _ := os.ReadFile(filepath.Join(f.Dir(), "logs.txt"))
	if string(data) != logs[1]+"\n"+logs[0]+"\n" {
		t.Errorf("File should be oldest first, got %q", string(data))
	}

	loaded, err := f.LoadLogs()
	if err != nil {
		t.Fatalf("LoadLogs failed: %v", err)
	}

	if len(loaded) != len(logs) {
		t.Fatalf("Expected %d logs, got %d", len(logs), len(loaded))
	}
	for i := range logs {
		if loaded[i] != logs[i] {
			t.Errorf("Log %d mismatch: expected %q, got %q", i, logs[i], loaded[i])
		}
	}
}

func TestStatsRoundTrip(t *testing.T) {
	f := open(t)

	stats := make([]string, 0, 600)
	for i := 0; i < 600; i++ {
		stats = append(stats, "entry")
	}
	stats[len(stats)-1] = "last"

	if err := f.SaveStats(stats); err != nil {
		t.Fatalf("SaveStats failed: %v", err)
	}

	loaded, err := f.LoadStats()
	if err != nil {
		t.Fatalf("LoadStats failed: %v", err)
	}
	if len(loaded) != 500 {
		t.Errorf("Expected 500 stats (max), got %d", len(loaded))
	}
	if loaded[len(loaded)-1] != "last" {
		t.Errorf("Newest stat should be kept last, got %q", loaded[len(loaded)-1])
	}
}

func TestLoadMissingFiles(t *testing.T) {
	f := open(t)

	logs, err := f.LoadLogs()
	if err != nil || len(logs) != 0 {
		t.Errorf("Expected no logs, got %v, %v", logs, err)
	}
	stats, err := f.LoadStats()
	if err != nil || len(stats) != 0 {
		t.Errorf("Expected no stats, got %v, %v", stats, err)
	}
}

func TestAddLog(t *testing.T) {
	logs := []string{"old1", "old2"}
	logs = AddLog(logs, "new")

	if len(logs) != 3 {
		t.Errorf("Expected 3 logs, got %d", len(logs))
	}

	if logs[0] != "new" {
		t.Errorf("New log should be first, got %q", logs[0])
	}
}

func TestAddLogMaxEntries(t *testing.T) {
	logs := make([]string, 500)
	for i := range logs {
		logs[i] = "entry"
	}

	logs = AddLog(logs, "new")

	if len(logs) != 500 {
		t.Errorf("Expected 500 logs (max), got %d", len(logs))
	}

	if logs[0] != "new" {
		t.Errorf("New log should be first")
	}
}

func TestAddStat(t *testing.T) {
	stats := make([]string, 500)
	stats = AddStat(stats, "new")

	if len(stats) != 500 || stats[499] != "new" {
		t.Errorf("Expected 500 stats ending with the new one, got %d", len(stats))
	}
}

func TestSearch(t *testing.T) {
	entries := []string{"Server1 linked", "server2 split", "hub restarted"}

	found := Search(entries, "SERVER")
	if len(found) != 2 || found[0] != "Server1 linked" {
		t.Errorf("Unexpected matches: %v", found)
	}
	if Search(entries, "nothing") != nil {
		t.Errorf("Expected no matches")
	}
}

func TestMOTDRoundTrip(t *testing.T) {
	f := open(t)

	motd := &MOTD{
		Setter:  "testuser on Thu Feb 20, 2025",
		Message: "This is the message of the day",
	}

	if err := f.SaveMOTD(motd); err != nil {
		t.Fatalf("SaveMOTD failed: %v", err)
	}

	data, _ := os.ReadFile(filepath.Join(f.Dir(), "motd.txt"))
	expected := "testuser on Thu Feb 20, 2025%%This is the message of the day\n"
	if string(data) != expected {
		t.Errorf("MOTD file format wrong: got %q", string(data))
	}

	loaded, err := f.LoadMOTD()
	if err != nil {
		t.Fatalf("LoadMOTD failed: %v", err)
	}

	if loaded.Setter != motd.Setter {
		t.Errorf("Setter mismatch: expected %q, got %q", motd.Setter, loaded.Setter)
	}
	if loaded.Message != motd.Message {
		t.Errorf("Message mismatch: expected %q, got %q", motd.Message, loaded.Message)
	}
}

func TestLoadMOTDWithoutSetter(t *testing.T) {
	f := open(t)
	if err := os.WriteFile(filepath.Join(f.Dir(), "motd.txt"), []byte("just a message\n"), 0644); err != nil {
		t.Fatal(err)
	}

	motd, err := f.LoadMOTD()
	if err != nil {
		t.Fatal(err)
	}
	if motd.Setter != "" || motd.Message != "just a message" {
		t.Errorf("Unexpected MOTD: %+v", motd)
	}
}

func TestLoadMOTDMissing(t *testing.T) {
	motd, err := open(t).LoadMOTD()
	if err != nil {
		t.Fatalf("LoadMOTD should not fail for missing file: %v", err)
	}

	if !motd.IsZero() {
		t.Errorf("Expected empty MOTD, got setter=%q message=%q", motd.Setter, motd.Message)
	}
}
