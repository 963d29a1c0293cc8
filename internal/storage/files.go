package storage

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	maxEntries = 500

	logsFile  = "logs.txt"
	statsFile = "stats.txt"
	motdFile  = "motd.txt"
)

// Files is the bot's flat-file data directory: server notices (logs.txt),
// the command audit trail (stats.txt) and the message of the day (motd.txt).
type Files struct {
	dir string
}

// Open uses dir as data directory, creating it if needed.
func Open(dir string) (*Files, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return &Files{dir: dir}, nil
}

func (f *Files) Dir() string {
	return f.dir
}

// LoadLogs reads the notice log, newest first (the file stores oldest first).
func (f *Files) LoadLogs() ([]string, error) {
	lines, err := readLines(filepath.Join(f.dir, logsFile))
	if err != nil {
		return nil, err
	}
	return reverse(lines), nil
}

// SaveLogs writes the notice log. Expects newest first.
func (f *Files) SaveLogs(logs []string) error {
	return writeLines(filepath.Join(f.dir, logsFile), reverse(logs))
}

// LoadStats reads the audit trail, oldest first.
func (f *Files) LoadStats() ([]string, error) {
	return readLines(filepath.Join(f.dir, statsFile))
}

// SaveStats writes the newest maxEntries of the audit trail.
func (f *Files) SaveStats(stats []string) error {
	if len(stats) > maxEntries {
		stats = stats[len(stats)-maxEntries:]
	}
	return writeLines(filepath.Join(f.dir, statsFile), stats)
}

// MOTD is a message of the day with its setter
type MOTD struct {
	Setter  string
	Message string
}

func (m *MOTD) IsZero() bool {
	return m == nil || m.Message == ""
}

// LoadMOTD reads "setter%%message". A file without the separator is all
// message; a missing file is an empty MOTD.
func (f *Files) LoadMOTD() (*MOTD, error) {
	data, err := os.ReadFile(filepath.Join(f.dir, motdFile))
	if err != nil {
		if os.IsNotExist(err) {
			return &MOTD{}, nil
		}
		return nil, err
	}
	line := strings.TrimSpace(string(data))
	setter, message, ok := strings.Cut(line, "%%")
	if !ok {
		return &MOTD{Message: line}, nil
	}
	return &MOTD{Setter: setter, Message: message}, nil
}

func (f *Files) SaveMOTD(motd *MOTD) error {
	content := fmt.Sprintf("%s%%%%%s\n", motd.Setter, motd.Message)
	return os.WriteFile(filepath.Join(f.dir, motdFile), []byte(content), 0644)
}

// AddLog prepends a new log entry (keeping newest first in memory)
func AddLog(logs []string, entry string) []string {
	logs = append([]string{entry}, logs...)
	if len(logs) > maxEntries {
		logs = logs[:maxEntries]
	}
	return logs
}

// AddStat appends a new stat entry
func AddStat(stats []string, entry string) []string {
	stats = append(stats, entry)
	if len(stats) > maxEntries {
		stats = stats[1:]
	}
	return stats
}

// Search returns the entries containing term, case-insensitively, in order.
func Search(entries []string, term string) []string {
	term = strings.ToLower(term)
	var found []string
	for _, e := range entries {
		if strings.Contains(strings.ToLower(e), term) {
			found = append(found, e)
		}
	}
	return found
}

// readLines returns the non-empty lines of path, nothing if it is missing.
func readLines(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, err
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		if line := scanner.Text(); line != "" {
			lines = append(lines, line)
		}
	}
	return lines, scanner.Err()
}

func writeLines(path string, lines []string) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	w := bufio.NewWriter(file)
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return w.Flush()
}

func reverse(s []string) []string {
	result := make([]string, len(s))
	for i, v := range s {
		result[len(s)-1-i] = v
	}
	return result
}
