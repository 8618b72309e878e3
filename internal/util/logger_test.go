package util

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestHexDump(t *testing.T) {
	short := HexDump([]byte("tick \x00\x00\x00\x01"))
	if !strings.Contains(short, "74 69 63 6b 20 00 00 00  01") {
		t.Fatalf("dump = %q", short)
	}

	long := HexDump(make([]byte, maxDumpBytes+10))
	if !strings.HasSuffix(long, "... 10 more bytes\n") {
		t.Fatalf("dump tail = %q", long[len(long)-40:])
	}
}

func TestLogFilePathRollsOverLargeFiles(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2024, 3, 9, 12, 0, 0, 0, time.UTC)

	first := filepath.Join(dir, "cfclient_2024-03-09.log")
	if got := logFilePath(dir, now, 8); got != first {
		t.Fatalf("path = %q, want %q", got, first)
	}

	if err := os.WriteFile(first, []byte("0123456789"), 0644); err != nil {
		t.Fatal(err)
	}
	second := filepath.Join(dir, "cfclient_2024-03-09.1.log")
	if got := logFilePath(dir, now, 8); got != second {
		t.Fatalf("path = %q, want %q", got, second)
	}
	if got := logFilePath(dir, now, 0); got != first {
		t.Fatalf("unbounded path = %q, want %q", got, first)
	}
}

func TestPruneLogsKeepsNewest(t *testing.T) {
	dir := t.TempDir()
	base := time.Now().Add(-time.Hour)
	names := []string{"cfclient_2024-01-01.log", "cfclient_2024-01-02.log", "cfclient_2024-01-03.log", "other.log"}
	for i, name := range names {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, nil, 0644); err != nil {
			t.Fatal(err)
		}
		mod := base.Add(time.Duration(i) * time.Minute)
		if err := os.Chtimes(path, mod, mod); err != nil {
			t.Fatal(err)
		}
	}

	pruneLogs(dir, 2)

	for name, want := range map[string]bool{
		"cfclient_2024-01-01.log": false,
		"cfclient_2024-01-02.log": true,
		"cfclient_2024-01-03.log": true,
		"other.log":               true,
	} {
		if got := FileExists(filepath.Join(dir, name)); got != want {
			t.Errorf("%s exists = %v, want %v", name, got, want)
		}
	}
}
