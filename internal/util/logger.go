// Package util provides logging and host helpers shared by the client's
// components.
package util

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const logPrefix = "cfclient_"

// LogConfig holds configuration for the logging system.
type LogConfig struct {
	Level      string `json:"level"`
	Directory  string `json:"directory"`
	MaxSizeMB  int    `json:"max_size_mb"`
	MaxBackups int    `json:"max_backups"`
	Console    bool   `json:"console"`
}

// DefaultLogConfig returns the default logging configuration.
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:      "info",
		Directory:  "logs",
		MaxSizeMB:  10,
		MaxBackups: 5,
		Console:    true,
	}
}

// InitLogger replaces the global logger. Entries go to a JSON file in
// cfg.Directory and, with cfg.Console, to a human-readable stderr writer so
// that they do not mix with CLI output.
func InitLogger(cfg LogConfig) error {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339Nano

	if err := os.MkdirAll(cfg.Directory, 0755); err != nil {
		return fmt.Errorf("failed to create log directory %s: %w", cfg.Directory, err)
	}

	path := logFilePath(cfg.Directory, time.Now(), int64(cfg.MaxSizeMB)*1024*1024)
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file %s: %w", path, err)
	}

	writers := []io.Writer{file}
	if cfg.Console {
		writers = append(writers, zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05.000"})
	}

	log.Logger = zerolog.New(zerolog.MultiLevelWriter(writers...)).
		With().
		Timestamp().
		Str("app", "cfclient").
		Caller().
		Logger()

	log.Info().
		Str("level", level.String()).
		Str("log_file", path).
		Msg("logger initialized")

	go pruneLogs(cfg.Directory, cfg.MaxBackups)
	return nil
}

// logFilePath returns the file for today's entries. When the current file
// has grown beyond maxSize a numbered sibling is used instead; maxSize <= 0
// disables the check.
func logFilePath(dir string, now time.Time, maxSize int64) string {
	base := logPrefix + now.Format("2006-01-02")
	path := filepath.Join(dir, base+".log")
	for n := 1; maxSize > 0; n++ {
		info, err := os.Stat(path)
		if err != nil || info.Size() < maxSize {
			break
		}
		path = filepath.Join(dir, fmt.Sprintf("%s.%d.log", base, n))
	}
	return path
}

// pruneLogs keeps the newest maxBackups log files of the client.
func pruneLogs(dir string, maxBackups int) {
	if maxBackups <= 0 {
		return
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}

	type logFile struct {
		path    string
		modTime time.Time
	}
	var files []logFile
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), logPrefix) || filepath.Ext(e.Name()) != ".log" {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		files = append(files, logFile{filepath.Join(dir, e.Name()), info.ModTime()})
	}
	if len(files) <= maxBackups {
		return
	}

	sort.Slice(files, func(i, j int) bool { return files[i].modTime.After(files[j].modTime) })
	for _, f := range files[maxBackups:] {
		if err := os.Remove(f.path); err == nil {
			log.Debug().Str("file", f.path).Msg("removed old log file")
		}
	}
}

// ComponentLogger creates a logger with a component name field.
func ComponentLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// maxDumpBytes bounds the frame bytes included in a log line.
const maxDumpBytes = 512

// HexDump formats data as a hex dump for log output. Data beyond
// maxDumpBytes is cut off and the omitted length noted.
func HexDump(data []byte) string {
	if len(data) <= maxDumpBytes {
		return hex.Dump(data)
	}
	return fmt.Sprintf("%s... %d more bytes\n", hex.Dump(data[:maxDumpBytes]), len(data)-maxDumpBytes)
}
