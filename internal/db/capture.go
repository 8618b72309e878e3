package db

import (
	"context"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/cfclient-project/cfclient/internal/events"
)

// CapturedPacket is one journaled raw packet.
type CapturedPacket struct {
	ID         int64     `json:"id"`
	CapturedAt time.Time `json:"captured_at"`
	Outbound   bool      `json:"outbound"`
	Command    string    `json:"command"`
	Category   string    `json:"category"`
	Length     int       `json:"length"`
	Args       string    `json:"args"`
}

// CaptureStore journals raw packets.
type CaptureStore struct {
	db          *Database
	maxArgBytes int
}

// NewCaptureStore creates a capture journal on db. Argument bytes beyond
// maxArgBytes are not stored; Length still records the full size.
func NewCaptureStore(db *Database, maxArgBytes int) *CaptureStore {
	return &CaptureStore{db: db, maxArgBytes: maxArgBytes}
}

// Record stores one raw packet view.
func (s *CaptureStore) Record(p events.RawPacketPayload) error {
	args := p.Args
	if s.maxArgBytes > 0 && len(args) > s.maxArgBytes {
		args = args[:s.maxArgBytes]
	}

	_, err := s.db.Exec(
		`INSERT INTO packets (captured_at, outbound, command, category, length, args)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		time.Now().UnixNano(), p.Outbound, p.Command, p.Category.String(), len(p.Args), hex.EncodeToString(args),
	)
	if err != nil {
		return fmt.Errorf("failed to record packet %s: %w", p.Command, err)
	}
	return nil
}

// OnRawPacket is an events.HandlerFunc journaling raw packet events.
func (s *CaptureStore) OnRawPacket(_ context.Context, ev events.Event) error {
	p, ok := ev.Payload.(events.RawPacketPayload)
	if !ok {
		return nil
	}
	return s.Record(p)
}

// Recent returns up to limit packets, newest first. A non-empty command
// restricts the result to that command.
func (s *CaptureStore) Recent(limit int, command string) ([]CapturedPacket, error) {
	query := `SELECT id, captured_at, outbound, command, category, length, args FROM packets`
	args := []interface{}{}
	if command != "" {
		query += ` WHERE command = ?`
		args = append(args, command)
	}
	query += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query packets: %w", err)
	}
	defer rows.Close()

	packets := []CapturedPacket{}
	for rows.Next() {
		var (
			p  CapturedPacket
			ts int64
		)
		if err := rows.Scan(&p.ID, &ts, &p.Outbound, &p.Command, &p.Category, &p.Length, &p.Args); err != nil {
			return nil, err
		}
		p.CapturedAt = time.Unix(0, ts)
		packets = append(packets, p)
	}
	return packets, rows.Err()
}

// Count returns the number of journaled packets.
func (s *CaptureStore) Count() (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM packets`).Scan(&n)
	return n, err
}

// Prune deletes packets captured before cutoff and returns how many were
// removed.
func (s *CaptureStore) Prune(cutoff time.Time) (int64, error) {
	res, err := s.db.Exec(`DELETE FROM packets WHERE captured_at < ?`, cutoff.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("failed to prune packets: %w", err)
	}
	n, _ := res.RowsAffected()
	if n > 0 {
		log.Debug().Int64("deleted", n).Time("cutoff", cutoff).Msg("pruned packet capture")
	}
	return n, nil
}
