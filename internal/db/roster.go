package db

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/cfclient-project/cfclient/internal/events"
)

// RosterStore keeps the character list of each account.
type RosterStore struct {
	db *Database

	// pending collects one character list sequence.
	mu      sync.Mutex
	account string
	pending []events.CharacterInfo
}

// NewRosterStore creates a roster store on db.
func NewRosterStore(db *Database) *RosterStore {
	return &RosterStore{db: db}
}

// Replace stores characters as the complete roster of account.
func (s *RosterStore) Replace(account string, characters []events.CharacterInfo) error {
	now := time.Now().Unix()
	return s.db.Transaction(func(tx *sql.Tx) error {
		if _, err := tx.Exec(`DELETE FROM characters WHERE account = ?`, account); err != nil {
			return fmt.Errorf("failed to clear roster: %w", err)
		}
		for i, ch := range characters {
			_, err := tx.Exec(
				`INSERT OR REPLACE INTO characters
				 (account, name, class, race, level, face, face_num, party, map, position, updated_at)
				 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				account, ch.Name, ch.Class, ch.Race, ch.Level, ch.Face, ch.FaceNum, ch.Party, ch.Map, i, now,
			)
			if err != nil {
				return fmt.Errorf("failed to store character %s: %w", ch.Name, err)
			}
		}
		return nil
	})
}

// Characters returns the stored roster of account in server order.
func (s *RosterStore) Characters(account string) ([]events.CharacterInfo, error) {
	rows, err := s.db.Query(
		`SELECT name, class, race, level, face, face_num, party, map
		 FROM characters WHERE account = ? ORDER BY position`, account)
	if err != nil {
		return nil, fmt.Errorf("failed to query roster: %w", err)
	}
	defer rows.Close()

	characters := []events.CharacterInfo{}
	for rows.Next() {
		var ch events.CharacterInfo
		if err := rows.Scan(&ch.Name, &ch.Class, &ch.Race, &ch.Level, &ch.Face, &ch.FaceNum, &ch.Party, &ch.Map); err != nil {
			return nil, err
		}
		characters = append(characters, ch)
	}
	return characters, rows.Err()
}

// Accounts returns the accounts with a stored roster.
func (s *RosterStore) Accounts() ([]string, error) {
	rows, err := s.db.Query(`SELECT DISTINCT account FROM characters ORDER BY account`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	accounts := []string{}
	for rows.Next() {
		var a string
		if err := rows.Scan(&a); err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

// OnAccount is an events.HandlerFunc that follows character list sequences
// and stores each completed list. Lists of an unnamed account are ignored.
func (s *RosterStore) OnAccount(_ context.Context, ev events.Event) error {
	switch p := ev.Payload.(type) {
	case events.AccountListStart:
		s.mu.Lock()
		s.account = p.AccountName
		s.pending = s.pending[:0]
		s.mu.Unlock()
	case events.AccountCharacter:
		s.mu.Lock()
		s.pending = append(s.pending, p.Character)
		s.mu.Unlock()
	case events.AccountListEnd:
		s.mu.Lock()
		account := s.account
		characters := append([]events.CharacterInfo(nil), s.pending...)
		s.account, s.pending = "", s.pending[:0]
		s.mu.Unlock()

		if account == "" {
			return nil
		}
		return s.Replace(account, characters)
	}
	return nil
}
