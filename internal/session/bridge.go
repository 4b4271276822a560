package session

import (
	"encoding/json"
	"fmt"
)

// Wizard session keys. Names are inherited from the service's web
// client so session dumps stay comparable across the two clients.
const (
	KeyTemplateFile = "templateFile"
	KeyPlaceholders = "placeholders"
	KeyCSVFile      = "csvFile"
	KeyColumns      = "columns"
)

// authKeys are the auth artifacts cleared on re-authentication. The
// set is fixed; a wizard reset must not touch these and vice versa.
var authKeys = []string{
	"next-auth.callbackUrl",
	"next-auth.session-token",
	"__Secure-next-auth.session-token",
}

// Bridge mediates between the wizard and the session store. It owns
// the four wizard keys and the auth artifact set.
type Bridge struct {
	storage Storage
}

// NewBridge wraps storage.
func NewBridge(storage Storage) *Bridge {
	return &Bridge{storage: storage}
}

// SaveTemplate persists the durable template identifier and its
// placeholder list.
func (b *Bridge) SaveTemplate(name string, placeholders []string) error {
	if err := b.storage.Set(KeyTemplateFile, name); err != nil {
		return err
	}
	data, err := json.Marshal(placeholders)
	if err != nil {
		return fmt.Errorf("encode placeholders: %w", err)
	}
	return b.storage.Set(KeyPlaceholders, string(data))
}

// SaveCSV persists the durable data-file identifier and its column list.
func (b *Bridge) SaveCSV(name string, columns []string) error {
	if err := b.storage.Set(KeyCSVFile, name); err != nil {
		return err
	}
	data, err := json.Marshal(columns)
	if err != nil {
		return fmt.Errorf("encode columns: %w", err)
	}
	return b.storage.Set(KeyColumns, string(data))
}

// Snapshot is the persisted slice of a wizard session.
type Snapshot struct {
	TemplateName string
	Placeholders []string
	CSVName      string
	Columns      []string
}

// HasSession reports whether any wizard key is persisted.
func (s Snapshot) HasSession() bool {
	return s.TemplateName != "" || s.CSVName != ""
}

// Resume loads the persisted handles. Corrupt JSON lists are treated
// as absent rather than failing the whole resume.
func (b *Bridge) Resume() (Snapshot, error) {
	var snap Snapshot
	var err error

	if snap.TemplateName, _, err = b.storage.Get(KeyTemplateFile); err != nil {
		return Snapshot{}, err
	}
	if snap.CSVName, _, err = b.storage.Get(KeyCSVFile); err != nil {
		return Snapshot{}, err
	}
	snap.Placeholders = b.stringList(KeyPlaceholders)
	snap.Columns = b.stringList(KeyColumns)
	return snap, nil
}

func (b *Bridge) stringList(key string) []string {
	raw, ok, err := b.storage.Get(key)
	if err != nil || !ok {
		return nil
	}
	var list []string
	if json.Unmarshal([]byte(raw), &list) != nil {
		return nil
	}
	return list
}

// Clear removes the four wizard keys and nothing else.
func (b *Bridge) Clear() error {
	for _, key := range []string{KeyTemplateFile, KeyPlaceholders, KeyCSVFile, KeyColumns} {
		if err := b.storage.Delete(key); err != nil {
			return err
		}
	}
	return nil
}

// ResetAuthTokens removes exactly the auth artifact keys, leaving the
// wizard keys alone.
func (b *Bridge) ResetAuthTokens() error {
	for _, key := range authKeys {
		if err := b.storage.Delete(key); err != nil {
			return err
		}
	}
	return nil
}

// RecordSignIn stores a marker under the session-token artifact so a
// later reset has something to clear.
func (b *Bridge) RecordSignIn(email string) error {
	return b.storage.Set("next-auth.session-token", email)
}
