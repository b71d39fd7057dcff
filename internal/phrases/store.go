// Package phrases holds the saved-phrase list and persists it to a single
// named slot.
package phrases

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
)

// ErrDuplicateEntry is returned by Save when the text is already stored.
var ErrDuplicateEntry = errors.New("phrase already saved")

// ErrCorruptSlot is reported by Inspect; Load never returns it.
var ErrCorruptSlot = errors.New("corrupt phrase slot")

// Entry is one saved phrase. The JSON names match the browser slot format.
type Entry struct {
	Text        string `json:"mandarin" yaml:"text"`
	PhoneticKey string `json:"pinyin" yaml:"phonetic_key"`
}

// Slot is a single named blob of persisted state.
type Slot interface {
	// Read returns the slot contents; ok is false when nothing was stored yet.
	Read() (data []byte, ok bool, err error)
	Write(data []byte) error
}

// Store is the in-memory list mirrored to a Slot. It is not safe for
// concurrent use; one session owns it.
type Store struct {
	slot    Slot
	logger  *logrus.Logger
	entries []Entry
}

// Load reads the slot. Absent, unreadable or malformed state yields an empty
// store.
func Load(slot Slot, logger *logrus.Logger) *Store {
	s := &Store{slot: slot, logger: logger}
	data, ok, err := slot.Read()
	if err != nil {
		logger.Warnf("phrases: read slot: %v; starting empty", err)
		return s
	}
	if !ok || len(strings.TrimSpace(string(data))) == 0 {
		return s
	}
	entries, err := decode(data)
	if err != nil {
		logger.Warnf("phrases: corrupt slot: %v; starting empty", err)
		return s
	}
	s.entries = entries
	logger.Debugf("phrases: loaded %d entries", len(entries))
	return s
}

// Inspect reports how many entries slot holds without building a Store.
func Inspect(slot Slot) (int, error) {
	data, ok, err := slot.Read()
	if err != nil {
		return 0, err
	}
	if !ok || len(strings.TrimSpace(string(data))) == 0 {
		return 0, nil
	}
	entries, err := decode(data)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrCorruptSlot, err)
	}
	return len(entries), nil
}

func decode(data []byte) ([]Entry, error) {
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(entries))
	out := entries[:0]
	for _, e := range entries {
		if e.Text == "" {
			return nil, fmt.Errorf("entry without text")
		}
		if seen[e.Text] {
			continue
		}
		seen[e.Text] = true
		out = append(out, e)
	}
	return out, nil
}

// Save appends a new entry and persists the full list.
func (s *Store) Save(text, key string) error {
	if text == "" {
		return fmt.Errorf("phrase text must be non-empty")
	}
	if s.indexOf(text) >= 0 {
		return ErrDuplicateEntry
	}
	prev := s.entries
	s.entries = append(s.entries[:len(s.entries):len(s.entries)], Entry{Text: text, PhoneticKey: key})
	if err := s.flush(); err != nil {
		s.entries = prev
		return err
	}
	s.logger.Debugf("phrases: saved %q", text)
	return nil
}

// DeleteAt removes the entry shown at pos of view, which may be a filtered
// subset of the store. It reports false when the entry cannot be resolved.
func (s *Store) DeleteAt(pos int, view []Entry) (bool, error) {
	if pos < 0 || pos >= len(view) {
		return false, nil
	}
	idx := s.indexOf(view[pos].Text)
	if idx < 0 {
		return false, nil
	}
	prev := s.entries
	next := make([]Entry, 0, len(s.entries)-1)
	next = append(next, s.entries[:idx]...)
	next = append(next, s.entries[idx+1:]...)
	s.entries = next
	if err := s.flush(); err != nil {
		s.entries = prev
		return false, err
	}
	s.logger.Debugf("phrases: deleted %q", prev[idx].Text)
	return true, nil
}

// Import appends every entry not already stored, persisting once.
func (s *Store) Import(entries []Entry) (int, error) {
	prev := s.entries
	next := append([]Entry(nil), s.entries...)
	seen := make(map[string]bool, len(next))
	for _, e := range next {
		seen[e.Text] = true
	}
	added := 0
	for _, e := range entries {
		if e.Text == "" || seen[e.Text] {
			continue
		}
		seen[e.Text] = true
		next = append(next, e)
		added++
	}
	if added == 0 {
		return 0, nil
	}
	s.entries = next
	if err := s.flush(); err != nil {
		s.entries = prev
		return 0, err
	}
	return added, nil
}

// Count returns the total number of entries.
func (s *Store) Count() int {
	return len(s.entries)
}

// Entries returns a copy of all entries in insertion order.
func (s *Store) Entries() []Entry {
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Contains reports whether text is stored.
func (s *Store) Contains(text string) bool {
	return s.indexOf(text) >= 0
}

func (s *Store) indexOf(text string) int {
	for i, e := range s.entries {
		if e.Text == text {
			return i
		}
	}
	return -1
}

func (s *Store) flush() error {
	list := s.entries
	if list == nil {
		list = []Entry{}
	}
	data, err := json.Marshal(list)
	if err != nil {
		return err
	}
	if err := s.slot.Write(data); err != nil {
		return fmt.Errorf("persist phrases: %w", err)
	}
	return nil
}
