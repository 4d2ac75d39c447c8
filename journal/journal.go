// Copyright (c) 2026 TTBT Enterprises LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package journal records what a toolkit run did and persists it.
package journal

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/c2FmZQ/storage"
	"github.com/c2FmZQ/storage/crypto"
	"github.com/google/uuid"
	"github.com/ttbt-io/pagepilot/actions"
)

// Entry is one recorded operation step. Values typed into fields are never
// part of an entry.
type Entry struct {
	Seq     int       `json:"seq"`
	Time    time.Time `json:"time"`
	Op      string    `json:"op"`
	Target  string    `json:"target"`
	Outcome string    `json:"outcome"`
	Err     string    `json:"err,omitempty"`
}

// Run is the journal of one session.
type Run struct {
	ID      string  `json:"id"`
	Started int64   `json:"started"`
	Label   string  `json:"label,omitempty"`
	Entries []Entry `json:"entries"`
}

// Trace renders the entries one per line without timestamps, so two runs
// of the same flow compare equal.
func (r *Run) Trace() string {
	var b strings.Builder
	for _, e := range r.Entries {
		fmt.Fprintf(&b, "%03d %s %s %s", e.Seq, e.Op, e.Target, e.Outcome)
		if e.Err != "" {
			fmt.Fprintf(&b, " (%s)", e.Err)
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// Journal collects entries for one run. It implements actions.Recorder and
// is safe for concurrent use.
type Journal struct {
	mu  sync.Mutex
	run Run
	now func() time.Time
}

var _ actions.Recorder = (*Journal)(nil)

// New starts a journal with a fresh run ID.
func New(label string) *Journal {
	return &Journal{
		run: Run{
			ID:      uuid.New().String(),
			Started: time.Now().UnixNano(),
			Label:   label,
			Entries: make([]Entry, 0),
		},
		now: time.Now,
	}
}

// ID returns the run ID.
func (j *Journal) ID() string {
	return j.run.ID
}

func (j *Journal) Record(op, target string, outcome actions.Outcome, err error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	e := Entry{
		Seq:     len(j.run.Entries) + 1,
		Time:    j.now(),
		Op:      op,
		Target:  target,
		Outcome: string(outcome),
	}
	if err != nil {
		e.Err = err.Error()
	}
	j.run.Entries = append(j.run.Entries, e)
}

// Snapshot returns a copy of the run so far.
func (j *Journal) Snapshot() *Run {
	j.mu.Lock()
	defer j.mu.Unlock()
	r := j.run
	r.Entries = append([]Entry(nil), j.run.Entries...)
	return &r
}

// Store persists runs under <dir>/runs.
type Store struct {
	DataDir string
	storage *storage.Storage
}

// NewStore creates a Store on top of s, which must be rooted at dataDir.
func NewStore(dataDir string, s *storage.Storage) *Store {
	return &Store{
		DataDir: dataDir,
		storage: s,
	}
}

func runFile(id string) string {
	return filepath.Join("runs", id+".json")
}

// Save writes the journal's current run.
func (s *Store) Save(j *Journal) error {
	r := j.Snapshot()
	if err := uuid.Validate(r.ID); err != nil {
		return fmt.Errorf("invalid run id %q: %w", r.ID, err)
	}
	if err := os.MkdirAll(filepath.Join(s.DataDir, "runs"), 0755); err != nil {
		return fmt.Errorf("os.MkdirAll: %w", err)
	}
	if err := s.storage.SaveDataFile(runFile(r.ID), r); err != nil {
		return fmt.Errorf("storage.SaveDataFile: %w", err)
	}
	return nil
}

// Load reads a run by ID. It returns os.ErrNotExist for unknown runs.
func (s *Store) Load(id string) (*Run, error) {
	if err := uuid.Validate(id); err != nil {
		return nil, fmt.Errorf("invalid run id %q: %w", id, err)
	}
	var r Run
	if err := s.storage.ReadDataFile(runFile(id), &r); err != nil {
		if errors.Is(err, fs.ErrNotExist) || os.IsNotExist(err) {
			return nil, os.ErrNotExist
		}
		return nil, fmt.Errorf("ReadDataFile: %w", err)
	}
	return &r, nil
}

// List returns the IDs of all stored runs, oldest first.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(s.DataDir, "runs"))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("os.ReadDir: %w", err)
	}
	type item struct {
		id  string
		mod time.Time
	}
	var items []item
	for _, e := range entries {
		id, ok := strings.CutSuffix(e.Name(), ".json")
		if !ok || e.IsDir() || uuid.Validate(id) != nil {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		items = append(items, item{id: id, mod: info.ModTime()})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].mod.Before(items[j].mod) })
	ids := make([]string, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.id)
	}
	return ids, nil
}

// OpenStorage opens the storage rooted at dataDir. With a passphrase the
// data is encrypted with a master key kept in dataDir/master.key, created
// on first use. Without one it refuses to open a directory that already
// holds a master key.
func OpenStorage(dataDir, passphrase string) (*storage.Storage, error) {
	keyFile := filepath.Join(dataDir, "master.key")
	if passphrase == "" {
		if _, err := os.Stat(keyFile); err == nil {
			return nil, fmt.Errorf("%s exists but no passphrase was provided, refusing to read encrypted data in unencrypted mode", keyFile)
		}
		log.Println("Warning: No journal passphrase provided. Journals will be stored UNENCRYPTED.")
		return storage.New(dataDir, nil), nil
	}

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("os.MkdirAll: %w", err)
	}
	masterKey, err := crypto.ReadMasterKey([]byte(passphrase), keyFile)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read master key: %w", err)
		}
		log.Println("Initializing new master encryption key...")
		if masterKey, err = crypto.CreateMasterKey(); err != nil {
			return nil, fmt.Errorf("failed to create master key: %w", err)
		}
		if err := masterKey.Save([]byte(passphrase), keyFile); err != nil {
			return nil, fmt.Errorf("failed to save master key: %w", err)
		}
	}
	s := storage.New(dataDir, masterKey)
	s.EnableCompression(true)
	return s, nil
}
