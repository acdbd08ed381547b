package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	v1 "github.com/google/go-containerregistry/pkg/v1"
	"github.com/moby/sys/atomicwriter"
)

// File is one cached weight or config file.
type File struct {
	// Name is the file name inside the source repository.
	Name      string  `json:"name"`
	Digest    v1.Hash `json:"digest"`
	Size      int64   `json:"size"`
	MediaType string  `json:"mediaType,omitempty"`
}

// Entry records the files fetched for one architecture from one source.
type Entry struct {
	Key       string    `json:"key"`
	Source    string    `json:"source"`
	Reference string    `json:"reference"`
	Files     []File    `json:"files"`
	Created   time.Time `json:"created"`
}

// TotalSize sums the sizes of the entry's files.
func (e Entry) TotalSize() int64 {
	var total int64
	for _, f := range e.Files {
		total += f.Size
	}
	return total
}

type index struct {
	Entries map[string]Entry `json:"entries"`
}

// Key identifies cached weights: "<source>/<architecture>@<weights>".
func Key(source, architecture, weights string) string {
	return fmt.Sprintf("%s/%s@%s", source, architecture, weights)
}

func (s *LocalStore) readIndex() (index, error) {
	idx := index{Entries: map[string]Entry{}}
	data, err := os.ReadFile(s.indexPath())
	if errors.Is(err, os.ErrNotExist) {
		return idx, nil
	}
	if err != nil {
		return idx, fmt.Errorf("read index: %w", err)
	}
	if err := json.Unmarshal(data, &idx); err != nil {
		return idx, fmt.Errorf("parse index: %w", err)
	}
	if idx.Entries == nil {
		idx.Entries = map[string]Entry{}
	}
	return idx, nil
}

func (s *LocalStore) writeIndex(idx index) error {
	data, err := json.MarshalIndent(idx, "", "  ")
	if err != nil {
		return fmt.Errorf("encode index: %w", err)
	}
	if err := atomicwriter.WriteFile(s.indexPath(), data, 0o644); err != nil {
		return fmt.Errorf("write index: %w", err)
	}
	return nil
}

// Lookup returns the entry recorded under key. An entry whose blobs are no
// longer all present counts as a miss.
func (s *LocalStore) Lookup(key string) (Entry, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, err := s.readIndex()
	if err != nil {
		return Entry{}, false, err
	}
	entry, ok := idx.Entries[key]
	if !ok {
		return Entry{}, false, nil
	}
	for _, f := range entry.Files {
		has, err := s.HasBlob(f.Digest)
		if err != nil || !has {
			return Entry{}, false, nil
		}
	}
	return entry, true, nil
}

// Record stores entry under entry.Key, replacing any previous one.
func (s *LocalStore) Record(entry Entry) error {
	if entry.Key == "" {
		return errors.New("index entry has no key")
	}
	for _, f := range entry.Files {
		if has, err := s.HasBlob(f.Digest); err != nil || !has {
			return fmt.Errorf("record %s: %w: %s", entry.Key, ErrBlobNotFound, f.Digest)
		}
	}
	if entry.Created.IsZero() {
		entry.Created = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx, err := s.readIndex()
	if err != nil {
		return err
	}
	idx.Entries[entry.Key] = entry
	return s.writeIndex(idx)
}

// Entries returns all recorded entries sorted by key.
func (s *LocalStore) Entries() ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, err := s.readIndex()
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, 0, len(idx.Entries))
	for _, e := range idx.Entries {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })
	return entries, nil
}

// Paths resolves the on-disk path of every file in entry, keyed by file name.
func (s *LocalStore) Paths(entry Entry) (map[string]string, error) {
	paths := make(map[string]string, len(entry.Files))
	for _, f := range entry.Files {
		p, err := s.BlobPath(f.Digest)
		if err != nil {
			return nil, fmt.Errorf("resolve %s: %w", f.Name, err)
		}
		paths[f.Name] = p
	}
	return paths, nil
}
