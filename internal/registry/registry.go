package registry

import (
	"encoding/json"
	"os"
	"sync"
	"time"

	"sintesi/internal/anchor"
	"sintesi/internal/errors"
)

// MapRegistry is the in-memory working copy of the registry file. It is
// safe for concurrent use; fix workers update entries in parallel.
type MapRegistry struct {
	store Store

	mu       sync.Mutex
	version  string
	entries  []MapEntry
	byID     map[string]int
	byRef    map[string]int
	modified bool
}

// Load reads the registry from the store. An absent backing file yields
// a fresh empty registry; a malformed one is fatal.
func Load(store Store) (*MapRegistry, error) {
	r := &MapRegistry{
		store:   store,
		version: CurrentVersion,
		byID:    make(map[string]int),
		byRef:   make(map[string]int),
	}

	data, err := store.Read()
	if err != nil {
		if os.IsNotExist(err) {
			return r, nil
		}
		return nil, errors.New(errors.RegistryError, "failed to read registry", err)
	}

	var file Registry
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, errors.New(errors.RegistryError,
			"registry file is malformed, refusing to overwrite "+store.Path(), err)
	}
	if file.Version == "" {
		return nil, errors.Newf(errors.RegistryError,
			"registry file %s has no version field", store.Path())
	}

	r.version = file.Version
	r.entries = file.Entries
	for i, e := range r.entries {
		if e.ID == "" {
			return nil, errors.Newf(errors.RegistryError,
				"registry entry %d has an empty id", i)
		}
		if _, dup := r.byID[e.ID]; dup {
			return nil, errors.Newf(errors.RegistryError,
				"registry contains duplicate id %q", e.ID)
		}
		r.byID[e.ID] = i
		r.byRef[e.CodeRef.String()] = i
	}
	return r, nil
}

// Len returns the number of entries.
func (r *MapRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Entries returns a copy of all entries in insertion order.
func (r *MapRegistry) Entries() []MapEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]MapEntry, len(r.entries))
	copy(out, r.entries)
	return out
}

// GetByID returns the entry with the given id, or false when absent.
func (r *MapRegistry) GetByID(id string) (MapEntry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i, ok := r.byID[id]
	if !ok {
		return MapEntry{}, false
	}
	return r.entries[i], true
}

// GetByCodeRef returns the entry bound to the given code reference.
func (r *MapRegistry) GetByCodeRef(ref anchor.CodeRef) (MapEntry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i, ok := r.byRef[ref.String()]
	if !ok {
		return MapEntry{}, false
	}
	return r.entries[i], true
}

// GetByDocFile returns all entries anchored in the given documentation
// file, in insertion order.
func (r *MapRegistry) GetByDocFile(filePath string) []MapEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []MapEntry
	for _, e := range r.entries {
		if e.DocRef.FilePath == filePath {
			out = append(out, e)
		}
	}
	return out
}

// Add appends a new entry. The id must be unique.
func (r *MapRegistry) Add(entry MapEntry) error {
	if entry.ID == "" {
		return errors.Newf(errors.RegistryError, "cannot add entry with empty id")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.byID[entry.ID]; dup {
		return errors.Newf(errors.RegistryError, "duplicate entry id %q", entry.ID)
	}
	if entry.LastUpdated == 0 {
		entry.LastUpdated = time.Now().UnixMilli()
	}
	r.entries = append(r.entries, entry)
	i := len(r.entries) - 1
	r.byID[entry.ID] = i
	r.byRef[entry.CodeRef.String()] = i
	r.modified = true
	return nil
}

// Update applies a partial update to the entry with the given id and
// stamps LastUpdated. The id itself is immutable.
func (r *MapRegistry) Update(id string, update EntryUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	i, ok := r.byID[id]
	if !ok {
		return errors.Newf(errors.RegistryError, "no entry with id %q", id)
	}

	e := &r.entries[i]
	if update.CodeRef != nil {
		delete(r.byRef, e.CodeRef.String())
		e.CodeRef = *update.CodeRef
		r.byRef[e.CodeRef.String()] = i
	}
	if update.CodeSignatureHash != nil {
		e.CodeSignatureHash = *update.CodeSignatureHash
	}
	if update.CodeSignatureText != nil {
		e.CodeSignatureText = *update.CodeSignatureText
	}
	if update.DocRef != nil {
		e.DocRef = *update.DocRef
	}
	if update.OriginalMarkdownContent != nil {
		e.OriginalMarkdownContent = *update.OriginalMarkdownContent
	}
	e.LastUpdated = time.Now().UnixMilli()
	r.modified = true
	return nil
}

// Remove deletes the entry with the given id. Removing an unknown id is
// a no-op and reports false.
func (r *MapRegistry) Remove(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	i, ok := r.byID[id]
	if !ok {
		return false
	}
	removed := r.entries[i]
	r.entries = append(r.entries[:i], r.entries[i+1:]...)
	delete(r.byID, id)
	delete(r.byRef, removed.CodeRef.String())
	// Reindex entries shifted left by the removal.
	for j := i; j < len(r.entries); j++ {
		r.byID[r.entries[j].ID] = j
		r.byRef[r.entries[j].CodeRef.String()] = j
	}
	r.modified = true
	return true
}

// HasDrift compares the stored signature hash for id against currentHash.
// Any difference, including casing, counts as drift.
func (r *MapRegistry) HasDrift(id, currentHash string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i, ok := r.byID[id]
	if !ok {
		return false, errors.Newf(errors.RegistryError, "no entry with id %q", id)
	}
	return r.entries[i].CodeSignatureHash != currentHash, nil
}

// Modified reports whether the registry changed since Load or the last Save.
func (r *MapRegistry) Modified() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.modified
}

// Save writes the registry back through the store as indented JSON.
func (r *MapRegistry) Save() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	file := Registry{Version: r.version, Entries: r.entries}
	if file.Entries == nil {
		file.Entries = []MapEntry{}
	}
	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return errors.New(errors.RegistryError, "failed to encode registry", err)
	}
	if err := r.store.Write(append(data, '\n')); err != nil {
		return err
	}
	r.modified = false
	return nil
}
