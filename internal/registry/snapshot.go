package registry

import (
	"encoding/json"
	"io"
	"os"

	"github.com/klauspost/compress/zstd"

	"sintesi/internal/errors"
)

// Export writes a zstd-compressed snapshot of the registry to w. The
// payload is the same JSON shape as the backing file.
func (r *MapRegistry) Export(w io.Writer) error {
	r.mu.Lock()
	file := Registry{Version: r.version, Entries: r.entries}
	if file.Entries == nil {
		file.Entries = []MapEntry{}
	}
	data, err := json.Marshal(file)
	r.mu.Unlock()
	if err != nil {
		return errors.New(errors.RegistryError, "failed to encode snapshot", err)
	}

	enc, err := zstd.NewWriter(w)
	if err != nil {
		return errors.New(errors.RegistryError, "failed to create compressor", err)
	}
	if _, err := enc.Write(data); err != nil {
		enc.Close()
		return errors.New(errors.RegistryError, "failed to write snapshot", err)
	}
	return enc.Close()
}

// ExportFile writes a snapshot to the given path.
func (r *MapRegistry) ExportFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.New(errors.RegistryError, "failed to create snapshot file", err)
	}
	defer f.Close()
	if err := r.Export(f); err != nil {
		return err
	}
	return f.Close()
}

// Import reads a zstd-compressed snapshot and replaces the registry's
// contents. The current state is kept when the snapshot is unreadable.
func (r *MapRegistry) Import(src io.Reader) error {
	dec, err := zstd.NewReader(src)
	if err != nil {
		return errors.New(errors.RegistryError, "failed to create decompressor", err)
	}
	defer dec.Close()

	data, err := io.ReadAll(dec)
	if err != nil {
		return errors.New(errors.RegistryError, "failed to read snapshot", err)
	}

	var file Registry
	if err := json.Unmarshal(data, &file); err != nil {
		return errors.New(errors.RegistryError, "snapshot is malformed", err)
	}
	if file.Version == "" {
		return errors.Newf(errors.RegistryError, "snapshot has no version field")
	}

	byID := make(map[string]int, len(file.Entries))
	byRef := make(map[string]int, len(file.Entries))
	for i, e := range file.Entries {
		if _, dup := byID[e.ID]; dup {
			return errors.Newf(errors.RegistryError, "snapshot contains duplicate id %q", e.ID)
		}
		byID[e.ID] = i
		byRef[e.CodeRef.String()] = i
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.version = file.Version
	r.entries = file.Entries
	r.byID = byID
	r.byRef = byRef
	r.modified = true
	return nil
}

// ImportFile reads a snapshot from the given path.
func (r *MapRegistry) ImportFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.New(errors.RegistryError, "failed to open snapshot file", err)
	}
	defer f.Close()
	return r.Import(f)
}
