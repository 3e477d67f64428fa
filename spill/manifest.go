package spill

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path"

	"github.com/soumenms2015/tuplex/types"
)

const (
	// ManifestFileName prefixes versioned manifest blobs.
	ManifestFileName = "MANIFEST"
	// CurrentFileName is the pointer blob naming the live manifest.
	CurrentFileName = "CURRENT"
	// CurrentVersion is the manifest format version written by Save.
	CurrentVersion = 1
)

// Manifest describes one spilled dataset: its schema, compression and
// the partition blobs in row order.
type Manifest struct {
	Version     int             `json:"version"`
	ID          uint64          `json:"id"`
	Type        string          `json:"type"` // row type descriptor
	Columns     []string        `json:"columns,omitempty"`
	Compression Compression     `json:"compression"`
	Partitions  []PartitionInfo `json:"partitions"`
	// ExceptionsPath names the blob holding non-conforming records,
	// empty when the dataset had none.
	ExceptionsPath string `json:"exceptions_path,omitempty"`
	NumExceptions  int    `json:"num_exceptions,omitempty"`
}

// PartitionInfo describes a single spilled partition blob.
type PartitionInfo struct {
	Path  string `json:"path"` // relative to the dataset prefix
	Rows  uint64 `json:"rows"`
	Bytes int64  `json:"bytes"` // compressed size
}

// Schema reconstructs the row schema from the manifest descriptor.
func (m *Manifest) Schema() (types.Schema, error) {
	row, err := types.ParseType(m.Type)
	if err != nil {
		return types.Schema{}, fmt.Errorf("spill: manifest type: %w", err)
	}
	return types.NewSchema(row, m.Columns)
}

// LoadManifest resolves the CURRENT pointer under prefix and reads the
// manifest it names.
func LoadManifest(ctx context.Context, store Store, prefix string) (*Manifest, error) {
	current, err := readBlob(ctx, store, path.Join(prefix, CurrentFileName))
	if err != nil {
		return nil, err
	}
	data, err := readBlob(ctx, store, path.Join(prefix, string(current)))
	if err != nil {
		return nil, err
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("spill: manifest: %w", err)
	}
	if m.Version != CurrentVersion {
		return nil, fmt.Errorf("spill: unsupported manifest version %d (expected %d)", m.Version, CurrentVersion)
	}
	return &m, nil
}

// SaveManifest writes a new manifest version under prefix and flips
// the CURRENT pointer to it. With a commit store the flip is a
// conditional write, so concurrent writers cannot clobber each other.
func SaveManifest(ctx context.Context, store Store, prefix string, m *Manifest) error {
	m.Version = CurrentVersion
	m.ID++

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}

	filename := fmt.Sprintf("%s-%06d.json", ManifestFileName, m.ID)
	if err := store.Put(ctx, path.Join(prefix, filename), data); err != nil {
		return err
	}
	return store.Put(ctx, path.Join(prefix, CurrentFileName), []byte(filename))
}

// readBlob reads a whole blob, zero-copy when the store supports it.
func readBlob(ctx context.Context, store Store, name string) ([]byte, error) {
	b, err := store.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	defer b.Close()

	if m, ok := b.(Mappable); ok {
		data, err := m.Bytes()
		if err == nil {
			// The mapping dies with Close, hand out a copy.
			out := make([]byte, len(data))
			copy(out, data)
			return out, nil
		}
	}

	out := make([]byte, b.Size())
	if _, err := io.ReadFull(io.NewSectionReader(b, 0, b.Size()), out); err != nil {
		return nil, err
	}
	return out, nil
}
