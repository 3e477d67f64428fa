package spill

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"path"

	"golang.org/x/sync/errgroup"

	"github.com/soumenms2015/tuplex"
	"github.com/soumenms2015/tuplex/codec"
	"github.com/soumenms2015/tuplex/partition"
	"github.com/soumenms2015/tuplex/resource"
	"github.com/soumenms2015/tuplex/transcode"
)

// ErrErrorDataset is returned when asked to spill a failed conversion.
var ErrErrorDataset = errors.New("spill: refusing to spill an error dataset")

// SpillerOptions configure a Spiller.
type SpillerOptions struct {
	// Compression applied to partition images. Defaults to LZ4.
	Compression Compression

	// Controller bounds concurrent uploads and I/O bandwidth. Nil
	// means unbounded.
	Controller *resource.Controller

	// Logger receives spill diagnostics. Nil means no output.
	Logger *slog.Logger
}

// Spiller moves datasets between memory and a blob store.
type Spiller struct {
	store Store
	opts  SpillerOptions
}

// NewSpiller creates a Spiller on top of store.
func NewSpiller(store Store, optFns ...func(*SpillerOptions)) *Spiller {
	opts := SpillerOptions{Compression: CompressionLZ4}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	return &Spiller{store: store, opts: opts}
}

// Spill writes all partitions of ds under prefix, one compressed blob
// per partition, then commits a manifest. Partitions are uploaded
// concurrently; the manifest is only committed once every blob landed.
// The dataset stays usable afterwards.
func (s *Spiller) Spill(ctx context.Context, ds *tuplex.Dataset, prefix string) (*Manifest, error) {
	if ds.IsError() {
		return nil, fmt.Errorf("%w: %w", ErrErrorDataset, ds.Err())
	}

	parts := ds.Partitions()
	infos := make([]PartitionInfo, len(parts))

	g, gctx := errgroup.WithContext(ctx)
	for i, p := range parts {
		g.Go(func() error {
			if err := s.opts.Controller.AcquireWorker(gctx); err != nil {
				return err
			}
			defer s.opts.Controller.ReleaseWorker()

			block, err := compressBlock(p.Bytes(), s.opts.Compression)
			if err != nil {
				return err
			}
			if err := s.opts.Controller.AcquireIO(gctx, len(block)); err != nil {
				return err
			}
			name := fmt.Sprintf("part-%06d.bin", i)
			if err := s.store.Put(gctx, path.Join(prefix, name), block); err != nil {
				return err
			}
			infos[i] = PartitionInfo{Path: name, Rows: p.NumRows(), Bytes: int64(len(block))}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	m := &Manifest{
		Type:        ds.Schema().Row.Key(),
		Columns:     ds.Columns(),
		Compression: s.opts.Compression,
		Partitions:  infos,
	}

	if exc := ds.Exceptions(); exc.Len() > 0 {
		name := "exceptions.bin"
		data := encodeExceptions(exc)
		block, err := compressBlock(data, s.opts.Compression)
		if err != nil {
			return nil, err
		}
		if err := s.store.Put(ctx, path.Join(prefix, name), block); err != nil {
			return nil, err
		}
		m.ExceptionsPath = name
		m.NumExceptions = exc.Len()
	}

	if err := SaveManifest(ctx, s.store, prefix, m); err != nil {
		return nil, err
	}
	s.opts.Logger.Info("dataset spilled",
		slog.String("prefix", prefix),
		slog.Int("partitions", len(infos)),
		slog.Int("exceptions", m.NumExceptions),
	)
	return m, nil
}

// Load reads the dataset spilled under prefix back into partitions
// allocated from driver.
func (s *Spiller) Load(ctx context.Context, prefix string, driver *partition.Driver) (*tuplex.Dataset, error) {
	m, err := LoadManifest(ctx, s.store, prefix)
	if err != nil {
		return nil, err
	}
	schema, err := m.Schema()
	if err != nil {
		return nil, err
	}

	parts := make([]*partition.Partition, len(m.Partitions))
	g, gctx := errgroup.WithContext(ctx)
	for i, info := range m.Partitions {
		g.Go(func() error {
			if err := s.opts.Controller.AcquireWorker(gctx); err != nil {
				return err
			}
			defer s.opts.Controller.ReleaseWorker()

			if err := s.opts.Controller.AcquireIO(gctx, int(info.Bytes)); err != nil {
				return err
			}
			block, err := readBlob(gctx, s.store, path.Join(prefix, info.Path))
			if err != nil {
				return err
			}
			image, err := decompressBlock(block, m.Compression)
			if err != nil {
				return err
			}
			p, err := driver.FromBytes(gctx, image, schema)
			if err != nil {
				return err
			}
			if p.NumRows() != info.Rows {
				p.Release()
				return fmt.Errorf("spill: partition %s holds %d rows, manifest says %d", info.Path, p.NumRows(), info.Rows)
			}
			parts[i] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		for _, p := range parts {
			if p != nil {
				p.Release()
			}
		}
		return nil, err
	}

	exc := transcode.NewExceptions()
	if m.ExceptionsPath != "" {
		block, err := readBlob(ctx, s.store, path.Join(prefix, m.ExceptionsPath))
		if err != nil {
			return nil, err
		}
		data, err := decompressBlock(block, m.Compression)
		if err != nil {
			return nil, err
		}
		if exc, err = decodeExceptions(data); err != nil {
			return nil, err
		}
	}

	return tuplex.FromPartitions(schema, parts, exc), nil
}

// encodeExceptions packs exceptions as repeated (uvarint index,
// self-describing value) pairs.
func encodeExceptions(exc *transcode.Exceptions) []byte {
	var buf []byte
	for _, e := range exc.Records() {
		buf = binary.AppendUvarint(buf, e.Index)
		buf = codec.AppendValue(buf, e.Record)
	}
	return buf
}

func decodeExceptions(data []byte) (*transcode.Exceptions, error) {
	exc := transcode.NewExceptions()
	for len(data) > 0 {
		index, n := binary.Uvarint(data)
		if n <= 0 {
			return nil, errors.New("spill: corrupt exception index")
		}
		v, rest, err := codec.ParseValue(data[n:])
		if err != nil {
			return nil, err
		}
		exc.Add(index, v)
		data = rest
	}
	return exc, nil
}
