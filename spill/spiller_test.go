package spill

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soumenms2015/tuplex"
	"github.com/soumenms2015/tuplex/partition"
	"github.com/soumenms2015/tuplex/record"
)

// makeDataset converts a small mixed batch: four rows and one exception.
func makeDataset(t *testing.T) *tuplex.Dataset {
	t.Helper()
	c := tuplex.New(tuplex.WithLogger(tuplex.NoopLogger()), tuplex.WithMinAllocSize(64))
	ds := c.ParallelizeAny(context.Background(), []any{1, 2, 3, "x", 4})
	require.False(t, ds.IsError(), "err: %v", ds.Err())
	return ds
}

func TestSpillLoadRoundTrip(t *testing.T) {
	compressions := map[string]Compression{
		"None": CompressionNone,
		"LZ4":  CompressionLZ4,
		"ZSTD": CompressionZSTD,
	}
	stores := map[string]func(t *testing.T) Store{
		"Memory": func(t *testing.T) Store { return NewMemoryStore() },
		"Local":  func(t *testing.T) Store { return NewLocalStore(t.TempDir()) },
	}

	for sname, newStore := range stores {
		for cname, comp := range compressions {
			t.Run(sname+"/"+cname, func(t *testing.T) {
				ctx := context.Background()
				ds := makeDataset(t)
				defer ds.Close()

				spiller := NewSpiller(newStore(t), func(o *SpillerOptions) { o.Compression = comp })

				m, err := spiller.Spill(ctx, ds, "datasets/run1")
				require.NoError(t, err)
				assert.Equal(t, ds.Schema().Row.Key(), m.Type)
				assert.Len(t, m.Partitions, len(ds.Partitions()))
				assert.Equal(t, 1, m.NumExceptions)

				driver := partition.NewDriver()
				loaded, err := spiller.Load(ctx, "datasets/run1", driver)
				require.NoError(t, err)
				defer loaded.Close()

				assert.Equal(t, ds.NumRows(), loaded.NumRows())
				assert.Equal(t, ds.Schema().Row.Key(), loaded.Schema().Row.Key())

				want, err := ds.Rows()
				require.NoError(t, err)
				got, err := loaded.Rows()
				require.NoError(t, err)
				require.Len(t, got, len(want))
				for i := range want {
					require.Len(t, got[i].Values, len(want[i].Values))
					assert.True(t, record.Equal(want[i].Values[0], got[i].Values[0]), "row %d", i)
				}

				exc := loaded.Exceptions()
				require.Equal(t, 1, exc.Len())
				assert.True(t, exc.Contains(3))
				assert.True(t, record.Equal(record.String("x"), exc.Records()[0].Record))
			})
		}
	}
}

func TestSpillRefusesErrorDataset(t *testing.T) {
	spiller := NewSpiller(NewMemoryStore())
	ds := tuplex.MakeError(fmt.Errorf("conversion failed"))

	_, err := spiller.Spill(context.Background(), ds, "d")
	assert.ErrorIs(t, err, ErrErrorDataset)
}

func TestSpillCommitsManifestAndPointer(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	ds := makeDataset(t)
	defer ds.Close()

	_, err := NewSpiller(store).Spill(ctx, ds, "d")
	require.NoError(t, err)

	m, err := LoadManifest(ctx, store, "d")
	require.NoError(t, err)
	assert.Equal(t, CurrentVersion, m.Version)
	assert.Equal(t, uint64(1), m.ID)

	schema, err := m.Schema()
	require.NoError(t, err)
	assert.Equal(t, m.Type, schema.Row.Key())

	// A second spill flips CURRENT to a new manifest version.
	_, err = NewSpiller(store).Spill(ctx, ds, "d")
	require.NoError(t, err)
	m2, err := LoadManifest(ctx, store, "d")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), m2.ID, "fresh manifest restarts its version chain")

	names, err := store.List(ctx, "d")
	require.NoError(t, err)
	assert.Contains(t, names, "d/CURRENT")
}

func TestLoadMissingDataset(t *testing.T) {
	spiller := NewSpiller(NewMemoryStore())
	_, err := spiller.Load(context.Background(), "nowhere", partition.NewDriver())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestExceptionCodecRoundTrip(t *testing.T) {
	ds := makeDataset(t)
	defer ds.Close()

	data := encodeExceptions(ds.Exceptions())
	exc, err := decodeExceptions(data)
	require.NoError(t, err)
	require.Equal(t, 1, exc.Len())
	assert.Equal(t, []uint64{3}, exc.Indices())
	assert.True(t, record.Equal(record.String("x"), exc.Records()[0].Record))
}
