// Package tuplex converts heterogeneous, dynamically-typed record
// collections into a statically-typed binary row format suitable for
// compiled downstream processing.
//
// The core idea is normal-case optimization: instead of forcing every
// record into one type up front, a sample prefix decides what the
// "normal" row type is, and a bounded fraction of outliers is tolerated
// by widening fields with Option or by routing whole records to an
// exception list for a later resolution pass.
//
//   - Sampling and type unification live in the sample package.
//   - The binary row format lives in the codec package.
//   - Fixed-capacity buffers with strict ownership live in partition.
//   - Conversion strategies (fast scalar/tuple paths, map unpacking,
//     general fallback) live in transcode.
//   - Datasets can be persisted to local disk or object storage via
//     the spill package.
//
// # Quick Start
//
//	ctx := context.Background()
//	tc := tuplex.New(tuplex.WithOptionalThreshold(0.8))
//	ds := tc.ParallelizeAny(ctx, []any{1, 2, 3, "x", 4})
//	if ds.IsError() {
//	    panic(ds.Err())
//	}
//	defer ds.Close()
//
//	fmt.Println(ds.Schema().Row)     // tup(i64)
//	fmt.Println(ds.NumRows())        // 4
//	fmt.Println(ds.Exceptions().Len()) // 1, the "x"
//
// Map-shaped records are unpacked into named columns automatically:
//
//	ds := tc.ParallelizeAny(ctx, []any{
//	    map[string]any{"a": int64(1), "b": "x"},
//	    map[string]any{"a": int64(2), "b": "y"},
//	})
//	fmt.Println(ds.Columns()) // [a b]
package tuplex
