// Package sample infers a normal-case row type from a prefix of the
// input. It counts per-record types, picks the most frequent one and
// widens it with Option wrappers when a bounded fraction of the sample
// deviates only by nulls.
package sample

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"

	"github.com/soumenms2015/tuplex/record"
	"github.com/soumenms2015/tuplex/types"
)

// ErrSchemaInference is returned when no column meets the acceptance
// threshold and no usable fallback record exists.
var ErrSchemaInference = errors.New("sample: schema inference failed")

const (
	// DefaultSampleSize bounds how many records the sampler inspects.
	DefaultSampleSize = 1024

	// DefaultOptionalThreshold is the band parameter t for optionizing
	// a majority type.
	DefaultOptionalThreshold = 0.9

	// DefaultColumnThreshold is the fraction of map-shaped records a
	// key must appear in to become a recognized column.
	DefaultColumnThreshold = 0.9
)

// Options control sampling and threshold decisions.
type Options struct {
	// SampleSize bounds the sample prefix. Zero or negative means
	// DefaultSampleSize.
	SampleSize int

	// OptionalThreshold is t in (0,1): a deviating fraction f triggers
	// optionization iff 1-t < f < t (both strict).
	OptionalThreshold float64

	// ColumnThreshold governs column acceptance for map-shaped records.
	ColumnThreshold float64

	// Classifier maps values to types. Nil means record.StdClassifier.
	Classifier record.Classifier

	// Logger receives inference diagnostics. Nil means no output.
	Logger *slog.Logger
}

func (o Options) normalize() Options {
	if o.SampleSize <= 0 {
		o.SampleSize = DefaultSampleSize
	}
	if o.OptionalThreshold <= 0 || o.OptionalThreshold >= 1 {
		o.OptionalThreshold = DefaultOptionalThreshold
	}
	if o.ColumnThreshold <= 0 || o.ColumnThreshold > 1 {
		o.ColumnThreshold = DefaultColumnThreshold
	}
	if o.Classifier == nil {
		o.Classifier = record.StdClassifier{}
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.DiscardHandler)
	}
	return o
}

// withinBand reports whether frac lies strictly inside (1-t, t).
func withinBand(frac, t float64) bool {
	return frac > 1-t && frac < t
}

// typeCount tracks one observed type and its frequency, preserving
// first-seen order across the sample.
type typeCount struct {
	typ types.Type
	n   int
}

type typeHistogram struct {
	order []typeCount
	index map[string]int
}

func newTypeHistogram() *typeHistogram {
	return &typeHistogram{index: make(map[string]int)}
}

func (h *typeHistogram) add(t types.Type) {
	k := t.Key()
	if i, ok := h.index[k]; ok {
		h.order[i].n++
		return
	}
	h.index[k] = len(h.order)
	h.order = append(h.order, typeCount{typ: t, n: 1})
}

func (h *typeHistogram) count(t types.Type) int {
	if i, ok := h.index[t.Key()]; ok {
		return h.order[i].n
	}
	return 0
}

// InferType scans up to opts.SampleSize records and returns the
// normal-case type for the collection. The result is Unknown for an
// empty input.
func InferType(records []record.Value, opts Options) types.Type {
	opts = opts.normalize()

	n := len(records)
	if n > opts.SampleSize {
		n = opts.SampleSize
	}
	if n == 0 {
		return types.Unknown()
	}

	hist := newTypeHistogram()
	for _, v := range records[:n] {
		hist.add(opts.Classifier.Classify(v))
	}
	if len(hist.order) > 1 {
		opts.Logger.Warn("more than one type found in sample",
			slog.Int("types", len(hist.order)))
	}
	return buildRowType(hist, n, opts.OptionalThreshold)
}

// buildRowType picks the majority type from the histogram, then tries
// two widenings under the strict band test: optionizing the fields of
// the most frequent tuple shape, and wrapping a scalar majority whose
// sample contains nulls.
func buildRowType(hist *typeHistogram, numSamples int, threshold float64) types.Type {
	// Prefer wider types on equal frequency: a supertype absorbs its
	// subtypes, so scan it first.
	entries := make([]typeCount, len(hist.order))
	copy(entries, hist.order)
	sort.SliceStable(entries, func(i, j int) bool {
		return types.Subtype(entries[j].typ, entries[i].typ)
	})

	max := -1
	majType := types.Unknown()
	maxTuple := -1
	majTupleType := types.Unknown()
	for _, e := range entries {
		if e.n > max {
			max = e.n
			majType = e.typ
		}
		if e.typ.IsTuple() && e.n > maxTuple {
			maxTuple = e.n
			majTupleType = e.typ
		}
	}

	if majTupleType.IsTuple() {
		super := majTupleType
		num := 0
		for _, e := range hist.order {
			if u, ok := types.Unify(e.typ, super); ok {
				super = u
				num += e.n
			}
		}
		frac := float64(num-hist.count(majTupleType)) / float64(numSamples)
		if num > max && withinBand(frac, threshold) {
			majType = super
		}
	}

	if majType.Kind != types.KindUnknown && majType.Kind != types.KindNull {
		if nulls := hist.count(types.Null()); nulls > 0 {
			frac := float64(nulls) / float64(numSamples)
			if withinBand(frac, threshold) {
				majType = types.Option(majType)
			}
		}
	}

	return majType
}

// InferColumns derives a column layout from map-shaped records. A key
// qualifies as a column iff it occurs in at least
// ceil(ColumnThreshold * sampledMaps) sampled maps; each qualifying
// column's type is inferred from the values observed under that key.
//
// When requested is non-empty it fixes the column order; a requested
// column absent from the sample gets type Any. Otherwise columns come
// out in discovery order. If no key qualifies, the first record whose
// keys are all strings serves as a literal schema; with no such record
// InferColumns fails with ErrSchemaInference.
func InferColumns(records []record.Value, requested []string, opts Options) ([]string, types.Type, error) {
	opts = opts.normalize()

	n := len(records)
	if n > opts.SampleSize {
		n = opts.SampleSize
	}

	var (
		order  []string
		counts = make(map[string]int)
		values = make(map[string][]record.Value)
	)
	numMaps := 0
	for _, v := range records[:n] {
		if v.Kind != types.KindMap {
			continue
		}
		numMaps++
		for _, e := range v.Pairs {
			if e.Key.Kind != types.KindStr {
				continue
			}
			k := e.Key.S
			if _, ok := counts[k]; !ok {
				order = append(order, k)
			}
			counts[k]++
			values[k] = append(values[k], e.Value)
		}
	}

	need := int(math.Ceil(opts.ColumnThreshold * float64(numMaps)))
	colTypes := make(map[string]types.Type)
	var accepted []string
	for _, k := range order {
		if counts[k] >= need {
			accepted = append(accepted, k)
			colTypes[k] = InferType(values[k], opts)
		}
	}

	if len(accepted) == 0 {
		// Weak fallback: the first record whose keys are all strings
		// dictates the schema verbatim.
		var err error
		accepted, colTypes, err = firstAllStringKeyed(records, opts.Classifier)
		if err != nil {
			return nil, types.Unknown(), err
		}
		opts.Logger.Warn("no column met the acceptance threshold, defaulting to schema of first record",
			slog.Int("columns", len(accepted)))
	}

	columns := requested
	if len(columns) == 0 {
		columns = accepted
	}

	fields := make([]types.Type, len(columns))
	for i, c := range columns {
		t, ok := colTypes[c]
		if !ok {
			opts.Logger.Warn("column not found in sample, assuming any",
				slog.String("column", c))
			t = types.Any()
		}
		fields[i] = t
	}
	return columns, types.Tuple(fields...), nil
}

// firstAllStringKeyed scans the whole input, not just the sample
// prefix, for the first map record whose keys are all strings and
// takes its literal shape as the schema.
func firstAllStringKeyed(records []record.Value, cls record.Classifier) ([]string, map[string]types.Type, error) {
	for _, v := range records {
		if v.Kind != types.KindMap {
			continue
		}
		allStr := true
		for _, e := range v.Pairs {
			if e.Key.Kind != types.KindStr {
				allStr = false
				break
			}
		}
		if !allStr {
			continue
		}
		columns := make([]string, 0, len(v.Pairs))
		colTypes := make(map[string]types.Type, len(v.Pairs))
		for _, e := range v.Pairs {
			columns = append(columns, e.Key.S)
			colTypes[e.Key.S] = cls.Classify(e.Value)
		}
		return columns, colTypes, nil
	}
	return nil, nil, fmt.Errorf("%w: no map record with string keys in sample", ErrSchemaInference)
}
