package tuplex

import (
	"log/slog"

	"github.com/soumenms2015/tuplex/partition"
	"github.com/soumenms2015/tuplex/record"
	"github.com/soumenms2015/tuplex/resource"
	"github.com/soumenms2015/tuplex/sample"
	"github.com/soumenms2015/tuplex/types"
)

type options struct {
	sampleSize        int
	optionalThreshold float64
	columnThreshold   float64
	autoUpcast        bool
	minAllocSize      int
	logger            *Logger
	classifier        record.Classifier
	controller        *resource.Controller
	schema            *types.Type
	columns           []string
}

func defaultOptions() options {
	return options{
		sampleSize:        sample.DefaultSampleSize,
		optionalThreshold: sample.DefaultOptionalThreshold,
		columnThreshold:   sample.DefaultColumnThreshold,
		minAllocSize:      partition.DefaultMinAllocSize,
		logger:            NoopLogger(),
		classifier:        record.StdClassifier{},
	}
}

// Option configures Context construction.
type Option func(*options)

// WithSampleSize bounds how many records schema inference inspects.
func WithSampleSize(n int) Option {
	return func(o *options) {
		o.sampleSize = n
	}
}

// WithOptionalThreshold sets the band parameter t used when deciding
// whether a majority type should be widened with Option. A deviating
// fraction f triggers the widening iff 1-t < f < t, both strict.
func WithOptionalThreshold(t float64) Option {
	return func(o *options) {
		o.optionalThreshold = t
	}
}

// WithColumnThreshold sets the fraction of map-shaped sample records a
// key must appear in to become a recognized column.
func WithColumnThreshold(t float64) Option {
	return func(o *options) {
		o.columnThreshold = t
	}
}

// WithAutoUpcast permits bool values in integer columns and
// bool/integer values in float columns during conversion.
func WithAutoUpcast(enabled bool) Option {
	return func(o *options) {
		o.autoUpcast = enabled
	}
}

// WithMinAllocSize sets the minimum partition payload capacity in
// bytes.
func WithMinAllocSize(n int) Option {
	return func(o *options) {
		o.minAllocSize = n
	}
}

// WithLogger configures structured logging for operations.
// Pass nil to disable logging.
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = NoopLogger()
		}
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

// WithClassifier overrides the value classifier used for inference and
// conversion.
func WithClassifier(c record.Classifier) Option {
	return func(o *options) {
		if c == nil {
			c = record.StdClassifier{}
		}
		o.classifier = c
	}
}

// WithController attaches a resource controller. Partition allocations
// are accounted against its memory budget.
func WithController(c *resource.Controller) Option {
	return func(o *options) {
		o.controller = c
	}
}

// WithSchema bypasses type inference and uses the given type as the
// majority type for every conversion.
func WithSchema(t types.Type) Option {
	return func(o *options) {
		o.schema = &t
	}
}

// WithColumns fixes the column names and their order. For map-shaped
// records the names select which keys to unpack; a name absent from
// the sample is typed Any.
func WithColumns(columns ...string) Option {
	return func(o *options) {
		o.columns = columns
	}
}
