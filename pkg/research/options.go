package research

import (
	"time"

	"github.com/google/uuid"
)

// Defaults for Manager options.
const (
	DefaultTTL             = 24 * time.Hour
	DefaultSampleSize      = 2
	DefaultResultsSample   = 5
	DefaultEnrichBatchSize = 50
	DefaultEventsBatchSize = 20
	DefaultMatchBatchSize  = 50
	DefaultMaxResults      = 10
	MaxPageSize            = 100
)

// Options configures a Manager.
type Options struct {
	// Persister receives the full session set after each mutation.
	Persister Persister

	// Now is the clock used for touch and expiry.
	Now func() time.Time

	// NewID generates session ids.
	NewID func() string

	// TTL is the idle age after which a session is swept.
	TTL time.Duration

	// SampleSize bounds the entity sample returned on create.
	SampleSize int

	// ResultsSample bounds the payload sample returned by enrich and events.
	ResultsSample int

	EnrichBatchSize int
	EventsBatchSize int
	MatchBatchSize  int
}

// Option is a functional option for configuring the Manager.
type Option func(*Options)

// WithPersister sets the session persister.
func WithPersister(p Persister) Option {
	return func(o *Options) {
		o.Persister = p
	}
}

// WithClock sets the clock.
func WithClock(now func() time.Time) Option {
	return func(o *Options) {
		o.Now = now
	}
}

// WithIDGenerator sets the session id generator.
func WithIDGenerator(gen func() string) Option {
	return func(o *Options) {
		o.NewID = gen
	}
}

// WithTTL sets the session idle TTL.
func WithTTL(ttl time.Duration) Option {
	return func(o *Options) {
		o.TTL = ttl
	}
}

// WithSampleSize sets how many entities are sampled on create.
func WithSampleSize(n int) Option {
	return func(o *Options) {
		o.SampleSize = n
	}
}

// WithBatchSizes sets the per-call entity limits for enrich, events and match.
func WithBatchSizes(enrich, events, match int) Option {
	return func(o *Options) {
		o.EnrichBatchSize = enrich
		o.EventsBatchSize = events
		o.MatchBatchSize = match
	}
}

func (o *Options) applyDefaults() {
	if o.Persister == nil {
		o.Persister = NopPersister{}
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.NewID == nil {
		o.NewID = uuid.NewString
	}
	if o.TTL <= 0 {
		o.TTL = DefaultTTL
	}
	if o.SampleSize <= 0 {
		o.SampleSize = DefaultSampleSize
	}
	if o.ResultsSample <= 0 {
		o.ResultsSample = DefaultResultsSample
	}
	if o.EnrichBatchSize <= 0 {
		o.EnrichBatchSize = DefaultEnrichBatchSize
	}
	if o.EventsBatchSize <= 0 {
		o.EventsBatchSize = DefaultEventsBatchSize
	}
	if o.MatchBatchSize <= 0 {
		o.MatchBatchSize = DefaultMatchBatchSize
	}
}
