package research

import "context"

// Persister stores the full set of research sessions. Save is a wholesale
// overwrite: sessions absent from the slice are removed from storage.
type Persister interface {
	Save(ctx context.Context, sessions []*Session) error
	Load(ctx context.Context) ([]*Session, error)
}

// NopPersister keeps nothing.
type NopPersister struct{}

// Save implements Persister.
func (NopPersister) Save(context.Context, []*Session) error { return nil }

// Load implements Persister.
func (NopPersister) Load(context.Context) ([]*Session, error) { return nil, nil }

// Verify interface compliance.
var _ Persister = NopPersister{}
