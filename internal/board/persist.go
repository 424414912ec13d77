package board

import "context"

// Persister mirrors state to durable storage. Load returns (nil, nil) when
// nothing has been stored yet.
type Persister interface {
	Load(ctx context.Context) (*State, error)
	Save(ctx context.Context, state *State) error
}

type nopPersister struct{}

func (nopPersister) Load(context.Context) (*State, error) { return nil, nil }
func (nopPersister) Save(context.Context, *State) error   { return nil }
