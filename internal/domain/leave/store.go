package leave

import "workforce/internal/platform/querier"

// Store is the Postgres implementation of StoreAPI. Every method runs on the
// transaction carried by ctx when there is one.
type Store struct {
	DB querier.Querier
}

var _ StoreAPI = (*Store)(nil)

func NewStore(db querier.Querier) *Store {
	return &Store{DB: db}
}
