package ingest

import (
	"context"

	"github.com/acsql/acsql/internal/database"
)

// scopedSession owns at most one checked-out database session for a worker.
// It acquires lazily, can be reset after a connectivity failure, and
// Release is safe to call any number of times.
type scopedSession struct {
	store   database.Store
	session database.Session
}

func newScopedSession(store database.Store) *scopedSession {
	return &scopedSession{store: store}
}

func (s *scopedSession) get(ctx context.Context) (database.Session, error) {
	if s.session != nil {
		return s.session, nil
	}
	session, err := s.store.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	s.session = session
	return session, nil
}

// reset drops the current session so the next get acquires a fresh one.
func (s *scopedSession) reset() {
	s.Release()
}

func (s *scopedSession) Release() {
	if s.session != nil {
		s.session.Release()
		s.session = nil
	}
}
