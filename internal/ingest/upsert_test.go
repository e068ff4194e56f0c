package ingest

import (
	"context"
	"database/sql/driver"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/acsql/acsql/internal/database"
	"github.com/acsql/acsql/internal/logging"
	"github.com/acsql/acsql/internal/models"
)

func TestUpserter_Upsert(t *testing.T) {
	ctx := context.Background()
	record := models.Record{Identifier: "jbm110u2q_flt", Rootname: "jbm110u2q", Filetype: "flt"}
	upserter := NewUpserter(time.Millisecond, logging.Discard())

	t.Run("Expect: connectivity loss is retried once on a fresh session", func(t *testing.T) {
		first, second := new(MockSession), new(MockSession)
		store := new(MockStore)
		store.On("Acquire", mock.Anything).Return(first, nil).Once()
		store.On("Acquire", mock.Anything).Return(second, nil).Once()
		first.On("UpsertRecord", mock.Anything, record, mock.Anything).Return(database.UpsertOutcome(0), driver.ErrBadConn).Once()
		first.On("Release").Once()
		second.On("UpsertRecord", mock.Anything, record, mock.Anything).Return(database.Inserted, nil).Once()
		second.On("Release").Once()

		session := newScopedSession(store)
		outcome, err := upserter.Upsert(ctx, session, record, nil)
		session.Release()

		require.NoError(t, err)
		assert.Equal(t, database.Inserted, outcome)
		store.AssertExpectations(t)
		first.AssertExpectations(t)
		second.AssertExpectations(t)
	})

	t.Run("Expect: a second connectivity loss becomes an UpsertError", func(t *testing.T) {
		first, second := new(MockSession), new(MockSession)
		store := new(MockStore)
		store.On("Acquire", mock.Anything).Return(first, nil).Once()
		store.On("Acquire", mock.Anything).Return(second, nil).Once()
		first.On("UpsertRecord", mock.Anything, record, mock.Anything).Return(database.UpsertOutcome(0), driver.ErrBadConn).Once()
		first.On("Release").Once()
		second.On("UpsertRecord", mock.Anything, record, mock.Anything).Return(database.UpsertOutcome(0), driver.ErrBadConn).Once()
		second.On("Release").Once()

		session := newScopedSession(store)
		_, err := upserter.Upsert(ctx, session, record, nil)
		session.Release()

		var upsertErr *models.UpsertError
		require.True(t, errors.As(err, &upsertErr))
		assert.Equal(t, "jbm110u2q_flt", upsertErr.Identifier)
		assert.ErrorIs(t, err, driver.ErrBadConn)
		store.AssertNumberOfCalls(t, "Acquire", 2)
		first.AssertExpectations(t)
		second.AssertExpectations(t)
	})

	t.Run("Expect: statement errors are not retried", func(t *testing.T) {
		only := new(MockSession)
		store := new(MockStore)
		store.On("Acquire", mock.Anything).Return(only, nil).Once()
		only.On("UpsertRecord", mock.Anything, record, mock.Anything).Return(database.UpsertOutcome(0), errors.New("constraint failed")).Once()
		only.On("Release").Once()

		session := newScopedSession(store)
		_, err := upserter.Upsert(ctx, session, record, nil)
		session.Release()

		assert.Equal(t, models.StageUpsert, models.StageOf(err))
		store.AssertNumberOfCalls(t, "Acquire", 1)
		only.AssertExpectations(t)
	})
}
