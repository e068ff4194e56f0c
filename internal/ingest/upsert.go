package ingest

import (
	"context"
	"time"

	"github.com/avast/retry-go"
	"github.com/sirupsen/logrus"

	"github.com/acsql/acsql/internal/database"
	"github.com/acsql/acsql/internal/models"
)

// DefaultRetryDelay is the pause before the single upsert retry.
const DefaultRetryDelay = 500 * time.Millisecond

// Upserter writes records through a worker's session. A connectivity
// failure releases the session, acquires a new one and retries once.
type Upserter struct {
	delay time.Duration
	log   logrus.FieldLogger
}

// NewUpserter creates an Upserter.
func NewUpserter(delay time.Duration, logger logrus.FieldLogger) *Upserter {
	return &Upserter{delay: delay, log: logger}
}

// Upsert stores record and its header keywords. Failures are *models.UpsertError.
func (u *Upserter) Upsert(ctx context.Context, session *scopedSession, record models.Record, headers []models.HeaderKeyword) (database.UpsertOutcome, error) {
	var outcome database.UpsertOutcome
	err := retry.Do(
		func() error {
			s, err := session.get(ctx)
			if err != nil {
				return err
			}
			outcome, err = s.UpsertRecord(ctx, record, headers)
			return err
		},
		retry.Attempts(2),
		retry.Delay(u.delay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(database.IsConnectivityError),
		retry.OnRetry(func(n uint, err error) {
			u.log.WithField("identifier", record.Identifier).Warnf("Connection lost during upsert, reconnecting: %v", err)
			session.reset()
		}),
	)
	if err != nil {
		return 0, &models.UpsertError{Identifier: record.Identifier, Err: err}
	}
	return outcome, nil
}
