package ingest

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/acsql/acsql/internal/database"
	"github.com/acsql/acsql/internal/models"
)

type MockStore struct {
	mock.Mock
}

func (m *MockStore) Acquire(ctx context.Context) (database.Session, error) {
	args := m.Called(ctx)
	session, _ := args.Get(0).(database.Session)
	return session, args.Error(1)
}

func (m *MockStore) FindRecord(ctx context.Context, identifier string) (*models.Record, error) {
	args := m.Called(ctx, identifier)
	record, _ := args.Get(0).(*models.Record)
	return record, args.Error(1)
}

func (m *MockStore) ListByProposal(ctx context.Context, proposalID string, query database.RecordQuery) ([]models.Record, error) {
	args := m.Called(ctx, proposalID, query)
	records, _ := args.Get(0).([]models.Record)
	return records, args.Error(1)
}

func (m *MockStore) ListProposals(ctx context.Context) ([]database.ProposalSummary, error) {
	args := m.Called(ctx)
	summaries, _ := args.Get(0).([]database.ProposalSummary)
	return summaries, args.Error(1)
}

func (m *MockStore) ListFiletypes(ctx context.Context, rootname string) ([]string, error) {
	args := m.Called(ctx, rootname)
	filetypes, _ := args.Get(0).([]string)
	return filetypes, args.Error(1)
}

func (m *MockStore) HeaderKeywords(ctx context.Context, identifier string) ([]models.HeaderKeyword, error) {
	args := m.Called(ctx, identifier)
	headers, _ := args.Get(0).([]models.HeaderKeyword)
	return headers, args.Error(1)
}

func (m *MockStore) Rootnames(ctx context.Context) (map[string]bool, error) {
	args := m.Called(ctx)
	rootnames, _ := args.Get(0).(map[string]bool)
	return rootnames, args.Error(1)
}

func (m *MockStore) LastRun(ctx context.Context) (*database.IngestRun, error) {
	args := m.Called(ctx)
	run, _ := args.Get(0).(*database.IngestRun)
	return run, args.Error(1)
}

func (m *MockStore) SaveRun(ctx context.Context, run database.IngestRun) error {
	return m.Called(ctx, run).Error(0)
}

func (m *MockStore) Clear(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockStore) Close() error {
	return m.Called().Error(0)
}

type MockSession struct {
	mock.Mock
}

func (m *MockSession) FindRecord(ctx context.Context, identifier string) (*models.Record, error) {
	args := m.Called(ctx, identifier)
	record, _ := args.Get(0).(*models.Record)
	return record, args.Error(1)
}

func (m *MockSession) UpsertRecord(ctx context.Context, record models.Record, headers []models.HeaderKeyword) (database.UpsertOutcome, error) {
	args := m.Called(ctx, record, headers)
	return args.Get(0).(database.UpsertOutcome), args.Error(1)
}

func (m *MockSession) Release() {
	m.Called()
}
