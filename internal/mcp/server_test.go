package mcp

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acsql/acsql/internal/database"
	"github.com/acsql/acsql/internal/models"
)

func connect(t *testing.T) *mcp.ClientSession {
	t.Helper()
	dbCtx, err := database.CreateDatabase(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.CloseDatabase(dbCtx) })
	store := database.NewSQLiteStore(dbCtx)

	session, err := store.Acquire(context.Background())
	require.NoError(t, err)
	for _, ft := range []string{"flt", "raw"} {
		_, err := session.UpsertRecord(context.Background(), models.Record{
			Identifier:    models.Identifier("jbm110u2q", ft),
			Rootname:      "jbm110u2q",
			Filetype:      ft,
			ProposalID:    "10325",
			Program:       "jbm1",
			Detector:      "WFC",
			SourcePath:    "/data/jbm1/jbm110u2q/jbm110u2q_" + ft + ".fits",
			SourceModTime: time.Unix(1700000000, 0),
		}, []models.HeaderKeyword{{Keyword: "DETECTOR", Value: "WFC"}})
		require.NoError(t, err)
	}
	session.Release()

	ctx := context.Background()
	serverTransport, clientTransport := mcp.NewInMemoryTransports()
	serverSession, err := NewServer(store, "test").server.Connect(ctx, serverTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = serverSession.Close() })

	client := mcp.NewClient(&mcp.Implementation{Name: "client", Version: "test"}, nil)
	clientSession, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = clientSession.Close() })
	return clientSession
}

func call(t *testing.T, session *mcp.ClientSession, name string, args map[string]any, out any) *mcp.CallToolResult {
	t.Helper()
	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{Name: name, Arguments: args})
	require.NoError(t, err)
	if out != nil && !result.IsError {
		raw, err := json.Marshal(result.StructuredContent)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(raw, out))
	}
	return result
}

func TestServerTools(t *testing.T) {
	session := connect(t)

	t.Run("Expect: list_proposals returns the proposal index", func(t *testing.T) {
		var out ListProposalsOutput
		result := call(t, session, "list_proposals", map[string]any{}, &out)
		require.False(t, result.IsError)
		require.Len(t, out.Proposals, 1)
		assert.Equal(t, "10325", out.Proposals[0].ProposalID)
		assert.EqualValues(t, 2, out.Proposals[0].Records)
	})

	t.Run("Expect: records_by_proposal defaults to flt", func(t *testing.T) {
		var out RecordsByProposalOutput
		result := call(t, session, "records_by_proposal", map[string]any{"proposal_id": "10325"}, &out)
		require.False(t, result.IsError)
		require.Len(t, out.Records, 1)
		assert.Equal(t, "jbm110u2q_flt", out.Records[0].Identifier)
		assert.Equal(t, []string{"/archive/10325/jbm110u2q/"}, out.ViewLinks)
	})

	t.Run("Expect: invalid sort is a tool error", func(t *testing.T) {
		result := call(t, session, "records_by_proposal", map[string]any{"proposal_id": "10325", "sort": "brightness"}, nil)
		assert.True(t, result.IsError)
	})

	t.Run("Expect: record_info with headers", func(t *testing.T) {
		var out struct {
			Record    models.Record          `json:"record"`
			Filetypes []string               `json:"filetypes"`
			Headers   []models.HeaderKeyword `json:"headers"`
		}
		result := call(t, session, "record_info", map[string]any{"identifier": "jbm110u2q", "headers": true}, &out)
		require.False(t, result.IsError)
		assert.Equal(t, "jbm110u2q_flt", out.Record.Identifier)
		assert.Equal(t, []string{"flt", "raw"}, out.Filetypes)
		require.Len(t, out.Headers, 1)
		assert.Equal(t, "WFC", out.Headers[0].Value)
	})

	t.Run("Expect: unknown record is a tool error", func(t *testing.T) {
		result := call(t, session, "record_info", map[string]any{"identifier": "jbm110zzq_flt"}, nil)
		assert.True(t, result.IsError)
	})
}
