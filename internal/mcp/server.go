package mcp

import (
	"context"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/acsql/acsql/internal/database"
	"github.com/acsql/acsql/internal/models"
	"github.com/acsql/acsql/internal/services"
)

// Server exposes the read-only catalog queries as MCP tools
type Server struct {
	server    *mcp.Server
	proposals *services.ProposalService
	records   *services.RecordService
}

// NewServer creates a new MCP server instance over store
func NewServer(store database.Reader, version string) *Server {
	mcpServer := mcp.NewServer(&mcp.Implementation{
		Name:    "acsql",
		Version: version,
	}, nil)

	s := &Server{
		server:    mcpServer,
		proposals: services.NewProposalService(store),
		records:   services.NewRecordService(store),
	}

	s.registerTools()

	return s
}

// Run serves over stdio until ctx is cancelled or the client disconnects
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_proposals",
		Description: "List every proposal in the catalog with record counts",
	}, s.handleListProposals)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "records_by_proposal",
		Description: "List the records of one proposal, optionally filtered and sorted",
	}, s.handleRecordsByProposal)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "record_info",
		Description: "Show one record, the filetypes stored for its rootname and optionally its header keywords",
	}, s.handleRecordInfo)
}

type ListProposalsInput struct{}

type ListProposalsOutput struct {
	Proposals []database.ProposalSummary `json:"proposals"`
}

type RecordsByProposalInput struct {
	ProposalID string `json:"proposal_id" jsonschema:"the proposal id, e.g. 10325"`
	Filetype   string `json:"filetype,omitempty" jsonschema:"filetype to list (flt if empty, all for every filetype)"`
	Detector   string `json:"detector,omitempty" jsonschema:"only records taken with this detector"`
	Visit      string `json:"visit,omitempty" jsonschema:"only records from this visit"`
	Target     string `json:"target,omitempty" jsonschema:"only records of this target name"`
	Filter     string `json:"filter,omitempty" jsonschema:"only records with this filter in either filter wheel"`
	Sort       string `json:"sort,omitempty" jsonschema:"one of expstart, exptime, rootname, targname"`
}

type RecordsByProposalOutput struct {
	ProposalID string          `json:"proposal_id"`
	Records    []models.Record `json:"records"`
	Facets     services.Facets `json:"facets"`
	ViewLinks  []string        `json:"view_links"`
}

type RecordInfoInput struct {
	Identifier string `json:"identifier" jsonschema:"rootname_filetype identifier or a bare rootname for its flt record"`
	Headers    bool   `json:"headers,omitempty" jsonschema:"include every stored header keyword"`
}

func (s *Server) handleListProposals(ctx context.Context, req *mcp.CallToolRequest, _ ListProposalsInput) (*mcp.CallToolResult, ListProposalsOutput, error) {
	proposals, err := s.proposals.List(ctx)
	if err != nil {
		return nil, ListProposalsOutput{}, fmt.Errorf("failed to list proposals: %w", err)
	}
	if proposals == nil {
		proposals = []database.ProposalSummary{}
	}
	return nil, ListProposalsOutput{Proposals: proposals}, nil
}

func (s *Server) handleRecordsByProposal(ctx context.Context, req *mcp.CallToolRequest, input RecordsByProposalInput) (*mcp.CallToolResult, RecordsByProposalOutput, error) {
	if input.ProposalID == "" {
		return nil, RecordsByProposalOutput{}, errors.New("proposal_id is required")
	}

	view, err := s.proposals.View(ctx, input.ProposalID, database.RecordQuery{
		Filetype: input.Filetype,
		Detector: input.Detector,
		Visit:    input.Visit,
		Target:   input.Target,
		Filter:   input.Filter,
		Sort:     input.Sort,
	})
	if err != nil {
		return nil, RecordsByProposalOutput{}, fmt.Errorf("failed to query proposal %s: %w", input.ProposalID, err)
	}

	return nil, RecordsByProposalOutput{
		ProposalID: view.ProposalID,
		Records:    view.Records,
		Facets:     view.Facets,
		ViewLinks:  view.ViewLinks,
	}, nil
}

func (s *Server) handleRecordInfo(ctx context.Context, req *mcp.CallToolRequest, input RecordInfoInput) (*mcp.CallToolResult, services.RecordInfo, error) {
	info, err := s.records.Info(ctx, input.Identifier, input.Headers)
	if err != nil {
		return nil, services.RecordInfo{}, fmt.Errorf("failed to get record %s: %w", input.Identifier, err)
	}
	return nil, *info, nil
}
