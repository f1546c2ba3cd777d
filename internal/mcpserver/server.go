// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes data contract tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/ternlund/datapact/internal/contract"
	"github.com/ternlund/datapact/internal/contractservice"
	"github.com/ternlund/datapact/internal/genai"
)

// Server wraps the MCP server with data contract tools.
type Server struct {
	mcp *server.MCPServer
	svc *contractservice.Service
}

// New creates a new MCP server with all contract tools registered.
func New(svc *contractservice.Service) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"Datapact",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("generate_contract",
		mcp.WithDescription("Generate a YAML data contract from a natural language description without persisting it."),
		mcp.WithString("description", mcp.Required(), mcp.Description("Natural language description of the desired data contract")),
	), s.generateContract)

	s.mcp.AddTool(mcp.NewTool("create_contract",
		mcp.WithDescription("Generate a YAML data contract from a natural language description and persist it. "+
			"Returns the new contract id and storage location."),
		mcp.WithString("user", mcp.Required(), mcp.Description("Email address of the contract owner")),
		mcp.WithString("request", mcp.Required(), mcp.Description("Natural language description of the desired data contract")),
	), s.createContract)

	s.mcp.AddTool(mcp.NewTool("get_contract",
		mcp.WithDescription("Fetch a stored contract by id, including its metadata and YAML content."),
		mcp.WithString("contract_id", mcp.Required(), mcp.Description("Identifier of the contract")),
	), s.getContract)

	s.mcp.AddTool(mcp.NewTool("list_contracts",
		mcp.WithDescription("List metadata for all stored contracts."),
	), s.listContracts)

	s.mcp.AddTool(mcp.NewTool("update_contract_status",
		mcp.WithDescription("Update the lifecycle status of a stored contract (e.g. DRAFT, ACTIVE, DEPRECATED)."),
		mcp.WithString("contract_id", mcp.Required(), mcp.Description("Identifier of the contract")),
		mcp.WithString("status", mcp.Required(), mcp.Description("New status value")),
	), s.updateContractStatus)

	s.mcp.AddTool(mcp.NewTool("delete_contract",
		mcp.WithDescription("Delete a stored contract and its YAML content."),
		mcp.WithString("contract_id", mcp.Required(), mcp.Description("Identifier of the contract")),
	), s.deleteContract)

	// Resource: the authoring guidance used when generating contracts.
	s.mcp.AddResource(
		mcp.NewResource("datapact://authoring-prompt", "Contract Authoring Prompt",
			mcp.WithResourceDescription("System prompt describing the YAML structure generated contracts follow."),
			mcp.WithMIMEType("text/plain"),
		),
		s.readAuthoringPromptResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) generateContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	description, err := req.RequireString("description")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := s.svc.Generate(ctx, description)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(content), nil
}

func (s *Server) createContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	user, err := req.RequireString("user")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	request, err := req.RequireString("request")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := s.svc.Create(ctx, user, request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(res, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) getContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("contract_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	detail, err := s.svc.Get(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", id)), nil
	}
	out, _ := json.MarshalIndent(detail, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) listContracts(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	records, err := s.svc.List(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(records, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) updateContractStatus(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("contract_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	status, err := req.RequireString("status")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	patch := contract.Patch{
		Fields: map[string]contract.Value{
			contract.FieldStatus: {Kind: contract.KindText, Text: status},
		},
	}
	detail, err := s.svc.Update(ctx, id, patch)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(detail, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) deleteContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("contract_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.svc.Delete(ctx, id); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("deleted: %s", id)), nil
}

func (s *Server) readAuthoringPromptResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "datapact://authoring-prompt",
			MIMEType: "text/plain",
			Text:     genai.SystemPrompt,
		},
	}, nil
}
