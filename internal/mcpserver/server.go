// Package mcpserver exposes the running game over MCP so operator agents can
// inspect snapshots, submit actions, and kick stuck automation without going
// through the JSON API.
package mcpserver

import (
	"context"
	"net/http"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"chainjack/internal/chain"
	"chainjack/internal/table"
)

type Server struct {
	reg *table.Registry

	mcpServer  *server.MCPServer
	httpServer *server.StreamableHTTPServer
}

func New(reg *table.Registry) *Server {
	mcpSrv := server.NewMCPServer(
		"chainjack",
		"0.1.0",
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	)
	s := &Server{
		reg:        reg,
		mcpServer:  mcpSrv,
		httpServer: server.NewStreamableHTTPServer(mcpSrv, server.WithStateLess(true), server.WithDisableStreaming(true)),
	}
	s.registerTools()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.httpServer
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(
		mcp.NewTool(
			"get_selected",
			mcp.WithDescription("Get the currently displayed game id"),
		),
		s.handleGetSelected,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"select_game",
			mcp.WithDescription("Switch the displayed game; empty game_id deselects"),
			mcp.WithString("game_id", mcp.Description("Game id to display")),
		),
		s.handleSelectGame,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"get_snapshot",
			mcp.WithDescription("Get the reconciled snapshot for a game"),
			mcp.WithString("game_id", mcp.Required(), mcp.Description("Game id")),
		),
		s.handleGetSnapshot,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"get_status",
			mcp.WithDescription("Get automation status for a game"),
			mcp.WithString("game_id", mcp.Required(), mcp.Description("Game id")),
		),
		s.handleGetStatus,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"request_action",
			mcp.WithDescription("Submit a player action on the current game"),
			mcp.WithString("game_id", mcp.Required(), mcp.Description("Game id")),
			mcp.WithString("kind", mcp.Required(), mcp.Description("hit|stand|doubleDown|split|placeInsurance|skipInsurance|surrender")),
			mcp.WithNumber("hand_index", mcp.Description("Hand index, default 0")),
			mcp.WithNumber("amount", mcp.Description("Token amount for placeInsurance")),
		),
		s.handleRequestAction,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"request_retry",
			mcp.WithDescription("Kick stuck dealer automation so it resubmits"),
			mcp.WithString("game_id", mcp.Required(), mcp.Description("Game id")),
		),
		s.handleRequestRetry,
	)
}

func (s *Server) instance(request mcp.CallToolRequest) (*table.Instance, *mcp.CallToolResult) {
	gameID, err := request.RequireString("game_id")
	if err != nil {
		return nil, toolError("invalid_request", err.Error())
	}
	inst, ok := s.reg.Get(gameID)
	if !ok {
		return nil, toolError("game_not_selected", "no running instance for game "+gameID)
	}
	return inst, nil
}

func (s *Server) handleGetSelected(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return toolResult(map[string]any{"game_id": s.reg.Selector().Current()}), nil
}

func (s *Server) handleSelectGame(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	gameID := request.GetString("game_id", "")
	if gameID == "" {
		s.reg.Deselect()
		return toolResult(map[string]any{"game_id": ""}), nil
	}
	inst := s.reg.Select(context.WithoutCancel(ctx), gameID)
	return toolResult(map[string]any{"game_id": inst.GameID()}), nil
}

func (s *Server) handleGetSnapshot(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	inst, errResult := s.instance(request)
	if errResult != nil {
		return errResult, nil
	}
	return toolResult(inst.Snapshot()), nil
}

func (s *Server) handleGetStatus(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	inst, errResult := s.instance(request)
	if errResult != nil {
		return errResult, nil
	}
	snap := inst.Snapshot()
	return toolResult(map[string]any{
		"game_id": inst.GameID(),
		"status":  string(inst.Status()),
		"phase":   snap.PhaseName,
	}), nil
}

func (s *Server) handleRequestAction(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	inst, errResult := s.instance(request)
	if errResult != nil {
		return errResult, nil
	}
	kind := chain.PlayerActionKind(request.GetString("kind", ""))
	if !kind.Valid() {
		return toolError("invalid_action", "unknown action kind"), nil
	}
	handIndex := request.GetInt("hand_index", 0)
	amount := uint64(request.GetInt("amount", 0))
	if err := inst.PlayerAct(ctx, kind, handIndex, amount); err != nil {
		return toolError(string(chain.Classify(err)), chain.UserMessage(err)), nil
	}
	return toolResult(map[string]any{"ok": true}), nil
}

func (s *Server) handleRequestRetry(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	inst, errResult := s.instance(request)
	if errResult != nil {
		return errResult, nil
	}
	inst.Retry()
	return toolResult(map[string]any{"ok": true, "status": string(inst.Status())}), nil
}
