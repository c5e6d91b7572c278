package api

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/talentscout/scout/internal/schema"
)

// NewMCPServer creates an MCP server exposing the interview to recruiter
// tooling. Tools operate on the same sessions as the HTTP API.
func NewMCPServer(sessions Orchestrator, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"scout",
		version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("scout — conversational candidate intake: interview turns, collected profiles, and history."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("interview_turn",
			mcp.WithDescription("Send one candidate message to the interview and get the assistant's reply."),
			mcp.WithString("message", mcp.Description("The candidate's message"), mcp.Required()),
			mcp.WithString("session", mcp.Description("Session identifier (default \"default\")")),
		),
		mcpInterviewTurn(sessions),
	)

	s.AddTool(
		mcp.NewTool("collected_profile",
			mcp.WithDescription("Return the candidate profile fields collected so far, with completion status."),
			mcp.WithString("session", mcp.Description("Session identifier (default \"default\")")),
		),
		mcpCollectedProfile(sessions),
	)

	s.AddTool(
		mcp.NewTool("conversation_history",
			mcp.WithDescription("Return the full persisted conversation for a session, in order."),
			mcp.WithString("session", mcp.Description("Session identifier (default \"default\")")),
		),
		mcpConversationHistory(sessions),
	)

	s.AddTool(
		mcp.NewTool("reset_session",
			mcp.WithDescription("Erase a session's conversation and collected fields, returning it to the initial empty state."),
			mcp.WithString("session", mcp.Description("Session identifier (default \"default\")")),
		),
		mcpResetSession(sessions),
	)

	s.AddResource(
		mcp.NewResource(
			"scout://fields",
			"Field Schema",
			mcp.WithResourceDescription("The ordered candidate field schema as JSON"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceFields(),
	)

	return s
}

func mcpInterviewTurn(sessions Orchestrator) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		message, err := req.RequireString("message")
		if err != nil {
			return mcpError("message is required"), nil
		}
		session := req.GetString("session", defaultSessionID)

		reply, err := sessions.HandleTurn(ctx, session, message)
		if err != nil {
			return mcpError(fmt.Sprintf("turn failed: %v", err)), nil
		}
		return mcpText(reply), nil
	}
}

func mcpCollectedProfile(sessions Orchestrator) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		session := req.GetString("session", defaultSessionID)

		profile, err := sessions.CollectedInfo(session)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to load profile: %v", err)), nil
		}

		fields := make(map[string]string, len(profile))
		for k, v := range profile {
			fields[string(k)] = v
		}

		b, err := json.Marshal(map[string]any{
			"fields":    fields,
			"collected": len(profile),
			"total":     len(schema.Fields),
			"complete":  profile.Complete(),
		})
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal profile: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpConversationHistory(sessions Orchestrator) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		session := req.GetString("session", defaultSessionID)

		msgs, err := sessions.History(session)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to load history: %v", err)), nil
		}

		rendered := make([]HistoryMessage, len(msgs))
		for i, m := range msgs {
			rendered[i] = HistoryMessage{Role: m.Role, Content: m.Content}
		}

		b, err := json.Marshal(rendered)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal history: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpResetSession(sessions Orchestrator) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		session := req.GetString("session", defaultSessionID)

		if err := sessions.Reset(session); err != nil {
			return mcpError(fmt.Sprintf("failed to reset session: %v", err)), nil
		}
		return mcpText(fmt.Sprintf("Session %s reset", session)), nil
	}
}

func mcpResourceFields() server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		type fieldInfo struct {
			Name  string `json:"name"`
			Label string `json:"label"`
		}
		infos := make([]fieldInfo, len(schema.Fields))
		for i, f := range schema.Fields {
			infos[i] = fieldInfo{Name: string(f), Label: schema.Label(f)}
		}

		b, err := json.Marshal(infos)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal fields: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
