package api

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/inima-app/inima/internal/conversation"
	"github.com/inima-app/inima/internal/profile"
	"github.com/inima-app/inima/internal/storage"
)

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Conversations *conversation.Service
	Profiles      *profile.Manager
	Compiler      ContextCompiler
}

// NewMCPServer creates an MCP server exposing the profile and conversation
// surface to local agent clients.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	s := server.NewMCPServer(
		"inima",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("inima — per-user personality profiles and conversation history for prompt personalization."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("get_profile",
			mcp.WithDescription("Read a user's personality or dynamic profile as JSON."),
			mcp.WithString("owner", mcp.Description("Owner (user) id"), mcp.Required()),
			mcp.WithString("kind", mcp.Description("Profile kind: personality (default) or dynamic")),
		),
		mcpGetProfile(deps),
	)

	s.AddTool(
		mcp.NewTool("set_preference",
			mcp.WithDescription("Update a user profile preference field."),
			mcp.WithString("owner", mcp.Description("Owner (user) id"), mcp.Required()),
			mcp.WithString("key", mcp.Description("Preference key (e.g. communication.tone)"), mcp.Required()),
			mcp.WithString("value", mcp.Description("Value to set"), mcp.Required()),
		),
		mcpSetPreference(deps),
	)

	s.AddTool(
		mcp.NewTool("list_conversations",
			mcp.WithDescription("List a user's conversations, most recently updated first."),
			mcp.WithString("owner", mcp.Description("Owner (user) id"), mcp.Required()),
			mcp.WithNumber("limit", mcp.Description("Maximum number of results (default 20)")),
		),
		mcpListConversations(deps),
	)

	s.AddTool(
		mcp.NewTool("compile_context",
			mcp.WithDescription("Render the personalization context block that would be injected into the system prompt for this user."),
			mcp.WithString("owner", mcp.Description("Owner (user) id"), mcp.Required()),
		),
		mcpCompileContext(deps),
	)

	s.AddResourceTemplate(
		mcp.NewResourceTemplate(
			"user://{owner}/profile",
			"User Profile",
			mcp.WithTemplateDescription("Personality profile of one user as JSON"),
			mcp.WithTemplateMIMEType("application/json"),
		),
		mcpResourceProfile(deps),
	)

	return s
}

func mcpGetProfile(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		owner, err := req.RequireString("owner")
		if err != nil {
			return mcpError("owner is required"), nil
		}
		kind := req.GetString("kind", storage.ProfileKindPersonality)

		var doc any
		var found bool
		switch kind {
		case storage.ProfileKindPersonality:
			doc, found, err = deps.Profiles.GetPersonality(ctx, owner)
		case storage.ProfileKindDynamic:
			doc, found, err = deps.Profiles.GetDynamic(ctx, owner)
		default:
			return mcpError(fmt.Sprintf("unknown profile kind %q", kind)), nil
		}
		if err != nil {
			return mcpError(fmt.Sprintf("failed to get profile: %v", err)), nil
		}
		if !found {
			return mcpError(fmt.Sprintf("no %s profile for owner %s yet", kind, owner)), nil
		}

		b, err := json.Marshal(doc)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal profile: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpSetPreference(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		owner, err := req.RequireString("owner")
		if err != nil {
			return mcpError("owner is required"), nil
		}
		key, err := req.RequireString("key")
		if err != nil {
			return mcpError("key is required"), nil
		}
		value, err := req.RequireString("value")
		if err != nil {
			return mcpError("value is required"), nil
		}

		if _, err := deps.Profiles.SetPreference(ctx, owner, key, value); err != nil {
			return mcpError(fmt.Sprintf("failed to set preference: %v", err)), nil
		}
		return mcpText(fmt.Sprintf("Set %s = %s", key, value)), nil
	}
}

func mcpListConversations(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		owner, err := req.RequireString("owner")
		if err != nil {
			return mcpError("owner is required"), nil
		}
		limit := req.GetInt("limit", 20)
		if limit <= 0 {
			limit = 20
		}
		if limit > 100 {
			limit = 100
		}

		convs, err := deps.Conversations.ListByOwner(ctx, owner)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to list conversations: %v", err)), nil
		}
		if len(convs) > limit {
			convs = convs[:limit]
		}

		type convSummary struct {
			ID        string `json:"id"`
			Subject   string `json:"subject"`
			UpdatedAt string `json:"updated_at"`
			Messages  int    `json:"messages"`
		}

		summaries := make([]convSummary, len(convs))
		for i, c := range convs {
			subject := c.Subject
			if utf8.RuneCountInString(subject) > 200 {
				runes := []rune(subject)
				subject = string(runes[:200]) + "..."
			}
			summaries[i] = convSummary{
				ID:        c.ID,
				Subject:   subject,
				UpdatedAt: c.UpdatedAt.Format(time.RFC3339),
				Messages:  len(c.Messages),
			}
		}

		b, err := json.Marshal(summaries)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal conversations: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpCompileContext(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		owner, err := req.RequireString("owner")
		if err != nil {
			return mcpError("owner is required"), nil
		}

		block, err := deps.Compiler.Compile(ctx, owner)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to compile context: %v", err)), nil
		}
		return mcpText(block), nil
	}
}

func mcpResourceProfile(deps MCPDeps) server.ResourceTemplateHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		owner := ownerFromProfileURI(req.Params.URI)
		if owner == "" {
			return nil, fmt.Errorf("invalid profile URI %q", req.Params.URI)
		}

		p, found, err := deps.Profiles.GetPersonality(ctx, owner)
		if err != nil {
			return nil, fmt.Errorf("failed to get profile: %w", err)
		}
		if !found {
			return nil, fmt.Errorf("no profile for owner %s", owner)
		}

		b, err := json.Marshal(p)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal profile: %w", err)
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

// ownerFromProfileURI extracts the owner id from user://{owner}/profile.
func ownerFromProfileURI(uri string) string {
	rest, ok := strings.CutPrefix(uri, "user://")
	if !ok {
		return ""
	}
	owner, ok := strings.CutSuffix(rest, "/profile")
	if !ok {
		return ""
	}
	return owner
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
