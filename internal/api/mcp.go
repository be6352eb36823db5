package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kalambet/expertfinder/internal/dialog"
	"github.com/kalambet/expertfinder/internal/directory"
	"github.com/kalambet/expertfinder/internal/intent"
)

// MCPDirectory abstracts the profile directory for the MCP layer.
type MCPDirectory interface {
	SearchFullText(ctx context.Context, text string) (directory.SearchResult, error)
	SearchByTag(ctx context.Context, tag string) (directory.SearchResult, error)
	SearchByID(ctx context.Context, userID string) (directory.Profile, error)
}

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Directory     MCPDirectory
	DirectoryHost string
	Version       string
}

// NewMCPServer creates an MCP server exposing expert search as tools.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	version := deps.Version
	if version == "" {
		version = "dev"
	}

	s := server.NewMCPServer(
		"expertfinder",
		version,
		server.WithToolCapabilities(true),
		server.WithInstructions("expertfinder finds people in the company directory who know about a topic."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("search_experts",
			mcp.WithDescription("Search the profile directory for experts on a topic."),
			mcp.WithString("query", mcp.Description("Search text, or a tag when tag is true"), mcp.Required()),
			mcp.WithBoolean("tag", mcp.Description("Match profile tags instead of full text")),
		),
		mcpSearchExperts(deps),
	)

	s.AddTool(
		mcp.NewTool("get_expert",
			mcp.WithDescription("Fetch one directory profile and its contact card."),
			mcp.WithString("user_id", mcp.Description("Directory user id"), mcp.Required()),
		),
		mcpGetExpert(deps),
	)

	s.AddTool(
		mcp.NewTool("suggest_searches",
			mcp.WithDescription("Turn free text into the keyword searches the chat bot would offer."),
			mcp.WithString("text", mcp.Description("Phrase to extract keywords from"), mcp.Required()),
		),
		mcpSuggestSearches(),
	)

	return s
}

func mcpSearchExperts(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := req.RequireString("query")
		if err != nil || strings.TrimSpace(query) == "" {
			return mcpError("query is required"), nil
		}

		var res directory.SearchResult
		if req.GetBool("tag", false) {
			res, err = deps.Directory.SearchByTag(ctx, query)
		} else {
			res, err = deps.Directory.SearchFullText(ctx, query)
		}
		if err != nil {
			return mcpError(fmt.Sprintf("search failed: %v", err)), nil
		}
		if res.Profiles == nil {
			res.Profiles = []directory.Profile{}
		}

		b, err := json.Marshal(res)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal results: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpGetExpert(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		userID, err := req.RequireString("user_id")
		if err != nil || userID == "" {
			return mcpError("user_id is required"), nil
		}

		p, err := deps.Directory.SearchByID(ctx, userID)
		if errors.Is(err, directory.ErrNotFound) {
			return mcpError(fmt.Sprintf("no profile for user %s", userID)), nil
		}
		if err != nil {
			return mcpError(fmt.Sprintf("lookup failed: %v", err)), nil
		}

		b, err := json.Marshal(struct {
			directory.Profile
			ProfileURL string `json:"profile_url"`
			Card       string `json:"card"`
		}{
			Profile:    p,
			ProfileURL: directory.ProfileURL(deps.DirectoryHost, p.UserID),
			Card:       dialog.FormatProfile(p, deps.DirectoryHost),
		})
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal profile: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpSuggestSearches() server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		text, err := req.RequireString("text")
		if err != nil {
			return mcpError("text is required"), nil
		}

		keywords := intent.Keywords([]string{text})
		terms := []string{}
		for _, c := range dialog.Combinations(keywords) {
			terms = append(terms, dialog.SearchText(dialog.JoinTerms(c)))
		}

		b, err := json.Marshal(terms)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal searches: %v", err)), nil
		}
		return mcpText(string(b)), nil
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
