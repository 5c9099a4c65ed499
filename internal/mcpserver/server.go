// Package mcpserver provides an MCP (Model Context Protocol) server that
// exposes Skribent tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/nborup/skribent/internal/generate"
	"github.com/nborup/skribent/internal/models"
	"github.com/nborup/skribent/internal/profile"
	"github.com/nborup/skribent/internal/textservice"
)

// Server wraps the MCP server with Skribent tools.
type Server struct {
	mcp      *server.MCPServer
	texts    *textservice.Service
	profiles *profile.Store
	gen      *generate.Service
}

// New creates a new MCP server with all Skribent tools registered.
func New(texts *textservice.Service, profiles *profile.Store, gen *generate.Service) *Server {
	s := &Server{texts: texts, profiles: profiles, gen: gen}

	s.mcp = server.NewMCPServer(
		"Skribent",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_profiles",
		mcp.WithDescription("List the configured brand profiles and which one is selected."),
	), s.listProfiles)

	s.mcp.AddTool(mcp.NewTool("search_texts",
		mcp.WithDescription("Full-text search through saved SEO texts."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
		mcp.WithString("profile", mcp.Description("Optional profile name to scope the search")),
	), s.searchTexts)

	s.mcp.AddTool(mcp.NewTool("read_text",
		mcp.WithDescription("Read a saved SEO text including its title, HTML content, and metadata."),
		mcp.WithString("profile", mcp.Required(), mcp.Description("Profile the text belongs to")),
		mcp.WithString("name", mcp.Required(), mcp.Description("Name of the saved text")),
	), s.readText)

	s.mcp.AddTool(mcp.NewTool("save_text",
		mcp.WithDescription("Save an SEO text under a profile. Content MUST follow the canonical "+
			"content format (sanitized HTML fragment). Read the contract first via the "+
			"get_content_contract tool or the skribent://content-format resource."),
		mcp.WithString("profile", mcp.Required(), mcp.Description("Profile to save under")),
		mcp.WithString("name", mcp.Required(), mcp.Description("Name for the saved text")),
		mcp.WithString("title", mcp.Description("Display title (H1)")),
		mcp.WithString("content", mcp.Required(), mcp.Description("HTML fragment following the content contract")),
	), s.saveText)

	s.mcp.AddTool(mcp.NewTool("generate_seo",
		mcp.WithDescription("Generate a Danish SEO text for the given keywords using a profile's "+
			"brand voice, products, and blocked words."),
		mcp.WithString("keywords", mcp.Required(), mcp.Description("Primary keywords for the text")),
		mcp.WithString("profile", mcp.Description("Profile name (defaults to the selected profile)")),
	), s.generateSEO)

	s.mcp.AddTool(mcp.NewTool("quick_translate",
		mcp.WithDescription("Translate a text or HTML fragment into a target language, preserving markup."),
		mcp.WithString("text", mcp.Required(), mcp.Description("Text or HTML to translate")),
		mcp.WithString("target_language", mcp.Required(), mcp.Description("Target language, in Danish (e.g. tysk, engelsk)")),
	), s.quickTranslate)

	s.mcp.AddTool(mcp.NewTool("get_content_contract",
		mcp.WithDescription("Returns the canonical Skribent content format contract. "+
			"Call this before saving texts to ensure correct structure."),
	), s.getContentContract)

	// Resource: content format contract.
	s.mcp.AddResource(
		mcp.NewResource("skribent://content-format", "Content Format Contract",
			mcp.WithResourceDescription("Canonical HTML content format that all saved texts must follow."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readContentFormatResource,
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

func (s *Server) listProfiles(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	current, _ := s.profiles.Current()
	type entry struct {
		Name     string `json:"name"`
		Selected bool   `json:"selected"`
		Products int    `json:"products"`
	}
	var out []entry
	for _, p := range s.profiles.List() {
		out = append(out, entry{Name: p.Name, Selected: p.Name == current.Name, Products: len(p.Products)})
	}
	data, _ := json.MarshalIndent(out, "", "  ")
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) searchTexts(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	profileName := req.GetString("profile", "")
	results, err := s.texts.Search(ctx, query, profileName, 20)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(results, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) readText(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	profileName, err := req.RequireString("profile")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	detail, err := s.texts.GetText(ctx, profileName, name)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s/%s", profileName, name)), nil
	}
	out, _ := json.MarshalIndent(detail, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) saveText(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	profileName, err := req.RequireString("profile")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	detail, err := s.texts.SaveText(ctx, models.SavedText{
		Profile: profileName,
		Name:    name,
		Title:   req.GetString("title", ""),
		Content: content,
	}, "")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("saved: %s", detail.Path)), nil
}

func (s *Server) generateSEO(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	keywords, err := req.RequireString("keywords")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var p models.Profile
	if name := req.GetString("profile", ""); name != "" {
		p, err = s.profiles.Get(name)
	} else {
		p, err = s.profiles.Current()
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	text, err := s.gen.Generate(ctx, generate.Request{
		Keywords:    keywords,
		Profile:     p,
		IncludeMeta: true,
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(map[string]string{
		"title":            text.Title,
		"meta_description": text.MetaDescription,
		"html":             text.HTML,
	}, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) quickTranslate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := req.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	target, err := req.RequireString("target_language")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	apiKey := ""
	if p, perr := s.profiles.Current(); perr == nil {
		apiKey = p.APIKey
	}
	out, err := s.gen.Translate(ctx, text, target, apiKey)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(strings.TrimSpace(out)), nil
}

func (s *Server) getContentContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(ContentFormatContract), nil
}

func (s *Server) readContentFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "skribent://content-format",
			MIMEType: "text/markdown",
			Text:     ContentFormatContract,
		},
	}, nil
}
