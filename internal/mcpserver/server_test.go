package mcpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/nborup/skribent/internal/generate"
	"github.com/nborup/skribent/internal/models"
	"github.com/nborup/skribent/internal/profile"
	"github.com/nborup/skribent/internal/testutil"
	"github.com/nborup/skribent/internal/textservice"
)

func testServer(t *testing.T, chatReply string) *Server {
	t.Helper()

	libraryRoot, store := testutil.TestLibrary(t)
	db := testutil.TestDB(t)

	profiles, err := profile.NewStore(libraryRoot + "/profiles.json")
	if err != nil {
		t.Fatal(err)
	}
	if err := profiles.Create(models.Profile{Name: "Butik A", APIKey: "sk-test"}); err != nil {
		t.Fatal(err)
	}
	if err := profiles.Select("Butik A"); err != nil {
		t.Fatal(err)
	}

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": chatReply}},
			},
		})
	}))
	t.Cleanup(upstream.Close)

	client := generate.NewClient(upstream.URL, "test-model", "", time.Second, nil)
	return New(textservice.NewService(store, db), profiles, generate.NewService(client, nil))
}

func toolRequest(name string, args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, r *mcp.CallToolResult) string {
	t.Helper()
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	t.Fatal("tool result has no text content")
	return ""
}

func TestSaveReadAndSearch(t *testing.T) {
	srv := testServer(t, "")
	ctx := context.Background()

	res, err := srv.saveText(ctx, toolRequest("save_text", map[string]any{
		"profile": "Butik A",
		"name":    "uldsweatre",
		"title":   "Guide til uldsweatre",
		"content": "<p>Uld holder varmen hele vinteren.</p>",
	}))
	if err != nil {
		t.Fatal(err)
	}
	if res.IsError {
		t.Fatalf("save_text: %s", resultText(t, res))
	}

	res, err = srv.readText(ctx, toolRequest("read_text", map[string]any{
		"profile": "Butik A", "name": "uldsweatre",
	}))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(resultText(t, res), "Guide til uldsweatre") {
		t.Errorf("read_text = %s", resultText(t, res))
	}

	res, err = srv.searchTexts(ctx, toolRequest("search_texts", map[string]any{"query": "varmen"}))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(resultText(t, res), "uldsweatre") {
		t.Errorf("search_texts = %s", resultText(t, res))
	}
}

func TestReadTextMissing(t *testing.T) {
	srv := testServer(t, "")
	res, err := srv.readText(context.Background(), toolRequest("read_text", map[string]any{
		"profile": "Butik A", "name": "findes-ikke",
	}))
	if err != nil {
		t.Fatal(err)
	}
	if !res.IsError {
		t.Error("expected error result for missing text")
	}
}

func TestListProfiles(t *testing.T) {
	srv := testServer(t, "")
	res, err := srv.listProfiles(context.Background(), toolRequest("list_profiles", nil))
	if err != nil {
		t.Fatal(err)
	}
	text := resultText(t, res)
	if !strings.Contains(text, "Butik A") || !strings.Contains(text, `"selected": true`) {
		t.Errorf("list_profiles = %s", text)
	}
}

func TestGenerateSEO(t *testing.T) {
	srv := testServer(t, "# Guide til uld\nMETA: Alt om uld.\n\nUld er godt.")
	res, err := srv.generateSEO(context.Background(), toolRequest("generate_seo", map[string]any{
		"keywords": "uldsweatre",
	}))
	if err != nil {
		t.Fatal(err)
	}
	text := resultText(t, res)
	if !strings.Contains(text, "Guide til uld") || !strings.Contains(text, "Alt om uld.") {
		t.Errorf("generate_seo = %s", text)
	}
}

func TestQuickTranslate(t *testing.T) {
	srv := testServer(t, "Wolle hält warm.")
	res, err := srv.quickTranslate(context.Background(), toolRequest("quick_translate", map[string]any{
		"text": "Uld holder varmen.", "target_language": "tysk",
	}))
	if err != nil {
		t.Fatal(err)
	}
	if got := resultText(t, res); got != "Wolle hält warm." {
		t.Errorf("quick_translate = %q", got)
	}
}

func TestContentContract(t *testing.T) {
	srv := testServer(t, "")
	res, err := srv.getContentContract(context.Background(), toolRequest("get_content_contract", nil))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(resultText(t, res), "Content Format Contract") {
		t.Error("contract text missing")
	}
}
