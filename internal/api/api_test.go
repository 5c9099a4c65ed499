package api

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nborup/skribent/internal/autosave"
	"github.com/nborup/skribent/internal/editor"
	"github.com/nborup/skribent/internal/generate"
	"github.com/nborup/skribent/internal/models"
	"github.com/nborup/skribent/internal/profile"
	"github.com/nborup/skribent/internal/shopify"
	"github.com/nborup/skribent/internal/testutil"
	"github.com/nborup/skribent/internal/textservice"
	"github.com/nborup/skribent/internal/translator"
)

// fakeChat answers every chat-completions request with a canned body.
func fakeChat(t *testing.T, reply string) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": reply}},
			},
		})
	}))
	t.Cleanup(srv.Close)
	return srv.URL
}

// testEnv stands up the full handler stack on temp storage. authToken != ""
// enables token auth.
func testEnv(t *testing.T, authToken, chatReply string) (Deps, http.Handler) {
	t.Helper()

	libraryRoot, store := testutil.TestLibrary(t)
	texts := textservice.NewService(store, testutil.TestDB(t))

	profiles, err := profile.NewStore(libraryRoot + "/profiles.json")
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	client := generate.NewClient(fakeChat(t, chatReply), "test-model", "sk-default", time.Second, nil)
	gen := generate.NewService(client, nil)

	saver := autosave.New(func(ctx context.Context, key string, snap autosave.Snapshot) error {
		prof, name, _ := strings.Cut(key, "/")
		_, err := texts.AutoSave(ctx, prof, name, snap.Title, snap.Content)
		return err
	}, autosave.WithDelay(20*time.Millisecond))
	t.Cleanup(saver.Close)

	deps := Deps{
		Texts:       texts,
		Profiles:    profiles,
		Generator:   gen,
		Translator:  translator.NewSession(),
		Histories:   editor.NewRegistry(),
		AutoSave:    saver,
		LibraryRoot: libraryRoot,
		AuthEnabled: authToken != "",
		Token:       authToken,
	}
	return deps, NewRouter(deps)
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, strings.ReplaceAll(path, " ", "%20"), reader)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
	return v
}

func seedProfile(t *testing.T, router http.Handler, name string) {
	t.Helper()
	w := doJSON(t, router, http.MethodPost, "/profiles", models.Profile{
		Name:   name,
		Tone:   "professionel",
		APIKey: "sk-profil",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("seed profile: %d %s", w.Code, w.Body.String())
	}
	if w := doJSON(t, router, http.MethodPost, "/profiles/"+name+"/select", nil); w.Code != http.StatusOK {
		t.Fatalf("select profile: %d", w.Code)
	}
}

func TestAuthModes(t *testing.T) {
	_, router := testEnv(t, "hemmeligt-token", "")

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("no token: %d, want 401", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Authorization", "Bearer hemmeligt-token")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("with token: %d, want 200", w.Code)
	}
}

func TestSaveAndGetText(t *testing.T) {
	_, router := testEnv(t, "", "")

	w := doJSON(t, router, http.MethodPost, "/save-text", map[string]any{
		"profile": "Butik A",
		"name":    "uldsweatre",
		"title":   "Guide til uldsweatre",
		"content": "<p>Uld holder varmen.</p>",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("save: %d %s", w.Code, w.Body.String())
	}
	saved := decode[textservice.TextDetail](t, w)
	if saved.Checksum == "" {
		t.Error("expected checksum in response")
	}

	w = doJSON(t, router, http.MethodGet, "/texts/Butik A/uldsweatre", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get: %d %s", w.Code, w.Body.String())
	}
	got := decode[textservice.TextDetail](t, w)
	if got.Title != "Guide til uldsweatre" {
		t.Errorf("title = %q", got.Title)
	}

	w = doJSON(t, router, http.MethodGet, "/texts?profile=Butik A", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list: %d", w.Code)
	}
	list := decode[struct {
		Total int `json:"total"`
	}](t, w)
	if list.Total != 1 {
		t.Errorf("total = %d, want 1", list.Total)
	}
}

func TestSaveTextConflict(t *testing.T) {
	_, router := testEnv(t, "", "")

	w := doJSON(t, router, http.MethodPost, "/save-text", map[string]any{
		"profile": "Butik A", "name": "tekst", "title": "T", "content": "<p>a</p>",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("save: %d", w.Code)
	}

	body, _ := json.Marshal(map[string]any{
		"profile": "Butik A", "name": "tekst", "title": "T", "content": "<p>b</p>",
	})
	req := httptest.NewRequest(http.MethodPost, "/save-text", bytes.NewReader(body))
	req.Header.Set("If-Match", "deadbeef")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusConflict {
		t.Errorf("stale save: %d, want 409", w.Code)
	}
}

func TestGetTextNotFound(t *testing.T) {
	_, router := testEnv(t, "", "")
	if w := doJSON(t, router, http.MethodGet, "/texts/Butik A/findes-ikke", nil); w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestAutoSaveDebounces(t *testing.T) {
	deps, router := testEnv(t, "", "")

	for _, content := range []string{"<p>1</p>", "<p>2</p>", "<p>3</p>"} {
		w := doJSON(t, router, http.MethodPost, "/auto-save-text", map[string]any{
			"profile": "Butik A", "name": "kladde", "title": "Kladde", "content": content,
		})
		if w.Code != http.StatusAccepted {
			t.Fatalf("auto-save: %d %s", w.Code, w.Body.String())
		}
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		detail, err := deps.Texts.GetText(context.Background(), "Butik A", "kladde")
		if err == nil {
			if !strings.Contains(detail.Content, "3") {
				t.Errorf("persisted content = %q, want the last snapshot", detail.Content)
			}
			return
		}
		if time.Now().After(deadline) {
			t.Fatal("auto-save never fired")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestDeleteAndRenameText(t *testing.T) {
	_, router := testEnv(t, "", "")

	doJSON(t, router, http.MethodPost, "/save-text", map[string]any{
		"profile": "Butik A", "name": "gammel", "title": "T", "content": "<p>x</p>",
	})

	w := doJSON(t, router, http.MethodPost, "/texts/rename", map[string]any{
		"profile": "Butik A", "old_name": "gammel", "new_name": "ny",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("rename: %d %s", w.Code, w.Body.String())
	}

	if w := doJSON(t, router, http.MethodGet, "/texts/Butik A/gammel", nil); w.Code != http.StatusNotFound {
		t.Errorf("old name still resolves: %d", w.Code)
	}
	if w := doJSON(t, router, http.MethodDelete, "/texts/Butik A/ny", nil); w.Code != http.StatusNoContent {
		t.Errorf("delete: %d", w.Code)
	}
	if w := doJSON(t, router, http.MethodDelete, "/texts/Butik A/ny", nil); w.Code != http.StatusNotFound {
		t.Errorf("double delete: %d, want 404", w.Code)
	}
}

func TestEditorUndoRedoFlow(t *testing.T) {
	_, router := testEnv(t, "", "")

	w := doJSON(t, router, http.MethodPost, "/editor/snapshot", map[string]any{
		"key": "Butik A/tekst", "title": "v1", "content": "<p>version et</p>",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("snapshot: %d", w.Code)
	}

	w = doJSON(t, router, http.MethodPost, "/editor/undo", map[string]any{
		"key": "Butik A/tekst", "title": "v2", "content": "<p>version to</p>",
	})
	resp := decode[historyResponse](t, w)
	if !resp.Restored || resp.Content != "<p>version et</p>" {
		t.Fatalf("undo = %+v", resp)
	}

	w = doJSON(t, router, http.MethodPost, "/editor/redo", map[string]any{
		"key": "Butik A/tekst", "title": resp.Title, "content": resp.Content,
	})
	resp = decode[historyResponse](t, w)
	if !resp.Restored || resp.Content != "<p>version to</p>" {
		t.Errorf("redo = %+v", resp)
	}

	// Empty stack: live state stands, restored=false.
	w = doJSON(t, router, http.MethodPost, "/editor/redo", map[string]any{
		"key": "Butik A/tekst", "title": "v2", "content": "<p>version to</p>",
	})
	resp = decode[historyResponse](t, w)
	if resp.Restored {
		t.Errorf("redo on empty stack restored something: %+v", resp)
	}
}

func TestEditorFormatBoldToggle(t *testing.T) {
	_, router := testEnv(t, "", "")

	w := doJSON(t, router, http.MethodPost, "/editor/format", map[string]any{
		"key":       "k",
		"html":      "<p>hello world</p>",
		"selection": map[string]int{"start": 0, "end": 5},
		"command":   "bold",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("format: %d %s", w.Code, w.Body.String())
	}
	resp := decode[struct {
		HTML string `json:"html"`
	}](t, w)
	if resp.HTML != "<p><strong>hello</strong> world</p>" {
		t.Errorf("html = %q", resp.HTML)
	}

	w = doJSON(t, router, http.MethodPost, "/editor/format", map[string]any{
		"key":       "k",
		"html":      resp.HTML,
		"selection": map[string]int{"start": 0, "end": 5},
		"command":   "bold",
	})
	resp = decode[struct {
		HTML string `json:"html"`
	}](t, w)
	if resp.HTML != "<p>hello world</p>" {
		t.Errorf("toggle back = %q", resp.HTML)
	}
}

func TestProfileCRUDAndProducts(t *testing.T) {
	_, router := testEnv(t, "", "")
	seedProfile(t, router, "Butik A")

	if w := doJSON(t, router, http.MethodPost, "/profiles", models.Profile{Name: "Butik A"}); w.Code != http.StatusConflict {
		t.Errorf("duplicate create: %d, want 409", w.Code)
	}

	w := doJSON(t, router, http.MethodPost, "/profiles/Butik A/products", models.Product{
		Name: "Uldsweater", URL: "https://butik-a.dk/uld",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("add product: %d %s", w.Code, w.Body.String())
	}
	if w := doJSON(t, router, http.MethodDelete, "/profiles/Butik A/products/4", nil); w.Code != http.StatusBadRequest {
		t.Errorf("out-of-range product delete: %d, want 400", w.Code)
	}

	w = doJSON(t, router, http.MethodGet, "/profiles/current", nil)
	current := decode[models.Profile](t, w)
	if current.Name != "Butik A" {
		t.Errorf("current = %q", current.Name)
	}

	if w := doJSON(t, router, http.MethodDelete, "/profiles/Butik A", nil); w.Code != http.StatusNoContent {
		t.Errorf("delete profile: %d", w.Code)
	}
	if w := doJSON(t, router, http.MethodGet, "/profiles/current", nil); w.Code != http.StatusBadRequest {
		t.Errorf("current after delete: %d, want 400", w.Code)
	}
}

func TestProfileImportExport(t *testing.T) {
	_, router := testEnv(t, "", "")
	seedProfile(t, router, "Butik A")

	w := doJSON(t, router, http.MethodGet, "/profiles/Butik A/export", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("export: %d", w.Code)
	}
	exported := w.Body.Bytes()

	req := httptest.NewRequest(http.MethodPost, "/profiles/import", bytes.NewReader(exported))
	w2 := httptest.NewRecorder()
	router.ServeHTTP(w2, req)
	if w2.Code != http.StatusCreated {
		t.Fatalf("import: %d %s", w2.Code, w2.Body.String())
	}
	imported := decode[models.Profile](t, w2)
	if imported.Name == "Butik A" {
		t.Errorf("import should have deduplicated the name, got %q", imported.Name)
	}
}

func TestEnhancedGenerate(t *testing.T) {
	_, router := testEnv(t, "", "# Guide til uld\nMETA: Alt om uld.\n\nUld er **godt**.")
	seedProfile(t, router, "Butik A")

	w := doJSON(t, router, http.MethodPost, "/enhanced-generate-seo", map[string]any{
		"keywords": "uldsweatre", "profile": "Butik A",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("generate: %d %s", w.Code, w.Body.String())
	}
	text := decode[models.GeneratedText](t, w)
	if text.Title != "Guide til uld" {
		t.Errorf("title = %q", text.Title)
	}
	if !strings.Contains(text.HTML, "<strong>godt</strong>") {
		t.Errorf("html = %q", text.HTML)
	}
}

func TestGenerateRequiresKeywords(t *testing.T) {
	_, router := testEnv(t, "", "svar")
	seedProfile(t, router, "Butik A")

	if w := doJSON(t, router, http.MethodPost, "/enhanced-generate-seo", map[string]any{"profile": "Butik A"}); w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestQuickTranslate(t *testing.T) {
	_, router := testEnv(t, "", "<p>Wolle hält warm.</p>")
	seedProfile(t, router, "Butik A")

	w := doJSON(t, router, http.MethodPost, "/quick-translate", map[string]any{
		"text": "<p>Uld holder varmen.</p>", "target_language": "tysk",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("quick-translate: %d %s", w.Code, w.Body.String())
	}
	resp := decode[struct {
		TranslatedText string `json:"translated_text"`
	}](t, w)
	if resp.TranslatedText != "<p>Wolle hält warm.</p>" {
		t.Errorf("translated = %q", resp.TranslatedText)
	}
}

const testCSV = "Locale,Type,Field,Default content,Translated content\n" +
	"de,product,title,Uldsweater,\n" +
	"de,product,body_html,\"<p>Blød sweater</p>\",\n" +
	"en,product,title,Uldsweater,Wool sweater\n"

func uploadCSV(t *testing.T, router http.Handler, filename, content string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("files", filename)
	if err != nil {
		t.Fatal(err)
	}
	fw.Write([]byte(content))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/upload-csv", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("upload-csv: %d %s", w.Code, w.Body.String())
	}
}

func TestTranslatorFlow(t *testing.T) {
	_, router := testEnv(t, "", "Wollpullover")
	seedProfile(t, router, "Butik A")
	uploadCSV(t, router, "produkter.csv", testCSV)

	w := doJSON(t, router, http.MethodPost, "/filter-untranslated", map[string]any{})
	if w.Code != http.StatusOK {
		t.Fatalf("filter: %d %s", w.Code, w.Body.String())
	}
	view := decode[struct {
		Rows        []models.TranslationRow `json:"rows"`
		TotalRows   int                     `json:"total_rows"`
		VisibleRows int                     `json:"visible_rows"`
		ChangedRows int                     `json:"changed_rows"`
	}](t, w)
	if view.TotalRows != 3 || view.VisibleRows != 2 {
		t.Fatalf("counts = %d/%d, want 3 total 2 visible", view.TotalRows, view.VisibleRows)
	}

	rowID := view.Rows[0].ID
	w = doJSON(t, router, http.MethodPost, "/update-translation", map[string]any{
		"row_id": rowID, "translated_content": "Wollpullover",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("update: %d %s", w.Code, w.Body.String())
	}
	row := decode[models.TranslationRow](t, w)
	if !row.Changed {
		t.Error("row not marked changed")
	}

	w = doJSON(t, router, http.MethodGet, "/csv-preview", nil)
	view = decode[struct {
		Rows        []models.TranslationRow `json:"rows"`
		TotalRows   int                     `json:"total_rows"`
		VisibleRows int                     `json:"visible_rows"`
		ChangedRows int                     `json:"changed_rows"`
	}](t, w)
	if view.ChangedRows != 1 {
		t.Errorf("changed_rows = %d, want 1", view.ChangedRows)
	}

	w = doJSON(t, router, http.MethodGet, "/download-translated-csv?file_id=file-1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("download: %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "Wollpullover") {
		t.Error("edited translation missing from export")
	}
	if got := w.Header().Get("Content-Disposition"); !strings.Contains(got, "produkter_translated.csv") {
		t.Errorf("disposition = %q", got)
	}
}

func TestTranslateCSVRun(t *testing.T) {
	_, router := testEnv(t, "", "Übersetzt")
	seedProfile(t, router, "Butik A")
	uploadCSV(t, router, "produkter.csv", testCSV)

	w := doJSON(t, router, http.MethodPost, "/translate-csv", map[string]any{})
	if w.Code != http.StatusOK {
		t.Fatalf("translate-csv: %d %s", w.Code, w.Body.String())
	}
	resp := decode[struct {
		Translated int `json:"translated"`
	}](t, w)
	if resp.Translated != 2 {
		t.Errorf("translated = %d, want 2", resp.Translated)
	}
}

func TestUploadImageAndInsertHTML(t *testing.T) {
	_, router := testEnv(t, "", "")

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, _ := mw.CreateFormFile("image", "billede.png")
	fw.Write([]byte{0x89, 'P', 'N', 'G'})
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/upload-image", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("upload-image: %d %s", w.Code, w.Body.String())
	}
	resp := decode[struct {
		DataURL string `json:"data_url"`
		URL     string `json:"url"`
	}](t, w)
	if !strings.HasPrefix(resp.DataURL, "data:image/png;base64,") {
		t.Errorf("data_url = %q", resp.DataURL)
	}

	req = httptest.NewRequest(http.MethodGet, "/uploads/billede.png", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("serve upload: %d", w.Code)
	}

	w2 := doJSON(t, router, http.MethodPost, "/insert-image-html", map[string]any{
		"image_url": "https://cdn.example/billede.png", "alt_text": "Et billede", "width": 400,
	})
	if w2.Code != http.StatusOK {
		t.Fatalf("insert-image-html: %d %s", w2.Code, w2.Body.String())
	}
	html := decode[struct {
		HTML string `json:"html"`
	}](t, w2)
	if !strings.Contains(html.HTML, `src="https://cdn.example/billede.png"`) {
		t.Errorf("html = %q", html.HTML)
	}
}

func TestUploadImageRejectsBadType(t *testing.T) {
	_, router := testEnv(t, "", "")

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, _ := mw.CreateFormFile("image", "script.svg")
	fw.Write([]byte("<svg/>"))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/upload-image", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("svg upload: %d, want 400", w.Code)
	}
}

func TestShopifyTestConnection(t *testing.T) {
	deps, _ := testEnv(t, "", "")

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"shop": map[string]any{"name": "Demo Butik", "domain": "demo.dk"},
		})
	}))
	t.Cleanup(upstream.Close)

	deps.Shopify = shopify.NewClient(t.TempDir(), time.Second, nil, shopify.WithBaseURL(upstream.URL))
	router := NewRouter(deps)

	if err := deps.Profiles.Create(models.Profile{
		Name:    "Butik A",
		Shopify: models.ShopifyCredentials{StoreURL: "demo", APIToken: "shpat_x"},
	}); err != nil {
		t.Fatal(err)
	}

	w := doJSON(t, router, http.MethodPost, "/shopify/test-connection", map[string]any{"profile": "Butik A"})
	if w.Code != http.StatusOK {
		t.Fatalf("test-connection: %d %s", w.Code, w.Body.String())
	}
	resp := decode[struct {
		ShopName string `json:"shop_name"`
	}](t, w)
	if resp.ShopName != "Demo Butik" {
		t.Errorf("shop_name = %q", resp.ShopName)
	}
}

func TestSettings(t *testing.T) {
	_, router := testEnv(t, "", "")
	seedProfile(t, router, "Butik A")

	w := doJSON(t, router, http.MethodGet, "/settings", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("settings: %d", w.Code)
	}
	resp := decode[struct {
		CurrentProfile   string `json:"current_profile"`
		APIKeyConfigured bool   `json:"api_key_configured"`
	}](t, w)
	if resp.CurrentProfile != "Butik A" || !resp.APIKeyConfigured {
		t.Errorf("settings = %+v", resp)
	}
}

func TestSavedTextsCurrentProfile(t *testing.T) {
	_, router := testEnv(t, "", "")
	seedProfile(t, router, "Butik A")

	w := doJSON(t, router, http.MethodPost, "/save-text", map[string]any{
		"profile": "Butik A",
		"name":    "uldguide",
		"title":   "Guide til uld",
		"content": "<p>Uld er varmt.</p>",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("save: %d %s", w.Code, w.Body.String())
	}

	w = doJSON(t, router, http.MethodGet, "/saved-texts", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("saved-texts: %d", w.Code)
	}
	resp := decode[struct {
		SavedTexts []models.SavedText `json:"saved_texts"`
	}](t, w)
	if len(resp.SavedTexts) != 1 || resp.SavedTexts[0].Name != "uldguide" {
		t.Fatalf("saved_texts = %+v", resp.SavedTexts)
	}

	if w := doJSON(t, router, http.MethodDelete, "/saved-texts/uldguide", nil); w.Code != http.StatusNoContent {
		t.Fatalf("delete: %d %s", w.Code, w.Body.String())
	}
	w = doJSON(t, router, http.MethodGet, "/saved-texts", nil)
	resp = decode[struct {
		SavedTexts []models.SavedText `json:"saved_texts"`
	}](t, w)
	if len(resp.SavedTexts) != 0 {
		t.Errorf("saved_texts after delete = %+v", resp.SavedTexts)
	}
}

func TestGenerateText(t *testing.T) {
	_, router := testEnv(t, "", "Hej verden.")
	seedProfile(t, router, "Butik A")

	w := doJSON(t, router, http.MethodPost, "/generate-text", map[string]any{
		"prompt": "Skriv en kort hilsen.",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("generate-text: %d %s", w.Code, w.Body.String())
	}
	resp := decode[struct {
		Status        string `json:"status"`
		GeneratedText string `json:"generated_text"`
	}](t, w)
	if resp.Status != "success" || resp.GeneratedText != "Hej verden." {
		t.Errorf("resp = %+v", resp)
	}
}

func TestUpdateTranslationByRowIndex(t *testing.T) {
	_, router := testEnv(t, "", "")
	seedProfile(t, router, "Butik A")
	uploadCSV(t, router, "produkter.csv", testCSV)

	w := doJSON(t, router, http.MethodPost, "/update-translation", map[string]any{
		"row_index":          0,
		"translated_content": "Wolle",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("update by index: %d %s", w.Code, w.Body.String())
	}
	row := decode[models.TranslationRow](t, w)
	if row.TranslatedContent != "Wolle" || !row.Changed {
		t.Errorf("row = %+v", row)
	}

	w = doJSON(t, router, http.MethodPost, "/update-translation", map[string]any{
		"row_index":          99,
		"translated_content": "x",
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("out-of-range index: %d", w.Code)
	}
}

func TestProductsCurrentProfile(t *testing.T) {
	_, router := testEnv(t, "", "")

	// Without a selected profile the list is empty, not an error.
	w := doJSON(t, router, http.MethodGet, "/products", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("no profile: %d %s", w.Code, w.Body.String())
	}
	resp := decode[struct {
		Products []models.Product `json:"products"`
	}](t, w)
	if len(resp.Products) != 0 {
		t.Errorf("products = %+v, want empty", resp.Products)
	}

	seedProfile(t, router, "Butik A")

	w = doJSON(t, router, http.MethodPost, "/products", models.Product{
		Name: "Uldsweater",
		URL:  "https://demo.dk/uldsweater",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("add: %d %s", w.Code, w.Body.String())
	}

	w = doJSON(t, router, http.MethodPut, "/products/0", models.Product{
		Name: "Uldsweater i merino",
		URL:  "https://demo.dk/uldsweater",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("update: %d %s", w.Code, w.Body.String())
	}

	w = doJSON(t, router, http.MethodGet, "/products", nil)
	resp = decode[struct {
		Products []models.Product `json:"products"`
	}](t, w)
	if len(resp.Products) != 1 || resp.Products[0].Name != "Uldsweater i merino" {
		t.Fatalf("products = %+v", resp.Products)
	}

	if w := doJSON(t, router, http.MethodPut, "/products/abc", models.Product{Name: "x"}); w.Code != http.StatusBadRequest {
		t.Errorf("bad index: %d, want 400", w.Code)
	}

	if w := doJSON(t, router, http.MethodDelete, "/products/0", nil); w.Code != http.StatusNoContent {
		t.Fatalf("delete: %d %s", w.Code, w.Body.String())
	}
	w = doJSON(t, router, http.MethodGet, "/products", nil)
	resp = decode[struct {
		Products []models.Product `json:"products"`
	}](t, w)
	if len(resp.Products) != 0 {
		t.Errorf("products after delete = %+v", resp.Products)
	}
}

func TestServeCachedImage(t *testing.T) {
	deps, router := testEnv(t, "", "")

	dir := filepath.Join(deps.LibraryRoot, "image-cache", "Butik A")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	payload := []byte("jpeg-bytes")
	if err := os.WriteFile(filepath.Join(dir, "sweater.jpg"), payload, 0o644); err != nil {
		t.Fatal(err)
	}

	w := doJSON(t, router, http.MethodGet, "/cached-image/Butik A/sweater.jpg", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("serve: %d %s", w.Code, w.Body.String())
	}
	if !bytes.Equal(w.Body.Bytes(), payload) {
		t.Errorf("body = %q", w.Body.String())
	}

	if w := doJSON(t, router, http.MethodGet, "/cached-image/Butik A/mangler.jpg", nil); w.Code != http.StatusNotFound {
		t.Errorf("missing file: %d, want 404", w.Code)
	}

	// Paths that climb out of the cache directory are rejected.
	if w := doJSON(t, router, http.MethodGet, "/cached-image/Butik A/../../profiles.json", nil); w.Code != http.StatusBadRequest {
		t.Errorf("traversal: %d, want 400", w.Code)
	}
}

func TestProductImagesRefresh(t *testing.T) {
	deps, _ := testEnv(t, "", "")

	var calls int
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		json.NewEncoder(w).Encode(map[string]any{
			"products": []map[string]any{
				{
					"id": 11, "title": "Uldsweater",
					"images": []map[string]any{
						{"id": 101, "src": "https://cdn.example/sweater.jpg"},
					},
				},
			},
		})
	}))
	t.Cleanup(upstream.Close)

	deps.Shopify = shopify.NewClient(t.TempDir(), time.Second, nil, shopify.WithBaseURL(upstream.URL))
	router := NewRouter(deps)

	if err := deps.Profiles.Create(models.Profile{
		Name:    "Butik A",
		Shopify: models.ShopifyCredentials{StoreURL: "demo", APIToken: "shpat_x"},
	}); err != nil {
		t.Fatal(err)
	}

	type imagesResp struct {
		Total  int    `json:"total"`
		Source string `json:"source"`
	}

	w := doJSON(t, router, http.MethodGet, "/shopify/product-images?profile=Butik A", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("first fetch: %d %s", w.Code, w.Body.String())
	}
	if resp := decode[imagesResp](t, w); resp.Source != "api" || resp.Total != 1 {
		t.Fatalf("first fetch = %+v", resp)
	}

	w = doJSON(t, router, http.MethodGet, "/shopify/product-images?profile=Butik A", nil)
	if resp := decode[imagesResp](t, w); resp.Source != "cache" || calls != 1 {
		t.Fatalf("second fetch = %+v (upstream calls %d)", resp, calls)
	}

	w = doJSON(t, router, http.MethodGet, "/shopify/product-images?profile=Butik A&refresh=1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("refresh: %d %s", w.Code, w.Body.String())
	}
	if resp := decode[imagesResp](t, w); resp.Source != "api" || calls != 2 {
		t.Errorf("refresh = %+v (upstream calls %d)", resp, calls)
	}
}
