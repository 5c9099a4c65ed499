package editor

import (
	"strings"
	"testing"
)

func TestSanitizeStripsScripts(t *testing.T) {
	in := `<p>hello</p><script>alert(1)</script><img src="x" onerror="alert(2)">`
	out := Sanitize(in)
	if strings.Contains(out, "script") || strings.Contains(out, "onerror") {
		t.Errorf("unsafe markup survived: %q", out)
	}
	if !strings.Contains(out, "<p>hello</p>") {
		t.Errorf("safe markup dropped: %q", out)
	}
}

func TestSanitizeKeepsEditorMarkup(t *testing.T) {
	in := `<h2>Titel</h2><p><strong>fed</strong> <em>kursiv</em> <u>understreget</u></p>` +
		`<p><a href="https://example.com" target="_blank" rel="noopener noreferrer">link</a></p>` +
		`<p><span style="font-size: 18px">stor</span></p>`
	if out := Sanitize(in); out != in {
		t.Errorf("editor markup altered:\n in: %q\nout: %q", in, out)
	}
}

func TestSanitizeDropsJavascriptURL(t *testing.T) {
	out := Sanitize(`<a href="javascript:alert(1)">x</a>`)
	if strings.Contains(out, "javascript") {
		t.Errorf("javascript url survived: %q", out)
	}
}

func TestPlainText(t *testing.T) {
	got := PlainText("  <p>hello <strong>bold</strong> &amp; more</p>\n")
	if got != "hello bold & more" {
		t.Errorf("PlainText = %q", got)
	}
}
