package generate

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"

	"github.com/nborup/skribent/internal/editor"
)

// md renders model output. Hard wraps mirror how the writers break lines;
// raw HTML passes through because everything is sanitized afterwards.
var md = goldmark.New(
	goldmark.WithExtensions(extension.Table),
	goldmark.WithRendererOptions(
		html.WithHardWraps(),
		html.WithUnsafe(),
	),
)

var (
	tagGapRe    = regexp.MustCompile(`>\s+<`)
	closeOpenRe = regexp.MustCompile(`</([^>]+)><([^/>][^>]*)>`)
	metaParaRe  = regexp.MustCompile(`(?is)<p>[^<]*META:.*?</p>\s*`)
)

// renderHTML converts Markdown model output to sanitized display HTML with
// normalized spacing between block tags.
func renderHTML(markdown string) (string, error) {
	var buf bytes.Buffer
	if err := md.Convert([]byte(markdown), &buf); err != nil {
		return "", fmt.Errorf("generate: render markdown: %w", err)
	}
	out := buf.String()

	// Collapse whitespace between tags, then reintroduce line breaks at
	// block boundaries.
	out = tagGapRe.ReplaceAllString(out, "><")
	out = closeOpenRe.ReplaceAllString(out, "</$1>\n<$2>")

	// Meta descriptions are metadata only; drop any that leaked into the
	// rendered body.
	out = metaParaRe.ReplaceAllString(out, "")

	return strings.TrimSpace(editor.Sanitize(out)), nil
}

// parsed is the structured form of raw generation output.
type parsed struct {
	Title string
	Meta  string
	Body  string
}

// parseOutput splits model output into its H1 title, META line, and body,
// tolerating sloppy formatting. A missing meta description falls back to
// the first substantial body line.
func parseOutput(text string, wantMeta bool) parsed {
	var p parsed
	var body []string

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case p.Title == "" && strings.HasPrefix(trimmed, "# "):
			p.Title = strings.TrimSpace(trimmed[2:])
			continue
		case p.Meta == "" && isMetaLine(trimmed):
			if _, after, ok := strings.Cut(trimmed, ":"); ok {
				p.Meta = strings.TrimSpace(after)
			}
			continue
		}
		body = append(body, line)
	}

	if p.Meta == "" && wantMeta {
		for _, line := range body {
			trimmed := strings.TrimSpace(line)
			if trimmed == "" || strings.HasPrefix(trimmed, "#") || strings.HasPrefix(trimmed, "**") {
				continue
			}
			if runes := []rune(trimmed); len(runes) > 50 {
				if len(runes) > 150 {
					trimmed = string(runes[:150]) + "..."
				}
				p.Meta = trimmed
				break
			}
		}
	}

	p.Body = strings.TrimSpace(strings.Join(body, "\n"))
	return p
}

func isMetaLine(line string) bool {
	if strings.HasPrefix(line, "META:") {
		return true
	}
	lower := strings.ToLower(line)
	return strings.Contains(lower, "meta") && strings.Contains(lower, "beskrivelse") && strings.Contains(line, ":")
}

// stripLeadingH1 removes a single leading h1 element. The editor shows the
// title in its own field, so the body copy for websites must not repeat it.
var leadingH1Re = regexp.MustCompile(`(?is)^\s*<h1[^>]*>.*?</h1>\s*`)

func stripLeadingH1(htmlContent string) string {
	return strings.TrimSpace(leadingH1Re.ReplaceAllString(htmlContent, ""))
}

// filterBlockedWords removes every blocked word from text, matching whole
// words case-insensitively, and tidies doubled spaces left behind.
func filterBlockedWords(text string, blocked []string) string {
	for _, w := range blocked {
		w = strings.TrimSpace(w)
		if w == "" {
			continue
		}
		re, err := regexp.Compile(`(?i)\b` + regexp.QuoteMeta(w) + `\b`)
		if err != nil {
			continue
		}
		text = re.ReplaceAllString(text, "")
	}
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.Join(strings.Fields(line), " ")
	}
	return strings.Join(lines, "\n")
}
