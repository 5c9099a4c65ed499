package generate

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/nborup/skribent/internal/apperr"
	"github.com/nborup/skribent/internal/models"
)

// Service runs generation, revision, and translation jobs. Long-running
// operations are guarded: a second request for the same operation kind is
// rejected with ErrBusy rather than queued.
type Service struct {
	client *Client
	logger *slog.Logger

	mu   sync.Mutex
	busy map[string]bool
}

// NewService creates a generation service on top of client.
func NewService(client *Client, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		client: client,
		logger: logger,
		busy:   make(map[string]bool),
	}
}

// acquire marks op as in flight. Returns false when it already is.
func (s *Service) acquire(op string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy[op] {
		return false
	}
	s.busy[op] = true
	return true
}

func (s *Service) release(op string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.busy, op)
}

// Generate produces one structured SEO text for req.
func (s *Service) Generate(ctx context.Context, req Request) (*models.GeneratedText, error) {
	if strings.TrimSpace(req.Keywords) == "" {
		return nil, fmt.Errorf("%w: keywords are required", apperr.ErrInvalid)
	}
	if !s.acquire("generate") {
		return nil, fmt.Errorf("%w: a generation is already running", apperr.ErrBusy)
	}
	defer s.release("generate")

	return s.generateOne(ctx, req)
}

func (s *Service) generateOne(ctx context.Context, req Request) (*models.GeneratedText, error) {
	start := time.Now()
	raw, err := s.client.Chat(ctx, []ChatMessage{
		{Role: "system", Content: systemWriter},
		{Role: "user", Content: buildPrompt(req)},
	}, 0.7, req.Profile.APIKey)
	if err != nil {
		return nil, err
	}

	raw = filterBlockedWords(raw, req.Profile.BlockedWords)
	out := parseOutput(raw, req.IncludeMeta)

	htmlContent, err := renderHTML(out.Body)
	if err != nil {
		return nil, err
	}

	s.logger.Info("seo text generated",
		slog.String("keywords", req.Keywords),
		slog.String("profile", req.Profile.Name),
		slog.Duration("duration", time.Since(start)))

	return &models.GeneratedText{
		Title:           out.Title,
		Text:            raw,
		HTML:            htmlContent,
		WebsiteHTML:     stripLeadingH1(htmlContent),
		MetaDescription: out.Meta,
		Keywords:        req.Keywords,
		Profile:         req.Profile.Name,
		Timestamp:       time.Now().UTC(),
	}, nil
}

// Variations produces count short independent texts for the same keywords.
// Each variation is its own completion; a failure aborts the batch.
func (s *Service) Variations(ctx context.Context, keywords string, count int, profile models.Profile) ([]models.GeneratedText, error) {
	if strings.TrimSpace(keywords) == "" {
		return nil, fmt.Errorf("%w: keywords are required", apperr.ErrInvalid)
	}
	if count <= 0 {
		count = 3
	}
	if count > 10 {
		count = 10
	}
	if !s.acquire("generate") {
		return nil, fmt.Errorf("%w: a generation is already running", apperr.ErrBusy)
	}
	defer s.release("generate")

	out := make([]models.GeneratedText, 0, count)
	for i := 1; i <= count; i++ {
		raw, err := s.client.Chat(ctx, []ChatMessage{
			{Role: "system", Content: "Du er en kreativ SEO-tekstforfatter."},
			{Role: "user", Content: variationPrompt(keywords, i)},
		}, 0.8, profile.APIKey)
		if err != nil {
			return nil, fmt.Errorf("variation %d: %w", i, err)
		}
		raw = filterBlockedWords(raw, profile.BlockedWords)
		htmlContent, err := renderHTML(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, models.GeneratedText{
			Text:      raw,
			HTML:      htmlContent,
			Keywords:  keywords,
			Profile:   profile.Name,
			Timestamp: time.Now().UTC(),
		})
	}
	return out, nil
}

// Progress reports batch completion after each finished item.
type Progress func(done, total int, keywords string, err error)

// BatchGenerate runs a series of generation requests sequentially,
// reporting progress after each. Individual failures are reported and
// skipped; the batch continues.
func (s *Service) BatchGenerate(ctx context.Context, reqs []Request, progress Progress) ([]models.GeneratedText, error) {
	if len(reqs) == 0 {
		return nil, fmt.Errorf("%w: batch is empty", apperr.ErrInvalid)
	}
	if !s.acquire("batch") {
		return nil, fmt.Errorf("%w: a batch generation is already running", apperr.ErrBusy)
	}
	defer s.release("batch")

	var out []models.GeneratedText
	for i, req := range reqs {
		if ctx.Err() != nil {
			return out, ctx.Err()
		}
		gt, err := s.generateOne(ctx, req)
		if err != nil {
			s.logger.Warn("batch item failed",
				slog.String("keywords", req.Keywords),
				slog.String("error", err.Error()))
			if progress != nil {
				progress(i+1, len(reqs), req.Keywords, err)
			}
			continue
		}
		out = append(out, *gt)
		if progress != nil {
			progress(i+1, len(reqs), req.Keywords, nil)
		}
	}
	return out, nil
}

// Complete runs a raw single-prompt completion with no output parsing.
func (s *Service) Complete(ctx context.Context, prompt string, temperature float32, apiKey string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", fmt.Errorf("%w: prompt is required", apperr.ErrInvalid)
	}
	out, err := s.client.Chat(ctx, []ChatMessage{
		{Role: "user", Content: prompt},
	}, temperature, apiKey)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// EditSelection rewrites a selected passage according to instruction,
// honoring the profile's blocked words.
func (s *Service) EditSelection(ctx context.Context, instruction, original string, profile models.Profile) (string, error) {
	if strings.TrimSpace(original) == "" {
		return "", fmt.Errorf("%w: no text selected", apperr.ErrInvalid)
	}
	if strings.TrimSpace(instruction) == "" {
		return "", fmt.Errorf("%w: instruction is required", apperr.ErrInvalid)
	}

	raw, err := s.client.Chat(ctx, []ChatMessage{
		{Role: "system", Content: systemEditor},
		{Role: "user", Content: editPrompt(instruction, original, profile.BlockedWords)},
	}, 0.7, profile.APIKey)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(filterBlockedWords(raw, profile.BlockedWords)), nil
}

// Translate translates text to targetLanguage, preserving formatting.
func (s *Service) Translate(ctx context.Context, text, targetLanguage, apiKey string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w: text is required", apperr.ErrInvalid)
	}
	if strings.TrimSpace(targetLanguage) == "" {
		return "", fmt.Errorf("%w: target language is required", apperr.ErrInvalid)
	}
	out, err := s.client.Chat(ctx, []ChatMessage{
		{Role: "system", Content: translatorSystem(targetLanguage)},
		{Role: "user", Content: text},
	}, 0.2, apiKey)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}
