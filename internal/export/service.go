package export

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"atas/api/internal/metrics"
)

type renderFunc func(ctx context.Context, html string) ([]byte, error)

// Service renders drafts and caches the bytes per record, format and draft
// hash, so an edited draft never serves a stale file.
type Service struct {
	cache      *gocache.Cache
	logger     *zap.Logger
	renderPDF  renderFunc
	renderDOCX renderFunc
	now        func() time.Time
}

func NewService(ttl time.Duration, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		cache:      gocache.New(ttl, 2*ttl),
		logger:     logger.Named("export"),
		renderPDF:  renderPDF,
		renderDOCX: renderDOCX,
		now:        time.Now,
	}
}

// Export renders req in the requested format.
func (s *Service) Export(ctx context.Context, req Request, format Format) (*Result, error) {
	mimeType, ok := mimeTypes[format]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	result := &Result{
		Filename: Filename(req.SessionNumber, req.SessionType, format),
		MimeType: mimeType,
	}

	if format == FormatTXT {
		result.Data = []byte(req.Text)
		metrics.Exports.WithLabelValues(string(format), "none").Inc()
		return result, nil
	}

	key := cacheKey(req.MinutesID, format, req.Text)
	if cached, found := s.cache.Get(key); found {
		result.Data = cached.([]byte)
		metrics.Exports.WithLabelValues(string(format), "hit").Inc()
		return result, nil
	}

	html, err := s.HTML(req)
	if err != nil {
		return nil, err
	}

	render := s.renderPDF
	if format == FormatDOCX {
		render = s.renderDOCX
	}
	started := s.now()
	data, err := render(ctx, html)
	if err != nil {
		return nil, err
	}
	s.logger.Info("document rendered",
		zap.String("minutes_id", req.MinutesID),
		zap.String("format", string(format)),
		zap.Int("bytes", len(data)),
		zap.Duration("took", s.now().Sub(started)),
	)

	s.cache.SetDefault(key, data)
	metrics.Exports.WithLabelValues(string(format), "miss").Inc()
	result.Data = data
	return result, nil
}

// HTML is the printable page for req.
func (s *Service) HTML(req Request) (string, error) {
	body, err := RenderMarkdown(req.Text)
	if err != nil {
		return "", err
	}
	html, err := RenderHTML(TemplateData{
		Title:         documentTitle(req),
		Committee:     req.Committee,
		SessionNumber: req.SessionNumber,
		SessionType:   req.SessionType,
		MeetingDate:   req.MeetingDate,
		MeetingTime:   req.MeetingTime,
		Body:          body,
		GeneratedAt:   s.now(),
	})
	if err != nil {
		return "", fmt.Errorf("render template: %w", err)
	}
	return html, nil
}

// Invalidate drops every cached rendering of a record.
func (s *Service) Invalidate(minutesID string) {
	prefix := minutesID + "|"
	for key := range s.cache.Items() {
		if strings.HasPrefix(key, prefix) {
			s.cache.Delete(key)
		}
	}
}

func cacheKey(minutesID string, format Format, text string) string {
	sum := sha256.Sum256([]byte(text))
	return minutesID + "|" + string(format) + "|" + hex.EncodeToString(sum[:])
}

func documentTitle(req Request) string {
	for _, line := range strings.Split(req.Text, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "# ") {
			return strings.TrimSpace(strings.TrimPrefix(line, "# "))
		}
	}
	return fmt.Sprintf("Ata %s - Sessão %s", req.SessionNumber, req.SessionType)
}
