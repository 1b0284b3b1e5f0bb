package processing

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"go.uber.org/zap"

	"atas/api/internal/metrics"
	"atas/api/internal/store"
)

const (
	maxAgendaText = 1 << 20
	// FallbackPrefix starts the error message stored with a simulated draft.
	FallbackPrefix = "Processamento com IA falhou, usando versão simulada: "
)

// Store is the part of the minutes store the pipeline writes to.
type Store interface {
	GetMinutesByID(ctx context.Context, minutesID string) (store.Minutes, error)
	SetMinutesStatus(ctx context.Context, minutesID, status, errorMessage string) error
	SaveDraft(ctx context.Context, minutesID string, update store.DraftUpdate) error
}

// Objects reads uploaded files.
type Objects interface {
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	ReadText(ctx context.Context, key string, limit int64) (string, error)
}

type Pipeline struct {
	store       Store
	objects     Objects
	transcriber Transcriber
	generator   Generator
	simulated   SimulatedGenerator
	provider    string
	logger      *zap.Logger

	// AfterSave runs once the draft is stored, for history and indexing.
	AfterSave func(ctx context.Context, m store.Minutes)
}

func NewPipeline(st Store, objects Objects, transcriber Transcriber, generator Generator, provider string, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	if provider == "" {
		provider = ProviderSimulated
	}
	return &Pipeline{
		store:       st,
		objects:     objects,
		transcriber: transcriber,
		generator:   generator,
		provider:    provider,
		logger:      logger.Named("processing"),
	}
}

// Process generates the draft of a minutes record. Failures after the record
// is loaded store the simulated fallback draft instead; the record only ends
// in FALHA when even that cannot be saved.
func (p *Pipeline) Process(ctx context.Context, minutesID string) error {
	started := time.Now()
	defer func() { metrics.ProcessingDuration.Observe(time.Since(started).Seconds()) }()

	record, err := p.store.GetMinutesByID(ctx, minutesID)
	if err != nil {
		return fmt.Errorf("load minutes %s: %w", minutesID, err)
	}
	logger := p.logger.With(zap.String("minutes_id", minutesID), zap.String("mode", record.Mode))

	if err := p.store.SetMinutesStatus(ctx, minutesID, store.MinutesProcessing, ""); err != nil {
		return fmt.Errorf("mark processing: %w", err)
	}

	req := RequestFrom(record)
	outcome := "generated"
	errorMessage := ""
	draft, err := p.generate(ctx, record, &req)
	if err != nil {
		logger.Warn("generation failed, storing simulated draft", zap.Error(err))
		draft = p.simulated.Fallback(req, err)
		errorMessage = FallbackPrefix + err.Error()
		outcome = "fallback"
	}

	update := store.DraftUpdate{Draft: draft, ErrorMessage: errorMessage, Status: store.MinutesDone}
	if err := p.store.SaveDraft(ctx, minutesID, update); err != nil {
		logger.Error("save draft", zap.Error(err))
		metrics.Processing.WithLabelValues(p.provider, "failed").Inc()
		if markErr := p.store.SetMinutesStatus(ctx, minutesID, store.MinutesFailed, err.Error()); markErr != nil {
			logger.Error("mark failed", zap.Error(markErr))
		}
		return fmt.Errorf("save draft: %w", err)
	}

	metrics.Processing.WithLabelValues(p.provider, outcome).Inc()
	logger.Info("minutes processed", zap.String("outcome", outcome), zap.Duration("took", time.Since(started)))

	if p.AfterSave != nil {
		record.Draft = draft
		record.ErrorMessage = errorMessage
		record.Status = store.MinutesDone
		p.AfterSave(ctx, record)
	}
	return nil
}

// generate fills in the transcript and agenda of req and asks the generator
// for a draft.
func (p *Pipeline) generate(ctx context.Context, record store.Minutes, req *Request) (string, error) {
	switch record.Mode {
	case store.ModeAudio:
		if record.AudioKey == "" {
			return "", ErrUnsupportedInput
		}
		transcript, err := p.transcribe(ctx, record.AudioKey)
		if err != nil {
			return "", err
		}
		req.Transcript = transcript
	case store.ModeTranscript:
		if strings.TrimSpace(record.Transcript) == "" {
			return "", ErrEmptyTranscript
		}
	default:
		return "", fmt.Errorf("%w: mode %s", ErrUnsupportedInput, record.Mode)
	}

	if req.Agenda == "" && record.AgendaKey != "" {
		req.Agenda = p.agendaText(ctx, record.AgendaKey)
	}
	return p.generator.Generate(ctx, *req)
}

func (p *Pipeline) transcribe(ctx context.Context, key string) (string, error) {
	if p.objects == nil {
		return "", ErrNoObjectStore
	}
	rc, err := p.objects.Open(ctx, key)
	if err != nil {
		return "", fmt.Errorf("open audio: %w", err)
	}
	defer rc.Close()

	transcript, err := p.transcriber.Transcribe(ctx, path.Base(key), rc)
	if err != nil {
		return "", fmt.Errorf("transcribe: %w", err)
	}
	return transcript, nil
}

// agendaText reads plain-text agenda files. Other formats, and read errors,
// fall back to the generic agenda.
func (p *Pipeline) agendaText(ctx context.Context, key string) string {
	if strings.ToLower(path.Ext(key)) != ".txt" || p.objects == nil {
		return defaultAgenda
	}
	text, err := p.objects.ReadText(ctx, key, maxAgendaText)
	if err != nil || strings.TrimSpace(text) == "" {
		p.logger.Warn("agenda text unavailable", zap.String("key", key), zap.Error(err))
		return defaultAgenda
	}
	return text
}

// RequestFrom copies the session fields of a stored record.
func RequestFrom(m store.Minutes) Request {
	return Request{
		SessionNumber: m.SessionNumber,
		SessionType:   m.SessionType,
		MeetingDate:   m.MeetingDate,
		MeetingTime:   m.MeetingTime,
		Agenda:        m.AgendaText,
		Transcript:    m.Transcript,
	}
}

// New builds the transcriber and generator for a provider. The simulated
// provider, or a missing key, yields the simulated implementations.
func New(provider, baseURL, apiKey, model, transcribeBaseURL, transcribeKey, transcribeModel string) (Transcriber, Generator, error) {
	provider = strings.ToLower(strings.TrimSpace(provider))
	if provider == "" || provider == ProviderSimulated {
		return SimulatedTranscriber{}, SimulatedGenerator{}, nil
	}

	generator, err := NewLLMGenerator(provider, baseURL, apiKey, model)
	if err != nil {
		return nil, nil, err
	}
	if transcribeKey == "" {
		transcribeKey = apiKey
	}
	if transcribeBaseURL == "" {
		transcribeBaseURL = baseURL
	}
	transcriber, err := NewWhisperTranscriber(provider, transcribeBaseURL, transcribeKey, transcribeModel)
	if err != nil {
		return nil, nil, err
	}
	return transcriber, generator, nil
}
