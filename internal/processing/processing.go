// Package processing turns meeting audio or transcripts into a first draft of
// the minutes: transcription, then generation by a language model, with a
// deterministic simulated draft when either step is unavailable.
package processing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"
)

const (
	ProviderSimulated = "simulated"
	ProviderOpenAI    = "openai"
	ProviderGroq      = "groq"
)

var (
	ErrMissingAPIKey    = errors.New("api key not configured")
	ErrEmptyTranscript  = errors.New("transcript is empty")
	ErrUnknownProvider  = errors.New("unknown provider")
	ErrUnsupportedInput = errors.New("record has nothing to process")
	ErrNoObjectStore    = errors.New("object storage not configured")
)

// Request is the material a draft is generated from.
type Request struct {
	SessionNumber string
	SessionType   string
	MeetingDate   string
	MeetingTime   string
	Agenda        string
	Transcript    string
}

type Transcriber interface {
	Transcribe(ctx context.Context, filename string, audio io.Reader) (string, error)
}

type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// defaultAgenda stands in for agenda files whose text cannot be extracted.
const defaultAgenda = `PAUTA DA REUNIÃO
1. Homologação da ata anterior
2. Análise de processos acadêmicos
3. Assuntos gerais`

var months = [...]string{
	"janeiro", "fevereiro", "março", "abril", "maio", "junho",
	"julho", "agosto", "setembro", "outubro", "novembro", "dezembro",
}

// longDate formats t as "10 de março de 2025".
func longDate(t time.Time) string {
	return fmt.Sprintf("%d de %s de %d", t.Day(), months[t.Month()-1], t.Year())
}
