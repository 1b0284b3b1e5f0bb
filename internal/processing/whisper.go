package processing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

// WhisperTranscriber calls an OpenAI-compatible /audio/transcriptions
// endpoint (OpenAI Whisper or Groq).
type WhisperTranscriber struct {
	BaseURL  string
	APIKey   string
	Model    string
	Language string
	Client   *http.Client
}

func NewWhisperTranscriber(provider, baseURL, apiKey, model string) (*WhisperTranscriber, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("transcription: %w", ErrMissingAPIKey)
	}
	if baseURL == "" {
		baseURL = defaultBaseURL(provider)
	}
	if baseURL == "" {
		return nil, fmt.Errorf("transcription: %w: %q", ErrUnknownProvider, provider)
	}
	if model == "" {
		model = "whisper-1"
		if provider == ProviderGroq {
			model = "whisper-large-v3"
		}
	}
	return &WhisperTranscriber{
		BaseURL:  strings.TrimRight(baseURL, "/"),
		APIKey:   apiKey,
		Model:    model,
		Language: "pt",
		Client:   &http.Client{Timeout: 10 * time.Minute},
	}, nil
}

type transcriptionResponse struct {
	Text  string `json:"text"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (w *WhisperTranscriber) Transcribe(ctx context.Context, filename string, audio io.Reader) (string, error) {
	var body bytes.Buffer
	form := multipart.NewWriter(&body)

	part, err := form.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, audio); err != nil {
		return "", fmt.Errorf("copy audio: %w", err)
	}
	fields := map[string]string{"model": w.Model, "language": w.Language, "response_format": "json"}
	for key, value := range fields {
		if err := form.WriteField(key, value); err != nil {
			return "", fmt.Errorf("write field %s: %w", key, err)
		}
	}
	if err := form.Close(); err != nil {
		return "", fmt.Errorf("close form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.BaseURL+"/audio/transcriptions", &body)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+w.APIKey)
	req.Header.Set("Content-Type", form.FormDataContentType())

	resp, err := w.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("transcription request: %w", err)
	}
	defer resp.Body.Close()

	var decoded transcriptionResponse
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return "", fmt.Errorf("read transcription response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		message := strings.TrimSpace(string(raw))
		if json.Unmarshal(raw, &decoded) == nil && decoded.Error != nil {
			message = decoded.Error.Message
		}
		return "", fmt.Errorf("transcription failed: %s: %s", resp.Status, message)
	}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return "", fmt.Errorf("decode transcription response: %w", err)
	}
	text := strings.TrimSpace(decoded.Text)
	if text == "" {
		return "", ErrEmptyTranscript
	}
	return text, nil
}

func defaultBaseURL(provider string) string {
	switch provider {
	case ProviderOpenAI, "":
		return "https://api.openai.com/v1"
	case ProviderGroq:
		return "https://api.groq.com/openai/v1"
	default:
		return ""
	}
}
