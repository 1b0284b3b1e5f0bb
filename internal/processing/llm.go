package processing

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

const (
	systemPrompt = "Você é um especialista em redação de atas acadêmicas formais."
	temperature  = 0.3
	maxTokens    = 2000
)

// LLMGenerator drafts minutes through an OpenAI-compatible chat model.
type LLMGenerator struct {
	model llms.Model
}

func NewLLMGenerator(provider, baseURL, apiKey, model string) (*LLMGenerator, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("generation: %w", ErrMissingAPIKey)
	}
	if baseURL == "" {
		baseURL = defaultBaseURL(provider)
	}
	if baseURL == "" {
		return nil, fmt.Errorf("generation: %w: %q", ErrUnknownProvider, provider)
	}
	if model == "" {
		model = "gpt-4"
		if provider == ProviderGroq {
			model = "llama-3.3-70b-versatile"
		}
	}

	llm, err := openai.New(
		openai.WithBaseURL(baseURL),
		openai.WithModel(model),
		openai.WithToken(apiKey),
	)
	if err != nil {
		return nil, fmt.Errorf("creating chat client: %w", err)
	}
	return NewLLMGeneratorWithModel(llm), nil
}

func NewLLMGeneratorWithModel(model llms.Model) *LLMGenerator {
	return &LLMGenerator{model: model}
}

func (g *LLMGenerator) Generate(ctx context.Context, req Request) (string, error) {
	if strings.TrimSpace(req.Transcript) == "" {
		return "", ErrEmptyTranscript
	}
	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, systemPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, BuildPrompt(req)),
	}
	resp, err := g.model.GenerateContent(ctx, messages,
		llms.WithTemperature(temperature),
		llms.WithMaxTokens(maxTokens),
	)
	if err != nil {
		return "", fmt.Errorf("generating minutes: %w", err)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Content) == "" {
		return "", fmt.Errorf("generating minutes: empty response")
	}
	return strings.TrimSpace(resp.Choices[0].Content) + "\n", nil
}

// BuildPrompt is the user message sent with the transcript and agenda.
func BuildPrompt(req Request) string {
	agenda := strings.TrimSpace(req.Agenda)
	if agenda == "" {
		agenda = defaultAgenda
	}
	var b strings.Builder
	b.WriteString("Com base na transcrição da reunião e na pauta fornecidas, gere uma ata formal de reunião de colegiado acadêmico.\n\n")
	b.WriteString("INFORMAÇÕES DA SESSÃO:\n")
	fmt.Fprintf(&b, "- Número: %s\n- Tipo: %s\n", req.SessionNumber, req.SessionType)
	if req.MeetingDate != "" {
		fmt.Fprintf(&b, "- Data: %s\n", req.MeetingDate)
	}
	if req.MeetingTime != "" {
		fmt.Fprintf(&b, "- Horário: %s\n", req.MeetingTime)
	}
	fmt.Fprintf(&b, "\nPAUTA DA REUNIÃO:\n%s\n\nTRANSCRIÇÃO DA REUNIÃO:\n%s\n\n", agenda, strings.TrimSpace(req.Transcript))
	b.WriteString(`INSTRUÇÕES:
1. Comece com o título "# ATA DA <número> SESSÃO <tipo>"
2. Inclua um parágrafo de abertura com data, hora, local e participantes
3. Para cada item da pauta use um cabeçalho "## PAUTA N: <título>" seguido da discussão
4. Registre cada deliberação em uma linha iniciada por "Deliberação:"
5. Inclua uma seção "## ASSUNTOS GERAIS" quando houver
6. Termine com o encerramento formal "Nada mais havendo a tratar..."
7. Use linguagem formal e objetiva

Gere a ata completa:`)
	return b.String()
}
