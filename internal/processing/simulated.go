package processing

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"
)

// SimulatedTranscriber returns a canned transcript after draining the audio.
type SimulatedTranscriber struct{}

func (SimulatedTranscriber) Transcribe(_ context.Context, _ string, audio io.Reader) (string, error) {
	if _, err := io.Copy(io.Discard, audio); err != nil {
		return "", fmt.Errorf("read audio: %w", err)
	}
	return "Transcrição simulada da reunião. O presidente abriu a sessão, os itens da pauta foram discutidos e as deliberações registradas.", nil
}

// SimulatedGenerator writes a fixed, importable draft for the session.
type SimulatedGenerator struct {
	Now func() time.Time
}

func (g SimulatedGenerator) now() time.Time {
	if g.Now != nil {
		return g.Now()
	}
	return time.Now()
}

func (g SimulatedGenerator) Generate(_ context.Context, req Request) (string, error) {
	return g.draft(req) + `
---
NOTA: Esta é uma versão simulada gerada automaticamente.
Para ativar o processamento real com IA, configure as chaves de API no sistema.`, nil
}

// Fallback is the simulated draft annotated with the failure that caused it.
func (g SimulatedGenerator) Fallback(req Request, cause error) string {
	return g.draft(req) + fmt.Sprintf(`
---
AVISO: Esta ata foi gerada automaticamente em modo de fallback.
Erro no processamento com IA: %v
Para ativar o processamento completo, verifique as configurações de API.`, cause)
}

func (g SimulatedGenerator) draft(req Request) string {
	now := g.now()
	hour := req.MeetingTime
	if hour == "" {
		hour = now.Format("15:04")
	}
	return fmt.Sprintf(`# ATA DA %s SESSÃO %s

Aos %s, às %s, reuniu-se o Colegiado do Curso, sob a Presidência do(a) Coordenador(a), com a presença dos membros do colegiado. O Presidente cumprimentou a todos os presentes, conferiu o quórum e deu início à reunião.

## PAUTA 1: Homologação da ata anterior

Após análise, a ata da sessão anterior foi homologada por unanimidade, sem alterações.

## PAUTA 2: Análise de processos acadêmicos

Foram apresentados diversos processos para análise do colegiado. Após discussão, os seguintes encaminhamentos foram deliberados:
- Processo de dispensa de disciplina: Deferido conforme parecer técnico apresentado.
- Solicitação de aproveitamento de estudos: Aprovado por unanimidade após verificação da equivalência curricular.

## PAUTA 3: Assuntos gerais

Foram discutidos assuntos diversos relacionados ao funcionamento do curso. Ficou acordado que será formada uma comissão para estudar as propostas apresentadas.

Nada mais havendo a tratar, eu, Secretário(a) do Colegiado, lavrei a presente ata, que vai assinada por mim, pelo Senhor Presidente e pelos demais membros do Colegiado presentes na reunião.
`, req.SessionNumber, strings.ToUpper(req.SessionType), longDate(now), hour)
}
