package minutes

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImportTwoAgendaItems(t *testing.T) {
	input := strings.Join([]string{
		"# ATA DA 10ª Sessão Ordinária",
		"PAUTA 1: Aprovação de ata",
		"Discussão sobre o tema.",
		"Deliberação: Aprovado por unanimidade.",
		"PAUTA 2: Orçamento",
		"Análise do orçamento anual.",
		"## ASSUNTOS GERAIS",
		"Nada a registrar.",
		"Nada mais havendo a tratar, a sessão foi encerrada.",
	}, "\n")

	doc := Import(input)

	assert.Equal(t, "ATA DA 10ª Sessão Ordinária", doc.Header.Title)
	require.Len(t, doc.AgendaItems, 2)

	first := doc.AgendaItems[0]
	assert.Equal(t, 1, first.Number)
	assert.Equal(t, "Aprovação de ata", first.Title)
	assert.Contains(t, first.Body, "Discussão sobre o tema.")
	assert.Contains(t, first.Deliberation, "Aprovado por unanimidade.")

	second := doc.AgendaItems[1]
	assert.Equal(t, 2, second.Number)
	assert.Equal(t, "Orçamento", second.Title)
	assert.Contains(t, second.Body, "Análise do orçamento anual.")
	assert.Empty(t, second.Deliberation)

	assert.Contains(t, doc.GeneralMatters, "Nada a registrar.")
	assert.Contains(t, doc.Closing, "Nada mais havendo a tratar, a sessão foi encerrada.")
}

func TestImportEmptyInput(t *testing.T) {
	doc, report := ImportWithReport("")

	assert.Equal(t, Header{}, doc.Header)
	assert.NotNil(t, doc.AgendaItems)
	assert.Empty(t, doc.AgendaItems)
	assert.Empty(t, doc.GeneralMatters)
	assert.Empty(t, doc.Closing)
	assert.Zero(t, report.Unclassified)
}

func TestImportHeaderFields(t *testing.T) {
	input := strings.Join([]string{
		"ATA DA 3ª SESSÃO EXTRAORDINÁRIA",
		"Às quatorze horas do dia dez de março",
		"reuniu-se o Colegiado do Curso de Computação",
		"na sala 205 do prédio 7",
		"texto solto sem marcador",
	}, "\n")

	doc, report := ImportWithReport(input)

	assert.Equal(t, "ATA DA 3ª SESSÃO EXTRAORDINÁRIA", doc.Header.Title)
	assert.Equal(t, "Às quatorze horas do dia dez de março", doc.Header.Time)
	assert.Equal(t, "reuniu-se o Colegiado do Curso de Computação", doc.Header.Participants)
	assert.Equal(t, "na sala 205 do prédio 7", doc.Header.Location)
	assert.Equal(t, 1, report.Unclassified)
}

func TestImportIgnoresHeaderLinesAfterScanLimit(t *testing.T) {
	lines := []string{"ATA DA 1ª Sessão"}
	for i := 0; i < 10; i++ {
		lines = append(lines, "preâmbulo")
	}
	lines = append(lines, "às nove horas")

	doc, report := ImportWithReport(strings.Join(lines, "\n"))

	assert.Empty(t, doc.Header.Time)
	assert.Equal(t, 11, report.Unclassified)
}

func TestImportAgendaHeadingVariants(t *testing.T) {
	tests := []struct {
		name  string
		line  string
		title string
	}{
		{name: "colon", line: "PAUTA 1: Homologação", title: "Homologação"},
		{name: "dash", line: "PAUTA 1 - Homologação", title: "Homologação"},
		{name: "lowercase", line: "pauta 1: Homologação", title: "Homologação"},
		{name: "second level heading", line: "## PAUTA 1: Homologação", title: "Homologação"},
		{name: "empty title", line: "## PAUTA 1:", title: ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			doc := Import(tc.line)
			require.Len(t, doc.AgendaItems, 1)
			assert.Equal(t, tc.title, doc.AgendaItems[0].Title)
			assert.Equal(t, 1, doc.AgendaItems[0].Number)
		})
	}
}

func TestImportRenumbersFromPosition(t *testing.T) {
	doc := Import("PAUTA 4: Quarta\nPAUTA 9: Nona\nPAUTA 2: Segunda")

	require.Len(t, doc.AgendaItems, 3)
	for i, item := range doc.AgendaItems {
		assert.Equal(t, i+1, item.Number)
	}
	assert.Equal(t, "Nona", doc.AgendaItems[1].Title)
}

func TestImportDeliberationLines(t *testing.T) {
	input := strings.Join([]string{
		"PAUTA 1: Regimento",
		"O texto foi lido.",
		"**Deliberação:** Aprovado com ajustes.",
		"Em regime de deliberação, a proposta foi acolhida.",
		"DELIBERAÇÃO: registrar em ata.",
	}, "\n")

	doc := Import(input)

	require.Len(t, doc.AgendaItems, 1)
	item := doc.AgendaItems[0]
	assert.Equal(t, "O texto foi lido.\n", item.Body)
	assert.Equal(t, "Aprovado com ajustes.\nEm regime de deliberação, a proposta foi acolhida.\nregistrar em ata.", item.Deliberation)
}

func TestImportKeepsBoldInDeliberationText(t *testing.T) {
	doc := Import("PAUTA 1: Regimento\nDeliberação: **Aprovado** por unanimidade.")

	require.Len(t, doc.AgendaItems, 1)
	assert.Equal(t, "**Aprovado** por unanimidade.", doc.AgendaItems[0].Deliberation)
}

func TestImportUntitledHeadings(t *testing.T) {
	t.Run("agenda item", func(t *testing.T) {
		doc := Import("# PAUTA 1: Abertura\nTexto da pauta.\n")

		assert.Empty(t, doc.Header.Title)
		require.Len(t, doc.AgendaItems, 1)
		assert.Equal(t, "Abertura", doc.AgendaItems[0].Title)
		assert.Equal(t, "Texto da pauta.\n", doc.AgendaItems[0].Body)
	})

	t.Run("general matters", func(t *testing.T) {
		doc := Import("# ASSUNTOS GERAIS\nAvisos.")

		assert.Empty(t, doc.Header.Title)
		assert.Equal(t, "Avisos.\n", doc.GeneralMatters)
	})

	t.Run("closing", func(t *testing.T) {
		doc := Import("# Nada mais havendo a tratar, encerrou-se a sessão.\n")

		assert.Empty(t, doc.Header.Title)
		assert.Contains(t, doc.Closing, "Nada mais havendo a tratar")
	})

	t.Run("title after headings", func(t *testing.T) {
		doc := Import("# Reunião de planejamento\n# PAUTA 1: Metas\n")

		assert.Equal(t, "Reunião de planejamento", doc.Header.Title)
		require.Len(t, doc.AgendaItems, 1)
	})
}

func TestImportGeneralMattersKeepsBlankLines(t *testing.T) {
	input := "## ASSUNTOS GERAIS\nPrimeiro parágrafo.\n\nSegundo parágrafo."

	doc := Import(input)

	assert.Equal(t, "Primeiro parágrafo.\n\nSegundo parágrafo.\n", doc.GeneralMatters)
}

func TestImportGeneralMattersSingularHeading(t *testing.T) {
	doc := Import("PAUTA 1: Item\nTexto.\nAssunto geral\nAviso da secretaria.")

	require.Len(t, doc.AgendaItems, 1)
	assert.Equal(t, "Texto.\n", doc.AgendaItems[0].Body)
	assert.Equal(t, "Aviso da secretaria.\n", doc.GeneralMatters)
}

func TestImportAgendaHeadingWinsOverGeneralMatters(t *testing.T) {
	doc := Import("PAUTA 3: Assuntos gerais\nDiscussão de assuntos diversos.")

	require.Len(t, doc.AgendaItems, 1)
	assert.Equal(t, "Assuntos gerais", doc.AgendaItems[0].Title)
	assert.Empty(t, doc.GeneralMatters)
}

func TestImportClosingFormulas(t *testing.T) {
	input := "PAUTA 1: Item\nTexto.\nE, para constar, eu lavrei a presente ata.\nAssinaturas."

	doc := Import(input)

	require.Len(t, doc.AgendaItems, 1)
	assert.Equal(t, "E, para constar, eu lavrei a presente ata.\nAssinaturas.\n", doc.Closing)
}

func TestImportSeparatorEntersClosing(t *testing.T) {
	doc := Import("PAUTA 1: Item\nTexto.\n---\nSessão encerrada às dezoito.")

	require.Len(t, doc.AgendaItems, 1)
	assert.Equal(t, "Texto.\n", doc.AgendaItems[0].Body)
	assert.Equal(t, "Sessão encerrada às dezoito.\n", doc.Closing)
}

func TestImportHandlesCRLF(t *testing.T) {
	doc := Import("# ATA DA 5ª Sessão\r\nPAUTA 1: Item\r\nTexto.\r\n")

	assert.Equal(t, "ATA DA 5ª Sessão", doc.Header.Title)
	require.Len(t, doc.AgendaItems, 1)
	assert.Equal(t, "Texto.\n", doc.AgendaItems[0].Body)
}

func TestImportSimulatedDraft(t *testing.T) {
	input := strings.Join([]string{
		"ATA DA 12/2025 SESSÃO ORDINÁRIA",
		"",
		"Aos 10 de março de 2025, reuniu-se o Colegiado do Curso, sob a Presidência do(a) Coordenador(a).",
		"",
		"PAUTA 1: Homologação da ata anterior",
		"A ata da sessão anterior foi homologada por unanimidade.",
		"",
		"PAUTA 2: Análise de processos acadêmicos",
		"Foram analisados diversos processos acadêmicos com as devidas deliberações.",
		"",
		"PAUTA 3: Assuntos gerais",
		"Discussão de assuntos diversos relacionados ao curso.",
		"",
		"Nada mais havendo a tratar, a sessão foi encerrada.",
	}, "\n")

	doc := Import(input)

	assert.Equal(t, "ATA DA 12/2025 SESSÃO ORDINÁRIA", doc.Header.Title)
	assert.Contains(t, doc.Header.Participants, "reuniu-se o Colegiado")
	require.Len(t, doc.AgendaItems, 3)
	assert.Equal(t, "Foram analisados diversos processos acadêmicos com as devidas deliberações.\n", doc.AgendaItems[1].Body)
	assert.Empty(t, doc.AgendaItems[1].Deliberation)
	assert.Equal(t, "Assuntos gerais", doc.AgendaItems[2].Title)
	assert.Contains(t, doc.Closing, "Nada mais havendo")
}
