package minutes

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExportLayout(t *testing.T) {
	doc := New()
	doc.SetTitle("ATA DA 1ª SESSÃO ORDINÁRIA")
	doc.SetMeetingDate("10/03/2025")
	doc.SetTime("14:00")
	doc.SetLocation("Sala 3")
	doc.SetParticipants("Membros do colegiado")
	doc.AddAgendaItem("Abertura", "Texto.", "Aprovado.\nRegistrado.")
	doc.SetGeneralMatters("Avisos.")
	doc.SetClosing("Encerrada.")

	want := "# ATA DA 1ª SESSÃO ORDINÁRIA\n" +
		"\n10/03/2025 14:00\n" +
		"\nSala 3\n" +
		"\nMembros do colegiado\n" +
		"\n## PAUTA 1: Abertura\n" +
		"\nTexto.\n" +
		"\nDeliberação: Aprovado.\nDeliberação: Registrado.\n" +
		"\n## ASSUNTOS GERAIS\n" +
		"\nAvisos.\n" +
		"\n---\n" +
		"\nEncerrada.\n"

	assert.Equal(t, want, Export(*doc))
}

func TestExportSkipsEmptySections(t *testing.T) {
	doc := New()
	doc.AddAgendaItem("Única", "", "")

	assert.Equal(t, "#\n\n## PAUTA 1: Única\n", Export(*doc))
}

func TestExportNumbersFromPosition(t *testing.T) {
	doc := Document{AgendaItems: []AgendaItem{{Number: 7, Title: "A"}, {Number: 3, Title: "B"}}}

	out := Export(doc)

	assert.Contains(t, out, "## PAUTA 1: A")
	assert.Contains(t, out, "## PAUTA 2: B")
}

// normalized trims the free-text fields the way a round trip does.
func normalized(doc Document) Document {
	out := Document{
		Header:         Header{Title: strings.TrimSpace(doc.Header.Title)},
		AgendaItems:    make([]AgendaItem, 0, len(doc.AgendaItems)),
		GeneralMatters: strings.TrimSpace(doc.GeneralMatters),
		Closing:        strings.TrimSpace(doc.Closing),
	}
	for i, item := range doc.AgendaItems {
		out.AgendaItems = append(out.AgendaItems, AgendaItem{
			Number:       i + 1,
			Title:        strings.TrimSpace(item.Title),
			Body:         strings.TrimSpace(item.Body),
			Deliberation: strings.TrimSpace(item.Deliberation),
		})
	}
	return out
}

func TestExportImportRoundTrip(t *testing.T) {
	three := New()
	three.SetTitle("ATA DA 4ª SESSÃO EXTRAORDINÁRIA")
	three.AddAgendaItem("Homologação", "A ata anterior foi lida.", "Aprovado por unanimidade.")
	three.AddAgendaItem("Calendário", "Linha um.\nLinha dois.", "")
	three.AddAgendaItem("Monitoria", "Edital apresentado.", "Aprovado.\nPublicar edital.")
	three.SetGeneralMatters("Informes da coordenação.\n\nNovo laboratório.")
	three.SetClosing("Sessão encerrada pela presidência.")

	single := New()
	single.SetTitle("Reunião de planejamento")
	single.AddAgendaItem("Planejamento", "Metas do semestre.", "")

	untitled := New()
	untitled.AddAgendaItem("", "", "")

	bold := New()
	bold.SetTitle("ATA DA 5ª SESSÃO ORDINÁRIA")
	bold.AddAgendaItem("Estágios", "corpo", "**Aprovado** por unanimidade")

	tests := []struct {
		name string
		doc  Document
	}{
		{name: "empty", doc: *New()},
		{name: "single item", doc: *single},
		{name: "untitled empty item", doc: *untitled},
		{name: "three items", doc: *three},
		{name: "bold deliberation", doc: *bold},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			text := Export(tc.doc)
			imported, report := ImportWithReport(text)

			assert.Equal(t, normalized(tc.doc), normalized(imported))
			assert.Zero(t, report.Unclassified)
			assert.Equal(t, text, Export(imported))
		})
	}
}

// Blank lines inside an agenda item body are dropped on import, so paragraph
// breaks collapse to single line breaks after a round trip.
func TestRoundTripCollapsesBodyParagraphs(t *testing.T) {
	doc := New()
	doc.AddAgendaItem("Calendário", "p1\n\np2", "")

	imported := Import(Export(*doc))

	require.Len(t, imported.AgendaItems, 1)
	assert.Equal(t, "p1\np2\n", imported.AgendaItems[0].Body)
	assert.Equal(t, Export(imported), Export(Import(Export(imported))))
}

func TestImportedDraftExportsCanonically(t *testing.T) {
	draft := "ATA DA 2ª SESSÃO\nPAUTA 1 - Orçamento\nValores revisados.\n**Deliberação:** Aprovado.\nNada mais havendo a tratar, a sessão foi encerrada."

	doc := Import(draft)
	require.Len(t, doc.AgendaItems, 1)

	out := Export(doc)
	assert.Equal(t, "# ATA DA 2ª SESSÃO\n"+
		"\n## PAUTA 1: Orçamento\n"+
		"\nValores revisados.\n"+
		"\nDeliberação: Aprovado.\n"+
		"\n---\n"+
		"\nNada mais havendo a tratar, a sessão foi encerrada.\n", out)
	assert.Equal(t, normalized(doc), normalized(Import(out)))
}
