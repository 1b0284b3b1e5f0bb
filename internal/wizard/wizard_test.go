package wizard

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"atas/api/internal/minutes"
)

func strPtr(v string) *string { return &v }

func entries() []AgendaEntry {
	return []AgendaEntry{
		{ID: "pauta_1", Title: "Homologação da ata anterior", Description: "Leitura da ata da sessão anterior"},
		{ID: "pauta_2", Title: "Orçamento", Description: "Análise do orçamento anual"},
	}
}

func TestNewWithoutEntriesBuildsPlaceholder(t *testing.T) {
	s := New(nil)

	items := s.Items()
	require.Len(t, items, 2)
	assert.False(t, items[0].IsGeneralMattersSlot)
	assert.Nil(t, items[0].SourceAgendaID)
	assert.Equal(t, "Conteúdo da Reunião", items[0].Title)
	assert.True(t, items[1].IsGeneralMattersSlot)
	assert.Equal(t, 0, s.Index())
	assert.Equal(t, 1, s.Incomplete())
}

func TestNewCopiesEntries(t *testing.T) {
	s := New(entries())

	items := s.Items()
	require.Len(t, items, 3)
	require.NotNil(t, items[0].SourceAgendaID)
	assert.Equal(t, "pauta_1", *items[0].SourceAgendaID)
	assert.Equal(t, "Orçamento", items[1].Title)
	assert.Equal(t, "Análise do orçamento anual", items[1].Description)
	for _, item := range items {
		assert.False(t, item.Completed)
		assert.Empty(t, item.TranscriptExcerpt)
	}
	assert.True(t, items[2].IsGeneralMattersSlot)
}

func TestNavigationClamps(t *testing.T) {
	s := New(entries())

	assert.Equal(t, 0, s.Previous())
	assert.Equal(t, 1, s.Next())
	assert.Equal(t, 2, s.Next())
	assert.Equal(t, 2, s.Next())
	assert.Equal(t, 0, s.JumpTo(-4))
	assert.Equal(t, 2, s.JumpTo(99))
	assert.Equal(t, 1, s.JumpTo(1))
	assert.False(t, s.Current().IsGeneralMattersSlot)
}

func TestSaveRegularStepRequiresExcerpt(t *testing.T) {
	s := New(entries())

	require.NoError(t, s.UpdateStep(StepUpdate{Excerpt: strPtr("   ")}))
	assert.ErrorIs(t, s.SaveCurrentStep(), ErrEmptyExcerpt)
	assert.False(t, s.Current().Completed)
	assert.Equal(t, 0, s.Index())

	require.NoError(t, s.UpdateStep(StepUpdate{Excerpt: strPtr("A ata foi lida.")}))
	require.NoError(t, s.SaveCurrentStep())
	assert.Equal(t, 1, s.Index())
	assert.True(t, s.Items()[0].Completed)
}

func TestUpdateStepOnGeneralMattersFails(t *testing.T) {
	s := New(nil)
	s.JumpTo(1)

	assert.ErrorIs(t, s.UpdateStep(StepUpdate{Notes: strPtr("x")}), ErrNotRegular)
}

func TestFragmentsOnlyOnGeneralMatters(t *testing.T) {
	s := New(nil)

	assert.ErrorIs(t, s.AddFragment(), ErrNotGeneral)
	assert.ErrorIs(t, s.SetFreeText("x"), ErrNotGeneral)
}

func TestFragmentEditing(t *testing.T) {
	s := New(nil)
	s.JumpTo(1)

	assert.Equal(t, []string{""}, s.Fragments())
	require.NoError(t, s.SetFragment(0, "Primeiro informe."))
	require.NoError(t, s.AddFragment())
	require.NoError(t, s.SetFragment(1, "Segundo informe."))
	assert.Equal(t, []string{"Primeiro informe.", "Segundo informe."}, s.Fragments())

	require.NoError(t, s.RemoveFragment(0))
	assert.Equal(t, []string{"Segundo informe."}, s.Fragments())
	require.NoError(t, s.RemoveFragment(0))
	assert.Equal(t, []string{""}, s.Fragments())

	assert.ErrorIs(t, s.SetFragment(3, "x"), ErrFragmentGone)
	assert.ErrorIs(t, s.RemoveFragment(-1), ErrFragmentGone)
}

func TestSaveGeneralMattersCombinesFragments(t *testing.T) {
	s := New(nil)
	s.JumpTo(1)
	require.NoError(t, s.SetFragment(0, "Informe um."))
	require.NoError(t, s.AddFragment())
	require.NoError(t, s.AddFragment())
	require.NoError(t, s.SetFragment(2, "Informe dois."))

	require.NoError(t, s.SaveCurrentStep())

	current := s.Current()
	assert.True(t, current.Completed)
	assert.Equal(t, "Informe um.\n\nInforme dois.", current.TranscriptExcerpt)
}

func TestSaveGeneralMattersFreeTextWins(t *testing.T) {
	s := New(nil)
	s.JumpTo(1)
	require.NoError(t, s.SetFragment(0, "Fragmento."))
	require.NoError(t, s.SetFreeText("Texto final redigido."))

	require.NoError(t, s.SaveCurrentStep())

	assert.Equal(t, "Texto final redigido.", s.Current().TranscriptExcerpt)
}

func TestSaveGeneralMattersBlankFreeTextKeepsFragments(t *testing.T) {
	s := New(nil)
	s.JumpTo(1)
	require.NoError(t, s.AddFragment())
	require.NoError(t, s.SetFragment(0, "Informe da secretaria."))
	require.NoError(t, s.SetFreeText("   \n"))

	require.NoError(t, s.SaveCurrentStep())

	assert.Equal(t, "Informe da secretaria.", s.Current().TranscriptExcerpt)
}

func TestClearingExcerptReopensSavedStep(t *testing.T) {
	s := New(entries())
	require.NoError(t, s.UpdateStep(StepUpdate{Excerpt: strPtr("A ata foi lida.")}))
	require.NoError(t, s.SaveCurrentStep())
	s.JumpTo(0)
	require.True(t, s.Current().Completed)

	require.NoError(t, s.UpdateStep(StepUpdate{Excerpt: strPtr("  ")}))

	assert.False(t, s.Current().Completed)
	assert.Equal(t, 2, s.Incomplete())
}

func TestSaveEmptyGeneralMattersSucceeds(t *testing.T) {
	s := New(nil)
	require.NoError(t, s.UpdateStep(StepUpdate{Excerpt: strPtr("Conteúdo.")}))
	require.NoError(t, s.SaveCurrentStep())
	require.Equal(t, 1, s.Index())

	require.NoError(t, s.SaveCurrentStep())
	assert.True(t, s.Current().Completed)

	res, err := s.Finalize("1ª Sessão")
	require.NoError(t, err)
	assert.Contains(t, res.Text, "## ASSUNTOS GERAIS\n\nNada a registrar.\n")
}

func TestFinalizeRefusesIncomplete(t *testing.T) {
	s := New(entries())
	require.NoError(t, s.UpdateStep(StepUpdate{Excerpt: strPtr("Lida e aprovada.")}))
	require.NoError(t, s.SaveCurrentStep())

	res, err := s.Finalize("10ª Sessão Ordinária")

	var incomplete *IncompleteError
	require.True(t, errors.As(err, &incomplete))
	assert.Equal(t, 1, incomplete.Count)
	assert.Empty(t, res.Text)
	assert.Nil(t, res.Items)
	assert.False(t, s.Finalized())
}

func TestFinalizeIgnoresGeneralMattersCompletion(t *testing.T) {
	s := New(nil)
	require.NoError(t, s.UpdateStep(StepUpdate{Excerpt: strPtr("Conteúdo discutido.")}))
	require.NoError(t, s.SaveCurrentStep())

	_, err := s.Finalize("2ª Sessão")
	assert.NoError(t, err)
}

func TestFinalizeText(t *testing.T) {
	s := New(entries())
	require.NoError(t, s.UpdateStep(StepUpdate{
		Excerpt:      strPtr("A ata foi lida."),
		Deliberation: strPtr("Aprovada por unanimidade."),
	}))
	require.NoError(t, s.SaveCurrentStep())
	require.NoError(t, s.UpdateStep(StepUpdate{
		Excerpt: strPtr("Valores apresentados."),
		Notes:   strPtr("Retomar na próxima sessão."),
	}))
	require.NoError(t, s.SaveCurrentStep())
	require.NoError(t, s.SetFreeText("Informes gerais."))
	require.NoError(t, s.SaveCurrentStep())

	res, err := s.Finalize("10ª Sessão Ordinária")
	require.NoError(t, err)

	want := "# ATA DA 10ª Sessão Ordinária\n\n" +
		"\n## PAUTA 1: Homologação da ata anterior\n\n" +
		"**Descrição:** Leitura da ata da sessão anterior\n\n" +
		"**Discussão:**\nA ata foi lida.\n\n" +
		"**Deliberação:** Aprovada por unanimidade.\n\n" +
		"\n## PAUTA 2: Orçamento\n\n" +
		"**Descrição:** Análise do orçamento anual\n\n" +
		"**Discussão:**\nValores apresentados.\n\n" +
		"**Observações:** Retomar na próxima sessão.\n\n" +
		"\n## ASSUNTOS GERAIS\n\n" +
		"Informes gerais.\n"
	assert.Equal(t, want, res.Text)
	require.Len(t, res.Items, 3)
	assert.True(t, res.Items[2].IsGeneralMattersSlot)
	assert.True(t, s.Finalized())

	_, err = s.Finalize("again")
	assert.ErrorIs(t, err, ErrFinalized)
	assert.ErrorIs(t, s.SaveCurrentStep(), ErrFinalized)
}

func TestFinalizedTextImports(t *testing.T) {
	s := New(entries())
	require.NoError(t, s.UpdateStep(StepUpdate{Excerpt: strPtr("A ata foi lida."), Deliberation: strPtr("Aprovada.")}))
	require.NoError(t, s.SaveCurrentStep())
	require.NoError(t, s.UpdateStep(StepUpdate{Excerpt: strPtr("Valores apresentados.")}))
	require.NoError(t, s.SaveCurrentStep())

	res, err := s.Finalize("ATA DA 3ª Sessão")
	require.NoError(t, err)

	doc := minutes.Import(res.Text)
	assert.Equal(t, "ATA DA 3ª Sessão", doc.Header.Title)
	require.Len(t, doc.AgendaItems, 2)
	assert.Equal(t, "Homologação da ata anterior", doc.AgendaItems[0].Title)
	assert.Contains(t, doc.AgendaItems[0].Body, "A ata foi lida.")
	assert.Equal(t, "Aprovada.", doc.AgendaItems[0].Deliberation)
	assert.Equal(t, "Orçamento", doc.AgendaItems[1].Title)
	assert.Contains(t, doc.GeneralMatters, "Nada a registrar.")
}

func TestTitleLine(t *testing.T) {
	assert.Equal(t, "# ATA DA 5ª Sessão", titleLine("5ª Sessão"))
	assert.Equal(t, "# ATA DA 5ª Sessão", titleLine("# ATA DA 5ª Sessão"))
	assert.Equal(t, "# ata da reunião", titleLine("ata da reunião"))
	assert.Equal(t, "# ATA DA", titleLine(""))
}

func TestSessionJSONRoundTrip(t *testing.T) {
	s := New(entries())
	require.NoError(t, s.UpdateStep(StepUpdate{Excerpt: strPtr("Lida.")}))
	require.NoError(t, s.SaveCurrentStep())

	data, err := json.Marshal(s)
	require.NoError(t, err)

	restored := &Session{}
	require.NoError(t, json.Unmarshal(data, restored))
	assert.Equal(t, s.Items(), restored.Items())
	assert.Equal(t, 1, restored.Index())
	assert.Equal(t, []string{""}, restored.Fragments())
}

func TestUnmarshalRepairsInvariants(t *testing.T) {
	restored := &Session{}
	require.NoError(t, json.Unmarshal([]byte(`{"regular":[],"general":{},"cursor":42}`), restored))

	assert.Equal(t, 2, restored.Len())
	assert.Equal(t, 1, restored.Index())
	assert.Equal(t, []string{""}, restored.Fragments())
}
