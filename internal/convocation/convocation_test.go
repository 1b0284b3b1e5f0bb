package convocation

import (
	"errors"
	"testing"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var clock = time.Date(2025, time.March, 1, 9, 30, 0, 0, time.UTC)

func validInput() Input {
	return Input{
		Title:      "Convocação para a 10ª Reunião Ordinária",
		Format:     "presencial",
		Date:       "10/03/2025",
		Time:       "14:00",
		AgendaText: "PAUTA 1: Homologação da ata anterior",
	}
}

func TestBuildWithFreeAgendaText(t *testing.T) {
	text, err := BuildAt(validInput(), clock)
	require.NoError(t, err)

	want := "Convocação para a 10ª Reunião Ordinária\n" +
		"Formato: presencial\n" +
		"Data: 10/03/2025\n" +
		"Horário: 14:00\n" +
		"\n" +
		"PAUTA 1: Homologação da ata anterior\n" +
		"\n" +
		"At.te\n" +
		"Coordenação"
	assert.Equal(t, want, text)
}

func TestBuildWithSelectedEntries(t *testing.T) {
	in := validInput()
	in.AgendaText = ""
	in.Signer = "Maria Souza"
	in.Entries = []AgendaEntry{
		{Topic: "Homologação", Description: "Ata da sessão anterior"},
		{Topic: "Estágios", Description: "Novas vagas"},
	}

	text, err := BuildAt(in, clock)
	require.NoError(t, err)

	assert.Contains(t, text, "PAUTA 1: Homologação\nAta da sessão anterior\n\nPAUTA 2: Estágios\nNovas vagas\n\n\nAt.te\nMaria Souza")
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Input)
		field  string
	}{
		{name: "short title", mutate: func(in *Input) { in.Title = "Ata" }, field: "title"},
		{name: "unknown format", mutate: func(in *Input) { in.Format = "REMOTO" }, field: "format"},
		{name: "date layout", mutate: func(in *Input) { in.Date = "2025-03-10" }, field: "date"},
		{name: "impossible date", mutate: func(in *Input) { in.Date = "31/02/2025" }, field: "date"},
		{name: "past date", mutate: func(in *Input) { in.Date = "28/02/2025" }, field: "date"},
		{name: "time layout", mutate: func(in *Input) { in.Time = "25:00" }, field: "time"},
		{name: "short agenda", mutate: func(in *Input) { in.AgendaText = "curta" }, field: "agendaText"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			in := validInput()
			tc.mutate(&in)

			_, err := BuildAt(in, clock)
			require.Error(t, err)

			var errs validation.Errors
			require.True(t, errors.As(err, &errs))
			assert.Contains(t, errs, tc.field)
		})
	}
}

func TestValidateAcceptsToday(t *testing.T) {
	in := validInput()
	in.Date = "01/03/2025"

	_, err := BuildAt(in, clock)
	assert.NoError(t, err)
}
