package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"atas/api/internal/minutes"
)

const draft = `# ATA DA 3ª SESSÃO ORDINÁRIA

## PAUTA 1: Orçamento

Proposta apresentada pela coordenação.

Deliberação: Aprovado por unanimidade.
`

func execute(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("ATAS_LLM_PROVIDER", "simulated")

	var stdout, stderr bytes.Buffer
	cmd := NewRootCmd(&Dependencies{Logger: zap.NewNop()})
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestImportPrintsDocumentAndReport(t *testing.T) {
	out, _, err := execute(t, draft, "import", "-")
	require.NoError(t, err)

	var got struct {
		Document minutes.Document     `json:"document"`
		Report   minutes.ImportReport `json:"report"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "ATA DA 3ª SESSÃO ORDINÁRIA", got.Document.Header.Title)
	require.Len(t, got.Document.AgendaItems, 1)
	assert.Equal(t, "Orçamento", got.Document.AgendaItems[0].Title)
	assert.Equal(t, "Aprovado por unanimidade.", got.Document.AgendaItems[0].Deliberation)
	assert.Positive(t, got.Report.Lines)
}

func TestExportRenumbersModel(t *testing.T) {
	doc := minutes.Document{
		Header: minutes.Header{Title: "ATA DA 4ª SESSÃO"},
		AgendaItems: []minutes.AgendaItem{
			{Number: 7, Title: "Estágios", Body: "Relatos."},
			{Number: 2, Title: "Monitoria", Body: "Editais."},
		},
	}
	raw, err := json.Marshal(doc)
	require.NoError(t, err)
	path := writeFile(t, "model.json", string(raw))

	out, _, err := execute(t, "", "export", path)
	require.NoError(t, err)
	assert.Contains(t, out, "## PAUTA 1: Estágios")
	assert.Contains(t, out, "## PAUTA 2: Monitoria")
}

func TestExportRejectsInvalidModel(t *testing.T) {
	_, _, err := execute(t, "{not json", "export", "-")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode -")
}

func TestRenderTextToStdout(t *testing.T) {
	out, _, err := execute(t, draft, "render", "-", "--format", "txt", "-o", "-")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "# ATA DA 3ª SESSÃO ORDINÁRIA\n"))
	assert.Contains(t, out, "## PAUTA 1: Orçamento")
	assert.Contains(t, out, "Deliberação: Aprovado por unanimidade.")
}

func TestRenderWritesFile(t *testing.T) {
	target := filepath.Join(t.TempDir(), "ata.txt")
	_, stderr, err := execute(t, draft, "render", "-", "-o", target)
	require.NoError(t, err)
	assert.Contains(t, stderr, "wrote "+target)

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Contains(t, string(data), "## PAUTA 1: Orçamento")
}

func TestRenderRejectsUnknownFormat(t *testing.T) {
	_, _, err := execute(t, draft, "render", "-", "--format", "odt")
	require.Error(t, err)
}

func TestConvocation(t *testing.T) {
	date := time.Now().AddDate(0, 0, 7).Format("02/01/2006")
	agenda := writeFile(t, "pauta.txt", "PAUTA 1: Orçamento do semestre")

	out, _, err := execute(t, "", "convocation",
		"--title", "Reunião Ordinária do Colegiado",
		"--format", "virtual",
		"--date", date,
		"--time", "14:00",
		"--agenda-file", agenda,
		"--signer", "Prof. Coordenador",
	)
	require.NoError(t, err)
	assert.Contains(t, out, "Formato: virtual")
	assert.Contains(t, out, "Data: "+date)
	assert.Contains(t, out, "PAUTA 1: Orçamento do semestre")
	assert.True(t, strings.HasSuffix(out, "At.te\nProf. Coordenador\n"))
}

func TestConvocationRejectsPastDate(t *testing.T) {
	_, _, err := execute(t, "", "convocation",
		"--title", "Reunião Ordinária do Colegiado",
		"--date", "01/01/2020",
		"--time", "14:00",
		"--agenda", "PAUTA 1: Orçamento do semestre",
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must not be in the past")
}

func TestProcessTranscript(t *testing.T) {
	transcript := writeFile(t, "transcricao.txt", "O presidente abriu a sessão e a pauta foi discutida.")

	out, _, err := execute(t, "", "process",
		"--transcript", transcript,
		"--number", "5ª",
		"--type", "Extraordinária",
		"--date", "10/03/2026",
		"--time", "09:30",
	)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "# ATA DA 5ª SESSÃO EXTRAORDINÁRIA"))
	assert.Contains(t, out, "às 09:30")
	assert.Contains(t, out, "versão simulada")
}

func TestProcessAudio(t *testing.T) {
	audio := writeFile(t, "reuniao.mp3", "ID3 fake audio")

	out, stderr, err := execute(t, "", "process", "--audio", audio)
	require.NoError(t, err)
	assert.Contains(t, out, "# ATA DA 1ª SESSÃO ORDINÁRIA")
	assert.Empty(t, stderr)
}

func TestProcessMissingAudioFallsBack(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nada.mp3")

	out, stderr, err := execute(t, "", "process", "--audio", missing)
	require.NoError(t, err)
	assert.Contains(t, out, "modo de fallback")
	assert.Contains(t, stderr, "open audio")
}

func TestProcessInputFlags(t *testing.T) {
	_, _, err := execute(t, "", "process")
	require.Error(t, err)

	transcript := writeFile(t, "t.txt", "texto")
	_, _, err = execute(t, "", "process", "--audio", "a.mp3", "--transcript", transcript)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not both")
}

func TestMigrateNeedsDatabaseURL(t *testing.T) {
	t.Setenv("ATAS_DATABASE_URL", "")
	_, _, err := execute(t, "", "migrate")
	require.Error(t, err)
}

func TestExplicitConfigMustDecode(t *testing.T) {
	path := writeFile(t, "config.toml", "llm = [broken")
	_, _, err := execute(t, draft, "--config", path, "import", "-")
	require.Error(t, err)
}
