package gitrepo

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommitLifecycle(t *testing.T) {
	tempDir := t.TempDir()
	svc := New(tempDir)

	first := Content{
		Text:     "# ATA DA 1ª Sessão\n\n## PAUTA 1: Orçamento\n\nDiscussão.\n",
		Document: json.RawMessage(`{"title": "ATA DA 1ª Sessão", "agendaItems": [{"number": 1}]}`),
	}
	info, changed, err := svc.Commit("ata_1", first, "Ana Lima", "Rascunho gerado")
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Len(t, info.Hash, 7)
	assert.Equal(t, "Rascunho gerado", info.Message)
	assert.Equal(t, "Ana Lima", info.Author)
	assert.Equal(t, 5, info.Added)

	_, err = os.Stat(filepath.Join(tempDir, "ata_1", textFile))
	require.NoError(t, err)

	second := first
	second.Text = "# ATA DA 1ª Sessão\n\n## PAUTA 1: Orçamento\n\nDiscussão revisada.\n"
	info2, changed, err := svc.Commit("ata_1", second, "Ana Lima", "Edição manual")
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, 1, info2.Added)
	assert.Equal(t, 1, info2.Removed)

	head, headInfo, err := svc.Head("ata_1")
	require.NoError(t, err)
	assert.Equal(t, second.Text, head.Text)
	assert.JSONEq(t, string(first.Document), string(head.Document))
	assert.Equal(t, info2.Hash, headInfo.Hash)

	history, err := svc.History("ata_1", 0)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, info2.Hash, history[0].Hash)
	assert.Equal(t, info.Hash, history[1].Hash)

	limited, err := svc.History("ata_1", 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	old, oldInfo, diff, err := svc.Revision("ata_1", info.Hash)
	require.NoError(t, err)
	assert.Equal(t, first.Text, old.Text)
	assert.Equal(t, info.Hash, oldInfo.Hash)
	assert.Contains(t, diff, "+Discussão.")

	_, _, diff, err = svc.Revision("ata_1", info2.Hash)
	require.NoError(t, err)
	assert.Contains(t, diff, "-Discussão.")
	assert.Contains(t, diff, "+Discussão revisada.")
}

func TestCommitSkipsUnchangedContent(t *testing.T) {
	svc := New(t.TempDir())
	content := Content{Text: "# ATA\n", Document: json.RawMessage(`{"a":1,"b":2}`)}

	first, changed, err := svc.Commit("ata_2", content, "Ana", "inicial")
	require.NoError(t, err)
	require.True(t, changed)

	reordered := Content{Text: "# ATA\n", Document: json.RawMessage(`{ "b": 2, "a": 1 }`)}
	again, changed, err := svc.Commit("ata_2", reordered, "Ana", "sem mudança")
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, first.Hash, again.Hash)

	history, err := svc.History("ata_2", 0)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestCommitWithoutDocument(t *testing.T) {
	svc := New(t.TempDir())

	_, _, err := svc.Commit("ata_3", Content{Text: "texto livre"}, "", "")
	require.NoError(t, err)

	head, info, err := svc.Head("ata_3")
	require.NoError(t, err)
	assert.Equal(t, "texto livre", head.Text)
	assert.Nil(t, head.Document)
	assert.Equal(t, "Atualiza ata", info.Message)
}

func TestUnknownRecord(t *testing.T) {
	svc := New(t.TempDir())

	history, err := svc.History("missing", 10)
	require.NoError(t, err)
	assert.Empty(t, history)

	_, _, err = svc.Head("missing")
	assert.ErrorIs(t, err, ErrNoHistory)

	_, _, _, err = svc.Revision("missing", "abc1234")
	assert.ErrorIs(t, err, ErrNoHistory)
}

func TestRemove(t *testing.T) {
	svc := New(t.TempDir())
	_, _, err := svc.Commit("ata_4", Content{Text: "x"}, "Ana", "inicial")
	require.NoError(t, err)

	require.NoError(t, svc.Remove("ata_4"))
	_, _, err = svc.Head("ata_4")
	assert.ErrorIs(t, err, ErrNoHistory)
}

func TestConcurrentCommitsOnSameRecord(t *testing.T) {
	svc := New(t.TempDir())
	_, _, err := svc.Commit("ata_5", Content{Text: "base"}, "Ana", "inicial")
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make(chan error, 5)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _, err := svc.Commit("ata_5", Content{Text: fmt.Sprintf("versão %d", i)}, "Ana", fmt.Sprintf("edição %d", i))
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	history, err := svc.History("ata_5", 0)
	require.NoError(t, err)
	assert.Len(t, history, 6)
}

func TestHasChanges(t *testing.T) {
	base := Content{Text: "a", Document: json.RawMessage(`{"x":1}`)}

	assert.False(t, HasChanges(base, Content{Text: "a", Document: json.RawMessage(`{ "x": 1 }`)}))
	assert.True(t, HasChanges(base, Content{Text: "b", Document: base.Document}))
	assert.True(t, HasChanges(base, Content{Text: "a"}))
	assert.False(t, HasChanges(Content{Text: "a"}, Content{Text: "a", Document: json.RawMessage("null")}))
}

func TestSanitizeEmail(t *testing.T) {
	assert.Equal(t, "Ana.Lima", sanitizeEmail("Ana Lima"))
	assert.Equal(t, "user", sanitizeEmail("@@"))
}
