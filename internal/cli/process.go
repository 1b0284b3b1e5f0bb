package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"atas/api/internal/processing"
	"atas/api/internal/store"
)

const localRecordID = "local"

func NewProcessCmd(deps *Dependencies) *cobra.Command {
	var (
		audioPath      string
		transcriptPath string
		agendaPath     string
		record         store.Minutes
	)

	cmd := &cobra.Command{
		Use:   "process",
		Short: "Generate a draft locally from an audio file or a transcript",
		Long:  "Runs the processing pipeline against local files with the configured providers and prints the resulting draft. Provider failures fall back to the simulated draft, as on the server.",
		RunE: func(cmd *cobra.Command, args []string) error {
			switch {
			case audioPath != "" && transcriptPath != "":
				return errors.New("use either --audio or --transcript, not both")
			case audioPath != "":
				record.Mode = store.ModeAudio
				record.AudioKey = audioPath
			case transcriptPath != "":
				text, err := readInput(cmd, transcriptPath)
				if err != nil {
					return err
				}
				record.Mode = store.ModeTranscript
				record.Transcript = text
			default:
				return errors.New("one of --audio or --transcript is required")
			}
			record.ID = localRecordID
			record.AgendaKey = agendaPath
			if record.MeetingDate == "" {
				record.MeetingDate = time.Now().Format("02/01/2006")
			}

			cfg := deps.Config
			transcriber, generator, err := processing.New(cfg.LLMProvider, cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModel,
				cfg.TranscribeBaseURL, cfg.TranscribeAPIKey, cfg.TranscribeModel)
			if err != nil {
				return err
			}

			local := &localStore{record: record}
			pipeline := processing.NewPipeline(local, localFiles{}, transcriber, generator, cfg.LLMProvider, deps.Logger)
			if err := pipeline.Process(cmd.Context(), localRecordID); err != nil {
				return err
			}
			if local.record.ErrorMessage != "" {
				fmt.Fprintln(cmd.ErrOrStderr(), local.record.ErrorMessage)
			}
			_, err = io.WriteString(cmd.OutOrStdout(), local.record.Draft)
			return err
		},
	}

	cmd.Flags().StringVar(&audioPath, "audio", "", "meeting recording (mp3, wav or m4a)")
	cmd.Flags().StringVar(&transcriptPath, "transcript", "", "meeting transcript text file")
	cmd.Flags().StringVar(&agendaPath, "agenda", "", "agenda file; only .txt content is read")
	cmd.Flags().StringVar(&record.SessionNumber, "number", "1ª", "session number")
	cmd.Flags().StringVar(&record.SessionType, "type", "Ordinária", "session type")
	cmd.Flags().StringVar(&record.MeetingDate, "date", "", "meeting date (DD/MM/AAAA, default today)")
	cmd.Flags().StringVar(&record.MeetingTime, "time", "", "meeting time (HH:MM)")
	return cmd
}

// localStore holds the single record of a command-line run.
type localStore struct {
	record store.Minutes
}

func (s *localStore) GetMinutesByID(_ context.Context, id string) (store.Minutes, error) {
	if id != s.record.ID {
		return store.Minutes{}, fmt.Errorf("unknown record %q", id)
	}
	return s.record, nil
}

func (s *localStore) SetMinutesStatus(_ context.Context, _ string, status, message string) error {
	s.record.Status = status
	s.record.ErrorMessage = message
	return nil
}

func (s *localStore) SaveDraft(_ context.Context, _ string, update store.DraftUpdate) error {
	s.record.Draft = update.Draft
	s.record.ErrorMessage = update.ErrorMessage
	s.record.Status = update.Status
	return nil
}

// localFiles resolves object keys as local paths.
type localFiles struct{}

func (localFiles) Open(_ context.Context, key string) (io.ReadCloser, error) {
	return os.Open(key)
}

func (localFiles) ReadText(_ context.Context, key string, limit int64) (string, error) {
	f, err := os.Open(key)
	if err != nil {
		return "", err
	}
	defer f.Close()
	var b strings.Builder
	if _, err := io.Copy(&b, io.LimitReader(f, limit)); err != nil {
		return "", err
	}
	return b.String(), nil
}
