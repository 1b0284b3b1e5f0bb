package app

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"atas/api/internal/export"
	"atas/api/internal/gitrepo"
	"atas/api/internal/metrics"
	"atas/api/internal/minutes"
	"atas/api/internal/search"
	"atas/api/internal/storage"
	"atas/api/internal/store"
	"atas/api/internal/util"
)

const (
	historyLimit        = 50
	processingAuthor    = "Processamento automático"
	enqueueFailedPrefix = "Falha ao enfileirar processamento: "
)

type DocumentView struct {
	Document minutes.Document     `json:"document"`
	Report   minutes.ImportReport `json:"report"`
}

type PreviewView struct {
	Document minutes.Document     `json:"document"`
	Report   minutes.ImportReport `json:"report"`
	Text     string               `json:"text"`
}

type SavedDraft struct {
	Minutes store.Minutes       `json:"-"`
	Text    string              `json:"text"`
	Commit  *gitrepo.CommitInfo `json:"commit"`
}

type RevisionView struct {
	Commit   gitrepo.CommitInfo `json:"commit"`
	Text     string             `json:"text"`
	Document json.RawMessage    `json:"document,omitempty"`
	Diff     string             `json:"diff"`
}

func (s *Service) ListMinutes(ctx context.Context, userID string) ([]store.Minutes, error) {
	return s.store.ListMinutes(ctx, userID)
}

func (s *Service) GetMinutes(ctx context.Context, userID, minutesID string) (store.Minutes, error) {
	return s.store.GetMinutes(ctx, userID, minutesID)
}

// CreateMinutes stores a new record. AUDIO and TRANSCRICAO records are queued
// for processing; MANUAL records wait for the wizard.
func (s *Service) CreateMinutes(ctx context.Context, session Session, in MinutesInput) (store.Minutes, error) {
	in.normalize()
	if err := in.Validate(); err != nil {
		return store.Minutes{}, err
	}
	if in.Mode == store.ModeAudio && !storage.OwnedBy(in.AudioKey, storage.KindAudio, session.UserID) {
		return store.Minutes{}, invalid("audioKey", "is not an uploaded audio file")
	}
	if in.AgendaKey != "" && !storage.OwnedBy(in.AgendaKey, storage.KindAgenda, session.UserID) {
		return store.Minutes{}, invalid("agendaKey", "is not an uploaded agenda file")
	}

	agendaIDs, err := s.existingAgendaIDs(ctx, session.UserID, in.AgendaIDs)
	if err != nil {
		return store.Minutes{}, err
	}

	record := store.Minutes{
		ID:            util.NewID("ata"),
		UserID:        session.UserID,
		SessionNumber: in.SessionNumber,
		SessionType:   in.SessionType,
		MeetingDate:   in.MeetingDate,
		MeetingTime:   in.MeetingTime,
		Mode:          in.Mode,
		AgendaText:    in.AgendaText,
		AgendaIDs:     agendaIDs,
		Attendance:    in.attendance(),
		Status:        store.MinutesPending,
	}
	switch in.Mode {
	case store.ModeAudio:
		record.AudioKey = in.AudioKey
		record.AgendaKey = in.AgendaKey
	case store.ModeTranscript:
		record.Transcript = in.Transcript
		record.AgendaKey = in.AgendaKey
	}

	created, err := s.store.CreateMinutes(ctx, record)
	if err != nil {
		return store.Minutes{}, err
	}
	s.logger.Info("minutes created",
		zap.String("minutes_id", created.ID),
		zap.String("user_id", session.UserID),
		zap.String("mode", created.Mode),
	)

	if created.Mode != store.ModeManual {
		created = s.enqueue(ctx, created)
	}
	s.indexMinutes(created)
	return created, nil
}

func (s *Service) enqueue(ctx context.Context, record store.Minutes) store.Minutes {
	if s.queue == nil {
		s.logger.Warn("no job queue configured; record left pending", zap.String("minutes_id", record.ID))
		return record
	}
	if err := s.queue.Enqueue(ctx, record.ID); err != nil {
		s.logger.Error("enqueue processing", zap.String("minutes_id", record.ID), zap.Error(err))
		message := enqueueFailedPrefix + err.Error()
		if markErr := s.store.SetMinutesStatus(ctx, record.ID, store.MinutesFailed, message); markErr != nil {
			s.logger.Error("mark failed", zap.String("minutes_id", record.ID), zap.Error(markErr))
			return record
		}
		record.Status = store.MinutesFailed
		record.ErrorMessage = message
	}
	return record
}

// Reprocess queues a generated record again, for example after a fallback
// draft was stored.
func (s *Service) Reprocess(ctx context.Context, userID, minutesID string) (store.Minutes, error) {
	record, err := s.store.GetMinutes(ctx, userID, minutesID)
	if err != nil {
		return store.Minutes{}, err
	}
	if record.Mode == store.ModeManual {
		return store.Minutes{}, domainError(http.StatusConflict, "NOT_PROCESSABLE", "Manual minutes are written with the wizard", nil)
	}
	if record.Status == store.MinutesProcessing {
		return store.Minutes{}, domainError(http.StatusConflict, "ALREADY_PROCESSING", "Minutes are already being processed", nil)
	}
	if s.queue == nil {
		return store.Minutes{}, domainError(http.StatusServiceUnavailable, "QUEUE_UNAVAILABLE", "Processing queue is not configured", nil)
	}
	return s.enqueue(ctx, record), nil
}

func (s *Service) existingAgendaIDs(ctx context.Context, userID string, ids []string) ([]string, error) {
	if len(ids) == 0 {
		return []string{}, nil
	}
	entries, err := s.store.GetAgendaEntries(ctx, userID, ids)
	if err != nil {
		return nil, err
	}
	if len(entries) != len(ids) {
		return nil, invalid("agendaIds", "contains unknown agenda entries")
	}
	out := make([]string, 0, len(entries))
	for _, entry := range entries {
		out = append(out, entry.ID)
	}
	return out, nil
}

func (s *Service) UpdateMinutes(ctx context.Context, session Session, minutesID string, in MinutesUpdate) (store.Minutes, error) {
	in.SessionFields.normalize()
	if err := in.SessionFields.Validate(); err != nil {
		return store.Minutes{}, err
	}
	updated, err := s.store.UpdateMinutesMetadata(ctx, store.Minutes{
		ID:            minutesID,
		UserID:        session.UserID,
		SessionNumber: in.SessionNumber,
		SessionType:   in.SessionType,
		MeetingDate:   in.MeetingDate,
		MeetingTime:   in.MeetingTime,
		Attendance:    in.attendance(),
	})
	if err != nil {
		return store.Minutes{}, err
	}
	if in.Draft != nil {
		saved, err := s.saveDraft(ctx, updated, draftChange{
			Text:    *in.Draft,
			Author:  session.UserName,
			Message: "Edita texto da ata",
		})
		if err != nil {
			return store.Minutes{}, err
		}
		updated = saved.Minutes
	}
	s.indexMinutes(updated)
	return updated, nil
}

// DeleteMinutes removes the record and everything derived from it.
func (s *Service) DeleteMinutes(ctx context.Context, userID, minutesID string) error {
	if err := s.store.DeleteMinutes(ctx, userID, minutesID); err != nil {
		return err
	}
	if s.git != nil {
		if err := s.git.Remove(minutesID); err != nil {
			s.logger.Warn("remove history", zap.String("minutes_id", minutesID), zap.Error(err))
		}
	}
	if s.wizards != nil {
		_ = s.wizards.DeleteWizard(ctx, minutesID)
	}
	if s.exporter != nil {
		s.exporter.Invalidate(minutesID)
	}
	if s.search != nil {
		s.search.DeleteMinutes(minutesID)
	}
	return nil
}

// Document imports the stored draft into the section model.
func (s *Service) Document(ctx context.Context, userID, minutesID string) (DocumentView, error) {
	record, err := s.store.GetMinutes(ctx, userID, minutesID)
	if err != nil {
		return DocumentView{}, err
	}
	doc, report := importDraft(record.Draft, "draft")
	return DocumentView{Document: doc, Report: report}, nil
}

// SaveDocument exports an edited section model to canonical text and stores
// it as the new draft.
func (s *Service) SaveDocument(ctx context.Context, session Session, minutesID string, doc minutes.Document) (SavedDraft, error) {
	record, err := s.store.GetMinutes(ctx, session.UserID, minutesID)
	if err != nil {
		return SavedDraft{}, err
	}
	if doc.AgendaItems == nil {
		doc.AgendaItems = []minutes.AgendaItem{}
	}
	doc.Renumber()
	text := minutes.Export(doc)

	raw, err := json.Marshal(doc)
	if err != nil {
		return SavedDraft{}, fmt.Errorf("marshal document: %w", err)
	}
	return s.saveDraft(ctx, record, draftChange{
		Text:     text,
		Document: raw,
		Author:   session.UserName,
		Message:  "Edita seções da ata",
	})
}

// Preview imports arbitrary text without storing anything.
func (s *Service) Preview(text string) PreviewView {
	doc, report := importDraft(text, "preview")
	return PreviewView{Document: doc, Report: report, Text: minutes.Export(doc)}
}

func importDraft(text, source string) (minutes.Document, minutes.ImportReport) {
	doc, report := minutes.ImportWithReport(text)
	metrics.Imports.WithLabelValues(source).Inc()
	metrics.UnclassifiedLines.Observe(float64(report.Unclassified))
	return doc, report
}

// draftChange is a new draft text with its history metadata. Document is
// the section model committed next to the text; when nil it is derived from
// Text. WizardItems, when set, replaces the stored wizard audit trail.
type draftChange struct {
	Text        string
	Document    json.RawMessage
	WizardItems json.RawMessage
	Author      string
	Message     string
}

// saveDraft stores the draft, commits it to the record's history and
// refreshes the export cache and the search index.
func (s *Service) saveDraft(ctx context.Context, record store.Minutes, change draftChange) (SavedDraft, error) {
	update := store.DraftUpdate{Draft: change.Text, WizardItems: change.WizardItems, Status: store.MinutesDone}
	if err := s.store.SaveDraft(ctx, record.ID, update); err != nil {
		return SavedDraft{}, err
	}
	record.Draft = change.Text
	record.Status = store.MinutesDone
	record.ErrorMessage = ""
	if change.WizardItems != nil {
		record.WizardItems = change.WizardItems
	}

	saved := SavedDraft{Minutes: record, Text: change.Text}
	commit, changed, err := s.commit(record.ID, change.Text, change.Document, change.Author, change.Message)
	if err != nil {
		return SavedDraft{}, err
	}
	if changed {
		saved.Commit = &commit
	}
	if s.exporter != nil {
		s.exporter.Invalidate(record.ID)
	}
	s.indexMinutes(record)
	return saved, nil
}

func (s *Service) commit(minutesID, text string, document json.RawMessage, author, message string) (gitrepo.CommitInfo, bool, error) {
	if s.git == nil {
		return gitrepo.CommitInfo{}, false, nil
	}
	if document == nil {
		raw, err := json.Marshal(minutes.Import(text))
		if err != nil {
			return gitrepo.CommitInfo{}, false, fmt.Errorf("marshal document: %w", err)
		}
		document = raw
	}
	commit, changed, err := s.git.Commit(minutesID, gitrepo.Content{Text: text, Document: document}, author, message)
	if err != nil {
		return gitrepo.CommitInfo{}, false, fmt.Errorf("commit minutes history: %w", err)
	}
	return commit, changed, nil
}

// AfterProcessing records a freshly generated draft in history and search.
func (s *Service) AfterProcessing(_ context.Context, record store.Minutes) {
	if _, _, err := s.commit(record.ID, record.Draft, nil, processingAuthor, "Gera rascunho da ata"); err != nil {
		s.logger.Error("commit generated draft", zap.String("minutes_id", record.ID), zap.Error(err))
	}
	if s.exporter != nil {
		s.exporter.Invalidate(record.ID)
	}
	s.indexMinutes(record)
}

func (s *Service) History(ctx context.Context, userID, minutesID string, limit int) ([]gitrepo.CommitInfo, error) {
	if _, err := s.store.GetMinutes(ctx, userID, minutesID); err != nil {
		return nil, err
	}
	if s.git == nil {
		return []gitrepo.CommitInfo{}, nil
	}
	if limit <= 0 || limit > historyLimit {
		limit = historyLimit
	}
	return s.git.History(minutesID, limit)
}

func (s *Service) Revision(ctx context.Context, userID, minutesID, hash string) (RevisionView, error) {
	if _, err := s.store.GetMinutes(ctx, userID, minutesID); err != nil {
		return RevisionView{}, err
	}
	if s.git == nil {
		return RevisionView{}, notFound("Revision not found")
	}
	content, commit, diff, err := s.git.Revision(minutesID, strings.TrimSpace(hash))
	if err != nil {
		return RevisionView{}, notFound("Revision not found")
	}
	return RevisionView{Commit: commit, Text: content.Text, Document: content.Document, Diff: diff}, nil
}

// Export renders the stored draft. Records without text cannot be exported.
func (s *Service) Export(ctx context.Context, session Session, minutesID, format string) (*export.Result, error) {
	parsed, err := export.ParseFormat(format)
	if err != nil {
		return nil, err
	}
	record, err := s.store.GetMinutes(ctx, session.UserID, minutesID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(record.Draft) == "" {
		return nil, domainError(http.StatusConflict, "DRAFT_EMPTY", "Minutes have no text to export yet", nil)
	}
	if s.exporter == nil {
		return nil, domainError(http.StatusServiceUnavailable, "EXPORT_UNAVAILABLE", "Export is not configured", nil)
	}
	return s.exporter.Export(ctx, export.Request{
		MinutesID:     record.ID,
		SessionNumber: record.SessionNumber,
		SessionType:   record.SessionType,
		MeetingDate:   record.MeetingDate,
		MeetingTime:   record.MeetingTime,
		Committee:     session.Committee,
		Text:          record.Draft,
	}, parsed)
}

func (s *Service) indexMinutes(record store.Minutes) {
	if s.search != nil {
		s.search.IndexMinutes(search.MinutesRecordFrom(record))
	}
}
