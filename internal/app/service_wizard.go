package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"atas/api/internal/convocation"
	"atas/api/internal/email"
	"atas/api/internal/session"
	"atas/api/internal/store"
	"atas/api/internal/util"
	"atas/api/internal/wizard"
)

type WizardView struct {
	Index      int                `json:"index"`
	Total      int                `json:"total"`
	Current    wizard.DraftItem   `json:"current"`
	Items      []wizard.DraftItem `json:"items"`
	Fragments  []string           `json:"fragments"`
	FreeText   string             `json:"freeText"`
	Incomplete int                `json:"incomplete"`
}

func wizardView(w *wizard.Session) WizardView {
	return WizardView{
		Index:      w.Index(),
		Total:      w.Len(),
		Current:    w.Current(),
		Items:      w.Items(),
		Fragments:  w.Fragments(),
		FreeText:   w.FreeText(),
		Incomplete: w.Incomplete(),
	}
}

var errWizardMissing = notFound("No wizard session for these minutes")

// StartWizard opens a fresh authoring session, replacing any existing one.
// Without explicit agenda IDs the entries linked to the record are used.
func (s *Service) StartWizard(ctx context.Context, userID, minutesID string, agendaIDs []string) (WizardView, error) {
	if s.wizards == nil {
		return WizardView{}, domainError(http.StatusServiceUnavailable, "WIZARD_UNAVAILABLE", "Wizard sessions are not configured", nil)
	}
	record, err := s.store.GetMinutes(ctx, userID, minutesID)
	if err != nil {
		return WizardView{}, err
	}
	if len(agendaIDs) == 0 {
		agendaIDs = record.AgendaIDs
	}

	var entries []wizard.AgendaEntry
	if len(agendaIDs) > 0 {
		stored, err := s.store.GetAgendaEntries(ctx, userID, agendaIDs)
		if err != nil {
			return WizardView{}, err
		}
		for _, e := range stored {
			entries = append(entries, wizard.AgendaEntry{ID: e.ID, Title: e.Topic, Description: e.Description})
		}
	}

	w := wizard.New(entries)
	if err := s.wizards.SaveWizard(ctx, minutesID, w, s.cfg.WizardTTL); err != nil {
		return WizardView{}, err
	}
	return wizardView(w), nil
}

func (s *Service) loadWizard(ctx context.Context, userID, minutesID string) (*wizard.Session, error) {
	if s.wizards == nil {
		return nil, errWizardMissing
	}
	if _, err := s.store.GetMinutes(ctx, userID, minutesID); err != nil {
		return nil, err
	}
	w, err := s.wizards.LoadWizard(ctx, minutesID)
	if errors.Is(err, session.ErrNotFound) {
		return nil, errWizardMissing
	}
	return w, err
}

func (s *Service) Wizard(ctx context.Context, userID, minutesID string) (WizardView, error) {
	w, err := s.loadWizard(ctx, userID, minutesID)
	if err != nil {
		return WizardView{}, err
	}
	return wizardView(w), nil
}

// EditWizard applies fn to the stored session and saves it back, refreshing
// its TTL. Nothing is saved when fn fails.
func (s *Service) EditWizard(ctx context.Context, userID, minutesID string, fn func(*wizard.Session) error) (WizardView, error) {
	w, err := s.loadWizard(ctx, userID, minutesID)
	if err != nil {
		return WizardView{}, err
	}
	if err := fn(w); err != nil {
		return WizardView{}, err
	}
	if err := s.wizards.SaveWizard(ctx, minutesID, w, s.cfg.WizardTTL); err != nil {
		return WizardView{}, err
	}
	return wizardView(w), nil
}

func (s *Service) DiscardWizard(ctx context.Context, userID, minutesID string) error {
	if _, err := s.loadWizard(ctx, userID, minutesID); err != nil {
		return err
	}
	return s.wizards.DeleteWizard(ctx, minutesID)
}

// FinalizeWizard renders the session into the record's draft, keeps the step
// list as the wizard audit trail and drops the session.
func (s *Service) FinalizeWizard(ctx context.Context, sess Session, minutesID, title string) (SavedDraft, error) {
	w, err := s.loadWizard(ctx, sess.UserID, minutesID)
	if err != nil {
		return SavedDraft{}, err
	}
	record, err := s.store.GetMinutes(ctx, sess.UserID, minutesID)
	if err != nil {
		return SavedDraft{}, err
	}
	if strings.TrimSpace(title) == "" {
		title = fmt.Sprintf("%s SESSÃO %s", record.SessionNumber, strings.ToUpper(record.SessionType))
	}

	result, err := w.Finalize(title)
	if err != nil {
		return SavedDraft{}, err
	}
	items, err := marshalItems(result.Items)
	if err != nil {
		return SavedDraft{}, err
	}
	saved, err := s.saveDraft(ctx, record, draftChange{
		Text:        result.Text,
		WizardItems: items,
		Author:      sess.UserName,
		Message:     "Finaliza ata pelo assistente",
	})
	if err != nil {
		return SavedDraft{}, err
	}
	if err := s.wizards.DeleteWizard(ctx, minutesID); err != nil {
		s.logger.Warn("delete wizard session", zap.String("minutes_id", minutesID), zap.Error(err))
	}
	return saved, nil
}

// Convocations

func (s *Service) convocationInput(ctx context.Context, userID string, in ConvocationInput) (convocation.Input, error) {
	input := convocation.Input{
		Title:      in.Title,
		Format:     in.Format,
		Date:       in.Date,
		Time:       in.Time,
		AgendaText: in.AgendaText,
		Signer:     in.Signer,
	}
	if len(in.AgendaIDs) > 0 {
		entries, err := s.store.GetAgendaEntries(ctx, userID, in.AgendaIDs)
		if err != nil {
			return convocation.Input{}, err
		}
		if len(entries) != len(in.AgendaIDs) {
			return convocation.Input{}, invalid("agendaIds", "contains unknown agenda entries")
		}
		for _, e := range entries {
			input.Entries = append(input.Entries, convocation.AgendaEntry{Topic: e.Topic, Description: e.Description})
		}
	}
	return input, nil
}

// PreviewConvocation renders the text without storing it.
func (s *Service) PreviewConvocation(ctx context.Context, userID string, in ConvocationInput) (string, error) {
	input, err := s.convocationInput(ctx, userID, in)
	if err != nil {
		return "", err
	}
	return convocation.BuildAt(input, s.now())
}

func (s *Service) CreateConvocation(ctx context.Context, userID string, in ConvocationInput) (store.Convocation, error) {
	input, err := s.convocationInput(ctx, userID, in)
	if err != nil {
		return store.Convocation{}, err
	}
	text, err := convocation.BuildAt(input, s.now())
	if err != nil {
		return store.Convocation{}, err
	}
	agendaIDs := in.AgendaIDs
	if agendaIDs == nil {
		agendaIDs = []string{}
	}
	return s.store.CreateConvocation(ctx, store.Convocation{
		ID:          util.NewID("conv"),
		UserID:      userID,
		Title:       strings.TrimSpace(in.Title),
		Format:      strings.ToUpper(strings.TrimSpace(in.Format)),
		MeetingDate: strings.TrimSpace(in.Date),
		MeetingTime: strings.TrimSpace(in.Time),
		AgendaIDs:   agendaIDs,
		Body:        text,
	})
}

func (s *Service) ListConvocations(ctx context.Context, userID string) ([]store.Convocation, error) {
	return s.store.ListConvocations(ctx, userID)
}

// SendConvocation e-mails the stored text to every registered member with an
// address and marks it sent when at least one message went out.
func (s *Service) SendConvocation(ctx context.Context, userID, convocationID string) (store.Convocation, int, error) {
	item, err := s.store.GetConvocation(ctx, userID, convocationID)
	if err != nil {
		return store.Convocation{}, 0, err
	}
	if !s.SMTPConfigured() {
		return store.Convocation{}, 0, email.ErrNotConfigured
	}
	members, err := s.store.ListMembers(ctx, userID)
	if err != nil {
		return store.Convocation{}, 0, err
	}
	recipients := make([]email.Recipient, 0, len(members))
	for _, m := range members {
		if strings.TrimSpace(m.Email) != "" {
			recipients = append(recipients, email.Recipient{Name: m.Name, Email: m.Email})
		}
	}
	if len(recipients) == 0 {
		return store.Convocation{}, 0, domainError(http.StatusUnprocessableEntity, "NO_RECIPIENTS", "No registered member has an e-mail address", nil)
	}

	sent, sendErr := s.mailer.SendConvocation(recipients, item.Title, item.Body)
	if sent == 0 {
		return store.Convocation{}, 0, domainError(http.StatusBadGateway, "SEND_FAILED", "No convocation could be delivered", nil)
	}
	if sendErr != nil {
		s.logger.Warn("convocation partially delivered",
			zap.String("convocation_id", convocationID),
			zap.Int("sent", sent),
			zap.Int("recipients", len(recipients)),
			zap.Error(sendErr),
		)
	}

	now := s.now()
	if err := s.store.MarkConvocationSent(ctx, userID, convocationID, now); err != nil {
		return store.Convocation{}, sent, err
	}
	item.SentAt = &now
	return item, sent, nil
}
