package app

import (
	"encoding/json"
	"time"

	"atas/api/internal/store"
)

func userView(u store.User) map[string]any {
	return map[string]any{
		"id":        u.ID,
		"email":     u.Email,
		"fullName":  u.FullName,
		"position":  u.Position,
		"committee": u.Committee,
		"role":      u.Role,
		"createdAt": u.CreatedAt.Format(time.RFC3339),
	}
}

func sessionView(session Session) map[string]any {
	return map[string]any{
		"accessToken":  session.Token,
		"refreshToken": session.RefreshToken,
		"userId":       session.UserID,
		"userName":     session.UserName,
		"role":         session.Role,
		"expiresAt":    session.ExpiresAt.Unix(),
	}
}

func memberView(m store.Member) map[string]any {
	return map[string]any{
		"id":        m.ID,
		"name":      m.Name,
		"email":     m.Email,
		"role":      m.Role,
		"createdAt": m.CreatedAt.Format(time.RFC3339),
		"updatedAt": m.UpdatedAt.Format(time.RFC3339),
	}
}

func agendaView(a store.AgendaEntry) map[string]any {
	return map[string]any{
		"id":             a.ID,
		"topic":          a.Topic,
		"description":    a.Description,
		"plannedMeeting": a.PlannedMeeting,
		"status":         a.Status,
		"createdAt":      a.CreatedAt.Format(time.RFC3339),
		"updatedAt":      a.UpdatedAt.Format(time.RFC3339),
	}
}

func convocationView(c store.Convocation) map[string]any {
	var sentAt any
	if c.SentAt != nil {
		sentAt = c.SentAt.Format(time.RFC3339)
	}
	return map[string]any{
		"id":          c.ID,
		"title":       c.Title,
		"format":      c.Format,
		"meetingDate": c.MeetingDate,
		"meetingTime": c.MeetingTime,
		"agendaIds":   nonNilStrings(c.AgendaIDs),
		"body":        c.Body,
		"sentAt":      sentAt,
		"createdAt":   c.CreatedAt.Format(time.RFC3339),
	}
}

// minutesSummary is the list form; it leaves out the large text fields.
func minutesSummary(m store.Minutes) map[string]any {
	return map[string]any{
		"id":            m.ID,
		"sessionNumber": m.SessionNumber,
		"sessionType":   m.SessionType,
		"meetingDate":   m.MeetingDate,
		"meetingTime":   m.MeetingTime,
		"mode":          m.Mode,
		"status":        m.Status,
		"errorMessage":  nilIfEmpty(m.ErrorMessage),
		"createdAt":     m.CreatedAt.Format(time.RFC3339),
		"updatedAt":     m.UpdatedAt.Format(time.RFC3339),
	}
}

func minutesView(m store.Minutes) map[string]any {
	view := minutesSummary(m)
	attendance := m.Attendance
	if attendance == nil {
		attendance = []store.Attendance{}
	}
	view["audioKey"] = nilIfEmpty(m.AudioKey)
	view["agendaKey"] = nilIfEmpty(m.AgendaKey)
	view["agendaText"] = m.AgendaText
	view["transcript"] = m.Transcript
	view["agendaIds"] = nonNilStrings(m.AgendaIDs)
	view["attendance"] = attendance
	view["draft"] = m.Draft
	if len(m.WizardItems) > 0 {
		view["wizardItems"] = json.RawMessage(m.WizardItems)
	} else {
		view["wizardItems"] = nil
	}
	return view
}

func listView[T any](items []T, view func(T) map[string]any) []map[string]any {
	out := make([]map[string]any, 0, len(items))
	for _, item := range items {
		out = append(out, view(item))
	}
	return out
}

func nilIfEmpty(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nonNilStrings(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
