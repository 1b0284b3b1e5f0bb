package app

import (
	"regexp"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"atas/api/internal/store"
)

var (
	monthYearPattern = regexp.MustCompile(`^(0[1-9]|1[0-2])/\d{4}$`)
	datePattern      = regexp.MustCompile(`^(0[1-9]|[12]\d|3[01])/(0[1-9]|1[0-2])/\d{4}$`)
	timePattern      = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)
)

const (
	SessionOrdinary      = "Ordinária"
	SessionExtraordinary = "Extraordinária"
)

type MemberInput struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

func (in *MemberInput) normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Role = strings.TrimSpace(in.Role)
}

func (in MemberInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Name, validation.Required, validation.RuneLength(3, 100)),
		validation.Field(&in.Email, validation.Required, is.EmailFormat),
		validation.Field(&in.Role, validation.Required, validation.RuneLength(2, 100)),
	)
}

type AgendaInput struct {
	Topic          string `json:"topic"`
	Description    string `json:"description"`
	PlannedMeeting string `json:"plannedMeeting"`
	Status         string `json:"status"`
}

func (in *AgendaInput) normalize() {
	in.Topic = strings.TrimSpace(in.Topic)
	in.Description = strings.TrimSpace(in.Description)
	in.PlannedMeeting = strings.TrimSpace(in.PlannedMeeting)
	in.Status = strings.ToUpper(strings.TrimSpace(in.Status))
	if in.Status == "" {
		in.Status = store.AgendaPending
	}
}

func (in AgendaInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Topic, validation.Required, validation.RuneLength(3, 200)),
		validation.Field(&in.Description, validation.Required, validation.RuneLength(5, 2000)),
		validation.Field(&in.PlannedMeeting, validation.Required, validation.Match(monthYearPattern).Error("must be MM/AAAA")),
		validation.Field(&in.Status, validation.In(store.AgendaPending, store.AgendaDiscussed, store.AgendaApproved)),
	)
}

type AttendanceInput struct {
	MemberID      string `json:"memberId"`
	Present       bool   `json:"present"`
	Justification string `json:"justification"`
}

func (a AttendanceInput) Validate() error {
	return validation.ValidateStruct(&a,
		validation.Field(&a.MemberID, validation.Required),
		validation.Field(&a.Justification, validation.RuneLength(0, 500)),
	)
}

// SessionFields are the session identifiers shared by create and update.
type SessionFields struct {
	SessionNumber string            `json:"sessionNumber"`
	SessionType   string            `json:"sessionType"`
	MeetingDate   string            `json:"meetingDate"`
	MeetingTime   string            `json:"meetingTime"`
	Attendance    []AttendanceInput `json:"attendance"`
}

func (f *SessionFields) normalize() {
	f.SessionNumber = strings.TrimSpace(f.SessionNumber)
	f.SessionType = strings.TrimSpace(f.SessionType)
	f.MeetingDate = strings.TrimSpace(f.MeetingDate)
	f.MeetingTime = strings.TrimSpace(f.MeetingTime)
}

func (f SessionFields) Validate() error {
	return validation.ValidateStruct(&f,
		validation.Field(&f.SessionNumber, validation.Required, validation.RuneLength(1, 50)),
		validation.Field(&f.SessionType, validation.Required, validation.In(SessionOrdinary, SessionExtraordinary)),
		validation.Field(&f.MeetingDate, validation.Required, validation.Match(datePattern).Error("must be DD/MM/AAAA")),
		validation.Field(&f.MeetingTime, validation.Match(timePattern).Error("must be HH:MM")),
		validation.Field(&f.Attendance),
	)
}

func (f SessionFields) attendance() []store.Attendance {
	out := make([]store.Attendance, 0, len(f.Attendance))
	for _, a := range f.Attendance {
		out = append(out, store.Attendance{MemberID: a.MemberID, Present: a.Present, Justification: strings.TrimSpace(a.Justification)})
	}
	return out
}

type MinutesInput struct {
	SessionFields
	Mode       string   `json:"mode"`
	AudioKey   string   `json:"audioKey"`
	AgendaKey  string   `json:"agendaKey"`
	AgendaText string   `json:"agendaText"`
	Transcript string   `json:"transcript"`
	AgendaIDs  []string `json:"agendaIds"`
}

func (in *MinutesInput) normalize() {
	in.SessionFields.normalize()
	in.Mode = strings.ToUpper(strings.TrimSpace(in.Mode))
	in.AudioKey = strings.TrimSpace(in.AudioKey)
	in.AgendaKey = strings.TrimSpace(in.AgendaKey)
	in.AgendaText = strings.TrimSpace(in.AgendaText)
	in.Transcript = strings.TrimSpace(in.Transcript)
}

func (in MinutesInput) Validate() error {
	if err := in.SessionFields.Validate(); err != nil {
		return err
	}
	return validation.ValidateStruct(&in,
		validation.Field(&in.Mode, validation.Required, validation.In(store.ModeAudio, store.ModeTranscript, store.ModeManual)),
		validation.Field(&in.AudioKey, validation.When(in.Mode == store.ModeAudio, validation.Required)),
		validation.Field(&in.Transcript, validation.When(in.Mode == store.ModeTranscript,
			validation.Required, validation.RuneLength(20, 500000))),
		validation.Field(&in.AgendaText, validation.RuneLength(0, 20000)),
	)
}

// MinutesUpdate edits the session fields; a non-nil Draft replaces the text.
type MinutesUpdate struct {
	SessionFields
	Draft *string `json:"draft"`
}

type ConvocationInput struct {
	Title      string   `json:"title"`
	Format     string   `json:"format"`
	Date       string   `json:"date"`
	Time       string   `json:"time"`
	AgendaText string   `json:"agendaText"`
	AgendaIDs  []string `json:"agendaIds"`
	Signer     string   `json:"signer"`
}
