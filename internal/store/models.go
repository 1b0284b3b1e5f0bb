package store

import (
	"encoding/json"
	"time"
)

const (
	MinutesPending    = "PENDENTE"
	MinutesProcessing = "PROCESSANDO"
	MinutesDone       = "CONCLUIDO"
	MinutesFailed     = "FALHA"

	ModeAudio      = "AUDIO"
	ModeTranscript = "TRANSCRICAO"
	ModeManual     = "MANUAL"

	AgendaPending   = "PENDENTE"
	AgendaDiscussed = "DISCUTIDA"
	AgendaApproved  = "APROVADA"
)

type User struct {
	ID           string
	Email        string
	PasswordHash string
	FullName     string
	Position     string
	Committee    string
	Role         string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Member is a committee member ("integrante") registered by a user.
type Member struct {
	ID        string
	UserID    string
	Name      string
	Email     string
	Role      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// AgendaEntry is a registered agenda topic ("pauta").
type AgendaEntry struct {
	ID             string
	UserID         string
	Topic          string
	Description    string
	PlannedMeeting string
	Status         string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type Convocation struct {
	ID          string
	UserID      string
	Title       string
	Format      string
	MeetingDate string
	MeetingTime string
	AgendaIDs   []string
	Body        string
	SentAt      *time.Time
	CreatedAt   time.Time
}

type Attendance struct {
	MemberID      string `json:"memberId"`
	Present       bool   `json:"present"`
	Justification string `json:"justification,omitempty"`
}

// Minutes is one minutes record ("ata"). Draft holds the canonical or
// generated text; WizardItems is the audit trail of a manual authoring run.
type Minutes struct {
	ID            string
	UserID        string
	SessionNumber string
	SessionType   string
	MeetingDate   string
	MeetingTime   string
	Mode          string
	AudioKey      string
	AgendaKey     string
	AgendaText    string
	Transcript    string
	AgendaIDs     []string
	Attendance    []Attendance
	WizardItems   json.RawMessage
	Draft         string
	ErrorMessage  string
	Status        string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// DraftUpdate is the result of processing or authoring written back to a
// minutes record.
type DraftUpdate struct {
	Draft        string
	WizardItems  json.RawMessage
	ErrorMessage string
	Status       string
}
