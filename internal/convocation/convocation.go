// Package convocation renders the announcement text sent to committee members
// before a meeting.
package convocation

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

const (
	FormatInPerson = "PRESENCIAL"
	FormatVirtual  = "VIRTUAL"
	FormatHybrid   = "HIBRIDO"

	defaultSigner = "Coordenação"
	dateLayout    = "02/01/2006"
)

var (
	datePattern = regexp.MustCompile(`^\d{2}/\d{2}/\d{4}$`)
	timePattern = regexp.MustCompile(`^([0-1]?[0-9]|2[0-3]):[0-5][0-9]$`)
)

// AgendaEntry is a registered agenda topic listed in the convocation.
type AgendaEntry struct {
	Topic       string `json:"topic"`
	Description string `json:"description"`
}

// Input holds the convocation form. When Entries is non-empty it replaces
// AgendaText.
type Input struct {
	Title      string        `json:"title"`
	Format     string        `json:"format"`
	Date       string        `json:"date"`
	Time       string        `json:"time"`
	AgendaText string        `json:"agendaText"`
	Entries    []AgendaEntry `json:"entries"`
	Signer     string        `json:"signer"`
}

// Validate checks the form against the clock now; the meeting date may not be
// in the past.
func (in Input) Validate(now time.Time) error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Title, validation.Required, validation.RuneLength(5, 200)),
		validation.Field(&in.Format, validation.Required, validation.In(FormatInPerson, FormatVirtual, FormatHybrid)),
		validation.Field(&in.Date, validation.Required, validation.Match(datePattern).Error("must be DD/MM/AAAA"),
			validation.By(notInPast(now))),
		validation.Field(&in.Time, validation.Required, validation.Match(timePattern).Error("must be HH:MM")),
		validation.Field(&in.AgendaText, validation.When(len(in.Entries) == 0,
			validation.Required, validation.RuneLength(10, 5000))),
	)
}

func notInPast(now time.Time) validation.RuleFunc {
	return func(value any) error {
		raw, _ := value.(string)
		if !datePattern.MatchString(raw) {
			return nil
		}
		date, err := time.ParseInLocation(dateLayout, raw, now.Location())
		if err != nil {
			return validation.NewError("validation_date_invalid", "is not a valid calendar date")
		}
		today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
		if date.Before(today) {
			return validation.NewError("validation_date_past", "must not be in the past")
		}
		return nil
	}
}

// Build validates the input against the current time and renders the text.
func Build(in Input) (string, error) {
	return BuildAt(in, time.Now())
}

// BuildAt is Build with an explicit clock.
func BuildAt(in Input, now time.Time) (string, error) {
	in = normalize(in)
	if err := in.Validate(now); err != nil {
		return "", err
	}
	return Render(in), nil
}

// Render produces the convocation text without validating.
func Render(in Input) string {
	signer := strings.TrimSpace(in.Signer)
	if signer == "" {
		signer = defaultSigner
	}

	var b strings.Builder
	b.WriteString(in.Title + "\n")
	fmt.Fprintf(&b, "Formato: %s\n", strings.ToLower(in.Format))
	fmt.Fprintf(&b, "Data: %s\n", in.Date)
	fmt.Fprintf(&b, "Horário: %s\n\n", in.Time)
	b.WriteString(agendaText(in) + "\n\n")
	b.WriteString("At.te\n")
	b.WriteString(signer)
	return b.String()
}

func agendaText(in Input) string {
	if len(in.Entries) == 0 {
		return in.AgendaText
	}
	blocks := make([]string, 0, len(in.Entries))
	for i, entry := range in.Entries {
		blocks = append(blocks, fmt.Sprintf("PAUTA %d: %s\n%s\n", i+1, entry.Topic, entry.Description))
	}
	return strings.Join(blocks, "\n")
}

func normalize(in Input) Input {
	in.Title = strings.TrimSpace(in.Title)
	in.Format = strings.ToUpper(strings.TrimSpace(in.Format))
	in.Date = strings.TrimSpace(in.Date)
	in.Time = strings.TrimSpace(in.Time)
	in.AgendaText = strings.TrimSpace(in.AgendaText)
	return in
}
