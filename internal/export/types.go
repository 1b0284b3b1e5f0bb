// Package export renders minutes drafts as plain text, PDF and DOCX.
package export

import (
	"errors"
	"fmt"
	"strings"
)

type Format string

const (
	FormatTXT  Format = "txt"
	FormatPDF  Format = "pdf"
	FormatDOCX Format = "docx"
)

// ParseFormat accepts the query-string spelling of a format.
func ParseFormat(value string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(value))); f {
	case FormatTXT, FormatPDF, FormatDOCX:
		return f, nil
	case "":
		return FormatTXT, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, value)
	}
}

// Request carries the record being exported. Text is the canonical draft.
type Request struct {
	MinutesID     string
	SessionNumber string
	SessionType   string
	MeetingDate   string
	MeetingTime   string
	Committee     string
	Text          string
}

type Result struct {
	Data     []byte
	Filename string
	MimeType string
}

var (
	ErrUnsupportedFormat = errors.New("unsupported export format")
	// ErrPDFDependencyMissing indicates PDF export runtime dependencies are unavailable.
	ErrPDFDependencyMissing = errors.New("export pdf dependency missing")
	// ErrDOCXDependencyMissing indicates DOCX export runtime dependencies are unavailable.
	ErrDOCXDependencyMissing = errors.New("export docx dependency missing")
)

var mimeTypes = map[Format]string{
	FormatTXT:  "text/plain; charset=utf-8",
	FormatPDF:  "application/pdf",
	FormatDOCX: "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
}

// Filename is "ata_<session number>_<session type>.<ext>" with slashes in the
// number turned into dashes and the type lowercased.
func Filename(sessionNumber, sessionType string, format Format) string {
	number := strings.ReplaceAll(strings.TrimSpace(sessionNumber), "/", "-")
	if number == "" {
		number = "sem-numero"
	}
	kind := strings.ToLower(strings.TrimSpace(sessionType))
	if kind == "" {
		kind = "sessao"
	}
	return fmt.Sprintf("ata_%s_%s.%s", number, kind, format)
}
