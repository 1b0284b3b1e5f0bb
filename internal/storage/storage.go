// Package storage keeps uploaded meeting audio and agenda documents in an
// S3-compatible object store.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"atas/api/internal/util"
)

type Kind string

const (
	KindAudio  Kind = "audio"
	KindAgenda Kind = "agenda"
)

const (
	maxAudioSize  int64 = 100 << 20
	maxAgendaSize int64 = 10 << 20
)

var (
	ErrUnsupportedType = errors.New("unsupported file type")
	ErrTooLarge        = errors.New("file too large")
	ErrEmptyFile       = errors.New("file is empty")
	ErrObjectNotFound  = errors.New("object not found")
)

type rule struct {
	maxSize      int64
	contentTypes map[string]string
}

// Extensions map to the content type recorded on the stored object.
var rules = map[Kind]rule{
	KindAudio: {
		maxSize: maxAudioSize,
		contentTypes: map[string]string{
			".mp3": "audio/mpeg",
			".wav": "audio/wav",
			".m4a": "audio/mp4",
		},
	},
	KindAgenda: {
		maxSize: maxAgendaSize,
		contentTypes: map[string]string{
			".pdf":  "application/pdf",
			".doc":  "application/msword",
			".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
			".txt":  "text/plain; charset=utf-8",
		},
	},
}

// Upload describes a file received from a client.
type Upload struct {
	Kind     Kind
	UserID   string
	Filename string
	Size     int64
}

type Object struct {
	Key         string `json:"key"`
	Size        int64  `json:"size"`
	ContentType string `json:"contentType"`
}

// ObjectStore is the subset of an S3 client the rest of the API needs.
type ObjectStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Ping(ctx context.Context) error
}

// Validate checks kind, extension and size. It returns the content type the
// object will be stored with.
func (u Upload) Validate() (string, error) {
	err := validation.ValidateStruct(&u,
		validation.Field(&u.Kind, validation.Required, validation.In(KindAudio, KindAgenda)),
		validation.Field(&u.UserID, validation.Required),
		validation.Field(&u.Filename, validation.Required, validation.RuneLength(1, 255)),
	)
	if err != nil {
		return "", err
	}

	r := rules[u.Kind]
	ext := strings.ToLower(path.Ext(u.Filename))
	contentType, ok := r.contentTypes[ext]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedType, ext)
	}
	if u.Size <= 0 {
		return "", ErrEmptyFile
	}
	if u.Size > r.maxSize {
		return "", fmt.Errorf("%w: limit is %d MB", ErrTooLarge, r.maxSize>>20)
	}
	return contentType, nil
}

// MaxSize is the upload limit for kind; ok is false for unknown kinds.
func MaxSize(kind Kind) (int64, bool) {
	r, ok := rules[kind]
	return r.maxSize, ok
}

// ObjectKey builds "<kind>/<userID>/<id><ext>".
func ObjectKey(kind Kind, userID, filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	return path.Join(string(kind), userID, util.NewID("obj")+ext)
}

// OwnedBy reports whether key was produced by ObjectKey for this user and kind.
func OwnedBy(key string, kind Kind, userID string) bool {
	return strings.HasPrefix(key, string(kind)+"/"+userID+"/")
}

// Service validates uploads before handing them to the object store.
type Service struct {
	objects ObjectStore
}

func NewService(objects ObjectStore) *Service {
	return &Service{objects: objects}
}

func (s *Service) Store(ctx context.Context, upload Upload, r io.Reader) (Object, error) {
	contentType, err := upload.Validate()
	if err != nil {
		return Object{}, err
	}
	key := ObjectKey(upload.Kind, upload.UserID, upload.Filename)
	if err := s.objects.Put(ctx, key, io.LimitReader(r, upload.Size), upload.Size, contentType); err != nil {
		return Object{}, fmt.Errorf("store %s: %w", upload.Kind, err)
	}
	return Object{Key: key, Size: upload.Size, ContentType: contentType}, nil
}

func (s *Service) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	return s.objects.Get(ctx, key)
}

// ReadText loads a whole object as text. Used for plain-text agenda files.
func (s *Service) ReadText(ctx context.Context, key string, limit int64) (string, error) {
	rc, err := s.objects.Get(ctx, key)
	if err != nil {
		return "", err
	}
	defer rc.Close()
	data, err := io.ReadAll(io.LimitReader(rc, limit))
	if err != nil {
		return "", fmt.Errorf("read %s: %w", key, err)
	}
	return string(data), nil
}

func (s *Service) Ping(ctx context.Context) error {
	return s.objects.Ping(ctx)
}
