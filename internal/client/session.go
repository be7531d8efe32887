package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"

	"docchat/internal/models"
)

const UploadConfirmation = "PDF uploaded! You can now ask questions about it."

var ErrNoFile = errors.New("no file selected")

type backend interface {
	Upload(ctx context.Context, name string, body io.Reader) (*models.UploadResponse, error)
	Chat(ctx context.Context, message string) (string, error)
}

// Composer is the chat input field.
type Composer struct {
	mu   sync.Mutex
	text string
}

func (c *Composer) Set(text string) {
	c.mu.Lock()
	c.text = text
	c.mu.Unlock()
}

func (c *Composer) Text() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.text
}

func (c *Composer) Clear() {
	c.Set("")
}

// PendingUpload is a file chosen for upload but not yet sent.
type PendingUpload struct {
	Name string
	Open func() (io.ReadCloser, error)
}

// FileUpload selects the file at path.
func FileUpload(path string) *PendingUpload {
	return &PendingUpload{
		Name: filepath.Base(path),
		Open: func() (io.ReadCloser, error) { return os.Open(path) },
	}
}

// Session drives one interactive conversation: it owns the transcript, the
// input field and the upload selection.
type Session struct {
	Transcript *Transcript
	Composer   *Composer

	api    backend
	logger *zap.Logger

	mu      sync.Mutex
	pending *PendingUpload
	// tail is closed when the most recently submitted chat has settled.
	tail chan struct{}
}

func NewSession(api backend, logger *zap.Logger) *Session {
	return &Session{
		Transcript: NewTranscript(),
		Composer:   &Composer{},
		api:        api,
		logger:     logger,
	}
}

// Select replaces the pending upload.
func (s *Session) Select(f *PendingUpload) {
	s.mu.Lock()
	s.pending = f
	s.mu.Unlock()
}

func (s *Session) Pending() *PendingUpload {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}

// HandleUpload sends the pending file. Without a selection it returns
// ErrNoFile and sends nothing. Otherwise exactly one entry is appended once
// the request settles and the selection is discarded.
func (s *Session) HandleUpload(ctx context.Context) error {
	s.mu.Lock()
	f := s.pending
	s.pending = nil
	s.mu.Unlock()

	if f == nil {
		return ErrNoFile
	}

	if err := s.upload(ctx, f); err != nil {
		s.logger.Warn("upload failed", zap.String("file", f.Name), zap.Error(err))
		s.Transcript.Append(Entry{Origin: OriginError, Text: fmt.Sprintf("Upload failed: %v", err)})
		return err
	}

	s.Transcript.Append(Entry{Origin: OriginBot, Text: UploadConfirmation})
	return nil
}

func (s *Session) upload(ctx context.Context, f *PendingUpload) error {
	body, err := f.Open()
	if err != nil {
		return err
	}
	defer body.Close()

	_, err = s.api.Upload(ctx, f.Name, body)
	return err
}

// Submit sends whatever is in the composer.
func (s *Session) Submit(ctx context.Context) error {
	return s.HandleChat(ctx, s.Composer.Text())
}

// HandleChat sends message to the chat endpoint. Blank input is ignored.
// The user entry is appended and the composer cleared before the request
// is made. Chats are sent one at a time in submission order so answers land
// in the order their questions were asked.
func (s *Session) HandleChat(ctx context.Context, message string) error {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil
	}

	s.mu.Lock()
	s.Transcript.Append(Entry{Origin: OriginUser, Text: message})
	s.Composer.Clear()
	prev := s.tail
	done := make(chan struct{})
	s.tail = done
	s.mu.Unlock()

	if prev != nil {
		select {
		case <-prev:
		case <-ctx.Done():
			// The slot passes on only once the chat ahead has settled.
			go func() {
				<-prev
				close(done)
			}()
			s.Transcript.Append(Entry{Origin: OriginError, Text: fmt.Sprintf("Chat failed: %v", ctx.Err())})
			return ctx.Err()
		}
	}
	defer close(done)

	answer, err := s.api.Chat(ctx, message)
	if err != nil {
		s.logger.Warn("chat failed", zap.Error(err))
		s.Transcript.Append(Entry{Origin: OriginError, Text: fmt.Sprintf("Chat failed: %v", err)})
		return err
	}

	s.Transcript.Append(Entry{Origin: OriginBot, Text: answer})
	return nil
}
