// Package feedback stores the free-text feedback users send from the app.
package feedback

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/flightkeeper/internal/server/models"
	"github.com/spf13/afero"
)

// Separator goes between two feedback blocks in the file.
var Separator = "\n\n" + strings.Repeat("=", 75) + "\n\n"

// Sink keeps one feedback submission.
type Sink interface {
	Add(ctx context.Context, fb models.FeedbackData) error
}

// Format renders fb as the text block written to the feedback file.
func Format(fb models.FeedbackData, received time.Time) string {
	return fmt.Sprintf("Received: %s\nFrom: %s\nFeedback: %s",
		received.Format("2006/01/02 15:04"), fb.ContactInfo, fb.Feedback)
}

// FileSink appends blocks to a single text file.
type FileSink struct {
	mu   sync.Mutex
	fs   afero.Fs
	path string
	now  func() time.Time
}

func NewFileSink(fs afero.Fs, path string) *FileSink {
	return &FileSink{fs: fs, path: path, now: time.Now}
}

func (s *FileSink) Add(ctx context.Context, fb models.FeedbackData) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.fs.OpenFile(s.path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o660)
	if err != nil {
		return fmt.Errorf("open %s: %w", s.path, err)
	}
	_, werr := f.WriteString(Separator + Format(fb, s.now()))
	if cerr := f.Close(); werr == nil {
		werr = cerr
	}
	if werr != nil {
		return fmt.Errorf("append %s: %w", s.path, werr)
	}
	return nil
}
