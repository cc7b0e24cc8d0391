package services

import (
	"context"
	"errors"
	"sync"

	"github.com/shopspring/decimal"

	"fintrack/internal/attachments"
	"fintrack/internal/models"
)

var errStub = errors.New("stub failure")

type stubSuggester struct {
	category models.Category
	err      error
	calls    int
}

func (s *stubSuggester) Categorize(_ context.Context, _ string, _ decimal.Decimal, _ models.TransactionType) (models.Category, error) {
	s.calls++
	return s.category, s.err
}

var _ CategorySuggester = (*stubSuggester)(nil)

type stubStore struct {
	mu        sync.Mutex
	uploadErr error
	uploads   []string
	deleted   []string
}

func (s *stubStore) Upload(_ context.Context, owner, transactionID, filename, _ string, data []byte) (attachments.Attachment, error) {
	if s.uploadErr != nil {
		return attachments.Attachment{}, s.uploadErr
	}
	key := attachments.ObjectKey(owner, transactionID, filename, data)
	s.mu.Lock()
	s.uploads = append(s.uploads, key)
	s.mu.Unlock()
	return attachments.Attachment{Key: key, URL: "https://storage.test/" + key}, nil
}

func (s *stubStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleted = append(s.deleted, key)
	return nil
}

var _ attachments.Store = (*stubStore)(nil)

type recordingPublisher struct {
	mu        sync.Mutex
	err       error
	published []*models.Notification
}

func (p *recordingPublisher) Publish(_ context.Context, n *models.Notification) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.published = append(p.published, n)
	return p.err
}

var _ NotificationPublisher = (*recordingPublisher)(nil)

type stubGenerator struct {
	out    string
	err    error
	prompt string
}

func (g *stubGenerator) Generate(_ context.Context, prompt, _ string) (string, error) {
	g.prompt = prompt
	return g.out, g.err
}

// panickingDetector stands in for a detector whose bug must not fail the write.
type panickingDetector struct{}

func (panickingDetector) Inspect(context.Context, *models.Transaction) error {
	panic("detector exploded")
}
