package pipeline

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/garyjia/expense-refund-pipeline/internal/assembly"
	"github.com/garyjia/expense-refund-pipeline/internal/domain/entity"
	"github.com/garyjia/expense-refund-pipeline/internal/domain/workflow"
	"github.com/garyjia/expense-refund-pipeline/internal/extraction"
	"github.com/garyjia/expense-refund-pipeline/internal/refund"
	"github.com/garyjia/expense-refund-pipeline/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubExtractor struct{}

func (e *stubExtractor) Extract(ctx context.Context, file *entity.UploadedFile) (*entity.RawFields, error) {
	return &entity.RawFields{
		Store:      "Store for " + file.Name,
		TotalPrice: "10.00",
		Concept:    entity.ConceptMeals,
		Date:       "2025-03-15",
	}, nil
}

// slowExtractor records how many extraction calls overlap
type slowExtractor struct {
	mu          sync.Mutex
	delay       time.Duration
	inFlight    int
	maxInFlight int
}

func (e *slowExtractor) Extract(ctx context.Context, file *entity.UploadedFile) (*entity.RawFields, error) {
	e.mu.Lock()
	e.inFlight++
	if e.inFlight > e.maxInFlight {
		e.maxInFlight = e.inFlight
	}
	e.mu.Unlock()

	time.Sleep(e.delay)

	e.mu.Lock()
	e.inFlight--
	e.mu.Unlock()

	return &entity.RawFields{Store: file.Name, TotalPrice: "1.00"}, nil
}

type stubResolver struct{}

func (r *stubResolver) Resolve(ctx context.Context, code string) string { return "1" }

type stubSubmitter struct {
	mu      sync.Mutex
	failFor map[string]bool
	calls   int
}

func (s *stubSubmitter) Submit(ctx context.Context, item *entity.LineItem, receipt *entity.UploadedFile) (string, error) {
	s.mu.Lock()
	s.calls++
	calls := s.calls
	fail := s.failFor[receipt.Name]
	s.mu.Unlock()

	if fail {
		return "", fmt.Errorf("submission failed: status 502")
	}
	return fmt.Sprintf("rf-%d", calls), nil
}

func newTestService(submitter refund.Submitter) *Service {
	logger := zap.NewNop()
	return NewService(
		session.NewManager(time.Hour, logger),
		extraction.NewOrchestrator(&stubExtractor{}, time.Second, 0, logger),
		assembly.NewAssembler(&stubResolver{}, logger),
		refund.NewDispatcher(submitter, logger),
		nil, // directory
		nil, // history
		nil, // reports
		nil, // db
		logger,
	)
}

func uploadedFile(name string) *entity.UploadedFile {
	return &entity.UploadedFile{
		Name:     name,
		MIMEType: "application/pdf",
		Size:     512,
		Content:  []byte("%PDF-"),
	}
}

// driveToConfirmation pushes a fresh session through upload, extraction and
// review with the given files selected.
func driveToConfirmation(t *testing.T, svc *Service, names ...string) *session.Session {
	t.Helper()
	ctx := context.Background()

	sess, err := svc.CreateSession("user@corp.test")
	require.NoError(t, err)

	files := make([]*entity.UploadedFile, len(names))
	for i, name := range names {
		files[i] = uploadedFile(name)
	}
	_, err = svc.AddFiles(ctx, sess.ID(), files)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		p := sess.GetProgress()
		return p.Current == p.Total
	}, 2*time.Second, 5*time.Millisecond, "extraction queue should drain")

	_, err = svc.Review(ctx, sess.ID())
	require.NoError(t, err)
	require.NoError(t, sess.Confirm(ctx))

	return sess
}

func TestService_CreateSessionRejectsBadEmail(t *testing.T) {
	svc := newTestService(&stubSubmitter{})

	_, err := svc.CreateSession("not-an-email")

	assert.Error(t, err)
}

func TestService_SubmitAllSucceededClearsSession(t *testing.T) {
	svc := newTestService(&stubSubmitter{})
	sess := driveToConfirmation(t, svc, "a.pdf", "b.pdf")

	result, err := svc.Submit(context.Background(), sess.ID())

	require.NoError(t, err)
	assert.Equal(t, 2, result.Succeeded)
	assert.Equal(t, 0, result.Failed)
	require.Len(t, result.Items, 2)
	assert.NotEmpty(t, result.Items[0].RefundID)
	assert.Equal(t, workflow.StateUpload, sess.State(), "a fully submitted batch resets the wizard")
	assert.Empty(t, sess.Snapshot().Items)
}

func TestService_SubmitPartialFailureKeepsSession(t *testing.T) {
	submitter := &stubSubmitter{failFor: map[string]bool{"b.pdf": true}}
	svc := newTestService(submitter)
	sess := driveToConfirmation(t, svc, "a.pdf", "b.pdf")

	result, err := svc.Submit(context.Background(), sess.ID())

	require.Error(t, err)
	require.NotNil(t, result)
	assert.Equal(t, 1, result.Succeeded)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, workflow.StateConfirmation, sess.State(), "a failed round must stay retryable")

	var failed *SubmitItemResult
	for i := range result.Items {
		if result.Items[i].FileName == "b.pdf" {
			failed = &result.Items[i]
		}
	}
	require.NotNil(t, failed)
	assert.Contains(t, failed.Error, "status 502")
	assert.Empty(t, failed.RefundID)
}

func TestService_AppendedFilesExtractSequentially(t *testing.T) {
	logger := zap.NewNop()
	extractor := &slowExtractor{delay: 50 * time.Millisecond}
	svc := NewService(
		session.NewManager(time.Hour, logger),
		extraction.NewOrchestrator(extractor, time.Second, 0, logger),
		assembly.NewAssembler(&stubResolver{}, logger),
		refund.NewDispatcher(&stubSubmitter{}, logger),
		nil,
		nil,
		nil,
		nil,
		logger,
	)
	ctx := context.Background()

	sess, err := svc.CreateSession("user@corp.test")
	require.NoError(t, err)

	_, err = svc.AddFiles(ctx, sess.ID(), []*entity.UploadedFile{
		uploadedFile("a.pdf"), uploadedFile("b.pdf"),
	})
	require.NoError(t, err)

	// Append while the first batch is still extracting
	time.Sleep(20 * time.Millisecond)
	_, err = svc.AddFiles(ctx, sess.ID(), []*entity.UploadedFile{uploadedFile("c.pdf")})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		p := sess.GetProgress()
		return p.Total == 3 && p.Current == 3
	}, 3*time.Second, 5*time.Millisecond, "all three files should drain")

	extractor.mu.Lock()
	defer extractor.mu.Unlock()
	assert.Equal(t, 1, extractor.maxInFlight, "extraction calls must never overlap across appends")
}

func TestService_SubmitRequiresConfirmation(t *testing.T) {
	svc := newTestService(&stubSubmitter{})
	sess, err := svc.CreateSession("user@corp.test")
	require.NoError(t, err)

	_, err = svc.Submit(context.Background(), sess.ID())

	assert.ErrorIs(t, err, session.ErrInvalidStage)
}

func TestService_UnknownSession(t *testing.T) {
	svc := newTestService(&stubSubmitter{})

	_, err := svc.AddFiles(context.Background(), "missing", []*entity.UploadedFile{uploadedFile("a.pdf")})

	assert.ErrorIs(t, err, session.ErrSessionNotFound)
}
