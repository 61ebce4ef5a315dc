// Package pipeline coordinates the wizard sessions with the extraction,
// assembly, submission and persistence components.
package pipeline

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/garyjia/expense-refund-pipeline/internal/assembly"
	"github.com/garyjia/expense-refund-pipeline/internal/directory"
	"github.com/garyjia/expense-refund-pipeline/internal/domain/entity"
	"github.com/garyjia/expense-refund-pipeline/internal/extraction"
	"github.com/garyjia/expense-refund-pipeline/internal/refund"
	"github.com/garyjia/expense-refund-pipeline/internal/report"
	"github.com/garyjia/expense-refund-pipeline/internal/repository"
	"github.com/garyjia/expense-refund-pipeline/internal/session"
	"github.com/garyjia/expense-refund-pipeline/pkg/database"
	"github.com/garyjia/expense-refund-pipeline/pkg/utils"
	"go.uber.org/zap"
)

// Service wires the wizard to its backends. HTTP handlers call it and never
// touch the components directly.
type Service struct {
	sessions     *session.Manager
	orchestrator *extraction.Orchestrator
	assembler    *assembly.Assembler
	dispatcher   *refund.Dispatcher
	directory    *directory.Client
	history      *repository.SubmissionRepository
	reports      *report.Writer // nil when reports are disabled
	db           *database.DB
	logger       *zap.Logger
}

// NewService creates the pipeline service
func NewService(
	sessions *session.Manager,
	orchestrator *extraction.Orchestrator,
	assembler *assembly.Assembler,
	dispatcher *refund.Dispatcher,
	directoryClient *directory.Client,
	history *repository.SubmissionRepository,
	reports *report.Writer,
	db *database.DB,
	logger *zap.Logger,
) *Service {
	return &Service{
		sessions:     sessions,
		orchestrator: orchestrator,
		assembler:    assembler,
		dispatcher:   dispatcher,
		directory:    directoryClient,
		history:      history,
		reports:      reports,
		db:           db,
		logger:       logger,
	}
}

// CreateSession starts a new wizard session for the given owner
func (s *Service) CreateSession(ownerEmail string) (*session.Session, error) {
	if err := utils.ValidateEmail(ownerEmail); err != nil {
		return nil, err
	}
	return s.sessions.Create(ownerEmail), nil
}

// GetSession returns a live session by id
func (s *Service) GetSession(id string) (*session.Session, error) {
	return s.sessions.Get(id)
}

// AddFiles accepts files into a session and makes sure an extraction drain
// loop is running for it. The loop outlives the HTTP request, so it gets its
// own context; a stale run is neutralized by the session's epoch check
// rather than cancelled.
func (s *Service) AddFiles(ctx context.Context, sessionID string, files []*entity.UploadedFile) (session.Snapshot, error) {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return session.Snapshot{}, err
	}

	start, err := sess.AddFiles(ctx, files)
	if err != nil {
		return session.Snapshot{}, err
	}

	if start {
		go s.drain(sess)
	}

	return sess.Snapshot(), nil
}

// drain runs one session's extraction queue to completion. At most one
// drain loop exists per session, so files appended mid-run are extracted by
// the already-running loop and the one-call-at-a-time limit holds across
// appends.
func (s *Service) drain(sess *session.Session) {
	for {
		jobs, sink := sess.NextJobs()
		if len(jobs) == 0 {
			return
		}
		s.orchestrator.Run(context.Background(), jobs, sink)
	}
}

// Review advances a session into the review stage
func (s *Service) Review(ctx context.Context, sessionID string) (session.Snapshot, error) {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return session.Snapshot{}, err
	}

	if err := sess.EnterReview(ctx, s.assembler); err != nil {
		return session.Snapshot{}, err
	}

	return sess.Snapshot(), nil
}

// SubmitResult summarizes one submission round
type SubmitResult struct {
	Succeeded  int                `json:"succeeded"`
	Failed     int                `json:"failed"`
	Items      []SubmitItemResult `json:"items"`
	ReportPath string             `json:"reportPath,omitempty"`
}

// SubmitItemResult is the per-item outcome of one submission round
type SubmitItemResult struct {
	Index    int    `json:"index"`
	FileName string `json:"fileName"`
	RefundID string `json:"refundId,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Submit dispatches the confirmed selection to the refund backend, persists
// the outcome and clears the session when every item went through. On a
// partial failure the session stays in confirmation so the round can be
// retried.
func (s *Service) Submit(ctx context.Context, sessionID string) (*SubmitResult, error) {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}

	submissions, err := sess.SubmissionSet()
	if err != nil {
		return nil, err
	}

	result, dispatchErr := s.dispatcher.Dispatch(ctx, submissions)
	if result == nil {
		return nil, dispatchErr
	}

	records := buildRecords(sessionID, sess.OwnerEmail(), submissions, result)
	s.persistHistory(records)

	out := &SubmitResult{
		Succeeded: result.Succeeded,
		Failed:    result.Failed,
	}
	for _, sub := range submissions {
		itemResult := result.Results[sub.Index]
		item := SubmitItemResult{
			Index:    sub.Index,
			FileName: sub.Receipt.Name,
			RefundID: itemResult.RefundID,
		}
		if itemResult.Err != nil {
			item.Error = itemResult.Err.Error()
		}
		out.Items = append(out.Items, item)
	}

	if s.reports != nil {
		path, reportErr := s.reports.Write(sessionID, records)
		if reportErr != nil {
			s.logger.Error("Failed to write batch report",
				zap.String("session_id", sessionID),
				zap.Error(reportErr))
		} else {
			out.ReportPath = path
		}
	}

	if result.AllSucceeded() {
		if err := sess.CompleteSubmission(ctx); err != nil {
			return nil, err
		}
		return out, nil
	}

	return out, dispatchErr
}

// buildRecords maps dispatch results to persistent history records
func buildRecords(sessionID, ownerEmail string, submissions []refund.Submission, result *refund.Result) []*entity.SubmissionRecord {
	records := make([]*entity.SubmissionRecord, 0, len(submissions))
	for _, sub := range submissions {
		itemResult := result.Results[sub.Index]
		record := &entity.SubmissionRecord{
			SessionID:     sessionID,
			OwnerEmail:    sub.Item.OwnerEmail,
			Title:         sub.Item.Title,
			Amount:        sub.Item.Amount,
			Currency:      sub.Item.Currency,
			Concept:       sub.Item.Concept,
			SubmittedDate: sub.Item.SubmittedDate,
			ExchangeRate:  sub.Item.ExchangeRate,
			FileName:      sub.Receipt.Name,
		}
		if record.OwnerEmail == "" {
			record.OwnerEmail = ownerEmail
		}
		if itemResult.Err != nil {
			record.Status = entity.SubmissionFailed
			record.ErrorMessage = itemResult.Err.Error()
		} else {
			record.Status = entity.SubmissionSucceeded
			record.RefundID = itemResult.RefundID
		}
		records = append(records, record)
	}
	return records
}

// persistHistory writes the round's records in one transaction. History is
// an audit trail; a storage failure is logged but never fails the round.
func (s *Service) persistHistory(records []*entity.SubmissionRecord) {
	if s.history == nil || len(records) == 0 {
		return
	}

	err := s.db.WithTransaction(func(tx *sql.Tx) error {
		for _, record := range records {
			if err := s.history.Create(tx, record); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to persist submission history", zap.Error(err))
	}
}

// TeamMembers lists the directory entries available as expense owners
func (s *Service) TeamMembers(ctx context.Context) []directory.TeamMember {
	if s.directory == nil {
		return nil
	}
	return s.directory.ListTeamMembers(ctx)
}

// SessionHistory returns the persisted submission records of one session
func (s *Service) SessionHistory(sessionID string) ([]*entity.SubmissionRecord, error) {
	if s.history == nil {
		return nil, fmt.Errorf("submission history is not enabled")
	}
	return s.history.ListBySession(sessionID)
}

// History returns the most recent submission records for one owner
func (s *Service) History(ownerEmail string, limit int) ([]*entity.SubmissionRecord, error) {
	if s.history == nil {
		return nil, fmt.Errorf("submission history is not enabled")
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.history.ListByOwner(ownerEmail, limit)
}
