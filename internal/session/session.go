// Package session holds the in-memory state of one refund-submission wizard.
// A session owns the batch aggregate: every file, extraction record and line
// item lives in a single slice of triples, and every mutation goes through
// the aggregate so the three views can never drift out of alignment.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/garyjia/expense-refund-pipeline/internal/assembly"
	"github.com/garyjia/expense-refund-pipeline/internal/domain/entity"
	"github.com/garyjia/expense-refund-pipeline/internal/domain/workflow"
	"github.com/garyjia/expense-refund-pipeline/internal/extraction"
	"github.com/garyjia/expense-refund-pipeline/internal/refund"
	"github.com/garyjia/expense-refund-pipeline/pkg/utils"
	"go.uber.org/zap"
)

// Progress is the aggregate extraction counter shown while the queue drains
type Progress struct {
	Current int `json:"current"`
	Total   int `json:"total"`
}

// Session is one wizard session. All exported methods are safe for
// concurrent use; the HTTP layer and the background extraction run both
// touch it.
type Session struct {
	mu         sync.RWMutex
	id         string
	ownerEmail string
	items      []*entity.BatchItem
	progress   Progress
	machine    workflow.StateMachine

	// queue holds extraction jobs not yet handed to the drain loop;
	// draining is true while a drain loop is alive for this session.
	// Together they keep extraction strictly sequential even when files
	// are appended mid-run: the running loop picks up the new suffix
	// instead of a second loop being started.
	queue    []extraction.Job
	draining bool

	// epoch increments on every start-over. Status updates from an
	// extraction run started under an older epoch are ignored instead of
	// being cancelled mid-flight.
	epoch int

	createdAt  time.Time
	lastAccess time.Time
	logger     *zap.Logger
}

// New creates a wizard session in the upload stage
func New(id, ownerEmail string, logger *zap.Logger) *Session {
	s := &Session{
		id:         id,
		ownerEmail: ownerEmail,
		createdAt:  time.Now(),
		lastAccess: time.Now(),
		logger:     logger,
	}
	s.machine = s.buildMachine()
	return s
}

// buildMachine wires the four-stage wizard. Guards read session fields
// directly; Fire is only ever called while s.mu is held.
func (s *Session) buildMachine() workflow.StateMachine {
	b := workflow.NewBuilder()

	b.Permit(workflow.StateUpload, workflow.TriggerFilesAccepted, workflow.StateExtraction)
	// Appending files mid-extraction is a self-transition
	b.Permit(workflow.StateExtraction, workflow.TriggerFilesAccepted, workflow.StateExtraction)

	b.PermitIf(workflow.StateExtraction, workflow.TriggerReview, workflow.StateReview,
		func(ctx context.Context) bool {
			return len(s.items) > 0 && s.progress.Current == s.progress.Total
		})

	b.Permit(workflow.StateReview, workflow.TriggerConfirm, workflow.StateConfirmation)

	b.Permit(workflow.StateExtraction, workflow.TriggerBack, workflow.StateUpload)
	b.Permit(workflow.StateReview, workflow.TriggerBack, workflow.StateExtraction)
	b.Permit(workflow.StateConfirmation, workflow.TriggerBack, workflow.StateReview)

	for _, state := range []workflow.State{
		workflow.StateUpload, workflow.StateExtraction, workflow.StateReview, workflow.StateConfirmation,
	} {
		b.Permit(state, workflow.TriggerStartOver, workflow.StateUpload)
	}

	return b.Build(workflow.StateUpload)
}

// ID returns the session identifier
func (s *Session) ID() string {
	return s.id
}

// OwnerEmail returns the session owner's email
func (s *Session) OwnerEmail() string {
	return s.ownerEmail
}

// State returns the current wizard stage
func (s *Session) State() workflow.State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.machine.State()
}

// GetProgress returns the current extraction progress
func (s *Session) GetProgress() Progress {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.progress
}

// Touch records activity, deferring idle expiry
func (s *Session) Touch() {
	s.mu.Lock()
	s.lastAccess = time.Now()
	s.mu.Unlock()
}

// IdleSince returns the time of the last activity
func (s *Session) IdleSince() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastAccess
}

// AddFiles validates and accepts a set of candidate files. The whole
// incoming set is rejected if any file fails the type/size gate or if the
// running total would exceed the batch ceiling; on rejection nothing is
// mutated. On success the wizard advances to (or stays in) extraction and
// the new suffix is queued for extraction. The returned flag is true when
// the caller must start a drain loop; it is false when a loop is already
// running and will pick the new jobs up itself.
func (s *Session) AddFiles(ctx context.Context, files []*entity.UploadedFile) (bool, error) {
	if len(files) == 0 {
		return false, fmt.Errorf("%w: no files provided", ErrInvalidFile)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	state := s.machine.State()
	if state != workflow.StateUpload && state != workflow.StateExtraction {
		return false, fmt.Errorf("%w: cannot add files during %s", ErrInvalidStage, state)
	}

	if len(s.items)+len(files) > entity.MaxBatchFiles {
		return false, fmt.Errorf("%w: %d existing + %d new exceeds the maximum of %d files",
			ErrBatchLimitExceeded, len(s.items), len(files), entity.MaxBatchFiles)
	}

	for _, file := range files {
		if !entity.IsAllowedMIMEType(file.MIMEType) {
			return false, fmt.Errorf("%w: %s has unsupported type %s", ErrInvalidFile, file.Name, file.MIMEType)
		}
		if file.Size > entity.MaxFileSize {
			return false, fmt.Errorf("%w: %s exceeds the %d byte limit", ErrInvalidFile, file.Name, int64(entity.MaxFileSize))
		}
	}

	if err := s.machine.Fire(ctx, workflow.TriggerFilesAccepted); err != nil {
		return false, err
	}

	for _, file := range files {
		index := len(s.items)
		s.items = append(s.items, &entity.BatchItem{
			File: file,
			Record: &entity.ExtractionRecord{
				FileName: file.Name,
				Status:   entity.ExtractionPending,
			},
		})
		s.queue = append(s.queue, extraction.Job{Index: index, File: file})
	}
	s.progress.Total += len(files)

	start := !s.draining
	s.draining = true

	s.logger.Info("Files accepted into batch",
		zap.String("session_id", s.id),
		zap.Int("new_files", len(files)),
		zap.Int("batch_size", len(s.items)))

	return start, nil
}

// NextJobs hands the queued extraction jobs to the drain loop together with
// the sink for the current epoch. An empty queue releases the drain slot
// and returns nil, ending the loop; the next upload then starts a fresh one.
func (s *Session) NextJobs() ([]extraction.Job, extraction.Sink) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.queue) == 0 {
		s.draining = false
		return nil, nil
	}

	jobs := s.queue
	s.queue = nil
	return jobs, &recordSink{session: s, epoch: s.epoch}
}

// recordSink applies orchestrator updates to the aggregate
type recordSink struct {
	session *Session
	epoch   int
}

func (k *recordSink) MarkExtracting(index int) {
	k.apply(index, func(record *entity.ExtractionRecord) {
		record.Status = entity.ExtractionExtracting
	}, false)
}

func (k *recordSink) MarkExtracted(index int, fields *entity.RawFields) {
	k.apply(index, func(record *entity.ExtractionRecord) {
		record.Status = entity.ExtractionExtracted
		record.Fields = *fields
		record.ErrorMessage = ""
	}, true)
}

func (k *recordSink) MarkError(index int, message string) {
	k.apply(index, func(record *entity.ExtractionRecord) {
		record.Status = entity.ExtractionError
		record.ErrorMessage = message
	}, true)
}

func (k *recordSink) apply(index int, mutate func(*entity.ExtractionRecord), done bool) {
	s := k.session
	s.mu.Lock()
	defer s.mu.Unlock()

	if k.epoch != s.epoch {
		s.logger.Debug("Dropping stale extraction update",
			zap.String("session_id", s.id),
			zap.Int("index", index))
		return
	}
	if index < 0 || index >= len(s.items) {
		return
	}

	mutate(s.items[index].Record)
	if done {
		s.progress.Current++
	}
}

// EnterReview advances extraction→review and assembles line items for every
// record that does not have one yet. Records assembled on an earlier pass
// keep their user edits.
func (s *Session) EnterReview(ctx context.Context, assembler *assembly.Assembler) error {
	s.mu.Lock()
	if err := s.machine.Fire(ctx, workflow.TriggerReview); err != nil {
		s.mu.Unlock()
		return err
	}

	// Pending items are carried by pointer: indices can shift if items are
	// deleted while the lock is released below, but the item identity
	// cannot, so each line lands on the record it was assembled from.
	var pendingItems []*entity.BatchItem
	var pendingRecords []*entity.ExtractionRecord
	for _, item := range s.items {
		if item.Line == nil {
			pendingItems = append(pendingItems, item)
			pendingRecords = append(pendingRecords, item.Record)
		}
	}
	epoch := s.epoch
	owner := s.ownerEmail
	s.mu.Unlock()

	if len(pendingRecords) == 0 {
		return nil
	}

	// Rate lookups fan out over the network; the lock is released while
	// they run and the result is dropped if the session was reset.
	lines := assembler.Assemble(ctx, pendingRecords, owner)

	s.mu.Lock()
	defer s.mu.Unlock()
	if epoch != s.epoch {
		return nil
	}
	for j, item := range pendingItems {
		if item.Line == nil {
			item.Line = lines[j]
		}
	}

	s.logger.Info("Line items assembled",
		zap.String("session_id", s.id),
		zap.Int("assembled", len(lines)))

	return nil
}

// LineItemUpdate carries the editable fields of one line item. Nil fields
// are left untouched.
type LineItemUpdate struct {
	Title         *string `json:"title"`
	Description   *string `json:"description"`
	Amount        *string `json:"amount"`
	Currency      *string `json:"currency"`
	Concept       *string `json:"concept"`
	SubmittedDate *string `json:"submittedDate"`
	ExchangeRate  *string `json:"exchangeRate"`
	Selected      *bool   `json:"selected"`
	OwnerEmail    *string `json:"ownerEmail"`
}

// UpdateItem applies edits to one line item during review
func (s *Session) UpdateItem(index int, update LineItemUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.machine.State() != workflow.StateReview {
		return fmt.Errorf("%w: items can only be edited during review", ErrInvalidStage)
	}
	if index < 0 || index >= len(s.items) || s.items[index].Line == nil {
		return fmt.Errorf("%w: index %d", ErrItemNotFound, index)
	}

	if update.OwnerEmail != nil {
		if err := utils.ValidateEmail(*update.OwnerEmail); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidFile, err)
		}
	}

	line := s.items[index].Line
	setString(&line.Title, update.Title)
	setString(&line.Description, update.Description)
	setString(&line.Amount, update.Amount)
	setString(&line.Currency, update.Currency)
	setString(&line.Concept, update.Concept)
	setString(&line.SubmittedDate, update.SubmittedDate)
	setString(&line.ExchangeRate, update.ExchangeRate)
	setString(&line.OwnerEmail, update.OwnerEmail)
	if update.Selected != nil {
		line.Selected = *update.Selected
	}

	return nil
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

// SelectAll marks every assembled line item as selected
func (s *Session) SelectAll() error {
	return s.setSelection(true)
}

// SelectNone clears the selection on every assembled line item
func (s *Session) SelectNone() error {
	return s.setSelection(false)
}

func (s *Session) setSelection(selected bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.machine.State() != workflow.StateReview {
		return fmt.Errorf("%w: selection changes only during review", ErrInvalidStage)
	}

	for _, item := range s.items {
		if item.Line != nil {
			item.Line.Selected = selected
		}
	}
	return nil
}

// DeleteSelected removes every selected item together with its file and
// extraction record in one atomic pass, preserving the alignment of the
// remaining items. Returns the number of removed items.
func (s *Session) DeleteSelected() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.machine.State() != workflow.StateReview {
		return 0, fmt.Errorf("%w: items can only be deleted during review", ErrInvalidStage)
	}

	kept := s.items[:0]
	removed := 0
	for _, item := range s.items {
		if item.Line != nil && item.Line.Selected {
			removed++
			continue
		}
		kept = append(kept, item)
	}
	s.items = kept

	// Review is only reachable with a drained queue, so every removed
	// record was already counted in Current.
	s.progress.Total -= removed
	s.progress.Current -= removed

	if removed > 0 {
		s.logger.Info("Deleted selected items",
			zap.String("session_id", s.id),
			zap.Int("removed", removed),
			zap.Int("remaining", len(s.items)))
	}

	return removed, nil
}

// Confirm validates the selection and advances review→confirmation. A
// validation failure leaves the wizard on review.
func (s *Session) Confirm(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.machine.State() != workflow.StateReview {
		return fmt.Errorf("%w: confirm is only available during review", ErrInvalidStage)
	}

	if err := ValidateSelected(s.lines()); err != nil {
		return err
	}

	return s.machine.Fire(ctx, workflow.TriggerConfirm)
}

// Back steps one stage backwards
func (s *Session) Back(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.machine.Fire(ctx, workflow.TriggerBack)
}

// StartOver discards the whole batch and returns the wizard to upload.
// In-flight extraction calls are not cancelled; their updates are dropped
// by the epoch check when they land.
func (s *Session) StartOver(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.machine.Fire(ctx, workflow.TriggerStartOver); err != nil {
		return err
	}
	s.reset()

	s.logger.Info("Session reset", zap.String("session_id", s.id))
	return nil
}

// reset clears the aggregate; caller holds the lock. A live drain loop is
// left running: the cleared queue ends it naturally, and the epoch bump
// makes it drop any update still in flight.
func (s *Session) reset() {
	s.items = nil
	s.queue = nil
	s.progress = Progress{}
	s.epoch++
}

// SubmissionSet snapshots the selected, assembled items for the dispatcher.
// Only allowed during confirmation. The aggregate guarantees every item
// still has its paired receipt file.
func (s *Session) SubmissionSet() ([]refund.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.machine.State() != workflow.StateConfirmation {
		return nil, fmt.Errorf("%w: submission requires confirmation", ErrInvalidStage)
	}

	var submissions []refund.Submission
	for i, item := range s.items {
		if item.Line == nil || !item.Line.Selected || item.File == nil {
			continue
		}
		submissions = append(submissions, refund.Submission{
			Index:   i,
			Item:    item.Line,
			Receipt: item.File,
		})
	}

	return submissions, nil
}

// CompleteSubmission clears all local state after a fully successful batch.
// Ownership of the submitted records now lives with the refund backend.
func (s *Session) CompleteSubmission(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.machine.Fire(ctx, workflow.TriggerStartOver); err != nil {
		return err
	}
	s.reset()

	s.logger.Info("Batch submitted, session cleared", zap.String("session_id", s.id))
	return nil
}

// lines returns the line-item view of the aggregate; caller holds the lock
func (s *Session) lines() []*entity.LineItem {
	lines := make([]*entity.LineItem, len(s.items))
	for i, item := range s.items {
		lines[i] = item.Line
	}
	return lines
}

// ItemView is the read model of one batch item
type ItemView struct {
	Index        int              `json:"index"`
	FileName     string           `json:"fileName"`
	FileSize     int64            `json:"fileSize"`
	Status       string           `json:"status"`
	ErrorMessage string           `json:"errorMessage,omitempty"`
	Line         *entity.LineItem `json:"lineItem,omitempty"`
}

// Snapshot is the read model of the whole session
type Snapshot struct {
	ID         string     `json:"id"`
	OwnerEmail string     `json:"ownerEmail"`
	State      string     `json:"state"`
	Progress   Progress   `json:"progress"`
	Items      []ItemView `json:"items"`
}

// Snapshot returns a consistent copy of the session for the API layer.
// Line items are copied so readers never alias live aggregate state.
func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]ItemView, len(s.items))
	for i, item := range s.items {
		view := ItemView{
			Index:        i,
			FileName:     item.File.Name,
			FileSize:     item.File.Size,
			Status:       item.Record.Status.String(),
			ErrorMessage: item.Record.ErrorMessage,
		}
		if item.Line != nil {
			line := *item.Line
			view.Line = &line
		}
		items[i] = view
	}

	return Snapshot{
		ID:         s.id,
		OwnerEmail: s.ownerEmail,
		State:      s.machine.State().String(),
		Progress:   s.progress,
		Items:      items,
	}
}
