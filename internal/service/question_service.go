package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/stemsi/qbank-console/internal/composer"
	"github.com/stemsi/qbank-console/internal/model"
	"github.com/stemsi/qbank-console/internal/remote"
	"github.com/stemsi/qbank-console/internal/validator"
	"github.com/stemsi/qbank-console/internal/workflow"
)

// QuestionBank is the question part of the remote client.
type QuestionBank interface {
	ListQuestions(ctx context.Context, f model.QuestionFilter) ([]model.QuestionSummary, error)
	SubmitQuestion(ctx context.Context, payload model.WirePayload) (*model.SubmitResult, error)
}

// verifyingSubmitter checks every payload against the wire contract before
// it leaves the process.
type verifyingSubmitter struct {
	next   workflow.Submitter
	verify bool
}

func (v verifyingSubmitter) SubmitQuestion(ctx context.Context, p model.WirePayload) (*model.SubmitResult, error) {
	if v.verify {
		if err := composer.Verify(p); err != nil {
			return nil, err
		}
	}
	return v.next.SubmitQuestion(ctx, p)
}

// NewSubmitter wraps bank so payloads are checked against the wire contract
// when verify is set.
func NewSubmitter(bank workflow.Submitter, verify bool) workflow.Submitter {
	return verifyingSubmitter{next: bank, verify: verify}
}

// QuestionService handles standard (single question) authoring.
type QuestionService struct {
	bank    QuestionBank
	submit  workflow.Submitter
	journal *JournalService
	log     zerolog.Logger
}

// NewQuestionService creates a new QuestionService. journal may be nil.
func NewQuestionService(bank QuestionBank, verify bool, journal *JournalService, log zerolog.Logger) *QuestionService {
	return &QuestionService{
		bank:    bank,
		submit:  NewSubmitter(bank, verify),
		journal: journal,
		log:     log.With().Str("component", "question_service").Logger(),
	}
}

// Template returns an empty draft owned by creator.
func (s *QuestionService) Template(creator model.Creator) model.QuestionDraft {
	return model.NewDraft(creator)
}

// List returns question summaries, typically parents for the picker.
func (s *QuestionService) List(ctx context.Context, f model.QuestionFilter) ([]model.QuestionSummary, error) {
	return s.bank.ListQuestions(ctx, f)
}

// Validate runs the full rule set on d as given.
func (s *QuestionService) Validate(d model.QuestionDraft) validator.Errors {
	return validator.Question(d)
}

// Compose previews the wire payload of a valid draft.
func (s *QuestionService) Compose(d model.QuestionDraft) (*model.WirePayload, validator.Errors) {
	if errs := validator.Question(d); errs.HasErrors() {
		return nil, errs
	}
	p := composer.Compose(d)
	return &p, nil
}

// Submit validates, composes and sends a single question. hasChild is forced
// off: parent shells only exist inside a composition session.
func (s *QuestionService) Submit(ctx context.Context, d model.QuestionDraft, creator model.Creator) (*model.SubmitResult, validator.Errors, error) {
	d = d.Clone()
	d.HasChild = false
	d.ChildIDs = nil
	d.CreatedBy = creator

	if errs := validator.Question(d); errs.HasErrors() {
		return nil, errs, nil
	}

	res, err := s.submit.SubmitQuestion(ctx, composer.Compose(d))

	rec := model.SubmissionRecord{
		QuestionID:  d.ID,
		ParentID:    d.ParentID,
		Kind:        model.SubmissionStandard,
		Status:      model.SubmissionSucceeded,
		SubmittedBy: creator.ID,
	}
	if err != nil {
		rec.Status = model.SubmissionFailed
		rec.Error = remote.Message(err)
	}
	s.journal.Record(ctx, rec)

	if err != nil {
		if errors.Is(err, composer.ErrPayloadContract) {
			s.log.Error().Err(err).Str("question_id", d.ID).Msg("Composed payload failed contract check")
		} else {
			s.log.Warn().Err(err).Str("question_id", d.ID).Msg("Question submission failed")
		}
		return nil, nil, fmt.Errorf("submit question %s: %w", d.ID, err)
	}

	s.log.Info().
		Str("question_id", d.ID).
		Str("question_type", string(d.QuestionType)).
		Str("creator_id", creator.ID).
		Msg("Question submitted")
	return res, nil, nil
}
