package service

import (
	"context"
	"errors"
	bookingservice "sicakap/internal/booking/service"
	recordserrors "sicakap/internal/records/errors"
	"sicakap/internal/records/pipeline"
	"sicakap/internal/records/validator"
	apperrors "sicakap/pkg/errors"
	"sicakap/pkg/logger"
	"sicakap/pkg/metrics"
	"sicakap/pkg/model"
	"sicakap/pkg/sanitizer"
)

const (
	flowSubmit = "submit"
	flowUpdate = "update"

	outcomeSaved   = "saved"
	outcomeInvalid = "invalid"
	outcomeStale   = "stale"
	outcomeFailed  = "failed"
)

type RecordStore interface {
	Create(ctx context.Context, record *model.Record) (int, error)
	List(ctx context.Context, filter model.RecordFilter) ([]model.Record, error)
	GetByID(ctx context.Context, id int) (*model.Record, error)
	Update(ctx context.Context, id int, record *model.Record) error
	Delete(ctx context.Context, id int) error
}

// Desk is the booking side of a submission.
type Desk interface {
	Held() *bookingservice.Booking
	CheckTicket(ticket string) (*bookingservice.Booking, error)
	EnsureBooked(ctx context.Context, date model.SystemDate) (*bookingservice.Booking, error)
	Claim() bookingservice.Claim
	ConfirmAndAdvance(ctx context.Context, number int, claim bookingservice.Claim) (*bookingservice.AdvanceResult, error)
}

type TemplateSource interface {
	List(ctx context.Context, serviceCode string) ([]model.Redaksi, error)
}

// SubmitRequest is a record as typed in the form plus the ticket of the number it was opened with.
type SubmitRequest struct {
	model.Record
	Ticket string `json:"ticket,omitempty"`
}

type SubmitResult struct {
	ID               int                     `json:"id"`
	RegNumber        int                     `json:"reg_number"`
	RegDate          string                  `json:"reg_date"`
	ArchiveCode      string                  `json:"archive_code,omitempty"`
	Confirmed        bool                    `json:"confirmed"`
	ConfirmError     string                  `json:"confirm_error,omitempty"`
	ConfirmPending   bool                    `json:"confirm_pending,omitempty"`
	Next             *bookingservice.Booking `json:"next,omitempty"`
	NextError        string                  `json:"next_error,omitempty"`
	NextErrorCode    string                  `json:"next_error_code,omitempty"`
	NumbersExhausted bool                    `json:"numbers_exhausted,omitempty"`
}

type RecordService interface {
	Submit(ctx context.Context, req *SubmitRequest) (*SubmitResult, error)
	List(ctx context.Context, filter model.RecordFilter) ([]model.Record, error)
	GetByID(ctx context.Context, id int) (*model.Record, error)
	Update(ctx context.Context, id int, record *model.Record) error
	Delete(ctx context.Context, id int) error
	Templates(ctx context.Context, serviceCode string) ([]model.Redaksi, error)
}

type submission struct {
	record  *model.Record
	ticket  string
	id      int
	claim   bookingservice.Claim
	advance *bookingservice.AdvanceResult
}

type recordService struct {
	store     RecordStore
	desk      Desk
	templates TemplateSource
	validator *validator.RecordValidator
	engine    *pipeline.Engine[*submission]
	metrics   *metrics.Metrics
	log       *logger.Logger
}

func NewRecordService(
	store RecordStore,
	desk Desk,
	templates TemplateSource,
	validator *validator.RecordValidator,
	m *metrics.Metrics,
	log *logger.Logger,
) RecordService {
	s := &recordService{
		store:     store,
		desk:      desk,
		templates: templates,
		validator: validator,
		metrics:   m,
		log:       log,
	}

	sanitize := pipeline.NewStep("sanitize", s.sanitize)
	validate := pipeline.NewStep("validate", s.validate)

	s.engine = pipeline.NewEngine(log,
		pipeline.NewFlow(flowSubmit,
			sanitize,
			validate,
			pipeline.NewStep("check_ticket", s.checkTicket),
			pipeline.NewStep("ensure_booked", s.ensureBooked),
			pipeline.NewStep("persist", s.persist),
			pipeline.NewStep("confirm_and_advance", s.confirmAndAdvance),
		),
		pipeline.NewFlow(flowUpdate,
			sanitize,
			validate,
			pipeline.NewStep("persist_update", s.persistUpdate),
		),
	)
	return s
}

func (s *recordService) Submit(ctx context.Context, req *SubmitRequest) (*SubmitResult, error) {
	record := req.Record
	record.ID = 0
	sub := &submission{record: &record, ticket: req.Ticket}

	if err := s.engine.Run(ctx, flowSubmit, sub); err != nil {
		s.countSubmission(submissionOutcome(err))
		return nil, err
	}
	s.countSubmission(outcomeSaved)

	result := &SubmitResult{
		ID:          sub.id,
		RegNumber:   record.RegNumber,
		RegDate:     record.RegDate,
		ArchiveCode: model.ArchiveCode(model.SystemDate(record.RegDate), record.RegNumber, record.ServiceCode),
	}

	if adv := sub.advance; adv != nil {
		result.Confirmed = adv.Confirmed == record.RegNumber && adv.ConfirmErr == nil
		if adv.ConfirmErr != nil {
			result.ConfirmError = adv.ConfirmErr.Error()
			result.ConfirmPending = true
		}
		result.Next = adv.Next
		if adv.NextErr != nil {
			appErr := apperrors.AsAppError(adv.NextErr)
			result.NextError = appErr.Message
			result.NextErrorCode = appErr.Code
			result.NumbersExhausted = appErr.Code == apperrors.CodeAllocationExhausted
		}
	}

	s.log.Info("Record saved",
		"id", result.ID,
		"reg_number", result.RegNumber,
		"reg_date", result.RegDate,
		"service_code", record.ServiceCode,
		"archive_code", result.ArchiveCode,
	)
	return result, nil
}

func (s *recordService) List(ctx context.Context, filter model.RecordFilter) ([]model.Record, error) {
	filter.Search = sanitizer.TrimAndNormalize(filter.Search)
	filter.Status = sanitizer.NormalizeCode(filter.Status)
	filter.ServiceCode = sanitizer.NormalizeCode(filter.ServiceCode)

	if err := s.validator.ValidateFilter(&filter); err != nil {
		return nil, validationError("Record filter is invalid", err)
	}
	return s.store.List(ctx, filter)
}

func (s *recordService) GetByID(ctx context.Context, id int) (*model.Record, error) {
	return s.store.GetByID(ctx, id)
}

func (s *recordService) Update(ctx context.Context, id int, record *model.Record) error {
	record.ID = id
	return s.engine.Run(ctx, flowUpdate, &submission{record: record, id: id})
}

func (s *recordService) Delete(ctx context.Context, id int) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.log.Info("Record deleted", "id", id)
	return nil
}

// Templates lists the canned replies, optionally only those for serviceCode.
func (s *recordService) Templates(ctx context.Context, serviceCode string) ([]model.Redaksi, error) {
	serviceCode = sanitizer.NormalizeCode(serviceCode)
	if serviceCode != "" && len(validator.RequiredDocuments(serviceCode)) == 0 {
		return nil, apperrors.InvalidInput(recordserrors.ErrInvalidServiceCode.Error())
	}
	return s.templates.List(ctx, serviceCode)
}

func (s *recordService) sanitize(ctx context.Context, sub *submission) error {
	sanitizer.SanitizeRecord(sub.record)
	return nil
}

func (s *recordService) validate(ctx context.Context, sub *submission) error {
	if err := s.validator.Validate(sub.record); err != nil {
		s.log.Warn("Record validation failed", "service_code", sub.record.ServiceCode, "error", err)
		return validationError("Record validation failed", err)
	}
	return nil
}

// checkTicket rejects a form whose ticket no longer names the held number.
func (s *recordService) checkTicket(ctx context.Context, sub *submission) error {
	if sub.ticket == "" {
		return nil
	}

	held, err := s.desk.CheckTicket(sub.ticket)
	if err != nil {
		return err
	}

	if sub.record.RegNumber == 0 {
		sub.record.RegNumber = held.Number
	}
	if sub.record.RegNumber != held.Number {
		return apperrors.StaleState(recordserrors.ErrNumberMismatch.Error(), map[string]any{
			"reg_number":      sub.record.RegNumber,
			"held_reg_number": held.Number,
		})
	}
	if model.SystemDate(sub.record.RegDate) != held.Date {
		return apperrors.StaleState(recordserrors.ErrDateMismatch.Error(), map[string]any{
			"reg_date":  sub.record.RegDate,
			"held_date": held.Date,
		})
	}
	return nil
}

// ensureBooked fills an empty registration number from the held booking, booking one if needed.
// A number typed by the operator is kept as typed.
func (s *recordService) ensureBooked(ctx context.Context, sub *submission) error {
	if sub.record.RegNumber != 0 {
		return nil
	}

	date := model.SystemDate(sub.record.RegDate)
	if held := s.desk.Held(); held != nil && held.Date == date && !held.PendingConfirm {
		sub.record.RegNumber = held.Number
		return nil
	}

	booking, err := s.desk.EnsureBooked(ctx, date)
	if err != nil {
		return err
	}
	s.log.Info("Registration number booked for submission", "reg_number", booking.Number, "reg_date", date)
	sub.record.RegNumber = booking.Number
	return nil
}

func (s *recordService) persist(ctx context.Context, sub *submission) error {
	sub.claim = s.desk.Claim()
	id, err := s.store.Create(ctx, sub.record)
	if err != nil {
		s.log.Error("Failed to save record", "reg_number", sub.record.RegNumber, "error", err)
		return err
	}
	sub.id = id
	sub.record.ID = id
	return nil
}

func (s *recordService) confirmAndAdvance(ctx context.Context, sub *submission) error {
	advance, err := s.desk.ConfirmAndAdvance(ctx, sub.record.RegNumber, sub.claim)
	if err != nil {
		// The record is saved; the next booking is left to the next input context.
		s.log.Warn("Confirm skipped after save", "reg_number", sub.record.RegNumber, "error", err)
		return nil
	}
	sub.advance = advance
	return nil
}

func (s *recordService) persistUpdate(ctx context.Context, sub *submission) error {
	if err := s.store.Update(ctx, sub.id, sub.record); err != nil {
		return err
	}
	s.log.Info("Record updated", "id", sub.id, "reg_number", sub.record.RegNumber)
	return nil
}

func (s *recordService) countSubmission(outcome string) {
	if s.metrics != nil {
		s.metrics.IncrementSubmission(outcome)
	}
}

func validationError(message string, err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return apperrors.Validation(message, map[string]any{"fields": verrs.Fields()})
	}
	return apperrors.Validation(message, map[string]any{"error": err.Error()})
}

func submissionOutcome(err error) string {
	switch {
	case apperrors.HasCode(err, apperrors.CodeValidation):
		return outcomeInvalid
	case apperrors.HasCode(err, apperrors.CodeStaleState):
		return outcomeStale
	default:
		return outcomeFailed
	}
}
