package service

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/sports-academy-api/internal/models"
	"github.com/noah-isme/sports-academy-api/pkg/database"
	appErrors "github.com/noah-isme/sports-academy-api/pkg/errors"
	"github.com/noah-isme/sports-academy-api/pkg/export"
)

// Submission stages reported in error details.
const (
	StageEligibility  = "eligibility"
	StageOptions      = "options"
	StagePayment      = "payment"
	StageRegistration = "registration"
)

const bulkImportMaxRows = 1000

var bulkImportColumns = []string{"student_id", "sport_id", "age_category_id"}

type paymentRepository interface {
	FindByTransactionID(ctx context.Context, transactionID string) (*models.Payment, error)
	FindByCheckoutID(ctx context.Context, checkoutID string) (*models.Payment, error)
}

type registrationRepository interface {
	RegisterBatch(ctx context.Context, payment *models.Payment, regs []models.Registration) ([]error, error)
	ListByPayment(ctx context.Context, paymentID string) ([]models.Registration, error)
}

type registrationNotifier interface {
	RegistrationConfirmed(sportName string, students []models.Student)
}

// RegistrationService runs the staged submission pipeline and persists its outcome.
type RegistrationService struct {
	eligibility   *EligibilityService
	payments      paymentRepository
	registrations registrationRepository
	notifier      registrationNotifier
	metrics       *MetricsService
	logger        *zap.Logger
	now           func() time.Time
}

// NewRegistrationService constructs the orchestrator. notifier may be nil.
func NewRegistrationService(eligibility *EligibilityService, payments paymentRepository, registrations registrationRepository, notifier registrationNotifier, metrics *MetricsService, logger *zap.Logger) *RegistrationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RegistrationService{
		eligibility:   eligibility,
		payments:      payments,
		registrations: registrations,
		notifier:      notifier,
		metrics:       metrics,
		logger:        logger,
		now:           time.Now,
	}
}

// Submit validates the submission, then records the payment together with one registration per
// student. Rows fail independently, but the payment is only kept when at least one student is
// registered. Later stages never run once an earlier one fails.
func (s *RegistrationService) Submit(ctx context.Context, actor models.Actor, sub models.RegistrationSubmission, pricing *models.PricingCalculation, outcome models.PaymentOutcome) (*models.RegistrationResult, error) {
	validated, err := s.eligibility.CheckEligibility(ctx, actor, sub, ValidateOptions{})
	if err != nil {
		return nil, atStage(err, StageEligibility)
	}
	if err := s.eligibility.CheckOptions(ctx, sub); err != nil {
		return nil, atStage(err, StageOptions)
	}

	payment, err := s.buildPayment(ctx, actor, pricing, outcome)
	if err != nil {
		return nil, atStage(err, StagePayment)
	}

	result, err := s.register(ctx, actor, sub, validated.Students, &payment.ID, payment)
	if err != nil {
		if appErrors.HasCode(err, appErrors.ErrConflict.Code) {
			return nil, atStage(err, StagePayment)
		}
		return nil, atStage(err, StageRegistration)
	}
	s.metrics.RecordRegistrations(result.SuccessCount, len(result.Errors))

	if result.SuccessCount == 0 {
		rejected := appErrors.WithDetails(appErrors.ErrRegistrationRejected, "errors", result.Errors)
		rejected.Details["stage"] = StageRegistration
		return nil, rejected
	}
	if len(result.Errors) > 0 {
		result.Status = models.RegistrationPartial
		s.logger.Warn("partial registration",
			zap.String("sport_id", sub.SportID),
			zap.Int("succeeded", result.SuccessCount),
			zap.Int("failed", len(result.Errors)),
		)
	}
	if s.notifier != nil {
		s.notifier.RegistrationConfirmed(validated.Sport.Name, registeredStudents(validated.Students, result.Registrations))
	}
	return result, nil
}

// ConfirmPayment records a provider-confirmed card payment and registers the session's students.
// Confirming an already recorded transaction registers only the students that still have no
// row for it.
func (s *RegistrationService) ConfirmPayment(ctx context.Context, actor models.Actor, session *models.CheckoutSession, card models.CardPayment) (*models.RegistrationResult, error) {
	if existing, err := s.existingResult(ctx, actor, session, card.TransactionID); err != nil || existing != nil {
		return existing, err
	}

	outcome := models.PaymentOutcome{Kind: models.OutcomeCard, CheckoutID: session.ID, Card: &card}
	result, err := s.Submit(ctx, actor, session.Context.Submission(), session.Pricing, outcome)
	if err != nil && appErrors.HasCode(err, appErrors.ErrConflict.Code) {
		if existing, lookupErr := s.existingResult(ctx, actor, session, card.TransactionID); lookupErr == nil && existing != nil {
			return existing, nil
		}
	}
	return result, err
}

// BulkImport registers students from CSV rows with waived payment. Each row is validated and
// inserted on its own; failures are reported per row.
func (s *RegistrationService) BulkImport(ctx context.Context, actor models.Actor, src io.Reader) (*models.BulkImportResult, error) {
	if actor.Role != models.RoleAdmin {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "bulk import requires an admin")
	}
	rows, err := export.ReadRows(src, bulkImportColumns, bulkImportMaxRows)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}

	result := &models.BulkImportResult{Errors: []models.RowError{}}
	for _, row := range rows {
		sub := models.RegistrationSubmission{
			StudentIDs:     []string{row.Get("student_id")},
			SportID:        row.Get("sport_id"),
			AgeCategoryID:  row.Get("age_category_id"),
			EventID:        row.Get("event_id"),
			DistanceID:     row.Get("distance_id"),
			SportSubTypeID: row.Get("sport_sub_type_id"),
		}
		if rowErr := s.importRow(ctx, actor, sub); rowErr != nil {
			appErr := appErrors.FromError(rowErr)
			result.Errors = append(result.Errors, models.RowError{Row: row.Line, StudentID: sub.StudentIDs[0], Code: appErr.Code, Error: appErr.Message})
			continue
		}
		result.SuccessCount++
	}
	s.metrics.RecordRegistrations(result.SuccessCount, len(result.Errors))
	s.logger.Info("bulk import finished", zap.Int("rows", len(rows)), zap.Int("succeeded", result.SuccessCount))
	return result, nil
}

func (s *RegistrationService) importRow(ctx context.Context, actor models.Actor, sub models.RegistrationSubmission) error {
	if sub.StudentIDs[0] == "" || sub.SportID == "" || sub.AgeCategoryID == "" {
		return appErrors.Clone(appErrors.ErrValidation, "student_id, sport_id and age_category_id are required")
	}
	validated, err := s.eligibility.CheckEligibility(ctx, actor, sub, ValidateOptions{SkipTeamSize: true})
	if err != nil {
		return err
	}
	if err := s.eligibility.CheckOptions(ctx, sub); err != nil {
		return err
	}
	waived := &models.PricingCalculation{Outcome: models.PricingOutcomeFree}
	payment, err := s.buildPayment(ctx, actor, waived, models.PaymentOutcome{Kind: models.OutcomeWaived})
	if err != nil {
		return err
	}
	res, err := s.register(ctx, actor, sub, validated.Students, &payment.ID, payment)
	if err != nil {
		return err
	}
	if len(res.Errors) > 0 {
		return appErrors.New(res.Errors[0].Code, appErrors.ErrConflict.Status, res.Errors[0].Error)
	}
	return nil
}

// buildPayment checks outcome against pricing and returns the payment row to write. Nothing is
// persisted here.
func (s *RegistrationService) buildPayment(ctx context.Context, actor models.Actor, pricing *models.PricingCalculation, outcome models.PaymentOutcome) (*models.Payment, error) {
	if err := outcome.Validate(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrPaymentSetup.Code, appErrors.ErrPaymentSetup.Status, err.Error())
	}
	if pricing == nil {
		return nil, appErrors.Clone(appErrors.ErrPaymentSetup, "pricing has not been resolved")
	}

	payment := &models.Payment{
		ID:          uuid.NewString(),
		CheckoutID:  outcome.CheckoutID,
		AmountMinor: pricing.TotalAmountMinorUnits,
		Currency:    pricing.Currency,
		PaidBy:      actor.ID,
		CreatedAt:   s.now().UTC(),
	}

	switch outcome.Kind {
	case models.OutcomeNotRequired:
		if !pricing.IsFree() {
			return nil, appErrors.Clone(appErrors.ErrPaymentSetup, "payment is required for this registration")
		}
		payment.Provider = "none"
		payment.Method = string(models.OutcomeNotRequired)
		payment.Status = models.PaymentStatusNotRequired
	case models.OutcomeWaived:
		payment.Provider = "none"
		payment.Method = string(models.OutcomeWaived)
		payment.Status = models.PaymentStatusWaived
	case models.OutcomeCard:
		card := outcome.Card
		if pricing.IsFree() {
			return nil, appErrors.Clone(appErrors.ErrPaymentSetup, "no payment is due for this registration")
		}
		if card.AmountMinor != pricing.TotalAmountMinorUnits || card.Currency != pricing.Currency {
			err := appErrors.WithDetails(appErrors.ErrPaymentSetup, "expected", pricing.TotalAmountMinorUnits)
			err.Details["paid"] = card.AmountMinor
			return nil, err
		}
		payment.Provider = card.Provider
		payment.Method = string(models.OutcomeCard)
		payment.TransactionID = &card.TransactionID
		payment.Status = models.PaymentStatusSucceeded
	case models.OutcomeBankTransfer:
		bank := outcome.BankTransfer
		if pricing.IsFree() {
			return nil, appErrors.Clone(appErrors.ErrPaymentSetup, "no payment is due for this registration")
		}
		if outcome.CheckoutID != "" {
			if _, err := s.payments.FindByCheckoutID(ctx, outcome.CheckoutID); err == nil {
				return nil, appErrors.Clone(appErrors.ErrConflict, "a transfer was already submitted for this checkout")
			} else if !errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load payment")
			}
		}
		payment.Provider = "bank_transfer"
		payment.Method = string(models.OutcomeBankTransfer)
		payment.ReferenceNumber = &bank.ReferenceNumber
		payment.ProofRef = &bank.ProofRef
		payment.Status = models.PaymentStatusPendingVerification
	default:
		return nil, appErrors.Clone(appErrors.ErrPaymentSetup, "unknown payment outcome")
	}

	return payment, nil
}

// register writes one registration per student, settled by paymentID, in a single batch with
// record when it is not nil. Row numbers follow the order of students. It returns an error only
// when the batch as a whole failed and nothing was written.
func (s *RegistrationService) register(ctx context.Context, actor models.Actor, sub models.RegistrationSubmission, students []models.Student, paymentID *string, record *models.Payment) (*models.RegistrationResult, error) {
	result := &models.RegistrationResult{
		Status:        models.RegistrationSucceeded,
		Registrations: []models.Registration{},
		Errors:        []models.RowError{},
	}
	substitutes := models.SelectionSet{Selected: sub.StudentIDs, Substitutes: sub.SubstituteIDs}

	regs := make([]models.Registration, 0, len(students))
	rows := make([]int, 0, len(students))
	for i, student := range students {
		if student.IsRegistered {
			result.Errors = append(result.Errors, models.RowError{Row: i + 1, StudentID: student.ID, Code: appErrors.ErrConflict.Code, Error: "student is already registered for this sport"})
			continue
		}
		regs = append(regs, models.Registration{
			ID:             uuid.NewString(),
			StudentID:      student.ID,
			SportID:        sub.SportID,
			EventID:        optional(sub.EventID),
			AgeCategoryID:  sub.AgeCategoryID,
			DistanceID:     optional(sub.DistanceID),
			SportSubTypeID: optional(sub.SportSubTypeID),
			AcademyCode:    optional(sub.AcademyCode),
			Substitute:     substitutes.IsSubstitute(student.ID),
			PaymentID:      paymentID,
			RegisteredBy:   actor.ID,
			CreatedAt:      s.now().UTC(),
		})
		rows = append(rows, i+1)
	}
	if len(regs) == 0 {
		sortRowErrors(result.Errors)
		return result, nil
	}

	rowErrs, err := s.registrations.RegisterBatch(ctx, record, regs)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return nil, appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "payment already recorded")
		}
		s.logger.Error("registration batch failed", zap.String("sport_id", sub.SportID), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record registration")
	}
	for i, reg := range regs {
		if i < len(rowErrs) && rowErrs[i] != nil {
			rowErr := models.RowError{Row: rows[i], StudentID: reg.StudentID, Code: appErrors.ErrInternal.Code, Error: "failed to register student"}
			if database.IsUniqueViolation(rowErrs[i]) {
				rowErr.Code = appErrors.ErrConflict.Code
				rowErr.Error = "student is already registered for this sport"
			} else {
				s.logger.Error("registration insert failed", zap.String("student_id", reg.StudentID), zap.Error(rowErrs[i]))
			}
			result.Errors = append(result.Errors, rowErr)
			continue
		}
		result.Registrations = append(result.Registrations, reg)
		result.SuccessCount++
	}
	sortRowErrors(result.Errors)
	if result.SuccessCount > 0 {
		result.Payment = record
	}
	return result, nil
}

// existingResult loads the outcome already recorded for transactionID, or nil when there is none.
// Students of the session without a registration for the payment are registered again; those
// that still fail are reported, so the result is never a success it did not earn.
func (s *RegistrationService) existingResult(ctx context.Context, actor models.Actor, session *models.CheckoutSession, transactionID string) (*models.RegistrationResult, error) {
	payment, err := s.payments.FindByTransactionID(ctx, transactionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load payment")
	}
	regs, err := s.registrations.ListByPayment(ctx, payment.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load registrations")
	}
	if regs == nil {
		regs = []models.Registration{}
	}
	result := &models.RegistrationResult{
		Status:        models.RegistrationSucceeded,
		SuccessCount:  len(regs),
		Registrations: regs,
		Errors:        []models.RowError{},
		Payment:       payment,
	}

	sub := session.Context.Submission()
	missing := missingStudents(sub.StudentIDs, regs)
	if len(missing) == 0 {
		return result, nil
	}
	sub.SubstituteIDs = keepSelected(sub.SubstituteIDs, missing)
	sub.StudentIDs = missing
	validated, err := s.eligibility.CheckEligibility(ctx, actor, sub, ValidateOptions{SkipTeamSize: true})
	if err != nil {
		return nil, atStage(err, StageEligibility)
	}
	retry, err := s.register(ctx, actor, sub, validated.Students, &payment.ID, nil)
	if err != nil {
		return nil, atStage(err, StageRegistration)
	}
	s.metrics.RecordRegistrations(retry.SuccessCount, len(retry.Errors))
	s.logger.Info("registered students missing from a recorded payment",
		zap.String("payment_id", payment.ID),
		zap.Int("succeeded", retry.SuccessCount),
		zap.Int("failed", len(retry.Errors)),
	)

	position := make(map[string]int, len(session.Context.StudentIDs))
	for i, id := range session.Context.StudentIDs {
		position[id] = i + 1
	}
	for _, rowErr := range retry.Errors {
		rowErr.Row = position[rowErr.StudentID]
		result.Errors = append(result.Errors, rowErr)
	}
	result.Registrations = append(result.Registrations, retry.Registrations...)
	result.SuccessCount += retry.SuccessCount
	if len(result.Errors) > 0 {
		result.Status = models.RegistrationPartial
	}
	if s.notifier != nil && retry.SuccessCount > 0 {
		s.notifier.RegistrationConfirmed(validated.Sport.Name, registeredStudents(validated.Students, retry.Registrations))
	}
	return result, nil
}

func missingStudents(studentIDs []string, regs []models.Registration) []string {
	done := make(map[string]bool, len(regs))
	for _, r := range regs {
		done[r.StudentID] = true
	}
	out := make([]string, 0, len(studentIDs))
	for _, id := range studentIDs {
		if !done[id] {
			out = append(out, id)
		}
	}
	return out
}

func keepSelected(substitutes, selected []string) []string {
	sel := models.SelectionSet{Selected: selected}
	out := make([]string, 0, len(substitutes))
	for _, id := range substitutes {
		if sel.Contains(id) {
			out = append(out, id)
		}
	}
	return out
}

func sortRowErrors(rowErrs []models.RowError) {
	sort.SliceStable(rowErrs, func(i, j int) bool { return rowErrs[i].Row < rowErrs[j].Row })
}

func registeredStudents(students []models.Student, regs []models.Registration) []models.Student {
	done := make(map[string]bool, len(regs))
	for _, r := range regs {
		done[r.StudentID] = true
	}
	out := make([]models.Student, 0, len(regs))
	for _, st := range students {
		if done[st.ID] {
			out = append(out, st)
		}
	}
	return out
}

// atStage tags err with the submission stage that produced it.
func atStage(err error, stage string) error {
	return appErrors.WithDetails(appErrors.FromError(err), "stage", stage)
}

func optional(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
