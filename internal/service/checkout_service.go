package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/sports-academy-api/internal/dto"
	"github.com/noah-isme/sports-academy-api/internal/models"
	"github.com/noah-isme/sports-academy-api/internal/repository"
	appErrors "github.com/noah-isme/sports-academy-api/pkg/errors"
	"github.com/noah-isme/sports-academy-api/pkg/export"
	"github.com/noah-isme/sports-academy-api/pkg/payments"
	"github.com/noah-isme/sports-academy-api/pkg/storage"
)

var errStaleResolve = errors.New("checkout resolve superseded")

type checkoutStore interface {
	Create(ctx context.Context, session *models.CheckoutSession) error
	Get(ctx context.Context, id string) (*models.CheckoutSession, error)
	Update(ctx context.Context, id string, mutate func(*models.CheckoutSession) error) (*models.CheckoutSession, error)
}

type priceCalculator interface {
	Calculate(ctx context.Context, req models.PricingRequest) (*models.PricingCalculation, error)
}

type providerRegistry interface {
	ForCurrency(currency string) (payments.Provider, error)
	Get(name string) (payments.Provider, error)
}

type registrationSubmitter interface {
	Submit(ctx context.Context, actor models.Actor, sub models.RegistrationSubmission, pricing *models.PricingCalculation, outcome models.PaymentOutcome) (*models.RegistrationResult, error)
	ConfirmPayment(ctx context.Context, actor models.Actor, session *models.CheckoutSession, card models.CardPayment) (*models.RegistrationResult, error)
}

type submissionValidator interface {
	CheckEligibility(ctx context.Context, actor models.Actor, sub models.RegistrationSubmission, opts ValidateOptions) (*ValidatedSubmission, error)
	CheckOptions(ctx context.Context, sub models.RegistrationSubmission) error
	ListStudents(ctx context.Context, actor models.Actor, sportID, ageCategoryID, eventID string) ([]models.Student, error)
}

type linkVerifier interface {
	Parse(token string) (subject, scope string, expiresAt time.Time, err error)
}

type checkoutNotifier interface {
	SendDelegateLinks(ctx context.Context, checkoutID, sportName string, students []models.Student) (int, error)
	AlertBankTransfer(session *models.CheckoutSession, payment *models.Payment, studentCount int)
}

// CheckoutDeps groups the collaborators of CheckoutService.
type CheckoutDeps struct {
	Store         checkoutStore
	Pricing       priceCalculator
	Providers     providerRegistry
	Registrations registrationSubmitter
	Eligibility   submissionValidator
	Notifier      checkoutNotifier
	Links         linkVerifier
	Proofs        *ProofValidator
	ProofStore    storage.ProofStore
	Receipts      *export.ReceiptRenderer
	Metrics       *MetricsService
	Validator     *validator.Validate
	Logger        *zap.Logger
}

// CheckoutService drives the payment method selector for a registration checkout.
type CheckoutService struct {
	store         checkoutStore
	pricing       priceCalculator
	providers     providerRegistry
	registrations registrationSubmitter
	eligibility   submissionValidator
	notifier      checkoutNotifier
	links         linkVerifier
	proofs        *ProofValidator
	proofStore    storage.ProofStore
	receipts      *export.ReceiptRenderer
	metrics       *MetricsService
	validator     *validator.Validate
	logger        *zap.Logger
}

// NewCheckoutService constructs the service.
func NewCheckoutService(deps CheckoutDeps) *CheckoutService {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Validator == nil {
		deps.Validator = validator.New()
	}
	if deps.Proofs == nil {
		deps.Proofs = NewProofValidator(0, nil)
	}
	if deps.Receipts == nil {
		deps.Receipts = export.NewReceiptRenderer("")
	}
	return &CheckoutService{
		store:         deps.Store,
		pricing:       deps.Pricing,
		providers:     deps.Providers,
		registrations: deps.Registrations,
		eligibility:   deps.Eligibility,
		notifier:      deps.Notifier,
		links:         deps.Links,
		proofs:        deps.Proofs,
		proofStore:    deps.ProofStore,
		receipts:      deps.Receipts,
		metrics:       deps.Metrics,
		validator:     deps.Validator,
		logger:        deps.Logger,
	}
}

// Start opens a checkout for the registration context and resolves its pricing.
func (s *CheckoutService) Start(ctx context.Context, actor models.Actor, rc models.RegistrationContext) (*dto.CheckoutView, error) {
	if err := s.validator.Struct(rc); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid checkout payload")
	}
	rc.Country = NormaliseCountry(rc.Country)

	session := &models.CheckoutSession{
		ID:        uuid.NewString(),
		OwnerID:   actor.ID,
		OwnerRole: actor.Role,
		OwnerName: actor.Name,
		Context:   rc,
	}
	if err := session.TransitionTo(models.CheckoutResolving); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open checkout")
	}
	if err := s.store.Create(ctx, session); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open checkout")
	}
	s.metrics.RecordCheckoutTransition("", string(models.CheckoutResolving))
	s.logger.Info("checkout started", zap.String("checkout_id", session.ID), zap.String("sport_id", rc.SportID), zap.Int("students", len(rc.StudentIDs)))

	return s.Resolve(ctx, actor, session.ID, dto.UpdateCheckoutRequest{})
}

// Resolve recomputes pricing after a context change and prepares a payment reference when one
// is due. Results computed for a superseded generation are discarded.
func (s *CheckoutService) Resolve(ctx context.Context, actor models.Actor, id string, req dto.UpdateCheckoutRequest) (*dto.CheckoutView, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid checkout update")
	}

	var generation int64
	session, err := s.update(ctx, actor, id, func(cs *models.CheckoutSession) error {
		if cs.Processing {
			return appErrors.Clone(appErrors.ErrPaymentInProgress, "")
		}
		if err := transition(cs, models.CheckoutResolving); err != nil {
			return err
		}
		applyContextUpdate(&cs.Context, req)
		cs.Generation++
		cs.SetupError = ""
		cs.Method = nil
		generation = cs.Generation
		return nil
	})
	if err != nil {
		return nil, err
	}

	rc := session.Context
	calc, err := s.pricing.Calculate(ctx, models.PricingRequest{
		SportID:              rc.SportID,
		Country:              rc.Country,
		IncludeCertification: rc.IncludeCertification,
		StudentCount:         len(rc.StudentIDs),
	})
	if err != nil {
		return s.resolveFailed(ctx, actor, id, generation, err)
	}
	if err := s.checkRoster(ctx, actor, rc); err != nil {
		return s.resolveFailed(ctx, actor, id, generation, err)
	}

	if calc.IsFree() {
		return s.applyResolve(ctx, actor, id, generation, func(cs *models.CheckoutSession) error {
			cs.Pricing = calc
			cs.Pending = nil
			cs.LastError = ""
			return transition(cs, models.CheckoutFree)
		})
	}

	pending, setupErr := s.preparePayment(ctx, session, calc)
	view, err := s.applyResolve(ctx, actor, id, generation, func(cs *models.CheckoutSession) error {
		cs.Pricing = calc
		cs.Pending = pending
		cs.LastError = ""
		if setupErr != nil {
			cs.SetupError = appErrors.FromError(setupErr).Message
		}
		return transition(cs, models.CheckoutAwaitingMethodChoice)
	})
	if err != nil {
		return nil, err
	}
	if setupErr != nil && view.Generation == generation {
		return nil, setupErr
	}
	return view, nil
}

// ChooseMethod enters the flow for the chosen payment method.
func (s *CheckoutService) ChooseMethod(ctx context.Context, actor models.Actor, id string, method models.PaymentMethod) (*dto.CheckoutView, error) {
	flow, err := method.Flow()
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}
	if method.Kind == models.MethodDelegateToParent && actor.Role == models.RoleParent {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "parents cannot delegate payment")
	}
	current, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := s.checkRoster(ctx, actor, current.Context); err != nil {
		return nil, err
	}

	session, err := s.update(ctx, actor, id, func(cs *models.CheckoutSession) error {
		if cs.Processing {
			return appErrors.Clone(appErrors.ErrPaymentInProgress, "")
		}
		if method.IsCard() && !s.referenceValid(cs.Pending) {
			return appErrors.Clone(appErrors.ErrPaymentSetup, firstNonEmpty(cs.SetupError, "card payment is not available for this checkout"))
		}
		if err := transition(cs, flow); err != nil {
			return err
		}
		chosen := method
		cs.Method = &chosen
		cs.LastError = ""
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.view(session), nil
}

// ConfirmCard verifies a card payment with the provider and registers the students.
// The pending reference survives a decline so the payer can retry.
func (s *CheckoutService) ConfirmCard(ctx context.Context, actor models.Actor, id string, req dto.ConfirmCardRequest) (*models.RegistrationResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid confirmation payload")
	}

	session, err := s.update(ctx, actor, id, func(cs *models.CheckoutSession) error {
		if cs.Processing {
			return appErrors.Clone(appErrors.ErrPaymentInProgress, "")
		}
		inCardFlow := cs.State == models.CheckoutCardFlow || (cs.State == models.CheckoutFailed && cs.Method != nil && cs.Method.IsCard())
		if !inCardFlow {
			return invalidTransition(cs.State, "confirm a card payment")
		}
		if !s.referenceValid(cs.Pending) || cs.Pending.TransactionID != req.TransactionID {
			return appErrors.Clone(appErrors.ErrPaymentSetup, "transaction does not match this checkout")
		}
		cs.Processing = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	var finish func(*models.CheckoutSession) error
	defer func() { s.release(ctx, actor, id, finish) }()

	pending := session.Pending
	provider, err := s.providers.Get(pending.Provider)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrPaymentSetup.Code, appErrors.ErrPaymentSetup.Status, "payment provider is not configured")
	}
	start := time.Now()
	conf, err := provider.Confirm(ctx, payments.ConfirmRequest{
		TransactionID:     pending.TransactionID,
		ProviderPaymentID: req.ProviderPaymentID,
		Signature:         req.Signature,
	})
	s.metrics.ObserveProviderCall(provider.Name(), "confirm", err, time.Since(start))
	if err != nil {
		appErr := providerError(err, appErrors.ErrProviderDeclined)
		if appErr.Code == appErrors.ErrNetwork.Code {
			finish = recordError(appErr.Message)
		} else {
			finish = failWith(appErr.Message)
		}
		s.logger.Warn("card confirmation failed", zap.String("checkout_id", id), zap.String("provider", provider.Name()), zap.Error(err))
		return nil, appErr
	}
	if !conf.Succeeded {
		message := firstNonEmpty(conf.Message, appErrors.ErrProviderDeclined.Message)
		finish = failWith(message)
		return nil, appErrors.Clone(appErrors.ErrProviderDeclined, message)
	}

	card := models.CardPayment{
		Provider:      provider.Name(),
		TransactionID: pending.TransactionID,
		PaymentID:     conf.PaymentID,
		AmountMinor:   conf.AmountMinor,
		Currency:      strings.ToUpper(firstNonEmpty(conf.Currency, pending.Currency)),
	}
	result, err := s.registrations.ConfirmPayment(ctx, actor, session, card)
	if err != nil {
		finish = recordError(appErrors.FromError(err).Message)
		return nil, err
	}
	finish = complete(result)
	s.logger.Info("card payment confirmed", zap.String("checkout_id", id), zap.String("transaction_id", card.TransactionID))
	return result, nil
}

// SubmitBankTransfer stores the transfer proof and records registrations pending staff verification.
func (s *CheckoutService) SubmitBankTransfer(ctx context.Context, actor models.Actor, id string, req dto.BankTransferRequest) (*models.RegistrationResult, error) {
	if err := s.proofs.ValidateReference(req.ReferenceNumber); err != nil {
		return nil, err
	}
	contentType, ext, err := s.proofs.ValidateProof(req.Proof)
	if err != nil {
		return nil, err
	}

	session, err := s.acquire(ctx, actor, id, models.CheckoutBankTransferFlow, "submit a bank transfer")
	if err != nil {
		return nil, err
	}
	var finish func(*models.CheckoutSession) error
	defer func() { s.release(ctx, actor, id, finish) }()

	if s.proofStore == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "proof storage is not configured")
	}
	name := fmt.Sprintf("%s-%s%s", id, uuid.NewString()[:8], ext)
	obj, err := s.proofStore.Put(ctx, name, contentType, bytes.NewReader(req.Proof.Data))
	if err != nil {
		finish = recordError("failed to store payment proof")
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store payment proof")
	}

	outcome := models.PaymentOutcome{
		Kind:       models.OutcomeBankTransfer,
		CheckoutID: id,
		BankTransfer: &models.BankTransferPayment{
			ReferenceNumber: req.ReferenceNumber,
			ProofRef:        obj.Ref,
			ProofURL:        obj.URL,
		},
	}
	result, err := s.registrations.Submit(ctx, actor, session.Context.Submission(), session.Pricing, outcome)
	if err != nil {
		if delErr := s.proofStore.Delete(context.WithoutCancel(ctx), obj.Ref); delErr != nil {
			s.logger.Warn("failed to remove orphaned proof", zap.String("ref", obj.Ref), zap.Error(delErr))
		}
		finish = recordError(appErrors.FromError(err).Message)
		return nil, err
	}
	if s.notifier != nil {
		s.notifier.AlertBankTransfer(session, result.Payment, result.SuccessCount)
	}
	finish = complete(result)
	return result, nil
}

// SubmitFree registers the students of a checkout that needs no payment.
func (s *CheckoutService) SubmitFree(ctx context.Context, actor models.Actor, id string) (*models.RegistrationResult, error) {
	session, err := s.acquire(ctx, actor, id, models.CheckoutFree, "submit a free registration")
	if err != nil {
		return nil, err
	}
	var finish func(*models.CheckoutSession) error
	defer func() { s.release(ctx, actor, id, finish) }()

	outcome := models.PaymentOutcome{Kind: models.OutcomeNotRequired, CheckoutID: id}
	result, err := s.registrations.Submit(ctx, actor, session.Context.Submission(), session.Pricing, outcome)
	if err != nil {
		finish = recordError(appErrors.FromError(err).Message)
		return nil, err
	}
	finish = complete(result)
	return result, nil
}

// DelegateToParent emails each parent a signed link to pay. No registration is recorded here.
func (s *CheckoutService) DelegateToParent(ctx context.Context, actor models.Actor, id string) (*dto.DelegateResponse, error) {
	session, err := s.acquire(ctx, actor, id, models.CheckoutDelegateFlow, "delegate payment")
	if err != nil {
		return nil, err
	}
	var finish func(*models.CheckoutSession) error
	defer func() { s.release(ctx, actor, id, finish) }()

	validated, err := s.eligibility.CheckEligibility(ctx, actor, session.Context.Submission(), ValidateOptions{})
	if err != nil {
		finish = recordError(appErrors.FromError(err).Message)
		return nil, err
	}
	pendingStudents := make([]models.Student, 0, len(validated.Students))
	for _, st := range validated.Students {
		if !st.IsRegistered {
			pendingStudents = append(pendingStudents, st)
		}
	}
	if len(pendingStudents) == 0 {
		return nil, appErrors.Clone(appErrors.ErrRegistrationRejected, "every selected student is already registered")
	}
	if s.notifier == nil {
		return nil, appErrors.Clone(appErrors.ErrPaymentSetup, "parent email delivery is not configured")
	}

	sent, err := s.notifier.SendDelegateLinks(ctx, id, validated.Sport.Name, pendingStudents)
	if err != nil {
		finish = recordError(appErrors.FromError(err).Message)
		return nil, err
	}
	finish = func(cs *models.CheckoutSession) error {
		cs.Pending = nil
		cs.LastError = ""
		return transition(cs, models.CheckoutCompleted)
	}
	return &dto.DelegateResponse{CheckoutID: id, EmailsSent: sent}, nil
}

// VerifyDelegateLink resolves a signed parent link to the checkout it was issued for.
// The token is the credential, so no ownership check applies.
func (s *CheckoutService) VerifyDelegateLink(ctx context.Context, token string) (*dto.DelegateLinkView, error) {
	if s.links == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "parent links are not configured")
	}
	email, id, expiresAt, err := s.links.Parse(token)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "payment link is invalid or expired")
	}
	session, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, storeError(err)
	}
	return &dto.DelegateLinkView{
		ParentEmail: email,
		ExpiresAt:   expiresAt,
		Checkout:    s.view(session),
	}, nil
}

// Cancel abandons the checkout. The pending provider reference is dropped, not voided.
func (s *CheckoutService) Cancel(ctx context.Context, actor models.Actor, id string) (*dto.CheckoutView, error) {
	session, err := s.update(ctx, actor, id, func(cs *models.CheckoutSession) error {
		if cs.Processing {
			return appErrors.Clone(appErrors.ErrPaymentInProgress, "")
		}
		if err := transition(cs, models.CheckoutCancelled); err != nil {
			return err
		}
		cs.Pending = nil
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.view(session), nil
}

// Get returns the current view of a checkout.
func (s *CheckoutService) Get(ctx context.Context, actor models.Actor, id string) (*dto.CheckoutView, error) {
	session, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	return s.view(session), nil
}

// Receipt renders the PDF receipt of a completed registration.
func (s *CheckoutService) Receipt(ctx context.Context, actor models.Actor, id string) ([]byte, string, error) {
	session, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, "", err
	}
	if session.State != models.CheckoutCompleted || session.Result == nil || session.Result.Payment == nil {
		return nil, "", appErrors.Clone(appErrors.ErrValidation, "a receipt is available once the registration is complete")
	}
	result := session.Result
	payment := result.Payment
	rc := session.Context

	names := map[string]string{}
	if s.eligibility != nil {
		students, err := s.eligibility.ListStudents(ctx, actor, rc.SportID, rc.AgeCategoryID, rc.EventID)
		if err != nil {
			s.logger.Warn("receipt student names unavailable", zap.String("checkout_id", id), zap.Error(err))
		}
		for _, st := range students {
			names[st.ID] = st.Name
		}
	}
	studentNames := make([]string, 0, len(result.Registrations))
	for _, reg := range result.Registrations {
		studentNames = append(studentNames, firstNonEmpty(names[reg.StudentID], reg.StudentID))
	}

	receipt := export.Receipt{
		Number:        receiptNumber(session.ID),
		IssuedAt:      session.UpdatedAt,
		IssuedTo:      firstNonEmpty(session.OwnerName, session.OwnerID),
		Students:      studentNames,
		Total:         dto.FormatMinorUnits(payment.AmountMinor, payment.Currency),
		Currency:      payment.Currency,
		PaymentMethod: payment.Method,
		PaymentStatus: string(payment.Status),
	}
	if pricing := session.Pricing; pricing != nil {
		count := strconv.Itoa(pricing.StudentCount)
		receipt.SportName = pricing.SportName
		receipt.Lines = append(receipt.Lines, export.ReceiptLine{
			Label:  "Registration fee x " + count,
			Amount: dto.FormatMinorUnits(pricing.RegistrationFeeMinorUnits*int64(pricing.StudentCount), pricing.Currency),
		})
		if pricing.IncludeCertification {
			receipt.Lines = append(receipt.Lines, export.ReceiptLine{
				Label:  "Certification fee x " + count,
				Amount: dto.FormatMinorUnits(pricing.CertificationFeeMinorUnits*int64(pricing.StudentCount), pricing.Currency),
			})
		}
	}
	switch {
	case payment.TransactionID != nil:
		receipt.Reference = *payment.TransactionID
	case payment.ReferenceNumber != nil:
		receipt.Reference = *payment.ReferenceNumber
	}

	pdf, err := s.receipts.Render(receipt)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render receipt")
	}
	return pdf, strings.ToLower(receipt.Number) + ".pdf", nil
}

func (s *CheckoutService) preparePayment(ctx context.Context, session *models.CheckoutSession, calc *models.PricingCalculation) (*models.PaymentIntentRef, error) {
	if s.providers == nil {
		return nil, appErrors.Clone(appErrors.ErrPaymentSetup, "card payments are not configured")
	}
	provider, err := s.providers.ForCurrency(calc.Currency)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrPaymentSetup.Code, appErrors.ErrPaymentSetup.Status, "no payment provider accepts "+calc.Currency)
	}
	total := calc.TotalAmountMinorUnits
	if prior := session.Pending; prior.Matches(provider.Name(), total, calc.Currency) &&
		prior.Status != payments.StatusSucceeded && provider.ValidateReference(prior.ClientSecretOrOrderID) {
		return prior, nil
	}

	start := time.Now()
	tx, err := provider.CreateTransaction(ctx, payments.CreateRequest{
		CheckoutID:     session.ID,
		AmountMinor:    total,
		Currency:       calc.Currency,
		IdempotencyKey: fmt.Sprintf("checkout:%s:%d:%s", session.ID, total, calc.Currency),
		Metadata: map[string]string{
			"checkout_id": session.ID,
			"sport_id":    session.Context.SportID,
			"students":    strconv.Itoa(len(session.Context.StudentIDs)),
		},
	})
	s.metrics.ObserveProviderCall(provider.Name(), "create", err, time.Since(start))
	if err != nil {
		s.logger.Warn("payment setup failed", zap.String("checkout_id", session.ID), zap.String("provider", provider.Name()), zap.Error(err))
		return nil, providerError(err, appErrors.ErrPaymentSetup)
	}
	if tx == nil || !provider.ValidateReference(tx.Reference) {
		return nil, appErrors.Clone(appErrors.ErrPaymentSetup, "payment provider returned an invalid reference")
	}
	return &models.PaymentIntentRef{
		ClientSecretOrOrderID: tx.Reference,
		TransactionID:         tx.TransactionID,
		Provider:              provider.Name(),
		AmountMinorUnits:      total,
		Currency:              calc.Currency,
		Status:                firstNonEmpty(tx.Status, payments.StatusCreated),
	}, nil
}

// referenceValid reports whether ref can back a card submission.
func (s *CheckoutService) referenceValid(ref *models.PaymentIntentRef) bool {
	if ref == nil || s.providers == nil || ref.Status == payments.StatusSucceeded {
		return false
	}
	provider, err := s.providers.Get(ref.Provider)
	if err != nil {
		return false
	}
	return provider.ValidateReference(ref.ClientSecretOrOrderID)
}

func (s *CheckoutService) submitEnabled(cs *models.CheckoutSession) bool {
	if cs.Processing {
		return false
	}
	switch cs.State {
	case models.CheckoutFree, models.CheckoutBankTransferFlow, models.CheckoutDelegateFlow:
		return true
	case models.CheckoutCardFlow:
		return s.referenceValid(cs.Pending)
	default:
		return false
	}
}

func (s *CheckoutService) view(cs *models.CheckoutSession) *dto.CheckoutView {
	return dto.NewCheckoutView(cs, s.submitEnabled(cs))
}

func (s *CheckoutService) load(ctx context.Context, actor models.Actor, id string) (*models.CheckoutSession, error) {
	session, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, storeError(err)
	}
	if !session.OwnedBy(actor) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "checkout belongs to another user")
	}
	return session, nil
}

// update applies fn to the stored session after an ownership check and records the transition.
func (s *CheckoutService) update(ctx context.Context, actor models.Actor, id string, fn func(*models.CheckoutSession) error) (*models.CheckoutSession, error) {
	var from models.CheckoutState
	session, err := s.store.Update(ctx, id, func(cs *models.CheckoutSession) error {
		if !cs.OwnedBy(actor) {
			return appErrors.Clone(appErrors.ErrForbidden, "checkout belongs to another user")
		}
		from = cs.State
		return fn(cs)
	})
	if err != nil {
		return nil, storeError(err)
	}
	s.metrics.RecordCheckoutTransition(string(from), string(session.State))
	return session, nil
}

// applyResolve writes a resolve result only while its generation is current.
func (s *CheckoutService) applyResolve(ctx context.Context, actor models.Actor, id string, generation int64, fn func(*models.CheckoutSession) error) (*dto.CheckoutView, error) {
	session, err := s.update(ctx, actor, id, func(cs *models.CheckoutSession) error {
		if cs.Generation != generation {
			return errStaleResolve
		}
		return fn(cs)
	})
	if errors.Is(err, errStaleResolve) {
		s.logger.Debug("discarding superseded resolve", zap.String("checkout_id", id), zap.Int64("generation", generation))
		return s.Get(ctx, actor, id)
	}
	if err != nil {
		return nil, err
	}
	return s.view(session), nil
}

// resolveFailed records cause on the session unless a newer resolve has taken over, then
// returns cause.
func (s *CheckoutService) resolveFailed(ctx context.Context, actor models.Actor, id string, generation int64, cause error) (*dto.CheckoutView, error) {
	message := appErrors.FromError(cause).Message
	if _, err := s.applyResolve(ctx, actor, id, generation, func(cs *models.CheckoutSession) error {
		cs.Pricing = nil
		cs.LastError = message
		return nil
	}); err != nil {
		s.logger.Warn("failed to record resolve error", zap.String("checkout_id", id), zap.Error(err))
	}
	return nil, cause
}

// checkRoster runs the roster, eligibility and option checks. Nothing is sent to a payment
// provider until they pass.
func (s *CheckoutService) checkRoster(ctx context.Context, actor models.Actor, rc models.RegistrationContext) error {
	sub := rc.Submission()
	validated, err := s.eligibility.CheckEligibility(ctx, actor, sub, ValidateOptions{})
	if err != nil {
		return err
	}
	for _, st := range validated.Students {
		if st.IsRegistered {
			conflict := appErrors.WithDetails(appErrors.ErrConflict, "studentId", st.ID)
			conflict.Message = "student is already registered for this sport"
			return conflict
		}
	}
	return s.eligibility.CheckOptions(ctx, sub)
}

// acquire sets the processing guard on a session that must be in state.
func (s *CheckoutService) acquire(ctx context.Context, actor models.Actor, id string, state models.CheckoutState, action string) (*models.CheckoutSession, error) {
	return s.update(ctx, actor, id, func(cs *models.CheckoutSession) error {
		if cs.Processing {
			return appErrors.Clone(appErrors.ErrPaymentInProgress, "")
		}
		if cs.State != state {
			return invalidTransition(cs.State, action)
		}
		cs.Processing = true
		return nil
	})
}

// release clears the processing guard and applies finish, even when ctx is already cancelled.
func (s *CheckoutService) release(ctx context.Context, actor models.Actor, id string, finish func(*models.CheckoutSession) error) {
	_, err := s.update(context.WithoutCancel(ctx), actor, id, func(cs *models.CheckoutSession) error {
		cs.Processing = false
		if finish != nil {
			if err := finish(cs); err != nil {
				s.logger.Warn("checkout finish step rejected", zap.String("checkout_id", id), zap.Error(err))
			}
		}
		return nil
	})
	if err != nil {
		s.logger.Error("failed to release checkout", zap.String("checkout_id", id), zap.Error(err))
	}
}

func complete(result *models.RegistrationResult) func(*models.CheckoutSession) error {
	return func(cs *models.CheckoutSession) error {
		cs.Result = result
		cs.Pending = nil
		cs.LastError = ""
		return transition(cs, models.CheckoutCompleted)
	}
}

func failWith(message string) func(*models.CheckoutSession) error {
	return func(cs *models.CheckoutSession) error {
		cs.LastError = message
		return transition(cs, models.CheckoutFailed)
	}
}

func recordError(message string) func(*models.CheckoutSession) error {
	return func(cs *models.CheckoutSession) error {
		cs.LastError = message
		return nil
	}
}

func transition(cs *models.CheckoutSession, next models.CheckoutState) error {
	from := cs.State
	if err := cs.TransitionTo(next); err != nil {
		return invalidTransition(from, "move to "+string(next))
	}
	return nil
}

func invalidTransition(state models.CheckoutState, action string) error {
	err := appErrors.WithDetails(appErrors.ErrInvalidTransition, "state", string(state))
	err.Message = fmt.Sprintf("cannot %s while checkout is %s", action, state)
	return err
}

func applyContextUpdate(rc *models.RegistrationContext, req dto.UpdateCheckoutRequest) {
	if req.SportID != nil {
		rc.SportID = *req.SportID
	}
	if req.Country != nil {
		rc.Country = NormaliseCountry(*req.Country)
	}
	if req.IncludeCertification != nil {
		rc.IncludeCertification = *req.IncludeCertification
	}
	if req.StudentIDs != nil {
		rc.StudentIDs = append([]string{}, req.StudentIDs...)
		if req.SubstituteIDs == nil {
			rc.SubstituteIDs = keepSelected(rc.SubstituteIDs, rc.StudentIDs)
		}
	}
	if req.SubstituteIDs != nil {
		rc.SubstituteIDs = append([]string{}, req.SubstituteIDs...)
	}
}

// providerError maps a provider failure onto the API error taxonomy. Transport failures become
// NETWORK_ERROR; provider-reported errors keep their message under fallback's code.
func providerError(err error, fallback *appErrors.Error) *appErrors.Error {
	if errors.Is(err, payments.ErrTransport) {
		return appErrors.Wrap(err, appErrors.ErrNetwork.Code, appErrors.ErrNetwork.Status, appErrors.ErrNetwork.Message)
	}
	message := fallback.Message
	var providerErr *payments.ProviderError
	if errors.As(err, &providerErr) && providerErr.Message != "" {
		message = providerErr.Message
	}
	return appErrors.Wrap(err, fallback.Code, fallback.Status, message)
}

func storeError(err error) error {
	if errors.Is(err, repository.ErrCheckoutNotFound) {
		return appErrors.Clone(appErrors.ErrNotFound, "checkout not found or expired")
	}
	var appErr *appErrors.Error
	if errors.As(err, &appErr) || errors.Is(err, errStaleResolve) {
		return err
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "checkout store unavailable")
}

func receiptNumber(checkoutID string) string {
	compact := strings.ToUpper(strings.ReplaceAll(checkoutID, "-", ""))
	if len(compact) > 12 {
		compact = compact[:12]
	}
	return "RCPT-" + compact
}
