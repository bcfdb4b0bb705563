package service

import (
	"context"
	"fmt"
	"html"
	"net/url"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/sports-academy-api/internal/models"
	appErrors "github.com/noah-isme/sports-academy-api/pkg/errors"
	"github.com/noah-isme/sports-academy-api/pkg/jobs"
	"github.com/noah-isme/sports-academy-api/pkg/notify"
	"github.com/noah-isme/sports-academy-api/pkg/storage"
)

const delegateLinkPath = "/parent/checkout"

type taskQueue interface {
	Register(taskType string, h jobs.Handler)
	Enqueue(taskType string, payload interface{}) (string, error)
}

// StaffAlert is the payload of a staff_alert task.
type StaffAlert struct {
	Text string
}

// NotificationService delivers parent emails and staff alerts.
type NotificationService struct {
	queue         taskQueue
	email         notify.EmailSender
	alerter       notify.StaffAlerter
	signer        *storage.LinkSigner
	portalBaseURL string
	logger        *zap.Logger
}

// NewNotificationService wires the senders and registers the background task handlers on queue.
// email and alerter may be nil when the channel is not configured.
func NewNotificationService(queue taskQueue, email notify.EmailSender, alerter notify.StaffAlerter, signer *storage.LinkSigner, portalBaseURL string, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &NotificationService{
		queue:         queue,
		email:         email,
		alerter:       alerter,
		signer:        signer,
		portalBaseURL: strings.TrimRight(portalBaseURL, "/"),
		logger:        logger,
	}
	if queue != nil {
		queue.Register(jobs.TypeStaffAlert, s.handleStaffAlert)
		queue.Register(jobs.TypeParentEmail, s.handleParentEmail)
	}
	return s
}

// AlertBankTransfer queues a staff alert asking for manual reconciliation of a transfer.
func (s *NotificationService) AlertBankTransfer(session *models.CheckoutSession, payment *models.Payment, studentCount int) {
	if s == nil || payment == nil {
		return
	}
	ref := ""
	if payment.ReferenceNumber != nil {
		ref = *payment.ReferenceNumber
	}
	text := fmt.Sprintf("Bank transfer to verify\nCheckout: %s\nPayer: %s\nReference: %s\nAmount: %d %s (minor units)\nStudents: %d",
		session.ID, firstNonEmpty(session.OwnerName, session.OwnerID), ref, payment.AmountMinor, payment.Currency, studentCount)
	s.enqueue(jobs.TypeStaffAlert, StaffAlert{Text: text})
}

// RegistrationConfirmed queues a confirmation email to the parent of each registered student.
func (s *NotificationService) RegistrationConfirmed(sportName string, students []models.Student) {
	if s == nil {
		return
	}
	for _, st := range students {
		if st.ParentEmail == "" {
			continue
		}
		s.enqueue(jobs.TypeParentEmail, notify.Email{
			To:      st.ParentEmail,
			ToName:  st.ParentName,
			Subject: fmt.Sprintf("%s is registered for %s", st.Name, sportName),
			HTMLBody: fmt.Sprintf("<p>Hello %s,</p><p>%s has been registered for <strong>%s</strong>.</p>",
				html.EscapeString(firstNonEmpty(st.ParentName, "parent")), html.EscapeString(st.Name), html.EscapeString(sportName)),
		})
	}
}

// SendDelegateLinks emails every parent of the given students a signed link to complete payment.
// One email goes to each parent address. It returns once every send has been acknowledged.
func (s *NotificationService) SendDelegateLinks(ctx context.Context, checkoutID, sportName string, students []models.Student) (int, error) {
	if s == nil || s.email == nil || s.signer == nil {
		return 0, appErrors.Clone(appErrors.ErrPaymentSetup, "parent email delivery is not configured")
	}

	byParent := map[string][]models.Student{}
	for _, st := range students {
		if st.ParentEmail == "" {
			return 0, appErrors.WithDetails(appErrors.ErrValidation, "studentId", st.ID)
		}
		key := strings.ToLower(st.ParentEmail)
		byParent[key] = append(byParent[key], st)
	}
	parents := make([]string, 0, len(byParent))
	for k := range byParent {
		parents = append(parents, k)
	}
	sort.Strings(parents)

	sent := 0
	for _, addr := range parents {
		children := byParent[addr]
		token, expiresAt, err := s.signer.Generate(addr, checkoutID)
		if err != nil {
			return sent, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign parent link")
		}
		link := s.portalBaseURL + delegateLinkPath + "?token=" + url.QueryEscape(token)

		names := make([]string, 0, len(children))
		for _, c := range children {
			names = append(names, html.EscapeString(c.Name))
		}
		msg := notify.Email{
			To:      children[0].ParentEmail,
			ToName:  children[0].ParentName,
			Subject: fmt.Sprintf("Complete the %s registration payment", sportName),
			HTMLBody: fmt.Sprintf(`<p>Hello %s,</p><p>%s selected for <strong>%s</strong>. Please complete the payment using the link below.</p><p><a href="%s">Pay now</a></p><p>The link expires on %s.</p>`,
				html.EscapeString(firstNonEmpty(children[0].ParentName, "parent")),
				strings.Join(names, ", ")+pluralVerb(len(names)),
				html.EscapeString(sportName),
				html.EscapeString(link),
				expiresAt.UTC().Format("2 Jan 2006 15:04 MST"),
			),
		}
		if err := s.email.SendEmail(ctx, msg); err != nil {
			s.logger.Warn("delegate email failed", zap.String("checkout_id", checkoutID), zap.Error(err))
			return sent, appErrors.Wrap(err, appErrors.ErrNetwork.Code, appErrors.ErrNetwork.Status, "could not email the parent, please try again")
		}
		sent++
	}
	return sent, nil
}

func (s *NotificationService) enqueue(taskType string, payload interface{}) {
	if s.queue == nil {
		return
	}
	if _, err := s.queue.Enqueue(taskType, payload); err != nil {
		s.logger.Warn("notification not queued", zap.String("type", taskType), zap.Error(err))
	}
}

func (s *NotificationService) handleStaffAlert(ctx context.Context, task jobs.Task) error {
	alert, ok := task.Payload.(StaffAlert)
	if !ok {
		return fmt.Errorf("unexpected staff alert payload %T", task.Payload)
	}
	if s.alerter == nil {
		s.logger.Info("staff alert dropped, telegram not configured", zap.String("task_id", task.ID))
		return nil
	}
	return s.alerter.Alert(ctx, alert.Text)
}

func (s *NotificationService) handleParentEmail(ctx context.Context, task jobs.Task) error {
	msg, ok := task.Payload.(notify.Email)
	if !ok {
		return fmt.Errorf("unexpected parent email payload %T", task.Payload)
	}
	if s.email == nil {
		s.logger.Info("parent email dropped, email not configured", zap.String("task_id", task.ID))
		return nil
	}
	return s.email.SendEmail(ctx, msg)
}

func pluralVerb(n int) string {
	if n == 1 {
		return " has been"
	}
	return " have been"
}
