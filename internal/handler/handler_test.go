package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sports-academy-api/internal/dto"
	"github.com/noah-isme/sports-academy-api/internal/middleware"
	"github.com/noah-isme/sports-academy-api/internal/models"
	"github.com/noah-isme/sports-academy-api/internal/service"
	appErrors "github.com/noah-isme/sports-academy-api/pkg/errors"
)

type responseEnvelope struct {
	Data  map[string]interface{} `json:"data"`
	Error *struct {
		Code    string                 `json:"code"`
		Message string                 `json:"message"`
		Details map[string]interface{} `json:"details"`
	} `json:"error"`
	Meta map[string]interface{} `json:"meta"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) responseEnvelope {
	t.Helper()
	var env responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func newContext(method, target string, body io.Reader) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(method, target, body)
	if body != nil {
		c.Request.Header.Set("Content-Type", "application/json")
	}
	return c, rec
}

func withUser(c *gin.Context, id string, role models.UserRole) {
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: id, Role: role, FullName: "Test User"})
}

type fakeAuth struct {
	resp *models.LoginResponse
	err  error
}

func (f fakeAuth) Login(context.Context, models.LoginRequest) (*models.LoginResponse, error) {
	return f.resp, f.err
}

func TestAuthHandlerLogin(t *testing.T) {
	h := NewAuthHandler(fakeAuth{resp: &models.LoginResponse{AccessToken: "tok", ExpiresIn: 3600}})

	c, rec := newContext(http.MethodPost, "/auth/login", strings.NewReader(`{"email":"a@b.co","password":"x"}`))
	h.Login(c)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "tok", decode(t, rec).Data["accessToken"])

	c, rec = newContext(http.MethodPost, "/auth/login", strings.NewReader(`{`))
	h.Login(c)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	h = NewAuthHandler(fakeAuth{err: appErrors.ErrInvalidCredentials})
	c, rec = newContext(http.MethodPost, "/auth/login", strings.NewReader(`{"email":"a@b.co","password":"x"}`))
	h.Login(c)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "INVALID_CREDENTIALS", decode(t, rec).Error.Code)
}

func TestAuthHandlerMe(t *testing.T) {
	h := NewAuthHandler(fakeAuth{})

	c, rec := newContext(http.MethodGet, "/auth/me", nil)
	h.Me(c)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	c, rec = newContext(http.MethodGet, "/auth/me", nil)
	withUser(c, "u-1", models.RoleSchool)
	h.Me(c)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "SCHOOL", decode(t, rec).Data["role"])
}

type fakePricing struct {
	last models.PricingRequest
	err  error
}

func (f *fakePricing) Calculate(_ context.Context, req models.PricingRequest) (*models.PricingCalculation, error) {
	f.last = req
	if f.err != nil {
		return nil, f.err
	}
	return &models.PricingCalculation{
		Currency:                  "USD",
		RegistrationFeeMinorUnits: 5000,
		TotalAmountMinorUnits:     5000 * int64(req.StudentCount),
		StudentCount:              req.StudentCount,
		Outcome:                   models.PricingOutcomePaymentRequired,
	}, nil
}

func (f *fakePricing) ListCountries(context.Context) ([]string, error) {
	return []string{"india", "kenya"}, nil
}

func TestPricingHandlerCalculate(t *testing.T) {
	pricing := &fakePricing{}
	h := NewPricingHandler(pricing, dto.BankDetails{})

	c, rec := newContext(http.MethodGet, "/pricing?sportId=sport-relay&studentCount=3&includeCertification=true", nil)
	h.Calculate(c)
	require.Equal(t, http.StatusOK, rec.Code)
	env := decode(t, rec)
	assert.Equal(t, "150.00", env.Data["totalAmount"])
	assert.Equal(t, "sport-relay", pricing.last.SportID)
	assert.True(t, pricing.last.IncludeCertification)

	c, _ = newContext(http.MethodGet, "/pricing?country=India", nil)
	h.Calculate(c)
	assert.Equal(t, 1, pricing.last.StudentCount)

	c, rec = newContext(http.MethodGet, "/pricing?studentCount=many", nil)
	h.Calculate(c)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	pricing.err = appErrors.WithDetails(appErrors.ErrUnknownPricingKey, "key", "mars")
	c, rec = newContext(http.MethodGet, "/pricing?country=mars", nil)
	h.Calculate(c)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "mars", decode(t, rec).Error.Details["key"])
}

func TestPricingHandlerBankDetails(t *testing.T) {
	c, rec := newContext(http.MethodGet, "/payments/bank-details", nil)
	NewPricingHandler(&fakePricing{}, dto.BankDetails{}).BankDetails(c)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	c, rec = newContext(http.MethodGet, "/payments/bank-details", nil)
	NewPricingHandler(&fakePricing{}, dto.BankDetails{BankName: "First Bank", AccountNumber: "0012"}).BankDetails(c)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "0012", decode(t, rec).Data["accountNumber"])
}

type fakeEligibility struct {
	lastActor models.Actor
	lastQuery []string
	selectErr error
}

func (f *fakeEligibility) Options(_ context.Context, sportID, ageCategoryID string) (*models.SportOptions, error) {
	f.lastQuery = []string{sportID, ageCategoryID}
	return &models.SportOptions{Sport: models.Sport{ID: sportID}}, nil
}

func (f *fakeEligibility) ListStudents(_ context.Context, actor models.Actor, sportID, ageCategoryID, eventID string) ([]models.Student, error) {
	f.lastActor = actor
	f.lastQuery = []string{sportID, ageCategoryID, eventID}
	return []models.Student{{ID: "s1", IsEligible: true}}, nil
}

func (f *fakeEligibility) SelectStudent(_ context.Context, actor models.Actor, req dto.SelectRequest) (*dto.SelectionResult, error) {
	if f.selectErr != nil {
		return nil, f.selectErr
	}
	return &dto.SelectionResult{Selection: models.SelectionSet{Selected: []string{req.CandidateID}}, CanSubmit: true}, nil
}

func (f *fakeEligibility) ToggleSubstitute(_ context.Context, actor models.Actor, req dto.SubstituteRequest) (*dto.SelectionResult, error) {
	return &dto.SelectionResult{Selection: req.Selection}, nil
}

func TestSportHandlerStudentsUsesActor(t *testing.T) {
	elig := &fakeEligibility{}
	h := NewSportHandler(elig)

	c, rec := newContext(http.MethodGet, "/sports/sport-1/students?ageCategoryId=cat-1&eventId=ev-1", nil)
	c.Params = gin.Params{{Key: "id", Value: "sport-1"}}
	withUser(c, "school-1", models.RoleSchool)
	h.Students(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "school-1", elig.lastActor.ID)
	assert.Equal(t, []string{"sport-1", "cat-1", "ev-1"}, elig.lastQuery)
	assert.EqualValues(t, 1, decode(t, rec).Meta["count"])

	c, rec = newContext(http.MethodGet, "/sports/sport-1/students", nil)
	h.Students(c)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSportHandlerSelect(t *testing.T) {
	elig := &fakeEligibility{}
	h := NewSportHandler(elig)

	c, rec := newContext(http.MethodPost, "/selections/select", strings.NewReader(`{"sportId":"sport-1","ageCategoryId":"cat-1","candidateId":"s2"}`))
	withUser(c, "parent-1", models.RoleParent)
	h.Select(c)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decode(t, rec).Data["canSubmit"])

	elig.selectErr = appErrors.WithDetails(appErrors.ErrStudentNotEligible, "studentId", "s9")
	c, rec = newContext(http.MethodPost, "/selections/select", strings.NewReader(`{"sportId":"sport-1","ageCategoryId":"cat-1","candidateId":"s9"}`))
	withUser(c, "parent-1", models.RoleParent)
	h.Select(c)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "STUDENT_NOT_ELIGIBLE", decode(t, rec).Error.Code)
}

type fakeCheckouts struct {
	lastID       string
	lastMethod   models.PaymentMethod
	lastTransfer dto.BankTransferRequest
	result       *models.RegistrationResult
	err          error
}

func (f *fakeCheckouts) view(id string) *dto.CheckoutView {
	return dto.NewCheckoutView(&models.CheckoutSession{ID: id, State: models.CheckoutAwaitingMethodChoice}, false)
}

func (f *fakeCheckouts) Start(_ context.Context, _ models.Actor, rc models.RegistrationContext) (*dto.CheckoutView, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.view("co-new"), nil
}

func (f *fakeCheckouts) Get(_ context.Context, _ models.Actor, id string) (*dto.CheckoutView, error) {
	f.lastID = id
	return f.view(id), f.err
}

func (f *fakeCheckouts) Resolve(_ context.Context, _ models.Actor, id string, _ dto.UpdateCheckoutRequest) (*dto.CheckoutView, error) {
	f.lastID = id
	return f.view(id), f.err
}

func (f *fakeCheckouts) ChooseMethod(_ context.Context, _ models.Actor, id string, method models.PaymentMethod) (*dto.CheckoutView, error) {
	f.lastID = id
	f.lastMethod = method
	if f.err != nil {
		return nil, f.err
	}
	return f.view(id), nil
}

func (f *fakeCheckouts) ConfirmCard(_ context.Context, _ models.Actor, id string, _ dto.ConfirmCardRequest) (*models.RegistrationResult, error) {
	f.lastID = id
	return f.result, f.err
}

func (f *fakeCheckouts) SubmitBankTransfer(_ context.Context, _ models.Actor, id string, req dto.BankTransferRequest) (*models.RegistrationResult, error) {
	f.lastID = id
	f.lastTransfer = req
	return f.result, f.err
}

func (f *fakeCheckouts) SubmitFree(_ context.Context, _ models.Actor, id string) (*models.RegistrationResult, error) {
	f.lastID = id
	return f.result, f.err
}

func (f *fakeCheckouts) DelegateToParent(_ context.Context, _ models.Actor, id string) (*dto.DelegateResponse, error) {
	return &dto.DelegateResponse{CheckoutID: id, EmailsSent: 2}, f.err
}

func (f *fakeCheckouts) Cancel(_ context.Context, _ models.Actor, id string) (*dto.CheckoutView, error) {
	return f.view(id), f.err
}

func (f *fakeCheckouts) VerifyDelegateLink(_ context.Context, token string) (*dto.DelegateLinkView, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &dto.DelegateLinkView{ParentEmail: "parent@example.com", Checkout: f.view(token)}, nil
}

func (f *fakeCheckouts) Receipt(_ context.Context, _ models.Actor, id string) ([]byte, string, error) {
	if f.err != nil {
		return nil, "", f.err
	}
	return []byte("%PDF-1.3"), "rcpt-abc.pdf", nil
}

func TestCheckoutHandlerStart(t *testing.T) {
	h := NewCheckoutHandler(&fakeCheckouts{}, 0)

	c, rec := newContext(http.MethodPost, "/checkouts", strings.NewReader(`{"sportId":"sport-1","ageCategoryId":"cat-1","studentIds":["s1"]}`))
	withUser(c, "parent-1", models.RoleParent)
	h.Start(c)
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "co-new", decode(t, rec).Data["id"])

	h = NewCheckoutHandler(&fakeCheckouts{err: appErrors.Clone(appErrors.ErrPaymentSetup, "stripe unavailable")}, 0)
	c, rec = newContext(http.MethodPost, "/checkouts", strings.NewReader(`{"sportId":"sport-1","ageCategoryId":"cat-1","studentIds":["s1"]}`))
	withUser(c, "parent-1", models.RoleParent)
	h.Start(c)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "stripe unavailable", decode(t, rec).Error.Message)
}

func TestCheckoutHandlerChooseMethod(t *testing.T) {
	fake := &fakeCheckouts{}
	h := NewCheckoutHandler(fake, 0)

	c, rec := newContext(http.MethodPost, "/checkouts/co-1/method", strings.NewReader(`{"kind":"BANK_TRANSFER"}`))
	c.Params = gin.Params{{Key: "id", Value: "co-1"}}
	withUser(c, "parent-1", models.RoleParent)
	h.ChooseMethod(c)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "co-1", fake.lastID)
	assert.Equal(t, models.MethodBankTransfer, fake.lastMethod.Kind)
}

func TestCheckoutHandlerConfirmStatuses(t *testing.T) {
	tests := []struct {
		name   string
		fake   *fakeCheckouts
		status int
	}{
		{"success", &fakeCheckouts{result: &models.RegistrationResult{Status: models.RegistrationSucceeded, SuccessCount: 2}}, http.StatusCreated},
		{"partial", &fakeCheckouts{result: &models.RegistrationResult{Status: models.RegistrationPartial, SuccessCount: 1}}, http.StatusMultiStatus},
		{"declined", &fakeCheckouts{err: appErrors.ErrProviderDeclined}, http.StatusPaymentRequired},
		{"in progress", &fakeCheckouts{err: appErrors.ErrPaymentInProgress}, http.StatusConflict},
		{"network", &fakeCheckouts{err: appErrors.ErrNetwork}, http.StatusServiceUnavailable},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c, rec := newContext(http.MethodPost, "/checkouts/co-1/confirm", strings.NewReader(`{"transactionId":"pi_1"}`))
			c.Params = gin.Params{{Key: "id", Value: "co-1"}}
			withUser(c, "parent-1", models.RoleParent)
			NewCheckoutHandler(tc.fake, 0).Confirm(c)
			assert.Equal(t, tc.status, rec.Code)
		})
	}
}

func multipartBody(t *testing.T, reference string, filename string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	require.NoError(t, w.WriteField("referenceNumber", reference))
	if filename != "" {
		part, err := w.CreateFormFile("paymentScreenshot", filename)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return body, w.FormDataContentType()
}

func TestCheckoutHandlerBankTransfer(t *testing.T) {
	proofRef := "co-1-ab12cd34.png"
	fake := &fakeCheckouts{result: &models.RegistrationResult{
		Status:       models.RegistrationSucceeded,
		SuccessCount: 1,
		Payment:      &models.Payment{Status: models.PaymentStatusPendingVerification, ProofRef: &proofRef},
	}}
	h := NewCheckoutHandler(fake, 1024)

	body, contentType := multipartBody(t, "123456789012", "proof.png", []byte("\x89PNG\r\n\x1a\n"))
	c, rec := newContext(http.MethodPost, "/checkouts/co-1/bank-transfer", body)
	c.Request.Header.Set("Content-Type", contentType)
	c.Params = gin.Params{{Key: "id", Value: "co-1"}}
	withUser(c, "parent-1", models.RoleParent)
	h.BankTransfer(c)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "123456789012", fake.lastTransfer.ReferenceNumber)
	require.NotNil(t, fake.lastTransfer.Proof)
	assert.Equal(t, "proof.png", fake.lastTransfer.Proof.Filename)
	assert.Equal(t, []byte("\x89PNG\r\n\x1a\n"), fake.lastTransfer.Proof.Data)

	data := decode(t, rec).Data
	assert.Equal(t, true, data["success"])
	assert.Equal(t, float64(1), data["studentCount"])
	assert.Equal(t, proofRef, data["paymentScreenshot"])
	assert.Equal(t, string(models.PaymentStatusPendingVerification), data["paymentStatus"])
	assert.NotContains(t, data, "registrations")
}

func TestCheckoutHandlerBankTransferPartial(t *testing.T) {
	proofRef := "co-1-ab12cd34.png"
	fake := &fakeCheckouts{result: &models.RegistrationResult{
		Status:       models.RegistrationPartial,
		SuccessCount: 1,
		Errors:       []models.RowError{{Row: 2, StudentID: "s2", Code: "CONFLICT", Error: "student is already registered"}},
		Payment:      &models.Payment{Status: models.PaymentStatusPendingVerification, ProofRef: &proofRef},
	}}
	h := NewCheckoutHandler(fake, 1024)

	body, contentType := multipartBody(t, "123456789012", "proof.png", []byte("\x89PNG\r\n\x1a\n"))
	c, rec := newContext(http.MethodPost, "/checkouts/co-1/bank-transfer", body)
	c.Request.Header.Set("Content-Type", contentType)
	c.Params = gin.Params{{Key: "id", Value: "co-1"}}
	withUser(c, "school-1", models.RoleSchool)
	h.BankTransfer(c)

	require.Equal(t, http.StatusMultiStatus, rec.Code)
	data := decode(t, rec).Data
	assert.Equal(t, float64(1), data["studentCount"])
	errs, ok := data["errors"].([]interface{})
	require.True(t, ok)
	assert.Len(t, errs, 1)
}

func TestCheckoutHandlerVerifyDelegateLink(t *testing.T) {
	c, rec := newContext(http.MethodGet, "/delegate/verify?token=co-1", nil)
	NewCheckoutHandler(&fakeCheckouts{}, 0).VerifyDelegateLink(c)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "parent@example.com", decode(t, rec).Data["parentEmail"])

	c, rec = newContext(http.MethodGet, "/delegate/verify", nil)
	NewCheckoutHandler(&fakeCheckouts{}, 0).VerifyDelegateLink(c)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	c, rec = newContext(http.MethodGet, "/delegate/verify?token=bad", nil)
	NewCheckoutHandler(&fakeCheckouts{err: appErrors.Clone(appErrors.ErrUnauthorized, "payment link is invalid or expired")}, 0).VerifyDelegateLink(c)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "UNAUTHORIZED", decode(t, rec).Error.Code)
}

func TestCheckoutHandlerBankTransferTooLarge(t *testing.T) {
	fake := &fakeCheckouts{}
	h := NewCheckoutHandler(fake, 16)

	body, contentType := multipartBody(t, "123456789012", "proof.png", bytes.Repeat([]byte("x"), 2<<20))
	c, rec := newContext(http.MethodPost, "/checkouts/co-1/bank-transfer", body)
	c.Request.Header.Set("Content-Type", contentType)
	withUser(c, "parent-1", models.RoleParent)
	h.BankTransfer(c)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, "FILE_TOO_LARGE", decode(t, rec).Error.Code)
	assert.Nil(t, fake.lastTransfer.Proof)
}

func TestCheckoutHandlerBankTransferMissingProof(t *testing.T) {
	fake := &fakeCheckouts{err: appErrors.Clone(appErrors.ErrValidation, "payment proof is required")}
	h := NewCheckoutHandler(fake, 1024)

	body, contentType := multipartBody(t, "123456789012", "", nil)
	c, rec := newContext(http.MethodPost, "/checkouts/co-1/bank-transfer", body)
	c.Request.Header.Set("Content-Type", contentType)
	withUser(c, "parent-1", models.RoleParent)
	h.BankTransfer(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Nil(t, fake.lastTransfer.Proof)
}

func TestCheckoutHandlerReceipt(t *testing.T) {
	c, rec := newContext(http.MethodGet, "/checkouts/co-1/receipt", nil)
	withUser(c, "parent-1", models.RoleParent)
	NewCheckoutHandler(&fakeCheckouts{}, 0).Receipt(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "rcpt-abc.pdf")
}

type fakeImporter struct {
	body   string
	result *models.BulkImportResult
	err    error
}

func (f *fakeImporter) BulkImport(_ context.Context, _ models.Actor, src io.Reader) (*models.BulkImportResult, error) {
	data, _ := io.ReadAll(src)
	f.body = string(data)
	return f.result, f.err
}

func TestRegistrationHandlerBulk(t *testing.T) {
	csv := "student_id,sport_id,age_category_id\ns1,sport-1,cat-1\n"

	importer := &fakeImporter{result: &models.BulkImportResult{SuccessCount: 1, Errors: []models.RowError{}}}
	c, rec := newContext(http.MethodPost, "/registrations/bulk", strings.NewReader(csv))
	c.Request.Header.Set("Content-Type", "text/csv")
	withUser(c, "admin-1", models.RoleAdmin)
	NewRegistrationHandler(importer).Bulk(c)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, csv, importer.body)

	importer = &fakeImporter{result: &models.BulkImportResult{SuccessCount: 1, Errors: []models.RowError{{Row: 3, Code: "CONFLICT"}}}}
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	part, err := w.CreateFormFile("file", "import.csv")
	require.NoError(t, err)
	_, _ = part.Write([]byte(csv))
	require.NoError(t, w.Close())
	c, rec = newContext(http.MethodPost, "/registrations/bulk", body)
	c.Request.Header.Set("Content-Type", w.FormDataContentType())
	withUser(c, "admin-1", models.RoleAdmin)
	NewRegistrationHandler(importer).Bulk(c)
	assert.Equal(t, http.StatusMultiStatus, rec.Code)
	assert.Equal(t, csv, importer.body)
	assert.Equal(t, "PARTIAL_REGISTRATION_FAILURE", decode(t, rec).Meta["code"])
}

func TestMetricsHandlerReady(t *testing.T) {
	ok := func(context.Context) error { return nil }
	down := func(context.Context) error { return errors.New("connection refused") }

	c, rec := newContext(http.MethodGet, "/ready", nil)
	NewMetricsHandler(service.NewMetricsService(), map[string]ReadinessCheck{"postgres": ok, "redis": ok}).Ready(c)
	assert.Equal(t, http.StatusOK, rec.Code)

	c, rec = newContext(http.MethodGet, "/ready", nil)
	NewMetricsHandler(nil, map[string]ReadinessCheck{"postgres": ok, "redis": down}).Ready(c)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "connection refused")

	c, rec = newContext(http.MethodGet, "/metrics", nil)
	NewMetricsHandler(nil, nil).Prometheus(c)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
