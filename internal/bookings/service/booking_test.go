package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sync"
	"testing"
	"time"

	"medibook/internal/bookings/repository"
	"medibook/internal/bookings/validator"
	"medibook/internal/directory"
	otprepo "medibook/internal/otp/repository"
	otpservice "medibook/internal/otp/service"
	"medibook/pkg/config"
	"medibook/pkg/db/memory"
	apperrors "medibook/pkg/errors"
	"medibook/pkg/lock"
	"medibook/pkg/logger"
	"medibook/pkg/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordingSender struct {
	mu   sync.Mutex
	sent []model.SMS
}

func (s *recordingSender) Send(_ context.Context, sms model.SMS) (model.DeliveryStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, sms)
	return model.DeliveryQueued, nil
}

func (s *recordingSender) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}

// failingUpdates lets a test make the next booking write fail after the
// challenge has been consumed.
type failingUpdates struct {
	repository.BookingRepository
	mu   sync.Mutex
	fail bool
}

func (r *failingUpdates) Update(ctx context.Context, b *model.Booking) error {
	r.mu.Lock()
	fail := r.fail
	r.mu.Unlock()
	if fail {
		return errors.New("disk full")
	}
	return r.BookingRepository.Update(ctx, b)
}

func (r *failingUpdates) setFail(v bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fail = v
}

type fixture struct {
	service  BookingService
	repo     *failingUpdates
	otpRepo  otprepo.ChallengeRepository
	sender   *recordingSender
	clock    *testClock
	codeSeed int
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	txm := memory.NewTransactionManager()
	repo := &failingUpdates{BookingRepository: repository.NewMemoryBookingRepository(txm)}
	otpRepo := otprepo.NewMemoryChallengeRepository(txm)
	clock := &testClock{now: time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)}
	sender := &recordingSender{}

	var mu sync.Mutex
	next := 100000
	codes := func(int) (string, error) {
		mu.Lock()
		defer mu.Unlock()
		next++
		return fmt.Sprintf("%06d", next), nil
	}

	manager := otpservice.NewManager(otpRepo, sender, otpservice.Config{
		TTL:         5 * time.Minute,
		CodeLength:  6,
		HashCost:    bcrypt.MinCost,
		ExposeCode:  true,
		SendTimeout: time.Second,
	}, logger.Discard(), otpservice.WithClock(clock.Now), otpservice.WithCodeGenerator(codes))

	dir := directory.NewStaticDirectory(directory.Fixture{
		Patients: []model.Patient{
			{Ref: "pat-1", Name: "Amina W.", Phone: "0712345678"},
			{Ref: "pat-nophone", Name: "No Phone", Phone: "n/a"},
		},
		Facilities: []model.Facility{{Ref: "fac-1", Name: "Riverside Clinic"}},
		Services: []model.CatalogService{
			{Ref: "svc-xray", Name: "Chest X-Ray", Code: "XR01", Tariff: 1500, FacilityShare: 1000, VendorShare: 500},
			{Ref: "svc-lab", Name: "Full Blood Count", Code: "LB02", Tariff: 800, FacilityShare: 600, VendorShare: 200},
			{Ref: "svc-scan", Name: "Ultrasound", Code: "US03", Tariff: 2500, FacilityShare: 2000, VendorShare: 500},
		},
		Practitioners: []model.Practitioner{{Ref: "doc-1", Name: "Dr. Otieno"}},
	})

	cfg := &config.Config{
		Log:          logger.Discard(),
		PhoneRegions: []string{"KE"},
	}

	svc := NewBookingService(
		repo,
		manager,
		dir,
		lock.NewMemoryLocker(time.Second),
		validator.NewBookingValidator(logger.Discard()),
		cfg,
	)

	return &fixture{service: svc, repo: repo, otpRepo: otpRepo, sender: sender, clock: clock}
}

func createRequest(patient string, serviceRefs ...string) *model.CreateBookingRequest {
	req := &model.CreateBookingRequest{
		PatientRef:   patient,
		FacilityRef:  "fac-1",
		PaymentMode:  model.PaymentCash,
		CreatedByRef: "agent-7",
	}
	for i, ref := range serviceRefs {
		req.Services = append(req.Services, model.CreateServiceRequest{
			ServiceRef:      ref,
			PractitionerRef: "doc-1",
			ScheduledDate:   time.Date(2025, 3, 11+i, 0, 0, 0, 0, time.UTC),
		})
	}
	return req
}

func (f *fixture) create(t *testing.T, serviceRefs ...string) *model.Booking {
	t.Helper()
	b, err := f.service.Create(context.Background(), createRequest("pat-1", serviceRefs...))
	require.NoError(t, err)
	return b
}

func (f *fixture) activate(t *testing.T, serviceRefs ...string) *model.Booking {
	t.Helper()
	ctx := context.Background()
	b := f.create(t, serviceRefs...)
	issued, err := f.service.RequestConsentOTP(ctx, b.ID)
	require.NoError(t, err)
	b, err = f.service.VerifyConsent(ctx, b.ID, &model.VerifyRequest{SessionID: issued.ID, Code: issued.Code})
	require.NoError(t, err)
	require.Equal(t, model.BookingActive, b.BookingStatus)
	return b
}

func (f *fixture) completeService(t *testing.T, bookingID, serviceID string) *model.Booking {
	t.Helper()
	ctx := context.Background()
	issued, err := f.service.RequestServiceOTP(ctx, bookingID, serviceID)
	require.NoError(t, err)
	b, err := f.service.VerifyService(ctx, bookingID, serviceID, &model.VerifyRequest{SessionID: issued.ID, Code: issued.Code})
	require.NoError(t, err)
	return b
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	appErr := apperrors.AsAppError(err)
	assert.Equal(t, code, appErr.Code, "error: %v", err)
}

func TestCreate(t *testing.T) {
	f := newFixture(t)

	b := f.create(t, "svc-xray", "svc-lab")

	assert.Regexp(t, regexp.MustCompile(`^BK-20250310-[A-Z2-9]{6}$`), b.BookingNumber)
	assert.Equal(t, model.BookingPendingOTP, b.BookingStatus)
	assert.Equal(t, model.ApprovalPending, b.ApprovalStatus)
	assert.Equal(t, 0, b.Cursor)
	require.Len(t, b.Services, 2)
	assert.Equal(t, "Chest X-Ray", b.Services[0].ServiceName)
	assert.Equal(t, 1500.0, b.Services[0].Tariff)
	assert.Equal(t, 1000.0, b.Services[0].FacilityShare)
	assert.Equal(t, model.ServiceNotStarted, b.Services[1].Status)
	assert.Equal(t, b.ID, b.Services[1].BookingID)

	tariff, _, _ := b.TariffTotal()
	assert.Equal(t, 2300.0, tariff)
}

func TestCreate_Errors(t *testing.T) {
	tests := []struct {
		name string
		req  *model.CreateBookingRequest
		code string
	}{
		{
			name: "no services",
			req:  createRequest("pat-1"),
			code: apperrors.CodeValidation,
		},
		{
			name: "unknown patient",
			req:  createRequest("pat-404", "svc-xray"),
			code: apperrors.CodeValidation,
		},
		{
			name: "unknown catalog service",
			req:  createRequest("pat-1", "svc-missing"),
			code: apperrors.CodeValidation,
		},
		{
			name: "bad payment mode",
			req: func() *model.CreateBookingRequest {
				r := createRequest("pat-1", "svc-xray")
				r.PaymentMode = "barter"
				return r
			}(),
			code: apperrors.CodeValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			_, err := f.service.Create(context.Background(), tt.req)
			assertCode(t, err, tt.code)
		})
	}
}

func TestLifecycle_ConsentThenServicesInOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	b := f.create(t, "svc-xray", "svc-lab")

	issued, err := f.service.RequestConsentOTP(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PurposeConsent, issued.Purpose)
	assert.Equal(t, 1, f.sender.count())
	assert.Equal(t, "+254712345678", f.sender.sent[0].Phone)

	b, err = f.service.VerifyConsent(ctx, b.ID, &model.VerifyRequest{SessionID: issued.ID, Code: issued.Code})
	require.NoError(t, err)
	assert.Equal(t, model.BookingActive, b.BookingStatus)
	assert.NotNil(t, b.ConsentVerifiedAt)
	assert.Equal(t, 0, b.Cursor)

	first, err := f.service.RequestServiceOTP(ctx, b.ID, b.Services[0].ID)
	require.NoError(t, err)
	_, err = f.service.VerifyService(ctx, b.ID, b.Services[0].ID, &model.VerifyRequest{SessionID: first.ID, Code: "000000"})
	assertCode(t, err, apperrors.CodeMismatch)

	b, err = f.service.VerifyService(ctx, b.ID, b.Services[0].ID, &model.VerifyRequest{SessionID: first.ID, Code: first.Code})
	require.NoError(t, err)
	assert.Equal(t, model.ServiceCompleted, b.Services[0].Status)
	assert.Equal(t, 1, b.Cursor)
	assert.Equal(t, model.BookingActive, b.BookingStatus)

	_, err = f.service.VerifyService(ctx, b.ID, b.Services[1].ID, &model.VerifyRequest{Code: "12345"})
	assertCode(t, err, apperrors.CodeNotFound)

	b = f.completeService(t, b.ID, b.Services[1].ID)
	assert.Equal(t, model.BookingCompleted, b.BookingStatus)
	assert.Equal(t, model.NoCursor, b.Cursor)
	assert.NotNil(t, b.CompletedAt)
}

func TestRequestServiceOTP_MarksInProgress(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.activate(t, "svc-xray")

	_, err := f.service.RequestServiceOTP(ctx, b.ID, b.Services[0].ID)
	require.NoError(t, err)

	got, err := f.service.GetByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ServiceInProgress, got.Services[0].Status)
}

func TestRequestServiceOTP_FailedStatusWriteSendsNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.activate(t, "svc-xray")
	sent := f.sender.count()

	f.repo.setFail(true)
	_, err := f.service.RequestServiceOTP(ctx, b.ID, b.Services[0].ID)
	assertCode(t, err, apperrors.CodeInternal)
	f.repo.setFail(false)

	assert.Equal(t, sent, f.sender.count())
	_, err = f.otpRepo.FindLatest(ctx, model.ServiceSubject(b.ID, b.Services[0].ID), model.PurposeServiceCompletion)
	assert.Error(t, err)

	got, err := f.service.GetByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ServiceNotStarted, got.Services[0].Status)

	issued, err := f.service.RequestServiceOTP(ctx, b.ID, b.Services[0].ID)
	require.NoError(t, err)
	assert.NotEmpty(t, issued.Code)
}

func TestVerifyConsent_ResendSupersedesEarlierCode(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.create(t, "svc-xray")

	first, err := f.service.RequestConsentOTP(ctx, b.ID)
	require.NoError(t, err)
	second, err := f.service.ResendConsentOTP(ctx, b.ID)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	_, err = f.service.VerifyConsent(ctx, b.ID, &model.VerifyRequest{SessionID: first.ID, Code: first.Code})
	assertCode(t, err, apperrors.CodeNotFound)

	b, err = f.service.VerifyConsent(ctx, b.ID, &model.VerifyRequest{SessionID: second.ID, Code: second.Code})
	require.NoError(t, err)
	assert.Equal(t, model.BookingActive, b.BookingStatus)
}

func TestVerifyConsent_WithoutSessionUsesPendingChallenge(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.create(t, "svc-xray")

	issued, err := f.service.RequestConsentOTP(ctx, b.ID)
	require.NoError(t, err)

	b, err = f.service.VerifyConsent(ctx, b.ID, &model.VerifyRequest{Code: issued.Code})
	require.NoError(t, err)
	assert.Equal(t, model.BookingActive, b.BookingStatus)
}

func TestVerifyConsent_WithoutSessionStaysExpired(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.create(t, "svc-xray")

	issued, err := f.service.RequestConsentOTP(ctx, b.ID)
	require.NoError(t, err)

	f.clock.Advance(6 * time.Minute)
	for i := 0; i < 2; i++ {
		_, err = f.service.VerifyConsent(ctx, b.ID, &model.VerifyRequest{Code: issued.Code})
		assertCode(t, err, apperrors.CodeExpired)
	}

	now := f.clock.Now()
	_, err = f.otpRepo.ExpireStale(ctx, now, now)
	require.NoError(t, err)
	_, err = f.service.VerifyConsent(ctx, b.ID, &model.VerifyRequest{Code: issued.Code})
	assertCode(t, err, apperrors.CodeExpired)

	challenge, err := f.otpRepo.FindByID(ctx, issued.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ChallengeExpired, challenge.Status)
}

func TestVerifyConsent_WithoutSessionAfterResendUsesNewest(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.create(t, "svc-xray")

	first, err := f.service.RequestConsentOTP(ctx, b.ID)
	require.NoError(t, err)
	f.clock.Advance(time.Minute)
	second, err := f.service.ResendConsentOTP(ctx, b.ID)
	require.NoError(t, err)

	_, err = f.service.VerifyConsent(ctx, b.ID, &model.VerifyRequest{Code: first.Code})
	assertCode(t, err, apperrors.CodeMismatch)

	b, err = f.service.VerifyConsent(ctx, b.ID, &model.VerifyRequest{Code: second.Code})
	require.NoError(t, err)
	assert.Equal(t, model.BookingActive, b.BookingStatus)

	_, err = f.service.VerifyConsent(ctx, b.ID, &model.VerifyRequest{Code: second.Code})
	assertCode(t, err, apperrors.CodeAlreadyValidated)
}

func TestVerifyConsent_MismatchThenExpiry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.create(t, "svc-xray")

	issued, err := f.service.RequestConsentOTP(ctx, b.ID)
	require.NoError(t, err)

	_, err = f.service.VerifyConsent(ctx, b.ID, &model.VerifyRequest{SessionID: issued.ID, Code: "999999"})
	assertCode(t, err, apperrors.CodeMismatch)

	f.clock.Advance(5 * time.Minute)
	_, err = f.service.VerifyConsent(ctx, b.ID, &model.VerifyRequest{SessionID: issued.ID, Code: issued.Code})
	assertCode(t, err, apperrors.CodeExpired)

	got, err := f.service.GetByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BookingPendingOTP, got.BookingStatus)

	challenge, err := f.otpRepo.FindByID(ctx, issued.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ChallengeExpired, challenge.Status)
	assert.Equal(t, 1, challenge.Attempts)
}

func TestVerifyConsent_Twice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.create(t, "svc-xray")

	issued, err := f.service.RequestConsentOTP(ctx, b.ID)
	require.NoError(t, err)
	req := &model.VerifyRequest{SessionID: issued.ID, Code: issued.Code}

	_, err = f.service.VerifyConsent(ctx, b.ID, req)
	require.NoError(t, err)

	_, err = f.service.VerifyConsent(ctx, b.ID, &model.VerifyRequest{SessionID: issued.ID, Code: issued.Code})
	assertCode(t, err, apperrors.CodeAlreadyValidated)
}

func TestConsent_OnCancelledBooking(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.create(t, "svc-xray")

	issued, err := f.service.RequestConsentOTP(ctx, b.ID)
	require.NoError(t, err)

	_, err = f.service.Cancel(ctx, b.ID, &model.CancelRequest{Reason: "patient left"})
	require.NoError(t, err)

	_, err = f.service.VerifyConsent(ctx, b.ID, &model.VerifyRequest{SessionID: issued.ID, Code: issued.Code})
	assertCode(t, err, apperrors.CodeInvalidTransition)

	_, err = f.service.RequestConsentOTP(ctx, b.ID)
	assertCode(t, err, apperrors.CodeInvalidTransition)

	challenge, err := f.otpRepo.FindByID(ctx, issued.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ChallengeSuperseded, challenge.Status)
}

func TestRequestConsentOTP_UndeliverablePhone(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	b, err := f.service.Create(ctx, createRequest("pat-nophone", "svc-xray"))
	require.NoError(t, err)

	_, err = f.service.RequestConsentOTP(ctx, b.ID)
	assertCode(t, err, apperrors.CodeValidation)
	assert.Equal(t, 0, f.sender.count())
}

func TestServiceOTP_OutOfSequence(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.activate(t, "svc-xray", "svc-lab")

	_, err := f.service.RequestServiceOTP(ctx, b.ID, b.Services[1].ID)
	assertCode(t, err, apperrors.CodeOutOfSequence)
	assert.Equal(t, b.Services[0].ID, apperrors.AsAppError(err).Details["next_service_id"])

	_, err = f.service.VerifyService(ctx, b.ID, b.Services[1].ID, &model.VerifyRequest{Code: "123456"})
	assertCode(t, err, apperrors.CodeOutOfSequence)

	got, err := f.service.GetByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Cursor)
	assert.Equal(t, model.ServiceNotStarted, got.Services[1].Status)
	assert.Equal(t, b.Version, got.Version)
}

func TestServiceOTP_BeforeConsent(t *testing.T) {
	f := newFixture(t)
	b := f.create(t, "svc-xray")

	_, err := f.service.RequestServiceOTP(context.Background(), b.ID, b.Services[0].ID)
	assertCode(t, err, apperrors.CodeInvalidTransition)
}

func TestServiceOTP_UnknownService(t *testing.T) {
	f := newFixture(t)
	b := f.activate(t, "svc-xray")

	_, err := f.service.RequestServiceOTP(context.Background(), b.ID, "nope")
	assertCode(t, err, apperrors.CodeNotFound)
}

func TestVerifyService_ConsentCodeDoesNotComplete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.create(t, "svc-xray")

	consent, err := f.service.RequestConsentOTP(ctx, b.ID)
	require.NoError(t, err)
	_, err = f.service.VerifyConsent(ctx, b.ID, &model.VerifyRequest{SessionID: consent.ID, Code: consent.Code})
	require.NoError(t, err)

	_, err = f.service.RequestServiceOTP(ctx, b.ID, b.Services[0].ID)
	require.NoError(t, err)

	_, err = f.service.VerifyService(ctx, b.ID, b.Services[0].ID, &model.VerifyRequest{SessionID: consent.ID, Code: consent.Code})
	assertCode(t, err, apperrors.CodeNotFound)
}

func TestVerifyService_ConcurrentOnlyOneSucceeds(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.activate(t, "svc-xray", "svc-lab")

	issued, err := f.service.RequestServiceOTP(ctx, b.ID, b.Services[0].ID)
	require.NoError(t, err)

	const workers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		codes     []string
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.service.VerifyService(ctx, b.ID, b.Services[0].ID, &model.VerifyRequest{SessionID: issued.ID, Code: issued.Code})
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				successes++
				return
			}
			codes = append(codes, apperrors.AsAppError(err).Code)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	for _, c := range codes {
		assert.Contains(t, []string{apperrors.CodeAlreadyValidated, apperrors.CodeOutOfSequence, apperrors.CodeInvalidTransition}, c)
	}

	got, err := f.service.GetByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Cursor)
}

func TestVerifyService_CompletedServiceReportsAlreadyValidated(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.activate(t, "svc-xray", "svc-lab")

	issued, err := f.service.RequestServiceOTP(ctx, b.ID, b.Services[0].ID)
	require.NoError(t, err)
	_, err = f.service.VerifyService(ctx, b.ID, b.Services[0].ID, &model.VerifyRequest{SessionID: issued.ID, Code: issued.Code})
	require.NoError(t, err)

	for _, req := range []*model.VerifyRequest{
		{SessionID: issued.ID, Code: issued.Code},
		{Code: issued.Code},
	} {
		_, err = f.service.VerifyService(ctx, b.ID, b.Services[0].ID, req)
		assertCode(t, err, apperrors.CodeAlreadyValidated)
	}

	_, err = f.service.RequestServiceOTP(ctx, b.ID, b.Services[0].ID)
	assertCode(t, err, apperrors.CodeInvalidTransition)
}

func TestVerifyService_RollbackKeepsChallengePending(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.activate(t, "svc-xray")

	issued, err := f.service.RequestServiceOTP(ctx, b.ID, b.Services[0].ID)
	require.NoError(t, err)

	f.repo.setFail(true)
	_, err = f.service.VerifyService(ctx, b.ID, b.Services[0].ID, &model.VerifyRequest{SessionID: issued.ID, Code: issued.Code})
	assertCode(t, err, apperrors.CodeInternal)

	challenge, err := f.otpRepo.FindByID(ctx, issued.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ChallengePending, challenge.Status)

	f.repo.setFail(false)
	got, err := f.service.VerifyService(ctx, b.ID, b.Services[0].ID, &model.VerifyRequest{SessionID: issued.ID, Code: issued.Code})
	require.NoError(t, err)
	assert.Equal(t, model.BookingCompleted, got.BookingStatus)
}

func TestCancel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.activate(t, "svc-xray", "svc-lab")
	b = f.completeService(t, b.ID, b.Services[0].ID)

	pending, err := f.service.RequestServiceOTP(ctx, b.ID, b.Services[1].ID)
	require.NoError(t, err)

	got, err := f.service.Cancel(ctx, b.ID, &model.CancelRequest{Reason: "  moved   away "})
	require.NoError(t, err)
	assert.Equal(t, model.BookingCancelled, got.BookingStatus)
	assert.Equal(t, "moved away", got.CancelReason)
	assert.Equal(t, model.NoCursor, got.Cursor)
	assert.Equal(t, model.ServiceCompleted, got.Services[0].Status)
	assert.Equal(t, model.ServiceCancelled, got.Services[1].Status)

	challenge, err := f.otpRepo.FindByID(ctx, pending.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ChallengeSuperseded, challenge.Status)

	_, err = f.service.Cancel(ctx, b.ID, &model.CancelRequest{})
	assertCode(t, err, apperrors.CodeInvalidTransition)
}

func TestCancelService(t *testing.T) {
	t.Run("skipping the cursor service advances it", func(t *testing.T) {
		f := newFixture(t)
		b := f.activate(t, "svc-xray", "svc-lab")

		got, err := f.service.CancelService(context.Background(), b.ID, b.Services[0].ID)
		require.NoError(t, err)
		assert.Equal(t, 1, got.Cursor)
		assert.Equal(t, model.BookingActive, got.BookingStatus)
	})

	t.Run("cancelling the last open service completes the booking", func(t *testing.T) {
		f := newFixture(t)
		b := f.activate(t, "svc-xray", "svc-lab")
		b = f.completeService(t, b.ID, b.Services[0].ID)

		got, err := f.service.CancelService(context.Background(), b.ID, b.Services[1].ID)
		require.NoError(t, err)
		assert.Equal(t, model.BookingCompleted, got.BookingStatus)
		assert.Equal(t, model.NoCursor, got.Cursor)
	})

	t.Run("cancelling every service cancels the booking", func(t *testing.T) {
		f := newFixture(t)
		b := f.create(t, "svc-xray")

		got, err := f.service.CancelService(context.Background(), b.ID, b.Services[0].ID)
		require.NoError(t, err)
		assert.Equal(t, model.BookingCancelled, got.BookingStatus)
	})

	t.Run("completed service cannot be cancelled", func(t *testing.T) {
		f := newFixture(t)
		b := f.activate(t, "svc-xray", "svc-lab")
		b = f.completeService(t, b.ID, b.Services[0].ID)

		_, err := f.service.CancelService(context.Background(), b.ID, b.Services[0].ID)
		assertCode(t, err, apperrors.CodeInvalidTransition)
	})
}

func TestSetApproval(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.create(t, "svc-xray")

	_, err := f.service.SetApproval(ctx, b.ID, &model.ApprovalRequest{Decision: model.ApprovalPending})
	assertCode(t, err, apperrors.CodeValidation)

	got, err := f.service.SetApproval(ctx, b.ID, &model.ApprovalRequest{Decision: model.ApprovalApproved, Note: "covered"})
	require.NoError(t, err)
	assert.Equal(t, model.ApprovalApproved, got.ApprovalStatus)
	assert.Equal(t, model.BookingPendingOTP, got.BookingStatus)

	_, err = f.service.SetApproval(ctx, b.ID, &model.ApprovalRequest{Decision: model.ApprovalRejected})
	assertCode(t, err, apperrors.CodeInvalidTransition)
}

func TestGetByID_NotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.service.GetByID(context.Background(), "missing")
	assertCode(t, err, apperrors.CodeNotFound)
}

func TestGetAll(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 3; i++ {
		f.create(t, "svc-xray")
		f.clock.Advance(time.Minute)
	}

	page, total, err := f.service.GetAll(context.Background(), 2, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, page, 2)
	assert.True(t, page[0].CreatedAt.After(page[1].CreatedAt))
}

func TestCompletionMatchesServiceStates(t *testing.T) {
	// A booking is completed exactly when it was active and no open service remains.
	f := newFixture(t)
	ctx := context.Background()
	b := f.activate(t, "svc-xray", "svc-lab", "svc-scan")

	steps := []func(b *model.Booking) (*model.Booking, error){
		func(b *model.Booking) (*model.Booking, error) {
			return f.completeService(t, b.ID, b.Services[0].ID), nil
		},
		func(b *model.Booking) (*model.Booking, error) {
			return f.service.CancelService(ctx, b.ID, b.Services[1].ID)
		},
		func(b *model.Booking) (*model.Booking, error) {
			return f.completeService(t, b.ID, b.Services[2].ID), nil
		},
	}
	for i, step := range steps {
		var err error
		b, err = step(b)
		require.NoError(t, err, "step %d", i)

		open := b.NextOpen(0) != model.NoCursor
		assert.Equal(t, !open, b.BookingStatus == model.BookingCompleted, "step %d", i)
		assert.Equal(t, b.NextOpen(0), b.Cursor, "step %d", i)
	}
}
