package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"medibook/internal/notifications"
	otperrors "medibook/internal/otp/errors"
	"medibook/internal/otp/repository"
	"medibook/pkg/config"
	apperrors "medibook/pkg/errors"
	"medibook/pkg/logger"
	"medibook/pkg/model"
	"medibook/pkg/sanitizer"

	"github.com/google/uuid"
)

type Config struct {
	TTL         time.Duration
	CodeLength  int
	HashCost    int
	ExposeCode  bool
	SendTimeout time.Duration
}

func ConfigFrom(cfg *config.Config) Config {
	return Config{
		TTL:         cfg.OTPTTL,
		CodeLength:  cfg.OTPCodeLength,
		HashCost:    cfg.OTPHashCost,
		ExposeCode:  cfg.OTPExposeCode,
		SendTimeout: cfg.NotificationTimeout,
	}
}

type IssueRequest struct {
	BookingID string
	ServiceID string
	Purpose   model.OTPPurpose
	// Phone must already be in E.164.
	Phone string
	// Reference is the human-readable booking number quoted in the SMS.
	Reference string
}

func (r IssueRequest) subject() (string, error) {
	switch r.Purpose {
	case model.PurposeConsent:
		return model.ConsentSubject(r.BookingID), nil
	case model.PurposeServiceCompletion:
		if r.ServiceID == "" {
			return "", otperrors.ErrInvalidPurpose
		}
		return model.ServiceSubject(r.BookingID, r.ServiceID), nil
	default:
		return "", otperrors.ErrInvalidPurpose
	}
}

// Issued is the result of Issue. Code is only set when codes are exposed
// for test environments.
type Issued struct {
	*model.OTPChallenge
	Code string `json:"code,omitempty"`
}

type Option func(*Manager)

func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

func WithCodeGenerator(generate func(length int) (string, error)) Option {
	return func(m *Manager) { m.generate = generate }
}

// Manager owns the challenge lifecycle: issue, check, consume and the
// housekeeping transitions. It never stores or logs a raw code.
type Manager struct {
	repo     repository.ChallengeRepository
	sender   notifications.Sender
	cfg      Config
	log      *logger.Logger
	now      func() time.Time
	generate func(int) (string, error)
}

func NewManager(repo repository.ChallengeRepository, sender notifications.Sender, cfg Config, log *logger.Logger, opts ...Option) *Manager {
	m := &Manager{
		repo:     repo,
		sender:   sender,
		cfg:      cfg,
		log:      log,
		now:      time.Now,
		generate: GenerateCode,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) Now() time.Time {
	return m.now().UTC()
}

// Issue supersedes any pending challenge for the same subject and purpose,
// stores a new one and hands the code to the sender. The send is bounded by
// SendTimeout; a failed send leaves the challenge pending with
// delivery_status=failed and returns DeliveryFailed.
func (m *Manager) Issue(ctx context.Context, req IssueRequest) (*Issued, error) {
	subject, err := req.subject()
	if err != nil {
		return nil, apperrors.InvalidInput(fmt.Sprintf("invalid otp purpose %q", req.Purpose))
	}
	if req.Phone == "" {
		return nil, apperrors.InvalidInput("A phone number is required to deliver the code")
	}

	code, err := m.generate(m.cfg.CodeLength)
	if err != nil {
		return nil, apperrors.Internal("Failed to generate code", err)
	}
	hash, err := hashCode(code, m.cfg.HashCost)
	if err != nil {
		return nil, apperrors.Internal("Failed to generate code", err)
	}

	now := m.Now()
	challenge := &model.OTPChallenge{
		ID:             uuid.New().String(),
		BookingID:      req.BookingID,
		ServiceID:      req.ServiceID,
		SubjectRef:     subject,
		Purpose:        req.Purpose,
		CodeHash:       hash,
		Status:         model.ChallengePending,
		DeliveryStatus: model.DeliveryQueued,
		IssuedAt:       now,
		ExpiresAt:      now.Add(m.cfg.TTL),
		UpdatedAt:      now,
	}

	var superseded int64
	err = m.repo.ExecuteTransaction(ctx, func(ctx context.Context) error {
		n, err := m.repo.SupersedePending(ctx, subject, req.Purpose, now)
		if err != nil {
			return err
		}
		superseded = n
		return m.repo.Create(ctx, challenge)
	})
	if err != nil {
		if errors.Is(err, otperrors.ErrPendingExists) {
			return nil, apperrors.Conflict("Another code is being issued for this request, try again")
		}
		m.log.Error("Failed to store otp challenge",
			"booking_id", req.BookingID,
			"purpose", req.Purpose,
			"error", err,
		)
		return nil, apperrors.Internal("Failed to issue code", err)
	}

	if err := m.deliver(ctx, challenge, req, code); err != nil {
		return nil, err
	}

	m.log.Info("OTP challenge issued",
		"session_id", challenge.ID,
		"booking_id", req.BookingID,
		"service_id", req.ServiceID,
		"purpose", req.Purpose,
		"expires_at", challenge.ExpiresAt,
		"delivery_status", challenge.DeliveryStatus,
		"superseded", superseded,
	)

	issued := &Issued{OTPChallenge: challenge}
	if m.cfg.ExposeCode {
		issued.Code = code
	}
	return issued, nil
}

// Resend is Issue under another name: the previous pending challenge is
// superseded and a fresh code goes out.
func (m *Manager) Resend(ctx context.Context, req IssueRequest) (*Issued, error) {
	m.log.Info("OTP resend requested", "booking_id", req.BookingID, "service_id", req.ServiceID, "purpose", req.Purpose)
	return m.Issue(ctx, req)
}

func (m *Manager) deliver(ctx context.Context, challenge *model.OTPChallenge, req IssueRequest, code string) error {
	sendCtx, cancel := context.WithTimeout(ctx, m.cfg.SendTimeout)
	status, sendErr := m.sender.Send(sendCtx, model.SMS{
		Phone:     req.Phone,
		Body:      messageBody(req.Purpose, req.Reference, code, m.cfg.TTL),
		Reference: challenge.ID,
	})
	cancel()

	if sendErr != nil {
		m.log.Warn("OTP delivery failed",
			"session_id", challenge.ID,
			"booking_id", req.BookingID,
			"phone", sanitizer.MaskPhone(req.Phone),
			"error", sendErr,
		)
		m.setDelivery(ctx, challenge, model.DeliveryFailed, sendErr.Error())
		return apperrors.DeliveryFailed(fmt.Errorf("%w: %v", otperrors.ErrDeliveryFailed, sendErr)).WithDetails(map[string]any{
			"session_id": challenge.ID,
			"expires_at": challenge.ExpiresAt,
		})
	}

	if status != challenge.DeliveryStatus {
		m.setDelivery(ctx, challenge, status, "")
	}
	return nil
}

func (m *Manager) setDelivery(ctx context.Context, challenge *model.OTPChallenge, status model.DeliveryStatus, deliveryErr string) {
	challenge.DeliveryStatus = status
	challenge.DeliveryError = deliveryErr
	if err := m.repo.SetDelivery(ctx, challenge.ID, status, deliveryErr, m.Now()); err != nil {
		m.log.Error("Failed to record otp delivery status",
			"session_id", challenge.ID,
			"delivery_status", status,
			"error", err,
		)
	}
}

func messageBody(purpose model.OTPPurpose, reference, code string, ttl time.Duration) string {
	minutes := int(ttl.Round(time.Minute) / time.Minute)
	if minutes < 1 {
		minutes = 1
	}
	what := "consent"
	if purpose == model.PurposeServiceCompletion {
		what = "service completion"
	}
	return fmt.Sprintf("MediBook: your %s code for booking %s is %s. It expires in %d min. Do not share it.", what, reference, code, minutes)
}

// Lookup resolves the challenge a verify call refers to. With a session id
// the challenge must belong to subject and purpose; without one the most
// recently issued challenge for the subject is used, so an expired or
// validated code keeps reporting its own outcome. Challenges are returned in
// any status.
func (m *Manager) Lookup(ctx context.Context, sessionID, subject string, purpose model.OTPPurpose) (*model.OTPChallenge, error) {
	var (
		challenge *model.OTPChallenge
		err       error
	)
	if sessionID != "" {
		challenge, err = m.repo.FindByID(ctx, sessionID)
		if err == nil && (challenge.SubjectRef != subject || challenge.Purpose != purpose) {
			return nil, notFound(otperrors.ErrSubjectMismatch)
		}
	} else {
		challenge, err = m.repo.FindLatest(ctx, subject, purpose)
	}
	if err != nil {
		if errors.Is(err, otperrors.ErrNotFound) {
			return nil, notFound(err)
		}
		return nil, apperrors.Internal("Failed to load code", err)
	}
	return challenge, nil
}

func (m *Manager) Get(ctx context.Context, sessionID string) (*model.OTPChallenge, error) {
	if sessionID == "" {
		return nil, apperrors.InvalidInput("Session ID cannot be empty")
	}
	challenge, err := m.repo.FindByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, otperrors.ErrNotFound) {
			return nil, notFound(err)
		}
		m.log.Error("Failed to get otp challenge", "session_id", sessionID, "error", err)
		return nil, apperrors.Internal("Failed to load code", err)
	}
	return challenge, nil
}

// Check decides whether code unlocks challenge at the current time. Expiry
// is evaluated before the code so an expired challenge fails the same way
// whether or not the code is right. Expiry and mismatch are persisted on the
// challenge; a passing check changes nothing.
func (m *Manager) Check(ctx context.Context, challenge *model.OTPChallenge, code string) error {
	switch challenge.Status {
	case model.ChallengeValidated:
		return apperrors.AlreadyValidated(otperrors.ErrAlreadyValidated)
	case model.ChallengeSuperseded:
		return notFound(otperrors.ErrSuperseded)
	case model.ChallengeExpired:
		return apperrors.Expired(otperrors.ErrExpired)
	}

	now := m.Now()
	if !now.Before(challenge.ExpiresAt) {
		if err := m.repo.MarkExpired(ctx, challenge.ID, now); err != nil && !errors.Is(err, otperrors.ErrNotPending) {
			m.log.Error("Failed to mark otp challenge expired", "session_id", challenge.ID, "error", err)
		}
		return apperrors.Expired(otperrors.ErrExpired)
	}

	if !codeMatches(challenge.CodeHash, sanitizer.SanitizeCode(code), m.cfg.CodeLength) {
		if err := m.repo.IncrementAttempts(ctx, challenge.ID, now); err != nil {
			m.log.Error("Failed to record otp attempt", "session_id", challenge.ID, "error", err)
		}
		m.log.Warn("OTP code mismatch",
			"session_id", challenge.ID,
			"booking_id", challenge.BookingID,
			"attempts", challenge.Attempts+1,
		)
		return apperrors.Mismatch(otperrors.ErrMismatch)
	}
	return nil
}

// Consume marks a checked challenge validated. Only one caller can consume a
// given challenge; the rest get AlreadyValidated. Run it inside the
// transaction that applies the effect the code unlocks.
func (m *Manager) Consume(ctx context.Context, challenge *model.OTPChallenge) error {
	now := m.Now()
	if err := m.repo.MarkValidated(ctx, challenge.ID, now); err != nil {
		switch {
		case errors.Is(err, otperrors.ErrNotPending):
			return apperrors.AlreadyValidated(otperrors.ErrAlreadyValidated)
		case errors.Is(err, otperrors.ErrNotFound):
			return notFound(err)
		default:
			return apperrors.Internal("Failed to consume code", err)
		}
	}
	challenge.Status = model.ChallengeValidated
	challenge.ValidatedAt = &now
	challenge.UpdatedAt = now
	return nil
}

// Validate checks and consumes a challenge by session id alone.
func (m *Manager) Validate(ctx context.Context, sessionID, code string) (*model.OTPChallenge, error) {
	challenge, err := m.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := m.Check(ctx, challenge, code); err != nil {
		return nil, err
	}
	if err := m.repo.ExecuteTransaction(ctx, func(ctx context.Context) error {
		return m.Consume(ctx, challenge)
	}); err != nil {
		return nil, err
	}

	m.log.Info("OTP challenge validated", "session_id", challenge.ID, "booking_id", challenge.BookingID, "purpose", challenge.Purpose)
	return challenge, nil
}

// SupersedeBooking retires every pending challenge of a booking so a late
// code cannot act on it. Joins the caller's transaction.
func (m *Manager) SupersedeBooking(ctx context.Context, bookingID string) (int64, error) {
	n, err := m.repo.SupersedeBooking(ctx, bookingID, m.Now())
	if err != nil {
		return 0, apperrors.Internal("Failed to retire outstanding codes", err)
	}
	return n, nil
}

func (m *Manager) SupersedeSubject(ctx context.Context, subject string, purpose model.OTPPurpose) (int64, error) {
	n, err := m.repo.SupersedePending(ctx, subject, purpose, m.Now())
	if err != nil {
		return 0, apperrors.Internal("Failed to retire outstanding codes", err)
	}
	return n, nil
}

// ExpireStale marks pending challenges that expired more than grace ago.
func (m *Manager) ExpireStale(ctx context.Context, grace time.Duration) (int64, error) {
	now := m.Now()
	n, err := m.repo.ExpireStale(ctx, now.Add(-grace), now)
	if err != nil {
		m.log.Error("Failed to expire stale otp challenges", "error", err)
		return 0, err
	}
	if n > 0 {
		m.log.Info("Expired stale otp challenges", "count", n, "grace", grace)
	}
	return n, nil
}

// RecordDelivery stores the outcome reported by the notifier. Repository
// errors are returned unwrapped so callers can test for otperrors.ErrNotFound.
func (m *Manager) RecordDelivery(ctx context.Context, sessionID string, status model.DeliveryStatus, deliveryErr string) error {
	return m.repo.SetDelivery(ctx, sessionID, status, deliveryErr, m.Now())
}

func notFound(cause error) *apperrors.AppError {
	err := apperrors.NotFound("OTP challenge")
	err.Err = cause
	return err
}
