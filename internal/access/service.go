package access

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nrowsell/doorlatch/internal/audit"
	"github.com/nrowsell/doorlatch/internal/credential"
	"github.com/nrowsell/doorlatch/internal/infrastructure/logging"
	"github.com/nrowsell/doorlatch/internal/infrastructure/mqtt"
	"github.com/nrowsell/doorlatch/internal/ratelimit"
	"github.com/nrowsell/doorlatch/internal/session"
	"github.com/nrowsell/doorlatch/internal/store"
)

// Domain-specific errors for access decisions.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrInvalidCredentials is returned for both unknown usernames and
	// wrong passwords. The caller must not be able to tell which.
	ErrInvalidCredentials = errors.New("access: invalid credentials")

	// ErrThrottled is returned when login attempts exceed the rate limit.
	ErrThrottled = errors.New("access: too many attempts")
)

// ThrottledError carries the wait time until the next attempt is allowed.
// It unwraps to ErrThrottled.
type ThrottledError struct {
	RetryAfter time.Duration
}

func (e *ThrottledError) Error() string {
	return fmt.Sprintf("access: too many attempts, retry after %s", e.RetryAfter.Round(time.Second))
}

func (e *ThrottledError) Unwrap() error { return ErrThrottled }

// Announcer publishes access decisions to interested hardware.
// Satisfied by mqtt.Client; nil when the announcer is disabled.
type Announcer interface {
	AnnounceDecision(d mqtt.Decision) error
}

// Service implements the access decisions and credential management
// that the HTTP layer exposes.
//
// All dependencies are injected. The announcer may be nil, in which
// case decisions are only recorded in the audit log.
type Service struct {
	pins      store.PinRepository
	admins    store.AdminRepository
	hasher    *credential.Hasher
	authority session.Authority
	limiter   *ratelimit.Limiter
	recorder  audit.Recorder
	announcer Announcer
	logger    *logging.Logger

	// dummyHash is verified against when a username does not exist, so
	// the unknown-user path costs the same as a real password check.
	dummyHash string
}

// Deps holds the dependencies for constructing a Service.
type Deps struct {
	Pins      store.PinRepository
	Admins    store.AdminRepository
	Hasher    *credential.Hasher
	Authority session.Authority
	Limiter   *ratelimit.Limiter
	Recorder  audit.Recorder
	Announcer Announcer
	Logger    *logging.Logger
}

// NewService creates the access service.
func NewService(deps Deps) *Service {
	// Errors here only disable the timing equalizer, never the service.
	dummyHash, _ := deps.Hasher.Hash("timing-equalizer") //nolint:errcheck // fixed input, cannot fail in practice

	return &Service{
		dummyHash: dummyHash,
		pins:      deps.Pins,
		admins:    deps.Admins,
		hasher:    deps.Hasher,
		authority: deps.Authority,
		limiter:   deps.Limiter,
		recorder:  deps.Recorder,
		announcer: deps.Announcer,
		logger:    deps.Logger,
	}
}

// CheckPin decides whether a keypad entry opens the door.
//
// Every stored hash is a candidate: the entry is verified against each
// until one matches. No match, or an empty PIN set, denies. A stored
// hash that cannot be verified is an internal error, not a silent skip,
// because a corrupt row could otherwise mask a valid credential.
//
// The decision is recorded in the audit log and announced to the broker
// before returning. clientIP is recorded for the audit trail only.
func (s *Service) CheckPin(ctx context.Context, plainPin, clientIP string) (bool, error) {
	if !store.IsValidPIN(plainPin) {
		s.recordDecision(ctx, "", false, "malformed pin", clientIP)
		return false, nil
	}

	pins, err := s.pins.List(ctx)
	if err != nil {
		return false, fmt.Errorf("listing pins: %w", err)
	}

	for _, pin := range pins {
		match, err := s.hasher.Verify(plainPin, pin.PinHash)
		if err != nil {
			return false, fmt.Errorf("verifying pin %s: %w", pin.ID, err)
		}
		if match {
			s.recordDecision(ctx, pin.ID, true, "", clientIP)
			return true, nil
		}
	}

	s.recordDecision(ctx, "", false, "no matching pin", clientIP)
	return false, nil
}

// Login authenticates an admin and issues a session token.
//
// The rate limit is checked before any credential work so attackers
// cannot burn hashing time once throttled. identity is the caller's
// network address, which scopes the limit per source.
//
// Unknown usernames and wrong passwords both return
// ErrInvalidCredentials. A dummy verification runs for unknown users so
// response time does not reveal whether the username exists.
func (s *Service) Login(ctx context.Context, identity, username, password string) (string, error) {
	if ok, retryAfter := s.limiter.Allow(identity); !ok {
		s.recordLogin(ctx, username, false, "throttled", identity)
		return "", &ThrottledError{RetryAfter: retryAfter}
	}

	admin, err := s.admins.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrAdminNotFound) {
			s.dummyVerify(password)
			s.recordLogin(ctx, username, false, "invalid credentials", identity)
			return "", ErrInvalidCredentials
		}
		return "", fmt.Errorf("looking up admin: %w", err)
	}

	match, err := s.hasher.Verify(password, admin.PasswordHash)
	if err != nil {
		return "", fmt.Errorf("verifying password for %s: %w", admin.ID, err)
	}
	if !match {
		s.recordLogin(ctx, username, false, "invalid credentials", identity)
		return "", ErrInvalidCredentials
	}

	token, err := s.authority.Issue(admin.Username)
	if err != nil {
		return "", fmt.Errorf("issuing session: %w", err)
	}

	s.limiter.Reset(identity)
	s.recordLogin(ctx, username, true, "", identity)
	return token, nil
}

// Logout revokes a session token. Unknown tokens are a no-op.
func (s *Service) Logout(token string) {
	s.authority.Revoke(token)
}

// Authorize resolves a session token to the admin username.
func (s *Service) Authorize(token string) (string, error) {
	return s.authority.Authorize(token)
}

// AddPin hashes and stores a new door PIN. Duplicates are permitted:
// two people may independently choose the same code.
func (s *Service) AddPin(ctx context.Context, plainPin, label, createdBy string) (*store.Pin, error) {
	if !store.IsValidPIN(plainPin) {
		return nil, fmt.Errorf("%w: pin must be 1-%d digits", store.ErrInvalidInput, store.MaxPINLength)
	}

	hash, err := s.hasher.Hash(plainPin)
	if err != nil {
		return nil, fmt.Errorf("hashing pin: %w", err)
	}

	pin := &store.Pin{
		PinHash:   hash,
		Label:     label,
		CreatedBy: createdBy,
	}
	if err := s.pins.Create(ctx, pin); err != nil {
		return nil, fmt.Errorf("storing pin: %w", err)
	}

	s.recordEvent(ctx, audit.EventPinAdded, pin.ID, true, "", "")
	s.logger.Info("pin added", "pin_id", pin.ID, "created_by", createdBy)
	return pin, nil
}

// RemovePin deletes a stored PIN by its ID.
func (s *Service) RemovePin(ctx context.Context, id, removedBy string) error {
	if id == "" {
		return fmt.Errorf("%w: pin id required", store.ErrInvalidInput)
	}

	if err := s.pins.Delete(ctx, id); err != nil {
		return err
	}

	s.recordEvent(ctx, audit.EventPinRemoved, id, true, "", "")
	s.logger.Info("pin removed", "pin_id", id, "removed_by", removedBy)
	return nil
}

// ListPins returns all stored PINs. Hashes are never included.
func (s *Service) ListPins(ctx context.Context) ([]store.Pin, error) {
	return s.pins.List(ctx)
}

// AddAdmin creates an admin account with a hashed password.
func (s *Service) AddAdmin(ctx context.Context, username, password, createdBy string) (*store.Admin, error) {
	if !store.IsValidUsername(username) {
		return nil, fmt.Errorf("%w: username must be %d-%d chars of [a-zA-Z0-9._-]",
			store.ErrInvalidInput, store.MinUsernameLength, store.MaxUsernameLength)
	}
	if !store.IsValidPassword(password) {
		return nil, fmt.Errorf("%w: password must be at least %d chars",
			store.ErrInvalidInput, store.MinPasswordLength)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	admin := &store.Admin{
		Username:     username,
		PasswordHash: hash,
		CreatedBy:    createdBy,
	}
	if err := s.admins.Create(ctx, admin); err != nil {
		return nil, err
	}

	s.recordEvent(ctx, audit.EventAdminAdded, username, true, "", "")
	s.logger.Info("admin added", "username", username, "created_by", createdBy)
	return admin, nil
}

// RemoveAdmin deletes an admin account by username.
func (s *Service) RemoveAdmin(ctx context.Context, username, removedBy string) error {
	if username == "" {
		return fmt.Errorf("%w: username required", store.ErrInvalidInput)
	}

	if err := s.admins.Delete(ctx, username); err != nil {
		return err
	}

	s.recordEvent(ctx, audit.EventAdminRemoved, username, true, "", "")
	s.logger.Info("admin removed", "username", username, "removed_by", removedBy)
	return nil
}

// ListAdmins returns all admin accounts. Hashes are never included.
func (s *Service) ListAdmins(ctx context.Context) ([]store.Admin, error) {
	return s.admins.List(ctx)
}

// ListEvents returns the access history matching the filter.
func (s *Service) ListEvents(ctx context.Context, filter audit.Filter) (*audit.ListResult, error) {
	return s.recorder.List(ctx, filter)
}

// dummyVerify burns roughly the same time as a real password check so
// unknown-user responses are not measurably faster.
func (s *Service) dummyVerify(password string) {
	if s.dummyHash == "" {
		return
	}
	s.hasher.Verify(password, s.dummyHash) //nolint:errcheck // result discarded, timing is the point
}

// recordDecision logs a pin check outcome and announces it.
func (s *Service) recordDecision(ctx context.Context, subject string, granted bool, reason, clientIP string) {
	s.recordEvent(ctx, audit.EventPinCheck, subject, granted, reason, clientIP)

	if s.announcer != nil {
		decision := mqtt.Decision{
			Granted: granted,
			Subject: subject,
			Reason:  reason,
		}
		if err := s.announcer.AnnounceDecision(decision); err != nil {
			s.logger.Warn("announcing access decision failed", "error", err)
		}
	}

	s.logger.Info("pin check", "granted", granted, "reason", reason, "client_ip", clientIP)
}

// recordLogin logs an admin login outcome.
func (s *Service) recordLogin(ctx context.Context, username string, granted bool, reason, identity string) {
	s.recordEvent(ctx, audit.EventAdminLogin, username, granted, reason, identity)
	s.logger.Info("admin login", "username", username, "granted", granted, "reason", reason)
}

// recordEvent writes to the audit log. Failures are logged, not fatal:
// a full disk must not lock the door open or shut.
func (s *Service) recordEvent(ctx context.Context, eventType, subject string, granted bool, reason, clientIP string) {
	event := &audit.AccessEvent{
		EventType: eventType,
		Subject:   subject,
		Granted:   granted,
		Reason:    reason,
		ClientIP:  clientIP,
	}
	if err := s.recorder.Record(ctx, event); err != nil {
		s.logger.Error("recording access event failed", "event_type", eventType, "error", err)
	}
}
