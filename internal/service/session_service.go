package service

import (
	"context"
	"log/slog"
	"time"

	"go-inventory-pos/internal/apperr"
	"go-inventory-pos/internal/geo"
	"go-inventory-pos/internal/model"
	"go-inventory-pos/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SessionGrant is returned when a login completes. Token is the raw bearer
// token; it is never stored and cannot be recovered later.
type SessionGrant struct {
	Session   *model.Session
	Token     string
	IsNew     bool
	Remaining time.Duration
}

// SessionService owns the session lifecycle. A user has at most one active
// session; expiry is a sliding inactivity window.
type SessionService interface {
	CreateOrRenew(ctx context.Context, userID uuid.UUID, loc geo.Location) (*SessionGrant, error)
	// Validate refreshes the session's activity and returns it with User loaded.
	Validate(ctx context.Context, token string) (*model.Session, error)
	Close(ctx context.Context, sessionID uuid.UUID) error
	CloseAllForUser(tx *gorm.DB, userID uuid.UUID) error
	// Sweep deactivates every active session whose window has elapsed.
	Sweep(ctx context.Context) (int, error)
}

type sessionService struct {
	db       *gorm.DB
	sessions repository.SessionRepository
	users    repository.UserRepository
	timeout  time.Duration
	now      func() time.Time
}

func NewSessionService(db *gorm.DB, sessions repository.SessionRepository, users repository.UserRepository, timeout time.Duration) SessionService {
	return &sessionService{
		db:       db,
		sessions: sessions,
		users:    users,
		timeout:  timeout,
		now:      time.Now,
	}
}

func (s *sessionService) CreateOrRenew(ctx context.Context, userID uuid.UUID, loc geo.Location) (*SessionGrant, error) {
	token, err := newSecretToken()
	if err != nil {
		return nil, apperr.Internal(err, "generate session token")
	}

	var grant *SessionGrant
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// The user row lock serialises concurrent logins of the same user.
		if _, err := s.users.LockByID(tx, userID); err != nil {
			if isNotFound(err) {
				return apperr.NotFound("user not found")
			}
			return err
		}

		active, err := s.sessions.LockActiveByUser(tx, userID)
		if err != nil {
			return err
		}

		now := s.now()
		var current *model.Session
		if len(active) > 0 && !active[0].Expired(now) {
			current = &active[0]
			active = active[1:]
		}
		for i := range active {
			active[i].Active = false
			if err := s.sessions.Save(tx, &active[i]); err != nil {
				return err
			}
		}

		if current != nil {
			current.LastActivity = now
			current.TokenHash = hashToken(token)
			if loc.Known() {
				current.Latitude, current.Longitude = loc.Latitude, loc.Longitude
			}
			if err := s.sessions.Save(tx, current); err != nil {
				return err
			}
			grant = &SessionGrant{Session: current, Token: token, IsNew: false, Remaining: current.Remaining(now)}
			return nil
		}

		session := &model.Session{
			UserID:         userID,
			TokenHash:      hashToken(token),
			LastActivity:   now,
			TimeoutSeconds: int(s.timeout / time.Second),
			Active:         true,
			Latitude:       loc.Latitude,
			Longitude:      loc.Longitude,
		}
		if err := s.sessions.Create(tx, session); err != nil {
			return err
		}
		grant = &SessionGrant{Session: session, Token: token, IsNew: true, Remaining: s.timeout}
		return nil
	})
	if err != nil {
		return nil, classify(err, "create session")
	}

	slog.Info("session issued", "user_id", userID, "session_id", grant.Session.ID, "new", grant.IsNew)
	return grant, nil
}

func (s *sessionService) Validate(ctx context.Context, token string) (*model.Session, error) {
	if token == "" {
		return nil, apperr.Unauthenticated("missing session token")
	}

	var (
		session *model.Session
		expired bool
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		found, err := s.sessions.LockByTokenHash(tx, hashToken(token))
		if isNotFound(err) {
			return apperr.Unauthenticated("invalid session")
		}
		if err != nil {
			return err
		}
		if !found.Active {
			return apperr.Unauthenticated("session is no longer active")
		}

		now := s.now()
		if found.Expired(now) {
			// Commit the deactivation; the caller still gets an error.
			expired = true
			found.Active = false
			return s.sessions.Save(tx, found)
		}

		found.LastActivity = now
		session = found
		return s.sessions.Save(tx, found)
	})
	if err != nil {
		return nil, classify(err, "validate session")
	}
	if expired {
		return nil, apperr.Unauthenticated("session expired due to inactivity")
	}

	user, err := s.users.FindByID(ctx, session.UserID)
	if isNotFound(err) {
		return nil, apperr.Unauthenticated("invalid session")
	}
	if err != nil {
		return nil, apperr.Internal(err, "load session user")
	}
	session.User = user
	return session, nil
}

func (s *sessionService) Close(ctx context.Context, sessionID uuid.UUID) error {
	if err := s.sessions.Deactivate(ctx, sessionID); err != nil {
		return apperr.Internal(err, "close session")
	}
	return nil
}

func (s *sessionService) CloseAllForUser(tx *gorm.DB, userID uuid.UUID) error {
	return s.sessions.DeactivateByUser(tx, userID)
}

// Sweep reads without locks and expires each candidate with a conditional
// update, so a session refreshed in between is left alone.
func (s *sessionService) Sweep(ctx context.Context) (int, error) {
	active, err := s.sessions.FindActive(ctx)
	if err != nil {
		return 0, apperr.Internal(err, "list active sessions")
	}

	now := s.now()
	expired := 0
	for _, session := range active {
		if !session.Expired(now) {
			continue
		}
		ok, err := s.sessions.ExpireIfIdle(ctx, session.ID, now.Add(-session.Timeout()))
		if err != nil {
			return expired, apperr.Internal(err, "expire session")
		}
		if ok {
			expired++
		}
	}
	return expired, nil
}
