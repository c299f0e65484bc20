package onboarding

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fazosimples/botfut/internal/activation"
	"github.com/fazosimples/botfut/internal/identity"
	"github.com/fazosimples/botfut/internal/notification"
)

// IdentityResolver loads the identity a new session starts from.
type IdentityResolver interface {
	Current(ctx context.Context, token string) (identity.Identity, error)
}

// SessionView is what the HTTP API returns for a session.
type SessionView struct {
	SessionID    string            `json:"session_id"`
	Instructions []activation.Step `json:"instructions,omitempty"`
	View
}

// DraftUpdate carries keystroke-level changes to the workspace form. Nil
// fields are left alone.
type DraftUpdate struct {
	Name *string `json:"name"`
	Slug *string `json:"slug"`
}

const (
	// DefaultIdleTTL is how long an untouched wizard stays in memory.
	DefaultIdleTTL   = 15 * time.Minute
	// DefaultRetention is how long an untouched session stays resumable.
	DefaultRetention = 24 * time.Hour
	maxSweepEvery    = time.Minute
)

type liveSession struct {
	wizard    *Wizard
	tokenHash string
	createdAt time.Time
	lastSeen  time.Time
}

// Service hosts wizards for the web client. Live wizards stay in memory so
// the per-step in-flight guard holds; every change is also written to the
// repository so a restarted process can resume a session. Wizards idle for
// longer than the idle TTL are dropped from memory and restored from the
// repository on their next request; stored sessions idle for longer than
// the retention period are purged.
type Service struct {
	identities IdentityResolver
	profiles   Profiles
	workspaces WorkspaceCreator
	repo       Repository
	notifier   notification.Notifier
	botContact string
	logger     *slog.Logger
	idleTTL    time.Duration
	retention  time.Duration
	now        func() time.Time

	mu        sync.Mutex
	live      map[string]*liveSession
	lastSweep time.Time
}

// ServiceDeps groups the collaborators of a Service.
type ServiceDeps struct {
	Identities IdentityResolver
	Profiles   Profiles
	Workspaces WorkspaceCreator
	Repository Repository
	Notifier   notification.Notifier
	BotContact string
	Logger     *slog.Logger
	// IdleTTL and Retention default to DefaultIdleTTL and DefaultRetention.
	IdleTTL    time.Duration
	Retention  time.Duration
	Now        func() time.Time
}

// NewService builds the session service.
func NewService(d ServiceDeps) (*Service, error) {
	if d.Identities == nil || d.Profiles == nil || d.Workspaces == nil {
		return nil, fmt.Errorf("identity, profile and workspace collaborators are required")
	}
	if d.Repository == nil {
		d.Repository = NewMemoryRepository()
	}
	if d.Logger == nil {
		d.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if d.IdleTTL <= 0 {
		d.IdleTTL = DefaultIdleTTL
	}
	if d.Retention <= 0 {
		d.Retention = DefaultRetention
	}
	if d.Retention < d.IdleTTL {
		d.Retention = d.IdleTTL
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return &Service{
		identities: d.Identities,
		profiles:   d.Profiles,
		workspaces: d.Workspaces,
		repo:       d.Repository,
		notifier:   d.Notifier,
		botContact: d.BotContact,
		logger:     d.Logger,
		idleTTL:    d.IdleTTL,
		retention:  d.Retention,
		now:        d.Now,
		live:       make(map[string]*liveSession),
	}, nil
}

// Start resolves the caller's identity and opens a new session.
func (s *Service) Start(ctx context.Context, token string) (SessionView, error) {
	user, err := s.identities.Current(ctx, token)
	if err != nil {
		return SessionView{}, err
	}

	s.sweep(ctx)

	id := uuid.NewString()
	now := s.now().UTC()
	ls := &liveSession{
		wizard:    New(user, s.deps(token)),
		tokenHash: identity.Fingerprint(token),
		createdAt: now,
		lastSeen:  now,
	}

	s.mu.Lock()
	s.live[id] = ls
	s.mu.Unlock()

	if err := s.persist(ctx, id, ls); err != nil {
		return SessionView{}, err
	}
	s.logger.Info("onboarding.session started",
		slog.String("session_id", id),
		slog.String("user_id", user.ID),
		slog.String("step", string(ls.wizard.Step())),
	)
	return s.view(id, ls.wizard), nil
}

// Get returns the current view of a session.
func (s *Service) Get(ctx context.Context, token, id string) (SessionView, error) {
	ls, err := s.load(ctx, token, id)
	if err != nil {
		return SessionView{}, err
	}
	return s.view(id, ls.wizard), nil
}

// SaveProfile submits the display name. The view is returned on failure
// too, so the client can render the inline error.
func (s *Service) SaveProfile(ctx context.Context, token, id, name string) (SessionView, error) {
	ls, err := s.load(ctx, token, id)
	if err != nil {
		return SessionView{}, err
	}
	if err := ls.wizard.SetProfileName(name); err != nil {
		return s.view(id, ls.wizard), err
	}
	submitErr := ls.wizard.SubmitProfile(ctx)
	if !errors.Is(submitErr, ErrInFlight) {
		s.persistQuietly(ctx, id, ls)
	}
	if submitErr == nil && s.notifier != nil {
		user := ls.wizard.View().Identity
		_ = s.notifier.Send(ctx, notification.Message{
			Kind:        notification.KindProfileNamed,
			Destination: user.ID,
			Body:        fmt.Sprintf("Profile named %q", user.Name),
		})
	}
	return s.view(id, ls.wizard), submitErr
}

// UpdateDraft applies keystroke changes to the workspace form.
func (s *Service) UpdateDraft(ctx context.Context, token, id string, update DraftUpdate) (SessionView, error) {
	ls, err := s.load(ctx, token, id)
	if err != nil {
		return SessionView{}, err
	}
	if err := applyDraft(ls.wizard, update); err != nil {
		return s.view(id, ls.wizard), err
	}
	s.persistQuietly(ctx, id, ls)
	return s.view(id, ls.wizard), nil
}

// SubmitWorkspace applies any final edits and creates the workspace.
func (s *Service) SubmitWorkspace(ctx context.Context, token, id string, update DraftUpdate) (SessionView, error) {
	ls, err := s.load(ctx, token, id)
	if err != nil {
		return SessionView{}, err
	}
	if err := applyDraft(ls.wizard, update); err != nil {
		return s.view(id, ls.wizard), err
	}
	submitErr := ls.wizard.SubmitWorkspace(ctx)
	if !errors.Is(submitErr, ErrInFlight) {
		s.persistQuietly(ctx, id, ls)
	}
	return s.view(id, ls.wizard), submitErr
}

// Confirm ends a successful session and returns the destination.
func (s *Service) Confirm(ctx context.Context, token, id string) (Exit, error) {
	ls, err := s.load(ctx, token, id)
	if err != nil {
		return Exit{}, err
	}
	exit, err := ls.wizard.Confirm(ctx)
	if err != nil {
		return Exit{}, err
	}
	s.drop(ctx, id)
	return exit, nil
}

// SignOut ends a session from any step.
func (s *Service) SignOut(ctx context.Context, token, id string) (Exit, error) {
	ls, err := s.load(ctx, token, id)
	if err != nil {
		return Exit{}, err
	}
	exit := ls.wizard.SignOut(ctx)
	s.drop(ctx, id)
	return exit, nil
}

func (s *Service) load(ctx context.Context, token, id string) (*liveSession, error) {
	hash := identity.Fingerprint(token)

	s.mu.Lock()
	ls, ok := s.live[id]
	if ok && ls.tokenHash == hash {
		ls.lastSeen = s.now().UTC()
	}
	s.mu.Unlock()
	if ok {
		if ls.tokenHash != hash {
			return nil, ErrSessionNotFound
		}
		return ls, nil
	}

	stored, err := s.repo.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	if stored.TokenHash != hash {
		return nil, ErrSessionNotFound
	}
	wizard, err := Restore(stored.State, s.deps(token))
	if err != nil {
		return nil, err
	}
	restored := &liveSession{wizard: wizard, tokenHash: hash, createdAt: stored.CreatedAt, lastSeen: s.now().UTC()}

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.live[id]; ok {
		existing.lastSeen = restored.lastSeen
		return existing, nil
	}
	s.live[id] = restored
	return restored, nil
}

func (s *Service) deps(token string) Deps {
	return Deps{Token: token, Profiles: s.profiles, Workspaces: s.workspaces, Logger: s.logger}
}

func (s *Service) persist(ctx context.Context, id string, ls *liveSession) error {
	return s.repo.Save(ctx, Session{
		ID:        id,
		TokenHash: ls.tokenHash,
		State:     ls.wizard.Snapshot(),
		CreatedAt: ls.createdAt,
		UpdatedAt: s.now().UTC(),
	})
}

func (s *Service) persistQuietly(ctx context.Context, id string, ls *liveSession) {
	if err := s.persist(ctx, id, ls); err != nil {
		s.logger.Warn("onboarding.session persist failed", slog.String("session_id", id), slog.Any("error", err))
	}
}

func (s *Service) drop(ctx context.Context, id string) {
	s.mu.Lock()
	delete(s.live, id)
	s.mu.Unlock()
	if err := s.repo.Delete(ctx, id); err != nil {
		s.logger.Warn("onboarding.session delete failed", slog.String("session_id", id), slog.Any("error", err))
	}
}

// sweep drops idle wizards from memory and purges expired stored sessions.
// It runs at most once per sweep interval; wizards with a submission in
// flight are never dropped.
func (s *Service) sweep(ctx context.Context) {
	now := s.now().UTC()
	every := min(s.idleTTL, maxSweepEvery)

	s.mu.Lock()
	if now.Sub(s.lastSweep) < every {
		s.mu.Unlock()
		return
	}
	s.lastSweep = now
	evicted := 0
	for id, ls := range s.live {
		if now.Sub(ls.lastSeen) >= s.idleTTL && !ls.wizard.Submitting() {
			delete(s.live, id)
			evicted++
		}
	}
	s.mu.Unlock()

	purged, err := s.repo.Purge(ctx, now.Add(-s.retention))
	if err != nil {
		s.logger.Warn("onboarding.session purge failed", slog.Any("error", err))
	}
	if evicted > 0 || purged > 0 {
		s.logger.Info("onboarding.sessions swept", slog.Int("evicted", evicted), slog.Int64("purged", purged))
	}
}

func (s *Service) view(id string, w *Wizard) SessionView {
	v := w.View()
	out := SessionView{SessionID: id, View: v}
	if v.Workspace != nil {
		out.Instructions = activation.Instructions(*v.Workspace, s.botContact)
	}
	return out
}

func applyDraft(w *Wizard, update DraftUpdate) error {
	if update.Name != nil {
		if err := w.SetWorkspaceName(*update.Name); err != nil {
			return err
		}
	}
	if update.Slug != nil {
		if err := w.SetWorkspaceSlug(*update.Slug); err != nil {
			return err
		}
	}
	return nil
}
