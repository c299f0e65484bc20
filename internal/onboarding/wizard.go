// Package onboarding drives the first-run flow of a new organizer: replace a
// phone-number placeholder name, create a workspace, and show how to link a
// chat group to it.
package onboarding

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/fazosimples/botfut/internal/activation"
	"github.com/fazosimples/botfut/internal/identity"
	"github.com/fazosimples/botfut/internal/upstream"
	"github.com/fazosimples/botfut/internal/workspace"
)

// Step is the active wizard screen.
type Step string

const (
	StepProfile Step = "profile"
	StepForm    Step = "form"
	StepSuccess Step = "success"
)

// Exit destinations handed to the host application.
const (
	DestinationLogin     = "/login"
	DestinationDashboard = "/dashboard"
	DestinationAdmin     = "/admin"
)

const (
	profileFallback   = "Não foi possível salvar seu nome."
	workspaceFallback = "Não foi possível criar o workspace."
	nameMissing       = "Informe seu nome."
	workspaceMissing  = "Informe o nome do workspace."
	workspaceTooLong  = "O nome do workspace deve ter no máximo 60 caracteres."
	slugMalformed     = "O identificador deve ter até 40 letras minúsculas, números ou hífens."
)

var (
	// ErrWrongStep is returned for an operation the current step does not offer.
	ErrWrongStep = errors.New("operation not available in the current step")
	// ErrInFlight is returned when a submission is already outstanding.
	ErrInFlight = errors.New("submission already in progress")
	// ErrFinished is returned once the wizard has handed off to the host app.
	ErrFinished = errors.New("onboarding already finished")
)

// Profiles is what the wizard needs from the identity service.
type Profiles interface {
	SaveName(ctx context.Context, token, name string) (identity.Identity, error)
	Refresh(ctx context.Context, token string) (identity.Identity, error)
	Forget(ctx context.Context, token string) error
}

// WorkspaceCreator creates the workspace; *workspace.Provisioner satisfies it.
type WorkspaceCreator interface {
	Create(ctx context.Context, token string, req workspace.Request) (workspace.Created, error)
}

// Deps are the collaborators of one wizard.
type Deps struct {
	Token      string
	Profiles   Profiles
	Workspaces WorkspaceCreator
	Logger     *slog.Logger
}

// Exit tells the host application where to go once the wizard ends.
type Exit struct {
	Destination string `json:"destination"`
}

// Wizard is the onboarding state machine. Network calls run without the
// lock held; the submitting flag keeps a step to one outstanding call.
type Wizard struct {
	deps Deps

	mu          sync.Mutex
	step        Step
	user        identity.Identity
	profileName string
	draft       workspace.Draft
	created     *workspace.Created
	errMsg      string
	submitting  bool
	finished    bool
}

// New starts a wizard for the identity. The profile step is skipped when the
// stored name is already a real name.
func New(user identity.Identity, deps Deps) *Wizard {
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	w := &Wizard{deps: deps, user: user, step: StepForm}
	if identity.NeedsProfileStep(user.Name) {
		w.step = StepProfile
	}
	return w
}

// Step returns the active step.
func (w *Wizard) Step() Step {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.step
}

// SetProfileName records what the user typed in the name field. Edits are
// refused with ErrInFlight while the name is being saved.
func (w *Wizard) SetProfileName(name string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.expectIdle(StepProfile); err != nil {
		return err
	}
	w.profileName = name
	return nil
}

// SubmitProfile saves the typed name and advances to the workspace form. On
// failure the step, the typed name and an inline error message remain.
func (w *Wizard) SubmitProfile(ctx context.Context) error {
	w.mu.Lock()
	if err := w.expect(StepProfile); err != nil {
		w.mu.Unlock()
		return err
	}
	if w.submitting {
		w.mu.Unlock()
		return ErrInFlight
	}
	typed := strings.TrimSpace(w.profileName)
	if typed == "" {
		w.errMsg = nameMissing
		w.mu.Unlock()
		return identity.ErrNameRequired
	}
	w.submitting = true
	w.errMsg = ""
	w.mu.Unlock()

	saved, err := w.deps.Profiles.SaveName(ctx, w.deps.Token, typed)

	w.mu.Lock()
	defer w.mu.Unlock()
	w.submitting = false
	if err != nil {
		w.errMsg = upstream.UserMessage(err, profileFallback)
		w.deps.Logger.Warn("onboarding.profile failed", slog.Any("error", err))
		return err
	}
	w.user = saved
	w.transition(StepForm)
	return nil
}

// SetWorkspaceName updates the draft name; the slug follows while it has
// not been edited by hand. The draft is frozen while it is being submitted.
func (w *Wizard) SetWorkspaceName(name string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.expectIdle(StepForm); err != nil {
		return err
	}
	w.draft.SetName(name)
	return nil
}

// SetWorkspaceSlug stores a hand-typed slug and stops derivation for good.
func (w *Wizard) SetWorkspaceSlug(slug string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.expectIdle(StepForm); err != nil {
		return err
	}
	w.draft.SetSlug(slug)
	return nil
}

// SubmitWorkspace creates the workspace from the draft. On success the
// draft is discarded and the wizard moves to the success step; on failure
// the draft is kept for correction and the error is shown inline.
func (w *Wizard) SubmitWorkspace(ctx context.Context) error {
	w.mu.Lock()
	if err := w.expect(StepForm); err != nil {
		w.mu.Unlock()
		return err
	}
	if w.submitting {
		w.mu.Unlock()
		return ErrInFlight
	}
	req := w.draft.Request()
	if err := req.Validate(); err != nil {
		w.errMsg = validationMessage(err)
		w.mu.Unlock()
		return err
	}
	w.submitting = true
	w.errMsg = ""
	w.mu.Unlock()

	created, err := w.deps.Workspaces.Create(ctx, w.deps.Token, req)

	w.mu.Lock()
	defer w.mu.Unlock()
	w.submitting = false
	if err != nil {
		w.errMsg = upstream.UserMessage(err, workspaceFallback)
		return err
	}
	w.created = &created
	w.draft = workspace.Draft{}
	w.transition(StepSuccess)
	return nil
}

// Command returns the bind command once the workspace exists.
func (w *Wizard) Command() (string, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.step != StepSuccess || w.created == nil {
		return "", false
	}
	return activation.Command(*w.created), true
}

// Confirm ends the flow after the user says the command was sent. The claim
// is not verified. The identity is refreshed to pick the destination; if the
// refresh fails the user goes to the regular dashboard.
func (w *Wizard) Confirm(ctx context.Context) (Exit, error) {
	w.mu.Lock()
	if err := w.expect(StepSuccess); err != nil {
		w.mu.Unlock()
		return Exit{}, err
	}
	w.finished = true
	w.mu.Unlock()

	destination := DestinationDashboard
	fresh, err := w.deps.Profiles.Refresh(ctx, w.deps.Token)
	if err != nil {
		w.deps.Logger.Warn("onboarding.confirm identity refresh failed", slog.Any("error", err))
	} else {
		destination = destinationFor(fresh.Role)
		w.mu.Lock()
		w.user = fresh
		w.mu.Unlock()
	}
	w.deps.Logger.Info("onboarding.finished", slog.String("destination", destination))
	return Exit{Destination: destination}, nil
}

// SignOut leaves the flow from any step and forgets the cached identity.
func (w *Wizard) SignOut(ctx context.Context) Exit {
	w.mu.Lock()
	w.finished = true
	w.mu.Unlock()

	if err := w.deps.Profiles.Forget(ctx, w.deps.Token); err != nil {
		w.deps.Logger.Warn("onboarding.signout forget failed", slog.Any("error", err))
	}
	return Exit{Destination: DestinationLogin}
}

// View is a read-only copy of everything a screen renders.
type View struct {
	Step        Step               `json:"step"`
	Identity    identity.Identity  `json:"identity"`
	ProfileName string             `json:"profile_name"`
	Draft       workspace.Draft    `json:"draft"`
	Workspace   *workspace.Created `json:"workspace,omitempty"`
	Command     string             `json:"command,omitempty"`
	Error       string             `json:"error,omitempty"`
	Submitting  bool               `json:"submitting"`
	Finished    bool               `json:"finished"`
}

// View returns the current state for rendering.
func (w *Wizard) View() View {
	w.mu.Lock()
	defer w.mu.Unlock()
	v := View{
		Step:        w.step,
		Identity:    w.user,
		ProfileName: w.profileName,
		Draft:       w.draft,
		Error:       w.errMsg,
		Submitting:  w.submitting,
		Finished:    w.finished,
	}
	if w.created != nil {
		created := *w.created
		v.Workspace = &created
		v.Command = activation.Command(created)
	}
	return v
}

func (w *Wizard) expect(step Step) error {
	if w.finished {
		return ErrFinished
	}
	if w.step != step {
		return ErrWrongStep
	}
	return nil
}

func (w *Wizard) expectIdle(step Step) error {
	if err := w.expect(step); err != nil {
		return err
	}
	if w.submitting {
		return ErrInFlight
	}
	return nil
}

// Submitting reports whether a submission is outstanding.
func (w *Wizard) Submitting() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.submitting
}

func (w *Wizard) transition(to Step) {
	w.deps.Logger.Info("onboarding.step", slog.String("from", string(w.step)), slog.String("to", string(to)))
	w.step = to
}

func destinationFor(role string) string {
	switch strings.ToLower(role) {
	case "superadmin", "super_admin":
		return DestinationAdmin
	default:
		return DestinationDashboard
	}
}

func validationMessage(err error) string {
	switch {
	case errors.Is(err, workspace.ErrNameTooLong):
		return workspaceTooLong
	case errors.Is(err, workspace.ErrInvalidSlug):
		return slugMalformed
	default:
		return workspaceMissing
	}
}
