package onboarding

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/fazosimples/botfut/internal/identity"
	"github.com/fazosimples/botfut/internal/upstream"
	"github.com/fazosimples/botfut/internal/workspace"
)

type fakeProfiles struct {
	mu         sync.Mutex
	saved      identity.Identity
	saveErr    error
	refreshed  identity.Identity
	refreshErr error
	savedNames []string
	forgotten  int
}

func (f *fakeProfiles) SaveName(_ context.Context, _ string, name string) (identity.Identity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.savedNames = append(f.savedNames, name)
	if f.saveErr != nil {
		return identity.Identity{}, f.saveErr
	}
	out := f.saved
	out.Name = name
	return out, nil
}

func (f *fakeProfiles) Refresh(_ context.Context, _ string) (identity.Identity, error) {
	return f.refreshed, f.refreshErr
}

func (f *fakeProfiles) Forget(_ context.Context, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.forgotten++
	return nil
}

type fakeWorkspaces struct {
	mu       sync.Mutex
	created  workspace.Created
	err      error
	requests []workspace.Request
	// release, when set, blocks Create until it is closed.
	release chan struct{}
	entered chan struct{}
}

func (f *fakeWorkspaces) Create(_ context.Context, _ string, req workspace.Request) (workspace.Created, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	if f.entered != nil {
		f.entered <- struct{}{}
	}
	if f.release != nil {
		<-f.release
	}
	return f.created, f.err
}

func newTestWizard(user identity.Identity, profiles *fakeProfiles, workspaces *fakeWorkspaces) *Wizard {
	return New(user, Deps{Token: "tok", Profiles: profiles, Workspaces: workspaces})
}

func TestNewSkipsProfileForRealName(t *testing.T) {
	w := newTestWizard(identity.Identity{ID: "u1", Name: "Maria Silva"}, &fakeProfiles{}, &fakeWorkspaces{})
	if w.Step() != StepForm {
		t.Fatalf("expected form step, got %s", w.Step())
	}
	if err := w.SetProfileName("x"); !errors.Is(err, ErrWrongStep) {
		t.Fatalf("expected ErrWrongStep, got %v", err)
	}
}

func TestPlaceholderNameToBindCommand(t *testing.T) {
	ctx := context.Background()
	profiles := &fakeProfiles{saved: identity.Identity{ID: "u1", Phone: "5511988887777", Role: "player"}}
	workspaces := &fakeWorkspaces{created: workspace.Created{ID: "w1", Name: "Pelada de Sábado", Slug: "pelada-de-sabado"}}
	w := newTestWizard(identity.Identity{ID: "u1", Name: "5511988887777", Phone: "5511988887777"}, profiles, workspaces)

	if w.Step() != StepProfile {
		t.Fatalf("expected profile step, got %s", w.Step())
	}
	if err := w.SetProfileName("  Carlos Souza "); err != nil {
		t.Fatalf("set profile name: %v", err)
	}
	if err := w.SubmitProfile(ctx); err != nil {
		t.Fatalf("submit profile: %v", err)
	}
	if w.Step() != StepForm {
		t.Fatalf("expected form step, got %s", w.Step())
	}
	if got := w.View().Identity.Name; got != "Carlos Souza" {
		t.Fatalf("expected saved name, got %q", got)
	}
	if len(profiles.savedNames) != 1 || profiles.savedNames[0] != "Carlos Souza" {
		t.Fatalf("expected trimmed name sent once, got %v", profiles.savedNames)
	}

	if err := w.SetWorkspaceName("Pelada de Sábado"); err != nil {
		t.Fatalf("set workspace name: %v", err)
	}
	if got := w.View().Draft.Slug; got != "pelada-de-sabado" {
		t.Fatalf("expected derived slug, got %q", got)
	}
	if _, ok := w.Command(); ok {
		t.Fatal("command must not exist before the workspace")
	}
	if err := w.SubmitWorkspace(ctx); err != nil {
		t.Fatalf("submit workspace: %v", err)
	}

	view := w.View()
	if view.Step != StepSuccess {
		t.Fatalf("expected success step, got %s", view.Step)
	}
	if view.Workspace == nil || view.Workspace.ID != "w1" {
		t.Fatalf("expected created workspace, got %+v", view.Workspace)
	}
	if view.Draft != (workspace.Draft{}) {
		t.Fatalf("expected draft discarded, got %+v", view.Draft)
	}
	cmd, ok := w.Command()
	if !ok || cmd != "/bind pelada-de-sabado" {
		t.Fatalf("unexpected command %q", cmd)
	}
	if view.Command != cmd {
		t.Fatalf("view command %q differs from %q", view.Command, cmd)
	}
}

func TestSubmitWorkspaceRejectedKeepsDraft(t *testing.T) {
	ctx := context.Background()
	workspaces := &fakeWorkspaces{err: &upstream.APIError{Status: 409, Message: "nome já em uso"}}
	w := newTestWizard(identity.Identity{ID: "u1", Name: "Carlos Souza"}, &fakeProfiles{}, workspaces)

	_ = w.SetWorkspaceName("Pelada de Sábado")
	before := w.View().Draft

	if err := w.SubmitWorkspace(ctx); err == nil {
		t.Fatal("expected error")
	}
	view := w.View()
	if view.Step != StepForm {
		t.Fatalf("expected form step, got %s", view.Step)
	}
	if view.Error != "nome já em uso" {
		t.Fatalf("expected server message, got %q", view.Error)
	}
	if view.Draft != before {
		t.Fatalf("draft changed: %+v -> %+v", before, view.Draft)
	}
	if view.Workspace != nil || view.Submitting {
		t.Fatalf("unexpected state after failure: %+v", view)
	}

	workspaces.err = nil
	workspaces.created = workspace.Created{ID: "w1", Slug: "pelada-de-sabado"}
	if err := w.SubmitWorkspace(ctx); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if w.View().Error != "" {
		t.Fatalf("expected error cleared on success")
	}
}

func TestSubmitWorkspaceFallbackMessage(t *testing.T) {
	workspaces := &fakeWorkspaces{err: errors.New("dial tcp: refused")}
	w := newTestWizard(identity.Identity{Name: "Carlos Souza"}, &fakeProfiles{}, workspaces)
	_ = w.SetWorkspaceName("Pelada")

	_ = w.SubmitWorkspace(context.Background())
	if got := w.View().Error; got != workspaceFallback {
		t.Fatalf("expected fallback, got %q", got)
	}
}

func TestSubmitWorkspaceValidation(t *testing.T) {
	workspaces := &fakeWorkspaces{}
	w := newTestWizard(identity.Identity{Name: "Carlos Souza"}, &fakeProfiles{}, workspaces)

	if err := w.SubmitWorkspace(context.Background()); !errors.Is(err, workspace.ErrNameRequired) {
		t.Fatalf("expected ErrNameRequired, got %v", err)
	}
	if w.View().Error != workspaceMissing {
		t.Fatalf("unexpected message %q", w.View().Error)
	}

	_ = w.SetWorkspaceName("Pelada")
	_ = w.SetWorkspaceSlug("Pelada Boa")
	if err := w.SubmitWorkspace(context.Background()); !errors.Is(err, workspace.ErrInvalidSlug) {
		t.Fatalf("expected ErrInvalidSlug, got %v", err)
	}
	if w.View().Error != slugMalformed {
		t.Fatalf("unexpected message %q", w.View().Error)
	}
	if len(workspaces.requests) != 0 {
		t.Fatalf("invalid drafts must not be sent, got %v", workspaces.requests)
	}
}

func TestManualSlugSurvivesNameEdits(t *testing.T) {
	w := newTestWizard(identity.Identity{Name: "Carlos Souza"}, &fakeProfiles{}, &fakeWorkspaces{})
	_ = w.SetWorkspaceName("Pelada")
	_ = w.SetWorkspaceSlug("quinta")
	_ = w.SetWorkspaceName("Pelada de Quinta")

	draft := w.View().Draft
	if draft.Slug != "quinta" || draft.Mode != workspace.SlugManual {
		t.Fatalf("expected manual slug kept, got %+v", draft)
	}
}

func TestSubmitProfileBlankName(t *testing.T) {
	profiles := &fakeProfiles{}
	w := newTestWizard(identity.Identity{Name: "11991234567"}, profiles, &fakeWorkspaces{})
	_ = w.SetProfileName("   ")

	if err := w.SubmitProfile(context.Background()); !errors.Is(err, identity.ErrNameRequired) {
		t.Fatalf("expected ErrNameRequired, got %v", err)
	}
	if w.View().Error != nameMissing || w.Step() != StepProfile {
		t.Fatalf("unexpected state %+v", w.View())
	}
	if len(profiles.savedNames) != 0 {
		t.Fatal("blank name must not be sent")
	}
}

func TestSubmitProfileFailureStays(t *testing.T) {
	profiles := &fakeProfiles{saveErr: &upstream.APIError{Status: 500}}
	w := newTestWizard(identity.Identity{Name: "11991234567"}, profiles, &fakeWorkspaces{})
	_ = w.SetProfileName("Carlos")

	if err := w.SubmitProfile(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	view := w.View()
	if view.Step != StepProfile || view.ProfileName != "Carlos" {
		t.Fatalf("expected profile step with typed name, got %+v", view)
	}
	if view.Error != profileFallback {
		t.Fatalf("expected fallback message, got %q", view.Error)
	}
}

func TestSubmitWorkspaceInFlight(t *testing.T) {
	workspaces := &fakeWorkspaces{
		created: workspace.Created{ID: "w1", Slug: "pelada"},
		release: make(chan struct{}),
		entered: make(chan struct{}, 1),
	}
	w := newTestWizard(identity.Identity{Name: "Carlos Souza"}, &fakeProfiles{}, workspaces)
	_ = w.SetWorkspaceName("Pelada")

	done := make(chan error, 1)
	go func() { done <- w.SubmitWorkspace(context.Background()) }()
	<-workspaces.entered

	if !w.View().Submitting {
		t.Fatal("expected submitting flag while the call is outstanding")
	}
	if err := w.SubmitWorkspace(context.Background()); !errors.Is(err, ErrInFlight) {
		t.Fatalf("expected ErrInFlight, got %v", err)
	}
	if err := w.SetWorkspaceName("Outro"); !errors.Is(err, ErrInFlight) {
		t.Fatalf("expected name edit refused, got %v", err)
	}
	if err := w.SetWorkspaceSlug("xyz"); !errors.Is(err, ErrInFlight) {
		t.Fatalf("expected slug edit refused, got %v", err)
	}
	if draft := w.View().Draft; draft.Name != "Pelada" || draft.Mode != workspace.SlugAuto {
		t.Fatalf("draft changed during submission: %+v", draft)
	}
	close(workspaces.release)
	if err := <-done; err != nil {
		t.Fatalf("first submit: %v", err)
	}
	if len(workspaces.requests) != 1 {
		t.Fatalf("expected one call, got %d", len(workspaces.requests))
	}
}

func TestConfirmRoutesByRole(t *testing.T) {
	cases := []struct {
		name       string
		refreshed  identity.Identity
		refreshErr error
		want       string
	}{
		{name: "superadmin", refreshed: identity.Identity{Role: "superadmin"}, want: DestinationAdmin},
		{name: "super_admin", refreshed: identity.Identity{Role: "SUPER_ADMIN"}, want: DestinationAdmin},
		{name: "player", refreshed: identity.Identity{Role: "player"}, want: DestinationDashboard},
		{name: "refresh fails", refreshErr: errors.New("boom"), want: DestinationDashboard},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			profiles := &fakeProfiles{refreshed: tc.refreshed, refreshErr: tc.refreshErr}
			workspaces := &fakeWorkspaces{created: workspace.Created{ID: "w1", Slug: "pelada"}}
			w := newTestWizard(identity.Identity{Name: "Carlos Souza"}, profiles, workspaces)
			_ = w.SetWorkspaceName("Pelada")
			if err := w.SubmitWorkspace(context.Background()); err != nil {
				t.Fatalf("submit: %v", err)
			}

			exit, err := w.Confirm(context.Background())
			if err != nil {
				t.Fatalf("confirm: %v", err)
			}
			if exit.Destination != tc.want {
				t.Fatalf("expected %s, got %s", tc.want, exit.Destination)
			}
			if err := w.SetWorkspaceName("again"); !errors.Is(err, ErrFinished) {
				t.Fatalf("expected ErrFinished after confirm, got %v", err)
			}
		})
	}
}

func TestConfirmBeforeSuccess(t *testing.T) {
	w := newTestWizard(identity.Identity{Name: "Carlos Souza"}, &fakeProfiles{}, &fakeWorkspaces{})
	if _, err := w.Confirm(context.Background()); !errors.Is(err, ErrWrongStep) {
		t.Fatalf("expected ErrWrongStep, got %v", err)
	}
}

func TestSignOutFromAnyStep(t *testing.T) {
	for _, name := range []string{"11991234567", "Carlos Souza"} {
		profiles := &fakeProfiles{}
		w := newTestWizard(identity.Identity{Name: name}, profiles, &fakeWorkspaces{})
		exit := w.SignOut(context.Background())
		if exit.Destination != DestinationLogin {
			t.Fatalf("expected login, got %s", exit.Destination)
		}
		if profiles.forgotten != 1 {
			t.Fatalf("expected cached identity forgotten")
		}
		if !w.View().Finished {
			t.Fatal("expected finished wizard")
		}
	}
}

func TestSnapshotRestore(t *testing.T) {
	deps := Deps{Token: "tok", Profiles: &fakeProfiles{}, Workspaces: &fakeWorkspaces{}}
	w := New(identity.Identity{ID: "u1", Name: "Carlos Souza"}, deps)
	_ = w.SetWorkspaceName("Pelada de Sábado")
	_ = w.SetWorkspaceSlug("sabado")

	restored, err := Restore(w.Snapshot(), deps)
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	got, want := restored.View(), w.View()
	if got.Step != want.Step || got.Draft != want.Draft || got.Identity.ID != want.Identity.ID {
		t.Fatalf("restored view differs: %+v vs %+v", got, want)
	}
}

func TestRestoreRejectsBrokenInvariants(t *testing.T) {
	deps := Deps{Profiles: &fakeProfiles{}, Workspaces: &fakeWorkspaces{}}
	cases := map[string]Snapshot{
		"success without workspace": {Step: StepSuccess},
		"workspace on form":         {Step: StepForm, Created: &workspace.Created{ID: "w1"}},
		"unknown step":              {Step: "done"},
	}
	for name, snap := range cases {
		if _, err := Restore(snap, deps); !errors.Is(err, ErrCorruptSnapshot) {
			t.Fatalf("%s: expected ErrCorruptSnapshot, got %v", name, err)
		}
	}
}

func TestSubmitProfileFreezesTypedName(t *testing.T) {
	profiles := &fakeProfiles{saved: identity.Identity{ID: "u1"}}
	w := newTestWizard(identity.Identity{ID: "u1", Name: "5511988887777"}, profiles, &fakeWorkspaces{})
	_ = w.SetProfileName("Carlos Souza")

	w.mu.Lock()
	w.submitting = true
	w.mu.Unlock()

	if err := w.SetProfileName("Outro Nome"); !errors.Is(err, ErrInFlight) {
		t.Fatalf("expected ErrInFlight, got %v", err)
	}
	if got := w.View().ProfileName; got != "Carlos Souza" {
		t.Fatalf("typed name changed during submission: %q", got)
	}
}
