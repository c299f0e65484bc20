package onboarding

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/fazosimples/botfut/internal/identity"
	"github.com/fazosimples/botfut/internal/workspace"
)

// ErrCorruptSnapshot is returned when a stored state breaks the wizard's invariants.
var ErrCorruptSnapshot = errors.New("corrupt onboarding snapshot")

// Snapshot is the persisted form of a wizard. The submitting flag is never
// stored: a call cannot survive a restart.
type Snapshot struct {
	Step        Step               `json:"step"`
	Identity    identity.Identity  `json:"identity"`
	ProfileName string             `json:"profile_name"`
	Draft       workspace.Draft    `json:"draft"`
	Created     *workspace.Created `json:"created,omitempty"`
	Error       string             `json:"error,omitempty"`
	Finished    bool               `json:"finished"`
}

// Snapshot captures the wizard for persistence.
func (w *Wizard) Snapshot() Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	s := Snapshot{
		Step:        w.step,
		Identity:    w.user,
		ProfileName: w.profileName,
		Draft:       w.draft,
		Error:       w.errMsg,
		Finished:    w.finished,
	}
	if w.created != nil {
		created := *w.created
		s.Created = &created
	}
	return s
}

// Restore rebuilds a wizard from a snapshot.
func Restore(s Snapshot, deps Deps) (*Wizard, error) {
	switch s.Step {
	case StepProfile, StepForm:
		if s.Created != nil {
			return nil, fmt.Errorf("%w: workspace present before success", ErrCorruptSnapshot)
		}
	case StepSuccess:
		if s.Created == nil {
			return nil, fmt.Errorf("%w: success without workspace", ErrCorruptSnapshot)
		}
	default:
		return nil, fmt.Errorf("%w: unknown step %q", ErrCorruptSnapshot, s.Step)
	}
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	w := &Wizard{
		deps:        deps,
		step:        s.Step,
		user:        s.Identity,
		profileName: s.ProfileName,
		draft:       s.Draft,
		errMsg:      s.Error,
		finished:    s.Finished,
	}
	if s.Created != nil {
		created := *s.Created
		w.created = &created
	}
	return w, nil
}
