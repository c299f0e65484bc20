package workspace

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/fazosimples/botfut/internal/notification"
)

var (
	// ErrNameRequired is returned for a blank workspace name.
	ErrNameRequired = errors.New("workspace name is required")
	// ErrNameTooLong is returned when the name exceeds MaxNameLength runes.
	ErrNameTooLong = fmt.Errorf("workspace name must be at most %d characters", MaxNameLength)
	// ErrInvalidSlug is returned for a typed slug that is not lowercase ASCII and hyphens.
	ErrInvalidSlug = fmt.Errorf("slug must be 1-%d lowercase letters, digits or hyphens", MaxSlugLength)
	// ErrEmptyWorkspace is returned when the server answers without an id or slug.
	ErrEmptyWorkspace = errors.New("workspace response has no id")
)

// Creator issues the workspace creation call. Implementations must not
// require the caller to belong to a workspace already.
type Creator interface {
	CreateWorkspace(ctx context.Context, token string, req Request) (Created, error)
}

// Provisioner creates a first workspace for the caller.
type Provisioner struct {
	creator  Creator
	notifier notification.Notifier
	logger   *slog.Logger
}

// NewProvisioner builds a provisioner. The notifier may be nil.
func NewProvisioner(creator Creator, notifier notification.Notifier, logger *slog.Logger) *Provisioner {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Provisioner{creator: creator, notifier: notifier, logger: logger}
}

// Create validates the request and creates the workspace. Nothing is kept
// client side until the call succeeds, so a failed call can simply be retried.
func (p *Provisioner) Create(ctx context.Context, token string, req Request) (Created, error) {
	if err := req.Validate(); err != nil {
		return Created{}, err
	}

	created, err := p.creator.CreateWorkspace(ctx, token, req)
	if err != nil {
		p.logger.Warn("workspace.create failed", slog.String("name", req.Name), slog.Any("error", err))
		return Created{}, err
	}
	if created.ID == "" && created.Slug == "" {
		return Created{}, ErrEmptyWorkspace
	}

	p.logger.Info("workspace.create completed",
		slog.String("workspace_id", created.ID),
		slog.String("slug", created.Slug),
	)
	if p.notifier != nil {
		_ = p.notifier.Send(ctx, notification.Message{
			Kind:        notification.KindWorkspaceProvisioned,
			Destination: created.ID,
			Body:        fmt.Sprintf("Workspace %q created", created.Name),
		})
	}
	return created, nil
}
