package onboarding

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/fazosimples/botfut/internal/identity"
	"github.com/fazosimples/botfut/internal/workspace"
)

// Handler exposes onboarding sessions over HTTP.
type Handler struct {
	service *Service
}

// NewHandler constructs an onboarding HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type profileRequest struct {
	Name string `json:"name"`
}

// Start opens a session for the caller.
func (h *Handler) Start(c *fiber.Ctx) error {
	view, err := h.service.Start(c.UserContext(), identity.BearerToken(c))
	if err != nil {
		return fiber.NewError(upstreamStatus(err), err.Error())
	}
	return c.Status(http.StatusCreated).JSON(view)
}

// Get returns the session view.
func (h *Handler) Get(c *fiber.Ctx) error {
	view, err := h.service.Get(c.UserContext(), identity.BearerToken(c), c.Params("id"))
	if err != nil {
		return sessionError(err)
	}
	return c.Status(http.StatusOK).JSON(view)
}

// SaveProfile submits the display name.
func (h *Handler) SaveProfile(c *fiber.Ctx) error {
	var req profileRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	view, err := h.service.SaveProfile(c.UserContext(), identity.BearerToken(c), c.Params("id"), req.Name)
	return respond(c, view, err)
}

// UpdateDraft applies workspace form edits.
func (h *Handler) UpdateDraft(c *fiber.Ctx) error {
	var req DraftUpdate
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	view, err := h.service.UpdateDraft(c.UserContext(), identity.BearerToken(c), c.Params("id"), req)
	return respond(c, view, err)
}

// SubmitWorkspace creates the workspace.
func (h *Handler) SubmitWorkspace(c *fiber.Ctx) error {
	var req DraftUpdate
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}
	}
	view, err := h.service.SubmitWorkspace(c.UserContext(), identity.BearerToken(c), c.Params("id"), req)
	return respond(c, view, err)
}

// Confirm finishes the flow.
func (h *Handler) Confirm(c *fiber.Ctx) error {
	exit, err := h.service.Confirm(c.UserContext(), identity.BearerToken(c), c.Params("id"))
	if err != nil {
		return sessionError(err)
	}
	return c.Status(http.StatusOK).JSON(exit)
}

// SignOut leaves the flow.
func (h *Handler) SignOut(c *fiber.Ctx) error {
	exit, err := h.service.SignOut(c.UserContext(), identity.BearerToken(c), c.Params("id"))
	if err != nil {
		return sessionError(err)
	}
	return c.Status(http.StatusOK).JSON(exit)
}

// respond renders the view next to a failed submission so the client can
// show the inline message.
func respond(c *fiber.Ctx, view SessionView, err error) error {
	if err == nil {
		return c.Status(http.StatusOK).JSON(view)
	}
	if isGuard(err) {
		return sessionError(err)
	}
	if view.SessionID == "" {
		return fiber.NewError(upstreamStatus(err), err.Error())
	}
	status := http.StatusUnprocessableEntity
	if s := upstreamStatus(err); s == http.StatusUnauthorized || s == http.StatusForbidden {
		status = s
	}
	return c.Status(status).JSON(view)
}

func sessionError(err error) error {
	switch {
	case errors.Is(err, ErrSessionNotFound):
		return fiber.NewError(http.StatusNotFound, err.Error())
	case isGuard(err):
		return fiber.NewError(http.StatusConflict, err.Error())
	case errors.Is(err, ErrCorruptSnapshot):
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	default:
		return fiber.NewError(upstreamStatus(err), err.Error())
	}
}

func isGuard(err error) bool {
	return errors.Is(err, ErrInFlight) || errors.Is(err, ErrWrongStep) || errors.Is(err, ErrFinished) ||
		errors.Is(err, ErrSessionNotFound) || errors.Is(err, ErrCorruptSnapshot)
}

func upstreamStatus(err error) int {
	if errors.Is(err, identity.ErrNameRequired) || errors.Is(err, workspace.ErrNameRequired) ||
		errors.Is(err, workspace.ErrNameTooLong) || errors.Is(err, workspace.ErrInvalidSlug) {
		return http.StatusUnprocessableEntity
	}
	var coded interface{ StatusCode() int }
	if errors.As(err, &coded) {
		switch coded.StatusCode() {
		case http.StatusUnauthorized, http.StatusForbidden:
			return coded.StatusCode()
		}
	}
	return http.StatusBadGateway
}
