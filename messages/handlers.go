package messages

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"

	"treehole/appcontext"
	"treehole/router"
)

type Handler struct {
	svc      *Service
	validate *validator.Validate
}

func NewHandler(svc *Service) *Handler {
	return &Handler{
		svc:      svc,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Routes registers the message endpoints on an API router.
func (h *Handler) Routes(r *router.Router) {
	r.Handle("GET /messages", h.List)
	r.Handle("POST /messages", h.Create)
	r.Handle("DELETE /messages/{id}", h.Delete)
	r.Handle("PUT /messages/{id}/like", h.ToggleLike)
}

func (h *Handler) List(ctx *appcontext.AppContext) {
	messages, err := h.svc.List(ctx.Context)
	if err != nil {
		h.fail(ctx, err, "Failed to list messages")
		return
	}
	ctx.JSON(http.StatusOK, messages)
}

func (h *Handler) Create(ctx *appcontext.AppContext) {
	var req CreateMessageRequest
	if err := ctx.DecodeJSON(&req); err != nil {
		ctx.Error(http.StatusBadRequest, "Invalid JSON")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		ctx.Error(http.StatusBadRequest, "Content must not be empty")
		return
	}

	resp, err := h.svc.Create(ctx.Context, req.Content)
	if err != nil {
		h.fail(ctx, err, "Failed to create message")
		return
	}
	ctx.JSON(http.StatusOK, resp)
}

func (h *Handler) Delete(ctx *appcontext.AppContext) {
	id, ok := pathID(ctx)
	if !ok {
		return
	}

	resp, err := h.svc.Delete(ctx.Context, id)
	if err != nil {
		h.fail(ctx, err, "Failed to delete message")
		return
	}
	ctx.JSON(http.StatusOK, resp)
}

func (h *Handler) ToggleLike(ctx *appcontext.AppContext) {
	id, ok := pathID(ctx)
	if !ok {
		return
	}

	var req ToggleLikeRequest
	if err := ctx.DecodeJSON(&req); err != nil {
		ctx.Error(http.StatusBadRequest, "Invalid JSON")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		ctx.Error(http.StatusBadRequest, "Invalid action, expected like or unlike")
		return
	}

	resp, err := h.svc.ToggleLike(ctx.Context, id, req.Action)
	if err != nil {
		h.fail(ctx, err, "Failed to update likes")
		return
	}
	ctx.JSON(http.StatusOK, resp)
}

func pathID(ctx *appcontext.AppContext) (int64, bool) {
	id, err := strconv.ParseInt(ctx.Request.PathValue("id"), 10, 64)
	if err != nil {
		ctx.Error(http.StatusBadRequest, "Invalid message id")
		return 0, false
	}
	return id, true
}

// fail maps service errors onto status codes. Only internal errors are
// logged, their detail never reaches the client.
func (h *Handler) fail(ctx *appcontext.AppContext, err error, what string) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		ctx.Error(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrNotFound):
		ctx.Error(http.StatusNotFound, "Message not found")
	default:
		ctx.Logger.Errorw(what, "error", err)
		ctx.Error(http.StatusInternalServerError, what+", please try again later")
	}
}
