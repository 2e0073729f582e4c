package http

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/IgorGrieder/link-registry/internal/config"
	"github.com/IgorGrieder/link-registry/internal/constants"
	"github.com/IgorGrieder/link-registry/internal/events"
	"github.com/IgorGrieder/link-registry/internal/infrastructure/logger"
	appvalidation "github.com/IgorGrieder/link-registry/internal/infrastructure/validation"
	"github.com/IgorGrieder/link-registry/internal/processing/links"
	"github.com/IgorGrieder/link-registry/internal/transport/http/middleware"
	"github.com/IgorGrieder/link-registry/pkg/httputils"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// APIKeyOwnerType is the owner type given to links created by an
// authenticated client that did not name an owner.
const APIKeyOwnerType = "api_key"

type LinksHandler struct {
	cfg       *config.Config
	registry  *links.Registry
	publisher events.Publisher

	publishTimeout time.Duration
}

func NewLinksHandler(cfg *config.Config, registry *links.Registry, publisher events.Publisher) *LinksHandler {
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	return &LinksHandler{
		cfg:            cfg,
		registry:       registry,
		publisher:      publisher,
		publishTimeout: 2 * time.Second,
	}
}

type ownerPayload struct {
	Type string `json:"type" validate:"required,notblank"`
	ID   string `json:"id" validate:"required,notblank"`
}

type createLinkRequest struct {
	URL       string        `json:"url" validate:"required,notblank"`
	Owner     *ownerPayload `json:"owner,omitempty" validate:"omitempty"`
	ExpiresAt *time.Time    `json:"expiresAt,omitempty" validate:"omitempty,future"`
}

type linkResponse struct {
	Key       string        `json:"key"`
	URL       string        `json:"url"`
	ShortURL  string        `json:"shortUrl"`
	Owner     *ownerPayload `json:"owner,omitempty"`
	ExpiresAt *time.Time    `json:"expiresAt,omitempty"`
	CreatedAt time.Time     `json:"createdAt"`
	UpdatedAt time.Time     `json:"updatedAt"`
}

func (h *LinksHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createLinkRequest
	if err := httputils.DecodeJSON(w, r, &req); err != nil {
		httputils.WriteAPIError(w, r, constants.ErrInvalidRequestBody)
		return
	}
	if err := appvalidation.Validate(req); err != nil {
		httputils.WriteAPIError(w, r, createValidationError(err))
		return
	}

	owner := requestOwner(r.Context(), req.Owner)

	link, err := h.registry.Generate(r.Context(), req.URL, owner, links.GenerateOptions{ExpiresAt: req.ExpiresAt})
	if err != nil {
		switch {
		case errors.Is(err, links.ErrInvalidInput):
			httputils.WriteAPIError(w, r, constants.ErrBlankURL)
		case errors.Is(err, links.ErrMalformedURL):
			httputils.WriteAPIError(w, r, constants.ErrMalformedURL)
		case errors.Is(err, links.ErrInvalidOwner):
			httputils.WriteAPIError(w, r, constants.ErrInvalidOwner)
		case errors.Is(err, links.ErrDuplicateKey):
			logger.Error("key assignment exhausted", zap.Error(err))
			httputils.WriteAPIError(w, r, constants.ErrKeyAssignFailed)
		default:
			logger.Error("failed to generate link", zap.Error(err))
			httputils.WriteAPIError(w, r, constants.ErrInternalError)
		}
		return
	}

	h.publish(r.Context(), link)

	httputils.WriteAPISuccess(w, r, constants.SuccessLinkIssued, h.toResponse(link))
}

func (h *LinksHandler) List(w http.ResponseWriter, r *http.Request) {
	var owner *links.Owner
	ownerType := strings.TrimSpace(r.URL.Query().Get("ownerType"))
	ownerID := strings.TrimSpace(r.URL.Query().Get("ownerId"))
	if ownerType != "" || ownerID != "" {
		owner = &links.Owner{Type: ownerType, ID: ownerID}
	}

	found, err := h.registry.Unexpired(r.Context(), owner)
	if err != nil {
		if errors.Is(err, links.ErrInvalidOwner) {
			httputils.WriteAPIError(w, r, constants.ErrInvalidOwner)
			return
		}
		logger.Error("failed to list links", zap.Error(err))
		httputils.WriteAPIError(w, r, constants.ErrInternalError)
		return
	}

	out := make([]linkResponse, 0, len(found))
	for _, link := range found {
		out = append(out, h.toResponse(link))
	}
	httputils.WriteAPISuccess(w, r, constants.SuccessLinksListed, out)
}

func (h *LinksHandler) Redirect(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")

	link, err := h.registry.Resolve(r.Context(), key)
	if err != nil {
		switch {
		case errors.Is(err, links.ErrNotFound):
			httputils.WriteAPIError(w, r, constants.ErrLinkNotFound)
		case errors.Is(err, links.ErrExpired):
			httputils.WriteAPIError(w, r, constants.ErrLinkExpired)
		default:
			logger.Error("failed to resolve key", zap.Error(err), zap.String("key", key))
			httputils.WriteAPIError(w, r, constants.ErrInternalError)
		}
		return
	}

	http.Redirect(w, r, link.URL, h.cfg.Shortener.RedirectStatus)
}

// publish emits link.generated without failing the request; the link is
// already durable by now.
func (h *LinksHandler) publish(ctx context.Context, link *links.Link) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), h.publishTimeout)
	defer cancel()

	if err := h.publisher.PublishLinkGenerated(ctx, link); err != nil {
		logger.Warn("failed to publish link.generated", zap.String("key", link.Key), zap.Error(err))
	}
}

func (h *LinksHandler) toResponse(link *links.Link) linkResponse {
	resp := linkResponse{
		Key:       link.Key,
		URL:       link.URL,
		ShortURL:  strings.TrimRight(h.cfg.Shortener.BaseURL, "/") + "/" + link.Key,
		ExpiresAt: link.ExpiresAt,
		CreatedAt: link.CreatedAt,
		UpdatedAt: link.UpdatedAt,
	}
	if link.Owner != nil {
		resp.Owner = &ownerPayload{Type: link.Owner.Type, ID: link.Owner.ID}
	}
	return resp
}

// requestOwner prefers the owner named in the body and otherwise attributes
// the link to the authenticating API key, if any.
func requestOwner(ctx context.Context, payload *ownerPayload) *links.Owner {
	if payload != nil {
		return &links.Owner{Type: strings.TrimSpace(payload.Type), ID: strings.TrimSpace(payload.ID)}
	}
	if key, ok := middleware.APIKeyFromContext(ctx); ok {
		return &links.Owner{Type: APIKeyOwnerType, ID: key}
	}
	return nil
}

func createValidationError(err error) constants.APIError {
	apiErr := constants.ErrInvalidRequestBody
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return apiErr
	}
	for _, e := range validationErrs {
		switch {
		case e.Field() == "url":
			return constants.ErrBlankURL
		case e.Field() == "type" || e.Field() == "id":
			return constants.ErrInvalidOwner
		case e.Field() == "expiresAt" && e.Tag() == "future":
			return apiErr.WithMessage("expiresAt must be in the future")
		}
	}
	return apiErr
}
