package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"mintgate/internal/allocation/models"
	id "mintgate/pkg/domain"
	dErrors "mintgate/pkg/domain-errors"
	"mintgate/pkg/platform/httputil"
	"mintgate/pkg/requestcontext"
)

// Service defines the allocation operations exposed over HTTP.
type Service interface {
	Mint(ctx context.Context, ch models.Channel, caller id.Principal, req models.MintRequest) (models.Record, error)
	SetPrivileged(ctx context.Context, caller, p id.Principal, status bool) error
	SetPreApproved(ctx context.Context, caller, p id.Principal, status bool) error
	SetSaleActive(ctx context.Context, caller id.Principal, active bool) error
	SetQuotas(ctx context.Context, caller id.Principal, total, whitelist, admin int64) (models.Quotas, error)
	SetBaseMetadataPrefix(ctx context.Context, caller id.Principal, prefix string) error
	Pause(ctx context.Context, caller id.Principal) error
	Unpause(ctx context.Context, caller id.Principal) error

	Status() models.Status
	Record(tokenID id.TokenID) (models.Record, error)
	TokenURI(ctx context.Context, tokenID id.TokenID) (string, error)
	Participant(p id.Principal) models.Participant
}

// Handler wires allocation endpoints to the engine.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs an allocation handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// RegisterPublic mounts the read-only endpoints.
func (h *Handler) RegisterPublic(r chi.Router) {
	r.Get("/v1/status", h.HandleStatus)
	r.Get("/v1/tokens/{id}", h.HandleGetRecord)
	r.Get("/v1/tokens/{id}/uri", h.HandleGetURI)
	r.Get("/v1/participants/{principal}", h.HandleGetParticipant)
}

// RegisterProtected mounts the endpoints that act on behalf of the caller.
// The router must resolve the caller principal before these run.
func (h *Handler) RegisterProtected(r chi.Router) {
	r.Post("/v1/mint/{channel}", h.HandleMint)

	r.Put("/v1/admin/privileged/{principal}", h.HandleSetPrivileged)
	r.Put("/v1/admin/pre-approved/{principal}", h.HandleSetPreApproved)
	r.Put("/v1/admin/sale", h.HandleSetSale)
	r.Put("/v1/admin/quotas", h.HandleSetQuotas)
	r.Put("/v1/admin/metadata-prefix", h.HandleSetMetadataPrefix)
}

// RegisterKillSwitch mounts pause and unpause. They also need the caller
// principal, but are kept apart so the router can leave them out of request
// throttling: the owner must always be able to stop the system.
func (h *Handler) RegisterKillSwitch(r chi.Router) {
	r.Post("/v1/admin/pause", h.HandlePause)
	r.Post("/v1/admin/unpause", h.HandleUnpause)
}

// HandleMint handles POST /v1/mint/{channel}.
func (h *Handler) HandleMint(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	caller, ok := h.requireCaller(w, ctx)
	if !ok {
		return
	}

	ch, err := models.ParseChannel(chi.URLParam(r, "channel"))
	if err != nil {
		h.writeError(w, err)
		return
	}

	req, ok := httputil.DecodeAndPrepare[MintRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	rec, err := h.service.Mint(ctx, ch, caller, req.ToModel())
	if err != nil {
		h.logFailure(ctx, "allocation rejected", err, "channel", ch.String(), "caller", caller.String())
		h.writeError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "slot allocated",
		"request_id", requestID,
		"channel", ch.String(),
		"caller", caller.String(),
		"token_id", rec.ID.String(),
	)
	httputil.WriteJSON(w, http.StatusCreated, FromRecord(rec))
}

// HandleSetPrivileged handles PUT /v1/admin/privileged/{principal}.
func (h *Handler) HandleSetPrivileged(w http.ResponseWriter, r *http.Request) {
	h.handleRole(w, r, h.service.SetPrivileged)
}

// HandleSetPreApproved handles PUT /v1/admin/pre-approved/{principal}.
func (h *Handler) HandleSetPreApproved(w http.ResponseWriter, r *http.Request) {
	h.handleRole(w, r, h.service.SetPreApproved)
}

func (h *Handler) handleRole(w http.ResponseWriter, r *http.Request, set func(context.Context, id.Principal, id.Principal, bool) error) {
	ctx := r.Context()
	caller, ok := h.requireCaller(w, ctx)
	if !ok {
		return
	}
	target, err := id.ParsePrincipal(chi.URLParam(r, "principal"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[RoleRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}

	if err := set(ctx, caller, target, *req.Status); err != nil {
		h.logFailure(ctx, "role change rejected", err, "caller", caller.String(), "principal", target.String())
		h.writeError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromParticipant(h.service.Participant(target)))
}

// HandleSetSale handles PUT /v1/admin/sale.
func (h *Handler) HandleSetSale(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, ok := h.requireCaller(w, ctx)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[SaleRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}

	if err := h.service.SetSaleActive(ctx, caller, *req.Active); err != nil {
		h.logFailure(ctx, "sale change rejected", err, "caller", caller.String())
		h.writeError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromStatus(h.service.Status()))
}

// HandleSetQuotas handles PUT /v1/admin/quotas.
func (h *Handler) HandleSetQuotas(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, ok := h.requireCaller(w, ctx)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[QuotasRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}

	q, err := h.service.SetQuotas(ctx, caller, *req.Total, *req.Whitelist, *req.Admin)
	if err != nil {
		h.logFailure(ctx, "quota change rejected", err, "caller", caller.String())
		h.writeError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, q)
}

// HandleSetMetadataPrefix handles PUT /v1/admin/metadata-prefix.
func (h *Handler) HandleSetMetadataPrefix(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, ok := h.requireCaller(w, ctx)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[PrefixRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}

	if err := h.service.SetBaseMetadataPrefix(ctx, caller, *req.Prefix); err != nil {
		h.logFailure(ctx, "metadata prefix change rejected", err, "caller", caller.String())
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandlePause handles POST /v1/admin/pause.
func (h *Handler) HandlePause(w http.ResponseWriter, r *http.Request) {
	h.handlePause(w, r, true)
}

// HandleUnpause handles POST /v1/admin/unpause.
func (h *Handler) HandleUnpause(w http.ResponseWriter, r *http.Request) {
	h.handlePause(w, r, false)
}

func (h *Handler) handlePause(w http.ResponseWriter, r *http.Request, pause bool) {
	ctx := r.Context()
	caller, ok := h.requireCaller(w, ctx)
	if !ok {
		return
	}

	var err error
	if pause {
		err = h.service.Pause(ctx, caller)
	} else {
		err = h.service.Unpause(ctx, caller)
	}
	if err != nil {
		h.logFailure(ctx, "pause change rejected", err, "caller", caller.String(), "pause", pause)
		h.writeError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, &PauseResponse{Paused: pause})
}

// HandleStatus handles GET /v1/status.
func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, FromStatus(h.service.Status()))
}

// HandleGetRecord handles GET /v1/tokens/{id}.
func (h *Handler) HandleGetRecord(w http.ResponseWriter, r *http.Request) {
	tokenID, err := id.ParseTokenID(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	rec, err := h.service.Record(tokenID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromRecord(rec))
}

// HandleGetURI handles GET /v1/tokens/{id}/uri.
func (h *Handler) HandleGetURI(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tokenID, err := id.ParseTokenID(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	uri, err := h.service.TokenURI(ctx, tokenID)
	if err != nil {
		h.logFailure(ctx, "uri resolution failed", err, "token_id", tokenID.String())
		h.writeError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, &URIResponse{ID: uint64(tokenID), URI: uri})
}

// HandleGetParticipant handles GET /v1/participants/{principal}.
func (h *Handler) HandleGetParticipant(w http.ResponseWriter, r *http.Request) {
	p, err := id.ParsePrincipal(chi.URLParam(r, "principal"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromParticipant(h.service.Participant(p)))
}

func (h *Handler) requireCaller(w http.ResponseWriter, ctx context.Context) (id.Principal, bool) {
	caller := requestcontext.Principal(ctx)
	if caller.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return "", false
	}
	return caller, true
}

// logFailure logs rejections at Info and unexpected failures at Error.
func (h *Handler) logFailure(ctx context.Context, msg string, err error, args ...any) {
	args = append(args, "request_id", requestcontext.RequestID(ctx), "code", string(dErrors.CodeOf(err)), "error", err)
	if statusFor(err) >= http.StatusInternalServerError {
		h.logger.ErrorContext(ctx, msg, args...)
		return
	}
	h.logger.InfoContext(ctx, msg, args...)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	httputil.WriteErrorStatus(w, statusFor(err), err)
}
