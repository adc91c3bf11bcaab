// Package handler exposes the pool over HTTP: admin registry management,
// authenticated donate/fund/withdraw, and unauthenticated read endpoints.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	poolModel "givepool/internal/pool/models"
	"givepool/internal/platform/middleware"
	"givepool/pkg/domain"
	dErrors "givepool/pkg/domain-errors"
	"givepool/pkg/platform/httputil"
)

// Service defines the pool operations the HTTP layer needs.
type Service interface {
	Register(ctx context.Context, caller, id domain.PrincipalID, percent int) error
	UpdateAllocation(ctx context.Context, caller, id domain.PrincipalID, percent int) error
	Deactivate(ctx context.Context, caller, id domain.PrincipalID) error
	Reactivate(ctx context.Context, caller, id domain.PrincipalID) error

	Donate(ctx context.Context, donor domain.PrincipalID, amount int64) (int64, error)
	Fund(ctx context.Context, from domain.PrincipalID, amount int64) error
	Withdraw(ctx context.Context, caller domain.PrincipalID) (int64, error)

	Beneficiaries(ctx context.Context) ([]*poolModel.Beneficiary, error)
	Beneficiary(ctx context.Context, id domain.PrincipalID) (*poolModel.Beneficiary, error)
	Donation(ctx context.Context, index int64) (poolModel.DonationRecord, error)
	Totals(ctx context.Context) (poolModel.Totals, error)
	PoolBalance(ctx context.Context) (int64, error)
}

// Handler wires pool endpoints into a chi router.
type Handler struct {
	logger         *slog.Logger
	pool           Service
	metrics        middleware.LatencyRecorder
	jwtValidator   middleware.JWTValidator
	adminVerifier  middleware.AdminKeyVerifier
	adminPrincipal string
	donationLimit  func(http.Handler) http.Handler
}

type Option func(*Handler)

// WithDonationLimit applies a rate limiting middleware to the donation
// endpoint.
func WithDonationLimit(limit func(http.Handler) http.Handler) Option {
	return func(h *Handler) {
		h.donationLimit = limit
	}
}

// WithMetrics enables per-route latency recording.
func WithMetrics(m middleware.LatencyRecorder) Option {
	return func(h *Handler) {
		h.metrics = m
	}
}

// New creates a pool Handler.
func New(
	pool Service,
	logger *slog.Logger,
	jwtValidator middleware.JWTValidator,
	adminVerifier middleware.AdminKeyVerifier,
	adminPrincipal string,
	opts ...Option,
) *Handler {
	h := &Handler{
		logger:         logger,
		pool:           pool,
		jwtValidator:   jwtValidator,
		adminVerifier:  adminVerifier,
		adminPrincipal: adminPrincipal,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register mounts all pool routes.
func (h *Handler) Register(r chi.Router) {
	router := chi.NewRouter()
	router.Use(middleware.Recovery(h.logger))
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(h.logger))
	router.Use(middleware.Timeout(30 * time.Second))
	router.Use(middleware.ContentTypeJSON)
	if h.metrics != nil {
		router.Use(middleware.Latency(h.metrics))
	}

	router.Group(func(admin chi.Router) {
		admin.Use(middleware.RequireAdmin(h.jwtValidator, h.adminVerifier, h.adminPrincipal, h.logger))
		admin.Post("/admin/beneficiaries", h.handleRegisterBeneficiary)
		admin.Put("/admin/beneficiaries/{id}/allocation", h.handleUpdateAllocation)
		admin.Post("/admin/beneficiaries/{id}/deactivate", h.handleDeactivate)
		admin.Post("/admin/beneficiaries/{id}/reactivate", h.handleReactivate)
	})

	router.Group(func(authed chi.Router) {
		authed.Use(middleware.RequireAuth(h.jwtValidator, h.logger))
		if h.donationLimit != nil {
			authed.With(h.donationLimit).Post("/donations", h.handleDonate)
		} else {
			authed.Post("/donations", h.handleDonate)
		}
		authed.Post("/fund", h.handleFund)
		authed.Post("/withdrawals", h.handleWithdraw)
	})

	router.Get("/beneficiaries", h.handleListBeneficiaries)
	router.Get("/beneficiaries/{id}", h.handleGetBeneficiary)
	router.Get("/donations/{index}", h.handleGetDonation)
	router.Get("/stats", h.handleStats)
	router.Get("/healthz", h.handleHealthz)

	r.Mount("/", router)
}

func (h *Handler) handleRegisterBeneficiary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, ok := h.caller(w, ctx)
	if !ok {
		return
	}

	var req poolModel.RegisterBeneficiaryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	if err := h.pool.Register(ctx, caller, domain.PrincipalID(req.ID), req.AllocationPercent); err != nil {
		h.writeServiceError(ctx, w, err, "failed to register beneficiary")
		return
	}

	b, err := h.pool.Beneficiary(ctx, domain.PrincipalID(req.ID))
	if err != nil {
		h.writeServiceError(ctx, w, err, "failed to load registered beneficiary")
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, poolModel.NewBeneficiaryResponse(b))
}

func (h *Handler) handleUpdateAllocation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, ok := h.caller(w, ctx)
	if !ok {
		return
	}
	id := domain.PrincipalID(chi.URLParam(r, "id"))

	var req poolModel.UpdateAllocationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	if err := h.pool.UpdateAllocation(ctx, caller, id, req.AllocationPercent); err != nil {
		h.writeServiceError(ctx, w, err, "failed to update allocation")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleDeactivate(w http.ResponseWriter, r *http.Request) {
	h.setStatus(w, r, false)
}

func (h *Handler) handleReactivate(w http.ResponseWriter, r *http.Request) {
	h.setStatus(w, r, true)
}

func (h *Handler) setStatus(w http.ResponseWriter, r *http.Request, active bool) {
	ctx := r.Context()
	caller, ok := h.caller(w, ctx)
	if !ok {
		return
	}
	id := domain.PrincipalID(chi.URLParam(r, "id"))

	var err error
	if active {
		err = h.pool.Reactivate(ctx, caller, id)
	} else {
		err = h.pool.Deactivate(ctx, caller, id)
	}
	if err != nil {
		h.writeServiceError(ctx, w, err, "failed to change beneficiary status")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleDonate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, ok := h.caller(w, ctx)
	if !ok {
		return
	}

	var req poolModel.DonationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	index, err := h.pool.Donate(ctx, caller, req.Amount)
	if err != nil {
		h.writeServiceError(ctx, w, err, "failed to process donation")
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, poolModel.DonationAcceptedResponse{
		Index:  index,
		Amount: req.Amount,
	})
}

func (h *Handler) handleFund(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, ok := h.caller(w, ctx)
	if !ok {
		return
	}

	var req poolModel.FundRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	if err := h.pool.Fund(ctx, caller, req.Amount); err != nil {
		h.writeServiceError(ctx, w, err, "failed to fund pool")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, ok := h.caller(w, ctx)
	if !ok {
		return
	}

	amount, err := h.pool.Withdraw(ctx, caller)
	if err != nil {
		h.writeServiceError(ctx, w, err, "failed to process withdrawal")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, poolModel.WithdrawalResponse{Amount: amount})
}

func (h *Handler) handleListBeneficiaries(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	list, err := h.pool.Beneficiaries(ctx)
	if err != nil {
		h.writeServiceError(ctx, w, err, "failed to list beneficiaries")
		return
	}

	resp := poolModel.BeneficiaryListResponse{
		Beneficiaries: make([]poolModel.BeneficiaryResponse, 0, len(list)),
	}
	for _, b := range list {
		resp.Beneficiaries = append(resp.Beneficiaries, poolModel.NewBeneficiaryResponse(b))
		resp.TotalAllocation += b.AllocationPercent
		if b.Active {
			resp.ActiveAllocation += b.AllocationPercent
		}
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleGetBeneficiary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	b, err := h.pool.Beneficiary(ctx, domain.PrincipalID(chi.URLParam(r, "id")))
	if err != nil {
		h.writeServiceError(ctx, w, err, "failed to load beneficiary")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, poolModel.NewBeneficiaryResponse(b))
}

func (h *Handler) handleGetDonation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	index, err := strconv.ParseInt(chi.URLParam(r, "index"), 10, 64)
	if err != nil || index < 0 {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid donation index"))
		return
	}

	record, err := h.pool.Donation(ctx, index)
	if err != nil {
		if dErrors.Is(err, dErrors.CodeValidation) {
			httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "donation not found"))
			return
		}
		h.writeServiceError(ctx, w, err, "failed to load donation")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, poolModel.DonationResponse{
		Index:     record.Index,
		Donor:     record.Donor.String(),
		Amount:    record.Amount,
		Timestamp: record.Timestamp,
		Processed: record.Processed,
	})
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	totals, err := h.pool.Totals(ctx)
	if err != nil {
		h.writeServiceError(ctx, w, err, "failed to read totals")
		return
	}
	poolBalance, err := h.pool.PoolBalance(ctx)
	if err != nil {
		h.writeServiceError(ctx, w, err, "failed to read pool balance")
		return
	}
	list, err := h.pool.Beneficiaries(ctx)
	if err != nil {
		h.writeServiceError(ctx, w, err, "failed to list beneficiaries")
		return
	}

	resp := poolModel.StatsResponse{
		PoolBalance:   poolBalance,
		TotalReceived: totals.TotalReceived,
		DonationCount: totals.DonationCount,
		Beneficiaries: len(list),
	}
	for _, b := range list {
		if b.Active {
			resp.ActiveBeneficiaries++
			resp.ActiveAllocation += b.AllocationPercent
		}
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// caller resolves the authenticated principal set by the auth middleware.
func (h *Handler) caller(w http.ResponseWriter, ctx context.Context) (domain.PrincipalID, bool) {
	callerID := middleware.GetCallerID(ctx)
	if callerID == "" {
		// Unreachable when the auth middleware is mounted.
		h.logger.ErrorContext(ctx, "caller missing from context despite auth middleware",
			"request_id", middleware.GetRequestID(ctx),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return "", false
	}
	return domain.PrincipalID(callerID), true
}

// writeServiceError logs unexpected failures and translates coded errors onto
// the wire. Expected rejections pass through at their mapped status.
func (h *Handler) writeServiceError(ctx context.Context, w http.ResponseWriter, err error, logMsg string) {
	code := dErrors.GetCode(err)
	if code == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, logMsg,
			"error", err.Error(),
			"request_id", middleware.GetRequestID(ctx),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, logMsg))
		return
	}
	httputil.WriteError(w, err)
}
