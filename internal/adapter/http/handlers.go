package http

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/fiberdesk/fiberdesk/internal/domain/tenant"
	"github.com/fiberdesk/fiberdesk/internal/middleware"
	"github.com/fiberdesk/fiberdesk/internal/port/database"
	"github.com/fiberdesk/fiberdesk/internal/service"
)

const (
	defaultBodyLimit = 1 << 20

	defaultListLimit = 100
	maxListLimit     = 500

	defaultExpiryWindowDays = 7
)

// Handlers bundles the dashboard's HTTP handlers and their dependencies.
type Handlers struct {
	resolver    *service.Resolver
	provisioner *service.Provisioner
	tracker     *service.ProgressTracker
	sync        *service.SyncService
	queries     database.SubscriberQueries
}

// NewHandlers creates the dashboard handler set.
func NewHandlers(resolver *service.Resolver, provisioner *service.Provisioner,
	tracker *service.ProgressTracker, sync *service.SyncService,
	queries database.SubscriberQueries) *Handlers {
	return &Handlers{resolver: resolver, provisioner: provisioner,
		tracker: tracker, sync: sync, queries: queries}
}

// Health handles GET /health.
func (h *Handlers) Health(w http.ResponseWriter, _ *http.Request) {
	writeData(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ListSubscribers handles GET /api/v1/subscribers. The search query parameter
// filters by name or phone; limit caps the page size.
func (h *Handlers) ListSubscribers(w http.ResponseWriter, r *http.Request) {
	identity := middleware.IdentityFromContext(r.Context())
	if !requireField(w, identity, "username") {
		return
	}

	limit := defaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxListLimit)
	}

	pool, err := h.resolver.ResolvePool(r.Context(), identity)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	subs, err := h.queries.ListSubscribers(r.Context(), pool, r.URL.Query().Get("search"), limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeData(w, http.StatusOK, subs)
}

// ExpiringSubscribers handles GET /api/v1/subscribers/expiring. The days
// query parameter sets the look-ahead window.
func (h *Handlers) ExpiringSubscribers(w http.ResponseWriter, r *http.Request) {
	identity := middleware.IdentityFromContext(r.Context())
	if !requireField(w, identity, "username") {
		return
	}

	days := defaultExpiryWindowDays
	if raw := r.URL.Query().Get("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "days must be a positive integer")
			return
		}
		days = n
	}

	pool, err := h.resolver.ResolvePool(r.Context(), identity)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	subs, err := h.queries.ExpiringSubscribers(r.Context(), pool, time.Duration(days)*24*time.Hour)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeData(w, http.StatusOK, subs)
}

type provisionTenantRequest struct {
	Username      string `json:"username"`
	AdminPassword string `json:"admin_password"`
	AgentName     string `json:"agent_name"`
	Company       string `json:"company"`
	Region        string `json:"region"`
	Phone         string `json:"phone"`
}

// ProvisionTenant handles POST /api/v1/tenants.
func (h *Handlers) ProvisionTenant(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[provisionTenantRequest](w, r, defaultBodyLimit)
	if !ok {
		return
	}
	if !requireField(w, req.Username, "username") || !requireField(w, req.AdminPassword, "admin_password") {
		return
	}

	databaseName, err := h.provisioner.Provision(r.Context(), tenant.ProvisionRequest{
		Username:      req.Username,
		AdminPassword: req.AdminPassword,
		AgentName:     req.AgentName,
		Company:       req.Company,
		Region:        req.Region,
		Phone:         req.Phone,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeData(w, http.StatusCreated, map[string]string{"database_name": databaseName})
}

type startSyncRequest struct {
	Username       string `json:"username"`
	AccountID      string `json:"account_id"`
	PortalPassword string `json:"portal_password"`
}

// StartSync handles POST /api/v1/sync. The job runs in the background; its
// progress is readable via SyncProgress and the NATS progress subject.
func (h *Handlers) StartSync(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[startSyncRequest](w, r, defaultBodyLimit)
	if !ok {
		return
	}
	identity := middleware.IdentityFromContext(r.Context())
	if !requireField(w, identity, "username") ||
		!requireField(w, req.AccountID, "account_id") ||
		!requireField(w, req.PortalPassword, "portal_password") {
		return
	}

	// Detach from the request so the job outlives this response, keeping
	// context values for log correlation.
	ctx := context.WithoutCancel(r.Context())
	go func() {
		_ = h.sync.Run(ctx, identity, identity, req.AccountID, req.PortalPassword)
	}()

	writeData(w, http.StatusAccepted, map[string]string{"status": "started"})
}

// SyncProgress handles GET /api/v1/sync/progress.
func (h *Handlers) SyncProgress(w http.ResponseWriter, r *http.Request) {
	identity := middleware.IdentityFromContext(r.Context())
	if !requireField(w, identity, "username") {
		return
	}

	p, ok := h.tracker.Read(identity)
	if !ok {
		writeError(w, http.StatusNotFound, "no sync job for user")
		return
	}
	writeData(w, http.StatusOK, p)
}

// CancelSync handles POST /api/v1/sync/cancel. Cancellation is cooperative:
// the running job observes the request at its next page boundary.
func (h *Handlers) CancelSync(w http.ResponseWriter, r *http.Request) {
	identity := middleware.IdentityFromContext(r.Context())
	if !requireField(w, identity, "username") {
		return
	}

	if _, ok := h.tracker.Read(identity); !ok {
		writeError(w, http.StatusNotFound, "no sync job for user")
		return
	}
	h.tracker.RequestCancel(identity, "cancel requested")
	writeData(w, http.StatusAccepted, map[string]string{"status": "cancel requested"})
}
