// Package api implements the Redfish request router and resource handlers
// (component I) and the OEM bridge to the board command layer, sensor-config
// store, and control-logic registry (component K).
package api

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/dexatek/cdu-gateway/internal/auth"
	"github.com/dexatek/cdu-gateway/internal/boards"
	"github.com/dexatek/cdu-gateway/internal/controllogic"
	"github.com/dexatek/cdu-gateway/internal/database"
	"github.com/dexatek/cdu-gateway/internal/lifecycle"
	"github.com/dexatek/cdu-gateway/internal/regmap"
	"github.com/dexatek/cdu-gateway/internal/sensorconfig"
	"github.com/dexatek/cdu-gateway/internal/telemetry"
	"github.com/dexatek/cdu-gateway/pkg/models"
)

// Handler holds every collaborator the Redfish surface dispatches into:
// the identity store (J), the register map and board commander the OEM
// bridge (K) reads/writes, the sensor-config store (F), the control-logic
// registry (G), and the lifecycle coordinator (M) for post-actions.
type Handler struct {
	db      *database.DB
	auth    *auth.Authenticator
	regs    *regmap.Map
	cmd     *boards.Commander
	ports   map[int]boards.Kind
	cfg     *sensorconfig.Config
	logics  *controllogic.Registry
	life    *lifecycle.Coordinator
	metrics *telemetry.Metrics

	firmwarePath string
}

// NewHandler builds a Handler over its collaborators. metrics may be nil,
// in which case request counting is skipped.
func NewHandler(db *database.DB, a *auth.Authenticator, regs *regmap.Map, cmd *boards.Commander, ports map[int]boards.Kind, cfg *sensorconfig.Config, logics *controllogic.Registry, life *lifecycle.Coordinator, metrics *telemetry.Metrics, firmwarePath string) *Handler {
	return &Handler{
		db: db, auth: a, regs: regs, cmd: cmd, ports: ports, cfg: cfg,
		logics: logics, life: life, metrics: metrics, firmwarePath: firmwarePath,
	}
}

// NewRouter wires h into the top-level mux. Everything under /redfish/
// funnels through handleRedfish, which owns path parsing, the OData-Version
// check, the public/authenticated split, and CORS preflight — matching
// design/040_CDU_Gateway_Redfish_API.md §4.I's single-entry-point router description.
func NewRouter(h *Handler) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/redfish", h.instrumented(h.handleRedfish))
	mux.HandleFunc("/redfish/", h.instrumented(h.handleRedfish))
	return mux
}

// statusRecorder captures the status code a handler wrote, for metrics
// only — it never alters the response itself.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// instrumented wraps next so every Redfish request is counted by method,
// top-level resource, and status (design/044_CDU_Gateway_Telemetry.md §4.N: "cdu_redfish_requests_
// total{method,resource,status}").
func (h *Handler) instrumented(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if h.metrics == nil {
			next(w, r)
			return
		}
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next(rec, r)
		h.metrics.ObserveRedfishRequest(r.Method, topLevelResource(r.URL.Path), rec.status)
	}
}

// topLevelResource collapses a Redfish path down to its resource-kind
// segment, keeping the metrics cardinality bounded (no per-id labels).
func topLevelResource(path string) string {
	path = strings.TrimPrefix(path, "/redfish/v1/")
	path = strings.TrimPrefix(path, "/redfish")
	if path == "" {
		return "ServiceRoot"
	}
	if idx := strings.Index(path, "/"); idx >= 0 {
		return path[:idx]
	}
	return path
}

// publicPaths lists the resources design/040_CDU_Gateway_Redfish_API.md §4.I.2 exempts from
// check_request, matched after trailing-slash stripping.
func isPublicPath(path, method string) bool {
	switch path {
	case "/redfish", "/redfish/v1", "/redfish/v1/odata", "/redfish/v1/$metadata":
		return true
	}
	if method == http.MethodPost && (path == "/redfish/v1/SessionService/Sessions" || path == "/redfish/v1/SessionService/Sessions/Members") {
		return true
	}
	return false
}

// handleRedfish is the single entry point for every /redfish request: it
// validates OData-Version, strips the trailing slash, resolves the public/
// authenticated split, and dispatches by path prefix.
func (h *Handler) handleRedfish(w http.ResponseWriter, r *http.Request) {
	if v := r.Header.Get("OData-Version"); v != "" && v != "4.0" {
		writeErrorResponse(w, http.StatusBadRequest, "Base.1.15.0.PropertyValueNotInList", "Unsupported OData-Version")
		return
	}

	path := strings.TrimSuffix(r.URL.Path, "/")
	if path == "" {
		path = "/redfish"
	}

	if r.Method == http.MethodGet || r.Method == http.MethodHead {
		withDescribedBy(w)
	}

	var account *models.Account
	if !isPublicPath(path, r.Method) {
		acc, err := h.auth.AuthenticateRequest(r)
		if err != nil {
			writeErrorResponse(w, http.StatusUnauthorized, "Base.1.15.0.Unauthorized", "Authentication required")
			return
		}
		account = acc
	}

	switch {
	case path == "/redfish" || path == "/redfish/v1" || path == "/redfish/v1/odata":
		h.handleServiceRoot(w, r)
	case path == "/redfish/v1/$metadata":
		h.handleMetadata(w, r)
	case path == "/redfish/v1/Registries" || strings.HasPrefix(path, "/redfish/v1/Registries/"):
		h.handleRegistries(w, r, strings.TrimPrefix(path, "/redfish/v1/Registries"))
	case path == "/redfish/v1/SchemaStore" || strings.HasPrefix(path, "/redfish/v1/SchemaStore/"):
		h.handleSchemaStore(w, r, strings.TrimPrefix(path, "/redfish/v1/SchemaStore"))
	case path == "/redfish/v1/SessionService" || strings.HasPrefix(path, "/redfish/v1/SessionService/"):
		h.handleSessionService(w, r, strings.TrimPrefix(path, "/redfish/v1/SessionService"), account)
	case path == "/redfish/v1/AccountService" || strings.HasPrefix(path, "/redfish/v1/AccountService/"):
		h.handleAccountService(w, r, strings.TrimPrefix(path, "/redfish/v1/AccountService"), account)
	case path == "/redfish/v1/CertificateService" || strings.HasPrefix(path, "/redfish/v1/CertificateService/"):
		h.handleCertificateService(w, r, strings.TrimPrefix(path, "/redfish/v1/CertificateService"), account)
	case path == "/redfish/v1/Managers" || strings.HasPrefix(path, "/redfish/v1/Managers/"):
		h.handleManagers(w, r, strings.TrimPrefix(path, "/redfish/v1/Managers"), account)
	case path == "/redfish/v1/UpdateService" || strings.HasPrefix(path, "/redfish/v1/UpdateService/"):
		h.handleUpdateService(w, r, strings.TrimPrefix(path, "/redfish/v1/UpdateService"), account)
	case path == "/redfish/v1/ThermalEquipment" || strings.HasPrefix(path, "/redfish/v1/ThermalEquipment/"):
		h.handleThermalEquipment(w, r, strings.TrimPrefix(path, "/redfish/v1/ThermalEquipment"), account)
	case path == "/redfish/v1/EventService":
		h.handleStubService(w, r, "EventService", "#EventService.v1_9_0.EventService")
	case path == "/redfish/v1/TaskService":
		h.handleStubService(w, r, "TaskService", "#TaskService.v1_2_0.TaskService")
	default:
		writeErrorResponse(w, http.StatusNotFound, "Base.1.15.0.ResourceMissingAtURI", "Resource not found")
	}
}

// requireRole enforces the ConfigureComponents/ConfigureManager/
// ConfigureUsers gates design/040_CDU_Gateway_Redfish_API.md §4.I.3 names, writing a 403 and returning
// false when account lacks priv.
func requireRole(w http.ResponseWriter, account *models.Account, priv string) bool {
	if account == nil || !account.Role.HasPrivilege(priv) {
		writeErrorResponse(w, http.StatusForbidden, "Base.1.15.0.InsufficientPrivilege", "Insufficient privilege for this operation")
		return false
	}
	return true
}

func logAndInternalError(w http.ResponseWriter, op string, err error) {
	slog.Error("redfish handler error", "op", op, "error", err)
	writeErrorResponse(w, http.StatusInternalServerError, "Base.1.15.0.InternalError", "Internal error")
}

// handleStubService answers EventService/TaskService with a minimal
// disabled-service body; design/030_CDU_Gateway_Overview.md does not require these beyond ServiceRoot
// navigation links resolving to *something*.
func (h *Handler) handleStubService(w http.ResponseWriter, r *http.Request, id, odataType string) {
	if r.Method == http.MethodOptions {
		writeAllow(w, http.MethodGet)
		return
	}
	if r.Method != http.MethodGet {
		writeErrorResponse(w, http.StatusMethodNotAllowed, "Base.1.15.0.MethodNotAllowed", "Method not allowed")
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"@odata.id":   "/redfish/v1/" + id,
		"@odata.type": odataType,
		"Id":          id,
		"Name":        id,
		"ServiceEnabled": false,
		"Status":      redfishStatus("Disabled", "OK"),
	})
}

func redfishStatus(state, health string) map[string]string {
	return map[string]string{"State": state, "Health": health}
}
