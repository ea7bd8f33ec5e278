package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/dexatek/cdu-gateway/pkg/models"
	"github.com/dexatek/cdu-gateway/pkg/redfish"
)

type loginRequest struct {
	UserName string `json:"UserName"`
	Password string `json:"Password"`
}

// handleSessionService routes SessionService and its Sessions collection.
// Login (POST Sessions) is the one Redfish write design/040_CDU_Gateway_Redfish_API.md §4.I.2 exempts
// from check_request; handleRedfish has already left account nil for it.
func (h *Handler) handleSessionService(w http.ResponseWriter, r *http.Request, subPath string, account *models.Account) {
	switch {
	case subPath == "" || subPath == "/":
		if r.Method == http.MethodOptions {
			writeAllow(w, http.MethodGet, http.MethodHead)
			return
		}
		if r.Method != http.MethodGet {
			writeErrorResponse(w, http.StatusMethodNotAllowed, "Base.1.15.0.MethodNotAllowed", "Method not allowed")
			return
		}
		writeJSONResponse(w, http.StatusOK, redfish.SessionService{
			ODataContext:   "/redfish/v1/$metadata#SessionService.SessionService",
			ODataID:        "/redfish/v1/SessionService",
			ODataType:      "#SessionService.v1_1_8.SessionService",
			ID:             "SessionService",
			Name:           "Session Service",
			Description:    "CDU Gateway Session Service",
			ServiceEnabled: true,
			SessionTimeout: int(models.SessionTTL.Seconds()),
			Sessions:       redfish.ODataIDRef{ODataID: "/redfish/v1/SessionService/Sessions"},
		})

	case subPath == "/Sessions" || subPath == "/Sessions/":
		switch r.Method {
		case http.MethodOptions:
			writeAllow(w, http.MethodGet, http.MethodHead, http.MethodPost)
		case http.MethodPost:
			h.handleLogin(w, r)
		case http.MethodGet:
			h.handleSessionsCollection(w, r)
		default:
			writeErrorResponse(w, http.StatusMethodNotAllowed, "Base.1.15.0.MethodNotAllowed", "Method not allowed")
		}

	case strings.HasPrefix(subPath, "/Sessions/"):
		id := strings.Trim(strings.TrimPrefix(subPath, "/Sessions/"), "/")
		if id == "" {
			writeErrorResponse(w, http.StatusNotFound, "Base.1.15.0.ResourceMissingAtURI", "Session not found")
			return
		}
		switch r.Method {
		case http.MethodOptions:
			writeAllow(w, http.MethodGet, http.MethodHead, http.MethodDelete)
		case http.MethodGet:
			h.handleSessionMember(w, r, id)
		case http.MethodDelete:
			h.handleSessionDelete(w, r, id, account)
		default:
			writeErrorResponse(w, http.StatusMethodNotAllowed, "Base.1.15.0.MethodNotAllowed", "Method not allowed")
		}

	default:
		writeErrorResponse(w, http.StatusNotFound, "Base.1.15.0.ResourceMissingAtURI", "Resource not found")
	}
}

// handleLogin implements create_session (design/041_CDU_Gateway_Identity_Store.md §4.J): validate
// credentials, then mint a session via the Authenticator, which itself
// purges expired sessions and allocates the smallest free id.
func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "Base.1.15.0.MalformedJSON", "Malformed request body")
		return
	}
	if req.UserName == "" || req.Password == "" {
		writeErrorResponse(w, http.StatusBadRequest, "Base.1.15.0.PropertyMissing", "UserName and Password are required")
		return
	}

	account, err := h.auth.AuthenticateBasic(r.Context(), req.UserName, req.Password)
	if err != nil {
		writeErrorResponse(w, http.StatusUnauthorized, "Base.1.15.0.Unauthorized", "Invalid credentials")
		return
	}

	session, err := h.auth.CreateSession(r.Context(), account)
	if err != nil {
		logAndInternalError(w, "CreateSession", err)
		return
	}

	location := fmt.Sprintf("/redfish/v1/SessionService/Sessions/%d", session.ID)
	w.Header().Set("X-Auth-Token", session.Token)
	w.Header().Set("Location", location)
	writeJSONResponse(w, http.StatusCreated, redfish.Session{
		ODataContext: "/redfish/v1/$metadata#Session.Session",
		ODataID:      location,
		ODataType:    "#Session.v1_5_0.Session",
		ID:           strconv.Itoa(session.ID),
		Name:         "User Session",
		UserName:     session.Username,
	})
}

func (h *Handler) handleSessionsCollection(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.db.GetSessions(r.Context())
	if err != nil {
		logAndInternalError(w, "GetSessions", err)
		return
	}
	members := make([]redfish.ODataIDRef, 0, len(sessions))
	for _, s := range sessions {
		members = append(members, redfish.ODataIDRef{ODataID: fmt.Sprintf("/redfish/v1/SessionService/Sessions/%d", s.ID)})
	}
	writeJSONResponse(w, http.StatusOK, redfish.Collection{
		ODataContext: "/redfish/v1/$metadata#SessionCollection.SessionCollection",
		ODataID:      "/redfish/v1/SessionService/Sessions",
		ODataType:    "#SessionCollection.SessionCollection",
		Name:         "Session Collection",
		Members:      members,
		MembersCount: len(members),
	})
}

func (h *Handler) handleSessionMember(w http.ResponseWriter, r *http.Request, id string) {
	idx, err := strconv.Atoi(id)
	if err != nil {
		writeErrorResponse(w, http.StatusNotFound, "Base.1.15.0.ResourceMissingAtURI", "Session not found")
		return
	}
	session, err := h.db.GetSession(r.Context(), idx)
	if err != nil {
		logAndInternalError(w, "GetSession", err)
		return
	}
	if session == nil {
		writeErrorResponse(w, http.StatusNotFound, "Base.1.15.0.ResourceMissingAtURI", "Session not found")
		return
	}
	writeJSONResponse(w, http.StatusOK, redfish.Session{
		ODataContext: "/redfish/v1/$metadata#Session.Session",
		ODataID:      fmt.Sprintf("/redfish/v1/SessionService/Sessions/%d", session.ID),
		ODataType:    "#Session.v1_5_0.Session",
		ID:           strconv.Itoa(session.ID),
		Name:         "User Session",
		UserName:     session.Username,
	})
}

// handleSessionDelete enforces design/040_CDU_Gateway_Redfish_API.md §4.I.3: Administrator may delete any
// session, everyone else only their own.
func (h *Handler) handleSessionDelete(w http.ResponseWriter, r *http.Request, id string, account *models.Account) {
	idx, err := strconv.Atoi(id)
	if err != nil {
		writeErrorResponse(w, http.StatusNotFound, "Base.1.15.0.ResourceMissingAtURI", "Session not found")
		return
	}
	session, err := h.db.GetSession(r.Context(), idx)
	if err != nil {
		logAndInternalError(w, "GetSession", err)
		return
	}
	if session == nil {
		writeErrorResponse(w, http.StatusNotFound, "Base.1.15.0.ResourceMissingAtURI", "Session not found")
		return
	}
	if account.Role != models.RoleAdministrator && session.Username != account.Username {
		writeErrorResponse(w, http.StatusForbidden, "Base.1.15.0.InsufficientPrivilege", "Cannot delete another user's session")
		return
	}
	if err := h.auth.DeleteSessionByID(r.Context(), idx); err != nil {
		logAndInternalError(w, "DeleteSessionByID", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
