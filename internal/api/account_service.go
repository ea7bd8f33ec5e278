package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	authpkg "github.com/dexatek/cdu-gateway/pkg/auth"
	"github.com/dexatek/cdu-gateway/pkg/models"
	"github.com/dexatek/cdu-gateway/pkg/redfish"
)

// handleAccountService routes AccountService, its Accounts collection, and
// the fixed Roles collection (design/040_CDU_Gateway_Redfish_API.md §4.I, §4.J).
func (h *Handler) handleAccountService(w http.ResponseWriter, r *http.Request, subPath string, account *models.Account) {
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
		writeJSONResponse(w, http.StatusOK, redfish.AccountService{
			ODataContext:   "/redfish/v1/$metadata#AccountService.AccountService",
			ODataID:        "/redfish/v1/AccountService",
			ODataType:      "#AccountService.v1_10_0.AccountService",
			ID:             "AccountService",
			Name:           "Account Service",
			ServiceEnabled: true,
			Accounts:       redfish.ODataIDRef{ODataID: "/redfish/v1/AccountService/Accounts"},
			Roles:          redfish.ODataIDRef{ODataID: "/redfish/v1/AccountService/Roles"},
		})

	case subPath == "/Accounts" || subPath == "/Accounts/":
		switch r.Method {
		case http.MethodOptions:
			writeAllow(w, http.MethodGet, http.MethodHead, http.MethodPost)
		case http.MethodGet:
			h.handleAccountsCollection(w, r)
		case http.MethodPost:
			h.handleAccountCreate(w, r, account)
		default:
			writeErrorResponse(w, http.StatusMethodNotAllowed, "Base.1.15.0.MethodNotAllowed", "Method not allowed")
		}

	case strings.HasPrefix(subPath, "/Accounts/"):
		id := strings.Trim(strings.TrimPrefix(subPath, "/Accounts/"), "/")
		switch r.Method {
		case http.MethodOptions:
			writeAllow(w, http.MethodGet, http.MethodHead, http.MethodPatch, http.MethodDelete)
		case http.MethodGet:
			h.handleAccountGet(w, r, id)
		case http.MethodPatch:
			h.handleAccountPatch(w, r, id, account)
		case http.MethodDelete:
			h.handleAccountDelete(w, r, id, account)
		default:
			writeErrorResponse(w, http.StatusMethodNotAllowed, "Base.1.15.0.MethodNotAllowed", "Method not allowed")
		}

	case subPath == "/Roles" || subPath == "/Roles/":
		if r.Method == http.MethodOptions {
			writeAllow(w, http.MethodGet, http.MethodHead)
			return
		}
		if r.Method != http.MethodGet {
			writeErrorResponse(w, http.StatusMethodNotAllowed, "Base.1.15.0.MethodNotAllowed", "Method not allowed")
			return
		}
		h.handleRolesCollection(w, r)

	case strings.HasPrefix(subPath, "/Roles/"):
		id := strings.Trim(strings.TrimPrefix(subPath, "/Roles/"), "/")
		if r.Method == http.MethodOptions {
			writeAllow(w, http.MethodGet, http.MethodHead)
			return
		}
		if r.Method != http.MethodGet {
			writeErrorResponse(w, http.StatusMethodNotAllowed, "Base.1.15.0.MethodNotAllowed", "Method not allowed")
			return
		}
		h.handleRoleGet(w, r, id)

	default:
		writeErrorResponse(w, http.StatusNotFound, "Base.1.15.0.ResourceMissingAtURI", "Resource not found")
	}
}

func toRedfishAccount(a *models.Account) redfish.ManagerAccount {
	id := strconv.FormatInt(a.ID, 10)
	return redfish.ManagerAccount{
		ODataContext: "/redfish/v1/$metadata#ManagerAccount.ManagerAccount",
		ODataID:      "/redfish/v1/AccountService/Accounts/" + id,
		ODataType:    "#ManagerAccount.v1_10_0.ManagerAccount",
		ID:           id,
		Name:         "User Account",
		UserName:     a.Username,
		RoleID:       string(a.Role),
		Enabled:      a.Enabled,
		Locked:       a.Locked,
	}
}

func accountETag(a *models.Account) string {
	return weakETag(strconv.FormatInt(a.ID, 10), a.Username, string(a.Role), formatTimeForETag(a.UpdatedAt))
}

func (h *Handler) handleAccountsCollection(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.db.GetAccounts(r.Context())
	if err != nil {
		logAndInternalError(w, "GetAccounts", err)
		return
	}
	members := make([]redfish.ODataIDRef, 0, len(accounts))
	for _, a := range accounts {
		members = append(members, redfish.ODataIDRef{ODataID: "/redfish/v1/AccountService/Accounts/" + strconv.FormatInt(a.ID, 10)})
	}
	writeJSONResponseWithETag(w, r, http.StatusOK, redfish.Collection{
		ODataContext: "/redfish/v1/$metadata#ManagerAccountCollection.ManagerAccountCollection",
		ODataID:      "/redfish/v1/AccountService/Accounts",
		ODataType:    "#ManagerAccountCollection.ManagerAccountCollection",
		Name:         "Accounts Collection",
		Members:      members,
		MembersCount: len(members),
	}, weakETag(strconv.Itoa(len(accounts))))
}

type accountCreateRequest struct {
	UserName string `json:"UserName"`
	Password string `json:"Password"`
	RoleID   string `json:"RoleId"`
}

// handleAccountCreate implements account_add (design/041_CDU_Gateway_Identity_Store.md §4.J): only an
// Administrator may create accounts; a duplicate username deliberately
// surfaces as 400 ResourceAlreadyExists, not 409 (design/047_CDU_Gateway_Error_Handling.md §7, §9).
func (h *Handler) handleAccountCreate(w http.ResponseWriter, r *http.Request, account *models.Account) {
	if !requireRole(w, account, "ConfigureUsers") {
		return
	}
	var req accountCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "Base.1.15.0.MalformedJSON", "Malformed request body")
		return
	}
	if req.UserName == "" || req.Password == "" {
		writeErrorResponse(w, http.StatusBadRequest, "Base.1.15.0.PropertyMissing", "UserName and Password are required")
		return
	}
	role := models.Role(req.RoleID)
	switch role {
	case models.RoleAdministrator, models.RoleOperator, models.RoleReadOnly:
	default:
		writeErrorResponse(w, http.StatusBadRequest, "Base.1.15.0.PropertyValueNotInList", "RoleId must be Administrator, Operator, or ReadOnly")
		return
	}

	if existing, err := h.db.GetAccountByUsername(r.Context(), req.UserName); err != nil {
		logAndInternalError(w, "GetAccountByUsername", err)
		return
	} else if existing != nil {
		writeErrorResponse(w, http.StatusBadRequest, "Base.1.15.0.ResourceAlreadyExists", "Username already exists")
		return
	}

	hash, err := authpkg.HashPassword(req.Password)
	if err != nil {
		logAndInternalError(w, "HashPassword", err)
		return
	}
	newAccount := &models.Account{Username: req.UserName, PasswordHash: hash, Role: role, Enabled: true}
	if err := h.db.CreateAccount(r.Context(), newAccount); err != nil {
		logAndInternalError(w, "CreateAccount", err)
		return
	}
	w.Header().Set("Location", "/redfish/v1/AccountService/Accounts/"+strconv.FormatInt(newAccount.ID, 10))
	writeJSONResponse(w, http.StatusCreated, toRedfishAccount(newAccount))
}

func (h *Handler) handleAccountGet(w http.ResponseWriter, r *http.Request, id string) {
	accountID, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		writeErrorResponse(w, http.StatusNotFound, "Base.1.15.0.ResourceMissingAtURI", "Account not found")
		return
	}
	a, err := h.db.GetAccount(r.Context(), accountID)
	if err != nil {
		logAndInternalError(w, "GetAccount", err)
		return
	}
	if a == nil {
		writeErrorResponse(w, http.StatusNotFound, "Base.1.15.0.ResourceMissingAtURI", "Account not found")
		return
	}
	writeJSONResponseWithETag(w, r, http.StatusOK, toRedfishAccount(a), accountETag(a))
}

type accountPatchRequest struct {
	Password *string `json:"Password"`
	RoleID   *string `json:"RoleId"`
	Enabled  *bool   `json:"Enabled"`
	Locked   *bool   `json:"Locked"`
}

// handleAccountPatch enforces design/040_CDU_Gateway_Redfish_API.md §4.I.3: a non-Administrator may PATCH
// only their own account, and may not change Locked/Enabled/RoleId on
// themselves (those require ConfigureUsers).
func (h *Handler) handleAccountPatch(w http.ResponseWriter, r *http.Request, id string, caller *models.Account) {
	accountID, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		writeErrorResponse(w, http.StatusNotFound, "Base.1.15.0.ResourceMissingAtURI", "Account not found")
		return
	}
	target, err := h.db.GetAccount(r.Context(), accountID)
	if err != nil {
		logAndInternalError(w, "GetAccount", err)
		return
	}
	if target == nil {
		writeErrorResponse(w, http.StatusNotFound, "Base.1.15.0.ResourceMissingAtURI", "Account not found")
		return
	}

	isSelf := caller.ID == target.ID
	isAdmin := caller.Role == models.RoleAdministrator
	if !isSelf && !isAdmin {
		writeErrorResponse(w, http.StatusForbidden, "Base.1.15.0.InsufficientPrivilege", "Can only modify your own account")
		return
	}

	if etag := r.Header.Get("If-Match"); etag != "" && etag != accountETag(target) {
		writeErrorResponse(w, http.StatusPreconditionFailed, "Base.1.15.0.PreconditionFailed", "ETag mismatch")
		return
	}

	var req accountPatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "Base.1.15.0.MalformedJSON", "Malformed request body")
		return
	}

	if (req.RoleID != nil || req.Enabled != nil || req.Locked != nil) && !isAdmin {
		writeErrorResponse(w, http.StatusForbidden, "Base.1.15.0.InsufficientPrivilege", "Only an Administrator may change role/enabled/locked")
		return
	}

	if req.Password != nil {
		hash, err := authpkg.HashPassword(*req.Password)
		if err != nil {
			logAndInternalError(w, "HashPassword", err)
			return
		}
		target.PasswordHash = hash
	}
	if req.RoleID != nil {
		target.Role = models.Role(*req.RoleID)
	}
	if req.Enabled != nil {
		target.Enabled = *req.Enabled
	}
	if req.Locked != nil {
		target.Locked = *req.Locked
	}
	target.UpdatedAt = time.Now()

	if err := h.db.UpdateAccount(r.Context(), target); err != nil {
		logAndInternalError(w, "UpdateAccount", err)
		return
	}
	writeJSONResponseWithETag(w, r, http.StatusOK, toRedfishAccount(target), accountETag(target))
}

// handleAccountDelete enforces the admin-undeletable invariant
// (design/031_CDU_Gateway_Data_Model.md §3, design/048_CDU_Gateway_Operational_Scenarios.md §8: "Admin protection").
func (h *Handler) handleAccountDelete(w http.ResponseWriter, r *http.Request, id string, caller *models.Account) {
	if !requireRole(w, caller, "ConfigureUsers") {
		return
	}
	accountID, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		writeErrorResponse(w, http.StatusNotFound, "Base.1.15.0.ResourceMissingAtURI", "Account not found")
		return
	}
	if accountID == models.DefaultAdminID {
		writeErrorResponse(w, http.StatusForbidden, "Base.1.15.0.ActionNotSupported", "The default administrator account cannot be deleted")
		return
	}
	target, err := h.db.GetAccount(r.Context(), accountID)
	if err != nil {
		logAndInternalError(w, "GetAccount", err)
		return
	}
	if target == nil {
		writeErrorResponse(w, http.StatusNotFound, "Base.1.15.0.ResourceMissingAtURI", "Account not found")
		return
	}
	if err := h.db.DeleteAccount(r.Context(), accountID); err != nil {
		logAndInternalError(w, "DeleteAccount", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

var fixedRoles = []redfish.Role{
	{ODataID: "/redfish/v1/AccountService/Roles/Administrator", ODataType: "#Role.v1_3_1.Role", ID: "Administrator", Name: "Administrator Role", IsPredefined: true, AssignedPrivileges: models.RoleAdministrator.Privileges()},
	{ODataID: "/redfish/v1/AccountService/Roles/Operator", ODataType: "#Role.v1_3_1.Role", ID: "Operator", Name: "Operator Role", IsPredefined: true, AssignedPrivileges: models.RoleOperator.Privileges()},
	{ODataID: "/redfish/v1/AccountService/Roles/ReadOnly", ODataType: "#Role.v1_3_1.Role", ID: "ReadOnly", Name: "ReadOnly Role", IsPredefined: true, AssignedPrivileges: models.RoleReadOnly.Privileges()},
}

func (h *Handler) handleRolesCollection(w http.ResponseWriter, r *http.Request) {
	members := make([]redfish.ODataIDRef, 0, len(fixedRoles))
	for _, role := range fixedRoles {
		members = append(members, redfish.ODataIDRef{ODataID: role.ODataID})
	}
	writeJSONResponse(w, http.StatusOK, redfish.Collection{
		ODataContext: "/redfish/v1/$metadata#RoleCollection.RoleCollection",
		ODataID:      "/redfish/v1/AccountService/Roles",
		ODataType:    "#RoleCollection.RoleCollection",
		Name:         "Roles Collection",
		Members:      members,
		MembersCount: len(members),
	})
}

func (h *Handler) handleRoleGet(w http.ResponseWriter, r *http.Request, id string) {
	for _, role := range fixedRoles {
		if role.ID == id {
			role.ODataContext = "/redfish/v1/$metadata#Role.Role"
			writeJSONResponse(w, http.StatusOK, role)
			return
		}
	}
	writeErrorResponse(w, http.StatusNotFound, "Base.1.15.0.ResourceMissingAtURI", fmt.Sprintf("Role %q not found", id))
}
