package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dexatek/cdu-gateway/pkg/models"
)

func TestHandleAccountCreateRequiresConfigureUsers(t *testing.T) {
	h, _, _ := newTestHandler(t)
	body := bytes.NewBufferString(`{"UserName":"newop","Password":"secret123","RoleId":"Operator"}`)
	req := httptest.NewRequest(http.MethodPost, "/redfish/v1/AccountService/Accounts", body)
	rec := httptest.NewRecorder()

	h.handleAccountService(rec, req, "/Accounts", readOnlyAccount())

	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
}

func TestHandleAccountCreateSucceeds(t *testing.T) {
	h, _, _ := newTestHandler(t)
	body := bytes.NewBufferString(`{"UserName":"newop","Password":"secret123","RoleId":"Operator"}`)
	req := httptest.NewRequest(http.MethodPost, "/redfish/v1/AccountService/Accounts", body)
	rec := httptest.NewRecorder()

	h.handleAccountService(rec, req, "/Accounts", adminAccount())

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201; body=%s", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("Location") == "" {
		t.Error("Location header is empty")
	}
}

func TestHandleAccountCreateRejectsDuplicateUsername(t *testing.T) {
	h, _, _ := newTestHandler(t)
	body := bytes.NewBufferString(fmt.Sprintf(`{"UserName":%q,"Password":"secret123","RoleId":"Operator"}`, models.DefaultAdminUsername))
	req := httptest.NewRequest(http.MethodPost, "/redfish/v1/AccountService/Accounts", body)
	rec := httptest.NewRecorder()

	h.handleAccountService(rec, req, "/Accounts", adminAccount())

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400 (ResourceAlreadyExists as 400, not 409)", rec.Code)
	}
}

func TestHandleAccountCreateRejectsUnknownRole(t *testing.T) {
	h, _, _ := newTestHandler(t)
	body := bytes.NewBufferString(`{"UserName":"newop","Password":"secret123","RoleId":"SuperUser"}`)
	req := httptest.NewRequest(http.MethodPost, "/redfish/v1/AccountService/Accounts", body)
	rec := httptest.NewRecorder()

	h.handleAccountService(rec, req, "/Accounts", adminAccount())

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestHandleAccountDeleteProtectsDefaultAdmin(t *testing.T) {
	h, _, _ := newTestHandler(t)
	req := httptest.NewRequest(http.MethodDelete, fmt.Sprintf("/redfish/v1/AccountService/Accounts/%d", models.DefaultAdminID), nil)
	rec := httptest.NewRecorder()

	h.handleAccountService(rec, req, fmt.Sprintf("/Accounts/%d", models.DefaultAdminID), adminAccount())

	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
}

func TestHandleAccountPatchSelfServiceAllowsOwnPasswordChange(t *testing.T) {
	h, _, _ := newTestHandler(t)
	body := bytes.NewBufferString(`{"Password":"newpassword123"}`)
	req := httptest.NewRequest(http.MethodPatch, fmt.Sprintf("/redfish/v1/AccountService/Accounts/%d", models.DefaultAdminID), body)
	rec := httptest.NewRecorder()

	h.handleAccountService(rec, req, fmt.Sprintf("/Accounts/%d", models.DefaultAdminID), adminAccount())

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body=%s", rec.Code, rec.Body.String())
	}
}

func TestHandleAccountPatchForbidsSelfServiceRoleChange(t *testing.T) {
	h, _, _ := newTestHandler(t)
	// Create a second account and let it try to PATCH its own RoleId.
	createBody := bytes.NewBufferString(`{"UserName":"selfserve","Password":"secret123","RoleId":"Operator"}`)
	createReq := httptest.NewRequest(http.MethodPost, "/redfish/v1/AccountService/Accounts", createBody)
	createRec := httptest.NewRecorder()
	h.handleAccountService(createRec, createReq, "/Accounts", adminAccount())
	if createRec.Code != http.StatusCreated {
		t.Fatalf("setup: create account status = %d, body=%s", createRec.Code, createRec.Body.String())
	}
	var created struct {
		ID string `json:"Id"`
	}
	if err := json.Unmarshal(createRec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode created account: %v", err)
	}

	self := &models.Account{ID: mustParseID(t, created.ID), Username: "selfserve", Role: models.RoleOperator, Enabled: true}
	patchBody := bytes.NewBufferString(`{"RoleId":"Administrator"}`)
	patchReq := httptest.NewRequest(http.MethodPatch, "/redfish/v1/AccountService/Accounts/"+created.ID, patchBody)
	patchRec := httptest.NewRecorder()
	h.handleAccountService(patchRec, patchReq, "/Accounts/"+created.ID, self)

	if patchRec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403; body=%s", patchRec.Code, patchRec.Body.String())
	}
}

func TestHandleAccountPatchForbidsModifyingAnotherAccount(t *testing.T) {
	h, _, _ := newTestHandler(t)
	body := bytes.NewBufferString(`{"Password":"secret123"}`)
	req := httptest.NewRequest(http.MethodPatch, "/redfish/v1/AccountService/Accounts/2", body)
	rec := httptest.NewRecorder()

	h.handleAccountService(rec, req, "/Accounts/2", readOnlyAccount())

	if rec.Code != http.StatusNotFound && rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 404 (unknown account) or 403", rec.Code)
	}
}

func TestHandleRolesCollectionAndMember(t *testing.T) {
	h, _, _ := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/redfish/v1/AccountService/Roles", nil)
	rec := httptest.NewRecorder()
	h.handleAccountService(rec, req, "/Roles", adminAccount())
	if rec.Code != http.StatusOK {
		t.Fatalf("collection status = %d, want 200", rec.Code)
	}

	req2 := httptest.NewRequest(http.MethodGet, "/redfish/v1/AccountService/Roles/Operator", nil)
	rec2 := httptest.NewRecorder()
	h.handleAccountService(rec2, req2, "/Roles/Operator", adminAccount())
	if rec2.Code != http.StatusOK {
		t.Fatalf("member status = %d, want 200; body=%s", rec2.Code, rec2.Body.String())
	}

	req3 := httptest.NewRequest(http.MethodGet, "/redfish/v1/AccountService/Roles/Bogus", nil)
	rec3 := httptest.NewRecorder()
	h.handleAccountService(rec3, req3, "/Roles/Bogus", adminAccount())
	if rec3.Code != http.StatusNotFound {
		t.Fatalf("unknown role status = %d, want 404", rec3.Code)
	}
}

func mustParseID(t *testing.T, s string) int64 {
	t.Helper()
	var id int64
	if _, err := fmt.Sscanf(s, "%d", &id); err != nil {
		t.Fatalf("parse id %q: %v", s, err)
	}
	return id
}
