package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHandleRedfishServiceRootIsPublic(t *testing.T) {
	h, _, _ := newTestHandler(t)
	router := NewRouter(h)
	req := httptest.NewRequest(http.MethodGet, "/redfish/v1", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body=%s", rec.Code, rec.Body.String())
	}
}

func TestHandleRedfishRejectsUnauthenticatedProtectedResource(t *testing.T) {
	h, _, _ := newTestHandler(t)
	router := NewRouter(h)
	req := httptest.NewRequest(http.MethodGet, "/redfish/v1/AccountService", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestHandleRedfishRejectsUnsupportedODataVersion(t *testing.T) {
	h, _, _ := newTestHandler(t)
	router := NewRouter(h)
	req := httptest.NewRequest(http.MethodGet, "/redfish/v1", nil)
	req.Header.Set("OData-Version", "3.0")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestHandleRedfishUnknownPathNotFound(t *testing.T) {
	h, _, _ := newTestHandler(t)
	router := NewRouter(h)
	req := httptest.NewRequest(http.MethodGet, "/redfish/v1/NoSuchResource", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestHandleRedfishStubServicesAnswerGet(t *testing.T) {
	h, _, _ := newTestHandler(t)
	router := NewRouter(h)

	for _, path := range []string{"/redfish/v1/EventService", "/redfish/v1/TaskService"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.SetBasicAuth("admin", "admin123")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("%s: status = %d, want 200; body=%s", path, rec.Code, rec.Body.String())
		}
	}
}
