package api

import (
	"net/http"

	"github.com/dexatek/cdu-gateway/pkg/redfish"
)

// handleServiceRoot answers GET /redfish/v1/ (design/048_CDU_Gateway_Operational_Scenarios.md §8 scenario 1).
func (h *Handler) handleServiceRoot(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		writeAllow(w, http.MethodGet, http.MethodHead)
		return
	}
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		writeErrorResponse(w, http.StatusMethodNotAllowed, "Base.1.15.0.MethodNotAllowed", "Method not allowed")
		return
	}

	uuid, err := h.db.GetSystemUUID(r.Context())
	if err != nil {
		logAndInternalError(w, "GetSystemUUID", err)
		return
	}

	root := redfish.ServiceRoot{
		ODataContext:       "/redfish/v1/$metadata#ServiceRoot.ServiceRoot",
		ODataID:            "/redfish/v1/",
		ODataType:          "#ServiceRoot.v1_5_0.ServiceRoot",
		ID:                 "RootService",
		Name:               "CDU Gateway Redfish Service",
		RedfishVersion:     "1.20.0",
		UUID:               uuid,
		Managers:           redfish.ODataIDRef{ODataID: "/redfish/v1/Managers"},
		SessionService:     redfish.ODataIDRef{ODataID: "/redfish/v1/SessionService"},
		AccountService:     &redfish.ODataIDRef{ODataID: "/redfish/v1/AccountService"},
		CertificateService: &redfish.ODataIDRef{ODataID: "/redfish/v1/CertificateService"},
		UpdateService:      &redfish.ODataIDRef{ODataID: "/redfish/v1/UpdateService"},
		EventService:       &redfish.ODataIDRef{ODataID: "/redfish/v1/EventService"},
		TaskService:        &redfish.ODataIDRef{ODataID: "/redfish/v1/TaskService"},
		ThermalEquipment:   &redfish.ODataIDRef{ODataID: "/redfish/v1/ThermalEquipment"},
		Registries:         &redfish.ODataIDRef{ODataID: "/redfish/v1/Registries"},
		JsonSchemas:        &redfish.ODataIDRef{ODataID: "/redfish/v1/SchemaStore"},
		Links: redfish.ServiceRootLinks{
			Sessions: redfish.ODataIDRef{ODataID: "/redfish/v1/SessionService/Sessions"},
		},
	}
	writeJSONResponse(w, http.StatusOK, root)
}
