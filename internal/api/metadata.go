package api

import "net/http"

// handleMetadata answers the public $metadata document. Full CSDL
// generation is out of this gateway's scope (design/030_CDU_Gateway_Overview.md §1 Non-goals: "defining
// new Redfish schema"); a minimal document naming the schemas this service
// actually exposes satisfies clients that fetch it only to confirm it
// resolves.
func (h *Handler) handleMetadata(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		writeAllow(w, http.MethodGet, http.MethodHead)
		return
	}
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		writeErrorResponse(w, http.StatusMethodNotAllowed, "Base.1.15.0.MethodNotAllowed", "Method not allowed")
		return
	}
	w.Header().Set("Content-Type", "application/xml")
	w.Header().Set("OData-Version", "4.0")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?>
<edmx:Edmx Version="4.0" xmlns:edmx="http://docs.oasis-open.org/odata/ns/edmx">
  <edmx:Reference Uri="/redfish/v1/SchemaStore/ServiceRoot_v1.xml">
    <edmx:Include Namespace="ServiceRoot"/>
  </edmx:Reference>
  <edmx:DataServices/>
</edmx:Edmx>`))
}

// handleRegistries answers the Registries collection/member endpoints with
// an empty, well-formed collection: this gateway uses the DMTF Base
// registry by reference only (design/040_CDU_Gateway_Redfish_API.md §4.I.5), it does not ship custom
// message registries.
func (h *Handler) handleRegistries(w http.ResponseWriter, r *http.Request, subPath string) {
	if r.Method == http.MethodOptions {
		writeAllow(w, http.MethodGet, http.MethodHead)
		return
	}
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		writeErrorResponse(w, http.StatusMethodNotAllowed, "Base.1.15.0.MethodNotAllowed", "Method not allowed")
		return
	}
	if subPath == "" || subPath == "/" {
		writeJSONResponse(w, http.StatusOK, map[string]interface{}{
			"@odata.id":            "/redfish/v1/Registries",
			"@odata.type":          "#MessageRegistryFileCollection.MessageRegistryFileCollection",
			"Name":                 "Registry File Collection",
			"Members":              []map[string]string{},
			"Members@odata.count":  0,
		})
		return
	}
	writeErrorResponse(w, http.StatusNotFound, "Base.1.15.0.ResourceMissingAtURI", "Registry file not found")
}

// handleSchemaStore mirrors handleRegistries for /redfish/v1/SchemaStore.
func (h *Handler) handleSchemaStore(w http.ResponseWriter, r *http.Request, subPath string) {
	if r.Method == http.MethodOptions {
		writeAllow(w, http.MethodGet, http.MethodHead)
		return
	}
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		writeErrorResponse(w, http.StatusMethodNotAllowed, "Base.1.15.0.MethodNotAllowed", "Method not allowed")
		return
	}
	if subPath == "" || subPath == "/" {
		writeJSONResponse(w, http.StatusOK, map[string]interface{}{
			"@odata.id":           "/redfish/v1/SchemaStore",
			"@odata.type":         "#JsonSchemaFileCollection.JsonSchemaFileCollection",
			"Name":                "JSON Schema File Collection",
			"Members":             []map[string]string{},
			"Members@odata.count": 0,
		})
		return
	}
	writeErrorResponse(w, http.StatusNotFound, "Base.1.15.0.ResourceMissingAtURI", "Schema file not found")
}
