package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/dexatek/cdu-gateway/internal/netcfg"
	"github.com/dexatek/cdu-gateway/pkg/models"
	"github.com/dexatek/cdu-gateway/pkg/redfish"
)

const managerID = "Kenmec"

// handleManagers routes the single-member Managers collection and every
// sub-resource design/040_CDU_Gateway_Redfish_API.md §4.I names under it: NetworkProtocol,
// EthernetInterfaces/eth0, the Oem SecurityPolicy, TrustedCertificates, the
// HTTPS Certificates collection, and the Reset action.
func (h *Handler) handleManagers(w http.ResponseWriter, r *http.Request, subPath string, account *models.Account) {
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
		writeJSONResponse(w, http.StatusOK, redfish.Collection{
			ODataContext: "/redfish/v1/$metadata#ManagerCollection.ManagerCollection",
			ODataID:      "/redfish/v1/Managers",
			ODataType:    "#ManagerCollection.ManagerCollection",
			Name:         "Managers Collection",
			Members:      []redfish.ODataIDRef{{ODataID: "/redfish/v1/Managers/" + managerID}},
			MembersCount: 1,
		})

	case subPath == "/"+managerID || subPath == "/"+managerID+"/":
		h.handleManagerRoot(w, r)

	case subPath == "/"+managerID+"/NetworkProtocol":
		h.handleNetworkProtocol(w, r)

	case strings.HasPrefix(subPath, "/"+managerID+"/NetworkProtocol/HTTPS/Certificates"):
		h.handleHTTPSCertificates(w, r, strings.TrimPrefix(subPath, "/"+managerID+"/NetworkProtocol/HTTPS/Certificates"), account)

	case strings.HasPrefix(subPath, "/"+managerID+"/EthernetInterfaces"):
		h.handleEthernetInterfaces(w, r, strings.TrimPrefix(subPath, "/"+managerID+"/EthernetInterfaces"), account)

	case subPath == "/"+managerID+"/Oem/SecurityPolicy":
		h.handleSecurityPolicy(w, r, account)

	case strings.HasPrefix(subPath, "/"+managerID+"/Oem/SecurityPolicy/TLS/Server/TrustedCertificates"):
		h.handleTrustedCertificates(w, r, strings.TrimPrefix(subPath, "/"+managerID+"/Oem/SecurityPolicy/TLS/Server/TrustedCertificates"), account)

	case subPath == "/"+managerID+"/Actions/Manager.Reset":
		h.handleManagerReset(w, r, account)

	default:
		writeErrorResponse(w, http.StatusNotFound, "Base.1.15.0.ResourceMissingAtURI", "Resource not found")
	}
}

func (h *Handler) handleManagerRoot(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		writeAllow(w, http.MethodGet, http.MethodHead)
		return
	}
	if r.Method != http.MethodGet {
		writeErrorResponse(w, http.StatusMethodNotAllowed, "Base.1.15.0.MethodNotAllowed", "Method not allowed")
		return
	}
	uuid, err := h.db.GetSystemUUID(r.Context())
	if err != nil {
		logAndInternalError(w, "GetSystemUUID", err)
		return
	}
	writeJSONResponse(w, http.StatusOK, redfish.Manager{
		ODataContext:       "/redfish/v1/$metadata#Manager.Manager",
		ODataID:            "/redfish/v1/Managers/" + managerID,
		ODataType:          "#Manager.v1_17_0.Manager",
		ID:                 managerID,
		Name:               "CDU Gateway Manager",
		ManagerType:        "EnclosureManager",
		FirmwareVersion:    "1.0.0",
		UUID:               uuid,
		EthernetInterfaces: redfish.ODataIDRef{ODataID: "/redfish/v1/Managers/" + managerID + "/EthernetInterfaces"},
		NetworkProtocol:    redfish.ODataIDRef{ODataID: "/redfish/v1/Managers/" + managerID + "/NetworkProtocol"},
		Links:              redfish.ManagerLinks{SecurityPolicy: redfish.ODataIDRef{ODataID: "/redfish/v1/Managers/" + managerID + "/Oem/SecurityPolicy"}},
		Actions: redfish.ManagerActions{
			Reset: redfish.ResetAction{
				Target:          "/redfish/v1/Managers/" + managerID + "/Actions/Manager.Reset",
				AllowableValues: []string{"ForceRestart"},
			},
		},
	})
}

func (h *Handler) handleNetworkProtocol(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		writeAllow(w, http.MethodGet, http.MethodHead)
		return
	}
	if r.Method != http.MethodGet {
		writeErrorResponse(w, http.StatusMethodNotAllowed, "Base.1.15.0.MethodNotAllowed", "Method not allowed")
		return
	}
	writeJSONResponse(w, http.StatusOK, redfish.NetworkProtocol{
		ODataContext: "/redfish/v1/$metadata#NetworkProtocol.NetworkProtocol",
		ODataID:      "/redfish/v1/Managers/" + managerID + "/NetworkProtocol",
		ODataType:    "#NetworkProtocol.v1_9_0.NetworkProtocol",
		ID:           "NetworkProtocol",
		Name:         "Manager Network Protocol",
		HTTP:         redfish.ProtocolPort{ProtocolEnabled: true, Port: 80},
		HTTPS: redfish.ProtocolPortWithCerts{
			ProtocolEnabled: true, Port: 443,
			Certificates: redfish.ODataIDRef{ODataID: "/redfish/v1/Managers/" + managerID + "/NetworkProtocol/HTTPS/Certificates"},
		},
	})
}

func (h *Handler) handleHTTPSCertificates(w http.ResponseWriter, r *http.Request, subPath string, account *models.Account) {
	h.handleCertificateSlot(w, r, subPath, account, models.CertificateServer, "/redfish/v1/Managers/"+managerID+"/NetworkProtocol/HTTPS/Certificates")
}

func (h *Handler) handleTrustedCertificates(w http.ResponseWriter, r *http.Request, subPath string, account *models.Account) {
	h.handleCertificateSlot(w, r, subPath, account, models.CertificateRoot, "/redfish/v1/Managers/"+managerID+"/Oem/SecurityPolicy/TLS/Server/TrustedCertificates")
}

// handleCertificateSlot serves the fixed single-member certificate
// collection backing either the server or root certificate row (J).
func (h *Handler) handleCertificateSlot(w http.ResponseWriter, r *http.Request, subPath string, account *models.Account, kind models.CertificateKind, collectionPath string) {
	switch {
	case subPath == "" || subPath == "/":
		if r.Method != http.MethodGet {
			writeErrorResponse(w, http.StatusMethodNotAllowed, "Base.1.15.0.MethodNotAllowed", "Method not allowed")
			return
		}
		writeJSONResponse(w, http.StatusOK, redfish.Collection{
			ODataContext: "/redfish/v1/$metadata#CertificateCollection.CertificateCollection",
			ODataID:      collectionPath,
			ODataType:    "#CertificateCollection.CertificateCollection",
			Name:         "Certificate Collection",
			Members:      []redfish.ODataIDRef{{ODataID: collectionPath + "/1"}},
			MembersCount: 1,
		})
	case subPath == "/1" || subPath == "/1/":
		if r.Method != http.MethodGet {
			writeErrorResponse(w, http.StatusMethodNotAllowed, "Base.1.15.0.MethodNotAllowed", "Method not allowed")
			return
		}
		cert, err := h.db.GetCertificate(r.Context(), kind)
		if err != nil {
			logAndInternalError(w, "GetCertificate", err)
			return
		}
		if cert == nil {
			writeErrorResponse(w, http.StatusNotFound, "Base.1.15.0.ResourceMissingAtURI", "Certificate not configured")
			return
		}
		writeJSONResponse(w, http.StatusOK, redfish.Certificate{
			ODataContext:      "/redfish/v1/$metadata#Certificate.Certificate",
			ODataID:           collectionPath + "/1",
			ODataType:         "#Certificate.v1_6_0.Certificate",
			ID:                "1",
			Name:              "Certificate",
			CertificateString: cert.CertPEM,
			CertificateType:   "PEM",
		})
	default:
		writeErrorResponse(w, http.StatusNotFound, "Base.1.15.0.ResourceMissingAtURI", "Resource not found")
	}
}

const ethernetInterfaceID = "eth0"

func (h *Handler) handleEthernetInterfaces(w http.ResponseWriter, r *http.Request, subPath string, account *models.Account) {
	base := "/redfish/v1/Managers/" + managerID + "/EthernetInterfaces"
	switch {
	case subPath == "" || subPath == "/":
		if r.Method != http.MethodGet {
			writeErrorResponse(w, http.StatusMethodNotAllowed, "Base.1.15.0.MethodNotAllowed", "Method not allowed")
			return
		}
		writeJSONResponse(w, http.StatusOK, redfish.Collection{
			ODataContext: "/redfish/v1/$metadata#EthernetInterfaceCollection.EthernetInterfaceCollection",
			ODataID:      base,
			ODataType:    "#EthernetInterfaceCollection.EthernetInterfaceCollection",
			Name:         "Ethernet Interface Collection",
			Members:      []redfish.ODataIDRef{{ODataID: base + "/" + ethernetInterfaceID}},
			MembersCount: 1,
		})

	case subPath == "/"+ethernetInterfaceID || subPath == "/"+ethernetInterfaceID+"/":
		switch r.Method {
		case http.MethodGet:
			h.handleEthernetInterfaceGet(w, r, base)
		case http.MethodPatch:
			h.handleEthernetInterfacePatch(w, r, base, account)
		default:
			writeErrorResponse(w, http.StatusMethodNotAllowed, "Base.1.15.0.MethodNotAllowed", "Method not allowed")
		}

	default:
		writeErrorResponse(w, http.StatusNotFound, "Base.1.15.0.ResourceMissingAtURI", "Resource not found")
	}
}

func (h *Handler) handleEthernetInterfaceGet(w http.ResponseWriter, r *http.Request, base string) {
	writeJSONResponse(w, http.StatusOK, redfish.EthernetInterface{
		ODataContext: "/redfish/v1/$metadata#EthernetInterface.EthernetInterface",
		ODataID:      base + "/" + ethernetInterfaceID,
		ODataType:    "#EthernetInterface.v1_9_0.EthernetInterface",
		ID:           ethernetInterfaceID,
		Name:         "Ethernet Interface",
		IPv4Addresses: []redfish.IPv4Address{{
			Address: "192.168.1.100", SubnetMask: "255.255.255.0", Gateway: "192.168.1.1", AddressOrigin: "DHCP",
		}},
	})
}

type ethernetPatchRequest struct {
	IPv4Addresses []redfish.IPv4Address `json:"IPv4Addresses"`
}

// handleEthernetInterfacePatch implements design/048_CDU_Gateway_Operational_Scenarios.md §8 scenario 5: accept and
// echo the new address immediately, then schedule the actual reconfiguration
// on a 3-second detached worker (M) so the response reaches the client
// first.
func (h *Handler) handleEthernetInterfacePatch(w http.ResponseWriter, r *http.Request, base string, account *models.Account) {
	if !requireRole(w, account, "ConfigureManager") {
		return
	}
	var req ethernetPatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "Base.1.15.0.MalformedJSON", "Malformed request body")
		return
	}
	if len(req.IPv4Addresses) == 0 {
		writeErrorResponse(w, http.StatusBadRequest, "Base.1.15.0.PropertyMissing", "IPv4Addresses is required")
		return
	}
	addr := req.IPv4Addresses[0]

	h.life.ScheduleEthernetApply(netcfg.Config{
		Interface:     ethernetInterfaceID,
		Address:       addr.Address,
		SubnetMask:    addr.SubnetMask,
		Gateway:       addr.Gateway,
		AddressOrigin: addr.AddressOrigin,
	})

	writeJSONResponse(w, http.StatusOK, redfish.EthernetInterface{
		ODataContext:  "/redfish/v1/$metadata#EthernetInterface.EthernetInterface",
		ODataID:       base + "/" + ethernetInterfaceID,
		ODataType:     "#EthernetInterface.v1_9_0.EthernetInterface",
		ID:            ethernetInterfaceID,
		Name:          "Ethernet Interface",
		IPv4Addresses: req.IPv4Addresses,
	})
}

func (h *Handler) handleSecurityPolicy(w http.ResponseWriter, r *http.Request, account *models.Account) {
	base := "/redfish/v1/Managers/" + managerID + "/Oem/SecurityPolicy"
	switch r.Method {
	case http.MethodGet:
		policy, err := h.db.GetSecurityPolicy(r.Context())
		if err != nil {
			logAndInternalError(w, "GetSecurityPolicy", err)
			return
		}
		writeJSONResponse(w, http.StatusOK, redfish.SecurityPolicy{
			ODataContext: "/redfish/v1/$metadata#SecurityPolicy.SecurityPolicy",
			ODataID:      base,
			ODataType:    "#SecurityPolicy.v1_0_0.SecurityPolicy",
			ID:           "SecurityPolicy",
			Name:         "TLS Security Policy",
			TLS: redfish.TLSPolicy{Server: redfish.ServerTLSPolicy{
				TrustedCertificates: redfish.ODataIDRef{ODataID: base + "/TLS/Server/TrustedCertificates"},
				VerifyCertificate:   policy.VerifyCertificate,
			}},
		})
	case http.MethodPatch:
		if !requireRole(w, account, "ConfigureManager") {
			return
		}
		var req struct {
			TLS struct {
				Server struct {
					VerifyCertificate *bool `json:"VerifyCertificate"`
				} `json:"Server"`
			} `json:"TLS"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeErrorResponse(w, http.StatusBadRequest, "Base.1.15.0.MalformedJSON", "Malformed request body")
			return
		}
		if req.TLS.Server.VerifyCertificate == nil {
			writeErrorResponse(w, http.StatusBadRequest, "Base.1.15.0.PropertyMissing", "TLS.Server.VerifyCertificate is required")
			return
		}
		if err := h.db.SetSecurityPolicy(r.Context(), &models.SecurityPolicy{VerifyCertificate: *req.TLS.Server.VerifyCertificate}); err != nil {
			logAndInternalError(w, "SetSecurityPolicy", err)
			return
		}
		w.Header().Set("@Redfish.SettingsApplyTime", "OnReset")
		writeJSONResponse(w, http.StatusOK, map[string]bool{"VerifyCertificate": *req.TLS.Server.VerifyCertificate})
	default:
		writeErrorResponse(w, http.StatusMethodNotAllowed, "Base.1.15.0.MethodNotAllowed", "Method not allowed")
	}
}

// handleManagerReset implements Manager.Reset (design/040_CDU_Gateway_Redfish_API.md §4.I): accept only
// ForceRestart, return 200 immediately, and run the actual reset on a
// detached worker after the response is flushed (M).
func (h *Handler) handleManagerReset(w http.ResponseWriter, r *http.Request, account *models.Account) {
	if r.Method != http.MethodPost {
		writeErrorResponse(w, http.StatusMethodNotAllowed, "Base.1.15.0.MethodNotAllowed", "Method not allowed")
		return
	}
	if !requireRole(w, account, "ConfigureComponents") {
		return
	}
	var req struct {
		ResetType string `json:"ResetType"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "Base.1.15.0.MalformedJSON", "Malformed request body")
		return
	}
	if req.ResetType != "ForceRestart" {
		writeErrorResponse(w, http.StatusBadRequest, "Base.1.15.0.PropertyValueNotInList", "ResetType must be ForceRestart")
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]string{"ResetType": "ForceRestart"})
	h.life.ScheduleForceRestart()
}
