package api

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/json"
	"encoding/pem"
	"net/http"
	"strings"

	"github.com/dexatek/cdu-gateway/pkg/models"
	"github.com/dexatek/cdu-gateway/pkg/redfish"
)

// handleCertificateService routes CertificateService and its two fixed
// certificate slots (server, root), plus the GenerateCSR/ReplaceCertificate
// actions design/040_CDU_Gateway_Redfish_API.md §4.I names.
func (h *Handler) handleCertificateService(w http.ResponseWriter, r *http.Request, subPath string, account *models.Account) {
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
		writeJSONResponse(w, http.StatusOK, redfish.CertificateService{
			ODataContext: "/redfish/v1/$metadata#CertificateService.CertificateService",
			ODataID:      "/redfish/v1/CertificateService",
			ODataType:    "#CertificateService.v1_2_0.CertificateService",
			ID:           "CertificateService",
			Name:         "Certificate Service",
			Actions: redfish.CertificateServiceActions{
				GenerateCSR:        redfish.ActionTarget{Target: "/redfish/v1/CertificateService/Actions/CertificateService.GenerateCSRCertificate"},
				ReplaceCertificate: redfish.ActionTarget{Target: "/redfish/v1/CertificateService/Actions/CertificateService.ReplaceCertificate"},
			},
		})

	case subPath == "/Actions/CertificateService.GenerateCSRCertificate":
		if r.Method != http.MethodPost {
			writeErrorResponse(w, http.StatusMethodNotAllowed, "Base.1.15.0.MethodNotAllowed", "Method not allowed")
			return
		}
		h.handleGenerateCSR(w, r, account)

	case subPath == "/Actions/CertificateService.ReplaceCertificate":
		if r.Method != http.MethodPost {
			writeErrorResponse(w, http.StatusMethodNotAllowed, "Base.1.15.0.MethodNotAllowed", "Method not allowed")
			return
		}
		h.handleReplaceCertificate(w, r, account)

	default:
		writeErrorResponse(w, http.StatusNotFound, "Base.1.15.0.ResourceMissingAtURI", "Resource not found")
	}
}

type generateCSRRequest struct {
	CommonName        string   `json:"CommonName"`
	City               string   `json:"City"`
	State              string   `json:"State"`
	Country            string   `json:"Country"`
	Organization       string   `json:"Organization"`
	OrganizationalUnit string   `json:"OrganizationalUnit"`
	AlternativeNames   []string `json:"AlternativeNames"`
	KeyPairAlgorithm   string   `json:"KeyPairAlgorithm"`
	KeyBitLength       int      `json:"KeyBitLength"`
	CertificateCollection struct {
		ODataID string `json:"@odata.id"`
	} `json:"CertificateCollection"`
}

// handleGenerateCSR builds a CSR and persists the freshly generated private
// key into the server-certificate row unconditionally — design/049_CDU_Gateway_Design_Notes.md §9 flags
// this as a deliberate open question to preserve, not "fix": the key is
// stored even if the caller never returns a signed certificate.
func (h *Handler) handleGenerateCSR(w http.ResponseWriter, r *http.Request, account *models.Account) {
	if !requireRole(w, account, "ConfigureComponents") {
		return
	}
	var req generateCSRRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "Base.1.15.0.MalformedJSON", "Malformed request body")
		return
	}
	if req.CommonName == "" {
		writeErrorResponse(w, http.StatusBadRequest, "Base.1.15.0.PropertyMissing", "CommonName is required")
		return
	}

	subject := pkix.Name{
		CommonName:         req.CommonName,
		Country:            nonEmpty(req.Country),
		Province:           nonEmpty(req.State),
		Locality:           nonEmpty(req.City),
		Organization:       nonEmpty(req.Organization),
		OrganizationalUnit: nonEmpty(req.OrganizationalUnit),
	}
	template := x509.CertificateRequest{Subject: subject, DNSNames: req.AlternativeNames}

	var (
		keyPEM []byte
		csrDER []byte
		err    error
	)
	switch strings.ToUpper(req.KeyPairAlgorithm) {
	case "", "RSA":
		bits := req.KeyBitLength
		if bits == 0 {
			bits = 2048
		}
		key, genErr := rsa.GenerateKey(rand.Reader, bits)
		if genErr != nil {
			logAndInternalError(w, "rsa.GenerateKey", genErr)
			return
		}
		csrDER, err = x509.CreateCertificateRequest(rand.Reader, &template, key)
		keyPEM = pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})
	case "ECDSA":
		key, genErr := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
		if genErr != nil {
			logAndInternalError(w, "ecdsa.GenerateKey", genErr)
			return
		}
		csrDER, err = x509.CreateCertificateRequest(rand.Reader, &template, key)
		der, marshalErr := x509.MarshalECPrivateKey(key)
		if marshalErr != nil {
			logAndInternalError(w, "x509.MarshalECPrivateKey", marshalErr)
			return
		}
		keyPEM = pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: der})
	default:
		writeErrorResponse(w, http.StatusBadRequest, "Base.1.15.0.PropertyValueNotInList", "KeyPairAlgorithm must be RSA or ECDSA")
		return
	}
	if err != nil {
		logAndInternalError(w, "x509.CreateCertificateRequest", err)
		return
	}
	csrPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE REQUEST", Bytes: csrDER})

	existing, err := h.db.GetCertificate(r.Context(), models.CertificateServer)
	if err != nil {
		logAndInternalError(w, "GetCertificate", err)
		return
	}
	certPEM := ""
	if existing != nil {
		certPEM = existing.CertPEM
	}
	if err := h.db.UpsertCertificate(r.Context(), &models.Certificate{Kind: models.CertificateServer, CertPEM: certPEM, KeyPEM: string(keyPEM)}); err != nil {
		logAndInternalError(w, "UpsertCertificate", err)
		return
	}

	writeJSONResponse(w, http.StatusOK, map[string]string{
		"CSRString": strings.ReplaceAll(string(csrPEM), "\n", `\n`),
	})
}

func nonEmpty(s string) []string {
	if s == "" {
		return nil
	}
	return []string{s}
}

type replaceCertificateRequest struct {
	CertificateString string `json:"CertificateString"`
	CertificateType    string `json:"CertificateType"`
	CertificateURI     struct {
		ODataID string `json:"@odata.id"`
	} `json:"CertificateUri"`
}

// handleReplaceCertificate implements design/040_CDU_Gateway_Redfish_API.md §4.I's Certificate.
// ReplaceCertificate: the target URI selects which of the two certificate
// rows (server HTTPS cert, or trusted root) the new PEM lands in. Applying
// the change requires a Manager.Reset (@Redfish.SettingsApplyTime: OnReset).
func (h *Handler) handleReplaceCertificate(w http.ResponseWriter, r *http.Request, account *models.Account) {
	if !requireRole(w, account, "ConfigureComponents") {
		return
	}
	var req replaceCertificateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "Base.1.15.0.MalformedJSON", "Malformed request body")
		return
	}
	if req.CertificateString == "" || req.CertificateURI.ODataID == "" {
		writeErrorResponse(w, http.StatusBadRequest, "Base.1.15.0.PropertyMissing", "CertificateString and CertificateUri are required")
		return
	}

	var kind models.CertificateKind
	switch req.CertificateURI.ODataID {
	case "/redfish/v1/Managers/Kenmec/NetworkProtocol/HTTPS/Certificates/1":
		kind = models.CertificateServer
	case "/redfish/v1/Managers/Kenmec/Oem/SecurityPolicy/TLS/Server/TrustedCertificates/1":
		kind = models.CertificateRoot
	default:
		writeErrorResponse(w, http.StatusBadRequest, "Base.1.15.0.PropertyValueNotInList", "Unrecognized CertificateUri")
		return
	}

	existing, err := h.db.GetCertificate(r.Context(), kind)
	if err != nil {
		logAndInternalError(w, "GetCertificate", err)
		return
	}
	keyPEM := ""
	if existing != nil {
		keyPEM = existing.KeyPEM
	}
	if err := h.db.UpsertCertificate(r.Context(), &models.Certificate{Kind: kind, CertPEM: req.CertificateString, KeyPEM: keyPEM}); err != nil {
		logAndInternalError(w, "UpsertCertificate", err)
		return
	}

	w.Header().Set("@Redfish.SettingsApplyTime", "OnReset")
	writeJSONResponse(w, http.StatusOK, redfish.Certificate{
		ODataContext:      "/redfish/v1/$metadata#Certificate.Certificate",
		ODataID:           req.CertificateURI.ODataID,
		ODataType:         "#Certificate.v1_6_0.Certificate",
		ID:                "1",
		Name:              "Certificate",
		CertificateString: req.CertificateString,
		CertificateType:   req.CertificateType,
	})
}
