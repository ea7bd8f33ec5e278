// Package redfish holds the wire-format JSON types the API layer serializes:
// the DMTF Redfish 1.20.0 envelope shapes this gateway exposes, plus the
// Kenmec OEM extensions design/040_CDU_Gateway_Redfish_API.md §4.I names (IOBoards, ControlLogics,
// sensor-config Read/Write).
package redfish

// ODataIDRef is a reference to another resource.
type ODataIDRef struct {
	ODataID string `json:"@odata.id"`
}

// ServiceRoot is the Redfish root resource (design/048_CDU_Gateway_Operational_Scenarios.md §8 scenario 1).
type ServiceRoot struct {
	ODataContext     string           `json:"@odata.context"`
	ODataID          string           `json:"@odata.id"`
	ODataType        string           `json:"@odata.type"`
	ID               string           `json:"Id"`
	Name             string           `json:"Name"`
	RedfishVersion   string           `json:"RedfishVersion"`
	UUID             string           `json:"UUID"`
	Managers         ODataIDRef       `json:"Managers"`
	SessionService    ODataIDRef      `json:"SessionService"`
	AccountService    *ODataIDRef     `json:"AccountService,omitempty"`
	CertificateService *ODataIDRef    `json:"CertificateService,omitempty"`
	UpdateService     *ODataIDRef     `json:"UpdateService,omitempty"`
	EventService      *ODataIDRef     `json:"EventService,omitempty"`
	TaskService       *ODataIDRef     `json:"TaskService,omitempty"`
	ThermalEquipment  *ODataIDRef     `json:"ThermalEquipment,omitempty"`
	Registries        *ODataIDRef     `json:"Registries,omitempty"`
	JsonSchemas       *ODataIDRef     `json:"JsonSchemas,omitempty"`
	Links             ServiceRootLinks `json:"Links"`
}

// ServiceRootLinks carries the ServiceRoot's Links sub-object.
type ServiceRootLinks struct {
	Sessions ODataIDRef `json:"Sessions"`
}

// Collection is a generic Redfish collection envelope.
type Collection struct {
	ODataContext string       `json:"@odata.context"`
	ODataID      string       `json:"@odata.id"`
	ODataType    string       `json:"@odata.type"`
	Name         string       `json:"Name"`
	Members      []ODataIDRef `json:"Members"`
	MembersCount int          `json:"Members@odata.count"`
}

// Session is one SessionService/Sessions member.
type Session struct {
	ODataContext string `json:"@odata.context"`
	ODataID      string `json:"@odata.id"`
	ODataType    string `json:"@odata.type"`
	ID           string `json:"Id"`
	Name         string `json:"Name"`
	UserName     string `json:"UserName"`
}

// SessionService is the SessionService root resource.
type SessionService struct {
	ODataContext   string     `json:"@odata.context"`
	ODataID        string     `json:"@odata.id"`
	ODataType      string     `json:"@odata.type"`
	ID             string     `json:"Id"`
	Name           string     `json:"Name"`
	Description    string     `json:"Description"`
	ServiceEnabled bool       `json:"ServiceEnabled"`
	SessionTimeout int        `json:"SessionTimeout"`
	Sessions       ODataIDRef `json:"Sessions"`
}

// AccountService is the AccountService root resource.
type AccountService struct {
	ODataContext   string     `json:"@odata.context"`
	ODataID        string     `json:"@odata.id"`
	ODataType      string     `json:"@odata.type"`
	ID             string     `json:"Id"`
	Name           string     `json:"Name"`
	ServiceEnabled bool       `json:"ServiceEnabled"`
	Accounts       ODataIDRef `json:"Accounts"`
	Roles          ODataIDRef `json:"Roles"`
}

// ManagerAccount is one AccountService/Accounts member.
type ManagerAccount struct {
	ODataContext string `json:"@odata.context"`
	ODataID      string `json:"@odata.id"`
	ODataType    string `json:"@odata.type"`
	ID           string `json:"Id"`
	Name         string `json:"Name"`
	UserName     string `json:"UserName"`
	RoleID       string `json:"RoleId"`
	Enabled      bool   `json:"Enabled"`
	Locked       bool   `json:"Locked"`
}

// Role is a Redfish Role resource.
type Role struct {
	ODataContext       string   `json:"@odata.context"`
	ODataID            string   `json:"@odata.id"`
	ODataType          string   `json:"@odata.type"`
	ID                 string   `json:"Id"`
	Name               string   `json:"Name"`
	IsPredefined       bool     `json:"IsPredefined"`
	AssignedPrivileges []string `json:"AssignedPrivileges"`
}

// ErrorResponse / ErrorDetail are retained for callers that want a typed
// error envelope instead of the inline map the handlers write directly.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// CertificateService is the CertificateService root resource.
type CertificateService struct {
	ODataContext string     `json:"@odata.context"`
	ODataID      string     `json:"@odata.id"`
	ODataType    string     `json:"@odata.type"`
	ID           string     `json:"Id"`
	Name         string     `json:"Name"`
	Actions      CertificateServiceActions `json:"Actions"`
}

type CertificateServiceActions struct {
	GenerateCSR      ActionTarget `json:"#CertificateService.GenerateCSRCertificate"`
	ReplaceCertificate ActionTarget `json:"#CertificateService.ReplaceCertificate"`
}

type ActionTarget struct {
	Target string `json:"target"`
}

// Certificate is a CertificateCollection member (server or root cert).
type Certificate struct {
	ODataContext      string `json:"@odata.context"`
	ODataID           string `json:"@odata.id"`
	ODataType         string `json:"@odata.type"`
	ID                string `json:"Id"`
	Name              string `json:"Name"`
	CertificateString string `json:"CertificateString"`
	CertificateType   string `json:"CertificateType"`
}

// Manager is the single Manager resource this gateway exposes for itself.
type Manager struct {
	ODataContext    string       `json:"@odata.context"`
	ODataID         string       `json:"@odata.id"`
	ODataType       string       `json:"@odata.type"`
	ID              string       `json:"Id"`
	Name            string       `json:"Name"`
	ManagerType     string       `json:"ManagerType"`
	FirmwareVersion string       `json:"FirmwareVersion"`
	UUID            string       `json:"UUID"`
	EthernetInterfaces ODataIDRef `json:"EthernetInterfaces"`
	NetworkProtocol    ODataIDRef `json:"NetworkProtocol"`
	Links           ManagerLinks `json:"Links"`
	Actions         ManagerActions `json:"Actions"`
}

type ManagerLinks struct {
	SecurityPolicy ODataIDRef `json:"Oem.SecurityPolicy,omitempty"`
}

type ManagerActions struct {
	Reset ResetAction `json:"#Manager.Reset"`
}

type ResetAction struct {
	Target                string   `json:"target"`
	AllowableValues       []string `json:"ResetType@Redfish.AllowableValues"`
}

// NetworkProtocol is Managers/{id}/NetworkProtocol.
type NetworkProtocol struct {
	ODataContext string     `json:"@odata.context"`
	ODataID      string     `json:"@odata.id"`
	ODataType    string     `json:"@odata.type"`
	ID           string     `json:"Id"`
	Name         string     `json:"Name"`
	HTTP         ProtocolPort `json:"HTTP"`
	HTTPS        ProtocolPortWithCerts `json:"HTTPS"`
}

type ProtocolPort struct {
	ProtocolEnabled bool `json:"ProtocolEnabled"`
	Port            int  `json:"Port"`
}

type ProtocolPortWithCerts struct {
	ProtocolEnabled bool       `json:"ProtocolEnabled"`
	Port            int        `json:"Port"`
	Certificates    ODataIDRef `json:"Certificates"`
}

// EthernetInterface is Managers/{id}/EthernetInterfaces/{id}.
type EthernetInterface struct {
	ODataContext   string          `json:"@odata.context"`
	ODataID        string          `json:"@odata.id"`
	ODataType      string          `json:"@odata.type"`
	ID             string          `json:"Id"`
	Name           string          `json:"Name"`
	IPv4Addresses  []IPv4Address   `json:"IPv4Addresses"`
}

type IPv4Address struct {
	Address      string `json:"Address"`
	SubnetMask   string `json:"SubnetMask"`
	Gateway      string `json:"Gateway"`
	AddressOrigin string `json:"AddressOrigin"`
}

// SecurityPolicy is Managers/{id}/Oem/SecurityPolicy.
type SecurityPolicy struct {
	ODataContext      string `json:"@odata.context"`
	ODataID           string `json:"@odata.id"`
	ODataType         string `json:"@odata.type"`
	ID                string `json:"Id"`
	Name              string `json:"Name"`
	TLS               TLSPolicy `json:"TLS"`
}

type TLSPolicy struct {
	Server ServerTLSPolicy `json:"Server"`
}

type ServerTLSPolicy struct {
	TrustedCertificates ODataIDRef `json:"TrustedCertificates"`
	VerifyCertificate   bool       `json:"VerifyCertificate"`
}

// UpdateService is the UpdateService root resource.
type UpdateService struct {
	ODataContext   string `json:"@odata.context"`
	ODataID        string `json:"@odata.id"`
	ODataType      string `json:"@odata.type"`
	ID             string `json:"Id"`
	Name           string `json:"Name"`
	ServiceEnabled bool   `json:"ServiceEnabled"`
	MultipartHTTPPushURI string `json:"MultipartHttpPushUri"`
}

// ThermalEquipment is the ThermalEquipment root resource.
type ThermalEquipment struct {
	ODataContext string     `json:"@odata.context"`
	ODataID      string     `json:"@odata.id"`
	ODataType    string     `json:"@odata.type"`
	ID           string     `json:"Id"`
	Name         string     `json:"Name"`
	CDUs         ODataIDRef `json:"CDUs"`
}

// CDU is a ThermalEquipment/CDUs/{id} member.
type CDU struct {
	ODataContext string   `json:"@odata.context"`
	ODataID      string   `json:"@odata.id"`
	ODataType    string   `json:"@odata.type"`
	ID           string   `json:"Id"`
	Name         string   `json:"Name"`
	Status       Status   `json:"Status"`
	Oem          CDUOem   `json:"Oem"`
}

type Status struct {
	State  string `json:"State"`
	Health string `json:"Health"`
}

type CDUOem struct {
	Kenmec KenmecCDU `json:"Kenmec"`
}

type KenmecCDU struct {
	ODataType     string     `json:"@odata.type"`
	IOBoards      ODataIDRef `json:"IOBoards"`
	ControlLogics ODataIDRef `json:"ControlLogics"`
	Config        ActionableConfig `json:"Config"`
}

type ActionableConfig struct {
	ReadTarget  string `json:"#Config.Read"`
	WriteTarget string `json:"#Config.Write"`
}

// IOBoard is a CDU/Oem/Kenmec/IOBoards/{port} member.
type IOBoard struct {
	ODataContext string         `json:"@odata.context"`
	ODataID      string         `json:"@odata.id"`
	ODataType    string         `json:"@odata.type"`
	ID           string         `json:"Id"`
	Name         string         `json:"Name"`
	BoardKind    string         `json:"BoardKind"`
	Actions      IOBoardActions `json:"Actions"`
}

type IOBoardActions struct {
	Read  ActionTarget `json:"#KenmecIOBoard.Read"`
	Write ActionTarget `json:"#KenmecIOBoard.Write"`
}

// ControlLogic is a CDU/Oem/Kenmec/ControlLogics/{index} member.
type ControlLogic struct {
	ODataContext string              `json:"@odata.context"`
	ODataID      string              `json:"@odata.id"`
	ODataType    string              `json:"@odata.type"`
	ID           string              `json:"Id"`
	Name         string              `json:"Name"`
	Actions      ControlLogicActions `json:"Actions"`
}

type ControlLogicActions struct {
	Read  ActionTarget `json:"#ControlLogic.Read"`
	Write ActionTarget `json:"#ControlLogic.Write"`
}
