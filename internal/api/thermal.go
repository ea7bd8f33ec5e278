package api

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/dexatek/cdu-gateway/internal/boards"
	"github.com/dexatek/cdu-gateway/internal/regmap"
	"github.com/dexatek/cdu-gateway/internal/sensorconfig"
	"github.com/dexatek/cdu-gateway/pkg/models"
	"github.com/dexatek/cdu-gateway/pkg/redfish"
)

const cduID = "1"

// handleThermalEquipment routes ThermalEquipment, its single CDU member, and
// everything design/040_CDU_Gateway_Redfish_API.md §4.K names under CDU/Oem/Kenmec: IOBoards, ControlLogics,
// and the Config.Read/Write action.
func (h *Handler) handleThermalEquipment(w http.ResponseWriter, r *http.Request, subPath string, account *models.Account) {
	switch {
	case subPath == "" || subPath == "/":
		if r.Method != http.MethodGet {
			writeErrorResponse(w, http.StatusMethodNotAllowed, "Base.1.15.0.MethodNotAllowed", "Method not allowed")
			return
		}
		writeJSONResponse(w, http.StatusOK, redfish.ThermalEquipment{
			ODataContext: "/redfish/v1/$metadata#ThermalEquipment.ThermalEquipment",
			ODataID:      "/redfish/v1/ThermalEquipment",
			ODataType:    "#ThermalEquipment.v1_2_0.ThermalEquipment",
			ID:           "ThermalEquipment",
			Name:         "Thermal Equipment",
			CDUs:         redfish.ODataIDRef{ODataID: "/redfish/v1/ThermalEquipment/CDUs"},
		})

	case subPath == "/CDUs" || subPath == "/CDUs/":
		if r.Method != http.MethodGet {
			writeErrorResponse(w, http.StatusMethodNotAllowed, "Base.1.15.0.MethodNotAllowed", "Method not allowed")
			return
		}
		writeJSONResponse(w, http.StatusOK, redfish.Collection{
			ODataContext: "/redfish/v1/$metadata#CoolingUnitCollection.CoolingUnitCollection",
			ODataID:      "/redfish/v1/ThermalEquipment/CDUs",
			ODataType:    "#CoolingUnitCollection.CoolingUnitCollection",
			Name:         "Coolant Distribution Unit Collection",
			Members:      []redfish.ODataIDRef{{ODataID: "/redfish/v1/ThermalEquipment/CDUs/" + cduID}},
			MembersCount: 1,
		})

	case subPath == "/CDUs/"+cduID || subPath == "/CDUs/"+cduID+"/":
		if r.Method != http.MethodGet {
			writeErrorResponse(w, http.StatusMethodNotAllowed, "Base.1.15.0.MethodNotAllowed", "Method not allowed")
			return
		}
		h.handleCDUGet(w, r)

	case strings.HasPrefix(subPath, "/CDUs/"+cduID+"/Oem/Kenmec/IOBoards"):
		h.handleIOBoards(w, r, strings.TrimPrefix(subPath, "/CDUs/"+cduID+"/Oem/Kenmec/IOBoards"), account)

	case strings.HasPrefix(subPath, "/CDUs/"+cduID+"/Oem/Kenmec/ControlLogics"):
		h.handleControlLogics(w, r, strings.TrimPrefix(subPath, "/CDUs/"+cduID+"/Oem/Kenmec/ControlLogics"), account)

	case subPath == "/CDUs/"+cduID+"/Oem/Kenmec/Actions/Oem/Config.Read":
		h.handleConfigRead(w, r)

	case subPath == "/CDUs/"+cduID+"/Oem/Kenmec/Actions/Oem/Config.Write":
		h.handleConfigWrite(w, r, account)

	default:
		writeErrorResponse(w, http.StatusNotFound, "Base.1.15.0.ResourceMissingAtURI", "Resource not found")
	}
}

func (h *Handler) handleCDUGet(w http.ResponseWriter, r *http.Request) {
	base := "/redfish/v1/ThermalEquipment/CDUs/" + cduID
	writeJSONResponse(w, http.StatusOK, redfish.CDU{
		ODataContext: "/redfish/v1/$metadata#CDU.CDU",
		ODataID:      base,
		ODataType:    "#CDU.v1_1_0.CDU",
		ID:           cduID,
		Name:         "Coolant Distribution Unit",
		Status:       redfish.Status{State: "Enabled", Health: "OK"},
		Oem: redfish.CDUOem{Kenmec: redfish.KenmecCDU{
			ODataType:     "#KenmecCDU.v1_0_0.KenmecCDU",
			IOBoards:      redfish.ODataIDRef{ODataID: base + "/Oem/Kenmec/IOBoards"},
			ControlLogics: redfish.ODataIDRef{ODataID: base + "/Oem/Kenmec/ControlLogics"},
			Config: redfish.ActionableConfig{
				ReadTarget:  base + "/Oem/Kenmec/Actions/Oem/Config.Read",
				WriteTarget: base + "/Oem/Kenmec/Actions/Oem/Config.Write",
			},
		}},
	})
}

// handleIOBoards routes the IOBoards collection, a single board member, and
// its Read/Write actions (design/048_CDU_Gateway_Operational_Scenarios.md §8 scenarios 3-4). Ports are 0-based
// internally; the exposed member id matches the port number.
func (h *Handler) handleIOBoards(w http.ResponseWriter, r *http.Request, subPath string, account *models.Account) {
	base := "/redfish/v1/ThermalEquipment/CDUs/" + cduID + "/Oem/Kenmec/IOBoards"
	switch {
	case subPath == "" || subPath == "/":
		if r.Method != http.MethodGet {
			writeErrorResponse(w, http.StatusMethodNotAllowed, "Base.1.15.0.MethodNotAllowed", "Method not allowed")
			return
		}
		members := make([]redfish.ODataIDRef, 0, len(h.ports))
		for port, kind := range h.ports {
			if kind != boards.KindUnknown {
				members = append(members, redfish.ODataIDRef{ODataID: base + "/" + strconv.Itoa(port)})
			}
		}
		writeJSONResponse(w, http.StatusOK, redfish.Collection{
			ODataContext: "/redfish/v1/$metadata#KenmecIOBoardCollection.KenmecIOBoardCollection",
			ODataID:      base,
			ODataType:    "#KenmecIOBoardCollection.KenmecIOBoardCollection",
			Name:         "IO Board Collection",
			Members:      members,
			MembersCount: len(members),
		})
		return
	}

	rest := strings.TrimPrefix(subPath, "/")
	parts := strings.SplitN(rest, "/", 2)
	port, err := strconv.Atoi(parts[0])
	if err != nil {
		writeErrorResponse(w, http.StatusNotFound, "Base.1.15.0.ResourceMissingAtURI", "Resource not found")
		return
	}
	kind, ok := h.ports[port]
	if !ok || kind == boards.KindUnknown {
		writeErrorResponse(w, http.StatusNotFound, "Base.1.15.0.ResourceMissingAtURI", "Resource not found")
		return
	}

	if len(parts) == 1 {
		if r.Method != http.MethodGet {
			writeErrorResponse(w, http.StatusMethodNotAllowed, "Base.1.15.0.MethodNotAllowed", "Method not allowed")
			return
		}
		writeJSONResponse(w, http.StatusOK, redfish.IOBoard{
			ODataContext: "/redfish/v1/$metadata#KenmecIOBoard.KenmecIOBoard",
			ODataID:      base + "/" + strconv.Itoa(port),
			ODataType:    "#KenmecIOBoard.v1_0_0.KenmecIOBoard",
			ID:           strconv.Itoa(port),
			Name:         "IO Board " + strconv.Itoa(port),
			BoardKind:    kind.String(),
			Actions: redfish.IOBoardActions{
				Read:  redfish.ActionTarget{Target: base + "/" + strconv.Itoa(port) + "/Actions/Oem/KenmecIOBoard.Read"},
				Write: redfish.ActionTarget{Target: base + "/" + strconv.Itoa(port) + "/Actions/Oem/KenmecIOBoard.Write"},
			},
		})
		return
	}

	switch parts[1] {
	case "Actions/Oem/KenmecIOBoard.Read":
		if r.Method != http.MethodPost {
			writeErrorResponse(w, http.StatusMethodNotAllowed, "Base.1.15.0.MethodNotAllowed", "Method not allowed")
			return
		}
		h.handleIOBoardRead(w, r, port, kind)
	case "Actions/Oem/KenmecIOBoard.Write":
		if r.Method != http.MethodPost {
			writeErrorResponse(w, http.StatusMethodNotAllowed, "Base.1.15.0.MethodNotAllowed", "Method not allowed")
			return
		}
		if !requireRole(w, account, "ConfigureComponents") {
			return
		}
		h.handleIOBoardWrite(w, r, port, kind)
	default:
		writeErrorResponse(w, http.StatusNotFound, "Base.1.15.0.ResourceMissingAtURI", "Resource not found")
	}
}

// handleIOBoardRead returns the board-class-specific field set
// design/034_CDU_Gateway_Board_Commander.md §4.C / design/048_CDU_Gateway_Operational_Scenarios.md §8 scenario 3 names, reading every field straight out of the shared
// register map (the acquisition engine keeps it current; this action never
// touches the HID transport directly).
func (h *Handler) handleIOBoardRead(w http.ResponseWriter, r *http.Request, port int, kind boards.Kind) {
	out := map[string]any{}
	switch kind {
	case boards.KindIO:
		for ch := 0; ch < 8; ch++ {
			v, err := h.regs.Get(regmap.GPIOOutputAddr(port, ch), regmap.KindU16)
			if err != nil {
				logAndInternalError(w, "regmap.Get", err)
				return
			}
			u, _ := v.AsU16()
			out["DO_"+strconv.Itoa(ch)] = u
		}
		for ch := 0; ch < 8; ch++ {
			v, err := h.regs.Get(regmap.GPIOInputAddr(port, ch), regmap.KindU16)
			if err != nil {
				logAndInternalError(w, "regmap.Get", err)
				return
			}
			u, _ := v.AsU16()
			out["DI_"+strconv.Itoa(ch)] = u
		}
		for ch := 0; ch < 4; ch++ {
			mode, err := h.regs.Get(regmap.AIOModeAddr(port, ch), regmap.KindU16)
			if err != nil {
				logAndInternalError(w, "regmap.Get", err)
				return
			}
			m, _ := mode.AsU16()
			out["AIO_"+strconv.Itoa(ch)+"_mode"] = m

			volt, err := h.regs.Get(regmap.AIOVoltageAddr(port, ch), regmap.KindI32)
			if err != nil {
				logAndInternalError(w, "regmap.Get", err)
				return
			}
			vv, _ := volt.AsI32()
			out["AIO_"+strconv.Itoa(ch)+"_voltage"] = vv

			cur, err := h.regs.Get(regmap.AIOCurrentAddr(port, ch), regmap.KindI32)
			if err != nil {
				logAndInternalError(w, "regmap.Get", err)
				return
			}
			cc, _ := cur.AsI32()
			out["AIO_"+strconv.Itoa(ch)+"_current"] = cc
		}
	case boards.KindRTD:
		for ch := 0; ch < 8; ch++ {
			v, err := h.regs.Get(regmap.RTDTemperatureAddr(port, ch), regmap.KindI32)
			if err != nil {
				logAndInternalError(w, "regmap.Get", err)
				return
			}
			t, _ := v.AsI32()
			out["RTD_"+strconv.Itoa(ch)+"_temperature"] = t
		}
		for ch := 0; ch < 8; ch++ {
			v, err := h.regs.Get(regmap.CapturePeriodAddr(port, ch), regmap.KindU32)
			if err != nil {
				logAndInternalError(w, "regmap.Get", err)
				return
			}
			p, _ := v.AsU32()
			out["CapturePWM_"+strconv.Itoa(ch)+"_period"] = p
		}
	}
	writeJSONResponse(w, http.StatusOK, out)
}

// handleIOBoardWrite parses the request body and dispatches each recognized
// numeric field to the matching register-map write; unknown fields are
// silently ignored (design/040_CDU_Gateway_Redfish_API.md §4.I: "Write: parses the JSON and dispatches
// each recognized numeric field... unknown fields are silently ignored").
// The write lands in the register map; the next acquisition cycle pushes it
// out to hardware (design/048_CDU_Gateway_Operational_Scenarios.md §8 scenario 4).
func (h *Handler) handleIOBoardWrite(w http.ResponseWriter, r *http.Request, port int, kind boards.Kind) {
	var req map[string]json.Number
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "Base.1.15.0.MalformedJSON", "Malformed request body")
		return
	}
	if kind == boards.KindIO {
		for ch := 0; ch < 8; ch++ {
			if n, ok := req["DO_"+strconv.Itoa(ch)]; ok {
				iv, err := n.Int64()
				if err != nil {
					continue
				}
				if err := h.regs.Set(regmap.GPIOOutputAddr(port, ch), regmap.U16(uint16(iv))); err != nil {
					logAndInternalError(w, "regmap.Set", err)
					return
				}
			}
		}
		for ch := 0; ch < 4; ch++ {
			if n, ok := req["AIO_"+strconv.Itoa(ch)+"_mode"]; ok {
				iv, err := n.Int64()
				if err != nil {
					continue
				}
				if err := h.regs.Set(regmap.AIOModeAddr(port, ch), regmap.U16(uint16(iv))); err != nil {
					logAndInternalError(w, "regmap.Set", err)
					return
				}
			}
			if n, ok := req["AIO_"+strconv.Itoa(ch)+"_voltage"]; ok {
				iv, err := n.Int64()
				if err != nil {
					continue
				}
				if err := h.regs.Set(regmap.AIOVoltageAddr(port, ch), regmap.I32(int32(iv))); err != nil {
					logAndInternalError(w, "regmap.Set", err)
					return
				}
			}
			if n, ok := req["AIO_"+strconv.Itoa(ch)+"_current"]; ok {
				iv, err := n.Int64()
				if err != nil {
					continue
				}
				if err := h.regs.Set(regmap.AIOCurrentAddr(port, ch), regmap.I32(int32(iv))); err != nil {
					logAndInternalError(w, "regmap.Set", err)
					return
				}
			}
		}
	}
	// Pid and TimeoutMs (design/048_CDU_Gateway_Operational_Scenarios.md §8 scenario 4) name the UART-bridge slave
	// targeted by the write; this gateway applies recognized field values
	// directly to the register map and otherwise ignores them.
	writeJSONResponse(w, http.StatusOK, map[string]bool{"Applied": true})
}

func (h *Handler) handleControlLogics(w http.ResponseWriter, r *http.Request, subPath string, account *models.Account) {
	base := "/redfish/v1/ThermalEquipment/CDUs/" + cduID + "/Oem/Kenmec/ControlLogics"
	switch {
	case subPath == "" || subPath == "/":
		if r.Method != http.MethodGet {
			writeErrorResponse(w, http.StatusMethodNotAllowed, "Base.1.15.0.MethodNotAllowed", "Method not allowed")
			return
		}
		members := make([]redfish.ODataIDRef, 0, h.logics.Count())
		for i := 1; i <= h.logics.Count(); i++ {
			members = append(members, redfish.ODataIDRef{ODataID: base + "/" + strconv.Itoa(i)})
		}
		writeJSONResponse(w, http.StatusOK, redfish.Collection{
			ODataContext: "/redfish/v1/$metadata#ControlLogicCollection.ControlLogicCollection",
			ODataID:      base,
			ODataType:    "#ControlLogicCollection.ControlLogicCollection",
			Name:         "Control Logic Collection",
			Members:      members,
			MembersCount: len(members),
		})
		return
	}

	rest := strings.TrimPrefix(subPath, "/")
	parts := strings.SplitN(rest, "/", 2)
	index, err := strconv.Atoi(parts[0])
	if err != nil || index < 1 || index > h.logics.Count() {
		writeErrorResponse(w, http.StatusNotFound, "Base.1.15.0.ResourceMissingAtURI", "Resource not found")
		return
	}

	if len(parts) == 1 {
		if r.Method != http.MethodGet {
			writeErrorResponse(w, http.StatusMethodNotAllowed, "Base.1.15.0.MethodNotAllowed", "Method not allowed")
			return
		}
		writeJSONResponse(w, http.StatusOK, redfish.ControlLogic{
			ODataContext: "/redfish/v1/$metadata#ControlLogic.ControlLogic",
			ODataID:      base + "/" + strconv.Itoa(index),
			ODataType:    "#ControlLogic.v1_0_0.ControlLogic",
			ID:           strconv.Itoa(index),
			Name:         h.logics.Name(index),
			Actions: redfish.ControlLogicActions{
				Read:  redfish.ActionTarget{Target: base + "/" + strconv.Itoa(index) + "/Actions/Oem/ControlLogic.Read"},
				Write: redfish.ActionTarget{Target: base + "/" + strconv.Itoa(index) + "/Actions/Oem/ControlLogic.Write"},
			},
		})
		return
	}

	switch parts[1] {
	case "Actions/Oem/ControlLogic.Read":
		if r.Method != http.MethodPost {
			writeErrorResponse(w, http.StatusMethodNotAllowed, "Base.1.15.0.MethodNotAllowed", "Method not allowed")
			return
		}
		data, err := h.logics.ReadJSON(index)
		if err != nil {
			logAndInternalError(w, "controllogic.ReadJSON", err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		applyCommonHeaders(w, r)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	case "Actions/Oem/ControlLogic.Write":
		if r.Method != http.MethodPost {
			writeErrorResponse(w, http.StatusMethodNotAllowed, "Base.1.15.0.MethodNotAllowed", "Method not allowed")
			return
		}
		if !requireRole(w, account, "ConfigureComponents") {
			return
		}
		body, err := io.ReadAll(r.Body)
		if err != nil {
			writeErrorResponse(w, http.StatusBadRequest, "Base.1.15.0.MalformedJSON", "Malformed request body")
			return
		}
		if err := h.logics.WriteJSON(index, body); err != nil {
			writeErrorResponse(w, http.StatusBadRequest, "Base.1.15.0.MalformedJSON", "Malformed request body")
			return
		}
		writeJSONResponse(w, http.StatusOK, map[string]bool{"Applied": true})
	default:
		writeErrorResponse(w, http.StatusNotFound, "Base.1.15.0.ResourceMissingAtURI", "Resource not found")
	}
}

func (h *Handler) handleConfigRead(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErrorResponse(w, http.StatusMethodNotAllowed, "Base.1.15.0.MethodNotAllowed", "Method not allowed")
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{
		"Temperature":   h.cfg.Temperature.Get(),
		"AICurrent":     h.cfg.AICurrent.Get(),
		"AIVoltage":     h.cfg.AIVoltage.Get(),
		"AOCurrent":     h.cfg.AOCurrent.Get(),
		"AOVoltage":     h.cfg.AOVoltage.Get(),
		"ModbusDevices": h.cfg.ModbusDevices.Get(),
		"System":        h.cfg.System.Get(),
	})
}

type configWriteRequest struct {
	Temperature   *[]sensorconfig.TemperatureEntry  `json:"Temperature"`
	AICurrent     *[]sensorconfig.AICurrentEntry    `json:"AICurrent"`
	AIVoltage     *[]sensorconfig.AIVoltageEntry    `json:"AIVoltage"`
	AOCurrent     *[]sensorconfig.AOEntry           `json:"AOCurrent"`
	AOVoltage     *[]sensorconfig.AOEntry           `json:"AOVoltage"`
	ModbusDevices *[]sensorconfig.ModbusDeviceEntry `json:"ModbusDevices"`
	System        *sensorconfig.SystemConfig        `json:"System"`
}

// handleConfigWrite rewrites whichever config lists the caller supplied,
// leaving the others untouched — each list is independently RCU-swapped
// (design/045_CDU_Gateway_Concurrency_Model.md §5: "writer rebuilds the list, then atomically swaps the
// pointer").
func (h *Handler) handleConfigWrite(w http.ResponseWriter, r *http.Request, account *models.Account) {
	if r.Method != http.MethodPost {
		writeErrorResponse(w, http.StatusMethodNotAllowed, "Base.1.15.0.MethodNotAllowed", "Method not allowed")
		return
	}
	if !requireRole(w, account, "ConfigureComponents") {
		return
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "Base.1.15.0.MalformedJSON", "Malformed request body")
		return
	}
	var req configWriteRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "Base.1.15.0.MalformedJSON", "Malformed request body")
		return
	}

	if req.Temperature != nil {
		validate := func(list []sensorconfig.TemperatureEntry) error {
			return sensorconfig.ValidateNoDuplicateUpdateAddress(list, func(e sensorconfig.TemperatureEntry) uint32 { return e.UpdateAddress })
		}
		if err := h.cfg.Temperature.Set(*req.Temperature, validate); err != nil {
			writeErrorResponse(w, http.StatusBadRequest, "Base.1.15.0.PropertyValueNotInList", err.Error())
			return
		}
	}
	if req.AICurrent != nil {
		validate := func(list []sensorconfig.AICurrentEntry) error {
			return sensorconfig.ValidateNoDuplicateUpdateAddress(list, func(e sensorconfig.AICurrentEntry) uint32 { return e.UpdateAddress })
		}
		if err := h.cfg.AICurrent.Set(*req.AICurrent, validate); err != nil {
			writeErrorResponse(w, http.StatusBadRequest, "Base.1.15.0.PropertyValueNotInList", err.Error())
			return
		}
	}
	if req.AIVoltage != nil {
		validate := func(list []sensorconfig.AIVoltageEntry) error {
			return sensorconfig.ValidateNoDuplicateUpdateAddress(list, func(e sensorconfig.AIVoltageEntry) uint32 { return e.UpdateAddress })
		}
		if err := h.cfg.AIVoltage.Set(*req.AIVoltage, validate); err != nil {
			writeErrorResponse(w, http.StatusBadRequest, "Base.1.15.0.PropertyValueNotInList", err.Error())
			return
		}
	}
	if req.AOCurrent != nil {
		if err := h.cfg.AOCurrent.Set(*req.AOCurrent, nil); err != nil {
			writeErrorResponse(w, http.StatusBadRequest, "Base.1.15.0.PropertyValueNotInList", err.Error())
			return
		}
	}
	if req.AOVoltage != nil {
		if err := h.cfg.AOVoltage.Set(*req.AOVoltage, nil); err != nil {
			writeErrorResponse(w, http.StatusBadRequest, "Base.1.15.0.PropertyValueNotInList", err.Error())
			return
		}
	}
	if req.ModbusDevices != nil {
		validate := func(list []sensorconfig.ModbusDeviceEntry) error {
			return sensorconfig.ValidateNoDuplicateUpdateAddress(list, func(e sensorconfig.ModbusDeviceEntry) uint32 { return e.UpdateAddress })
		}
		if err := h.cfg.ModbusDevices.Set(*req.ModbusDevices, validate); err != nil {
			writeErrorResponse(w, http.StatusBadRequest, "Base.1.15.0.PropertyValueNotInList", err.Error())
			return
		}
	}
	if req.System != nil {
		if err := h.cfg.System.Set(*req.System); err != nil {
			logAndInternalError(w, "sensorconfig.System.Set", err)
			return
		}
	}

	writeJSONResponse(w, http.StatusOK, map[string]bool{"Applied": true})
}
