package api

import "net/http"

// validMessageIDs is the closed set of Base.1.15.0.* MessageIds this gateway
// emits (design/040_CDU_Gateway_Redfish_API.md §4.I.5, §7). An unrecognized code collapses to GeneralError
// rather than inventing a new registry entry.
var validMessageIDs = map[string]struct{}{
	"Base.1.15.0.GeneralError":            {},
	"Base.1.15.0.ResourceMissingAtURI":    {},
	"Base.1.15.0.MethodNotAllowed":        {},
	"Base.1.15.0.Unauthorized":            {},
	"Base.1.15.0.InternalError":           {},
	"Base.1.15.0.InsufficientPrivilege":   {},
	"Base.1.15.0.MalformedJSON":           {},
	"Base.1.15.0.PropertyMissing":         {},
	"Base.1.15.0.PropertyValueNotInList":  {},
	"Base.1.15.0.ResourceAlreadyExists":   {},
	"Base.1.15.0.ActionNotSupported":      {},
	"Base.1.15.0.PreconditionFailed":      {},
}

// writeErrorResponse writes a Redfish extended-info error envelope
// (design/040_CDU_Gateway_Redfish_API.md §4.I.5 / §7).
func writeErrorResponse(w http.ResponseWriter, status int, code, message string) {
	if status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", `Basic realm="Redfish", Bearer`)
	}

	messageID := "Base.1.15.0.GeneralError"
	if _, ok := validMessageIDs[code]; ok {
		messageID = code
	}

	writeJSONResponse(w, status, map[string]interface{}{
		"error": map[string]interface{}{
			"code":    code,
			"message": message,
			"@Message.ExtendedInfo": []map[string]interface{}{
				{
					"@odata.type": "#Message.v1_1_2.Message",
					"MessageId":   messageID,
					"Message":     message,
					"Severity":    severityForStatus(status),
					"Resolution":  resolutionForMessageID(messageID),
				},
			},
		},
	})
}

func severityForStatus(status int) string {
	switch {
	case status >= 500:
		return "Critical"
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return "Critical"
	case status == http.StatusNotFound || status == http.StatusMethodNotAllowed ||
		status == http.StatusBadRequest || status == http.StatusConflict ||
		status == http.StatusPreconditionFailed:
		return "Warning"
	default:
		return "OK"
	}
}

func resolutionForMessageID(msgID string) string {
	switch msgID {
	case "Base.1.15.0.ResourceMissingAtURI":
		return "Provide a valid resource identifier and resubmit the request."
	case "Base.1.15.0.MethodNotAllowed":
		return "Use an allowed HTTP method for the target resource and resubmit the request."
	case "Base.1.15.0.Unauthorized":
		return "Provide valid credentials and resubmit the request."
	case "Base.1.15.0.InsufficientPrivilege":
		return "Resubmit the request using an account with the required privileges."
	case "Base.1.15.0.MalformedJSON":
		return "Correct the JSON payload formatting and resubmit the request."
	case "Base.1.15.0.PropertyMissing":
		return "Include all required properties in the request and resubmit."
	case "Base.1.15.0.PropertyValueNotInList":
		return "Use a supported value for the property and resubmit the request."
	case "Base.1.15.0.ResourceAlreadyExists":
		return "Choose a unique identifier and resubmit the request."
	case "Base.1.15.0.ActionNotSupported":
		return "Remove the unsupported action from the request."
	case "Base.1.15.0.PreconditionFailed":
		return "Refresh the resource's ETag and resubmit the request."
	case "Base.1.15.0.InternalError":
		fallthrough
	default:
		return "Retry the operation; if the problem persists, contact the service provider."
	}
}
