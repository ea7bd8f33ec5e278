package auth

import (
	"github.com/dexatek/cdu-gateway/pkg/models"
)

// IsAdministrator reports whether account has the Administrator role and is
// enabled.
func IsAdministrator(account *models.Account) bool {
	return account != nil && account.Enabled && account.Role == models.RoleAdministrator
}

// CanConfigureComponents reports whether account may perform the
// ConfigureComponents-gated actions design/040_CDU_Gateway_Redfish_API.md §4.I lists (system/chassis/
// thermal-equipment create/delete, IOBoard.Write, ControlLogics.Write,
// Manager.Reset, CertificateService actions): Administrator or Operator.
func CanConfigureComponents(account *models.Account) bool {
	if account == nil || !account.Enabled {
		return false
	}
	return account.Role == models.RoleAdministrator || account.Role == models.RoleOperator
}

// GetRoleDisplayName returns a human-friendly name for a role.
func GetRoleDisplayName(role models.Role) string {
	switch role {
	case models.RoleAdministrator:
		return "Administrator"
	case models.RoleOperator:
		return "Operator"
	case models.RoleReadOnly:
		return "ReadOnly"
	default:
		return "Unknown"
	}
}
