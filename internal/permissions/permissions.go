// Package permissions maps dashboard roles to the actions they may perform.
package permissions

import (
	"github.com/samber/lo"

	"github.com/hhi-dashboard/api/internal/models"
)

type Permission string

const (
	ProjectsRead       Permission = "projects:read"
	ProjectsWrite      Permission = "projects:write"
	ProjectsStage      Permission = "projects:stage"
	ProjectsDeactivate Permission = "projects:deactivate"
	CommunicationRead  Permission = "communication:read"
	CommunicationSend  Permission = "communication:send"
	TemplatesWrite     Permission = "templates:write"
	StagesWrite        Permission = "stages:write"
	UsersRead          Permission = "users:read"
	UsersManage        Permission = "users:manage"
	IntegrationsManage Permission = "integrations:manage"
)

var byRole = map[models.Role][]Permission{
	models.RoleAdmin: {
		ProjectsRead, ProjectsWrite, ProjectsStage, ProjectsDeactivate,
		CommunicationRead, CommunicationSend, TemplatesWrite,
		StagesWrite, UsersRead, UsersManage, IntegrationsManage,
	},
	models.RoleManager: {
		ProjectsRead, ProjectsWrite, ProjectsStage, ProjectsDeactivate,
		CommunicationRead, CommunicationSend, TemplatesWrite,
		UsersRead, IntegrationsManage,
	},
	models.RoleStaff: {
		ProjectsRead, ProjectsWrite, ProjectsStage,
		CommunicationRead, CommunicationSend,
	},
	models.RoleViewer: {
		ProjectsRead, CommunicationRead,
	},
}

// For returns a copy of the permissions granted to role.
func For(role models.Role) []Permission {
	return append([]Permission(nil), byRole[role]...)
}

// Has reports whether role grants p.
func Has(role models.Role, p Permission) bool {
	return lo.Contains(byRole[role], p)
}

// ValidRole reports whether role is one of the known roles.
func ValidRole(role models.Role) bool {
	_, ok := byRole[role]
	return ok
}
