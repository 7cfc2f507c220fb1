package policy

import "github.com/project-tracker-api/internal/domain"

// Capability - право, выдаваемое должностью или ролью
type Capability int

const (
	ManageTeam Capability = iota
	CreateProjects
	ValidateTasks
)

// String возвращает имя возможности
func (c Capability) String() string {
	switch c {
	case ManageTeam:
		return "manage_team"
	case CreateProjects:
		return "create_projects"
	case ValidateTasks:
		return "validate_tasks"
	default:
		return "unknown"
	}
}

// Capabilities - итоговый набор возможностей пользователя
type Capabilities struct {
	ManageTeam     bool `json:"can_manage_team"`
	CreateProjects bool `json:"can_create_projects"`
	ValidateTasks  bool `json:"can_validate_tasks"`
}

// roleCapabilities - значения по умолчанию для ролей
var roleCapabilities = map[domain.Role]Capabilities{
	domain.RoleDirector:    {ManageTeam: true, CreateProjects: true, ValidateTasks: true},
	domain.RoleCoordinator: {CreateProjects: true, ValidateTasks: true},
	domain.RoleSectionHead: {ManageTeam: true, ValidateTasks: true},
	domain.RoleMember:      {},
}

// ResolveCapabilities вычисляет возможности пользователя:
// заданный флаг должности имеет приоритет над таблицей ролей.
// Должность должна быть загружена в u.Poste.
func ResolveCapabilities(u *domain.User) Capabilities {
	if u == nil {
		return Capabilities{}
	}

	caps := roleCapabilities[u.Role]
	if u.Poste == nil {
		return caps
	}

	if f := u.Poste.CanManageTeam; f != nil {
		caps.ManageTeam = *f
	}
	if f := u.Poste.CanCreateProjects; f != nil {
		caps.CreateProjects = *f
	}
	if f := u.Poste.CanValidateTasks; f != nil {
		caps.ValidateTasks = *f
	}
	return caps
}

// Has проверяет одну возможность пользователя
func Has(u *domain.User, c Capability) bool {
	caps := ResolveCapabilities(u)
	switch c {
	case ManageTeam:
		return caps.ManageTeam
	case CreateProjects:
		return caps.CreateProjects
	case ValidateTasks:
		return caps.ValidateTasks
	default:
		return false
	}
}
