package policy

import "github.com/project-tracker-api/internal/domain"

// Action - действие над ресурсом
type Action string

const (
	ActionList     Action = "list"
	ActionRetrieve Action = "retrieve"
	ActionCreate   Action = "create"
	ActionUpdate   Action = "update"
	ActionDelete   Action = "delete"
	ActionStats    Action = "stats"
	ActionComplete Action = "complete"
	ActionValidate Action = "validate"
	ActionAssign   Action = "assign"
)

// Resource - вид ресурса
type Resource string

const (
	ResourceUser         Resource = "user"
	ResourcePoste        Resource = "poste"
	ResourceDepartment   Resource = "department"
	ResourceSection      Resource = "section"
	ResourceCompetence   Resource = "competence"
	ResourceActivity     Resource = "activity"
	ResourceProject      Resource = "project"
	ResourceTask         Resource = "task"
	ResourceComment      Resource = "comment"
	ResourceAttachment   Resource = "attachment"
	ResourceNotification Resource = "notification"
)

func isRead(a Action) bool {
	return a == ActionList || a == ActionRetrieve
}

func isMutation(a Action) bool {
	return a == ActionCreate || a == ActionUpdate || a == ActionDelete
}

func isManager(u *domain.User) bool {
	return u.Role == domain.RoleDirector || u.Role == domain.RoleCoordinator
}

// CanPerform - грубая проверка действия до обращения к хранилищу.
// instance нужен только для правил, зависящих от объекта
// (завершение задачи, правка комментария или вложения).
// Неизвестные сочетания запрещены.
func CanPerform(u *domain.User, action Action, resource Resource, instance any) bool {
	if u == nil || !u.IsActive {
		return false
	}

	switch resource {
	case ResourceProject:
		switch {
		case action == ActionCreate:
			return Has(u, CreateProjects)
		case action == ActionUpdate || action == ActionDelete:
			return isManager(u)
		case isRead(action) || action == ActionStats:
			return true
		}

	case ResourceTask:
		switch {
		case action == ActionComplete:
			if Has(u, ValidateTasks) {
				return true
			}
			t, ok := instance.(*domain.Task)
			return ok && t.IsAssigned(u.ID)
		case action == ActionValidate:
			return Has(u, ValidateTasks)
		case isRead(action), isMutation(action), action == ActionStats, action == ActionAssign:
			return true
		}

	case ResourceUser:
		switch {
		case isMutation(action), action == ActionStats:
			return isManager(u)
		case isRead(action):
			return true
		}

	case ResourcePoste, ResourceCompetence, ResourceDepartment, ResourceSection:
		switch {
		case isMutation(action):
			return isManager(u)
		case isRead(action):
			return true
		case action == ActionStats:
			return isManager(u)
		}

	case ResourceActivity:
		return isRead(action) && isManager(u)

	case ResourceComment:
		switch {
		case action == ActionUpdate || action == ActionDelete:
			c, ok := instance.(*domain.TaskComment)
			return ok && (c.UserID == u.ID || u.Role == domain.RoleDirector)
		case isRead(action), action == ActionCreate:
			return true
		}

	case ResourceAttachment:
		switch {
		case action == ActionUpdate || action == ActionDelete:
			a, ok := instance.(*domain.TaskAttachment)
			return ok && (a.UserID == u.ID || u.Role == domain.RoleDirector)
		case isRead(action), action == ActionCreate:
			return true
		}

	case ResourceNotification:
		// Уведомления создаёт только рассылка, клиенты их лишь читают и отмечают.
		return isRead(action) || action == ActionUpdate
	}

	return false
}

// Authorize возвращает domain.ErrForbidden при отказе
func Authorize(u *domain.User, action Action, resource Resource, instance any) error {
	if !CanPerform(u, action, resource, instance) {
		return domain.ErrForbidden
	}
	return nil
}

// IsStaff - доступ к консоли администратора
func IsStaff(u *domain.User) bool {
	return u != nil && u.IsActive && isManager(u)
}
