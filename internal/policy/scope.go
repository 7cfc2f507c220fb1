package policy

import "github.com/project-tracker-api/internal/domain"

// DepartmentScoped реализуют объекты, привязанные к департаменту
type DepartmentScoped interface {
	ScopeDepartmentID() *int64
}

// SectionScoped реализуют объекты, привязанные к секции
type SectionScoped interface {
	ScopeSectionID() *int64
}

// CheckObjectScope - объектная проверка для управленческих эндпоинтов:
// департамент (а для руководителя секции - секция) объекта должен
// совпадать с собственным. Объект без такого атрибута проходит.
// Директор не ограничен.
func CheckObjectScope(u *domain.User, obj any) bool {
	if u == nil {
		return false
	}
	if u.Role == domain.RoleDirector {
		return true
	}

	if s, ok := obj.(SectionScoped); ok && u.Role == domain.RoleSectionHead {
		return sameID(u.SectionID, s.ScopeSectionID())
	}
	if d, ok := obj.(DepartmentScoped); ok {
		return sameID(u.DepartmentID, d.ScopeDepartmentID())
	}
	return true
}

func sameID(a, b *int64) bool {
	return a != nil && b != nil && *a == *b
}
