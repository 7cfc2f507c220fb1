package policy

import "github.com/project-tracker-api/internal/domain"

// Rule - одно условие видимости; условия фильтра объединяются по ИЛИ
type Rule int

const (
	// RuleDepartment - запись относится к департаменту пользователя
	RuleDepartment Rule = iota
	// RuleCoordinator - пользователь координирует проект
	RuleCoordinator
	// RuleAssignee - пользователь назначен на задачу (или на задачу проекта)
	RuleAssignee
	// RuleSection - запись связана с участниками секции пользователя
	RuleSection
	// RuleOwn - запись принадлежит самому пользователю
	RuleOwn
)

// Filter описывает, какие записи ресурса видит пользователь.
// Пустой неограниченный фильтр ничего не пропускает.
type Filter struct {
	Resource     Resource
	Unrestricted bool
	Rules        []Rule
	UserID       int64
	DepartmentID int64
	SectionID    int64
}

// Empty сообщает, что фильтр не пропускает ни одной записи
func (f Filter) Empty() bool {
	return !f.Unrestricted && len(f.Rules) == 0
}

// Has проверяет наличие условия
func (f Filter) Has(r Rule) bool {
	for _, rule := range f.Rules {
		if rule == r {
			return true
		}
	}
	return false
}

func unrestricted(res Resource, u *domain.User) Filter {
	return Filter{Resource: res, Unrestricted: true, UserID: u.ID}
}

func none(res Resource, u *domain.User) Filter {
	if u == nil {
		return Filter{Resource: res}
	}
	return Filter{Resource: res, UserID: u.ID}
}

func rules(res Resource, u *domain.User, rr ...Rule) Filter {
	f := Filter{Resource: res, UserID: u.ID, Rules: rr}
	if u.DepartmentID != nil {
		f.DepartmentID = *u.DepartmentID
	}
	if u.SectionID != nil {
		f.SectionID = *u.SectionID
	}
	return f
}

// VisibilityFilter - единая точка вычисления видимости по роли,
// департаменту и секции пользователя. Необработанные сочетания
// возвращают пустой фильтр.
func VisibilityFilter(u *domain.User, res Resource) Filter {
	if u == nil || !u.IsActive {
		return none(res, u)
	}

	switch res {
	case ResourceProject, ResourceTask, ResourceComment, ResourceAttachment:
		return workFilter(u, res)
	case ResourceUser:
		return userFilter(u)
	case ResourceSection:
		return sectionFilter(u)
	case ResourceNotification:
		return rules(res, u, RuleOwn)
	case ResourcePoste, ResourceDepartment, ResourceCompetence:
		return unrestricted(res, u)
	case ResourceActivity:
		if isManager(u) {
			return unrestricted(res, u)
		}
	}
	return none(res, u)
}

// workFilter покрывает проекты и задачи; комментарии и вложения
// видимы через свою задачу.
func workFilter(u *domain.User, res Resource) Filter {
	if res == ResourceComment || res == ResourceAttachment {
		f := workFilter(u, ResourceTask)
		f.Resource = res
		return f
	}

	switch u.Role {
	case domain.RoleDirector:
		return unrestricted(res, u)

	case domain.RoleCoordinator:
		own := RuleAssignee
		if res == ResourceProject {
			own = RuleCoordinator
		}
		if u.DepartmentID != nil {
			return rules(res, u, RuleDepartment, own)
		}
		return rules(res, u, own)

	case domain.RoleSectionHead:
		if u.SectionID == nil {
			return none(res, u)
		}
		rr := []Rule{RuleSection, RuleAssignee}
		if u.DepartmentID != nil {
			rr = append([]Rule{RuleDepartment}, rr...)
		}
		return rules(res, u, rr...)

	case domain.RoleMember:
		return rules(res, u, RuleAssignee)
	}
	return none(res, u)
}

func userFilter(u *domain.User) Filter {
	switch u.Role {
	case domain.RoleDirector, domain.RoleCoordinator:
		// Координатор видит всех пользователей независимо от департамента.
		return unrestricted(ResourceUser, u)
	case domain.RoleSectionHead:
		if u.SectionID != nil {
			return rules(ResourceUser, u, RuleSection)
		}
	case domain.RoleMember:
		return rules(ResourceUser, u, RuleOwn)
	}
	return none(ResourceUser, u)
}

func sectionFilter(u *domain.User) Filter {
	switch u.Role {
	case domain.RoleSectionHead:
		if u.SectionID != nil {
			return rules(ResourceSection, u, RuleSection)
		}
		return none(ResourceSection, u)
	case domain.RoleCoordinator:
		if u.DepartmentID != nil {
			return rules(ResourceSection, u, RuleDepartment)
		}
	}
	return unrestricted(ResourceSection, u)
}

// TeamFilter возвращает фильтр пользователей команды:
// директор - все, координатор - департамент, руководитель секции - секция.
func TeamFilter(u *domain.User) Filter {
	if u == nil {
		return none(ResourceUser, u)
	}
	switch {
	case u.Role == domain.RoleDirector:
		return unrestricted(ResourceUser, u)
	case u.Role == domain.RoleCoordinator && u.DepartmentID != nil:
		return rules(ResourceUser, u, RuleDepartment)
	case u.Role == domain.RoleSectionHead && u.SectionID != nil:
		return rules(ResourceUser, u, RuleSection)
	}
	return none(ResourceUser, u)
}

// AllowsProject проверяет проект в памяти. Требует загруженных
// координаторов и задач с исполнителями.
func (f Filter) AllowsProject(p *domain.Project) bool {
	if f.Unrestricted {
		return true
	}
	for _, r := range f.Rules {
		switch r {
		case RuleDepartment:
			if p.DepartmentID == f.DepartmentID {
				return true
			}
		case RuleCoordinator:
			for i := range p.Coordinators {
				if p.Coordinators[i].ID == f.UserID {
					return true
				}
			}
		case RuleAssignee, RuleSection:
			for i := range p.Tasks {
				if f.assigneeMatches(r, p.Tasks[i].Assignees) {
					return true
				}
			}
		}
	}
	return false
}

// AllowsTask проверяет задачу в памяти. Требует загруженного проекта
// и исполнителей.
func (f Filter) AllowsTask(t *domain.Task) bool {
	if f.Unrestricted {
		return true
	}
	for _, r := range f.Rules {
		switch r {
		case RuleDepartment:
			if t.Project != nil && t.Project.DepartmentID == f.DepartmentID {
				return true
			}
		case RuleAssignee, RuleSection:
			if f.assigneeMatches(r, t.Assignees) {
				return true
			}
		}
	}
	return false
}

// AllowsUser проверяет пользователя в памяти
func (f Filter) AllowsUser(u *domain.User) bool {
	if f.Unrestricted {
		return true
	}
	for _, r := range f.Rules {
		switch r {
		case RuleOwn:
			if u.ID == f.UserID {
				return true
			}
		case RuleSection:
			if u.SectionID != nil && *u.SectionID == f.SectionID {
				return true
			}
		case RuleDepartment:
			if u.DepartmentID != nil && *u.DepartmentID == f.DepartmentID {
				return true
			}
		}
	}
	return false
}

// AllowsSection проверяет секцию в памяти
func (f Filter) AllowsSection(s *domain.Section) bool {
	if f.Unrestricted {
		return true
	}
	for _, r := range f.Rules {
		switch r {
		case RuleSection:
			if s.ID == f.SectionID {
				return true
			}
		case RuleDepartment:
			if s.DepartmentID == f.DepartmentID {
				return true
			}
		}
	}
	return false
}

// AllowsNotification проверяет уведомление в памяти
func (f Filter) AllowsNotification(n *domain.Notification) bool {
	if f.Unrestricted {
		return true
	}
	return f.Has(RuleOwn) && n.UserID == f.UserID
}

func (f Filter) assigneeMatches(r Rule, assignees []domain.User) bool {
	for i := range assignees {
		a := &assignees[i]
		if r == RuleAssignee && a.ID == f.UserID {
			return true
		}
		if r == RuleSection && a.SectionID != nil && *a.SectionID == f.SectionID {
			return true
		}
	}
	return false
}
