package repository

import (
	"strings"

	"gorm.io/gorm"

	"github.com/project-tracker-api/internal/policy"
)

const (
	taskIDsOfAssignee = "SELECT task_id FROM task_assignees WHERE user_id = ?"
	taskIDsOfSection  = "SELECT ta.task_id FROM task_assignees ta JOIN users su ON su.id = ta.user_id WHERE su.section_id = ?"
)

// Visible переводит фильтр видимости в SQL. Пустой фильтр даёт пустой результат.
func Visible(f policy.Filter) Scope {
	return func(db *gorm.DB) *gorm.DB {
		if f.Unrestricted {
			return db
		}
		sql, args := conditions(f)
		if sql == "" {
			return db.Where("1 = 0")
		}
		return db.Where(sql, args...)
	}
}

func conditions(f policy.Filter) (string, []any) {
	var parts []string
	var args []any
	add := func(sql string, arg any) {
		parts = append(parts, sql)
		args = append(args, arg)
	}

	switch f.Resource {
	case policy.ResourceProject:
		for _, r := range f.Rules {
			switch r {
			case policy.RuleDepartment:
				add("projects.department_id = ?", f.DepartmentID)
			case policy.RuleCoordinator:
				add("projects.id IN (SELECT project_id FROM project_coordinators WHERE user_id = ?)", f.UserID)
			case policy.RuleAssignee:
				add("projects.id IN (SELECT project_id FROM tasks WHERE id IN ("+taskIDsOfAssignee+"))", f.UserID)
			case policy.RuleSection:
				add("projects.id IN (SELECT project_id FROM tasks WHERE id IN ("+taskIDsOfSection+"))", f.SectionID)
			}
		}

	case policy.ResourceTask:
		return taskConditions(f, "tasks")

	case policy.ResourceComment, policy.ResourceAttachment:
		table := "task_comments"
		if f.Resource == policy.ResourceAttachment {
			table = "task_attachments"
		}
		if f.Unrestricted {
			return "", nil
		}
		sql, a := taskConditions(f, "vt")
		if sql == "" {
			return "", nil
		}
		return table + ".task_id IN (SELECT vt.id FROM tasks vt WHERE " + sql + ")", a

	case policy.ResourceUser:
		for _, r := range f.Rules {
			switch r {
			case policy.RuleOwn:
				add("users.id = ?", f.UserID)
			case policy.RuleSection:
				add("users.section_id = ?", f.SectionID)
			case policy.RuleDepartment:
				add("users.department_id = ?", f.DepartmentID)
			}
		}

	case policy.ResourceSection:
		for _, r := range f.Rules {
			switch r {
			case policy.RuleSection:
				add("sections.id = ?", f.SectionID)
			case policy.RuleDepartment:
				add("sections.department_id = ?", f.DepartmentID)
			}
		}

	case policy.ResourceNotification:
		if f.Has(policy.RuleOwn) {
			add("notifications.user_id = ?", f.UserID)
		}
	}

	if len(parts) == 0 {
		return "", nil
	}
	return "(" + strings.Join(parts, " OR ") + ")", args
}

func taskConditions(f policy.Filter, table string) (string, []any) {
	var parts []string
	var args []any
	for _, r := range f.Rules {
		switch r {
		case policy.RuleDepartment:
			parts = append(parts, table+".project_id IN (SELECT id FROM projects WHERE department_id = ?)")
			args = append(args, f.DepartmentID)
		case policy.RuleAssignee:
			parts = append(parts, table+".id IN ("+taskIDsOfAssignee+")")
			args = append(args, f.UserID)
		case policy.RuleSection:
			parts = append(parts, table+".id IN ("+taskIDsOfSection+")")
			args = append(args, f.SectionID)
		}
	}
	if len(parts) == 0 {
		return "", nil
	}
	return "(" + strings.Join(parts, " OR ") + ")", args
}
