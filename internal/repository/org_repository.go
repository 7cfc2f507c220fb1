package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/project-tracker-api/internal/domain"
	"github.com/project-tracker-api/internal/policy"
)

var (
	posteList = listFields{
		table:        "postes",
		search:       []string{"title", "code", "description"},
		ordering:     map[string]string{"title": "title", "code": "code", "hierarchy_level": "hierarchy_level"},
		defaultOrder: "hierarchy_level ASC, postes.title ASC",
		filters: map[string]field{
			"category":  {column: "category"},
			"is_active": {column: "is_active", kind: kindBool},
		},
	}
	departmentList = listFields{
		table:        "departments",
		search:       []string{"name", "code", "description"},
		ordering:     map[string]string{"name": "name", "code": "code", "created_at": "created_at"},
		defaultOrder: "name ASC",
		filters:      map[string]field{"code": {column: "code"}},
	}
	sectionList = listFields{
		table:        "sections",
		search:       []string{"name", "code", "description"},
		ordering:     map[string]string{"name": "name", "code": "code", "created_at": "created_at"},
		defaultOrder: "name ASC",
		filters: map[string]field{
			"department":  {column: "department_id", kind: kindInt},
			"responsible": {column: "responsible_id", kind: kindInt},
		},
	}
	competenceList = listFields{
		table:        "competences",
		search:       []string{"name", "description", "category"},
		ordering:     map[string]string{"name": "name", "category": "category"},
		defaultOrder: "name ASC",
		filters:      map[string]field{"category": {column: "category"}},
	}
)

// PosteRepository определяет интерфейс для работы с должностями
type PosteRepository interface {
	List(ctx context.Context, q ListQuery) ([]domain.Poste, int64, error)
	GetByID(ctx context.Context, id int64) (*domain.Poste, error)
	Create(ctx context.Context, p *domain.Poste) error
	Update(ctx context.Context, p *domain.Poste) error
	Delete(ctx context.Context, id int64) error
}

type posteRepository struct {
	db *gorm.DB
}

// NewPosteRepository создаёт новый экземпляр репозитория
func NewPosteRepository(db *gorm.DB) PosteRepository {
	return &posteRepository{db: db}
}

func (r *posteRepository) List(ctx context.Context, q ListQuery) ([]domain.Poste, int64, error) {
	return paginate[domain.Poste](ctx, r.db, posteList, q, nil)
}

func (r *posteRepository) GetByID(ctx context.Context, id int64) (*domain.Poste, error) {
	return findOne[domain.Poste](ctx, r.db, id, domain.ErrPosteNotFound, nil)
}

func (r *posteRepository) Create(ctx context.Context, p *domain.Poste) error {
	return uniqueAs(r.db.WithContext(ctx).Create(p).Error, "code", "poste with this code or title already exists")
}

func (r *posteRepository) Update(ctx context.Context, p *domain.Poste) error {
	return uniqueAs(r.db.WithContext(ctx).Save(p).Error, "code", "poste with this code or title already exists")
}

func (r *posteRepository) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("UPDATE users SET poste_id = NULL WHERE poste_id = ?", id).Error; err != nil {
			return err
		}
		return deleteByID[domain.Poste](ctx, tx, id, domain.ErrPosteNotFound)
	})
}

// DepartmentStats - сводка по департаменту
type DepartmentStats struct {
	Users          int64 `json:"total_users"`
	Sections       int64 `json:"total_sections"`
	Projects       int64 `json:"total_projects"`
	ActiveProjects int64 `json:"active_projects"`
	Tasks          int64 `json:"total_tasks"`
	CompletedTasks int64 `json:"completed_tasks"`
	CompletionRate int   `json:"completion_rate"`
	OverdueTasks   int64 `json:"overdue_tasks"`
}

// DepartmentRepository определяет интерфейс для работы с департаментами
type DepartmentRepository interface {
	List(ctx context.Context, q ListQuery) ([]domain.Department, int64, error)
	GetByID(ctx context.Context, id int64) (*domain.Department, error)
	Create(ctx context.Context, d *domain.Department) error
	Update(ctx context.Context, d *domain.Department) error
	Delete(ctx context.Context, id int64) error
	Stats(ctx context.Context, id int64, now time.Time) (*DepartmentStats, error)
}

type departmentRepository struct {
	db *gorm.DB
}

// NewDepartmentRepository создаёт новый экземпляр репозитория
func NewDepartmentRepository(db *gorm.DB) DepartmentRepository {
	return &departmentRepository{db: db}
}

func (r *departmentRepository) List(ctx context.Context, q ListQuery) ([]domain.Department, int64, error) {
	return paginate[domain.Department](ctx, r.db, departmentList, q, nil, "Sections")
}

func (r *departmentRepository) GetByID(ctx context.Context, id int64) (*domain.Department, error) {
	return findOne[domain.Department](ctx, r.db, id, domain.ErrDepartmentNotFound, nil, "Sections")
}

func (r *departmentRepository) Create(ctx context.Context, d *domain.Department) error {
	return uniqueAs(r.db.WithContext(ctx).Omit("Sections").Create(d).Error, "code", "department with this name or code already exists")
}

func (r *departmentRepository) Update(ctx context.Context, d *domain.Department) error {
	return uniqueAs(r.db.WithContext(ctx).Omit("Sections").Save(d).Error, "code", "department with this name or code already exists")
}

// Delete удаляет департамент вместе с секциями и проектами
func (r *departmentRepository) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var projectIDs []int64
		if err := tx.Model(&domain.Project{}).Where("department_id = ?", id).Pluck("id", &projectIDs).Error; err != nil {
			return err
		}
		for _, pid := range projectIDs {
			if err := deleteProjectTx(ctx, tx, pid); err != nil {
				return err
			}
		}
		for _, stmt := range []string{
			"UPDATE users SET section_id = NULL WHERE section_id IN (SELECT id FROM sections WHERE department_id = ?)",
			"UPDATE users SET department_id = NULL WHERE department_id = ?",
			"DELETE FROM sections WHERE department_id = ?",
		} {
			if err := tx.Exec(stmt, id).Error; err != nil {
				return err
			}
		}
		return deleteByID[domain.Department](ctx, tx, id, domain.ErrDepartmentNotFound)
	})
}

func (r *departmentRepository) Stats(ctx context.Context, id int64, now time.Time) (*DepartmentStats, error) {
	db := r.db.WithContext(ctx)
	stats := &DepartmentStats{}
	inDept := "project_id IN (SELECT id FROM projects WHERE department_id = ?)"

	counts := []struct {
		dest  *int64
		query *gorm.DB
	}{
		{&stats.Users, db.Model(&domain.User{}).Where("department_id = ? AND is_active = ?", id, true)},
		{&stats.Sections, db.Model(&domain.Section{}).Where("department_id = ?", id)},
		{&stats.Projects, db.Model(&domain.Project{}).Where("department_id = ?", id)},
		{&stats.ActiveProjects, db.Model(&domain.Project{}).Where("department_id = ? AND status = ?", id, domain.ProjectActive)},
		{&stats.Tasks, db.Model(&domain.Task{}).Where(inDept, id)},
		{&stats.CompletedTasks, db.Model(&domain.Task{}).Where(inDept, id).Where("is_completed = ?", true)},
		{&stats.OverdueTasks, db.Model(&domain.Task{}).Where(inDept, id).Where("is_completed = ? AND due_date < ?", false, now)},
	}
	for _, c := range counts {
		if err := c.query.Count(c.dest).Error; err != nil {
			return nil, err
		}
	}

	stats.CompletionRate = domain.ProgressOf(int(stats.CompletedTasks), int(stats.Tasks))
	return stats, nil
}

// SectionRepository определяет интерфейс для работы с секциями
type SectionRepository interface {
	List(ctx context.Context, f policy.Filter, q ListQuery) ([]domain.Section, int64, error)
	GetByID(ctx context.Context, id int64) (*domain.Section, error)
	GetVisible(ctx context.Context, f policy.Filter, id int64) (*domain.Section, error)
	Create(ctx context.Context, s *domain.Section) error
	Update(ctx context.Context, s *domain.Section) error
	Delete(ctx context.Context, id int64) error
}

type sectionRepository struct {
	db *gorm.DB
}

// NewSectionRepository создаёт новый экземпляр репозитория
func NewSectionRepository(db *gorm.DB) SectionRepository {
	return &sectionRepository{db: db}
}

func (r *sectionRepository) List(ctx context.Context, f policy.Filter, q ListQuery) ([]domain.Section, int64, error) {
	return paginate[domain.Section](ctx, r.db, sectionList, q, []Scope{Visible(f)}, "Department", "Responsible")
}

func (r *sectionRepository) GetByID(ctx context.Context, id int64) (*domain.Section, error) {
	return findOne[domain.Section](ctx, r.db, id, domain.ErrSectionNotFound, nil, "Department", "Responsible")
}

func (r *sectionRepository) GetVisible(ctx context.Context, f policy.Filter, id int64) (*domain.Section, error) {
	return findOne[domain.Section](ctx, r.db, id, domain.ErrSectionNotFound, []Scope{Visible(f)}, "Department", "Responsible")
}

func (r *sectionRepository) Create(ctx context.Context, s *domain.Section) error {
	return uniqueAs(r.db.WithContext(ctx).Omit("Department", "Responsible").Create(s).Error, "code", "section with this code already exists in the department")
}

func (r *sectionRepository) Update(ctx context.Context, s *domain.Section) error {
	return uniqueAs(r.db.WithContext(ctx).Omit("Department", "Responsible").Save(s).Error, "code", "section with this code already exists in the department")
}

func (r *sectionRepository) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("UPDATE users SET section_id = NULL WHERE section_id = ?", id).Error; err != nil {
			return err
		}
		return deleteByID[domain.Section](ctx, tx, id, domain.ErrSectionNotFound)
	})
}

// CompetenceRepository определяет интерфейс для работы с компетенциями
type CompetenceRepository interface {
	List(ctx context.Context, q ListQuery) ([]domain.Competence, int64, error)
	GetByID(ctx context.Context, id int64) (*domain.Competence, error)
	Create(ctx context.Context, c *domain.Competence) error
	Update(ctx context.Context, c *domain.Competence) error
	Delete(ctx context.Context, id int64) error
}

type competenceRepository struct {
	db *gorm.DB
}

// NewCompetenceRepository создаёт новый экземпляр репозитория
func NewCompetenceRepository(db *gorm.DB) CompetenceRepository {
	return &competenceRepository{db: db}
}

func (r *competenceRepository) List(ctx context.Context, q ListQuery) ([]domain.Competence, int64, error) {
	return paginate[domain.Competence](ctx, r.db, competenceList, q, nil)
}

func (r *competenceRepository) GetByID(ctx context.Context, id int64) (*domain.Competence, error) {
	return findOne[domain.Competence](ctx, r.db, id, domain.ErrCompetenceNotFound, nil)
}

func (r *competenceRepository) Create(ctx context.Context, c *domain.Competence) error {
	return uniqueAs(r.db.WithContext(ctx).Create(c).Error, "name", "competence with this name already exists")
}

func (r *competenceRepository) Update(ctx context.Context, c *domain.Competence) error {
	return uniqueAs(r.db.WithContext(ctx).Save(c).Error, "name", "competence with this name already exists")
}

func (r *competenceRepository) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM user_competences WHERE competence_id = ?", id).Error; err != nil {
			return err
		}
		return deleteByID[domain.Competence](ctx, tx, id, domain.ErrCompetenceNotFound)
	})
}

// uniqueAs превращает нарушение уникальности в ошибку валидации поля
func uniqueAs(err error, fieldName, message string) error {
	if isUniqueViolation(err) {
		return domain.NewValidationError(fieldName, message)
	}
	return err
}
