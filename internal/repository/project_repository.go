package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/project-tracker-api/internal/domain"
	"github.com/project-tracker-api/internal/policy"
)

var projectList = listFields{
	table:  "projects",
	search: []string{"name", "code", "description"},
	ordering: map[string]string{
		"name":       "name",
		"code":       "code",
		"priority":   "priority",
		"start_date": "start_date",
		"end_date":   "end_date",
		"created_at": "created_at",
	},
	defaultOrder: "created_at DESC",
	filters: map[string]field{
		"status":     {column: "status"},
		"department": {column: "department_id", kind: kindInt},
		"priority":   {column: "priority", kind: kindInt},
		"created_by": {column: "created_by_id", kind: kindInt},
	},
}

// TaskCounts - число задач проекта и завершённых из них
type TaskCounts struct {
	Total     int
	Completed int
}

// ProjectStats - сводка по видимым проектам
type ProjectStats struct {
	Total    int64            `json:"total"`
	ByStatus map[string]int64 `json:"by_status"`
	Overdue  int64            `json:"overdue"`
}

// ProjectRepository определяет интерфейс для работы с проектами
type ProjectRepository interface {
	List(ctx context.Context, f policy.Filter, q ListQuery) ([]domain.Project, int64, error)
	GetVisible(ctx context.Context, f policy.Filter, id int64) (*domain.Project, error)
	GetByID(ctx context.Context, id int64) (*domain.Project, error)
	Create(ctx context.Context, p *domain.Project, coordinatorIDs []int64) error
	Update(ctx context.Context, p *domain.Project, coordinatorIDs []int64) error
	Delete(ctx context.Context, id int64) error
	ExistsByCode(ctx context.Context, code string, excludeID *int64) (bool, error)
	TaskCounts(ctx context.Context, ids []int64) (map[int64]TaskCounts, error)
	Stats(ctx context.Context, f policy.Filter, now time.Time) (*ProjectStats, error)
}

type projectRepository struct {
	db *gorm.DB
}

// NewProjectRepository создаёт новый экземпляр репозитория
func NewProjectRepository(db *gorm.DB) ProjectRepository {
	return &projectRepository{db: db}
}

var projectPreloads = []string{"Department", "CreatedBy", "Coordinators"}

func (r *projectRepository) List(ctx context.Context, f policy.Filter, q ListQuery) ([]domain.Project, int64, error) {
	return paginate[domain.Project](ctx, r.db, projectList, q, []Scope{Visible(f)}, projectPreloads...)
}

func (r *projectRepository) GetVisible(ctx context.Context, f policy.Filter, id int64) (*domain.Project, error) {
	return findOne[domain.Project](ctx, r.db, id, domain.ErrProjectNotFound, []Scope{Visible(f)}, projectPreloads...)
}

func (r *projectRepository) GetByID(ctx context.Context, id int64) (*domain.Project, error) {
	return findOne[domain.Project](ctx, r.db, id, domain.ErrProjectNotFound, nil, projectPreloads...)
}

func (r *projectRepository) Create(ctx context.Context, p *domain.Project, coordinatorIDs []int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Department", "CreatedBy", "Coordinators", "Tasks").Create(p).Error; err != nil {
			return uniqueAs(err, "code", "project with this code already exists")
		}
		return replaceUsers(tx, p, "Coordinators", coordinatorIDs, &p.Coordinators, "coordinators")
	})
}

// Update сохраняет проект; coordinatorIDs == nil оставляет координаторов без изменений
func (r *projectRepository) Update(ctx context.Context, p *domain.Project, coordinatorIDs []int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Department", "CreatedBy", "Coordinators", "Tasks").Save(p).Error; err != nil {
			return uniqueAs(err, "code", "project with this code already exists")
		}
		if coordinatorIDs == nil {
			return nil
		}
		return replaceUsers(tx, p, "Coordinators", coordinatorIDs, &p.Coordinators, "coordinators")
	})
}

func (r *projectRepository) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return deleteProjectTx(ctx, tx, id)
	})
}

func (r *projectRepository) ExistsByCode(ctx context.Context, code string, excludeID *int64) (bool, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&domain.Project{}).Where("code = ?", code)
	if excludeID != nil {
		query = query.Where("id != ?", *excludeID)
	}
	err := query.Count(&count).Error
	return count > 0, err
}

func (r *projectRepository) TaskCounts(ctx context.Context, ids []int64) (map[int64]TaskCounts, error) {
	out := make(map[int64]TaskCounts, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	var rows []struct {
		ProjectID int64
		Total     int
		Completed int
	}
	err := r.db.WithContext(ctx).Model(&domain.Task{}).
		Select("project_id, COUNT(*) AS total, SUM(CASE WHEN is_completed THEN 1 ELSE 0 END) AS completed").
		Where("project_id IN ?", ids).
		Group("project_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.ProjectID] = TaskCounts{Total: row.Total, Completed: row.Completed}
	}
	return out, nil
}

func (r *projectRepository) Stats(ctx context.Context, f policy.Filter, now time.Time) (*ProjectStats, error) {
	stats := &ProjectStats{ByStatus: map[string]int64{}}
	base := func() *gorm.DB { return r.db.WithContext(ctx).Model(&domain.Project{}).Scopes(Visible(f)) }

	if err := base().Count(&stats.Total).Error; err != nil {
		return nil, err
	}

	var rows []struct {
		Status string
		Count  int64
	}
	if err := base().Select("projects.status AS status, COUNT(*) AS count").Group("projects.status").Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		stats.ByStatus[row.Status] = row.Count
	}

	err := base().
		Where("projects.end_date < ?", now).
		Where("projects.status NOT IN ?", []domain.ProjectStatus{domain.ProjectCompleted, domain.ProjectCancelled}).
		Count(&stats.Overdue).Error
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// deleteProjectTx удаляет проект и всё, что от него зависит
func deleteProjectTx(ctx context.Context, tx *gorm.DB, id int64) error {
	var taskIDs []int64
	if err := tx.Model(&domain.Task{}).Where("project_id = ?", id).Pluck("id", &taskIDs).Error; err != nil {
		return err
	}
	if err := deleteTasksTx(tx, taskIDs); err != nil {
		return err
	}
	for _, stmt := range []string{
		"DELETE FROM notifications WHERE project_id = ?",
		"DELETE FROM project_coordinators WHERE project_id = ?",
	} {
		if err := tx.Exec(stmt, id).Error; err != nil {
			return err
		}
	}
	return deleteByID[domain.Project](ctx, tx, id, domain.ErrProjectNotFound)
}

// replaceUsers заменяет связь many2many набором пользователей по id.
// Неизвестный id даёт ошибку валидации поля fieldName.
func replaceUsers(tx *gorm.DB, owner any, association string, ids []int64, dest *[]domain.User, fieldName string) error {
	ids = uniqueIDs(ids)
	users := []domain.User{}
	if len(ids) > 0 {
		if err := tx.Where("id IN ?", ids).Order("id ASC").Find(&users).Error; err != nil {
			return err
		}
		if len(users) != len(ids) {
			return domain.NewValidationError(fieldName, "unknown user id")
		}
	}
	if err := tx.Model(owner).Association(association).Replace(users); err != nil {
		return err
	}
	*dest = users
	return nil
}
