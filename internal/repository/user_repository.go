package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/project-tracker-api/internal/domain"
	"github.com/project-tracker-api/internal/policy"
)

var userList = listFields{
	table:  "users",
	search: []string{"first_name", "last_name", "email"},
	ordering: map[string]string{
		"id":          "id",
		"email":       "email",
		"first_name":  "first_name",
		"last_name":   "last_name",
		"date_joined": "date_joined",
		"role":        "role",
	},
	defaultOrder: "last_name ASC, users.first_name ASC",
	filters: map[string]field{
		"role":       {column: "role"},
		"department": {column: "department_id", kind: kindInt},
		"section":    {column: "section_id", kind: kindInt},
		"poste":      {column: "poste_id", kind: kindInt},
		"is_active":  {column: "is_active", kind: kindBool},
	},
}

// UserStats - сводка по пользователям
type UserStats struct {
	Total        int64            `json:"total"`
	Active       int64            `json:"active"`
	ByRole       map[string]int64 `json:"by_role"`
	ByDepartment map[string]int64 `json:"by_department"`
}

// UserRepository определяет интерфейс для работы с пользователями
type UserRepository interface {
	List(ctx context.Context, f policy.Filter, q ListQuery) ([]domain.User, int64, error)
	ListAll(ctx context.Context, f policy.Filter) ([]domain.User, error)
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	GetVisible(ctx context.Context, f policy.Filter, id int64) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByIDs(ctx context.Context, ids []int64) ([]domain.User, error)
	Create(ctx context.Context, u *domain.User, competenceIDs []int64) error
	Update(ctx context.Context, u *domain.User, competenceIDs []int64) error
	Delete(ctx context.Context, id int64) error
	ExistsByEmail(ctx context.Context, email string, excludeID *int64) (bool, error)
	TouchLastLogin(ctx context.Context, id int64, at time.Time) error
	Stats(ctx context.Context, f policy.Filter) (*UserStats, error)
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository создаёт новый экземпляр репозитория
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

var userPreloads = []string{"Poste", "Department", "Section", "Competences"}

func (r *userRepository) List(ctx context.Context, f policy.Filter, q ListQuery) ([]domain.User, int64, error) {
	return paginate[domain.User](ctx, r.db, userList, q, []Scope{Visible(f)}, userPreloads...)
}

func (r *userRepository) ListAll(ctx context.Context, f policy.Filter) ([]domain.User, error) {
	var users []domain.User
	err := r.db.WithContext(ctx).
		Scopes(Visible(f)).
		Where("users.is_active = ?", true).
		Preload("Poste").Preload("Department").Preload("Section").
		Order("users.last_name ASC, users.first_name ASC").
		Find(&users).Error
	return users, err
}

func (r *userRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	return findOne[domain.User](ctx, r.db, id, domain.ErrUserNotFound, nil, userPreloads...)
}

func (r *userRepository) GetVisible(ctx context.Context, f policy.Filter, id int64) (*domain.User, error) {
	return findOne[domain.User](ctx, r.db, id, domain.ErrUserNotFound, []Scope{Visible(f)}, userPreloads...)
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	var u domain.User
	err := r.db.WithContext(ctx).Preload("Poste").Where("LOWER(email) = LOWER(?)", email).First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (r *userRepository) FindByIDs(ctx context.Context, ids []int64) ([]domain.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var users []domain.User
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Order("id ASC").Find(&users).Error
	return users, err
}

// Create сохраняет пользователя и его компетенции в одной транзакции
func (r *userRepository) Create(ctx context.Context, u *domain.User, competenceIDs []int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := checkUserRefs(tx, u); err != nil {
			return err
		}
		if err := tx.Omit("Poste", "Department", "Section", "Competences").Create(u).Error; err != nil {
			return uniqueAs(err, "email", "user with this email already exists")
		}
		if len(competenceIDs) == 0 {
			return nil
		}
		return replaceCompetences(tx, u, competenceIDs)
	})
}

// Update сохраняет пользователя; competenceIDs == nil оставляет компетенции без изменений
func (r *userRepository) Update(ctx context.Context, u *domain.User, competenceIDs []int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := checkUserRefs(tx, u); err != nil {
			return err
		}
		if err := tx.Omit("Poste", "Department", "Section", "Competences").Save(u).Error; err != nil {
			return uniqueAs(err, "email", "user with this email already exists")
		}
		if competenceIDs == nil {
			return nil
		}
		return replaceCompetences(tx, u, competenceIDs)
	})
}

// checkUserRefs проверяет, что должность, департамент и секция существуют
func checkUserRefs(tx *gorm.DB, u *domain.User) error {
	refs := []struct {
		field, message string
		id             *int64
		model          any
	}{
		{"poste_id", "poste does not exist", u.PosteID, &domain.Poste{}},
		{"department_id", "department does not exist", u.DepartmentID, &domain.Department{}},
		{"section_id", "section does not exist", u.SectionID, &domain.Section{}},
	}

	verr := &domain.ValidationError{}
	for _, ref := range refs {
		if ref.id == nil {
			continue
		}
		var count int64
		if err := tx.Model(ref.model).Where("id = ?", *ref.id).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			verr.Add(ref.field, ref.message)
		}
	}
	if verr.Empty() {
		return nil
	}
	return verr
}

func replaceCompetences(tx *gorm.DB, u *domain.User, ids []int64) error {
	ids = uniqueIDs(ids)
	competences := []domain.Competence{}
	if len(ids) > 0 {
		if err := tx.Where("id IN ?", ids).Find(&competences).Error; err != nil {
			return err
		}
		if len(competences) != len(ids) {
			return domain.NewValidationError("competences", "unknown competence id")
		}
	}
	if err := tx.Model(u).Association("Competences").Replace(competences); err != nil {
		return err
	}
	u.Competences = competences
	return nil
}

func (r *userRepository) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, stmt := range []string{
			"DELETE FROM user_competences WHERE user_id = ?",
			"DELETE FROM task_assignees WHERE user_id = ?",
			"DELETE FROM project_coordinators WHERE user_id = ?",
			"DELETE FROM notifications WHERE user_id = ?",
			"DELETE FROM user_activities WHERE user_id = ?",
		} {
			if err := tx.Exec(stmt, id).Error; err != nil {
				return err
			}
		}
		for _, stmt := range []string{
			"UPDATE sections SET responsible_id = NULL WHERE responsible_id = ?",
			"UPDATE projects SET created_by_id = NULL WHERE created_by_id = ?",
			"UPDATE tasks SET created_by_id = NULL WHERE created_by_id = ?",
			"UPDATE users SET created_by_id = NULL WHERE created_by_id = ?",
		} {
			if err := tx.Exec(stmt, id).Error; err != nil {
				return err
			}
		}
		return deleteByID[domain.User](ctx, tx, id, domain.ErrUserNotFound)
	})
}

func (r *userRepository) ExistsByEmail(ctx context.Context, email string, excludeID *int64) (bool, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&domain.User{}).Where("LOWER(email) = LOWER(?)", email)
	if excludeID != nil {
		query = query.Where("id != ?", *excludeID)
	}
	err := query.Count(&count).Error
	return count > 0, err
}

func (r *userRepository) TouchLastLogin(ctx context.Context, id int64, at time.Time) error {
	return r.db.WithContext(ctx).Model(&domain.User{}).Where("id = ?", id).Update("last_login", at).Error
}

func (r *userRepository) Stats(ctx context.Context, f policy.Filter) (*UserStats, error) {
	stats := &UserStats{ByRole: map[string]int64{}, ByDepartment: map[string]int64{}}
	base := func() *gorm.DB { return r.db.WithContext(ctx).Model(&domain.User{}).Scopes(Visible(f)) }

	if err := base().Count(&stats.Total).Error; err != nil {
		return nil, err
	}
	if err := base().Where("users.is_active = ?", true).Count(&stats.Active).Error; err != nil {
		return nil, err
	}

	var byRole []struct {
		Role  string
		Count int64
	}
	if err := base().Select("users.role AS role, COUNT(*) AS count").Group("users.role").Scan(&byRole).Error; err != nil {
		return nil, err
	}
	for _, row := range byRole {
		stats.ByRole[row.Role] = row.Count
	}

	var byDept []struct {
		Name  string
		Count int64
	}
	err := base().
		Select("departments.name AS name, COUNT(*) AS count").
		Joins("JOIN departments ON departments.id = users.department_id").
		Group("departments.name").
		Scan(&byDept).Error
	if err != nil {
		return nil, err
	}
	for _, row := range byDept {
		stats.ByDepartment[row.Name] = row.Count
	}

	return stats, nil
}

func uniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
