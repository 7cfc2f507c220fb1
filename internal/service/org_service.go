package service

import (
	"context"
	"time"

	"github.com/project-tracker-api/internal/domain"
	"github.com/project-tracker-api/internal/dto"
	"github.com/project-tracker-api/internal/policy"
	"github.com/project-tracker-api/internal/repository"
)

// PosteService определяет операции над должностями
type PosteService interface {
	List(ctx context.Context, actor *domain.User, q repository.ListQuery) ([]domain.Poste, int64, error)
	Get(ctx context.Context, actor *domain.User, id int64) (*domain.Poste, error)
	Create(ctx context.Context, actor *domain.User, req *dto.PosteRequest) (*domain.Poste, error)
	Update(ctx context.Context, actor *domain.User, id int64, req *dto.PosteRequest) (*domain.Poste, error)
	Delete(ctx context.Context, actor *domain.User, id int64) error
}

type posteService struct {
	repo repository.PosteRepository
}

// NewPosteService создаёт новый экземпляр сервиса
func NewPosteService(repo repository.PosteRepository) PosteService {
	return &posteService{repo: repo}
}

func (s *posteService) List(ctx context.Context, actor *domain.User, q repository.ListQuery) ([]domain.Poste, int64, error) {
	if err := policy.Authorize(actor, policy.ActionList, policy.ResourcePoste, nil); err != nil {
		return nil, 0, err
	}
	return s.repo.List(ctx, q)
}

func (s *posteService) Get(ctx context.Context, actor *domain.User, id int64) (*domain.Poste, error) {
	if err := policy.Authorize(actor, policy.ActionRetrieve, policy.ResourcePoste, nil); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, id)
}

func (s *posteService) Create(ctx context.Context, actor *domain.User, req *dto.PosteRequest) (*domain.Poste, error) {
	if err := policy.Authorize(actor, policy.ActionCreate, policy.ResourcePoste, nil); err != nil {
		return nil, err
	}
	p := &domain.Poste{IsActive: true}
	applyPoste(p, req)
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *posteService) Update(ctx context.Context, actor *domain.User, id int64, req *dto.PosteRequest) (*domain.Poste, error) {
	if err := policy.Authorize(actor, policy.ActionUpdate, policy.ResourcePoste, nil); err != nil {
		return nil, err
	}
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	applyPoste(p, req)
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *posteService) Delete(ctx context.Context, actor *domain.User, id int64) error {
	if err := policy.Authorize(actor, policy.ActionDelete, policy.ResourcePoste, nil); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}

func applyPoste(p *domain.Poste, req *dto.PosteRequest) {
	p.Title = req.Title
	p.Code = req.Code
	p.Category = orDefault(req.Category, "other")
	p.Description = req.Description
	p.HierarchyLevel = req.HierarchyLevel
	setBool(&p.IsActive, req.IsActive)
	p.CanManageTeam = req.CanManageTeam
	p.CanCreateProjects = req.CanCreateProjects
	p.CanValidateTasks = req.CanValidateTasks
}

// DepartmentService определяет операции над департаментами
type DepartmentService interface {
	List(ctx context.Context, actor *domain.User, q repository.ListQuery) ([]domain.Department, int64, error)
	Get(ctx context.Context, actor *domain.User, id int64) (*domain.Department, error)
	Create(ctx context.Context, actor *domain.User, req *dto.DepartmentRequest) (*domain.Department, error)
	Update(ctx context.Context, actor *domain.User, id int64, req *dto.DepartmentRequest) (*domain.Department, error)
	Delete(ctx context.Context, actor *domain.User, id int64) error
	Users(ctx context.Context, actor *domain.User, id int64) ([]domain.User, error)
	Stats(ctx context.Context, actor *domain.User, id int64) (*repository.DepartmentStats, error)
}

type departmentService struct {
	depts repository.DepartmentRepository
	users repository.UserRepository
	now   func() time.Time
}

// NewDepartmentService создаёт новый экземпляр сервиса
func NewDepartmentService(depts repository.DepartmentRepository, users repository.UserRepository) DepartmentService {
	return &departmentService{depts: depts, users: users, now: time.Now}
}

func (s *departmentService) List(ctx context.Context, actor *domain.User, q repository.ListQuery) ([]domain.Department, int64, error) {
	if err := policy.Authorize(actor, policy.ActionList, policy.ResourceDepartment, nil); err != nil {
		return nil, 0, err
	}
	return s.depts.List(ctx, q)
}

func (s *departmentService) Get(ctx context.Context, actor *domain.User, id int64) (*domain.Department, error) {
	if err := policy.Authorize(actor, policy.ActionRetrieve, policy.ResourceDepartment, nil); err != nil {
		return nil, err
	}
	return s.depts.GetByID(ctx, id)
}

func (s *departmentService) Create(ctx context.Context, actor *domain.User, req *dto.DepartmentRequest) (*domain.Department, error) {
	if err := policy.Authorize(actor, policy.ActionCreate, policy.ResourceDepartment, nil); err != nil {
		return nil, err
	}
	d := &domain.Department{Name: req.Name, Code: req.Code, Description: req.Description}
	if err := s.depts.Create(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

func (s *departmentService) Update(ctx context.Context, actor *domain.User, id int64, req *dto.DepartmentRequest) (*domain.Department, error) {
	if err := policy.Authorize(actor, policy.ActionUpdate, policy.ResourceDepartment, nil); err != nil {
		return nil, err
	}
	d, err := s.depts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	d.Name, d.Code, d.Description = req.Name, req.Code, req.Description
	if err := s.depts.Update(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

func (s *departmentService) Delete(ctx context.Context, actor *domain.User, id int64) error {
	if err := policy.Authorize(actor, policy.ActionDelete, policy.ResourceDepartment, nil); err != nil {
		return err
	}
	return s.depts.Delete(ctx, id)
}

// scoped загружает департамент и проверяет, что он свой для actor
func (s *departmentService) scoped(ctx context.Context, actor *domain.User, id int64) (*domain.Department, error) {
	if err := policy.Authorize(actor, policy.ActionStats, policy.ResourceDepartment, nil); err != nil {
		return nil, err
	}
	d, err := s.depts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !policy.CheckObjectScope(actor, d) {
		return nil, domain.ErrForbidden
	}
	return d, nil
}

func (s *departmentService) Users(ctx context.Context, actor *domain.User, id int64) ([]domain.User, error) {
	d, err := s.scoped(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	f := policy.Filter{Resource: policy.ResourceUser, Rules: []policy.Rule{policy.RuleDepartment}, DepartmentID: d.ID}
	return s.users.ListAll(ctx, f)
}

func (s *departmentService) Stats(ctx context.Context, actor *domain.User, id int64) (*repository.DepartmentStats, error) {
	d, err := s.scoped(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	return s.depts.Stats(ctx, d.ID, s.now())
}

// SectionService определяет операции над секциями
type SectionService interface {
	List(ctx context.Context, actor *domain.User, q repository.ListQuery) ([]domain.Section, int64, error)
	Get(ctx context.Context, actor *domain.User, id int64) (*domain.Section, error)
	Create(ctx context.Context, actor *domain.User, req *dto.SectionRequest) (*domain.Section, error)
	Update(ctx context.Context, actor *domain.User, id int64, req *dto.SectionRequest) (*domain.Section, error)
	Delete(ctx context.Context, actor *domain.User, id int64) error
	Users(ctx context.Context, actor *domain.User, id int64) ([]domain.User, error)
}

type sectionService struct {
	sections repository.SectionRepository
	depts    repository.DepartmentRepository
	users    repository.UserRepository
}

// NewSectionService создаёт новый экземпляр сервиса
func NewSectionService(
	sections repository.SectionRepository,
	depts repository.DepartmentRepository,
	users repository.UserRepository,
) SectionService {
	return &sectionService{sections: sections, depts: depts, users: users}
}

func (s *sectionService) List(ctx context.Context, actor *domain.User, q repository.ListQuery) ([]domain.Section, int64, error) {
	if err := policy.Authorize(actor, policy.ActionList, policy.ResourceSection, nil); err != nil {
		return nil, 0, err
	}
	return s.sections.List(ctx, policy.VisibilityFilter(actor, policy.ResourceSection), q)
}

func (s *sectionService) Get(ctx context.Context, actor *domain.User, id int64) (*domain.Section, error) {
	if err := policy.Authorize(actor, policy.ActionRetrieve, policy.ResourceSection, nil); err != nil {
		return nil, err
	}
	return s.sections.GetVisible(ctx, policy.VisibilityFilter(actor, policy.ResourceSection), id)
}

func (s *sectionService) Create(ctx context.Context, actor *domain.User, req *dto.SectionRequest) (*domain.Section, error) {
	if err := policy.Authorize(actor, policy.ActionCreate, policy.ResourceSection, nil); err != nil {
		return nil, err
	}
	sec := &domain.Section{}
	if err := s.apply(ctx, sec, req); err != nil {
		return nil, err
	}
	if err := s.sections.Create(ctx, sec); err != nil {
		return nil, err
	}
	return s.sections.GetByID(ctx, sec.ID)
}

func (s *sectionService) Update(ctx context.Context, actor *domain.User, id int64, req *dto.SectionRequest) (*domain.Section, error) {
	if err := policy.Authorize(actor, policy.ActionUpdate, policy.ResourceSection, nil); err != nil {
		return nil, err
	}
	sec, err := s.sections.GetVisible(ctx, policy.VisibilityFilter(actor, policy.ResourceSection), id)
	if err != nil {
		return nil, err
	}
	if err := s.apply(ctx, sec, req); err != nil {
		return nil, err
	}
	if err := s.sections.Update(ctx, sec); err != nil {
		return nil, err
	}
	return s.sections.GetByID(ctx, sec.ID)
}

func (s *sectionService) Delete(ctx context.Context, actor *domain.User, id int64) error {
	if err := policy.Authorize(actor, policy.ActionDelete, policy.ResourceSection, nil); err != nil {
		return err
	}
	sec, err := s.sections.GetVisible(ctx, policy.VisibilityFilter(actor, policy.ResourceSection), id)
	if err != nil {
		return err
	}
	return s.sections.Delete(ctx, sec.ID)
}

func (s *sectionService) Users(ctx context.Context, actor *domain.User, id int64) ([]domain.User, error) {
	if err := policy.Authorize(actor, policy.ActionRetrieve, policy.ResourceSection, nil); err != nil {
		return nil, err
	}
	sec, err := s.sections.GetVisible(ctx, policy.VisibilityFilter(actor, policy.ResourceSection), id)
	if err != nil {
		return nil, err
	}
	if !policy.CheckObjectScope(actor, sec) {
		return nil, domain.ErrForbidden
	}
	f := policy.Filter{Resource: policy.ResourceUser, Rules: []policy.Rule{policy.RuleSection}, SectionID: sec.ID}
	return s.users.ListAll(ctx, f)
}

// apply переносит поля запроса; ссылки на департамент и ответственного
// проверяются как ошибки валидации
func (s *sectionService) apply(ctx context.Context, sec *domain.Section, req *dto.SectionRequest) error {
	if _, err := s.depts.GetByID(ctx, req.DepartmentID); err != nil {
		if isNotFound(err) {
			return domain.NewValidationError("department_id", "department does not exist")
		}
		return err
	}
	if req.ResponsibleID != nil {
		if _, err := s.users.GetByID(ctx, *req.ResponsibleID); err != nil {
			if isNotFound(err) {
				return domain.NewValidationError("responsible_id", "user does not exist")
			}
			return err
		}
	}
	sec.Name = req.Name
	sec.Code = req.Code
	sec.DepartmentID = req.DepartmentID
	sec.ResponsibleID = req.ResponsibleID
	sec.Description = req.Description
	sec.Department = nil
	sec.Responsible = nil
	return nil
}

// CompetenceService определяет операции над компетенциями
type CompetenceService interface {
	List(ctx context.Context, actor *domain.User, q repository.ListQuery) ([]domain.Competence, int64, error)
	Get(ctx context.Context, actor *domain.User, id int64) (*domain.Competence, error)
	Create(ctx context.Context, actor *domain.User, req *dto.CompetenceRequest) (*domain.Competence, error)
	Update(ctx context.Context, actor *domain.User, id int64, req *dto.CompetenceRequest) (*domain.Competence, error)
	Delete(ctx context.Context, actor *domain.User, id int64) error
}

type competenceService struct {
	repo repository.CompetenceRepository
}

// NewCompetenceService создаёт новый экземпляр сервиса
func NewCompetenceService(repo repository.CompetenceRepository) CompetenceService {
	return &competenceService{repo: repo}
}

func (s *competenceService) List(ctx context.Context, actor *domain.User, q repository.ListQuery) ([]domain.Competence, int64, error) {
	if err := policy.Authorize(actor, policy.ActionList, policy.ResourceCompetence, nil); err != nil {
		return nil, 0, err
	}
	return s.repo.List(ctx, q)
}

func (s *competenceService) Get(ctx context.Context, actor *domain.User, id int64) (*domain.Competence, error) {
	if err := policy.Authorize(actor, policy.ActionRetrieve, policy.ResourceCompetence, nil); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, id)
}

func (s *competenceService) Create(ctx context.Context, actor *domain.User, req *dto.CompetenceRequest) (*domain.Competence, error) {
	if err := policy.Authorize(actor, policy.ActionCreate, policy.ResourceCompetence, nil); err != nil {
		return nil, err
	}
	c := &domain.Competence{Name: req.Name, Description: req.Description, Category: req.Category}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *competenceService) Update(ctx context.Context, actor *domain.User, id int64, req *dto.CompetenceRequest) (*domain.Competence, error) {
	if err := policy.Authorize(actor, policy.ActionUpdate, policy.ResourceCompetence, nil); err != nil {
		return nil, err
	}
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	c.Name, c.Description, c.Category = req.Name, req.Description, req.Category
	if err := s.repo.Update(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *competenceService) Delete(ctx context.Context, actor *domain.User, id int64) error {
	if err := policy.Authorize(actor, policy.ActionDelete, policy.ResourceCompetence, nil); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}
