package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/project-tracker-api/internal/auth"
	"github.com/project-tracker-api/internal/database"
	"github.com/project-tracker-api/internal/domain"
	"github.com/project-tracker-api/internal/repository"
)

type options struct {
	password        string
	reset           bool
	tasksPerProject int
}

// summary - сколько записей создано
type summary struct {
	Departments int
	Users       int
	Projects    int
	Tasks       int
}

type posteSeed struct {
	title, code, category string
	level                 int
	createProjects        *bool
}

type departmentSeed struct {
	name, code string
	sections   []string
}

var (
	no = new(bool)

	postes = []posteSeed{
		{"Directeur", "DIR", "direction", 1, nil},
		{"Coordinateur", "COORD", "management", 2, nil},
		{"Chef de section", "CHEF", "management", 3, nil},
		{"Ingénieur", "ING", "technical", 4, nil},
		{"Assistant", "ASSIST", "administrative", 5, no},
	}

	departments = []departmentSeed{
		{"Informatique", "IT", []string{"Développement", "Infrastructure"}},
		{"Ressources humaines", "RH", []string{"Recrutement"}},
		{"Finance", "FIN", []string{"Comptabilité", "Contrôle"}},
	}

	competences = []domain.Competence{
		{Name: "Go", Category: "technical"},
		{Name: "PostgreSQL", Category: "technical"},
		{Name: "Gestion de projet", Category: "management"},
		{Name: "Communication", Category: "soft"},
	}

	taskTitles = []string{
		"Analyse des besoins",
		"Maquettes",
		"Implémentation",
		"Recette",
		"Documentation",
		"Mise en production",
	}
)

type seeder struct {
	db     *gorm.DB
	opts   options
	logger *slog.Logger
	now    time.Time

	postes      repository.PosteRepository
	depts       repository.DepartmentRepository
	sections    repository.SectionRepository
	competences repository.CompetenceRepository
	users       repository.UserRepository
	projects    repository.ProjectRepository
	tasks       repository.TaskRepository
}

func newSeeder(db *gorm.DB, opts options, logger *slog.Logger) *seeder {
	return &seeder{
		db:          db,
		opts:        opts,
		logger:      logger,
		now:         time.Now().UTC(),
		postes:      repository.NewPosteRepository(db),
		depts:       repository.NewDepartmentRepository(db),
		sections:    repository.NewSectionRepository(db),
		competences: repository.NewCompetenceRepository(db),
		users:       repository.NewUserRepository(db),
		projects:    repository.NewProjectRepository(db),
		tasks:       repository.NewTaskRepository(db),
	}
}

// Run наполняет базу; возвращает nil без ошибки, если пользователи уже есть
// и сброс не запрошен
func (s *seeder) Run(ctx context.Context) (*summary, error) {
	if s.opts.reset {
		if err := database.Reset(s.db); err != nil {
			return nil, err
		}
		s.logger.Info("existing data removed")
	} else {
		var count int64
		if err := s.db.WithContext(ctx).Model(&domain.User{}).Count(&count).Error; err != nil {
			return nil, fmt.Errorf("failed to count users: %w", err)
		}
		if count > 0 {
			return nil, nil
		}
	}

	hash, err := auth.HashPassword(s.opts.password)
	if err != nil {
		return nil, err
	}

	postesByCode := make(map[string]*domain.Poste, len(postes))
	for _, p := range postes {
		poste := &domain.Poste{Title: p.title, Code: p.code, Category: p.category, HierarchyLevel: p.level,
			IsActive: true, CanCreateProjects: p.createProjects}
		if err := s.postes.Create(ctx, poste); err != nil {
			return nil, fmt.Errorf("failed to create poste %s: %w", p.code, err)
		}
		postesByCode[p.code] = poste
	}

	competenceIDs := make([]int64, 0, len(competences))
	for i := range competences {
		c := competences[i]
		if err := s.competences.Create(ctx, &c); err != nil {
			return nil, fmt.Errorf("failed to create competence %s: %w", c.Name, err)
		}
		competenceIDs = append(competenceIDs, c.ID)
	}

	sum := &summary{}
	newUser := func(first, last string, role domain.Role, poste string, dept, section *int64, skills []int64) (*domain.User, error) {
		u := &domain.User{
			Email:        strings.ToLower(first+"."+last) + "@example.com",
			PasswordHash: hash,
			FirstName:    first,
			LastName:     last,
			Role:         role,
			PosteID:      &postesByCode[poste].ID,
			DepartmentID: dept,
			SectionID:    section,
			Language:     "fr",
			IsActive:     true,
		}
		if err := s.users.Create(ctx, u, skills); err != nil {
			return nil, fmt.Errorf("failed to create user %s: %w", u.Email, err)
		}
		sum.Users++
		return u, nil
	}

	if _, err := newUser("Claire", "Martin", domain.RoleDirector, "DIR", nil, nil, competenceIDs[2:]); err != nil {
		return nil, err
	}

	for i, d := range departments {
		dept := &domain.Department{Name: d.name, Code: d.code}
		if err := s.depts.Create(ctx, dept); err != nil {
			return nil, fmt.Errorf("failed to create department %s: %w", d.code, err)
		}
		sum.Departments++

		coord, err := newUser("Coord", d.code, domain.RoleCoordinator, "COORD", &dept.ID, nil, nil)
		if err != nil {
			return nil, err
		}

		var members []int64
		for j, name := range d.sections {
			section := &domain.Section{Name: name, Code: fmt.Sprintf("%s%d", d.code, j+1), DepartmentID: dept.ID}
			if err := s.sections.Create(ctx, section); err != nil {
				return nil, fmt.Errorf("failed to create section %s: %w", section.Code, err)
			}

			head, err := newUser("Chef", section.Code, domain.RoleSectionHead, "CHEF", &dept.ID, &section.ID, nil)
			if err != nil {
				return nil, err
			}
			section.ResponsibleID = &head.ID
			if err := s.sections.Update(ctx, section); err != nil {
				return nil, fmt.Errorf("failed to set section head: %w", err)
			}

			for k := 1; k <= 2; k++ {
				poste := "ING"
				if k == 2 {
					poste = "ASSIST"
				}
				m, err := newUser(fmt.Sprintf("Membre%d", k), section.Code, domain.RoleMember, poste, &dept.ID, &section.ID, competenceIDs[:2])
				if err != nil {
					return nil, err
				}
				members = append(members, m.ID)
			}
		}

		if err := s.seedProjects(ctx, sum, i, dept, coord, members); err != nil {
			return nil, err
		}
	}

	return sum, nil
}

// seedProjects создаёт два проекта департамента: текущий и завершённый
func (s *seeder) seedProjects(ctx context.Context, sum *summary, n int, dept *domain.Department, coord *domain.User, members []int64) error {
	start := s.now.AddDate(0, -2, 0).Truncate(24 * time.Hour)
	plans := []struct {
		suffix string
		status domain.ProjectStatus
		start  time.Time
		end    time.Time
		done   bool
	}{
		{"CUR", domain.ProjectActive, start, start.AddDate(0, 4, 0), false},
		{"OLD", domain.ProjectCompleted, start.AddDate(-1, 0, 0), start.AddDate(0, -6, 0), true},
	}

	for _, plan := range plans {
		p := &domain.Project{
			Name:         fmt.Sprintf("%s %s", dept.Name, plan.suffix),
			Code:         fmt.Sprintf("%s-%s", dept.Code, plan.suffix),
			Description:  "Projet de démonstration",
			DepartmentID: dept.ID,
			Priority:     3,
			Status:       plan.status,
			StartDate:    plan.start,
			EndDate:      plan.end,
			CreatedByID:  &coord.ID,
		}
		if err := s.projects.Create(ctx, p, []int64{coord.ID}); err != nil {
			return fmt.Errorf("failed to create project %s: %w", p.Code, err)
		}
		sum.Projects++

		for k := 0; k < s.opts.tasksPerProject; k++ {
			t := &domain.Task{
				Title:       taskTitles[k%len(taskTitles)],
				ProjectID:   p.ID,
				CreatedByID: &coord.ID,
				Status:      domain.TaskStatuses[(k+n)%len(domain.TaskStatuses)],
				KanbanOrder: k,
				Priority:    1 + k%5,
				Complexity:  1 + k%5,
				StartDate:   plan.start.AddDate(0, 0, 7*k),
				DueDate:     plan.start.AddDate(0, 0, 7*k+14),
			}
			if plan.done {
				t.Status = domain.TaskDone
			}
			t.IsCompleted = t.Status == domain.TaskDone
			if t.Status == domain.TaskInProgress {
				t.CompletionPercentage = 50
			}

			var assignees []int64
			if len(members) > 0 {
				assignees = []int64{members[k%len(members)]}
			}
			if err := s.tasks.Create(ctx, t, assignees); err != nil {
				return fmt.Errorf("failed to create task in %s: %w", p.Code, err)
			}
			sum.Tasks++
		}
	}
	return nil
}
