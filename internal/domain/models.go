package domain

import (
	"strings"
	"time"
)

// Role - системная роль пользователя
type Role string

const (
	RoleDirector    Role = "director"
	RoleCoordinator Role = "coordinator"
	RoleSectionHead Role = "section_head"
	RoleMember      Role = "member"
)

// Valid проверяет, что роль входит в известный набор
func (r Role) Valid() bool {
	switch r {
	case RoleDirector, RoleCoordinator, RoleSectionHead, RoleMember:
		return true
	}
	return false
}

// Poste представляет должность с флагами возможностей.
// Флаг со значением nil не задан и не переопределяет роль.
type Poste struct {
	ID                int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	Title             string    `json:"title" gorm:"type:varchar(100);not null;uniqueIndex"`
	Code              string    `json:"code" gorm:"type:varchar(20);not null;uniqueIndex"`
	Category          string    `json:"category" gorm:"type:varchar(20);not null"`
	Description       string    `json:"description" gorm:"type:text"`
	HierarchyLevel    int       `json:"hierarchy_level" gorm:"not null"`
	IsActive          bool      `json:"is_active" gorm:"not null"`
	CanManageTeam     *bool     `json:"can_manage_team"`
	CanCreateProjects *bool     `json:"can_create_projects"`
	CanValidateTasks  *bool     `json:"can_validate_tasks"`
	CreatedAt         time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt         time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName задаёт имя таблицы для GORM
func (Poste) TableName() string {
	return "postes"
}

// Department представляет департамент
type Department struct {
	ID          int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	Name        string    `json:"name" gorm:"type:varchar(100);not null;uniqueIndex"`
	Code        string    `json:"code" gorm:"type:varchar(10);not null;uniqueIndex"`
	Description string    `json:"description" gorm:"type:text"`
	CreatedAt   time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt   time.Time `json:"updated_at" gorm:"autoUpdateTime"`

	Sections []Section `json:"-" gorm:"foreignKey:DepartmentID;constraint:OnDelete:CASCADE"`
}

// TableName задаёт имя таблицы для GORM
func (Department) TableName() string {
	return "departments"
}

// Section представляет секцию внутри департамента.
// Код уникален в пределах департамента.
type Section struct {
	ID            int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	Name          string    `json:"name" gorm:"type:varchar(100);not null"`
	Code          string    `json:"code" gorm:"type:varchar(10);not null;uniqueIndex:idx_sections_department_code"`
	DepartmentID  int64     `json:"department_id" gorm:"not null;index;uniqueIndex:idx_sections_department_code"`
	ResponsibleID *int64    `json:"responsible_id" gorm:"index"`
	Description   string    `json:"description" gorm:"type:text"`
	CreatedAt     time.Time `json:"created_at" gorm:"autoCreateTime"`

	Department  *Department `json:"-" gorm:"foreignKey:DepartmentID"`
	Responsible *User       `json:"-" gorm:"foreignKey:ResponsibleID;constraint:OnDelete:SET NULL"`
}

// TableName задаёт имя таблицы для GORM
func (Section) TableName() string {
	return "sections"
}

// ScopeDepartmentID возвращает департамент секции для объектных проверок
func (s *Section) ScopeDepartmentID() *int64 {
	return &s.DepartmentID
}

// Competence - компетенция сотрудника
type Competence struct {
	ID          int64  `json:"id" gorm:"primaryKey;autoIncrement"`
	Name        string `json:"name" gorm:"type:varchar(100);not null;uniqueIndex"`
	Description string `json:"description" gorm:"type:text"`
	Category    string `json:"category" gorm:"type:varchar(50)"`
}

// TableName задаёт имя таблицы для GORM
func (Competence) TableName() string {
	return "competences"
}

// User представляет пользователя системы
type User struct {
	ID           int64  `json:"id" gorm:"primaryKey;autoIncrement"`
	Email        string `json:"email" gorm:"type:varchar(254);not null;uniqueIndex"`
	PasswordHash string `json:"-" gorm:"type:varchar(100);not null"`
	FirstName    string `json:"first_name" gorm:"type:varchar(150);not null"`
	LastName     string `json:"last_name" gorm:"type:varchar(150);not null"`
	Role         Role   `json:"role" gorm:"type:varchar(20);not null;index"`
	PosteID      *int64 `json:"poste_id" gorm:"index"`
	DepartmentID *int64 `json:"department_id" gorm:"index:idx_users_department_section"`
	SectionID    *int64 `json:"section_id" gorm:"index:idx_users_department_section"`

	Phone               string `json:"phone" gorm:"type:varchar(20)"`
	PhonePro            string `json:"phone_pro" gorm:"type:varchar(20)"`
	City                string `json:"city" gorm:"type:varchar(100)"`
	Country             string `json:"country" gorm:"type:varchar(100)"`
	ThemePreference     string `json:"theme_preference" gorm:"type:varchar(10)"`
	Language            string `json:"language" gorm:"type:varchar(10)"`
	NotificationEmail   bool   `json:"notification_email"`
	NotificationDesktop bool   `json:"notification_desktop"`
	IsActive            bool   `json:"is_active" gorm:"not null"`

	DateJoined  time.Time  `json:"date_joined" gorm:"autoCreateTime"`
	LastLogin   *time.Time `json:"last_login"`
	CreatedByID *int64     `json:"created_by_id"`

	Poste       *Poste       `json:"-" gorm:"foreignKey:PosteID;constraint:OnDelete:SET NULL"`
	Department  *Department  `json:"-" gorm:"foreignKey:DepartmentID;constraint:OnDelete:SET NULL"`
	Section     *Section     `json:"-" gorm:"foreignKey:SectionID;constraint:OnDelete:SET NULL"`
	Competences []Competence `json:"-" gorm:"many2many:user_competences"`
}

// TableName задаёт имя таблицы для GORM
func (User) TableName() string {
	return "users"
}

// FullName возвращает имя и фамилию
func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// Initials возвращает инициалы для аватара
func (u *User) Initials() string {
	var b strings.Builder
	if u.FirstName != "" {
		b.WriteString(u.FirstName[:1])
	}
	if u.LastName != "" {
		b.WriteString(u.LastName[:1])
	}
	if b.Len() == 0 && u.Email != "" {
		b.WriteString(u.Email[:1])
	}
	return strings.ToUpper(b.String())
}

// ScopeDepartmentID возвращает департамент пользователя для объектных проверок
func (u *User) ScopeDepartmentID() *int64 {
	return u.DepartmentID
}

// ScopeSectionID возвращает секцию пользователя для объектных проверок
func (u *User) ScopeSectionID() *int64 {
	return u.SectionID
}

// UserActivity - запись журнала действий пользователя
type UserActivity struct {
	ID        int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	UserID    int64     `json:"user_id" gorm:"not null;index"`
	Action    string    `json:"action" gorm:"type:varchar(255);not null"`
	IPAddress string    `json:"ip_address" gorm:"type:varchar(45)"`
	Timestamp time.Time `json:"timestamp" gorm:"autoCreateTime;index"`

	User *User `json:"-" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

// TableName задаёт имя таблицы для GORM
func (UserActivity) TableName() string {
	return "user_activities"
}

// RevokedToken - отозванный refresh-токен
type RevokedToken struct {
	ID        int64     `gorm:"primaryKey;autoIncrement"`
	JTI       string    `gorm:"type:varchar(64);not null;uniqueIndex"`
	ExpiresAt time.Time `gorm:"not null;index"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

// TableName задаёт имя таблицы для GORM
func (RevokedToken) TableName() string {
	return "revoked_tokens"
}

// ScopeDepartmentID возвращает идентификатор самого департамента
func (d *Department) ScopeDepartmentID() *int64 {
	return &d.ID
}

// ScopeSectionID возвращает идентификатор самой секции
func (s *Section) ScopeSectionID() *int64 {
	return &s.ID
}
