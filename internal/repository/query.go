package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"gorm.io/gorm"

	"github.com/project-tracker-api/internal/domain"
)

// Scope - дополнительное условие запроса
type Scope = func(*gorm.DB) *gorm.DB

// DefaultPageSize - размер страницы по умолчанию
const DefaultPageSize = 20

// ListQuery - параметры списка: страница, поиск, сортировка и фильтры
type ListQuery struct {
	Page     int
	PageSize int
	Search   string
	Ordering string
	Filters  map[string]string
}

func (q ListQuery) limit() int {
	if q.PageSize <= 0 {
		return DefaultPageSize
	}
	return q.PageSize
}

func (q ListQuery) offset() int {
	if q.Page <= 1 {
		return 0
	}
	return (q.Page - 1) * q.limit()
}

type fieldKind int

const (
	kindString fieldKind = iota
	kindInt
	kindBool
)

// field - разрешённое поле фильтрации
type field struct {
	column string
	kind   fieldKind
}

// listFields описывает допустимые поля списка ресурса
type listFields struct {
	table        string
	search       []string
	ordering     map[string]string
	defaultOrder string
	filters      map[string]field
}

// apply добавляет к запросу фильтры, поиск и сортировку.
// Неизвестные фильтры игнорируются, некорректные значения дают ошибку валидации.
func (s listFields) apply(db *gorm.DB, q ListQuery) (*gorm.DB, error) {
	verr := &domain.ValidationError{}

	for name, raw := range q.Filters {
		f, ok := s.filters[name]
		if !ok || raw == "" {
			continue
		}
		col := s.table + "." + f.column
		switch f.kind {
		case kindInt:
			v, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				verr.Add(name, "must be an integer")
				continue
			}
			db = db.Where(col+" = ?", v)
		case kindBool:
			v, err := strconv.ParseBool(raw)
			if err != nil {
				verr.Add(name, "must be a boolean")
				continue
			}
			db = db.Where(col+" = ?", v)
		default:
			db = db.Where(col+" = ?", raw)
		}
	}
	if !verr.Empty() {
		return nil, verr
	}

	if term := strings.TrimSpace(q.Search); term != "" && len(s.search) > 0 {
		like := "%" + strings.ToLower(term) + "%"
		parts := make([]string, 0, len(s.search))
		args := make([]any, 0, len(s.search))
		for _, c := range s.search {
			parts = append(parts, fmt.Sprintf("LOWER(%s.%s) LIKE ?", s.table, c))
			args = append(args, like)
		}
		db = db.Where("("+strings.Join(parts, " OR ")+")", args...)
	}

	return db.Order(s.order(q.Ordering)), nil
}

func (s listFields) order(ordering string) string {
	def := s.table + "." + s.defaultOrder
	if ordering == "" {
		return def
	}

	var clauses []string
	for _, key := range strings.Split(ordering, ",") {
		key = strings.TrimSpace(key)
		dir := "ASC"
		if strings.HasPrefix(key, "-") {
			dir = "DESC"
			key = key[1:]
		}
		col, ok := s.ordering[key]
		if !ok {
			continue
		}
		clauses = append(clauses, s.table+"."+col+" "+dir)
	}
	if len(clauses) == 0 {
		return def
	}
	return strings.Join(clauses, ", ")
}

// paginate считает общее число записей и загружает страницу
func paginate[T any](ctx context.Context, db *gorm.DB, fields listFields, q ListQuery, scopes []Scope, preload ...string) ([]T, int64, error) {
	base := db.WithContext(ctx).Model(new(T)).Scopes(scopes...)

	filtered, err := fields.apply(base, q)
	if err != nil {
		return nil, 0, err
	}
	filtered = filtered.Session(&gorm.Session{})

	var count int64
	if err := filtered.Count(&count).Error; err != nil {
		return nil, 0, err
	}

	page := filtered.Limit(q.limit()).Offset(q.offset())
	for _, p := range preload {
		page = page.Preload(p)
	}

	var items []T
	if err := page.Find(&items).Error; err != nil {
		return nil, 0, err
	}
	return items, count, nil
}

// findOne загружает запись по id или возвращает notFound
func findOne[T any](ctx context.Context, db *gorm.DB, id int64, notFound error, scopes []Scope, preload ...string) (*T, error) {
	q := db.WithContext(ctx).Scopes(scopes...)
	for _, p := range preload {
		q = q.Preload(p)
	}

	var item T
	if err := q.Where(tableOf[T](db)+".id = ?", id).First(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound
		}
		return nil, err
	}
	return &item, nil
}

// deleteByID удаляет запись по id или возвращает notFound
func deleteByID[T any](ctx context.Context, db *gorm.DB, id int64, notFound error) error {
	result := db.WithContext(ctx).Delete(new(T), id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return notFound
	}
	return nil
}

func tableOf[T any](db *gorm.DB) string {
	stmt := &gorm.Statement{DB: db}
	if err := stmt.Parse(new(T)); err != nil {
		return ""
	}
	return stmt.Schema.Table
}

// isUniqueViolation распознаёт нарушение уникальности в PostgreSQL и SQLite
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "sqlstate 23505")
}
