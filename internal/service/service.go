// Package service содержит бизнес-операции над агрегатами.
// Каждая операция сначала проверяет действие, затем читает запись
// через фильтр видимости и только после записи рассылает уведомления.
package service

import (
	"errors"
	"time"

	"github.com/project-tracker-api/internal/domain"
	"github.com/project-tracker-api/internal/dto"
)

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}

func setNullable(dst **int64, v dto.NullableID) {
	if v.Set {
		*dst = v.Value
	}
}

func parseDate(field, value string, verr *domain.ValidationError) time.Time {
	t, err := time.Parse(dto.DateLayout, value)
	if err != nil {
		verr.Add(field, "invalid date format, expected "+dto.DateLayout)
	}
	return t
}

func parseTime(field, value string, verr *domain.ValidationError) time.Time {
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		verr.Add(field, "invalid datetime format, expected RFC 3339")
	}
	return t
}

// validationOrNil возвращает nil для пустой ошибки валидации
func validationOrNil(verr *domain.ValidationError) error {
	if verr.Empty() {
		return nil
	}
	return verr
}

// orDefault возвращает def для нулевого значения
func orDefault[T comparable](v, def T) T {
	var zero T
	if v == zero {
		return def
	}
	return v
}

func isNotFound(err error) bool {
	return errors.Is(err, domain.ErrNotFound)
}
