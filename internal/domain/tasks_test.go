package domain_test

import (
	"errors"
	"testing"
	"time"

	"github.com/project-tracker-api/internal/domain"
)

func TestTaskCompletionRule_RoundTrip(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	task := &domain.Task{Title: "Write report", CompletionPercentage: 40}

	task.ApplyCompletionRule(now)
	if task.CompletedDate != nil {
		t.Fatalf("expected no completed date for open task, got %v", task.CompletedDate)
	}

	task.IsCompleted = true
	task.ApplyCompletionRule(now)
	if task.CompletedDate == nil || !task.CompletedDate.Equal(now) {
		t.Fatalf("expected completed date %v, got %v", now, task.CompletedDate)
	}
	if task.CompletionPercentage != 100 {
		t.Errorf("expected completion 100, got %d", task.CompletionPercentage)
	}

	task.IsCompleted = false
	task.ApplyCompletionRule(now.Add(time.Hour))
	if task.CompletedDate != nil {
		t.Errorf("expected completed date cleared, got %v", task.CompletedDate)
	}
}

func TestTaskCompletionRule_KeepsExistingDate(t *testing.T) {
	done := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	task := &domain.Task{IsCompleted: true, CompletedDate: &done, CompletionPercentage: 90}

	task.ApplyCompletionRule(done.Add(48 * time.Hour))

	if !task.CompletedDate.Equal(done) {
		t.Errorf("expected completed date to stay %v, got %v", done, task.CompletedDate)
	}
	if task.CompletionPercentage != 90 {
		t.Errorf("expected completion untouched, got %d", task.CompletionPercentage)
	}
}

func TestProjectProgress(t *testing.T) {
	tests := []struct {
		name      string
		completed int
		total     int
		want      int
	}{
		{"no tasks", 0, 0, 0},
		{"none done", 0, 4, 0},
		{"one of three", 1, 3, 33},
		{"two of three", 2, 3, 67},
		{"all done", 5, 5, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &domain.Project{}
			for i := 0; i < tt.total; i++ {
				p.Tasks = append(p.Tasks, domain.Task{IsCompleted: i < tt.completed})
			}
			if got := p.Progress(); got != tt.want {
				t.Errorf("expected %d, got %d", tt.want, got)
			}
		})
	}
}

func TestTaskIsOverdue(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	open := &domain.Task{DueDate: now.Add(-time.Minute)}
	if !open.IsOverdue(now) {
		t.Error("expected open task past due date to be overdue")
	}

	completed := &domain.Task{DueDate: now.Add(-time.Hour), IsCompleted: true}
	if completed.IsOverdue(now) {
		t.Error("expected completed task never to be overdue")
	}

	future := &domain.Task{DueDate: now.Add(72 * time.Hour)}
	if future.IsOverdue(now) {
		t.Error("expected future task not to be overdue")
	}
	if got := future.DaysRemaining(now); got != 3 {
		t.Errorf("expected 3 days remaining, got %d", got)
	}
}

func TestNotFoundSentinels(t *testing.T) {
	for _, err := range []error{domain.ErrProjectNotFound, domain.ErrTaskNotFound, domain.ErrUserNotFound} {
		if !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("expected %v to wrap ErrNotFound", err)
		}
	}
}

func TestUserInitials(t *testing.T) {
	u := &domain.User{FirstName: "awa", LastName: "traore"}
	if got := u.Initials(); got != "AT" {
		t.Errorf("expected AT, got %s", got)
	}
	anon := &domain.User{Email: "x@example.com"}
	if got := anon.Initials(); got != "X" {
		t.Errorf("expected X, got %s", got)
	}
}
