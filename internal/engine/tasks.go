package engine

import (
	"context"
	"database/sql"
	"strings"

	"caseflow/internal/domain"
)

func (e Engine) ListTasks(ctx context.Context, ownerID, caseID string) ([]domain.Task, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}
	if err := requireID("case_id", caseID); err != nil {
		return nil, err
	}
	if _, err := e.Repo.GetCase(ctx, nil, ownerID, caseID); err != nil {
		return nil, classify("get case", notFound(err, "case", caseID))
	}
	tasks, err := e.Repo.ListTasks(ctx, ownerID, caseID)
	if err != nil {
		return nil, classify("list tasks", err)
	}
	if tasks == nil {
		tasks = []domain.Task{}
	}
	return tasks, nil
}

// AddTask appends an incomplete checklist item to a case.
func (e Engine) AddTask(ctx context.Context, ownerID, caseID, title string) (domain.Task, error) {
	if err := requireOwner(ownerID); err != nil {
		return domain.Task{}, err
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return domain.Task{}, ValidationError{Field: "title", Reason: "required"}
	}
	t := domain.Task{
		ID:        e.newID(),
		CaseID:    caseID,
		OwnerID:   ownerID,
		Title:     title,
		CreatedAt: e.now(),
	}
	err := e.withTx(ctx, "add task", func(tx *sql.Tx) error {
		if _, err := e.Repo.GetCase(ctx, tx, ownerID, caseID); err != nil {
			return notFound(err, "case", caseID)
		}
		return e.Repo.InsertTask(ctx, tx, t)
	})
	if err != nil {
		return domain.Task{}, err
	}
	return t, nil
}

// ToggleTask sets the completion state. completed_at is stamped on the
// transition to done and cleared on undo; re-completing keeps the first stamp.
func (e Engine) ToggleTask(ctx context.Context, ownerID, taskID string, completed bool) (domain.Task, error) {
	if err := requireOwner(ownerID); err != nil {
		return domain.Task{}, err
	}
	if err := requireID("task_id", taskID); err != nil {
		return domain.Task{}, err
	}
	var t domain.Task
	err := e.withTx(ctx, "toggle task", func(tx *sql.Tx) error {
		var err error
		t, err = e.Repo.GetTask(ctx, tx, ownerID, taskID)
		if err != nil {
			return notFound(err, "task", taskID)
		}
		switch {
		case completed && !t.IsCompleted:
			now := e.now()
			t.CompletedAt = &now
		case !completed:
			t.CompletedAt = nil
		}
		t.IsCompleted = completed
		return notFound(e.Repo.SetTaskCompletion(ctx, tx, t), "task", taskID)
	})
	if err != nil {
		return domain.Task{}, err
	}
	return t, nil
}

// DeleteTask removes a checklist item. Nothing is recorded.
func (e Engine) DeleteTask(ctx context.Context, ownerID, taskID string) error {
	if err := requireOwner(ownerID); err != nil {
		return err
	}
	if err := requireID("task_id", taskID); err != nil {
		return err
	}
	return e.withTx(ctx, "delete task", func(tx *sql.Tx) error {
		return notFound(e.Repo.DeleteTask(ctx, tx, ownerID, taskID), "task", taskID)
	})
}
