package tasks

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"

	"github.com/mkravets/taskboard/internal/pkg/auth"
	"github.com/mkravets/taskboard/internal/pkg/store"
	tasksrepo "github.com/mkravets/taskboard/internal/pkg/tasks"
)

type TasksRepo struct {
	tasks *sql.DB
	auth  auth.Auth
}

func NewTasker(db *sql.DB, auth auth.Auth) *TasksRepo {
	return &TasksRepo{
		tasks: db,
		auth:  auth,
	}
}

func (t *TasksRepo) CreateUser(ctx context.Context, name, password, role string) error {
	hash, err := t.auth.HashPassword(password)
	if err != nil {
		return err
	}

	if _, err := t.tasks.ExecContext(ctx, "INSERT INTO users (username, password, role) VALUES (?, ?, ?)", name, hash, role); err != nil {
		if isUniqueViolation(err) {
			return tasksrepo.ErrDuplicateUser
		}
		return err
	}

	return nil
}

// CheckCredentials returns the user's role when name exists and password
// matches the stored hash. Unknown user and wrong password collapse into
// the same ErrNotAuthenticated so callers cant tell them apart.
func (t *TasksRepo) CheckCredentials(ctx context.Context, name, password string) (string, error) {
	var hash, role string
	if err := t.tasks.QueryRowContext(ctx, "SELECT password, role FROM users WHERE username=?", name).Scan(&hash, &role); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", tasksrepo.ErrNotAuthenticated
		}
		return "", err
	}

	if !t.auth.VerifyPassword(hash, password) {
		return "", tasksrepo.ErrNotAuthenticated
	}
	return role, nil
}

func (t *TasksRepo) GetUserRole(ctx context.Context, name string) (string, error) {
	var role string
	if err := t.tasks.QueryRowContext(ctx, "SELECT role FROM users WHERE username=?", name).Scan(&role); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", tasksrepo.ErrNoUser
		}
		return "", err
	}
	return role, nil
}

// UpdateUserRole overwrites the role unconditionally. Unknown user is a
// silent no-op, the role string is not validated.
func (t *TasksRepo) UpdateUserRole(ctx context.Context, name, role string) error {
	if _, err := t.tasks.ExecContext(ctx, "UPDATE users SET role=? WHERE username=?", role, name); err != nil {
		return err
	}
	return nil
}

func (t *TasksRepo) UpdatePassword(ctx context.Context, name, password string) error {
	hash, err := t.auth.HashPassword(password)
	if err != nil {
		return err
	}

	if _, err := t.tasks.ExecContext(ctx, "UPDATE users SET password=? WHERE username=?", hash, name); err != nil {
		return err
	}
	return nil
}

// DeleteUser removes the user and every task assigned to them in one
// transaction, so no task row is left pointing at a dead user_id.
func (t *TasksRepo) DeleteUser(ctx context.Context, name string) error {
	return store.RetryOnBusy(ctx, 5, func() error {
		tx, err := t.tasks.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin delete user tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		var userID uint64
		if err := tx.QueryRowContext(ctx, "SELECT user_id FROM users WHERE username=?", name).Scan(&userID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return tasksrepo.ErrNoUser
			}
			return err
		}

		if _, err := tx.ExecContext(ctx, "DELETE FROM tasks WHERE user_id=?", userID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM users WHERE user_id=?", userID); err != nil {
			return err
		}

		return tx.Commit()
	})
}

// AssignTask inserts a task for the named user. A task with the same
// title already assigned to that user is a silent no-op, resolved by the
// unique (user_id, title) index rather than a read-then-write check.
func (t *TasksRepo) AssignTask(ctx context.Context, name, title, description, status string) error {
	if status == "" {
		status = tasksrepo.DefaultStatus
	}

	var userID uint64
	if err := t.tasks.QueryRowContext(ctx, "SELECT user_id FROM users WHERE username=?", name).Scan(&userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return tasksrepo.ErrNoUser
		}
		return err
	}

	return store.RetryOnBusy(ctx, 5, func() error {
		_, err := t.tasks.ExecContext(ctx,
			"INSERT INTO tasks (user_id, title, description, status) VALUES (?, ?, ?, ?) ON CONFLICT(user_id, title) DO NOTHING",
			userID, title, description, status)
		return err
	})
}

// SearchTasks returns the user's tasks whose title contains title as a
// substring. Matching follows the store's default LIKE collation.
func (t *TasksRepo) SearchTasks(ctx context.Context, name, title string) ([]*tasksrepo.Task, error) {
	if _, err := t.GetUserRole(ctx, name); err != nil {
		return nil, err
	}

	curr, err := t.tasks.QueryContext(ctx, `
		SELECT tasks.task_id, tasks.title, tasks.description, tasks.status
		FROM tasks
		LEFT JOIN users ON tasks.user_id = users.user_id
		WHERE users.username=? AND tasks.title LIKE ?`,
		name, "%"+title+"%")
	if err != nil {
		return nil, err
	}
	defer curr.Close()

	res := make([]*tasksrepo.Task, 0)
	for curr.Next() {
		var task tasksrepo.Task
		if err := curr.Scan(&task.ID, &task.Title, &task.Description, &task.Status); err != nil {
			return nil, err
		}
		res = append(res, &task)
	}
	if err := curr.Err(); err != nil {
		return nil, err
	}
	return res, nil
}

func (t *TasksRepo) FetchTaskID(ctx context.Context, name, title string) (uint32, error) {
	var id uint32
	err := t.tasks.QueryRowContext(ctx, `
		SELECT tasks.task_id
		FROM tasks
		LEFT JOIN users ON tasks.user_id = users.user_id
		WHERE users.username=? AND tasks.title=?`,
		name, title).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, tasksrepo.ErrNoTask
		}
		return 0, err
	}
	return id, nil
}

// UpdateTaskStatus overwrites the status unconditionally. Unknown id is a
// silent no-op, the status string is not validated.
func (t *TasksRepo) UpdateTaskStatus(ctx context.Context, taskID uint32, status string) error {
	if _, err := t.tasks.ExecContext(ctx, "UPDATE tasks SET status=? WHERE task_id=?", status, taskID); err != nil {
		return err
	}
	return nil
}

// DeleteTask removes the task with the lowest task_id carrying the given
// title. Titles repeating across users make delete-by-title ambiguous,
// picking the lowest id keeps the choice deterministic.
func (t *TasksRepo) DeleteTask(ctx context.Context, title string) error {
	var id uint32
	if err := t.tasks.QueryRowContext(ctx, "SELECT task_id FROM tasks WHERE title=? ORDER BY task_id LIMIT 1", title).Scan(&id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		return err
	}

	if _, err := t.tasks.ExecContext(ctx, "DELETE FROM tasks WHERE task_id=?", id); err != nil {
		return err
	}
	return nil
}

// ListUsersWithTasks returns every user with their tasks, usernames
// ascending, each user exactly once. Users without tasks get an empty
// task list.
func (t *TasksRepo) ListUsersWithTasks(ctx context.Context) ([]tasksrepo.UserTasks, error) {
	curr, err := t.tasks.QueryContext(ctx, `
		SELECT users.username, tasks.task_id, tasks.title, tasks.description, tasks.status
		FROM users
		LEFT JOIN tasks ON users.user_id = tasks.user_id
		ORDER BY users.username, tasks.task_id`)
	if err != nil {
		return nil, err
	}
	defer curr.Close()

	res := make([]tasksrepo.UserTasks, 0)
	for curr.Next() {
		var (
			name        string
			id          sql.NullInt64
			title       sql.NullString
			description sql.NullString
			status      sql.NullString
		)
		if err := curr.Scan(&name, &id, &title, &description, &status); err != nil {
			return nil, err
		}

		if len(res) == 0 || res[len(res)-1].Name != name {
			res = append(res, tasksrepo.UserTasks{Name: name, Tasks: []tasksrepo.Task{}})
		}
		if id.Valid {
			user := &res[len(res)-1]
			user.Tasks = append(user.Tasks, tasksrepo.Task{
				ID:          uint32(id.Int64),
				Title:       title.String,
				Description: description.String,
				Status:      status.String,
			})
		}
	}
	if err := curr.Err(); err != nil {
		return nil, err
	}
	return res, nil
}

func (t *TasksRepo) Close() error {
	if err := t.tasks.Close(); err != nil {
		return fmt.Errorf("cant close tasksDB: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return false
}
