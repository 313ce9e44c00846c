package tasks

import (
	"context"
	"errors"
)

var (
	ErrNoTask           = errors.New("no task with given params found")
	ErrNoUser           = errors.New("no user with given name found")
	ErrDuplicateUser    = errors.New("user with given name already exists")
	ErrNotAuthenticated = errors.New("username or password is invalid")
)

const DefaultStatus = "Pending"

type Task struct {
	ID          uint32
	Title       string
	Description string
	Status      string
}

type User struct {
	ID       uint64
	Name     string
	Password string
	Role     string
}

// UserTasks pairs a username with that user's tasks. Users without
// tasks carry an empty slice.
type UserTasks struct {
	Name  string
	Tasks []Task
}

type Tasker interface {
	CreateUser(ctx context.Context, name, password, role string) error
	CheckCredentials(ctx context.Context, name, password string) (string, error)
	GetUserRole(ctx context.Context, name string) (string, error)
	UpdateUserRole(ctx context.Context, name, role string) error
	UpdatePassword(ctx context.Context, name, password string) error
	DeleteUser(ctx context.Context, name string) error

	AssignTask(ctx context.Context, name, title, description, status string) error
	SearchTasks(ctx context.Context, name, title string) ([]*Task, error)
	FetchTaskID(ctx context.Context, name, title string) (uint32, error)
	UpdateTaskStatus(ctx context.Context, taskID uint32, status string) error
	DeleteTask(ctx context.Context, title string) error
	ListUsersWithTasks(ctx context.Context) ([]UserTasks, error)

	Close() error
}
