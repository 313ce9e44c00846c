package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/mkravets/taskboard/internal/pkg/auth"
	"github.com/mkravets/taskboard/internal/pkg/middleware"
	"github.com/mkravets/taskboard/internal/pkg/store"
	tasksrepo "github.com/mkravets/taskboard/internal/pkg/tasks"
	tasks "github.com/mkravets/taskboard/internal/pkg/tasks/db"
)

const timeout = time.Second

type userJSON struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type taskJSON struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Status      string `json:"status,omitempty"`
}

type roleJSON struct {
	Role string `json:"role"`
}

type messageJSON struct {
	Message string `json:"message"`
}

type Taskboard struct {
	tasks  tasksrepo.Tasker
	router *mux.Router
	logger *slog.Logger
}

func (t Taskboard) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	t.router.ServeHTTP(w, r)
}

func NewTaskboard(dbPath string, logger *slog.Logger) (*Taskboard, error) {
	tasksDB, err := store.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("cant open store: %w", err)
	}
	tasker := tasks.NewTasker(tasksDB.DB(), auth.NewAuth())

	return createTaskboard(tasker, logger), nil
}

func createTaskboard(tasks tasksrepo.Tasker, logger *slog.Logger) *Taskboard {
	router := mux.NewRouter()
	board := &Taskboard{
		tasks:  tasks,
		router: router,
		logger: logger,
	}

	// /users/tasks/ must be registered before the {username} routes so
	// "tasks" is not captured as a username.
	board.router.HandleFunc("/users/tasks/", board.ListUsersWithTasks).Methods("GET")
	board.router.HandleFunc("/users/", board.CreateUser).Methods("POST")
	board.router.HandleFunc("/users/", board.Login).Methods("GET")
	board.router.HandleFunc("/users/{username}/role", board.UpdateUserRole).Methods("PUT")
	board.router.HandleFunc("/users/{username}/password", board.UpdatePassword).Methods("PUT")
	board.router.HandleFunc("/users/{username}/", board.DeleteUser).Methods("DELETE")

	board.router.HandleFunc("/tasks/", board.AssignTask).Methods("POST")
	board.router.HandleFunc("/tasks/", board.SearchTasks).Methods("GET")
	board.router.HandleFunc("/tasks/{taskID}/status", board.UpdateTaskStatus).Methods("PUT")
	board.router.HandleFunc("/tasks/{title}/", board.DeleteTask).Methods("DELETE")

	board.router.Use(func(next http.Handler) http.Handler {
		return middleware.Logging(logger, next)
	})

	return board
}

func (t Taskboard) CreateUser(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeout)
	defer cancel()

	var user userJSON

	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(&user); err != nil {
		http.Error(w, fmt.Sprintf("cant parse body %v", err), http.StatusUnprocessableEntity)
		return
	}

	if user.Username == "" || user.Password == "" || user.Role == "" {
		http.Error(w, "username, password and role are required", http.StatusUnprocessableEntity)
		return
	}

	if err := t.tasks.CreateUser(ctx, user.Username, user.Password, user.Role); err != nil {
		if errors.Is(err, tasksrepo.ErrDuplicateUser) {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		http.Error(w, fmt.Sprintf("cant create user: %v", err), http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(messageJSON{Message: fmt.Sprintf("User %v added successfully", user.Username)})
}

func (t Taskboard) Login(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeout)
	defer cancel()

	username := r.URL.Query().Get("username")
	password := r.URL.Query().Get("password")

	role, err := t.tasks.CheckCredentials(ctx, username, password)
	if err != nil {
		if errors.Is(err, tasksrepo.ErrNotAuthenticated) {
			http.Error(w, "Invalid username or password", http.StatusUnauthorized)
			return
		}
		http.Error(w, fmt.Sprintf("cant check credentials: %v", err), http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(roleJSON{Role: role})
}

func (t Taskboard) UpdateUserRole(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeout)
	defer cancel()

	username := mux.Vars(r)["username"]

	var body roleJSON

	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, fmt.Sprintf("cant parse body %v", err), http.StatusUnprocessableEntity)
		return
	}

	if err := t.tasks.UpdateUserRole(ctx, username, body.Role); err != nil {
		http.Error(w, fmt.Sprintf("cant update role for %v: %v", username, err), http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(messageJSON{Message: fmt.Sprintf("User %v role updated to %v.", username, body.Role)})
}

func (t Taskboard) UpdatePassword(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeout)
	defer cancel()

	username := mux.Vars(r)["username"]

	var body struct {
		Password string `json:"password"`
	}

	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, fmt.Sprintf("cant parse body %v", err), http.StatusUnprocessableEntity)
		return
	}

	if body.Password == "" {
		http.Error(w, "password is required", http.StatusUnprocessableEntity)
		return
	}

	if err := t.tasks.UpdatePassword(ctx, username, body.Password); err != nil {
		http.Error(w, fmt.Sprintf("cant update password for %v: %v", username, err), http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(messageJSON{Message: fmt.Sprintf("Password for %v updated successfully!", username)})
}

func (t Taskboard) DeleteUser(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeout)
	defer cancel()

	username := mux.Vars(r)["username"]

	if err := t.tasks.DeleteUser(ctx, username); err != nil {
		if errors.Is(err, tasksrepo.ErrNoUser) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, fmt.Sprintf("cant delete user %v: %v", username, err), http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(messageJSON{Message: fmt.Sprintf("user %v was deleted.", username)})
}

func (t Taskboard) ListUsersWithTasks(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeout)
	defer cancel()

	usersTasks, err := t.tasks.ListUsersWithTasks(ctx)
	if err != nil {
		http.Error(w, fmt.Sprintf("cant list users: %v", err), http.StatusInternalServerError)
		return
	}

	names := make([]string, 0, len(usersTasks))
	for _, user := range usersTasks {
		names = append(names, user.Name)
	}

	json.NewEncoder(w).Encode(struct {
		Users []string `json:"users with tasks"`
	}{Users: names})
}

func (t Taskboard) AssignTask(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeout)
	defer cancel()

	username := r.URL.Query().Get("username")

	var task taskJSON

	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(&task); err != nil {
		http.Error(w, fmt.Sprintf("cant parse body %v", err), http.StatusUnprocessableEntity)
		return
	}

	if task.Title == "" || task.Description == "" {
		http.Error(w, "title and description are required", http.StatusUnprocessableEntity)
		return
	}

	if err := t.tasks.AssignTask(ctx, username, task.Title, task.Description, task.Status); err != nil {
		if errors.Is(err, tasksrepo.ErrNoUser) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, fmt.Sprintf("cant assign task: %v", err), http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(messageJSON{Message: fmt.Sprintf("Task '%v' assigned to %v.", task.Title, username)})
}

func (t Taskboard) SearchTasks(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeout)
	defer cancel()

	username := r.URL.Query().Get("username")
	title := r.URL.Query().Get("title")

	found, err := t.tasks.SearchTasks(ctx, username, title)
	if err != nil {
		if errors.Is(err, tasksrepo.ErrNoUser) {
			http.Error(w, "User not found.", http.StatusNotFound)
			return
		}
		http.Error(w, fmt.Sprintf("cant search tasks: %v", err), http.StatusInternalServerError)
		return
	}

	if len(found) == 0 {
		http.Error(w, "No tasks assigned to this user.", http.StatusNotFound)
		return
	}

	res := make([]taskJSON, 0, len(found))
	for _, task := range found {
		res = append(res, taskJSON{
			Title:       task.Title,
			Description: task.Description,
			Status:      task.Status,
		})
	}

	json.NewEncoder(w).Encode(struct {
		User string     `json:"user"`
		Task []taskJSON `json:"task"`
	}{User: username, Task: res})
}

func (t Taskboard) UpdateTaskStatus(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeout)
	defer cancel()

	id, err := strconv.ParseUint(mux.Vars(r)["taskID"], 10, 32)
	if err != nil {
		http.Error(w, fmt.Sprintf("invalid task id: %v", err), http.StatusUnprocessableEntity)
		return
	}
	newStatus := r.URL.Query().Get("new_status")

	if err := t.tasks.UpdateTaskStatus(ctx, uint32(id), newStatus); err != nil {
		http.Error(w, fmt.Sprintf("cant update status for task %v: %v", id, err), http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(messageJSON{Message: fmt.Sprintf("Task %v status updated to %v.", id, newStatus)})
}

func (t Taskboard) DeleteTask(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeout)
	defer cancel()

	title := mux.Vars(r)["title"]

	if err := t.tasks.DeleteTask(ctx, title); err != nil {
		http.Error(w, fmt.Sprintf("cant delete task %v: %v", title, err), http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(messageJSON{Message: fmt.Sprintf("task %v was deleted.", title)})
}
