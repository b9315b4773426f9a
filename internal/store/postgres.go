package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"taskoo/api/internal/apperr"
	"taskoo/api/internal/util"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// GetTasks returns the full current task list of a project.
func (s *PostgresStore) GetTasks(ctx context.Context, projectID string) ([]Task, error) {
	const query = `
		SELECT id, project_id, name, description, status, priority, assignee_id, due_date, created_at, updated_at
		FROM tasks
		WHERE project_id = $1
		ORDER BY created_at, id
	`
	rows, err := s.db.QueryContext(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}
	defer rows.Close()

	tasks := []Task{}
	for rows.Next() {
		var t Task
		if err := rows.Scan(&t.ID, &t.ProjectID, &t.Name, &t.Description, &t.Status, &t.Priority, &t.AssigneeID, &t.DueDate, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tasks: %w", err)
	}
	return tasks, nil
}

// GetMembers returns the account ids of a project's members in the
// order they were added.
func (s *PostgresStore) GetMembers(ctx context.Context, projectID string) ([]string, error) {
	const query = `
		SELECT account_id
		FROM project_members
		WHERE project_id = $1
		ORDER BY added_at, account_id
	`
	rows, err := s.db.QueryContext(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("query members: %w", err)
	}
	defer rows.Close()

	var members []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		members = append(members, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate members: %w", err)
	}
	return members, nil
}

// CreateAccount inserts a new account. The id is generated when empty.
func (s *PostgresStore) CreateAccount(ctx context.Context, account Account) (Account, error) {
	if account.ID == "" {
		account.ID = util.NewID("acc")
	}
	const insert = `
		INSERT INTO accounts (id, email, password_hash, first_name, last_name, department, position)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`
	err := s.db.QueryRowContext(ctx, insert,
		account.ID, account.Email, account.PasswordHash,
		account.FirstName, account.LastName, account.Department, account.Position,
	).Scan(&account.CreatedAt)
	if err != nil {
		return Account{}, fmt.Errorf("insert account: %w", err)
	}
	return account, nil
}

// GetAccountByEmail looks an account up by its login email.
func (s *PostgresStore) GetAccountByEmail(ctx context.Context, email string) (Account, error) {
	const query = `
		SELECT id, email, password_hash, first_name, last_name, department, position, created_at
		FROM accounts
		WHERE email = $1
	`
	var a Account
	err := s.db.QueryRowContext(ctx, query, email).Scan(
		&a.ID, &a.Email, &a.PasswordHash, &a.FirstName, &a.LastName, &a.Department, &a.Position, &a.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Account{}, apperr.NotFound("account not found")
	}
	if err != nil {
		return Account{}, fmt.Errorf("lookup account: %w", err)
	}
	return a, nil
}

// CreateProject inserts a project and its initial member set.
func (s *PostgresStore) CreateProject(ctx context.Context, project Project, memberIDs []string) (Project, error) {
	if project.ID == "" {
		project.ID = util.NewID("proj")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Project{}, fmt.Errorf("begin create project: %w", err)
	}
	defer tx.Rollback()

	err = tx.QueryRowContext(ctx,
		`INSERT INTO projects (id, name) VALUES ($1, $2) RETURNING created_at`,
		project.ID, project.Name,
	).Scan(&project.CreatedAt)
	if err != nil {
		return Project{}, fmt.Errorf("insert project: %w", err)
	}

	for _, accountID := range memberIDs {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO project_members (project_id, account_id)
			VALUES ($1, $2)
			ON CONFLICT DO NOTHING
		`, project.ID, accountID); err != nil {
			return Project{}, fmt.Errorf("insert member: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return Project{}, fmt.Errorf("commit create project: %w", err)
	}
	return project, nil
}

// AddProjectMember adds an account to a project's member set.
func (s *PostgresStore) AddProjectMember(ctx context.Context, projectID, accountID string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO project_members (project_id, account_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`, projectID, accountID)
	if err != nil {
		return fmt.Errorf("add member: %w", err)
	}
	return nil
}

// CreateTask inserts a task into a project.
func (s *PostgresStore) CreateTask(ctx context.Context, task Task) (Task, error) {
	if task.ID == "" {
		task.ID = util.NewID("task")
	}
	if task.Status == "" {
		task.Status = "pending"
	}
	const insert = `
		INSERT INTO tasks (id, project_id, name, description, status, priority, assignee_id, due_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at
	`
	err := s.db.QueryRowContext(ctx, insert,
		task.ID, task.ProjectID, task.Name, task.Description,
		task.Status, task.Priority, task.AssigneeID, task.DueDate,
	).Scan(&task.CreatedAt, &task.UpdatedAt)
	if err != nil {
		return Task{}, fmt.Errorf("insert task: %w", err)
	}
	return task, nil
}

// UpdateTaskStatus moves a task to a new status.
func (s *PostgresStore) UpdateTaskStatus(ctx context.Context, taskID, status string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE tasks SET status = $2, updated_at = NOW() WHERE id = $1`,
		taskID, status,
	)
	if err != nil {
		return fmt.Errorf("update task status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFound("task not found")
	}
	return nil
}

// RealtimeAdapter exposes the store as the realtime layer's project
// data source, serializing snapshots for the wire.
type RealtimeAdapter struct {
	store *PostgresStore
}

func NewRealtimeAdapter(store *PostgresStore) *RealtimeAdapter {
	return &RealtimeAdapter{store: store}
}

func (a *RealtimeAdapter) GetTasks(ctx context.Context, projectID string) (json.RawMessage, error) {
	tasks, err := a.store.GetTasks(ctx, projectID)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(tasks)
	if err != nil {
		return nil, fmt.Errorf("marshal snapshot: %w", err)
	}
	return data, nil
}

func (a *RealtimeAdapter) GetMembers(ctx context.Context, projectID string) ([]string, error) {
	return a.store.GetMembers(ctx, projectID)
}
