package tasks

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/openpmca/webinstaller/internal/common"
	"github.com/openpmca/webinstaller/internal/dbx"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// parseID validates the external string id against the bigserial key.
// A malformed id can never match a row, so it maps to not-found.
func parseID(id string) (int64, error) {
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return 0, common.ErrorNotFound
	}
	return n, nil
}

func (r *PostgresRepository) Create(ctx context.Context, task *Task) (*Task, error) {

	query :=
		`INSERT INTO tasks (package_ref)
		 VALUES ($1)
		 RETURNING id, created_at
		 `

	var id int64
	stored := &Task{PackageRef: task.PackageRef}

	packageRef := sql.NullString{String: task.PackageRef, Valid: task.PackageRef != ""}

	err := r.db.QueryRowContext(ctx, query, packageRef).Scan(&id, &stored.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("error performing sql request: %v", err)
	}

	stored.ID = strconv.FormatInt(id, 10)
	return stored, nil
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (*Task, error) {

	key, err := parseID(id)
	if err != nil {
		return nil, err
	}

	query :=
		`SELECT package_ref, created_at, completed, response FROM tasks
		 WHERE id = $1
		 `

	task := &Task{ID: id}
	var packageRef sql.NullString

	err = r.db.QueryRowContext(ctx, query, key).Scan(&packageRef, &task.CreatedAt, &task.Completed, &task.Response)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("error performing sql request: %v", err)
	}

	task.PackageRef = packageRef.String
	return task, nil
}

// Complete marks the task completed and stores the raw callback body in one
// atomic update. Repeated completions overwrite the body (last write wins).
func (r *PostgresRepository) Complete(ctx context.Context, id string, response []byte) (*Task, error) {

	key, err := parseID(id)
	if err != nil {
		return nil, err
	}

	query :=
		`UPDATE tasks SET completed = TRUE, response = $2
		 WHERE id = $1
		 RETURNING package_ref, created_at
		 `

	task := &Task{ID: id, Completed: true, Response: response}
	var packageRef sql.NullString

	err = r.db.QueryRowContext(ctx, query, key, response).Scan(&packageRef, &task.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("error performing sql request: %v", err)
	}

	task.PackageRef = packageRef.String
	return task, nil
}
