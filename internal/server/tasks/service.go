// Package tasks implements the provisioning task state machine: a task is
// created PENDING by the human-facing flow and moves to COMPLETED exactly
// once, on the first firmware callback. A later callback for the same id
// overwrites the recorded payload but never reverts completion.
package tasks

import (
	"context"
	"errors"
	"fmt"

	"github.com/openpmca/webinstaller/internal/common"
	"github.com/openpmca/webinstaller/internal/logging"
)

type Service struct {
	repo   Repository
	logger logging.Logger
}

func NewService(repo Repository, logger logging.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger.With("module", "tasks"),
	}
}

// Start allocates a new pending task. packageRef may be empty for tasks that
// exist only to observe a callback.
func (s *Service) Start(ctx context.Context, packageRef string) (*Task, error) {

	task, err := s.repo.Create(ctx, &Task{PackageRef: packageRef})
	if err != nil {
		return nil, fmt.Errorf("error creating task: %v", err)
	}

	s.logger.Info(ctx, "task started", "task", task.ID, "package", packageRef)
	return task, nil
}

// Get looks up a task by its correlation id. Unknown or malformed ids fail
// with common.ErrorNotFound.
func (s *Service) Get(ctx context.Context, id string) (*Task, error) {
	return s.repo.Get(ctx, id)
}

// Complete records the raw firmware callback body and marks the task
// completed. Calling it again for the same id applies last-write-wins
// semantics; it never fails on an already-completed task.
func (s *Service) Complete(ctx context.Context, id string, response []byte) (*Task, error) {

	task, err := s.repo.Complete(ctx, id, response)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("error completing task: %v", err)
	}

	s.logger.Info(ctx, "task completed", "task", task.ID, "payload_bytes", len(response))
	return task, nil
}
