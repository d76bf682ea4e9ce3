// Package provision composes the task store, package storage and the
// protocol codecs into the firmware-facing handshake: descriptor fetch,
// portal callback, container retrieval.
package provision

import (
	"context"
	"fmt"
	"time"

	"github.com/openpmca/webinstaller/internal/common"
	"github.com/openpmca/webinstaller/internal/logging"
	"github.com/openpmca/webinstaller/internal/portal"
	"github.com/openpmca/webinstaller/internal/server/auth"
	"github.com/openpmca/webinstaller/internal/server/packages"
	"github.com/openpmca/webinstaller/internal/server/tasks"
	"github.com/openpmca/webinstaller/internal/spk"
	"github.com/openpmca/webinstaller/internal/xpd"
)

// InstallCategory is the application category name announced to firmware in
// install instructions.
const InstallCategory = "App"

type Coordinator struct {
	tasks         *tasks.Service
	storage       packages.Storage
	baseURL       string
	secret        []byte
	tokenValidity time.Duration
	logger        logging.Logger
}

func New(taskService *tasks.Service, storage packages.Storage, baseURL string, secret []byte, tokenValidity time.Duration, logger logging.Logger) *Coordinator {
	return &Coordinator{
		tasks:         taskService,
		storage:       storage,
		baseURL:       baseURL,
		secret:        secret,
		tokenValidity: tokenValidity,
		logger:        logger.With("module", "provision"),
	}
}

// Descriptor renders the descriptor document for a task, naming the portal
// URL and the task's correlation id. Unknown tasks propagate not-found.
func (c *Coordinator) Descriptor(ctx context.Context, taskID string) ([]byte, error) {
	task, err := c.tasks.Get(ctx, taskID)
	if err != nil {
		return nil, err
	}
	return xpd.Build(task.ID, c.baseURL+"/provisioning/portal"), nil
}

// HandleCallback processes a firmware portal POST. The task referenced by
// the envelope's correlation id is completed with the raw body on every
// branch; an unknown correlation id is a hard failure, never an idle reply.
func (c *Coordinator) HandleCallback(ctx context.Context, body []byte) ([]byte, error) {

	req, err := portal.ParseRequest(body)
	if err != nil {
		return nil, err
	}

	task, err := c.tasks.Get(ctx, req.CorrelationID)
	if err != nil {
		return nil, err
	}

	var response []byte
	if !task.Completed && task.PackageRef != "" {
		url, err := c.containerURL(task.PackageRef)
		if err != nil {
			return nil, err
		}
		response, err = portal.BuildInstallResponse(InstallCategory, url)
		if err != nil {
			return nil, err
		}
		c.logger.Info(ctx, "instructing install", "task", task.ID, "package", task.PackageRef)
	} else {
		response, err = portal.BuildIdleResponse()
		if err != nil {
			return nil, err
		}
		c.logger.Info(ctx, "nothing to install", "task", task.ID)
	}

	if _, err := c.tasks.Complete(ctx, task.ID, body); err != nil {
		return nil, err
	}

	return response, nil
}

// containerURL builds the signed retrieval URL for a package handle.
func (c *Coordinator) containerURL(handle string) (string, error) {
	token, err := auth.GenerateToken(handle, c.secret, c.tokenValidity)
	if err != nil {
		return "", fmt.Errorf("error signing retrieval token: %v", err)
	}
	return c.baseURL + "/provisioning/container/" + handle + "?token=" + token, nil
}

// Container verifies the retrieval token, opens the referenced package and
// derives the device container on the fly. Containers are never persisted;
// encoding is pure and cheap relative to the surrounding I/O.
func (c *Coordinator) Container(ctx context.Context, handle, token string) (string, []byte, error) {

	tokenHandle, err := auth.GetHandleFromToken(token, c.secret)
	if err != nil {
		return "", nil, err
	}
	if tokenHandle != handle {
		return "", nil, common.ErrorInvalidToken
	}

	apk, err := c.storage.Open(ctx, handle)
	if err != nil {
		return "", nil, err
	}

	container, err := spk.Dump(apk)
	if err != nil {
		return "", nil, err
	}

	return "app" + spk.Extension, container, nil
}
