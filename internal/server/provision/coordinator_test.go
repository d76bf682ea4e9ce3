package provision

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/openpmca/webinstaller/internal/common"
	"github.com/openpmca/webinstaller/internal/logging"
	"github.com/openpmca/webinstaller/internal/server/packages"
	"github.com/openpmca/webinstaller/internal/server/tasks"
	"github.com/openpmca/webinstaller/internal/spk"
)

const testBaseURL = "https://installer.test"

func testLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError})))
}

func newTestCoordinator(t *testing.T) (*Coordinator, *tasks.Service, packages.Storage) {
	t.Helper()
	logger := testLogger()
	taskService := tasks.NewService(tasks.NewInMemoryRepository(), logger)
	storage := packages.NewInMemoryStorage()
	c := New(taskService, storage, testBaseURL, []byte("test-secret"), time.Minute, logger)
	return c, taskService, storage
}

func callbackBody(correlationID string) []byte {
	return []byte(`{"session":{"correlationid":"` + correlationID + `"}}`)
}

func installActions(t *testing.T, response []byte) []struct {
	Type     string `json:"type"`
	Category string `json:"category"`
	URL      string `json:"url"`
} {
	t.Helper()
	var resp struct {
		Actions []struct {
			Type     string `json:"type"`
			Category string `json:"category"`
			URL      string `json:"url"`
		} `json:"actions"`
	}
	if err := json.Unmarshal(response, &resp); err != nil {
		t.Fatalf("response is not valid JSON: %v", err)
	}
	return resp.Actions
}

func TestDescriptor(t *testing.T) {
	t.Parallel()

	c, taskService, _ := newTestCoordinator(t)
	ctx := context.Background()

	task, err := taskService.Start(ctx, "")
	if err != nil {
		t.Fatalf("Start error: %v", err)
	}

	doc, err := c.Descriptor(ctx, task.ID)
	if err != nil {
		t.Fatalf("Descriptor error: %v", err)
	}
	if !strings.Contains(string(doc), "RGST="+testBaseURL+"/provisioning/portal\n") {
		t.Fatalf("descriptor missing portal URL:\n%s", doc)
	}
	if !strings.Contains(string(doc), "CID="+task.ID+"\n") {
		t.Fatalf("descriptor missing correlation id:\n%s", doc)
	}
}

func TestDescriptor_UnknownTask(t *testing.T) {
	t.Parallel()

	c, _, _ := newTestCoordinator(t)

	_, err := c.Descriptor(context.Background(), "999")
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestHandleCallback_InstallBranch(t *testing.T) {
	t.Parallel()

	c, taskService, storage := newTestCoordinator(t)
	ctx := context.Background()

	apk := []byte("PK\x03\x04 original apk")
	handle, err := storage.Save(ctx, apk)
	if err != nil {
		t.Fatalf("Save error: %v", err)
	}

	task, err := taskService.Start(ctx, handle)
	if err != nil {
		t.Fatalf("Start error: %v", err)
	}

	body := callbackBody(task.ID)
	response, err := c.HandleCallback(ctx, body)
	if err != nil {
		t.Fatalf("HandleCallback error: %v", err)
	}

	actions := installActions(t, response)
	if len(actions) != 1 || actions[0].Type != "install" || actions[0].Category != InstallCategory {
		t.Fatalf("expected a single install action, got %+v", actions)
	}

	// The install URL must point back at this server and round-trip through
	// the container endpoint to the original package bytes.
	u, err := url.Parse(actions[0].URL)
	if err != nil {
		t.Fatalf("install URL invalid: %v", err)
	}
	if !strings.HasPrefix(actions[0].URL, testBaseURL+"/provisioning/container/") {
		t.Fatalf("unexpected install URL: %s", actions[0].URL)
	}
	gotHandle := strings.TrimPrefix(u.Path, "/provisioning/container/")
	if gotHandle != handle {
		t.Fatalf("install URL handle: got %q want %q", gotHandle, handle)
	}

	_, container, err := c.Container(ctx, gotHandle, u.Query().Get("token"))
	if err != nil {
		t.Fatalf("Container error: %v", err)
	}
	decoded, err := spk.Parse(container)
	if err != nil {
		t.Fatalf("container does not parse: %v", err)
	}
	if !bytes.Equal(decoded, apk) {
		t.Fatalf("container does not decode back to the original package")
	}

	// The callback body must be recorded and the task completed.
	got, err := taskService.Get(ctx, task.ID)
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if !got.Completed {
		t.Fatalf("task should be completed after callback")
	}
	if !bytes.Equal(got.Response, body) {
		t.Fatalf("raw callback payload not recorded")
	}
}

func TestHandleCallback_IdleBranch(t *testing.T) {
	t.Parallel()

	c, taskService, _ := newTestCoordinator(t)
	ctx := context.Background()

	task, err := taskService.Start(ctx, "")
	if err != nil {
		t.Fatalf("Start error: %v", err)
	}

	response, err := c.HandleCallback(ctx, callbackBody(task.ID))
	if err != nil {
		t.Fatalf("HandleCallback error: %v", err)
	}
	if actions := installActions(t, response); len(actions) != 0 {
		t.Fatalf("expected idle envelope, got actions %+v", actions)
	}

	got, _ := taskService.Get(ctx, task.ID)
	if !got.Completed {
		t.Fatalf("task should be completed after callback")
	}
}

func TestHandleCallback_SecondCallbackIsIdle(t *testing.T) {
	t.Parallel()

	c, taskService, storage := newTestCoordinator(t)
	ctx := context.Background()

	handle, _ := storage.Save(ctx, []byte("apk"))
	task, _ := taskService.Start(ctx, handle)

	first, err := c.HandleCallback(ctx, callbackBody(task.ID))
	if err != nil {
		t.Fatalf("first HandleCallback error: %v", err)
	}
	if len(installActions(t, first)) != 1 {
		t.Fatalf("first callback should instruct install")
	}

	retry := []byte(`{"session":{"correlationid":"` + task.ID + `","retry":true}}`)
	second, err := c.HandleCallback(ctx, retry)
	if err != nil {
		t.Fatalf("second HandleCallback error: %v", err)
	}
	if len(installActions(t, second)) != 0 {
		t.Fatalf("completed task must get the idle envelope")
	}

	// Last write wins on the recorded payload.
	got, _ := taskService.Get(ctx, task.ID)
	if !bytes.Equal(got.Response, retry) {
		t.Fatalf("expected latest callback payload to be recorded")
	}
}

func TestHandleCallback_UnknownCorrelationID(t *testing.T) {
	t.Parallel()

	c, _, _ := newTestCoordinator(t)

	_, err := c.HandleCallback(context.Background(), callbackBody("999"))
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("unknown correlation id must be a hard failure, got %v", err)
	}
}

func TestHandleCallback_ProtocolError(t *testing.T) {
	t.Parallel()

	c, _, _ := newTestCoordinator(t)

	_, err := c.HandleCallback(context.Background(), []byte(`{"session":{}}`))
	if !errors.Is(err, common.ErrorProtocol) {
		t.Fatalf("expected protocol error, got %v", err)
	}
}

func TestContainer_BadToken(t *testing.T) {
	t.Parallel()

	c, _, storage := newTestCoordinator(t)
	ctx := context.Background()

	handle, _ := storage.Save(ctx, []byte("apk"))

	if _, _, err := c.Container(ctx, handle, "garbage"); !errors.Is(err, common.ErrorInvalidToken) {
		t.Fatalf("expected invalid token error, got %v", err)
	}
}

func TestContainer_TokenHandleMismatch(t *testing.T) {
	t.Parallel()

	c, taskService, storage := newTestCoordinator(t)
	ctx := context.Background()

	handleA, _ := storage.Save(ctx, []byte("apk-a"))
	handleB, _ := storage.Save(ctx, []byte("apk-b"))

	task, _ := taskService.Start(ctx, handleA)
	response, err := c.HandleCallback(ctx, callbackBody(task.ID))
	if err != nil {
		t.Fatalf("HandleCallback error: %v", err)
	}
	u, _ := url.Parse(installActions(t, response)[0].URL)

	// A token issued for handleA must not open handleB.
	if _, _, err := c.Container(ctx, handleB, u.Query().Get("token")); !errors.Is(err, common.ErrorInvalidToken) {
		t.Fatalf("expected invalid token error, got %v", err)
	}
}

func TestContainer_UnknownHandle(t *testing.T) {
	t.Parallel()

	c, _, _ := newTestCoordinator(t)

	// Sign a token for a handle that was never stored.
	coordinatorURL, err := c.containerURL("missing")
	if err != nil {
		t.Fatalf("containerURL error: %v", err)
	}
	u, _ := url.Parse(coordinatorURL)

	_, _, err = c.Container(context.Background(), "missing", u.Query().Get("token"))
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
