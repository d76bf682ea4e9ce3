// Package market implements the HTTP client for the vendor app store portal:
// account login, device and app catalog listing, and download of purchased
// app containers. Every call is a single blocking request against the remote
// API; retries, if any, are the caller's decision.
package market

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/openpmca/webinstaller/internal/common"
	"github.com/openpmca/webinstaller/internal/logging"
	"github.com/openpmca/webinstaller/internal/spk"
)

// PlaceholderStatusPrefix marks catalog entries that are not real apps
// (category separators, unavailable items). Filtering them out is caller
// policy; the client returns the full list.
const PlaceholderStatusPrefix = "$"

// Device is a camera bound to a store account.
type Device struct {
	ID     string `json:"deviceid"`
	Name   string `json:"name"`
	Serial string `json:"serial"`
}

// App is a catalog entry for a device.
type App struct {
	ID     string `json:"appid"`
	Name   string `json:"name"`
	Status string `json:"status"`
}

// Available reports whether the entry is a real, installable app rather
// than a placeholder row.
func (a App) Available() bool {
	return !strings.HasPrefix(a.Status, PlaceholderStatusPrefix)
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     logging.Logger
}

func NewClient(baseURL string, timeout time.Duration, logger logging.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.With("module", "market_client"),
	}
}

func remoteErr(call string, detail error) error {
	return fmt.Errorf("%w: %s: %v", common.ErrorRemoteService, call, detail)
}

func statusErr(call string, status int) error {
	return fmt.Errorf("%w: %s: unexpected status %d", common.ErrorRemoteService, call, status)
}

// Login exchanges the account credential for an opaque portal id.
// An invalid credential fails with common.ErrorAuth.
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	form := url.Values{}
	form.Set("email", email)
	form.Set("password", password)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/login", strings.NewReader(form.Encode()))
	if err != nil {
		return "", remoteErr("login", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", remoteErr("login", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return "", fmt.Errorf("%w: rejected by store (status %d)", common.ErrorAuth, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return "", statusErr("login", resp.StatusCode)
	}

	var body struct {
		PortalID string `json:"portalid"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", remoteErr("login", err)
	}
	if body.PortalID == "" {
		return "", fmt.Errorf("%w: store returned no portal id", common.ErrorAuth)
	}

	c.logger.Info(ctx, "logged in to store")
	return body.PortalID, nil
}

// Devices lists the cameras bound to the account.
func (c *Client) Devices(ctx context.Context, portalID string) ([]Device, error) {
	var body struct {
		Devices []Device `json:"devices"`
	}
	if err := c.getJSON(ctx, "devices", "/accounts/"+url.PathEscape(portalID)+"/devices", &body); err != nil {
		return nil, err
	}
	return body.Devices, nil
}

// Apps lists the store catalog for a device, placeholder entries included.
func (c *Client) Apps(ctx context.Context, deviceID string) ([]App, error) {
	var body struct {
		Apps []App `json:"apps"`
	}
	if err := c.getJSON(ctx, "apps", "/devices/"+url.PathEscape(deviceID)+"/apps", &body); err != nil {
		return nil, err
	}
	return body.Apps, nil
}

// Download fetches the purchased app's device container and a filename hint
// taken from the Content-Disposition header (falling back to the app id).
func (c *Client) Download(ctx context.Context, portalID, deviceID, appID string) (string, []byte, error) {
	path := "/accounts/" + url.PathEscape(portalID) +
		"/devices/" + url.PathEscape(deviceID) +
		"/apps/" + url.PathEscape(appID) + "/download"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return "", nil, remoteErr("download", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", nil, remoteErr("download", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", nil, statusErr("download", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", nil, remoteErr("download", err)
	}

	name := appID + spk.Extension
	if cd := resp.Header.Get("Content-Disposition"); cd != "" {
		if _, params, err := mime.ParseMediaType(cd); err == nil && params["filename"] != "" {
			name = params["filename"]
		}
	}

	c.logger.Info(ctx, "downloaded app container", "app", appID, "size", len(data))
	return name, data, nil
}

func (c *Client) getJSON(ctx context.Context, call, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return remoteErr(call, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return remoteErr(call, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return statusErr(call, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return remoteErr(call, err)
	}
	return nil
}
