// Package storecli is the interactive vendor store client: it logs in to
// the store, lists the account's cameras and their purchased apps, and
// downloads app containers, unwrapping them into plain packages on disk.
package storecli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/openpmca/webinstaller/internal/filex"
	"github.com/openpmca/webinstaller/internal/market"
	"github.com/openpmca/webinstaller/internal/spk"
)

type App struct {
	config *Config
	market *market.Client
	reader *bufio.Reader
	out    io.Writer
}

func NewApp(cfg *Config, client *market.Client) *App {
	return &App{
		config: cfg,
		market: client,
		reader: bufio.NewReader(os.Stdin),
		out:    os.Stdout,
	}
}

// Run drives one full session: login, device choice, app choice, download.
func (app *App) Run(ctx context.Context) error {

	email, err := GetSimpleText(app.reader, "Store account email", app.out)
	if err != nil {
		return err
	}
	password, err := GetPassword(app.out)
	if err != nil {
		return err
	}

	portalID, err := app.market.Login(ctx, email, string(password))
	if err != nil {
		return err
	}

	device, err := app.chooseDevice(ctx, portalID)
	if err != nil {
		return err
	}

	apps, err := app.listApps(ctx, device)
	if err != nil {
		return err
	}

	for {
		choice, err := GetSimpleText(app.reader, "App number to download (empty to quit)", app.out)
		if err != nil {
			return err
		}
		if choice == "" {
			return nil
		}

		n, err := strconv.Atoi(choice)
		if err != nil || n < 1 || n > len(apps) {
			fmt.Fprintln(app.out, "no such app")
			continue
		}

		if err := app.download(ctx, portalID, device.ID, apps[n-1]); err != nil {
			return err
		}
	}
}

func (app *App) chooseDevice(ctx context.Context, portalID string) (market.Device, error) {

	devices, err := app.market.Devices(ctx, portalID)
	if err != nil {
		return market.Device{}, err
	}
	if len(devices) == 0 {
		return market.Device{}, fmt.Errorf("no cameras are bound to this account")
	}

	fmt.Fprintln(app.out, "Cameras:")
	for i, d := range devices {
		fmt.Fprintf(app.out, "  %d. %s (%s)\n", i+1, d.Name, d.Serial)
	}
	if len(devices) == 1 {
		return devices[0], nil
	}

	choice, err := GetSimpleText(app.reader, "Camera number", app.out)
	if err != nil {
		return market.Device{}, err
	}
	n, err := strconv.Atoi(choice)
	if err != nil || n < 1 || n > len(devices) {
		return market.Device{}, fmt.Errorf("no such camera: %q", choice)
	}
	return devices[n-1], nil
}

func (app *App) listApps(ctx context.Context, device market.Device) ([]market.App, error) {

	all, err := app.market.Apps(ctx, device.ID)
	if err != nil {
		return nil, err
	}

	apps := all[:0]
	for _, a := range all {
		if a.Available() {
			apps = append(apps, a)
		}
	}
	if len(apps) == 0 {
		return nil, fmt.Errorf("no apps are available for %s", device.Name)
	}

	fmt.Fprintln(app.out, "Apps:")
	for i, a := range apps {
		fmt.Fprintf(app.out, "  %d. %s [%s]\n", i+1, a.Name, a.Status)
	}
	return apps, nil
}

// download fetches the app container, unwraps it and writes the plain
// package into the output directory.
func (app *App) download(ctx context.Context, portalID, deviceID string, item market.App) error {

	name, container, err := app.market.Download(ctx, portalID, deviceID, item.ID)
	if err != nil {
		return err
	}

	apk, err := spk.Parse(container)
	if err != nil {
		return err
	}

	dir, err := filex.EnsureSubdDir(app.config.OutputDir)
	if err != nil {
		return err
	}

	filename := strings.TrimSuffix(name, spk.Extension) + spk.ApkExtension
	path := filepath.Join(dir, filename)
	if err := os.WriteFile(path, apk, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}

	fmt.Fprintf(app.out, "Saved %s\n", path)
	return nil
}
