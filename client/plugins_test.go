package client_test

import (
	"context"
	"errors"
	"testing"

	"pkt.systems/buildd"
	"pkt.systems/buildd/api"
	"pkt.systems/buildd/client"
)

func TestPluginsListAndGet(t *testing.T) {
	t.Parallel()

	ts := buildd.StartTestServer(t, buildd.WithTestPlugins(
		api.PluginRecord{ShortName: "git", LongName: "Git plugin", Version: "5.0.0", Active: true, Enabled: true},
		api.PluginRecord{ShortName: "ssh-agent", LongName: "SSH Agent", Version: "1.24", Active: true, Enabled: true},
	))
	cli, err := ts.NewClient()
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	ctx := context.Background()

	records, err := cli.Plugins().List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 plugins, got %d", len(records))
	}

	rec, err := cli.Plugins().Get(ctx, "git")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if rec.Version != "5.0.0" {
		t.Fatalf("unexpected version %q", rec.Version)
	}

	_, err = cli.Plugins().Get(ctx, "ghost")
	var unknown *client.UnknownPluginError
	if !errors.As(err, &unknown) || unknown.ShortName != "ghost" {
		t.Fatalf("expected *UnknownPluginError, got %v", err)
	}
}

func TestPluginsInstall(t *testing.T) {
	t.Parallel()

	ts := buildd.StartTestServer(t)
	cli, err := ts.NewClient()
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	ctx := context.Background()

	if err := cli.Plugins().Install(ctx, "git", "5.1.0"); err != nil {
		t.Fatalf("Install: %v", err)
	}
	rec, err := cli.Plugins().Get(ctx, "git")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if rec.Version != "5.1.0" {
		t.Fatalf("unexpected version %q", rec.Version)
	}

	// Installing without a version asks for the latest.
	if err := cli.Plugins().Install(ctx, "ssh-agent", ""); err != nil {
		t.Fatalf("Install latest: %v", err)
	}
	rec, err = cli.Plugins().Get(ctx, "ssh-agent")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if rec.Version != "latest" {
		t.Fatalf("unexpected version %q", rec.Version)
	}

	if err := cli.Plugins().CheckUpdatesServer(ctx); err != nil {
		t.Fatalf("CheckUpdatesServer: %v", err)
	}
}
