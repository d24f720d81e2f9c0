package client_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"pkt.systems/buildd"
	"pkt.systems/buildd/client"
)

func TestViewsCreateAddDelete(t *testing.T) {
	t.Parallel()

	ts := buildd.StartTestServer(t, buildd.WithTestJobs("deploy"))
	cli, err := ts.NewClient()
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	ctx := context.Background()
	views := cli.Views()

	if err := views.Create(ctx, "release"); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if ok, err := views.Exists(ctx, "release"); err != nil || !ok {
		t.Fatalf("Exists: ok=%v err=%v", ok, err)
	}
	if err := views.AddJob(ctx, "release", "deploy"); err != nil {
		t.Fatalf("AddJob: %v", err)
	}
	if err := views.Delete(ctx, "release"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if ok, err := views.Exists(ctx, "release"); err != nil || ok {
		t.Fatalf("view survived delete: ok=%v err=%v", ok, err)
	}
}

func TestViewsAddUnknownJob(t *testing.T) {
	t.Parallel()

	ts := buildd.StartTestServer(t)
	cli, err := ts.NewClient()
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	ctx := context.Background()

	if err := cli.Views().Create(ctx, "release"); err != nil {
		t.Fatalf("Create: %v", err)
	}
	err = cli.Views().AddJob(ctx, "release", "ghost")
	var apiErr *client.APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusBadRequest {
		t.Fatalf("expected 400 *APIError, got %v", err)
	}
}

func TestViewsDuplicateCreate(t *testing.T) {
	t.Parallel()

	ts := buildd.StartTestServer(t)
	cli, err := ts.NewClient()
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	ctx := context.Background()

	if err := cli.Views().Create(ctx, "release"); err != nil {
		t.Fatalf("Create: %v", err)
	}
	err = cli.Views().Create(ctx, "release")
	var apiErr *client.APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusBadRequest {
		t.Fatalf("expected 400 *APIError, got %v", err)
	}
}
