package client_test

import (
	"context"
	"errors"
	"testing"

	"pkt.systems/buildd"
	"pkt.systems/buildd/client"
)

func TestCredentialsLifecycle(t *testing.T) {
	t.Parallel()

	ts := buildd.StartTestServer(t)
	cli, err := ts.NewClient()
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	ctx := context.Background()
	creds := cli.Credentials()

	id, err := creds.Create(ctx, client.CredentialSpec{
		ID:          "deploy-key",
		Description: "deployment credentials",
		Username:    "deployer",
		Password:    "hunter2",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if id != "deploy-key" {
		t.Fatalf("unexpected id %q", id)
	}

	rec, err := creds.Get(ctx, "deploy-key")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if rec.Description != "deployment credentials" {
		t.Fatalf("unexpected description %q", rec.Description)
	}
	// Secret material is never echoed back by the listing.
	if rec.DisplayName != "deployer" {
		t.Fatalf("unexpected display name %q", rec.DisplayName)
	}

	if err := creds.Delete(ctx, "deploy-key"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	_, err = creds.Get(ctx, "deploy-key")
	var unknown *client.UnknownCredentialError
	if !errors.As(err, &unknown) || unknown.ID != "deploy-key" {
		t.Fatalf("expected *UnknownCredentialError, got %v", err)
	}
}
