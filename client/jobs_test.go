package client_test

import (
	"bytes"
	"context"
	"errors"
	"net/url"
	"testing"

	"pkt.systems/buildd"
	"pkt.systems/buildd/client"
)

func TestJobsCreateGetDelete(t *testing.T) {
	t.Parallel()

	ts := buildd.StartTestServer(t)
	cli, err := ts.NewClient()
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	ctx := context.Background()
	jobs := cli.Jobs()

	config := []byte(`<project><description>nightly</description></project>`)
	if err := jobs.Create(ctx, "nightly", config); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if ok, err := jobs.Exists(ctx, "nightly"); err != nil || !ok {
		t.Fatalf("Exists: ok=%v err=%v", ok, err)
	}

	job, err := jobs.Get(ctx, "nightly")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	got, err := job.Config(ctx)
	if err != nil {
		t.Fatalf("Config: %v", err)
	}
	if !bytes.Equal(got, config) {
		t.Fatalf("config round-trip mismatch: %s", got)
	}

	updated := []byte(`<project><description>nightly v2</description></project>`)
	if err := job.SetConfig(ctx, updated); err != nil {
		t.Fatalf("SetConfig: %v", err)
	}
	got, err = job.Config(ctx)
	if err != nil {
		t.Fatalf("Config after update: %v", err)
	}
	if !bytes.Equal(got, updated) {
		t.Fatalf("updated config mismatch: %s", got)
	}

	if err := jobs.Delete(ctx, "nightly"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if ok, err := jobs.Exists(ctx, "nightly"); err != nil || ok {
		t.Fatalf("job survived delete: ok=%v err=%v", ok, err)
	}
}

func TestJobsGetUnknown(t *testing.T) {
	t.Parallel()

	ts := buildd.StartTestServer(t)
	cli, err := ts.NewClient()
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	_, err = cli.Jobs().Get(context.Background(), "ghost")
	var unknown *client.UnknownJobError
	if !errors.As(err, &unknown) || unknown.Name != "ghost" {
		t.Fatalf("expected *UnknownJobError, got %v", err)
	}
}

func TestJobsCopy(t *testing.T) {
	t.Parallel()

	ts := buildd.StartTestServer(t)
	cli, err := ts.NewClient()
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	ctx := context.Background()
	jobs := cli.Jobs()

	config := []byte(`<project><description>template</description></project>`)
	if err := jobs.Create(ctx, "template", config); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := jobs.Copy(ctx, "template", "clone"); err != nil {
		t.Fatalf("Copy: %v", err)
	}
	job, err := jobs.Get(ctx, "clone")
	if err != nil {
		t.Fatalf("Get clone: %v", err)
	}
	got, err := job.Config(ctx)
	if err != nil {
		t.Fatalf("Config: %v", err)
	}
	if !bytes.Equal(got, config) {
		t.Fatalf("clone config differs: %s", got)
	}
}

func TestJobsBuildReturnsQueueItem(t *testing.T) {
	t.Parallel()

	ts := buildd.StartTestServer(t, buildd.WithTestJobs("deploy"))
	cli, err := ts.NewClient()
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	ctx := context.Background()

	ref, err := cli.Jobs().Build(ctx, "deploy", nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if ref.ID != 1 {
		t.Fatalf("unexpected queue id %d", ref.ID)
	}
	if ref.URL == "" {
		t.Fatal("empty queue item URL")
	}

	params := url.Values{"TARGET": {"staging"}}
	ref, err = cli.Jobs().Build(ctx, "deploy", params)
	if err != nil {
		t.Fatalf("Build with parameters: %v", err)
	}
	if ref.ID != 2 {
		t.Fatalf("queue id did not advance: %d", ref.ID)
	}
}

func TestJobEnableDisable(t *testing.T) {
	t.Parallel()

	ts := buildd.StartTestServer(t, buildd.WithTestJobs("deploy"))
	cli, err := ts.NewClient()
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	ctx := context.Background()

	job, err := cli.Jobs().Get(ctx, "deploy")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if err := job.Disable(ctx); err != nil {
		t.Fatalf("Disable: %v", err)
	}
	records, err := cli.Jobs().List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(records) != 1 || records[0].Buildable {
		t.Fatalf("job still buildable after disable: %+v", records)
	}
	if err := job.Enable(ctx); err != nil {
		t.Fatalf("Enable: %v", err)
	}
	records, err = cli.Jobs().List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(records) != 1 || !records[0].Buildable {
		t.Fatalf("job not buildable after enable: %+v", records)
	}
}

func TestJobNamesWithSpaces(t *testing.T) {
	t.Parallel()

	ts := buildd.StartTestServer(t, buildd.WithTestJobs("deploy to prod"))
	cli, err := ts.NewClient()
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	ctx := context.Background()

	job, err := cli.Jobs().Get(ctx, "deploy to prod")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if _, err := job.Config(ctx); err != nil {
		t.Fatalf("Config with escaped path: %v", err)
	}
	if _, err := cli.Jobs().Build(ctx, "deploy to prod", nil); err != nil {
		t.Fatalf("Build with escaped path: %v", err)
	}
}
