package buildd_test

import (
	"context"
	"testing"

	"pkt.systems/buildd"
)

func TestTestServerSeedingAndHooks(t *testing.T) {
	t.Parallel()

	ts := buildd.StartTestServer(t,
		buildd.WithTestResources(buildd.FreeResource("db-1", "db", "slow")),
	)

	rec, ok := ts.Resource("db-1")
	if !ok {
		t.Fatal("seeded resource missing")
	}
	if !rec.Free || rec.Reserved {
		t.Fatalf("seeded resource not free: %+v", rec)
	}
	if !rec.HasLabel("db") || !rec.HasLabel("slow") {
		t.Fatalf("labels lost in seeding: %+v", rec)
	}

	if !ts.ReserveAs("db-1", "rival") {
		t.Fatal("ReserveAs failed")
	}
	if ts.ReserveAs("db-1", "other") {
		t.Fatal("double ReserveAs succeeded")
	}
	if !ts.Release("db-1") {
		t.Fatal("Release failed")
	}
	if rec, _ := ts.Resource("db-1"); rec.Reserved {
		t.Fatalf("still reserved after release: %+v", rec)
	}
}

func TestTestServerOnPollFires(t *testing.T) {
	t.Parallel()

	ts := buildd.StartTestServer(t, buildd.WithTestResources(buildd.FreeResource("db-1")))
	var seen []int
	ts.OnPoll = func(polls int) {
		seen = append(seen, polls)
	}
	cli, err := ts.NewClient()
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	ctx := context.Background()
	pool, err := cli.LockableResources(ctx)
	if err != nil {
		t.Fatalf("LockableResources: %v", err)
	}
	if err := pool.Poll(ctx); err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if len(seen) != 2 || seen[0] != 1 || seen[1] != 2 {
		t.Fatalf("unexpected poll hook calls: %v", seen)
	}
	if ts.PollCount() != 2 {
		t.Fatalf("unexpected poll count %d", ts.PollCount())
	}
}
