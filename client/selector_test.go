package client

import (
	"reflect"
	"strings"
	"testing"

	"pkt.systems/buildd/api"
)

func testSnapshot() *Snapshot {
	return newSnapshot([]api.ResourceRecord{
		{Name: "db-1", Free: true, LabelList: []string{"db", "slow"}},
		{Name: "db-2", Free: true, LabelList: []string{"db"}},
		{Name: "gpu-1", Free: false, LabelList: []string{"gpu"}},
	})
}

func TestSelectNameYieldsConfiguredName(t *testing.T) {
	t.Parallel()

	sel := SelectName("db-1")
	got := sel.Select(testSnapshot())
	if !reflect.DeepEqual(got, []string{"db-1"}) {
		t.Fatalf("unexpected selection: %v", got)
	}
}

func TestSelectNamesPreservesOrder(t *testing.T) {
	t.Parallel()

	sel := SelectNames("gpu-1", "db-2", "db-1")
	got := sel.Select(testSnapshot())
	want := []string{"gpu-1", "db-2", "db-1"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("order not preserved: got %v want %v", got, want)
	}
}

func TestSelectLabelFollowsSnapshotOrder(t *testing.T) {
	t.Parallel()

	sel := SelectLabel("db")
	got := sel.Select(testSnapshot())
	want := []string{"db-1", "db-2"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected selection: got %v want %v", got, want)
	}
}

func TestSelectLabelNoMatches(t *testing.T) {
	t.Parallel()

	if got := SelectLabel("nope").Select(testSnapshot()); len(got) != 0 {
		t.Fatalf("expected no candidates, got %v", got)
	}
}

func TestSelectorsDoNotMutateSnapshot(t *testing.T) {
	t.Parallel()

	snap := testSnapshot()
	before := snap.Records()
	for _, sel := range []Selector{
		SelectName("db-1"),
		SelectNames("db-2", "db-1"),
		SelectLabel("db"),
	} {
		sel.Select(snap)
	}
	after := snap.Records()
	if !reflect.DeepEqual(before, after) {
		t.Fatalf("snapshot mutated by selection: before %v after %v", before, after)
	}
}

func TestSelectorStringsRenderCriterion(t *testing.T) {
	t.Parallel()

	cases := []struct {
		sel  Selector
		want string
	}{
		{SelectName("db-1"), `"db-1"`},
		{SelectNames("a", "b"), `"a" "b"`},
		{SelectLabel("gpu"), `"gpu"`},
	}
	for _, tc := range cases {
		if got := tc.sel.String(); !strings.Contains(got, tc.want) {
			t.Fatalf("criterion %s missing from %q", tc.want, got)
		}
	}
}

func TestSelectNamesCopiesInput(t *testing.T) {
	t.Parallel()

	names := []string{"a", "b"}
	sel := SelectNames(names...)
	names[0] = "mutated"
	if got := sel.Select(testSnapshot()); got[0] != "a" {
		t.Fatalf("selector shares caller slice: %v", got)
	}
}
