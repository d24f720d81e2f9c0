package api

import (
	"encoding/json"
	"testing"
)

func TestResourceRecordKeepsUnknownFields(t *testing.T) {
	t.Parallel()

	payload := []byte(`{
		"name": "db-1",
		"free": true,
		"reserved": false,
		"labelsAsList": ["db"],
		"queuingStarted": 1724900000,
		"queueItemProject": "nightly"
	}`)

	var rec ResourceRecord
	if err := json.Unmarshal(payload, &rec); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if rec.Name != "db-1" || !rec.Free || rec.Reserved {
		t.Fatalf("known fields misdecoded: %+v", rec)
	}
	if !rec.HasLabel("db") {
		t.Fatal("label list lost")
	}
	if _, ok := rec.Extra["queuingStarted"]; !ok {
		t.Fatalf("unknown field not stashed: %v", rec.Extra)
	}
	// Known fields must not leak into Extra.
	if _, ok := rec.Extra["name"]; ok {
		t.Fatalf("known field leaked into Extra: %v", rec.Extra)
	}

	out, err := json.Marshal(rec)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var echoed map[string]json.RawMessage
	if err := json.Unmarshal(out, &echoed); err != nil {
		t.Fatalf("reparse: %v", err)
	}
	if string(echoed["queuingStarted"]) != "1724900000" {
		t.Fatalf("unknown field lost on marshal: %s", out)
	}
	if string(echoed["queueItemProject"]) != `"nightly"` {
		t.Fatalf("unknown field mangled: %s", out)
	}
}

func TestResourceRecordMarshalPrefersKnownFields(t *testing.T) {
	t.Parallel()

	rec := ResourceRecord{
		Name: "db-1",
		Free: true,
		Extra: map[string]json.RawMessage{
			// A stale stashed copy of a modeled field must not override it.
			"free": json.RawMessage("false"),
		},
	}
	out, err := json.Marshal(rec)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var echoed map[string]json.RawMessage
	if err := json.Unmarshal(out, &echoed); err != nil {
		t.Fatalf("reparse: %v", err)
	}
	if string(echoed["free"]) != "true" {
		t.Fatalf("modeled field overridden by Extra: %s", out)
	}
}

func TestHasLabel(t *testing.T) {
	t.Parallel()

	rec := ResourceRecord{LabelList: []string{"db", "slow"}}
	if !rec.HasLabel("db") || !rec.HasLabel("slow") {
		t.Fatal("expected labels missing")
	}
	if rec.HasLabel("gpu") {
		t.Fatal("unexpected label match")
	}
	if (ResourceRecord{}).HasLabel("db") {
		t.Fatal("empty record matched a label")
	}
}
