package jobs

import "testing"

func TestResolveSweepUpdates(t *testing.T) {
	txns := []uncategorizedRow{
		{id: "t1", ownerID: "alice", txnType: "expense"},
		{id: "t2", ownerID: "alice", txnType: "income"},
		{id: "t3", ownerID: "bob", txnType: "expense"},   // bob has no fallbacks loaded
		{id: "t4", ownerID: "alice", txnType: "unknown"}, // no fallback for this type
	}
	fallbacks := map[string]map[string]string{
		"alice": {
			"income":  "cat-other-income",
			"expense": "cat-other-expenses",
		},
	}

	updates := resolveSweepUpdates(txns, fallbacks)
	if len(updates) != 2 {
		t.Fatalf("got %d updates, want 2", len(updates))
	}
	if updates[0].txnID != "t1" || updates[0].categoryID != "cat-other-expenses" {
		t.Errorf("update 0: got %+v", updates[0])
	}
	if updates[1].txnID != "t2" || updates[1].categoryID != "cat-other-income" {
		t.Errorf("update 1: got %+v", updates[1])
	}
}

func TestResolveSweepUpdatesEmpty(t *testing.T) {
	if got := resolveSweepUpdates(nil, nil); len(got) != 0 {
		t.Errorf("expected no updates, got %d", len(got))
	}
}
