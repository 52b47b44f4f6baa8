package models

import (
	"encoding/json"
	"testing"
)

func TestSubOrderStatusRank(t *testing.T) {
	want := map[SubOrderStatus]int{
		SubOrderStatusPending:   0,
		SubOrderStatusPacked:    1,
		SubOrderStatusShipped:   2,
		SubOrderStatusDelivered: 3,
		SubOrderStatusCancelled: -1,
		SubOrderStatus("bogus"): -1,
	}
	for status, rank := range want {
		if got := status.Rank(); got != rank {
			t.Errorf("%s.Rank() = %d, want %d", status, got, rank)
		}
	}
}

func TestSubOrderStatusTransitions(t *testing.T) {
	all := []SubOrderStatus{
		SubOrderStatusPending,
		SubOrderStatusPacked,
		SubOrderStatusShipped,
		SubOrderStatusDelivered,
		SubOrderStatusCancelled,
	}

	allowed := map[SubOrderStatus]map[SubOrderStatus]bool{
		SubOrderStatusPending: {
			SubOrderStatusPacked:    true,
			SubOrderStatusCancelled: true,
		},
		SubOrderStatusPacked: {
			SubOrderStatusShipped: true,
		},
		SubOrderStatusShipped: {
			SubOrderStatusDelivered: true,
		},
		// delivered and cancelled are terminal
	}

	for _, from := range all {
		for _, to := range all {
			want := allowed[from][to]
			if got := from.CanTransitionTo(to); got != want {
				t.Errorf("CanTransitionTo(%s -> %s) = %v, want %v", from, to, got, want)
			}
		}
	}

	// No skipping steps.
	if SubOrderStatusPending.CanTransitionTo(SubOrderStatusShipped) {
		t.Error("pending -> shipped must not be allowed")
	}
	if SubOrderStatusPacked.CanTransitionTo(SubOrderStatusDelivered) {
		t.Error("packed -> delivered must not be allowed")
	}
	// No moving backwards.
	if SubOrderStatusShipped.CanTransitionTo(SubOrderStatusPacked) {
		t.Error("shipped -> packed must not be allowed")
	}
	// Cancellation only while pending.
	if SubOrderStatusPacked.CanTransitionTo(SubOrderStatusCancelled) {
		t.Error("packed -> cancelled must not be allowed")
	}
}

func TestSubOrderStatusJSON(t *testing.T) {
	data, err := json.Marshal(SubOrderStatusPacked)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `"packed"` {
		t.Errorf("marshal = %s, want \"packed\"", data)
	}

	var status SubOrderStatus
	if err := json.Unmarshal([]byte(`"delivered"`), &status); err != nil {
		t.Fatal(err)
	}
	if status != SubOrderStatusDelivered {
		t.Errorf("unmarshal = %s, want delivered", status)
	}

	if err := json.Unmarshal([]byte(`"returned"`), &status); err == nil {
		t.Error("expected error for unknown status")
	}
	if err := json.Unmarshal([]byte(`5`), &status); err == nil {
		t.Error("expected error for non-string status")
	}
}

func TestProductCategoryJSON(t *testing.T) {
	var category ProductCategory
	if err := json.Unmarshal([]byte(`"Gift Hampers"`), &category); err != nil {
		t.Fatal(err)
	}
	if category != ProductCategoryGiftHampers {
		t.Errorf("unmarshal = %s, want Gift Hampers", category)
	}

	if err := json.Unmarshal([]byte(`"Pastries"`), &category); err == nil {
		t.Error("expected error for unknown category")
	}
}
