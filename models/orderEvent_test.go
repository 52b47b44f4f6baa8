package models

import (
	"testing"
	"time"

	"bitbucket.org/mmdatafocus/bakery_backend/utils"
)

func TestConvertToOrderEvent(t *testing.T) {
	payloadJSON, err := utils.MarshalToJSON(map[string]any{
		"sub_order_number": "ORD-7-2",
		"from_status":      "pending",
		"to_status":        "packed",
	})
	if err != nil {
		t.Fatal(err)
	}

	occurredAt := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
	record := OrderEventRecord{
		ID:            41,
		BusinessId:    "biz-1",
		OccurredAt:    occurredAt,
		ReferenceId:   7,
		ReferenceType: OrderEventRefTypeSubOrder,
		Action:        OrderEventActionStatusChanged,
		Payload:       []byte(payloadJSON),
		CorrelationId: "corr-9",
	}

	event := ConvertToOrderEvent(record)
	if event.ID != 41 || event.BusinessId != "biz-1" || event.ReferenceId != 7 {
		t.Errorf("identity fields = %d/%s/%d", event.ID, event.BusinessId, event.ReferenceId)
	}
	if event.ReferenceType != string(OrderEventRefTypeSubOrder) {
		t.Errorf("reference type = %q", event.ReferenceType)
	}
	if event.Action != string(OrderEventActionStatusChanged) {
		t.Errorf("action = %q", event.Action)
	}
	if !event.OccurredAt.Equal(occurredAt) {
		t.Errorf("occurred at = %v", event.OccurredAt)
	}
	if event.CorrelationId != "corr-9" {
		t.Errorf("correlation id = %q", event.CorrelationId)
	}

	// the payload stays decodable by subscribers
	var decoded struct {
		SubOrderNumber string `json:"sub_order_number"`
		FromStatus     string `json:"from_status"`
		ToStatus       string `json:"to_status"`
	}
	if err := utils.UnmarshalFromJSON(event.Payload, &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded.SubOrderNumber != "ORD-7-2" || decoded.FromStatus != "pending" || decoded.ToStatus != "packed" {
		t.Errorf("payload = %+v", decoded)
	}
}
