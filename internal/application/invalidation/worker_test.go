package invalidation

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"warehouse-assistant-api/internal/domain/repository"
	"warehouse-assistant-api/internal/infrastructure/messaging"
)

type recordingCache struct {
	patterns []string
	err      error
}

func (c *recordingCache) Get(_ context.Context, _ repository.CacheType, _ string) ([]byte, bool) {
	return nil, false
}

func (c *recordingCache) Set(_ context.Context, _ repository.CacheType, _ string, _ []byte, _ time.Duration) {
}

func (c *recordingCache) Invalidate(_ context.Context, pattern string) (int, error) {
	c.patterns = append(c.patterns, pattern)
	return 1, c.err
}

func TestHandleInventoryUpdateInvalidatesSKUPatterns(t *testing.T) {
	cache := &recordingCache{}
	w := NewWorker(cache)

	msg, err := messaging.NewMessage("m1", messaging.TypeInventoryUpdate,
		&messaging.InventoryUpdateMessage{SKU: "SKU123", Location: "A1", Quantity: 50})
	if err != nil {
		t.Fatalf("NewMessage() error: %v", err)
	}

	if err := w.HandleInventoryUpdate(context.Background(), msg); err != nil {
		t.Fatalf("HandleInventoryUpdate() error: %v", err)
	}

	foundSKU := false
	for _, p := range cache.patterns {
		if strings.Contains(p, "SKU123") {
			foundSKU = true
		}
	}
	if !foundSKU {
		t.Fatalf("expected a SKU-scoped pattern, got %v", cache.patterns)
	}
}

func TestHandleEquipmentUpdateScopesById(t *testing.T) {
	cache := &recordingCache{}
	w := NewWorker(cache)

	msg, _ := messaging.NewMessage("m2", messaging.TypeEquipmentUpdate,
		&messaging.EquipmentUpdateMessage{EquipmentID: "FL-07", Status: "maintenance"})

	if err := w.HandleEquipmentUpdate(context.Background(), msg); err != nil {
		t.Fatalf("HandleEquipmentUpdate() error: %v", err)
	}

	found := false
	for _, p := range cache.patterns {
		if strings.Contains(p, "FL-07") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected an equipment-scoped pattern, got %v", cache.patterns)
	}
}

func TestHandleInventoryUpdatePropagatesCacheFailure(t *testing.T) {
	cache := &recordingCache{err: errors.New("redis down")}
	w := NewWorker(cache)

	msg, _ := messaging.NewMessage("m3", messaging.TypeInventoryUpdate,
		&messaging.InventoryUpdateMessage{SKU: "SKU9"})

	if err := w.HandleInventoryUpdate(context.Background(), msg); err == nil {
		t.Fatal("expected invalidation failure to propagate for retry")
	}
}

func TestHandleMalformedPayload(t *testing.T) {
	w := NewWorker(&recordingCache{})
	msg := &messaging.Message{ID: "m4", Type: messaging.TypeInventoryUpdate, Payload: []byte("{not json")}
	if err := w.HandleInventoryUpdate(context.Background(), msg); err == nil {
		t.Fatal("expected decode error for malformed payload")
	}
}
