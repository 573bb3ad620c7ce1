package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/sayyara-app/sayyara-backend/pkg/db/models"
	"github.com/sayyara-app/sayyara-backend/pkg/enums"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := gdb.AutoMigrate(&models.OutboxEvent{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		sqlDB, _ := gdb.DB()
		_ = sqlDB.Close()
	})
	return gdb
}

func TestEmitWritesEnvelope(t *testing.T) {
	gdb := testDB(t)
	svc := NewService(NewRepository(gdb), nil)

	bidID := uuid.New()
	actorID := uuid.New()
	err := gdb.Transaction(func(tx *gorm.DB) error {
		return svc.Emit(context.Background(), tx, DomainEvent{
			EventType:     enums.EventBidSubmitted,
			AggregateType: enums.AggregateBid,
			AggregateID:   bidID,
			Actor:         &ActorRef{UserID: actorID, Role: "buyer"},
			Data:          map[string]any{"bid_price": "145000"},
		})
	})
	if err != nil {
		t.Fatalf("emit: %v", err)
	}

	var row models.OutboxEvent
	if err := gdb.First(&row).Error; err != nil {
		t.Fatalf("load event: %v", err)
	}
	if row.EventType != enums.EventBidSubmitted {
		t.Fatalf("unexpected event type %s", row.EventType)
	}
	if row.AggregateID != bidID {
		t.Fatalf("unexpected aggregate id %s", row.AggregateID)
	}

	var envelope PayloadEnvelope
	if err := json.Unmarshal(row.Payload, &envelope); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if envelope.Version != 1 {
		t.Fatalf("expected version 1, got %d", envelope.Version)
	}
	if envelope.EventID == "" || envelope.OccurredAt.IsZero() {
		t.Fatal("envelope missing event id or timestamp")
	}
	if envelope.Actor == nil || envelope.Actor.UserID != actorID {
		t.Fatal("envelope missing actor")
	}
}

func TestEmitRequiresTransaction(t *testing.T) {
	svc := NewService(NewRepository(testDB(t)), nil)
	err := svc.Emit(context.Background(), nil, DomainEvent{
		EventType:     enums.EventBidSubmitted,
		AggregateType: enums.AggregateBid,
		AggregateID:   uuid.New(),
	})
	if err == nil {
		t.Fatal("expected error without transaction")
	}
}

func TestEmitRejectsUnknownEventType(t *testing.T) {
	gdb := testDB(t)
	svc := NewService(NewRepository(gdb), nil)
	err := gdb.Transaction(func(tx *gorm.DB) error {
		return svc.Emit(context.Background(), tx, DomainEvent{
			EventType:     enums.OutboxEventType("bid.teleported"),
			AggregateType: enums.AggregateBid,
			AggregateID:   uuid.New(),
		})
	})
	if err == nil {
		t.Fatal("expected invalid event type error")
	}
}

func TestFetchUnpublishedAndMark(t *testing.T) {
	gdb := testDB(t)
	repo := NewRepository(gdb)
	svc := NewService(repo, nil)

	ids := make([]uuid.UUID, 0, 3)
	err := gdb.Transaction(func(tx *gorm.DB) error {
		for i := 0; i < 3; i++ {
			id := uuid.New()
			ids = append(ids, id)
			if err := svc.Emit(context.Background(), tx, DomainEvent{
				EventType:     enums.EventBidAccepted,
				AggregateType: enums.AggregateBid,
				AggregateID:   id,
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("emit: %v", err)
	}

	rows, err := repo.FetchUnpublished(10)
	if err != nil {
		t.Fatalf("fetch unpublished: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}

	if err := repo.MarkPublished(rows[0].ID); err != nil {
		t.Fatalf("mark published: %v", err)
	}
	if err := repo.MarkFailed(rows[1].ID, errors.New("pubsub unavailable")); err != nil {
		t.Fatalf("mark failed: %v", err)
	}

	rows, err = repo.FetchUnpublished(10)
	if err != nil {
		t.Fatalf("refetch: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 unpublished rows, got %d", len(rows))
	}
	for _, row := range rows {
		if row.ID == ids[0] {
			t.Fatal("published row still returned as unpublished")
		}
	}

	var failed models.OutboxEvent
	if err := gdb.First(&failed, "attempt_count > 0").Error; err != nil {
		t.Fatalf("load failed row: %v", err)
	}
	if failed.LastError == nil || *failed.LastError != "pubsub unavailable" {
		t.Fatal("expected last_error to be recorded")
	}
	if failed.AttemptCount != 1 {
		t.Fatalf("expected attempt_count 1, got %d", failed.AttemptCount)
	}
}
