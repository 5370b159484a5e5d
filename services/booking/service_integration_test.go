package booking

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/bimbelkita/bimbel-api/model"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupTestDB connects to the Postgres instance named by the DB_* environment
// variables. Requires RUN_INTEGRATION_TESTS=true.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	if os.Getenv("RUN_INTEGRATION_TESTS") != "true" {
		t.Skip("Skipping integration test. Set RUN_INTEGRATION_TESTS=true to run.")
	}

	dsn := fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC",
		envOrDefault("DB_HOST", "localhost"),
		os.Getenv("DB_USER_NAME"),
		os.Getenv("DB_PASSWORD"),
		os.Getenv("DB_NAME"),
		envOrDefault("DB_PORT", "5432"),
		envOrDefault("DB_SSL_MODE", "disable"),
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		t.Fatalf("failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(&model.User{}, &model.TeachingSlot{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	return db
}

func envOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func seedUser(t *testing.T, db *gorm.DB, role string) *model.User {
	t.Helper()

	user := &model.User{
		Email:        fmt.Sprintf("%s-%d@test.local", role, time.Now().UnixNano()),
		PasswordHash: "x",
		Name:         "Test " + role,
		Role:         role,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to seed %s: %v", role, err)
	}
	t.Cleanup(func() { db.Unscoped().Delete(user) })
	return user
}

func TestBookSecondStudentLoses(t *testing.T) {
	db := setupTestDB(t)
	teacher := seedUser(t, db, model.RoleTeacher)
	first := seedUser(t, db, model.RoleStudent)
	second := seedUser(t, db, model.RoleStudent)

	svc := NewService(db)
	ctx := context.Background()

	slot, err := svc.CreateSlot(ctx, teacher.ID, "Matematika", time.Now().Add(24*time.Hour), time.Hour, nil, "")
	if err != nil {
		t.Fatalf("CreateSlot: %v", err)
	}
	t.Cleanup(func() { db.Unscoped().Delete(slot) })

	booked, err := svc.Book(ctx, slot.ID, first)
	if err != nil {
		t.Fatalf("first Book: %v", err)
	}
	if booked.Status != model.SlotStatusBooked {
		t.Fatalf("Status = %q, want booked", booked.Status)
	}
	if booked.StudentID == nil || *booked.StudentID != first.ID {
		t.Fatalf("StudentID = %v, want %d", booked.StudentID, first.ID)
	}

	if _, err := svc.Book(ctx, slot.ID, second); !errors.Is(err, ErrSlotTaken) {
		t.Errorf("second Book: err = %v, want ErrSlotTaken", err)
	}

	// The first booking must survive the losing attempt untouched
	var final model.TeachingSlot
	if err := db.First(&final, slot.ID).Error; err != nil {
		t.Fatalf("reload slot: %v", err)
	}
	if final.StudentID == nil || *final.StudentID != first.ID {
		t.Errorf("final StudentID = %v, want %d", final.StudentID, first.ID)
	}
}

func TestBookConcurrentExactlyOneWinner(t *testing.T) {
	db := setupTestDB(t)
	teacher := seedUser(t, db, model.RoleTeacher)

	svc := NewService(db)
	ctx := context.Background()

	slot, err := svc.CreateSlot(ctx, teacher.ID, "Fisika", time.Now().Add(24*time.Hour), time.Hour, nil, "")
	if err != nil {
		t.Fatalf("CreateSlot: %v", err)
	}
	t.Cleanup(func() { db.Unscoped().Delete(slot) })

	const contenders = 8
	students := make([]*model.User, contenders)
	for i := range students {
		students[i] = seedUser(t, db, model.RoleStudent)
	}

	var wg sync.WaitGroup
	results := make([]error, contenders)
	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = svc.Book(ctx, slot.ID, students[i])
		}(i)
	}
	wg.Wait()

	winners, losers := 0, 0
	for i, err := range results {
		switch {
		case err == nil:
			winners++
		case errors.Is(err, ErrSlotTaken):
			losers++
		default:
			t.Errorf("student %d: unexpected error %v", i, err)
		}
	}
	if winners != 1 {
		t.Errorf("winners = %d, want exactly 1", winners)
	}
	if losers != contenders-1 {
		t.Errorf("losers = %d, want %d", losers, contenders-1)
	}

	var final model.TeachingSlot
	if err := db.First(&final, slot.ID).Error; err != nil {
		t.Fatalf("reload slot: %v", err)
	}
	if final.Status != model.SlotStatusBooked || final.StudentID == nil {
		t.Errorf("final slot = %+v, want booked with a student", final)
	}
}
