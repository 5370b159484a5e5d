package quiz

import (
	"context"
	"errors"
	"fmt"
	"os"
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

	if err := db.AutoMigrate(&model.User{}, &model.QuestionPackage{}, &model.Question{}, &model.QuestionOption{}); err != nil {
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

// seedTeacherAndPackage creates a teacher and an empty question package,
// removed again (with questions and options) when the test finishes.
func seedTeacherAndPackage(t *testing.T, db *gorm.DB) (*model.User, *model.QuestionPackage) {
	t.Helper()

	teacher := &model.User{
		Email:        fmt.Sprintf("teacher-%d@test.local", time.Now().UnixNano()),
		PasswordHash: "x",
		Name:         "Test Teacher",
		Role:         model.RoleTeacher,
	}
	if err := db.Create(teacher).Error; err != nil {
		t.Fatalf("failed to seed teacher: %v", err)
	}

	pkg := &model.QuestionPackage{TeacherID: teacher.ID, Title: "Tryout", Subject: "Matematika"}
	if err := db.Create(pkg).Error; err != nil {
		t.Fatalf("failed to seed package: %v", err)
	}

	t.Cleanup(func() {
		var questionIDs []uint
		db.Model(&model.Question{}).Where("package_id = ?", pkg.ID).Pluck("id", &questionIDs)
		if len(questionIDs) > 0 {
			db.Unscoped().Where("question_id IN ?", questionIDs).Delete(&model.QuestionOption{})
		}
		db.Unscoped().Where("package_id = ?", pkg.ID).Delete(&model.Question{})
		db.Unscoped().Delete(pkg)
		db.Unscoped().Delete(teacher)
	})

	return teacher, pkg
}

func questionCount(t *testing.T, db *gorm.DB, packageID uint) int64 {
	t.Helper()
	var count int64
	if err := db.Model(&model.Question{}).Where("package_id = ?", packageID).Count(&count).Error; err != nil {
		t.Fatalf("count questions: %v", err)
	}
	return count
}

func TestAddQuestionBatchAllOrNothing(t *testing.T) {
	db := setupTestDB(t)
	teacher, pkg := seedTeacherAndPackage(t, db)

	svc := NewService(db)
	ctx := context.Background()

	good := QuestionInput{
		Text: "2 + 2 = ?",
		Options: []OptionInput{
			{Text: "3"},
			{Text: "4", IsCorrect: true},
		},
	}
	bad := QuestionInput{
		Text:    "lonely option",
		Options: []OptionInput{{Text: "only one", IsCorrect: true}},
	}

	// A single bad item fails the whole batch before anything is written
	if _, err := svc.AddQuestionBatch(ctx, pkg.ID, teacher.ID, []QuestionInput{good, bad}); !errors.Is(err, ErrTooFewOptions) {
		t.Fatalf("mixed batch: err = %v, want ErrTooFewOptions", err)
	}
	if n := questionCount(t, db, pkg.ID); n != 0 {
		t.Fatalf("questions after failed batch = %d, want 0", n)
	}

	// The same good item plus another valid one lands as a unit
	second := QuestionInput{
		Text: "5 * 3 = ?",
		Options: []OptionInput{
			{Text: "15", IsCorrect: true},
			{Text: "8"},
			{Text: "53"},
		},
	}
	questions, err := svc.AddQuestionBatch(ctx, pkg.ID, teacher.ID, []QuestionInput{good, second})
	if err != nil {
		t.Fatalf("valid batch: %v", err)
	}
	if len(questions) != 2 {
		t.Fatalf("inserted = %d, want 2", len(questions))
	}
	if n := questionCount(t, db, pkg.ID); n != 2 {
		t.Fatalf("questions after valid batch = %d, want 2", n)
	}
	for _, q := range questions {
		if q.ID == 0 {
			t.Errorf("question %q has no ID after insert", q.Text)
		}
		if q.CorrectIndex() < 0 {
			t.Errorf("question %q lost its correct option", q.Text)
		}
	}
}

func TestAddQuestionBatchOwnership(t *testing.T) {
	db := setupTestDB(t)
	_, pkg := seedTeacherAndPackage(t, db)
	other, _ := seedTeacherAndPackage(t, db)

	svc := NewService(db)
	ctx := context.Background()

	input := []QuestionInput{{
		Text:    "whose package is this?",
		Options: []OptionInput{{Text: "mine", IsCorrect: true}, {Text: "not mine"}},
	}}

	if _, err := svc.AddQuestionBatch(ctx, pkg.ID, other.ID, input); !errors.Is(err, ErrNotPackageOwner) {
		t.Errorf("err = %v, want ErrNotPackageOwner", err)
	}
	if n := questionCount(t, db, pkg.ID); n != 0 {
		t.Errorf("questions written despite ownership refusal: %d", n)
	}
}
