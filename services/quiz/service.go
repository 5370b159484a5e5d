package quiz

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/bimbelkita/bimbel-api/model"
	"gorm.io/gorm"
)

var (
	ErrPackageNotFound  = errors.New("question package not found")
	ErrQuestionNotFound = errors.New("question not found")
	ErrNotPackageOwner  = errors.New("question package belongs to another teacher")
	ErrTooFewOptions    = errors.New("a question needs at least two options")
	ErrCorrectCount     = errors.New("exactly one option must be marked correct")
	ErrNoQuestions      = errors.New("question package has no questions")
)

// OptionInput is one answer choice as submitted by a teacher or produced by
// the AI generator.
type OptionInput struct {
	Text      string `json:"text" validate:"required"`
	IsCorrect bool   `json:"is_correct"`
}

// ValidateOptions enforces the authoring invariant: at least two options and
// exactly one marked correct.
func ValidateOptions(options []OptionInput) error {
	if len(options) < 2 {
		return ErrTooFewOptions
	}
	correct := 0
	for _, opt := range options {
		if opt.IsCorrect {
			correct++
		}
	}
	if correct != 1 {
		return ErrCorrectCount
	}
	return nil
}

// Score computes 100 * correct / total over the answer map (question ID ->
// chosen option position). Unanswered and out-of-range picks count as wrong.
func Score(questions []model.Question, answers map[uint]int) float64 {
	if len(questions) == 0 {
		return 0
	}
	correct := 0
	for _, q := range questions {
		chosen, ok := answers[q.ID]
		if ok && chosen == q.CorrectIndex() {
			correct++
		}
	}
	return float64(correct) / float64(len(questions)) * 100
}

// Service owns question authoring and attempt scoring.
type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// GetPackage loads a question package with its questions and ordered options.
func (s *Service) GetPackage(ctx context.Context, packageID uint) (*model.QuestionPackage, error) {
	var pkg model.QuestionPackage
	err := s.db.WithContext(ctx).
		Preload("Questions.Options", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Preload("Questions").
		First(&pkg, packageID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrPackageNotFound
	}
	if err != nil {
		return nil, err
	}
	return &pkg, nil
}

// AddQuestion validates and inserts one question with its options.
func (s *Service) AddQuestion(ctx context.Context, packageID, teacherID uint, text, explanation, explanationImage string, options []OptionInput) (*model.Question, error) {
	if err := ValidateOptions(options); err != nil {
		return nil, err
	}

	var pkg model.QuestionPackage
	if err := s.db.WithContext(ctx).First(&pkg, packageID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPackageNotFound
		}
		return nil, err
	}
	if pkg.TeacherID != teacherID {
		return nil, ErrNotPackageOwner
	}

	question := &model.Question{
		PackageID:        packageID,
		Text:             text,
		Explanation:      explanation,
		ExplanationImage: explanationImage,
	}
	for i, opt := range options {
		question.Options = append(question.Options, model.QuestionOption{
			Position:  i,
			Text:      opt.Text,
			IsCorrect: opt.IsCorrect,
		})
	}

	if err := s.db.WithContext(ctx).Create(question).Error; err != nil {
		return nil, err
	}
	return question, nil
}

// QuestionInput is a full question as submitted for batch insertion.
type QuestionInput struct {
	Text        string
	Explanation string
	Options     []OptionInput
}

// AddQuestionBatch validates every question up front and inserts the batch in
// a single transaction. One bad item, or a failure mid-insert, leaves nothing
// behind.
func (s *Service) AddQuestionBatch(ctx context.Context, packageID, teacherID uint, inputs []QuestionInput) ([]model.Question, error) {
	for _, in := range inputs {
		if err := ValidateOptions(in.Options); err != nil {
			return nil, err
		}
	}

	var pkg model.QuestionPackage
	if err := s.db.WithContext(ctx).First(&pkg, packageID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPackageNotFound
		}
		return nil, err
	}
	if pkg.TeacherID != teacherID {
		return nil, ErrNotPackageOwner
	}

	questions := make([]model.Question, 0, len(inputs))
	for _, in := range inputs {
		question := model.Question{
			PackageID:   packageID,
			Text:        in.Text,
			Explanation: in.Explanation,
		}
		for i, opt := range in.Options {
			question.Options = append(question.Options, model.QuestionOption{
				Position:  i,
				Text:      opt.Text,
				IsCorrect: opt.IsCorrect,
			})
		}
		questions = append(questions, question)
	}
	if len(questions) == 0 {
		return questions, nil
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&questions).Error
	})
	if err != nil {
		return nil, err
	}
	return questions, nil
}

// UpdateQuestion replaces a question's text and options in one transaction.
func (s *Service) UpdateQuestion(ctx context.Context, questionID, teacherID uint, text, explanation, explanationImage string, options []OptionInput) (*model.Question, error) {
	if err := ValidateOptions(options); err != nil {
		return nil, err
	}

	question, err := s.getOwnedQuestion(ctx, questionID, teacherID)
	if err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		question.Text = text
		question.Explanation = explanation
		question.ExplanationImage = explanationImage
		if err := tx.Save(question).Error; err != nil {
			return err
		}
		if err := tx.Where("question_id = ?", question.ID).Delete(&model.QuestionOption{}).Error; err != nil {
			return err
		}
		question.Options = nil
		for i, opt := range options {
			question.Options = append(question.Options, model.QuestionOption{
				QuestionID: question.ID,
				Position:   i,
				Text:       opt.Text,
				IsCorrect:  opt.IsCorrect,
			})
		}
		return tx.Create(&question.Options).Error
	})
	if err != nil {
		return nil, err
	}
	return question, nil
}

// DeleteQuestion removes a question and its options.
func (s *Service) DeleteQuestion(ctx context.Context, questionID, teacherID uint) error {
	question, err := s.getOwnedQuestion(ctx, questionID, teacherID)
	if err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("question_id = ?", question.ID).Delete(&model.QuestionOption{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.Question{}, question.ID).Error
	})
}

// SetExplanationImage records the stored image URL on an owned question.
func (s *Service) SetExplanationImage(ctx context.Context, questionID, teacherID uint, imageURL string) (*model.Question, error) {
	question, err := s.getOwnedQuestion(ctx, questionID, teacherID)
	if err != nil {
		return nil, err
	}

	question.ExplanationImage = imageURL
	if err := s.db.WithContext(ctx).Model(question).Update("explanation_image", imageURL).Error; err != nil {
		return nil, err
	}
	return question, nil
}

// SubmitAttempt scores the answer map against the package and stores an
// immutable attempt row.
func (s *Service) SubmitAttempt(ctx context.Context, studentID, packageID uint, answers map[uint]int) (*model.QuizAttempt, error) {
	pkg, err := s.GetPackage(ctx, packageID)
	if err != nil {
		return nil, err
	}
	if len(pkg.Questions) == 0 {
		return nil, ErrNoQuestions
	}

	answersJSON, err := json.Marshal(answers)
	if err != nil {
		return nil, err
	}

	attempt := &model.QuizAttempt{
		StudentID: studentID,
		PackageID: packageID,
		Score:     Score(pkg.Questions, answers),
		Answers:   answersJSON,
	}
	if err := s.db.WithContext(ctx).Create(attempt).Error; err != nil {
		return nil, err
	}
	return attempt, nil
}

// ListAttempts returns a student's attempts, newest first. packageID of zero
// means all packages.
func (s *Service) ListAttempts(ctx context.Context, studentID, packageID uint) ([]model.QuizAttempt, error) {
	query := s.db.WithContext(ctx).Where("student_id = ?", studentID)
	if packageID != 0 {
		query = query.Where("package_id = ?", packageID)
	}

	var attempts []model.QuizAttempt
	err := query.Order("created_at DESC").Find(&attempts).Error
	return attempts, err
}

func (s *Service) getOwnedQuestion(ctx context.Context, questionID, teacherID uint) (*model.Question, error) {
	var question model.Question
	err := s.db.WithContext(ctx).Preload("Options").First(&question, questionID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrQuestionNotFound
	}
	if err != nil {
		return nil, err
	}

	var pkg model.QuestionPackage
	if err := s.db.WithContext(ctx).First(&pkg, question.PackageID).Error; err != nil {
		return nil, err
	}
	if pkg.TeacherID != teacherID {
		return nil, ErrNotPackageOwner
	}
	return &question, nil
}
