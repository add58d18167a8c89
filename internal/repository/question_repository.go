package repository

import (
	"fe1_prep_backend/internal/model"

	"gorm.io/gorm"
)

type QuestionRepository struct {
	DB *gorm.DB
}

func NewQuestionRepository(db *gorm.DB) *QuestionRepository {
	return &QuestionRepository{DB: db}
}

func (r *QuestionRepository) Create(question *model.EssayQuestion) error {
	return r.DB.Create(question).Error
}

func (r *QuestionRepository) FindByID(id uint) (*model.EssayQuestion, error) {
	var question model.EssayQuestion
	err := r.DB.Preload("Subject").First(&question, id).Error
	if err != nil {
		return nil, err
	}
	return &question, nil
}

func (r *QuestionRepository) FindByIDs(ids []uint) ([]model.EssayQuestion, error) {
	var questions []model.EssayQuestion
	err := r.DB.Preload("Subject").Where("id IN ?", ids).Find(&questions).Error
	return questions, err
}

func (r *QuestionRepository) ListBySubject(subjectID uint) ([]model.EssayQuestion, error) {
	var questions []model.EssayQuestion
	err := r.DB.Where("subject_id = ?", subjectID).
		Order("year DESC, paper_number").Find(&questions).Error
	return questions, err
}

// ListEligibleIDs returns ids of all questions usable in a mock exam: only
// past-paper questions with a known year qualify.
func (r *QuestionRepository) ListEligibleIDs() ([]uint, error) {
	var ids []uint
	err := r.DB.Model(&model.EssayQuestion{}).
		Where("year IS NOT NULL").
		Pluck("id", &ids).Error
	return ids, err
}
