package repository

import (
	"fe1_prep_backend/internal/model"

	"gorm.io/gorm"
)

type SubjectRepository struct {
	DB *gorm.DB
}

func NewSubjectRepository(db *gorm.DB) *SubjectRepository {
	return &SubjectRepository{DB: db}
}

func (r *SubjectRepository) Create(subject *model.Subject) error {
	return r.DB.Create(subject).Error
}

func (r *SubjectRepository) FindByID(id uint) (*model.Subject, error) {
	var subject model.Subject
	err := r.DB.First(&subject, id).Error
	if err != nil {
		return nil, err
	}
	return &subject, nil
}

func (r *SubjectRepository) FindByIDWithContent(id uint) (*model.Subject, error) {
	var subject model.Subject
	err := r.DB.
		Preload("Modules", func(db *gorm.DB) *gorm.DB {
			return db.Where("is_published = ?", true).Order("sort_order")
		}).
		Preload("Modules.Lessons", func(db *gorm.DB) *gorm.DB {
			return db.Where("is_published = ?", true).Order("sort_order")
		}).
		First(&subject, id).Error
	if err != nil {
		return nil, err
	}
	return &subject, nil
}

func (r *SubjectRepository) ListPublished() ([]model.Subject, error) {
	var subjects []model.Subject
	err := r.DB.Where("is_published = ?", true).Order("sort_order").Find(&subjects).Error
	return subjects, err
}

func (r *SubjectRepository) CreateModule(module *model.CourseModule) error {
	return r.DB.Create(module).Error
}

func (r *SubjectRepository) FindModuleByID(id uint) (*model.CourseModule, error) {
	var module model.CourseModule
	err := r.DB.First(&module, id).Error
	if err != nil {
		return nil, err
	}
	return &module, nil
}

func (r *SubjectRepository) ListModulesBySubject(subjectID uint) ([]model.CourseModule, error) {
	var modules []model.CourseModule
	err := r.DB.Where("subject_id = ? AND is_published = ?", subjectID, true).
		Order("sort_order").Find(&modules).Error
	return modules, err
}
