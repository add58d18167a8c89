package repository

import (
	"fe1_prep_backend/internal/model"

	"gorm.io/gorm"
)

type PodcastRepository struct {
	DB *gorm.DB
}

func NewPodcastRepository(db *gorm.DB) *PodcastRepository {
	return &PodcastRepository{DB: db}
}

func (r *PodcastRepository) Create(podcast *model.Podcast) error {
	return r.DB.Create(podcast).Error
}

func (r *PodcastRepository) FindByID(id uint) (*model.Podcast, error) {
	var podcast model.Podcast
	err := r.DB.First(&podcast, id).Error
	if err != nil {
		return nil, err
	}
	return &podcast, nil
}

func (r *PodcastRepository) ListPublishedBySubject(subjectID uint) ([]model.Podcast, error) {
	var podcasts []model.Podcast
	err := r.DB.Where("subject_id = ? AND is_published = ?", subjectID, true).
		Order("created_at DESC").Find(&podcasts).Error
	return podcasts, err
}
