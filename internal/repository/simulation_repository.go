package repository

import (
	"fe1_prep_backend/internal/model"

	"gorm.io/gorm"
)

type SimulationRepository struct {
	DB *gorm.DB
}

func NewSimulationRepository(db *gorm.DB) *SimulationRepository {
	return &SimulationRepository{DB: db}
}

func (r *SimulationRepository) Create(sim *model.Simulation) error {
	return r.DB.Create(sim).Error
}

func (r *SimulationRepository) Save(sim *model.Simulation) error {
	return r.DB.Save(sim).Error
}

// FindForUser scopes the lookup to the owner; a wrong owner reads the same as
// a missing row.
func (r *SimulationRepository) FindForUser(id, userID uint) (*model.Simulation, error) {
	var sim model.Simulation
	err := r.DB.Where("id = ? AND user_id = ?", id, userID).First(&sim).Error
	if err != nil {
		return nil, err
	}
	return &sim, nil
}

func (r *SimulationRepository) ListByUser(userID uint) ([]model.Simulation, error) {
	var sims []model.Simulation
	err := r.DB.Where("user_id = ?", userID).Order("started_at DESC").Find(&sims).Error
	return sims, err
}

func (r *SimulationRepository) CreateAttempt(attempt *model.EssayAttempt) error {
	return r.DB.Create(attempt).Error
}

func (r *SimulationRepository) FindAttempt(simulationID, questionID uint) (*model.EssayAttempt, error) {
	var attempt model.EssayAttempt
	err := r.DB.Where("simulation_id = ? AND question_id = ?", simulationID, questionID).
		First(&attempt).Error
	if err != nil {
		return nil, err
	}
	return &attempt, nil
}

func (r *SimulationRepository) CountAttempts(simulationID uint) (int64, error) {
	var count int64
	err := r.DB.Model(&model.EssayAttempt{}).
		Where("simulation_id = ?", simulationID).Count(&count).Error
	return count, err
}

func (r *SimulationRepository) ListAttempts(simulationID uint) ([]model.EssayAttempt, error) {
	var attempts []model.EssayAttempt
	err := r.DB.Where("simulation_id = ?", simulationID).Order("id").Find(&attempts).Error
	return attempts, err
}

func (r *SimulationRepository) ListPracticeAttempts(userID uint) ([]model.EssayAttempt, error) {
	var attempts []model.EssayAttempt
	err := r.DB.Where("user_id = ? AND is_simulation = ?", userID, false).
		Order("created_at DESC").Find(&attempts).Error
	return attempts, err
}

func (r *SimulationRepository) CreateTimer(timer *model.QuestionTimer) error {
	return r.DB.Create(timer).Error
}

func (r *SimulationRepository) FindTimerForUser(publicID string, userID uint) (*model.QuestionTimer, error) {
	var timer model.QuestionTimer
	err := r.DB.Where("public_id = ? AND user_id = ?", publicID, userID).First(&timer).Error
	if err != nil {
		return nil, err
	}
	return &timer, nil
}

func (r *SimulationRepository) SaveTimer(timer *model.QuestionTimer) error {
	return r.DB.Save(timer).Error
}
