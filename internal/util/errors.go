package util

import (
	"errors"
	"net/http"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailRegistered    = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrPermissionDenied   = errors.New("permission denied")

	ErrSubjectNotFound  = errors.New("subject not found")
	ErrModuleNotFound   = errors.New("module not found")
	ErrLessonNotFound   = errors.New("lesson not found")
	ErrQuestionNotFound = errors.New("question not found")
	ErrPodcastNotFound  = errors.New("podcast not found")

	ErrInvalidWatchTime = errors.New("watch time must not be negative")

	// A missing simulation and a simulation owned by someone else report the
	// same error, so callers cannot probe other users' data.
	ErrSimulationNotFound   = errors.New("simulation not found")
	ErrTimerNotFound        = errors.New("question timer not found")
	ErrSimulationEnded      = errors.New("simulation already ended")
	ErrSimulationIncomplete = errors.New("simulation has unanswered questions")
	ErrDuplicateAttempt     = errors.New("answer already submitted for this question")
	ErrQuestionPoolTooSmall = errors.New("not enough essay questions available")
	ErrQuestionNotInExam    = errors.New("question is not part of this simulation")

	ErrGradingFailed = errors.New("essay grading failed")
)

// HTTPStatus maps a service error onto the externally visible error class:
// 404 not found, 409 conflict, 400 validation, 502 upstream failure.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrUserNotFound),
		errors.Is(err, ErrSubjectNotFound),
		errors.Is(err, ErrModuleNotFound),
		errors.Is(err, ErrLessonNotFound),
		errors.Is(err, ErrQuestionNotFound),
		errors.Is(err, ErrPodcastNotFound),
		errors.Is(err, ErrSimulationNotFound),
		errors.Is(err, ErrTimerNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrEmailRegistered),
		errors.Is(err, ErrSimulationEnded),
		errors.Is(err, ErrSimulationIncomplete),
		errors.Is(err, ErrDuplicateAttempt),
		errors.Is(err, ErrQuestionPoolTooSmall),
		errors.Is(err, ErrQuestionNotInExam):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidWatchTime):
		return http.StatusBadRequest
	case errors.Is(err, ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, ErrPermissionDenied):
		return http.StatusForbidden
	case errors.Is(err, ErrGradingFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
