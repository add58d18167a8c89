package util

import "time"

const (
	DateFormat = "2006-01-02"
	TimeFormat = "2006-01-02 15:04:05"
)

const (
	StorageLocal = "local"
	StorageMinio = "minio"
)

// Exam contract constants. These are part of the product contract, not tunables.
const (
	// SimulationQuestionCount is the fixed number of essay questions per mock exam.
	SimulationQuestionCount = 5

	// SimulationTimeBudgetSeconds is the total exam budget (3 hours).
	SimulationTimeBudgetSeconds = 10800

	// PassThreshold is the real FE-1 pass bar applied to the overall score.
	PassThreshold = 50

	// AppPassThreshold is the stricter "excellence" bar surfaced to the UI.
	// It never affects the passed boolean.
	AppPassThreshold = 80

	// VideoCompletionRatio marks a lesson completed once this share of the
	// video has been watched.
	VideoCompletionRatio = 0.9
)

const (
	SubjectCacheTTL  = 10 * time.Minute
	ProgressCacheTTL = 5 * time.Minute
)

var (
	AllowedVideoExtensions = []string{".mp4", ".mov", ".avi", ".mkv", ".webm"}
	AllowedAudioExtensions = []string{".mp3", ".m4a", ".wav", ".aac", ".ogg"}
)
