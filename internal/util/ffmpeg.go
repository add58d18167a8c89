package util

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	ffmpeg "github.com/u2takey/ffmpeg-go"
)

type MediaInfo struct {
	DurationSeconds int    `json:"durationSeconds"`
	Format          string `json:"format"`
	Size            int64  `json:"size"`
}

// ProbeMediaDuration reads a media file's duration with ffprobe. Lesson videos
// and podcast episodes get their duration from here on upload; a lesson whose
// probe fails keeps a null duration and can never auto-complete from watch time.
func ProbeMediaDuration(path string) (*MediaInfo, error) {
	fileInfo, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("media file not found: %w", err)
	}

	jsonOutput, err := ffmpeg.Probe(path)
	if err != nil {
		return nil, fmt.Errorf("probe failed: %w", err)
	}

	var result struct {
		Format struct {
			Duration string `json:"duration"`
			Size     string `json:"size"`
			Format   string `json:"format_name"`
		} `json:"format"`
	}
	if err := json.Unmarshal([]byte(jsonOutput), &result); err != nil {
		return nil, fmt.Errorf("parse probe output: %w", err)
	}

	duration, err := strconv.ParseFloat(result.Format.Duration, 64)
	if err != nil {
		return nil, fmt.Errorf("media has no parseable duration")
	}

	size, err := strconv.ParseInt(result.Format.Size, 10, 64)
	if err != nil {
		size = fileInfo.Size()
	}

	return &MediaInfo{
		DurationSeconds: int(duration),
		Format:          result.Format.Format,
		Size:            size,
	}, nil
}
