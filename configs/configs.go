package configs

import (
	"encoding/json"
	"io/ioutil"
	"time"

	"github.com/nm-morais/go-accrual/pkg/errors"
)

const configsCaller = "Configs"

// DetectorConfig carries the construction parameters of a failure
// detector. Durations unmarshal from JSON as nanoseconds.
type DetectorConfig struct {
	Threshold                float64
	MaxSampleSize            int
	MinStdDeviation          time.Duration
	AcceptableHeartbeatPause time.Duration
	FirstHeartbeatEstimate   time.Duration
}

// DefaultDetectorConfig returns the stock configuration: threshold 16,
// 200 samples, 500ms minimum standard deviation, no acceptable pause
// and a 500ms first heartbeat estimate.
func DefaultDetectorConfig() DetectorConfig {
	return DetectorConfig{
		Threshold:                16.0,
		MaxSampleSize:            200,
		MinStdDeviation:          500 * time.Millisecond,
		AcceptableHeartbeatPause: 0,
		FirstHeartbeatEstimate:   500 * time.Millisecond,
	}
}

// ReadConfigFromFile loads a DetectorConfig from a JSON file. Fields
// not present in the file keep their default values.
func ReadConfigFromFile(filePath string) (DetectorConfig, errors.Error) {
	data, err := ioutil.ReadFile(filePath)
	if err != nil {
		return DetectorConfig{}, errors.InvalidArgument(err.Error(), configsCaller)
	}

	config := DefaultDetectorConfig()
	if err := json.Unmarshal(data, &config); err != nil {
		return DetectorConfig{}, errors.InvalidArgument(err.Error(), configsCaller)
	}
	return config, nil
}
