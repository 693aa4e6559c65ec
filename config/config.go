package config

import (
	"fmt"
	"os"
	"time"
)

// Config collects every environment-provided setting the service needs.
// It is loaded once at startup and passed to component constructors.
type Config struct {
	Port             string
	DatabaseDSN      string
	Bucket           string
	AssetBaseURL     string
	WorkDir          string
	TranscodeTimeout time.Duration
}

func Load() (Config, error) {
	dsn, err := GetDatabaseDSN()
	if err != nil {
		return Config{}, err
	}
	bucket, err := GetBucket()
	if err != nil {
		return Config{}, err
	}
	baseURL, err := GetAssetBaseURL()
	if err != nil {
		return Config{}, err
	}
	timeout, err := GetTranscodeTimeout()
	if err != nil {
		return Config{}, err
	}
	return Config{
		Port:             GetPort(),
		DatabaseDSN:      dsn,
		Bucket:           bucket,
		AssetBaseURL:     baseURL,
		WorkDir:          GetWorkDir(),
		TranscodeTimeout: timeout,
	}, nil
}

func GetPort() string {
	value, exists := os.LookupEnv("ANIMESTREAM_PORT")
	if exists {
		return value
	}
	return "8080"
}

// scratch space for in-flight uploads
func GetWorkDir() string {
	value, exists := os.LookupEnv("ANIMESTREAM_WORK_DIR")
	if exists {
		return value
	}
	return "work"
}

func GetDatabaseDSN() (string, error) {
	key := "ANIMESTREAM_DATABASE_DSN"
	value, exists := os.LookupEnv(key)
	if exists {
		return value, nil
	}
	return "", fmt.Errorf("please set %s", key)
}

func GetBucket() (string, error) {
	key := "ANIMESTREAM_S3_BUCKET"
	value, exists := os.LookupEnv(key)
	if exists {
		return value, nil
	}
	return "", fmt.Errorf("please set %s", key)
}

// public URL prefix under which uploaded object keys are reachable,
// e.g. a CDN or bucket website endpoint
func GetAssetBaseURL() (string, error) {
	key := "ANIMESTREAM_ASSET_BASE_URL"
	value, exists := os.LookupEnv(key)
	if exists {
		return value, nil
	}
	return "", fmt.Errorf("please set %s", key)
}

func GetTranscodeTimeout() (time.Duration, error) {
	key := "ANIMESTREAM_TRANSCODE_TIMEOUT"
	value, exists := os.LookupEnv(key)
	if !exists {
		return time.Hour, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %v", key, err)
	}
	return d, nil
}
