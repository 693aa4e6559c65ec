package main

import (
	"fmt"
	"os"
	"path"
	"runtime"

	"github.com/sirupsen/logrus"
)

var log *logrus.Logger

func initLogger() {
	log = logrus.New()
	log.SetOutput(os.Stdout)
	log.SetLevel(logLevel())
	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
		CallerPrettyfier: func(f *runtime.Frame) (string, string) {
			filename := path.Base(f.File)
			return "", fmt.Sprintf("%s:%d", filename, f.Line)
		},
	})
	log.SetReportCaller(true)
}

func logLevel() logrus.Level {
	value, exists := os.LookupEnv("ANIMESTREAM_LOG_LEVEL")
	if !exists {
		return logrus.InfoLevel
	}
	level, err := logrus.ParseLevel(value)
	if err != nil {
		return logrus.InfoLevel
	}
	return level
}
