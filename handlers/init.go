package handlers

import (
	"github.com/sirupsen/logrus"

	"animestream/pipeline"
)

var log *logrus.Entry
var orch *pipeline.Orchestrator

func Init(logger *logrus.Logger, o *pipeline.Orchestrator) error {
	log = logger.WithFields(logrus.Fields{
		"component": "handlers",
	})
	orch = o
	return nil
}

func Fini() {}

type errorResponse struct {
	Error string `json:"error"`
}

type messageResponse struct {
	Message string `json:"message"`
}
