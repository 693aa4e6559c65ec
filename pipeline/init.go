package pipeline

import "github.com/sirupsen/logrus"

var log *logrus.Entry

func Init(logger *logrus.Logger) error {
	log = logger.WithFields(logrus.Fields{
		"component": "pipeline",
	})
	return nil
}

func Fini() {}
