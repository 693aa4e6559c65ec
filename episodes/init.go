package episodes

import "github.com/sirupsen/logrus"

var log *logrus.Entry

func Init(logger *logrus.Logger) error {
	log = logger.WithFields(logrus.Fields{
		"component": "episodes",
	})
	return nil
}

func Fini() {}
