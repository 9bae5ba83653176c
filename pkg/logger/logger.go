package logger

import (
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// New membuat logger logrus; JSON di production, teks di environment lain.
func New(level, appEnv string) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stdout)

	if strings.EqualFold(appEnv, "production") {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
		log.WithField("level", level).Warn("unknown LOG_LEVEL, using info")
	}
	log.SetLevel(lvl)
	return log
}
