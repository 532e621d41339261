package log

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	defaultMaxSizeMB  = 100
	defaultMaxBackups = 5
	defaultMaxAgeDays = 7
)

// Init set logrus level by work mode, output to a rotating file when set
// mode: debug|dev|product
func Init(mode, file string) {
	switch mode {
	case "debug":
		logrus.SetLevel(logrus.DebugLevel)
		// include function and file
		logrus.SetReportCaller(true)
	case "dev":
		logrus.SetLevel(logrus.InfoLevel)
	default:
		logrus.SetLevel(logrus.WarnLevel)
		logrus.SetFormatter(&logrus.JSONFormatter{})
	}
	if file != "" {
		logrus.SetOutput(io.MultiWriter(os.Stderr, &lumberjack.Logger{
			Filename:   file,
			MaxSize:    defaultMaxSizeMB,
			MaxBackups: defaultMaxBackups,
			MaxAge:     defaultMaxAgeDays,
			Compress:   true,
		}))
	}
}

// WithJob logger entry carrying the job id
func WithJob(jobId string) *logrus.Entry {
	return logrus.WithFields(logrus.Fields{"jobId": jobId})
}
