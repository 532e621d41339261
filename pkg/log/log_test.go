package log

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestInitLevel(t *testing.T) {
	defer logrus.SetOutput(os.Stderr)
	defer logrus.SetFormatter(&logrus.TextFormatter{})
	defer logrus.SetReportCaller(false)

	Init("debug", "")
	assert.Equal(t, logrus.DebugLevel, logrus.GetLevel())
	Init("dev", "")
	assert.Equal(t, logrus.InfoLevel, logrus.GetLevel())
	Init("product", "")
	assert.Equal(t, logrus.WarnLevel, logrus.GetLevel())
}

func TestInitFile(t *testing.T) {
	defer logrus.SetOutput(os.Stderr)
	file := filepath.Join(t.TempDir(), "automl.log")
	Init("dev", file)
	WithJob("job-1").Info("hello")
	body, err := os.ReadFile(file)
	assert.NoError(t, err)
	assert.Contains(t, string(body), "jobId=job-1")
}

func TestWithJob(t *testing.T) {
	buf := new(bytes.Buffer)
	logrus.SetOutput(buf)
	defer logrus.SetOutput(os.Stderr)
	logrus.SetLevel(logrus.InfoLevel)
	WithJob("abc").Warn("stuck")
	assert.Contains(t, buf.String(), "abc")
}
