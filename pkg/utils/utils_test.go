package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSafeName(t *testing.T) {
	assert.Equal(t, "automl-train-ab12", SafeName("AutoML_Train.AB12", 0))
	assert.Equal(t, "abc", SafeName("abc-def", 4))
	assert.Equal(t, "x", SafeName("--x--", 0))
}

func TestMSToTime(t *testing.T) {
	assert.Nil(t, MSToTime(0))
	ts := MSToTime(1700000000000)
	assert.NotNil(t, ts)
	assert.Equal(t, int64(1700000000), ts.Unix())
}
