package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONLoggerCarriesServiceField(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithOutput(&buf, "debug", "json")

	log.WithField("team_id", 3).Debug("score updated")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "score updated", line["message"])
	assert.Equal(t, "debug", line["level"])
	assert.Equal(t, serviceName, line["service"])
	assert.EqualValues(t, 3, line["team_id"])
	assert.Contains(t, line, "timestamp")
}

func TestUnknownLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithOutput(&buf, "loud", "text")

	assert.Equal(t, logrus.InfoLevel, log.Logger.GetLevel())
	log.Debug("hidden")
	assert.Empty(t, buf.String())
	log.Info("shown")
	assert.Contains(t, buf.String(), "msg=shown")
}
