package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSetupRewritesKeys(t *testing.T) {
	var buf bytes.Buffer
	logger, closer := SetupWithOptions(Options{Service: "settlectl", Env: "test", Level: "debug", Output: &buf})
	defer closer.Close()
	logger.Debug("swap committed", slog.String("op", "swap"))

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	require.Equal(t, "swap committed", line["message"])
	require.Equal(t, "DEBUG", line["severity"])
	require.Equal(t, "settlectl", line["service"])
	require.Equal(t, "test", line["env"])
	require.Contains(t, line, "timestamp")
}

func TestSetupWritesRotatedFile(t *testing.T) {
	var buf bytes.Buffer
	path := filepath.Join(t.TempDir(), "logs", "engine.log")
	logger, closer := SetupWithOptions(Options{Service: "settlectl", File: path, Output: &buf})
	logger.Info("hello")
	require.NoError(t, closer.Close())
	require.FileExists(t, path)
}

func TestParseLevel(t *testing.T) {
	require.Equal(t, slog.LevelWarn, ParseLevel("WARN"))
	require.Equal(t, slog.LevelInfo, ParseLevel("chatty"))
}

func TestMaskHeaders(t *testing.T) {
	attr := MaskHeaders(map[string]string{"authorization": "Bearer secret", "op": "x"})
	group := attr.Value.Group()
	require.Len(t, group, 2)
	require.Equal(t, "authorization", group[0].Key)
	require.Equal(t, RedactedValue, group[0].Value.String())
	require.Equal(t, "x", group[1].Value.String())
}
