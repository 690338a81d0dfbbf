package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nalgeon/be"
	"go.uber.org/zap"
)

func TestNewJSONConsole(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(Config{Level: "debug", Console: &buf})
	be.Err(t, err, nil)

	log.Debug("imap state", zap.String("to", "connected"))
	be.Err(t, log.Sync(), nil)

	var entry map[string]any
	be.Err(t, json.Unmarshal(buf.Bytes(), &entry), nil)
	be.Equal(t, entry["message"], "imap state")
	be.Equal(t, entry["level"], "debug")
	be.Equal(t, entry["to"], "connected")
}

func TestNewUnknownLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(Config{Level: "chatty", Console: &buf})
	be.Err(t, err, nil)

	log.Debug("hidden")
	log.Info("shown")
	be.True(t, !strings.Contains(buf.String(), "hidden"))
	be.True(t, strings.Contains(buf.String(), "shown"))
}

func TestNewWritesRotatedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "imapretriever.log")
	var console bytes.Buffer
	log, err := New(Config{Level: "info", Development: true, File: path, MaxSizeMB: 1, Console: &console})
	be.Err(t, err, nil)

	log.Info("retrieval finished", zap.Int("documents", 3))
	_ = log.Sync()

	data, err := os.ReadFile(path)
	be.Err(t, err, nil)
	be.True(t, strings.Contains(string(data), "retrieval finished"))
	be.True(t, strings.Contains(console.String(), "retrieval finished"))
}
