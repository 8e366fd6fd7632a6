package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaharia-lab/angelia/internal/config"
	"github.com/shaharia-lab/angelia/internal/service"
	"github.com/shaharia-lab/angelia/internal/storage"
)

func testConfig(t *testing.T) *config.AppConfig {
	t.Helper()
	dir := t.TempDir()
	return &config.AppConfig{
		Port:             8995,
		DataDir:          dir,
		ChannelsFile:     filepath.Join(dir, "channels.yaml"),
		LogLevel:         "debug",
		LogRetention:     time.Hour,
		PruneInterval:    time.Hour,
		OTLPInsecure:     true,
		TraceSampleRatio: 1,
	}
}

func run(t *testing.T, cfg *config.AppConfig, stdin string, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd(cfg)
	var out, stderr bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&stderr)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(append(args, "--no-color"))
	err := root.Execute()
	return out.String(), err
}

func TestVersionCmd(t *testing.T) {
	out, err := run(t, testConfig(t), "", "version")
	require.NoError(t, err)
	assert.Contains(t, out, "angelia dev")
}

func TestChannelsCmd(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, os.WriteFile(cfg.ChannelsFile, []byte(`
mailto:
  host: smtp.example.com
  from: alerts@example.com
`), 0600))

	out, err := run(t, cfg, "", "channels", "--json")
	require.NoError(t, err)

	var infos []service.ChannelInfo
	require.NoError(t, json.Unmarshal([]byte(out), &infos))
	assert.Equal(t, []service.ChannelInfo{
		{Scheme: "gmail", Configured: false},
		{Scheme: "mailto", Configured: true},
		{Scheme: "ovh", Configured: false},
		{Scheme: "ovhsoap", Configured: false},
		{Scheme: "resend", Configured: false},
		{Scheme: "telegram", Configured: false},
	}, infos)
}

func TestChannelsCmd_Table(t *testing.T) {
	out, err := run(t, testConfig(t), "", "channels")
	require.NoError(t, err)
	assert.Contains(t, out, "SCHEME")
	assert.Contains(t, out, "ovhsoap")
}

func TestSendCmd_UnknownChannelIsRecorded(t *testing.T) {
	cfg := testConfig(t)

	out, err := run(t, cfg, "hello from stdin\n", "send", "pager://oncall", "-s", "disk full", "--json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown_channel")

	var result service.SendResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, storage.StatusFailed, result.Status)
	assert.Equal(t, "pager", result.Scheme)
	assert.NotEmpty(t, result.ID)

	out, err = run(t, cfg, "", "log", "--json")
	require.NoError(t, err)
	var entries []storage.NotificationLogEntry
	require.NoError(t, json.Unmarshal([]byte(out), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, result.ID, entries[0].DispatchID)
	assert.Equal(t, "disk full", entries[0].Subject)
	assert.Equal(t, "unknown_channel", entries[0].ErrorKind)
}

func TestSendCmd_MalformedRecipient(t *testing.T) {
	_, err := run(t, testConfig(t), "", "send", "not-a-uri", "-m", "body")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "malformed_recipient")
}

func TestLogCmd_Empty(t *testing.T) {
	out, err := run(t, testConfig(t), "", "log")
	require.NoError(t, err)
	assert.Contains(t, out, "No notifications recorded yet.")
}

func TestLogCmd_InvalidStatus(t *testing.T) {
	_, err := run(t, testConfig(t), "", "log", "--status", "lost")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown status")
}

func TestReadBody(t *testing.T) {
	body, err := readBody(strings.NewReader("line one\nline two\n\n"))
	require.NoError(t, err)
	assert.Equal(t, "line one\nline two", body)

	_, err = readBody(strings.NewReader(strings.Repeat("x", service.MaxBodyBytes+1)))
	assert.ErrorContains(t, err, "exceeds")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcd…", truncate("abcdefgh", 5))
}
