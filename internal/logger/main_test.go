package logger

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	dto "github.com/prometheus/client_model/go"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func restoreGlobals(t *testing.T) {
	t.Helper()

	logger, level, marshaler := log.Logger, zerolog.GlobalLevel(), zerolog.ErrorStackMarshaler

	t.Cleanup(func() {
		log.Logger = logger
		zerolog.SetGlobalLevel(level)
		zerolog.ErrorStackMarshaler = marshaler //nolint:reassign
	})
}

func fileConfig(dir, level string) Log {
	return Log{
		LogLevel:    level,
		LogEnv:      "test",
		AppName:     "assetdesk",
		ServiceName: "assetdesk",
		File: LogFile{
			Enabled: true,
			Path:    dir,
			Error:   Rotation{File: "error.log"},
			Info:    Rotation{File: "info.log"},
			Trace:   Rotation{File: "trace.log"},
			Warn:    Rotation{File: "warn.log"},
		},
	}
}

// readLines decodes the JSON lines of a log file, a missing file has none.
func readLines(t *testing.T, name string) []map[string]any {
	t.Helper()

	raw, err := os.ReadFile(name)
	if os.IsNotExist(err) {
		return nil
	}

	require.NoError(t, err)

	var lines []map[string]any

	scanner := bufio.NewScanner(bytes.NewReader(raw))
	for scanner.Scan() {
		var line map[string]any
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &line), scanner.Text())

		lines = append(lines, line)
	}

	return lines
}

func messages(lines []map[string]any) []string {
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		msg, _ := l[zerolog.MessageFieldName].(string)
		out = append(out, msg)
	}

	return out
}

func TestInit_FilesSplitByLevel(t *testing.T) {
	restoreGlobals(t)

	dir := filepath.Join(t.TempDir(), "logs")
	require.NoError(t, Init(fileConfig(dir, "trace")))

	log.Trace().Msg("trace event")
	log.Debug().Msg("debug event")
	log.Info().Msg("user created")
	log.Warn().Msg("provider changed")
	log.Error().Msg("directory unavailable")

	assert.Equal(t, []string{"trace event"}, messages(readLines(t, filepath.Join(dir, "trace.log"))))
	assert.Equal(t, []string{"debug event", "user created"}, messages(readLines(t, filepath.Join(dir, "info.log"))))
	assert.Equal(t, []string{"provider changed"}, messages(readLines(t, filepath.Join(dir, "warn.log"))))
	assert.Equal(t, []string{"directory unavailable"}, messages(readLines(t, filepath.Join(dir, "error.log"))))

	info := readLines(t, filepath.Join(dir, "info.log"))[1]
	assert.Equal(t, "assetdesk", info["app"])
	assert.Equal(t, "test", info["env"])
	assert.Equal(t, "info", info[zerolog.LevelFieldName])
	assert.Contains(t, info, zerolog.TimestampFieldName)
}

func TestInit_LevelFilters(t *testing.T) {
	restoreGlobals(t)

	dir := t.TempDir()
	require.NoError(t, Init(fileConfig(dir, "warn")))

	log.Info().Msg("dropped")
	log.Warn().Msg("kept")

	assert.Empty(t, readLines(t, filepath.Join(dir, "info.log")))
	assert.Equal(t, []string{"kept"}, messages(readLines(t, filepath.Join(dir, "warn.log"))))
}

func TestInit_TraceAddsStackAndCaller(t *testing.T) {
	restoreGlobals(t)

	dir := t.TempDir()
	cfg := fileConfig(dir, "trace")
	cfg.ReportCaller = true

	require.NoError(t, Init(cfg))

	log.Error().Err(errors.New("remote create failed")).Msg("sync failed")

	lines := readLines(t, filepath.Join(dir, "error.log"))
	require.Len(t, lines, 1)
	assert.Equal(t, "remote create failed", lines[0][zerolog.ErrorFieldName])
	assert.Contains(t, lines[0], zerolog.ErrorStackFieldName)
	assert.Contains(t, lines[0], zerolog.CallerFieldName)
}

func TestInit_CallerWithoutStack(t *testing.T) {
	restoreGlobals(t)

	dir := t.TempDir()
	cfg := fileConfig(dir, "info")
	cfg.ReportCaller = true

	require.NoError(t, Init(cfg))

	log.Error().Err(errors.New("boom")).Msg("failed")

	lines := readLines(t, filepath.Join(dir, "error.log"))
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], zerolog.CallerFieldName)
	assert.NotContains(t, lines[0], zerolog.ErrorStackFieldName)
}

func TestInit_WithoutWriters(t *testing.T) {
	restoreGlobals(t)

	require.NoError(t, Init(Log{LogLevel: "info", AppName: "assetdesk", ServiceName: "assetdesk"}))
	assert.NotPanics(t, func() { log.Info().Msg("goes nowhere") })
}

func TestInit_Errors(t *testing.T) {
	restoreGlobals(t)

	tests := []struct {
		name string
		cfg  Log
		want error
	}{
		{name: "missing service", cfg: Log{LogLevel: "info", AppName: "a"}, want: ErrServiceNameIsEmpty},
		{name: "missing app", cfg: Log{LogLevel: "info", ServiceName: "s"}, want: ErrAppNameIsEmpty},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, Init(tt.cfg), tt.want)
		})
	}

	assert.Error(t, Init(Log{LogLevel: "loud", ServiceName: "s", AppName: "a"}))
}

func TestLevelWriter(t *testing.T) {
	var errBuf, infoBuf, traceBuf, warnBuf bytes.Buffer

	lw := &LevelWriter{
		ErrorWriter: &errBuf,
		InfoWriter:  &infoBuf,
		TraceWriter: &traceBuf,
		WarnWriter:  &warnBuf,
	}

	for _, l := range []zerolog.Level{
		zerolog.TraceLevel, zerolog.DebugLevel, zerolog.InfoLevel,
		zerolog.WarnLevel, zerolog.ErrorLevel, zerolog.FatalLevel, zerolog.Disabled,
	} {
		_, err := lw.WriteLevel(l, []byte(l.String()+"\n"))
		require.NoError(t, err)
	}

	assert.Equal(t, "trace\n", traceBuf.String())
	assert.Equal(t, "debug\ninfo\n", infoBuf.String())
	assert.Equal(t, "warn\n", warnBuf.String())
	assert.Equal(t, "error\nfatal\n", errBuf.String())

	// a missing writer swallows its level
	n, err := (&LevelWriter{}).WriteLevel(zerolog.WarnLevel, []byte("lost"))
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}

func counterValue(t *testing.T, level string) float64 {
	t.Helper()

	var m dto.Metric
	require.NoError(t, counter.WithLabelValues(level).Write(&m))

	return m.GetCounter().GetValue()
}

func TestPrometheusHook(t *testing.T) {
	hook := NewPrometheusHook("assetdesk")

	warnBefore := counterValue(t, zerolog.WarnLevel.String())

	hook.Run(nil, zerolog.WarnLevel, "provider changed")
	hook.Run(nil, zerolog.WarnLevel, "bootstrap password generated")
	hook.Run(nil, zerolog.NoLevel, "access log")

	assert.InDelta(t, warnBefore+2, counterValue(t, zerolog.WarnLevel.String()), 0)
	assert.InDelta(t, 0, counterValue(t, zerolog.NoLevel.String()), 0)
}
