package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wtt/internal/capture"
	"wtt/internal/config"
	"wtt/internal/web"
)

const mondayMorning = `{"days":{"MON":[18,19]}}`

func newCLI(stdin string) (*commandLine, *bytes.Buffer) {
	out := &bytes.Buffer{}
	return &commandLine{in: strings.NewReader(stdin), out: out}, out
}

func TestRun_Usage(t *testing.T) {
	cli, out := newCLI("")
	assert.ErrorIs(t, cli.run(context.Background(), []string{"wtt"}), errHelp)
	assert.Contains(t, out.String(), "Usage:")

	assert.ErrorIs(t, cli.run(context.Background(), []string{"wtt", "paint"}), errHelp)
}

func TestSummary(t *testing.T) {
	cli, out := newCLI("")
	require.NoError(t, cli.run(context.Background(), []string{"wtt", "summary", mondayMorning}))
	assert.Equal(t, "Mon / 월: 09:00-10:00\n", out.String())

	cli, out = newCLI(mondayMorning)
	require.NoError(t, cli.run(context.Background(), []string{"wtt", "summary", "-compact", "-"}))
	assert.Equal(t, "Mon 09:00-10:00\n", out.String())

	cli, out = newCLI("not json")
	require.NoError(t, cli.run(context.Background(), []string{"wtt", "summary"}))
	assert.Equal(t, "Not selected / 선택 안 함\n", out.String())
}

func TestGrid(t *testing.T) {
	cli, out := newCLI("")
	require.NoError(t, cli.run(context.Background(), []string{"wtt", "grid", `{"startHour":9,"endHour":11,"days":{"MON":[18,19]}}`}))
	assert.Contains(t, out.String(), "10:30")
	assert.NotContains(t, out.String(), "11:00")

	cli, out = newCLI(mondayMorning)
	require.NoError(t, cli.run(context.Background(), []string{"wtt", "grid", "-ranges"}))
	assert.Contains(t, out.String(), "09:00-10:00")
}

func TestICS_ExportThenImport(t *testing.T) {
	cli, out := newCLI("")
	require.NoError(t, cli.run(context.Background(), []string{"wtt", "ics", "-anchor", "2025-01-08", mondayMorning}))
	assert.Contains(t, out.String(), "DTSTART:20250106T000000Z")

	path := filepath.Join(t.TempDir(), "a.ics")
	require.NoError(t, os.WriteFile(path, out.Bytes(), 0o600))

	cli, out = newCLI("")
	require.NoError(t, cli.run(context.Background(), []string{"wtt", "ics", "-import", path}))
	assert.Contains(t, out.String(), `"MON":[18,19]`)

	cli, _ = newCLI("")
	assert.Error(t, cli.run(context.Background(), []string{"wtt", "ics", "-anchor", "yesterday", mondayMorning}))
}

type fakeCapturer struct{ url string }

func (f *fakeCapturer) CapturePNG(_ context.Context, opts capture.Options) ([]byte, error) {
	f.url = opts.URL
	return []byte("png"), nil
}

func TestCapture(t *testing.T) {
	fc := &fakeCapturer{}
	cli, _ := newCLI("")
	cli.capturer = fc
	out := filepath.Join(t.TempDir(), "p.png")

	require.NoError(t, cli.run(context.Background(), []string{"wtt", "capture", "-url", "http://127.0.0.1:8080/view", "-out", out}))
	assert.Equal(t, "http://127.0.0.1:8080/view", fc.url)
	b, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "png", string(b))

	assert.ErrorIs(t, cli.run(context.Background(), []string{"wtt", "capture"}), errHelp)
}

func TestServe_LoadsConfigAndOverridesListen(t *testing.T) {
	var got *config.Config
	orig := serveFunc
	serveFunc = func(_ context.Context, cfg *config.Config, _ ...web.Option) error {
		got = cfg
		return nil
	}
	t.Cleanup(func() { serveFunc = orig })

	path := filepath.Join(t.TempDir(), "config.yaml")
	cli, _ := newCLI("")
	require.NoError(t, cli.run(context.Background(), []string{"wtt", "serve", "-config", path, "-listen", "127.0.0.1:9999"}))
	require.NotNil(t, got)
	assert.Equal(t, "127.0.0.1:9999", got.Listen)
	_, err := os.Stat(path)
	assert.NoError(t, err, "first run writes the default config")
}
