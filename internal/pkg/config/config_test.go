package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-openapi/testify/v2/assert"
	"github.com/go-openapi/testify/v2/require"
)

func TestLoadDefault(t *testing.T) {
	cfg, err := loadDefaults()
	require.NoError(t, err)

	require.NoError(t, cfg.EncodeYAML(os.Stdout))
}

func TestLoadDefaultContent(t *testing.T) {
	cfg, err := LoadDefaults()
	require.NoError(t, err)

	assert.Equal(t, "Charts", cfg.Name)
	assert.Equal(t, "roma", cfg.Render.Theme)
	assert.InDelta(t, 600.0, cfg.Render.Width, 1e-9)
	assert.Equal(t, LegendTabular, cfg.Render.LegendPlacement)
	assert.Equal(t, "e", cfg.Render.LegendLocation)
	assert.Len(t, cfg.Render.Colors, 16)
	assert.Equal(t, "#4bb2c5", cfg.Render.Colors[0])
	assert.InDelta(t, 5.0, cfg.Render.BarWidth.Min, 1e-9)
	assert.InDelta(t, 32.0, cfg.Render.BarWidth.Max, 1e-9)
	assert.InDelta(t, 9.0, cfg.Render.MarkerSize, 1e-9)
	assert.Equal(t, FrequencyMonthly, cfg.Timeseries.Frequency)
	assert.Equal(t, "@@list_datasets", cfg.Endpoints.ListDatasets)
	assert.Equal(t, 30*time.Second, cfg.Endpoints.TimeoutDuration())
	assert.Equal(t, 1, cfg.Report.FirstBatch)
	assert.Equal(t, 250*time.Millisecond, cfg.Server.DebounceDuration())
	assert.Equal(t, time.Second, cfg.Screenshot.SleepDuration())
}

func TestLoadOverridesDefaults(t *testing.T) {
	file := writeConfig(t, "overrides.yaml", `
name: Quality Report
render:
  width: 800
  legendPlacement: outside
timeseries:
  frequency: quarterly
endpoints:
  baseURL: 'https://cms.example.org/site'
`)

	cfg, err := Load(file)
	require.NoError(t, err)

	assert.Equal(t, "Quality Report", cfg.Name)
	assert.InDelta(t, 800.0, cfg.Render.Width, 1e-9)
	assert.Equal(t, LegendOutside, cfg.Render.LegendPlacement)
	assert.Equal(t, FrequencyQuarterly, cfg.Timeseries.Frequency)
	assert.Equal(t, "https://cms.example.org/site", cfg.Endpoints.BaseURL)

	// untouched defaults survive the overlay
	assert.Equal(t, "roma", cfg.Render.Theme)
	assert.Equal(t, "@@finder", cfg.Endpoints.Finder)
}

func TestLoadNameFromFile(t *testing.T) {
	file := writeConfig(t, "monthly-report.yaml", `
render:
  theme: roma
`)
	cfg, err := load(os.DirFS(filepath.Dir(file)), filepath.Base(file), &Config{
		Render: Rendering{BarWidth: Bounds{Min: 5, Max: 32}},
		Report: Report{FirstBatch: 1, MaxBatch: 1},
	})
	require.NoError(t, err)
	assert.Empty(t, cfg.Name)

	assert.Equal(t, "Monthly Report", titleize("monthly-report"))
}

func TestLoadMissingFile(t *testing.T) {
	dir := t.TempDir()
	_, err := load(os.DirFS(dir), "nonexistent.yaml", &Config{})
	require.Error(t, err)

	_, err = Load(filepath.Join(dir, "nonexistent.yaml"))
	require.Error(t, err)
}

func TestLoadInvalidYAML(t *testing.T) {
	file := writeConfig(t, "bad.yaml", ":\n  :\n    - [invalid")

	_, err := Load(file)
	require.Error(t, err)
}

func TestValidation(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name: "unsupported frequency",
			yaml: `
timeseries:
  frequency: hourly
`,
			wantErr: "unsupported frequency",
		},
		{
			name: "invalid color",
			yaml: `
render:
  colors: ['#12345', 'red']
`,
			wantErr: "invalid color",
		},
		{
			name: "legend placement",
			yaml: `
render:
  legendPlacement: sideways
`,
			wantErr: "legend placement",
		},
		{
			name: "bar width bounds",
			yaml: `
render:
  barWidth:
    min: 40
    max: 32
`,
			wantErr: "bar width bounds",
		},
		{
			name: "batch sizes",
			yaml: `
report:
  firstBatch: 0
`,
			wantErr: "batch sizes must be positive",
		},
		{
			name: "batch ordering",
			yaml: `
report:
  firstBatch: 8
  maxBatch: 4
`,
			wantErr: "exceeds maxBatch",
		},
		{
			name: "bad duration",
			yaml: `
server:
  debounce: soon
`,
			wantErr: "server.debounce",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, "config.yaml", tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestIsColor(t *testing.T) {
	for _, valid := range []string{"#fff", "#FFAA00", "red", "steelblue"} {
		assert.True(t, IsColor(valid), "expected %q to be a color", valid)
	}

	for _, invalid := range []string{"", "#ff", "#fffff", "rgb(1,2,3)", "#ggg"} {
		assert.False(t, IsColor(invalid), "expected %q not to be a color", invalid)
	}
}

func TestLegendPlacement(t *testing.T) {
	for _, p := range []LegendPlacement{"", LegendNone, LegendInside, LegendOutside, LegendTabular} {
		assert.True(t, p.IsValid(), "expected %q to be valid", p)
	}
	assert.False(t, LegendPlacement("below").IsValid())
}

func TestDurations(t *testing.T) {
	assert.Zero(t, Screenshot{Sleep: ""}.SleepDuration())
	assert.Zero(t, Screenshot{Sleep: "not-a-duration"}.SleepDuration())
	assert.Equal(t, 2*time.Second, Screenshot{Sleep: "2s"}.SleepDuration())
	assert.Equal(t, 100*time.Millisecond, Server{Debounce: "100ms"}.DebounceDuration())
	assert.Equal(t, time.Minute, Endpoints{Timeout: "1m"}.TimeoutDuration())
}

func TestTitleize(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"hello", "Hello"},
		{"hello-world", "Hello World"},
		{"hello_world", "Hello World"},
		{"quality-report", "Quality Report"},
		{"nsPerOp", "NsPerOp"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, titleize(tt.input))
		})
	}
}

func TestEncodeYAML(t *testing.T) {
	cfg, err := LoadDefaults()
	require.NoError(t, err)
	cfg.Name = "Round Trip"
	cfg.Outputs.HTMLFile = "excluded.html"

	var buf bytes.Buffer
	require.NoError(t, cfg.EncodeYAML(&buf))
	assert.NotContains(t, buf.String(), "excluded.html")

	// verify the YAML can be loaded back as a valid config
	file := writeConfig(t, "generated.yaml", buf.String())
	loaded, err := Load(file)
	require.NoError(t, err)

	assert.Equal(t, "Round Trip", loaded.Name)
	assert.Equal(t, cfg.Render.Colors, loaded.Render.Colors)
	assert.Equal(t, cfg.Server, loaded.Server)
}

// helpers

func writeConfig(t *testing.T, name, yamlContent string) string {
	t.Helper()
	dir := t.TempDir()
	file := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(file, []byte(yamlContent), 0o600))

	return file
}
