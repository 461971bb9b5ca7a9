package main

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/poiesic/artifex/ai/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testRun struct {
	stdout bytes.Buffer
	stderr bytes.Buffer
}

// run executes the CLI with a mock embedder against dbPath.
func run(t *testing.T, embedder *mock.MockEmbedder, dbPath string, args ...string) (*testRun, error) {
	t.Helper()
	out := &testRun{}
	a := &application{stdout: &out.stdout, stderr: &out.stderr}
	if embedder != nil {
		a.embedder = embedder
	}
	argv := append([]string{"artifex", "--db", dbPath}, args...)
	err := newApp(a).Run(argv)
	return out, err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input   string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"INFO", slog.LevelInfo, false},
		{"warn", slog.LevelWarn, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"verbose", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := parseLevel(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSetupLogger(t *testing.T) {
	original := slog.Default()
	defer slog.SetDefault(original)

	var buf bytes.Buffer
	require.NoError(t, setupLogger(&buf, "warn"))
	slog.Info("hidden")
	slog.Warn("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")

	assert.Error(t, setupLogger(io.Discard, "loud"))
}

func TestParseMeta(t *testing.T) {
	tests := []struct {
		name    string
		pairs   []string
		want    map[string]any
		wantErr bool
	}{
		{name: "none", pairs: nil, want: nil},
		{name: "pairs", pairs: []string{"source=web", "lang=en"}, want: map[string]any{"source": "web", "lang": "en"}},
		{name: "value with equals", pairs: []string{"q=a=b"}, want: map[string]any{"q": "a=b"}},
		{name: "missing equals", pairs: []string{"source"}, wantErr: true},
		{name: "empty key", pairs: []string{"=x"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseMeta(tt.pairs)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParserFor(t *testing.T) {
	for _, kind := range loaderTypes {
		if kind == "sql" {
			continue
		}
		p, err := parserFor(kind)
		require.NoError(t, err, kind)
		assert.NotNil(t, p)
	}

	_, err := parserFor("spreadsheet")
	assert.Error(t, err)
}

func TestFileLoaders(t *testing.T) {
	for _, kind := range loaderTypes {
		newLoader, ok := fileLoaders[kind]
		if kind == "web" || kind == "sql" {
			assert.False(t, ok, kind)
			continue
		}
		require.True(t, ok, kind)
		l, err := newLoader()
		require.NoError(t, err, kind)
		assert.Equal(t, kind, l.Name(), kind)
	}
}

func TestLoadCommand(t *testing.T) {
	original := slog.Default()
	defer slog.SetDefault(original)

	dir := t.TempDir()
	csvPath := writeFile(t, dir, "people.csv", "Foo,Bar\nfoo1,bar1\nfoo2,bar2\n")
	db := filepath.Join(dir, "db")

	t.Run("prints text", func(t *testing.T) {
		out, err := run(t, nil, db, "load", "--type", "csv", csvPath)
		require.NoError(t, err)
		assert.Contains(t, out.stdout.String(), "foo1")
		assert.Contains(t, out.stdout.String(), "== ")
	})

	t.Run("prints json", func(t *testing.T) {
		out, err := run(t, nil, db, "load", "--type", "csv", "--json", csvPath)
		require.NoError(t, err)
		line := strings.TrimSpace(out.stdout.String())
		_, data, ok := strings.Cut(line, "\t")
		require.True(t, ok)
		assert.True(t, json.Valid([]byte(data)))
	})

	t.Run("records file", func(t *testing.T) {
		records := writeFile(t, dir, "people.json",
			`{"columns": ["Foo", "Bar"], "rows": [{"Foo": "foo1", "Bar": "bar1"}, {"Foo": "foo2", "Bar": 2}]}`)
		out, err := run(t, nil, db, "load", "--type", "records", records)
		require.NoError(t, err)
		assert.Contains(t, out.stdout.String(), "(TableArtifact)")
		assert.Contains(t, out.stdout.String(), "Foo,Bar\nfoo1,bar1\nfoo2,2")
	})

	t.Run("invalid records file", func(t *testing.T) {
		_, err := run(t, nil, db, "load", "--type", "records", csvPath)
		assert.Error(t, err)
	})

	t.Run("unknown type", func(t *testing.T) {
		_, err := run(t, nil, db, "load", "--type", "spreadsheet", csvPath)
		assert.Error(t, err)
	})

	t.Run("no sources", func(t *testing.T) {
		_, err := run(t, nil, db, "load")
		assert.Error(t, err)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := run(t, nil, db, "load", filepath.Join(dir, "missing.txt"))
		assert.Error(t, err)
	})

	t.Run("sql without dsn", func(t *testing.T) {
		_, err := run(t, nil, db, "load", "--type", "sql", "SELECT 1")
		assert.Error(t, err)
	})
}

func TestIngestSearchReembed(t *testing.T) {
	original := slog.Default()
	defer slog.SetDefault(original)

	dir := t.TempDir()
	db := filepath.Join(dir, "db")
	fox := writeFile(t, dir, "fox.txt", "the quick brown fox")
	dog := writeFile(t, dir, "dog.txt", "lazy dogs sleep all day")
	embedder := mock.NewMockEmbedder()

	out, err := run(t, embedder, db, "ingest", "--namespace", "docs", "--meta", "source=test", fox, dog)
	require.NoError(t, err)
	assert.Contains(t, out.stdout.String(), "Stored: 2")

	out, err = run(t, embedder, db, "ingest", "--namespace", "docs", fox)
	require.NoError(t, err)
	assert.Contains(t, out.stdout.String(), "Skipped: 1")

	out, err = run(t, embedder, db, "search", "--namespace", "docs", "--count", "1", "the", "quick", "brown", "fox")
	require.NoError(t, err)
	assert.Contains(t, out.stdout.String(), "the quick brown fox")
	assert.NotContains(t, out.stdout.String(), "lazy dogs")

	out, err = run(t, embedder, db, "search", "--namespace", "docs", "--json", "lazy dogs sleep all day")
	require.NoError(t, err)
	var results []searchOutput
	require.NoError(t, json.Unmarshal(out.stdout.Bytes(), &results))
	require.Len(t, results, 2)
	assert.Equal(t, "lazy dogs sleep all day", results[0].Text)
	assert.Equal(t, "test", results[0].Meta["source"])
	assert.NotContains(t, results[0].Meta, "artifact")

	out, err = run(t, embedder, db, "reembed", "--namespace", "docs", "--batch-size", "1")
	require.NoError(t, err)
	assert.Contains(t, out.stdout.String(), "Reembedded 2 of 2 entries")
	assert.Contains(t, out.stderr.String(), "Namespace: docs")
}

func TestCommandValidation(t *testing.T) {
	original := slog.Default()
	defer slog.SetDefault(original)

	db := filepath.Join(t.TempDir(), "db")
	embedder := mock.NewMockEmbedder()

	tests := []struct {
		name string
		args []string
	}{
		{"empty query", []string{"search"}},
		{"bad meta", []string{"ingest", "--meta", "nokey", "x.txt"}},
		{"zero batch size", []string{"reembed", "--batch-size", "0"}},
		{"zero max retries", []string{"reembed", "--max-retries", "0"}},
		{"bad log level", []string{"--log-level", "loud", "search", "q"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, embedder, db, tt.args...)
			assert.Error(t, err)
		})
	}
}

func TestConfigFile(t *testing.T) {
	original := slog.Default()
	defer slog.SetDefault(original)

	dir := t.TempDir()
	cfgPath := writeFile(t, dir, "artifex.yaml", "storage:\n  namespace: ${ARTIFEX_TEST_NS:-fromfile}\n")
	note := writeFile(t, dir, "note.txt", "configured namespace")
	db := filepath.Join(dir, "db")
	embedder := mock.NewMockEmbedder()

	out, err := run(t, embedder, db, "--config", cfgPath, "ingest", note)
	require.NoError(t, err)
	assert.Contains(t, out.stdout.String(), "Namespace: fromfile")

	_, err = run(t, embedder, db, "--config", filepath.Join(dir, "missing.yaml"), "search", "q")
	assert.Error(t, err)
}

func TestMetricsHandler(t *testing.T) {
	srv := httptest.NewServer(metricsHandler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "go_goroutines")
}
