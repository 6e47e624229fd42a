package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/darianmavgo/sqldump2xlsx/converters/common"
)

func TestExportAndLoad(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.hcl")

	cfg := DefaultConfig()
	cfg.BatchSize = 500
	cfg.Format = "csv"
	cfg.CSVDelimiter = ";"
	cfg.StallTimeout = "45s"
	cfg.LogErrors = true
	cfg.Encoding = "latin1"
	cfg.Grammar = &GrammarConfig{QuoteChars: "'", Terminator: "$"}
	require.NoError(t, Export(configPath, cfg))

	loaded, err := Load(configPath)
	require.NoError(t, err)
	assert.Equal(t, 500, loaded.BatchSize)
	assert.Equal(t, "csv", loaded.Format)
	assert.True(t, loaded.LogErrors)
	require.NotNil(t, loaded.Grammar)
	assert.Equal(t, "$", loaded.Grammar.Terminator)

	opts, err := loaded.Options()
	require.NoError(t, err)
	assert.Equal(t, ';', opts.Delimiter)
	assert.Equal(t, 45*time.Second, opts.StallTimeout)
	assert.Equal(t, "latin1", opts.Encoding)
	assert.Equal(t, '$', opts.Grammar.Terminator)
	assert.Equal(t, []rune{'\''}, opts.Grammar.QuoteChars)
	assert.Equal(t, '(', opts.Grammar.Open, "unset grammar fields keep the default")
}

func TestExportAndLoadYAML(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")

	cfg := DefaultConfig()
	cfg.MaxFieldSize = 0
	cfg.KeepStore = true
	require.NoError(t, Export(configPath, cfg))

	loaded, err := Load(configPath)
	require.NoError(t, err)
	assert.True(t, loaded.KeepStore)
	// omitempty drops the zero, so the default comes back
	assert.Equal(t, common.DefaultMaxFieldSize, loaded.MaxFieldSize)
}

func TestLoadDefaults(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "empty.hcl")
	require.NoError(t, os.WriteFile(configPath, []byte(""), 0644))

	loaded, err := Load(configPath)
	require.NoError(t, err)
	assert.Equal(t, 1000, loaded.BatchSize)
	assert.Equal(t, 255, loaded.MaxFieldSize)

	g, err := loaded.DumpGrammar()
	require.NoError(t, err)
	assert.Equal(t, common.DefaultGrammar(), g)
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"Syntax", "batch_size = "},
		{"Delimiter", `csv_delimiter = ";;"`},
		{"Timeout", `stall_timeout = "soon"`},
		{"Grammar", "grammar {\n  open = \"((\"\n}\n"},
		{"Negative", "max_field_size = -1"},
		{"Encoding", `encoding = "klingon"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			configPath := filepath.Join(t.TempDir(), "bad.hcl")
			require.NoError(t, os.WriteFile(configPath, []byte(tt.content), 0644))
			_, err := Load(configPath)
			assert.Error(t, err, tt.content)
		})
	}
}

func TestLoadMissing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.hcl"))
	assert.Error(t, err)
}
