package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/hashicorp/hcl/v2/hclwrite"
	"github.com/zclconf/go-cty/cty"
	"gopkg.in/yaml.v3"

	"github.com/darianmavgo/sqldump2xlsx/converters"
	"github.com/darianmavgo/sqldump2xlsx/converters/common"
	"github.com/darianmavgo/sqldump2xlsx/converters/sqldump"
)

// Config represents the application configuration.
type Config struct {
	BatchSize       int            `hcl:"batch_size,optional" yaml:"batch_size,omitempty"`
	MaxFieldSize    int            `hcl:"max_field_size,optional" yaml:"max_field_size,omitempty"`
	Format          string         `hcl:"format,optional" yaml:"format,omitempty"`
	CSVDelimiter    string         `hcl:"csv_delimiter,optional" yaml:"csv_delimiter,omitempty"`
	LogErrors       bool           `hcl:"log_errors,optional" yaml:"log_errors,omitempty"`
	KeepEmptyTables bool           `hcl:"keep_empty_tables,optional" yaml:"keep_empty_tables,omitempty"`
	KeepStore       bool           `hcl:"keep_store,optional" yaml:"keep_store,omitempty"`
	StallTimeout    string         `hcl:"stall_timeout,optional" yaml:"stall_timeout,omitempty"`
	Encoding        string         `hcl:"encoding,optional" yaml:"encoding,omitempty"`
	Grammar         *GrammarConfig `hcl:"grammar,block" yaml:"grammar,omitempty"`
}

// GrammarConfig overrides parts of the dump grammar. Every field holds a
// single character except CommentPrefixes and QuoteChars, which list them,
// and BulkTerminator. Empty fields keep the default.
type GrammarConfig struct {
	Terminator      string `hcl:"terminator,optional" yaml:"terminator,omitempty"`
	CommentPrefixes string `hcl:"comment_prefixes,optional" yaml:"comment_prefixes,omitempty"`
	QuoteChars      string `hcl:"quote_chars,optional" yaml:"quote_chars,omitempty"`
	Escape          string `hcl:"escape,optional" yaml:"escape,omitempty"`
	Open            string `hcl:"open,optional" yaml:"open,omitempty"`
	Close           string `hcl:"close,optional" yaml:"close,omitempty"`
	Separator       string `hcl:"separator,optional" yaml:"separator,omitempty"`
	BulkTerminator  string `hcl:"bulk_terminator,optional" yaml:"bulk_terminator,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		BatchSize:    converters.BatchSize,
		MaxFieldSize: common.DefaultMaxFieldSize,
		Format:       "xlsx",
		CSVDelimiter: ",",
	}
}

// Load reads the configuration from the given file. Files ending in .yaml or
// .yml are read as YAML, anything else as HCL.
func Load(path string) (*Config, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	if isYAML(path) {
		if err := yaml.Unmarshal(content, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	} else {
		parser := hclparse.NewParser()
		file, diags := parser.ParseHCL(content, path)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse config file: %s", diags.Error())
		}
		diags = gohcl.DecodeBody(file.Body, nil, cfg)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to decode config: %s", diags.Error())
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the values that Load cannot check by type.
func (c *Config) Validate() error {
	if c.BatchSize < 0 {
		return fmt.Errorf("invalid batch_size %d", c.BatchSize)
	}
	if c.MaxFieldSize < 0 {
		return fmt.Errorf("invalid max_field_size %d", c.MaxFieldSize)
	}
	if _, err := c.Delimiter(); err != nil {
		return err
	}
	if _, err := c.Timeout(); err != nil {
		return err
	}
	if _, err := c.DumpGrammar(); err != nil {
		return err
	}
	if _, err := sqldump.LookupEncoding(c.Encoding); err != nil {
		return err
	}
	return nil
}

// Delimiter returns the csv field delimiter. 0 means the writer default.
func (c *Config) Delimiter() (rune, error) {
	if c.CSVDelimiter == "" {
		return 0, nil
	}
	return singleRune("csv_delimiter", c.CSVDelimiter)
}

// Timeout returns the stall timeout. 0 disables it.
func (c *Config) Timeout() (time.Duration, error) {
	if c.StallTimeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.StallTimeout)
	if err != nil {
		return 0, fmt.Errorf("invalid stall_timeout: %w", err)
	}
	return d, nil
}

// DumpGrammar returns the default grammar with the configured overrides applied.
func (c *Config) DumpGrammar() (common.Grammar, error) {
	g := common.DefaultGrammar()
	gc := c.Grammar
	if gc == nil {
		return g, nil
	}

	single := []struct {
		name  string
		value string
		dst   *rune
	}{
		{"terminator", gc.Terminator, &g.Terminator},
		{"escape", gc.Escape, &g.Escape},
		{"open", gc.Open, &g.Open},
		{"close", gc.Close, &g.Close},
		{"separator", gc.Separator, &g.Separator},
	}
	for _, s := range single {
		if s.value == "" {
			continue
		}
		r, err := singleRune(s.name, s.value)
		if err != nil {
			return g, err
		}
		*s.dst = r
	}
	if gc.CommentPrefixes != "" {
		g.CommentPrefixes = []rune(gc.CommentPrefixes)
	}
	if gc.QuoteChars != "" {
		g.QuoteChars = []rune(gc.QuoteChars)
	}
	if gc.BulkTerminator != "" {
		g.BulkTerminator = gc.BulkTerminator
	}
	return g, nil
}

// Options maps the configuration onto conversion options.
func (c *Config) Options() (*converters.Options, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	delim, _ := c.Delimiter()
	timeout, _ := c.Timeout()
	g, _ := c.DumpGrammar()

	opts := converters.DefaultOptions()
	if c.Format != "" {
		opts.Format = c.Format
	}
	opts.MaxFieldSize = c.MaxFieldSize
	opts.Delimiter = delim
	opts.BatchSize = c.BatchSize
	opts.LogErrors = c.LogErrors
	opts.KeepEmptyTables = c.KeepEmptyTables
	opts.KeepStore = c.KeepStore
	opts.StallTimeout = timeout
	opts.Grammar = &g
	opts.Encoding = c.Encoding
	return opts, nil
}

// Export writes the configuration to the specified file, in YAML for .yaml
// and .yml files and in HCL otherwise.
func Export(path string, cfg *Config) error {
	var data []byte
	if isYAML(path) {
		out, err := yaml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("failed to encode config: %w", err)
		}
		data = out
	} else {
		data = encodeHCL(cfg)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()

	_, err = file.Write(data)
	if err != nil {
		return fmt.Errorf("failed to write config to file: %w", err)
	}

	return nil
}

func encodeHCL(cfg *Config) []byte {
	f := hclwrite.NewEmptyFile()
	root := f.Body()

	root.SetAttributeValue("batch_size", cty.NumberIntVal(int64(cfg.BatchSize)))
	root.SetAttributeValue("max_field_size", cty.NumberIntVal(int64(cfg.MaxFieldSize)))
	root.SetAttributeValue("format", cty.StringVal(cfg.Format))
	if cfg.CSVDelimiter != "" {
		root.SetAttributeValue("csv_delimiter", cty.StringVal(cfg.CSVDelimiter))
	}
	root.SetAttributeValue("log_errors", cty.BoolVal(cfg.LogErrors))
	root.SetAttributeValue("keep_empty_tables", cty.BoolVal(cfg.KeepEmptyTables))
	root.SetAttributeValue("keep_store", cty.BoolVal(cfg.KeepStore))
	if cfg.StallTimeout != "" {
		root.SetAttributeValue("stall_timeout", cty.StringVal(cfg.StallTimeout))
	}
	if cfg.Encoding != "" {
		root.SetAttributeValue("encoding", cty.StringVal(cfg.Encoding))
	}

	if gc := cfg.Grammar; gc != nil {
		root.AppendNewline()
		body := root.AppendNewBlock("grammar", nil).Body()
		attrs := []struct{ name, value string }{
			{"terminator", gc.Terminator},
			{"comment_prefixes", gc.CommentPrefixes},
			{"quote_chars", gc.QuoteChars},
			{"escape", gc.Escape},
			{"open", gc.Open},
			{"close", gc.Close},
			{"separator", gc.Separator},
			{"bulk_terminator", gc.BulkTerminator},
		}
		for _, a := range attrs {
			if a.value != "" {
				body.SetAttributeValue(a.name, cty.StringVal(a.value))
			}
		}
	}
	return f.Bytes()
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

func singleRune(name, s string) (rune, error) {
	if utf8.RuneCountInString(s) != 1 {
		return 0, fmt.Errorf("invalid %s %q: want a single character", name, s)
	}
	r, _ := utf8.DecodeRuneInString(s)
	return r, nil
}
