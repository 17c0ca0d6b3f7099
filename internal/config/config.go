// Package config loads slidetext settings from defaults, an optional config
// file and SLIDETEXT_* environment variables, in increasing priority.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/tsawler/slidetext"
	"github.com/tsawler/slidetext/layout"
	"github.com/tsawler/slidetext/text"
)

// EnvPrefix prefixes every environment override, e.g.
// SLIDETEXT_EXTRACT_COLUMN_TOLERANCE or SLIDETEXT_SERVER_ADDR.
const EnvPrefix = "SLIDETEXT"

// Config holds all application configuration
type Config struct {
	Extract ExtractConfig `mapstructure:"extract"`
	Output  OutputConfig  `mapstructure:"output"`
	Server  ServerConfig  `mapstructure:"server"`
	Log     LogConfig     `mapstructure:"log"`
}

// ExtractConfig holds shape walking and reading order settings
type ExtractConfig struct {
	ColumnTolerance int64   `mapstructure:"column_tolerance"`
	ColumnStride    int64   `mapstructure:"column_stride"`
	RowStride       int64   `mapstructure:"row_stride"`
	DefaultFontSize float64 `mapstructure:"default_font_size"`
	TableFontSize   float64 `mapstructure:"table_font_size"`
	DefaultFontName string  `mapstructure:"default_font_name"`
	IncludeNotes    bool    `mapstructure:"include_notes"`
	NotesMarker     string  `mapstructure:"notes_marker"`
	NotesTop        int64   `mapstructure:"notes_top"`
}

// OutputConfig holds document rendering settings
type OutputConfig struct {
	SlideHeading    string `mapstructure:"slide_heading"`
	EmptySlideText  string `mapstructure:"empty_slide_text"`
	FailedSlideText string `mapstructure:"failed_slide_text"`
	Suffix          string `mapstructure:"suffix"`
}

// ServerConfig holds upload service settings
type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	UploadDir       string        `mapstructure:"upload_dir"`
	ExportDir       string        `mapstructure:"export_dir"`
	MaxUploadBytes  int64         `mapstructure:"max_upload_bytes"`
	Retention       time.Duration `mapstructure:"retention"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
	Heartbeat       time.Duration `mapstructure:"heartbeat"`
	Workers         int           `mapstructure:"workers"`
}

// LogConfig holds logger settings
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// setDefaults registers every key so that environment overrides apply even
// when no config file sets them.
func setDefaults(v *viper.Viper) {
	walker := text.DefaultConfig()
	v.SetDefault("extract.column_tolerance", layout.DefaultColumnTolerance)
	v.SetDefault("extract.column_stride", walker.ColumnStride)
	v.SetDefault("extract.row_stride", walker.RowStride)
	v.SetDefault("extract.default_font_size", walker.DefaultFontSize)
	v.SetDefault("extract.table_font_size", walker.TableFontSize)
	v.SetDefault("extract.default_font_name", walker.DefaultFontName)
	v.SetDefault("extract.include_notes", walker.IncludeNotes)
	v.SetDefault("extract.notes_marker", walker.NotesMarker)
	v.SetDefault("extract.notes_top", walker.NotesTop)

	render := slidetext.DefaultRenderOptions()
	v.SetDefault("output.slide_heading", render.SlideHeading)
	v.SetDefault("output.empty_slide_text", render.EmptySlideText)
	v.SetDefault("output.failed_slide_text", render.FailedSlideText)
	v.SetDefault("output.suffix", slidetext.DefaultOutputSuffix)

	v.SetDefault("server.addr", "127.0.0.1:5002")
	v.SetDefault("server.upload_dir", "uploads")
	v.SetDefault("server.export_dir", "exports")
	v.SetDefault("server.max_upload_bytes", int64(500<<20))
	v.SetDefault("server.retention", time.Hour)
	v.SetDefault("server.cleanup_interval", 10*time.Minute)
	v.SetDefault("server.heartbeat", 30*time.Second)
	v.SetDefault("server.workers", 4)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
}

// Default returns the built-in configuration.
func Default() *Config {
	cfg, err := load(viper.New(), "")
	if err != nil {
		// Defaults are constants; failing here is a programming error
		panic(err)
	}
	return cfg
}

// Load reads configuration. path may be empty, in which case only defaults
// and the environment are used. The file type follows its extension (yaml,
// toml, json, ...).
func Load(path string) (*Config, error) {
	return load(viper.New(), path)
}

func load(v *viper.Viper, path string) (*Config, error) {
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for values extraction cannot work with.
func (c *Config) Validate() error {
	var errs []error

	if c.Extract.ColumnTolerance <= 0 {
		errs = append(errs, fmt.Errorf("extract.column_tolerance must be positive, got %d", c.Extract.ColumnTolerance))
	}
	if c.Extract.ColumnStride < 0 || c.Extract.RowStride < 0 {
		errs = append(errs, errors.New("extract.column_stride and extract.row_stride must not be negative"))
	}
	if c.Extract.DefaultFontSize <= 0 || c.Extract.TableFontSize <= 0 {
		errs = append(errs, errors.New("extract font sizes must be positive"))
	}
	if !strings.Contains(c.Output.SlideHeading, "%d") {
		errs = append(errs, fmt.Errorf("output.slide_heading must contain %%d, got %q", c.Output.SlideHeading))
	}
	if !strings.HasSuffix(strings.ToLower(c.Output.Suffix), ".docx") {
		errs = append(errs, fmt.Errorf("output.suffix must end in .docx, got %q", c.Output.Suffix))
	}
	if c.Server.MaxUploadBytes <= 0 {
		errs = append(errs, errors.New("server.max_upload_bytes must be positive"))
	}
	if c.Server.Workers < 1 {
		errs = append(errs, errors.New("server.workers must be at least 1"))
	}
	switch strings.ToLower(c.Log.Format) {
	case "json", "console":
	default:
		errs = append(errs, fmt.Errorf("log.format must be json or console, got %q", c.Log.Format))
	}

	return errors.Join(errs...)
}

// TextConfig returns the shape walker configuration.
func (c *Config) TextConfig() text.Config {
	return text.Config{
		ColumnStride:    c.Extract.ColumnStride,
		RowStride:       c.Extract.RowStride,
		DefaultFontSize: c.Extract.DefaultFontSize,
		TableFontSize:   c.Extract.TableFontSize,
		DefaultFontName: c.Extract.DefaultFontName,
		IncludeNotes:    c.Extract.IncludeNotes,
		NotesMarker:     c.Extract.NotesMarker,
		NotesTop:        c.Extract.NotesTop,
	}
}

// ColumnConfig returns the reading order configuration.
func (c *Config) ColumnConfig() layout.ColumnConfig {
	return layout.ColumnConfig{Tolerance: c.Extract.ColumnTolerance}
}

// RenderOptions returns the document rendering options.
func (c *Config) RenderOptions() slidetext.RenderOptions {
	opts := slidetext.DefaultRenderOptions()
	opts.SlideHeading = c.Output.SlideHeading
	opts.EmptySlideText = c.Output.EmptySlideText
	opts.FailedSlideText = c.Output.FailedSlideText
	opts.Font = c.Extract.DefaultFontName
	return opts
}

// Apply configures ext with every extraction and rendering setting.
func (c *Config) Apply(ext *slidetext.Extractor) *slidetext.Extractor {
	return ext.
		WithTextConfig(c.TextConfig()).
		WithColumnConfig(c.ColumnConfig()).
		WithRenderOptions(c.RenderOptions())
}

// OutputPath returns the document path for input using the configured
// suffix.
func (c *Config) OutputPath(input string) string {
	return strings.TrimSuffix(slidetext.DefaultOutputPath(input), slidetext.DefaultOutputSuffix) + c.Output.Suffix
}
