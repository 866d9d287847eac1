package config

import (
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// fileConfig mirrors Config but with every field optional, so a
// docx-redline.yaml only needs to set what it wants to override. Env vars
// still take precedence over whatever the file sets (Load applies the
// file's values as new fallbacks before the env lookups run).
type fileConfig struct {
	Port                    *int    `yaml:"port"`
	ReadTimeout             *string `yaml:"readTimeout"`
	WriteTimeout            *string `yaml:"writeTimeout"`
	ShutdownTimeout         *string `yaml:"shutdownTimeout"`
	MaxUploadSizeMB         *int    `yaml:"maxUploadSizeMB"`
	UploadDir               *string `yaml:"uploadDir"`
	DefaultAuthor           *string `yaml:"defaultAuthor"`
	GenerateRedlinesDefault *bool   `yaml:"generateRedlinesDefault"`
	RevisionIDSeed          *int    `yaml:"revisionIDSeed"`
}

// loadFileConfig reads an optional YAML override file. Its path comes from
// DOCX_REDLINE_CONFIG, defaulting to "docx-redline.yaml" in the working
// directory; a missing file is not an error, since the override is opt-in.
func loadFileConfig() *fileConfig {
	path := os.Getenv("DOCX_REDLINE_CONFIG")
	if path == "" {
		path = "docx-redline.yaml"
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return &fileConfig{}
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return &fileConfig{}
	}
	return &fc
}

// Config holds application configuration loaded from environment variables.
type Config struct {
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	MaxUploadSizeMB int64
	UploadDir       string

	// DefaultAuthor is the tracked-change author attributed to a redline
	// request that doesn't specify one.
	DefaultAuthor string
	// GenerateRedlinesDefault is used when a redline request omits
	// options.generateRedlines.
	GenerateRedlinesDefault bool
	// RevisionIDSeed seeds the engine's w:id counter at startup, so
	// restarts in a long-running deployment don't collide with ids a
	// client may have already seen.
	RevisionIDSeed int
}

// Load reads configuration from environment variables with sensible
// defaults, after applying an optional docx-redline.yaml as the new
// fallback layer (env vars still win over the file; see loadFileConfig).
func Load() *Config {
	fc := loadFileConfig()

	port := 8080
	if fc.Port != nil {
		port = *fc.Port
	}
	readTimeout := fallbackDuration(fc.ReadTimeout, 30*time.Second)
	writeTimeout := fallbackDuration(fc.WriteTimeout, 60*time.Second)
	shutdownTimeout := fallbackDuration(fc.ShutdownTimeout, 10*time.Second)
	maxUploadSizeMB := 50
	if fc.MaxUploadSizeMB != nil {
		maxUploadSizeMB = *fc.MaxUploadSizeMB
	}
	uploadDir := "/tmp/docx-uploads"
	if fc.UploadDir != nil {
		uploadDir = *fc.UploadDir
	}
	defaultAuthor := "docx-redline"
	if fc.DefaultAuthor != nil {
		defaultAuthor = *fc.DefaultAuthor
	}
	generateRedlinesDefault := true
	if fc.GenerateRedlinesDefault != nil {
		generateRedlinesDefault = *fc.GenerateRedlinesDefault
	}
	revisionIDSeed := 1000
	if fc.RevisionIDSeed != nil {
		revisionIDSeed = *fc.RevisionIDSeed
	}

	return &Config{
		Port:                    envInt("PORT", port),
		ReadTimeout:             envDuration("READ_TIMEOUT", readTimeout),
		WriteTimeout:            envDuration("WRITE_TIMEOUT", writeTimeout),
		ShutdownTimeout:         envDuration("SHUTDOWN_TIMEOUT", shutdownTimeout),
		MaxUploadSizeMB:         int64(envInt("MAX_UPLOAD_SIZE_MB", maxUploadSizeMB)),
		UploadDir:               envString("UPLOAD_DIR", uploadDir),
		DefaultAuthor:           envString("REDLINE_DEFAULT_AUTHOR", defaultAuthor),
		GenerateRedlinesDefault: envBool("REDLINE_GENERATE_DEFAULT", generateRedlinesDefault),
		RevisionIDSeed:          envInt("REDLINE_REVISION_ID_SEED", revisionIDSeed),
	}
}

// fallbackDuration parses an optional YAML duration string, falling back
// to def on absence or parse failure.
func fallbackDuration(s *string, def time.Duration) time.Duration {
	if s == nil {
		return def
	}
	if d, err := time.ParseDuration(*s); err == nil {
		return d
	}
	return def
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
