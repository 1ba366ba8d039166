// Package config loads settings from .env, an optional YAML file and the
// environment, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	StoreBolt     = "bolt"
	StorePostgres = "postgres"
	StoreMemory   = "memory"

	BundlerTemplate = "template"
	BundlerExec     = "exec"
)

type DatabaseConfig struct {
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	Name     string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
}

// DSN is the lib/pq connection URL.
func (d DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     d.Host,
		Path:     "/" + d.Name,
		RawQuery: "sslmode=" + url.QueryEscape(d.SSLMode),
	}
	if d.Port != "" {
		u.Host = d.Host + ":" + d.Port
	}
	return u.String()
}

type PDFConfig struct {
	Mode      string `yaml:"mode"`
	APIURL    string `yaml:"api_url"`
	APIKey    string `yaml:"api_key"`
	ChromeBin string `yaml:"chrome_bin"`
}

type Config struct {
	DataFilename string `yaml:"data_filename"`
	OutDir       string `yaml:"out_dir"`
	Theme        string `yaml:"theme"`
	PrimaryColor string `yaml:"primary_color"`
	SiteURL      string `yaml:"site_url"`
	ResumeName   string `yaml:"resume_name"`
	Domain       string `yaml:"domain"`
	ResumesDir   string `yaml:"resumes_dir"`
	Production   bool   `yaml:"production"`

	// Bundler is "template" or "exec"; BuildCommand is run by the exec bundler.
	Bundler      string   `yaml:"bundler"`
	BuildCommand []string `yaml:"build_command"`

	PDF PDFConfig `yaml:"pdf"`

	Port        string         `yaml:"port"`
	StoreDriver string         `yaml:"store_driver"`
	StorePath   string         `yaml:"store_path"`
	Database    DatabaseConfig `yaml:"database"`
	JWTSecret   string         `yaml:"jwt_secret"`
	LogLevel    string         `yaml:"log_level"`

	// EnvFile is the .env file Load read, empty when there was none.
	EnvFile string `yaml:"-"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		DataFilename: "./sample.cv.json",
		OutDir:       "dist",
		Theme:        "xenking",
		PrimaryColor: "#950e0e",
		SiteURL:      "xenking.pro",
		ResumeName:   "Richard Hendriks CV",
		Domain:       "your-domain.com",
		ResumesDir:   "resumes",
		Bundler:      BundlerTemplate,
		PDF:          PDFConfig{Mode: "none"},
		Port:         "8080",
		StoreDriver:  StoreBolt,
		StorePath:    "jsoncv.db",
		Database:     DatabaseConfig{Port: "5432", SSLMode: "require"},
		LogLevel:     "info",
	}
}

// Load reads .env, the YAML file named by JSONCV_CONFIG (default jsoncv.yaml)
// and then the environment. It runs before the logger is configured, so it
// reports instead of logging.
func Load() (*Config, error) {
	cfg := Default()
	if err := godotenv.Load(); err == nil {
		cfg.EnvFile = ".env"
	}

	path := os.Getenv("JSONCV_CONFIG")
	explicit := path != ""
	if !explicit {
		path = "jsoncv.yaml"
	}
	if err := cfg.loadFile(path); err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	setString(&c.DataFilename, "DATA_FILENAME")
	setString(&c.OutDir, "OUT_DIR")
	setString(&c.Theme, "THEME")
	setString(&c.PrimaryColor, "PRIMARY_COLOR")
	setString(&c.SiteURL, "SITE_URL")
	setString(&c.ResumeName, "RESUME_NAME")
	setString(&c.Domain, "DOMAIN")
	setString(&c.ResumesDir, "RESUMES_DIR")
	setString(&c.Bundler, "BUNDLER")
	if v, ok := lookup("BUILD_COMMAND"); ok {
		c.BuildCommand = strings.Fields(v)
	}
	if v, ok := lookup("NODE_ENV"); ok {
		c.Production = v == "production"
	}

	setString(&c.PDF.Mode, "PDF_MODE")
	setString(&c.PDF.APIURL, "PDF_API_URL")
	setString(&c.PDF.APIKey, "PDF_API_KEY")
	setString(&c.PDF.ChromeBin, "CHROME_BIN")

	setString(&c.Port, "PORT")
	setString(&c.StoreDriver, "STORE_DRIVER")
	setString(&c.StorePath, "STORE_PATH")
	setString(&c.JWTSecret, "JWT_SECRET")
	setString(&c.LogLevel, "LOG_LEVEL")

	setString(&c.Database.User, "user")
	setString(&c.Database.Password, "password")
	setString(&c.Database.Host, "host")
	setString(&c.Database.Port, "port")
	setString(&c.Database.Name, "dbname")
	setString(&c.Database.SSLMode, "sslmode")
}

// Validate rejects unknown drivers and bundlers.
func (c *Config) Validate() error {
	switch c.StoreDriver {
	case StoreBolt, StorePostgres, StoreMemory:
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}
	switch c.Bundler {
	case BundlerTemplate, BundlerExec:
	default:
		return fmt.Errorf("unknown BUNDLER %q", c.Bundler)
	}
	return nil
}

func lookup(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

func setString(dst *string, key string) {
	if v, ok := lookup(key); ok {
		*dst = v
	}
}
