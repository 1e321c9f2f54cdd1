package config_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/okian/grudgematch/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()

		convey.Convey("When loading config with defaults only", func() {
			clearConfigEnvVars()

			cfg, err := config.Load(ctx, "")

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldResemble, config.New())
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("GRUDGE_DATA_DIR", "/tmp/grudge")
			_ = os.Setenv("GRUDGE_LOG_LEVEL", "debug")
			_ = os.Setenv("GRUDGE_LOG_FORMAT", "json")
			_ = os.Setenv("GRUDGE_BACKUP_ON_OPEN", "false")
			_ = os.Setenv("GRUDGE_METRICS_TEXTFILE", "/tmp/grudge.prom")
			_ = os.Setenv("GRUDGE_OUTPUT", "json")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx, "")

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.DataDir, convey.ShouldEqual, "/tmp/grudge")
				convey.So(cfg.LogLevel, convey.ShouldEqual, "debug")
				convey.So(cfg.LogFormat, convey.ShouldEqual, "json")
				convey.So(cfg.BackupOnOpen, convey.ShouldBeFalse)
				convey.So(cfg.MetricsTextfile, convey.ShouldEqual, "/tmp/grudge.prom")
				convey.So(cfg.Output, convey.ShouldEqual, "json")
			})
		})

		convey.Convey("When loading config with YAML file from GRUDGE_CONFIG", func() {
			tmpFile := createTempConfigFile(t, `
data_dir: /srv/grudge
log_level: warn
backup_on_open: false
`)
			_ = os.Setenv("GRUDGE_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx, "")

			convey.Convey("Then it should load from YAML file", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.DataDir, convey.ShouldEqual, "/srv/grudge")
				convey.So(cfg.LogLevel, convey.ShouldEqual, "warn")
				convey.So(cfg.BackupOnOpen, convey.ShouldBeFalse)
				convey.So(cfg.Output, convey.ShouldEqual, "text") // From defaults
			})
		})

		convey.Convey("When a path is passed and GRUDGE_CONFIG is also set", func() {
			fromEnv := createTempConfigFile(t, "data_dir: /from/env\n")
			fromFlag := createTempConfigFile(t, "data_dir: /from/flag\n")
			_ = os.Setenv("GRUDGE_CONFIG", fromEnv)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx, fromFlag)

			convey.Convey("Then the passed path wins", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.DataDir, convey.ShouldEqual, "/from/flag")
			})
		})

		convey.Convey("When loading config with both file and environment variables", func() {
			tmpFile := createTempConfigFile(t, `
data_dir: /srv/grudge
log_format: json
output: json
`)
			_ = os.Setenv("GRUDGE_OUTPUT", "text")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx, tmpFile)

			convey.Convey("Then environment variables should override file values", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Output, convey.ShouldEqual, "text")         // Overridden by env
				convey.So(cfg.LogFormat, convey.ShouldEqual, "json")      // From file
				convey.So(cfg.DataDir, convey.ShouldEqual, "/srv/grudge") // From file
			})
		})

		convey.Convey("When loading config with invalid YAML file", func() {
			tmpFile := createTempConfigFile(t, `invalid: yaml: content: [`)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx, tmpFile)

			convey.Convey("Then it should return a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with non-existent file", func() {
			_ = os.Setenv("GRUDGE_CONFIG", "/non/existent/file.yaml")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx, "")

			convey.Convey("Then it should return a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with empty data dir", func() {
			_ = os.Setenv("GRUDGE_DATA_DIR", "")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx, "")

			convey.Convey("Then it should return a validation error", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "data_dir must not be empty")
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with an unknown output format", func() {
			_ = os.Setenv("GRUDGE_OUTPUT", "csv")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx, "")

			convey.Convey("Then it should return a validation error", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with an invalid boolean", func() {
			_ = os.Setenv("GRUDGE_BACKUP_ON_OPEN", "sometimes")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx, "")

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})
	})
}

func TestConfigLoaderEdgeCases(t *testing.T) {
	convey.Convey("Given config loader edge cases", t, func() {
		ctx := context.Background()

		convey.Convey("When loading config with YAML file containing comments", func() {
			tmpFile := createTempConfigFile(t, `
# This is a comment
data_dir: "/srv/grudge"  # Inline comment
# Another comment
log_level: error
`)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx, tmpFile)

			convey.Convey("Then it should parse YAML with comments", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.DataDir, convey.ShouldEqual, "/srv/grudge")
				convey.So(cfg.LogLevel, convey.ShouldEqual, "error")
			})
		})

		convey.Convey("When loading config with YAML file containing empty values", func() {
			tmpFile := createTempConfigFile(t, `
data_dir: ""
log_level: info
`)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx, tmpFile)

			convey.Convey("Then it should return validation error for empty data dir", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(err.Error(), convey.ShouldContainSubstring, "data_dir must not be empty")
				convey.So(cfg, convey.ShouldBeNil)
			})
		})
	})
}

// Helper functions.

func clearConfigEnvVars() {
	envVars := []string{
		"GRUDGE_CONFIG",
		"GRUDGE_LOG_LEVEL",
		"GRUDGE_LOG_FORMAT",
		"GRUDGE_DATA_DIR",
		"GRUDGE_BACKUP_ON_OPEN",
		"GRUDGE_METRICS_TEXTFILE",
		"GRUDGE_OUTPUT",
	}
	for _, envVar := range envVars {
		_ = os.Unsetenv(envVar)
	}
}

func createTempConfigFile(t *testing.T, content string) string {
	t.Helper()
	tmpFile, err := os.CreateTemp(t.TempDir(), "grudge-config-*.yaml")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := tmpFile.WriteString(content); err != nil {
		t.Fatal(err)
	}
	if err := tmpFile.Close(); err != nil {
		t.Fatal(err)
	}
	return tmpFile.Name()
}
