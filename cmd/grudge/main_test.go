package main

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/okian/grudgematch/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

func TestRun(t *testing.T) {
	convey.Convey("Given the grudge command line", t, func() {
		convey.So(logger.Init(logger.WithWriter(io.Discard)), convey.ShouldBeNil)
		_ = os.Unsetenv("GRUDGE_CONFIG")
		ctx := context.Background()
		dir := filepath.Join(t.TempDir(), "data")
		var stdout, stderr bytes.Buffer

		convey.Convey("When a command succeeds", func() {
			code := run(ctx, []string{"--data-dir", dir, "player", "add", "Ryu"}, &stdout, &stderr)

			convey.Convey("Then it exits cleanly", func() {
				convey.So(code, convey.ShouldEqual, exitOK)
				convey.So(stdout.String(), convey.ShouldContainSubstring, "Ryu")
			})
		})

		convey.Convey("When a command fails", func() {
			code := run(ctx, []string{"--data-dir", dir, "player", "show", "Nobody"}, &stdout, &stderr)

			convey.Convey("Then it reports the failure", func() {
				convey.So(code, convey.ShouldEqual, exitFailed)
				convey.So(stderr.String(), convey.ShouldContainSubstring, "Nobody")
			})
		})

		convey.Convey("When the configuration is invalid", func() {
			code := run(ctx, []string{"--data-dir", dir, "-o", "xml", "player", "list"}, &stdout, &stderr)

			convey.Convey("Then it exits with the config code", func() {
				convey.So(code, convey.ShouldEqual, exitConfig)
			})
		})

		convey.Convey("When the config file is missing", func() {
			code := run(ctx, []string{"--config", filepath.Join(dir, "nope.yaml"), "version"}, &stdout, &stderr)

			convey.Convey("Then it exits with the config code", func() {
				convey.So(code, convey.ShouldEqual, exitConfig)
			})
		})
	})
}
