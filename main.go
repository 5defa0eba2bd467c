package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/Ahmed-Sermani/webrank/cmd"
	"github.com/sirupsen/logrus"
)

var (
	appName = "webrank"
	appSha  = ""
)

func main() {
	host, _ := os.Hostname()
	rootLogger := logrus.New()
	rootLogger.SetOutput(os.Stderr)
	logger := rootLogger.WithFields(logrus.Fields{
		"app":  appName,
		"sha":  appSha,
		"host": host,
	})

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGHUP, syscall.SIGTERM)
	defer cancel()

	if err := cmd.NewRootCommand(logger, os.Stdout, os.Stderr).ExecuteContext(ctx); err != nil {
		logger.WithField("err", err).Error("shutting down due to error")
		cancel()
		os.Exit(1)
	}
	logger.Info("shutdown complete")
}
