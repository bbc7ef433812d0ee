package main

import (
	"fmt"
	"os"

	"github.com/cdmatta/pseudofsd/config"
	"github.com/cdmatta/pseudofsd/middleware"
	"github.com/cdmatta/pseudofsd/pseudofs"
	"github.com/cdmatta/pseudofsd/server"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	GitBranch  string
	GitSummary string
	Version    string
	BuildDate  string
)

func main() {
	fmt.Printf("Branch=%s Git=%s Version=%s BuildDate=%s\n", GitBranch, GitSummary, Version, BuildDate)

	logger := initZapLog()
	defer logger.Sync()

	if len(os.Args) == 1 {
		zap.S().Fatalf("usage: %s <config-file>", os.Args[0])
	}

	configFile := os.Args[1]
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		zap.S().Fatal(err)
	}
	zap.S().Infof("%+v", cfg)

	fs := pseudofs.New()
	for _, nodeConfig := range cfg.Tree {
		kind, err := nodeConfig.GetKind()
		if err != nil {
			zap.S().Fatal(err)
		}

		fs.Lock()
		_, err = fs.Reserve(nodeConfig.Path, kind, nodeConfig.Target)
		fs.Unlock()
		if err != nil {
			zap.S().Fatalf("reserve %s: %v", nodeConfig.Path, err)
		}
	}

	var (
		accessLoggingMetrics = middleware.NewAccessLoggingMetricsMiddleware()
		globalFilterFunc     = middleware.Compose(accessLoggingMetrics)

		nameService = server.NewNameService(fs).WithGlobalFilterFunc(globalFilterFunc)
	)

	zap.S().Infof("Starting pseudofsd on %s", cfg.Server.GetListenAddress())
	nameService.ListenAndServe(cfg.Server.GetListenAddress())
}

func initZapLog() *zap.Logger {
	cfg := zap.NewDevelopmentConfig()
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncoderConfig.CallerKey = ""
	logger, _ := cfg.Build()
	zap.ReplaceGlobals(logger)
	return logger
}
