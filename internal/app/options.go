package app

import (
	"os"
	"time"

	"github.com/maronglamin/snap-admin-sub004/internal/config"
	"github.com/maronglamin/snap-admin-sub004/internal/logger"
	"github.com/maronglamin/snap-admin-sub004/internal/models"

	"go.uber.org/zap"
)

const (
	ModeAll    = "all"
	ModeAPI    = "api"
	ModeWorker = "worker"
)

// Options 应用启动选项
type Options struct {
	Config          *config.Config
	Logger          *zap.SugaredLogger
	Signals         []os.Signal
	ShutdownTimeout time.Duration
	Mode            string
	// DefaultAdmin 非空时在预置角色就绪后初始化默认超级管理员
	DefaultAdmin *models.DefaultAdminSeed
}

// normalizeOptions 补齐默认参数
func normalizeOptions(opts Options) Options {
	if opts.Logger == nil {
		opts.Logger = logger.S()
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 10 * time.Second
	}
	if opts.Mode == "" {
		opts.Mode = ModeAll
	}
	return opts
}
