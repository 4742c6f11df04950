package app

import (
	"errors"

	"github.com/maronglamin/snap-admin-sub004/internal/config"
	"github.com/maronglamin/snap-admin-sub004/internal/logger"
	"github.com/maronglamin/snap-admin-sub004/internal/models"
	"github.com/maronglamin/snap-admin-sub004/internal/provider"
	"github.com/maronglamin/snap-admin-sub004/internal/router"
	"github.com/maronglamin/snap-admin-sub004/internal/worker"
)

// BuildRunner 构建服务运行器
func BuildRunner(cfg *config.Config, mode string) (*Runner, error) {
	return buildRunner(cfg, mode, nil)
}

func buildRunner(cfg *config.Config, mode string, defaultAdmin *models.DefaultAdminSeed) (*Runner, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}

	// 容器初始化时会补齐预置角色，默认管理员依赖其中的超级管理员角色
	container := provider.NewContainer(cfg)
	if defaultAdmin != nil {
		if err := models.InitDefaultAdmin(*defaultAdmin); err != nil {
			logger.Warnw("app_init_default_admin_failed", "error", err)
		}
	}

	var services []Service

	// 初始化 HTTP 服务
	if mode == ModeAll || mode == ModeAPI {
		engine := router.SetupRouter(cfg, container)
		httpService := NewHTTPService(cfg.Server, engine)
		services = append(services, httpService)
	}

	// 初始化 Worker 服务；all 模式下队列未启用时只运行 HTTP
	if mode == ModeAll && !cfg.Queue.Enabled {
		logger.Warnw("app_worker_skipped_queue_disabled", "mode", mode)
	} else if mode == ModeAll || mode == ModeWorker {
		consumer := worker.NewConsumer(container)
		workerService, err := worker.NewService(&cfg.Queue, consumer)
		if err != nil {
			return nil, err
		}
		services = append(services, workerService)
	}

	if len(services) == 0 {
		container.Close()
		return nil, errors.New("no services initialized (check mode and config)")
	}

	return NewRunner(services...).OnShutdown(container.Close), nil
}

// Run 应用启动入口
func Run(opts Options) error {
	opts = normalizeOptions(opts)
	if opts.Config == nil {
		return errors.New("config is nil")
	}

	runner, err := buildRunner(opts.Config, opts.Mode, opts.DefaultAdmin)
	if err != nil {
		return err
	}

	opts.Logger.Infow("app_start", "addr", opts.Config.Server.Addr(), "mode", opts.Mode)
	return RunWithOptions(runner, opts)
}
