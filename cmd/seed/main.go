package main

import (
	"context"
	"errors"
	"os"

	"github.com/maronglamin/snap-admin-sub004/internal/config"
	"github.com/maronglamin/snap-admin-sub004/internal/constants"
	"github.com/maronglamin/snap-admin-sub004/internal/logger"
	"github.com/maronglamin/snap-admin-sub004/internal/models"
	"github.com/maronglamin/snap-admin-sub004/internal/provider"
	"github.com/maronglamin/snap-admin-sub004/internal/service"
)

type entitySeed struct {
	Name        string
	Description string
	RoleName    string
}

type adminSeed struct {
	Email    string
	Username string
	Entity   string
}

// 演示数据：每个预置角色对应一个运营主体和一个管理员
var (
	entitySeeds = []entitySeed{
		{Name: "ops-desk", Description: "订单与行程运营", RoleName: constants.RoleOperations},
		{Name: "support-desk", Description: "客服与用户支持", RoleName: constants.RoleSupport},
		{Name: "finance-desk", Description: "结算与对账", RoleName: constants.RoleFinance},
		{Name: "insights", Description: "数据分析", RoleName: constants.RoleAnalyst},
		{Name: "compliance", Description: "合规审计", RoleName: constants.RoleAuditor},
	}
	adminSeeds = []adminSeed{
		{Email: "ops@example.com", Username: "ops", Entity: "ops-desk"},
		{Email: "support@example.com", Username: "support", Entity: "support-desk"},
		{Email: "finance@example.com", Username: "finance", Entity: "finance-desk"},
		{Email: "analyst@example.com", Username: "analyst", Entity: "insights"},
		{Email: "auditor@example.com", Username: "auditor", Entity: "compliance"},
	}
)

func main() {
	// 连接数据库
	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()
	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}); err != nil {
		stdLog.Fatalf("Failed to connect database: %v", err)
	}

	// 自动迁移
	if err := models.AutoMigrate(); err != nil {
		stdLog.Fatalf("Failed to migrate database: %v", err)
	}

	// 容器初始化会补齐预置角色
	c := provider.NewContainer(cfg)
	ctx := context.Background()
	actor := service.AuditActor{Username: "seed", RequestID: "seed"}

	if err := models.InitDefaultAdmin(models.DefaultAdminSeed{
		Email:      os.Getenv("SNAP_DEFAULT_ADMIN_EMAIL"),
		Username:   os.Getenv("SNAP_DEFAULT_ADMIN_USERNAME"),
		Password:   os.Getenv("SNAP_DEFAULT_ADMIN_PASSWORD"),
		EntityName: constants.DefaultOperatorEntityName,
		RoleName:   constants.RoleSuperAdmin,
	}); err != nil {
		stdLog.Printf("Failed to init default admin: %v", err)
	}

	entityIDs := map[string]uint{}
	for _, seed := range entitySeeds {
		existing, err := c.OperatorEntityRepo.GetByName(ctx, seed.Name)
		if err != nil {
			stdLog.Fatalf("Failed to load operator entity %s: %v", seed.Name, err)
		}
		if existing != nil {
			entityIDs[seed.Name] = existing.ID
			stdLog.Printf("Operator entity already exists: %s", seed.Name)
			continue
		}
		role, err := c.RoleRepo.GetByName(ctx, seed.RoleName)
		if err != nil || role == nil {
			stdLog.Printf("Skip operator entity %s: role %s missing (%v)", seed.Name, seed.RoleName, err)
			continue
		}
		entity, err := c.OperatorEntityService.Create(ctx, actor, service.CreateOperatorEntityInput{
			Name:        seed.Name,
			Description: seed.Description,
			RoleID:      role.ID,
		})
		if err != nil {
			stdLog.Printf("Failed to create operator entity %s: %v", seed.Name, err)
			continue
		}
		entityIDs[seed.Name] = entity.ID
		stdLog.Printf("Created operator entity: %s -> %s", seed.Name, seed.RoleName)
	}

	password := os.Getenv("SNAP_SEED_ADMIN_PASSWORD")
	if password == "" {
		password = "Operator@123456"
	}
	for _, seed := range adminSeeds {
		entityID, ok := entityIDs[seed.Entity]
		if !ok {
			continue
		}
		_, err := c.AdminService.Create(ctx, actor, service.CreateAdminInput{
			Email:            seed.Email,
			Username:         seed.Username,
			Password:         password,
			OperatorEntityID: entityID,
		})
		switch {
		case err == nil:
			stdLog.Printf("Created admin: %s (%s)", seed.Username, seed.Entity)
		case errors.Is(err, service.ErrAdminExists):
			stdLog.Printf("Admin already exists: %s", seed.Username)
		default:
			stdLog.Printf("Failed to create admin %s: %v", seed.Username, err)
		}
	}

	stdLog.Println("Seed completed")
}
