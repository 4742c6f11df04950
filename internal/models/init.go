package models

import (
	"errors"
	"fmt"
	"strings"

	"github.com/maronglamin/snap-admin-sub004/internal/logger"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DefaultAdminSeed 默认管理员参数
type DefaultAdminSeed struct {
	Email      string
	Username   string
	Password   string
	EntityName string
	RoleName   string
}

// InitDefaultOperatorEntity 确保默认运营主体存在并绑定指定角色
func InitDefaultOperatorEntity(name, roleName string) (*OperatorEntity, error) {
	var entity OperatorEntity
	err := DB.Where("name = ?", name).First(&entity).Error
	if err == nil {
		return &entity, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	var role Role
	if err := DB.Where("name = ?", roleName).First(&role).Error; err != nil {
		return nil, fmt.Errorf("default entity role %q missing: %w", roleName, err)
	}
	entity = OperatorEntity{
		Name:        name,
		Description: "default operator entity",
		RoleID:      role.ID,
	}
	if err := DB.Create(&entity).Error; err != nil {
		return nil, err
	}
	logger.Infow("default_operator_entity_created", "entity", name, "role", roleName)
	return &entity, nil
}

// InitDefaultAdmin 初始化默认管理员账号（已有管理员时跳过）
func InitDefaultAdmin(seed DefaultAdminSeed) error {
	var count int64
	if err := DB.Model(&Admin{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	entity, err := InitDefaultOperatorEntity(seed.EntityName, seed.RoleName)
	if err != nil {
		return err
	}

	username := strings.TrimSpace(seed.Username)
	if username == "" {
		username = "admin"
	}
	email := strings.ToLower(strings.TrimSpace(seed.Email))
	if email == "" {
		email = "admin@example.com"
	}
	password := seed.Password
	defaultPassword := password == ""
	if defaultPassword {
		password = "Admin@123456"
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	admin := Admin{
		Email:            email,
		Username:         username,
		PasswordHash:     string(hash),
		IsActive:         true,
		OperatorEntityID: &entity.ID,
	}
	if err := DB.Create(&admin).Error; err != nil {
		return err
	}

	if defaultPassword {
		logger.Warnw("default_admin_created_with_default_password", "username", username, "email", email)
		logger.Warnw("default_admin_password_change_required", "username", username)
	} else {
		logger.Warnw("default_admin_created", "username", username, "email", email, "password_hidden", true)
	}
	return nil
}
