package service

import (
	"context"
	"time"

	"github.com/maronglamin/snap-admin-sub004/internal/mfa"
	"github.com/maronglamin/snap-admin-sub004/internal/repository"

	"gorm.io/gorm"
)

// BackupCodeService 备用码签发与一次性核销
type BackupCodeService struct {
	codes *mfa.BackupCodes
	repo  repository.AdminBackupCodeRepository
	now   func() time.Time
}

// NewBackupCodeService 创建备用码服务
func NewBackupCodeService(codes *mfa.BackupCodes, repo repository.AdminBackupCodeRepository) *BackupCodeService {
	return &BackupCodeService{codes: codes, repo: repo, now: time.Now}
}

// Generate 生成一批新的明文备用码，仅此一次可见
func (s *BackupCodeService) Generate() ([]string, error) {
	return s.codes.Generate(0)
}

// Replace 用新一批备用码替换管理员全部旧码；tx 非空时在该事务中执行
func (s *BackupCodeService) Replace(ctx context.Context, tx *gorm.DB, adminID uint, codes []string) error {
	hashes := make([]string, 0, len(codes))
	for _, code := range codes {
		hashes = append(hashes, s.codes.Hash(adminID, code))
	}
	if err := s.repo.WithTx(tx).Replace(ctx, adminID, hashes); err != nil {
		return storageErr(err)
	}
	return nil
}

// DeleteAll 删除管理员全部备用码
func (s *BackupCodeService) DeleteAll(ctx context.Context, tx *gorm.DB, adminID uint) error {
	if err := s.repo.WithTx(tx).DeleteByAdmin(ctx, adminID); err != nil {
		return storageErr(err)
	}
	return nil
}

// Consume 核销一个备用码；格式不符、不存在或已使用均返回 false
func (s *BackupCodeService) Consume(ctx context.Context, adminID uint, code string) (bool, error) {
	if adminID == 0 || !s.codes.WellFormed(code) {
		return false, nil
	}
	ok, err := s.repo.Consume(ctx, adminID, s.codes.Hash(adminID, code), s.now())
	if err != nil {
		return false, storageErr(err)
	}
	return ok, nil
}

// Remaining 剩余可用数量
func (s *BackupCodeService) Remaining(ctx context.Context, adminID uint) (int64, error) {
	count, err := s.repo.CountRemaining(ctx, adminID)
	if err != nil {
		return 0, storageErr(err)
	}
	return count, nil
}
