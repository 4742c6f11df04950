package mfa

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/big"
	"strconv"
	"strings"
)

// BackupCodeAlphabet 备用码字符集（去除易混淆的 0/O/1/I）
const BackupCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const (
	// DefaultBackupCodeCount 默认每批数量
	DefaultBackupCodeCount = 10
	// DefaultBackupCodeLength 默认长度（不含分隔符）
	DefaultBackupCodeLength = 10
	backupCodeGroupSize     = 5
	maxBackupCodeCount      = 50
)

// BackupCodes 备用码生成与哈希
type BackupCodes struct {
	count       int
	length      int
	pepper      []byte
	randomIndex func(int) (int, error)
}

// NewBackupCodes 创建备用码管理器；pepper 为服务端密钥
func NewBackupCodes(count, length int, pepper string) *BackupCodes {
	if count <= 0 {
		count = DefaultBackupCodeCount
	}
	if count > maxBackupCodeCount {
		count = maxBackupCodeCount
	}
	if length < 8 {
		length = DefaultBackupCodeLength
	}
	return &BackupCodes{
		count:       count,
		length:      length,
		pepper:      []byte(pepper),
		randomIndex: cryptoRandomIndex,
	}
}

// Count 每批默认数量
func (b *BackupCodes) Count() int {
	return b.count
}

// Length 备用码长度
func (b *BackupCodes) Length() int {
	return b.length
}

// Generate 生成 count 个互不相同的备用码（展示格式 XXXXX-XXXXX）；count<=0 时使用默认值
func (b *BackupCodes) Generate(count int) ([]string, error) {
	if count <= 0 {
		count = b.count
	}
	if count > maxBackupCodeCount {
		return nil, fmt.Errorf("backup code count %d exceeds limit", count)
	}
	seen := make(map[string]struct{}, count)
	codes := make([]string, 0, count)
	for len(codes) < count {
		raw, err := b.newCode()
		if err != nil {
			return nil, err
		}
		if _, dup := seen[raw]; dup {
			continue
		}
		seen[raw] = struct{}{}
		codes = append(codes, FormatBackupCode(raw))
	}
	return codes, nil
}

// Hash 计算备用码哈希：HMAC-SHA256(pepper, adminID || 0x00 || canonical)
func (b *BackupCodes) Hash(adminID uint, code string) string {
	mac := hmac.New(sha256.New, b.pepper)
	mac.Write([]byte(strconv.FormatUint(uint64(adminID), 10)))
	mac.Write([]byte{0})
	mac.Write([]byte(CanonicalBackupCode(code)))
	return hex.EncodeToString(mac.Sum(nil))
}

// WellFormed 归一化后长度与字符集是否合法
func (b *BackupCodes) WellFormed(code string) bool {
	canonical := CanonicalBackupCode(code)
	if len(canonical) != b.length {
		return false
	}
	for i := 0; i < len(canonical); i++ {
		if strings.IndexByte(BackupCodeAlphabet, canonical[i]) < 0 {
			return false
		}
	}
	return true
}

func (b *BackupCodes) newCode() (string, error) {
	buf := make([]byte, b.length)
	for i := range buf {
		idx, err := b.randomIndex(len(BackupCodeAlphabet))
		if err != nil {
			return "", fmt.Errorf("generate backup code failed: %w", err)
		}
		buf[i] = BackupCodeAlphabet[idx]
	}
	return string(buf), nil
}

// CanonicalBackupCode 去除连字符与空白并转为大写
func CanonicalBackupCode(code string) string {
	var sb strings.Builder
	sb.Grow(len(code))
	for _, r := range strings.ToUpper(code) {
		switch r {
		case '-', ' ', '\t':
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// FormatBackupCode 每 5 位插入连字符
func FormatBackupCode(canonical string) string {
	if len(canonical) <= backupCodeGroupSize {
		return canonical
	}
	var sb strings.Builder
	for i := 0; i < len(canonical); i += backupCodeGroupSize {
		if i > 0 {
			sb.WriteByte('-')
		}
		end := i + backupCodeGroupSize
		if end > len(canonical) {
			end = len(canonical)
		}
		sb.WriteString(canonical[i:end])
	}
	return sb.String()
}

func cryptoRandomIndex(max int) (int, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(max)))
	if err != nil {
		return 0, err
	}
	return int(n.Int64()), nil
}
