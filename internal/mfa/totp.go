package mfa

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

const (
	// CodeDigits TOTP 位数
	CodeDigits  = 6
	// StepSeconds TOTP 时间步长
	StepSeconds = 30
	// SecretSize 密钥随机字节数
	SecretSize  = 20
	// skewSteps 允许的相邻时间步，固定为 ±1
	skewSteps   = 1
)

var (
	// ErrInvalidCodeFormat 验证码不是 6 位数字
	ErrInvalidCodeFormat = errors.New("totp code must be exactly 6 digits")
	// ErrInvalidSecret 密钥无法解码
	ErrInvalidSecret     = errors.New("totp secret is invalid")
)

var validateOpts = totp.ValidateOpts{
	Period:    StepSeconds,
	Digits:    otp.DigitsSix,
	Algorithm: otp.AlgorithmSHA1,
}

// TOTPEngine 基于 RFC 6238 的一次性密码引擎
type TOTPEngine struct {
	issuer string
}

// NewTOTPEngine 创建 TOTP 引擎
func NewTOTPEngine(issuer string) *TOTPEngine {
	issuer = strings.TrimSpace(issuer)
	if issuer == "" {
		issuer = "snap-admin"
	}
	return &TOTPEngine{issuer: issuer}
}

// Issuer 返回签发方名称
func (e *TOTPEngine) Issuer() string {
	return e.issuer
}

// GenerateSecret 生成新的 base32 密钥（无填充）与 otpauth 配置链接
func (e *TOTPEngine) GenerateSecret(account string) (string, string, error) {
	account = strings.TrimSpace(account)
	if account == "" {
		return "", "", fmt.Errorf("totp account is required")
	}
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      e.issuer,
		AccountName: account,
		Period:      StepSeconds,
		SecretSize:  SecretSize,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return "", "", fmt.Errorf("generate totp secret failed: %w", err)
	}
	return key.Secret(), key.URL(), nil
}

// CurrentCode 计算 t 所在时间步的验证码
func (e *TOTPEngine) CurrentCode(secret string, t time.Time) (string, error) {
	code, err := totp.GenerateCodeCustom(secret, t, validateOpts)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidSecret, err)
	}
	return code, nil
}

// Verify 校验验证码，容忍前后各一个时间步
func (e *TOTPEngine) Verify(secret, code string, t time.Time) (bool, error) {
	_, ok, err := e.VerifyStep(secret, code, t)
	return ok, err
}

// VerifyStep 校验验证码并返回匹配的时间步计数
// 格式校验先于任何 HMAC 计算；三个时间步全部计算并以常量时间比较，不提前返回。
func (e *TOTPEngine) VerifyStep(secret, code string, t time.Time) (int64, bool, error) {
	if !IsTOTPCode(code) {
		return 0, false, ErrInvalidCodeFormat
	}
	counter := t.Unix() / StepSeconds
	matched := 0
	var step int64
	for offset := -skewSteps; offset <= skewSteps; offset++ {
		candidate := counter + int64(offset)
		if candidate < 0 {
			continue
		}
		expected, err := totp.GenerateCodeCustom(secret, time.Unix(candidate*StepSeconds, 0), validateOpts)
		if err != nil {
			return 0, false, fmt.Errorf("%w: %v", ErrInvalidSecret, err)
		}
		eq := subtle.ConstantTimeCompare([]byte(expected), []byte(code))
		step = int64(subtle.ConstantTimeSelect(eq, int(candidate), int(step)))
		matched |= eq
	}
	if matched != 1 {
		return 0, false, nil
	}
	return step, true, nil
}

// IsTOTPCode 是否为恰好 6 位 ASCII 数字
func IsTOTPCode(code string) bool {
	if len(code) != CodeDigits {
		return false
	}
	for i := 0; i < len(code); i++ {
		if code[i] < '0' || code[i] > '9' {
			return false
		}
	}
	return true
}
