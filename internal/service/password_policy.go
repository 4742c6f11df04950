package service

import (
	"strings"
	"unicode"

	"github.com/maronglamin/snap-admin-sub004/internal/config"
)

// bcrypt 只使用前 72 字节，超出部分不参与校验
const maxPasswordBytes = 72

// passwordPolicyError 携带 i18n key 与参数，统一归类为 ErrWeakPassword
type passwordPolicyError struct {
	key  string
	args []interface{}
}

func (e passwordPolicyError) Error() string {
	return e.key
}

func (e passwordPolicyError) Is(target error) bool {
	return target == ErrWeakPassword
}

func (e passwordPolicyError) Key() string {
	return e.key
}

func (e passwordPolicyError) Args() []interface{} {
	return e.args
}

// validatePassword 按配置校验后台密码；identities 为账号标识（用户名、邮箱），密码中不得包含
func validatePassword(policy config.PasswordPolicyConfig, password string, identities ...string) error {
	if len(password) > maxPasswordBytes {
		return passwordPolicyError{key: "error.password_too_long", args: []interface{}{maxPasswordBytes}}
	}
	if policy.MinLength > 0 && len([]rune(password)) < policy.MinLength {
		return passwordPolicyError{key: "error.password_min_length", args: []interface{}{policy.MinLength}}
	}

	classes := classifyPasswordRunes(password)
	switch {
	case policy.RequireUpper && !classes.upper:
		return passwordPolicyError{key: "error.password_require_upper"}
	case policy.RequireLower && !classes.lower:
		return passwordPolicyError{key: "error.password_require_lower"}
	case policy.RequireNumber && !classes.number:
		return passwordPolicyError{key: "error.password_require_number"}
	case policy.RequireSpecial && !classes.special:
		return passwordPolicyError{key: "error.password_require_special"}
	}

	if containsAccountIdentity(password, identities) {
		return passwordPolicyError{key: "error.password_has_account"}
	}
	return nil
}

type passwordRuneClasses struct {
	upper, lower, number, special bool
}

func classifyPasswordRunes(password string) passwordRuneClasses {
	var classes passwordRuneClasses
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			classes.upper = true
		case unicode.IsLower(r):
			classes.lower = true
		case unicode.IsDigit(r):
			classes.number = true
		default:
			classes.special = true
		}
	}
	return classes
}

// containsAccountIdentity 忽略大小写比较；邮箱只取 @ 之前部分，过短的标识不参与比较
func containsAccountIdentity(password string, identities []string) bool {
	lowered := strings.ToLower(password)
	for _, identity := range identities {
		identity = strings.ToLower(strings.TrimSpace(identity))
		if at := strings.Index(identity, "@"); at >= 0 {
			identity = identity[:at]
		}
		if len(identity) < 4 {
			continue
		}
		if strings.Contains(lowered, identity) {
			return true
		}
	}
	return false
}
