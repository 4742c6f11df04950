package i18n

var catalog = map[string]map[string]string{
	LocaleZH: {
		"error.bad_request":              "请求参数错误",
		"error.unauthorized":             "未登录或登录已失效",
		"error.forbidden":                "无权执行该操作",
		"error.not_found":                "资源不存在",
		"error.internal":                 "服务器内部错误",
		"error.storage_unavailable":      "服务暂不可用，请稍后重试",
		"error.invalid_credentials":      "账号或验证信息错误",
		"error.invalid_email":            "邮箱格式不正确",
		"error.mfa_code_invalid_format":  "验证码格式不正确",
		"error.mfa_already_enabled":      "已开启二次验证",
		"error.mfa_not_pending":          "请先发起二次验证绑定",
		"error.mfa_not_enabled":          "未开启二次验证",
		"error.mfa_state_conflict":       "二次验证状态已变化，请刷新后重试",
		"error.mfa_code_rejected":        "验证码错误",
		"error.mfa_too_many_attempts":    "验证尝试过多，请稍后再试",
		"error.rate_limited":             "请求过于频繁，请 %d 秒后再试",
		"error.login_too_many":           "登录尝试过多，请 %d 秒后再试",
		"error.rate_limit_unavailable":   "限流服务不可用",
		"error.captcha_required":         "请完成验证码",
		"error.captcha_invalid":          "验证码错误",
		"error.captcha_disabled":         "未启用验证码",
		"error.password_old_invalid":     "原密码错误",
		"error.password_weak":            "密码强度不足",
		"error.password_min_length":      "密码长度至少 %d 位",
		"error.password_require_upper":   "密码需包含大写字母",
		"error.password_require_lower":   "密码需包含小写字母",
		"error.password_require_number":  "密码需包含数字",
		"error.password_require_special": "密码需包含特殊字符",
		"error.password_too_long":        "密码长度不能超过 %d 字节",
		"error.password_has_account":     "密码不能包含账号或邮箱",
		"error.admin_id_invalid":         "管理员 ID 无效",
		"error.admin_id_type_invalid":    "管理员 ID 类型错误",
		"error.admin_exists":             "管理员账号或邮箱已存在",
		"error.admin_not_found":          "管理员不存在",
		"error.role_not_found":           "角色不存在",
		"error.role_exists":              "角色已存在",
		"error.role_invalid":             "角色名称不合法",
		"error.entity_not_found":         "运营主体不存在",
		"error.entity_exists":            "运营主体已存在",
		"error.permission_invalid":       "权限项不合法",
		"error.too_many_requests":        "请求过于频繁，请稍后再试",
		"error.self_operation_forbidden": "不能对自己执行该操作",
	},
	LocaleTW: {
		"error.bad_request":              "請求參數錯誤",
		"error.unauthorized":             "未登入或登入已失效",
		"error.forbidden":                "無權執行該操作",
		"error.not_found":                "資源不存在",
		"error.internal":                 "伺服器內部錯誤",
		"error.storage_unavailable":      "服務暫不可用，請稍後重試",
		"error.invalid_credentials":      "帳號或驗證資訊錯誤",
		"error.invalid_email":            "郵箱格式不正確",
		"error.mfa_code_invalid_format":  "驗證碼格式不正確",
		"error.mfa_already_enabled":      "已開啟二次驗證",
		"error.mfa_not_pending":          "請先發起二次驗證綁定",
		"error.mfa_not_enabled":          "未開啟二次驗證",
		"error.mfa_state_conflict":       "二次驗證狀態已變化，請重新整理後重試",
		"error.mfa_code_rejected":        "驗證碼錯誤",
		"error.mfa_too_many_attempts":    "驗證嘗試過多，請稍後再試",
		"error.rate_limited":             "請求過於頻繁，請 %d 秒後再試",
		"error.login_too_many":           "登入嘗試過多，請 %d 秒後再試",
		"error.rate_limit_unavailable":   "限流服務不可用",
		"error.captcha_required":         "請完成驗證碼",
		"error.captcha_invalid":          "驗證碼錯誤",
		"error.captcha_disabled":         "未啟用驗證碼",
		"error.password_old_invalid":     "原密碼錯誤",
		"error.password_weak":            "密碼強度不足",
		"error.password_min_length":      "密碼長度至少 %d 位",
		"error.password_require_upper":   "密碼需包含大寫字母",
		"error.password_require_lower":   "密碼需包含小寫字母",
		"error.password_require_number":  "密碼需包含數字",
		"error.password_require_special": "密碼需包含特殊字元",
		"error.password_too_long":        "密碼長度不能超過 %d 位元組",
		"error.password_has_account":     "密碼不能包含帳號或郵箱",
		"error.admin_id_invalid":         "管理員 ID 無效",
		"error.admin_id_type_invalid":    "管理員 ID 類型錯誤",
		"error.admin_exists":             "管理員帳號或郵箱已存在",
		"error.admin_not_found":          "管理員不存在",
		"error.role_not_found":           "角色不存在",
		"error.role_exists":              "角色已存在",
		"error.role_invalid":             "角色名稱不合法",
		"error.entity_not_found":         "營運主體不存在",
		"error.entity_exists":            "營運主體已存在",
		"error.permission_invalid":       "權限項不合法",
		"error.too_many_requests":        "請求過於頻繁，請稍後再試",
		"error.self_operation_forbidden": "不能對自己執行該操作",
	},
	LocaleEN: {
		"error.bad_request":              "Invalid request",
		"error.unauthorized":             "Not signed in or session expired",
		"error.forbidden":                "You are not allowed to perform this action",
		"error.not_found":                "Resource not found",
		"error.internal":                 "Internal server error",
		"error.storage_unavailable":      "Service temporarily unavailable, please retry",
		"error.invalid_credentials":      "Invalid credentials",
		"error.invalid_email":            "Invalid email address",
		"error.mfa_code_invalid_format":  "Verification code must be 6 digits",
		"error.mfa_already_enabled":      "Two-factor authentication is already enabled",
		"error.mfa_not_pending":          "Start two-factor enrollment first",
		"error.mfa_not_enabled":          "Two-factor authentication is not enabled",
		"error.mfa_state_conflict":       "Two-factor state changed, please refresh and retry",
		"error.mfa_code_rejected":        "Incorrect verification code",
		"error.mfa_too_many_attempts":    "Too many verification attempts, try again later",
		"error.rate_limited":             "Too many requests, retry in %d seconds",
		"error.login_too_many":           "Too many login attempts, retry in %d seconds",
		"error.rate_limit_unavailable":   "Rate limiter unavailable",
		"error.captcha_required":         "Captcha is required",
		"error.captcha_invalid":          "Incorrect captcha",
		"error.captcha_disabled":         "Captcha is disabled",
		"error.password_old_invalid":     "Current password is incorrect",
		"error.password_weak":            "Password is too weak",
		"error.password_min_length":      "Password must be at least %d characters",
		"error.password_require_upper":   "Password must contain an uppercase letter",
		"error.password_require_lower":   "Password must contain a lowercase letter",
		"error.password_require_number":  "Password must contain a digit",
		"error.password_require_special": "Password must contain a special character",
		"error.password_too_long":        "Password must not exceed %d bytes",
		"error.password_has_account":     "Password must not contain the account name or email",
		"error.admin_id_invalid":         "Invalid admin id",
		"error.admin_id_type_invalid":    "Invalid admin id type",
		"error.admin_exists":             "Admin username or email already exists",
		"error.admin_not_found":          "Admin not found",
		"error.role_not_found":           "Role not found",
		"error.role_exists":              "Role already exists",
		"error.role_invalid":             "Invalid role name",
		"error.entity_not_found":         "Operator entity not found",
		"error.entity_exists":            "Operator entity already exists",
		"error.permission_invalid":       "Invalid permission entry",
		"error.too_many_requests":        "Too many requests, try again later",
		"error.self_operation_forbidden": "You cannot perform this action on yourself",
	},
}
