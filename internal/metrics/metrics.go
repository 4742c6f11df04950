package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "snap_admin"

// Registry 独立注册表，避免与默认注册表中的第三方指标冲突
var Registry = prometheus.NewRegistry()

var (
	adminLoginTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "admin_login_total",
		Help:      "Admin login attempts by result.",
	}, []string{"result"})

	mfaVerifyTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "mfa_verify_total",
		Help:      "MFA factor verifications by method and result.",
	}, []string{"method", "result"})

	sessionVerifyFailuresTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "session_verify_failures_total",
		Help:      "Rejected session tokens by failure kind.",
	}, []string{"kind"})

	authzDecisionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "authz_decisions_total",
		Help:      "Authorization decisions by outcome.",
	}, []string{"decision"})

	securityNoticeTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "security_notice_tasks_total",
		Help:      "Processed admin security notice tasks by result.",
	}, []string{"result"})

	rateLimitRejectedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rate_limit_rejected_total",
		Help:      "Requests rejected by the rate limiter by rule and reason.",
	}, []string{"rule", "reason"})
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		adminLoginTotal,
		mfaVerifyTotal,
		sessionVerifyFailuresTotal,
		authzDecisionsTotal,
		securityNoticeTotal,
		rateLimitRejectedTotal,
	)
}

// ObserveLogin 记录登录结果（success / failed / mfa_required）
func ObserveLogin(result string) {
	adminLoginTotal.WithLabelValues(result).Inc()
}

// ObserveMFAVerify 记录二次验证结果
func ObserveMFAVerify(method string, ok bool) {
	mfaVerifyTotal.WithLabelValues(method, resultLabel(ok)).Inc()
}

// ObserveSessionFailure 记录会话校验失败类型
func ObserveSessionFailure(kind string) {
	sessionVerifyFailuresTotal.WithLabelValues(kind).Inc()
}

// ObserveAuthzDecision 记录授权判定
func ObserveAuthzDecision(allowed bool) {
	decision := "deny"
	if allowed {
		decision = "allow"
	}
	authzDecisionsTotal.WithLabelValues(decision).Inc()
}

// ObserveSecurityNotice 记录安全通知任务结果（sent / skipped / dropped / failed）
func ObserveSecurityNotice(result string) {
	securityNoticeTotal.WithLabelValues(result).Inc()
}

// ObserveRateLimitRejected 记录限流拒绝（limited / unavailable）
func ObserveRateLimitRejected(rule, reason string) {
	rateLimitRejectedTotal.WithLabelValues(rule, reason).Inc()
}

// Handler 暴露 Prometheus 文本格式
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

func resultLabel(ok bool) string {
	if ok {
		return "success"
	}
	return "failed"
}
