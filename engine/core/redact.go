package core

import (
	"net/http"
	"regexp"
	"strings"
)

var (
	bearerTokenRe = regexp.MustCompile(`(?i)(bearer\s+)[a-z0-9._~+/=-]+`)
	kvSecretRe    = regexp.MustCompile(
		`(?i)(password|passwd|secret|token|api[_-]?key|access[_-]?key|private[_-]?key)(["']?\s*[:=]\s*["']?)[^"'\s&,}]+`,
	)
	genericKeyRe   = regexp.MustCompile(`(?i)\b(sk|pk|key)_[a-z0-9]{16,}\b`)
	jwtRe          = regexp.MustCompile(`\beyJ[a-zA-Z0-9_-]+\.[a-zA-Z0-9_-]+\.[a-zA-Z0-9_-]+\b`)
	awsKeyRe       = regexp.MustCompile(`\bAKIA[0-9A-Z]{16}\b`)
	githubTokenRe  = regexp.MustCompile(`\bgh[pousr]_[A-Za-z0-9]{20,}\b`)
	slackTokenRe   = regexp.MustCompile(`\bxox[baprs]-[A-Za-z0-9-]{10,}\b`)
	connectionRe   = regexp.MustCompile(`(?i)(://[^:]+:)[^@]+(@)`)
	envConnRe      = regexp.MustCompile(`(?i)(DATABASE_URL|REDIS_URL|DSN)=\S+`)
	emailRe        = regexp.MustCompile(`\b[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}\b`)
)

// RedactString scrubs common secret shapes (bearer tokens, key=value secrets,
// JWTs, cloud provider keys, connection strings) out of a free-form string
// before it reaches a log sink or error response.
func RedactString(s string) string {
	s = bearerTokenRe.ReplaceAllString(s, "${1}[REDACTED]")
	s = kvSecretRe.ReplaceAllString(s, "${1}${2}[REDACTED]")
	s = genericKeyRe.ReplaceAllString(s, "[REDACTED]")
	s = jwtRe.ReplaceAllString(s, "[REDACTED]")
	s = awsKeyRe.ReplaceAllString(s, "[REDACTED]")
	s = githubTokenRe.ReplaceAllString(s, "[REDACTED]")
	s = slackTokenRe.ReplaceAllString(s, "[REDACTED]")
	s = connectionRe.ReplaceAllString(s, "${1}[REDACTED]${2}")
	s = envConnRe.ReplaceAllString(s, "${1}=[REDACTED]")
	return s
}

// RedactEmail masks the local part of email addresses found in s, used for
// audit-log lines that must stay correlatable without exposing the address.
func RedactEmail(s string) string {
	return emailRe.ReplaceAllStringFunc(s, func(m string) string {
		at := strings.IndexByte(m, '@')
		if at <= 1 {
			return "[REDACTED]" + m[at:]
		}
		return m[:1] + "***" + m[at:]
	})
}

// RedactError scrubs the message of err, returning "" for a nil error.
func RedactError(err error) string {
	if err == nil {
		return ""
	}
	return RedactString(err.Error())
}

var sensitiveHeaders = map[string]struct{}{
	"authorization":       {},
	"cookie":              {},
	"set-cookie":          {},
	"x-api-key":           {},
	"x-auth-token":        {},
	"proxy-authorization": {},
}

func isSensitiveHeader(name string) bool {
	_, ok := sensitiveHeaders[strings.ToLower(name)]
	return ok
}

// RedactHeaders returns a copy of h with sensitive header values replaced.
func RedactHeaders(h http.Header) http.Header {
	out := make(http.Header, len(h))
	for k, vs := range h {
		if isSensitiveHeader(k) {
			out[k] = []string{"[REDACTED]"}
			continue
		}
		cp := make([]string, len(vs))
		for i, v := range vs {
			cp[i] = RedactString(v)
		}
		out[k] = cp
	}
	return out
}
