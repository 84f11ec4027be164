package common

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"sync/atomic"
)

// MaskedValue replaces any secret the masker recognises.
const MaskedValue = "***MASKED***"

// SensitivePattern represents a pattern to detect and mask sensitive information
type SensitivePattern struct {
	Name        string         // Pattern name (e.g., "password", "id_token")
	Regex       *regexp.Regexp // Regular expression to match sensitive data
	Replacement string         // Replacement string
	Keys        []string       // Attribute keys whose whole value is masked (case-insensitive)
}

// DefaultSensitivePatterns covers the secrets this harness handles: the test account
// password, identity provider API key and the ID/refresh tokens it hands back.
var DefaultSensitivePatterns = []SensitivePattern{
	{
		Name:        "password",
		Regex:       regexp.MustCompile(`(?i)("?(?:password|passwd|pwd)"?\s*[:=]\s*)"?[^"',}\]\s]+"?`),
		Replacement: `${1}"` + MaskedValue + `"`,
		Keys:        []string{"password", "passwd", "pwd", "test_user_password"},
	},
	{
		Name:        "api_key",
		Regex:       regexp.MustCompile(`(?i)("?(?:api[_-]?key|apikey)"?\s*[:=]\s*)"?[^"',}\]\s]+"?`),
		Replacement: `${1}"` + MaskedValue + `"`,
		Keys:        []string{"api_key", "apikey", "api-key", "firebase_api_key"},
	},
	{
		Name:        "url_key",
		Regex:       regexp.MustCompile(`([?&]key=)[^&\s"]+`),
		Replacement: "${1}" + MaskedValue,
	},
	{
		Name:        "token",
		Regex:       regexp.MustCompile(`(?i)("?(?:id[_-]?token|refresh[_-]?token|access[_-]?token|token)"?\s*[:=]\s*)"?[^"',}\]\s]+"?`),
		Replacement: `${1}"` + MaskedValue + `"`,
		Keys:        []string{"token", "id_token", "idtoken", "refresh_token", "refreshtoken", "access_token"},
	},
	{
		Name:        "authorization",
		Regex:       regexp.MustCompile(`(?i)("?authorization"?\s*[:=]\s*)"?(?:Bearer|Basic)?\s*[^"',}\]\s]+"?`),
		Replacement: `${1}"` + MaskedValue + `"`,
		Keys:        []string{"authorization"},
	},
	{
		Name:        "bearer_token",
		Regex:       regexp.MustCompile(`(?i)Bearer\s+[A-Za-z0-9\-._~+/]+=*`),
		Replacement: "Bearer " + MaskedValue,
	},
	{
		Name:        "secret",
		Regex:       regexp.MustCompile(`(?i)("?(?:client[_-]?secret|secret)"?\s*[:=]\s*)"?[^"',}\]\s]+"?`),
		Replacement: `${1}"` + MaskedValue + `"`,
		Keys:        []string{"secret", "client_secret", "client-secret"},
	},
}

// Masker handles masking of sensitive information in logs
type Masker struct {
	patterns []SensitivePattern
	enabled  atomic.Bool
}

// NewMasker creates a new masker with default patterns
func NewMasker() *Masker {
	return NewMaskerWithPatterns(DefaultSensitivePatterns)
}

// NewMaskerWithPatterns creates a new masker with custom patterns
func NewMaskerWithPatterns(patterns []SensitivePattern) *Masker {
	m := &Masker{patterns: append([]SensitivePattern(nil), patterns...)}
	m.enabled.Store(true)
	return m
}

// SetEnabled enables or disables masking
func (m *Masker) SetEnabled(enabled bool) {
	m.enabled.Store(enabled)
}

// IsEnabled returns whether masking is enabled
func (m *Masker) IsEnabled() bool {
	return m.enabled.Load()
}

// AddPattern adds a new sensitive pattern. When Regex is nil one is derived from Keys.
func (m *Masker) AddPattern(pattern SensitivePattern) {
	if pattern.Regex == nil && len(pattern.Keys) > 0 {
		keyPattern := strings.Join(pattern.Keys, "|")
		pattern.Regex = regexp.MustCompile(fmt.Sprintf(`(?i)\b(%s)\s*[:=]\s*['"]?[^'",\s}\]]+['"]?`, keyPattern))
		if pattern.Replacement == "" {
			pattern.Replacement = `$1:"` + MaskedValue + `"`
		}
	}
	m.patterns = append(m.patterns, pattern)
}

// MaskString masks sensitive information in a string
func (m *Masker) MaskString(input string) string {
	if !m.IsEnabled() {
		return input
	}
	result := input
	for _, pattern := range m.patterns {
		if pattern.Regex == nil {
			continue
		}
		result = pattern.Regex.ReplaceAllString(result, pattern.Replacement)
	}
	return result
}

func (m *Masker) isSensitiveKey(key string) bool {
	lowerKey := strings.ToLower(key)
	for _, pattern := range m.patterns {
		for _, k := range pattern.Keys {
			if lowerKey == k {
				return true
			}
		}
	}
	return false
}

// MaskValue masks sensitive information based on key-value context
func (m *Masker) MaskValue(key string, value interface{}) interface{} {
	if !m.IsEnabled() {
		return value
	}
	if m.isSensitiveKey(key) {
		return MaskedValue
	}
	switch v := value.(type) {
	case string:
		return m.MaskString(v)
	case []byte:
		return m.MaskString(string(v))
	case error:
		return m.MaskString(v.Error())
	default:
		return value
	}
}

// MaskAttr applies MaskValue to a slog attribute, keeping non-string kinds intact
// unless the key itself is sensitive.
func (m *Masker) MaskAttr(a slog.Attr) slog.Attr {
	if !m.IsEnabled() {
		return a
	}
	if m.isSensitiveKey(a.Key) {
		return slog.String(a.Key, MaskedValue)
	}
	switch a.Value.Kind() {
	case slog.KindString:
		return slog.String(a.Key, m.MaskString(a.Value.String()))
	case slog.KindAny:
		if err, ok := a.Value.Any().(error); ok {
			return slog.String(a.Key, m.MaskString(err.Error()))
		}
	}
	return a
}

// MaskKeyValuePairs masks sensitive information in key-value pairs
func (m *Masker) MaskKeyValuePairs(pairs ...any) []any {
	if !m.IsEnabled() {
		return pairs
	}
	result := make([]any, len(pairs))
	copy(result, pairs)
	for i := 0; i+1 < len(pairs); i += 2 {
		if key, ok := pairs[i].(string); ok {
			result[i+1] = m.MaskValue(key, pairs[i+1])
		}
	}
	return result
}

// Global masker instance
var globalMasker = NewMasker()

// GetGlobalMasker returns the global masker instance
func GetGlobalMasker() *Masker {
	return globalMasker
}

// MaskSensitiveData masks sensitive data using the global masker
func MaskSensitiveData(input string) string {
	return globalMasker.MaskString(input)
}

// EnableMasking enables/disables global masking
func EnableMasking(enabled bool) {
	globalMasker.SetEnabled(enabled)
}
