package logger

import (
	"regexp"
	"strings"

	"github.com/sirupsen/logrus"
)

const redacted = "[REDACTED]"

// 字段名包含这些片段时整体脱敏
var sensitiveFieldParts = []string{"private", "secret", "mnemonic", "password", "master_key", "masterkey"}

// 消息里形如 private_key=xxx / mnemonic: xxx 的片段
var sensitiveAssignRegexp = regexp.MustCompile(`(?i)((?:private[_-]?key|secret|mnemonic|master[_-]?key|password)\s*[=:]\s*)("[^"]*"|\S+)`)

// redactHook 在写出前抹掉敏感字段
type redactHook struct{}

func (h *redactHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h *redactHook) Fire(entry *logrus.Entry) error {
	for k := range entry.Data {
		if isSensitiveField(k) {
			entry.Data[k] = redacted
		}
	}
	entry.Message = Redact(entry.Message)
	return nil
}

func isSensitiveField(name string) bool {
	name = strings.ToLower(name)
	for _, part := range sensitiveFieldParts {
		if strings.Contains(name, part) {
			return true
		}
	}
	return false
}

// Redact 抹掉文本中 key=value 形式的敏感值
func Redact(s string) string {
	return sensitiveAssignRegexp.ReplaceAllString(s, "${1}"+redacted)
}
