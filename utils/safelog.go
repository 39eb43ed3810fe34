// utils/safelog.go
// ============================================================================
// SAFE LOGGING - masks sensitive data in production
// ============================================================================
// Financial amounts, emails and raw persistence errors must never leak into
// production logs or API responses. These helpers mask them when running in
// release mode and filter by LOG_LEVEL.
// ============================================================================

package utils

import (
	"fmt"
	"log"
	"os"
	"regexp"
	"strings"
)

var (
	// IsProduction switches masking on.
	IsProduction = os.Getenv("GIN_MODE") == "release" ||
		os.Getenv("ENVIRONMENT") == "production"

	LogLevel = getLogLevel()
)

const (
	LogLevelDebug = iota
	LogLevelInfo
	LogLevelWarn
	LogLevelError
)

func getLogLevel() int {
	level := strings.ToUpper(os.Getenv("LOG_LEVEL"))
	switch level {
	case "DEBUG":
		return LogLevelDebug
	case "WARN", "WARNING":
		return LogLevelWarn
	case "ERROR":
		return LogLevelError
	default:
		return LogLevelInfo
	}
}

var (
	emailPattern  = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
	amountPattern = regexp.MustCompile(`\b\d+\.\d{2}\b`)
)

// MaskSensitive redacts emails and monetary amounts from a log line.
func MaskSensitive(msg string) string {
	if !IsProduction {
		return msg
	}
	msg = emailPattern.ReplaceAllString(msg, "***@***")
	msg = amountPattern.ReplaceAllString(msg, "*.**")
	return msg
}

func LogDebug(format string, args ...interface{}) {
	if LogLevel <= LogLevelDebug {
		log.Print("🔍 " + MaskSensitive(fmt.Sprintf(format, args...)))
	}
}

func LogInfo(format string, args ...interface{}) {
	if LogLevel <= LogLevelInfo {
		log.Print("ℹ️  " + MaskSensitive(fmt.Sprintf(format, args...)))
	}
}

func LogWarn(format string, args ...interface{}) {
	if LogLevel <= LogLevelWarn {
		log.Print("⚠️ " + MaskSensitive(fmt.Sprintf(format, args...)))
	}
}

func LogError(format string, args ...interface{}) {
	if LogLevel <= LogLevelError {
		log.Print("❌ " + MaskSensitive(fmt.Sprintf(format, args...)))
	}
}
