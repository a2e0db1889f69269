package logger

import (
	"strings"

	"go.uber.org/zap"
)

// New builds a zap logger: JSON at info level for "production"/"prod",
// console at debug level otherwise.
func New(mode string) (*zap.Logger, error) {
	switch strings.ToLower(mode) {
	case "prod", "production":
		return zap.NewProduction()
	default:
		return zap.NewDevelopment()
	}
}
