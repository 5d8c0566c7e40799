// internal/logger/config.go
package logger

import "go.uber.org/zap/zapcore"

type Config struct {
	Level      string // debug|info|warn|error
	ToFile     bool
	LogFile    string
	MaxSize    int  // мегабайты
	MaxAge     int  // дни
	MaxBackups int  // количество файлов
	Compress   bool // сжимать ротированные файлы
}

// DefaultConfig возвращает конфигурацию по умолчанию
func DefaultConfig() *Config {
	return &Config{
		Level:      "info",
		ToFile:     true,
		LogFile:    "logs/bot.log",
		MaxSize:    100,
		MaxAge:     7,
		MaxBackups: 3,
		Compress:   true,
	}
}

// ParseLevel maps a config level name onto zap. Unknown names fall back to info.
func ParseLevel(level string) zapcore.Level {
	var l zapcore.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return zapcore.InfoLevel
	}
	return l
}
