package tools

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// InitLogger configura o logger global do zap. Com logPath preenchido os logs
// também vão em JSON para um arquivo rotacionado pelo lumberjack.
func InitLogger(mode string, logPath string) (*zap.Logger, error) {
	var zapConfig zap.Config
	if mode == "production" {
		zapConfig = zap.NewProductionConfig()
	} else {
		zapConfig = zap.NewDevelopmentConfig()
	}

	var logger *zap.Logger
	if logPath != "" {
		rotate := &lumberjack.Logger{
			Filename:   logPath,
			MaxSize:    64,
			MaxBackups: 7,
			MaxAge:     7,
		}
		consoleEncoder := zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
		if mode == "production" {
			consoleEncoder = zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
		}
		core := zapcore.NewTee(
			zapcore.NewCore(
				zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
				zapcore.AddSync(rotate),
				zapConfig.Level,
			),
			zapcore.NewCore(consoleEncoder, zapcore.AddSync(os.Stdout), zapConfig.Level),
		)
		logger = zap.New(core, zap.AddCaller())
	} else {
		var err error
		logger, err = zapConfig.Build(zap.AddCaller())
		if err != nil {
			return nil, err
		}
	}

	zap.ReplaceGlobals(logger)
	return logger, nil
}
