package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type ZapLogger struct {
	sugarLogger *zap.SugaredLogger
	level       zap.AtomicLevel
}

var _ Logger = (*ZapLogger)(nil)

// NewZapLogger builds a console logger in development and a JSON logger in production.
// Both write to stdout.
func NewZapLogger(config LoggerConfig) (*ZapLogger, error) {
	var zapConfig zap.Config
	fallback := zapcore.InfoLevel
	if config.IsDevelopment {
		zapConfig = zap.NewDevelopmentConfig()
		zapConfig.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapConfig.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout(TimeFormat)
		fallback = zapcore.DebugLevel
	} else {
		zapConfig = zap.NewProductionConfig()
		zapConfig.EncoderConfig.TimeKey = "timestamp"
		zapConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}
	zapConfig.OutputPaths = []string{"stdout"}
	zapConfig.ErrorOutputPaths = []string{"stderr"}
	zapConfig.Level = zap.NewAtomicLevelAt(ParseLevel(config.Level, config.ProcessName, fallback))

	logger, err := zapConfig.Build(zap.AddCallerSkip(1))
	if err != nil {
		return nil, fmt.Errorf("failed to build zap logger: %w", err)
	}

	return &ZapLogger{
		sugarLogger: logger.Sugar().Named(string(config.ProcessName)),
		level:       zapConfig.Level,
	}, nil
}

func (z *ZapLogger) Debug(msg string, tags ...any) {
	z.sugarLogger.Debugw(msg, tags...)
}

func (z *ZapLogger) Info(msg string, tags ...any) {
	z.sugarLogger.Infow(msg, tags...)
}

func (z *ZapLogger) Warn(msg string, tags ...any) {
	z.sugarLogger.Warnw(msg, tags...)
}

func (z *ZapLogger) Error(msg string, tags ...any) {
	z.sugarLogger.Errorw(msg, tags...)
}

func (z *ZapLogger) Fatal(msg string, tags ...any) {
	z.sugarLogger.Fatalw(msg, tags...)
}

func (z *ZapLogger) Debugf(template string, args ...interface{}) {
	z.sugarLogger.Debugf(template, args...)
}

func (z *ZapLogger) Infof(template string, args ...interface{}) {
	z.sugarLogger.Infof(template, args...)
}

func (z *ZapLogger) Warnf(template string, args ...interface{}) {
	z.sugarLogger.Warnf(template, args...)
}

func (z *ZapLogger) Errorf(template string, args ...interface{}) {
	z.sugarLogger.Errorf(template, args...)
}

func (z *ZapLogger) Fatalf(template string, args ...interface{}) {
	z.sugarLogger.Fatalf(template, args...)
}

func (z *ZapLogger) With(tags ...any) Logger {
	return &ZapLogger{
		sugarLogger: z.sugarLogger.With(tags...),
		level:       z.level,
	}
}

// Level reports the active level.
func (z *ZapLogger) Level() zapcore.Level {
	return z.level.Level()
}

// Sync flushes buffered entries. Errors from syncing stdout are expected and ignored.
func (z *ZapLogger) Sync() {
	_ = z.sugarLogger.Sync()
}

// DriverLogger adapts a Logger to the Print-style interface database drivers expect.
type DriverLogger struct {
	Logger Logger
}

func (d DriverLogger) Print(v ...interface{}) {
	d.Logger.Debug(fmt.Sprint(v...))
}

func (d DriverLogger) Printf(format string, v ...interface{}) {
	d.Logger.Debugf(format, v...)
}

func (d DriverLogger) Println(v ...interface{}) {
	d.Logger.Debug(fmt.Sprint(v...))
}
