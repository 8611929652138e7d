package log

import (
	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ConfigLogger builds a logr.Logger backed by a zap JSON core writing to
// syncer. Higher level values enable more verbose output: level 0 is info,
// level 1 enables V(1) debug lines and so on.
func ConfigLogger(level int8, syncer zapcore.WriteSyncer) logr.Logger {
	atomicLevel := zap.NewAtomicLevelAt(zapcore.Level(-level))

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "date"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig),
		syncer,
		atomicLevel,
	)
	return zapr.NewLogger(zap.New(core, zap.AddCaller()))
}
