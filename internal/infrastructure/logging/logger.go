package logging

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ServiceName is attached to every line as the "service" field.
const ServiceName = "fileshuttle"

// Logger wraps zap.Logger with the shuttle's field conventions.
type Logger struct {
	*zap.Logger
}

// Config defines logger configuration. OutputPaths accepts anything
// zap.Open does; empty means stderr, which keeps stdout free for client
// commands that stream file contents.
type Config struct {
	Level       string
	Development bool
	OutputPaths []string
}

// DefaultConfig returns the production configuration.
func DefaultConfig() Config {
	return Config{Level: "info", OutputPaths: []string{"stderr"}}
}

// New builds a logger. Production output is sampled JSON without stack
// traces below error; development output is colored console text with
// caller and stack traces on warnings.
func New(cfg Config) (*Logger, error) {
	level, err := parseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	outputs := cfg.OutputPaths
	if len(outputs) == 0 {
		outputs = []string{"stderr"}
	}
	sink, closeSink, err := zap.Open(outputs...)
	if err != nil {
		return nil, fmt.Errorf("open log outputs: %w", err)
	}
	errSink, _, err := zap.Open("stderr")
	if err != nil {
		closeSink()
		return nil, fmt.Errorf("open error output: %w", err)
	}

	var core zapcore.Core
	opts := []zap.Option{
		zap.ErrorOutput(errSink),
		zap.AddCaller(),
		zap.Fields(zap.String("service", ServiceName)),
	}
	if cfg.Development {
		core = zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig(true)), sink, level)
		opts = append(opts, zap.Development(), zap.AddStacktrace(zapcore.WarnLevel))
	} else {
		core = zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig(false)), sink, level)
		// Repeated per-call lines collapse under a hot client loop
		core = zapcore.NewSamplerWithOptions(core, time.Second, 100, 100)
		opts = append(opts, zap.AddStacktrace(zapcore.ErrorLevel))
	}

	return &Logger{Logger: zap.New(core, opts...)}, nil
}

// NewOrNop builds a logger for level/dev and falls back to a no-op logger
// when the level string is invalid.
func NewOrNop(level string, development bool) *Logger {
	cfg := DefaultConfig()
	cfg.Level = level
	cfg.Development = development

	logger, err := New(cfg)
	if err != nil {
		return Nop()
	}
	return logger
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{Logger: zap.NewNop()}
}

// Component returns a child logger named after a subsystem.
func (l *Logger) Component(name string) *zap.Logger {
	return l.Logger.Named(name)
}

// Field helpers keep key names consistent across packages.

// Op tags a log line with the RPC operation name.
func Op(op string) zap.Field { return zap.String("op", op) }

// Path tags a log line with a path argument.
func Path(p string) zap.Field { return zap.String("path", p) }

// Instance tags a log line with the shuttle instance ID.
func Instance(id string) zap.Field { return zap.String("instance", id) }

// RequestID tags a log line with the per-call request ID.
func RequestID(id string) zap.Field { return zap.String("request_id", id) }

func parseLevel(level string) (zapcore.Level, error) {
	if level == "" {
		return zapcore.InfoLevel, nil
	}
	l, err := zapcore.ParseLevel(level)
	if err != nil {
		return zapcore.InfoLevel, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	return l, nil
}

// encoderConfig starts from zap's presets. Production keys are short so
// lines stay greppable next to the admin server's access log.
func encoderConfig(development bool) zapcore.EncoderConfig {
	if development {
		ec := zap.NewDevelopmentEncoderConfig()
		ec.EncodeLevel = zapcore.CapitalColorLevelEncoder
		ec.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000")
		return ec
	}

	ec := zap.NewProductionEncoderConfig()
	ec.TimeKey = "ts"
	ec.MessageKey = "msg"
	ec.EncodeTime = zapcore.RFC3339NanoTimeEncoder
	ec.EncodeDuration = zapcore.MillisDurationEncoder
	return ec
}
