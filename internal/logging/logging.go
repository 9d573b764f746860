package logging

import (
	"fmt"
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Sink is the JSON log file shared by every named logger. The file and the
// level can change after startup, once command line flags are parsed.
type Sink struct {
	mu    sync.Mutex
	file  *os.File
	path  string
	level zap.AtomicLevel
}

func NewSink(path string, debug bool) (*Sink, error) {
	s := &Sink{level: zap.NewAtomicLevelAt(zap.InfoLevel)}
	s.SetDebug(debug)
	if err := s.Redirect(path); err != nil {
		return nil, err
	}
	return s, nil
}

func openLogFile(path string) (*os.File, error) {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return file, nil
}

// Redirect switches the sink to path. An empty path stops file logging.
func (s *Sink) Redirect(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if path == s.path && (s.file != nil || path == "") {
		return nil
	}
	var next *os.File
	if path != "" {
		file, err := openLogFile(path)
		if err != nil {
			return err
		}
		next = file
	}
	if s.file != nil {
		_ = s.file.Close()
	}
	s.file = next
	s.path = path
	return nil
}

func (s *Sink) SetDebug(debug bool) {
	if debug {
		s.level.SetLevel(zap.DebugLevel)
		return
	}
	s.level.SetLevel(zap.InfoLevel)
}

func (s *Sink) Path() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.path
}

func (s *Sink) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return len(p), nil
	}
	return s.file.Write(p)
}

func (s *Sink) Sync() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return nil
	}
	return s.file.Sync()
}

func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}

// Attach tees base into the sink. Entries carry the process id so several
// terminals sharing one log file can be told apart.
func (s *Sink) Attach(base *zap.Logger) *zap.Logger {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	fileCore := zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), s, s.level).
		With([]zapcore.Field{zap.Int("pid", os.Getpid())})
	return base.WithOptions(zap.WrapCore(func(core zapcore.Core) zapcore.Core {
		return zapcore.NewTee(core, fileCore)
	}))
}
