package file

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// RotateConfig controls RotatingFile.
type RotateConfig struct {
	// Path is the active file (required).
	Path string

	// MaxBytes rotates before a write would grow the file past this size.
	// Zero disables rotation.
	MaxBytes int64

	// MaxBackups is how many rotated files (path.1 newest ... path.N) to
	// keep. Zero keeps one.
	MaxBackups int
}

// RotatingFile is an append-only io.WriteCloser with size-based rotation.
// A single write is never split across files. It is safe for concurrent use.
type RotatingFile struct {
	mu     sync.Mutex
	cfg    RotateConfig
	file   *os.File
	size   int64
	logger *slog.Logger
}

// OpenRotating opens or creates cfg.Path, creating parent directories.
func OpenRotating(cfg RotateConfig, logger *slog.Logger) (*RotatingFile, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("transport/file: rotate: path is required")
	}
	if cfg.MaxBackups <= 0 {
		cfg.MaxBackups = 1
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(noopWriter{}, nil))
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, fmt.Errorf("transport/file: rotate: mkdir: %w", err)
	}

	rf := &RotatingFile{cfg: cfg, logger: logger}
	if err := rf.open(); err != nil {
		return nil, err
	}
	return rf, nil
}

// Write appends p, rotating first when p would overflow MaxBytes. A file
// that is still empty is never rotated, so an oversized record lands whole.
func (rf *RotatingFile) Write(p []byte) (int, error) {
	rf.mu.Lock()
	defer rf.mu.Unlock()

	if rf.file == nil {
		return 0, os.ErrClosed
	}
	if rf.cfg.MaxBytes > 0 && rf.size > 0 && rf.size+int64(len(p)) > rf.cfg.MaxBytes {
		if err := rf.rotate(); err != nil {
			// Keep appending to whatever is open rather than lose the record.
			rf.logger.Error("transport/file: rotate failed", "path", rf.cfg.Path, "error", err.Error())
		}
	}
	n, err := rf.file.Write(p)
	rf.size += int64(n)
	return n, err
}

// Close closes the active file. Later writes fail with os.ErrClosed.
func (rf *RotatingFile) Close() error {
	rf.mu.Lock()
	defer rf.mu.Unlock()

	if rf.file == nil {
		return nil
	}
	err := rf.file.Close()
	rf.file = nil
	return err
}

func (rf *RotatingFile) open() error {
	f, err := os.OpenFile(rf.cfg.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("transport/file: rotate: open %s: %w", rf.cfg.Path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return fmt.Errorf("transport/file: rotate: stat %s: %w", rf.cfg.Path, err)
	}
	rf.file = f
	rf.size = info.Size()
	return nil
}

// rotate shifts path.(N-1) → path.N ... path → path.1, dropping the
// oldest, then reopens path empty.
func (rf *RotatingFile) rotate() error {
	if err := rf.file.Close(); err != nil {
		rf.logger.Warn("transport/file: rotate: close", "error", err.Error())
	}
	rf.file = nil

	base := rf.cfg.Path
	os.Remove(backupName(base, rf.cfg.MaxBackups))
	for i := rf.cfg.MaxBackups - 1; i >= 1; i-- {
		os.Rename(backupName(base, i), backupName(base, i+1))
	}
	if err := os.Rename(base, backupName(base, 1)); err != nil && !os.IsNotExist(err) {
		rf.logger.Warn("transport/file: rotate: rename", "error", err.Error())
	}

	rf.logger.Info("transport/file: rotated", "path", base)
	return rf.open()
}

func backupName(base string, i int) string {
	return fmt.Sprintf("%s.%d", base, i)
}
