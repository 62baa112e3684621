package service

import (
	"encoding/json"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/hodadako/blue-archive-voice-downloader/internal/constants"
	"github.com/hodadako/blue-archive-voice-downloader/internal/domain"
	"go.uber.org/zap"
)

// StudentRegistry is the read-only table of known students. It loads
// once per process: bundled dataset first, the on-disk cache mirror as
// fallback, an empty list as the final degraded state. A separate
// batch tool is the only way the underlying dataset changes.
type StudentRegistry struct {
	dataRoot  string
	cachePath string
	logger    *zap.Logger

	once     sync.Once
	students []*domain.StudentRecord
}

func NewStudentRegistry(dataRoot, cacheDir string, logger *zap.Logger) *StudentRegistry {
	return &StudentRegistry{
		dataRoot:  dataRoot,
		cachePath: filepath.Join(cacheDir, constants.CacheFiles.StudentMap),
		logger:    logger,
	}
}

// Load returns the normalized student list. Never errors: missing or
// corrupt data degrades to an empty list.
func (r *StudentRegistry) Load() []*domain.StudentRecord {
	r.once.Do(func() {
		r.students = r.load()
	})
	return r.students
}

func (r *StudentRegistry) load() []*domain.StudentRecord {
	students := domain.LoadBundledStudents()
	if len(students) > 0 {
		r.resolveImageURLs(students)
		r.mirrorToCache(students)
		r.logger.Info("Student registry loaded",
			zap.String("source", "bundled"),
			zap.Int("students", len(students)),
		)
		return students
	}

	data, err := os.ReadFile(r.cachePath)
	if err != nil {
		r.logger.Warn("Student registry empty",
			zap.String("cache", r.cachePath),
			zap.Error(err),
		)
		return []*domain.StudentRecord{}
	}

	students = domain.ParseStudentPayload(data)
	r.resolveImageURLs(students)
	r.logger.Info("Student registry loaded",
		zap.String("source", "cache"),
		zap.Int("students", len(students)),
	)
	return students
}

// mirrorToCache writes the bundled dataset through to the on-disk
// cache so a future build without bundled data can still resolve.
func (r *StudentRegistry) mirrorToCache(students []*domain.StudentRecord) {
	payload := &domain.StudentDataset{
		UpdatedAt: time.Now().UnixMilli(),
		Source:    "bundled",
		Students:  students,
	}

	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		r.logger.Warn("Failed to encode student cache", zap.Error(err))
		return
	}

	if err := writeFileAtomic(r.cachePath, data); err != nil {
		r.logger.Warn("Failed to mirror student cache",
			zap.String("path", r.cachePath),
			zap.Error(err),
		)
	}
}

// resolveImageURLs converts relative image paths into file references
// when the target exists under the data root. Absolute URLs pass
// through unchanged; everything else becomes empty.
func (r *StudentRegistry) resolveImageURLs(students []*domain.StudentRecord) {
	for _, s := range students {
		s.ImageURL = r.resolveImageURL(s.ImageURL)
	}
}

func (r *StudentRegistry) resolveImageURL(raw string) string {
	if raw == "" {
		return ""
	}

	lower := strings.ToLower(raw)
	for _, scheme := range []string{"http://", "https://", "data:", "file://"} {
		if strings.HasPrefix(lower, scheme) {
			return raw
		}
	}

	local := filepath.Join(r.dataRoot, filepath.FromSlash(raw))
	if info, err := os.Stat(local); err != nil || info.IsDir() {
		return ""
	}

	abs, err := filepath.Abs(local)
	if err != nil {
		return ""
	}
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}).String()
}

// writeFileAtomic writes data as a single atomic replace: temp file in
// the target directory, then rename.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}

	return os.Rename(tmpName, path)
}
