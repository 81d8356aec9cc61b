package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Storage 报告存储接口
type Storage interface {
	Save(report *Report, content, ext string) (string, error)
}

// FileStorage 文件存储实现
type FileStorage struct {
	OutputDir string
}

// NewFileStorage 创建文件存储
func NewFileStorage(outputDir string) *FileStorage {
	return &FileStorage{
		OutputDir: outputDir,
	}
}

// Save 保存报告到 OutputDir/scan_report_<时间戳>_<id前8位>.<ext>
func (s *FileStorage) Save(report *Report, content, ext string) (string, error) {
	if err := os.MkdirAll(s.OutputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	id := report.ID
	if len(id) > 8 {
		id = id[:8]
	}
	filename := fmt.Sprintf("scan_report_%s_%s.%s", report.GeneratedAt.Format("20060102_150405"), id, ext)
	path := filepath.Join(s.OutputDir, filename)

	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return "", fmt.Errorf("failed to write report file: %w", err)
	}

	return path, nil
}

// WriterStorage 直接写到 io.Writer，例如标准输出
type WriterStorage struct {
	W io.Writer
}

// Save 写出内容，位置固定返回 "-"
func (s *WriterStorage) Save(_ *Report, content, _ string) (string, error) {
	if _, err := io.WriteString(s.W, content); err != nil {
		return "", fmt.Errorf("failed to write report: %w", err)
	}
	return "-", nil
}
