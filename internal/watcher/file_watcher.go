package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// FileHandler 文件处理函数
type FileHandler func(ctx context.Context, filePath string) error

// FileWatcher 批量投递目录监控器。
// 监控 inbound 目录中新出现的 APK 文件，防抖后交给 handler（入队扫描）。
type FileWatcher struct {
	watcher  *fsnotify.Watcher
	watchDir string
	pattern  string // 文件匹配模式 (如 "*.apk")
	handler  FileHandler
	logger   *logrus.Logger
	debounce time.Duration

	mu         sync.Mutex
	processing map[string]bool
}

// NewFileWatcher 创建文件监控器
func NewFileWatcher(watchDir, pattern string, handler FileHandler, logger *logrus.Logger) (*FileWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	// 确保监控目录存在
	if err := os.MkdirAll(watchDir, 0755); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to create watch directory: %w", err)
	}

	if err := watcher.Add(watchDir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to add watch directory: %w", err)
	}

	fw := &FileWatcher{
		watcher:    watcher,
		watchDir:   watchDir,
		pattern:    pattern,
		handler:    handler,
		logger:     logger,
		debounce:   2 * time.Second, // 等待写入完成
		processing: make(map[string]bool),
	}

	logger.WithFields(logrus.Fields{
		"watch_dir": watchDir,
		"pattern":   pattern,
	}).Info("File watcher created")

	return fw, nil
}

// Start 启动文件监控
func (fw *FileWatcher) Start(ctx context.Context) {
	fw.logger.Info("Starting file watcher")
	go fw.eventLoop(ctx)
}

// Stop 关闭底层 watcher，事件循环随之退出
func (fw *FileWatcher) Stop() {
	fw.watcher.Close()
	fw.logger.Info("File watcher stopped")
}

// eventLoop 事件循环
func (fw *FileWatcher) eventLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			fw.logger.Info("File watcher shutting down")
			fw.watcher.Close()
			return

		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			if matched, _ := filepath.Match(fw.pattern, filepath.Base(event.Name)); !matched {
				continue
			}
			fw.scheduleFile(ctx, event.Name)

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			fw.logger.WithError(err).Error("File watcher error")
		}
	}
}

// scheduleFile 防抖处理：同一文件的连续写事件只触发一次
func (fw *FileWatcher) scheduleFile(ctx context.Context, path string) {
	fw.mu.Lock()
	if fw.processing[path] {
		fw.mu.Unlock()
		return
	}
	fw.processing[path] = true
	fw.mu.Unlock()

	go func() {
		defer func() {
			fw.mu.Lock()
			delete(fw.processing, path)
			fw.mu.Unlock()
		}()

		// 等待文件写入完成
		select {
		case <-ctx.Done():
			return
		case <-time.After(fw.debounce):
		}

		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			return
		}

		fw.logger.WithFields(logrus.Fields{
			"file": path,
			"size": info.Size(),
		}).Info("Inbound APK detected")

		if err := fw.handler(ctx, path); err != nil {
			fw.logger.WithError(err).WithField("file", path).Error("Failed to handle inbound file")
		}
	}()
}
