package repository

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DocumentCache 已解码文档缓存
//
// 每次读取都会比对文件的 mtime 与 size，文件被替换后不会返回旧内容；
// fsnotify 监听只负责更早地淘汰条目，不承担一致性。
type DocumentCache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
	logger  *zap.Logger
}

type cacheEntry struct {
	modTime time.Time
	size    int64
	value   interface{}
}

// NewDocumentCache 创建空缓存
func NewDocumentCache(logger *zap.Logger) *DocumentCache {
	return &DocumentCache{
		entries: make(map[string]cacheEntry),
		logger:  logger,
	}
}

func (c *DocumentCache) get(path string, info os.FileInfo) (interface{}, bool) {
	c.mu.RLock()
	e, ok := c.entries[path]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if !e.modTime.Equal(info.ModTime()) || e.size != info.Size() {
		c.Invalidate(path)
		return nil, false
	}
	return e.value, true
}

func (c *DocumentCache) put(path string, info os.FileInfo, v interface{}) {
	c.mu.Lock()
	c.entries[path] = cacheEntry{modTime: info.ModTime(), size: info.Size(), value: v}
	c.mu.Unlock()
}

// Invalidate 淘汰 path 本身及其下所有条目（path 为目录时）
func (c *DocumentCache) Invalidate(path string) {
	prefix := path + string(filepath.Separator)

	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, path)
	for k := range c.entries {
		if strings.HasPrefix(k, prefix) {
			delete(c.entries, k)
		}
	}
}

// Len 当前缓存条目数
func (c *DocumentCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Watch 递归监听 root 下所有目录，文件变化时淘汰对应条目；ctx 结束后停止监听
func (c *DocumentCache) Watch(ctx context.Context, root string) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := addTree(w, root); err != nil {
		_ = w.Close()
		return err
	}

	go c.loop(ctx, w)

	c.logger.Info("已开始监听爬虫数据目录", zap.String("root", root))
	return nil
}

func (c *DocumentCache) loop(ctx context.Context, w *fsnotify.Watcher) {
	defer w.Close()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			c.Invalidate(filepath.Clean(ev.Name))
			// 新建的子目录（例如新学期）需要加入监听
			if ev.Has(fsnotify.Create) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					if err := addTree(w, ev.Name); err != nil {
						c.logger.Warn("监听新目录失败", zap.String("dir", ev.Name), zap.Error(err))
					}
				}
			}
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			c.logger.Warn("目录监听错误", zap.Error(err))
		}
	}
}

func addTree(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(path)
		}
		return nil
	})
}
