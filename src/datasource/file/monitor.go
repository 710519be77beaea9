// monitor.go
package file

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// FileMonitor 监控目录下指定文件的写入，安静 debounce 时间后回调一次
type FileMonitor struct {
	watchDir string
	names    map[string]bool // 关注的文件名，为空表示目录下所有文件
	debounce time.Duration
	watcher  *fsnotify.Watcher
	lastFile string
	lastMod  time.Time
	mu       sync.Mutex
}

func NewFileMonitor(dir string, debounce time.Duration, names ...string) (*FileMonitor, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, err
	}

	m := &FileMonitor{
		watchDir: dir,
		names:    make(map[string]bool, len(names)),
		debounce: debounce,
		watcher:  watcher,
	}
	for _, n := range names {
		m.names[filepath.Base(n)] = true
	}
	return m, nil
}

// Watch 阻塞直到 ctx 结束或 watcher 出错；handler 在本 goroutine 中串行调用
func (m *FileMonitor) Watch(ctx context.Context, handler func(string)) error {
	var (
		timer   *time.Timer
		timerC  <-chan time.Time
		pending string
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-m.watcher.Events:
			if !ok {
				return nil
			}
			if !m.relevant(event) {
				continue
			}
			info, err := os.Stat(event.Name)
			if err != nil {
				continue
			}

			m.mu.Lock()
			newer := info.ModTime().After(m.lastMod) || event.Name != m.lastFile
			if newer {
				m.lastMod = info.ModTime()
				m.lastFile = event.Name
			}
			m.mu.Unlock()
			if !newer {
				continue
			}

			pending = event.Name
			if timer == nil {
				timer = time.NewTimer(m.debounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(m.debounce)
			}
			timerC = timer.C
		case <-timerC:
			timerC = nil
			handler(pending)
		case err, ok := <-m.watcher.Errors:
			if !ok {
				return nil
			}
			return err
		}
	}
}

func (m *FileMonitor) relevant(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return false
	}
	if len(m.names) == 0 {
		return true
	}
	return m.names[filepath.Base(event.Name)]
}

// LastFile 最近一次触发回调的文件
func (m *FileMonitor) LastFile() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastFile
}

func (m *FileMonitor) Close() error {
	return m.watcher.Close()
}
