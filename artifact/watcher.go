package artifact

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/rushteam/bookrec/logging"
)

// Reloader 是 Watcher 触发的目标，通常是 *Cache。
type Reloader interface {
	Reload(ctx context.Context) error
}

// Watcher 监听文件存储目录，产物文件被创建或改写后触发 Reload。
// 一次训练会连续写多个文件，事件在 Debounce 时间内合并为一次 Reload。
type Watcher struct {
	Dir      string
	Keys     Keys
	Target   Reloader
	Debounce time.Duration

	watcher *fsnotify.Watcher
	done    chan struct{}
	once    sync.Once
}

// NewWatcher 创建 Watcher，调用 Start 后开始监听。
func NewWatcher(dir string, keys Keys, target Reloader) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		Dir:      dir,
		Keys:     keys,
		Target:   target,
		Debounce: 500 * time.Millisecond,
		watcher:  w,
		done:     make(chan struct{}),
	}, nil
}

// Start 开始监听，ctx 结束或 Close 后停止。
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.watcher.Add(w.Dir); err != nil {
		return err
	}
	go w.loop(ctx)
	return nil
}

func (w *Watcher) loop(ctx context.Context) {
	log := logging.WithComponent("artifact.watcher")
	watched := make(map[string]bool, 4)
	for _, k := range w.Keys.All() {
		watched[k] = true
	}

	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !watched[filepath.Base(event.Name)] {
				continue
			}
			// rename 落盘表现为 Create
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.Debounce)
			} else {
				timer.Reset(w.Debounce)
			}
			fire = timer.C
		case <-fire:
			fire = nil
			if err := w.Target.Reload(ctx); err != nil {
				log.Warn().Err(err).Msg("reload after artifact change failed, keeping previous snapshot")
				continue
			}
			log.Info().Str("dir", w.Dir).Msg("artifacts reloaded")
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Warn().Err(err).Msg("watch error")
		}
	}
}

// Close 停止监听。
func (w *Watcher) Close() error {
	w.once.Do(func() { close(w.done) })
	return w.watcher.Close()
}
