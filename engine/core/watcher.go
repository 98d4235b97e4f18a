package core

import (
	"errors"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// ConfigWatcher reloads a configuration file when it changes on disk and
// hands the parsed result to the producer goroutine through Updates.
type ConfigWatcher struct {
	path     string
	fsnotify *fsnotify.Watcher
	updates  chan *Config
	done     chan struct{}
	stopped  chan struct{}
	isClosed bool
}

func NewConfigWatcher(path string) (*ConfigWatcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	fsWatch, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	// Watch the directory, editors often replace the file instead of writing it.
	if err := fsWatch.Add(filepath.Dir(abs)); err != nil {
		fsWatch.Close()
		return nil, err
	}

	cw := &ConfigWatcher{
		path:     abs,
		fsnotify: fsWatch,
		updates:  make(chan *Config, 1),
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}
	go cw.start()
	return cw, nil
}

// Updates delivers every successfully parsed revision of the file. Only the
// latest pending revision is kept.
func (cw *ConfigWatcher) Updates() <-chan *Config {
	return cw.updates
}

func (cw *ConfigWatcher) Close() error {
	if cw.isClosed {
		return errors.New("config watcher already closed")
	}
	cw.isClosed = true
	close(cw.done)
	<-cw.stopped
	return nil
}

func (cw *ConfigWatcher) start() {
	defer close(cw.stopped)
	for {
		select {
		case e, ok := <-cw.fsnotify.Events:
			if !ok {
				return
			}
			if filepath.Clean(e.Name) != cw.path {
				continue
			}
			if e.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				cw.reload()
			}

		case err, ok := <-cw.fsnotify.Errors:
			if !ok {
				return
			}
			LogError("config watcher: %s", err.Error())

		case <-cw.done:
			cw.fsnotify.Close()
			close(cw.updates)
			return
		}
	}
}

func (cw *ConfigWatcher) reload() {
	cfg, err := LoadConfig(cw.path)
	if err != nil {
		// Half-written files are common while saving; keep the previous config.
		LogWarn("config %s not reloaded: %s", cw.path, err.Error())
		return
	}
	// Drop a stale pending revision so the consumer always sees the newest one.
	select {
	case <-cw.updates:
	default:
	}
	select {
	case cw.updates <- cfg:
		LogInfo("config %s reloaded", cw.path)
	case <-cw.done:
	}
}
