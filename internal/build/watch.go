package build

import (
	"context"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"jsoncv/pkg/logger"
)

const DefaultDebounce = 500 * time.Millisecond

// Watcher calls OnChange once a burst of changes to *.json files in Dir has
// settled for Debounce.
type Watcher struct {
	Dir      string
	Debounce time.Duration
	OnChange func(ctx context.Context)
}

// Run blocks until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()
	if err := fw.Add(w.Dir); err != nil {
		return err
	}
	logger.Sugar.Infof("Watching %s for resume changes", w.Dir)

	debounce := w.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	timer := time.NewTimer(debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !relevant(event) {
				continue
			}
			logger.Sugar.Debugf("Resume change: %s %s", event.Op, event.Name)
			timer.Reset(debounce)
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			logger.Sugar.Errorf("Watcher error: %v", err)
		case <-timer.C:
			w.OnChange(ctx)
		}
	}
}

func relevant(event fsnotify.Event) bool {
	if !strings.HasSuffix(event.Name, ".json") {
		return false
	}
	return event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0
}
