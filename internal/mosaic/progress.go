package mosaic

import (
	log "github.com/sirupsen/logrus"
)

// ProgressFunc is called after each grid cell is finished with the number of
// cells done so far and the total. It may be called from several goroutines
// at once.
type ProgressFunc func(done, total int)

// ProgressIgnore is a ProgressFunc that does nothing.
func ProgressIgnore(done, total int) {}

// LoggerProgressFunc returns a ProgressFunc that logs every step cells and
// once more when the last cell is done. A step <= 0 disables logging.
func LoggerProgressFunc(entry *log.Entry, step int) ProgressFunc {
	return func(done, total int) {
		if step <= 0 || total == 0 {
			return
		}
		if done%step != 0 && done != total {
			return
		}
		percent := float64(done) / float64(total) * 100.0
		entry.WithFields(log.Fields{
			"done":  done,
			"total": total,
		}).Infof("Progress: %d of %d cells (%.1f%%)", done, total, percent)
	}
}
