package reporter

import (
	"context"
	"encoding/csv"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"
)

// StartSNMPLogger periodically appends a CSV row of running counters to
// path, formatted the way the teacher's std.SnmpLogger names its rotating
// log files (path's basename is treated as a time.Format layout so a new
// file is opened per period if the caller asks for one, e.g. "stats-
// 2006-01-02.csv"). It returns once ctx is cancelled.
func StartSNMPLogger(ctx context.Context, r *FileReporter, path string, period time.Duration) {
	if path == "" || period <= 0 {
		return
	}
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := appendSNMPRow(r, path); err != nil {
				log.Println(err)
			}
		}
	}
}

func appendSNMPRow(r *FileReporter, path string) error {
	dir, name := filepath.Split(path)
	fullPath := dir + time.Now().Format(name)
	f, err := os.OpenFile(fullPath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()
	if stat, err := f.Stat(); err == nil && stat.Size() == 0 {
		if err := w.Write([]string{"Unix", "PCnt", "CCnt", "DCnt", "RCnt", "Phase"}); err != nil {
			return err
		}
	}
	return w.Write([]string{
		fmt.Sprint(time.Now().Unix()),
		fmt.Sprint(r.pCount.Load()),
		fmt.Sprint(r.cCount.Load()),
		fmt.Sprint(r.dCount.Load()),
		fmt.Sprint(r.rCount.Load()),
		r.currentPhase(),
	})
}
