package system

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/ivlev/cloudtiles/internal/logging"
)

// InitResourceLimits raises the open file limit.
func InitResourceLimits() {
	var rLimit syscall.Rlimit
	err := syscall.Getrlimit(syscall.RLIMIT_NOFILE, &rLimit)
	if err != nil {
		logging.Logger.Warn("cannot read open file limit", zap.Error(err))
		return
	}

	rLimit.Cur = 2048
	if rLimit.Cur > rLimit.Max {
		rLimit.Cur = rLimit.Max
	}

	err = syscall.Setrlimit(syscall.RLIMIT_NOFILE, &rLimit)
	if err != nil {
		logging.Logger.Warn("cannot raise open file limit", zap.Error(err))
	} else {
		logging.Logger.Debug("open file limit raised", zap.Uint64("limit", uint64(rLimit.Cur)))
	}
}

// FindLatest returns the most recently modified entry of dir whose name ends
// with suffix. Directories match too when dirs is set.
func FindLatest(dir, suffix string, dirs bool) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}

	var latestFile string
	var latestTime time.Time

	for _, e := range entries {
		if e.IsDir() != dirs || !strings.HasSuffix(strings.ToLower(e.Name()), suffix) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if latestFile == "" || info.ModTime().After(latestTime) {
			latestTime = info.ModTime()
			latestFile = filepath.Join(dir, e.Name())
		}
	}

	if latestFile == "" {
		return "", fmt.Errorf("no %q entries found in %s", suffix, dir)
	}
	return latestFile, nil
}
