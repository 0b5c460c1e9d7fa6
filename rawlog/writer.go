// The rawlog package writes undecoded frames to a daily log.  There is a
// separate log file each day with a datestamped name, for example for the
// 31st January 2020 the log file is "data.2020-01-31.rtcm3".  Some of the
// organisations that process RTCM data insist that each file runs over no
// more than 24 hours.
//
// On the first write of the day the writer scans the log directory and pushes
// any files produced on other days into the "data.ready" subdirectory,
// creating it if necessary.  It's assumed that some other process watches
// that directory and does something sensible with a new file, for example
// converts it to RINEX format.
//
// The host's clock may disagree slightly with the receiver about exactly when
// midnight occurs, so the writer drops anything written during a few seconds
// either side of it.
//
// Dates and times are in the clock's timezone, normally local time.
package rawlog

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// ReadyDirectory is the subdirectory of the log directory that receives the
// logs of previous days.
const ReadyDirectory = "data.ready"

// Start logging at 00:00:05.
const startOfDayHour = 0
const startOfDayMinute = 0
const startOfDaySecond = 5

// Stop logging at 23:59:55.
const endOfDayHour = 23
const endOfDayMinute = 59
const endOfDaySecond = 55

// This is a compile-time check that Writer implements io.WriteCloser.
var _ io.WriteCloser = (*Writer)(nil)

// Writer is an io.WriteCloser that appends to today's log file.
type Writer struct {
	clock     Clock // This clock may be a fake during testing.
	directory string
	logger    *slog.Logger

	mutex    sync.Mutex
	file     *os.File
	fileName string // The name of the open file, empty if none.
}

// New creates a Writer that logs into the given directory.
func New(clock Clock, directory string, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Writer{clock: clock, directory: directory, logger: logger}
}

// FileName gets the name of the log file for the day of the given time.
func FileName(now time.Time) string {
	return fmt.Sprintf("data.%04d-%02d-%02d.rtcm3",
		now.Year(), int(now.Month()), now.Day())
}

// Write appends buf to today's log file.  During the quiet period around
// midnight the data are dropped, but Write still reports success.
func (w *Writer) Write(buf []byte) (int, error) {
	now := w.clock.Now()
	if !shouldBeLogging(now) {
		return len(buf), nil
	}

	w.mutex.Lock()
	defer w.mutex.Unlock()

	if name := FileName(now); name != w.fileName {
		// First write or first write of a new day.
		if err := w.rollOver(name); err != nil {
			return 0, err
		}
	}

	return w.file.Write(buf)
}

// Close closes the current log file.  A later Write opens it again.
func (w *Writer) Close() error {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	w.fileName = ""
	return err
}

// rollOver closes the current log file, pushes the old logs and opens the
// named log file.  The caller holds the mutex.
func (w *Writer) rollOver(name string) error {
	if w.file != nil {
		if err := w.file.Close(); err != nil {
			w.logger.Warn("cannot close log file", "file", w.fileName, "error", err)
		}
		w.file = nil
		w.fileName = ""
	}

	if err := w.pushOldLogs(name); err != nil {
		return err
	}

	file, err := os.OpenFile(filepath.Join(w.directory, name),
		os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("rawlog: cannot open log file - %w", err)
	}
	w.file = file
	w.fileName = name
	return nil
}

// pushOldLogs moves every plain file in the log directory except today's
// log into the ready directory.
func (w *Writer) pushOldLogs(todaysLog string) error {
	files, err := os.ReadDir(w.directory)
	if err != nil {
		return fmt.Errorf("rawlog: cannot open logging directory %s - %w", w.directory, err)
	}

	readyDirectory := filepath.Join(w.directory, ReadyDirectory)
	for _, fileInfo := range files {
		if fileInfo.Name() == todaysLog || fileInfo.IsDir() {
			continue
		}

		if err := os.MkdirAll(readyDirectory, os.ModePerm); err != nil {
			return fmt.Errorf("rawlog: cannot create directory %s - %w", readyDirectory, err)
		}
		err := os.Rename(filepath.Join(w.directory, fileInfo.Name()),
			filepath.Join(readyDirectory, fileInfo.Name()))
		if err != nil {
			w.logger.Warn("failed to push old log", "file", fileInfo.Name(), "error", err)
			continue
		}
		w.logger.Info("pushed old log", "file", fileInfo.Name())
	}

	return nil
}

// shouldBeLogging returns true if the given time is between the start of
// day and the end of day.  At exactly start of day and at exactly end of day
// it returns false.
func shouldBeLogging(now time.Time) bool {
	location := now.Location()
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(),
		startOfDayHour, startOfDayMinute, startOfDaySecond, 0, location)
	endOfDay := time.Date(now.Year(), now.Month(), now.Day(),
		endOfDayHour, endOfDayMinute, endOfDaySecond, 0, location)
	return startOfDay.Before(now) && endOfDay.After(now)
}
