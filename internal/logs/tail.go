package logs

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

const pollInterval = 200 * time.Millisecond

// Request selects a slice of the log file. A negative Cursor asks for the
// last Limit complete lines; a non-negative Cursor resumes reading at that
// byte position. When Wait is positive and no new lines exist yet, Tail
// polls the file until a line shows up, the wait expires, or the context
// is done.
type Request struct {
	Cursor int64
	Limit  int
	Wait   time.Duration
}

// Page is one chunk of log lines plus the cursor to resume from. Only
// complete lines are returned; a trailing line still being written stays
// unread until its newline lands.
type Page struct {
	Lines  []string
	Cursor int64
}

// Tail reads the requested slice of the log at path. A missing file is not
// an error: it yields an empty page with cursor zero so a fresh daemon can
// be tailed before it writes anything.
func Tail(ctx context.Context, path string, req Request) (Page, error) {
	var (
		page Page
		err  error
	)
	if req.Cursor < 0 {
		page, err = lastLines(path, req.Limit)
	} else {
		page, err = readFrom(path, req.Cursor)
	}
	if err != nil || len(page.Lines) > 0 || req.Wait <= 0 {
		return page, err
	}
	return poll(ctx, path, page.Cursor, req.Wait)
}

// lastLines scans the whole file keeping at most limit trailing lines in
// memory, and reports the byte position after the last complete line.
func lastLines(path string, limit int) (Page, error) {
	var page Page

	file, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return page, nil
	}
	if err != nil {
		return page, fmt.Errorf("open log: %w", err)
	}
	defer file.Close()

	reader := bufio.NewReaderSize(file, 32*1024)
	var kept []string
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return page, fmt.Errorf("read log: %w", err)
		}
		page.Cursor += int64(len(line))
		if limit <= 0 {
			continue
		}
		kept = append(kept, strings.TrimSuffix(line, "\n"))
		if len(kept) > 2*limit {
			kept = append(kept[:0], kept[len(kept)-limit:]...)
		}
	}
	if len(kept) > limit {
		kept = kept[len(kept)-limit:]
	}
	page.Lines = kept
	return page, nil
}

// readFrom returns the complete lines between cursor and the end of the
// file. A cursor past the end means the file was truncated or rotated
// underneath us, so reading restarts at the top.
func readFrom(path string, cursor int64) (Page, error) {
	page := Page{Cursor: cursor}

	file, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		page.Cursor = 0
		return page, nil
	}
	if err != nil {
		return page, fmt.Errorf("open log: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return page, fmt.Errorf("stat log: %w", err)
	}
	if cursor > info.Size() {
		cursor = 0
		page.Cursor = 0
	}
	if _, err := file.Seek(cursor, io.SeekStart); err != nil {
		return page, fmt.Errorf("seek log: %w", err)
	}

	reader := bufio.NewReaderSize(file, 32*1024)
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				return page, nil
			}
			return page, fmt.Errorf("read log: %w", err)
		}
		page.Lines = append(page.Lines, strings.TrimSuffix(line, "\n"))
		page.Cursor += int64(len(line))
	}
}

func poll(ctx context.Context, path string, cursor int64, wait time.Duration) (Page, error) {
	timer := time.NewTimer(wait)
	defer timer.Stop()
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return Page{Cursor: cursor}, ctx.Err()
		case <-timer.C:
			return Page{Cursor: cursor}, nil
		case <-ticker.C:
			page, err := readFrom(path, cursor)
			if err != nil || len(page.Lines) > 0 {
				return page, err
			}
			cursor = page.Cursor
		}
	}
}
