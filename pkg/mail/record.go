// SPDX-FileCopyrightText: 2025 Deutsche Telekom AG
//
// SPDX-License-Identifier: Apache-2.0

package mail

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	// entryTimeLayout renders "3:04:05 PM Monday, January 2, 2006".
	entryTimeLayout = "3:04:05 PM Monday, January 2, 2006"
	// fileTimeLayout sorts lexically in time order.
	fileTimeLayout = "20060102T150405.000000000Z"
)

var separator = strings.Repeat("-", 114)

// Record is the outcome entry written after every send.
type Record struct {
	ID      string
	Time    time.Time
	Status  string
	From    string
	To      string
	Subject string
	Body    string
}

// Format renders the record as text. Subject and body are written verbatim.
func (r Record) Format() string {
	var b strings.Builder
	b.WriteString("Log Entry : ")
	b.WriteString(r.Time.Format(entryTimeLayout))
	b.WriteString("\n")
	fmt.Fprintf(&b, "Message Sent Status: %s\n", r.Status)
	fmt.Fprintf(&b, "From: %s\n", r.From)
	fmt.Fprintf(&b, "To: %s\n", r.To)
	fmt.Fprintf(&b, "Subject: %s\n", r.Subject)
	b.WriteString(r.Body)
	b.WriteString("\n")
	b.WriteString(separator)
	b.WriteString("\n")
	return b.String()
}

// Recorder persists outcome records. Errors are returned to the caller of
// Mailer.Send unchanged.
type Recorder interface {
	Record(rec Record) error
}

// FileRotation configures the append-only log file.
type FileRotation struct {
	// MaxSizeMB is the size at which the file is rotated. Zero means 100 MB.
	MaxSizeMB int
	// MaxBackups is the number of rotated files kept. Zero keeps all.
	MaxBackups int
	// MaxAgeDays removes rotated files older than this. Zero keeps all.
	MaxAgeDays int
	// Compress gzips rotated files.
	Compress bool
}

// FileRecorder appends records to a single log file and rotates it by size.
type FileRecorder struct {
	out *lumberjack.Logger
}

// NewFileRecorder creates a recorder appending to path. The file is opened
// lazily on the first record.
func NewFileRecorder(path string, rot FileRotation) *FileRecorder {
	return &FileRecorder{out: &lumberjack.Logger{
		Filename:   path,
		MaxSize:    rot.MaxSizeMB,
		MaxBackups: rot.MaxBackups,
		MaxAge:     rot.MaxAgeDays,
		Compress:   rot.Compress,
		LocalTime:  true,
	}}
}

// Record writes the entry in a single Write so concurrent senders never
// interleave.
func (r *FileRecorder) Record(rec Record) error {
	if _, err := io.WriteString(r.out, rec.Format()); err != nil {
		return fmt.Errorf("failed to append to log file %s: %w", r.out.Filename, err)
	}
	return nil
}

// Close releases the underlying file.
func (r *FileRecorder) Close() error {
	return r.out.Close()
}

// DirRecorder writes each record to a new file in a directory, named from a
// sortable UTC timestamp and the send ID.
type DirRecorder struct {
	dir string
}

// NewDirRecorder creates a per-send recorder. The directory must exist.
func NewDirRecorder(dir string) *DirRecorder {
	return &DirRecorder{dir: dir}
}

// Filename returns the file name used for rec.
func (r *DirRecorder) Filename(rec Record) string {
	id := rec.ID
	if id == "" {
		id = uuid.NewString()
	}
	return filepath.Join(r.dir, rec.Time.UTC().Format(fileTimeLayout)+"-"+id+".log")
}

func (r *DirRecorder) Record(rec Record) error {
	name := r.Filename(rec)
	f, err := os.OpenFile(name, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("failed to create log file: %w", err)
	}
	if _, err := io.WriteString(f, rec.Format()); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write log file %s: %w", name, err)
	}
	return f.Close()
}

// WriterRecorder writes records to any io.Writer, e.g. stdout.
type WriterRecorder struct {
	mu sync.Mutex
	w  io.Writer
}

func NewWriterRecorder(w io.Writer) *WriterRecorder {
	return &WriterRecorder{w: w}
}

func (r *WriterRecorder) Record(rec Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, err := io.WriteString(r.w, rec.Format())
	return err
}
