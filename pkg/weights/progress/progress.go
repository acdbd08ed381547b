// Package progress writes weight download progress as JSON lines.
package progress

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"
)

// MinBytesForUpdate is the minimum number of bytes transferred between two
// progress lines for the same file.
const MinBytesForUpdate = 1024 * 1024 // 1MB

// Message is a single progress line.
type Message struct {
	Type         string `json:"type"` // "progress", "success", "warning" or "error"
	Message      string `json:"message,omitempty"`
	Architecture string `json:"architecture,omitempty"`
	File         string `json:"file,omitempty"`
	Total        uint64 `json:"total"`
	Current      uint64 `json:"current"`
}

// WriteProgress writes a progress line for one file.
func WriteProgress(w io.Writer, arch, file string, total, current uint64) error {
	return write(w, Message{
		Type:         "progress",
		Architecture: arch,
		File:         file,
		Total:        total,
		Current:      current,
	})
}

// WriteSuccess writes a success message.
func WriteSuccess(w io.Writer, arch, message string) error {
	return write(w, Message{Type: "success", Architecture: arch, Message: message})
}

// WriteWarning writes a warning message.
func WriteWarning(w io.Writer, arch, message string) error {
	return write(w, Message{Type: "warning", Architecture: arch, Message: message})
}

// WriteError writes an error message.
func WriteError(w io.Writer, arch, message string) error {
	return write(w, Message{Type: "error", Architecture: arch, Message: message})
}

func write(w io.Writer, msg Message) error {
	if w == nil {
		return nil
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "%s\n", data)
	return err
}

// syncWriter serialises writes from concurrent downloads.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (sw *syncWriter) Write(p []byte) (int, error) {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	return sw.w.Write(p)
}

// Synchronized wraps w so that concurrent writers never interleave lines.
// A nil w stays nil.
func Synchronized(w io.Writer) io.Writer {
	if w == nil {
		return nil
	}
	if _, ok := w.(*syncWriter); ok {
		return w
	}
	return &syncWriter{w: w}
}

// Reader reports how much of a file has been read.
type Reader struct {
	reader       io.Reader
	out          io.Writer
	arch         string
	file         string
	total        uint64
	current      uint64
	lastReported uint64
}

// NewReader wraps r so that reading from it writes progress lines to out.
// The initial offset accounts for bytes already on disk from an interrupted
// download. With a nil out, r is returned as is.
func NewReader(r io.Reader, out io.Writer, arch, file string, total, offset uint64) io.Reader {
	if out == nil {
		return r
	}
	return &Reader{
		reader:       r,
		out:          out,
		arch:         arch,
		file:         file,
		total:        total,
		current:      offset,
		lastReported: offset,
	}
}

func (pr *Reader) Read(p []byte) (int, error) {
	n, err := pr.reader.Read(p)
	if n > 0 {
		pr.current += uint64(n)
		if pr.current-pr.lastReported >= MinBytesForUpdate || pr.current == pr.total {
			_ = WriteProgress(pr.out, pr.arch, pr.file, pr.total, pr.current)
			pr.lastReported = pr.current
		}
	}
	return n, err
}
