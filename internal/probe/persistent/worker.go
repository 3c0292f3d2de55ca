package persistent

import (
	"WindowSpectra/internal/codec"
	"WindowSpectra/internal/config"
	"bufio"
	"encoding/gob"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"
)

// Worker persists received window envelopes to a single file from a background goroutine.
type Worker struct {
	envChan chan codec.Envelope
	file    *os.File
	wg      sync.WaitGroup
	mu      sync.RWMutex
	closed  bool
	dropped atomic.Uint64
}

// NewWorker creates the output file and starts the writer goroutine.
func NewWorker(cfg config.PersistenceConfig) (*Worker, error) {
	run, err := encoderFor(cfg.Encoding)
	if err != nil {
		return nil, err
	}

	// Ensure the directory exists
	if err := os.MkdirAll(cfg.Path, 0755); err != nil {
		return nil, fmt.Errorf("failed to create persistence directory: %w", err)
	}

	bufferSize := cfg.ChannelBufferSize
	if bufferSize <= 0 {
		bufferSize = 10000
	}

	file, err := createOutputFile(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}

	w := &Worker{
		envChan: make(chan codec.Envelope, bufferSize),
		file:    file,
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		run(file, w.envChan)
	}()

	log.Printf("Persistent worker started, encoding: %s, writing to: %s", cfg.Encoding, file.Name())
	return w, nil
}

// Path returns the file the worker writes to.
func (w *Worker) Path() string { return w.file.Name() }

func encoderFor(encoding string) (func(io.Writer, <-chan codec.Envelope), error) {
	switch encoding {
	case "gob":
		return runGob, nil
	case "text":
		return runText, nil
	default:
		return nil, fmt.Errorf("unknown persistence encoding '%s'", encoding)
	}
}

func createOutputFile(cfg config.PersistenceConfig) (*os.File, error) {
	ext := ".log"
	if cfg.Encoding == "gob" {
		ext = ".gob"
	}
	fileName := fmt.Sprintf("%s%s", time.Now().Format("2006-01-02_15-04-05.000"), ext)
	return os.OpenFile(filepath.Join(cfg.Path, fileName), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
}

func runGob(out io.Writer, envs <-chan codec.Envelope) {
	encoder := gob.NewEncoder(out)
	for env := range envs {
		if err := encoder.Encode(env); err != nil {
			log.Printf("PersistentWorker (gob): Error encoding window: %v", err)
		}
	}
}

func runText(out io.Writer, envs <-chan codec.Envelope) {
	writer := bufio.NewWriter(out)
	for env := range envs {
		rec := env.Record
		line := fmt.Sprintf("%s #%d [%.3f, %.3f) packets=%d bytes=%d flows=%d tcp=%.2f udp=%.2f icmp=%.2f pps=%.2f\n",
			env.SessionID, env.WindowID,
			rec.WindowStart, rec.WindowEnd,
			rec.PacketCount, rec.TotalBytes, rec.FlowCount,
			rec.TCPRatio, rec.UDPRatio, rec.ICMPRatio,
			rec.PacketsPerSec,
		)
		if _, err := writer.WriteString(line); err != nil {
			log.Printf("PersistentWorker (text): Error writing window: %v", err)
		}
	}
	writer.Flush()
}

// ReadGobFile decodes every envelope from a file written with the gob encoding.
func ReadGobFile(path string) ([]codec.Envelope, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	decoder := gob.NewDecoder(file)
	var envs []codec.Envelope
	for {
		var env codec.Envelope
		if err := decoder.Decode(&env); err != nil {
			if err == io.EOF {
				return envs, nil
			}
			return envs, fmt.Errorf("failed to decode envelope %d: %w", len(envs), err)
		}
		envs = append(envs, env)
	}
}

// Enqueue sends an envelope to the worker. The envelope is dropped when the
// channel is full or the worker has stopped.
func (w *Worker) Enqueue(env codec.Envelope) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		w.dropped.Add(1)
		return
	}
	select {
	case w.envChan <- env:
	default:
		w.dropped.Add(1)
		log.Println("PersistentWorker: Channel is full, dropping window.")
	}
}

// Stop drains pending envelopes, closes the file and reports how many were dropped.
func (w *Worker) Stop() (uint64, error) {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return w.dropped.Load(), nil
	}
	w.closed = true
	close(w.envChan)
	w.mu.Unlock()

	w.wg.Wait()
	err := w.file.Close()
	log.Println("Persistent worker stopped and file closed.")
	return w.dropped.Load(), err
}
