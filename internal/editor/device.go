package editor

import (
	"bytes"
	"context"
	"errors"
	"sync"
)

// Recording is the payload captured by a Stream.
type Recording struct {
	MIMEType string
	Data     []byte
}

// Stream is an open capture. Stop ends the capture, releases the device
// and returns what was recorded. Cancel releases without a result. Both
// are safe to call more than once.
type Stream interface {
	Stop() (Recording, error)
	Cancel()
}

// Device grants exclusive capture streams. Start may be denied.
type Device interface {
	Start(ctx context.Context) (Stream, error)
}

// ErrDeviceBusy is returned by ChunkDevice.Start while another stream is open.
var ErrDeviceBusy = errors.New("device busy")

// ChunkDevice is a Device fed by a client that uploads encoded audio in
// chunks. Only one stream may be open at a time.
type ChunkDevice struct {
	MIMEType string
	// MaxBytes bounds one recording; zero means unbounded.
	MaxBytes int

	mu   sync.Mutex
	busy bool
}

// NewChunkDevice returns a device producing recordings of mimeType.
func NewChunkDevice(mimeType string, maxBytes int) *ChunkDevice {
	return &ChunkDevice{MIMEType: mimeType, MaxBytes: maxBytes}
}

// Start implements Device.
func (d *ChunkDevice) Start(ctx context.Context) (Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.busy {
		return nil, ErrDeviceBusy
	}
	d.busy = true
	return &chunkStream{dev: d}, nil
}

func (d *ChunkDevice) release() {
	d.mu.Lock()
	d.busy = false
	d.mu.Unlock()
}

// ErrRecordingTooLarge is returned when a chunk would exceed MaxBytes.
var ErrRecordingTooLarge = errors.New("recording too large")

type chunkStream struct {
	dev *ChunkDevice

	mu   sync.Mutex
	buf  bytes.Buffer
	done bool
}

// Write appends a chunk of encoded audio.
func (s *chunkStream) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done {
		return 0, errors.New("stream closed")
	}
	if limit := s.dev.MaxBytes; limit > 0 && s.buf.Len()+len(p) > limit {
		return 0, ErrRecordingTooLarge
	}
	return s.buf.Write(p)
}

func (s *chunkStream) Stop() (Recording, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done {
		return Recording{}, errors.New("stream closed")
	}
	s.done = true
	s.dev.release()
	return Recording{MIMEType: s.dev.MIMEType, Data: bytes.Clone(s.buf.Bytes())}, nil
}

func (s *chunkStream) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done {
		return
	}
	s.done = true
	s.dev.release()
}
