/*
DESCRIPTION
  senders.go provides the pool-buffered file senders the encoded
  streams are teed to; video.h264 for the background and, when
  two-stream, foreground.h264 for the foveal stream.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>
  Alan Noble <alan@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package fovid

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/ausocean/utils/logging"
	"github.com/ausocean/utils/pool"
)

// Sender pool buffer configuration.
const (
	poolStartElementSize = 10000 // Bytes.
	poolCapacity         = 5 << 20
	poolWriteTimeout     = 5 * time.Second
	poolReadTimeout      = 1 * time.Second
)

// nalSender decouples the encode routine from disk; writes land in a
// pool ring buffer and an output routine drains them to the file.
type nalSender struct {
	pool *pool.Buffer
	file *os.File
	log  logging.Logger
	done chan struct{}
	wg   sync.WaitGroup
}

// newNALSender returns a nalSender writing to the file at path,
// starting its output routine.
func newNALSender(l logging.Logger, path string) (*nalSender, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("could not create stream file: %w", err)
	}

	s := &nalSender{
		pool: pool.NewBuffer(poolStartElementSize, poolCapacity/poolStartElementSize, poolWriteTimeout),
		file: f,
		log:  l,
		done: make(chan struct{}),
	}
	s.wg.Add(1)
	go s.output()
	return s, nil
}

// output drains the pool buffer to the file until closed.
func (s *nalSender) output() {
	defer s.wg.Done()
	for {
		select {
		case <-s.done:
			s.log.Debug(pkg + "terminating sender output routine")
			return
		default:
			chunk, err := s.pool.Next(poolReadTimeout)
			switch err {
			case nil:
			case io.EOF, pool.ErrTimeout:
				continue
			default:
				s.log.Error(pkg+"unexpected pool error", "error", err.Error())
				continue
			}
			_, err = s.file.Write(chunk.Bytes())
			if err != nil {
				s.log.Error(pkg+"failed stream file write", "error", err.Error())
			}
			chunk.Close()
		}
	}
}

// Write implements io.Writer.
func (s *nalSender) Write(d []byte) (int, error) {
	n, err := s.pool.Write(d)
	if err != nil {
		s.log.Warning(pkg+"pool write error, dropping unit", "error", err.Error(), "len", len(d))
		return len(d), nil
	}
	s.pool.Flush()
	return n, nil
}

// Close implements io.Closer; the pool is drained before the file is
// closed.
func (s *nalSender) Close() error {
	close(s.done)
	s.wg.Wait()

	// Drain anything still buffered.
	for {
		chunk, err := s.pool.Next(10 * time.Millisecond)
		if err != nil {
			break
		}
		_, err = s.file.Write(chunk.Bytes())
		if err != nil {
			s.log.Error(pkg+"failed stream file write on close", "error", err.Error())
		}
		chunk.Close()
	}
	return s.file.Close()
}
