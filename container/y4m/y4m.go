/*
DESCRIPTION
  y4m.go provides a demuxer for the YUV4MPEG2 container; header parsing
  for geometry and frame rate, and per-frame reads of the raw 4:2:0
  planes into a reusable picture.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>
  Trek Hopton <trek@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package y4m provides a demuxer for the YUV4MPEG2 ("Y4M") container.
// See https://wiki.multimedia.cx/index.php/YUV4MPEG2 for details of
// the format.
package y4m

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/ausocean/fovid/yuv"
)

// headerRE matches the stream header line. Only the width, height and
// frame rate fields are significant to the pipeline; interlacing,
// aspect and colorspace parameters are accepted and ignored.
var headerRE = regexp.MustCompile(`^YUV4MPEG2 W([0-9]+) H([0-9]+) F([0-9]+):([0-9]+)`)

// frameMarker begins every frame header line.
const frameMarker = "FRAME"

// ParseHeader parses a Y4M stream header line, returning the video
// geometry and the frame rate as num/den.
func ParseHeader(hdr string) (w, h int, fps float64, err error) {
	m := headerRE.FindStringSubmatch(hdr)
	if m == nil {
		return 0, 0, 0, fmt.Errorf("invalid Y4M header: %q", hdr)
	}

	w, err = strconv.Atoi(m[1])
	if err != nil {
		return 0, 0, 0, fmt.Errorf("invalid Y4M width: %w", err)
	}
	h, err = strconv.Atoi(m[2])
	if err != nil {
		return 0, 0, 0, fmt.Errorf("invalid Y4M height: %w", err)
	}
	num, err := strconv.Atoi(m[3])
	if err != nil {
		return 0, 0, 0, fmt.Errorf("invalid Y4M frame rate numerator: %w", err)
	}
	den, err := strconv.Atoi(m[4])
	if err != nil {
		return 0, 0, 0, fmt.Errorf("invalid Y4M frame rate denominator: %w", err)
	}
	if num <= 0 || den <= 0 {
		return 0, 0, 0, fmt.Errorf("invalid Y4M frame rate: %d:%d", num, den)
	}

	return w, h, float64(num) / float64(den), nil
}

// Reader reads frames from a Y4M stream. The stream header is consumed
// on construction so that the first ReadFrame call reads the first
// frame.
type Reader struct {
	r        *bufio.Reader
	closer   io.Closer
	width    int
	height   int
	fps      float64
	frameCnt int
}

// NewReader returns a Reader for the Y4M stream in r, consuming and
// parsing the stream header.
func NewReader(r io.Reader) (*Reader, error) {
	br := bufio.NewReaderSize(r, 1<<16)
	hdr, err := br.ReadString('\n')
	if err != nil {
		return nil, fmt.Errorf("could not read Y4M header: %w", err)
	}
	w, h, fps, err := ParseHeader(hdr)
	if err != nil {
		return nil, err
	}
	return &Reader{r: br, width: w, height: h, fps: fps}, nil
}

// Open opens the Y4M file at path and returns a Reader for it.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("could not open video: %w", err)
	}
	r, err := NewReader(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	r.closer = f
	return r, nil
}

// Width returns the stream width in pixels.
func (r *Reader) Width() int { return r.width }

// Height returns the stream height in pixels.
func (r *Reader) Height() int { return r.height }

// FPS returns the stream frame rate.
func (r *Reader) FPS() float64 { return r.fps }

// FrameCount returns the number of frames read so far.
func (r *Reader) FrameCount() int { return r.frameCnt }

// NewPicture returns a picture matching the stream geometry.
func (r *Reader) NewPicture() (*yuv.Picture, error) {
	return yuv.NewPicture(r.width, r.height)
}

// ReadFrame reads the next frame into p. io.EOF is returned at the end
// of the stream.
func (r *Reader) ReadFrame(p *yuv.Picture) error {
	if p.Width() != r.width || p.Height() != r.height {
		return fmt.Errorf("picture is %dx%d, stream is %dx%d", p.Width(), p.Height(), r.width, r.height)
	}

	hdr, err := r.r.ReadString('\n')
	if err != nil {
		if err == io.EOF && hdr == "" {
			return io.EOF
		}
		return fmt.Errorf("could not read frame header: %w", err)
	}
	if !strings.HasPrefix(hdr, frameMarker) {
		return fmt.Errorf("bad frame marker: %q", hdr)
	}

	err = p.ReadFrom(r.r)
	if err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return io.ErrUnexpectedEOF
		}
		return fmt.Errorf("could not read frame planes: %w", err)
	}
	r.frameCnt++
	return nil
}

// Close closes the underlying file if the Reader owns one.
func (r *Reader) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer.Close()
}
