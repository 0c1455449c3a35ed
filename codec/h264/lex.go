/*
DESCRIPTION
  lex.go provides a lexer to lex an H.264 Annex-B bytestream into
  access units; one write to the destination per encoded frame.

AUTHORS
  Dan Kortschak <dan@ausocean.org>
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package h264 provides lexing of raw H.264 Annex-B bytestreams into
// access units, used to frame the output pipes of the encoder handles
// and the byte streams recorded to disk.
package h264

import (
	"bufio"
	"io"
	"time"
)

// NAL unit type codes of interest, per ITU-T H.264 table 7-1.
const (
	nalNonIDR = 1
	nalIDR    = 5
)

var noDelay = make(chan time.Time)

func init() {
	close(noDelay)
}

// Lex lexes the H.264 Annex-B stream read from src into separate
// writes to dst, with successive writes performed not earlier than the
// specified delay apart.
//
// A write is one access unit: all NAL units up to and including a coded
// slice (IDR or non-IDR), so parameter sets and SEI emitted ahead of a
// slice travel with it. Start-code prefixes are preserved. dst must not
// retain the slice passed to Write beyond the call.
//
// io.EOF is returned at the clean end of the stream, after any
// buffered final access unit has been written out.
func Lex(dst io.Writer, src io.Reader, delay time.Duration) error {
	var tick <-chan time.Time
	if delay == 0 {
		tick = noDelay
	} else {
		ticker := time.NewTicker(delay)
		defer ticker.Stop()
		tick = ticker.C
	}

	br := bufio.NewReaderSize(src, 32<<10)

	var (
		buf      = make([]byte, 0, 8<<10)
		zeros    int
		hasSlice bool
	)

	for {
		b, err := br.ReadByte()
		if err != nil {
			if err != io.EOF {
				return err
			}
			if len(buf) != 0 {
				<-tick
				if _, err := dst.Write(buf); err != nil {
					return err
				}
			}
			return io.EOF
		}
		buf = append(buf, b)

		if b == 0x00 {
			zeros++
			continue
		}
		if b != 0x01 || zeros < 2 {
			zeros = 0
			continue
		}

		// A start code just completed at the end of buf. If the
		// buffered unit already holds a coded slice, everything before
		// this start code is a complete access unit.
		scLen := zeros + 1
		if scLen > 4 {
			scLen = 4
		}
		zeros = 0

		if hasSlice && len(buf) > scLen {
			<-tick
			if _, err := dst.Write(buf[:len(buf)-scLen]); err != nil {
				return err
			}
			next := make([]byte, scLen, 8<<10)
			copy(next, buf[len(buf)-scLen:])
			buf = next
			hasSlice = false
		}

		// The byte following a start code carries the NAL unit type.
		b, err = br.ReadByte()
		if err != nil {
			if err != io.EOF {
				return err
			}
			return io.ErrUnexpectedEOF
		}
		buf = append(buf, b)
		if t := b & 0x1f; t == nalNonIDR || t == nalIDR {
			hasSlice = true
		}
	}
}
