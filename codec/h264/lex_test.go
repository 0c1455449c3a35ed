/*
DESCRIPTION
  lex_test.go provides testing for the H.264 access unit lexer.

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

package h264

import (
	"bytes"
	"io"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// unitWriter collects each Write as a separate unit.
type unitWriter struct {
	units [][]byte
}

func (w *unitWriter) Write(p []byte) (int, error) {
	c := make([]byte, len(p))
	copy(c, p)
	w.units = append(w.units, c)
	return len(p), nil
}

func nal(sc4 bool, typ byte, payload ...byte) []byte {
	var b []byte
	if sc4 {
		b = append(b, 0x00, 0x00, 0x00, 0x01)
	} else {
		b = append(b, 0x00, 0x00, 0x01)
	}
	b = append(b, 0x60|typ) // nal_ref_idc set, given type.
	return append(b, payload...)
}

func TestLex(t *testing.T) {
	sps := nal(true, 7, 0xde, 0xad)
	pps := nal(true, 8, 0xbe)
	idr := nal(false, 5, 0x11, 0x22, 0x33)
	p1 := nal(true, 1, 0x44)
	p2 := nal(false, 1, 0x55, 0x66)

	var in bytes.Buffer
	for _, n := range [][]byte{sps, pps, idr, p1, p2} {
		in.Write(n)
	}

	var out unitWriter
	err := Lex(&out, &in, 0)
	if err != io.EOF {
		t.Fatalf("Lex returned %v, want io.EOF", err)
	}

	want := [][]byte{
		bytes.Join([][]byte{sps, pps, idr}, nil),
		p1,
		p2,
	}
	if diff := cmp.Diff(want, out.units); diff != "" {
		t.Errorf("unexpected access units (-want +got):\n%s", diff)
	}
}

func TestLexEmpty(t *testing.T) {
	var out unitWriter
	err := Lex(&out, bytes.NewReader(nil), 0)
	if err != io.EOF {
		t.Fatalf("Lex returned %v, want io.EOF", err)
	}
	if len(out.units) != 0 {
		t.Errorf("got %d units from empty stream", len(out.units))
	}
}

func TestLexTruncatedStartCode(t *testing.T) {
	in := append(nal(true, 1, 0x77), 0x00, 0x00, 0x00, 0x01)
	var out unitWriter
	err := Lex(&out, bytes.NewReader(in), 0)
	if err != io.ErrUnexpectedEOF {
		t.Fatalf("Lex returned %v, want io.ErrUnexpectedEOF", err)
	}
}
