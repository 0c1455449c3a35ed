/*
DESCRIPTION
  asc.go provides parsing of SR Research ASC eye-trace exports; one
  sample per matching line, with non-sample lines skipped silently.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package asc provides parsing of SR Research's textual ASC eye-trace
// format. See http://download.sr-support.com/dispdoc/page25.html.
package asc

import (
	"bufio"
	"os"
	"regexp"
	"strconv"

	"github.com/pkg/errors"
)

// sampleRE matches a monocular sample line: time, x, y, pupil size,
// followed by the trailing dot fields. Event and message lines do not
// match and are skipped.
var sampleRE = regexp.MustCompile(`^\s*([0-9]+)\s+([0-9]+\.[0-9])\s+([0-9]+\.[0-9])\s+([0-9]+\.[0-9])\s+[.]+`)

// ErrNotSample indicates a line that is not an eye sample.
var ErrNotSample = errors.New("not an eye sample line")

// Sample is a single monocular eye sample.
type Sample struct {
	Time  uint32  // Tracker time of the sample (ms).
	X     float64 // Gaze x position (display px).
	Y     float64 // Gaze y position (display px).
	Pupil float64 // Pupil size.
}

// ParseSample parses a single ASC line into a Sample. ErrNotSample is
// returned for lines that are not samples.
func ParseSample(line string) (Sample, error) {
	m := sampleRE.FindStringSubmatch(line)
	if m == nil {
		return Sample{}, errors.Wrap(ErrNotSample, line)
	}

	t, err := strconv.ParseUint(m[1], 10, 32)
	if err != nil {
		return Sample{}, errors.Wrap(err, "bad sample time")
	}
	x, err := strconv.ParseFloat(m[2], 64)
	if err != nil {
		return Sample{}, errors.Wrap(err, "bad sample x")
	}
	y, err := strconv.ParseFloat(m[3], 64)
	if err != nil {
		return Sample{}, errors.Wrap(err, "bad sample y")
	}
	p, err := strconv.ParseFloat(m[4], 64)
	if err != nil {
		return Sample{}, errors.Wrap(err, "bad sample pupil size")
	}

	return Sample{Time: uint32(t), X: x, Y: y, Pupil: p}, nil
}

// ParseFile parses the ASC file at path, returning the samples of all
// matching lines. Non-matching lines are skipped silently.
func ParseFile(path string) ([]Sample, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "could not open trace")
	}
	defer f.Close()

	var samples []Sample
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		s, err := ParseSample(sc.Text())
		if err != nil {
			continue
		}
		samples = append(samples, s)
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrap(err, "could not read trace")
	}
	return samples, nil
}
