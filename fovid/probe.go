/*
DESCRIPTION
  probe.go provides the serial-attached latency probe; the artificial
  saccade generator is fired with a single byte and reports the
  microseconds elapsed from trigger to photodiode threshold.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>

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
	"strconv"
	"strings"
	"time"

	"go.bug.st/serial"

	"github.com/ausocean/utils/logging"
)

// Probe line protocol constants: 115200 8N1 no flow control by
// default, 100 ms read timeout, single byte trigger.
const (
	probeGoCmd       = 'g'
	probeReadTimeout = 100 * time.Millisecond
	probeBootDelay   = 3 * time.Second
	probeReadBuf     = 32
)

// Probe is an exclusive handle on the saccade generator's serial port.
type Probe struct {
	port        serial.Port
	log         logging.Logger
	triggeredAt time.Time
}

// NewProbe opens the probe device. The device resets on open via the
// DTR line, so the open blocks for a boot delay before the port is
// usable.
func NewProbe(l logging.Logger, dev string, baud int) (*Probe, error) {
	mode := &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(dev, mode)
	if err != nil {
		return nil, fmt.Errorf("could not open probe port: %w", err)
	}
	err = port.SetReadTimeout(probeReadTimeout)
	if err != nil {
		port.Close()
		return nil, fmt.Errorf("could not set probe read timeout: %w", err)
	}

	time.Sleep(probeBootDelay)

	port.ResetInputBuffer()
	port.ResetOutputBuffer()

	l.Info(pkg+"probe ready", "device", dev, "baud", baud)
	return &Probe{port: port, log: l}, nil
}

// Trigger fires the external stimulus and records the instant.
func (p *Probe) Trigger() error {
	p.triggeredAt = time.Now()
	_, err := p.port.Write([]byte{probeGoCmd})
	if err != nil {
		return fmt.Errorf("could not trigger probe: %w", err)
	}
	p.log.Debug(pkg + "probe triggered")
	return nil
}

// TriggeredAt returns the instant of the last trigger.
func (p *Probe) TriggeredAt() time.Time { return p.triggeredAt }

// Read collects the probe's measurement; an ASCII decimal integer of
// microseconds. Reads are bounded by the port timeout; an empty read
// after the timeout is an error for the caller to log and skip.
func (p *Probe) Read() (int64, error) {
	buf := make([]byte, probeReadBuf)
	var s strings.Builder

	for {
		n, err := p.port.Read(buf)
		if err != nil {
			return 0, fmt.Errorf("could not read probe measurement: %w", err)
		}
		if n == 0 {
			// Port timeout.
			break
		}
		s.Write(buf[:n])
		if strings.ContainsAny(s.String(), "\r\n") {
			break
		}
	}

	text := strings.TrimSpace(strings.Trim(s.String(), "\x00"))
	if text == "" {
		return 0, fmt.Errorf("no response from probe within timeout")
	}
	us, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("bad probe measurement %q: %w", text, err)
	}
	return us, nil
}

// Close releases the serial port.
func (p *Probe) Close() error { return p.port.Close() }
