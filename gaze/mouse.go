/*
DESCRIPTION
  mouse.go provides the mouse gaze backend; the window-system event
  loop is pumped and the latest pointer position becomes the next
  sample.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package gaze

import (
	"time"

	"github.com/veandco/go-sdl2/sdl"

	"github.com/ausocean/utils/logging"
)

// Mouse is a Source that substitutes the pointer position for gaze.
// It must be polled from the thread that owns the window system.
type Mouse struct {
	*sampler
}

// NewMouse returns a mouse gaze source. The windowing subsystem must
// already be initialized (the compositing client does this).
func NewMouse(l logging.Logger, geom Geometry, delay time.Duration) (*Mouse, error) {
	m := &Mouse{}
	m.sampler = newSampler(l, geom, delay, m.pollMouse)
	l.Debug("mouse gaze source ready", "delay", delay.String())
	return m, nil
}

func (m *Mouse) pollMouse() (int, int, bool) {
	sdl.PumpEvents()
	x, y, _ := sdl.GetMouseState()
	return int(x), int(y), true
}
