/*
DESCRIPTION
  client.go provides the compositing client; both streams are decoded,
  the background is filtered and stretched over the video rectangle,
  and the foreground patch is alpha-blended at the gaze position with
  the precomputed Gaussian mask. Presentation requests immediate
  vsync-less swaps for minimum added latency.

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

// Package client provides the decoding and compositing video client.
package client

import (
	"fmt"

	"github.com/veandco/go-sdl2/sdl"

	"github.com/ausocean/fovid/codec/ffdec"
	"github.com/ausocean/fovid/encoder"
	"github.com/ausocean/fovid/filter"
	"github.com/ausocean/fovid/fovid/config"
	"github.com/ausocean/fovid/gaze"
	"github.com/ausocean/fovid/yuv"
	"github.com/ausocean/utils/logging"
)

// To indicate package when logging.
const pkg = "client: "

// Client owns the window, the textures, the two decoder handles and
// the post-decode filter chain. It must be driven from the thread that
// owns the window system; sdl requires its calls on the main thread.
type Client struct {
	log  logging.Logger
	geom gaze.Geometry

	window   *sdl.Window
	renderer *sdl.Renderer
	bgTex    *sdl.Texture
	fgTex    *sdl.Texture

	bgDec   *ffdec.Decoder
	fgDec   *ffdec.Decoder
	filters filter.Chain

	mask  []byte
	rgba  []byte
	fovea int

	haveFG bool
	fgGaze gaze.Sample

	stats Stats
}

// New returns a Client for a source video of (vidW, vidH) configured
// from cfg. The windowing subsystem is initialized here; it is a
// process-wide singleton torn down by Close.
func New(l logging.Logger, cfg config.Config, vidW, vidH int) (*Client, error) {
	fovea, err := encoder.FoveaSize(int(cfg.Fovea), vidH)
	if err != nil {
		return nil, err
	}

	err = sdl.Init(sdl.INIT_VIDEO)
	if err != nil {
		return nil, fmt.Errorf("could not init windowing: %w", err)
	}

	// High quality upscaling for the stretched background.
	sdl.SetHint(sdl.HINT_RENDER_SCALE_QUALITY, "best")

	window, err := sdl.CreateWindow("fovid", sdl.WINDOWPOS_CENTERED, sdl.WINDOWPOS_CENTERED,
		int32(vidW), int32(vidH), sdl.WINDOW_FULLSCREEN_DESKTOP)
	if err != nil {
		sdl.Quit()
		return nil, fmt.Errorf("could not create window: %w", err)
	}

	renderer, err := sdl.CreateRenderer(window, -1, sdl.RENDERER_ACCELERATED|sdl.RENDERER_TARGETTEXTURE)
	if err != nil {
		window.Destroy()
		sdl.Quit()
		return nil, fmt.Errorf("could not create renderer: %w", err)
	}

	// Immediate updates; waiting on vsync only adds latency.
	err = sdl.GLSetSwapInterval(0)
	if err != nil {
		l.Warning(pkg+"could not disable vsync", "error", err.Error())
	}

	dispW, dispH, err := displayBounds()
	if err != nil {
		renderer.Destroy()
		window.Destroy()
		sdl.Quit()
		return nil, err
	}

	c := &Client{
		log:   l,
		geom:  gaze.NewGeometry(dispW, dispH, vidW, vidH),
		window:   window,
		renderer: renderer,
		mask:  AlphaMask(fovea),
		rgba:  make([]byte, 4*fovea*fovea),
		fovea: fovea,
		stats: newStats(),
	}

	c.bgTex, err = renderer.CreateTexture(sdl.PIXELFORMAT_IYUV, sdl.TEXTUREACCESS_STREAMING,
		int32(cfg.BGWidth), int32(cfg.BGHeight))
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("could not create background texture: %w", err)
	}
	c.fgTex, err = renderer.CreateTexture(sdl.PIXELFORMAT_ABGR8888, sdl.TEXTUREACCESS_STREAMING,
		int32(fovea), int32(fovea))
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("could not create foreground texture: %w", err)
	}
	err = c.fgTex.SetBlendMode(sdl.BLENDMODE_BLEND)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("could not enable foreground blending: %w", err)
	}

	c.bgDec, err = ffdec.New(l, int(cfg.BGWidth), int(cfg.BGHeight))
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("could not create background decoder: %w", err)
	}
	c.fgDec, err = ffdec.New(l, fovea, fovea)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("could not create foreground decoder: %w", err)
	}
	err = c.bgDec.Start()
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("could not start background decoder: %w", err)
	}
	err = c.fgDec.Start()
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("could not start foreground decoder: %w", err)
	}

	c.filters, err = filter.Parse(cfg.Filter)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("could not parse filter chain: %w", err)
	}

	l.Info(pkg+"client ready", "display", fmt.Sprintf("%dx%d", dispW, dispH),
		"video", fmt.Sprintf("%dx%d", vidW, vidH), "fovea", fovea)
	return c, nil
}

func displayBounds() (int, int, error) {
	r, err := sdl.GetDisplayBounds(0)
	if err != nil {
		return 0, 0, fmt.Errorf("could not read display bounds: %w", err)
	}
	return int(r.W), int(r.H), nil
}

// Geometry returns the display/video mapping in use.
func (c *Client) Geometry() gaze.Geometry { return c.geom }

// Fovea returns the foreground patch side length in pixels.
func (c *Client) Fovea() int { return c.fovea }

// Stats returns a copy of the running session statistics.
func (c *Client) Stats() Stats { return c.stats }

// DisplayFrame decodes and displays one encoded frame pair. Either
// input may be nil; with both absent the call is a no-op. A decoder
// that has not yet produced output for a unit simply leaves the
// previous texture in place.
func (c *Client) DisplayFrame(fg *encoder.FGUnit, bg []byte) error {
	if fg == nil && bg == nil {
		return nil
	}

	if bg != nil {
		c.stats.Bytes += uint64(len(bg))
		frame, err := c.bgDec.Decode(bg)
		if err != nil {
			return fmt.Errorf("could not decode background: %w", err)
		}
		if frame != nil {
			err = c.filters.Apply(frame)
			if err != nil {
				return fmt.Errorf("could not filter background: %w", err)
			}
			err = c.bgTex.UpdateYUV(nil,
				frame.Plane(0), frame.Stride(0),
				frame.Plane(1), frame.Stride(1),
				frame.Plane(2), frame.Stride(2))
			if err != nil {
				return fmt.Errorf("could not upload background: %w", err)
			}
		}
	}

	if fg != nil {
		c.stats.Bytes += uint64(len(fg.NAL))
		frame, err := c.fgDec.Decode(fg.NAL)
		if err != nil {
			return fmt.Errorf("could not decode foreground: %w", err)
		}
		if frame != nil {
			err = yuv.ToRGBA(frame, c.rgba)
			if err != nil {
				return fmt.Errorf("could not convert foreground: %w", err)
			}
			for i, a := range c.mask {
				c.rgba[4*i+3] = a
			}
			err = c.fgTex.Update(nil, c.rgba, 4*c.fovea)
			if err != nil {
				return fmt.Errorf("could not upload foreground: %w", err)
			}
			// The patch is placed with the gaze that produced it, not
			// the freshest poll, so a queued unit lands where it was
			// cropped.
			c.fgGaze = fg.Gaze
			c.haveFG = true
		}
	}

	c.redraw()

	if fg != nil {
		dx, dy := c.geom.ToDisplay(fg.Gaze.PX, fg.Gaze.PY)
		c.stats.recordGaze(dx, dy)
	}
	return nil
}

// redraw repaints the canvas: background stretched over the video
// rectangle, foreground patch centered at the gaze's display position.
func (c *Client) redraw() {
	c.renderer.SetDrawColor(0, 0, 0, 255)
	c.renderer.Clear()

	rx, ry, rw, rh := c.geom.VideoRect()
	dst := sdl.Rect{X: int32(rx), Y: int32(ry), W: int32(rw), H: int32(rh)}
	c.renderer.Copy(c.bgTex, nil, &dst)

	if c.haveFG {
		dx, dy := c.geom.ToDisplay(c.fgGaze.PX, c.fgGaze.PY)
		fdst := sdl.Rect{
			X: int32(dx - c.fovea/2),
			Y: int32(dy - c.fovea/2),
			W: int32(c.fovea),
			H: int32(c.fovea),
		}
		c.renderer.Copy(c.fgTex, nil, &fdst)
	}

	c.renderer.Present()
	c.stats.Frames++
}

// Clear paints the canvas black and presents.
func (c *Client) Clear() {
	c.renderer.SetDrawColor(0, 0, 0, 255)
	c.renderer.Clear()
	c.renderer.Present()
}

// DisplayWhite paints a white square of the given side length into the
// bottom-left corner of the video rectangle and presents; the
// photodiode target for display-floor measurements.
func (c *Client) DisplayWhite(boxDim int) {
	c.renderer.SetDrawColor(0, 0, 0, 255)
	c.renderer.Clear()

	rx, ry, _, rh := c.geom.VideoRect()
	c.renderer.SetDrawColor(255, 255, 255, 255)
	box := sdl.Rect{X: int32(rx), Y: int32(ry + rh - boxDim), W: int32(boxDim), H: int32(boxDim)}
	c.renderer.FillRect(&box)
	c.renderer.Present()
}

// PollKeys drains pending key presses, returning one rune per press:
// digits and letters as themselves, Enter as '\n' and Escape as 0x1b.
// A window close request also reports 0x1b.
func (c *Client) PollKeys() []rune {
	var keys []rune
	for ev := sdl.PollEvent(); ev != nil; ev = sdl.PollEvent() {
		switch e := ev.(type) {
		case *sdl.QuitEvent:
			keys = append(keys, rune(0x1b))
		case *sdl.KeyboardEvent:
			if e.Type != sdl.KEYDOWN {
				continue
			}
			switch e.Keysym.Sym {
			case sdl.K_RETURN, sdl.K_KP_ENTER:
				keys = append(keys, '\n')
			case sdl.K_ESCAPE:
				keys = append(keys, rune(0x1b))
			default:
				if e.Keysym.Sym >= sdl.K_SPACE && e.Keysym.Sym <= sdl.K_z {
					keys = append(keys, rune(e.Keysym.Sym))
				}
			}
		}
	}
	return keys
}

// Close releases the decoders, the filter chain, the textures and the
// window system, in that order.
func (c *Client) Close() error {
	var firstErr error
	keep := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	if c.fgDec != nil {
		keep(c.fgDec.Close())
	}
	if c.bgDec != nil {
		keep(c.bgDec.Close())
	}
	if c.filters != nil {
		keep(c.filters.Close())
	}
	if c.fgTex != nil {
		c.fgTex.Destroy()
	}
	if c.bgTex != nil {
		c.bgTex.Destroy()
	}
	if c.renderer != nil {
		c.renderer.Destroy()
	}
	if c.window != nil {
		c.window.Destroy()
	}
	sdl.Quit()
	return firstErr
}
