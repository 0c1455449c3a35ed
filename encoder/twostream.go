/*
DESCRIPTION
  twostream.go provides the two-stream foveated encoder; a low
  resolution scaled background refreshed at source frame rate, and a
  high quality crop centered on gaze re-encoded whenever the source
  advances or the gaze moves meaningfully.

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

package encoder

import (
	"fmt"
	"io"
	"time"

	"github.com/ausocean/fovid/codec/x264"
	"github.com/ausocean/fovid/container/y4m"
	"github.com/ausocean/fovid/fovid/config"
	"github.com/ausocean/fovid/gaze"
	"github.com/ausocean/fovid/yuv"
	"github.com/ausocean/utils/logging"
)

// To indicate package when logging.
const pkg = "encoder: "

// TwoStream is the production encoder; one Y4M source, two encoder
// handles, a rescaler and the foveation cropper.
type TwoStream struct {
	log   logging.Logger
	video *y4m.Reader

	srcPic *yuv.Picture
	fgPic  *yuv.Picture
	bgPic  *yuv.Picture

	fgEnc FrameEncoder
	bgEnc FrameEncoder

	scaler *yuv.Rescaler

	fovea    int // Crop side length in px.
	frameDur time.Duration
	start    time.Time
	frameCnt int

	lastGaze  gaze.Sample
	haveGaze  bool
	gazeQueue []gaze.Sample
}

// NewTwoStream returns a TwoStream configured from cfg. The Y4M header
// is consumed here, so geometry is known once construction returns,
// and the pacing clock starts on the first encode.
func NewTwoStream(l logging.Logger, cfg config.Config) (*TwoStream, error) {
	video, err := y4m.Open(cfg.Input)
	if err != nil {
		return nil, err
	}

	fovea, err := FoveaSize(int(cfg.Fovea), video.Height())
	if err != nil {
		video.Close()
		return nil, err
	}

	fgParams := x264.NewParams(fovea, fovea, video.FPS())
	fgParams.CRF = cfg.FGCRF
	fgEnc, err := x264.New(l, fgParams)
	if err != nil {
		video.Close()
		return nil, fmt.Errorf("could not create foreground encoder: %w", err)
	}

	bgParams := x264.NewBackgroundParams(int(cfg.BGWidth), int(cfg.BGHeight), video.FPS())
	bgParams.CRF = cfg.BGCRF
	bgEnc, err := x264.New(l, bgParams)
	if err != nil {
		video.Close()
		return nil, fmt.Errorf("could not create background encoder: %w", err)
	}

	s, err := NewTwoStreamWith(l, video, fovea, fgEnc, bgEnc, int(cfg.BGWidth), int(cfg.BGHeight))
	if err != nil {
		return nil, err
	}

	err = fgEnc.Start()
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("could not start foreground encoder: %w", err)
	}
	err = bgEnc.Start()
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("could not start background encoder: %w", err)
	}

	l.Info(pkg+"two-stream encoder ready", "width", video.Width(), "height", video.Height(),
		"fps", video.FPS(), "fovea", fovea, "bgWidth", cfg.BGWidth, "bgHeight", cfg.BGHeight)

	return s, nil
}

// NewTwoStreamWith returns a TwoStream over the given source and
// encoder handles; used with required params provided, including by
// tests substituting stub handles.
func NewTwoStreamWith(l logging.Logger, video *y4m.Reader, fovea int, fgEnc, bgEnc FrameEncoder, bgW, bgH int) (*TwoStream, error) {
	srcPic, err := video.NewPicture()
	if err != nil {
		return nil, err
	}
	fgPic, err := yuv.NewPicture(fovea, fovea)
	if err != nil {
		return nil, err
	}
	bgPic, err := yuv.NewPicture(bgW, bgH)
	if err != nil {
		return nil, err
	}
	scaler, err := yuv.NewRescaler(video.Width(), video.Height(), bgW, bgH)
	if err != nil {
		return nil, err
	}

	return &TwoStream{
		log:      l,
		video:    video,
		srcPic:   srcPic,
		fgPic:    fgPic,
		bgPic:    bgPic,
		fgEnc:    fgEnc,
		bgEnc:    bgEnc,
		scaler:   scaler,
		fovea:    fovea,
		frameDur: time.Duration(float64(time.Second) / video.FPS()),
	}, nil
}

// Width returns the source width.
func (s *TwoStream) Width() int { return s.video.Width() }

// Height returns the source height.
func (s *TwoStream) Height() int { return s.video.Height() }

// Fovea returns the side length in pixels of the foreground crop.
func (s *TwoStream) Fovea() int { return s.fovea }

// readFrame advances the source when the pacing clock is due; the
// encode rate is decoupled from the gaze update rate by reading a new
// frame only once wall-clock has crossed the next frame boundary.
func (s *TwoStream) readFrame() (bool, error) {
	if s.frameCnt == 0 {
		s.start = time.Now()
	}
	due := s.frameCnt == 0 ||
		int(time.Since(s.start)/s.frameDur) > s.frameCnt-1
	if !due {
		return false, nil
	}

	err := s.video.ReadFrame(s.srcPic)
	if err != nil {
		return false, err
	}
	s.frameCnt++
	return true, nil
}

// EncodeFrame implements Encoder. The background is refreshed only
// when the source advanced; the foreground is re-encoded when the
// source advanced or the gaze moved beyond GazeChangeThreshold.
func (s *TwoStream) EncodeFrame(g gaze.Sample) (Frames, error) {
	advanced, err := s.readFrame()
	if err != nil {
		if err == io.EOF {
			return Frames{}, io.EOF
		}
		return Frames{}, fmt.Errorf("could not read source frame: %w", err)
	}

	gazeChanged := !s.haveGaze ||
		abs(g.PX-s.lastGaze.PX) > GazeChangeThreshold ||
		abs(g.PY-s.lastGaze.PY) > GazeChangeThreshold
	if gazeChanged {
		s.lastGaze = g
		s.haveGaze = true
	}

	var frames Frames

	if advanced {
		err = s.scaler.Rescale(s.srcPic, s.bgPic)
		if err != nil {
			return Frames{}, fmt.Errorf("could not rescale background: %w", err)
		}
		frames.BG, err = s.bgEnc.Encode(s.bgPic)
		if err != nil {
			return Frames{}, fmt.Errorf("could not encode background: %w", err)
		}
	}

	if advanced || gazeChanged {
		yuv.CropTo(s.srcPic, g.PX, g.PY, s.fgPic)
		s.gazeQueue = append(s.gazeQueue, g)

		nal, err := s.fgEnc.Encode(s.fgPic)
		if err != nil {
			return Frames{}, fmt.Errorf("could not encode foreground: %w", err)
		}
		if nal != nil {
			// Units come back in submission order; pair with the
			// oldest queued gaze.
			frames.FG = &FGUnit{NAL: nal, Gaze: s.gazeQueue[0]}
			s.gazeQueue = s.gazeQueue[1:]
		}
	}

	return frames, nil
}

// Drain collects the delayed output of both handles, pairing leftover
// foreground units with their queued gazes.
func (s *TwoStream) Drain() ([]Frames, error) {
	var out []Frames

	fgUnits, err := s.fgEnc.Drain()
	if err != nil {
		return nil, fmt.Errorf("could not drain foreground encoder: %w", err)
	}
	for _, nal := range fgUnits {
		f := Frames{FG: &FGUnit{NAL: nal}}
		if len(s.gazeQueue) != 0 {
			f.FG.Gaze = s.gazeQueue[0]
			s.gazeQueue = s.gazeQueue[1:]
		} else if s.haveGaze {
			f.FG.Gaze = s.lastGaze
		}
		out = append(out, f)
	}

	bgUnits, err := s.bgEnc.Drain()
	if err != nil {
		return nil, fmt.Errorf("could not drain background encoder: %w", err)
	}
	for _, nal := range bgUnits {
		out = append(out, Frames{BG: nal})
	}

	return out, nil
}

// Close releases the source, the handles and the rescaler.
func (s *TwoStream) Close() error {
	var firstErr error
	for _, c := range []io.Closer{s.fgEnc, s.bgEnc, s.scaler, s.video} {
		err := c.Close()
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
