/*
DESCRIPTION
  config_test.go provides testing for config validation and update.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package config

import (
	"io"
	"testing"

	"github.com/ausocean/utils/logging"
)

func testConfig() Config {
	return Config{Logger: logging.New(logging.Error, io.Discard, true)}
}

func TestValidateDefaults(t *testing.T) {
	c := testConfig()
	err := c.Validate()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if c.GazeSource != GazeMouse {
		t.Errorf("GazeSource = %q, want %q", c.GazeSource, GazeMouse)
	}
	if c.Alg != AlgTwoStream {
		t.Errorf("Alg = %q, want %q", c.Alg, AlgTwoStream)
	}
	if c.BGWidth != 512 || c.BGHeight != 288 {
		t.Errorf("background geometry = %dx%d, want 512x288", c.BGWidth, c.BGHeight)
	}
	if c.QOMax != 35.0 {
		t.Errorf("QOMax = %v, want 35.0", c.QOMax)
	}
	if c.Fovea == 0 {
		t.Error("Fovea not defaulted for two-stream")
	}
}

func TestValidateBGWidth(t *testing.T) {
	c := testConfig()
	c.BGWidth = 510
	if err := c.Validate(); err == nil {
		t.Error("BGWidth 510 expected error")
	}

	c = testConfig()
	c.BGWidth = 512
	if err := c.Validate(); err != nil {
		t.Errorf("BGWidth 512 unexpected error: %v", err)
	}
	if c.BGHeight != 288 {
		t.Errorf("BGHeight = %d, want 288", c.BGHeight)
	}
}

func TestValidateQOMax(t *testing.T) {
	c := testConfig()
	c.QOMax = 100
	if err := c.Validate(); err == nil {
		t.Error("QOMax 100 expected error")
	}

	c = testConfig()
	c.QOMax = 35.0
	if err := c.Validate(); err != nil {
		t.Errorf("QOMax 35.0 unexpected error: %v", err)
	}
}

func TestValidateGazeSource(t *testing.T) {
	c := testConfig()
	c.GazeSource = "webcam"
	if err := c.Validate(); err == nil {
		t.Error("invalid gaze source expected error")
	}

	c = testConfig()
	c.GazeSource = GazeTrace
	if err := c.Validate(); err == nil {
		t.Error("trace source without trace file expected error")
	}
}

func TestUpdate(t *testing.T) {
	c := testConfig()
	c.Update(map[string]string{
		KeyFovea:      "12",
		KeyBGWidth:    "768",
		KeyFGCRF:      "18",
		KeyGazeSource: GazeEyelink,
		KeyDelayMS:    "40",
	})
	if err := c.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if c.Fovea != 12 || c.BGWidth != 768 || c.FGCRF != 18 || c.GazeSource != GazeEyelink || c.DelayMS != 40 {
		t.Errorf("update not applied: %+v", c)
	}
	if c.BGHeight != 432 {
		t.Errorf("BGHeight = %d, want 432", c.BGHeight)
	}
}
