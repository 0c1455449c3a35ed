/*
DESCRIPTION
  play.go provides playback of the uncompressed baseline video via an
  external player.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package study

import (
	"fmt"
	"os/exec"
)

// baselinePlayer is the external player used for the uncompressed
// baseline.
const baselinePlayer = "mpv"

// PlayBaseline plays the video at path fullscreen with the external
// player, blocking until the player exits.
func PlayBaseline(path string) error {
	cmd := exec.Command(baselinePlayer, "-fs", path)
	err := cmd.Run()
	if err != nil {
		return fmt.Errorf("unable to play %q with %s: %w", path, baselinePlayer, err)
	}
	return nil
}
