/*
DESCRIPTION
  results.go provides the per-trial CSV record; one header line and one
  data line per trial appended to results.csv in the session output
  directory.

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
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/ausocean/fovid/client"
	"github.com/ausocean/fovid/fovid/config"
)

// ResultsFile is the name of the per-trial record file within the
// session output directory.
const ResultsFile = "results.csv"

// resultsHeader is the column set of a trial record.
var resultsHeader = []string{
	"timestamp",
	"name",
	"alg",
	"fovea",
	"bg_width",
	"fg_crf",
	"bg_crf",
	"delay_ms",
	"gaze_source",
	"source",
	"gaze_travel",
	"gaze_min_x",
	"gaze_min_y",
	"gaze_max_x",
	"gaze_max_y",
	"frames",
	"bytes",
	"latency_us",
}

// Record is one per-trial result row.
type Record struct {
	Name      string
	Stats     client.Stats
	LatencyUS int64 // Negative when no probe measurement was taken.
}

// AppendRecord appends rec to results.csv in the configured output
// directory, writing the header first when creating the file.
func AppendRecord(cfg config.Config, rec Record) error {
	path := cfg.OutputDir + "/" + ResultsFile
	_, statErr := os.Stat(path)
	newFile := os.IsNotExist(statErr)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("could not open results file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if newFile {
		err = w.Write(resultsHeader)
		if err != nil {
			return fmt.Errorf("could not write results header: %w", err)
		}
	}

	s := rec.Stats
	row := []string{
		time.Now().Format(time.RFC3339),
		rec.Name,
		cfg.Alg,
		strconv.Itoa(int(cfg.Fovea)),
		strconv.Itoa(int(cfg.BGWidth)),
		strconv.FormatFloat(cfg.FGCRF, 'f', -1, 64),
		strconv.FormatFloat(cfg.BGCRF, 'f', -1, 64),
		strconv.Itoa(int(cfg.DelayMS)),
		cfg.GazeSource,
		cfg.Input,
		strconv.FormatFloat(s.GazeTravel, 'f', 1, 64),
		strconv.Itoa(s.MinX),
		strconv.Itoa(s.MinY),
		strconv.Itoa(s.MaxX),
		strconv.Itoa(s.MaxY),
		strconv.FormatUint(s.Frames, 10),
		strconv.FormatUint(s.Bytes, 10),
		strconv.FormatInt(rec.LatencyUS, 10),
	}
	err = w.Write(row)
	if err != nil {
		return fmt.Errorf("could not write results row: %w", err)
	}
	w.Flush()
	return w.Error()
}
