/*
DESCRIPTION
  userstudy drives a keyboard-controlled sequence of trials varying
  artificial delay and quality preset, persisting one record per
  accepted trial.

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

// Package main provides the userstudy command.
package main

import (
	"bufio"
	"fmt"
	"io"
	"math/rand"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/ausocean/fovid/client"
	"github.com/ausocean/fovid/fovid"
	"github.com/ausocean/fovid/fovid/config"
	"github.com/ausocean/fovid/gaze/eyelink"
	"github.com/ausocean/fovid/study"
	"github.com/ausocean/utils/logging"
)

// Logging configuration.
const (
	logPath      = "userstudy.log"
	logMaxSize   = 100 // MB
	logMaxBackup = 5
	logMaxAge    = 28 // days
)

var (
	name       string
	studyToml  string
	key        string
	baseline   string
	gazeSource string
	filterDesc string
	output     string
	skipCal    bool
	record     bool
)

func main() {
	root := &cobra.Command{
		Use:   "userstudy [flags] VIDEO",
		Short: "run a keyboard-driven foveation quality study",
		Args:  cobra.ExactArgs(1),
		RunE:  run,

		SilenceUsage: true,
	}

	root.Flags().StringVarP(&name, "name", "n", "", "participant name for the study records")
	root.Flags().StringVarP(&studyToml, "config", "c", "study.toml", "study TOML configuration")
	root.Flags().StringVarP(&key, "key", "k", "", "video key within the study config (default VIDEO basename)")
	root.Flags().StringVar(&baseline, "baseline", "", "uncompressed baseline video for the external player")
	root.Flags().StringVarP(&gazeSource, "gaze-source", "g", config.GazeEyelink, "source for gaze data (mouse|eyelink|trace)")
	root.Flags().StringVar(&filterDesc, "filter", "smartblur=lr=1.0:ls=-1.0", "filter chain applied to the decoded background")
	root.Flags().StringVarP(&output, "output", "o", "", "output directory (default output/<timestamp>)")
	root.Flags().BoolVar(&skipCal, "skip-cal", false, "skip tracker calibration")
	root.Flags().BoolVar(&record, "record", false, "record the eye trace per trial")
	root.MarkFlagRequired("name")

	err := root.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	fileLog := &lumberjack.Logger{
		Filename:   logPath,
		MaxSize:    logMaxSize,
		MaxBackups: logMaxBackup,
		MaxAge:     logMaxAge,
	}
	log := logging.New(logging.Info, io.MultiWriter(fileLog, os.Stderr), true)

	video := args[0]
	if key == "" {
		key = strings.TrimSuffix(filepath.Base(video), filepath.Ext(video))
	}

	plans, err := study.Load(studyToml)
	if err != nil {
		return fmt.Errorf("could not load study config: %w", err)
	}
	plan, ok := plans[key]
	if !ok {
		return fmt.Errorf("study config has no plan for %q", key)
	}

	if output == "" {
		output = "output/" + time.Now().Format("2006-01-02-15-04-05")
	}

	runner := &studyRunner{log: log, video: video, baseline: baseline, output: output}
	s := study.New(log, plan, runner, rand.New(rand.NewSource(time.Now().UnixNano())))

	// Ctrl-C quits the study between trials.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)

	err = s.Start()
	if err != nil {
		return fmt.Errorf("could not start study: %w", err)
	}

	fmt.Println("study ready: digits play a preset, Enter accepts, b baseline, c recalibrate, q quits")
	keys := readKeys()
	for {
		printPrompt(s)

		var r rune
		select {
		case <-quit:
			r = 0x1b
		case r, ok = <-keys:
			if !ok {
				r = 0x1b
			}
		}

		ev, digit := study.EventFromKey(r)
		done, err := s.Handle(ev, digit)
		if err != nil {
			log.Error("study step failed", "error", err.Error())
		}
		if done {
			break
		}
	}

	fmt.Println("study complete")
	return nil
}

// printPrompt summarizes the machine state for the operator.
func printPrompt(s *study.Study) {
	if s.Remaining() == 0 {
		return
	}
	t := s.Current()
	fmt.Printf("[%d trials left] attempt %d, delay %d ms > ", s.Remaining(), t.Attempt, t.Delay.DelayMS)
}

// readKeys delivers one rune per line of operator input; 'q' maps to
// quit, a bare newline to Enter.
func readKeys() <-chan rune {
	ch := make(chan rune)
	go func() {
		defer close(ch)
		sc := bufio.NewScanner(os.Stdin)
		for sc.Scan() {
			line := strings.TrimSpace(sc.Text())
			switch {
			case line == "":
				ch <- '\n'
			case line == "q" || line == "quit":
				ch <- 0x1b
				return
			default:
				ch <- rune(line[0])
			}
		}
	}()
	return ch
}

// studyRunner implements study.Runner over the fovid pipeline.
type studyRunner struct {
	log      logging.Logger
	video    string
	baseline string
	output   string

	lastStats client.Stats
}

// trialConfig builds the per-trial configuration from a preset.
func (r *studyRunner) trialConfig(delayMS uint, q study.QualityPreset) config.Config {
	return config.Config{
		Logger:     r.log,
		Input:      r.video,
		GazeSource: gazeSource,
		Alg:        config.AlgTwoStream,
		Fovea:      q.FGSize,
		FGCRF:      q.FGCRF,
		BGWidth:    q.BGSize,
		BGCRF:      q.BGCRF,
		Filter:     filterDesc,
		DelayMS:    delayMS,
		OutputDir:  r.output,
		Calibrate:  false, // Calibration is a separate study state.
		Record:     record,
	}
}

// PlayVideo implements study.Runner.
func (r *studyRunner) PlayVideo(delayMS uint, q study.QualityPreset) error {
	cfg := r.trialConfig(delayMS, q)

	p, err := fovid.New(cfg)
	if err != nil {
		return fmt.Errorf("could not initialise trial pipeline: %w", err)
	}
	defer p.Close()

	err = p.Start()
	if err != nil {
		return fmt.Errorf("could not start trial pipeline: %w", err)
	}
	err = p.Run()
	if err != nil {
		return fmt.Errorf("trial pipeline failed: %w", err)
	}

	r.lastStats = p.Client().Stats()
	return nil
}

// PlayBaseline implements study.Runner.
func (r *studyRunner) PlayBaseline() error {
	if r.baseline == "" {
		return fmt.Errorf("no baseline video configured")
	}
	return study.PlayBaseline(r.baseline)
}

// Calibrate implements study.Runner.
func (r *studyRunner) Calibrate() error {
	if skipCal || gazeSource != config.GazeEyelink {
		r.log.Info("skipping calibration", "gazeSource", gazeSource)
		return nil
	}
	ses, err := eyelink.Connect(r.log, eyelink.Options{Calibrate: true})
	if err != nil {
		return fmt.Errorf("could not calibrate tracker: %w", err)
	}
	return ses.Close()
}

// Record implements study.Runner.
func (r *studyRunner) Record(t study.Trial, quality int, q study.QualityPreset) error {
	cfg := r.trialConfig(t.Delay.DelayMS, q)
	err := cfg.Validate()
	if err != nil {
		return fmt.Errorf("bad trial config: %w", err)
	}
	rec := fovid.Record{
		Name:      fmt.Sprintf("%s-a%d-d%d-q%d", name, t.Attempt, t.Delay.DelayMS, quality),
		Stats:     r.lastStats,
		LatencyUS: -1,
	}
	return fovid.AppendRecord(cfg, rec)
}
