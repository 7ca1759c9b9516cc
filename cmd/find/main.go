// Command find opens a page in Chromium, finds the elements matching a
// label, and prints the matches as JSON. With -click the best match is
// clicked before the browser closes.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/JaimeStill/glimpse/internal/config"
	"github.com/JaimeStill/glimpse/internal/finder"
	"github.com/JaimeStill/glimpse/internal/infrastructure"
	"github.com/JaimeStill/glimpse/pkg/driver/playwright"
	"github.com/JaimeStill/glimpse/pkg/geometry"
	"github.com/JaimeStill/glimpse/pkg/labels"
)

type options struct {
	config    string
	url       string
	label     string
	mode      string
	threshold float64
	weaker    bool
	click     bool
	headless  bool
	width     int
	height    int
	set       map[string]bool
}

type result struct {
	ID                string         `json:"id"`
	Rect              *geometry.Rect `json:"rect,omitempty"`
	Label             labels.Label   `json:"label"`
	Confidence        float64        `json:"confidence"`
	ConfidenceForHint float64        `json:"confidenceForHint"`
}

func main() {
	var opts options
	flag.StringVar(&opts.config, "config", config.BaseConfigFile, "base config file")
	flag.StringVar(&opts.url, "url", "", "page to open")
	flag.StringVar(&opts.label, "label", "", "label to find")
	flag.StringVar(&opts.mode, "mode", "", "element_lookup or object_detection (default from config)")
	flag.Float64Var(&opts.threshold, "threshold", 0, "confidence threshold (default from config)")
	flag.BoolVar(&opts.weaker, "allow-weaker", false, "keep elements whose hint confidence reaches the threshold")
	flag.BoolVar(&opts.click, "click", false, "click the best match")
	flag.BoolVar(&opts.headless, "headless", true, "run Chromium headless")
	flag.IntVar(&opts.width, "width", 1280, "viewport width")
	flag.IntVar(&opts.height, "height", 800, "viewport height")
	flag.Parse()

	opts.set = make(map[string]bool)
	flag.Visit(func(f *flag.Flag) { opts.set[f.Name] = true })

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Fatal("env file load failed: ", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts); err != nil {
		log.Fatal(err)
	}
}

func run(ctx context.Context, opts options) error {
	if opts.url == "" || opts.label == "" {
		return errors.New("-url and -label are required")
	}

	cfg, err := config.LoadFile(opts.config)
	if err != nil {
		return fmt.Errorf("config load failed: %w", err)
	}
	cfg.Database.Disabled = true

	infra, err := infrastructure.New(cfg)
	if err != nil {
		return err
	}
	defer infra.Model.Close()

	hint := labels.Label(opts.label)
	if !infra.Catalog.Contains(hint) {
		infra.Logger.Warn("label not in catalog", "label", hint)
	}

	findOpts := cfg.Finder.Options()
	if opts.set["mode"] {
		findOpts.Mode = finder.Mode(opts.mode)
	}
	if opts.set["threshold"] {
		findOpts.Threshold = opts.threshold
	}
	if opts.set["allow-weaker"] {
		findOpts.AllowWeakerMatches = opts.weaker
	}

	session, err := playwright.Launch(playwright.LaunchOptions{
		URL:      opts.url,
		Headless: opts.headless,
		Width:    opts.width,
		Height:   opts.height,
	}, infra.Logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := session.Close(); err != nil {
			infra.Logger.Error("session close failed", "error", err)
		}
	}()

	matches, err := infra.Finder.FindMatches(ctx, session, hint, findOpts)
	if err != nil {
		return fmt.Errorf("find %s: %w", hint, err)
	}

	out := make([]result, len(matches))
	for i, m := range matches {
		out[i] = result{
			ID:                m.Handle.ID,
			Rect:              m.Handle.Rect,
			Label:             m.Label,
			Confidence:        m.Confidence,
			ConfidenceForHint: m.ConfidenceForHint,
		}
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return err
	}

	if opts.click {
		if len(matches) == 0 {
			return fmt.Errorf("no element matched %s", hint)
		}
		if err := session.Click(ctx, matches[0].Handle.ID); err != nil {
			return fmt.Errorf("click: %w", err)
		}
		infra.Logger.Info("clicked best match", "id", matches[0].Handle.ID)
	}

	return nil
}
