package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/loqalabs/loqa-voice/internal/apperr"
	"github.com/loqalabs/loqa-voice/internal/bus"
	"github.com/loqalabs/loqa-voice/internal/config"
	"github.com/loqalabs/loqa-voice/internal/journal"
	"github.com/loqalabs/loqa-voice/internal/kokoro"
	"github.com/loqalabs/loqa-voice/internal/natsserver"
	"github.com/loqalabs/loqa-voice/internal/pipeline"
	"github.com/loqalabs/loqa-voice/internal/playback"
	"github.com/loqalabs/loqa-voice/internal/telemetry"
	"github.com/loqalabs/loqa-voice/internal/textnorm"
	"github.com/loqalabs/loqa-voice/internal/tts"
	"github.com/loqalabs/loqa-voice/internal/wav"
)

var version = "0.1.0-dev"

// Replaced in tests.
var (
	engineFactory = tts.NewFactory
	detectDriver  = playback.Detect
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

type flags struct {
	configPath  string
	modelDir    string
	textFile    string
	output      string
	sid         int
	speed       float64
	debug       int
	noPlayback  bool
	includeZh   bool
	showVersion bool
}

func newFlagSet(stderr io.Writer, f *flags) *flag.FlagSet {
	def := config.Default()
	fs := flag.NewFlagSet("loqa-say", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&f.configPath, "config", "", "Path to an optional YAML configuration file")
	fs.StringVar(&f.modelDir, "model-dir", def.Model.Dir, "Kokoro model directory")
	fs.StringVar(&f.textFile, "text-file", def.Model.TextFile, "UTF-8 text file to synthesize")
	fs.StringVar(&f.output, "output", def.Model.Output, "Output WAV path")
	fs.IntVar(&f.sid, "sid", def.Model.SpeakerID, "Speaker id")
	fs.Float64Var(&f.speed, "speed", def.Model.Speed, "Speech speed, larger is faster")
	fs.IntVar(&f.debug, "debug", def.Model.Debug, "Engine debug output, 0 or 1")
	fs.BoolVar(&f.noPlayback, "no-playback", false, "Disable live playback")
	fs.BoolVar(&f.includeZh, "include-zh-lexicon", def.Model.IncludeZhLexicon, "Also load the Chinese lexicon")
	fs.BoolVar(&f.showVersion, "version", false, "Print version and exit")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: loqa-say [options]\n\nSynthesizes a text file with a Kokoro model, plays it and saves it as WAV.\n\n")
		fs.PrintDefaults()
	}
	return fs
}

// applyFlags copies the flags given on the command line over cfg so unset
// flags keep the values from the config file and environment.
func applyFlags(fs *flag.FlagSet, f *flags, cfg *config.Config) {
	fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "model-dir":
			cfg.Model.Dir = f.modelDir
		case "text-file":
			cfg.Model.TextFile = f.textFile
		case "output":
			cfg.Model.Output = f.output
		case "sid":
			cfg.Model.SpeakerID = f.sid
		case "speed":
			cfg.Model.Speed = f.speed
		case "debug":
			cfg.Model.Debug = f.debug
		case "no-playback":
			cfg.Playback.Enabled = !f.noPlayback
		case "include-zh-lexicon":
			cfg.Model.IncludeZhLexicon = f.includeZh
		}
	})
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	var f flags
	fs := newFlagSet(stderr, &f)
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 1
	}
	if fs.NArg() > 0 {
		fmt.Fprintf(stderr, "unknown argument %q\n", fs.Arg(0))
		fs.Usage()
		return 1
	}
	if f.showVersion {
		fmt.Fprintln(stdout, version)
		return 0
	}

	cfg, err := config.Load(f.configPath)
	if err != nil {
		return fail(telemetry.NewLogger(stderr, "info"), apperr.Argument("load config", err))
	}
	applyFlags(fs, &f, &cfg)
	if err := config.Validate(cfg); err != nil {
		fs.Usage()
		return fail(telemetry.NewLogger(stderr, "info"), apperr.Argument("validate config", err))
	}

	logger := telemetry.NewLogger(stderr, cfg.Telemetry.LogLevel)
	if err := synthesize(ctx, cfg, logger); err != nil {
		return fail(logger, err)
	}
	return 0
}

func fail(logger *slog.Logger, err error) int {
	logger.Error("loqa-say failed", slog.String("kind", apperr.KindOf(err).String()), slog.String("error", err.Error()))
	return 1
}

func synthesize(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	tel, err := telemetry.Setup(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to setup telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tel.Shutdown(shutdownCtx); err != nil {
			logger.Warn("telemetry shutdown error", slog.String("error", err.Error()))
		}
	}()

	req := kokoro.Request{
		ModelDir:  cfg.Model.Dir,
		SpeakerID: cfg.Model.SpeakerID,
		Speed:     cfg.Model.Speed,
		Debug:     cfg.Model.Debug,
		Lexicon:   kokoro.LexiconModeFor(cfg.Model.IncludeZhLexicon),
	}
	if err := req.Validate(); err != nil {
		return err
	}
	manifest, ok, err := kokoro.LoadManifest(cfg.Model.Dir)
	if err != nil {
		return err
	}
	if ok {
		if err := manifest.CheckSpeaker(req.SpeakerID); err != nil {
			return err
		}
	}

	doc, err := textnorm.Load(cfg.Model.TextFile)
	if err != nil {
		return err
	}
	if doc.Blank() {
		return apperr.Synthesis("read text file", fmt.Errorf("%s has no text to synthesize", cfg.Model.TextFile))
	}

	factory, err := engineFactory(cfg.Synth)
	if err != nil {
		return apperr.Argument("configure engine", err)
	}

	driver := playback.Null()
	if cfg.Playback.Enabled {
		driver = detectDriver(logger, cfg.Playback.FramesPerBuffer)
	}
	defer func() {
		if err := driver.Close(); err != nil {
			logger.Warn("failed to release audio driver", slog.String("error", err.Error()))
		}
	}()

	metrics, err := pipeline.NewMetrics(tel.Meter("github.com/loqalabs/loqa-voice/pipeline"))
	if err != nil {
		return fmt.Errorf("create metrics: %w", err)
	}

	// Live playback can degrade during the run, so the summary reports what
	// the completed session saw rather than the configured setting.
	playbackActive := false
	observers := []pipeline.Observer{pipeline.ObserverFunc(func(_ context.Context, ev pipeline.Event) {
		if ev.Type == pipeline.EventCompleted {
			playbackActive = ev.Playback
		}
	})}
	store, err := journal.Open(ctx, cfg.Journal, logger)
	if err != nil {
		logger.Warn("run journal disabled", slog.String("error", err.Error()))
	} else {
		defer store.Close()
		observers = append(observers, journal.NewRecorder(store))
	}
	if pub, closeBus := connectBus(ctx, cfg.Bus, logger); pub != nil {
		defer closeBus()
		observers = append(observers, pub)
	}

	ctrl, err := pipeline.New(pipeline.Config{
		Factory:   factory,
		Driver:    driver,
		Playback:  cfg.Playback.Enabled,
		Observers: observers,
		Logger:    logger,
		Metrics:   metrics,
	})
	if err != nil {
		return err
	}

	buf, err := ctrl.Synthesize(ctx, doc, req)
	if err != nil {
		return err
	}
	if ctx.Err() != nil {
		logger.Warn("synthesis interrupted, saving partial audio", slog.Duration("audio", buf.Duration()))
	}
	if err := wav.Write(cfg.Model.Output, buf); err != nil {
		return err
	}

	playbackState := "disabled"
	if playbackActive {
		playbackState = "enabled"
	}
	logger.Info("synthesis saved",
		slog.String("input", cfg.Model.TextFile),
		slog.String("model_dir", cfg.Model.Dir),
		slog.Int("speaker_id", req.SpeakerID),
		slog.String("lexicon", req.Lexicon.String()),
		slog.String("playback", playbackState),
		slog.String("output", cfg.Model.Output),
	)
	return nil
}

// connectBus starts the optional progress bus. Failures are logged and
// leave the run without a publisher.
func connectBus(ctx context.Context, cfg config.BusConfig, logger *slog.Logger) (*bus.Publisher, func()) {
	if !cfg.Enabled {
		return nil, nil
	}
	srv, err := natsserver.Start(cfg, logger)
	if err != nil {
		logger.Warn("progress bus disabled", slog.String("error", err.Error()))
		return nil, nil
	}
	if srv != nil {
		cfg.Servers = []string{srv.ClientURL()}
	}
	client, err := bus.Connect(ctx, cfg, logger)
	if err != nil {
		srv.Shutdown()
		logger.Warn("progress bus disabled", slog.String("error", err.Error()))
		return nil, nil
	}
	return bus.NewPublisher(client, cfg.SubjectPrefix, cfg.PublishAudio), func() {
		client.Close()
		srv.Shutdown()
	}
}
