package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	yoloaugment "github.com/menta2k/yolo-augment"
	"github.com/menta2k/yolo-augment/internal/config"
	"github.com/menta2k/yolo-augment/internal/logging"
	"github.com/menta2k/yolo-augment/internal/utils"
)

func checkError(e error) {
	if e != nil {
		log.Output(2, e.Error())
		os.Exit(1)
	}
}

// app holds the flag values of one command tree
type app struct {
	fs afero.Fs

	configPath     string
	envFile        string
	initConfigPath string

	imageDir      string
	labelDir      string
	outDir        string
	attempts      int
	seed          uint64
	format        string
	quality       int
	lossless      bool
	clean         bool
	debug         bool
	failFast      bool
	allowMultiBox bool
	logLevel      string
	logJSON       bool
}

func newApp(fs afero.Fs) *app {
	return &app{fs: fs}
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "yolo-augment",
		Short: "expand a YOLO dataset with randomly augmented copies of each image",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			cfg, err := a.loadConfig(cmd)
			checkError(err)
			a.run(cfg)
		},
	}

	flags := root.Flags()
	flags.StringVarP(&a.configPath, "config", "c", "", "config file (json or yaml), defaults to "+config.GetConfigPath()+" when present")
	flags.StringVar(&a.envFile, "env-file", ".env", "dotenv file with YOLOAUG_* overrides")

	flags.StringVar(&a.imageDir, "images", "", "directory of source images")
	flags.StringVar(&a.labelDir, "labels", "", "directory of YOLO label files")
	flags.StringVarP(&a.outDir, "out", "o", "", "output directory")
	flags.IntVarP(&a.attempts, "attempts", "n", 0, "augmentation attempts per image")
	flags.Uint64Var(&a.seed, "seed", 0, "random seed, 0 picks a random one")
	flags.StringVar(&a.format, "format", "", "output image format: png|jpg|webp")
	flags.IntVar(&a.quality, "quality", 0, "JPEG/WebP output quality (1-100)")
	flags.BoolVar(&a.lossless, "lossless", false, "WebP lossless mode")
	flags.BoolVar(&a.clean, "clean", false, "remove the output of a previous run first")
	flags.BoolVar(&a.debug, "debug", false, "write debug overlays with the boxes drawn")
	flags.BoolVar(&a.failFast, "fail-fast", false, "stop at the first image that fails")
	flags.BoolVar(&a.allowMultiBox, "multi-box", false, "accept label files with more than one record")
	flags.StringVar(&a.logLevel, "log-level", "", "log level: debug|info|warn|error")
	flags.BoolVar(&a.logJSON, "log-json", false, "log as JSON")

	root.AddCommand(a.initConfigCmd(), versionCmd())
	return root
}

// loadConfig layers defaults, the config file, the environment and finally
// explicitly set flags.
func (a *app) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.Default()
	flags := cmd.Flags()

	path := a.configPath
	if !flags.Changed("config") {
		path = ""
		if utils.FileExists(a.fs, config.GetConfigPath()) {
			path = config.GetConfigPath()
		}
	}
	if path != "" {
		var err error
		if cfg, err = config.LoadFromFile(a.fs, path); err != nil {
			return nil, err
		}
	}

	if err := cfg.ApplyEnv(a.fs, a.envFile); err != nil {
		return nil, err
	}

	if flags.Changed("images") {
		cfg.Input.ImageDir = a.imageDir
	}
	if flags.Changed("labels") {
		cfg.Input.LabelDir = a.labelDir
	}
	if flags.Changed("out") {
		cfg.Output.Dir = a.outDir
	}
	if flags.Changed("attempts") {
		cfg.Augment.Attempts = a.attempts
	}
	if flags.Changed("seed") {
		cfg.Augment.Seed = a.seed
	}
	if flags.Changed("format") {
		cfg.Output.Format = a.format
	}
	if flags.Changed("quality") {
		cfg.Output.Quality = a.quality
	}
	if flags.Changed("lossless") {
		cfg.Output.Lossless = a.lossless
	}
	if flags.Changed("clean") {
		cfg.Output.Clean = a.clean
	}
	if flags.Changed("debug") {
		cfg.Output.Debug = a.debug
	}
	if flags.Changed("fail-fast") {
		cfg.Run.FailFast = a.failFast
	}
	if flags.Changed("multi-box") {
		cfg.Run.AllowMultiBox = a.allowMultiBox
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = a.logLevel
	}
	if flags.Changed("log-json") {
		cfg.Log.JSON = a.logJSON
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (a *app) run(cfg *config.Config) {
	logger, err := logging.New(cfg.Log.Level, cfg.Log.JSON)
	checkError(err)
	defer logger.Sync()

	aug, err := yoloaugment.NewWithFs(a.fs, cfg, logger)
	checkError(err)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("starting",
		zap.String("images", cfg.Input.ImageDir),
		zap.String("labels", cfg.Input.LabelDir),
		zap.String("out", cfg.Output.Dir),
		zap.Int("attempts", cfg.Augment.Attempts),
	)

	report, err := aug.Run(ctx)
	logger.Info("finished", zap.Stringer("report", report))
	if err != nil {
		logger.Error("run failed", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
	for _, f := range report.Failures {
		logger.Warn("failed image", zap.String("image", f.Image), zap.Error(f.Err))
	}
}

func (a *app) initConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init-config",
		Short: "write the default configuration to a file",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			checkError(config.Default().SaveToFile(a.fs, a.initConfigPath))
			fmt.Println("wrote", a.initConfigPath)
		},
	}
	cmd.Flags().StringVarP(&a.initConfigPath, "output", "o", config.GetConfigPath(), "where to write the config file")
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(yoloaugment.GetVersion())
		},
	}
}

func main() {
	checkError(newApp(afero.NewOsFs()).rootCmd().Execute())
}
