// Command tzcompile compiles tzdb source files into zone artifacts.
//
//	tzcompile -s ./tzdata -d ./zoneinfo file ...
//	tzcompile --archive tzdata2024b.tar.gz -d ./zoneinfo.db --store pebble
//
// Without a destination the zones are compiled and validated but not written.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/ngrash/go-zoneinfo/internal/config"
	"github.com/ngrash/go-zoneinfo/internal/logger"
	"github.com/ngrash/go-zoneinfo/store"
	"github.com/ngrash/go-zoneinfo/tzc"
	"github.com/ngrash/go-zoneinfo/tzsource"
)

func main() {
	cobra.CheckErr(NewCmd(afero.NewOsFs()).ExecuteContext(context.Background()))
}

// NewCmd returns the root command. Sources and the dir store live in fsys.
func NewCmd(fsys afero.Fs) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "tzcompile [flags] file ...",
		Short:         "tzcompile compiles tzdb source files into zone artifacts",
		Long:          "tzcompile reads the named data files, relative to the source directory when one is given, or every data file of a tzdata archive. It writes one artifact per zone plus the ZoneInfoMap to the destination, if there is one.",
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && cmd.Flags().NFlag() == 0 {
				cmd.Print(cmd.UsageString())
				return nil
			}
			return run(cmd, fsys, args)
		},
	}
	cmd.Flags().BoolP("help", "?", false, "show usage")
	cmd.Flags().StringP("src", "s", "", "`<dir>` with tzdb data files")
	cmd.Flags().StringP("dst", "d", "", "existing `<path>` to write the artifacts to")
	cmd.Flags().String("archive", "", "`<file>` tzdata tar.gz to read instead of --src")
	cmd.Flags().String("store", "", "store backend at --dst, dir or pebble")
	cmd.Flags().String("config", "", "`<file>` YAML configuration")
	cmd.Flags().String("log-level", "", "debug, info, warn or error")
	cmd.Flags().String("log-format", "", "text or json")
	cmd.Flags().Bool("skip-validation", false, "do not validate compiled zones")
	cmd.Flags().Int("horizon", 0, "`<year>` to stop expanding rules of zones without a tail")
	cmd.Flags().Int("window-from", 0, "first `<year>` of the validation window")
	cmd.Flags().Int("window-to", 0, "last `<year>` of the validation window")
	return cmd
}

// loadConfig layers the flags that were set over the file and environment configuration.
func loadConfig(cmd *cobra.Command, fsys afero.Fs) (config.Config, error) {
	f := cmd.Flags()
	path, _ := f.GetString("config")
	cfg, err := config.Load(fsys, path, nil)
	if err != nil {
		return cfg, err
	}
	for name, dst := range map[string]*string{
		"src":        &cfg.Source,
		"dst":        &cfg.Destination,
		"archive":    &cfg.Archive,
		"store":      &cfg.Store,
		"log-level":  &cfg.LogLevel,
		"log-format": &cfg.LogFormat,
	} {
		if f.Changed(name) {
			*dst, _ = f.GetString(name)
		}
	}
	for name, dst := range map[string]*int{
		"horizon":     &cfg.HorizonYear,
		"window-from": &cfg.WindowFrom,
		"window-to":   &cfg.WindowTo,
	} {
		if f.Changed(name) {
			*dst, _ = f.GetInt(name)
		}
	}
	if f.Changed("skip-validation") {
		cfg.SkipValidation, _ = f.GetBool("skip-validation")
	}
	return cfg, cfg.Validate()
}

func run(cmd *cobra.Command, fsys afero.Fs, args []string) error {
	cfg, err := loadConfig(cmd, fsys)
	if err != nil {
		return err
	}
	if cfg.Archive == "" && len(args) == 0 {
		cmd.Print(cmd.UsageString())
		return nil
	}
	log, err := logger.New(cmd.ErrOrStderr(), cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}

	// Fail before compiling if the result cannot be written.
	if cfg.Destination != "" {
		if err := store.CheckDestination(fsys, cfg.Destination); err != nil {
			return err
		}
	}

	rel, err := readSources(fsys, cfg, args)
	if err != nil {
		return err
	}
	log.Info("read sources", "files", len(rel.DataFiles), "version", rel.Version)

	opts := []tzc.Option{
		tzc.WithLogger(log),
		tzc.WithBuildOptions(cfg.BuildOptions()),
		tzc.WithWindow(cfg.Window()),
	}
	if cfg.SkipValidation {
		opts = append(opts, tzc.WithoutValidation())
	}
	c := tzc.New(opts...)
	if err := c.AddRelease(rel); err != nil {
		return err
	}
	res, err := c.Compile()
	if err != nil {
		return err
	}
	if cfg.Destination == "" {
		log.Info("compiled, no destination to write to",
			slog.Int("zones", len(res.Zones)),
			slog.Int("links", len(res.Links)),
			slog.Int("problems", len(res.Problems)))
		return nil
	}

	s, err := openStore(fsys, cfg)
	if err != nil {
		return err
	}
	if err := res.Save(s); err != nil {
		_ = s.Close()
		return err
	}
	if err := s.Close(); err != nil {
		return fmt.Errorf("close store: %w", err)
	}
	log.Info("compiled",
		slog.Int("zones", len(res.Zones)),
		slog.Int("links", len(res.Links)),
		slog.Int("problems", len(res.Problems)),
		slog.String("destination", cfg.Destination))
	return nil
}

func readSources(fsys afero.Fs, cfg config.Config, names []string) (*tzsource.Release, error) {
	if cfg.Archive == "" {
		return tzsource.ReadDir(fsys, cfg.Source, names...)
	}
	if len(names) > 0 {
		return nil, errors.New("file names cannot be combined with --archive")
	}
	f, err := fsys.Open(cfg.Archive)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	defer f.Close()
	return tzsource.ReadArchive(f)
}

func openStore(fsys afero.Fs, cfg config.Config) (store.Store, error) {
	if cfg.Store == config.StorePebble {
		if _, ok := fsys.(*afero.OsFs); !ok {
			return nil, fmt.Errorf("the %s store needs the operating system's file system", config.StorePebble)
		}
		return store.OpenPebble(cfg.Destination, nil)
	}
	return store.NewDir(fsys, cfg.Destination), nil
}
