package app

import (
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/mattn/go-colorable"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/readeck/instafilter/configs"
	"github.com/readeck/instafilter/pkg/img"
)

var rootCmd = &cobra.Command{
	Use:               "instafilter",
	Short:             "Apply photo filters with a single intensity control",
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: appPersistentPreRun,
}

var configPath string

func init() {
	rootCmd.PersistentFlags().StringVarP(
		&configPath, "config", "c",
		"", "Configuration file",
	)
	rootCmd.PersistentFlags().StringVarP(
		&configs.Config.Main.LogLevel, "level", "l",
		configs.Config.Main.LogLevel, "Log level",
	)
}

func appPersistentPreRun(c *cobra.Command, _ []string) error {
	// Flags win over the configuration file
	changed := map[*pflag.Flag]string{}
	c.Flags().Visit(func(f *pflag.Flag) {
		if f.Changed {
			changed[f] = f.Value.String()
		}
	})
	if err := configs.LoadConfiguration(configPath); err != nil {
		return fmt.Errorf("error loading configuration (%s)", err)
	}
	for f, v := range changed {
		if err := f.Value.Set(v); err != nil {
			return fmt.Errorf("invalid flag --%s (%s)", f.Name, err)
		}
	}

	// Enforce debug in dev mode
	if configs.Config.Main.DevMode {
		configs.Config.Main.LogLevel = "debug"
	}

	// Setup logger
	lvl, err := log.ParseLevel(configs.Config.Main.LogLevel)
	if err != nil {
		lvl = log.InfoLevel
	}
	log.SetLevel(lvl)
	log.WithField("log_level", lvl).Debug()
	if configs.Config.Main.DevMode {
		log.SetFormatter(&log.TextFormatter{
			ForceColors: true,
		})
		log.SetOutput(colorable.NewColorableStdout())
		log.SetLevel(log.TraceLevel)
	}

	if configs.Config.Images.MaxPixels > 0 {
		img.MaxPixels = configs.Config.Images.MaxPixels
	}

	return nil
}

// Run starts the application
func Run() error {
	go func() {
		sigchan := make(chan os.Signal, 10)
		signal.Notify(sigchan,
			os.Interrupt,
			syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT,
			syscall.SIGHUP,
		)
		<-sigchan
		println("Bye!")

		cleanup()
		os.Exit(0)
	}()

	return rootCmd.Execute()
}

var (
	cleanupLock sync.Mutex
	cleanups    []func()
)

// onCleanup registers a function to run on interruption.
func onCleanup(fn func()) {
	cleanupLock.Lock()
	defer cleanupLock.Unlock()
	cleanups = append(cleanups, fn)
}

func cleanup() {
	cleanupLock.Lock()
	defer cleanupLock.Unlock()
	for _, fn := range cleanups {
		fn()
	}
}
