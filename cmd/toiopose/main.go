package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	"github.com/bft-labs/toiopose/internal/adapters/ble"
	logAdapter "github.com/bft-labs/toiopose/internal/adapters/log"
	"github.com/bft-labs/toiopose/internal/adapters/mqtt"
	"github.com/bft-labs/toiopose/internal/adapters/sim"
	"github.com/bft-labs/toiopose/internal/adapters/ws"
	"github.com/bft-labs/toiopose/internal/cliconfig"
	"github.com/bft-labs/toiopose/pkg/toiopose"
	"github.com/bft-labs/toiopose/plugins/assetwatch"
)

const longHelp = `Stream the live posture of a toio Core Cube into a 3D viewer.

The cube model at <asset-path> is drawn at the entity path and rotated by
every quaternion the cube reports. Streaming stops when the cube's button is
pressed (or after --count samples with --stop count). Ctrl-C stops it at
any time. With --dry-run a simulated cube presses its button after 5s.

Sinks:
  - the log (always; poses at debug level)
  - websocket clients on --ws-addr (/ws stream, /api/pose latest pose)
  - an MQTT broker on --mqtt-broker (scene records retained)

Configuration is layered: defaults, then $HOME/.toiopose/config.toml (or
--config, TOML or YAML), then TOIOPOSE_* environment variables, then flags.`

var exampleUsage = strings.TrimSpace(`
  toiopose ./assets/toiocorecube_v003.gltf
  toiopose --address E3:4A:0B:1C:2D:3F --ws-addr :8080 cube.gltf
  toiopose --dry-run --stop count --count 200 -v cube.gltf
`)

// defaultSimPressAfter ends a button-gated dry run on its own.
const defaultSimPressAfter = 5 * time.Second

// simConfig builds the simulated cube for --dry-run. The button is only
// pressed when it is what stops the run.
func simConfig(cfg cliconfig.Config, pressAfter time.Duration, motionEvery int) sim.Config {
	sc := sim.Config{MotionEvery: motionEvery}
	if cfg.StopMode == cliconfig.StopModeButton {
		sc.PressAfter = pressAfter
	}
	return sc
}

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func main() {
	cfg := cliconfig.DefaultConfig()
	var (
		cfgPath        string
		verbose, quiet bool
		simPressAfter  time.Duration
		simMotionEvery int
	)

	log := cliconfig.Logger(cliconfig.LogLevel(false, false))

	root := &cobra.Command{
		Use:           "toiopose [flags] <asset-path>",
		Short:         "Stream toio Core Cube posture into a 3D viewer",
		Long:          longHelp,
		Example:       exampleUsage,
		Version:       fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			log = cliconfig.Logger(cliconfig.LogLevel(verbose, quiet))

			if len(args) == 0 || strings.TrimSpace(args[0]) == "" {
				log.Info().Msg("no asset path given, nothing to do")
				return nil
			}
			cfg.AssetPath = args[0]

			cfgFile := cfgPath
			if cfgFile == "" {
				cfgFile = cliconfig.DefaultConfigPath()
			}

			// Build set of changed flags
			changed := map[string]bool{}
			cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

			if cfgFile != "" && cliconfig.FileExists(cfgFile) {
				fc, err := cliconfig.LoadFileConfig(cfgFile)
				if err != nil {
					return fmt.Errorf("load config: %w", err)
				}
				if err := cliconfig.ApplyFileConfig(&cfg, fc, changed); err != nil {
					return err
				}
			}

			// TOIOPOSE_* override file config but not explicit flags
			if err := cliconfig.ApplyEnvConfig(&cfg, changed); err != nil {
				return err
			}

			if err := cfg.Validate(); err != nil {
				return err
			}
			reporting, err := cfg.Reporting()
			if err != nil {
				return err
			}

			log.Debug().Interface("config", cfg).Msg("configuration")

			logger := logAdapter.NewZerologAdapterWithLogger(log)

			opts := []toiopose.Option{
				toiopose.WithLogger(logger),
				toiopose.WithRenderer(logAdapter.NewRenderer(logger)),
			}

			if cfg.DryRun {
				opts = append(opts, toiopose.WithTransport(sim.NewTransport(
					simConfig(cfg, simPressAfter, simMotionEvery), logger)))
			} else {
				bleCfg := ble.DefaultConfig()
				bleCfg.Adapter = cfg.Adapter
				bleCfg.DeviceName = cfg.DeviceName
				bleCfg.ScanTimeout = cfg.ScanTimeout
				transport := ble.NewTransport(bleCfg, logger)
				defer transport.Close()
				opts = append(opts, toiopose.WithTransport(transport))
			}

			if cfg.WSAddr != "" {
				opts = append(opts, toiopose.WithRenderer(ws.NewRenderer(cfg.WSAddr, logger)))
			}
			if cfg.MQTTBroker != "" {
				mqttCfg := mqtt.DefaultConfig()
				mqttCfg.Broker = cfg.MQTTBroker
				mqttCfg.ClientID = cfg.MQTTClientID
				mqttCfg.TopicPrefix = cfg.MQTTTopicPrefix
				opts = append(opts, toiopose.WithRenderer(mqtt.NewRenderer(mqttCfg, logger)))
			}
			if cfg.WatchAsset {
				opts = append(opts, assetwatch.WithDefaultAssetWatch())
			}

			p, err := toiopose.New(toiopose.Config{
				Locator:      cfg.Locator(),
				AssetPath:    cfg.AssetPath,
				Scene:        cfg.Scene,
				Entity:       cfg.Entity,
				MatImage:     cfg.MatImage,
				PollInterval: cfg.PollInterval,
				Reporting:    reporting,
				StopMode:     cfg.StopMode,
				SampleCount:  int64(cfg.SampleCount),
				Timeout:      cfg.Timeout,
			}, opts...)
			if err != nil {
				return fmt.Errorf("create toiopose: %w", err)
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			res, err := p.Run(ctx)
			if errors.Is(err, toiopose.ErrCancelled) {
				log.Info().Int64("samples", res.Samples).Msg("cancelled")
				return nil
			}
			if err != nil {
				return err
			}
			log.Info().Int64("samples", res.Samples).Msg("done")
			return nil
		},
	}

	// Flags
	root.Flags().StringVar(&cfgPath, "config", "", "path to config file (default: $HOME/.toiopose/config.toml)")
	root.Flags().BoolVarP(&verbose, "verbose", "v", false, "log every posture sample")
	root.Flags().BoolVarP(&quiet, "quiet", "q", false, "log warnings and errors only")
	root.Flags().BoolVar(&cfg.DryRun, "dry-run", cfg.DryRun, "stream from a simulated cube instead of Bluetooth")

	root.Flags().StringVar(&cfg.DeviceName, "device-name", cfg.DeviceName, "advertised name to connect to")
	root.Flags().StringVar(&cfg.DeviceAddress, "address", cfg.DeviceAddress, "cube MAC address (overrides --device-name)")
	root.Flags().StringVar(&cfg.Adapter, "adapter", cfg.Adapter, "BlueZ adapter")
	root.Flags().DurationVar(&cfg.ScanTimeout, "scan-timeout", cfg.ScanTimeout, "how long to scan for the cube")

	root.Flags().DurationVar(&cfg.PollInterval, "poll", cfg.PollInterval, "how often the stop condition is checked")
	root.Flags().IntVar(&cfg.ReportInterval, "report-interval", cfg.ReportInterval, "posture report interval in 10ms units (1-255)")
	root.Flags().StringVar(&cfg.ReportCondition, "report-condition", cfg.ReportCondition, "posture report condition: always or on-change")
	root.Flags().StringVar(&cfg.StopMode, "stop", cfg.StopMode, "stop condition: button or count")
	root.Flags().IntVar(&cfg.SampleCount, "count", cfg.SampleCount, "samples to stream with --stop count")
	root.Flags().DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "give up after this long (0 = never)")

	root.Flags().StringVar(&cfg.Scene, "scene", cfg.Scene, "scene name sent to the viewer")
	root.Flags().StringVar(&cfg.Entity, "entity", cfg.Entity, "entity path the cube is drawn at")
	root.Flags().StringVar(&cfg.MatImage, "mat-image", cfg.MatImage, "play mat image drawn under the cube (optional)")
	root.Flags().BoolVar(&cfg.WatchAsset, "watch-asset", cfg.WatchAsset, "re-draw the model when the asset file changes")

	root.Flags().StringVar(&cfg.WSAddr, "ws-addr", cfg.WSAddr, "serve the scene over websocket on this address (optional)")
	root.Flags().StringVar(&cfg.MQTTBroker, "mqtt-broker", cfg.MQTTBroker, "publish the scene to this MQTT broker (optional)")
	root.Flags().StringVar(&cfg.MQTTClientID, "mqtt-client-id", cfg.MQTTClientID, "MQTT client ID")
	root.Flags().StringVar(&cfg.MQTTTopicPrefix, "mqtt-topic-prefix", cfg.MQTTTopicPrefix, "MQTT topic prefix")

	root.Flags().DurationVar(&simPressAfter, "sim-press-after", defaultSimPressAfter, "with --dry-run, press the simulated button after this long (0 = never)")
	root.Flags().IntVar(&simMotionEvery, "sim-motion-every", 0, "with --dry-run, interleave a motion payload every N samples")
	for _, name := range []string{"sim-press-after", "sim-motion-every"} {
		if err := root.Flags().MarkHidden(name); err != nil {
			log.Info().Err(err).Msg("failed to hide flag")
		}
	}

	if err := root.Execute(); err != nil {
		log.Error().Err(err).Msg("toiopose")
		os.Exit(1)
	}
}
