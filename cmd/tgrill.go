package main

import (
	"os"
	"os/signal"
	"sort"
	"syscall"

	"tgrill/pkg/app"
	"tgrill/pkg/app/config"

	"github.com/urfave/cli/v2"
	"github.com/womat/debug"
)

const defaultConfigFile = "/opt/womat/config/" + app.MODULE + ".yaml"

func probesFlag() cli.Flag {
	return &cli.IntSliceFlag{Name: "probes", Usage: "probe `OFFSETS` (internal, probe 1..3) relative to the marker byte"}
}

func main() {
	exitCode := 1
	defer func() {
		os.Exit(exitCode)
	}()

	// cfg holds the application configuration
	cfg := config.NewConfig()

	cliApp := &cli.App{
		Name:    app.MODULE,
		Usage:   "Wi-Fi pellet smoker bridge over MQTT",
		Version: app.VERSION,
		Description: "Keeps the state of a pellet smoker in sync with the device:" +
			"\n the smoker sends its status, probe temperatures and target temperature over MQTT," +
			"\n tgrill polls the device, publishes its state and accepts power and target commands by web services.",
		UsageText: "tgrill [--config <file>] [--log error|debug|trace] [--device <id>] [--capture <file>]" +
			"\n   tgrill decode HEX..." +
			"\n   tgrill replay FILE" +
			"\n\nEXAMPLE:" +
			"\n\tstart the bridge and use the configuration file tgrill.yaml" +
			"\n\t\ttgrill --config /opt/womat/tgrill.yaml" +
			"\n\tdecode a status frame" +
			"\n\t\ttgrill decode FA07FE0B0101FF",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Destination: &cfg.Flag.ConfigFile, Value: defaultConfigFile, Usage: "load configuration from `FILE`"},
			&cli.StringFlag{Name: "log", Aliases: []string{"l"}, Destination: &cfg.Flag.LogLevel, Usage: "`LEVEL` defines the log level (fatal|info|warning|error|debug|trace)"},
			&cli.StringFlag{Name: "device", Aliases: []string{"d"}, Destination: &cfg.Flag.DeviceID, Usage: "`ID` of the device, overrides the config file"},
			&cli.StringFlag{Name: "capture", Destination: &cfg.Flag.Capture, Usage: "capture all frames to `FILE`"},
		},
		Commands: []*cli.Command{
			{
				Name:      "decode",
				Usage:     "decode hex encoded frames",
				ArgsUsage: "HEX...",
				Flags:     []cli.Flag{probesFlag()},
				Action: func(ctx *cli.Context) error {
					return decodeFrames(ctx.App.Writer, ctx.Args().Slice(), ctx.IntSlice("probes"))
				},
			},
			{
				Name:      "replay",
				Usage:     "decode the frames of a capture file",
				ArgsUsage: "FILE",
				Flags:     []cli.Flag{probesFlag()},
				Action: func(ctx *cli.Context) error {
					if ctx.NArg() != 1 {
						return cli.Exit("replay expects one capture file", 2)
					}
					return replay(ctx.App.Writer, ctx.Args().First(), ctx.IntSlice("probes"))
				},
			},
		},
		Action: func(ctx *cli.Context) error {
			if err := cfg.LoadConfig(); err != nil {
				return err
			}

			debug.SetDebug(cfg.Debug.File, cfg.Debug.Flag)
			defer func() {
				debug.InfoLog.Printf("closing debug file %s", cfg.Debug.FileString)
				_ = cfg.Debug.File.Close()
			}()

			a, err := app.New(cfg)
			defer func() {
				debug.InfoLog.Printf("closing app %s", app.Version())
				_ = a.Close()
			}()

			if err != nil {
				return err
			}

			debug.InfoLog.Printf("starting app %s for device %s", app.Version(), cfg.Device.ID)
			if err = a.Run(); err != nil {
				return err
			}

			// capture exit signals to ensure resources are released on exit.
			quit := make(chan os.Signal, 1)
			signal.Notify(quit, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
			defer signal.Stop(quit)

			// wait for am os.Interrupt signal (CTRL C)
			sig := <-quit
			debug.InfoLog.Printf("Got %s signal. Aborting...", sig)

			return nil
		},
	}

	// we expect to have more command line flags in the future - sort them
	sort.Sort(cli.FlagsByName(cliApp.Flags))
	sort.Sort(cli.CommandsByName(cliApp.Commands))

	err := cliApp.Run(os.Args)
	if err != nil {
		debug.FatalLog.Print(err)
		exitCode = 1
		return
	}

	exitCode = 0
}
