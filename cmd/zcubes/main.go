package main

import (
	"context"
	"log"
	"os"
	"os/signal"

	"github.com/urfave/cli"

	"github.com/snakehand/zcubes/internal/params"
	"github.com/snakehand/zcubes/internal/reporter"
	"github.com/snakehand/zcubes/internal/supervisor"
)

// VERSION is injected by build flags.
var VERSION = "SELFBUILD"

func main() {
	if VERSION == "SELFBUILD" {
		log.SetFlags(log.LstdFlags | log.Lshortfile)
	}

	myApp := cli.NewApp()
	myApp.Name = "zcubes"
	myApp.Usage = "search for integer solutions to x^3+y^3+z^3=k"
	myApp.Version = VERSION
	myApp.ArgsUsage = "n k pmin pmax dmax zmax [options] [pcnt=N] [ccnt=N] [dcnt=N] [rcnt=N]"
	myApp.Flags = []cli.Flag{
		cli.BoolFlag{
			Name:  "profile",
			Usage: "run the full search with a single worker (profiling mode)",
		},
		cli.StringFlag{
			Name:  "checkpoint",
			Usage: "path to a checkpoint file written on exit (it is not read back on startup)",
		},
		cli.StringFlag{
			Name:  "snmp-log",
			Usage: "path (time.Format layout) for periodic CSV stats dumps",
		},
		cli.IntFlag{
			Name:  "snmp-period",
			Value: 10,
			Usage: "seconds between snmp-log rows",
		},
		cli.BoolFlag{
			Name:  "quiet",
			Usage: "suppress progress logging",
		},
		cli.BoolFlag{
			Name:  "log-json",
			Usage: "emit progress/warning lines as JSON instead of plain text",
		},
	}
	myApp.Action = run

	if err := myApp.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func run(c *cli.Context) error {
	sp, err := params.Parse(c.Args())
	if err != nil {
		return err
	}
	sp.Profile = c.Bool("profile")
	sp.CheckpointPath = c.String("checkpoint")
	sp.SNMPLogPath = c.String("snmp-log")
	sp.SNMPPeriod = c.Int("snmp-period")
	sp.Quiet = c.Bool("quiet")
	sp.LogJSON = c.Bool("log-json")

	rep := reporter.NewFileReporter(reporter.Config{
		Quiet:          sp.Quiet,
		Profiling:      sp.Profile,
		LogJSON:        sp.LogJSON,
		CheckpointPath: sp.CheckpointPath,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	go func() {
		<-sigCh
		rep.Warnf("zcubes: interrupted, shutting down")
		cancel()
	}()

	supervisor.StartSNMP(ctx, sp, rep)

	return supervisor.Run(ctx, sp, rep)
}
