package main

import (
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

func newApp() *cli.App {
	return &cli.App{
		Name:  "boardcheck",
		Usage: "Verify that riders boarded the vehicle they claim",
		Commands: []*cli.Command{
			serveCommand(),
			notifyCommand(),
			createStaffCommand(),
		},
	}
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.WithError(err).Fatal("boardcheck exited")
	}
}
