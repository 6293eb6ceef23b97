package main

import (
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/bit-hack/pico8dump"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

const defaultDB = "pico8dump.db"

func init() {
	cli.VersionFlag = &cli.BoolFlag{
		Name:    "version",
		Aliases: []string{"V"},
		Usage:   "print the version",
	}
}

func newLogger(c *cli.Context) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	if c.Bool("verbose") {
		logger.SetLevel(logrus.DebugLevel)
	}
	return logger
}

func main() {
	app := cli.NewApp()

	app.Name = "pico8dump"
	app.Usage = "PICO-8 cartridge dumping utility"
	app.Version = "1.0.0"

	cwd, err := os.Getwd()
	if err != nil {
		logrus.Fatal(err)
	}

	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:    "db",
			EnvVars: []string{"PICO8DUMP_DB"},
			Value:   filepath.Join(cwd, defaultDB),
			Usage:   "path to catalog database",
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"v"},
			Usage:   "increase verbosity",
		},
	}

	app.Commands = []*cli.Command{
		{
			Name:        "dump",
			Usage:       "Dump source and sprite sheet of every cart in a directory",
			Description: "Every *.p8.png file below DIRECTORY is decoded; the source is written alongside as .lua and the sprite sheet as .bmp",
			ArgsUsage:   "[DIRECTORY]",
			Flags: []cli.Flag{
				&cli.BoolFlag{
					Name:  "strict",
					Usage: "treat truncated source as an error",
				},
				&cli.IntFlag{
					Name:  "scale",
					Value: 1,
					Usage: "enlarge the sprite sheet by `N`",
				},
				&cli.BoolFlag{
					Name:  "legacy-gfx",
					Usage: "only write the top half of the sprite sheet",
				},
			},
			Action: func(c *cli.Context) error {
				dir := cwd
				if c.NArg() > 0 {
					dir = c.Args().First()
				}

				logger := newLogger(c)

				d, err := pico8dump.New(c.String("db"), logger,
					pico8dump.Strict(c.Bool("strict")),
					pico8dump.Scale(c.Int("scale")),
					pico8dump.LegacyGraphics(c.Bool("legacy-gfx")))
				if err != nil {
					return cli.NewExitError(err, 1)
				}
				defer d.Close()

				s, err := d.Scan(dir)
				if err != nil {
					return cli.NewExitError(err, 1)
				}

				logger.WithFields(logrus.Fields{
					"dumped": s.Dumped,
					"failed": s.Failed,
				}).Info("Scan complete")

				return nil
			},
		},
		{
			Name:  "list",
			Usage: "List catalogued carts",
			Action: func(c *cli.Context) error {
				db, err := pico8dump.NewCartDB(c.String("db"))
				if err != nil {
					return cli.NewExitError(err, 1)
				}
				defer db.Close()

				entries, err := db.List()
				if err != nil {
					return cli.NewExitError(err, 1)
				}

				w := tabwriter.NewWriter(os.Stdout, 0, 8, 1, ' ', 0)
				fmt.Fprintln(w, "NAME\tVERSION\tSOURCE\tGFX CRC\tSHA1")
				for _, e := range entries {
					length := fmt.Sprintf("%d", e.Length)
					if e.Truncated() {
						length = fmt.Sprintf("%d/%d", e.Length, e.Declared)
					}
					fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\n", e.Name, e.Version, length, e.GraphicsCRC, e.SHA1)
				}

				return w.Flush()
			},
		},
		{
			Name:      "source",
			Usage:     "Print the source of a catalogued cart",
			ArgsUsage: "NAME|SHA1",
			Action: func(c *cli.Context) error {
				if c.NArg() < 1 {
					cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
				}

				db, err := pico8dump.NewCartDB(c.String("db"))
				if err != nil {
					return cli.NewExitError(err, 1)
				}
				defer db.Close()

				e, err := db.FindBySHA1(c.Args().First())
				if err == nil && e == nil {
					e, err = db.FindByName(c.Args().First())
				}
				if err != nil {
					return cli.NewExitError(err, 1)
				}
				if e == nil {
					return cli.NewExitError(fmt.Sprintf("no cart matching %q", c.Args().First()), 1)
				}

				b, err := db.Source(e.SHA1)
				if err != nil {
					return cli.NewExitError(err, 1)
				}

				_, err = os.Stdout.Write(b)
				return err
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		logrus.Fatal(err)
	}
}
