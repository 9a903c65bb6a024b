// The prolix tool expands .trpx (and legacy .trs) containers back into
// grayscale TIFF files, removing each source file on success.
package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/urfave/cli/v2"

	"github.com/emdiffract/trpx/cmdutil"
)

func main() {
	app := cli.App{
		Name:      "prolix",
		Usage:     "Expand .trpx containers to grayscale TIFF images",
		ArgsUsage: "FILE ...",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "print compute times",
			},
			&cli.BoolFlag{
				Name:  "list",
				Usage: "list each expanded file",
			},
			&cli.BoolFlag{
				Name:  "keep",
				Usage: "keep source files instead of removing them",
			},
		},
		Action: run,
	}

	err := app.Run(os.Args)
	if err != nil {
		log.Fatalf("fatal error: %s", err.Error())
	}
}

func run(ctx *cli.Context) error {
	if ctx.NArg() == 0 {
		return cli.ShowAppHelp(ctx)
	}

	opts := cmdutil.Options{KeepSource: ctx.Bool("keep")}

	start := time.Now()
	expanded := 0
	var failures *multierror.Error
	for _, path := range ctx.Args().Slice() {
		report, err := cmdutil.ExpandFile(path, opts)
		if err != nil {
			fmt.Fprintf(os.Stderr, "prolix: %s: %s\n", path, err)
			failures = multierror.Append(failures, err)
			continue
		}
		if report == nil {
			continue
		}
		expanded++
		if ctx.Bool("list") {
			fmt.Printf("Expanded: %s\n", path)
		}
	}

	if ctx.Bool("verbose") {
		fmt.Printf("prolix expanded: %d files\n", expanded)
		fmt.Printf("elapsed time   : %.3f seconds\n", time.Since(start).Seconds())
	}

	if err := failures.ErrorOrNil(); err != nil {
		return cli.Exit(fmt.Sprintf("%d file(s) failed", len(failures.Errors)), 1)
	}
	return nil
}
