// The terse tool compresses grayscale TIFF files into .trpx containers,
// removing each source file on success.
package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/urfave/cli/v2"

	trpx "github.com/emdiffract/trpx"
	"github.com/emdiffract/trpx/cmdutil"
)

func main() {
	app := cli.App{
		Name:      "terse",
		Usage:     "Compress grayscale TIFF images to .trpx containers",
		ArgsUsage: "FILE ...",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "print compute times and overall compression rate",
			},
			&cli.BoolFlag{
				Name:  "list",
				Usage: "list each compressed file",
			},
			&cli.BoolFlag{
				Name:  "keep",
				Usage: "keep source files instead of removing them",
			},
			&cli.IntFlag{
				Name:  "block",
				Usage: "values per compression block",
				Value: trpx.DefaultBlock,
			},
			&cli.StringFlag{
				Name:  "csv",
				Usage: "write a per-file compression report to `FILE`",
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

	opts := cmdutil.Options{
		Block:      ctx.Int("block"),
		KeepSource: ctx.Bool("keep"),
	}

	start := time.Now()
	var reports []*cmdutil.Report
	var failures *multierror.Error
	for _, path := range ctx.Args().Slice() {
		report, err := cmdutil.CompressFile(path, opts)
		if err != nil {
			fmt.Fprintf(os.Stderr, "terse: %s: %s\n", path, err)
			failures = multierror.Append(failures, err)
			continue
		}
		if report == nil {
			continue
		}
		reports = append(reports, report)
		if ctx.Bool("list") {
			fmt.Printf("Compressed: %s\n", path)
		}
	}
	elapsed := time.Since(start)

	if csvPath := ctx.String("csv"); csvPath != "" && len(reports) > 0 {
		if err := cmdutil.WriteCSV(csvPath, reports); err != nil {
			fmt.Fprintf(os.Stderr, "terse: %s: %s\n", csvPath, err)
			failures = multierror.Append(failures, err)
		}
	}

	if ctx.Bool("verbose") {
		var rate float64
		for _, r := range reports {
			rate += r.Ratio
		}
		if len(reports) > 0 {
			rate /= float64(len(reports))
		}
		fmt.Printf("terse compressed: %d files\n", len(reports))
		fmt.Printf("elapsed time    : %.3f seconds\n", elapsed.Seconds())
		fmt.Printf("compression rate: %.1f%%\n", 100*(1-rate))
	}

	if err := failures.ErrorOrNil(); err != nil {
		return cli.Exit(fmt.Sprintf("%d file(s) failed", len(failures.Errors)), 1)
	}
	return nil
}
