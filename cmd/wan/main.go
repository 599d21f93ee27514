// Command wan converts between engine-ripped sprite frame PNGs and the
// deduplicated chunk/cel object format used by the handheld's actor
// loader.
//
// Usage:
//
//	wan forward [options] <in-dir> <out-dir>   Frame-*-Layer-*.png -> object folder
//	wan reverse [options] <in-dir> <out-dir>   object folder -> Frame-*-Layer-*.png
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spritekit/wan/config"
	"github.com/spritekit/wan/pipeline"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "forward":
		err = runForward(os.Args[2:])
	case "reverse":
		err = runReverse(os.Args[2:])
	case "-h", "-help", "--help", "help":
		printUsage()
		return
	default:
		fmt.Fprintf(os.Stderr, "wan: unknown command %q\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "wan: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `Usage:
  wan forward [options] <in-dir> <out-dir>   Frame PNGs -> object folder
  wan reverse [options] <in-dir> <out-dir>   object folder -> Frame PNGs

Run "wan <command> -h" for command-specific options.
`)
}

func runForward(args []string) error {
	fs := flag.NewFlagSet("forward", flag.ContinueOnError)
	effect := fs.Bool("effect", false, "treat the sprite as an effect (tighter palette/memory budget)")
	configPath := fs.String("config", "", "existing config.json to reuse instead of the defaults")
	minDensity := fs.Float64("min_density", 0, "override min_density (0=use config default)")
	dryRun := fs.Bool("dry-run", false, "report chunk/frame/warning counts, discarding the output folder afterward")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 2 {
		return fmt.Errorf("forward: need <in-dir> <out-dir>\nUsage: wan forward [options] <in-dir> <out-dir>")
	}
	in, out := fs.Arg(0), fs.Arg(1)

	kind := config.KindObject
	if *effect {
		kind = config.KindEffect
	}

	cfg, err := loadOrDefaultConfig(*configPath, kind)
	if err != nil {
		return err
	}
	if *minDensity > 0 {
		cfg.MinDensity = *minDensity
	}

	p := pipeline.New()
	if *dryRun {
		out = out + ".dry-run-discard"
		defer os.RemoveAll(out)
	}
	sum, err := p.Forward(context.Background(), cfg, kind, in, out)
	if err != nil {
		return err
	}
	reportSummary(sum)
	return nil
}

func runReverse(args []string) error {
	fs := flag.NewFlagSet("reverse", flag.ContinueOnError)
	overlapPolicy := fs.String("overlap", "chunk", "overlap resolution policy: chunk/pixel/palette/none")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 2 {
		return fmt.Errorf("reverse: need <in-dir> <out-dir>\nUsage: wan reverse [options] <in-dir> <out-dir>")
	}
	in, out := fs.Arg(0), fs.Arg(1)

	cfgFile, err := os.Open(filepath.Join(in, "config.json"))
	var cfg *config.Config
	if err == nil {
		defer cfgFile.Close()
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return err
		}
	} else {
		cfg = config.Default(config.KindObject)
	}
	cfg.OverlapPolicy = *overlapPolicy

	p := pipeline.New()
	sum, err := p.Reverse(context.Background(), cfg, in, out)
	if err != nil {
		return err
	}
	reportSummary(sum)
	return nil
}

func loadOrDefaultConfig(path string, kind config.SpriteKind) (*config.Config, error) {
	if path == "" {
		return config.Default(kind), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return config.Load(f)
}

func reportSummary(sum *pipeline.Summary) {
	fmt.Printf("frames: %d  chunks: %d\n", sum.FrameCount, sum.ChunkCount)
	for _, w := range sum.Warnings {
		if w.ChunkCount > 0 {
			fmt.Printf("warning: frame %d exceeds chunk limit (%d)\n", w.FrameID, w.ChunkCount)
		}
		if w.Memory > 0 {
			fmt.Printf("warning: animation %d exceeds memory budget (%d > %d)\n", w.AnimID, w.Memory, w.Budget)
		}
	}
}
