// Package imgio handles the forward pipeline's input frame files:
// parsing and validating Frame-<f>-Layer-<l>.png names, and
// decoding a folder of them in parallel.
package imgio

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"sync"

	"github.com/spritekit/wan/wanerr"
)

var nameRe = regexp.MustCompile(`^Frame-(\d+)-Layer-(\d+)\.png$`)

// ParseName extracts the frame and layer indices from a
// Frame-<f>-Layer-<l>.png basename, failing with InvalidFilename if it
// does not match that pattern.
func ParseName(name string) (frame, layer int, err error) {
	m := nameRe.FindStringSubmatch(name)
	if m == nil {
		return 0, 0, wanerr.New(wanerr.InvalidFilename, name,
			"does not match Frame-<f>-Layer-<l>.png")
	}
	if _, err := fmt.Sscanf(m[1], "%d", &frame); err != nil {
		return 0, 0, wanerr.Wrap(wanerr.InvalidFilename, name, err)
	}
	if _, err := fmt.Sscanf(m[2], "%d", &layer); err != nil {
		return 0, 0, wanerr.Wrap(wanerr.InvalidFilename, name, err)
	}
	return frame, layer, nil
}

// Decoded pairs a source path with its decoded image, or an error.
type Decoded struct {
	Path  string
	Frame int
	Layer int
	Img   *image.Paletted
	Err   error
}

// DecodeDirParallel decodes every Frame-<f>-Layer-<l>.png in dir. Decode
// work runs on up to GOMAXPROCS goroutines, one file per worker at a
// time, mirroring the engine's own bounded-fan-out frame decoder; small
// directories (two files or fewer) decode sequentially instead, since
// spinning up workers would cost more than it saves.
func DecodeDirParallel(dir string) ([]Decoded, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, wanerr.Wrap(wanerr.MissingFile, dir, err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if nameRe.MatchString(e.Name()) {
			names = append(names, e.Name())
		}
	}
	if len(names) == 0 {
		return nil, wanerr.New(wanerr.MissingFile, dir, "no Frame-*-Layer-*.png files found")
	}

	results := make([]Decoded, len(names))
	if len(names) <= 2 {
		for i, name := range names {
			results[i] = decodeOne(dir, name)
		}
		return results, nil
	}

	numWorkers := runtime.GOMAXPROCS(0)
	if numWorkers > len(names) {
		numWorkers = len(names)
	}

	work := make(chan int, len(names))
	for i := range names {
		work <- i
	}
	close(work)

	var wg sync.WaitGroup
	for w := 0; w < numWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range work {
				results[i] = decodeOne(dir, names[i])
			}
		}()
	}
	wg.Wait()
	return results, nil
}

func decodeOne(dir, name string) Decoded {
	path := filepath.Join(dir, name)
	frame, layer, err := ParseName(name)
	if err != nil {
		return Decoded{Path: path, Err: err}
	}
	f, err := os.Open(path)
	if err != nil {
		return Decoded{Path: path, Frame: frame, Layer: layer, Err: err}
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		return Decoded{Path: path, Frame: frame, Layer: layer,
			Err: wanerr.Wrap(wanerr.WrongPixelFormat, path, err)}
	}
	pimg, ok := img.(*image.Paletted)
	if !ok {
		return Decoded{Path: path, Frame: frame, Layer: layer,
			Err: wanerr.New(wanerr.WrongPixelFormat, path, "not an indexed PNG")}
	}
	return Decoded{Path: path, Frame: frame, Layer: layer, Img: pimg}
}
