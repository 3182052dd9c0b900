package seamkit

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/seamkit/seamkit/utils"
	"golang.org/x/term"
)

// Ops describes the source and the destination of a command line resize.
type Ops struct {
	Src, Dst, PipeName string
	// Format forces the output format. When empty it is derived from the
	// destination file name, or from the source for pipes.
	Format  Format
	Codec   Codec
	Spinner *utils.Spinner

	// KeepSourceSize keeps the source dimension on an axis with a zero target.
	KeepSourceSize bool
}

// Result holds the relevant information about a finished resize.
type Result struct {
	Path     string
	Format   Format
	Duration time.Duration
}

// Execute resolves the source and destination, then runs the processor.
// The source can be a local file, an URL or the pipe name for stdin.
func (op *Ops) Execute(ctx context.Context, p *Processor) (*Result, error) {
	now := time.Now()

	src, cleanup, err := op.openSource()
	if err != nil {
		return nil, err
	}
	defer cleanup()

	codec := op.Codec
	format := op.Format
	if op.Dst != op.PipeName && format == "" {
		var compressed bool
		if format, compressed, err = FormatFromPath(op.Dst); err != nil {
			return nil, err
		}
		codec.Compress = codec.Compress || compressed
	}

	var dst io.Writer
	var file *os.File
	if op.Dst == op.PipeName {
		if term.IsTerminal(int(os.Stdout.Fd())) {
			return nil, errors.New("`-` should be used with a pipe for stdout")
		}
		dst = os.Stdout
	} else {
		file, err = os.OpenFile(op.Dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
		if err != nil {
			return nil, errors.Wrap(err, "unable to create the destination file")
		}
		dst = file
	}

	if op.Spinner != nil {
		op.Spinner.Start()
		defer op.Spinner.Stop()
	}

	err = op.process(ctx, p, src, dst, codec, format)
	if file != nil {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = cerr
		}
		if err != nil {
			// remove the generated image file in case of an error
			os.Remove(file.Name())
		}
	}
	if err != nil {
		return nil, err
	}

	return &Result{
		Path:     op.Dst,
		Format:   format,
		Duration: time.Since(now),
	}, nil
}

func (op *Ops) process(ctx context.Context, p *Processor, r io.Reader, w io.Writer, codec Codec, format Format) error {
	if !op.KeepSourceSize {
		return p.Process(ctx, r, w, codec, format)
	}
	src, srcFormat, err := codec.Decode(r)
	if err != nil {
		return err
	}
	return p.FitSource(src.Bounds()).encodeResized(ctx, src, srcFormat, w, codec, format)
}

// openSource converts the source path to a readable stream.
func (op *Ops) openSource() (io.Reader, func(), error) {
	if utils.IsValidUrl(op.Src) {
		f, err := utils.DownloadImage(op.Src)
		if err != nil {
			return nil, nil, errors.Wrap(err, "failed to load the source image")
		}
		return f, func() {
			closeFile(f)
			os.Remove(f.Name())
		}, nil
	}

	if op.Src == op.PipeName {
		if term.IsTerminal(int(os.Stdin.Fd())) {
			return nil, nil, errors.New("`-` should be used with a pipe for stdin")
		}
		return os.Stdin, func() {}, nil
	}

	fs, err := os.Stat(op.Src)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to load the source image")
	}
	if fs.IsDir() {
		return nil, nil, fmt.Errorf("%s is a directory, only single images can be resized", op.Src)
	}
	f, err := os.Open(op.Src)
	if err != nil {
		return nil, nil, errors.Wrap(err, "unable to open the source file")
	}
	return f, func() { closeFile(f) }, nil
}

func closeFile(f *os.File) {
	if err := f.Close(); err != nil {
		log.Printf("could not close the opened file: %v", err)
	}
}
