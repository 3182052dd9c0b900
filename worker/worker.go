// Package worker exposes the seam carver through a message envelope, the way
// a browser page talks to its background worker: every request carries a type
// and its parameters, and every reply is a message of its own.
package worker

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"log"
	"runtime"
	"sync"

	"github.com/pkg/errors"
	"github.com/seamkit/seamkit"
)

// MessageType tags the envelope payload.
type MessageType string

// The message types understood and produced by the worker.
const (
	Init      MessageType = "init"
	Carve     MessageType = "carve"
	Ready     MessageType = "ready"
	SetSource MessageType = "set_source"
	Error     MessageType = "error"
)

// Params are the carve request parameters. Src is the base64 encoded source image.
type Params struct {
	Src          string `json:"src"`
	TargetWidth  int    `json:"targetWidth"`
	TargetHeight int    `json:"targetHeight"`
	Format       string `json:"format,omitempty"`
}

// Message is the envelope exchanged with the worker.
type Message struct {
	ID     string      `json:"id,omitempty"`
	Type   MessageType `json:"type"`
	Params *Params     `json:"params,omitempty"`

	// Reply fields.
	Src    string `json:"src,omitempty"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
	Kind   string `json:"kind,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Worker carves the images received through messages.
type Worker struct {
	// NewCarver returns the carver used for a single request.
	NewCarver func(targetWidth, targetHeight int) seamkit.SeamCarver
	Codec     seamkit.Codec
	// Format is the reply image format when the request does not name one.
	Format seamkit.Format
	// Concurrency limits the carve requests handled at once by Serve.
	Concurrency int
	Logger      *log.Logger
}

// New returns a worker carving every request with a copy of the template processor.
func New(template seamkit.Processor) *Worker {
	return &Worker{
		NewCarver: func(targetWidth, targetHeight int) seamkit.SeamCarver {
			p := template
			p.NewWidth, p.NewHeight = targetWidth, targetHeight
			return &p
		},
		Codec:       seamkit.DefaultCodec,
		Format:      seamkit.JPEG,
		Concurrency: runtime.NumCPU(),
	}
}

// Handle processes a single message synchronously and returns the reply.
func (w *Worker) Handle(ctx context.Context, msg Message) Message {
	switch msg.Type {
	case Init:
		return Message{ID: msg.ID, Type: Ready}
	case Carve:
		reply, err := w.carve(ctx, msg.Params)
		if err != nil {
			w.logf("carve request %q failed: %v", msg.ID, err)
			return errorReply(msg.ID, err)
		}
		reply.ID = msg.ID
		return reply
	}
	return Message{
		ID:    msg.ID,
		Type:  Error,
		Kind:  "invalid_input",
		Error: "unknown message type: " + string(msg.Type),
	}
}

func (w *Worker) carve(ctx context.Context, params *Params) (Message, error) {
	if params == nil {
		return Message{}, errors.Wrap(seamkit.ErrInvalidInput, "missing carve parameters")
	}
	if params.TargetWidth <= 0 || params.TargetHeight <= 0 {
		return Message{}, errors.Wrapf(seamkit.ErrInvalidTarget, "target size %dx%d",
			params.TargetWidth, params.TargetHeight)
	}
	format := w.Format
	if params.Format != "" {
		format = seamkit.Format(params.Format)
	}

	data, err := base64.StdEncoding.DecodeString(params.Src)
	if err != nil {
		return Message{}, errors.Wrapf(seamkit.ErrInvalidInput, "source is not base64 encoded: %v", err)
	}
	src, _, err := w.Codec.Decode(bytes.NewReader(data))
	if err != nil {
		return Message{}, err
	}

	res, err := w.NewCarver(params.TargetWidth, params.TargetHeight).Resize(ctx, src)
	if err != nil {
		return Message{}, err
	}

	var buf bytes.Buffer
	if err := w.Codec.Encode(&buf, res, format); err != nil {
		return Message{}, err
	}
	return Message{
		Type:   SetSource,
		Src:    base64.StdEncoding.EncodeToString(buf.Bytes()),
		Width:  res.Bounds().Dx(),
		Height: res.Bounds().Dy(),
	}, nil
}

// Serve reads a stream of JSON messages from r and writes the replies into
// out as they complete. Carve requests run concurrently, so replies may come
// back in a different order than the requests; the message ID correlates them.
// Serve returns when r is exhausted and every request has been answered.
func (w *Worker) Serve(ctx context.Context, r io.Reader, out io.Writer) error {
	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		enc = json.NewEncoder(out)
		dec = json.NewDecoder(r)
	)

	limit := w.Concurrency
	if limit <= 0 {
		limit = 1
	}
	sem := make(chan struct{}, limit)

	reply := func(m Message) {
		mu.Lock()
		defer mu.Unlock()
		if err := enc.Encode(m); err != nil {
			w.logf("could not write reply %q: %v", m.ID, err)
		}
	}

	defer wg.Wait()
	for {
		var msg Message
		if err := dec.Decode(&msg); err != nil {
			if err == io.EOF {
				return nil
			}
			reply(Message{Type: Error, Kind: "invalid_input", Error: "malformed message: " + err.Error()})
			return errors.Wrap(err, "could not decode the message stream")
		}

		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			return ctx.Err()
		}
		wg.Add(1)
		go func(msg Message) {
			defer func() {
				<-sem
				wg.Done()
			}()
			reply(w.Handle(ctx, msg))
		}(msg)
	}
}

func (w *Worker) logf(format string, v ...any) {
	if w.Logger != nil {
		w.Logger.Printf(format, v...)
	}
}

func errorReply(id string, err error) Message {
	return Message{
		ID:    id,
		Type:  Error,
		Kind:  seamkit.Kind(err),
		Error: err.Error(),
	}
}
