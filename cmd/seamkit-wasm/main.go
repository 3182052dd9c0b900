//go:build js && wasm

// Command seamkit-wasm exposes the carver to a browser worker. The worker
// script calls goCarve(src, targetHeight, targetWidth) with a base64 encoded
// image and receives the result through its global setImageSource function.
package main

import (
	"context"
	"syscall/js"

	"github.com/seamkit/seamkit"
	"github.com/seamkit/seamkit/worker"
)

func main() {
	w := worker.New(seamkit.Processor{})
	w.Concurrency = 1

	carve := js.FuncOf(func(this js.Value, args []js.Value) any {
		if len(args) < 3 {
			js.Global().Get("console").Call("error", "goCarve expects src, targetHeight and targetWidth")
			return nil
		}
		msg := worker.Message{
			Type: worker.Carve,
			Params: &worker.Params{
				Src:          args[0].String(),
				TargetHeight: args[1].Int(),
				TargetWidth:  args[2].Int(),
			},
		}
		// a blocking call inside the js callback would deadlock the event loop
		go func() {
			reply := w.Handle(context.Background(), msg)
			if reply.Type == worker.Error {
				js.Global().Get("console").Call("error", reply.Kind+": "+reply.Error)
				return
			}
			js.Global().Call("setImageSource", reply.Src)
		}()
		return nil
	})
	defer carve.Release()

	js.Global().Set("goCarve", carve)
	select {}
}
