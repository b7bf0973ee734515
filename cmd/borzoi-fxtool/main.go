// Command borzoi-fxtool converts between AX.25 frames and FX.25 byte
// streams, for building and checking test corpora.
//
//	borzoi-fxtool --encode --mode 32 < frame.bin > fx.dat
//	borzoi-fxtool --decode < fx.dat
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"

	borzoi "github.com/doismellburning/borzoi/src"
)

func main() {
	var encode = pflag.Bool("encode", false, "wrap a raw AX.25 frame from stdin in an FX.25 stream on stdout")
	var decode = pflag.Bool("decode", false, "recover AX.25 frames from an FX.25 byte stream on stdin")
	var mode = pflag.Int("mode", 1, "FX.25 mode: 1 auto, 16/32/64 check bytes, 100+n specific tag")
	var debug = pflag.BoolP("debug", "d", false, "enable debug logging")
	pflag.Parse()

	borzoi.SetDebug(*debug)

	if *encode == *decode {
		fmt.Fprintln(os.Stderr, "specify exactly one of --encode or --decode")
		os.Exit(1)
	}

	var in, err = io.ReadAll(os.Stdin)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if *encode {
		var out, encErr = borzoi.FX25EncodeFrame(in, *mode)
		if encErr != nil {
			fmt.Fprintln(os.Stderr, encErr)
			os.Exit(1)
		}
		os.Stdout.Write(out)
		return
	}

	// Decode: run the byte stream through a single channel receive
	// pipeline and print whatever falls out.
	var cfg = borzoi.DefaultConfig()
	cfg.Normalize()

	var queue = borzoi.NewDeliveryQueue(16)
	var rx = borzoi.NewReceiver(cfg, queue)

	var found = 0
	go func() {
		for _, bit := range borzoi.EncodeByteStreamBits(in) {
			rx.RecBit(0, 0, 0, bit, false)
			rx.AgeCandidates(0)
		}
		// Let anything still waiting in a candidate slot age out.
		for i := 0; i < 10000; i++ {
			rx.AgeCandidates(0)
		}
		rx.Close()
		queue.Close()
	}()

	for {
		var d, ok = queue.Next()
		if !ok {
			break
		}
		found++
		fmt.Fprintf(os.Stderr, "recovered frame: %d bytes, fec=%s retries=%s\n",
			len(d.Packet.Frame()), d.FECType, d.Retries)
		os.Stdout.Write(d.Packet.Frame())
	}
	if found == 0 {
		fmt.Fprintln(os.Stderr, "no frame recovered")
		os.Exit(1)
	}
}
