// Command borzoi runs the packet receive pipeline: open the configured
// audio sources, decode, and print every delivered frame.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/spf13/pflag"

	borzoi "github.com/doismellburning/borzoi/src"
)

func main() {
	var configPath = pflag.StringP("config", "c", "", "YAML configuration file")
	var input = pflag.StringP("input", "i", "", "audio input, overriding the configuration (stdin, -, udp[:port], file.wav, or a sound card name)")
	var sampleRate = pflag.IntP("rate", "r", 0, "sample rate, overriding the configuration")
	var bits = pflag.IntP("bits", "b", 0, "bits per sample, 8 or 16")
	var debug = pflag.BoolP("debug", "d", false, "enable debug logging")
	pflag.Parse()

	borzoi.SetDebug(*debug)

	var cfg = borzoi.DefaultConfig()
	if *configPath != "" {
		var loaded, err = borzoi.LoadConfig(*configPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		cfg = loaded
	}
	if *input != "" {
		cfg.ADevs[0].InputName = *input
		cfg.ADevs[0].Defined = true
	}
	if *sampleRate > 0 {
		cfg.ADevs[0].SampleRate = *sampleRate
	}
	if *bits > 0 {
		cfg.ADevs[0].BitsPerSample = *bits
	}
	cfg.Normalize()

	var queue = borzoi.NewDeliveryQueue(64)
	var rx = borzoi.NewReceiver(cfg, queue)
	rx.SetPTT(func(channel int, on bool) {
		borzoi.Logger().Debug("DCD", "channel", channel, "on", on)
	})

	var devices []*borzoi.AudioDevice
	for a := range cfg.ADevs {
		if !cfg.ADevs[a].Defined {
			continue
		}
		var d, err = borzoi.OpenDevice(a, &cfg.ADevs[a])
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		devices = append(devices, d)
	}
	if len(devices) == 0 {
		fmt.Fprintln(os.Stderr, "no audio devices configured")
		os.Exit(1)
	}

	var wg sync.WaitGroup
	for _, d := range devices {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var err = rx.RunDevice(d)
			if err != nil && !errors.Is(err, io.EOF) {
				borzoi.Logger().Error("device stopped", "device", d.Index(), "err", err)
			}
			d.Close()
		}()
	}

	go func() {
		wg.Wait()
		rx.Close()
		queue.Close()
	}()

	var count = 0
	for {
		var d, ok = queue.Next()
		if !ok {
			break
		}
		count++
		if d.Packet.IsText() {
			fmt.Printf("DECODED[%d] %d.%d text: %s\n", count, d.Channel, d.Subchannel, d.Packet.Text())
			continue
		}
		fmt.Printf("DECODED[%d] %d.%d audio level = %d  fec=%s retries=%s  %s\n",
			count, d.Channel, d.Subchannel, d.ALevel.Rec, d.FECType, d.Retries, d.Spectrum)
		hexDump(os.Stdout, d.Packet.Frame())
	}
}

func hexDump(w io.Writer, p []byte) {
	var offset = 0
	for len(p) > 0 {
		var n = len(p)
		if n > 16 {
			n = 16
		}
		fmt.Fprintf(w, "  %03x: ", offset)
		for i := 0; i < n; i++ {
			fmt.Fprintf(w, " %02x", p[i])
		}
		for i := n; i < 16; i++ {
			fmt.Fprint(w, "   ")
		}
		fmt.Fprint(w, "  ")
		for i := 0; i < n; i++ {
			if p[i] >= 0x20 && p[i] <= 0x7e {
				fmt.Fprintf(w, "%c", p[i])
			} else {
				fmt.Fprint(w, ".")
			}
		}
		fmt.Fprintln(w)
		p = p[n:]
		offset += n
	}
}
