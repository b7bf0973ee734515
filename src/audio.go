package borzoi

/*------------------------------------------------------------------
 *
 * Purpose:	Audio intake: isolate the receive pipeline from the
 *		physical sample source.
 *
 * Description:	A device hands out one byte at a time from an internal
 *		ring sized for about 10 milliseconds of audio.  When
 *		the ring runs dry it is refilled from the backing
 *		source: a sound card, a UDP SDR feed, standard input
 *		or a recorded WAV file, chosen by the input name.
 *
 *		The sample size and channel count semantics belong to
 *		the caller; intake moves bytes.
 *
 * Failure:	Errors divide into transient (short sleep and retry,
 *		up to ten times), fatal (caller shuts the device down)
 *		and end of input.
 *
 *---------------------------------------------------------------*/

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// Intake error classification.  Sources wrap their failures in one of
// these so the device retry loop can tell a hiccup from a lost device.
var (
	ErrTransient = errors.New("transient audio input error")
	ErrFatal     = errors.New("fatal audio input error")
)

const (
	// Ring sized for this many milliseconds of audio.  Originally
	// 40; 10 gives lower latency.
	oneBufTimeMs = 10

	minBufSize     = 256
	maxBufSize     = 32768
	defaultBufSize = 2048

	// Transient refill failures are retried this many times, with a
	// pause between attempts, before giving up on the device.
	maxRefillRetries  = 10
	refillRetryPause  = 250 * time.Millisecond
)

// AudioSource is the capability a backing source must provide.  Reads
// and writes move whole blocks; per-byte access and buffering live in
// AudioDevice.
type AudioSource interface {
	// ReadBlock fills p with as many bytes as are available,
	// blocking until at least one byte arrives.  Errors are wrapped
	// with ErrTransient or ErrFatal; end of input is io.EOF.
	ReadBlock(p []byte) (int, error)

	// WriteBlock sends output audio, where the source supports it.
	WriteBlock(p []byte) (int, error)

	// Close releases the source.
	Close() error
}

// AudioDevice is one open audio input with its ring buffer.
type AudioDevice struct {
	index int
	cfg   *DeviceConfig
	src   AudioSource

	inbuf  []byte
	inLen  int // Bytes of actual data available.
	inNext int // Index of next byte to remove.

	outbuf []byte
	outLen int

	stats deviceStats
}

func roundUp1K(n int) int {
	return (n + 0x3ff) &^ 0x3ff
}

func calcBufSize(rate, chans, bits int) int {
	var size = rate * chans * (bits / 8) * oneBufTimeMs / 1000
	return roundUp1K(size)
}

/*------------------------------------------------------------------
 *
 * Name:        OpenDevice
 *
 * Purpose:     Open one audio input by name and negotiate its
 *		parameters.
 *
 * Inputs:	index	- Audio device number, 0 .. MaxADevs-1.
 *
 *		cfg	- Requested parameters.  Updated in place to
 *			  the values the device actually granted, so
 *			  later stages see the truth.
 *
 * Description:	The input name selects the source:
 *
 *		  "stdin" or "-"	standard input
 *		  "udp" / "udp:7355"	raw PCM datagrams
 *		  "something.wav"	recorded audio file
 *		  anything else		sound card identifier
 *
 *----------------------------------------------------------------*/

func OpenDevice(index int, cfg *DeviceConfig) (*AudioDevice, error) {
	var src AudioSource
	var err error

	var name = cfg.InputName
	switch {
	case name == "stdin" || name == "-":
		cfg.InputName = "stdin" // Normalize "-" for readability.
		src = newStdinSource()

	case name == "udp" || strings.HasPrefix(name, "udp:"):
		var port = DefaultUDPAudioPort
		if rest, ok := strings.CutPrefix(name, "udp:"); ok {
			port, err = strconv.Atoi(rest)
			if err != nil {
				return nil, fmt.Errorf("audio device %d: bad UDP port in %q", index, name)
			}
		}
		src, err = newUDPSource(port)

	case strings.HasSuffix(strings.ToLower(name), ".wav"):
		src, err = newWAVSource(name, cfg)

	default:
		src, err = newALSASource(name, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("audio device %d (%s): %w", index, name, err)
	}

	var size = calcBufSize(cfg.SampleRate, cfg.Channels, cfg.BitsPerSample)
	if size < minBufSize || size > maxBufSize {
		logger.Warn("audio buffer size out of range, using default",
			"device", index, "calculated", size, "using", defaultBufSize)
		size = defaultBufSize
	}

	var d = &AudioDevice{
		index:  index,
		cfg:    cfg,
		src:    src,
		inbuf:  make([]byte, size),
		outbuf: make([]byte, 0, size),
	}
	d.stats.init(index, cfg.StatsInterval)
	return d, nil
}

// Index returns the device number.
func (d *AudioDevice) Index() int {
	return d.index
}

// Channels returns the granted channel count, 1 or 2.
func (d *AudioDevice) Channels() int {
	return d.cfg.Channels
}

// SetLevelProbe gives the statistics reporter a way to read the
// current receive audio level for a channel.
func (d *AudioDevice) SetLevelProbe(fn func(channel int) int) {
	d.stats.levelProbe = fn
}

/*------------------------------------------------------------------
 *
 * Name:        Get
 *
 * Purpose:     Return one byte from the audio input, refilling the
 *		ring from the backing source when it runs dry.
 *
 * Returns:	The byte 0..255, or an error: io.EOF at a clean end of
 *		input, otherwise something wrapping ErrFatal.
 *		Transient source errors are absorbed here with a short
 *		pause and a bounded number of retries.
 *
 *----------------------------------------------------------------*/

func (d *AudioDevice) Get() (int, error) {
	for d.inNext >= d.inLen {
		var err = d.refill()
		if err != nil {
			return -1, err
		}
	}
	var b = d.inbuf[d.inNext]
	d.inNext++
	return int(b), nil
}

func (d *AudioDevice) refill() error {
	for try := 0; try < maxRefillRetries; try++ {
		var n, err = d.src.ReadBlock(d.inbuf)
		if err == nil && n > 0 {
			d.inLen = n
			d.inNext = 0
			d.stats.sampleCount(n / (d.cfg.BitsPerSample / 8) / d.cfg.Channels)
			return nil
		}
		if errors.Is(err, io.EOF) {
			return io.EOF
		}
		if err != nil && !errors.Is(err, ErrTransient) {
			return err
		}
		// Transient: pause briefly and try again.  The source has
		// already done any device specific recovery, e.g. an ALSA
		// prepare after an overrun.
		d.stats.errorCount()
		if err != nil {
			logger.Debug("transient audio input error", "device", d.index, "try", try+1, "err", err)
			time.Sleep(refillRetryPause)
		}
	}
	return fmt.Errorf("audio device %d: retry count exceeded: %w", d.index, ErrFatal)
}

/*------------------------------------------------------------------
 *
 * Name:        NextSample
 *
 * Purpose:     Assemble one audio sample from the byte stream.
 *
 * Description:	8 bit samples are unsigned; 16 bit are signed little
 *		endian.  Both are scaled to the same 16 bit signed
 *		range so the demodulators see one format.
 *
 *----------------------------------------------------------------*/

func (d *AudioDevice) NextSample() (int, error) {
	if d.cfg.BitsPerSample == 8 {
		var b, err = d.Get()
		if err != nil {
			return 0, err
		}
		return (b - 128) * 256, nil
	}

	var lo, err = d.Get()
	if err != nil {
		return 0, err
	}
	hi, err := d.Get()
	if err != nil {
		return 0, err
	}
	return int(int16(lo | hi<<8)), nil
}

/*
 * Output path.  The receive pipeline itself never transmits but the
 * intake contract is symmetrical so applications can loop audio back
 * through the same device.
 */

// Put appends one byte to the output buffer, flushing when full.
func (d *AudioDevice) Put(b byte) error {
	d.outbuf = append(d.outbuf, b)
	if len(d.outbuf) >= cap(d.outbuf) {
		return d.Flush()
	}
	return nil
}

// Flush pushes buffered output bytes to the source.
func (d *AudioDevice) Flush() error {
	for len(d.outbuf) > 0 {
		var n, err = d.src.WriteBlock(d.outbuf)
		if err != nil {
			d.outbuf = d.outbuf[:0]
			return err
		}
		d.outbuf = d.outbuf[n:]
	}
	d.outbuf = d.outbuf[:0]
	return nil
}

// Wait blocks until queued output has drained.  With the block
// oriented sources here, a successful Flush has already done that.
func (d *AudioDevice) Wait() {
	_ = d.Flush()
}

// Close flushes output and releases the backing source.
func (d *AudioDevice) Close() error {
	_ = d.Flush()
	return d.src.Close()
}
