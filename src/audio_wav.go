package borzoi

/*------------------------------------------------------------------
 *
 * Purpose:	Audio intake from a recorded WAV file.
 *
 * Description:	Replaying known recordings through the full pipeline
 *		is the standard way to measure decoder performance.
 *		The file's own sample rate and channel count are
 *		written back into the configuration, with the bit
 *		depth set to 16: everything is delivered downstream
 *		as 16 bit signed little endian.
 *
 *---------------------------------------------------------------*/

import (
	"fmt"
	"io"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

type wavSource struct {
	f   *os.File
	dec *wav.Decoder
	buf *audio.IntBuffer

	pending []byte
}

func newWAVSource(path string, cfg *DeviceConfig) (*wavSource, error) {
	var f, err = os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, ErrFatal)
	}

	var dec = wav.NewDecoder(f)
	if !dec.IsValidFile() {
		f.Close()
		return nil, fmt.Errorf("%s is not a valid WAV file: %w", path, ErrFatal)
	}

	cfg.SampleRate = int(dec.SampleRate)
	cfg.Channels = int(dec.NumChans)
	cfg.BitsPerSample = 16 // Samples are widened below.

	logger.Info("reading recorded audio", "file", path,
		"rate", dec.SampleRate, "channels", dec.NumChans, "bits", dec.BitDepth)

	var s = &wavSource{
		f:   f,
		dec: dec,
		buf: &audio.IntBuffer{
			Format: dec.Format(),
			Data:   make([]int, 4096),
		},
	}
	return s, nil
}

func (s *wavSource) ReadBlock(p []byte) (int, error) {
	for len(s.pending) == 0 {
		var n, err = s.dec.PCMBuffer(s.buf)
		if err != nil && err != io.EOF {
			return 0, fmt.Errorf("wav read: %v: %w", err, ErrFatal)
		}
		if n == 0 {
			return 0, io.EOF
		}

		// Widen to 16 bit signed little endian.
		var shift = 0
		var offset = 0
		if s.dec.BitDepth == 8 {
			shift = 8
			offset = -128
		}
		for _, v := range s.buf.Data[:n] {
			var sample = int16((v + offset) << shift)
			s.pending = append(s.pending, byte(sample), byte(uint16(sample)>>8))
		}
	}

	var n = copy(p, s.pending)
	s.pending = s.pending[n:]
	return n, nil
}

func (s *wavSource) WriteBlock(p []byte) (int, error) {
	return 0, fmt.Errorf("wav source has no output path: %w", ErrFatal)
}

func (s *wavSource) Close() error {
	return s.f.Close()
}
