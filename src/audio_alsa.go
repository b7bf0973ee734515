package borzoi

/*------------------------------------------------------------------
 *
 * Purpose:	Audio intake from a sound card via ALSA.
 *
 * Description:	Uses the pure Go ALSA client.  At open time we request
 *		the configured channel count, sample rate and format,
 *		accept whatever the hardware grants, and write the
 *		actual values back into the configuration so the rest
 *		of the pipeline works with the truth.
 *
 *		An overrun ("broken pipe") is recovered by preparing
 *		the device again and is reported as transient; the
 *		device level retry handles the pacing.
 *
 *---------------------------------------------------------------*/

import (
	"fmt"
	"strings"

	yalsa "github.com/yobert/alsa"
)

type alsaSource struct {
	dev *yalsa.Device
}

// newALSASource opens the capture device whose title contains name, or
// the first capture device when name is "default" or empty.
func newALSASource(name string, cfg *DeviceConfig) (*alsaSource, error) {
	var cards, err = yalsa.OpenCards()
	if err != nil {
		return nil, fmt.Errorf("open sound cards: %v: %w", err, ErrFatal)
	}
	defer yalsa.CloseCards(cards)

	var dev *yalsa.Device
	for _, card := range cards {
		var devices, devErr = card.Devices()
		if devErr != nil {
			continue
		}
		for _, candidate := range devices {
			if candidate.Type != yalsa.PCM || !candidate.Record {
				continue
			}
			if name == "" || name == "default" || strings.Contains(candidate.Title, name) {
				dev = candidate
				break
			}
		}
		if dev != nil {
			break
		}
	}
	if dev == nil {
		return nil, fmt.Errorf("no ALSA capture device matching %q: %w", name, ErrFatal)
	}

	if err := dev.Open(); err != nil {
		return nil, fmt.Errorf("open %s: %v: %w", dev.Title, err, ErrFatal)
	}

	/*
	 * Negotiate parameters.  We take what we are given and record
	 * the granted values; refusing to run because a card cannot do
	 * exactly 44100 would help nobody.
	 */
	channels, err := dev.NegotiateChannels(cfg.Channels)
	if err != nil && cfg.Channels == 1 {
		// Some cards will only record in stereo.
		channels, err = dev.NegotiateChannels(2)
	}
	if err != nil {
		dev.Close()
		return nil, fmt.Errorf("negotiate channels on %s: %v: %w", dev.Title, err, ErrFatal)
	}

	rate, err := dev.NegotiateRate(cfg.SampleRate)
	if err != nil {
		dev.Close()
		return nil, fmt.Errorf("negotiate rate on %s: %v: %w", dev.Title, err, ErrFatal)
	}

	// 16 bit signed little endian keeps every later stage simple,
	// and every card of interest supports it.
	_, err = dev.NegotiateFormat(yalsa.S16_LE)
	if err != nil {
		dev.Close()
		return nil, fmt.Errorf("negotiate format on %s: %v: %w", dev.Title, err, ErrFatal)
	}

	var want = calcBufSize(rate, channels, 16)
	if _, err = dev.NegotiateBufferSize(want); err != nil {
		dev.Close()
		return nil, fmt.Errorf("negotiate buffer size on %s: %v: %w", dev.Title, err, ErrFatal)
	}

	if err = dev.Prepare(); err != nil {
		dev.Close()
		return nil, fmt.Errorf("prepare %s: %v: %w", dev.Title, err, ErrFatal)
	}

	if channels != cfg.Channels || rate != cfg.SampleRate || cfg.BitsPerSample != 16 {
		logger.Warn("sound card granted different parameters",
			"device", dev.Title,
			"channels", channels, "rate", rate, "bits", 16)
	}
	cfg.Channels = channels
	cfg.SampleRate = rate
	cfg.BitsPerSample = 16

	logger.Info("opened sound card", "device", dev.Title,
		"rate", rate, "channels", channels)

	return &alsaSource{dev: dev}, nil
}

func (s *alsaSource) ReadBlock(p []byte) (int, error) {
	var err = s.dev.Read(p)
	if err != nil {
		// Typically an overrun because we fell behind.  Prepare
		// the device again and let the retry loop continue.
		if prepErr := s.dev.Prepare(); prepErr != nil {
			return 0, fmt.Errorf("alsa read: %v, recovery failed: %v: %w", err, prepErr, ErrFatal)
		}
		return 0, fmt.Errorf("alsa read: %v: %w", err, ErrTransient)
	}
	return len(p), nil
}

func (s *alsaSource) WriteBlock(p []byte) (int, error) {
	return 0, fmt.Errorf("capture device has no output path: %w", ErrFatal)
}

func (s *alsaSource) Close() error {
	s.dev.Close()
	return nil
}
