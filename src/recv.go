package borzoi

/*------------------------------------------------------------------
 *
 * Purpose:	Receiver assembly and the per-device receive loop.
 *
 * Description:	One Receiver owns all the decoder state for every
 *		configured channel: HDLC framers, FX.25 contexts and
 *		candidate slots for each (channel, subchannel, slicer)
 *		triple.  Each audio device gets its own goroutine
 *		pulling samples and pushing them through
 *		ProcessSample; everything on that path is owned by
 *		that goroutine, so the hot path needs no locks.  The
 *		only other thread of control is the deferred repair
 *		worker, which owns its blocks outright.
 *
 *---------------------------------------------------------------*/

import (
	"errors"
	"io"
)

// Demodulator converts audio samples to bits.  It is an external
// collaborator: implementations call back Receiver.RecBit for every
// symbol each slicer produces.
type Demodulator interface {
	// ProcessSample feeds one audio sample to one subchannel's
	// demodulator.
	ProcessSample(channel, subchan, sample int)

	// AudioLevel reports the current received signal measure.
	AudioLevel(channel, subchan int) AudioLevel
}

// Receiver is the receive pipeline for all configured channels.
type Receiver struct {
	cfg   *Config
	sink  FrameSink
	demod Demodulator
	ptt   func(channel int, on bool)

	hdlc         [MaxRadioChans][MaxSubchans][MaxSlicers]*hdlcState
	fx           [MaxRadioChans][MaxSubchans][MaxSlicers]*fxContext
	il2p         [MaxRadioChans][MaxSubchans][MaxSlicers]*il2pContext
	candidate    [MaxRadioChans][MaxSubchans][MaxSlicers]candidate
	compositeDCD [MaxRadioChans][MaxSubchans][MaxSlicers]bool
	processAge   [MaxRadioChans]int
	dcAverage    [MaxRadioChans]float64

	fixer *fixLater
	rng   *prng
}

// NewReceiver builds the decoder state for every channel the
// configuration defines.  The configuration must already be normalized
// and must not change afterwards.
func NewReceiver(cfg *Config, sink FrameSink) *Receiver {
	var rx = &Receiver{
		cfg:  cfg,
		sink: sink,
		rng:  newPRNG(),
	}

	for channel := 0; channel < MaxRadioChans; channel++ {
		if !cfg.channelDefined(channel) {
			continue
		}
		var ac = &cfg.Chans[channel]
		var scrambled = ac.Modem == ModemScramble
		for sub := 0; sub < ac.NumSubchan; sub++ {
			for slice := 0; slice < MaxSlicers; slice++ {
				var H = new(hdlcState)
				H.olen = -1
				H.rrbb = newRRBB(channel, sub, slice, scrambled, H.lfsr, H.prevDescram)
				rx.hdlc[channel][sub][slice] = H
			}
		}
	}

	rx.initProcessAge()
	rx.fixer = newFixLater(rx)
	return rx
}

// SetDemodulator attaches the external demodulator.  Without one,
// ProcessSample only ages candidates and callers feed bits to RecBit
// themselves.
func (rx *Receiver) SetDemodulator(d Demodulator) {
	rx.demod = d
}

// SetPTT registers the callback invoked on every composite DCD
// transition, so the transmit side can hold off while the channel is
// busy.
func (rx *Receiver) SetPTT(fn func(channel int, on bool)) {
	rx.ptt = fn
}

// Close stops the deferred repair worker after draining its queue.
func (rx *Receiver) Close() {
	rx.fixer.close()
}

func (rx *Receiver) audioLevel(channel, subchan int) AudioLevel {
	if rx.demod != nil {
		return rx.demod.AudioLevel(channel, subchan)
	}
	return AudioLevel{}
}

/*------------------------------------------------------------------
 *
 * Name:        RunDevice
 *
 * Purpose:     Pull samples from one audio device until it ends,
 *		feeding each configured channel in turn.
 *
 * Description:	A device in stereo mode carries two radio channels
 *		with interleaved samples.  Returns io.EOF at a clean
 *		end of input, or the fatal intake error otherwise.
 *		Run it on its own goroutine, one per device.
 *
 *----------------------------------------------------------------*/

func (rx *Receiver) RunDevice(d *AudioDevice) error {
	var firstChan = firstChanOfADev(d.Index())
	var numChan = d.Channels()

	for {
		for c := 0; c < numChan; c++ {
			var sample, err = d.NextSample()
			if err != nil {
				if errors.Is(err, io.EOF) {
					logger.Info("end of input", "device", d.Index())
					return io.EOF
				}
				logger.Error("audio input failed", "device", d.Index(), "err", err)
				return err
			}
			rx.ProcessSample(firstChan+c, sample)
		}
	}
}
