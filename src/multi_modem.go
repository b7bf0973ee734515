package borzoi

/*------------------------------------------------------------------
 *
 * Purpose:	Use multiple modems in parallel and pick the best
 *		result.
 *
 * Description:	A channel can have several demodulators tuned to
 *		staggered tone pairs, each with several slicers at
 *		different levels.  Decoders that heard the same
 *		transmission all produce a frame within a few bit
 *		times of each other, so candidates are collected in
 *		per-triple slots and aged; once the oldest candidate
 *		has waited processAge samples the channel's slots are
 *		scored and exactly one frame goes to the delivery sink.
 *
 *		FX.25 complicates the timing: a codeblock can trail up
 *		to 64 check bytes behind the enclosed frame, so
 *		resolution is suspended while any FX.25 reception is in
 *		progress on the channel.
 *
 *---------------------------------------------------------------*/

// candidate is one frame waiting for the arbiter's decision.
type candidate struct {
	packet  *Packet
	alevel  AudioLevel
	fecType FECType
	retries Retry // Bits flipped, or bytes corrected for FEC.
	age     int   // In audio samples.
	crc     uint16
	score   int
}

// processAfterBits is how many bit times the arbiter waits for slower
// decoders before resolving.  Needs to cover the skew of PSK against
// other modem types with the optional pre-filter.
const processAfterBits = 3

func (rx *Receiver) initProcessAge() {
	for channel := range rx.processAge {
		if !rx.cfg.channelDefined(channel) {
			continue
		}
		var ac = &rx.cfg.Chans[channel]
		var realBaud = ac.Baud
		switch ac.Modem {
		case ModemQPSK:
			realBaud = ac.Baud / 2
		case Modem8PSK:
			realBaud = ac.Baud / 3
		}
		if realBaud <= 0 {
			logger.Error("internal error: bad baud rate", "channel", channel, "baud", ac.Baud)
			realBaud = defaultBaud
		}
		rx.processAge[channel] = processAfterBits *
			rx.cfg.ADevs[adevOfChan(channel)].SampleRate / realBaud
	}
}

/*------------------------------------------------------------------------------
 *
 * Name:	ProcessSample
 *
 * Purpose:	Feed one audio sample into the channel's demodulators
 *		and advance the candidate aging.
 *
 * Description:	Called once per sample from the device goroutine.  The
 *		demodulators call back RecBit for each symbol they
 *		produce.
 *
 *------------------------------------------------------------------------------*/

func (rx *Receiver) ProcessSample(channel, sample int) {
	// Accumulate an average DC bias level.  Shouldn't happen with a
	// sound card but could with a mistuned SDR.
	rx.dcAverage[channel] = rx.dcAverage[channel]*0.999 + float64(sample)*0.001

	var ac = &rx.cfg.Chans[channel]

	if rx.demod != nil {
		// Send the same sample to all demodulators for the channel.
		for d := 0; d < ac.NumSubchan; d++ {
			rx.demod.ProcessSample(channel, d, sample)
		}
	}

	rx.AgeCandidates(channel)
}

// AgeCandidates advances candidate ages by one sample tick and resolves
// the channel once the oldest has waited long enough.  ProcessSample
// does this automatically; callers feeding bits directly call it
// themselves.
func (rx *Receiver) AgeCandidates(channel int) {
	var ac = &rx.cfg.Chans[channel]
	for subchan := 0; subchan < ac.NumSubchan; subchan++ {
		for slice := 0; slice < ac.NumSlicers; slice++ {
			var c = &rx.candidate[channel][subchan][slice]
			if c.packet == nil {
				continue
			}
			c.age++
			if c.age > rx.processAge[channel] {
				if rx.FX25Busy(channel) {
					c.age = 0
				} else {
					rx.pickBestCandidate(channel)
				}
			}
		}
	}
}

// DCAverage reports the accumulated DC bias, scaled to +-200 to suit
// the deviation display.
func (rx *Receiver) DCAverage(channel int) int {
	return int(rx.dcAverage[channel] * (200.0 / 32767.0))
}

/*-------------------------------------------------------------------
 *
 * Name:        processRecFrame
 *
 * Purpose:     Accept a frame with a valid FCS (or FEC correction)
 *		from any of the decoders and file it as a candidate.
 *
 * Inputs:	frame	- Frame contents, FCS already removed.
 *		retries	- Repair effort, or corrected byte count for FEC.
 *
 *--------------------------------------------------------------------*/

func (rx *Receiver) processRecFrame(channel, subchan, slice int, frame []byte, alevel AudioLevel, retries Retry, fecType FECType) {
	rx.processRecPacket(channel, subchan, slice, newPacket(frame), alevel, retries, fecType)
}

// processRecText files a decoded EAS message the same way.
func (rx *Receiver) processRecText(channel, subchan, slice int, text []byte, alevel AudioLevel) {
	rx.processRecPacket(channel, subchan, slice, newTextPacket(text), alevel, RetryNone, FECNone)
}

func (rx *Receiver) processRecPacket(channel, subchan, slice int, pp *Packet, alevel AudioLevel, retries Retry, fecType FECType) {
	if pp == nil {
		logger.Error("internal error: nil packet in processRecPacket")
		return
	}

	var ac = &rx.cfg.Chans[channel]

	/*
	 * If there is only one demodulator with one slicer, and no
	 * FX.25 in progress, push it through and forget about all this
	 * foolishness.
	 */
	if ac.NumSubchan == 1 && ac.NumSlicers == 1 && !rx.FX25Busy(channel) {
		if rx.testDrop() {
			return
		}
		rx.sink.RecFrame(channel, subchan, slice, pp, alevel, fecType, retries, "")
		return
	}

	/*
	 * Otherwise save it up for a few bit times so we can pick the best.
	 */
	var c = &rx.candidate[channel][subchan][slice]
	if c.packet != nil {
		// Plain AX.25: didn't expect anything to be there.
		// FX.25: quietly replace it; the corrected copy has priority.
		c.packet = nil
	}

	c.packet = pp
	c.alevel = alevel
	c.fecType = fecType
	c.retries = retries
	c.age = 0
	c.crc = pp.ContentCRC()
}

// testDrop implements the configured receive error rate for test
// harnesses: randomly discard the chosen frame before delivery.
func (rx *Receiver) testDrop() bool {
	if rx.cfg.RecvErrorRate == 0 {
		return false
	}
	if rx.rng.chance(float64(rx.cfg.RecvErrorRate) / 100.0) {
		logger.Info("intentionally dropping incoming frame",
			"recv_error_rate", rx.cfg.RecvErrorRate)
		return true
	}
	return false
}

/*-------------------------------------------------------------------
 *
 * Name:        pickBestCandidate
 *
 * Purpose:     One or more candidates have been waiting long enough.
 *		Pick the best one, deliver it, discard the others.
 *
 * Rules:	We prefer one received perfectly but will settle for
 *		one where some bits had to be flipped to get a good
 *		CRC.  Candidates whose content matches others nearby
 *		get a clustering bonus, so agreeing copies win over a
 *		lone coincidence.
 *
 *--------------------------------------------------------------------*/

// Slot n maps to subchannel n % numSubchan and slicer n / numSubchan.
// This interleaving is the suitable order for "G" demodulators; the
// opposite would suit multi-frequency.

func (rx *Receiver) subchanFromN(channel, n int) int {
	return n % rx.cfg.Chans[channel].NumSubchan
}

func (rx *Receiver) sliceFromN(channel, n int) int {
	return n / rx.cfg.Chans[channel].NumSubchan
}

func (rx *Receiver) pickBestCandidate(channel int) {
	var ac = &rx.cfg.Chans[channel]
	var numBars = ac.NumSlicers * ac.NumSubchan

	var spectrum = make([]byte, numBars)

	for n := 0; n < numBars; n++ {
		var c = &rx.candidate[channel][rx.subchanFromN(channel, n)][rx.sliceFromN(channel, n)]

		/* Build the spectrum display. */
		switch {
		case c.packet == nil:
			spectrum[n] = '_'
		case c.fecType != FECNone:
			// FX.25 or IL2P; retries is the corrected count.
			if int(c.retries) <= 9 {
				spectrum[n] = '0' + byte(c.retries)
			} else {
				spectrum[n] = '+'
			}
		case c.retries == RetryNone:
			spectrum[n] = '|'
		case c.retries == RetryInvertSingle:
			spectrum[n] = ':'
		default:
			spectrum[n] = '.'
		}

		/* Beginning score depends on the effort to get a valid CRC. */
		if c.packet == nil {
			c.score = 0
		} else if c.fecType != FECNone {
			c.score = 9000 - 100*int(c.retries)
		} else {
			// The extra 1 keeps the minimum score at 1 for
			// anything received, so the passall case is still
			// distinguishable from an empty slot.
			c.score = int(RetryMax)*1000 - int(c.retries)*1000 + 1
		}
	}

	/* Bump it up slightly if others nearby have the same CRC. */
	for n := 0; n < numBars; n++ {
		var c = &rx.candidate[channel][rx.subchanFromN(channel, n)][rx.sliceFromN(channel, n)]
		if c.packet == nil {
			continue
		}
		for m := 0; m < numBars; m++ {
			if m == n {
				continue
			}
			var other = &rx.candidate[channel][rx.subchanFromN(channel, m)][rx.sliceFromN(channel, m)]
			if other.packet != nil && c.crc == other.crc {
				var dist = m - n
				if dist < 0 {
					dist = -dist
				}
				c.score += numBars + 1 - dist
			}
		}
	}

	var bestN = 0
	var bestScore = 0
	for n := 0; n < numBars; n++ {
		var c = &rx.candidate[channel][rx.subchanFromN(channel, n)][rx.sliceFromN(channel, n)]
		if c.packet != nil && c.score > bestScore {
			bestScore = c.score
			bestN = n
		}
	}

	if bestScore == 0 {
		logger.Error("internal error in pickBestCandidate: how can the best score be zero?",
			"channel", channel)
	} else {
		var best = &rx.candidate[channel][rx.subchanFromN(channel, bestN)][rx.sliceFromN(channel, bestN)]
		if !rx.testDrop() {
			rx.sink.RecFrame(channel, rx.subchanFromN(channel, bestN), rx.sliceFromN(channel, bestN),
				best.packet, best.alevel, best.fecType, best.retries, string(spectrum))
			// Someone else owns the packet now.
		}
	}

	/* Clear in preparation for next time. */
	for sub := range rx.candidate[channel] {
		for slice := range rx.candidate[channel][sub] {
			rx.candidate[channel][sub][slice] = candidate{}
		}
	}
}
