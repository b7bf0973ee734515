package borzoi

/*------------------------------------------------------------------
 *
 * Purpose:	Periodic statistics for the audio input stream.
 *
 * Description:	A common complaint is that there is no indication of
 *		audio input until a packet decodes.  So, every so
 *		often, each device reports its approximate sample rate
 *		and the receive audio level.  It has been a useful
 *		troubleshooting tool: flaky USB hubs and broken device
 *		drivers show up as a sample rate far from nominal, and
 *		an adapter producing all zero samples shows up as a
 *		level of zero.
 *
 *---------------------------------------------------------------*/

import "time"

type deviceStats struct {
	index    int
	interval int // Seconds between reports.  0 turns them off.

	lastTime      time.Time
	samples       int
	errors        int
	suppressFirst bool

	// levelProbe reads the current receive audio level for a
	// channel, when a demodulator is attached.
	levelProbe func(channel int) int
}

func (st *deviceStats) init(index, interval int) {
	st.index = index
	st.interval = interval
}

// sampleCount records a successful read of n samples and prints the
// report when the interval has passed.
func (st *deviceStats) sampleCount(n int) {
	if st.interval <= 0 {
		return
	}

	if st.lastTime.IsZero() {
		st.suppressFirst = true
		// Suppressing the first report would otherwise mean a
		// rather long wait, so the first collection interval is
		// three seconds.
		st.lastTime = time.Now().Add(-time.Duration(st.interval-3) * time.Second)
		return
	}

	st.samples += n

	var now = time.Now()
	if now.Before(st.lastTime.Add(time.Duration(st.interval) * time.Second)) {
		return
	}

	if st.suppressFirst {
		// The first rate is off considerably because we did not
		// start on an interval boundary, so it is not printed.
		st.suppressFirst = false
	} else {
		var aveRate = float64(st.samples) / 1000.0 / float64(st.interval)
		if st.levelProbe != nil {
			logger.Info("audio input",
				"device", st.index,
				"rate_kHz", aveRate,
				"errors", st.errors,
				"level", st.levelProbe(firstChanOfADev(st.index)))
		} else {
			logger.Info("audio input",
				"device", st.index,
				"rate_kHz", aveRate,
				"errors", st.errors)
		}
	}
	st.lastTime = now
	st.samples = 0
	st.errors = 0
}

// errorCount records a failed read.
func (st *deviceStats) errorCount() {
	if st.interval <= 0 {
		return
	}
	st.errors++
}
