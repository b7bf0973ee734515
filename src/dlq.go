package borzoi

/*------------------------------------------------------------------
 *
 * Purpose:	Delivery queue for received frames.
 *
 * Description:	Each audio device has its own receive goroutine.  This
 *		queue collects validated frames from all of them so the
 *		application can process them serially without worrying
 *		about reentrancy.
 *
 *		Ownership of the Packet transfers to whoever takes the
 *		Delivery off the queue.
 *
 *---------------------------------------------------------------*/

import "sync/atomic"

// FrameSink receives validated frames from the arbiter.  Implementations
// must not retain the spectrum string storage and must assume ownership
// of the packet.
type FrameSink interface {
	RecFrame(channel, subchan, slice int, p *Packet, alevel AudioLevel, fec FECType, retries Retry, spectrum string)
}

// Delivery is one received frame with everything the application needs
// to report it.
type Delivery struct {
	Channel    int
	Subchannel int
	Slice      int
	Packet     *Packet
	ALevel     AudioLevel
	FECType    FECType
	Retries    Retry

	// Spectrum shows how each decoder on the channel fared:
	// '_' nothing, '|' clean, ':' one flip, '.' more flips,
	// '0'..'9' FEC corrections, '+' ten or more.
	Spectrum string
}

// DeliveryQueue is the standard FrameSink: a buffered queue drained by
// the application goroutine.
type DeliveryQueue struct {
	ch      chan Delivery
	backlog atomic.Int32
}

// NewDeliveryQueue makes a queue able to absorb the given number of
// undelivered frames before producers block.
func NewDeliveryQueue(capacity int) *DeliveryQueue {
	if capacity < 1 {
		capacity = 64
	}
	return &DeliveryQueue{ch: make(chan Delivery, capacity)}
}

// RecFrame implements FrameSink.
func (q *DeliveryQueue) RecFrame(channel, subchan, slice int, p *Packet, alevel AudioLevel, fec FECType, retries Retry, spectrum string) {
	if p == nil {
		logger.Error("internal error: nil packet offered to delivery queue")
		return
	}

	// A long standing failure mode is an application that stops
	// draining, e.g. writing frames to a pseudo terminal nobody
	// reads.  Complain before we block so there is a clue in the log.
	if q.backlog.Add(1) > 10 {
		logger.Error("received frame queue is out of control; reader is probably frozen",
			"length", q.backlog.Load())
	}

	q.ch <- Delivery{
		Channel:    channel,
		Subchannel: subchan,
		Slice:      slice,
		Packet:     p,
		ALevel:     alevel,
		FECType:    fec,
		Retries:    retries,
		Spectrum:   spectrum,
	}
}

// Next blocks until a frame is available.  ok is false after Close once
// the queue is drained.
func (q *DeliveryQueue) Next() (Delivery, bool) {
	var d, ok = <-q.ch
	if ok {
		q.backlog.Add(-1)
	}
	return d, ok
}

// Close ends the queue.  Producers must be stopped first.
func (q *DeliveryQueue) Close() {
	close(q.ch)
}
