package borzoi

/*------------------------------------------------------------------
 *
 * Purpose:	Audio intake from an SDR sending raw PCM over UDP.
 *
 * Description:	Datagrams carry bare samples in the configured
 *		encoding, no header; packet boundaries are irrelevant.
 *		Each refill takes whatever one datagram provides; a
 *		short read just means the next refill happens sooner.
 *
 *---------------------------------------------------------------*/

import (
	"fmt"
	"net"
)

type udpSource struct {
	conn *net.UDPConn
}

func newUDPSource(port int) (*udpSource, error) {
	var conn, err = net.ListenUDP("udp", &net.UDPAddr{Port: port})
	if err != nil {
		return nil, fmt.Errorf("listen UDP port %d: %v: %w", port, err, ErrFatal)
	}
	logger.Info("listening for raw PCM audio", "udp_port", port)
	return &udpSource{conn: conn}, nil
}

func (s *udpSource) ReadBlock(p []byte) (int, error) {
	var n, _, err = s.conn.ReadFromUDP(p)
	if err != nil {
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			return 0, fmt.Errorf("udp: %v: %w", err, ErrTransient)
		}
		return 0, fmt.Errorf("udp: %v: %w", err, ErrFatal)
	}
	return n, nil
}

func (s *udpSource) WriteBlock(p []byte) (int, error) {
	return 0, fmt.Errorf("udp source has no output path: %w", ErrFatal)
}

func (s *udpSource) Close() error {
	return s.conn.Close()
}
