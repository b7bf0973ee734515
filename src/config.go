package borzoi

/*------------------------------------------------------------------
 *
 * Purpose:	Receive pipeline configuration.
 *
 * Description:	One DeviceConfig per audio device and one ChannelConfig
 *		per radio channel.  A device in mono mode provides one
 *		channel, stereo provides two; device a supplies channels
 *		2a and 2a+1 so there can be gaps in the channel numbers.
 *
 *		Configuration is write once: Normalize is called during
 *		start up and nothing mutates it afterwards, so the
 *		receive threads read it without locking.
 *
 *---------------------------------------------------------------*/

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultUDPAudioPort is used for "udp" input with no port given.
const DefaultUDPAudioPort = 7355

const (
	defaultSampleRate    = 44100
	defaultBitsPerSample = 16
	defaultBaud          = 1200
	defaultStatsInterval = 100
)

// SanityLevel selects how much checking a repaired frame must survive
// before we believe the CRC match was not a coincidence.
type SanityLevel int

const (
	// SanityAPRS requires a valid AX.25 address part and an APRS
	// looking information part.
	SanityAPRS SanityLevel = iota
	// SanityAX25 requires only a valid address part, for connected
	// mode packet where the payload can be anything.
	SanityAX25
	// SanityNone accepts any bytes, for protocols that do not
	// conform to AX.25 at all.
	SanityNone
)

// DeviceConfig describes one audio input device.
type DeviceConfig struct {
	// InputName selects the source: "stdin" or "-" for standard
	// input, "udp" or "udp:<port>" for raw PCM datagrams, a name
	// ending in ".wav" for a recorded file, anything else for a
	// sound card identifier.
	InputName string `yaml:"input"`

	SampleRate    int `yaml:"sample_rate"`
	BitsPerSample int `yaml:"bits_per_sample"` // 8 (unsigned) or 16 (signed LE).
	Channels      int `yaml:"channels"`        // 1 or 2.

	// StatsInterval is the number of seconds between audio level
	// reports.  0 turns them off.
	StatsInterval int `yaml:"stats_interval"`

	Defined bool `yaml:"-"`
}

// ChannelConfig describes one radio channel's receive chain.
type ChannelConfig struct {
	Modem      ModemType   `yaml:"modem"`
	Baud       int         `yaml:"baud"`
	NumSubchan int         `yaml:"subchannels"`
	NumSlicers int         `yaml:"slicers"`
	FixBits    Retry       `yaml:"fix_bits"`
	SanityTest SanityLevel `yaml:"sanity"`

	// PassAll lets frames through with a bad FCS after all repair
	// attempts are exhausted, tagged RetryMax.
	PassAll bool `yaml:"pass_all"`

	// IL2PCRC expects IL2P transmissions on this channel to carry
	// the Hamming protected trailing CRC.
	IL2PCRC bool `yaml:"il2p_crc"`
}

// Config is the whole receive configuration.
type Config struct {
	ADevs [MaxADevs]DeviceConfig      `yaml:"devices"`
	Chans [MaxRadioChans]ChannelConfig `yaml:"channels"`

	// RecvBER artificially inverts incoming bits with this
	// probability, for testing with a known bit error rate.
	RecvBER float64 `yaml:"recv_ber"`

	// RecvErrorRate randomly drops this percentage of received
	// frames before delivery, for test harnesses.
	RecvErrorRate int `yaml:"recv_error_rate"`
}

// adevOfChan maps a radio channel to its audio device.
func adevOfChan(channel int) int {
	return channel / 2
}

// firstChanOfADev maps an audio device to its first radio channel.
func firstChanOfADev(a int) int {
	return a * 2
}

// DefaultConfig returns a single device configuration reading from
// standard input with one 1200 baud AFSK channel.
func DefaultConfig() *Config {
	var c = new(Config)
	c.ADevs[0] = DeviceConfig{
		InputName:     "stdin",
		SampleRate:    defaultSampleRate,
		BitsPerSample: defaultBitsPerSample,
		Channels:      1,
		StatsInterval: defaultStatsInterval,
		Defined:       true,
	}
	for ch := range c.Chans {
		c.Chans[ch] = ChannelConfig{
			Modem:      ModemAFSK,
			Baud:       defaultBaud,
			NumSubchan: 1,
			NumSlicers: 1,
			FixBits:    RetryNone,
			SanityTest: SanityAPRS,
		}
	}
	return c
}

// LoadConfig reads a YAML configuration file on top of the defaults.
func LoadConfig(path string) (*Config, error) {
	var raw, err = os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	var c = DefaultConfig()
	if err := yaml.Unmarshal(raw, c); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	for a := range c.ADevs {
		c.ADevs[a].Defined = c.ADevs[a].InputName != ""
	}
	c.Normalize()
	return c, nil
}

// Normalize fills defaults and clamps out of range values.  It warns
// about bad device bit depths and channel counts and about out of range
// recv_ber and recv_error_rate; the channel defaults and clamps are
// applied silently.  Must be called before the
// configuration is shared with the receive threads.
func (c *Config) Normalize() {
	for a := range c.ADevs {
		var d = &c.ADevs[a]
		if !d.Defined {
			continue
		}
		if d.SampleRate <= 0 {
			d.SampleRate = defaultSampleRate
		}
		if d.BitsPerSample != 8 && d.BitsPerSample != 16 {
			if d.BitsPerSample != 0 {
				logger.Warn("unsupported bits per sample, using 16", "device", a, "bits", d.BitsPerSample)
			}
			d.BitsPerSample = 16
		}
		if d.Channels != 1 && d.Channels != 2 {
			if d.Channels != 0 {
				logger.Warn("channel count must be 1 or 2, using 1", "device", a, "channels", d.Channels)
			}
			d.Channels = 1
		}
	}
	for ch := range c.Chans {
		var ac = &c.Chans[ch]
		if ac.Baud <= 0 {
			ac.Baud = defaultBaud
		}
		if ac.NumSubchan < 1 || ac.NumSubchan > MaxSubchans {
			ac.NumSubchan = 1
		}
		if ac.NumSlicers < 1 || ac.NumSlicers > MaxSlicers {
			ac.NumSlicers = 1
		}
		if ac.FixBits < RetryNone || ac.FixBits > RetryMax {
			ac.FixBits = RetryNone
		}
	}
	if c.RecvBER < 0 || c.RecvBER > 1 {
		logger.Warn("recv_ber must be a probability, ignoring", "value", c.RecvBER)
		c.RecvBER = 0
	}
	if c.RecvErrorRate < 0 || c.RecvErrorRate > 100 {
		logger.Warn("recv_error_rate must be a percentage, ignoring", "value", c.RecvErrorRate)
		c.RecvErrorRate = 0
	}
}

// channelDefined reports whether a channel is backed by a defined
// device.
func (c *Config) channelDefined(channel int) bool {
	if channel < 0 || channel >= MaxRadioChans {
		return false
	}
	var d = &c.ADevs[adevOfChan(channel)]
	if !d.Defined {
		return false
	}
	return d.Channels == 2 || channel == firstChanOfADev(adevOfChan(channel))
}

func (m *ModemType) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	switch strings.ToLower(s) {
	case "", "afsk":
		*m = ModemAFSK
	case "scramble", "g3ruh", "9600":
		*m = ModemScramble
	case "qpsk":
		*m = ModemQPSK
	case "8psk":
		*m = Modem8PSK
	case "eas":
		*m = ModemEAS
	default:
		return fmt.Errorf("unknown modem type %q", s)
	}
	return nil
}

func (s *SanityLevel) UnmarshalYAML(value *yaml.Node) error {
	var v string
	if err := value.Decode(&v); err != nil {
		return err
	}
	switch strings.ToLower(v) {
	case "", "aprs":
		*s = SanityAPRS
	case "ax25":
		*s = SanityAX25
	case "none":
		*s = SanityNone
	default:
		return fmt.Errorf("unknown sanity level %q", v)
	}
	return nil
}
