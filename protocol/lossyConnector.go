package protocol

import (
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// LossConfig describes how a lossy connector mistreats outgoing datagrams.
// Rates are probabilities in [0, 1].
type LossConfig struct {
	LossRate        float64
	CorruptionRate  float64
	DuplicationRate float64
	// MaxDelay delays every delivery by a random duration up to MaxDelay,
	// which also reorders datagrams.
	MaxDelay time.Duration
	Seed     int64
}

func (config LossConfig) isZero() bool {
	return config == LossConfig{Seed: config.Seed}
}

type lossyConnector struct {
	extension Connector
	config    LossConfig
	logger    zerolog.Logger

	mutex  sync.Mutex
	random *rand.Rand
}

// NewLossyConnector simulates an unreliable channel on top of connector.
// Reads are passed through untouched.
func NewLossyConnector(connector Connector, config LossConfig) Connector {
	if config.isZero() {
		return connector
	}
	return &lossyConnector{
		extension: connector,
		config:    config,
		logger:    componentLogger("lossy"),
		random:    rand.New(rand.NewSource(config.Seed)),
	}
}

func (connector *lossyConnector) Open() error {
	return connector.extension.Open()
}

func (connector *lossyConnector) Close() error {
	return connector.extension.Close()
}

func (connector *lossyConnector) Read(buffer []byte) (statusCode, int, error) {
	return connector.extension.Read(buffer)
}

func (connector *lossyConnector) SetReadTimeout(t time.Duration) {
	connector.extension.SetReadTimeout(t)
}

func (connector *lossyConnector) Write(buffer []byte) (statusCode, int, error) {
	connector.mutex.Lock()
	if connector.chance(connector.config.LossRate) {
		connector.mutex.Unlock()
		connector.logger.Debug().Int("size", len(buffer)).Msg("dropped")
		return success, len(buffer), nil
	}
	datagram := buffer
	copied := false
	if len(buffer) > 0 && connector.chance(connector.config.CorruptionRate) {
		datagram = append([]byte(nil), buffer...)
		copied = true
		index := connector.random.Intn(len(datagram))
		datagram[index] ^= byte(1 + connector.random.Intn(255))
		connector.logger.Debug().Int("index", index).Msg("corrupted")
	}
	copies := 1
	if connector.chance(connector.config.DuplicationRate) {
		copies = 2
	}
	delays := make([]time.Duration, copies)
	delayed := false
	for i := range delays {
		delays[i] = connector.delay()
		delayed = delayed || delays[i] > 0
	}
	connector.mutex.Unlock()
	// delayed writes outlive the call, so they must not share the caller's buffer
	if delayed && !copied {
		datagram = append([]byte(nil), buffer...)
	}

	for _, delay := range delays {
		if delay == 0 {
			if status, n, err := connector.extension.Write(datagram); err != nil {
				return status, n, err
			}
			continue
		}
		time.AfterFunc(delay, func() {
			if _, _, err := connector.extension.Write(datagram); err != nil {
				connector.logger.Warn().Err(err).Msg("delayed write failed")
			}
		})
	}
	return success, len(buffer), nil
}

func (connector *lossyConnector) chance(rate float64) bool {
	return rate > 0 && connector.random.Float64() < rate
}

func (connector *lossyConnector) delay() time.Duration {
	if connector.config.MaxDelay <= 0 {
		return 0
	}
	return time.Duration(connector.random.Int63n(int64(connector.config.MaxDelay)))
}
