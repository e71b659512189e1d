package main

import (
	"bufio"
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	flags "github.com/jessevdk/go-flags"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/nicosta1132/gbn-go/protocol"
)

type globalOptions struct {
	Verbose bool `short:"v" long:"verbose" description:"log every segment"`
}

type ProtocolOptions struct {
	WindowSize        int           `long:"window-size" default:"4" description:"maximum number of unacknowledged segments"`
	PacketSize        int           `long:"packet-size" default:"10" description:"payload bytes per segment"`
	RetransmitTimeout time.Duration `long:"retransmit-timeout" default:"100ms" description:"go-back-N retransmission interval"`
	ChannelTimeout    time.Duration `long:"channel-timeout" default:"10s" description:"idle period after which the channel is considered dead"`
}

func (options ProtocolOptions) config() protocol.Config {
	return protocol.Config{
		WindowSize:        options.WindowSize,
		PacketSize:        options.PacketSize,
		RetransmitTimeout: options.RetransmitTimeout,
		ChannelTimeout:    options.ChannelTimeout,
	}
}

type ChannelOptions struct {
	Address      string        `long:"address" default:"localhost" description:"peer host"`
	InboundPort  int           `long:"inbound-port" description:"local port to listen on (role default if unset)"`
	OutboundPort int           `long:"outbound-port" description:"peer port to send to (role default if unset)"`
	Loss         float64       `long:"loss" default:"0" description:"probability of dropping an outgoing datagram"`
	Corruption   float64       `long:"corruption" default:"0" description:"probability of corrupting an outgoing datagram"`
	Duplication  float64       `long:"duplication" default:"0" description:"probability of duplicating an outgoing datagram"`
	MaxDelay     time.Duration `long:"max-delay" default:"0" description:"maximum random delay of an outgoing datagram"`
	Seed         int64         `long:"seed" default:"1" description:"seed of the channel simulator"`
}

func (options ChannelOptions) open(inboundPort, outboundPort int) (protocol.Connector, error) {
	if options.InboundPort != 0 {
		inboundPort = options.InboundPort
	}
	if options.OutboundPort != 0 {
		outboundPort = options.OutboundPort
	}
	connector := protocol.NewLossyConnector(
		protocol.NewUDPConnector(options.Address, outboundPort, inboundPort),
		protocol.LossConfig{
			LossRate:        options.Loss,
			CorruptionRate:  options.Corruption,
			DuplicationRate: options.Duplication,
			MaxDelay:        options.MaxDelay,
			Seed:            options.Seed,
		})
	if err := connector.Open(); err != nil {
		return nil, err
	}
	log.Info().
		Str("address", options.Address).
		Int("inbound", inboundPort).
		Int("outbound", outboundPort).
		Msg("channel open")
	return connector, nil
}

type sendCommand struct {
	Protocol ProtocolOptions `group:"Protocol Options"`
	Channel  ChannelOptions  `group:"Channel Options"`
}

func (command *sendCommand) Execute(args []string) error {
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return errors.Wrap(err, "read stdin")
	}
	connector, err := command.Channel.open(protocol.DefaultSenderInboundPort, protocol.DefaultSenderOutboundPort)
	if err != nil {
		return err
	}
	sender, err := protocol.NewSender(connector, command.Protocol.config())
	if err != nil {
		_ = connector.Close()
		return err
	}
	defer sender.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := sender.Send(ctx, data); err != nil {
		return err
	}
	stats := sender.Stats()
	log.Info().
		Int("bytes", len(data)).
		Int("sent", stats.PacketsSent).
		Int("retransmissions", stats.Retransmissions).
		Int("corruptAcks", stats.CorruptAcks).
		Msg("payload delivered")
	return nil
}

type receiveCommand struct {
	Protocol ProtocolOptions `group:"Protocol Options"`
	Channel  ChannelOptions  `group:"Channel Options"`
}

func (command *receiveCommand) Execute(args []string) error {
	connector, err := command.Channel.open(protocol.DefaultReceiverInboundPort, protocol.DefaultReceiverOutboundPort)
	if err != nil {
		return err
	}
	output := bufio.NewWriter(os.Stdout)
	receiver, err := protocol.NewReceiver(connector, command.Protocol.config(), output)
	if err != nil {
		_ = connector.Close()
		return err
	}
	defer receiver.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	err = receiver.Receive(ctx)
	if flushErr := output.Flush(); flushErr != nil && err == nil {
		err = errors.Wrap(flushErr, "flush stdout")
	}
	if errors.Is(err, protocol.ErrChannelTimeout) {
		stats := receiver.Stats()
		log.Info().
			Int("accepted", stats.Accepted).
			Int("bytes", stats.BytesDelivered).
			Int("duplicateAcks", stats.DuplicateAcks).
			Int("corrupt", stats.CorruptSegments).
			Msg("channel idle, done")
		return nil
	}
	return err
}

var options globalOptions

func setupLogging() {
	level := zerolog.InfoLevel
	if options.Verbose {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().
		Timestamp().
		Logger()
}

func newParser() (*flags.Parser, error) {
	parser := flags.NewParser(&options, flags.Default)
	parser.CommandHandler = func(command flags.Commander, args []string) error {
		setupLogging()
		return command.Execute(args)
	}
	if _, err := parser.AddCommand("send", "Send stdin to a receiver",
		"Reads stdin completely and delivers it over the channel with go-back-N recovery.", &sendCommand{}); err != nil {
		return nil, errors.Wrap(err, "register send")
	}
	if _, err := parser.AddCommand("receive", "Write received data to stdout",
		"Writes every in-order segment to stdout as it is accepted, until the channel stays idle.", &receiveCommand{}); err != nil {
		return nil, errors.Wrap(err, "register receive")
	}
	return parser, nil
}

func main() {
	parser, err := newParser()
	if err != nil {
		log.Fatal().Err(err).Msg("cli setup")
	}

	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				os.Exit(0)
			}
			os.Exit(1)
		}
		log.Error().Err(err).Msg("failed")
		os.Exit(1)
	}
}
