package protocol

import (
	"net"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

type udpConnector struct {
	senderAddress string
	senderPort    int
	receiverPort  int
	udpSender     *net.UDPConn
	udpReceiver   *net.UDPConn
	readTimeout   time.Duration
	logger        zerolog.Logger
}

// NewUDPConnector writes datagrams to address:senderPort and reads them from
// localhost:receiverPort. Open must be called before use.
func NewUDPConnector(address string, senderPort, receiverPort int) Connector {
	return &udpConnector{
		senderAddress: address,
		senderPort:    senderPort,
		receiverPort:  receiverPort,
		logger:        componentLogger("udp"),
	}
}

func createUDPAddress(addressString string, port int) (*net.UDPAddr, error) {
	address := net.JoinHostPort(addressString, strconv.Itoa(port))
	udpAddress, err := net.ResolveUDPAddr("udp4", address)
	return udpAddress, errors.Wrapf(err, "resolve %s", address)
}

func (connector *udpConnector) Open() error {
	senderAddress, err := createUDPAddress(connector.senderAddress, connector.senderPort)
	if err != nil {
		return err
	}
	receiverAddress, err := createUDPAddress("localhost", connector.receiverPort)
	if err != nil {
		return err
	}
	connector.udpSender, err = net.DialUDP("udp4", nil, senderAddress)
	if err != nil {
		return errors.Wrapf(err, "dial %v", senderAddress)
	}
	connector.udpReceiver, err = net.ListenUDP("udp4", receiverAddress)
	if err != nil {
		_ = connector.udpSender.Close()
		return errors.Wrapf(err, "listen %v", receiverAddress)
	}
	connector.logger.Debug().
		Stringer("remote", senderAddress).
		Stringer("local", receiverAddress).
		Msg("opened")
	return nil
}

func (connector *udpConnector) Close() error {
	if connector.udpSender == nil || connector.udpReceiver == nil {
		return nil
	}
	senderError := connector.udpSender.Close()
	receiverError := connector.udpReceiver.Close()
	if senderError != nil {
		return senderError
	}
	return receiverError
}

func (connector *udpConnector) Write(buffer []byte) (statusCode, int, error) {
	if connector.udpSender == nil {
		return fail, 0, ErrClosed
	}
	n, err := connector.udpSender.Write(buffer)
	if errors.Is(err, net.ErrClosed) {
		return fail, n, ErrClosed
	}
	if err != nil {
		return fail, n, err
	}
	return success, n, nil
}

func (connector *udpConnector) Read(buffer []byte) (statusCode, int, error) {
	if connector.udpReceiver == nil {
		return fail, 0, ErrClosed
	}
	if connector.readTimeout > 0 {
		err := connector.udpReceiver.SetReadDeadline(time.Now().Add(connector.readTimeout))
		if err != nil {
			return fail, 0, err
		}
	}
	n, err := connector.udpReceiver.Read(buffer)
	if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
		return timeout, 0, nil
	}
	if errors.Is(err, net.ErrClosed) {
		return fail, n, ErrClosed
	}
	if err != nil {
		return fail, n, err
	}
	return success, n, nil
}

func (connector *udpConnector) SetReadTimeout(t time.Duration) {
	connector.readTimeout = t
}
