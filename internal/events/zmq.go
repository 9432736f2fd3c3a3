package events

import (
	"context"
	"fmt"

	"github.com/go-zeromq/zmq4"
)

// zmqFeed — SUB-сокет к PUB-сокету сервера.
// Фильтрация по префиксу топика выполняется самим ZeroMQ.
type zmqFeed struct {
	sock zmq4.Socket
}

// DialZMQ подключается к PUB-сокету по адресу вида tcp://host:port.
func DialZMQ(ctx context.Context, addr string) (Feed, error) {
	sock := zmq4.NewSub(ctx)
	if err := sock.Dial(addr); err != nil {
		sock.Close()
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	return &zmqFeed{sock: sock}, nil
}

func (f *zmqFeed) Subscribe(prefix string) error {
	if err := f.sock.SetOption(zmq4.OptionSubscribe, prefix); err != nil {
		return fmt.Errorf("subscribe %s: %w", prefix, err)
	}
	return nil
}

func (f *zmqFeed) Unsubscribe(prefix string) error {
	if err := f.sock.SetOption(zmq4.OptionUnsubscribe, prefix); err != nil {
		return fmt.Errorf("unsubscribe %s: %w", prefix, err)
	}
	return nil
}

func (f *zmqFeed) Recv() ([][]byte, error) {
	msg, err := f.sock.Recv()
	if err != nil {
		return nil, err
	}
	return msg.Frames, nil
}

func (f *zmqFeed) Close() error {
	return f.sock.Close()
}
