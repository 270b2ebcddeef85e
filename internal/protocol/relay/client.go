package relay

import (
	"bytes"
	"fmt"

	"thermostab/internal/protocol"
)

// Client speaks the relay protocol over an exchanger.
type Client struct {
	link protocol.Exchanger
}

func NewClient(link protocol.Exchanger) *Client {
	return &Client{link: link}
}

// WriteRelay switches one channel. The board must echo the request byte for byte.
func (c *Client) WriteRelay(ch Channel, on bool) error {
	req, err := EncodeWrite(ch, on)
	if err != nil {
		return err
	}
	op := fmt.Sprintf("write %s", ch)
	resp, err := c.link.Exchange(req[:], FrameLen, nil)
	if err != nil {
		return protocol.Errorf(protocol.KindCom, op, err)
	}
	if len(resp) != FrameLen {
		return protocol.Errorf(protocol.KindCom, op, fmt.Errorf("short echo: %d bytes", len(resp)))
	}
	if !bytes.Equal(req[:], resp) {
		return protocol.Errorf(protocol.KindCRC, op, fmt.Errorf("echo mismatch % X", resp))
	}
	return nil
}

// ReadAllStatus reads the on/off state of every channel.
func (c *Client) ReadAllStatus() (Status, error) {
	req := EncodeReadAll()
	resp, err := c.link.Exchange(req[:], FrameLen, nil)
	if err != nil {
		return Status{}, protocol.Errorf(protocol.KindCom, "read status", err)
	}
	return DecodeStatus(resp)
}
