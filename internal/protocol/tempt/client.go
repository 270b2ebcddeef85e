package tempt

import (
	"errors"

	"thermostab/internal/protocol"
)

var errNoReply = errors.New("no reply")

// Client speaks the T-C board protocol over an exchanger.
type Client struct {
	link protocol.Exchanger
}

func NewClient(link protocol.Exchanger) *Client {
	return &Client{link: link}
}

// Send writes a value to a writable parameter.
func (c *Client) Send(p Param, v float64) error {
	req, err := EncodeWrite(p, v)
	if err != nil {
		return err
	}
	resp, err := c.exchange(p, req)
	if err != nil {
		return err
	}
	return CheckResponse(resp)
}

// Read fetches the current value of any parameter.
func (c *Client) Read(p Param) (float64, error) {
	req, err := EncodeRead(p)
	if err != nil {
		return 0, err
	}
	resp, err := c.exchange(p, req)
	if err != nil {
		return 0, err
	}
	return DecodeValue(resp)
}

func (c *Client) exchange(p Param, req []byte) ([]byte, error) {
	resp, err := c.link.Exchange(req, maxResponse, lineComplete)
	if err != nil {
		return nil, protocol.Errorf(protocol.KindCom, p.String(), err)
	}
	if len(resp) == 0 {
		return nil, protocol.Errorf(protocol.KindCom, p.String(), errNoReply)
	}
	return resp, nil
}
