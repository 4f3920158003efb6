package webrtc

import (
	pion "github.com/pion/webrtc/v4"

	"github.com/thomastoledo/prust/internal/negotiation"
)

// DataChannel adapts a pion data channel to negotiation.DataChannel.
type DataChannel struct {
	dc *pion.DataChannel
}

var _ negotiation.DataChannel = (*DataChannel)(nil)

func (d *DataChannel) Send(data []byte) error {
	return d.dc.Send(data)
}

func (d *DataChannel) IsOpen() bool {
	return d.dc.ReadyState() == pion.DataChannelStateOpen
}

func (d *DataChannel) OnOpen(fn func()) {
	d.dc.OnOpen(fn)
}

func (d *DataChannel) OnClose(fn func()) {
	d.dc.OnClose(fn)
}

func (d *DataChannel) OnMessage(fn func(data []byte)) {
	d.dc.OnMessage(func(msg pion.DataChannelMessage) {
		fn(msg.Data)
	})
}

func (d *DataChannel) Close() error {
	return d.dc.Close()
}
