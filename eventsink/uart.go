package eventsink

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"github.com/tarm/serial"

	"knockbell/detect"
)

const (
	framePreamble = 0xAA
	frameEnd      = 0x55
)

// SerialPort is the subset of a serial connection this package needs,
// letting tests substitute an in-memory pipe for the real device.
type SerialPort interface {
	io.ReadWriteCloser
}

// UARTSink relays detection events to an external controller (status
// panel, home-automation hub, embedded companion board) over a serial
// link, framing each event as [preamble][event byte][checksum][end].
type UARTSink struct {
	Port     string
	BaudRate int
	conn     SerialPort
}

// NewUARTSink creates a relay targeting the named serial device.
func NewUARTSink(port string, baudRate int) *UARTSink {
	return &UARTSink{Port: port, BaudRate: baudRate}
}

// Open opens the serial connection.
func (u *UARTSink) Open() error {
	cfg := &serial.Config{Name: u.Port, Baud: u.BaudRate, ReadTimeout: 500 * time.Millisecond}
	conn, err := serial.OpenPort(cfg)
	if err != nil {
		return err
	}
	u.conn = conn
	return nil
}

// Close closes the serial connection.
func (u *UARTSink) Close() error {
	if u.conn == nil {
		return nil
	}
	return u.conn.Close()
}

// SendDetections frames and transmits one batch's detection bitmask.
func (u *UARTSink) SendDetections(d detect.Detections) error {
	if u.conn == nil {
		return fmt.Errorf("eventsink: serial connection not open")
	}

	frame := []byte{framePreamble, byte(d), checksum(byte(d)), frameEnd}
	_, err := u.conn.Write(frame)
	return err
}

// ReadAck reads one acknowledgement frame from the controller and reports
// whether it equals the frame SendDetections would send for expected.
func (u *UARTSink) ReadAck(expected detect.Detections) (bool, error) {
	if u.conn == nil {
		return false, fmt.Errorf("eventsink: serial connection not open")
	}

	buf := make([]byte, 8)
	n, err := u.conn.Read(buf)
	if err != nil && err != io.EOF {
		return false, err
	}
	if n == 0 {
		return false, fmt.Errorf("eventsink: no ack received")
	}

	frame := []byte{framePreamble, byte(expected), checksum(byte(expected)), frameEnd}
	return bytes.Equal(buf[:n], frame), nil
}

func checksum(b byte) byte {
	return b ^ 0xFF
}
