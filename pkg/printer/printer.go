package printer

import (
	"context"
	"fmt"
	"net"
	"os"
	"time"
)

// Printer sends raw ESC/POS data to a counter receipt printer.
type Printer interface {
	Print(ctx context.Context, data []byte) error
	IsConnected(ctx context.Context) bool
}

// Device types accepted by New
const (
	TypeNone    = "none"
	TypeUSB     = "usb"
	TypeNetwork = "network"
)

type devicePrinter struct {
	path string
}

// NewDevicePrinter writes to a character device such as /dev/usb/lp0
func NewDevicePrinter(path string) Printer {
	return &devicePrinter{path: path}
}

func (p *devicePrinter) Print(_ context.Context, data []byte) error {
	f, err := os.OpenFile(p.path, os.O_WRONLY, 0)
	if err != nil {
		return fmt.Errorf("printer: open %s: %w", p.path, err)
	}
	defer f.Close()

	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("printer: write %s: %w", p.path, err)
	}
	return nil
}

func (p *devicePrinter) IsConnected(context.Context) bool {
	_, err := os.Stat(p.path)
	return err == nil
}

type networkPrinter struct {
	address string
	dialer  net.Dialer
}

// NewNetworkPrinter dials a raw TCP printer port, usually host:9100
func NewNetworkPrinter(address string) Printer {
	return &networkPrinter{address: address, dialer: net.Dialer{Timeout: 5 * time.Second}}
}

func (p *networkPrinter) Print(ctx context.Context, data []byte) error {
	conn, err := p.dialer.DialContext(ctx, "tcp", p.address)
	if err != nil {
		return fmt.Errorf("printer: connect %s: %w", p.address, err)
	}
	defer conn.Close()

	deadline := time.Now().Add(10 * time.Second)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = conn.SetWriteDeadline(deadline)

	if _, err := conn.Write(data); err != nil {
		return fmt.Errorf("printer: write %s: %w", p.address, err)
	}
	return nil
}

func (p *networkPrinter) IsConnected(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	conn, err := p.dialer.DialContext(ctx, "tcp", p.address)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

type nullPrinter struct{}

// NewNullPrinter discards everything; used when the office has no printer
func NewNullPrinter() Printer {
	return nullPrinter{}
}

func (nullPrinter) Print(context.Context, []byte) error { return nil }
func (nullPrinter) IsConnected(context.Context) bool    { return false }

// New builds the printer for a device type
func New(deviceType, usbPath, address string) (Printer, error) {
	switch deviceType {
	case TypeUSB:
		if usbPath == "" {
			return nil, fmt.Errorf("printer: device path is required for usb printers")
		}
		return NewDevicePrinter(usbPath), nil
	case TypeNetwork:
		if address == "" {
			return nil, fmt.Errorf("printer: address is required for network printers")
		}
		return NewNetworkPrinter(address), nil
	case TypeNone, "":
		return NewNullPrinter(), nil
	default:
		return nil, fmt.Errorf("printer: unknown type %q", deviceType)
	}
}
