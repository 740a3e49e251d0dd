package serialconn

import (
	"fmt"
	"io"

	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"

	"github.com/obsidianstack/serialbridge/pkg/types"
)

// MockPath is the port path that selects the simulated source.
const MockPath = "mock"

// mockManufacturer is shown next to MockPath in the port list.
const mockManufacturer = "Simulated sensor"

// Port is the part of serial.Port the manager uses. Tests substitute pipes.
type Port io.ReadCloser

// Opener opens path at the given baud rate.
type Opener func(path string, baudRate int) (Port, error)

// Lister enumerates the serial devices present on the host.
type Lister func() ([]*enumerator.PortDetails, error)

// OpenSerial opens a real device in 8N1 mode.
func OpenSerial(path string, baudRate int) (Port, error) {
	return serial.Open(path, &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
}

// ListSerial enumerates devices with their USB details where available.
func ListSerial() ([]*enumerator.PortDetails, error) {
	return enumerator.GetDetailedPortsList()
}

// toPortInfo maps enumerator details to the REST representation. The
// enumerator has no manufacturer field, so the product string stands in,
// falling back to the USB VID:PID pair.
func toPortInfo(d *enumerator.PortDetails) types.PortInfo {
	info := types.PortInfo{Path: d.Name}
	switch {
	case d.Product != "":
		info.Manufacturer = d.Product
	case d.IsUSB:
		info.Manufacturer = fmt.Sprintf("USB %s:%s", d.VID, d.PID)
	}
	return info
}
