package nn

import (
	"fmt"
	"os"

	"github.com/JD-Gaming/jd-gaming/internal/atomicfile"
)

// FileExt is the conventional extension for saved networks.
const FileExt = ".ffw"

// SaveFile writes the encoded network next to path and renames it into place,
// so readers never observe a partial file.
func (n *Network) SaveFile(path string) error {
	data, err := n.MarshalBinary()
	if err != nil {
		return err
	}
	return atomicfile.Write(path, data)
}

// LoadFile reads a network written by SaveFile.
func LoadFile(path string) (*Network, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	net, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return net, nil
}
