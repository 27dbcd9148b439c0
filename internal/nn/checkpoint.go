package nn

import (
	"encoding/gob"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
)

const checkpointVersion = 1

type checkpoint struct {
	Version int
	Step    int
	Network Network
}

// Save writes the network and the training step it was taken at as a zstd
// compressed gob stream.
func (n *Network) Save(w io.Writer, step int) error {
	enc, err := zstd.NewWriter(w)
	if err != nil {
		return fmt.Errorf("zstd encode: %w", err)
	}
	if err := gob.NewEncoder(enc).Encode(checkpoint{Version: checkpointVersion, Step: step, Network: *n}); err != nil {
		enc.Close()
		return fmt.Errorf("encode checkpoint: %w", err)
	}
	return enc.Close()
}

// Load reads a checkpoint written by Save.
func Load(r io.Reader) (*Network, int, error) {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return nil, 0, fmt.Errorf("zstd decode: %w", err)
	}
	defer dec.Close()

	var c checkpoint
	if err := gob.NewDecoder(dec).Decode(&c); err != nil {
		return nil, 0, fmt.Errorf("decode checkpoint: %w", err)
	}
	if c.Version != checkpointVersion {
		return nil, 0, fmt.Errorf("unsupported checkpoint version %d", c.Version)
	}
	if len(c.Network.Layers) == 0 {
		return nil, 0, fmt.Errorf("checkpoint has no layers")
	}
	for i, d := range c.Network.Layers {
		if d == nil || len(d.W) != d.In*d.Out || len(d.B) != d.Out {
			return nil, 0, fmt.Errorf("checkpoint layer %d is malformed", i)
		}
		if i > 0 && c.Network.Layers[i-1].Out != d.In {
			return nil, 0, fmt.Errorf("checkpoint layer %d does not follow layer %d", i, i-1)
		}
	}
	return &c.Network, c.Step, nil
}

// Compatible reports whether other has the same layer shapes.
func (n *Network) Compatible(other *Network) bool {
	if len(n.Layers) != len(other.Layers) {
		return false
	}
	for i, d := range n.Layers {
		if d.In != other.Layers[i].In || d.Out != other.Layers[i].Out {
			return false
		}
	}
	return true
}
