package loaders

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

const spirvMagic uint32 = 0x07230203

// BinaryLoader reads precompiled SPIR-V modules.
type BinaryLoader struct{}

func (bl *BinaryLoader) Load(path string, params interface{}) (*Resource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	buf, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	if len(buf) < 4 || len(buf)%4 != 0 {
		return nil, fmt.Errorf("`%s` is %d bytes, not a whole number of SPIR-V words", path, len(buf))
	}
	if magic := binary.LittleEndian.Uint32(buf); magic != spirvMagic {
		return nil, fmt.Errorf("`%s` has bad SPIR-V magic 0x%08X", path, magic)
	}

	return &Resource{
		Name:     nameOf(path),
		FullPath: path,
		Type:     ResourceTypeShaderBinary,
		DataSize: uint64(len(buf)),
		Data:     buf,
	}, nil
}

func (bl *BinaryLoader) Unload(*Resource) error {
	return nil
}
