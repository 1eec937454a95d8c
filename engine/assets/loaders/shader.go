package loaders

import (
	"fmt"
	"os"
)

type ShaderLoader struct{}

func (sl *ShaderLoader) Load(path string, params interface{}) (*Resource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("shader source `%s` is empty", path)
	}
	return &Resource{
		Name:     nameOf(path),
		FullPath: path,
		Type:     ResourceTypeShader,
		DataSize: uint64(len(data)),
		Data:     string(data),
	}, nil
}

func (sl *ShaderLoader) Unload(*Resource) error {
	return nil
}
