//go:build !linux && !darwin

package storage

// MMap falls back to positional file I/O on unsupported platforms
type MMap struct {
	*File
}

func NewMMap(path string) (*MMap, error) {
	f, err := NewFile(path)
	if err != nil {
		return nil, err
	}
	return &MMap{File: f}, nil
}
