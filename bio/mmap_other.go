//go:build !unix

package bio

import "os"

// Platforms without mmap support fall back to reading the whole file.
func mapFile(path string) (data []byte, closer func() error, err error) {
	data, err = os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	return data, func() error { return nil }, nil
}
