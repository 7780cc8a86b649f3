package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/khanhnv2901/wisafe/internal/domain/network"
	"github.com/khanhnv2901/wisafe/internal/shared/constants"
	"github.com/khanhnv2901/wisafe/internal/shared/security"
)

// NetworkCache persists the last expert scan so later commands can refer to
// its records.
type NetworkCache struct {
	path string
}

// NewNetworkCache returns a cache stored at path.
func NewNetworkCache(path string) *NetworkCache {
	return &NetworkCache{path: path}
}

// Load reads the cached list. A missing file yields an empty list.
func (c *NetworkCache) Load() (*network.List, error) {
	list := network.NewList()
	data, err := os.ReadFile(c.path)
	if errors.Is(err, fs.ErrNotExist) {
		return list, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read network cache: %w", err)
	}
	var records []network.Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parse network cache: %w", err)
	}
	list.Replace(records)
	return list, nil
}

// Save writes list to disk.
func (c *NetworkCache) Save(list *network.List) error {
	if err := os.MkdirAll(filepath.Dir(c.path), constants.DefaultDirPerm); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}
	data, err := json.MarshalIndent(list.Records(), "", "  ")
	if err != nil {
		return fmt.Errorf("encode network cache: %w", err)
	}
	// Cracked passphrases may be stored, so keep the file private.
	return security.WriteFileAtomic(c.path, data, constants.SecretFilePerm)
}
