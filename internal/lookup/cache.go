package lookup

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/go-viper/mapstructure/v2"
	"github.com/ubuntu/decorate"
	"go.uber.org/zap"
)

// Cache is a JSON file of lookup results keyed by lookup key, the
// equivalent of cdk.context.json. Once a value is cached, evaluations read
// it instead of calling AWS.
type Cache struct {
	path   string
	logger *zap.Logger
}

// NewCache returns a cache backed by the file at path. The file is created
// on the first Put.
func NewCache(path string, logger *zap.Logger) *Cache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{path: path, logger: logger}
}

// Path returns the cache file path.
func (c *Cache) Path() string {
	return c.path
}

// Entries returns every cached value. A missing file is an empty cache.
func (c *Cache) Entries() (entries map[string]any, err error) {
	defer decorate.OnError(&err, "could not read context file %s", c.path)

	data, err := os.ReadFile(c.path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]any{}, nil
	}
	if err != nil {
		return nil, err
	}

	entries = make(map[string]any)
	if len(data) == 0 {
		return entries, nil
	}
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, errors.Join(errors.New("context file is invalid and could not be parsed"), err)
	}
	return entries, nil
}

// Keys returns the cached keys in sorted order.
func (c *Cache) Keys() ([]string, error) {
	entries, err := c.Entries()
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

// Get decodes the value cached under key into out. It reports whether the
// key was present.
func (c *Cache) Get(key string, out any) (found bool, err error) {
	defer decorate.OnError(&err, "could not read context key %q", key)

	entries, err := c.Entries()
	if err != nil {
		return false, err
	}
	raw, ok := entries[key]
	if !ok {
		return false, nil
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		TagName:          "json",
		Result:           out,
	})
	if err != nil {
		return false, fmt.Errorf("failed to create decoder: %v", err)
	}
	if err := decoder.Decode(raw); err != nil {
		return false, errors.Join(errors.New("cached value does not match expected structure"), err)
	}

	c.logger.Debug("Context cache hit", zap.String("key", key))
	return true, nil
}

// Put stores value under key, replacing any previous value.
func (c *Cache) Put(key string, value any) (err error) {
	defer decorate.OnError(&err, "could not write context key %q", key)

	entries, err := c.Entries()
	if err != nil {
		return err
	}

	// Store the JSON form so Entries returns the same shape it would read back.
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	var normalized any
	if err := json.Unmarshal(data, &normalized); err != nil {
		return err
	}
	entries[key] = normalized

	return c.write(entries)
}

// Clear removes the given keys, or every key when none is given.
// It returns the removed keys.
func (c *Cache) Clear(keys ...string) (removed []string, err error) {
	defer decorate.OnError(&err, "could not clear context file %s", c.path)

	entries, err := c.Entries()
	if err != nil {
		return nil, err
	}

	if len(keys) == 0 {
		for k := range entries {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		if _, ok := entries[k]; !ok {
			continue
		}
		delete(entries, k)
		removed = append(removed, k)
	}

	if len(removed) == 0 {
		return nil, nil
	}
	c.logger.Info("Cleared context keys", zap.Strings("keys", removed))
	return removed, c.write(entries)
}

// write replaces the cache file atomically.
func (c *Cache) write(entries map[string]any) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')

	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(c.path)+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), c.path)
}
