package bridge

import (
	"sync"

	"github.com/reglet-dev/hostbridge/domain/errors"
	"github.com/reglet-dev/hostbridge/hostapi"
	"github.com/reglet-dev/hostbridge/internal/abi"
)

// Key is a read-only handle to one key of the host data store.
// Close it when done; Close is idempotent.
type Key struct {
	ctx  *Context
	name string
	once sync.Once
	ptr  hostapi.KeyPtr
}

// KeyWritable is a Key opened for writing.
type KeyWritable struct {
	Key
}

// OpenKey opens name for reading.
func (c *Context) OpenKey(name string) *Key {
	k := &Key{ctx: c, name: name}
	k.ptr = c.openKey(name, hostapi.KeyRead)
	return k
}

// OpenKeyWritable opens name for reading and writing.
func (c *Context) OpenKeyWritable(name string) *KeyWritable {
	k := &KeyWritable{Key: Key{ctx: c, name: name}}
	k.ptr = c.openKey(name, hostapi.KeyRead|hostapi.KeyWrite)
	return k
}

func (c *Context) openKey(name string, mode hostapi.KeyMode) hostapi.KeyPtr {
	if c.mod == nil {
		return 0
	}
	b := c.mod.alloc.CopyString(name)
	defer c.mod.alloc.Free(b)
	return c.mod.host.OpenKey(c.ptr, b, mode)
}

// Name returns the key name.
func (k *Key) Name() string { return k.name }

// Close releases the key handle.
func (k *Key) Close() {
	k.once.Do(func() {
		if !k.ptr.IsNull() {
			k.ctx.mod.host.CloseKey(k.ptr)
		}
	})
}

func (k *Key) host() (hostapi.Host, error) {
	if k.ptr.IsNull() {
		return nil, errors.Str("key '%s' is not open", k.name)
	}
	return k.ctx.mod.host, nil
}

// Type returns the type of the value stored under the key.
func (k *Key) Type() hostapi.KeyType {
	h, err := k.host()
	if err != nil {
		return hostapi.KeyTypeEmpty
	}
	return h.KeyType(k.ptr)
}

// IsEmpty reports whether nothing is stored under the key.
func (k *Key) IsEmpty() bool {
	return k.Type() == hostapi.KeyTypeEmpty
}

// Read returns the string stored under the key. ok is false when the key is
// empty; a value of another type is errors.ErrWrongType.
func (k *Key) Read() (s string, ok bool, err error) {
	h, err := k.host()
	if err != nil {
		return "", false, err
	}
	switch h.KeyType(k.ptr) {
	case hostapi.KeyTypeEmpty:
		return "", false, nil
	case hostapi.KeyTypeString:
	default:
		return "", false, errors.ErrWrongType
	}

	b, found := h.StringGet(k.ptr)
	if !found {
		return "", false, nil
	}
	data, readable := abi.CopyOut(h.Memory(), b)
	if !readable {
		return "", false, errors.Str("key '%s': value is not readable", k.name)
	}
	return string(data), true, nil
}

// Write stores s under the key, replacing any previous value.
func (k *KeyWritable) Write(s string) error {
	h, err := k.host()
	if err != nil {
		return err
	}
	b := k.ctx.mod.alloc.CopyString(s)
	defer k.ctx.mod.alloc.Free(b)
	if h.StringSet(k.ptr, b) != hostapi.StatusOK {
		return errors.Str("key '%s': write refused", k.name)
	}
	return nil
}

// Delete removes the key.
func (k *KeyWritable) Delete() error {
	h, err := k.host()
	if err != nil {
		return err
	}
	if h.DeleteKey(k.ptr) != hostapi.StatusOK {
		return errors.Str("key '%s': delete refused", k.name)
	}
	return nil
}
