package memhost

import (
	"github.com/reglet-dev/hostbridge/hostapi"
)

// OpenKey implements hostapi.Keyspace. Missing keys still get a handle whose
// type is KeyTypeEmpty.
func (h *Host) OpenKey(ctx hostapi.ContextPtr, name hostapi.Buf, mode hostapi.KeyMode) hostapi.KeyPtr {
	keyName, ok := h.readString(name)
	if !ok {
		return 0
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, live := h.liveContext(ctx); !live {
		return 0
	}
	h.nextHandle++
	ptr := hostapi.KeyPtr(h.nextHandle)
	h.keys[ptr] = &keyHandle{name: keyName, mode: mode}
	return ptr
}

// CloseKey implements hostapi.Keyspace.
func (h *Host) CloseKey(key hostapi.KeyPtr) {
	h.mu.Lock()
	defer h.mu.Unlock()
	k, ok := h.keys[key]
	if !ok {
		return
	}
	delete(h.keys, key)
	for _, b := range k.bufs {
		h.alloc.Free(b.Ptr)
	}
}

// OpenKeys returns the number of key handles not yet closed.
func (h *Host) OpenKeys() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.keys)
}

func (h *Host) key(ptr hostapi.KeyPtr) (*keyHandle, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	k, ok := h.keys[ptr]
	return k, ok
}

// KeyType implements hostapi.Keyspace.
func (h *Host) KeyType(key hostapi.KeyPtr) hostapi.KeyType {
	k, ok := h.key(key)
	if !ok {
		return hostapi.KeyTypeEmpty
	}
	return h.store.Type(k.name)
}

// StringGet implements hostapi.Keyspace. The returned buffer is owned by the
// host and stays valid until the key is closed.
func (h *Host) StringGet(key hostapi.KeyPtr) (hostapi.Buf, bool) {
	k, ok := h.key(key)
	if !ok {
		return hostapi.Buf{}, false
	}
	s, ok := h.store.GetString(k.name)
	if !ok {
		return hostapi.Buf{}, false
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	b := h.copyIn([]byte(s))
	if !b.IsNull() {
		k.bufs = append(k.bufs, b)
	}
	return b, true
}

// StringSet implements hostapi.Keyspace. The key must be open for writing.
func (h *Host) StringSet(key hostapi.KeyPtr, data hostapi.Buf) hostapi.Status {
	k, ok := h.key(key)
	if !ok || k.mode&hostapi.KeyWrite == 0 {
		return hostapi.StatusErr
	}
	s, ok := h.readString(data)
	if !ok {
		return hostapi.StatusErr
	}
	h.store.SetString(k.name, s)
	return hostapi.StatusOK
}

// DeleteKey implements hostapi.Keyspace. The key must be open for writing.
func (h *Host) DeleteKey(key hostapi.KeyPtr) hostapi.Status {
	k, ok := h.key(key)
	if !ok || k.mode&hostapi.KeyWrite == 0 {
		return hostapi.StatusErr
	}
	h.store.Delete(k.name)
	return hostapi.StatusOK
}

// CreateString implements hostapi.Strings.
func (h *Host) CreateString(ctx hostapi.ContextPtr, data hostapi.Buf) hostapi.StringPtr {
	s, ok := h.readString(data)
	if !ok {
		return 0
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, live := h.liveContext(ctx); !live {
		return 0
	}
	h.nextHandle++
	ptr := hostapi.StringPtr(h.nextHandle)
	h.strings[ptr] = h.copyIn([]byte(s))
	return ptr
}

// FreeString implements hostapi.Strings.
func (h *Host) FreeString(_ hostapi.ContextPtr, str hostapi.StringPtr) {
	h.mu.Lock()
	defer h.mu.Unlock()
	b, ok := h.strings[str]
	if !ok {
		return
	}
	delete(h.strings, str)
	if !b.IsNull() {
		h.alloc.Free(b.Ptr)
	}
}

// StringPtrLen implements hostapi.Strings.
func (h *Host) StringPtrLen(str hostapi.StringPtr) hostapi.Buf {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.strings[str]
}

// LiveStrings returns the number of host strings not yet freed.
func (h *Host) LiveStrings() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.strings)
}
