package hostapi

// Memory gives byte-level access to host memory.
type Memory interface {
	// Read returns n bytes starting at ptr. The slice may alias host memory
	// and is only valid until the next host call; copy it to keep it.
	Read(ptr Ptr, n uint32) ([]byte, bool)

	// Write copies data into host memory starting at ptr.
	Write(ptr Ptr, data []byte) bool
}

// Allocator is the host's allocation entry point pair.
// Both functions must stay valid for the lifetime of the process once the
// host has initialised the module.
type Allocator interface {
	// Alloc reserves size bytes and returns their address, or a null Ptr on failure.
	Alloc(size uint32) Ptr

	// Free releases memory obtained from Alloc.
	Free(ptr Ptr)

	// Memory returns the address space Alloc hands out pointers into.
	Memory() Memory
}

// ReplyReader queries call replies. Handles stay owned by the host.
type ReplyReader interface {
	CallReplyType(reply ReplyPtr) ReplyType
	CallReplyString(reply ReplyPtr) Buf
	CallReplyInteger(reply ReplyPtr) int64
	CallReplyLength(reply ReplyPtr) int
	CallReplyArrayElement(reply ReplyPtr, idx int) ReplyPtr
	Memory() Memory
}

// Caller invokes host commands.
type Caller interface {
	// Call runs cmd with args and returns the reply, or a null handle if the
	// host could not run the command at all.
	Call(ctx ContextPtr, cmd Buf, args []Buf) ReplyPtr

	// FreeCallReply releases a reply returned by Call together with all of
	// its nested elements.
	FreeCallReply(reply ReplyPtr)
}

// Replier writes the response of the current command invocation.
type Replier interface {
	ReplyWithSimpleString(ctx ContextPtr, msg Buf) Status
	ReplyWithStringBuffer(ctx ContextPtr, data Buf) Status
	ReplyWithError(ctx ContextPtr, msg Buf) Status
	ReplyWithLongLong(ctx ContextPtr, n int64) Status
	ReplyWithDouble(ctx ContextPtr, f float64) Status
	ReplyWithArray(ctx ContextPtr, length int) Status
	ReplyWithNull(ctx ContextPtr) Status
}

// LogSink is the host log entry point. It is fire-and-forget.
type LogSink interface {
	Log(ctx ContextPtr, level LogLevel, msg Buf)
}

// Keyspace exposes keys of the host data store.
type Keyspace interface {
	OpenKey(ctx ContextPtr, name Buf, mode KeyMode) KeyPtr
	CloseKey(key KeyPtr)
	KeyType(key KeyPtr) KeyType
	// StringGet returns the string stored under an open key. ok is false if
	// the key is empty or holds another type.
	StringGet(key KeyPtr) (data Buf, ok bool)
	StringSet(key KeyPtr, data Buf) Status
	DeleteKey(key KeyPtr) Status
}

// Strings manages host-owned strings.
type Strings interface {
	CreateString(ctx ContextPtr, data Buf) StringPtr
	FreeString(ctx ContextPtr, str StringPtr)
	StringPtrLen(str StringPtr) Buf
}

// ThreadSafe manages detached contexts and the global host lock.
// GetThreadSafeContext and FreeThreadSafeContext are paired one to one.
type ThreadSafe interface {
	GetThreadSafeContext(blocked ContextPtr) ContextPtr
	FreeThreadSafeContext(ctx ContextPtr)
	ThreadSafeContextLock(ctx ContextPtr)
	ThreadSafeContextUnlock(ctx ContextPtr)
}

// Misc groups the remaining per-context toggles.
type Misc interface {
	AutoMemory(ctx ContextPtr)
	ReplicateVerbatim(ctx ContextPtr) Status
}

// Host is the full extension API table.
type Host interface {
	Allocator
	ReplyReader
	Caller
	Replier
	LogSink
	Keyspace
	Strings
	ThreadSafe
	Misc
}
