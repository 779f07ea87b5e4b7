package hostapi

// ReplyType is the type tag the host reports for a call reply.
type ReplyType int

const (
	ReplyUnknown ReplyType = iota
	ReplyString
	ReplyError
	ReplyInteger
	ReplyArray
	ReplyNil
)

func (t ReplyType) String() string {
	switch t {
	case ReplyString:
		return "string"
	case ReplyError:
		return "error"
	case ReplyInteger:
		return "integer"
	case ReplyArray:
		return "array"
	case ReplyNil:
		return "nil"
	default:
		return "unknown"
	}
}

// Status is the result code returned by host entry points.
type Status int

const (
	StatusOK  Status = 0
	StatusErr Status = 1
)

func (s Status) String() string {
	if s == StatusOK {
		return "OK"
	}
	return "ERR"
}

// LogLevel is the severity of a host log record.
type LogLevel int

const (
	LogDebug LogLevel = iota
	LogVerbose
	LogNotice
	LogWarning
)

// String returns the name the host uses for the level.
func (l LogLevel) String() string {
	switch l {
	case LogDebug:
		return "debug"
	case LogVerbose:
		return "verbose"
	case LogNotice:
		return "notice"
	case LogWarning:
		return "warning"
	default:
		return "unknown"
	}
}

// KeyMode selects the access mode of an opened key.
type KeyMode int

const (
	KeyRead KeyMode = 1 << iota
	KeyWrite
)

// KeyType is the type of the value stored under a key.
type KeyType int

const (
	KeyTypeEmpty KeyType = iota
	KeyTypeString
	KeyTypeList
	KeyTypeHash
	KeyTypeSet
	KeyTypeZSet
	KeyTypeModule
)

func (t KeyType) String() string {
	switch t {
	case KeyTypeEmpty:
		return "none"
	case KeyTypeString:
		return "string"
	case KeyTypeList:
		return "list"
	case KeyTypeHash:
		return "hash"
	case KeyTypeSet:
		return "set"
	case KeyTypeZSet:
		return "zset"
	case KeyTypeModule:
		return "module"
	default:
		return "unknown"
	}
}
