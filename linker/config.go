package linker

import (
	"encoding/binary"

	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("tinylink.linker")

// DefaultSpecialClasses are placed at the start of every class table, in
// this order, whether or not the program references them. The interpreter
// refers to them by index.
var DefaultSpecialClasses = []string{
	"java/lang/Object",
	"java/lang/Thread",
	"java/lang/String",
	"java/lang/Throwable",
	"java/lang/Error",
	"java/lang/OutOfMemoryError",
	"java/lang/NoSuchMethodError",
	"java/lang/StackOverflowError",
	"java/lang/NullPointerException",
	"java/lang/ClassCastException",
	"java/lang/ArithmeticException",
	"java/lang/ArrayIndexOutOfBoundsException",
	"java/lang/IllegalArgumentException",
	"java/lang/InterruptedException",
	"java/lang/IllegalStateException",
	"java/lang/IllegalMonitorStateException",
}

// ThrowableClass is caught by catch-all handlers.
const ThrowableClass = "java/lang/Throwable"

// Config controls one link.
type Config struct {
	// SpecialClasses overrides DefaultSpecialClasses when non-empty.
	SpecialClasses []string

	// ByteOrder of multi-byte record fields. Nil means big-endian.
	ByteOrder binary.ByteOrder

	// Verify checks every record's offset and length while serializing.
	// The total image length is checked regardless.
	Verify bool
}

// DefaultConfig returns a big-endian, verifying configuration.
func DefaultConfig() Config {
	return Config{ByteOrder: binary.BigEndian, Verify: true}
}

func (c *Config) specialClasses() []string {
	if len(c.SpecialClasses) > 0 {
		return c.SpecialClasses
	}
	return DefaultSpecialClasses
}

func (c *Config) order() binary.ByteOrder {
	if c.ByteOrder == nil {
		return binary.BigEndian
	}
	return c.ByteOrder
}
