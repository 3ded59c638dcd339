// Package endian provides byte order utilities for the dataset binary codec.
//
// It combines the ByteOrder and AppendByteOrder interfaces from
// encoding/binary into a single Engine interface, so the codec can both read
// fixed-width fields and append to a growing payload buffer through one
// value. The binary dataset format is always written little-endian; the
// big-endian engine exists for tooling that inspects foreign files.
//
// All functions are safe for concurrent use. The returned Engine instances
// are immutable and stateless.
package endian

import (
	"encoding/binary"
	"unsafe"
)

// Engine combines ByteOrder and AppendByteOrder from encoding/binary.
//
// It is satisfied by binary.LittleEndian and binary.BigEndian, so an Engine
// can be passed anywhere the standard interfaces are expected.
type Engine interface {
	binary.ByteOrder
	binary.AppendByteOrder
}

// NativeOrder determines the host's byte order from a fixed integer value.
func NativeOrder() binary.ByteOrder {
	// 0x0100 is 256. On a little-endian host the LSB (0x00) sits at the
	// lowest address; on a big-endian host the MSB (0x01) does.
	var i uint16 = 0x0100

	b := (*[2]byte)(unsafe.Pointer(&i))
	if b[0] == 0x01 {
		return binary.BigEndian
	}

	return binary.LittleEndian
}

// IsNativeLittle reports whether the host is little-endian.
func IsNativeLittle() bool {
	return NativeOrder() == binary.LittleEndian
}

// IsNativeBig reports whether the host is big-endian.
func IsNativeBig() bool {
	return NativeOrder() == binary.BigEndian
}

// MatchesNative reports whether engine matches the host byte order.
func MatchesNative(engine Engine) bool {
	return engine == NativeOrder()
}

// Little returns the little-endian engine used by the dataset binary format.
func Little() Engine {
	return binary.LittleEndian
}

// Big returns the big-endian engine.
func Big() Engine {
	return binary.BigEndian
}
