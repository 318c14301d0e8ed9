package http2

// U31 is a 31-bit unsigned quantity: the wire shape shared by stream
// identifiers and flow-control window sizes, where the top bit of the
// containing 32-bit field is reserved and must be ignored on read.
//
// https://tools.ietf.org/html/rfc7540#section-4.1
// https://tools.ietf.org/html/rfc7540#section-6.9.1
type U31 uint32

// u31Max is the largest value a U31 can hold, 2^31-1.
const u31Max uint32 = 1<<31 - 1

// MaskU31 clears the reserved high bit of a raw 32-bit value read off the
// wire, producing a well-formed U31. This is the only constructor frame
// decoders should use for stream identifiers and window increments.
func MaskU31(raw uint32) U31 {
	return U31(raw &^ (1 << 31))
}

// SaturatingU31 clamps n to u31Max instead of masking it, for window sizes
// (a configured window size, or an INITIAL_WINDOW_SIZE settings value)
// where silently dropping the high bit would corrupt the magnitude rather
// than just strip a reserved flag.
func SaturatingU31(n uint32) U31 {
	if n > u31Max {
		return U31(u31Max)
	}
	return U31(n)
}

// Uint32 returns the value ready to be written into a 32-bit wire field.
func (u U31) Uint32() uint32 {
	return uint32(u)
}

// Int32 converts to a signed 32-bit integer, saturating at u31Max (which
// equals math.MaxInt32, so a well-formed U31 never actually needs to clamp;
// the check guards callers that bypassed MaskU31/SaturatingU31).
func (u U31) Int32() int32 {
	if uint32(u) > u31Max {
		return int32(u31Max)
	}
	return int32(u)
}

// Add returns u+delta, wrapping modulo 2^31. Stream identifiers climb by 2
// per new client- or server-initiated stream and are allowed to wrap once
// exhausted, per https://tools.ietf.org/html/rfc7540#section-5.1.1.
func (u U31) Add(delta int32) U31 {
	return U31((uint32(u) + uint32(delta)) &^ (1 << 31))
}

// Sub returns u-delta, wrapping modulo 2^31.
func (u U31) Sub(delta int32) U31 {
	return U31((uint32(u) - uint32(delta)) &^ (1 << 31))
}

// Less reports whether u orders before v. U31 ordering is plain numeric
// ordering of the masked value.
func (u U31) Less(v U31) bool {
	return uint32(u) < uint32(v)
}
