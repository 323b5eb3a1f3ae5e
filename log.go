package instant

import (
	"math/big"
	"strconv"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// MarshalLogObject implements zapcore.ObjectMarshaler. The raw count is
// written under "ns", as a number when it fits in 64 bits and as a decimal
// string otherwise. Like [Instant.Raw], the output is for diagnostics only.
func (t Instant) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	if t.hi == 0 {
		enc.AddUint64("ns", t.lo)
		return nil
	}
	enc.AddString("ns", t.nanos())
	return nil
}

// Field returns a zap field logging t under key.
func Field(key string, t Instant) zap.Field {
	return zap.Object(key, t)
}

// nanos formats the raw count in base 10, for error messages and logs
func (t Instant) nanos() string {
	if t.hi == 0 {
		return strconv.FormatUint(t.lo, 10)
	}
	n := new(big.Int).SetUint64(t.hi)
	n.Lsh(n, 64)
	n.Or(n, new(big.Int).SetUint64(t.lo))
	return n.String()
}
