package cache

// Key identifies a cached tile. The fingerprint is part of the key, so
// entries written for an older model revision are simply never hit again.
type Key struct {
	Model       string
	Fingerprint string
	Path        string
}

type Value []byte

type TileCache interface {
	Get(Key) (Value, bool, error)
	Set(Key, Value) error
}
