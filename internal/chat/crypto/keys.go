package crypto

// KeySource yields the encryption key for a given peer. It is the seam for a
// real key-exchange mechanism; the chat core never assumes how keys were
// agreed, only that both peers hold the same one per device.
type KeySource interface {
	// Key returns the 32-byte AES key for the peer with the given device ID.
	Key(deviceID string) ([]byte, error)
}

// StaticKeySource serves one pre-shared key for every peer. This mirrors the
// single-secret scheme of the original system; it is a known weakness, kept
// behind the KeySource interface so a per-session exchange can replace it.
type StaticKeySource struct {
	key []byte
}

// NewStaticKeySource derives the shared key from secret once, up front.
func NewStaticKeySource(secret []byte) (*StaticKeySource, error) {
	key, err := DeriveKey(secret)
	if err != nil {
		return nil, err
	}
	return &StaticKeySource{key: key}, nil
}

func (s *StaticKeySource) Key(deviceID string) ([]byte, error) {
	return s.key, nil
}

var _ KeySource = (*StaticKeySource)(nil)
