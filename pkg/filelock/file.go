package filelock

import (
	"fmt"
	"os"
)

// WrapFile reads the file at src, wraps it with km, and writes the envelope
// to dst.
func (l *Locker) WrapFile(src, dst string, km KeyMaterial) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("reading %s: %w", src, err)
	}
	wrapped, err := l.Wrap(data, km)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, wrapped, 0o644)
}

// UnwrapFile reads the envelope at src, unwraps it with km, and writes the
// recovered plaintext to dst. The output is created owner-readable only.
func (l *Locker) UnwrapFile(src, dst string, km KeyMaterial) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("reading %s: %w", src, err)
	}
	plain, err := l.Unwrap(data, km)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, plain, 0o600)
}
