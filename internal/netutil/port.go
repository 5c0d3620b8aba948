package netutil

import (
	"errors"
	"fmt"
	"net"
)

// ErrNoAddr is returned when neither the preferred address nor any fallback
// can be bound.
var ErrNoAddr = errors.New("no available status bind address")

// Listen binds preferred, then each fallback in order. The returned listener
// is already bound, so the address cannot be taken between selection and
// serving.
func Listen(preferred string, fallbacks []string) (net.Listener, error) {
	var lastErr error
	for _, addr := range append([]string{preferred}, fallbacks...) {
		if addr == "" {
			continue
		}
		ln, err := net.Listen("tcp", addr)
		if err == nil {
			return ln, nil
		}
		lastErr = err
	}
	if lastErr == nil {
		return nil, ErrNoAddr
	}
	return nil, fmt.Errorf("%w: %v", ErrNoAddr, lastErr)
}
