package stores

import (
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/authengine/domain"
)

// ErrBackendUnavailable wraps Redis transport and server errors.
var ErrBackendUnavailable = errors.New("session backend unavailable")

func backendErr(err error) error {
	if errors.Is(err, redis.Nil) {
		return domain.ErrNotFound
	}
	return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
}
