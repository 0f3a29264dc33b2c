package capability

import (
	"errors"
	"fmt"

	"github.com/aretw0/curator/pkg/domain"
)

var ErrEmptyResponse = errors.New("capability returned no content")

func unavailable(provider string, err error) error {
	if errors.Is(err, domain.ErrCapabilityUnavailable) {
		return err
	}
	return fmt.Errorf("%s: %w: %w", provider, domain.ErrCapabilityUnavailable, err)
}
