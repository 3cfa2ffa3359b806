package changesource

import (
	"fmt"

	"github.com/wispbit/wisp-review/internal/wisperr"
)

var errInvalidRef = fmt.Errorf("%w: ref", wisperr.ErrInput)
