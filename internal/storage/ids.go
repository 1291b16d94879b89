package storage

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Record id prefixes.
const (
	PrefixSupplement = "sup"
	PrefixProduct    = "prod"
)

// NewID returns "<prefix>_<unix millis>_<9 random chars>", the id format the
// mobile client writes.
func NewID(prefix string, at time.Time) string {
	random := strings.ReplaceAll(uuid.NewString(), "-", "")[:9]
	return prefix + "_" + strconv.FormatInt(at.UnixMilli(), 10) + "_" + random
}
