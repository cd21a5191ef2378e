package session

import (
	"encoding/base64"
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/google/uuid"
)

// newIdentity derives a client identity string from environment signals plus
// a creation timestamp and a random component. Identical environments still
// get distinct identities; a missing signal degrades to an empty string and
// never fails.
func newIdentity(now time.Time) string {
	host, _ := os.Hostname()
	signals := []string{
		host,
		runtime.GOOS + "/" + runtime.GOARCH,
		os.Getenv("TERM"),
		locale(),
		now.Location().String(),
	}

	fingerprint := base64.StdEncoding.EncodeToString([]byte(strings.Join(signals, "-")))
	if len(fingerprint) > 16 {
		fingerprint = fingerprint[:16]
	}

	random := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("cs_%d_%s_%s", now.UnixMilli(), random, fingerprint)
}

func locale() string {
	for _, key := range []string{"LC_ALL", "LANG"} {
		if v := os.Getenv(key); v != "" {
			return v
		}
	}
	return ""
}
