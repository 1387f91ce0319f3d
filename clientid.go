package mqtt

import (
	"strings"

	"github.com/google/uuid"
)

// maxPortableClientIDLength longest client identifier every 3.1.1 broker
// has to accept, MQTT 3.1.1 3.1.3.1
const maxPortableClientIDLength = 23

// GenerateClientID returns a random client identifier of at most 23
// alphanumeric characters starting with prefix. Characters of prefix
// outside [0-9a-zA-Z] are dropped.
func GenerateClientID(prefix string) string {
	var b strings.Builder
	for _, r := range prefix {
		if (r >= '0' && r <= '9') || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
			b.WriteRune(r)
		}
	}
	id := b.String()
	if len(id) > maxPortableClientIDLength/2 {
		id = id[:maxPortableClientIDLength/2]
	}

	random := strings.ReplaceAll(uuid.NewString(), "-", "")
	return id + random[:maxPortableClientIDLength-len(id)]
}
