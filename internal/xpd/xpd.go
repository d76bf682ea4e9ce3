// Package xpd builds the descriptor document handed to camera firmware
// before the portal exchange. The descriptor names the portal registration
// URL and the correlation id the firmware must echo back in its callback.
package xpd

import "fmt"

// MimeType is the content type of a descriptor document.
const MimeType = "application/x-xpd"

// Version is the descriptor format version written into every document.
const Version = "1.00"

// Build renders the descriptor for the given correlation id and portal URL.
// The output is deterministic for a given input pair.
func Build(correlationID, portalURL string) []byte {
	return fmt.Appendf(nil, "[TPXD]\nVersion=%s\nRGST=%s\nCID=%s\n", Version, portalURL, correlationID)
}
