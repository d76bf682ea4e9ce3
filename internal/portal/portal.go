// Package portal builds and parses the JSON envelopes exchanged with camera
// firmware during the provisioning handshake. The builders and the parser
// are pure transforms over protocol documents; they never touch the task
// store.
package portal

import (
	"encoding/json"
	"fmt"

	"github.com/openpmca/webinstaller/internal/common"
)

// MimeType is the content type of portal envelopes.
const MimeType = "application/json"

const (
	actionInstall = "install"

	resultOK = 0
)

// Request is a parsed firmware callback body. CorrelationID is extracted
// from the fixed session.correlationid field path; Fields holds the full
// decoded document for display purposes.
type Request struct {
	CorrelationID string
	Fields        map[string]any
}

// ParseRequest decodes a firmware POST body. A body that is not a JSON
// object, or that lacks the session.correlationid field, fails with
// common.ErrorProtocol.
func ParseRequest(body []byte) (*Request, error) {
	var fields map[string]any
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrorProtocol, err)
	}

	session, ok := fields["session"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: missing session object", common.ErrorProtocol)
	}
	correlationID, ok := session["correlationid"].(string)
	if !ok || correlationID == "" {
		return nil, fmt.Errorf("%w: missing session.correlationid", common.ErrorProtocol)
	}

	return &Request{CorrelationID: correlationID, Fields: fields}, nil
}

type action struct {
	Type     string `json:"type"`
	Category string `json:"category,omitempty"`
	URL      string `json:"url,omitempty"`
}

type response struct {
	ResultCode int      `json:"resultcode"`
	Actions    []action `json:"actions"`
}

// BuildInstallResponse renders the envelope instructing firmware to fetch
// the container at url and install it under the given application category.
func BuildInstallResponse(category, url string) ([]byte, error) {
	return json.Marshal(response{
		ResultCode: resultOK,
		Actions: []action{
			{Type: actionInstall, Category: category, URL: url},
		},
	})
}

// BuildIdleResponse renders the envelope telling firmware there is nothing
// further to do.
func BuildIdleResponse() ([]byte, error) {
	return json.Marshal(response{ResultCode: resultOK, Actions: []action{}})
}
