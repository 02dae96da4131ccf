package transport

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/agentstation/catalogsync/pkg/errors"
)

// maxErrorBody bounds how much of a failed response is kept in an APIError.
const maxErrorBody = 512

// DecodeResponse decodes a JSON response body into target and closes it.
// Non-2xx answers become *errors.APIError labelled with source.
func DecodeResponse(resp *http.Response, source string, target any) error {
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.WrapIO("read", "response body", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &errors.APIError{
			Source:     source,
			StatusCode: resp.StatusCode,
			Message:    summarize(body, resp.Status),
			Endpoint:   endpointOf(resp),
		}
	}

	if err := json.Unmarshal(body, target); err != nil {
		return errors.WrapParse("json", endpointOf(resp), err)
	}
	return nil
}

func summarize(body []byte, status string) string {
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		return status
	}
	if len(msg) > maxErrorBody {
		return fmt.Sprintf("%s...", msg[:maxErrorBody])
	}
	return msg
}

func endpointOf(resp *http.Response) string {
	if resp.Request == nil || resp.Request.URL == nil {
		return ""
	}
	u := *resp.Request.URL
	u.RawQuery = ""
	u.User = nil
	return u.String()
}
