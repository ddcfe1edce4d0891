package img

import (
	"fmt"
	"net/http"
	"strings"
)

// IsRemote returns true when src is an http(s) URL.
func IsRemote(src string) bool {
	return strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://")
}

// NewRemoteImage loads an image from an URL.
func NewRemoteImage(src string, client *http.Client) (*Image, error) {
	if client == nil {
		client = http.DefaultClient
	}

	if src == "" {
		return nil, fmt.Errorf("No image URL")
	}

	rsp, err := client.Get(src)
	if err != nil {
		return nil, err
	}
	defer rsp.Body.Close()

	if rsp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("Invalid response status (%d)", rsp.StatusCode)
	}

	return Decode(rsp.Body)
}

// Load loads an image from a file name or an URL.
func Load(src string, client *http.Client) (*Image, error) {
	if IsRemote(src) {
		return NewRemoteImage(src, client)
	}
	return Open(src)
}
