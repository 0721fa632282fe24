package config

import (
	"encoding/base64"
	"fmt"
	"strings"

	jsoniter "github.com/json-iterator/go"
)

// CloudPlatformScope is the OAuth scope the Vertex AI client is authorized for.
const CloudPlatformScope = "https://www.googleapis.com/auth/cloud-platform"

// ServiceAccount is a decoded Google service-account key.
type ServiceAccount struct {
	Type        string `json:"type"`
	ProjectID   string `json:"project_id"`
	ClientEmail string `json:"client_email"`
	PrivateKey  string `json:"private_key"`

	raw []byte
}

// JSON returns the key exactly as it was decoded.
func (s *ServiceAccount) JSON() []byte {
	return append([]byte(nil), s.raw...)
}

// DecodeServiceAccount base64-decodes and parses a service-account key.
// Standard, URL-safe and unpadded encodings are all accepted.
func DecodeServiceAccount(encoded string) (*ServiceAccount, error) {
	encoded = strings.Join(strings.Fields(encoded), "")
	if encoded == "" {
		return nil, fmt.Errorf("empty credential")
	}

	var raw []byte
	var err error
	for _, enc := range []*base64.Encoding{
		base64.StdEncoding,
		base64.RawStdEncoding,
		base64.URLEncoding,
		base64.RawURLEncoding,
	} {
		if raw, err = enc.DecodeString(encoded); err == nil {
			break
		}
	}
	if err != nil {
		return nil, fmt.Errorf("decode base64: %w", err)
	}

	sa := &ServiceAccount{raw: raw}
	if err := jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal(raw, sa); err != nil {
		return nil, fmt.Errorf("parse credential json: %w", err)
	}
	if sa.Type != "service_account" {
		return nil, fmt.Errorf("credential type is %q, want service_account", sa.Type)
	}
	if sa.ClientEmail == "" || sa.PrivateKey == "" {
		return nil, fmt.Errorf("credential is missing client_email or private_key")
	}
	return sa, nil
}
