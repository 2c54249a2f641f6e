// SPDX-License-Identifier: Apache-2.0

package pipeline

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/redhat-cip/dci-pipeline/internal/dciclient"
	"github.com/redhat-cip/dci-pipeline/pkg/logging"
)

// defaultServerURL is used when a credentials file omits DCI_CS_URL.
const defaultServerURL = "https://api.distributed-ci.io"

// Credentials is the decoded form of a dci_credentials.yml file: a
// remoteci's signature identity plus the server URL it targets.
type Credentials struct {
	ClientID  string `yaml:"DCI_CLIENT_ID"`
	APISecret string `yaml:"DCI_API_SECRET"`
	ServerURL string `yaml:"DCI_CS_URL"`
}

// PipelineUserCredentials is the decoded form of an optional
// pipeline_user credentials file: a password identity used only for
// component listing.
type PipelineUserCredentials struct {
	Username  string `yaml:"DCI_LOGIN"`
	Password  string `yaml:"DCI_PASSWORD"`
	ServerURL string `yaml:"DCI_CS_URL"`
}

// LoadCredentials reads and strictly decodes path, interpreting it
// relative to baseDir when it is not already absolute (§4.7 step 1:
// "interpret relative path against the document directory").
func LoadCredentials(path, baseDir string) (*Credentials, error) {
	resolved := resolvePath(path, baseDir)
	data, err := os.ReadFile(resolved)
	if err != nil {
		return nil, fmt.Errorf("reading dci_credentials %s: %w", resolved, err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var c Credentials
	if err := dec.Decode(&c); err != nil {
		return nil, fmt.Errorf("decoding dci_credentials %s: %w", resolved, err)
	}
	if c.ClientID == "" || c.APISecret == "" {
		return nil, fmt.Errorf("dci_credentials %s missing DCI_CLIENT_ID/DCI_API_SECRET", resolved)
	}
	if c.ServerURL == "" {
		c.ServerURL = defaultServerURL
	}
	return &c, nil
}

// LoadPipelineUserCredentials reads an optional pipeline_user
// credentials file, used only to list components under a password
// identity rather than the remoteci signature.
func LoadPipelineUserCredentials(path, baseDir string) (*PipelineUserCredentials, error) {
	if path == "" {
		return nil, nil
	}
	resolved := resolvePath(path, baseDir)
	data, err := os.ReadFile(resolved)
	if err != nil {
		return nil, fmt.Errorf("reading pipeline_user %s: %w", resolved, err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var c PipelineUserCredentials
	if err := dec.Decode(&c); err != nil {
		return nil, fmt.Errorf("decoding pipeline_user %s: %w", resolved, err)
	}
	if c.ServerURL == "" {
		c.ServerURL = defaultServerURL
	}
	return &c, nil
}

func resolvePath(path, baseDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}

// BuildClient builds a remoteci-authenticated dciclient.Client from a
// loaded credentials file.
func BuildClient(c *Credentials, log logging.Logger) *dciclient.Client {
	return dciclient.New(c.ServerURL, c.ClientID, c.APISecret, log)
}
