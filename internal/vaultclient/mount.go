package vaultclient

import (
	"context"

	vaultapi "github.com/hashicorp/vault/api"
)

// MountInput describes a secrets engine to enable.
type MountInput struct {
	Type        string
	Description string
	Config      map[string]any // carried for callers; EnableSecretsEngine sends only Type and Description
}

// EnableSecretsEngine enables a secrets engine at path. Vault responds with
// "path is already in use at ..." when the mount already exists; callers
// classify that error via Classify.
func (c *Client) EnableSecretsEngine(ctx context.Context, path string, in MountInput) error {
	err := c.api.Sys().MountWithContext(ctx, path, &vaultapi.MountInput{
		Type:        in.Type,
		Description: in.Description,
	})
	if err != nil {
		return Classify(err)
	}
	return nil
}

// ReadMountConfig reads the tune configuration of the mount at path.
func (c *Client) ReadMountConfig(ctx context.Context, path string) (*vaultapi.MountConfigOutput, error) {
	out, err := c.api.Sys().MountConfigWithContext(ctx, path)
	if err != nil {
		return nil, Classify(err)
	}
	return out, nil
}

// TuneMountConfig applies in to the mount at path's tune configuration.
func (c *Client) TuneMountConfig(ctx context.Context, path string, in vaultapi.MountConfigInput) error {
	if err := c.api.Sys().TuneMountWithContext(ctx, path, in); err != nil {
		return Classify(err)
	}
	return nil
}

// ReadMount returns the mount table entry for path, or nil if absent.
func (c *Client) ReadMount(ctx context.Context, path string) (*vaultapi.MountOutput, error) {
	mounts, err := c.api.Sys().ListMountsWithContext(ctx)
	if err != nil {
		return nil, Classify(err)
	}
	if m, ok := mounts[normalizeMountPath(path)]; ok {
		return m, nil
	}
	return nil, nil
}

func normalizeMountPath(path string) string {
	if len(path) == 0 || path[len(path)-1] != '/' {
		return path + "/"
	}
	return path
}
