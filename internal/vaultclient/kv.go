package vaultclient

import (
	"context"
)

// ReadKVv1 reads the secret at mount/path from a kv-v1 engine, returning
// (nil, nil) if absent.
func (c *Client) ReadKVv1(ctx context.Context, mount, path string) (map[string]any, error) {
	secret, err := c.logical().ReadWithContext(ctx, mount+"/"+path)
	if err != nil {
		return nil, Classify(err)
	}
	if secret == nil {
		return nil, nil
	}
	return secret.Data, nil
}

// WriteKVv1 writes data as the secret at mount/path in a kv-v1 engine.
func (c *Client) WriteKVv1(ctx context.Context, mount, path string, data map[string]any) error {
	if _, err := c.logical().WriteWithContext(ctx, mount+"/"+path, data); err != nil {
		return Classify(err)
	}
	return nil
}

// KVv2WriteResult reports the version Vault assigned a kv-v2 write.
type KVv2WriteResult struct {
	Version int
}

// WriteKVv2 writes data as a new version of mount/path in a kv-v2 engine. If
// cas is non-nil, the write is conditioned on the secret's current version
// matching *cas (0 meaning "must not exist").
func (c *Client) WriteKVv2(ctx context.Context, mount, path string, data map[string]any, cas *int) (KVv2WriteResult, error) {
	body := map[string]any{"data": data}
	if cas != nil {
		body["options"] = map[string]any{"cas": *cas}
	}
	secret, err := c.logical().WriteWithContext(ctx, mount+"/data/"+path, body)
	if err != nil {
		return KVv2WriteResult{}, Classify(err)
	}
	version := 0
	if secret != nil {
		if v, ok := secret.Data["version"].(float64); ok {
			version = int(v)
		}
	}
	return KVv2WriteResult{Version: version}, nil
}

// KVv2Metadata is the subset of kv-v2 metadata the reconciler consumes.
type KVv2Metadata struct {
	CurrentVersion int
	CustomMetadata map[string]string
}

// ReadKVv2Metadata reads mount/path's metadata, returning (nil, nil) if the
// secret has never been written.
func (c *Client) ReadKVv2Metadata(ctx context.Context, mount, path string) (*KVv2Metadata, error) {
	secret, err := c.logical().ReadWithContext(ctx, mount+"/metadata/"+path)
	if err != nil {
		return nil, Classify(err)
	}
	if secret == nil {
		return nil, nil
	}
	out := &KVv2Metadata{}
	if v, ok := secret.Data["current_version"].(float64); ok {
		out.CurrentVersion = int(v)
	}
	if cm, ok := secret.Data["custom_metadata"].(map[string]any); ok {
		out.CustomMetadata = make(map[string]string, len(cm))
		for k, v := range cm {
			if s, ok := v.(string); ok {
				out.CustomMetadata[k] = s
			}
		}
	}
	return out, nil
}

// WriteKVv2CustomMetadata merges custom into mount/path's custom metadata.
func (c *Client) WriteKVv2CustomMetadata(ctx context.Context, mount, path string, custom map[string]string) error {
	data := make(map[string]any, 1)
	cm := make(map[string]any, len(custom))
	for k, v := range custom {
		cm[k] = v
	}
	data["custom_metadata"] = cm
	if _, err := c.logical().WriteWithContext(ctx, mount+"/metadata/"+path, data); err != nil {
		return Classify(err)
	}
	return nil
}
