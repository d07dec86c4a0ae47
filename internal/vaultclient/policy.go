package vaultclient

import "context"

// ReadPasswordPolicy reads the policy at sys/policies/password/<path>,
// returning (nil, nil) if absent.
func (c *Client) ReadPasswordPolicy(ctx context.Context, path string) (map[string]any, error) {
	secret, err := c.logical().ReadWithContext(ctx, "sys/policies/password/"+path)
	if err != nil {
		return nil, Classify(err)
	}
	if secret == nil {
		return nil, nil
	}
	return secret.Data, nil
}

// WritePasswordPolicy writes the policy document at
// sys/policies/password/<path>.
func (c *Client) WritePasswordPolicy(ctx context.Context, path, policyHCL string) error {
	if _, err := c.logical().WriteWithContext(ctx, "sys/policies/password/"+path, map[string]any{
		"policy": policyHCL,
	}); err != nil {
		return Classify(err)
	}
	return nil
}

// GeneratePassword generates a password from the named policy, per
// GET /v1/sys/policies/password/<path>/generate.
func (c *Client) GeneratePassword(ctx context.Context, path string) (string, error) {
	secret, err := c.logical().ReadWithContext(ctx, "sys/policies/password/"+path+"/generate")
	if err != nil {
		return "", Classify(err)
	}
	if secret == nil {
		return "", nil
	}
	pw, _ := secret.Data["password"].(string)
	return pw, nil
}
