package vaultclient

import "context"

// GenerateRoot generates a self-signed root issuer at mount, per
// POST /v1/<mount>/issuers/generate/root/<cert_type>.
func (c *Client) GenerateRoot(ctx context.Context, mount, certType string, params map[string]any) (map[string]any, error) {
	secret, err := c.logical().WriteWithContext(ctx, mount+"/issuers/generate/root/"+certType, params)
	if err != nil {
		return nil, Classify(err)
	}
	if secret == nil {
		return nil, nil
	}
	return secret.Data, nil
}

// GenerateIntermediateCSR generates a CSR and private key at the child
// mount, per POST /v1/<mount>/issuers/generate/intermediate/<cert_type>.
func (c *Client) GenerateIntermediateCSR(ctx context.Context, mount, certType string, params map[string]any) (map[string]any, error) {
	secret, err := c.logical().WriteWithContext(ctx, mount+"/issuers/generate/intermediate/"+certType, params)
	if err != nil {
		return nil, Classify(err)
	}
	if secret == nil {
		return nil, nil
	}
	return secret.Data, nil
}

// SignIntermediate signs csr at the parent mount using issuerRef, per
// POST /v1/<mount>/issuer/<ref>/sign-intermediate.
func (c *Client) SignIntermediate(ctx context.Context, parentMount, issuerRef string, params map[string]any) (map[string]any, error) {
	secret, err := c.logical().WriteWithContext(ctx, parentMount+"/issuer/"+issuerRef+"/sign-intermediate", params)
	if err != nil {
		return nil, Classify(err)
	}
	if secret == nil {
		return nil, nil
	}
	return secret.Data, nil
}

// SetSignedIntermediate writes the signed certificate chain back onto the
// child mount, per POST /v1/<mount>/intermediate/set-signed. Vault responds
// with exactly one imported issuer, whose generated name the caller must
// rename to the declared name via UpdateIssuer.
func (c *Client) SetSignedIntermediate(ctx context.Context, mount, certificate string) (map[string]any, error) {
	secret, err := c.logical().WriteWithContext(ctx, mount+"/intermediate/set-signed", map[string]any{
		"certificate": certificate,
	})
	if err != nil {
		return nil, Classify(err)
	}
	if secret == nil {
		return nil, nil
	}
	return secret.Data, nil
}

// UpdateIssuer renames/updates the issuer at mount/issuer/<ref>.
func (c *Client) UpdateIssuer(ctx context.Context, mount, ref string, updates map[string]any) error {
	if _, err := c.logical().WriteWithContext(ctx, mount+"/issuer/"+ref, updates); err != nil {
		return Classify(err)
	}
	return nil
}

// UpdateKey renames/updates the key at mount/key/<ref>.
func (c *Client) UpdateKey(ctx context.Context, mount, ref string, updates map[string]any) error {
	if _, err := c.logical().WriteWithContext(ctx, mount+"/key/"+ref, updates); err != nil {
		return Classify(err)
	}
	return nil
}

// ReadIssuer reads the issuer at mount/issuer/<ref>, returning (nil, nil) if
// absent.
func (c *Client) ReadIssuer(ctx context.Context, mount, ref string) (map[string]any, error) {
	secret, err := c.logical().ReadWithContext(ctx, mount+"/issuer/"+ref)
	if err != nil {
		return nil, Classify(err)
	}
	if secret == nil {
		return nil, nil
	}
	return secret.Data, nil
}

// ReadRole reads the PKI role at mount/roles/<name>, returning (nil, nil) if
// absent.
func (c *Client) ReadRole(ctx context.Context, mount, name string) (map[string]any, error) {
	secret, err := c.logical().ReadWithContext(ctx, mount+"/roles/"+name)
	if err != nil {
		return nil, Classify(err)
	}
	if secret == nil {
		return nil, nil
	}
	return secret.Data, nil
}

// WriteRole writes the PKI role at mount/roles/<name>.
func (c *Client) WriteRole(ctx context.Context, mount, name string, role map[string]any) error {
	if _, err := c.logical().WriteWithContext(ctx, mount+"/roles/"+name, role); err != nil {
		return Classify(err)
	}
	return nil
}
