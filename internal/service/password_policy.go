package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/hashicorp/hcl"

	"github.com/hqdncw/vault-autopilot-go/internal/apperror"
	"github.com/hqdncw/vault-autopilot-go/internal/dto"
	"github.com/hqdncw/vault-autopilot-go/internal/vaultclient"
)

// PasswordPolicyService implements the apply-verb for Vault password
// policies.
type PasswordPolicyService struct {
	backend vaultclient.PasswordPolicyBackend
}

func NewPasswordPolicyService(backend vaultclient.PasswordPolicyBackend) *PasswordPolicyService {
	return &PasswordPolicyService{backend: backend}
}

func (s *PasswordPolicyService) Apply(ctx context.Context, policy dto.PasswordPolicy) dto.ApplyResult {
	path := policy.AbsolutePath()

	remote, err := s.backend.ReadPasswordPolicy(ctx, path)
	if err != nil {
		return dto.ApplyResult{Status: dto.StatusCreateError, Errors: []error{err}}
	}

	if remote == nil {
		if err := s.write(ctx, policy); err != nil {
			return dto.ApplyResult{Status: dto.StatusCreateError, Errors: []error{err}}
		}
		return dto.ApplyResult{Status: dto.StatusCreateSuccess}
	}

	equal, err := policyEqual(policy, remote)
	if err != nil {
		return dto.ApplyResult{Status: dto.StatusCreateError, Errors: []error{err}}
	}
	if equal {
		return dto.ApplyResult{Status: dto.StatusVerifySuccess}
	}

	if err := s.write(ctx, policy); err != nil {
		return dto.ApplyResult{Status: dto.StatusUpdateError, Errors: []error{err}}
	}
	return dto.ApplyResult{Status: dto.StatusUpdateSuccess}
}

// policyEqual performs an order-insensitive deep equality check between the
// parsed remote policy document and the declared policy.
func policyEqual(declared dto.PasswordPolicy, remote map[string]any) (bool, error) {
	parsed, err := parsePolicyDocument(remote)
	if err != nil {
		return false, err
	}
	if parsed.Length != declared.Spec.Length {
		return false, nil
	}
	return rulesEqual(parsed.Rules, declared.Spec.Rules), nil
}

type parsedPolicy struct {
	Length int
	Rules  []dto.PasswordPolicyRule
}

// hclDocument mirrors the HCL shape Vault returns under the "policy" key:
// a top-level length plus zero or more labeled "rule" blocks.
type hclDocument struct {
	Length int       `hcl:"length"`
	Rule   []hclRule `hcl:"rule"`
}

type hclRule struct {
	Type     string `hcl:",key"`
	Charset  string `hcl:"charset"`
	MinChars int    `hcl:"min-chars"`
}

// parsePolicyDocument decodes Vault's policy HCL document (returned under
// the "policy" key) into the length/rules this reconciler compares against
// a declared policy.
func parsePolicyDocument(remote map[string]any) (parsedPolicy, error) {
	raw, _ := remote["policy"].(string)

	var doc hclDocument
	if err := hcl.Decode(&doc, raw); err != nil {
		return parsedPolicy{}, apperror.Wrap(apperror.VaultAPI, "parse password policy document", err)
	}

	out := parsedPolicy{Length: doc.Length}
	for _, r := range doc.Rule {
		out.Rules = append(out.Rules, dto.PasswordPolicyRule{Charset: r.Charset, MinChars: r.MinChars})
	}
	return out, nil
}

func rulesEqual(a, b []dto.PasswordPolicyRule) bool {
	if len(a) != len(b) {
		return false
	}
	used := make([]bool, len(b))
	for _, ar := range a {
		found := false
		for i, br := range b {
			if used[i] {
				continue
			}
			if ar.Charset == br.Charset && ar.MinChars == br.MinChars {
				used[i] = true
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func (s *PasswordPolicyService) write(ctx context.Context, policy dto.PasswordPolicy) error {
	doc := renderPolicyDocument(policy)
	if err := s.backend.WritePasswordPolicy(ctx, policy.Spec.Path, doc); err != nil {
		return apperror.Wrap(apperror.VaultAPI, "write password policy", err)
	}
	return nil
}

func renderPolicyDocument(policy dto.PasswordPolicy) string {
	var b strings.Builder
	fmt.Fprintf(&b, "length = %d\n", policy.Spec.Length)
	for _, r := range policy.Spec.Rules {
		fmt.Fprintf(&b, "rule \"CharSet\" {\n  charset = %q\n  min-chars = %d\n}\n", r.Charset, r.MinChars)
	}
	return b.String()
}
