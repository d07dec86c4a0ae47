// Package manifest decodes a multi-document YAML stream into the typed
// resource payloads the dispatcher consumes, mirroring the discriminated
// union of kind + metadata.name + spec used across the reference pack's
// manifest front-ends.
package manifest

import (
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/hqdncw/vault-autopilot-go/internal/apperror"
	"github.com/hqdncw/vault-autopilot-go/internal/dto"
)

// document is the generic envelope every manifest YAML document decodes
// into on a first pass; Spec is decoded a second time into the concrete
// per-kind struct once Kind is known.
type document struct {
	APIVersion string    `yaml:"apiVersion"`
	Kind       string    `yaml:"kind"`
	Metadata   metadata  `yaml:"metadata"`
	Spec       yaml.Node `yaml:"spec"`
}

type metadata struct {
	Name string `yaml:"name"`
}

// supportedKinds lists the discriminated union's valid kind values.
var supportedKinds = map[string]dto.Kind{
	string(dto.KindSecretsEngine):  dto.KindSecretsEngine,
	string(dto.KindPasswordPolicy): dto.KindPasswordPolicy,
	string(dto.KindIssuer):         dto.KindIssuer,
	string(dto.KindPKIRole):        dto.KindPKIRole,
	string(dto.KindPassword):       dto.KindPassword,
	string(dto.KindSSHKey):         dto.KindSSHKey,
}

// Decode reads every YAML document from r and returns the decoded payloads
// in file order. A malformed document yields ManifestSyntax; an
// unrecognized kind or a kind whose spec fails validation yields
// ManifestValidation.
func Decode(r io.Reader) ([]dto.Payload, error) {
	dec := yaml.NewDecoder(r)

	var payloads []dto.Payload
	for {
		var doc document
		if err := dec.Decode(&doc); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, apperror.Wrap(apperror.ManifestSyntax, "invalid YAML document", err)
		}
		if doc.Kind == "" {
			// Empty document produced by a trailing "---" separator.
			continue
		}

		payload, err := decodeSpec(doc)
		if err != nil {
			return nil, err
		}
		payloads = append(payloads, payload)
	}
	return payloads, nil
}

func decodeSpec(doc document) (dto.Payload, error) {
	kind, ok := supportedKinds[doc.Kind]
	if !ok {
		return nil, apperror.New(apperror.ManifestValidation, fmt.Sprintf("unrecognized kind %q", doc.Kind))
	}
	if doc.Metadata.Name == "" && kind != dto.KindPassword && kind != dto.KindSSHKey {
		return nil, apperror.New(apperror.ManifestValidation, fmt.Sprintf("%s manifest missing metadata.name", doc.Kind))
	}

	switch kind {
	case dto.KindSecretsEngine:
		var spec dto.SecretsEngineSpec
		if err := doc.Spec.Decode(&spec); err != nil {
			return nil, invalidSpec(doc, err)
		}
		if spec.Path == "" || spec.Type == "" {
			return nil, apperror.New(apperror.ManifestValidation, "SecretsEngine requires spec.path and spec.type")
		}
		return dto.SecretsEngine{Name: doc.Metadata.Name, Spec: spec}, nil

	case dto.KindPasswordPolicy:
		var spec dto.PasswordPolicySpec
		if err := doc.Spec.Decode(&spec); err != nil {
			return nil, invalidSpec(doc, err)
		}
		if spec.Path == "" {
			return nil, apperror.New(apperror.ManifestValidation, "PasswordPolicy requires spec.path")
		}
		return dto.PasswordPolicy{Name: doc.Metadata.Name, Spec: spec}, nil

	case dto.KindIssuer:
		var spec dto.IssuerSpec
		if err := doc.Spec.Decode(&spec); err != nil {
			return nil, invalidSpec(doc, err)
		}
		if spec.SecretsEngine == "" {
			return nil, apperror.New(apperror.ManifestValidation, "Issuer requires spec.secrets_engine")
		}
		if spec.Chaining != nil && spec.Chaining.UpstreamIssuerRef == "" {
			return nil, apperror.New(apperror.ManifestValidation, "Issuer chaining requires upstream_issuer_ref")
		}
		return dto.Issuer{Name: doc.Metadata.Name, Spec: spec}, nil

	case dto.KindPKIRole:
		var spec dto.PKIRoleSpec
		if err := doc.Spec.Decode(&spec); err != nil {
			return nil, invalidSpec(doc, err)
		}
		if spec.SecretsEngine == "" || spec.IssuerRef == "" {
			return nil, apperror.New(apperror.ManifestValidation, "PKIRole requires spec.secrets_engine and spec.issuer_ref")
		}
		return dto.PKIRole{Name: doc.Metadata.Name, Spec: spec}, nil

	case dto.KindPassword:
		var spec dto.PasswordSpec
		if err := doc.Spec.Decode(&spec); err != nil {
			return nil, invalidSpec(doc, err)
		}
		if spec.SecretsEngine == "" || spec.Path == "" {
			return nil, apperror.New(apperror.ManifestValidation, "Password requires spec.secrets_engine and spec.path")
		}
		return dto.Password{Spec: spec}, nil

	case dto.KindSSHKey:
		var spec dto.SSHKeySpec
		if err := doc.Spec.Decode(&spec); err != nil {
			return nil, invalidSpec(doc, err)
		}
		if spec.SecretsEngine == "" || spec.Path == "" {
			return nil, apperror.New(apperror.ManifestValidation, "SSHKey requires spec.secrets_engine and spec.path")
		}
		if spec.Version < 1 {
			return nil, apperror.New(apperror.ManifestValidation, "SSHKey requires spec.version >= 1")
		}
		return dto.SSHKey{Spec: spec}, nil
	}

	return nil, apperror.New(apperror.ManifestValidation, fmt.Sprintf("unrecognized kind %q", doc.Kind))
}

func invalidSpec(doc document, cause error) error {
	return apperror.Wrap(apperror.ManifestValidation, fmt.Sprintf("%s %q has an invalid spec", doc.Kind, doc.Metadata.Name), cause)
}

// Stream decodes every document from r and writes each payload to out as it
// is decoded, then closes out. It is the manifest front-end's dispatcher
// feed: a goroutine calls Stream while the dispatcher drains out.
func Stream(r io.Reader, out chan<- dto.Payload) error {
	defer close(out)

	payloads, err := Decode(r)
	if err != nil {
		return err
	}
	for _, p := range payloads {
		out <- p
	}
	return nil
}
