// Package snapshot implements the read-through/write-back mapping from a
// resource's absolute path to its last-applied serialized form, backed by a
// single versioned key-value secret.
package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	vaultapi "github.com/hashicorp/vault/api"

	"github.com/hqdncw/vault-autopilot-go/internal/apperror"
	"github.com/hqdncw/vault-autopilot-go/internal/dto"
	"github.com/hqdncw/vault-autopilot-go/internal/logging"
	"github.com/hqdncw/vault-autopilot-go/internal/vaultclient"
)

// Backend is the narrow kv-v1 surface the Repository needs.
type Backend interface {
	EnableSecretsEngine(ctx context.Context, path string, in vaultclient.MountInput) error
	ReadMount(ctx context.Context, path string) (*vaultapi.MountOutput, error)
	ReadKVv1(ctx context.Context, mount, path string) (map[string]any, error)
	WriteKVv1(ctx context.Context, mount, path string, data map[string]any) error
}

// MountDescription is the description Bootstrap gives the repository's own
// mount when it creates it. "Path in use" recovery does not compare it; it
// checks the existing mount's type and kv version (see assertKVv1).
const MountDescription = "vault-autopilot snapshot storage"

// Repository is the read-through/write-back snapshot store. One instance is
// owned per run by the workflow.
type Repository struct {
	backend      Backend
	mount        string
	secretPath   string
	isAuthedFn   func() bool

	mu    sync.Mutex
	store map[string]json.RawMessage
}

// New returns a Repository backed by a kv-v1 secret at secretPath within
// mount.
func New(backend Backend, mount, secretPath string, isAuthenticated func() bool) *Repository {
	return &Repository{
		backend:    backend,
		mount:      mount,
		secretPath: secretPath,
		isAuthedFn: isAuthenticated,
		store:      make(map[string]json.RawMessage),
	}
}

// Bootstrap enables the dedicated mount (recovering locally from
// SecretsEnginePathInUse, which implies a prior successful initialization),
// then reads the existing snapshot secret into memory.
func (r *Repository) Bootstrap(ctx context.Context) error {
	log := logging.For("snapshot")

	err := r.backend.EnableSecretsEngine(ctx, r.mount, vaultclient.MountInput{
		Type:        "kv",
		Description: MountDescription,
	})
	if err != nil {
		if !isKind(err, apperror.SecretsEnginePathInUse) {
			return err
		}
		log.Debug().Str("mount", r.mount).Msg("snapshot mount already exists, recovering")
		if err := r.assertKVv1(ctx); err != nil {
			return err
		}
	}

	data, err := r.backend.ReadKVv1(ctx, r.mount, r.secretPath)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for key, raw := range data {
		s, ok := raw.(string)
		if !ok {
			continue
		}
		r.store[key] = json.RawMessage(s)
	}
	log.Info().Int("entries", len(r.store)).Msg("snapshot bootstrapped")
	return nil
}

// assertKVv1 reads the existing mount's configuration on "path in use"
// recovery and confirms it is a kv-v1 engine, since a prior run (or an
// unrelated operator) may have created a same-path mount of a different
// type or kv version that the flat ReadKVv1/WriteKVv1 calls cannot safely
// read through.
func (r *Repository) assertKVv1(ctx context.Context) error {
	mount, err := r.backend.ReadMount(ctx, r.mount)
	if err != nil {
		return err
	}
	if mount == nil {
		return apperror.New(apperror.SnapshotEngineMismatch, "snapshot mount reported path in use but is absent from the mount table")
	}
	if mount.Type != "kv" {
		return apperror.New(apperror.SnapshotEngineMismatch,
			fmt.Sprintf("snapshot mount at %q is type %q, expected kv-v1", r.mount, mount.Type))
	}
	if version := mount.Options["version"]; version != "" && version != "1" {
		return apperror.New(apperror.SnapshotEngineMismatch,
			fmt.Sprintf("snapshot mount at %q is kv version %q, expected kv-v1", r.mount, version))
	}
	return nil
}

func isKind(err error, kind apperror.Kind) bool {
	var appErr *apperror.Error
	for err != nil {
		if e, ok := err.(*apperror.Error); ok {
			appErr = e
			break
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = u.Unwrap()
	}
	return appErr != nil && appErr.Kind == kind
}

// namespacedKey prefixes path by kind, so distinct kinds sharing a path
// string do not collide in the flat snapshot map.
func namespacedKey(kind dto.Kind, path string) string {
	return string(kind) + ":" + path
}

// Get returns the stored snapshot payload for (kind, path), and whether it
// was present.
func (r *Repository) Get(kind dto.Kind, path string) (json.RawMessage, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.store[namespacedKey(kind, path)]
	return v, ok
}

// Put records payload as the last-applied state for (kind, path).
func (r *Repository) Put(kind dto.Kind, path string, payload json.RawMessage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.store[namespacedKey(kind, path)] = payload
}

// Len reports how many entries the snapshot holds.
func (r *Repository) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.store)
}

// Flush writes the snapshot back as a single kv-v1 secret, if it is
// non-empty and the client remains authenticated.
func (r *Repository) Flush(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.store) == 0 {
		return nil
	}
	if r.isAuthedFn != nil && !r.isAuthedFn() {
		return nil
	}

	data := make(map[string]any, len(r.store))
	for k, v := range r.store {
		data[k] = string(v)
	}
	return r.backend.WriteKVv1(ctx, r.mount, r.secretPath, data)
}
