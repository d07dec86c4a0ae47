package workflow

import (
	"context"
	"testing"
	"time"

	vaultapi "github.com/hashicorp/vault/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hqdncw/vault-autopilot-go/internal/apperror"
	"github.com/hqdncw/vault-autopilot-go/internal/dto"
	"github.com/hqdncw/vault-autopilot-go/internal/eventbus"
	"github.com/hqdncw/vault-autopilot-go/internal/processor"
	"github.com/hqdncw/vault-autopilot-go/internal/snapshot"
	"github.com/hqdncw/vault-autopilot-go/internal/vaultclient"
)

type fakeClient struct {
	authErr error
}

func (f *fakeClient) Authenticate(ctx context.Context) error { return f.authErr }
func (f *fakeClient) IsAuthenticated() bool                  { return f.authErr == nil }

type fakeSnapshotBackend struct{}

func (fakeSnapshotBackend) EnableSecretsEngine(ctx context.Context, path string, in vaultclient.MountInput) error {
	return nil
}
func (fakeSnapshotBackend) ReadMount(ctx context.Context, path string) (*vaultapi.MountOutput, error) {
	return &vaultapi.MountOutput{Type: "kv", Options: map[string]string{"version": "1"}}, nil
}
func (fakeSnapshotBackend) ReadKVv1(ctx context.Context, mount, path string) (map[string]any, error) {
	return nil, nil
}
func (fakeSnapshotBackend) WriteKVv1(ctx context.Context, mount, path string, data map[string]any) error {
	return nil
}

func TestRunAppliesSecretsEngineAndRecordsSnapshot(t *testing.T) {
	bus := eventbus.New()
	sem := processor.NewSemaphore(0)
	repo := snapshot.New(fakeSnapshotBackend{}, "snapshots", "snapshot", func() bool { return true })

	w := New(&fakeClient{}, bus, sem, repo)

	applied := false
	proc := processor.NewSecretsEngineProcessor(sem, bus, func(ctx context.Context, e dto.SecretsEngine) dto.ApplyResult {
		applied = true
		return dto.ApplyResult{Status: dto.StatusCreateSuccess}
	})
	w.RegisterProcessors(proc)

	ch := make(chan dto.Payload, 1)
	ch <- dto.SecretsEngine{Name: "kv", Spec: dto.SecretsEngineSpec{Path: "kv", Type: "kv-v2"}}
	close(ch)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	require.NoError(t, w.Run(ctx, ch))
	assert.True(t, applied)

	_, ok := repo.Get(dto.KindSecretsEngine, "kv")
	assert.True(t, ok, "successful outcome should be recorded in the snapshot")
}

func TestRunPropagatesAuthenticationFailure(t *testing.T) {
	bus := eventbus.New()
	sem := processor.NewSemaphore(0)
	repo := snapshot.New(fakeSnapshotBackend{}, "snapshots", "snapshot", func() bool { return true })

	authErr := apperror.New(apperror.AuthenticationFailure, "bad token")
	w := New(&fakeClient{authErr: authErr}, bus, sem, repo)

	ch := make(chan dto.Payload)
	close(ch)

	err := w.Run(context.Background(), ch)
	require.Error(t, err)

	var appErr *apperror.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperror.AuthenticationFailure, appErr.Kind)
}

func TestRunReportsAbortOnShutdownSignal(t *testing.T) {
	bus := eventbus.New()
	sem := processor.NewSemaphore(0)
	repo := snapshot.New(fakeSnapshotBackend{}, "snapshots", "snapshot", func() bool { return true })

	w := New(&fakeClient{}, bus, sem, repo)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ch := make(chan dto.Payload)

	err := w.Run(ctx, ch)
	require.Error(t, err)

	var appErr *apperror.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperror.Aborted, appErr.Kind)
	assert.Equal(t, 24, apperror.ExitCode(apperror.Aborted))
}

func TestRunReportsUnresolvedDependencies(t *testing.T) {
	bus := eventbus.New()
	sem := processor.NewSemaphore(0)
	repo := snapshot.New(fakeSnapshotBackend{}, "snapshots", "snapshot", func() bool { return true })

	w := New(&fakeClient{}, bus, sem, repo)

	proc := processor.NewPKIRoleProcessor(sem, bus, func(ctx context.Context, r dto.PKIRole) dto.ApplyResult {
		return dto.ApplyResult{Status: dto.StatusCreateSuccess}
	})
	w.RegisterProcessors(proc)

	ch := make(chan dto.Payload, 1)
	ch <- dto.PKIRole{Name: "r", Spec: dto.PKIRoleSpec{SecretsEngine: "pki", IssuerRef: "pki/nope"}}
	close(ch)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	err := w.Run(ctx, ch)
	require.Error(t, err)

	var appErr *apperror.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperror.UnresolvedDependency, appErr.Kind)
}
