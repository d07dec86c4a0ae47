package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hqdncw/vault-autopilot-go/internal/apperror"
	"github.com/hqdncw/vault-autopilot-go/internal/config"
	"github.com/hqdncw/vault-autopilot-go/internal/dto"
	"github.com/hqdncw/vault-autopilot-go/internal/eventbus"
	"github.com/hqdncw/vault-autopilot-go/internal/logging"
	"github.com/hqdncw/vault-autopilot-go/internal/manifest"
	"github.com/hqdncw/vault-autopilot-go/internal/processor"
	"github.com/hqdncw/vault-autopilot-go/internal/service"
	"github.com/hqdncw/vault-autopilot-go/internal/snapshot"
	"github.com/hqdncw/vault-autopilot-go/internal/vaultclient"
	"github.com/hqdncw/vault-autopilot-go/internal/workflow"
)

var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Apply a manifest to a Vault server from files, directories, or standard input",
	Long: `Apply a manifest to a Vault server from a file, directory, or standard input.

Examples:

  # Apply a manifest from a file
  vault-autopilot apply -f manifest.yaml

  # Apply manifests from a folder recursively
  vault-autopilot apply -Rf '/path/to/folder/**/*.yaml'

  # Apply a manifest from standard input
  cat manifest.yaml | vault-autopilot apply`,
	RunE: runApply,
}

func init() {
	applyCmd.Flags().StringArrayP("filename", "f", nil, "Path to a manifest file or glob pattern (repeatable); reads stdin if omitted")
	applyCmd.Flags().BoolP("recursive", "R", false, "Expand ** glob patterns across subdirectories")
	applyCmd.Flags().Int("max-dispatch", 0, "Maximum number of resources applied concurrently (0 = unbounded)")
}

func runApply(cmd *cobra.Command, args []string) error {
	filenames, _ := cmd.Flags().GetStringArray("filename")
	recursive, _ := cmd.Flags().GetBool("recursive")
	maxDispatch, _ := cmd.Flags().GetInt("max-dispatch")
	settingsPath, _ := cmd.Root().PersistentFlags().GetString("settings")

	log := logging.For("cli")

	settings, err := config.Load(settingsPath)
	if err != nil {
		return err
	}
	if maxDispatch > 0 {
		settings.MaxDispatch = maxDispatch
	}

	client, err := vaultclient.New(settings.VaultClientConfig())
	if err != nil {
		return err
	}

	snapshotter := snapshot.New(client, settings.Storage.SecretsEnginePath, settings.Storage.SnapshotsSecretPath, client.IsAuthenticated)

	bus := eventbus.New()
	sem := processor.NewSemaphore(settings.MaxDispatch)

	procs := wireProcessors(client, bus, sem)

	w := workflow.New(client, bus, sem, snapshotter)
	w.RegisterProcessors(procs...)

	ctx, stop := workflow.NotifySignals(cmd.Context())
	defer stop()

	payloads := make(chan dto.Payload)
	go func() {
		if err := streamManifests(filenames, recursive, payloads); err != nil {
			log.Error().Err(err).Msg("manifest streaming failed")
		}
	}()

	runErr := w.Run(ctx, payloads)
	if runErr != nil {
		return runErr
	}

	fmt.Println("Thanks for choosing Vault Autopilot!")
	return nil
}

func wireProcessors(client *vaultclient.Client, bus *eventbus.Bus, sem *processor.Semaphore) []processor.Processor {
	return []processor.Processor{
		processor.NewSecretsEngineProcessor(sem, bus, service.NewSecretsEngineService(client).Apply),
		processor.NewPasswordPolicyProcessor(sem, bus, service.NewPasswordPolicyService(client).Apply),
		processor.NewIssuerProcessor(sem, bus, service.NewIssuerService(client).Apply),
		processor.NewPKIRoleProcessor(sem, bus, service.NewPKIRoleService(client).Apply),
		processor.NewPasswordProcessor(sem, bus, service.NewPasswordService(client).Apply),
		processor.NewSSHKeyProcessor(sem, bus, service.NewSSHKeyService(client).Apply),
	}
}

// streamManifests decodes every manifest named by filenames (or standard
// input, if filenames is empty) and writes the decoded payloads to out,
// closing out once every source is exhausted.
func streamManifests(filenames []string, recursive bool, out chan<- dto.Payload) error {
	defer close(out)

	if len(filenames) == 0 {
		return decodeInto(os.Stdin, out)
	}

	for _, pattern := range filenames {
		files, err := expandPattern(pattern, recursive)
		if err != nil {
			return apperror.Wrap(apperror.ManifestSyntax, fmt.Sprintf("expand pattern %q", pattern), err)
		}
		if len(files) == 0 {
			return apperror.New(apperror.ManifestSyntax, fmt.Sprintf("no files matched pattern %q", pattern))
		}
		for _, path := range files {
			if err := decodeFileInto(path, out); err != nil {
				return err
			}
		}
	}
	return nil
}

func decodeFileInto(path string, out chan<- dto.Payload) error {
	f, err := os.Open(path)
	if err != nil {
		return apperror.Wrap(apperror.ManifestSyntax, fmt.Sprintf("open %q", path), err)
	}
	defer f.Close()
	return decodeInto(f, out)
}

func decodeInto(r io.Reader, out chan<- dto.Payload) error {
	payloads, err := manifest.Decode(r)
	if err != nil {
		return err
	}
	for _, p := range payloads {
		out <- p
	}
	return nil
}

// expandPattern resolves pattern to a list of regular files. Directory
// matches are always skipped (a directory is never itself a manifest); a
// "**" segment expands across subdirectories only when recursive is set,
// otherwise it is left to filepath.Glob's single-level semantics.
func expandPattern(pattern string, recursive bool) ([]string, error) {
	if recursive {
		if idx := strings.Index(pattern, "**"); idx >= 0 {
			return expandRecursive(pattern, idx)
		}
	}

	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, err
	}
	return filterRegularFiles(matches), nil
}

func expandRecursive(pattern string, starIdx int) ([]string, error) {
	root := filepath.Clean(pattern[:starIdx])
	if root == "" {
		root = "."
	}
	suffix := strings.TrimPrefix(pattern[starIdx+2:], "/")

	var matches []string
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		if suffix == "" {
			matches = append(matches, path)
			return nil
		}
		if ok, _ := filepath.Match(suffix, filepath.Base(rel)); ok {
			matches = append(matches, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return matches, nil
}

func filterRegularFiles(paths []string) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil || info.IsDir() {
			continue
		}
		out = append(out, p)
	}
	return out
}

// exitCodeFor maps a workflow error to the reconciler's reserved process
// exit code, falling back to 1 for errors outside the apperror taxonomy.
func exitCodeFor(err error) int {
	var appErr *apperror.Error
	if ok := as(err, &appErr); ok {
		return apperror.ExitCode(appErr.Kind)
	}
	return 1
}

func as(err error, target **apperror.Error) bool {
	return errors.As(err, target)
}
