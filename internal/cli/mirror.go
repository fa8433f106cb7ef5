package cli

import (
	"github.com/dl-alexandre/sheetmirror/internal/sync/mirror"
	"github.com/dl-alexandre/sheetmirror/internal/types"
	"github.com/dl-alexandre/sheetmirror/internal/utils"
	"github.com/spf13/cobra"
)

var mirrorKind string

var mirrorCmd = &cobra.Command{
	Use:   "mirror <drive-link> <folder> [name]",
	Short: "Mirror a single Drive file onto the destination",
	Long: `Resolve one Drive sharing link and mirror the file into folder on the
destination, using the same skip, backup and replace rules as the daemon.

The file keeps its Drive name unless name is given.`,
	Args: cobra.RangeArgs(2, 3),
	RunE: runMirror,
}

// MirrorResult is the outcome of a single-file mirror
type MirrorResult struct {
	Link    string         `json:"link"`
	Folder  string         `json:"folder"`
	Name    string         `json:"name,omitempty"`
	Kind    types.FileKind `json:"kind"`
	Outcome mirror.Outcome `json:"outcome"`
}

func (r *MirrorResult) AsTableRenderer() types.TableRenderer {
	return &mirrorTable{result: r}
}

type mirrorTable struct {
	result *MirrorResult
}

func (t *mirrorTable) Headers() []string {
	return []string{"Folder", "Name", "Outcome"}
}

func (t *mirrorTable) Rows() [][]string {
	name := t.result.Name
	if name == "" {
		name = "(drive name)"
	}
	return [][]string{{t.result.Folder, name, string(t.result.Outcome)}}
}

func (t *mirrorTable) EmptyMessage() string {
	return "Nothing mirrored"
}

func init() {
	mirrorCmd.Flags().StringVar(&mirrorKind, "kind", string(types.FileKindVideo), "File kind recorded in the result (video, image)")
	rootCmd.AddCommand(mirrorCmd)
}

func runMirror(cmd *cobra.Command, args []string) error {
	flags := GetGlobalFlags()
	out := NewOutputWriter(flags.OutputFormat, flags.Quiet, flags.Verbose)

	kind := types.FileKind(mirrorKind)
	if kind != types.FileKindVideo && kind != types.FileKindImage {
		return out.Fail("mirror", utils.NewCLIError(utils.ErrCodeInvalidArgument,
			"kind must be video or image").WithContext("kind", mirrorKind).Err())
	}

	cfg, err := currentConfig()
	if err != nil {
		return out.Fail("mirror", err)
	}
	if err := cfg.RequireResolve(); err != nil {
		return out.Fail("mirror", err)
	}
	if cfg.FTPHost == "" || cfg.FTPUser == "" {
		return out.Fail("mirror", utils.NewCLIError(utils.ErrCodeConfigurationMissing,
			"ftpHost and ftpUser must be configured").Err())
	}

	ctx := cmd.Context()
	gc, err := newGoogleClients(ctx, cfg)
	if err != nil {
		return out.Fail("mirror", err)
	}
	m, err := newMirror(gc, cfg)
	if err != nil {
		return out.Fail("mirror", err)
	}
	dialer, err := newDialer(cfg)
	if err != nil {
		return out.Fail("mirror", err)
	}

	conn, err := dialer.Dial(ctx)
	if err != nil {
		return out.Fail("mirror", utils.NewCLIError(utils.ErrCodeNetworkError,
			"failed to connect to destination").WithRetryable(true).WithCause(err).Err())
	}
	defer conn.Close()

	result := &MirrorResult{Link: args[0], Folder: args[1], Kind: kind}
	if len(args) == 3 {
		result.Name = args[2]
	}

	outcome, err := m.Sync(ctx, conn, types.FileReference{Link: result.Link, Kind: kind}, result.Folder, result.Name)
	if err != nil {
		return out.Fail("mirror", err)
	}
	result.Outcome = outcome
	return out.WriteSuccess("mirror", result)
}
