package cli

import (
	"encoding/json"
	"fmt"

	"github.com/dl-alexandre/sheetmirror/internal/records"
	"github.com/dl-alexandre/sheetmirror/internal/types"
	"github.com/dl-alexandre/sheetmirror/internal/utils"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var recordsCmd = &cobra.Command{
	Use:   "records",
	Short: "Copy the records sheet into the local record store",
	Long:  "Commands for pushing the records sheet into the record store and inspecting it",
}

var recordsPushCmd = &cobra.Command{
	Use:   "push",
	Short: "Push the records sheet into the record store once",
	Long: `Read the records range, treat its first row as headers and upsert every
following row keyed by its first column. Rows without a key are skipped.`,
	Args: cobra.NoArgs,
	RunE: runRecordsPush,
}

var recordsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored records",
	Args:  cobra.NoArgs,
	RunE:  runRecordsList,
}

var recordsCollection string

func init() {
	recordsListCmd.Flags().StringVar(&recordsCollection, "collection", "", "Collection to list (defaults to the configured collection)")

	rootCmd.AddCommand(recordsCmd)
	recordsCmd.AddCommand(recordsPushCmd)
	recordsCmd.AddCommand(recordsListCmd)
}

func runRecordsPush(cmd *cobra.Command, args []string) error {
	flags := GetGlobalFlags()
	out := NewOutputWriter(flags.OutputFormat, flags.Quiet, flags.Verbose)

	cfg, err := currentConfig()
	if err != nil {
		return out.Fail("records.push", err)
	}
	syncer, store, err := newRecordsSyncer(cmd.Context(), cfg)
	if err != nil {
		return out.Fail("records.push", err)
	}
	defer store.Close()

	result, err := syncer.Push(cmd.Context())
	if err != nil {
		return out.Fail("records.push", err)
	}
	out.Log("%s", result.Summary())
	return out.WriteSuccess("records.push", result)
}

func runRecordsList(cmd *cobra.Command, args []string) error {
	flags := GetGlobalFlags()
	out := NewOutputWriter(flags.OutputFormat, flags.Quiet, flags.Verbose)

	cfg, err := currentConfig()
	if err != nil {
		return out.Fail("records.list", err)
	}
	collection := recordsCollection
	if collection == "" {
		collection = cfg.RecordsCollection
	}
	if collection == "" {
		return out.Fail("records.list", utils.NewCLIError(utils.ErrCodeInvalidArgument, "no collection given").Err())
	}

	store, err := records.Open(cfg.RecordsDBPath)
	if err != nil {
		return out.Fail("records.list", utils.WrapAppError(utils.ErrCodeConfigurationMissing, err, "failed to open record store"))
	}
	defer store.Close()

	recs, err := store.List(cmd.Context(), collection)
	if err != nil {
		return out.Fail("records.list", err)
	}
	return out.WriteSuccess("records.list", &recordList{Collection: collection, Records: recs})
}

type recordList struct {
	Collection string           `json:"collection"`
	Records    []records.Record `json:"records"`
}

func (l *recordList) AsTableRenderer() types.TableRenderer {
	return l
}

func (l *recordList) Headers() []string {
	return []string{"Key", "Updated", "Data"}
}

func (l *recordList) Rows() [][]string {
	rows := make([][]string, len(l.Records))
	for i, rec := range l.Records {
		data, err := json.Marshal(rec.Data)
		if err != nil {
			data = []byte(fmt.Sprintf("<%v>", err))
		}
		rows[i] = []string{rec.Key, humanize.Time(rec.UpdatedAt), string(data)}
	}
	return rows
}

func (l *recordList) EmptyMessage() string {
	return fmt.Sprintf("No records in %s", l.Collection)
}
