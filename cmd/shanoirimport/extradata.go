package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/mrsinham/shanoirimport/internal/extradata"
	"github.com/spf13/cobra"
)

func (a *app) extradataCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extradata",
		Short: "Manage the extra data files of preclinical examinations",
		Long: `Manage the files attached to a preclinical examination.

Available subcommands:
  list     - List the extra data of an examination
  get      - Show one extra data
  create   - Create an extra data record
  update   - Update an extra data record
  delete   - Delete an extra data record
  upload   - Upload the file of a record
  download - Download the file of a record
  urls     - Print the upload and download links of a record`,
	}

	cmd.AddCommand(
		a.extradataListCmd(),
		a.extradataGetCmd(),
		a.extradataCreateCmd(),
		a.extradataUpdateCmd(),
		a.extradataDeleteCmd(),
		a.extradataUploadCmd(),
		a.extradataDownloadCmd(),
		a.extradataURLsCmd(),
	)
	return cmd
}

func (a *app) extradataService() *extradata.Service {
	return extradata.NewService(a.restClient(), a.config.ExaminationURL(), a.logger)
}

func (a *app) extradataListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list <examination-id>",
		Short: "List the extra data of an examination",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			examID, err := parseID("examination id", args[0])
			if err != nil {
				return err
			}
			list, err := a.extradataService().List(cmd.Context(), examID)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), list)
		},
	}
}

func (a *app) extradataGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show one extra data",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := parseID("id", args[0]); err != nil {
				return err
			}
			entity, err := a.extradataService().Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), entity)
		},
	}
}

// payloadFlags are the editable fields of a record.
type payloadFlags struct {
	datatype           string
	filename           string
	hasHeartRate       bool
	hasRespiratoryRate bool
	hasSao2            bool
	hasTemperature     bool
}

func (p *payloadFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&p.datatype, "type", extradata.TypeExtraData,
		"Datatype: extradata, physiologicaldata or bloodgasdata")
	cmd.Flags().StringVar(&p.filename, "filename", "", "File name")
	cmd.Flags().BoolVar(&p.hasHeartRate, "heart-rate", false, "Physiological data holds a heart rate")
	cmd.Flags().BoolVar(&p.hasRespiratoryRate, "respiratory-rate", false, "Physiological data holds a respiratory rate")
	cmd.Flags().BoolVar(&p.hasSao2, "sao2", false, "Physiological data holds SaO2")
	cmd.Flags().BoolVar(&p.hasTemperature, "temperature", false, "Physiological data holds a temperature")
}

func (p *payloadFlags) build(examID, id int64) (extradata.Payload, error) {
	payload, ok := extradata.NewPayload(p.datatype)
	if !ok {
		return nil, fmt.Errorf("unknown datatype %q", p.datatype)
	}
	record := payload.Record()
	record.ID = id
	record.ExaminationID = examID
	record.Filename = p.filename

	if physio, ok := payload.(*extradata.PhysiologicalData); ok {
		physio.HasHeartRate = p.hasHeartRate
		physio.HasRespiratoryRate = p.hasRespiratoryRate
		physio.HasSao2 = p.hasSao2
		physio.HasTemperature = p.hasTemperature
	}
	return payload, nil
}

func (a *app) extradataCreateCmd() *cobra.Command {
	var flags payloadFlags
	cmd := &cobra.Command{
		Use:   "create <examination-id>",
		Short: "Create an extra data record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			examID, err := parseID("examination id", args[0])
			if err != nil {
				return err
			}
			payload, err := flags.build(examID, 0)
			if err != nil {
				return err
			}
			raw, err := a.extradataService().Create(cmd.Context(), payload.Record().ExtraDataType, payload)
			if err != nil {
				return err
			}
			return printRaw(cmd.OutOrStdout(), raw)
		},
	}
	flags.bind(cmd)
	return cmd
}

func (a *app) extradataUpdateCmd() *cobra.Command {
	var flags payloadFlags
	cmd := &cobra.Command{
		Use:   "update <examination-id> <id>",
		Short: "Update an extra data record",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			examID, id, err := parseRecordArgs(args)
			if err != nil {
				return err
			}
			payload, err := flags.build(examID, id)
			if err != nil {
				return err
			}
			raw, err := a.extradataService().Update(cmd.Context(), payload.Record().ExtraDataType, id, payload)
			if err != nil {
				return err
			}
			return printRaw(cmd.OutOrStdout(), raw)
		},
	}
	flags.bind(cmd)
	return cmd
}

func (a *app) extradataDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <examination-id> <id>",
		Short: "Delete an extra data record",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			entity, err := recordFromArgs(args)
			if err != nil {
				return err
			}
			if err := a.extradataService().Delete(cmd.Context(), entity); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted extra data %d\n", entity.ID)
			return nil
		},
	}
}

func (a *app) extradataUploadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "upload <examination-id> <id> <file>",
		Short: "Upload the file of a record",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			entity, err := recordFromArgs(args[:2])
			if err != nil {
				return err
			}
			f, err := os.Open(args[2])
			if err != nil {
				return fmt.Errorf("open %s: %w", args[2], err)
			}
			defer f.Close()

			raw, err := a.extradataService().PostFile(cmd.Context(), filepath.Base(args[2]), f, entity)
			if err != nil {
				return err
			}
			return printRaw(cmd.OutOrStdout(), raw)
		},
	}
}

func (a *app) extradataDownloadCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "download <examination-id> <id>",
		Short: "Download the file of a record",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			entity, err := recordFromArgs(args)
			if err != nil {
				return err
			}
			data, err := a.extradataService().Download(cmd.Context(), entity)
			if err != nil {
				return err
			}
			if output == "" || output == "-" {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			if err := os.WriteFile(output, data, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", output, err)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the file here instead of stdout")
	return cmd
}

func (a *app) extradataURLsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "urls <examination-id> <id>",
		Short: "Print the upload and download links of a record",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			entity, err := recordFromArgs(args)
			if err != nil {
				return err
			}
			service := a.extradataService()
			fmt.Fprintf(cmd.OutOrStdout(), "upload:   %s\n", service.UploadURL(entity))
			fmt.Fprintf(cmd.OutOrStdout(), "download: %s\n", service.DownloadURL(entity))
			return nil
		},
	}
}

func parseID(name, s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer, got %q", name, s)
	}
	return id, nil
}

func parseRecordArgs(args []string) (examID, id int64, err error) {
	if examID, err = parseID("examination id", args[0]); err != nil {
		return 0, 0, err
	}
	if id, err = parseID("id", args[1]); err != nil {
		return 0, 0, err
	}
	return examID, id, nil
}

func recordFromArgs(args []string) (*extradata.ExtraData, error) {
	examID, id, err := parseRecordArgs(args)
	if err != nil {
		return nil, err
	}
	return &extradata.ExtraData{ID: id, ExaminationID: examID}, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printRaw pretty prints a server response, or nothing for an empty one.
func printRaw(w io.Writer, raw json.RawMessage) error {
	if len(raw) == 0 {
		return nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		_, err = fmt.Fprintln(w, string(raw))
		return err
	}
	return printJSON(w, v)
}
