package cli

import (
	"context"
	"fmt"

	"github.com/jedib0t/go-pretty/table"
	"github.com/jedib0t/go-pretty/text"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/srediag/shmrecord/internal/config"
	"github.com/srediag/shmrecord/pkg/shm"
)

// openEntry opens the configured record set labelled (or named) name.
//
// reset_shm from the file is ignored: get and set never unlink a live
// segment. With mustExist the segment has to be there already, so a read
// does not leave an empty segment behind.
func (c *cmdIO) openEntry(ctx context.Context, name string, mustExist bool) (*shm.RecordSet, error) {
	file, err := c.loadFile()
	if err != nil {
		return nil, err
	}
	e, ok := file.Lookup(name)
	if !ok {
		return nil, errors.Errorf("no record set %q in %s", name, file.Path)
	}
	if mustExist {
		if _, err := shm.Inspect(ctx, e.Set.Name); err != nil {
			return nil, errors.Wrapf(err, "%s has no segment yet", e.Label)
		}
	}
	cfg := e.Config()
	cfg.Reset = false
	openOptions{}.apply(&cfg)
	rs, err := shm.Open(ctx, cfg)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", e.Label)
	}
	return rs, nil
}

func newGetCommand(c *cmdIO) *cobra.Command {
	return &cobra.Command{
		Use:   "get SET [FIELD]",
		Short: "Print one field, or every field, of a configured record set.",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rs, err := c.openEntry(cmd.Context(), args[0], true)
			if err != nil {
				return err
			}
			defer rs.Close()
			if len(args) == 2 {
				v, err := rs.GetVar(args[1])
				if err != nil {
					return err
				}
				fmt.Fprintln(c.stdout, v)
				return nil
			}
			for k, v := range rs.Items() {
				fmt.Fprintf(c.stdout, "%s=%s\n", k, v)
			}
			return nil
		},
	}
}

func newSetCommand(c *cmdIO) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set SET FIELD VALUE",
		Short: "Write one field of a configured record set.",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			rs, err := c.openEntry(cmd.Context(), args[0], false)
			if err != nil {
				return err
			}
			defer rs.Close()
			v, err := shm.ParseValue(rs.Type(), args[2])
			if err != nil {
				return errors.Wrapf(err, "parsing %q as %s", args[2], rs.Type())
			}
			return rs.SetVar(args[1], v)
		},
	}
	// negative values such as -3 are arguments, not flags
	cmd.Flags().SetInterspersed(false)
	return cmd
}

func newInfoCommand(c *cmdIO) *cobra.Command {
	return &cobra.Command{
		Use:   "info NAME",
		Short: "Describe a shared memory segment without attaching to its schema.",
		Long: `Print the size and guard digest of a segment. NAME is a segment name, or
the label of a record set when --config is given; in that case the local
schema digest is compared against the stored one.
`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			var local *shm.Schema
			if c.configPath != "" {
				file, err := c.loadFile()
				if err != nil {
					return err
				}
				if e, ok := file.Lookup(name); ok {
					name = e.Set.Name
					if local, err = e.Config().Schema(); err != nil {
						return errors.Wrap(err, e.Label)
					}
				}
			}
			info, err := shm.Inspect(cmd.Context(), name)
			if err != nil {
				return err
			}
			writeInfo(c, info, local)
			return nil
		},
	}
}

func writeInfo(c *cmdIO, info *shm.SegmentInfo, local *shm.Schema) {
	t := table.NewWriter()
	t.SetOutputMirror(c.stdout)
	t.Style().Format.Header = text.FormatDefault
	t.AppendHeader(table.Row{"property", "value"})
	t.AppendRow(table.Row{"name", info.Name})
	t.AppendRow(table.Row{"path", info.Path})
	t.AppendRow(table.Row{"size", info.Size})
	t.AppendRow(table.Row{"data bytes", info.DataSize})
	guard := "unclaimed"
	if info.Claimed {
		guard = info.Guard.String()
	}
	t.AppendRow(table.Row{"guard", guard})
	if local != nil {
		t.AppendRow(table.Row{"local digest", local.Digest().String()})
		t.AppendRow(table.Row{"schema", schemaStatus(info, local)})
	}
	t.Render()
}

func schemaStatus(info *shm.SegmentInfo, local *shm.Schema) string {
	switch {
	case int64(local.TotalBytes()) != info.Size:
		return "size mismatch"
	case !info.Claimed:
		return "unclaimed"
	case info.Guard == local.Digest():
		return "match"
	}
	return "mismatch"
}

func newUnlinkCommand(c *cmdIO) *cobra.Command {
	return &cobra.Command{
		Use:   "unlink NAME",
		Short: "Remove a shared memory segment. Attached processes keep their mapping.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			if c.configPath != "" {
				file, err := c.loadFile()
				if err != nil {
					return err
				}
				name = resolveSegment(file, name)
			}
			if err := shm.Unlink(name); err != nil {
				return err
			}
			fmt.Fprintf(c.stdout, "unlinked %s\n", name)
			return nil
		},
	}
}

func resolveSegment(f *config.File, name string) string {
	if e, ok := f.Lookup(name); ok {
		return e.Set.Name
	}
	return name
}
