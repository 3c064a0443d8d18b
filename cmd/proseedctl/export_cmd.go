package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/xuri/excelize/v2"

	"github.com/proseed/proseed/modules/workflow/services"
)

var exportHeader = []string{"Process", "Depth", "Task ID", "Task", "Completed", "Employees"}

type exportRow struct {
	process   string
	depth     int
	taskID    int64
	name      string
	completed bool
	employees []string
}

func (r exportRow) cells() []string {
	return []string{
		r.process,
		strconv.Itoa(r.depth),
		strconv.FormatInt(r.taskID, 10),
		strings.Repeat("  ", r.depth) + r.name,
		strconv.FormatBool(r.completed),
		strings.Join(r.employees, ", "),
	}
}

func newExportCmd(opts *globalOptions) *cobra.Command {
	var (
		format string
		output string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export every process's task forest with its assignments",
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "xlsx" && format != "csv" {
				return withCode(exitInvalid, errors.Errorf("invalid --format %q: want xlsx or csv", format))
			}
			s, err := openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			rows, err := collectRows(s)
			if err != nil {
				return withCode(exitInternal, err)
			}
			switch format {
			case "xlsx":
				err = writeXLSX(output, rows)
			case "csv":
				err = writeCSV(output, rows)
			}
			if err != nil {
				return withCode(exitInternal, err)
			}
			if opts.json {
				return writeJSON(cmd.OutOrStdout(), map[string]any{"file": output, "rows": len(rows)})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "exported %d tasks to %s\n", len(rows), output)
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "xlsx", "Output format: xlsx or csv")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (required)")
	_ = cmd.MarkFlagRequired("output")
	return cmd
}

func collectRows(s *session) ([]exportRow, error) {
	processes := s.app.Service(services.ProcessService{}).(*services.ProcessService)
	tasks := s.app.Service(services.TaskService{}).(*services.TaskService)

	all, err := processes.GetAll(s.ctx)
	if err != nil {
		return nil, err
	}
	var rows []exportRow
	for _, p := range all {
		tree, err := processes.GetWithTasks(s.ctx, p.ID)
		if err != nil {
			return nil, err
		}
		for _, root := range tree.Tasks {
			rows, err = appendRows(s.ctx, tasks, rows, p.Name, root, 0)
			if err != nil {
				return nil, err
			}
		}
	}
	return rows, nil
}

func appendRows(
	ctx context.Context,
	tasks *services.TaskService,
	rows []exportRow,
	process string,
	node *services.TaskNode,
	depth int,
) ([]exportRow, error) {
	assigned, err := tasks.Employees(ctx, node.ID)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(assigned))
	for _, e := range assigned {
		names = append(names, strings.TrimSpace(e.FirstName+" "+e.LastName))
	}
	rows = append(rows, exportRow{
		process:   process,
		depth:     depth,
		taskID:    node.ID,
		name:      node.Name,
		completed: node.Completed,
		employees: names,
	})
	for _, child := range node.SubTasks {
		rows, err = appendRows(ctx, tasks, rows, process, child, depth+1)
		if err != nil {
			return nil, err
		}
	}
	return rows, nil
}

func writeXLSX(path string, rows []exportRow) error {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Tasks"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return errors.Wrap(err, "name sheet")
	}
	write := func(row int, values []string) error {
		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return err
			}
		}
		return nil
	}
	if err := write(1, exportHeader); err != nil {
		return errors.Wrap(err, "write header")
	}
	for i, r := range rows {
		if err := write(i+2, r.cells()); err != nil {
			return errors.Wrapf(err, "write row %d", i+2)
		}
	}
	if err := f.SetPanes(sheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"}); err != nil {
		return errors.Wrap(err, "freeze header")
	}
	return errors.Wrap(f.SaveAs(path), "save workbook")
}

func writeCSV(path string, rows []exportRow) error {
	out, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "create csv")
	}
	defer out.Close()

	w := csv.NewWriter(out)
	if err := w.Write(exportHeader); err != nil {
		return err
	}
	for _, r := range rows {
		if err := w.Write(r.cells()); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return errors.Wrap(err, "write csv")
	}
	return out.Close()
}
