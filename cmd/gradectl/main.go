package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/noah-isme/marks-ledger-api/internal/dto"
	"github.com/noah-isme/marks-ledger-api/internal/models"
	"github.com/noah-isme/marks-ledger-api/pkg/client"
	"github.com/noah-isme/marks-ledger-api/pkg/viewmodel"
)

const usage = `usage: gradectl [-api URL] [-timeout D] <command> [flags]

commands:
  upload <file>                         ingest a .xlsx or .csv spreadsheet
  list [-upload id] [-sort key] [-desc] list student records
  uploads                               list upload batches
  edit <id> [-name n] [-total t] [-obtained o]
  delete <id> [-yes]                    delete one student record
  delete-upload <id>                    delete a batch and its records
  export <id> [-format csv|pdf] [-o file]
  health                                show server status
`

// backend is the client surface the commands use beyond the view model.
type backend interface {
	viewmodel.API
	Uploads(ctx context.Context) ([]models.Upload, error)
	DeleteUpload(ctx context.Context, uploadID string) (*dto.DeleteUploadResponse, error)
	Export(ctx context.Context, uploadID, format string, w io.Writer) error
	Health(ctx context.Context) (*models.Health, error)
}

type app struct {
	api backend
	out io.Writer
	in  io.Reader
}

func main() {
	var (
		apiBase string
		timeout time.Duration
	)
	flag.StringVar(&apiBase, "api", envOr("GRADECTL_API", "http://localhost:5000/api"), "API base URL including prefix")
	flag.DurationVar(&timeout, "timeout", 30*time.Second, "request timeout")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	a := &app{api: client.New(apiBase), out: os.Stdout, in: os.Stdin}
	if err := a.run(ctx, flag.Arg(0), flag.Args()[1:]); err != nil {
		log.Fatalf("%s: %v", flag.Arg(0), err)
	}
}

func (a *app) run(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "upload":
		return a.upload(ctx, args)
	case "list":
		return a.list(ctx, args)
	case "uploads":
		return a.uploads(ctx)
	case "edit":
		return a.edit(ctx, args)
	case "delete":
		return a.deleteStudent(ctx, args)
	case "delete-upload":
		return a.deleteUpload(ctx, args)
	case "export":
		return a.export(ctx, args)
	case "health":
		return a.health(ctx)
	}
	return fmt.Errorf("unknown command %q", cmd)
}

func (a *app) upload(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("expected one file path")
	}
	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close() //nolint:errcheck

	m := viewmodel.New(a.api)
	if err := m.Upload(ctx, args[0], f); err != nil {
		return err
	}
	a.status(m)
	return nil
}

func (a *app) list(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	uploadID := fs.String("upload", "", "only records of this upload")
	sortKey := fs.String("sort", "", "student_id|student_name|total_marks|marks_obtained|percentage")
	desc := fs.Bool("desc", false, "sort descending")
	if err := fs.Parse(args); err != nil {
		return err
	}

	m := viewmodel.New(a.api)
	m.SetUploadFilter(*uploadID)
	if err := m.Refresh(ctx); err != nil {
		return err
	}
	if *sortKey != "" {
		if err := m.SortBy(viewmodel.SortKey(*sortKey)); err != nil {
			return err
		}
		if *desc {
			_ = m.SortBy(viewmodel.SortKey(*sortKey))
		}
	}
	a.printRecords(m.Records())
	return nil
}

func (a *app) uploads(ctx context.Context) error {
	uploads, err := a.api.Uploads(ctx)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tFILENAME\tSTUDENTS\tUPLOADED")
	for _, u := range uploads {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", u.ID, u.Filename, u.StudentCount, u.CreatedAt.Local().Format(time.RFC822))
	}
	return tw.Flush()
}

func (a *app) edit(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New("expected a record id")
	}
	id := args[0]
	fs := flag.NewFlagSet("edit", flag.ContinueOnError)
	name := fs.String("name", "", "student name")
	total := fs.Int("total", 0, "total marks")
	obtained := fs.Int("obtained", 0, "marks obtained")
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}

	m := viewmodel.New(a.api)
	if err := m.Refresh(ctx); err != nil {
		return err
	}
	if err := m.Edit(id); err != nil {
		return err
	}
	form := m.Form()
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "name":
			form.StudentName = *name
		case "total":
			form.TotalMarks = *total
		case "obtained":
			form.MarksObtained = *obtained
		}
	})
	if err := m.SetForm(form); err != nil {
		return err
	}
	if err := m.Save(ctx); err != nil {
		return err
	}
	a.status(m)
	for _, r := range m.Records() {
		if r.ID == id {
			a.printRecords([]models.StudentRecord{r})
		}
	}
	return nil
}

func (a *app) deleteStudent(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New("expected a record id")
	}
	id := args[0]
	fs := flag.NewFlagSet("delete", flag.ContinueOnError)
	yes := fs.Bool("yes", false, "skip confirmation")
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}

	m := viewmodel.New(a.api)
	m.RequestDelete(id)
	if !*yes && !a.confirm("Are you sure you want to delete this student?") {
		m.CancelDelete()
		fmt.Fprintln(a.out, "Cancelled")
		return nil
	}
	if err := m.Confirm(ctx); err != nil {
		return err
	}
	a.status(m)
	return nil
}

func (a *app) deleteUpload(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("expected an upload id")
	}
	resp, err := a.api.DeleteUpload(ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s (%d students)\n", resp.Message, resp.DeletedStudents)
	return nil
}

func (a *app) export(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New("expected an upload id")
	}
	id := args[0]
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	format := fs.String("format", "csv", "csv or pdf")
	output := fs.String("o", "", "output file (default stdout)")
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}
	if *output == "" {
		return a.api.Export(ctx, id, *format, a.out)
	}
	f, err := os.Create(*output)
	if err != nil {
		return err
	}
	if err := a.api.Export(ctx, id, *format, f); err != nil {
		_ = f.Close()
		_ = os.Remove(*output)
		return err
	}
	return f.Close()
}

func (a *app) health(ctx context.Context) error {
	h, err := a.api.Health(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "status:   %s\nuploads:  %s\nstudents: %s\ntime:     %s\n",
		h.Status, countText(h.Uploads), countText(h.Students), h.Time.Format(time.RFC3339))
	return nil
}

func (a *app) printRecords(records []models.StudentRecord) {
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTUDENT_ID\tNAME\tTOTAL\tOBTAINED\tPERCENT")
	for _, r := range records {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%.2f%%\n", r.ID, r.StudentID, r.StudentName, r.TotalMarks, r.MarksObtained, r.Percentage)
	}
	_ = tw.Flush()
}

func (a *app) status(m *viewmodel.Model) {
	if msg, _ := m.Status(); msg != "" {
		fmt.Fprintln(a.out, msg)
	}
}

func (a *app) confirm(prompt string) bool {
	fmt.Fprintf(a.out, "%s [y/N] ", prompt)
	line, err := bufio.NewReader(a.in).ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}

func countText(c models.Count) string {
	if !c.Known {
		return "unknown"
	}
	return fmt.Sprint(c.Value)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
