package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/yigit/schoolrecords/internal/app/repositories"
	"github.com/yigit/schoolrecords/internal/bootstrap"
	"github.com/yigit/schoolrecords/internal/seed"
)

const defaultConfigPath = "configs/config.yaml"

// deps is filled by the Before hook and shared by every command.
var deps *bootstrap.Dependencies

func newApp() *cli.App {
	return &cli.App{
		Name:  "records",
		Usage: "maintain the school records data files",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Value:   defaultConfigPath,
				Usage:   "path to the YAML config file",
				EnvVars: []string{"RECORDS_CONFIG"},
			},
			&cli.StringFlag{
				Name:  "data-dir",
				Usage: "override data.dir from the config",
			},
		},
		Before: setup,
		Commands: []*cli.Command{
			{Name: "init", Usage: "create the data directory and header-only data files", Action: runInit},
			{
				Name:   "seed",
				Usage:  "write sample students, courses, enrollments and assessments",
				Flags:  []cli.Flag{&cli.BoolFlag{Name: "force", Usage: "overwrite existing records"}},
				Action: runSeed,
			},
			{Name: "check", Usage: "load the data files and report skipped rows and integrity problems", Action: runCheck},
			{Name: "repair", Usage: "remove assessments with dangling references and save", Action: runRepair},
			{
				Name:   "backup",
				Usage:  "back up the data files",
				Flags:  []cli.Flag{&cli.BoolFlag{Name: "incremental", Usage: "create a session directory with a checksum manifest"}},
				Action: runBackup,
			},
			{Name: "backups", Usage: "list available backups, newest first", Action: runListBackups},
			{
				Name:      "restore",
				Usage:     "restore from a .bak file or a session directory",
				ArgsUsage: "<path>",
				Action:    runRestore,
			},
			{
				Name:   "cleanup",
				Usage:  "delete all but the newest backups",
				Flags:  []cli.Flag{&cli.IntFlag{Name: "keep", Value: -1, Usage: "number of backups to keep (default from config)"}},
				Action: runCleanup,
			},
			{
				Name:  "report",
				Usage: "print a student transcript or course statistics",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "roll", Usage: "student roll number"},
					&cli.StringFlag{Name: "course", Usage: "course ID"},
				},
				Action: runReport,
			},
		},
	}
}

func setup(c *cli.Context) error {
	cfg, lgr, err := bootstrap.LoadConfigAndSetupLogger(c.String("config"))
	if err != nil {
		return err
	}
	if dir := c.String("data-dir"); dir != "" {
		cfg.Data.Dir = dir
	}

	deps, err = bootstrap.BuildDependencies(cfg, lgr)
	return err
}

func out(c *cli.Context) io.Writer {
	return c.App.Writer
}

func printSkipped(w io.Writer, summary *repositories.LoadSummary) {
	if summary == nil {
		return
	}
	for _, r := range summary.Reports() {
		for _, e := range r.Skipped {
			fmt.Fprintf(w, "skipped %s %s\n", r.File, e.String())
		}
	}
}

func runInit(c *cli.Context) error {
	if err := deps.Services.Records.Initialize(); err != nil {
		return err
	}
	fmt.Fprintf(out(c), "data files ready in %s\n", deps.Config.Data.Dir)
	return nil
}

func runSeed(c *cli.Context) error {
	records := deps.Services.Records
	if err := records.Initialize(); err != nil {
		return err
	}
	if _, err := records.Load(); err != nil {
		return err
	}
	if students, _, _ := records.Registry().Counts(); students > 0 && !c.Bool("force") {
		return cli.Exit(fmt.Sprintf("%d student(s) already present, use --force to overwrite", students), 1)
	}

	reg, err := seed.SampleData(deps.Logger)
	if err != nil {
		return err
	}
	if err := records.Replace(reg); err != nil {
		return err
	}
	s, co, a := reg.Counts()
	fmt.Fprintf(out(c), "seeded %d student(s), %d course(s), %d assessment(s)\n", s, co, a)
	return nil
}

func runCheck(c *cli.Context) error {
	records := deps.Services.Records
	summary, err := records.Load()
	printSkipped(out(c), summary)
	if err != nil {
		return err
	}

	report := records.Validate()
	if report.OK() {
		s, co, a := records.Registry().Counts()
		fmt.Fprintf(out(c), "ok: %d student(s), %d course(s), %d assessment(s)\n", s, co, a)
		return nil
	}
	fmt.Fprint(out(c), report.Error())
	return cli.Exit(fmt.Sprintf("%d problem(s) found", len(report.Violations)), 1)
}

func runRepair(c *cli.Context) error {
	records := deps.Services.Records
	if _, err := records.Load(); err != nil {
		return err
	}

	report, err := records.Repair()
	if err != nil {
		return err
	}
	for _, id := range report.RemovedAssessments {
		fmt.Fprintf(out(c), "removed assessment %s\n", id)
	}
	for _, issue := range report.Unrepaired {
		fmt.Fprintf(out(c), "needs manual fix: %s\n", issue)
	}
	if !report.Changed() && len(report.Unrepaired) == 0 {
		fmt.Fprintln(out(c), "nothing to repair")
	}
	return nil
}

func runBackup(c *cli.Context) error {
	records := deps.Services.Records
	if c.Bool("incremental") {
		session, err := records.BackupIncremental()
		if err != nil {
			return err
		}
		fmt.Fprintf(out(c), "created %s\n", session)
		return nil
	}
	if err := records.Backup(); err != nil {
		return err
	}
	fmt.Fprintf(out(c), "backed up data files to %s\n", deps.Config.BackupPath())
	return nil
}

func runListBackups(c *cli.Context) error {
	backups, err := deps.Services.Records.ListBackups()
	if err != nil {
		return err
	}
	if len(backups) == 0 {
		fmt.Fprintln(out(c), "no backups")
		return nil
	}
	for _, b := range backups {
		kind := "file"
		if b.IsSession {
			kind = "session"
		}
		fmt.Fprintf(out(c), "%-8s %s\n", kind, b.Path)
	}
	return nil
}

func runRestore(c *cli.Context) error {
	path := c.Args().First()
	if path == "" {
		return cli.Exit("restore needs a backup path", 2)
	}
	if err := deps.Services.Records.Restore(path); err != nil {
		return err
	}
	fmt.Fprintf(out(c), "restored from %s\n", path)
	return nil
}

func runCleanup(c *cli.Context) error {
	keep := c.Int("keep")
	if keep < 0 {
		keep = deps.Config.Backup.KeepCount
	}
	removed, err := deps.Services.Records.CleanupBackups(keep)
	if err != nil {
		return err
	}
	fmt.Fprintf(out(c), "removed %d backup(s), kept at most %d\n", removed, keep)
	return nil
}

func runReport(c *cli.Context) error {
	roll, courseID := c.Int("roll"), strings.TrimSpace(c.String("course"))
	if (roll == 0) == (courseID == "") {
		return cli.Exit("report needs exactly one of --roll or --course", 2)
	}
	if _, err := deps.Services.Records.Load(); err != nil {
		return err
	}

	grades := deps.Services.Grades
	if roll != 0 {
		r, err := grades.StudentReport(roll)
		if err != nil {
			return err
		}
		fmt.Fprintf(out(c), "%d %s\n", r.RollNumber, r.Name)
		for _, cr := range r.Courses {
			fmt.Fprintf(out(c), "  %-10s %-32s %d cr  %6.2f  %-2s\n", cr.CourseID, cr.CourseName, cr.Credits, cr.Grade, cr.Letter)
		}
		if len(r.Courses) == 0 {
			fmt.Fprintln(out(c), "  no graded courses")
			return nil
		}
		fmt.Fprintf(out(c), "overall (%s): %.2f %s\n", grades.Calculator().Name(), r.Overall, r.Letter)
		return nil
	}

	st, err := grades.CourseStatistics(courseID)
	if err != nil {
		return err
	}
	fmt.Fprintf(out(c), "%s: %d enrolled, %d assessed\n", st.CourseID, st.Enrolled, st.Assessed)
	if st.Assessed == 0 {
		return nil
	}
	fmt.Fprintf(out(c), "average %.2f, highest %.2f, lowest %.2f, pass rate %.1f%% (%d)\n",
		st.Average, st.Highest, st.Lowest, st.PassRate, st.PassCount)
	return nil
}
