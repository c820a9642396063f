package status

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	sunoclone "github.com/darioluanne770968-prog/suno-clone"
	"github.com/darioluanne770968-prog/suno-clone/pkg/music"
	"github.com/darioluanne770968-prog/suno-clone/pkg/storage"
	"github.com/schollz/progressbar/v3"
)

type Config struct {
	sunoclone.Config

	// ID is a job id or a provider task id. Empty lists recent jobs.
	ID string
	// Resume waits for the job and delivers its tracks.
	Resume bool
	Limit  int
}

// Run shows the state of generation jobs.
func Run(ctx context.Context, cfg *Config) error {
	env, err := sunoclone.Open(ctx, &cfg.Config)
	if err != nil {
		return err
	}
	defer env.Close()

	if cfg.ID == "" {
		limit := cfg.Limit
		if limit <= 0 {
			limit = 20
		}
		jobs, err := env.Store.ListJobs(ctx, 1, limit)
		if err != nil {
			return fmt.Errorf("status: couldn't list jobs: %w", err)
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tTASK\tSTATUS\tCREATED\tPROMPT")
		for _, j := range jobs {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", j.ID, j.TaskID, j.Status, j.CreatedAt.Format("2006-01-02 15:04"), j.Prompt)
		}
		return w.Flush()
	}

	if cfg.Resume {
		bar := progressbar.NewOptions(-1,
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionSpinnerType(14),
			progressbar.OptionSetDescription("waiting"),
			progressbar.OptionClearOnFinish(),
		)
		tracks, err := env.App.Resume(ctx, cfg.ID, func(s music.Status) {
			bar.Describe(string(s))
			_ = bar.Add(1)
		})
		_ = bar.Finish()
		if err != nil {
			return fmt.Errorf("status: %w", err)
		}
		for _, t := range tracks {
			fmt.Printf("%s\t%s\t%s\n", t.ID, t.Title, t.AudioURL)
		}
		return nil
	}

	taskID := cfg.ID
	job, err := env.Store.GetJob(ctx, cfg.ID)
	switch {
	case errors.Is(err, storage.ErrNotFound):
	case err != nil:
		return fmt.Errorf("status: couldn't get job: %w", err)
	default:
		taskID = job.TaskID
		fmt.Printf("job %s: %s %q\n", job.ID, job.Status, job.Prompt)
		if job.Error != "" {
			fmt.Printf("last error: %s\n", job.Error)
		}
	}
	remote, err := env.App.Poll(ctx, taskID)
	if err != nil {
		return fmt.Errorf("status: couldn't poll %s: %w", taskID, err)
	}
	fmt.Printf("task %s: %s\n", remote.TaskID, remote.Status)
	for _, t := range remote.Tracks {
		fmt.Printf("%s\t%s\t%s\n", t.ID, t.Title, t.AudioURL)
	}
	return nil
}
