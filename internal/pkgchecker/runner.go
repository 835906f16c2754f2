package pkgchecker

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/schollz/progressbar/v3"

	"github.com/open-edge-platform/rpm-depcheck/internal/ospackage/rpmutils"
	"github.com/open-edge-platform/rpm-depcheck/internal/utils/logger"
)

// Result is the outcome of one job.
type Result struct {
	Name   string                      `json:"name"`
	Report rpmutils.SatisfactionReport `json:"report"`
	Err    error                       `json:"-"`
	Error  string                      `json:"error,omitempty"`
}

// Satisfied is false for a failed check as well as for missing requirements.
func (r Result) Satisfied() bool {
	return r.Err == nil && r.Report.Satisfied
}

// Batch collects the results of one Run, in job order.
type Batch struct {
	RunID   string   `json:"run_id"`
	Results []Result `json:"results"`
}

// Satisfied reports whether every job passed.
func (b Batch) Satisfied() bool {
	for _, r := range b.Results {
		if !r.Satisfied() {
			return false
		}
	}
	return true
}

// Failed returns the results that did not pass.
func (b Batch) Failed() []Result {
	failed := []Result{}
	for _, r := range b.Results {
		if !r.Satisfied() {
			failed = append(failed, r)
		}
	}
	return failed
}

// WriteMissingReport appends "package: requirement" lines for every missing
// requirement to the report file named after title.
func (b Batch) WriteMissingReport(title string) (string, error) {
	report := logger.NewMissingReport(title, b.RunID)
	for _, r := range b.Results {
		if r.Err != nil {
			report.Add(fmt.Sprintf("%s: error: %v", r.Name, r.Err))
			continue
		}
		for _, missing := range r.Report.Missing {
			report.Add(fmt.Sprintf("%s: %s", r.Name, missing))
		}
	}
	return report.WriteToFile()
}

// Run checks jobs with a pool of workers, each job against its own index.
// Progress is drawn on progress when it is not nil.
func (c *Checker) Run(ctx context.Context, jobs []Job, workers int, progress io.Writer) Batch {
	log := logger.Logger()

	batch := Batch{
		RunID:   uuid.NewString(),
		Results: make([]Result, len(jobs)),
	}
	if workers < 1 {
		workers = 1
	}
	if progress == nil {
		progress = io.Discard
	}

	total := len(jobs)
	indexes := make(chan int, total)
	var wg sync.WaitGroup

	bar := progressbar.NewOptions(total,
		progressbar.OptionSetWriter(progress),
		progressbar.OptionFullWidth(),
		progressbar.OptionSetDescription("checking"),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionThrottle(100*time.Millisecond),
	)

	log.Debugf("run %s: checking %d packages with %d workers", batch.RunID, total, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indexes {
				job := jobs[i]
				bar.Describe(fmt.Sprintf("checking %s", job.Name))

				result := Result{Name: job.Name}
				start := time.Now()
				if err := ctx.Err(); err != nil {
					result.Err = err
				} else {
					result.Report, result.Err = c.CheckJob(ctx, job)
				}
				c.Metrics.Observe(result, time.Since(start))
				if result.Err != nil {
					result.Error = result.Err.Error()
					log.Errorf("checking %s failed: %v", job.Name, result.Err)
				} else if !result.Report.Satisfied {
					log.Warnf("%s: %d missing requirement(s)", job.Name, len(result.Report.Missing))
				}
				batch.Results[i] = result
				bar.Add(1)
			}
		}()
	}

	for i := range jobs {
		indexes <- i
	}
	close(indexes)

	wg.Wait()
	bar.Finish()
	return batch
}
