package engine

import "sync"

// worker runs the calls of one threaded operation on its own goroutine.
type worker struct {
	jobs chan func()
	wg   sync.WaitGroup
}

func startWorker() *worker {
	w := &worker{jobs: make(chan func())}
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		for job := range w.jobs {
			job()
		}
	}()
	return w
}

// run executes fn on the worker and waits for its result.
func (w *worker) run(fn func() error) error {
	errc := make(chan error, 1)
	w.jobs <- func() { errc <- fn() }
	return <-errc
}

// stop closes the job channel and waits for the goroutine to exit.
func (w *worker) stop() {
	close(w.jobs)
	w.wg.Wait()
}
