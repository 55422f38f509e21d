// Package pipeline assembles the task pipeline: trigger registration and
// the worker loop under one errgroup, stopped together by context
// cancellation.
//
//	p, _ := pipeline.New(sched, worker)
//	if err := p.Run(ctx); err != nil {
//		log.Fatal(err)
//	}
package pipeline
